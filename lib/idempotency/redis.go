package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	responseKeyPrefix = "kychub:idempotency:"
	lockKeyPrefix     = "kychub:idempotency:lock:"
)

// RedisStore shares replayable responses between instances.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects to REDIS_URL and checks the connection.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Response, error) {
	data, err := s.client.Get(ctx, responseKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	response := &Response{}
	if err := json.Unmarshal(data, response); err != nil {
		return nil, fmt.Errorf("decoding stored response: %w", err)
	}
	return response, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, response *Response, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, responseKeyPrefix+key, data, ttl).Err()
}

func (s *RedisStore) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, lockKeyPrefix+key, "1", ttl).Result()
}

func (s *RedisStore) Unlock(ctx context.Context, key string) error {
	return s.client.Del(ctx, lockKeyPrefix+key).Err()
}

var _ Store = (*RedisStore)(nil)
