package idempotency

import (
	"context"
	"time"
)

// Response is what gets replayed for a repeated key.
type Response struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Store keeps responses by key. Get returns nil for unknown or expired keys.
type Store interface {
	Get(ctx context.Context, key string) (*Response, error)
	Set(ctx context.Context, key string, response *Response, ttl time.Duration) error
	// Lock reserves the key for one request in flight, it reports false
	// while another request holds it.
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
