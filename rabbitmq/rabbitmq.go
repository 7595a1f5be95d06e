package rabbitmq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/getAlby/kychub.go/db/models"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

// bufPool reuses encoding buffers between published events.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

const (
	contentTypeJSON = "application/json"

	DefaultEventExchange = "kychub_events"
)

type (
	// SubscribeToEventsFunc returns the channel committed events arrive on and a func to stop the subscription.
	SubscribeToEventsFunc = func() (events chan models.Event, unsubscribe func(), err error)
	EventHandler          = func(ctx context.Context, event *models.Event) error
)

type Client interface {
	// PublishEvent publishes one event with its type as routing key.
	PublishEvent(ctx context.Context, event *models.Event) error
	// StartPublishEvents publishes everything the subscription yields until ctx is done.
	StartPublishEvents(ctx context.Context, subscribe SubscribeToEventsFunc) error
	// ConsumeEvents hands every event matching routingKey to handler until ctx is done.
	ConsumeEvents(ctx context.Context, routingKey, queueName string, handler EventHandler) error
	// Close will close all connections to rabbitmq
	Close() error
}

type DefaultClient struct {
	amqpClient AMQPClient
	logger     *lecho.Logger

	eventExchange string

	declareMu sync.Mutex
	declared  bool
}

type ClientOption = func(client *DefaultClient)

func WithEventExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		client.eventExchange = exchange
	}
}

func WithLogger(logger *lecho.Logger) ClientOption {
	return func(client *DefaultClient) {
		client.logger = logger
	}
}

func newDefaultClient(options ...ClientOption) *DefaultClient {
	client := &DefaultClient{
		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),
		eventExchange: DefaultEventExchange,
	}
	for _, opt := range options {
		opt(client)
	}
	return client
}

func NewClient(amqpClient AMQPClient, options ...ClientOption) (*DefaultClient, error) {
	if amqpClient == nil {
		return nil, errors.New("amqp client is required")
	}
	client := newDefaultClient(options...)
	client.amqpClient = amqpClient
	return client, nil
}

// Dial connects to rabbitmq and returns a client publishing on the event exchange.
func Dial(uri string, options ...ClientOption) (*DefaultClient, error) {
	client := newDefaultClient(options...)
	amqpClient, err := DialAMQP(uri, WithAMQPLogger(client.logger))
	if err != nil {
		return nil, err
	}
	client.amqpClient = amqpClient
	return client, nil
}

func (client *DefaultClient) Close() error { return client.amqpClient.Close() }

func (client *DefaultClient) declareExchange() error {
	client.declareMu.Lock()
	defer client.declareMu.Unlock()
	if client.declared {
		return nil
	}
	err := client.amqpClient.ExchangeDeclare(
		client.eventExchange,
		exchangeKindTopic,
		// durable, not auto deleted: survives broker restarts without bindings
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}
	client.declared = true
	return nil
}

func (client *DefaultClient) PublishEvent(ctx context.Context, event *models.Event) error {
	if err := client.declareExchange(); err != nil {
		return err
	}

	payload := bufPool.Get().(*bytes.Buffer)
	payload.Reset()
	defer bufPool.Put(payload)

	if err := json.NewEncoder(payload).Encode(event); err != nil {
		return err
	}

	err := client.amqpClient.PublishWithContext(ctx,
		client.eventExchange,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType: contentTypeJSON,
			MessageId:   event.ID.String(),
			Type:        event.Type,
			Timestamp:   event.CreatedAt,
			Body:        payload.Bytes(),
		},
	)
	if err != nil {
		return fmt.Errorf("publishing %s: %w", event.Type, err)
	}

	client.logger.Debugf("Successfully published event %s (%s) to rabbitmq", event.ID, event.Type)
	return nil
}

func (client *DefaultClient) StartPublishEvents(ctx context.Context, subscribe SubscribeToEventsFunc) error {
	if err := client.declareExchange(); err != nil {
		return err
	}

	events, unsubscribe, err := subscribe()
	if err != nil {
		return err
	}
	defer unsubscribe()

	client.logger.Info("Starting rabbitmq event publisher")
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := client.PublishEvent(ctx, &event); err != nil {
				captureErr(client.logger, err)
			}
		}
	}
}

func (client *DefaultClient) ConsumeEvents(ctx context.Context, routingKey, queueName string, handler EventHandler) error {
	deliveries, err := client.amqpClient.Listen(ctx, client.eventExchange, routingKey, queueName)
	if err != nil {
		return err
	}

	client.logger.Infof("Starting rabbitmq consumer for %s", routingKey)
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("disconnected from rabbitmq")
			}

			var event models.Event
			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				captureErr(client.logger, err)
				// malformed messages are dropped, never requeued
				if err := delivery.Nack(false, false); err != nil {
					captureErr(client.logger, err)
				}
				continue
			}

			if err := handler(ctx, &event); err != nil {
				captureErr(client.logger, err)
				// requeueing a failing event would loop on it
				if err := delivery.Nack(false, false); err != nil {
					captureErr(client.logger, err)
				}
				continue
			}

			if err := delivery.Ack(false); err != nil {
				captureErr(client.logger, err)
			}
		}
	}
}

func captureErr(logger *lecho.Logger, err error) {
	logger.Error(err)
	sentry.CaptureException(err)
}
