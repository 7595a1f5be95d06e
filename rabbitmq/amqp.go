package rabbitmq

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

const (
	defaultHeartbeat   = 10 * time.Second
	defaultLocale      = "en_US"
	defaultDialTimeout = 3 * time.Second

	exchangeKindTopic = "topic"
)

var ErrReconnecting = errors.New("amqp: connection is being re-established")

type connectionState int

const (
	stateReconnected connectionState = iota
	stateClosed
)

type AMQPClient interface {
	Listen(ctx context.Context, exchange string, routingKey string, queueName string, options ...AMQPListenOptions) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Close() error
}

type amqpClient struct {
	uri    string
	logger *lecho.Logger

	mu   sync.RWMutex
	conn *amqp.Connection
	// consumers and the publisher get their own channels so that flow control
	// on the publishing side does not stall deliveries
	consumeChannel *amqp.Channel
	publishChannel *amqp.Channel
	closed         chan *amqp.Error

	reconnecting atomic.Bool
	listenersMu  sync.Mutex
	listeners    []chan connectionState

	maxInterval    time.Duration
	maxElapsedTime time.Duration
}

type DialOption = func(client *amqpClient)

func WithAMQPLogger(logger *lecho.Logger) DialOption {
	return func(client *amqpClient) {
		client.logger = logger
	}
}

// WithReconnectBackoff bounds the exponential backoff used while reconnecting
// and while publishers wait for a reconnect.
func WithReconnectBackoff(maxInterval, maxElapsedTime time.Duration) DialOption {
	return func(client *amqpClient) {
		client.maxInterval = maxInterval
		client.maxElapsedTime = maxElapsedTime
	}
}

func DialAMQP(uri string, options ...DialOption) (AMQPClient, error) {
	client := &amqpClient{
		uri: uri,
		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),
		maxInterval:    10 * time.Second,
		maxElapsedTime: time.Minute,
	}
	for _, opt := range options {
		opt(client)
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	go client.reconnectionLoop()

	return client, nil
}

func (c *amqpClient) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = c.maxInterval
	b.MaxElapsedTime = c.maxElapsedTime
	return b
}

func (c *amqpClient) connect() error {
	conn, err := amqp.DialConfig(c.uri, amqp.Config{
		Heartbeat: defaultHeartbeat,
		Locale:    defaultLocale,
		Dial:      amqp.DefaultDial(defaultDialTimeout),
	})
	if err != nil {
		return err
	}

	consumeChannel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	publishChannel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	closed := make(chan *amqp.Error, 1)
	conn.NotifyClose(closed)

	c.mu.Lock()
	c.conn = conn
	c.consumeChannel = consumeChannel
	c.publishChannel = publishChannel
	c.closed = closed
	c.mu.Unlock()

	return nil
}

func (c *amqpClient) reconnectionLoop() {
	for {
		c.mu.RLock()
		closed := c.closed
		c.mu.RUnlock()

		amqpErr, ok := <-closed
		if !ok || amqpErr == nil {
			// graceful Close
			c.notifyListeners(stateClosed)
			return
		}
		c.logger.Error(amqpErr)

		c.reconnecting.Store(true)
		c.logger.Info("amqp: trying to reconnect...")
		if err := backoff.Retry(c.connect, c.newBackOff()); err != nil {
			c.logger.Errorf("amqp: giving up reconnecting: %v", err)
			c.notifyListeners(stateClosed)
			return
		}
		c.reconnecting.Store(false)
		c.logger.Info("amqp: successfully reconnected")

		c.notifyListeners(stateReconnected)
	}
}

func (c *amqpClient) notifyListeners(state connectionState) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	for _, listener := range c.listeners {
		select {
		case listener <- state:
		default:
			c.logger.Warn("amqp: listener is not keeping up with connection state changes")
		}
	}
}

func (c *amqpClient) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.Close()
}

func (c *amqpClient) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	// short lived management channel
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.ExchangeDeclare(name, kind, durable, autoDelete, internal, noWait, args)
}

type ListenOptions struct {
	Durable    bool
	AutoDelete bool
	Exclusive  bool
	AutoAck    bool
	Wait       bool
}

type AMQPListenOptions = func(opts ListenOptions) ListenOptions

func WithDurable(durable bool) AMQPListenOptions {
	return func(opts ListenOptions) ListenOptions {
		opts.Durable = durable
		return opts
	}
}

func WithAutoDelete(autoDelete bool) AMQPListenOptions {
	return func(opts ListenOptions) ListenOptions {
		opts.AutoDelete = autoDelete
		return opts
	}
}

func WithExclusive(exclusive bool) AMQPListenOptions {
	return func(opts ListenOptions) ListenOptions {
		opts.Exclusive = exclusive
		return opts
	}
}

func WithAutoAck(autoAck bool) AMQPListenOptions {
	return func(opts ListenOptions) ListenOptions {
		opts.AutoAck = autoAck
		return opts
	}
}

// Listen binds queueName to exchange and returns a delivery channel that survives reconnects.
// The channel is closed when ctx is done or the connection is lost for good.
func (c *amqpClient) Listen(ctx context.Context, exchange string, routingKey string, queueName string, options ...AMQPListenOptions) (<-chan amqp.Delivery, error) {
	opts := ListenOptions{Durable: true}
	for _, opt := range options {
		opts = opt(opts)
	}

	deliveries, err := c.consume(exchange, routingKey, queueName, opts)
	if err != nil {
		return nil, err
	}

	out := make(chan amqp.Delivery)
	states := make(chan connectionState, 2)
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, states)
	c.listenersMu.Unlock()

	go func() {
		defer close(out)
		defer c.removeListener(states)
		for {
			select {
			case <-ctx.Done():
				return
			case state := <-states:
				if state == stateClosed {
					return
				}
				d, err := c.consume(exchange, routingKey, queueName, opts)
				if err != nil {
					c.logger.Errorf("amqp: could not resume consuming %s: %v", routingKey, err)
					return
				}
				c.logger.Infof("amqp: consuming %s again after reconnect", routingKey)
				deliveries = d
			case delivery, ok := <-deliveries:
				if !ok {
					// wait for the reconnect to hand out a new deliveries channel
					deliveries = nil
					continue
				}
				select {
				case out <- delivery:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (c *amqpClient) removeListener(states chan connectionState) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	for i, listener := range c.listeners {
		if listener == states {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

func (c *amqpClient) consume(exchange string, routingKey string, queueName string, opts ListenOptions) (<-chan amqp.Delivery, error) {
	c.mu.RLock()
	ch := c.consumeChannel
	c.mu.RUnlock()

	err := ch.ExchangeDeclare(exchange, exchangeKindTopic, opts.Durable, opts.AutoDelete, false, opts.Wait, nil)
	if err != nil {
		return nil, err
	}

	queue, err := ch.QueueDeclare(
		queueName,
		opts.Durable,
		opts.AutoDelete,
		opts.Exclusive,
		opts.Wait,
		// bounds redeliveries of messages a consumer keeps rejecting
		amqp.Table{"delivery-limit": 10},
	)
	if err != nil {
		return nil, err
	}

	if err := ch.QueueBind(queue.Name, routingKey, exchange, opts.Wait, nil); err != nil {
		return nil, err
	}

	return ch.Consume(queue.Name, "", opts.AutoAck, opts.Exclusive, false, opts.Wait, nil)
}

func (c *amqpClient) PublishWithContext(ctx context.Context, exchange string, key string, mandatory bool, immediate bool, msg amqp.Publishing) error {
	if c.reconnecting.Load() {
		err := backoff.Retry(func() error {
			if c.reconnecting.Load() {
				return ErrReconnecting
			}
			return nil
		}, backoff.WithContext(c.newBackOff(), ctx))
		if err != nil {
			return err
		}
	}

	c.mu.RLock()
	ch := c.publishChannel
	c.mu.RUnlock()

	return ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}
