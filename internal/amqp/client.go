// Package amqp publishes and consumes fintrack events over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"fintrack/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrChannelClosed   = errors.New("message channel closed")
	ErrNotConnected    = errors.New("not connected")
	errUnknownQueueKey = errors.New("unknown routing key")
)

// Config describes the broker topology.
type Config struct {
	URL           string
	Exchange      string
	SyncQueue     string
	ReminderQueue string
}

// Client owns one connection and channel, reconnecting when the broker drops
// them. Publishing trips a circuit breaker after repeated failures.
type Client struct {
	url           string
	exchangeName  string
	queueName     string
	reminderQueue string
	logger        *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	failMu       sync.Mutex
	lastFailure  time.Time
}

// NewClient dials the broker and declares the exchange and queues.
func NewClient(cfg Config, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	c := &Client{
		url:           cfg.URL,
		exchangeName:  cfg.Exchange,
		queueName:     cfg.SyncQueue,
		reminderQueue: cfg.ReminderQueue,
		logger:        logger.WithComponent(log.ComponentAMQP),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := c.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}
	c.conn = conn
	c.channel = channel
	return nil
}

// bindings maps each queue to the routing key it receives.
func (c *Client) bindings() map[string]string {
	b := map[string]string{}
	if c.queueName != "" {
		b[c.queueName] = RoutingProfileSync
	}
	if c.reminderQueue != "" {
		b[c.reminderQueue] = RoutingReminderDue
	}
	return b
}

func (c *Client) setup(ch *amqp091.Channel) error {
	if err := ch.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for queue, key := range c.bindings() {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, key, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}
	return nil
}

// ensureChannel returns an open channel, reconnecting if needed.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	if c.url == "" {
		return nil, ErrNotConnected
	}
	c.closeLocked()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	c.logger.Info("Reconnected to broker", "exchange", c.exchangeName)
	return c.channel, nil
}

// PublishProfileSync announces a saved snapshot.
func (c *Client) PublishProfileSync(ctx context.Context, profile string, version uint64) error {
	body, err := NewProfileSyncMessage(profile, version).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, RoutingProfileSync, body); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "Published profile sync message",
		log.FieldProfile, profile,
		log.FieldVersion, version)
	return nil
}

// PublishReminderDue announces a reminder that reached its date.
func (c *Client) PublishReminderDue(ctx context.Context, msg *ReminderDueMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, RoutingReminderDue, body); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "Published reminder",
		log.FieldProfile, msg.Profile,
		log.FieldRecordID, msg.ExpenseID)
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", routingKey, ErrCircuitOpen)
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.mu.Lock()
			c.closeLocked()
			c.mu.Unlock()
		}
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	c.recordSuccess()
	return nil
}

// ConsumeProfileSync handles profile sync messages until ctx is done,
// reconnecting with exponential backoff when the broker goes away.
func (c *Client) ConsumeProfileSync(ctx context.Context, handler func(context.Context, *ProfileSyncMessage) error) error {
	return c.consumeWithReconnect(ctx, c.queueName, func(ctx context.Context, body []byte) (bool, error) {
		msg, err := ProfileSyncMessageFromJSON(body)
		if err != nil {
			return false, err
		}
		return true, handler(ctx, msg)
	})
}

// ConsumeReminders handles reminder messages until ctx is done.
func (c *Client) ConsumeReminders(ctx context.Context, handler func(context.Context, *ReminderDueMessage) error) error {
	return c.consumeWithReconnect(ctx, c.reminderQueue, func(ctx context.Context, body []byte) (bool, error) {
		msg, err := ReminderDueMessageFromJSON(body)
		if err != nil {
			return false, err
		}
		return true, handler(ctx, msg)
	})
}

// deliveryHandler reports decoded=false for bodies that can never succeed.
type deliveryHandler func(ctx context.Context, body []byte) (decoded bool, err error)

func (c *Client) consumeWithReconnect(ctx context.Context, queue string, handle deliveryHandler) error {
	if queue == "" {
		return fmt.Errorf("consume: %w", errUnknownQueueKey)
	}
	attempt := 0
	for {
		err := c.consume(ctx, queue, handle, func() { attempt = 0 })
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !isConnectionError(err) && !errors.Is(err, ErrChannelClosed) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		c.logger.Warn("Consumer lost connection, retrying",
			log.FieldError, err,
			"queue", queue,
			"backoff", wait.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consume(ctx context.Context, queue string, handle deliveryHandler, connected func()) error {
	ch, err := c.ensureChannel()
	if err != nil {
		return err
	}
	msgs, err := ch.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()
	c.logger.InfoContext(ctx, "Started consuming", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return ErrChannelClosed
			}
			decoded, err := handle(ctx, delivery.Body)
			switch {
			case !decoded:
				c.logger.ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, err, "queue", queue)
				delivery.Nack(false, false)
			case err != nil:
				c.logger.ErrorContext(ctx, "Failed to handle message", log.FieldError, err, "queue", queue)
				delivery.Nack(false, true)
			default:
				delivery.Ack(false)
			}
		}
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.failMu.Lock()
	last := c.lastFailure
	c.failMu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.failMu.Lock()
	c.lastFailure = time.Now()
	c.failMu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

var connectionErrorMarkers = []string{
	"connection refused",
	"connection closed",
	"connection reset",
	"EOF",
	"broken pipe",
	"use of closed network connection",
	"channel/connection is not open",
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, marker := range connectionErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
