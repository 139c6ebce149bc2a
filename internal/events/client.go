package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"example.com/budget-tracker/internal/budget"
)

const (
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

var errNotConnected = errors.New("amqp client not connected")

// HandlerFunc processes one consumed event. A returned error requeues it.
type HandlerFunc func(ctx context.Context, event Event) error

// Client publishes budget events to a fanout exchange and consumes them
// through an exclusive per-instance queue, so every instance sees every event.
type Client struct {
	url      string
	exchange string
	origin   string
	logger   *slog.Logger

	mu      sync.RWMutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   string
}

func NewClient(url, exchange string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := &Client{
		url:      url,
		exchange: exchange,
		origin:   uuid.NewString(),
		logger:   logger,
	}

	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	queue, err := setup(channel, c.exchange)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	oldConn, oldChannel := c.conn, c.channel
	c.conn, c.channel, c.queue = conn, channel, queue
	c.mu.Unlock()

	if oldChannel != nil {
		oldChannel.Close()
	}
	if oldConn != nil {
		oldConn.Close()
	}
	return nil
}

func setup(channel *amqp091.Channel, exchange string) (string, error) {
	err := channel.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return "", fmt.Errorf("declare exchange: %w", err)
	}

	queue, err := channel.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return "", fmt.Errorf("declare queue: %w", err)
	}

	if err := channel.QueueBind(queue.Name, "", exchange, false, nil); err != nil {
		return "", fmt.Errorf("bind queue: %w", err)
	}

	return queue.Name, nil
}

// Origin identifies this instance on the exchange.
func (c *Client) Origin() string {
	return c.origin
}

// Publish sends event to every instance.
func (c *Client) Publish(ctx context.Context, event Event) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	c.mu.RLock()
	channel := c.channel
	c.mu.RUnlock()
	if channel == nil {
		return errNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		c.exchange, // exchange
		"",         // routing key, ignored by fanout
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Type:        event.Type,
			Timestamp:   event.Timestamp,
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	c.logger.DebugContext(ctx, "budget event published",
		slog.String("type", event.Type),
		slog.String("user_id", event.UserID.String()),
	)
	return nil
}

// Notify publishes inv as a budget_invalidated event.
func (c *Client) Notify(ctx context.Context, inv budget.Invalidation) error {
	return c.Publish(ctx, NewInvalidatedEvent(c.origin, inv))
}

// Consume delivers events to handler until ctx is done or the channel
// closes. Events this client published are acknowledged and skipped.
func (c *Client) Consume(ctx context.Context, handler HandlerFunc) error {
	c.mu.RLock()
	channel, queue := c.channel, c.queue
	c.mu.RUnlock()
	if channel == nil {
		return errNotConnected
	}

	msgs, err := channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "consuming budget events", slog.String("exchange", c.exchange))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("event channel closed")
			}
			c.dispatch(ctx, delivery, handler)
		}
	}
}

// Run keeps the consumer alive, reconnecting with exponential backoff until
// ctx is cancelled.
func (c *Client) Run(ctx context.Context, handler HandlerFunc) {
	attempt := 0
	for {
		err := c.Consume(ctx, handler)
		if ctx.Err() != nil {
			return
		}

		wait := exponentialBackoff(attempt)
		c.logger.Warn("budget event consumer stopped, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("backoff", wait),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := c.connect(); err != nil {
			attempt++
			c.logger.Error("reconnect to AMQP failed", slog.String("error", err.Error()))
			continue
		}
		attempt = 0
	}
}

func (c *Client) dispatch(ctx context.Context, delivery amqp091.Delivery, handler HandlerFunc) {
	event, err := EventFromJSON(delivery.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "malformed budget event", slog.String("error", err.Error()))
		_ = delivery.Nack(false, false)
		return
	}

	if event.Origin == c.origin {
		_ = delivery.Ack(false)
		return
	}

	if err := handler(ctx, event); err != nil {
		c.logger.ErrorContext(ctx, "budget event handling failed",
			slog.String("type", event.Type),
			slog.String("error", err.Error()),
		)
		_ = delivery.Nack(false, true)
		return
	}

	_ = delivery.Ack(false)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	return time.Second << attempt
}
