package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventPublisher sends a domain event to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// QueuePublisher publishes JSON events to RabbitMQ. Each routing key is a
// durable queue on the default exchange and messages are persistent. The
// connection is dialed lazily and replaced when the broker drops it; no
// lock is held while dialing.
type QueuePublisher struct {
	url  string
	conn atomic.Pointer[amqp.Connection]
	log  *slog.Logger

	// DialTimeout bounds connecting to the broker, handshake included.
	DialTimeout time.Duration
}

const defaultPublishDialTimeout = 2 * time.Second

func NewQueuePublisher(url string, log *slog.Logger) *QueuePublisher {
	if log == nil {
		log = slog.Default()
	}
	return &QueuePublisher{url: url, log: log, DialTimeout: defaultPublishDialTimeout}
}

func (p *QueuePublisher) dial() (*amqp.Connection, error) {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = defaultPublishDialTimeout
	}
	return amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

func (p *QueuePublisher) connection() (*amqp.Connection, error) {
	if c := p.conn.Load(); c != nil && !c.IsClosed() {
		return c, nil
	}
	old := p.conn.Load()
	fresh, err := p.dial()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	if !p.conn.CompareAndSwap(old, fresh) {
		// Another caller reconnected first.
		_ = fresh.Close()
		if c := p.conn.Load(); c != nil {
			return c, nil
		}
	}
	return fresh, nil
}

// Publish marshals payload and sends it with routingKey as the queue name.
func (p *QueuePublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := p.connection()
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		routingKey, // name
		true,       // durable
		false,      // autoDelete
		false,      // exclusive
		false,      // noWait
		nil,        // args
	); err != nil {
		return fmt.Errorf("queue declare %s: %w", routingKey, err)
	}

	if err := ch.PublishWithContext(ctx,
		"",         // default exchange
		routingKey, // routing key = queue name
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// Close closes the current connection, if any.
func (p *QueuePublisher) Close() error {
	if c := p.conn.Swap(nil); c != nil && !c.IsClosed() {
		return c.Close()
	}
	return nil
}

// publishEvent sends an event and only logs a failure; events never fail
// the request that produced them.
func publishEvent(ctx context.Context, events EventPublisher, log *slog.Logger, key string, payload any) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, key, payload); err != nil {
		log.Warn("event publish failed", slog.String("routing_key", key), slog.Any("err", err))
	}
}

func timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }
