package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrBadPayload marks a message that can never succeed. Such messages are
// rejected without requeue.
var ErrBadPayload = errors.New("bad payload")

// HandlerFunc processes one message body.
type HandlerFunc func(ctx context.Context, body []byte) error

// JSON adapts a typed handler. Bodies that fail to decode are reported as
// ErrBadPayload.
func JSON[T any](fn func(ctx context.Context, msg T) error) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var msg T
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return fn(ctx, msg)
	}
}

// Consumer subscribes to one durable queue per handler and keeps
// reconnecting until its context is cancelled.
type Consumer struct {
	URL      string
	Handlers map[string]HandlerFunc
	Log      *slog.Logger
	Prefetch int
}

// Run blocks until ctx is done. Broker outages are retried with
// exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	if c.Log == nil {
		c.Log = slog.Default()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	for {
		conn, err := amqp.Dial(c.URL)
		if err == nil {
			b.Reset()
			err = c.consume(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := b.NextBackOff()
		c.Log.Warn("consumer disconnected", slog.Any("err", err), slog.Duration("retry_in", wait))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	prefetch := c.Prefetch
	if prefetch <= 0 {
		prefetch = 50
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		c.Log.Warn("set qos failed", slog.Any("err", err))
	}

	var wg sync.WaitGroup
	for name := range c.Handlers {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		c.Log.Info("consuming", slog.String("queue", name))

		wg.Add(1)
		go func(name string, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				c.handle(ctx, name, d.Body, d.Redelivered, d)
			}
		}(name, msgs)
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-ctx.Done():
		_ = ch.Close()
		wg.Wait()
		return ctx.Err()
	case amqpErr := <-closed:
		wg.Wait()
		if amqpErr != nil {
			return amqpErr
		}
		return errors.New("channel closed")
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// handle runs the handler for queue and settles the delivery. Transient
// failures are requeued once; a second failure drops the message.
func (c *Consumer) handle(ctx context.Context, queue string, body []byte, redelivered bool, d acknowledger) {
	h, ok := c.Handlers[queue]
	if !ok {
		_ = d.Nack(false, false)
		return
	}
	err := h(ctx, body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrBadPayload):
		c.Log.Warn("message rejected", slog.String("queue", queue), slog.Any("err", err))
		_ = d.Nack(false, false)
	default:
		c.Log.Error("message failed", slog.String("queue", queue), slog.Bool("redelivered", redelivered), slog.Any("err", err))
		_ = d.Nack(false, !redelivered)
	}
}
