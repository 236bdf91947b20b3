package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Conn is an open broker connection and the channel publishers write to.
type Conn struct {
	conn    *amqp.Connection
	Channel *amqp.Channel
}

// Dial connects to the broker at url, retrying up to attempts times with
// exponential backoff starting at one second. It gives up early when ctx is
// cancelled.
func Dial(ctx context.Context, url string, attempts int, log *slog.Logger) (*Conn, error) {
	var err error
	backoff := time.Second
	for i := 1; i <= attempts; i++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			ch, chErr := conn.Channel()
			if chErr != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("events.Dial: open channel: %w", chErr)
			}
			log.InfoContext(ctx, "connected to RabbitMQ")
			return &Conn{conn: conn, Channel: ch}, nil
		}

		log.WarnContext(ctx, "RabbitMQ connect attempt failed", "attempt", i, "error", err)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("events.Dial: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("events.Dial: giving up after %d attempts: %w", attempts, err)
}

// Close closes the channel, then the connection.
func (c *Conn) Close() error {
	if err := c.Channel.Close(); err != nil {
		_ = c.conn.Close()
		return fmt.Errorf("events.Conn.Close: channel: %w", err)
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("events.Conn.Close: %w", err)
	}
	return nil
}
