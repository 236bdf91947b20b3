// Package events publishes imported rides to a RabbitMQ topic exchange so
// other services can react to them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pkordes/rideshare-importer/internal/domain"
)

// Routing keys used on the exchange.
const (
	KeyRideImported = "ride.imported"
	KeyRideUpdated  = "ride.updated"
)

// Channel is the part of *amqp.Channel the Publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RideImported is the JSON message published for every persisted trip.
type RideImported struct {
	PostID       string    `json:"post_id"`
	Provider     string    `json:"provider"`
	ExternalID   string    `json:"external_id"`
	Created      bool      `json:"created"`
	ServiceLabel string    `json:"service"`
	City         string    `json:"city"`
	Title        string    `json:"title"`
	OccurredAt   time.Time `json:"occurred_at"`
	Polyline     string    `json:"polyline,omitempty"`
	ImportedAt   time.Time `json:"imported_at"`
}

// NewRideImported builds the message for ev.
func NewRideImported(ev domain.PostEvent, now time.Time) RideImported {
	doc := ev.Document
	return RideImported{
		PostID:       ev.PostID.String(),
		Provider:     domain.Provider,
		ExternalID:   doc.ExternalID,
		Created:      ev.Created,
		ServiceLabel: doc.ServiceLabel,
		City:         doc.CityName,
		Title:        doc.Title,
		OccurredAt:   doc.OccurredAt,
		Polyline:     doc.Polyline,
		ImportedAt:   now.UTC(),
	}
}

// Publisher is a post-persist subscriber that publishes a RideImported
// message for each imported trip.
type Publisher struct {
	ch       Channel
	exchange string
	log      *slog.Logger
	now      func() time.Time
}

// NewPublisher declares exchange as a durable topic exchange on ch and returns
// a Publisher writing to it.
func NewPublisher(ch Channel, exchange string, log *slog.Logger) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("events.NewPublisher: declare exchange %q: %w", exchange, err)
	}
	return &Publisher{ch: ch, exchange: exchange, log: log, now: time.Now}, nil
}

// PostInserted publishes ev. New posts go out as ride.imported and
// re-imports as ride.updated.
func (p *Publisher) PostInserted(ctx context.Context, ev domain.PostEvent) error {
	body, err := json.Marshal(NewRideImported(ev, p.now()))
	if err != nil {
		return fmt.Errorf("events.Publisher.PostInserted: marshal: %w", err)
	}

	key := KeyRideUpdated
	if ev.Created {
		key = KeyRideImported
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.PostID.String(),
		Timestamp:    p.now(),
		Body:         body,
	}); err != nil {
		return fmt.Errorf("events.Publisher.PostInserted: publish %s: %w", key, err)
	}

	p.log.DebugContext(ctx, "ride event published",
		"routing_key", key, "post_id", ev.PostID, "external_id", ev.Document.ExternalID)
	return nil
}
