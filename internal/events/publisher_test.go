package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/rideshare-importer/internal/domain"
	"github.com/pkordes/rideshare-importer/internal/events"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

// fakeChannel is a hand-written test double for events.Channel.
type fakeChannel struct {
	declared   []string
	declareErr error
	publishErr error
	published  []published
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, name+"/"+kind)
	if !durable {
		return errors.New("exchange must be durable")
	}
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange, key, msg})
	return nil
}

var _ events.Channel = (*fakeChannel)(nil)

// compile-time check: the real channel satisfies the interface.
var _ events.Channel = (*amqp.Channel)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleEvent(created bool) domain.PostEvent {
	return domain.PostEvent{
		PostID:  uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		Created: created,
		Document: domain.TripDocument{
			ExternalID:   "t1",
			ServiceLabel: "Uber Pool",
			CityName:     "Springfield",
			Title:        "Rode Uber Pool in Springfield",
			OccurredAt:   time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC),
			Polyline:     "ABC",
		},
	}
}

func TestNewPublisher_DeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}

	_, err := events.NewPublisher(ch, "rideshare.events", discardLogger())

	require.NoError(t, err)
	assert.Equal(t, []string{"rideshare.events/topic"}, ch.declared)
}

func TestNewPublisher_DeclareError(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}

	_, err := events.NewPublisher(ch, "rideshare.events", discardLogger())

	assert.ErrorIs(t, err, ch.declareErr)
}

func TestPublisher_PostInserted(t *testing.T) {
	tests := []struct {
		name    string
		created bool
		wantKey string
	}{
		{"new post", true, events.KeyRideImported},
		{"re-import", false, events.KeyRideUpdated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ch := &fakeChannel{}
			pub, err := events.NewPublisher(ch, "rideshare.events", discardLogger())
			require.NoError(t, err)

			require.NoError(t, pub.PostInserted(context.Background(), sampleEvent(tc.created)))

			require.Len(t, ch.published, 1)
			got := ch.published[0]
			assert.Equal(t, "rideshare.events", got.exchange)
			assert.Equal(t, tc.wantKey, got.key)
			assert.Equal(t, "application/json", got.msg.ContentType)
			assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
			assert.Equal(t, "11111111-2222-3333-4444-555555555555", got.msg.MessageId)

			var msg events.RideImported
			require.NoError(t, json.Unmarshal(got.msg.Body, &msg))
			assert.Equal(t, "t1", msg.ExternalID)
			assert.Equal(t, "uber", msg.Provider)
			assert.Equal(t, tc.created, msg.Created)
			assert.Equal(t, "Springfield", msg.City)
			assert.Equal(t, "ABC", msg.Polyline)
			assert.False(t, msg.ImportedAt.IsZero())
		})
	}
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{}
	pub, err := events.NewPublisher(ch, "rideshare.events", discardLogger())
	require.NoError(t, err)
	ch.publishErr = amqp.ErrClosed

	err = pub.PostInserted(context.Background(), sampleEvent(true))

	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestNewRideImported(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("CET", 3600))

	msg := events.NewRideImported(sampleEvent(true), now)

	assert.Equal(t, events.RideImported{
		PostID:       "11111111-2222-3333-4444-555555555555",
		Provider:     "uber",
		ExternalID:   "t1",
		Created:      true,
		ServiceLabel: "Uber Pool",
		City:         "Springfield",
		Title:        "Rode Uber Pool in Springfield",
		OccurredAt:   time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC),
		Polyline:     "ABC",
		ImportedAt:   now.UTC(),
	}, msg)
}
