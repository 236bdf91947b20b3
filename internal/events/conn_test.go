package events_test

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/rideshare-importer/internal/events"
)

// refusedURL returns an AMQP URL on a local port nothing listens on.
func refusedURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return "amqp://guest:guest@" + addr + "/"
}

// attemptLogger counts failed connection attempts in its output.
func attemptLogger() (*slog.Logger, func() int) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	return log, func() int { return strings.Count(buf.String(), "RabbitMQ connect attempt failed") }
}

func TestDial_GivesUpAfterLastAttempt(t *testing.T) {
	log, attempts := attemptLogger()

	start := time.Now()
	conn, err := events.Dial(context.Background(), refusedURL(t), 2, log)

	require.Error(t, err)
	assert.Nil(t, conn)
	assert.Contains(t, err.Error(), "giving up after 2 attempts")
	assert.Equal(t, 2, attempts())
	assert.GreaterOrEqual(t, time.Since(start), time.Second, "one backoff between the two attempts")
}

func TestDial_SingleAttemptDoesNotWait(t *testing.T) {
	log, attempts := attemptLogger()

	start := time.Now()
	_, err := events.Dial(context.Background(), refusedURL(t), 1, log)

	require.Error(t, err)
	assert.Equal(t, 1, attempts())
	assert.Less(t, time.Since(start), time.Second)
}

func TestDial_StopsWaitingWhenContextIsCancelled(t *testing.T) {
	log, attempts := attemptLogger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	conn, err := events.Dial(ctx, refusedURL(t), 5, log)

	assert.Nil(t, conn)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts(), "no retry after cancellation")
	assert.Less(t, time.Since(start), time.Second, "the backoff is not slept through")
}

func TestDial_InvalidURL(t *testing.T) {
	log, _ := attemptLogger()

	_, err := events.Dial(context.Background(), "http://broker.example.com", 1, log)

	assert.Error(t, err)
}
