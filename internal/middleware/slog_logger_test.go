package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/rideshare-importer/internal/middleware"
)

// logRequest sends one request through the logger around h and returns the
// decoded log line.
func logRequest(t *testing.T, h http.HandlerFunc, req *http.Request) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	middleware.NewSlogLogger(logger)(h).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestSlogLogger_RequestFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/rides?page=2", nil)
	req = req.WithContext(context.WithValue(req.Context(), chimiddleware.RequestIDKey, "req-42"))

	entry := logRequest(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}, req)

	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/rides", entry["path"])
	assert.EqualValues(t, http.StatusOK, entry["status"], "an implicit 200 is logged as 200")
	assert.EqualValues(t, 11, entry["bytes"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Contains(t, entry, "duration_ms")
}

func TestSlogLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusRequestEntityTooLarge, "INFO"},
		{http.StatusUnprocessableEntity, "INFO"},
		{http.StatusInternalServerError, "ERROR"},
		{http.StatusBadGateway, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			entry := logRequest(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}, httptest.NewRequest(http.MethodPost, "/import", nil))

			assert.Equal(t, tt.level, entry["level"])
			assert.EqualValues(t, tt.status, entry["status"])
		})
	}
}

// The import page streams progress lines, so the wrapped writer must still flush.
func TestSlogLogger_KeepsFlusher(t *testing.T) {
	var canFlush bool
	logRequest(t, func(w http.ResponseWriter, _ *http.Request) {
		_, canFlush = w.(http.Flusher)
		_, _ = w.Write([]byte("<ol>"))
	}, httptest.NewRequest(http.MethodPost, "/import", nil))

	assert.True(t, canFlush)
}
