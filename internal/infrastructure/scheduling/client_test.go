// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package scheduling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
)

const eventBody = `{
  "resource": {
    "uri": "https://api.scheduling.example/scheduled_events/EV-1",
    "name": "Discovery call",
    "status": "active",
    "start_time": "2025-03-04T15:00:00.000000Z",
    "end_time": "2025-03-04T15:30:00.000000Z",
    "event_type": "https://api.scheduling.example/event_types/ET-1",
    "created_at": "2025-03-01T09:59:58.000000Z",
    "updated_at": "2025-03-01T09:59:58.000000Z",
    "location": {"type": "zoom"}
  }
}`

func newTestClient(t *testing.T, baseURL string, retryDelay time.Duration) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:     baseURL,
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  retryDelay,
		MaxDelay:    time.Second,
		PageSize:    50,
	})
	require.NoError(t, err)
	require.NotNil(t, client)
	return client
}

func TestClient_GetScheduledEvent_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/scheduled_events/EV-1", r.URL.Path)
		assert.Equal(t, "Bearer tenant-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(eventBody))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Millisecond)

	// The payload host is ignored; only the UUID is used.
	event, err := client.GetScheduledEvent(context.Background(),
		"https://attacker.example/scheduled_events/EV-1", "tenant-token")
	require.NoError(t, err)

	assert.Equal(t, "https://api.scheduling.example/scheduled_events/EV-1", event.URI)
	assert.Equal(t, "https://api.scheduling.example/event_types/ET-1", event.EventTypeRef)
	assert.Equal(t, model.EventStatusActive, event.Status)
	require.NotNil(t, event.StartTime)
	assert.Equal(t, time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC), event.StartTime.UTC())
}

func TestClient_GetScheduledEvent_NotFoundIsTerminal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"title":"Resource Not Found","message":"The server could not find the requested resource."}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Millisecond)

	_, err := client.GetScheduledEvent(context.Background(), "https://api.scheduling.example/scheduled_events/EV-404", "tok")
	var notFound errors.NotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int32(1), calls.Load(), "404 is never retried")
}

func TestClient_GetScheduledEvent_ClientErrorsAreTerminal(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected any
	}{
		{"unauthorized", http.StatusUnauthorized, &errors.Unauthorized{}},
		{"forbidden", http.StatusForbidden, &errors.Unauthorized{}},
		{"bad request", http.StatusBadRequest, &errors.Validation{}},
		{"gone", http.StatusGone, &errors.Validation{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, time.Millisecond)

			_, err := client.GetScheduledEvent(context.Background(), "EV-1", "tok")
			require.Error(t, err)
			assert.ErrorAs(t, err, tt.expected)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestClient_GetScheduledEvent_BackoffBound(t *testing.T) {
	var (
		mu    sync.Mutex
		times []time.Time
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 20*time.Millisecond)

	_, err := client.GetScheduledEvent(context.Background(), "EV-1", "tok")
	var unavailable errors.ServiceUnavailable
	require.ErrorAs(t, err, &unavailable, "exhausted 5xx is retry-worthy")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, times, 3, "exactly three attempts")

	first := times[1].Sub(times[0])
	second := times[2].Sub(times[1])
	assert.GreaterOrEqual(t, first, 20*time.Millisecond)
	assert.GreaterOrEqual(t, second, 40*time.Millisecond)
	assert.Greater(t, second, first, "delays strictly increase")
}

func TestClient_GetScheduledEvent_RateLimitedThenSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(eventBody))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Millisecond)

	event, err := client.GetScheduledEvent(context.Background(), "EV-1", "tok")
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusActive, event.Status)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_MissingToken(t *testing.T) {
	client := newTestClient(t, "https://api.scheduling.example", time.Millisecond)

	_, err := client.GetScheduledEvent(context.Background(), "EV-1", "")
	var unauthorized errors.Unauthorized
	assert.ErrorAs(t, err, &unauthorized)
}

func TestClient_ListScheduledEvents(t *testing.T) {
	minStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	maxStart := minStart.Add(24 * time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/scheduled_events", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "https://api.scheduling.example/event_types/ET-1", q.Get("event_type"))
		assert.Equal(t, "2025-03-01T00:00:00Z", q.Get("min_start_time"))
		assert.Equal(t, "2025-03-02T00:00:00Z", q.Get("max_start_time"))
		assert.Equal(t, "50", q.Get("count"))

		_, _ = w.Write([]byte(`{
		  "collection": [
		    {"uri": "https://api.scheduling.example/scheduled_events/EV-1", "status": "active", "event_type": "https://api.scheduling.example/event_types/ET-1"},
		    {"uri": "", "status": "active"},
		    {"uri": "https://api.scheduling.example/scheduled_events/EV-2", "status": "canceled", "event_type": "https://api.scheduling.example/event_types/ET-1"}
		  ],
		  "pagination": {"count": 3, "next_page": "https://api.scheduling.example/scheduled_events?page_token=abc"}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/v2/", time.Millisecond)

	events, err := client.ListScheduledEvents(context.Background(), "tok",
		"https://api.scheduling.example/event_types/ET-1", minStart, maxStart)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventStatusActive, events[0].Status)
	assert.Equal(t, model.EventStatusCanceled, events[1].Status)
}

func TestNewClient_Config(t *testing.T) {
	client, err := NewClient(Config{MockMode: true})
	assert.NoError(t, err)
	assert.Nil(t, client)

	_, err = NewClient(Config{BaseURL: "not a url"})
	var configErr errors.Configuration
	assert.ErrorAs(t, err, &configErr)
}

func TestEventUUID(t *testing.T) {
	tests := []struct {
		ref      string
		expected string
		wantErr  bool
	}{
		{"https://api.scheduling.example/scheduled_events/EV-1", "EV-1", false},
		{"https://api.scheduling.example/scheduled_events/EV-1/", "EV-1", false},
		{"EV-2", "EV-2", false},
		{"", "", true},
		{"https://api.scheduling.example/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := EventUUID(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
