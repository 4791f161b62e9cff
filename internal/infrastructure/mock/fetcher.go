// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
)

// MockFetcher serves canonical events from memory and records every call
type MockFetcher struct {
	mu          sync.Mutex
	events      map[string]*model.CanonicalEvent
	errors      map[string]error
	tokenErrors map[string]error
	calls       []FetchCall
}

// FetchCall is one recorded GetScheduledEvent call
type FetchCall struct {
	EventRef    string
	AccessToken string
}

// NewMockFetcher creates an empty fetcher
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		events:      make(map[string]*model.CanonicalEvent),
		errors:      make(map[string]error),
		tokenErrors: make(map[string]error),
	}
}

// AddEvent registers a canonical event under its URI
func (f *MockFetcher) AddEvent(ev *model.CanonicalEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[ev.URI] = ev
}

// SetError makes fetches of eventRef fail with err
func (f *MockFetcher) SetError(eventRef string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[eventRef] = err
}

// SetTokenError makes every call made with token fail with err
func (f *MockFetcher) SetTokenError(token string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenErrors[token] = err
}

// Calls returns the recorded fetches
func (f *MockFetcher) Calls() []FetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FetchCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// GetScheduledEvent returns the registered event or NotFound
func (f *MockFetcher) GetScheduledEvent(ctx context.Context, eventRef, accessToken string) (*model.CanonicalEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, FetchCall{EventRef: eventRef, AccessToken: accessToken})

	if err, ok := f.tokenErrors[accessToken]; ok {
		return nil, err
	}
	if err, ok := f.errors[eventRef]; ok {
		return nil, err
	}
	ev, ok := f.events[eventRef]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf("scheduled event %s not found", eventRef))
	}
	cp := *ev
	slog.DebugContext(ctx, "mock scheduled event fetched", "event_ref", eventRef)
	return &cp, nil
}

// ListScheduledEvents returns registered events of the type starting inside the window
func (f *MockFetcher) ListScheduledEvents(ctx context.Context, accessToken, eventTypeRef string, minStart, maxStart time.Time) ([]*model.CanonicalEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.tokenErrors[accessToken]; ok {
		return nil, err
	}

	out := make([]*model.CanonicalEvent, 0)
	for _, ev := range f.events {
		if ev.EventTypeRef != eventTypeRef {
			continue
		}
		if ev.StartTime != nil && (ev.StartTime.Before(minStart) || !ev.StartTime.Before(maxStart)) {
			continue
		}
		cp := *ev
		out = append(out, &cp)
	}
	return out, nil
}

var _ port.CanonicalEventFetcher = (*MockFetcher)(nil)
