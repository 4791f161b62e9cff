// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"sync"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
)

// SweepCall is one recorded trigger
type SweepCall struct {
	Reason       string
	EventTypeRef string
}

// MockSweepTrigger records sweep triggers and signals each one on C
type MockSweepTrigger struct {
	mu    sync.Mutex
	calls []SweepCall
	C     chan SweepCall
}

// NewMockSweepTrigger creates a trigger with a buffered notification channel
func NewMockSweepTrigger() *MockSweepTrigger {
	return &MockSweepTrigger{C: make(chan SweepCall, 64)}
}

// TriggerSweep records the call without blocking
func (m *MockSweepTrigger) TriggerSweep(reason, eventTypeRef string) {
	call := SweepCall{Reason: reason, EventTypeRef: eventTypeRef}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	select {
	case m.C <- call:
	default:
	}
}

// Calls returns the recorded triggers
func (m *MockSweepTrigger) Calls() []SweepCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SweepCall, len(m.calls))
	copy(out, m.calls)
	return out
}

var _ port.SweepTrigger = (*MockSweepTrigger)(nil)
