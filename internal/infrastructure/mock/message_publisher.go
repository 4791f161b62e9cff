// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
)

// PublishedMessage is one recorded publish
type PublishedMessage struct {
	Subject string
	Message any
}

// MockMessagePublisher records published messages
type MockMessagePublisher struct {
	mu       sync.Mutex
	messages []PublishedMessage
	err      error
}

// Ensure MockMessagePublisher implements the MessagePublisher interface
var _ port.MessagePublisher = (*MockMessagePublisher)(nil)

// NewMockMessagePublisher creates a new mock publisher for testing
func NewMockMessagePublisher() *MockMessagePublisher {
	return &MockMessagePublisher{}
}

// Publish records the message (mock implementation - logs only)
func (m *MockMessagePublisher) Publish(ctx context.Context, subject string, message any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, PublishedMessage{Subject: subject, Message: message})
	slog.InfoContext(ctx, "mock message published", "subject", subject)
	return nil
}

// SetError makes Publish fail
func (m *MockMessagePublisher) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Messages returns the recorded messages
func (m *MockMessagePublisher) Messages() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedMessage, len(m.messages))
	copy(out, m.messages)
	return out
}
