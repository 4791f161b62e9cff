// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
)

// EventReader reads persisted events
type EventReader interface {
	// GetEvent looks an event up by its idempotency key and returns its revision.
	// Returns errors.NotFound when absent.
	GetEvent(ctx context.Context, tenantID, externalRef string) (*model.PersistedEvent, uint64, error)
}

// EventWriter writes persisted events
type EventWriter interface {
	// CreateEvent inserts a new event. Returns errors.Conflict when the
	// (tenant, external ref) key already exists.
	CreateEvent(ctx context.Context, event *model.PersistedEvent) (*model.PersistedEvent, uint64, error)

	// UpdateEvent replaces an event if its stored revision still matches.
	// Returns errors.Conflict on a revision mismatch.
	UpdateEvent(ctx context.Context, event *model.PersistedEvent, expectedRevision uint64) (*model.PersistedEvent, uint64, error)
}

// EventReaderWriter is the full event store
type EventReaderWriter interface {
	EventReader
	EventWriter

	// IsReady reports whether the backing store is reachable
	IsReady(ctx context.Context) error
}
