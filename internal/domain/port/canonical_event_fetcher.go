// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
)

// CanonicalEventFetcher reads authoritative events from the scheduling service
type CanonicalEventFetcher interface {
	// GetScheduledEvent fetches one event. Returns errors.NotFound when the
	// source no longer has it and errors.ServiceUnavailable once retries are exhausted.
	GetScheduledEvent(ctx context.Context, eventRef, accessToken string) (*model.CanonicalEvent, error)

	// ListScheduledEvents returns one page of events of a type starting inside [minStart, maxStart)
	ListScheduledEvents(ctx context.Context, accessToken, eventTypeRef string, minStart, maxStart time.Time) ([]*model.CanonicalEvent, error)
}
