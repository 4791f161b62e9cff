// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
)

// EventTypeMappingReader resolves an external event type to its subscribing tenants
type EventTypeMappingReader interface {
	// ListActiveMappings returns active mappings only; an empty slice is not an error
	ListActiveMappings(ctx context.Context, eventTypeRef string) ([]model.EventTypeMapping, error)
}
