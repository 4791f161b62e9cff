// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
)

// resolveDisplayName picks the mapping's display name, then the canonical
// event name, then the tenant's project name. Lookup failures yield "".
func resolveDisplayName(ctx context.Context, projects port.ProjectReader, mapping model.EventTypeMapping, canonical *model.CanonicalEvent) string {
	if mapping.DisplayName != "" {
		return mapping.DisplayName
	}
	if canonical != nil && canonical.Name != "" {
		return canonical.Name
	}
	if projects == nil {
		return ""
	}
	name, err := projects.ProjectName(ctx, mapping.TenantID)
	if err != nil {
		slog.DebugContext(ctx, "project name lookup failed", "tenant_id", mapping.TenantID, "error", err)
		return ""
	}
	return name
}
