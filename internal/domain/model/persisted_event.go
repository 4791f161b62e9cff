// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/akamensky/base58"
)

// PersistedEvent is the tenant-scoped durable record of a scheduled event.
// (TenantID, ExternalEventRef) is unique.
type PersistedEvent struct {
	UID                  string      `json:"uid"`
	TenantID             string      `json:"tenant_id"`
	ExternalEventRef     string      `json:"external_event_ref"`
	ExternalEventTypeRef string      `json:"external_event_type_ref"`
	DisplayName          string      `json:"display_name"`
	ScheduledAt          *time.Time  `json:"scheduled_at,omitempty"`
	Status               EventStatus `json:"status"`
	InviteeName          string      `json:"invitee_name,omitempty"`
	InviteeEmail         string      `json:"invitee_email,omitempty"`
	Source               string      `json:"source"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// BuildIndexKey derives a KV-safe token for the idempotency key
func (e *PersistedEvent) BuildIndexKey() string {
	return EventIndexKey(e.TenantID, e.ExternalEventRef)
}

// EventIndexKey returns the base58 SHA-256 of "tenant|ref"; refs are URIs and
// may hold characters NATS KV keys reject.
func EventIndexKey(tenantID, externalRef string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%s", tenantID, externalRef)))
	return base58.Encode(hash[:])
}
