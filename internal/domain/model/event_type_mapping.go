// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"crypto/sha256"
	"time"

	"github.com/akamensky/base58"
)

// EventTypeMapping maps an external event type to one subscribing tenant.
// Written by onboarding, read-only here.
type EventTypeMapping struct {
	ExternalEventTypeRef string    `json:"external_event_type_ref"`
	TenantID             string    `json:"tenant_id"`
	DisplayName          string    `json:"display_name"`
	Active               bool      `json:"active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// EventTypeToken returns a KV-safe token for an event type reference
func EventTypeToken(eventTypeRef string) string {
	hash := sha256.Sum256([]byte(eventTypeRef))
	return base58.Encode(hash[:])
}
