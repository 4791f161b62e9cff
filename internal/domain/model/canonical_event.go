// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "time"

// CanonicalEvent is the authoritative event record fetched from the scheduling service
type CanonicalEvent struct {
	URI          string
	EventTypeRef string
	Name         string
	StartTime    *time.Time
	EndTime      *time.Time
	Status       EventStatus
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
}

// ExternalRef returns the event reference used in the idempotency key
func (c *CanonicalEvent) ExternalRef() string {
	return c.URI
}
