// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "strings"

// EventStatus is the lifecycle status of a scheduled event
type EventStatus string

// Event statuses
const (
	EventStatusActive    EventStatus = "active"
	EventStatusCanceled  EventStatus = "canceled"
	EventStatusScheduled EventStatus = "scheduled"
)

// Webhook kinds
const (
	KindInviteeCreated  = "invitee.created"
	KindInviteeCanceled = "invitee.canceled"
)

// IsTerminal reports whether no later sighting may move the event out of this status
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusCanceled
}

// ParseEventStatus normalizes a status string from the source API.
// Unknown and empty values return "".
func ParseEventStatus(raw string) EventStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return EventStatusActive
	case "canceled", "cancelled":
		return EventStatusCanceled
	case "scheduled":
		return EventStatusScheduled
	default:
		return ""
	}
}

// StatusFromKind derives the target status from a webhook kind
func StatusFromKind(kind string) EventStatus {
	switch kind {
	case KindInviteeCanceled:
		return EventStatusCanceled
	case KindInviteeCreated:
		return EventStatusActive
	default:
		return EventStatusScheduled
	}
}

// TargetStatus picks the status to persist: the canonical status when the
// source reported one, then the status the webhook envelope carried, then
// the kind-derived status.
func TargetStatus(kind string, canonical EventStatus, hint string) EventStatus {
	if canonical != "" {
		return canonical
	}
	if fromHint := ParseEventStatus(hint); fromHint != "" {
		return fromHint
	}
	return StatusFromKind(kind)
}
