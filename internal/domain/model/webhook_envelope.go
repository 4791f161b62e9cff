// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package model defines the domain models and entities for the scheduling webhook service.
package model

import (
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
)

// WebhookEnvelope represents a parsed webhook notification from the scheduling service.
// Only the fields the pipeline depends on are modeled; unknown fields are ignored.
type WebhookEnvelope struct {
	Kind      string         `json:"event"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	Payload   WebhookPayload `json:"payload"`

	// ReceivedAt is stamped by the gateway, never decoded from the body
	ReceivedAt time.Time `json:"-"`
}

// WebhookPayload carries the invitee and a reference to the scheduled event
type WebhookPayload struct {
	EventURI       string              `json:"event"`
	URI            string              `json:"uri"`
	Name           string              `json:"name"`
	Email          string              `json:"email"`
	CreatedAt      *time.Time          `json:"created_at,omitempty"`
	Status         string              `json:"status"`
	ScheduledEvent *ScheduledEventHint `json:"scheduled_event,omitempty"`
}

// ScheduledEventHint is the possibly stale copy of the event embedded in some payloads
type ScheduledEventHint struct {
	URI       string     `json:"uri"`
	EventType string     `json:"event_type"`
	StartTime *time.Time `json:"start_time,omitempty"`
	Status    string     `json:"status"`
}

// Invitee is the person whose booking triggered the notification
type Invitee struct {
	URI       string
	Name      string
	Email     string
	CreatedAt *time.Time
}

// Validate checks the envelope carries what the pipeline needs
func (e *WebhookEnvelope) Validate() error {
	if e.Kind == "" {
		return errors.NewValidation("webhook event kind is required")
	}
	if e.EventRef() == "" {
		return errors.NewValidation("webhook payload does not reference a scheduled event")
	}
	return nil
}

// EventRef returns the scheduled event reference URI
func (e *WebhookEnvelope) EventRef() string {
	if e.Payload.EventURI != "" {
		return e.Payload.EventURI
	}
	if e.Payload.ScheduledEvent != nil {
		return e.Payload.ScheduledEvent.URI
	}
	return ""
}

// EventTypeHint returns the event type reference carried by the envelope, if any
func (e *WebhookEnvelope) EventTypeHint() string {
	if e.Payload.ScheduledEvent == nil {
		return ""
	}
	return e.Payload.ScheduledEvent.EventType
}

// StatusHint returns the envelope's view of the event status, if any
func (e *WebhookEnvelope) StatusHint() string {
	if e.Payload.ScheduledEvent == nil {
		return ""
	}
	return e.Payload.ScheduledEvent.Status
}

// Invitee extracts the invitee reference
func (e *WebhookEnvelope) Invitee() Invitee {
	return Invitee{
		URI:       e.Payload.URI,
		Name:      e.Payload.Name,
		Email:     e.Payload.Email,
		CreatedAt: e.Payload.CreatedAt,
	}
}
