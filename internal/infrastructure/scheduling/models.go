// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package scheduling

import (
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
)

// ScheduledEventObject is the scheduling API representation of an event
type ScheduledEventObject struct {
	URI       string     `json:"uri"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	EventType string     `json:"event_type"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ScheduledEventResponse wraps a single event
type ScheduledEventResponse struct {
	Resource ScheduledEventObject `json:"resource"`
}

// ScheduledEventCollection is one page of events
type ScheduledEventCollection struct {
	Collection []ScheduledEventObject `json:"collection"`
	Pagination Pagination             `json:"pagination"`
}

// Pagination describes the list cursor
type Pagination struct {
	Count         int    `json:"count"`
	NextPage      string `json:"next_page,omitempty"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

// ErrorObject is the scheduling API error body
type ErrorObject struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ToCanonical converts the API object into the domain model
func (o *ScheduledEventObject) ToCanonical(fallbackURI string) *model.CanonicalEvent {
	uri := o.URI
	if uri == "" {
		uri = fallbackURI
	}
	return &model.CanonicalEvent{
		URI:          uri,
		EventTypeRef: o.EventType,
		Name:         o.Name,
		StartTime:    o.StartTime,
		EndTime:      o.EndTime,
		Status:       model.ParseEventStatus(o.Status),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}
