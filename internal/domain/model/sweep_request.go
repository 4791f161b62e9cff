// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
)

// SweepRequest asks the gap sweep consumer to re-scan a recent window for one event type
type SweepRequest struct {
	Reason        string    `json:"reason"`
	EventTypeRef  string    `json:"event_type_ref"`
	RequestedAt   time.Time `json:"requested_at"`
	WindowSeconds int64     `json:"window,omitempty"`
}

// Window returns the scan window, or def when unset
func (r *SweepRequest) Window(def time.Duration) time.Duration {
	if r.WindowSeconds <= 0 {
		return def
	}
	return time.Duration(r.WindowSeconds) * time.Second
}

// Validate checks the request can be acted on
func (r *SweepRequest) Validate() error {
	if r.EventTypeRef == "" {
		return errors.NewValidation("sweep request requires an event type reference")
	}
	if r.Reason == "" {
		return errors.NewValidation("sweep request requires a reason")
	}
	return nil
}
