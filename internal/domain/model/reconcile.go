// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

// ReconcileOutcome is what the reconciler did with one tenant's copy of an event
type ReconcileOutcome string

// Reconcile outcomes
const (
	OutcomeCreated ReconcileOutcome = "created"
	OutcomeUpdated ReconcileOutcome = "updated"
	OutcomeSkipped ReconcileOutcome = "skipped"
)

// Skip reasons
const (
	SkipReasonCanceledTerminal = "canceled_terminal"
	SkipReasonDuplicate        = "duplicate"
)

// ReconcileResult reports a single reconcile
type ReconcileResult struct {
	Outcome ReconcileOutcome `json:"outcome"`
	Reason  string           `json:"reason,omitempty"`
	Event   *PersistedEvent  `json:"event,omitempty"`
}
