// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

// WebhookState is the terminal state a webhook request reached
type WebhookState string

// Webhook states, in pipeline order, then the early exits
const (
	StateReceived       WebhookState = "received"
	StateVerified       WebhookState = "verified"
	StateTypeResolved   WebhookState = "type-resolved"
	StateFetched        WebhookState = "fetched"
	StateReconciled     WebhookState = "reconciled"
	StateSweepTriggered WebhookState = "sweep-triggered"
	StateAcknowledged   WebhookState = "acknowledged"

	StateRejectedSignature WebhookState = "rejected-signature"
	StateBadRequest        WebhookState = "bad-request"
	StateNoMapping         WebhookState = "no-mapping"
	StateSource404         WebhookState = "source-404"
	StateFetchFailed       WebhookState = "fetch-failed"
	StateInternalError     WebhookState = "internal-error"
)

// TenantResult is the per-tenant outcome of the fan-out
type TenantResult struct {
	TenantID string           `json:"tenant_id"`
	Outcome  ReconcileOutcome `json:"outcome,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// WebhookResult summarizes one processed webhook
type WebhookResult struct {
	State         WebhookState   `json:"state"`
	EventRef      string         `json:"event_ref,omitempty"`
	EventTypeRef  string         `json:"event_type_ref,omitempty"`
	MatchedTenant string         `json:"matched_tenant,omitempty"`
	Tenants       []TenantResult `json:"tenants,omitempty"`
	Failures      int            `json:"failures"`
}
