// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Upstream fetch retry configuration
const (
	FetchMaxAttempts    = 3
	FetchRetryBaseDelay = 250  // milliseconds
	FetchRetryMaxDelay  = 2000 // milliseconds
)

// Reconcile retry bound for conflicting concurrent writers
const (
	ReconcileMaxAttempts = 3
)

// Webhook signature header and its fields
const (
	WebhookSignatureHeader   = "Scheduling-Webhook-Signature"
	SignatureTimestampField  = "t"
	SignatureV1Field         = "v1"
	SignatureFieldSeparator  = ","
	SignatureKeyValSeparator = "="
)

// Gap sweep defaults
const (
	SweepDefaultWindowHours     = 24
	SweepLookaheadHours         = 24 * 60
	SweepDefaultCooldownSeconds = 60
	SweepTriggerTimeoutSeconds  = 10
	ReconcileFanOutLimit        = 4
)

// Gap sweep reasons
const (
	SweepReasonWebhook        = "webhook"
	SweepReasonPartialFailure = "partial_failure"
	SweepReasonNoMapping      = "no_mapping"
	SweepReasonSourceNotFound = "source_not_found"
	SweepReasonFetchFailed    = "fetch_failed"
	SweepReasonManual         = "manual"
)
