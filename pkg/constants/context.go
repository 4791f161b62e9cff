// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package constants defines shared context key types used throughout the scheduling webhook service.
package constants

// ContextKey is the unified type for all context keys to prevent type mismatches
type ContextKey string

// Context keys for various middleware and service contexts
const (
	// PrincipalContextID is the context key for the authenticated admin principal
	PrincipalContextID ContextKey = "principal"

	// RequestIDContextKey is the context key for request ID
	RequestIDContextKey ContextKey = "request-id"

	// WebhookBodyContextKey is the context key for the raw, unparsed webhook body
	WebhookBodyContextKey ContextKey = "scheduling-webhook-body"

	// WebhookReceivedAtContextKey is the context key for the time the webhook was received
	WebhookReceivedAtContextKey ContextKey = "scheduling-webhook-received-at"
)
