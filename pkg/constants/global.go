// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package constants defines global constants used throughout the scheduling webhook service.
package constants

// Service constants
const (
	// ServiceName is the name of this service
	ServiceName = "scheduling-webhook"
)

// HTTP header constants
const (
	// RequestIDHeader is the HTTP header name for request ID
	RequestIDHeader = "X-Request-Id"
)

// HTTP routes
const (
	WebhookPath     = "/webhooks/scheduling"
	AdminSweepPath  = "/admin/sweep"
	LivezPath       = "/livez"
	ReadyzPath      = "/readyz"
	MetricsPath     = "/metrics"
	MaxWebhookBytes = 1 << 20
)

// Environment variables
const (
	// EnvNATSURL is the environment variable for NATS server URL
	EnvNATSURL = "NATS_URL"
	// EnvNATSCredentials is the environment variable for NATS credentials
	EnvNATSCredentials = "NATS_CREDENTIALS"
	// EnvWebhookSecret is the process-wide fallback webhook signing secret
	EnvWebhookSecret = "SCHEDULING_WEBHOOK_SECRET"
)
