// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
)

// Config holds the NATS connection settings
type Config struct {
	// URL is the NATS server URL
	URL string

	// CredentialsFile is an optional NATS user credentials file
	CredentialsFile string

	// Timeout bounds connects and KV operations
	Timeout time.Duration

	// MaxReconnect is the reconnect attempt budget
	MaxReconnect int

	// ReconnectWait is the delay between reconnect attempts
	ReconnectWait time.Duration

	// Buckets are the KV buckets bound at startup
	Buckets []string
}

// DefaultBuckets lists every KV bucket the service reads or writes
func DefaultBuckets() []string {
	return []string{
		constants.KVBucketNameScheduledEvents,
		constants.KVBucketNameEventTypeMappings,
		constants.KVBucketNameCredentials,
	}
}
