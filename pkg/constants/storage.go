// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

const (
	// KVBucketNameScheduledEvents is the name of the KV bucket for persisted scheduled events.
	KVBucketNameScheduledEvents = "scheduling-events"

	// KVBucketNameEventTypeMappings is the name of the KV bucket for event type -> project mappings.
	KVBucketNameEventTypeMappings = "scheduling-event-type-mappings"

	// KVBucketNameCredentials is the name of the KV bucket for per-project scheduling credentials.
	KVBucketNameCredentials = "scheduling-credentials"

	// KVEventKeyPrefix is the key pattern for persisted events: event.<idempotency-token>
	KVEventKeyPrefix = "event.%s"

	// KVMappingKeyPrefix is the key pattern for mappings: mapping.<event-type-token>.<project>
	KVMappingKeyPrefix = "mapping.%s.%s"

	// KVMappingFilter lists every mapping of one event type
	KVMappingFilter = "mapping.%s.*"

	// KVCredentialKeyPrefix is the key pattern for tenant credentials: credential.<project-token>
	KVCredentialKeyPrefix = "credential.%s"
)

// Postgres constraint names
const (
	// ScheduledEventsUniqueConstraint is the unique index backing the idempotency key
	ScheduledEventsUniqueConstraint = "scheduled_events_project_event_ref_key"
)
