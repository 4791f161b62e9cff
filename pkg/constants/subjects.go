// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// NATS subject constants for message publishing
const (
	// GapSweepSubject carries gap reconciliation requests to the sweep consumer
	GapSweepSubject = "lfx.scheduling-webhook.gap_sweep"

	// GapSweepQueue is the NATS queue group for load-balanced sweep processing
	GapSweepQueue = "lfx-v2-scheduling-webhook-api"
)

// NATS request/reply subjects served by other LFX services
const (
	// ProjectGetNameSubject returns a project's display name for its UID
	ProjectGetNameSubject = "lfx.projects-api.get_name"
)
