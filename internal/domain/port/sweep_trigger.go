// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"
	"time"
)

// SweepTrigger kicks off a gap reconciliation sweep without waiting for it
type SweepTrigger interface {
	TriggerSweep(reason, eventTypeRef string)
}

// SweepCooldown gates how often a sweep is requested per key
type SweepCooldown interface {
	// Acquire returns true when no sweep for key ran within ttl and claims the slot
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
