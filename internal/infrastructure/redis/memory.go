// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package redis

import (
	"context"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
)

// MemoryCooldown is a per-process cooldown used when Redis is not configured
type MemoryCooldown struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// Acquire claims key for ttl unless a previous claim is still live
func (m *MemoryCooldown) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if exp, ok := m.until[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.until[key] = now.Add(ttl)

	// prune expired claims
	for k, exp := range m.until {
		if !now.Before(exp) {
			delete(m.until, k)
		}
	}
	return true, nil
}

// NewMemoryCooldown creates an empty in-process cooldown
func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{
		until: make(map[string]time.Time),
		now:   time.Now,
	}
}

var _ port.SweepCooldown = (*MemoryCooldown)(nil)
