// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package redis provides the sweep cooldown backed by Redis, with an
// in-process fallback when no Redis is configured.
package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = constants.ServiceName + ":sweep-cooldown:"

// Cooldown claims sweep slots with SET NX EX so all replicas share one window
type Cooldown struct {
	rdb *goredis.Client
}

// Acquire returns true when the key was free and is now held for ttl
func (c *Cooldown) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		slog.WarnContext(ctx, "redis cooldown acquire failed", "error", err, "key", key)
		return false, errors.NewServiceUnavailable("redis cooldown unavailable", err)
	}
	return ok, nil
}

// IsReady pings Redis
func (c *Cooldown) IsReady(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.NewServiceUnavailable("redis is not ready", err)
	}
	return nil
}

// Close closes the client
func (c *Cooldown) Close() error {
	return c.rdb.Close()
}

// NewCooldown connects to the Redis instance at url (redis://...)
func NewCooldown(ctx context.Context, url string) (*Cooldown, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, errors.NewConfiguration("invalid REDIS_URL", err)
	}
	c := &Cooldown{rdb: goredis.NewClient(opt)}
	if err := c.IsReady(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, err
	}
	slog.InfoContext(ctx, "redis cooldown connected", "addr", opt.Addr)
	return c, nil
}

var _ port.SweepCooldown = (*Cooldown)(nil)
