// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/metrics"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
)

type gapSweepDispatcherOption func(*GapSweepDispatcher)

// WithSweepPublisher sets the transport for sweep requests
func WithSweepPublisher(publisher port.MessagePublisher) gapSweepDispatcherOption {
	return func(d *GapSweepDispatcher) {
		d.publisher = publisher
	}
}

// WithSweepCooldown gates sweeps per event type; nil disables the gate
func WithSweepCooldown(cooldown port.SweepCooldown, ttl time.Duration) gapSweepDispatcherOption {
	return func(d *GapSweepDispatcher) {
		d.cooldown = cooldown
		d.cooldownTTL = ttl
	}
}

// WithSweepWindow sets the window carried in each request
func WithSweepWindow(window time.Duration) gapSweepDispatcherOption {
	return func(d *GapSweepDispatcher) {
		d.window = window
	}
}

// WithSweepTimeout bounds each background dispatch
func WithSweepTimeout(timeout time.Duration) gapSweepDispatcherOption {
	return func(d *GapSweepDispatcher) {
		d.timeout = timeout
	}
}

// GapSweepDispatcher publishes gap sweep requests in the background. The
// caller never waits and never sees a failure.
type GapSweepDispatcher struct {
	publisher   port.MessagePublisher
	cooldown    port.SweepCooldown
	cooldownTTL time.Duration
	window      time.Duration
	timeout     time.Duration
	now         func() time.Time

	group singleflight.Group
	wg    sync.WaitGroup
}

// NewGapSweepDispatcher creates a dispatcher using the option pattern
func NewGapSweepDispatcher(opts ...gapSweepDispatcherOption) *GapSweepDispatcher {
	d := &GapSweepDispatcher{
		cooldownTTL: constants.SweepDefaultCooldownSeconds * time.Second,
		window:      constants.SweepDefaultWindowHours * time.Hour,
		timeout:     constants.SweepTriggerTimeoutSeconds * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TriggerSweep spawns the dispatch and returns immediately
func (d *GapSweepDispatcher) TriggerSweep(reason, eventTypeRef string) {
	if eventTypeRef == "" {
		slog.Warn("gap sweep skipped, no event type reference", "reason", reason)
		metrics.SweepTriggers.WithLabelValues(reason, "skipped").Inc()
		return
	}
	if d.publisher == nil {
		slog.Warn("gap sweep skipped, no publisher configured", "reason", reason, "event_type_ref", eventTypeRef)
		metrics.SweepTriggers.WithLabelValues(reason, "skipped").Inc()
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		// manual sweeps never collapse into an automatic dispatch that a
		// cooldown may suppress
		if reason == constants.SweepReasonManual {
			if err := d.dispatch(ctx, reason, eventTypeRef); err != nil {
				slog.ErrorContext(ctx, "gap sweep trigger failed",
					"error", err,
					"reason", reason,
					"event_type_ref", eventTypeRef,
				)
			}
			return
		}

		_, err, shared := d.group.Do(eventTypeRef, func() (any, error) {
			return nil, d.dispatch(ctx, reason, eventTypeRef)
		})
		if err != nil {
			slog.ErrorContext(ctx, "gap sweep trigger failed",
				"error", err,
				"reason", reason,
				"event_type_ref", eventTypeRef,
			)
			return
		}
		if shared {
			slog.DebugContext(ctx, "gap sweep trigger collapsed into in-flight dispatch",
				"event_type_ref", eventTypeRef,
			)
		}
	}()
}

func (d *GapSweepDispatcher) dispatch(ctx context.Context, reason, eventTypeRef string) error {
	if d.cooldown != nil && reason != constants.SweepReasonManual {
		acquired, err := d.cooldown.Acquire(ctx, model.EventTypeToken(eventTypeRef), d.cooldownTTL)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "sweep cooldown unavailable, dispatching anyway",
				"error", err,
				"event_type_ref", eventTypeRef,
			)
		case !acquired:
			slog.DebugContext(ctx, "gap sweep suppressed by cooldown",
				"reason", reason,
				"event_type_ref", eventTypeRef,
			)
			metrics.SweepTriggers.WithLabelValues(reason, "cooldown").Inc()
			return nil
		}
	}

	req := model.SweepRequest{
		Reason:        reason,
		EventTypeRef:  eventTypeRef,
		RequestedAt:   d.now().UTC(),
		WindowSeconds: int64(d.window / time.Second),
	}
	if err := d.publisher.Publish(ctx, constants.GapSweepSubject, req); err != nil {
		metrics.SweepTriggers.WithLabelValues(reason, "error").Inc()
		return err
	}

	metrics.SweepTriggers.WithLabelValues(reason, "published").Inc()
	slog.InfoContext(ctx, "gap sweep requested",
		"reason", reason,
		"event_type_ref", eventTypeRef,
	)
	return nil
}

// Wait blocks until every spawned dispatch has finished
func (d *GapSweepDispatcher) Wait() {
	d.wg.Wait()
}

var _ port.SweepTrigger = (*GapSweepDispatcher)(nil)
