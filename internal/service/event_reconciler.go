// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/metrics"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/redaction"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/utils"
)

// ReconcileRequest is one tenant's copy of a canonical event to merge into storage
type ReconcileRequest struct {
	TenantID    string
	DisplayName string
	Canonical   *model.CanonicalEvent
	// Kind is the webhook kind; empty for sweep-driven reconciles
	Kind string
	// StatusHint is the status the webhook envelope carried, used when the
	// canonical event has none
	StatusHint string
	Invitee    *model.Invitee
	Source     string
	ReceivedAt time.Time
}

// EventReconciler merges canonical events into the event store
type EventReconciler interface {
	Reconcile(ctx context.Context, req ReconcileRequest) (*model.ReconcileResult, error)
}

type eventReconcilerOption func(*eventReconciler)

// WithEventStore sets the event store
func WithEventStore(store port.EventReaderWriter) eventReconcilerOption {
	return func(r *eventReconciler) {
		r.store = store
	}
}

// WithReconcileRetry overrides the conflict retry policy
func WithReconcileRetry(maxAttempts int, baseDelay, maxDelay time.Duration) eventReconcilerOption {
	return func(r *eventReconciler) {
		r.retry = utils.NewRetryConfig(maxAttempts, baseDelay, maxDelay)
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) eventReconcilerOption {
	return func(r *eventReconciler) {
		r.now = now
	}
}

type eventReconciler struct {
	store port.EventReaderWriter
	retry utils.RetryConfig
	now   func() time.Time
}

// NewEventReconciler creates a reconciler using the option pattern
func NewEventReconciler(opts ...eventReconcilerOption) EventReconciler {
	r := &eventReconciler{
		retry: utils.NewRetryConfig(constants.ReconcileMaxAttempts, 10*time.Millisecond, 100*time.Millisecond),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.retry.ShouldRetry = isConflict
	return r
}

// Reconcile looks the event up by (tenant, external ref) and inserts or updates
// it. A canceled row is never moved back to a live status. Conflicts from
// concurrent writers are re-read and re-applied; once attempts run out the
// write is reported as a skipped duplicate.
func (r *eventReconciler) Reconcile(ctx context.Context, req ReconcileRequest) (*model.ReconcileResult, error) {
	if req.TenantID == "" {
		return nil, errs.NewValidation("tenant id is required")
	}
	if req.Canonical == nil || req.Canonical.ExternalRef() == "" {
		return nil, errs.NewValidation("canonical event reference is required")
	}
	if req.Source == "" {
		req.Source = constants.SourceWebhook
	}
	if err := constants.ValidateSource(req.Source); err != nil {
		return nil, err
	}

	target := model.TargetStatus(req.Kind, req.Canonical.Status, req.StatusHint)

	slog.DebugContext(ctx, "executing reconcile use case",
		"tenant_id", req.TenantID,
		"event_ref", req.Canonical.ExternalRef(),
		"kind", req.Kind,
		"target_status", target,
	)

	var result *model.ReconcileResult
	err := utils.RetryWithExponentialBackoff(ctx, r.retry, func() error {
		var errApply error
		result, errApply = r.apply(ctx, req, target)
		return errApply
	})
	if err != nil {
		if isConflict(err) {
			slog.InfoContext(ctx, "concurrent writer won, treating as duplicate",
				"tenant_id", req.TenantID,
				"event_ref", req.Canonical.ExternalRef(),
			)
			result = &model.ReconcileResult{Outcome: model.OutcomeSkipped, Reason: model.SkipReasonDuplicate}
			r.record(result)
			return result, nil
		}
		slog.ErrorContext(ctx, "reconcile failed",
			"error", err,
			"tenant_id", req.TenantID,
			"event_ref", req.Canonical.ExternalRef(),
		)
		return nil, err
	}

	r.record(result)
	return result, nil
}

func (r *eventReconciler) apply(ctx context.Context, req ReconcileRequest, target model.EventStatus) (*model.ReconcileResult, error) {
	ref := req.Canonical.ExternalRef()

	existing, revision, err := r.store.GetEvent(ctx, req.TenantID, ref)
	if err != nil {
		var notFound errs.NotFound
		if !errors.As(err, &notFound) {
			return nil, err
		}
		return r.insert(ctx, req, target)
	}

	if existing.Status.IsTerminal() && target != existing.Status {
		slog.InfoContext(ctx, "event already canceled, skipping write",
			"tenant_id", req.TenantID,
			"event_uid", existing.UID,
			"target_status", target,
		)
		return &model.ReconcileResult{
			Outcome: model.OutcomeSkipped,
			Reason:  model.SkipReasonCanceledTerminal,
			Event:   existing,
		}, nil
	}

	merged := r.merge(existing, req, target)
	updated, newRevision, err := r.store.UpdateEvent(ctx, merged, revision)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "event updated",
		"tenant_id", req.TenantID,
		"event_uid", updated.UID,
		"status", updated.Status,
		"revision", newRevision,
	)
	return &model.ReconcileResult{Outcome: model.OutcomeUpdated, Event: updated}, nil
}

func (r *eventReconciler) insert(ctx context.Context, req ReconcileRequest, target model.EventStatus) (*model.ReconcileResult, error) {
	now := r.now().UTC()

	ev := &model.PersistedEvent{
		UID:                  uuid.New().String(),
		TenantID:             req.TenantID,
		ExternalEventRef:     req.Canonical.ExternalRef(),
		ExternalEventTypeRef: req.Canonical.EventTypeRef,
		DisplayName:          displayName(req),
		ScheduledAt:          req.Canonical.StartTime,
		Status:               target,
		Source:               req.Source,
		CreatedAt:            r.createdAt(req, now),
		UpdatedAt:            now,
	}
	if req.Invitee != nil {
		ev.InviteeName = req.Invitee.Name
		ev.InviteeEmail = req.Invitee.Email
	}

	created, revision, err := r.store.CreateEvent(ctx, ev)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "event created",
		"tenant_id", req.TenantID,
		"event_uid", created.UID,
		"status", created.Status,
		"invitee_email", redaction.RedactEmail(created.InviteeEmail),
		"revision", revision,
	)
	return &model.ReconcileResult{Outcome: model.OutcomeCreated, Event: created}, nil
}

// merge applies the new sighting onto a copy of the stored row; fields the
// sighting does not carry keep their stored values
func (r *eventReconciler) merge(existing *model.PersistedEvent, req ReconcileRequest, target model.EventStatus) *model.PersistedEvent {
	merged := *existing
	merged.Status = target
	merged.Source = req.Source
	merged.UpdatedAt = r.now().UTC()

	if req.Canonical.EventTypeRef != "" {
		merged.ExternalEventTypeRef = req.Canonical.EventTypeRef
	}
	if req.Canonical.StartTime != nil {
		merged.ScheduledAt = req.Canonical.StartTime
	}
	if name := displayName(req); name != "" {
		merged.DisplayName = name
	}
	if req.Invitee != nil {
		if req.Invitee.Name != "" {
			merged.InviteeName = req.Invitee.Name
		}
		if req.Invitee.Email != "" {
			merged.InviteeEmail = req.Invitee.Email
		}
	}
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = r.createdAt(req, merged.UpdatedAt)
	}
	return &merged
}

// createdAt prefers the invitee's creation time, then the canonical event's,
// then the receipt time, then now
func (r *eventReconciler) createdAt(req ReconcileRequest, now time.Time) time.Time {
	switch {
	case req.Invitee != nil && req.Invitee.CreatedAt != nil && !req.Invitee.CreatedAt.IsZero():
		return req.Invitee.CreatedAt.UTC()
	case req.Canonical.CreatedAt != nil && !req.Canonical.CreatedAt.IsZero():
		return req.Canonical.CreatedAt.UTC()
	case !req.ReceivedAt.IsZero():
		return req.ReceivedAt.UTC()
	default:
		return now
	}
}

func (r *eventReconciler) record(result *model.ReconcileResult) {
	metrics.ReconcileOutcomes.WithLabelValues(string(result.Outcome), result.Reason).Inc()
}

func displayName(req ReconcileRequest) string {
	if req.DisplayName != "" {
		return req.DisplayName
	}
	return req.Canonical.Name
}

func isConflict(err error) bool {
	var conflict errs.Conflict
	return errors.As(err, &conflict)
}
