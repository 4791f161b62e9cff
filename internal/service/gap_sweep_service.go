// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
)

// GapSweepService re-reads recent events of one type from the source and
// reconciles each one for every subscribed tenant
type GapSweepService interface {
	HandleSweep(ctx context.Context, req *model.SweepRequest) (*SweepSummary, error)
}

// SweepSummary counts what one sweep did
type SweepSummary struct {
	Tenants  int            `json:"tenants"`
	Events   int            `json:"events"`
	Outcomes map[string]int `json:"outcomes"`
	Failures int            `json:"failures"`
}

type gapSweepServiceOption func(*gapSweepService)

// WithSweepMappingReader sets the mapping reader
func WithSweepMappingReader(mappings port.EventTypeMappingReader) gapSweepServiceOption {
	return func(s *gapSweepService) {
		s.mappings = mappings
	}
}

// WithSweepCredentialReader sets the credential reader
func WithSweepCredentialReader(credentials port.CredentialReader) gapSweepServiceOption {
	return func(s *gapSweepService) {
		s.credentials = credentials
	}
}

// WithSweepFetcher sets the canonical event fetcher
func WithSweepFetcher(fetcher port.CanonicalEventFetcher) gapSweepServiceOption {
	return func(s *gapSweepService) {
		s.fetcher = fetcher
	}
}

// WithSweepReconciler sets the reconciler
func WithSweepReconciler(reconciler EventReconciler) gapSweepServiceOption {
	return func(s *gapSweepService) {
		s.reconciler = reconciler
	}
}

// WithSweepProjectReader sets the project directory used for display names
func WithSweepProjectReader(projects port.ProjectReader) gapSweepServiceOption {
	return func(s *gapSweepService) {
		s.projects = projects
	}
}

// WithSweepClock sets the time source
func WithSweepClock(now func() time.Time) gapSweepServiceOption {
	return func(s *gapSweepService) {
		s.now = now
	}
}

type gapSweepService struct {
	mappings    port.EventTypeMappingReader
	credentials port.CredentialReader
	fetcher     port.CanonicalEventFetcher
	reconciler  EventReconciler
	projects    port.ProjectReader
	now         func() time.Time
}

// NewGapSweepService creates the sweep consumer service using the option pattern
func NewGapSweepService(opts ...gapSweepServiceOption) GapSweepService {
	s := &gapSweepService{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleSweep lists one page of events per tenant for the window ending now
// (plus the booking lookahead) and reconciles each without a kind hint
func (s *gapSweepService) HandleSweep(ctx context.Context, req *model.SweepRequest) (*SweepSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	summary := &SweepSummary{Outcomes: make(map[string]int)}

	mappings, err := s.mappings.ListActiveMappings(ctx, req.EventTypeRef)
	if err != nil {
		return nil, err
	}
	if len(mappings) == 0 {
		slog.InfoContext(ctx, "gap sweep: no active mapping", "event_type_ref", req.EventTypeRef)
		return summary, nil
	}

	now := s.now().UTC()
	minStart := now.Add(-req.Window(constants.SweepDefaultWindowHours * time.Hour))
	maxStart := now.Add(constants.SweepLookaheadHours * time.Hour)

	var failures []error
	for _, mapping := range mappings {
		summary.Tenants++

		token, errToken := s.credentials.GetAccessToken(ctx, mapping.TenantID)
		if errToken != nil {
			var notFound errs.NotFound
			if errors.As(errToken, &notFound) {
				slog.WarnContext(ctx, "gap sweep: tenant has no access token", "tenant_id", mapping.TenantID)
				continue
			}
			failures = append(failures, errToken)
			continue
		}

		events, errList := s.fetcher.ListScheduledEvents(ctx, token, req.EventTypeRef, minStart, maxStart)
		if errList != nil {
			slog.ErrorContext(ctx, "gap sweep: failed to list events",
				"error", errList,
				"tenant_id", mapping.TenantID,
			)
			failures = append(failures, errList)
			continue
		}

		for _, ev := range events {
			summary.Events++
			res, errReconcile := s.reconciler.Reconcile(ctx, ReconcileRequest{
				TenantID:    mapping.TenantID,
				DisplayName: resolveDisplayName(ctx, s.projects, mapping, ev),
				Canonical:   ev,
				Source:      constants.SourceSweep,
				ReceivedAt:  now,
			})
			if errReconcile != nil {
				failures = append(failures, errReconcile)
				continue
			}
			summary.Outcomes[string(res.Outcome)]++
		}
	}

	summary.Failures = len(failures)
	slog.InfoContext(ctx, "gap sweep completed",
		"reason", req.Reason,
		"event_type_ref", req.EventTypeRef,
		"tenants", summary.Tenants,
		"events", summary.Events,
		"failures", summary.Failures,
	)

	if len(failures) > 0 {
		return summary, errs.NewServiceUnavailable(fmt.Sprintf("gap sweep finished with %d failures", len(failures)), failures...)
	}
	return summary, nil
}
