// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/infrastructure/mock"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSweepFixture() (*mock.MockRepository, *mock.MockFetcher, GapSweepService) {
	repo := mock.NewMockRepository()
	fetcher := mock.NewMockFetcher()
	repo.AddTenant(model.TenantCredential{TenantID: "T1", AccessToken: "token-1"})
	repo.AddTenant(model.TenantCredential{TenantID: "T2"})
	repo.AddMapping(model.EventTypeMapping{ExternalEventTypeRef: testEventTypeRef, TenantID: "T1", Active: true})
	repo.AddMapping(model.EventTypeMapping{ExternalEventTypeRef: testEventTypeRef, TenantID: "T2", Active: true})

	svc := NewGapSweepService(
		WithSweepMappingReader(repo),
		WithSweepCredentialReader(repo),
		WithSweepFetcher(fetcher),
		WithSweepReconciler(newTestReconciler(repo)),
		WithSweepProjectReader(repo),
		WithSweepClock(func() time.Time { return testNow }),
	)
	return repo, fetcher, svc
}

func TestGapSweepService_BackfillsMissedEvents(t *testing.T) {
	repo, fetcher, svc := newSweepFixture()

	inWindow := canonical(model.EventStatusActive)
	fetcher.AddEvent(inWindow)

	past := testNow.Add(-72 * time.Hour)
	fetcher.AddEvent(&model.CanonicalEvent{
		URI: "https://api.calendly.com/scheduled_events/OLD", EventTypeRef: testEventTypeRef,
		StartTime: &past, Status: model.EventStatusActive,
	})

	summary, err := svc.HandleSweep(context.Background(), &model.SweepRequest{
		Reason:       constants.SweepReasonWebhook,
		EventTypeRef: testEventTypeRef,
		RequestedAt:  testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Tenants)
	assert.Equal(t, 1, summary.Events, "only T1 has a token and only one event is in window")
	assert.Equal(t, 1, summary.Outcomes[string(model.OutcomeCreated)])

	events := repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, constants.SourceSweep, events[0].Source)
	assert.Equal(t, model.EventStatusActive, events[0].Status)
	assert.Equal(t, "Maintainer sync", events[0].DisplayName)
}

func TestGapSweepService_RespectsTerminalStatus(t *testing.T) {
	repo, fetcher, svc := newSweepFixture()
	repo.SeedEvent(&model.PersistedEvent{
		UID: "uid-1", TenantID: "T1", ExternalEventRef: testEventRef,
		Status: model.EventStatusCanceled, CreatedAt: testNow,
	})
	fetcher.AddEvent(canonical(model.EventStatusActive))

	summary, err := svc.HandleSweep(context.Background(), &model.SweepRequest{
		Reason: constants.SweepReasonManual, EventTypeRef: testEventTypeRef,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Outcomes[string(model.OutcomeSkipped)])
	assert.Equal(t, model.EventStatusCanceled, repo.Events()[0].Status)
}

func TestGapSweepService_Failures(t *testing.T) {
	_, fetcher, svc := newSweepFixture()
	fetcher.SetTokenError("token-1", errs.NewServiceUnavailable("rate limited"))

	summary, err := svc.HandleSweep(context.Background(), &model.SweepRequest{
		Reason: constants.SweepReasonWebhook, EventTypeRef: testEventTypeRef,
	})
	var unavailable errs.ServiceUnavailable
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, 1, summary.Failures)
}

func TestGapSweepService_InvalidRequest(t *testing.T) {
	_, _, svc := newSweepFixture()

	_, err := svc.HandleSweep(context.Background(), &model.SweepRequest{Reason: constants.SweepReasonWebhook})
	var validation errs.Validation
	assert.True(t, errors.As(err, &validation))
}

func TestGapSweepService_NoMapping(t *testing.T) {
	_, fetcher, svc := newSweepFixture()

	summary, err := svc.HandleSweep(context.Background(), &model.SweepRequest{
		Reason: constants.SweepReasonNoMapping, EventTypeRef: "https://api.calendly.com/event_types/NONE",
	})
	require.NoError(t, err)
	assert.Zero(t, summary.Tenants)
	assert.Empty(t, fetcher.Calls())
}
