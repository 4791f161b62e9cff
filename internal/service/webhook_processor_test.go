// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/infrastructure/mock"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/infrastructure/scheduling"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fallbackSecret = "fallback-secret"
	tenantSecret   = "tenant-one-secret"
)

var inviteeCreatedAt = time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)

type processorFixture struct {
	repo      *mock.MockRepository
	fetcher   *mock.MockFetcher
	sweeps    *mock.MockSweepTrigger
	processor port.WebhookProcessor
}

type fixtureOption func(*processorFixture, *[]webhookProcessorOption)

func withReconcilerWrapper(wrap func(EventReconciler) EventReconciler) fixtureOption {
	return func(f *processorFixture, opts *[]webhookProcessorOption) {
		*opts = append(*opts, WithReconciler(wrap(newTestReconciler(f.repo))))
	}
}

func withFallback(secret string) fixtureOption {
	return func(_ *processorFixture, opts *[]webhookProcessorOption) {
		*opts = append(*opts, WithFallbackSecret(secret))
	}
}

func newProcessorFixture(t *testing.T, fopts ...fixtureOption) *processorFixture {
	t.Helper()

	f := &processorFixture{
		repo:    mock.NewMockRepository(),
		fetcher: mock.NewMockFetcher(),
		sweeps:  mock.NewMockSweepTrigger(),
	}
	f.repo.AddTenant(model.TenantCredential{TenantID: "T1", AccessToken: "token-1", SigningSecret: tenantSecret})
	f.repo.AddTenant(model.TenantCredential{TenantID: "T2", AccessToken: "token-2"})
	f.repo.AddMapping(model.EventTypeMapping{ExternalEventTypeRef: testEventTypeRef, TenantID: "T1", DisplayName: "Office hours", Active: true})

	opts := []webhookProcessorOption{
		WithSignatureVerifier(scheduling.NewSignatureVerifier(0)),
		WithCredentialReader(f.repo),
		WithMappingReader(f.repo),
		WithFetcher(f.fetcher),
		WithReconciler(newTestReconciler(f.repo)),
		WithSweepTrigger(f.sweeps),
		WithProjectReader(f.repo),
	}
	for _, fo := range fopts {
		fo(f, &opts)
	}
	f.processor = NewWebhookProcessor(opts...)
	return f
}

func (f *processorFixture) setCanonical(status model.EventStatus) {
	ev := canonical(status)
	f.fetcher.AddEvent(ev)
}

func webhookBody(t *testing.T, kind, eventRef, eventTypeRef string) []byte {
	t.Helper()
	payload := map[string]any{
		"event":      eventRef,
		"uri":        "https://api.calendly.com/scheduled_events/EV1/invitees/INV1",
		"name":       "Ada Lovelace",
		"email":      "ada@example.com",
		"created_at": inviteeCreatedAt.Format(time.RFC3339),
		"status":     "active",
	}
	if eventTypeRef != "" {
		payload["scheduled_event"] = map[string]any{
			"uri":        eventRef,
			"event_type": eventTypeRef,
			"status":     "active",
		}
	}
	body, err := json.Marshal(map[string]any{
		"event":      kind,
		"created_at": testNow.Format(time.RFC3339),
		"payload":    payload,
	})
	require.NoError(t, err)
	return body
}

func (f *processorFixture) send(t *testing.T, secret string, body []byte) (*model.WebhookResult, error) {
	t.Helper()
	header := scheduling.Sign(secret, testNow, body)
	return f.processor.ProcessWebhook(context.Background(), body, header, testNow)
}

func sweepReasons(calls []mock.SweepCall) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Reason)
	}
	return out
}

func TestWebhookProcessor_LifecycleScenarios(t *testing.T) {
	f := newProcessorFixture(t, withFallback(fallbackSecret))

	// created -> one active row with the invitee's creation time
	f.setCanonical(model.EventStatusActive)
	res, err := f.send(t, tenantSecret, webhookBody(t, model.KindInviteeCreated, testEventRef, testEventTypeRef))
	require.NoError(t, err)
	assert.Equal(t, model.StateAcknowledged, res.State)
	assert.Equal(t, "T1", res.MatchedTenant)
	require.Len(t, res.Tenants, 1)
	assert.Equal(t, model.OutcomeCreated, res.Tenants[0].Outcome)

	events := f.repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "T1", events[0].TenantID)
	assert.Equal(t, model.EventStatusActive, events[0].Status)
	assert.Equal(t, inviteeCreatedAt, events[0].CreatedAt)
	assert.Equal(t, "Office hours", events[0].DisplayName)
	assert.Equal(t, "ada@example.com", events[0].InviteeEmail)

	// canceled redelivery -> same row canceled
	f.setCanonical(model.EventStatusCanceled)
	res, err = f.send(t, fallbackSecret, webhookBody(t, model.KindInviteeCanceled, testEventRef, testEventTypeRef))
	require.NoError(t, err)
	require.Len(t, res.Tenants, 1)
	assert.Equal(t, model.OutcomeUpdated, res.Tenants[0].Outcome)
	events = f.repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventStatusCanceled, events[0].Status)

	// late created delivery with a stale source read -> still canceled
	f.setCanonical(model.EventStatusActive)
	res, err = f.send(t, tenantSecret, webhookBody(t, model.KindInviteeCreated, testEventRef, testEventTypeRef))
	require.NoError(t, err)
	require.Len(t, res.Tenants, 1)
	assert.Equal(t, model.OutcomeSkipped, res.Tenants[0].Outcome)
	assert.Equal(t, model.SkipReasonCanceledTerminal, res.Tenants[0].Reason)
	events = f.repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventStatusCanceled, events[0].Status)

	assert.Equal(t, []string{constants.SweepReasonWebhook, constants.SweepReasonWebhook, constants.SweepReasonWebhook},
		sweepReasons(f.sweeps.Calls()))
}

func TestWebhookProcessor_RejectsBadSignature(t *testing.T) {
	f := newProcessorFixture(t, withFallback(fallbackSecret))
	f.setCanonical(model.EventStatusActive)
	body := webhookBody(t, model.KindInviteeCreated, testEventRef, testEventTypeRef)

	tests := map[string]string{
		"wrong secret":     scheduling.Sign("not-the-secret", testNow, body),
		"missing header":   "",
		"malformed header": "garbage",
		"tampered body":    scheduling.Sign(fallbackSecret, testNow, []byte(`{"event":"invitee.created"}`)),
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			res, err := f.processor.ProcessWebhook(context.Background(), body, header, testNow)
			var unauthorized errs.Unauthorized
			require.True(t, errors.As(err, &unauthorized))
			assert.Equal(t, model.StateRejectedSignature, res.State)
		})
	}

	assert.Empty(t, f.fetcher.Calls(), "no fetch before verification")
	assert.Empty(t, f.sweeps.Calls(), "no side effects for rejected payloads")
	assert.Zero(t, f.repo.EventCount())
}

func TestWebhookProcessor_NoSecretsFailsClosed(t *testing.T) {
	f := newProcessorFixture(t)
	f.repo = mock.NewMockRepository()
	f.processor = NewWebhookProcessor(
		WithSignatureVerifier(scheduling.NewSignatureVerifier(0)),
		WithCredentialReader(f.repo),
		WithMappingReader(f.repo),
		WithFetcher(f.fetcher),
		WithReconciler(newTestReconciler(f.repo)),
		WithSweepTrigger(f.sweeps),
	)

	res, err := f.send(t, "anything", webhookBody(t, model.KindInviteeCreated, testEventRef, testEventTypeRef))
	var configuration errs.Configuration
	require.True(t, errors.As(err, &configuration))
	assert.Equal(t, model.StateInternalError, res.State)
	assert.Empty(t, f.fetcher.Calls())
}

func TestWebhookProcessor_CredentialStoreDown(t *testing.T) {
	f := newProcessorFixture(t, withFallback(fallbackSecret))
	f.repo.SetErrorForOperation("GetSigningSecrets", errs.NewServiceUnavailable("nats down"))

	res, err := f.send(t, fallbackSecret, webhookBody(t, model.KindInviteeCreated, testEventRef, testEventTypeRef))
	var unavailable errs.ServiceUnavailable
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, model.StateInternalError, res.State)
}

func TestWebhookProcessor_BadRequest(t *testing.T) {
	f := newProcessorFixture(t, withFallback(fallbackSecret))

	for name, body := range map[string][]byte{
		"not json":     []byte("not json"),
		"missing kind": []byte(`{"payload":{"event":"https://api.calendly.com/scheduled_events/EV1"}}`),
		"missing ref":  []byte(`{"event":"invitee.created","payload":{}}`),
	} {
		t.Run(name, func(t *testing.T) {
			res, err := f.send(t, fallbackSecret, body)
			var validation errs.Validation
			require.True(t, errors.As(err, &validation))
			assert.Equal(t, model.StateBadRequest, res.State)
		})
	}
	assert.Empty(t, f.sweeps.Calls())
}

func TestWebhookProcessor_NoMapping(t *testing.T) {
	f := newProcessorFixture(t, withFallback(fallbackSecret))
	unmapped := "https://api.calendly.com/event_types/UNMAPPED"

	res, err := f.send(t, fallbackSecret, webhookBody(t, model.KindInviteeCreated, testEventRef, unmapped))
	require.NoError(t, err)
	assert.Equal(t, model.StateNoMapping, res.State)
	assert.Empty(t, f.fetcher.Calls())
	assert.Equal(t, []mock.SweepCall{{Reason: constants.SweepReasonNoMapping, EventTypeRef: unmapped}}, f.sweeps.Calls())
}

func TestWebhookProcessor_FanOut(t *testing.T) {
	f := newProcessorFixture(t, withFallback(fallbackSecret))
	f.repo.AddMapping(model.EventTypeMapping{ExternalEventTypeRef: testEventTypeRef, TenantID: "T2", Active: true})
	f.repo.AddMapping(model.EventTypeMapping{ExternalEventTypeRef: testEventTypeRef, TenantID: "T3", Active: false})
	f.repo.AddProject("T2", "Project Two")
	f.setCanonical(model.EventStatusActive)

	res, err := f.send(t, fallbackSecret, webhookBody(t, model.KindInviteeCreated, testEventRef, testEventTypeRef))
	require.NoError(t, err)
	require.Len(t, res.Tenants, 2)

	events := f.repo.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "T1", events[0].TenantID)
	assert.Equal(t, "T2", events[1].TenantID)
	assert.Equal(t, "Maintainer sync", events[1].DisplayName, "canonical name when the mapping has none")
	assert.Len(t, f.fetcher.Calls(), 1, "fetched once per webhook")
}

func TestWebhookProcessor_Source404(t *testing.T) {
	f := newProcessorFixture(t, withFallback(fallbackSecret))

	res, err := f.send(t, fallbackSecret, webhookBody(t, model.KindInviteeCreated, testEventRef, testEventTypeRef))
	require.NoError(t, err)
	assert.Equal(t, model.StateSource404, res.State)
	assert.Zero(t, f.repo.EventCount())
	assert.Equal(t, []string{constants.SweepReasonSourceNotFound}, sweepReasons(f.sweeps.Calls()))
}

func TestWebhookProcessor_FetchFailed(t *testing.T) {
	f := newProcessorFixture(t, withFallback(fallbackSecret))
	f.fetcher.SetError(testEventRef, errs.NewServiceUnavailable("scheduling API unavailable after retries"))

	res, err := f.send(t, fallbackSecret, webhookBody(t, model.KindInviteeCreated, testEventRef, testEventTypeRef))
	var unavailable errs.ServiceUnavailable
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, model.StateFetchFailed, res.State)
	assert.Zero(t, f.repo.EventCount())
	assert.Equal(t, []string{constants.SweepReasonFetchFailed}, sweepReasons(f.sweeps.Calls()))
}

func TestWebhookProcessor_TokenFallback(t *testing.T) {
	f := newProcessorFixture(t, withFallback(fallbackSecret))
	f.repo.AddMapping(model.EventTypeMapping{ExternalEventTypeRef: testEventTypeRef, TenantID: "T2", Active: true})
	f.fetcher.SetTokenError("token-1", errs.NewUnauthorized("token revoked"))
	f.setCanonical(model.EventStatusActive)

	res, err := f.send(t, fallbackSecret, webhookBody(t, model.KindInviteeCreated, testEventRef, testEventTypeRef))
	require.NoError(t, err)
	assert.Equal(t, model.StateAcknowledged, res.State)

	calls := f.fetcher.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "token-1", calls[0].AccessToken)
	assert.Equal(t, "token-2", calls[1].AccessToken)
	assert.Equal(t, 2, f.repo.EventCount())
}

func TestWebhookProcessor_AllTokensRejected(t *testing.T) {
	f := newProcessorFixture(t, withFallback(fallbackSecret))
	f.fetcher.SetTokenError("token-1", errs.NewUnauthorized("token revoked"))

	res, err := f.send(t, fallbackSecret, webhookBody(t, model.KindInviteeCreated, testEventRef, testEventTypeRef))
	var unauthorized errs.Unauthorized
	require.True(t, errors.As(err, &unauthorized))
	assert.Equal(t, model.StateFetchFailed, res.State)
}

func TestWebhookProcessor_MissingEventType(t *testing.T) {
	t.Run("tenant credential resolves the type from the source", func(t *testing.T) {
		f := newProcessorFixture(t, withFallback(fallbackSecret))
		f.setCanonical(model.EventStatusActive)

		res, err := f.send(t, tenantSecret, webhookBody(t, model.KindInviteeCreated, testEventRef, ""))
		require.NoError(t, err)
		assert.Equal(t, model.StateAcknowledged, res.State)
		assert.Equal(t, testEventTypeRef, res.EventTypeRef)
		require.Len(t, f.fetcher.Calls(), 1)
		assert.Equal(t, "token-1", f.fetcher.Calls()[0].AccessToken)
		assert.Equal(t, 1, f.repo.EventCount())
	})

	t.Run("fallback credential resolves the type with a known tenant token", func(t *testing.T) {
		f := newProcessorFixture(t, withFallback(fallbackSecret))
		f.setCanonical(model.EventStatusActive)

		res, err := f.send(t, fallbackSecret, webhookBody(t, model.KindInviteeCreated, testEventRef, ""))
		require.NoError(t, err)
		assert.Equal(t, model.StateAcknowledged, res.State)
		assert.Equal(t, testEventTypeRef, res.EventTypeRef)
		require.Len(t, f.fetcher.Calls(), 1)
		assert.Equal(t, "token-1", f.fetcher.Calls()[0].AccessToken)

		events := f.repo.Events()
		require.Len(t, events, 1)
		assert.Equal(t, "T1", events[0].TenantID)
	})

	t.Run("fallback credential with no known tenant token", func(t *testing.T) {
		f := &processorFixture{
			repo:    mock.NewMockRepository(),
			fetcher: mock.NewMockFetcher(),
			sweeps:  mock.NewMockSweepTrigger(),
		}
		f.repo.AddTenant(model.TenantCredential{TenantID: "T3", SigningSecret: "tenant-three-secret"})
		f.processor = NewWebhookProcessor(
			WithSignatureVerifier(scheduling.NewSignatureVerifier(0)),
			WithCredentialReader(f.repo),
			WithMappingReader(f.repo),
			WithFetcher(f.fetcher),
			WithReconciler(newTestReconciler(f.repo)),
			WithSweepTrigger(f.sweeps),
			WithFallbackSecret(fallbackSecret),
		)
		f.setCanonical(model.EventStatusActive)

		res, err := f.send(t, fallbackSecret, webhookBody(t, model.KindInviteeCreated, testEventRef, ""))
		require.NoError(t, err)
		assert.Equal(t, model.StateNoMapping, res.State)
		assert.Empty(t, f.fetcher.Calls())
		assert.Equal(t, 0, f.repo.EventCount())
	})
}

func TestWebhookProcessor_EnvelopeStatusWithoutCanonicalStatus(t *testing.T) {
	f := newProcessorFixture(t, withFallback(fallbackSecret))
	f.setCanonical("")

	res, err := f.send(t, fallbackSecret, webhookBody(t, "invitee_no_show.created", testEventRef, testEventTypeRef))
	require.NoError(t, err)
	assert.Equal(t, model.StateAcknowledged, res.State)

	events := f.repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventStatusActive, events[0].Status, "envelope status wins over the kind default")
}

func TestWebhookProcessor_StaleEventTypeHint(t *testing.T) {
	f := newProcessorFixture(t, withFallback(fallbackSecret))
	stale := "https://api.calendly.com/event_types/OLD"
	f.repo.AddMapping(model.EventTypeMapping{ExternalEventTypeRef: stale, TenantID: "T2", Active: true})
	f.setCanonical(model.EventStatusActive)

	res, err := f.send(t, fallbackSecret, webhookBody(t, model.KindInviteeCreated, testEventRef, stale))
	require.NoError(t, err)
	assert.Equal(t, testEventTypeRef, res.EventTypeRef)

	events := f.repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "T1", events[0].TenantID)
}

type failingReconciler struct {
	inner      EventReconciler
	failTenant string
}

func (r *failingReconciler) Reconcile(ctx context.Context, req ReconcileRequest) (*model.ReconcileResult, error) {
	if req.TenantID == r.failTenant {
		return nil, errs.NewServiceUnavailable("store down for tenant")
	}
	return r.inner.Reconcile(ctx, req)
}

func TestWebhookProcessor_IsolatedTenantFailure(t *testing.T) {
	f := newProcessorFixture(t,
		withFallback(fallbackSecret),
		withReconcilerWrapper(func(inner EventReconciler) EventReconciler {
			return &failingReconciler{inner: inner, failTenant: "T2"}
		}),
	)
	f.repo.AddMapping(model.EventTypeMapping{ExternalEventTypeRef: testEventTypeRef, TenantID: "T2", Active: true})
	f.setCanonical(model.EventStatusActive)

	res, err := f.send(t, fallbackSecret, webhookBody(t, model.KindInviteeCreated, testEventRef, testEventTypeRef))
	var unavailable errs.ServiceUnavailable
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, 1, res.Failures)

	events := f.repo.Events()
	require.Len(t, events, 1, "the healthy tenant is still written")
	assert.Equal(t, "T1", events[0].TenantID)
	assert.Equal(t, []string{constants.SweepReasonPartialFailure}, sweepReasons(f.sweeps.Calls()))
}

func TestTokenOrder(t *testing.T) {
	mappings := []model.EventTypeMapping{{TenantID: "A"}, {TenantID: "B"}, {TenantID: "A"}}

	assert.Equal(t, []string{"B", "A"}, tokenOrder(&model.SigningCredential{TenantID: "B"}, mappings))
	assert.Equal(t, []string{"A", "B"}, tokenOrder(&model.SigningCredential{}, mappings))
}
