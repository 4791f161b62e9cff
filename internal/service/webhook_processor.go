// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/log"
)

type webhookProcessorOption func(*webhookProcessor)

// WithSignatureVerifier sets the signature verifier
func WithSignatureVerifier(verifier port.SignatureVerifier) webhookProcessorOption {
	return func(p *webhookProcessor) {
		p.verifier = verifier
	}
}

// WithCredentialReader sets the credential store
func WithCredentialReader(credentials port.CredentialReader) webhookProcessorOption {
	return func(p *webhookProcessor) {
		p.credentials = credentials
	}
}

// WithFallbackSecret sets the process-wide signing secret tried after tenant secrets
func WithFallbackSecret(secret string) webhookProcessorOption {
	return func(p *webhookProcessor) {
		p.fallbackSecret = secret
	}
}

// WithMappingReader sets the event type mapping reader
func WithMappingReader(mappings port.EventTypeMappingReader) webhookProcessorOption {
	return func(p *webhookProcessor) {
		p.mappings = mappings
	}
}

// WithFetcher sets the canonical event fetcher
func WithFetcher(fetcher port.CanonicalEventFetcher) webhookProcessorOption {
	return func(p *webhookProcessor) {
		p.fetcher = fetcher
	}
}

// WithReconciler sets the event reconciler
func WithReconciler(reconciler EventReconciler) webhookProcessorOption {
	return func(p *webhookProcessor) {
		p.reconciler = reconciler
	}
}

// WithSweepTrigger sets the gap sweep trigger
func WithSweepTrigger(trigger port.SweepTrigger) webhookProcessorOption {
	return func(p *webhookProcessor) {
		p.sweeps = trigger
	}
}

// WithProjectReader sets the project directory used for display names
func WithProjectReader(projects port.ProjectReader) webhookProcessorOption {
	return func(p *webhookProcessor) {
		p.projects = projects
	}
}

// WithFanOutLimit bounds concurrent per-tenant reconciles
func WithFanOutLimit(limit int) webhookProcessorOption {
	return func(p *webhookProcessor) {
		p.fanOutLimit = limit
	}
}

type webhookProcessor struct {
	verifier       port.SignatureVerifier
	credentials    port.CredentialReader
	fallbackSecret string
	mappings       port.EventTypeMappingReader
	fetcher        port.CanonicalEventFetcher
	reconciler     EventReconciler
	sweeps         port.SweepTrigger
	projects       port.ProjectReader
	fanOutLimit    int
}

// NewWebhookProcessor creates the webhook pipeline using the option pattern
func NewWebhookProcessor(opts ...webhookProcessorOption) port.WebhookProcessor {
	p := &webhookProcessor{
		fanOutLimit: constants.ReconcileFanOutLimit,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessWebhook authenticates the raw body, resolves subscribing tenants,
// fetches the canonical event once and reconciles it for every tenant.
// The returned error, when set, decides the response status; the result is
// always populated with the state reached.
func (p *webhookProcessor) ProcessWebhook(ctx context.Context, rawBody []byte, signatureHeader string, receivedAt time.Time) (*model.WebhookResult, error) {
	result := &model.WebhookResult{State: model.StateReceived}

	credential, knownTenants, err := p.verify(ctx, rawBody, signatureHeader)
	if err != nil {
		var unauthorized errs.Unauthorized
		if errors.As(err, &unauthorized) {
			result.State = model.StateRejectedSignature
		} else {
			result.State = model.StateInternalError
		}
		return result, err
	}
	result.State = model.StateVerified
	result.MatchedTenant = credential.TenantID
	ctx = log.AppendCtx(ctx, slog.String("matched_tenant", credential.TenantID))

	var envelope model.WebhookEnvelope
	if errUnmarshal := json.Unmarshal(rawBody, &envelope); errUnmarshal != nil {
		result.State = model.StateBadRequest
		return result, errs.NewValidation("webhook body is not valid JSON", errUnmarshal)
	}
	if errValidate := envelope.Validate(); errValidate != nil {
		result.State = model.StateBadRequest
		return result, errValidate
	}
	envelope.ReceivedAt = receivedAt
	result.EventRef = envelope.EventRef()
	ctx = log.AppendCtx(ctx, slog.String("event_ref", result.EventRef))
	ctx = log.AppendCtx(ctx, slog.String("kind", envelope.Kind))

	slog.InfoContext(ctx, "webhook verified",
		"fallback_secret", credential.IsFallback(),
		"received_at", log.LogOptionalTime(&receivedAt),
	)

	return p.process(ctx, result, credential, knownTenants, &envelope)
}

// verify returns the matched credential and the tenants the credential store knows
func (p *webhookProcessor) verify(ctx context.Context, rawBody []byte, signatureHeader string) (*model.SigningCredential, []string, error) {
	secrets := model.SigningSecrets{Fallback: p.fallbackSecret}
	if p.credentials != nil {
		tenantSecrets, err := p.credentials.GetSigningSecrets(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to load signing secrets", "error", err)
			return nil, nil, errs.NewServiceUnavailable("signing secrets unavailable", err)
		}
		secrets.Tenants = tenantSecrets
	}

	knownTenants := make([]string, 0, len(secrets.Tenants))
	for _, tenant := range secrets.Tenants {
		knownTenants = append(knownTenants, tenant.TenantID)
	}

	credential, err := p.verifier.Verify(rawBody, signatureHeader, secrets)
	if err != nil {
		var configuration errs.Configuration
		if errors.As(err, &configuration) {
			slog.ErrorContext(ctx, "webhook signing is not configured", "error", err, log.PriorityCritical())
		} else {
			slog.WarnContext(ctx, "webhook signature rejected", "error", err)
		}
		return nil, nil, err
	}
	return credential, knownTenants, nil
}

// process runs everything after verification; every exit path here triggers
// a gap sweep
func (p *webhookProcessor) process(ctx context.Context, result *model.WebhookResult, credential *model.SigningCredential, knownTenants []string, envelope *model.WebhookEnvelope) (*model.WebhookResult, error) {
	eventTypeRef := envelope.EventTypeHint()
	var canonical *model.CanonicalEvent

	if eventTypeRef == "" {
		// the matched tenant's token resolves the event type from the source;
		// a fallback match tries every tenant the credential store knows
		candidates := []string{credential.TenantID}
		if credential.IsFallback() {
			candidates = knownTenants
		}

		fetched, err := p.fetch(ctx, envelope.EventRef(), candidates)
		if err != nil {
			var configuration errs.Configuration
			if credential.IsFallback() && errors.As(err, &configuration) {
				slog.WarnContext(ctx, "webhook carries no event type and no known tenant holds an access token")
				result.State = model.StateNoMapping
				p.triggerSweep(constants.SweepReasonNoMapping, "")
				return result, nil
			}
			return p.fetchFailed(ctx, result, "", err)
		}
		canonical = fetched
		eventTypeRef = canonical.EventTypeRef
		if eventTypeRef == "" {
			slog.WarnContext(ctx, "canonical event has no event type")
			result.State = model.StateNoMapping
			return result, nil
		}
	}

	result.EventTypeRef = eventTypeRef
	mappings, err := p.listMappings(ctx, eventTypeRef)
	if err != nil {
		result.State = model.StateInternalError
		p.triggerSweep(constants.SweepReasonPartialFailure, eventTypeRef)
		return result, err
	}
	if len(mappings) == 0 {
		slog.InfoContext(ctx, "no active mapping for event type", "event_type_ref", eventTypeRef)
		result.State = model.StateNoMapping
		p.triggerSweep(constants.SweepReasonNoMapping, eventTypeRef)
		return result, nil
	}
	result.State = model.StateTypeResolved

	if canonical == nil {
		fetched, errFetch := p.fetch(ctx, envelope.EventRef(), tokenOrder(credential, mappings))
		if errFetch != nil {
			return p.fetchFailed(ctx, result, eventTypeRef, errFetch)
		}
		canonical = fetched

		// the hint may be stale; the canonical type decides the tenants
		if canonical.EventTypeRef != "" && canonical.EventTypeRef != eventTypeRef {
			slog.InfoContext(ctx, "event type hint differs from canonical event",
				"hint", eventTypeRef,
				"canonical", canonical.EventTypeRef,
			)
			eventTypeRef = canonical.EventTypeRef
			result.EventTypeRef = eventTypeRef
			mappings, err = p.listMappings(ctx, eventTypeRef)
			if err != nil {
				result.State = model.StateInternalError
				p.triggerSweep(constants.SweepReasonPartialFailure, eventTypeRef)
				return result, err
			}
			if len(mappings) == 0 {
				result.State = model.StateNoMapping
				p.triggerSweep(constants.SweepReasonNoMapping, eventTypeRef)
				return result, nil
			}
		}
	}
	if canonical.URI == "" {
		canonical.URI = envelope.EventRef()
	}
	result.State = model.StateFetched

	invitee := envelope.Invitee()
	result.Tenants = p.fanOut(ctx, mappings, canonical, envelope, &invitee)
	for _, tr := range result.Tenants {
		if tr.Error != "" {
			result.Failures++
		}
	}

	if result.Failures > 0 {
		slog.ErrorContext(ctx, "reconcile failed for some tenants",
			"failures", result.Failures,
			"tenants", len(result.Tenants),
		)
		result.State = model.StateInternalError
		p.triggerSweep(constants.SweepReasonPartialFailure, eventTypeRef)
		return result, errs.NewServiceUnavailable("failed to persist event for every tenant")
	}
	result.State = model.StateReconciled

	p.triggerSweep(constants.SweepReasonWebhook, eventTypeRef)
	result.State = model.StateSweepTriggered

	slog.InfoContext(ctx, "webhook processed",
		"event_type_ref", eventTypeRef,
		"tenants", len(result.Tenants),
	)
	result.State = model.StateAcknowledged
	return result, nil
}

func (p *webhookProcessor) listMappings(ctx context.Context, eventTypeRef string) ([]model.EventTypeMapping, error) {
	mappings, err := p.mappings.ListActiveMappings(ctx, eventTypeRef)
	if err != nil {
		slog.ErrorContext(ctx, "failed to resolve event type mappings", "error", err, "event_type_ref", eventTypeRef)
		var unavailable errs.ServiceUnavailable
		if errors.As(err, &unavailable) {
			return nil, err
		}
		return nil, errs.NewServiceUnavailable("failed to resolve event type mappings", err)
	}
	return mappings, nil
}

// fetch tries each tenant's token in order and moves on when a token is
// missing or rejected; any other outcome ends the loop
func (p *webhookProcessor) fetch(ctx context.Context, eventRef string, tenants []string) (*model.CanonicalEvent, error) {
	if p.credentials == nil {
		return nil, errs.NewConfiguration("no credential store configured")
	}

	var lastErr error
	for _, tenantID := range tenants {
		token, err := p.credentials.GetAccessToken(ctx, tenantID)
		if err != nil {
			var notFound errs.NotFound
			if errors.As(err, &notFound) {
				slog.DebugContext(ctx, "tenant has no access token", "tenant_id", tenantID)
				continue
			}
			return nil, errs.NewServiceUnavailable("failed to read tenant access token", err)
		}

		canonical, err := p.fetcher.GetScheduledEvent(ctx, eventRef, token)
		if err == nil {
			slog.DebugContext(ctx, "canonical event fetched", "tenant_id", tenantID, "status", canonical.Status)
			return canonical, nil
		}

		var unauthorized errs.Unauthorized
		if errors.As(err, &unauthorized) {
			slog.WarnContext(ctx, "tenant token rejected by scheduling service, trying next tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			lastErr = err
			continue
		}
		return nil, err
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errs.NewConfiguration("no subscribed tenant holds a scheduling access token")
}

func (p *webhookProcessor) fetchFailed(ctx context.Context, result *model.WebhookResult, eventTypeRef string, err error) (*model.WebhookResult, error) {
	var notFound errs.NotFound
	if errors.As(err, &notFound) {
		slog.InfoContext(ctx, "event no longer exists at source, acknowledging")
		result.State = model.StateSource404
		p.triggerSweep(constants.SweepReasonSourceNotFound, eventTypeRef)
		return result, nil
	}

	slog.ErrorContext(ctx, "failed to fetch canonical event", "error", err)
	result.State = model.StateFetchFailed
	p.triggerSweep(constants.SweepReasonFetchFailed, eventTypeRef)
	return result, err
}

// fanOut reconciles the canonical event for every mapped tenant. One tenant's
// failure never stops the others.
func (p *webhookProcessor) fanOut(ctx context.Context, mappings []model.EventTypeMapping, canonical *model.CanonicalEvent, envelope *model.WebhookEnvelope, invitee *model.Invitee) []model.TenantResult {
	results := make([]model.TenantResult, len(mappings))

	g, gctx := errgroup.WithContext(ctx)
	if p.fanOutLimit > 0 {
		g.SetLimit(p.fanOutLimit)
	}

	for i, mapping := range mappings {
		g.Go(func() error {
			tctx := log.AppendCtx(gctx, slog.String("tenant_id", mapping.TenantID))
			res, err := p.reconciler.Reconcile(tctx, ReconcileRequest{
				TenantID:    mapping.TenantID,
				DisplayName: resolveDisplayName(tctx, p.projects, mapping, canonical),
				Canonical:   canonical,
				Kind:        envelope.Kind,
				StatusHint:  envelope.StatusHint(),
				Invitee:     invitee,
				Source:      constants.SourceWebhook,
				ReceivedAt:  envelope.ReceivedAt,
			})
			results[i] = model.TenantResult{TenantID: mapping.TenantID}
			if err != nil {
				slog.ErrorContext(tctx, "reconcile failed for tenant", "error", err)
				results[i].Error = err.Error()
				return nil
			}
			results[i].Outcome = res.Outcome
			results[i].Reason = res.Reason
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *webhookProcessor) triggerSweep(reason, eventTypeRef string) {
	if p.sweeps == nil {
		return
	}
	p.sweeps.TriggerSweep(reason, eventTypeRef)
}

// tokenOrder lists the matched tenant first, then every mapped tenant once
func tokenOrder(credential *model.SigningCredential, mappings []model.EventTypeMapping) []string {
	seen := make(map[string]struct{}, len(mappings)+1)
	order := make([]string, 0, len(mappings)+1)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	add(credential.TenantID)
	for _, m := range mappings {
		add(m.TenantID)
	}
	return order
}
