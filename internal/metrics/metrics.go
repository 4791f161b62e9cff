// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors for the scheduling webhook service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()

	// WebhookRequests counts webhook requests by terminal state and HTTP status
	WebhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scheduling_webhook_requests_total", Help: "Scheduling webhook requests by final state and status code."},
		[]string{"state", "status"},
	)

	// WebhookDuration records webhook processing time in seconds
	WebhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "scheduling_webhook_duration_seconds", Help: "Scheduling webhook processing duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"state"},
	)

	// ReconcileOutcomes counts per-tenant reconcile outcomes
	ReconcileOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scheduling_reconcile_outcomes_total", Help: "Event reconcile outcomes by outcome and reason."},
		[]string{"outcome", "reason"},
	)

	// FetchRetries counts upstream fetch retries
	FetchRetries = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "scheduling_fetch_retries_total", Help: "Retries issued against the scheduling API."},
	)

	// SweepTriggers counts gap sweep trigger decisions
	SweepTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scheduling_sweep_triggers_total", Help: "Gap sweep triggers by reason and result."},
		[]string{"reason", "result"},
	)
)

var regOnce sync.Once

// RegisterDefault registers the collectors on Registry. Safe to call more than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(WebhookRequests)
		Registry.MustRegister(WebhookDuration)
		Registry.MustRegister(ReconcileOutcomes)
		Registry.MustRegister(FetchRetries)
		Registry.MustRegister(SweepTriggers)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves Registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
