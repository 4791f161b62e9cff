// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/metrics"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
)

type webhookResponse struct {
	*model.WebhookResult
	Error string `json:"error,omitempty"`
}

// WebhookHandler is the inbound scheduling webhook endpoint
type WebhookHandler struct {
	processor port.WebhookProcessor
	now       func() time.Time
}

// NewWebhookHandler creates the webhook endpoint over a processor
func NewWebhookHandler(processor port.WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor, now: time.Now}
}

// ServeHTTP accepts POST deliveries only. Bodies are normally captured by
// middleware.WebhookBodyCaptureMiddleware; direct reads are bounded the same way.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := h.now()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.respond(w, start, http.StatusMethodNotAllowed, &webhookResponse{
			WebhookResult: &model.WebhookResult{State: model.StateReceived},
			Error:         "method not allowed",
		})
		return
	}

	body, ok := middleware.WebhookBody(ctx)
	if !ok {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, constants.MaxWebhookBytes))
		if err != nil {
			h.respond(w, start, http.StatusBadRequest, &webhookResponse{
				WebhookResult: &model.WebhookResult{State: model.StateBadRequest},
				Error:         "failed to read request body",
			})
			return
		}
		body = raw
	}

	receivedAt := middleware.WebhookReceivedAt(ctx)
	if receivedAt.IsZero() {
		receivedAt = start.UTC()
	}

	result, err := h.processor.ProcessWebhook(ctx, body, r.Header.Get(constants.WebhookSignatureHeader), receivedAt)
	if result == nil {
		result = &model.WebhookResult{State: model.StateInternalError}
	}

	status := webhookStatus(result, err)
	response := &webhookResponse{WebhookResult: result}
	if err != nil {
		response.Error = http.StatusText(status)
		slog.WarnContext(ctx, "webhook not processed",
			"state", result.State,
			"status", status,
			"error", err,
		)
	}
	h.respond(w, start, status, response)
}

func (h *WebhookHandler) respond(w http.ResponseWriter, start time.Time, status int, response *webhookResponse) {
	state := string(response.State)
	metrics.WebhookRequests.WithLabelValues(state, strconv.Itoa(status)).Inc()
	metrics.WebhookDuration.WithLabelValues(state).Observe(h.now().Sub(start).Seconds())

	writeJSON(w, status, response)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
