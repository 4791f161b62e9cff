// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/log"
)

type sweepRequestBody struct {
	EventTypeRef string `json:"event_type_ref"`
}

type sweepResponseBody struct {
	Reason       string `json:"reason"`
	EventTypeRef string `json:"event_type_ref"`
	Principal    string `json:"principal"`
}

type errorBody struct {
	Error string `json:"error"`
}

// AdminSweepHandler lets an operator request a gap sweep for one event type
type AdminSweepHandler struct {
	auth    port.Authenticator
	trigger port.SweepTrigger
}

// NewAdminSweepHandler creates the manual sweep endpoint
func NewAdminSweepHandler(auth port.Authenticator, trigger port.SweepTrigger) *AdminSweepHandler {
	return &AdminSweepHandler{auth: auth, trigger: trigger}
}

func (h *AdminSweepHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		return
	}

	token := strings.TrimSpace(r.Header.Get("Authorization"))
	principal, err := h.auth.ParsePrincipal(ctx, token, slog.Default())
	if err != nil {
		slog.WarnContext(ctx, "manual sweep rejected", "error", err)
		writeJSON(w, httpStatus(err), errorBody{Error: "unauthorized"})
		return
	}
	ctx = log.AppendCtx(ctx, slog.String(string(constants.PrincipalContextID), principal))

	var body sweepRequestBody
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxWebhookBytes)
	if errDecode := json.NewDecoder(r.Body).Decode(&body); errDecode != nil || body.EventTypeRef == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "event_type_ref is required"})
		return
	}

	h.trigger.TriggerSweep(constants.SweepReasonManual, body.EventTypeRef)
	slog.InfoContext(ctx, "manual sweep requested", "event_type_ref", body.EventTypeRef)

	writeJSON(w, http.StatusAccepted, sweepResponseBody{
		Reason:       constants.SweepReasonManual,
		EventTypeRef: body.EventTypeRef,
		Principal:    principal,
	})
}
