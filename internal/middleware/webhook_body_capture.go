// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package middleware holds the HTTP middleware of the scheduling webhook service.
package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
)

// WebhookBodyCaptureMiddleware captures the raw webhook body and its arrival time.
// Signature verification needs the exact bytes the sender signed.
func WebhookBodyCaptureMiddleware(now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != constants.WebhookPath || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			receivedAt := now().UTC()
			r.Body = http.MaxBytesReader(w, r.Body, constants.MaxWebhookBytes)

			body, err := io.ReadAll(r.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "failed to read request body", http.StatusBadRequest)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := context.WithValue(r.Context(), constants.WebhookBodyContextKey, body)
			ctx = context.WithValue(ctx, constants.WebhookReceivedAtContextKey, receivedAt)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WebhookBody returns the captured raw body, if any
func WebhookBody(ctx context.Context) ([]byte, bool) {
	body, ok := ctx.Value(constants.WebhookBodyContextKey).([]byte)
	return body, ok
}

// WebhookReceivedAt returns the captured arrival time, or the zero time
func WebhookReceivedAt(ctx context.Context) time.Time {
	receivedAt, _ := ctx.Value(constants.WebhookReceivedAtContextKey).(time.Time)
	return receivedAt
}
