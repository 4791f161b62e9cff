// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/cmd/scheduling-webhook-api/service"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/metrics"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// newMux registers every route of the API
func newMux(ctx context.Context) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle(constants.WebhookPath, service.NewWebhookHandler(service.WebhookProcessor(ctx)))
	mux.Handle(constants.AdminSweepPath, service.NewAdminSweepHandler(service.AuthService(ctx), service.SweepDispatcher(ctx)))
	mux.HandleFunc(constants.LivezPath, service.Livez)
	mux.Handle(constants.ReadyzPath, service.Readyz(service.ReadinessChecks(ctx)))
	mux.Handle(constants.MetricsPath, metrics.Handler())

	return mux
}

// handleHTTPServer starts the HTTP server and shuts it down when ctx ends
func handleHTTPServer(ctx context.Context, addr string, wg *sync.WaitGroup, errc chan error) {
	var handler http.Handler = newMux(ctx)
	handler = middleware.WebhookBodyCaptureMiddleware(nil)(handler)
	handler = middleware.RequestIDMiddleware()(handler)
	handler = otelhttp.NewHandler(handler, constants.ServiceName)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 60 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			slog.InfoContext(ctx, "HTTP server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("HTTP server failed: %w", err)
			}
		}()

		<-ctx.Done()
		slog.InfoContext(ctx, "shutting down HTTP server", "addr", addr)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownSeconds*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "failed to shutdown HTTP server", "error", err)
		}
	}()
}
