// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the scheduling webhook API: it verifies inbound scheduling
// webhooks, reconciles the canonical event per subscribed tenant and runs the
// gap sweep consumer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/cmd/scheduling-webhook-api/service"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/metrics"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/log"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/utils"
)

const (
	defaultPort             = "8080"
	gracefulShutdownSeconds = 25
)

func main() {
	var (
		port = flag.String("p", defaultPort, "listen port")
		bind = flag.String("bind", "*", "interface to bind on")
	)
	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	log.InitStructureLogConfig()

	ctx := context.Background()

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "error setting up OpenTelemetry SDK", "error", err)
		os.Exit(1)
	}
	defer func() {
		if errShutdown := otelShutdown(context.Background()); errShutdown != nil {
			slog.ErrorContext(ctx, "error shutting down OpenTelemetry SDK", "error", errShutdown)
		}
	}()

	metrics.RegisterDefault()

	if envPort := os.Getenv("PORT"); envPort != "" && *port == defaultPort {
		*port = envPort
	}
	host := *bind
	if host == "*" {
		host = ""
	}
	addr := fmt.Sprintf("%s:%s", host, *port)

	ctx, cancel := context.WithCancel(ctx)

	errc := make(chan error, 1)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup

	handleHTTPServer(ctx, addr, &wg, errc)

	if service.SweepConsumerEnabled() {
		if errSweep := handleGapSweep(ctx, &wg); errSweep != nil {
			slog.ErrorContext(ctx, "failed to start gap sweep consumer", "error", errSweep)
			cancel()
			os.Exit(1)
		}
	} else {
		slog.InfoContext(ctx, "gap sweep consumer disabled for mock repository")
	}

	slog.InfoContext(ctx, "exiting", "signal", <-errc)
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		service.SweepDispatcher(ctx).Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.InfoContext(ctx, "graceful shutdown completed")
	case <-time.After(gracefulShutdownSeconds * time.Second):
		slog.WarnContext(ctx, "graceful shutdown timed out")
	}

	service.Shutdown(context.Background())
}
