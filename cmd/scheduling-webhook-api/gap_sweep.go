// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/cmd/scheduling-webhook-api/service"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	"github.com/nats-io/nats.go"
)

// handleGapSweep subscribes the sweep consumer to the gap sweep subject
func handleGapSweep(ctx context.Context, wg *sync.WaitGroup) error {
	slog.InfoContext(ctx, "starting gap sweep consumer")

	natsClient := service.GetNATSClient(ctx)
	sweepService := service.GapSweepService(ctx)

	_, subErr := natsClient.QueueSubscribe(
		constants.GapSweepSubject,
		constants.GapSweepQueue,
		func(msg *nats.Msg) {
			select {
			case <-ctx.Done():
				slog.InfoContext(ctx, "rejecting sweep request - service shutting down",
					"subject", msg.Subject)
				if msg.Reply != "" {
					if nakErr := msg.Nak(); nakErr != nil {
						slog.ErrorContext(ctx, "failed to nak message during shutdown", "error", nakErr)
					}
				}
				return
			default:
			}

			// Not derived from ctx so shutdown does not cut a sweep short
			msgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			var req model.SweepRequest
			if errUnmarshal := json.Unmarshal(msg.Data, &req); errUnmarshal != nil {
				// Redelivery cannot fix a malformed payload
				slog.ErrorContext(msgCtx, "dropping malformed sweep request", "error", errUnmarshal)
				if msg.Reply != "" {
					if ackErr := msg.Ack(); ackErr != nil {
						slog.ErrorContext(msgCtx, "failed to ack message", "error", ackErr)
					}
				}
				return
			}

			if _, handleErr := sweepService.HandleSweep(msgCtx, &req); handleErr != nil {
				slog.ErrorContext(msgCtx, "gap sweep failed, will retry",
					"error", handleErr,
					"event_type_ref", req.EventTypeRef)
				if msg.Reply != "" {
					if nakErr := msg.Nak(); nakErr != nil {
						slog.ErrorContext(msgCtx, "failed to nak message", "error", nakErr)
					}
				}
			} else if msg.Reply != "" {
				if ackErr := msg.Ack(); ackErr != nil {
					slog.ErrorContext(msgCtx, "failed to ack message", "error", ackErr)
				}
			}
		},
	)
	if subErr != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", constants.GapSweepSubject, subErr)
	}
	slog.InfoContext(ctx, "subscribed to gap sweep requests",
		"subject", constants.GapSweepSubject,
		"queue", constants.GapSweepQueue)

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		slog.InfoContext(ctx, "shutting down gap sweep consumer")
	}()

	return nil
}
