// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
)

// WebhookProcessor runs a raw scheduling webhook through the pipeline
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, rawBody []byte, signatureHeader string, receivedAt time.Time) (*model.WebhookResult, error)
}
