// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import (
	"fmt"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
)

// Source constants record which path last wrote a persisted event
const (
	// SourceWebhook indicates the write came from an inbound webhook delivery
	SourceWebhook = "webhook"

	// SourceSweep indicates the write came from a gap reconciliation sweep
	SourceSweep = "sweep"

	// SourceMock indicates the write came from mock/test infrastructure
	SourceMock = "mock"
)

// ValidateSource validates that the source is one of the allowed values
func ValidateSource(source string) error {
	switch source {
	case SourceWebhook, SourceSweep, SourceMock:
		return nil
	case "":
		return errors.NewValidation("source is required")
	default:
		return errors.NewValidation(
			fmt.Sprintf("unsupported source: %s (must be webhook, sweep, or mock)", source))
	}
}
