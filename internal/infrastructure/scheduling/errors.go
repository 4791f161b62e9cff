// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package scheduling

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/httpclient"
)

// MapHTTPError maps httpclient errors to domain errors with proper context logging
func MapHTTPError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var retryableErr *httpclient.RetryableError
	if stderrors.As(err, &retryableErr) {
		message := apiMessage(retryableErr.Message)

		slog.WarnContext(ctx, "scheduling API HTTP error occurred",
			"status_code", retryableErr.StatusCode,
			"message", message,
		)

		switch retryableErr.StatusCode {
		case http.StatusNotFound:
			return errors.NewNotFound("scheduled event not found at source", err)
		case http.StatusUnauthorized:
			return errors.NewUnauthorized("scheduling API authentication failed", err)
		case http.StatusForbidden:
			return errors.NewUnauthorized("scheduling API access denied", err)
		case http.StatusTooManyRequests:
			return errors.NewServiceUnavailable("scheduling API rate limited", err)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return errors.NewValidation(fmt.Sprintf("scheduling API validation error: %s", message), err)
		}

		if retryableErr.StatusCode >= http.StatusInternalServerError {
			return errors.NewServiceUnavailable("scheduling API unavailable", err)
		}

		slog.ErrorContext(ctx, "unexpected scheduling API HTTP status code",
			"status_code", retryableErr.StatusCode,
			"message", message,
		)
		return errors.NewValidation("scheduling API rejected the request", err)
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewServiceUnavailable("scheduling API request canceled", err)
	}

	// Network errors surface here once the retries are spent
	slog.WarnContext(ctx, "scheduling API request failed with non-HTTP error",
		"error", err.Error(),
	)
	return errors.NewServiceUnavailable("scheduling API request failed", err)
}

// apiMessage extracts the human message from an error body, or returns it raw
func apiMessage(body string) string {
	var errObj ErrorObject
	if err := json.Unmarshal([]byte(body), &errObj); err == nil && errObj.Message != "" {
		if errObj.Title != "" {
			return errObj.Title + ": " + errObj.Message
		}
		return errObj.Message
	}
	return body
}
