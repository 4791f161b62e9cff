// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"errors"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	lfxerrors "github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
)

// httpStatus maps a typed error to its response status
func httpStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var (
		validation   lfxerrors.Validation
		unauthorized lfxerrors.Unauthorized
		notFound     lfxerrors.NotFound
		conflict     lfxerrors.Conflict
		unavailable  lfxerrors.ServiceUnavailable
	)
	switch {
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// webhookStatus maps the state a webhook reached to the sender-facing status.
// An upstream 401/403 while fetching is the service's credential problem, not
// the sender's, so it never surfaces as 401.
func webhookStatus(result *model.WebhookResult, err error) int {
	if err == nil {
		return http.StatusOK
	}
	if result == nil {
		return httpStatus(err)
	}

	switch result.State {
	case model.StateRejectedSignature:
		return http.StatusUnauthorized
	case model.StateBadRequest:
		return http.StatusBadRequest
	case model.StateFetchFailed:
		var (
			unavailable   lfxerrors.ServiceUnavailable
			configuration lfxerrors.Configuration
		)
		switch {
		case errors.As(err, &unavailable):
			return http.StatusServiceUnavailable
		case errors.As(err, &configuration):
			return http.StatusInternalServerError
		default:
			return http.StatusUnprocessableEntity
		}
	}

	var unavailable lfxerrors.ServiceUnavailable
	if errors.As(err, &unavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
