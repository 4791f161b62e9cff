// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/infrastructure/mock"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminSweepHandler(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		token         string
		body          string
		expectedCode  int
		expectTrigger bool
	}{
		{
			name:          "manual sweep accepted",
			method:        http.MethodPost,
			token:         "Bearer admin-token",
			body:          `{"event_type_ref":"` + handlerEventTypeRef + `"}`,
			expectedCode:  http.StatusAccepted,
			expectTrigger: true,
		},
		{
			name:         "missing token",
			method:       http.MethodPost,
			body:         `{"event_type_ref":"` + handlerEventTypeRef + `"}`,
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "missing event type",
			method:       http.MethodPost,
			token:        "Bearer admin-token",
			body:         `{}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "malformed body",
			method:       http.MethodPost,
			token:        "Bearer admin-token",
			body:         `not-json`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "wrong method",
			method:       http.MethodGet,
			token:        "Bearer admin-token",
			expectedCode: http.StatusMethodNotAllowed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			trigger := mock.NewMockSweepTrigger()
			handler := NewAdminSweepHandler(mock.NewMockAuthService("ops@example.com"), trigger)

			req := httptest.NewRequest(tc.method, constants.AdminSweepPath, bytes.NewBufferString(tc.body))
			if tc.token != "" {
				req.Header.Set("Authorization", tc.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.expectedCode, rec.Code)
			if !tc.expectTrigger {
				assert.Empty(t, trigger.Calls())
				return
			}

			assert.Equal(t, []mock.SweepCall{{Reason: constants.SweepReasonManual, EventTypeRef: handlerEventTypeRef}}, trigger.Calls())
			var resp sweepResponseBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "ops@example.com", resp.Principal)
		})
	}
}
