// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
)

func TestSignatureVerifier_Verify(t *testing.T) {
	body := []byte(`{"event":"invitee.created","payload":{"event":"https://api.example/scheduled_events/EV-1"}}`)
	now := time.Unix(1740823200, 0)

	secrets := model.SigningSecrets{
		Tenants: []model.SigningCredential{
			{TenantID: "proj-a", Secret: "secret-a"},
			{TenantID: "proj-b", Secret: "secret-b"},
		},
		Fallback: "global-secret",
	}

	tests := []struct {
		name           string
		header         string
		body           []byte
		secrets        model.SigningSecrets
		expectedTenant string
		expectFallback bool
		expectedErr    any
	}{
		{
			name:           "first tenant secret matches",
			header:         Sign("secret-a", now, body),
			body:           body,
			secrets:        secrets,
			expectedTenant: "proj-a",
		},
		{
			name:           "second tenant secret matches",
			header:         Sign("secret-b", now, body),
			body:           body,
			secrets:        secrets,
			expectedTenant: "proj-b",
		},
		{
			name:           "fallback secret matches last",
			header:         Sign("global-secret", now, body),
			body:           body,
			secrets:        secrets,
			expectFallback: true,
		},
		{
			name:           "any of several v1 digests may match",
			header:         Sign("secret-b", now, body) + ",v1=deadbeef",
			body:           body,
			secrets:        secrets,
			expectedTenant: "proj-b",
		},
		{
			name:        "tampered body is rejected",
			header:      Sign("secret-a", now, body),
			body:        append([]byte(" "), body...),
			secrets:     secrets,
			expectedErr: &errors.Unauthorized{},
		},
		{
			name:        "unknown secret is rejected",
			header:      Sign("someone-else", now, body),
			body:        body,
			secrets:     secrets,
			expectedErr: &errors.Unauthorized{},
		},
		{
			name:        "missing header is rejected",
			header:      "",
			body:        body,
			secrets:     secrets,
			expectedErr: &errors.Unauthorized{},
		},
		{
			name:        "header without digest is rejected",
			header:      "t=1740823200",
			body:        body,
			secrets:     secrets,
			expectedErr: &errors.Unauthorized{},
		},
		{
			name:        "non numeric timestamp is rejected",
			header:      "t=yesterday,v1=00",
			body:        body,
			secrets:     secrets,
			expectedErr: &errors.Unauthorized{},
		},
		{
			name:        "no secrets configured fails closed",
			header:      Sign("secret-a", now, body),
			body:        body,
			secrets:     model.SigningSecrets{},
			expectedErr: &errors.Configuration{},
		},
	}

	verifier := NewSignatureVerifier(0)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := verifier.Verify(tt.body, tt.header, tt.secrets)

			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.Nil(t, cred)
				assert.ErrorAs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cred)
			assert.Equal(t, tt.expectFallback, cred.IsFallback())
			assert.Equal(t, tt.expectedTenant, cred.TenantID)
		})
	}
}

func TestSignatureVerifier_Tolerance(t *testing.T) {
	body := []byte(`{}`)
	secrets := model.SigningSecrets{Fallback: "global-secret"}
	now := time.Unix(1740823200, 0)

	verifier := NewSignatureVerifier(5 * time.Minute)
	verifier.now = func() time.Time { return now }

	_, err := verifier.Verify(body, Sign("global-secret", now.Add(-4*time.Minute), body), secrets)
	assert.NoError(t, err, "inside tolerance")

	_, err = verifier.Verify(body, Sign("global-secret", now.Add(-6*time.Minute), body), secrets)
	var unauthorized errors.Unauthorized
	assert.ErrorAs(t, err, &unauthorized, "stale timestamp")

	_, err = verifier.Verify(body, Sign("global-secret", now.Add(6*time.Minute), body), secrets)
	assert.ErrorAs(t, err, &unauthorized, "future timestamp")
}

func TestSign_Format(t *testing.T) {
	header := Sign("s", time.Unix(42, 0), []byte("x"))
	assert.Regexp(t, `^t=42,v1=[0-9a-f]{64}$`, header)
}
