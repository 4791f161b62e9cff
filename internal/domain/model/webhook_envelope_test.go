// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
)

const sampleEnvelope = `{
  "event": "invitee.created",
  "created_at": "2025-03-01T10:00:00.000000Z",
  "created_by": "https://api.scheduling.example/users/AAA",
  "payload": {
    "event": "https://api.scheduling.example/scheduled_events/EV-1",
    "uri": "https://api.scheduling.example/scheduled_events/EV-1/invitees/INV-1",
    "name": "Jane Doe",
    "email": "jane@example.com",
    "created_at": "2025-03-01T09:59:58.000000Z",
    "status": "active",
    "questions_and_answers": [],
    "scheduled_event": {
      "uri": "https://api.scheduling.example/scheduled_events/EV-1",
      "event_type": "https://api.scheduling.example/event_types/ET-1",
      "start_time": "2025-03-04T15:00:00.000000Z",
      "status": "active"
    }
  }
}`

func TestWebhookEnvelope_Decode(t *testing.T) {
	var env WebhookEnvelope
	require.NoError(t, json.Unmarshal([]byte(sampleEnvelope), &env))

	assert.Equal(t, KindInviteeCreated, env.Kind)
	assert.Equal(t, "https://api.scheduling.example/scheduled_events/EV-1", env.EventRef())
	assert.Equal(t, "https://api.scheduling.example/event_types/ET-1", env.EventTypeHint())
	assert.Equal(t, "active", env.StatusHint())
	assert.True(t, env.ReceivedAt.IsZero(), "receipt time is never decoded")

	invitee := env.Invitee()
	assert.Equal(t, "Jane Doe", invitee.Name)
	assert.Equal(t, "jane@example.com", invitee.Email)
	require.NotNil(t, invitee.CreatedAt)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 59, 58, 0, time.UTC), invitee.CreatedAt.UTC())

	assert.NoError(t, env.Validate())
}

func TestWebhookEnvelope_Validate(t *testing.T) {
	tests := []struct {
		name    string
		env     WebhookEnvelope
		wantErr bool
	}{
		{
			name:    "missing kind",
			env:     WebhookEnvelope{Payload: WebhookPayload{EventURI: "ev"}},
			wantErr: true,
		},
		{
			name:    "missing event reference",
			env:     WebhookEnvelope{Kind: KindInviteeCanceled},
			wantErr: true,
		},
		{
			name: "event reference from scheduled event hint",
			env: WebhookEnvelope{
				Kind:    KindInviteeCanceled,
				Payload: WebhookPayload{ScheduledEvent: &ScheduledEventHint{URI: "ev"}},
			},
		},
		{
			name: "unknown kind is accepted",
			env:  WebhookEnvelope{Kind: "routing_form_submission.created", Payload: WebhookPayload{EventURI: "ev"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.env.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var validation errors.Validation
			assert.ErrorAs(t, err, &validation)
		})
	}
}

func TestWebhookEnvelope_HintsWithoutScheduledEvent(t *testing.T) {
	env := WebhookEnvelope{Kind: KindInviteeCreated, Payload: WebhookPayload{EventURI: "ev"}}

	assert.Empty(t, env.EventTypeHint())
	assert.Empty(t, env.StatusHint())
	assert.Nil(t, env.Invitee().CreatedAt)
}
