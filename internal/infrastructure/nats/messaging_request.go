// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
)

type messageRequest struct {
	client *NATSClient
}

func (m *messageRequest) get(ctx context.Context, subject, uid string) (string, error) {
	if m.client.conn == nil {
		return "", errors.NewServiceUnavailable("NATS connection not initialized")
	}

	ctx, cancel := m.client.withTimeout(ctx)
	defer cancel()

	msg, err := m.client.conn.RequestWithContext(ctx, subject, []byte(uid))
	if err != nil {
		return "", errors.NewServiceUnavailable(fmt.Sprintf("request on %s failed", subject), err)
	}

	// Try to parse as JSON error response first
	var errorResponse struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(msg.Data, &errorResponse); err == nil && errorResponse.Error != "" {
		slog.WarnContext(ctx, "message responded with an error", "subject", subject, "uid", uid, "error", errorResponse.Error)
		return "", errors.NewUnexpected(errorResponse.Error)
	}

	attribute := string(msg.Data)
	if attribute == "" {
		return "", errors.NewNotFound(fmt.Sprintf("project attribute %s not found for uid: %s", subject, uid))
	}

	return attribute, nil
}

// ProjectName asks the projects service for the display name of a project
func (m *messageRequest) ProjectName(ctx context.Context, uid string) (string, error) {
	return m.get(ctx, constants.ProjectGetNameSubject, uid)
}

// NewProjectReader creates a project reader backed by NATS request/reply
func NewProjectReader(client *NATSClient) port.ProjectReader {
	return &messageRequest{
		client: client,
	}
}
