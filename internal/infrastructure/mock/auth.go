// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package mock provides in-memory implementations of the ports for local runs and tests.
package mock

import (
	"context"
	"log/slog"
	"os"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
)

// MockAuthService accepts any non-empty bearer token as a fixed principal
type MockAuthService struct {
	principal string
}

// ParsePrincipal returns the configured principal for any non-empty token
func (m *MockAuthService) ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error) {
	if token == "" {
		return "", errors.NewUnauthorized("missing bearer token")
	}

	principal := m.principal
	if principal == "" {
		principal = os.Getenv("JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL")
	}
	if principal == "" {
		return "", errors.NewUnauthorized("JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL environment variable not set")
	}

	logger.DebugContext(ctx, "parsed principal",
		"principal", principal,
	)

	return principal, nil
}

// NewMockAuthService creates a mock authenticator; an empty principal is read from the environment
func NewMockAuthService(principal string) port.Authenticator {
	return &MockAuthService{principal: principal}
}
