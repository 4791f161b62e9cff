// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package port defines the interfaces for external dependencies and adapters.
package port

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
)

// CredentialReader reads per-tenant scheduling credentials. The store is
// populated by the connection-management flow; this service never writes it.
type CredentialReader interface {
	// GetAccessToken returns the tenant's scheduling API token; NotFound when absent
	GetAccessToken(ctx context.Context, tenantID string) (string, error)

	// GetSigningSecrets returns every tenant-scoped webhook signing secret
	GetSigningSecrets(ctx context.Context) ([]model.SigningCredential, error)
}
