// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"
	"log/slog"
)

// Authenticator validates bearer tokens on administrative endpoints
type Authenticator interface {
	ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error)
}
