// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"
)

// ProjectReader resolves tenant (project) attributes owned by other services
type ProjectReader interface {
	ProjectName(ctx context.Context, uid string) (string, error)
}
