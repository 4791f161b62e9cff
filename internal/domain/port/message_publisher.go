// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import "context"

// MessagePublisher publishes JSON messages on the service's messaging backbone
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, message any) error
}
