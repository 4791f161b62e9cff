// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import "github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"

// SignatureVerifier authenticates raw webhook bodies
type SignatureVerifier interface {
	// Verify returns the first candidate credential whose HMAC matches
	Verify(body []byte, signatureHeader string, secrets model.SigningSecrets) (*model.SigningCredential, error)
}
