// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package scheduling

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
)

// SignatureVerifier checks the HMAC-SHA256 webhook signature header
// "t=<unix>,v1=<hex>" over "{t}.{rawBody}".
type SignatureVerifier struct {
	tolerance time.Duration
	now       func() time.Time
}

var _ port.SignatureVerifier = (*SignatureVerifier)(nil)

// NewSignatureVerifier creates a verifier. A positive tolerance rejects
// signatures whose timestamp is further than tolerance from now.
func NewSignatureVerifier(tolerance time.Duration) *SignatureVerifier {
	return &SignatureVerifier{tolerance: tolerance, now: time.Now}
}

type signatureHeader struct {
	timestamp string
	digests   [][]byte
}

// Verify tries every tenant-scoped candidate, then the fallback, and returns
// the first credential that matches.
func (v *SignatureVerifier) Verify(body []byte, header string, secrets model.SigningSecrets) (*model.SigningCredential, error) {
	candidates := secrets.Candidates()
	if len(candidates) == 0 {
		return nil, errors.NewConfiguration("no webhook signing secret configured")
	}

	parsed, err := parseSignatureHeader(header)
	if err != nil {
		return nil, err
	}

	if err := v.checkTimestamp(parsed.timestamp); err != nil {
		return nil, err
	}

	for i := range candidates {
		expected := computeMAC(candidates[i].Secret, parsed.timestamp, body)
		for _, digest := range parsed.digests {
			if hmac.Equal(digest, expected) {
				matched := candidates[i]
				return &matched, nil
			}
		}
	}

	slog.Warn("webhook signature did not match any candidate secret",
		"candidates", len(candidates),
	)
	return nil, errors.NewUnauthorized("invalid webhook signature")
}

func (v *SignatureVerifier) checkTimestamp(raw string) error {
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return errors.NewUnauthorized("malformed webhook signature timestamp", err)
	}
	if v.tolerance <= 0 {
		return nil
	}

	skew := v.now().Sub(time.Unix(ts, 0))
	if math.Abs(float64(skew)) > float64(v.tolerance) {
		return errors.NewUnauthorized(fmt.Sprintf("webhook signature timestamp outside tolerance (%s)", v.tolerance))
	}
	return nil
}

func parseSignatureHeader(header string) (*signatureHeader, error) {
	if strings.TrimSpace(header) == "" {
		return nil, errors.NewUnauthorized("missing webhook signature")
	}

	parsed := &signatureHeader{}
	for _, field := range strings.Split(header, constants.SignatureFieldSeparator) {
		key, value, ok := strings.Cut(strings.TrimSpace(field), constants.SignatureKeyValSeparator)
		if !ok {
			continue
		}
		switch key {
		case constants.SignatureTimestampField:
			parsed.timestamp = value
		case constants.SignatureV1Field:
			digest, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			parsed.digests = append(parsed.digests, digest)
		}
	}

	if parsed.timestamp == "" || len(parsed.digests) == 0 {
		return nil, errors.NewUnauthorized("malformed webhook signature header")
	}
	return parsed, nil
}

func computeMAC(secret, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}

// Sign builds a signature header for body, as the scheduling service does
func Sign(secret string, timestamp time.Time, body []byte) string {
	ts := strconv.FormatInt(timestamp.Unix(), 10)
	return fmt.Sprintf("%s=%s,%s=%s",
		constants.SignatureTimestampField, ts,
		constants.SignatureV1Field, hex.EncodeToString(computeMAC(secret, ts, body)),
	)
}
