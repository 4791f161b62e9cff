// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package redaction masks sensitive values before they are logged.
package redaction

import "strings"

const mask = "***"

// Redact keeps the first and last two characters of a value and masks the rest.
// Values of six characters or fewer are fully masked.
func Redact(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 6 {
		return mask
	}
	return value[:2] + mask + value[len(value)-2:]
}

// RedactEmail keeps the first character of the local part and the full domain.
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return Redact(email)
	}
	return email[:1] + mask + email[at:]
}
