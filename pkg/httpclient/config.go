// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package httpclient

import (
	"net/http"
	"time"
)

// Config holds the retry and transport settings for a Client
type Config struct {
	// Timeout bounds a single attempt, not the whole retry sequence
	Timeout time.Duration

	// MaxRetries is the number of attempts after the first one
	MaxRetries int

	// RetryDelay is the delay before the first retry
	RetryDelay time.Duration

	// RetryBackoff doubles the delay on every subsequent retry
	RetryBackoff bool

	// MaxDelay caps a single backoff delay
	MaxDelay time.Duration

	// NoJitter disables the 25% random variance added to backoff delays
	NoJitter bool

	// Transport is the base transport; http.DefaultTransport when nil
	Transport http.RoundTripper

	// OnRetry is invoked before each retry sleep
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		MaxRetries:   2,
		RetryDelay:   1 * time.Second,
		RetryBackoff: true,
		MaxDelay:     30 * time.Second,
	}
}
