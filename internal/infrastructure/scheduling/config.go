// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package scheduling

import (
	"os"
	"strconv"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
)

// Config holds the configuration for the scheduling API client
type Config struct {
	// BaseURL is the scheduling API base URL; event URLs are always built from it
	BaseURL string

	// Timeout is the HTTP client timeout for a single attempt
	Timeout time.Duration

	// MaxAttempts is the total number of attempts including the first
	MaxAttempts int

	// RetryDelay is the backoff base
	RetryDelay time.Duration

	// MaxDelay caps a single backoff delay
	MaxDelay time.Duration

	// RateLimit is the outbound request budget per second; 0 disables limiting
	RateLimit float64

	// RateBurst is the limiter burst size
	RateBurst int

	// PageSize is the number of events requested per list call
	PageSize int

	// MockMode disables real scheduling API calls (for testing)
	MockMode bool
}

// DefaultConfig returns a Config with sensible defaults. Worst case the retry
// delays add up to 750ms, well inside the sender's delivery timeout.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api.calendly.com",
		Timeout:     5 * time.Second,
		MaxAttempts: constants.FetchMaxAttempts,
		RetryDelay:  constants.FetchRetryBaseDelay * time.Millisecond,
		MaxDelay:    constants.FetchRetryMaxDelay * time.Millisecond,
		RateLimit:   10,
		RateBurst:   5,
		PageSize:    100,
	}
}

// NewConfigFromEnv creates a Config from environment variables
func NewConfigFromEnv() Config {
	config := DefaultConfig()

	if baseURL := os.Getenv("SCHEDULING_BASE_URL"); baseURL != "" {
		config.BaseURL = baseURL
	}

	if timeoutStr := os.Getenv("SCHEDULING_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			config.Timeout = timeout
		}
	}

	if attemptsStr := os.Getenv("SCHEDULING_MAX_ATTEMPTS"); attemptsStr != "" {
		if attempts, err := strconv.Atoi(attemptsStr); err == nil && attempts > 0 {
			config.MaxAttempts = attempts
		}
	}

	if delayStr := os.Getenv("SCHEDULING_RETRY_DELAY"); delayStr != "" {
		if delay, err := time.ParseDuration(delayStr); err == nil {
			config.RetryDelay = delay
		}
	}

	if maxDelayStr := os.Getenv("SCHEDULING_MAX_DELAY"); maxDelayStr != "" {
		if maxDelay, err := time.ParseDuration(maxDelayStr); err == nil {
			config.MaxDelay = maxDelay
		}
	}

	if rateStr := os.Getenv("SCHEDULING_RATE_LIMIT"); rateStr != "" {
		if rate, err := strconv.ParseFloat(rateStr, 64); err == nil && rate >= 0 {
			config.RateLimit = rate
		}
	}

	if mockMode := os.Getenv("SCHEDULING_SOURCE"); mockMode == "mock" {
		config.MockMode = true
	}

	return config
}
