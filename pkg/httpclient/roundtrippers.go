// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

type accessTokenKey struct{}

// WithAccessToken attaches a per-call access token to ctx; it takes precedence
// over the round tripper's static token.
func WithAccessToken(ctx context.Context, accessToken string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, accessToken)
}

// BearerTokenRoundTripper sets an OAuth2 bearer Authorization header on every request
type BearerTokenRoundTripper struct {
	static string
}

// RoundTrip implements RoundTripper
func (b *BearerTokenRoundTripper) RoundTrip(req *http.Request, next func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	accessToken := b.static
	if v, ok := req.Context().Value(accessTokenKey{}).(string); ok && v != "" {
		accessToken = v
	}
	if accessToken != "" {
		token := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
		token.SetAuthHeader(req)
	}
	return next(req)
}

// NewBearerTokenRoundTripper builds a RoundTripper with an optional static token
func NewBearerTokenRoundTripper(staticToken string) *BearerTokenRoundTripper {
	return &BearerTokenRoundTripper{static: staticToken}
}

// RateLimitRoundTripper blocks each request until the limiter grants a token
type RateLimitRoundTripper struct {
	limiter *rate.Limiter
}

// RoundTrip implements RoundTripper
func (r *RateLimitRoundTripper) RoundTrip(req *http.Request, next func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	if err := r.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return next(req)
}

// NewRateLimitRoundTripper allows rps requests per second with the given burst
func NewRateLimitRoundTripper(rps float64, burst int) *RateLimitRoundTripper {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitRoundTripper{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}
