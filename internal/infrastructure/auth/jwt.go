// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package auth validates Heimdall-issued JWTs for the administrative endpoints.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	errs "github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

const (
	defaultJWKSURL  = "http://heimdall:4457/.well-known/jwks"
	defaultIssuer   = "heimdall"
	defaultAudience = "lfx-v2-scheduling-webhook-service"
	jwksCacheTTL    = 5 * time.Minute
	allowedSkew     = 5 * time.Second
)

// JWTAuthConfig holds the JWT validation settings
type JWTAuthConfig struct {
	JWKSURL  string
	Issuer   string
	Audience string
}

// HeimdallClaims carries the principal injected by Heimdall
type HeimdallClaims struct {
	Principal string `json:"principal"`
	Email     string `json:"email,omitempty"`
}

// Validate requires a principal
func (c *HeimdallClaims) Validate(_ context.Context) error {
	if c.Principal == "" {
		return errors.New("principal must be provided")
	}
	return nil
}

// JWTAuth validates PS256 tokens against a cached JWKS
type JWTAuth struct {
	validator *validator.Validator
}

// ParsePrincipal validates the token and returns its principal
func (j *JWTAuth) ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return "", errs.NewUnauthorized("missing bearer token")
	}

	parsed, err := j.validator.ValidateToken(ctx, token)
	if err != nil {
		logger.WarnContext(ctx, "unable to validate token", "error", err)
		return "", errs.NewUnauthorized("invalid token", err)
	}

	claims, ok := parsed.(*validator.ValidatedClaims)
	if !ok {
		return "", errs.NewUnexpected("unexpected claims type")
	}
	custom, ok := claims.CustomClaims.(*HeimdallClaims)
	if !ok || custom.Principal == "" {
		return "", errs.NewUnauthorized("token has no principal")
	}

	logger.DebugContext(ctx, "parsed principal", "principal", custom.Principal)
	return custom.Principal, nil
}

// NewJWTAuth builds the validator; empty settings fall back to the Heimdall defaults
func NewJWTAuth(config JWTAuthConfig) (*JWTAuth, error) {
	if config.JWKSURL == "" {
		config.JWKSURL = defaultJWKSURL
	}
	if config.Issuer == "" {
		config.Issuer = defaultIssuer
	}
	if config.Audience == "" {
		config.Audience = defaultAudience
	}

	jwksURL, err := url.Parse(config.JWKSURL)
	if err != nil || jwksURL.Scheme == "" || jwksURL.Host == "" {
		return nil, errs.NewConfiguration("invalid JWKS_URL")
	}
	issuerURL, err := url.Parse(config.Issuer)
	if err != nil {
		return nil, errs.NewConfiguration("invalid JWT_ISSUER", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, jwksCacheTTL, jwks.WithCustomJWKSURI(jwksURL))

	v, err := validator.New(
		provider.KeyFunc,
		validator.PS256,
		config.Issuer,
		[]string{config.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &HeimdallClaims{}
		}),
		validator.WithAllowedClockSkew(allowedSkew),
	)
	if err != nil {
		return nil, errs.NewConfiguration("failed to create JWT validator", err)
	}

	return &JWTAuth{validator: v}, nil
}

var _ port.Authenticator = (*JWTAuth)(nil)
