// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"

	"github.com/nats-io/nats.go/jetstream"
)

type credentialStorage struct {
	storage
}

func (s *credentialStorage) getCredential(ctx context.Context, key string) (*model.TenantCredential, error) {
	credential := &model.TenantCredential{}
	if _, err := s.get(ctx, constants.KVBucketNameCredentials, key, credential); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, errs.NewNotFound("credential not found")
		}
		if _, ok := err.(errs.ServiceUnavailable); ok {
			return nil, err
		}
		return nil, errs.NewServiceUnavailable("failed to read credential", err)
	}
	return credential, nil
}

// GetAccessToken returns the tenant's API token
func (s *credentialStorage) GetAccessToken(ctx context.Context, tenantID string) (string, error) {
	credential, err := s.getCredential(ctx, fmt.Sprintf(constants.KVCredentialKeyPrefix, tenantID))
	if err != nil {
		return "", err
	}
	if credential.AccessToken == "" {
		return "", errs.NewNotFound("tenant has no access token")
	}
	return credential.AccessToken, nil
}

// GetSigningSecrets lists every stored credential that carries a signing secret
func (s *credentialStorage) GetSigningSecrets(ctx context.Context) ([]model.SigningCredential, error) {
	kv, err := s.client.bucket(constants.KVBucketNameCredentials)
	if err != nil {
		return nil, err
	}

	listCtx, cancel := s.client.withTimeout(ctx)
	defer cancel()

	lister, err := kv.ListKeys(listCtx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []model.SigningCredential{}, nil
		}
		slog.ErrorContext(ctx, "failed to list credentials", "error", err)
		return nil, errs.NewServiceUnavailable("failed to list credentials", err)
	}
	defer func() {
		_ = lister.Stop()
	}()

	prefix := strings.TrimSuffix(constants.KVCredentialKeyPrefix, "%s")
	keys := make([]string, 0)
	for key := range lister.Keys() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	secrets := make([]model.SigningCredential, 0, len(keys))
	for _, key := range keys {
		credential, errGet := s.getCredential(ctx, key)
		if errGet != nil {
			var notFound errs.NotFound
			if errors.As(errGet, &notFound) {
				continue
			}
			return nil, errGet
		}
		if credential.SigningSecret == "" || credential.TenantID == "" {
			continue
		}
		secrets = append(secrets, credential.SigningCredential())
	}

	slog.DebugContext(ctx, "nats storage: signing secrets loaded", "count", len(secrets))

	return secrets, nil
}

// NewCredentialReader creates the NATS KV backed credential reader
func NewCredentialReader(client *NATSClient) port.CredentialReader {
	return &credentialStorage{storage{client: client}}
}
