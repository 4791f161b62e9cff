// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"

	"github.com/nats-io/nats.go/jetstream"
)

type mappingStorage struct {
	storage
}

// ListActiveMappings lists mapping.<token>.* and keeps the active entries
func (s *mappingStorage) ListActiveMappings(ctx context.Context, eventTypeRef string) ([]model.EventTypeMapping, error) {
	if eventTypeRef == "" {
		return nil, errs.NewValidation("event type reference is required")
	}

	kv, err := s.client.bucket(constants.KVBucketNameEventTypeMappings)
	if err != nil {
		return nil, err
	}

	filter := fmt.Sprintf(constants.KVMappingFilter, model.EventTypeToken(eventTypeRef))

	listCtx, cancel := s.client.withTimeout(ctx)
	defer cancel()

	lister, err := kv.ListKeysFiltered(listCtx, filter)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []model.EventTypeMapping{}, nil
		}
		slog.ErrorContext(ctx, "failed to list event type mappings", "error", err, "filter", filter)
		return nil, errs.NewServiceUnavailable("failed to list event type mappings", err)
	}
	defer func() {
		_ = lister.Stop()
	}()

	keys := make([]string, 0)
	for key := range lister.Keys() {
		keys = append(keys, key)
	}

	mappings := make([]model.EventTypeMapping, 0, len(keys))
	for _, key := range keys {
		var mapping model.EventTypeMapping
		if _, errGet := s.get(ctx, constants.KVBucketNameEventTypeMappings, key, &mapping); errGet != nil {
			if errors.Is(errGet, jetstream.ErrKeyNotFound) {
				continue
			}
			slog.ErrorContext(ctx, "failed to read event type mapping", "error", errGet, "key", key)
			return nil, errs.NewServiceUnavailable("failed to read event type mapping", errGet)
		}
		if !mapping.Active || mapping.ExternalEventTypeRef != eventTypeRef {
			continue
		}
		mappings = append(mappings, mapping)
	}

	slog.DebugContext(ctx, "nats storage: mappings resolved",
		"event_type_ref", eventTypeRef,
		"keys", len(keys),
		"active", len(mappings))

	return mappings, nil
}

// MappingKey builds the KV key of one tenant's mapping for an event type
func MappingKey(eventTypeRef, tenantID string) string {
	return fmt.Sprintf(constants.KVMappingKeyPrefix, model.EventTypeToken(eventTypeRef), tenantID)
}

// NewMappingReader creates the NATS KV backed event type mapping reader
func NewMappingReader(client *NATSClient) port.EventTypeMappingReader {
	return &mappingStorage{storage{client: client}}
}
