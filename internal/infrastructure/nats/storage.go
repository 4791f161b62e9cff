// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"

	"github.com/nats-io/nats.go/jetstream"
)

type storage struct {
	client *NATSClient
}

// GetEvent retrieves a persisted event by its idempotency key and returns its revision
func (s *storage) GetEvent(ctx context.Context, tenantID, externalRef string) (*model.PersistedEvent, uint64, error) {
	key := eventKey(tenantID, externalRef)

	slog.DebugContext(ctx, "nats storage: getting event",
		"tenant_id", tenantID,
		"key", key)

	event := &model.PersistedEvent{}
	rev, err := s.get(ctx, constants.KVBucketNameScheduledEvents, key, event)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, 0, errs.NewNotFound("event not found")
		}
		if _, ok := err.(errs.ServiceUnavailable); ok {
			return nil, 0, err
		}
		slog.ErrorContext(ctx, "failed to get event", "error", err, "key", key)
		return nil, 0, errs.NewServiceUnavailable("failed to get event", err)
	}

	return event, rev, nil
}

// CreateEvent inserts an event; the KV Create is the atomic uniqueness check
func (s *storage) CreateEvent(ctx context.Context, event *model.PersistedEvent) (*model.PersistedEvent, uint64, error) {
	key := eventKey(event.TenantID, event.ExternalEventRef)

	slog.DebugContext(ctx, "nats storage: creating event",
		"event_uid", event.UID,
		"tenant_id", event.TenantID,
		"key", key)

	rev, err := s.create(ctx, constants.KVBucketNameScheduledEvents, key, event)
	if err != nil {
		if isKeyExists(err) {
			slog.WarnContext(ctx, "constraint violation - event already exists",
				"tenant_id", event.TenantID,
				"key", key,
			)
			return nil, 0, errs.NewConflict("event already exists for tenant", err)
		}
		if _, ok := err.(errs.ServiceUnavailable); ok {
			return nil, 0, err
		}
		slog.ErrorContext(ctx, "failed to create event", "error", err, "key", key)
		return nil, 0, errs.NewServiceUnavailable("failed to create event", err)
	}

	slog.DebugContext(ctx, "nats storage: event created",
		"event_uid", event.UID,
		"revision", rev)

	return event, rev, nil
}

// UpdateEvent replaces an event when the stored revision still matches
func (s *storage) UpdateEvent(ctx context.Context, event *model.PersistedEvent, expectedRevision uint64) (*model.PersistedEvent, uint64, error) {
	key := eventKey(event.TenantID, event.ExternalEventRef)

	slog.DebugContext(ctx, "nats storage: updating event",
		"event_uid", event.UID,
		"expected_revision", expectedRevision)

	rev, err := s.putWithRevision(ctx, constants.KVBucketNameScheduledEvents, key, event, expectedRevision)
	if err != nil {
		if isKeyExists(err) {
			return nil, 0, errs.NewConflict("event was modified concurrently", err)
		}
		if _, ok := err.(errs.ServiceUnavailable); ok {
			return nil, 0, err
		}
		slog.ErrorContext(ctx, "failed to update event", "error", err, "key", key)
		return nil, 0, errs.NewServiceUnavailable("failed to update event", err)
	}

	slog.DebugContext(ctx, "nats storage: event updated",
		"event_uid", event.UID,
		"revision", rev)

	return event, rev, nil
}

// IsReady checks if the NATS client is ready
func (s *storage) IsReady(ctx context.Context) error {
	return s.client.IsReady(ctx)
}

// get retrieves a model from the NATS KV store by bucket and key.
// It unmarshals the data into the provided model and returns the revision.
func (s *storage) get(ctx context.Context, bucket, key string, model any) (uint64, error) {
	if key == "" {
		return 0, errs.NewValidation("key cannot be empty")
	}

	kv, err := s.client.bucket(bucket)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.client.withTimeout(ctx)
	defer cancel()

	data, errGet := kv.Get(ctx, key)
	if errGet != nil {
		return 0, errGet
	}

	if errUnmarshal := json.Unmarshal(data.Value(), model); errUnmarshal != nil {
		return 0, errUnmarshal
	}

	return data.Revision(), nil
}

// create stores a model only if the key does not exist yet
func (s *storage) create(ctx context.Context, bucket, key string, model any) (uint64, error) {
	if key == "" {
		return 0, errs.NewValidation("key cannot be empty")
	}

	kv, err := s.client.bucket(bucket)
	if err != nil {
		return 0, err
	}

	data, err := json.Marshal(model)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.client.withTimeout(ctx)
	defer cancel()

	return kv.Create(ctx, key, data)
}

// putWithRevision stores a model in the NATS KV store with expected revision checking.
func (s *storage) putWithRevision(ctx context.Context, bucket, key string, model any, expectedRevision uint64) (uint64, error) {
	if key == "" {
		return 0, errs.NewValidation("key cannot be empty")
	}

	kv, err := s.client.bucket(bucket)
	if err != nil {
		return 0, err
	}

	data, err := json.Marshal(model)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.client.withTimeout(ctx)
	defer cancel()

	return kv.Update(ctx, key, data, expectedRevision)
}

func eventKey(tenantID, externalRef string) string {
	return fmt.Sprintf(constants.KVEventKeyPrefix, model.EventIndexKey(tenantID, externalRef))
}

// isKeyExists matches both Create on an existing key and Update with a stale revision
func isKeyExists(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

// NewStorage creates the NATS KV backed event store
func NewStorage(client *NATSClient) port.EventReaderWriter {
	return &storage{
		client: client,
	}
}
