// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const selectEvent = `SELECT uid, tenant_id, external_event_ref, external_event_type_ref, display_name,
	scheduled_at, status, invitee_name, invitee_email, source, revision, created_at, updated_at
FROM scheduled_events WHERE tenant_id = $1 AND external_event_ref = $2`

const insertEvent = `INSERT INTO scheduled_events (uid, tenant_id, external_event_ref, external_event_type_ref,
	display_name, scheduled_at, status, invitee_name, invitee_email, source, revision, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $12)`

const updateEvent = `UPDATE scheduled_events SET external_event_type_ref = $3, display_name = $4, scheduled_at = $5,
	status = $6, invitee_name = $7, invitee_email = $8, source = $9, updated_at = $10, revision = revision + 1
WHERE tenant_id = $1 AND external_event_ref = $2 AND revision = $11
RETURNING revision`

const selectActiveMappings = `SELECT external_event_type_ref, tenant_id, display_name, active, created_at, updated_at
FROM event_type_mappings WHERE external_event_type_ref = $1 AND active
ORDER BY tenant_id`

type storage struct {
	client *Client
}

// GetEvent reads one event by its idempotency key
func (s *storage) GetEvent(ctx context.Context, tenantID, externalRef string) (*model.PersistedEvent, uint64, error) {
	var (
		ev       model.PersistedEvent
		status   string
		revision int64
	)
	err := s.client.pool.QueryRow(ctx, selectEvent, tenantID, externalRef).Scan(
		&ev.UID, &ev.TenantID, &ev.ExternalEventRef, &ev.ExternalEventTypeRef, &ev.DisplayName,
		&ev.ScheduledAt, &status, &ev.InviteeName, &ev.InviteeEmail, &ev.Source, &revision,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, errs.NewNotFound("event not found")
		}
		return nil, 0, mapPgError(ctx, "failed to get event", err)
	}
	ev.Status = model.EventStatus(status)
	return &ev, uint64(revision), nil
}

// CreateEvent inserts a row; the unique constraint is the race arbiter
func (s *storage) CreateEvent(ctx context.Context, ev *model.PersistedEvent) (*model.PersistedEvent, uint64, error) {
	_, err := s.client.pool.Exec(ctx, insertEvent,
		ev.UID, ev.TenantID, ev.ExternalEventRef, ev.ExternalEventTypeRef, ev.DisplayName,
		ev.ScheduledAt, string(ev.Status), ev.InviteeName, ev.InviteeEmail, ev.Source,
		ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		return nil, 0, mapPgError(ctx, "failed to create event", err)
	}
	return ev, 1, nil
}

// UpdateEvent updates in place when the row still has the expected revision
func (s *storage) UpdateEvent(ctx context.Context, ev *model.PersistedEvent, expectedRevision uint64) (*model.PersistedEvent, uint64, error) {
	var revision int64
	err := s.client.pool.QueryRow(ctx, updateEvent,
		ev.TenantID, ev.ExternalEventRef, ev.ExternalEventTypeRef, ev.DisplayName, ev.ScheduledAt,
		string(ev.Status), ev.InviteeName, ev.InviteeEmail, ev.Source, ev.UpdatedAt,
		int64(expectedRevision),
	).Scan(&revision)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, errs.NewConflict("event was modified concurrently")
		}
		return nil, 0, mapPgError(ctx, "failed to update event", err)
	}
	return ev, uint64(revision), nil
}

// IsReady pings the pool
func (s *storage) IsReady(ctx context.Context) error {
	return s.client.IsReady(ctx)
}

// ListActiveMappings returns the active tenants subscribed to the event type
func (s *storage) ListActiveMappings(ctx context.Context, eventTypeRef string) ([]model.EventTypeMapping, error) {
	if eventTypeRef == "" {
		return nil, errs.NewValidation("event type reference is required")
	}

	rows, err := s.client.pool.Query(ctx, selectActiveMappings, eventTypeRef)
	if err != nil {
		return nil, mapPgError(ctx, "failed to list event type mappings", err)
	}
	defer rows.Close()

	mappings := make([]model.EventTypeMapping, 0)
	for rows.Next() {
		var m model.EventTypeMapping
		if errScan := rows.Scan(&m.ExternalEventTypeRef, &m.TenantID, &m.DisplayName, &m.Active, &m.CreatedAt, &m.UpdatedAt); errScan != nil {
			return nil, mapPgError(ctx, "failed to scan event type mapping", errScan)
		}
		mappings = append(mappings, m)
	}
	if errRows := rows.Err(); errRows != nil {
		return nil, mapPgError(ctx, "failed to list event type mappings", errRows)
	}
	return mappings, nil
}

// mapPgError turns the unique violation on the idempotency key into Conflict
// and everything else into ServiceUnavailable
func mapPgError(ctx context.Context, message string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		slog.WarnContext(ctx, "constraint violation",
			"constraint", pgErr.ConstraintName,
			"expected_constraint", constants.ScheduledEventsUniqueConstraint,
		)
		return errs.NewConflict("event already exists for tenant", err)
	}
	slog.ErrorContext(ctx, message, "error", err)
	return errs.NewServiceUnavailable(message, err)
}

// NewStorage creates the Postgres backed event store
func NewStorage(client *Client) port.EventReaderWriter {
	return &storage{client: client}
}

// NewMappingReader creates the Postgres backed mapping reader
func NewMappingReader(client *Client) port.EventTypeMappingReader {
	return &storage{client: client}
}
