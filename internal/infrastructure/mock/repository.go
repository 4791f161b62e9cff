// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"
)

// Global mock repository instance to share data between all providers
var (
	globalMockRepo     *MockRepository
	globalMockRepoOnce = &sync.Once{}
)

// MockRepository is an in-memory event store, mapping table, credential
// store and project directory
type MockRepository struct {
	events       map[string]*model.PersistedEvent // index key -> event
	revisions    map[string]uint64                // index key -> revision
	mappings     map[string][]model.EventTypeMapping
	tenants      []model.TenantCredential
	projectNames map[string]string

	// error simulation
	operationErrors map[string]error
	globalError     error

	// beforeCreate runs without the lock just before an insert is applied,
	// letting tests interleave a competing writer
	beforeCreate func(event *model.PersistedEvent)

	mu sync.RWMutex
}

// SharedMockRepository returns the process-wide repository with sample data
func SharedMockRepository() *MockRepository {
	globalMockRepoOnce.Do(func() {
		repo := NewMockRepository()
		repo.AddTenant(model.TenantCredential{
			TenantID:      "7cad5a8d-19d0-41a4-81a6-043453daf9ee",
			AccessToken:   "mock-access-token",
			SigningSecret: "mock-signing-secret",
		})
		repo.AddMapping(model.EventTypeMapping{
			ExternalEventTypeRef: "https://api.calendly.com/event_types/MOCK-TYPE",
			TenantID:             "7cad5a8d-19d0-41a4-81a6-043453daf9ee",
			DisplayName:          "Cloud Native Computing Foundation",
			Active:               true,
		})
		repo.AddProject("7cad5a8d-19d0-41a4-81a6-043453daf9ee", "Cloud Native Computing Foundation")
		globalMockRepo = repo
	})
	return globalMockRepo
}

// NewMockRepository creates an empty repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		events:          make(map[string]*model.PersistedEvent),
		revisions:       make(map[string]uint64),
		mappings:        make(map[string][]model.EventTypeMapping),
		projectNames:    make(map[string]string),
		operationErrors: make(map[string]error),
	}
}

// SetErrorForOperation makes the named operation fail with err
func (m *MockRepository) SetErrorForOperation(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operationErrors[operation] = err
}

// SetGlobalError makes every operation fail with err
func (m *MockRepository) SetGlobalError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globalError = err
}

// ClearErrors removes all simulated errors
func (m *MockRepository) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operationErrors = make(map[string]error)
	m.globalError = nil
}

// BeforeCreate installs a hook run ahead of every insert
func (m *MockRepository) BeforeCreate(hook func(event *model.PersistedEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beforeCreate = hook
}

func (m *MockRepository) simulatedError(operation string) error {
	if m.globalError != nil {
		return m.globalError
	}
	return m.operationErrors[operation]
}

// GetEvent returns a copy of the stored event
func (m *MockRepository) GetEvent(ctx context.Context, tenantID, externalRef string) (*model.PersistedEvent, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.simulatedError("GetEvent"); err != nil {
		return nil, 0, err
	}

	key := model.EventIndexKey(tenantID, externalRef)
	ev, ok := m.events[key]
	if !ok {
		return nil, 0, errors.NewNotFound(fmt.Sprintf("event %s not found for tenant %s", externalRef, tenantID))
	}
	cp := *ev
	return &cp, m.revisions[key], nil
}

// CreateEvent inserts unless the idempotency key exists
func (m *MockRepository) CreateEvent(ctx context.Context, event *model.PersistedEvent) (*model.PersistedEvent, uint64, error) {
	m.mu.RLock()
	hook := m.beforeCreate
	m.mu.RUnlock()
	if hook != nil {
		hook(event)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.simulatedError("CreateEvent"); err != nil {
		return nil, 0, err
	}

	key := event.BuildIndexKey()
	if _, exists := m.events[key]; exists {
		return nil, 0, errors.NewConflict("event already exists for tenant")
	}
	cp := *event
	m.events[key] = &cp
	m.revisions[key] = 1

	slog.DebugContext(ctx, "mock event created", "tenant_id", event.TenantID, "event_uid", event.UID)
	return event, 1, nil
}

// UpdateEvent replaces the event when the revision matches
func (m *MockRepository) UpdateEvent(ctx context.Context, event *model.PersistedEvent, expectedRevision uint64) (*model.PersistedEvent, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.simulatedError("UpdateEvent"); err != nil {
		return nil, 0, err
	}

	key := event.BuildIndexKey()
	current, exists := m.revisions[key]
	if !exists {
		return nil, 0, errors.NewNotFound("event not found")
	}
	if current != expectedRevision {
		return nil, 0, errors.NewConflict(fmt.Sprintf("revision mismatch: expected %d, current %d", expectedRevision, current))
	}
	cp := *event
	m.events[key] = &cp
	m.revisions[key] = current + 1

	slog.DebugContext(ctx, "mock event updated", "tenant_id", event.TenantID, "revision", current+1)
	return event, current + 1, nil
}

// IsReady always succeeds unless an error is simulated
func (m *MockRepository) IsReady(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.simulatedError("IsReady")
}

// ListActiveMappings returns active mappings ordered by tenant
func (m *MockRepository) ListActiveMappings(ctx context.Context, eventTypeRef string) ([]model.EventTypeMapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.simulatedError("ListActiveMappings"); err != nil {
		return nil, err
	}

	out := make([]model.EventTypeMapping, 0)
	for _, mapping := range m.mappings[eventTypeRef] {
		if mapping.Active {
			out = append(out, mapping)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].TenantID < out[b].TenantID })
	return out, nil
}

// GetAccessToken returns the tenant's token
func (m *MockRepository) GetAccessToken(ctx context.Context, tenantID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.simulatedError("GetAccessToken"); err != nil {
		return "", err
	}
	for _, t := range m.tenants {
		if t.TenantID == tenantID && t.AccessToken != "" {
			return t.AccessToken, nil
		}
	}
	return "", errors.NewNotFound(fmt.Sprintf("no access token for tenant %s", tenantID))
}

// GetSigningSecrets returns tenant secrets in insertion order
func (m *MockRepository) GetSigningSecrets(ctx context.Context) ([]model.SigningCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.simulatedError("GetSigningSecrets"); err != nil {
		return nil, err
	}
	out := make([]model.SigningCredential, 0, len(m.tenants))
	for _, t := range m.tenants {
		if t.SigningSecret != "" {
			out = append(out, t.SigningCredential())
		}
	}
	return out, nil
}

// ProjectName returns the registered project name
func (m *MockRepository) ProjectName(ctx context.Context, uid string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.simulatedError("ProjectName"); err != nil {
		return "", err
	}
	if name, ok := m.projectNames[uid]; ok {
		return name, nil
	}
	return "", errors.NewNotFound(fmt.Sprintf("project %s not found", uid))
}

// AddTenant registers tenant credentials
func (m *MockRepository) AddTenant(cred model.TenantCredential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants = append(m.tenants, cred)
}

// AddMapping registers an event type mapping
func (m *MockRepository) AddMapping(mapping model.EventTypeMapping) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = now
	}
	if mapping.UpdatedAt.IsZero() {
		mapping.UpdatedAt = now
	}
	m.mappings[mapping.ExternalEventTypeRef] = append(m.mappings[mapping.ExternalEventTypeRef], mapping)
}

// AddProject registers a project name
func (m *MockRepository) AddProject(uid, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projectNames[uid] = name
}

// SeedEvent stores an event directly, bypassing uniqueness checks
func (m *MockRepository) SeedEvent(event *model.PersistedEvent) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := event.BuildIndexKey()
	cp := *event
	m.events[key] = &cp
	m.revisions[key]++
	return m.revisions[key]
}

// Events returns copies of all stored events
func (m *MockRepository) Events() []model.PersistedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.PersistedEvent, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, *ev)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].TenantID != out[b].TenantID {
			return out[a].TenantID < out[b].TenantID
		}
		return out[a].ExternalEventRef < out[b].ExternalEventRef
	})
	return out
}

// EventCount returns the number of stored events
func (m *MockRepository) EventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// ClearAll removes stored events and simulated errors
func (m *MockRepository) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = make(map[string]*model.PersistedEvent)
	m.revisions = make(map[string]uint64)
	m.operationErrors = make(map[string]error)
	m.globalError = nil
	m.beforeCreate = nil
}

var (
	_ port.EventReaderWriter      = (*MockRepository)(nil)
	_ port.EventTypeMappingReader = (*MockRepository)(nil)
	_ port.CredentialReader       = (*MockRepository)(nil)
	_ port.ProjectReader          = (*MockRepository)(nil)
)
