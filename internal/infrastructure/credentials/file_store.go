// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package credentials loads tenant credentials and event type mappings from a
// YAML file mounted into the container.
package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"

	"gopkg.in/yaml.v3"
)

// fileMapping is the YAML shape of one mapping entry
type fileMapping struct {
	EventTypeRef string `yaml:"event_type_ref"`
	TenantID     string `yaml:"tenant_id"`
	DisplayName  string `yaml:"display_name"`
	Active       *bool  `yaml:"active"`
}

// fileContents is the YAML document:
//
//	tenants:
//	  - tenant_id: proj-a
//	    access_token: ...
//	    signing_secret: ...
//	mappings:
//	  - event_type_ref: https://api.example.com/event_types/ET1
//	    tenant_id: proj-a
type fileContents struct {
	Tenants  []model.TenantCredential `yaml:"tenants"`
	Mappings []fileMapping            `yaml:"mappings"`
}

// FileStore serves credentials and mappings loaded once at startup
type FileStore struct {
	tenants  map[string]model.TenantCredential
	order    []string
	mappings map[string][]model.EventTypeMapping
}

// GetAccessToken returns the tenant's token or NotFound
func (s *FileStore) GetAccessToken(_ context.Context, tenantID string) (string, error) {
	cred, ok := s.tenants[tenantID]
	if !ok || cred.AccessToken == "" {
		return "", errors.NewNotFound(fmt.Sprintf("no access token for tenant %s", tenantID))
	}
	return cred.AccessToken, nil
}

// GetSigningSecrets returns the tenant signing secrets in file order
func (s *FileStore) GetSigningSecrets(_ context.Context) ([]model.SigningCredential, error) {
	out := make([]model.SigningCredential, 0, len(s.order))
	for _, id := range s.order {
		cred := s.tenants[id]
		if cred.SigningSecret == "" {
			continue
		}
		out = append(out, cred.SigningCredential())
	}
	return out, nil
}

// ListActiveMappings returns the file's active mappings for the event type
func (s *FileStore) ListActiveMappings(_ context.Context, eventTypeRef string) ([]model.EventTypeMapping, error) {
	if eventTypeRef == "" {
		return nil, errors.NewValidation("event type reference is required")
	}
	src := s.mappings[eventTypeRef]
	out := make([]model.EventTypeMapping, 0, len(src))
	for _, m := range src {
		if m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

// Parse builds a FileStore from YAML bytes
func Parse(data []byte) (*FileStore, error) {
	var contents fileContents
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return nil, errors.NewConfiguration("invalid credentials file", err)
	}

	store := &FileStore{
		tenants:  make(map[string]model.TenantCredential, len(contents.Tenants)),
		mappings: make(map[string][]model.EventTypeMapping),
	}

	for i, t := range contents.Tenants {
		if t.TenantID == "" {
			return nil, errors.NewConfiguration(fmt.Sprintf("tenants[%d]: tenant_id is required", i))
		}
		if _, dup := store.tenants[t.TenantID]; dup {
			return nil, errors.NewConfiguration(fmt.Sprintf("tenants[%d]: duplicate tenant_id %s", i, t.TenantID))
		}
		store.tenants[t.TenantID] = t
		store.order = append(store.order, t.TenantID)
	}

	for i, m := range contents.Mappings {
		if m.EventTypeRef == "" || m.TenantID == "" {
			return nil, errors.NewConfiguration(fmt.Sprintf("mappings[%d]: event_type_ref and tenant_id are required", i))
		}
		active := true
		if m.Active != nil {
			active = *m.Active
		}
		store.mappings[m.EventTypeRef] = append(store.mappings[m.EventTypeRef], model.EventTypeMapping{
			ExternalEventTypeRef: m.EventTypeRef,
			TenantID:             m.TenantID,
			DisplayName:          m.DisplayName,
			Active:               active,
		})
	}
	for ref := range store.mappings {
		list := store.mappings[ref]
		sort.SliceStable(list, func(a, b int) bool { return list[a].TenantID < list[b].TenantID })
	}

	return store, nil
}

// LoadFile reads and parses the credentials file at path
func LoadFile(ctx context.Context, path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.NewConfiguration("CREDENTIALS_FILE is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfiguration("failed to read credentials file", err)
	}
	store, err := Parse(data)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "credentials file loaded",
		"tenants", len(store.tenants),
		"event_types", len(store.mappings),
	)
	return store, nil
}
