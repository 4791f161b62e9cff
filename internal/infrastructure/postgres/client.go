// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package postgres provides the relational event and mapping stores.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/linuxfoundation/lfx-v2-scheduling-webhook-service/pkg/errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Client wraps the pgx connection pool
type Client struct {
	pool *pgxpool.Pool
}

// Close releases the pool
func (c *Client) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}

// IsReady pings the database
func (c *Client) IsReady(ctx context.Context) error {
	if c.pool == nil {
		return errors.NewServiceUnavailable("postgres pool is not initialized")
	}
	if err := c.pool.Ping(ctx); err != nil {
		slog.ErrorContext(ctx, "postgres is not ready", "error", err)
		return errors.NewServiceUnavailable("postgres is not ready", err)
	}
	return nil
}

// Migrate applies every embedded migration in name order
func (c *Client) Migrate(ctx context.Context) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return errors.NewUnexpected("failed to read migrations", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		data, errRead := migrations.ReadFile("migrations/" + name)
		if errRead != nil {
			return errors.NewUnexpected("failed to read migration", errRead)
		}
		for _, stmt := range splitStatements(string(data)) {
			if _, errExec := c.pool.Exec(ctx, stmt); errExec != nil {
				slog.ErrorContext(ctx, "migration failed", "migration", name, "error", errExec)
				return errors.NewServiceUnavailable(fmt.Sprintf("failed to apply migration %s", name), errExec)
			}
		}
		slog.DebugContext(ctx, "migration applied", "migration", name)
	}
	return nil
}

func splitStatements(script string) []string {
	parts := strings.Split(script, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// NewClient opens a pool and optionally migrates the schema
func NewClient(ctx context.Context, config Config) (*Client, error) {
	if config.DSN == "" {
		return nil, errors.NewConfiguration("POSTGRES_DSN is required")
	}

	poolConfig, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, errors.NewConfiguration("invalid postgres DSN", err)
	}
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.NewServiceUnavailable("unable to create postgres pool", err)
	}

	client := &Client{pool: pool}
	if err := client.IsReady(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if config.Migrate {
		if err := client.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}

	slog.InfoContext(ctx, "postgres client created successfully",
		"max_conns", poolConfig.MaxConns,
	)
	return client, nil
}
