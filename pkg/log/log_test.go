// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogOptionalTime(t *testing.T) {
	ts := time.Date(2025, 3, 4, 15, 0, 0, 0, time.FixedZone("EST", -5*3600))

	tests := []struct {
		name     string
		input    *time.Time
		expected slog.Value
	}{
		{
			name:     "nil pointer returns nil value",
			input:    nil,
			expected: slog.AnyValue(nil),
		},
		{
			name:     "value is formatted in UTC",
			input:    &ts,
			expected: slog.StringValue("2025-03-04T20:00:00Z"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := LogOptionalTime(tt.input)
			assert.True(t, result.Equal(tt.expected), "got %v, want %v", result, tt.expected)
		})
	}
}

func TestAppendCtx(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := AppendCtx(context.Background(), slog.String("tenant_id", "proj-1"))
	ctx = AppendCtx(ctx, slog.String("event_type", "et-9"))

	logger.InfoContext(ctx, "reconciled")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "reconciled", record["msg"])
	assert.Equal(t, "proj-1", record["tenant_id"])
	assert.Equal(t, "et-9", record["event_type"])
}

func TestAppendCtxSiblingsAreIndependent(t *testing.T) {
	parent := AppendCtx(context.Background(), slog.String("event_ref", "ev-1"))
	parent = AppendCtx(parent, slog.String("kind", "invitee.created"))
	parent = AppendCtx(parent, slog.String("matched_tenant", "T1"))

	first := AppendCtx(parent, slog.String("tenant_id", "T1"))
	second := AppendCtx(parent, slog.String("tenant_id", "T2"))

	firstAttrs := first.Value(slogFields).([]slog.Attr)
	secondAttrs := second.Value(slogFields).([]slog.Attr)
	require.Len(t, firstAttrs, 4)
	require.Len(t, secondAttrs, 4)
	assert.Equal(t, "T1", firstAttrs[3].Value.String())
	assert.Equal(t, "T2", secondAttrs[3].Value.String())
	assert.Len(t, parent.Value(slogFields).([]slog.Attr), 3)
}

func TestAppendCtxConcurrentChildren(t *testing.T) {
	parent := AppendCtx(context.Background(), slog.String("event_ref", "ev-1"))
	parent = AppendCtx(parent, slog.String("kind", "invitee.created"))
	parent = AppendCtx(parent, slog.String("matched_tenant", "T1"))

	const workers = 16
	results := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := AppendCtx(parent, slog.Int("worker", i))
			attrs := ctx.Value(slogFields).([]slog.Attr)
			results[i] = attrs[len(attrs)-1].Value.String()
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, strconv.Itoa(i), got)
	}
}

func TestAppendCtxNilParent(t *testing.T) {
	//nolint:staticcheck // nil parent is tolerated
	ctx := AppendCtx(nil, slog.String("k", "v"))
	require.NotNil(t, ctx)

	attrs, ok := ctx.Value(slogFields).([]slog.Attr)
	require.True(t, ok)
	assert.Len(t, attrs, 1)
}

func TestPriorityCritical(t *testing.T) {
	attr := PriorityCritical()
	assert.Equal(t, "priority", attr.Key)
	assert.Equal(t, "critical", attr.Value.String())
}
