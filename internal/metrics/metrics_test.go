// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefaultIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterDefault()
		RegisterDefault()
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	RegisterDefault()

	before := testutil.ToFloat64(ReconcileOutcomes.WithLabelValues("created", ""))
	ReconcileOutcomes.WithLabelValues("created", "").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ReconcileOutcomes.WithLabelValues("created", "")))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "scheduling_reconcile_outcomes_total")
}
