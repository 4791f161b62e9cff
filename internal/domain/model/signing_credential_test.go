// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSigningSecrets_Candidates(t *testing.T) {
	secrets := SigningSecrets{
		Tenants: []SigningCredential{
			{TenantID: "t1", Secret: "s1"},
			{TenantID: "t2", Secret: ""},
			{TenantID: "", Secret: "orphan"},
			{TenantID: "t3", Secret: "s3"},
		},
		Fallback: "global",
	}

	got := secrets.Candidates()

	assert.Equal(t, []SigningCredential{
		{TenantID: "t1", Secret: "s1"},
		{TenantID: "t3", Secret: "s3"},
		{Secret: "global"},
	}, got)
	assert.True(t, got[len(got)-1].IsFallback())
	assert.False(t, got[0].IsFallback())
	assert.False(t, secrets.Empty())
}

func TestSigningSecrets_Empty(t *testing.T) {
	assert.True(t, SigningSecrets{}.Empty())
	assert.True(t, SigningSecrets{Tenants: []SigningCredential{{TenantID: "t1"}}}.Empty())
	assert.False(t, SigningSecrets{Fallback: "global"}.Empty())
}
