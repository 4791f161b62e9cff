// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

// SigningCredential is a webhook signing secret. An empty TenantID marks the
// process-wide fallback.
type SigningCredential struct {
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
	Secret   string `json:"secret" yaml:"secret"`
}

// IsFallback reports whether the credential is not bound to a tenant
func (c SigningCredential) IsFallback() bool {
	return c.TenantID == ""
}

// SigningSecrets is the full candidate set for one verification
type SigningSecrets struct {
	Tenants  []SigningCredential
	Fallback string
}

// Candidates returns tenant-scoped credentials first, then the fallback.
// Entries without a secret are dropped.
func (s SigningSecrets) Candidates() []SigningCredential {
	out := make([]SigningCredential, 0, len(s.Tenants)+1)
	for _, c := range s.Tenants {
		if c.Secret == "" || c.TenantID == "" {
			continue
		}
		out = append(out, c)
	}
	if s.Fallback != "" {
		out = append(out, SigningCredential{Secret: s.Fallback})
	}
	return out
}

// Empty reports whether there is nothing to verify against
func (s SigningSecrets) Empty() bool {
	return len(s.Candidates()) == 0
}

// TenantCredential is one tenant's stored scheduling credentials
type TenantCredential struct {
	TenantID      string `json:"tenant_id" yaml:"tenant_id"`
	AccessToken   string `json:"access_token" yaml:"access_token"`
	SigningSecret string `json:"signing_secret" yaml:"signing_secret"`
}

// SigningCredential returns the tenant-scoped signing credential
func (c TenantCredential) SigningCredential() SigningCredential {
	return SigningCredential{TenantID: c.TenantID, Secret: c.SigningSecret}
}
