package domain

import "testing"

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		name string
		c    Classification
		opts PolicyOptions
		want Policy
	}{
		{
			name: "public never encrypts",
			c:    Public,
			opts: PolicyOptions{DefaultEncryption: true, SecurityLevel: SecurityMaximum},
			want: Policy{AccessLevel: AccessDevice},
		},
		{
			name: "internal follows default off",
			c:    Internal,
			opts: PolicyOptions{DefaultEncryption: false},
			want: Policy{AccessLevel: AccessDevice},
		},
		{
			name: "internal follows default on",
			c:    Internal,
			opts: PolicyOptions{DefaultEncryption: true},
			want: Policy{RequireEncryption: true, AccessLevel: AccessDevice},
		},
		{
			name: "confidential standard",
			c:    Confidential,
			opts: PolicyOptions{SecurityLevel: SecurityStandard},
			want: Policy{RequireEncryption: true, AccessLevel: AccessUser},
		},
		{
			name: "confidential high",
			c:    Confidential,
			opts: PolicyOptions{SecurityLevel: SecurityHigh},
			want: Policy{RequireEncryption: true, AccessLevel: AccessUser},
		},
		{
			name: "confidential maximum",
			c:    Confidential,
			opts: PolicyOptions{SecurityLevel: SecurityMaximum},
			want: Policy{RequireEncryption: true, RequireStrongAuth: true, AccessLevel: AccessUser},
		},
		{
			name: "secret",
			c:    Secret,
			want: Policy{RequireEncryption: true, RequireStrongAuth: true, AccessLevel: AccessBiometric},
		},
		{
			name: "unknown falls back to secret",
			c:    Classification(42),
			want: Policy{RequireEncryption: true, RequireStrongAuth: true, AccessLevel: AccessBiometric},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PolicyFor(tt.c, tt.opts); got != tt.want {
				t.Errorf("PolicyFor(%v) = %+v, want %+v", tt.c, got, tt.want)
			}
		})
	}
}
