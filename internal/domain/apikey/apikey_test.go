package apikey

import (
	"strings"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	now := time.Now()
	resp, err := Generate(CreateRequest{Name: "ci", Scopes: []string{ScopeRunsRead}}, now)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(resp.PlainKey, Prefix) {
		t.Errorf("plain key %q missing prefix %q", resp.PlainKey, Prefix)
	}
	if resp.Key.KeyHash != Hash(resp.PlainKey) {
		t.Error("stored hash does not match plain key")
	}
	if resp.Key.Prefix != resp.PlainKey[:12] {
		t.Errorf("display prefix = %q, want %q", resp.Key.Prefix, resp.PlainKey[:12])
	}
	if !resp.Key.ExpiresAt.IsZero() {
		t.Error("expected no expiry when ExpiresIn is 0")
	}
}

func TestGenerateExpiry(t *testing.T) {
	now := time.Now()
	resp, err := Generate(CreateRequest{Name: "short", ExpiresIn: 3600}, now)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := now.Add(time.Hour)
	if !resp.Key.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", resp.Key.ExpiresAt, want)
	}
	if resp.Key.Expired(now) {
		t.Error("key should not be expired yet")
	}
	if !resp.Key.Expired(now.Add(2 * time.Hour)) {
		t.Error("key should be expired after its TTL")
	}
}

func TestGenerateRejectsInvalid(t *testing.T) {
	if _, err := Generate(CreateRequest{}, time.Now()); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := Generate(CreateRequest{Name: "x", Scopes: []string{"bogus"}}, time.Now()); err == nil {
		t.Error("expected error for unknown scope")
	}
}

func TestHasScope(t *testing.T) {
	tests := []struct {
		name     string
		scopes   []string
		required string
		want     bool
	}{
		{"empty scopes grant everything", nil, ScopeRunsWrite, true},
		{"exact match", []string{ScopeRunsRead}, ScopeRunsRead, true},
		{"missing scope", []string{ScopeRunsRead}, ScopeRunsWrite, false},
		{"admin grants everything", []string{ScopeAdminAll}, ScopeCatalogRead, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := Key{Scopes: tt.scopes}
			if got := k.HasScope(tt.required); got != tt.want {
				t.Errorf("HasScope(%q) = %v, want %v", tt.required, got, tt.want)
			}
		})
	}
}

func TestHashDeterministic(t *testing.T) {
	a := Hash("fck_abc")
	b := Hash("fck_abc")
	if a != b {
		t.Error("hash of identical input differs")
	}
	if a == Hash("fck_abd") {
		t.Error("hash of different input collides")
	}
}
