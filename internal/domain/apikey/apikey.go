// Package apikey defines programmatic access credentials. Keys are
// random, prefixed for identification and stored only as SHA-256
// hashes; the plain key is shown once at creation.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Prefix is prepended to generated API keys for identification.
const Prefix = "fck_"

// Resource-based API key scopes.
const (
	ScopeRunsRead    = "runs:read"
	ScopeRunsWrite   = "runs:write"
	ScopeCatalogRead = "catalog:read"
	ScopeAdminAll    = "admin:all"
)

// ValidScopes is the set of all recognized scopes.
var ValidScopes = map[string]bool{
	ScopeRunsRead:    true,
	ScopeRunsWrite:   true,
	ScopeCatalogRead: true,
	ScopeAdminAll:    true,
}

// Key is a stored API key. KeyHash is the SHA-256 of the full plain key.
type Key struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Prefix     string    `json:"prefix"` // first 12 chars for display
	KeyHash    string    `json:"-"`
	Scopes     []string  `json:"scopes,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// HasScope reports whether the key grants the required scope. A key
// with no scopes grants everything, as does admin:all.
func (k *Key) HasScope(required string) bool {
	if len(k.Scopes) == 0 {
		return true
	}
	for _, s := range k.Scopes {
		if s == required || s == ScopeAdminAll {
			return true
		}
	}
	return false
}

// Expired reports whether the key has an expiry in the past.
func (k *Key) Expired(now time.Time) bool {
	return !k.ExpiresAt.IsZero() && now.After(k.ExpiresAt)
}

// CreateRequest is the input for minting a new key.
type CreateRequest struct {
	Name      string   `json:"name"`
	ExpiresIn int      `json:"expires_in,omitempty"` // seconds; 0 = no expiry
	Scopes    []string `json:"scopes,omitempty"`
}

// Validate checks the request fields.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	for _, s := range r.Scopes {
		if !ValidScopes[s] {
			return fmt.Errorf("invalid scope: %s", s)
		}
	}
	return nil
}

// CreateResponse carries the stored key plus the plain key, which is
// only returned once.
type CreateResponse struct {
	Key      Key    `json:"key"`
	PlainKey string `json:"plain_key"`
}

// Generate mints a new key from the request. The plain key never
// touches storage; callers persist the returned Key.
func Generate(req CreateRequest, now time.Time) (*CreateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate key material: %w", err)
	}
	plain := Prefix + hex.EncodeToString(raw)

	var expiresAt time.Time
	if req.ExpiresIn > 0 {
		expiresAt = now.Add(time.Duration(req.ExpiresIn) * time.Second)
	}

	k := Key{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Prefix:    plain[:12],
		KeyHash:   Hash(plain),
		Scopes:    req.Scopes,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	return &CreateResponse{Key: k, PlainKey: plain}, nil
}

// Hash returns the hex SHA-256 of a plain key.
func Hash(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
