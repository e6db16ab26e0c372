package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/config"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/apikey"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/database"
)

const (
	tokenAudience = "factory"
	tokenIssuer   = "factoryd"
)

// Claims are the verified contents of an admin bearer token.
type Claims struct {
	Subject  string `json:"sub"`
	IssuedAt int64  `json:"iat"`
	Expiry   int64  `json:"exp"`
	JTI      string `json:"jti"`
	Audience string `json:"aud"`
	Issuer   string `json:"iss"`
}

// LoginResponse carries a fresh admin bearer token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// AuthService authenticates the admin operator and manages API keys.
// The token signing secret is generated per process, so admin sessions
// do not survive a restart; API keys do.
type AuthService struct {
	store  database.Store
	cfg    *config.Auth
	secret []byte
}

// NewAuthService creates the authentication service.
func NewAuthService(store database.Store, cfg *config.Auth) (*AuthService, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate token secret: %w", err)
	}
	return &AuthService{store: store, cfg: cfg, secret: secret}, nil
}

// Login verifies the admin credentials and issues a bearer token.
func (s *AuthService) Login(_ context.Context, username, password string) (*LoginResponse, error) {
	if s.cfg.AdminUser == "" || s.cfg.AdminPasswordHash == "" {
		return nil, fmt.Errorf("admin login is not configured: %w", domain.ErrUnauthorized)
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUser)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(password))
	if !userOK || passErr != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	token, err := s.signToken(username)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &LoginResponse{Token: token, ExpiresIn: int(s.tokenTTL().Seconds())}, nil
}

// ValidateToken verifies a bearer token and returns its claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	return s.verifyToken(tokenStr)
}

// CreateAPIKey mints and stores a new API key. The plain key is only
// present in the response.
func (s *AuthService) CreateAPIKey(ctx context.Context, req apikey.CreateRequest) (*apikey.CreateResponse, error) {
	resp, err := apikey.Generate(req, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}
	if err := s.store.CreateAPIKey(ctx, &resp.Key); err != nil {
		return nil, fmt.Errorf("store api key: %w", err)
	}
	slog.Info("api key created", "name", resp.Key.Name, "prefix", resp.Key.Prefix)
	return resp, nil
}

// ListAPIKeys returns all stored API keys.
func (s *AuthService) ListAPIKeys(ctx context.Context) ([]apikey.Key, error) {
	return s.store.ListAPIKeys(ctx)
}

// DeleteAPIKey revokes an API key.
func (s *AuthService) DeleteAPIKey(ctx context.Context, id string) error {
	return s.store.DeleteAPIKey(ctx, id)
}

// ValidateAPIKey looks up a key by its SHA-256 hash and checks expiry.
func (s *AuthService) ValidateAPIKey(ctx context.Context, rawKey string) (*apikey.Key, error) {
	if !strings.HasPrefix(rawKey, apikey.Prefix) {
		return nil, fmt.Errorf("malformed api key: %w", domain.ErrUnauthorized)
	}
	k, err := s.store.GetAPIKeyByHash(ctx, apikey.Hash(rawKey))
	if err != nil {
		return nil, fmt.Errorf("invalid api key: %w", domain.ErrUnauthorized)
	}
	now := time.Now().UTC()
	if k.Expired(now) {
		return nil, fmt.Errorf("api key expired: %w", domain.ErrUnauthorized)
	}
	if err := s.store.TouchAPIKey(ctx, k.ID, now); err != nil {
		slog.Debug("touch api key", "id", k.ID, "error", err)
	}
	return k, nil
}

func (s *AuthService) tokenTTL() time.Duration {
	if s.cfg.TokenTTL > 0 {
		return s.cfg.TokenTTL
	}
	return time.Hour
}

// --- Token implementation (HS256 with stdlib) ---

// tokenHeader is the fixed base64url-encoded header for HS256.
var tokenHeader = base64URLEncode([]byte(`{"alg":"HS256","typ":"JWT"}`))

func (s *AuthService) signToken(subject string) (string, error) {
	now := time.Now()
	claims := Claims{
		Subject:  subject,
		IssuedAt: now.Unix(),
		Expiry:   now.Add(s.tokenTTL()).Unix(),
		JTI:      uuid.New().String(),
		Audience: tokenAudience,
		Issuer:   tokenIssuer,
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	signingInput := tokenHeader + "." + base64URLEncode(payload)

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	sig := base64URLEncode(mac.Sum(nil))

	return signingInput + "." + sig, nil
}

func (s *AuthService) verifyToken(tokenStr string) (*Claims, error) {
	parts := strings.SplitN(tokenStr, ".", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed token: %w", domain.ErrUnauthorized)
	}

	signingInput := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signingInput))
	expectedSig := base64URLEncode(mac.Sum(nil))

	if !hmac.Equal([]byte(parts[2]), []byte(expectedSig)) {
		return nil, fmt.Errorf("invalid signature: %w", domain.ErrUnauthorized)
	}

	payload, err := base64URLDecode(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	if time.Now().Unix() > claims.Expiry {
		return nil, fmt.Errorf("token expired: %w", domain.ErrUnauthorized)
	}
	if claims.Audience != tokenAudience {
		return nil, fmt.Errorf("invalid token audience: %w", domain.ErrUnauthorized)
	}
	if claims.Issuer != tokenIssuer {
		return nil, fmt.Errorf("invalid token issuer: %w", domain.ErrUnauthorized)
	}

	return &claims, nil
}

// --- Helpers ---

func base64URLEncode(data []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(data), "=")
}

func base64URLDecode(s string) ([]byte, error) {
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.DecodeString(s)
}
