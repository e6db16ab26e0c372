package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/apikey"
)

func (s *Store) CreateAPIKey(ctx context.Context, k *apikey.Key) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_keys (id, name, prefix, key_hash, scopes, expires_at, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		k.ID, k.Name, k.Prefix, k.KeyHash, pgTextArray(k.Scopes), nullTime(k.ExpiresAt), k.CreatedAt, nullTime(k.LastUsedAt),
	)
	if err != nil {
		return conflictWrap(err, "create api key %s", k.ID)
	}
	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*apikey.Key, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, prefix, key_hash, scopes, expires_at, created_at, last_used_at
		FROM api_keys WHERE key_hash = $1`, hash)

	k, err := scanAPIKey(row)
	if err != nil {
		return nil, notFoundWrap(err, "get api key")
	}
	return &k, nil
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]apikey.Key, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, prefix, key_hash, scopes, expires_at, created_at, last_used_at
		FROM api_keys ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []apikey.Key
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete api key %s", id)
}

func (s *Store) TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, usedAt)
	return execExpectOne(tag, err, "touch api key %s", id)
}

func scanAPIKey(row scannable) (apikey.Key, error) {
	var k apikey.Key
	var expiresAt, lastUsedAt sql.NullTime
	err := row.Scan(&k.ID, &k.Name, &k.Prefix, &k.KeyHash, &k.Scopes, &expiresAt, &k.CreatedAt, &lastUsedAt)
	if err != nil {
		return k, err
	}
	if expiresAt.Valid {
		k.ExpiresAt = expiresAt.Time
	}
	if lastUsedAt.Valid {
		k.LastUsedAt = lastUsedAt.Time
	}
	return k, nil
}
