package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// APIKey is a stored API key. The key itself is never stored, only its HMAC.
type APIKey struct {
	ID         string       `db:"api_key_id"`
	Name       string       `db:"name"`
	SecretID   string       `db:"secret_id"`
	CreatedAt  time.Time    `db:"created_at"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
	RevokedAt  sql.NullTime `db:"revoked_at"`
}

// APIKeyStore manages the api_keys table.
type APIKeyStore struct {
	q *Queries
}

// NewAPIKeyStore returns a store over q.
func NewAPIKeyStore(q *Queries) *APIKeyStore {
	return &APIKeyStore{q: q}
}

// Insert records a new key under name and returns its id.
func (s *APIKeyStore) Insert(name, secretID string, keyHash []byte) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	if _, err := s.q.Exec("insert-api-key", id, name, secretID, keyHash, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("failed to insert api key: %w", err)
	}
	return id, nil
}

// Revoke marks the key revoked. Revoking twice is an error.
func (s *APIKeyStore) Revoke(id string) error {
	res, err := s.q.Exec("revoke-api-key", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("api key %s not found or already revoked", id)
	}
	return nil
}

// List returns all keys, oldest first.
func (s *APIKeyStore) List() ([]APIKey, error) {
	var keys []APIKey
	if err := s.q.Select("list-api-keys", &keys); err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}
