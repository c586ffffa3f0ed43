package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/yukyudata/deployops/internal/platform"
)

// APIKeyStore manages API keys for the deployment API.
type APIKeyStore struct {
	db DB
}

func NewAPIKeyStore(db DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

// Create generates a new API key, stores its SHA-256 hash, and returns the
// key ID along with the raw key string. The raw key must be shown to the
// operator exactly once.
func (s *APIKeyStore) Create(ctx context.Context, name string) (string, string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	rawKey := "dpo_" + hex.EncodeToString(rawBytes)

	id := platform.NewID()
	hash := sha256.Sum256([]byte(rawKey))
	keyHash := hex.EncodeToString(hash[:])

	_, err := s.db.Exec(ctx,
		`INSERT INTO api_keys (id, key_hash, name, created_at) VALUES ($1, $2, $3, $4)`,
		id, keyHash, name, time.Now().UTC(),
	)
	if err != nil {
		return "", "", fmt.Errorf("insert api key: %w", err)
	}
	return id, rawKey, nil
}

// Revoke marks a key as revoked; revoked keys fail authentication immediately.
func (s *APIKeyStore) Revoke(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE api_keys SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("revoke api key %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api key %s not found or already revoked", id)
	}
	return nil
}
