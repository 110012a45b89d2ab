package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/gophlogin/internal/logger"
	"github.com/atinyakov/gophlogin/internal/models"
	"go.uber.org/zap"
)

// ErrNoToken is returned by TokenStore.Get when no token was stored yet.
var ErrNoToken = errors.New("no access token stored")

// TokenStore reads and writes the access token under models.AccessTokenKey.
type TokenStore struct {
	kv  KV
	log *zap.Logger
}

// NewTokenStore wraps kv. log may be nil.
func NewTokenStore(kv KV, log *zap.Logger) *TokenStore {
	return &TokenStore{kv: kv, log: logger.OrNop(log)}
}

// Set persists token. Store failures are logged and returned.
func (t *TokenStore) Set(ctx context.Context, token string) error {
	if err := t.kv.Set(ctx, models.AccessTokenKey, token); err != nil {
		t.log.Error("failed to store access token", zap.Error(err))
		return fmt.Errorf("store access token: %w", err)
	}
	t.log.Debug("access token stored")
	return nil
}

// Get returns the stored token, or ErrNoToken when nothing is stored.
func (t *TokenStore) Get(ctx context.Context) (string, error) {
	token, err := t.kv.Get(ctx, models.AccessTokenKey)
	if errors.Is(err, ErrNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		t.log.Error("failed to read access token", zap.Error(err))
		return "", fmt.Errorf("read access token: %w", err)
	}
	return token, nil
}

// Clear forgets the stored token.
func (t *TokenStore) Clear(ctx context.Context) error {
	if err := t.kv.Delete(ctx, models.AccessTokenKey); err != nil {
		t.log.Error("failed to clear access token", zap.Error(err))
		return fmt.Errorf("clear access token: %w", err)
	}
	return nil
}
