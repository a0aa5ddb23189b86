package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// RefreshService issues opaque refresh tokens and rotates them on use.
type RefreshService struct {
	store    core.RefreshStore
	lifetime time.Duration
}

func NewRefreshService(cfg config.RefreshConfig, store core.RefreshStore) *RefreshService {
	return &RefreshService{
		store:    store,
		lifetime: cfg.Lifetime,
	}
}

// Issue creates a new refresh token for the wallet.
func (s *RefreshService) Issue(ctx context.Context, wallet string) (*core.RefreshToken, error) {
	raw, err := randomHex(32)
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}
	now := time.Now()
	token := core.RefreshToken{
		Value:     raw,
		Wallet:    wallet,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.lifetime),
	}
	if err := s.store.Save(ctx, token); err != nil {
		return nil, fmt.Errorf("saving refresh token: %w", err)
	}
	return &token, nil
}

// Rotate validates the presented token for the wallet, invalidates it and
// issues a replacement. The old value can not be used again.
func (s *RefreshService) Rotate(ctx context.Context, wallet, value string) (*core.RefreshToken, error) {
	token, err := s.store.Find(ctx, value)
	if err != nil {
		return nil, err
	}
	if token.Wallet != wallet || time.Now().After(token.ExpiresAt) {
		_ = s.store.Delete(ctx, value)
		return nil, core.ErrInvalidRefreshToken
	}
	if err := s.store.Delete(ctx, value); err != nil {
		return nil, fmt.Errorf("deleting refresh token: %w", err)
	}
	return s.Issue(ctx, wallet)
}

func randomHex(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
