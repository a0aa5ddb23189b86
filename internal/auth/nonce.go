package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// NonceService issues and redeems one-time login challenges.
// A wallet has at most one pending nonce; issuing a new one replaces it.
type NonceService struct {
	store           core.NonceStore
	lifetime        time.Duration
	messageTemplate string
}

func NewNonceService(cfg config.NonceConfig, store core.NonceStore) *NonceService {
	return &NonceService{
		store:           store,
		lifetime:        cfg.Lifetime,
		messageTemplate: cfg.MessageTemplate,
	}
}

// New creates and stores a fresh nonce for the wallet.
func (s *NonceService) New(ctx context.Context, wallet string) (*core.Nonce, error) {
	log.Ctx(ctx).Debug().Str("wallet", wallet).Msg("issuing new login nonce")

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	now := time.Now()
	value := fmt.Sprintf("%s:%d", now.UTC().Format("2006-01-02 15:04:05"), binary.BigEndian.Uint64(buf[:]))
	nonce := core.Nonce{
		Value:     value,
		Wallet:    wallet,
		Message:   fmt.Sprintf(s.messageTemplate, wallet, value),
		CreatedAt: now,
		ExpiresAt: now.Add(s.lifetime),
	}
	if err := s.store.Save(ctx, nonce); err != nil {
		return nil, fmt.Errorf("saving nonce: %w", err)
	}
	return &nonce, nil
}

// Consume returns the pending nonce for the wallet and removes it, so a
// signature can only be replayed once. Expired nonces count as absent.
func (s *NonceService) Consume(ctx context.Context, wallet string) (*core.Nonce, error) {
	nonce, err := s.store.Get(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if nonce.Expired(time.Now()) {
		_ = s.store.Delete(ctx, wallet)
		return nil, core.ErrNoNonce
	}
	if err := s.store.Delete(ctx, wallet); err != nil {
		return nil, fmt.Errorf("deleting nonce: %w", err)
	}
	return nonce, nil
}
