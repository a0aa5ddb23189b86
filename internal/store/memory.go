package store

import (
	"context"
	"sync"
	"time"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// InMemoryNonceStore keeps at most one pending nonce per wallet.
type InMemoryNonceStore struct {
	mu     sync.RWMutex
	nonces map[string]core.Nonce
}

func NewInMemoryNonceStore() *InMemoryNonceStore {
	return &InMemoryNonceStore{
		nonces: make(map[string]core.Nonce),
	}
}

func (s *InMemoryNonceStore) Save(_ context.Context, nonce core.Nonce) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nonces[nonce.Wallet] = nonce
	return nil
}

func (s *InMemoryNonceStore) Get(_ context.Context, wallet string) (*core.Nonce, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nonce, ok := s.nonces[wallet]
	if !ok {
		return nil, core.ErrNoNonce
	}
	return &nonce, nil
}

func (s *InMemoryNonceStore) Delete(_ context.Context, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.nonces, wallet)
	return nil
}

// InMemoryRefreshStore keeps refresh tokens keyed by their opaque value.
// Expired tokens are dropped lazily on lookup.
type InMemoryRefreshStore struct {
	mu     sync.RWMutex
	tokens map[string]core.RefreshToken
}

func NewInMemoryRefreshStore() *InMemoryRefreshStore {
	return &InMemoryRefreshStore{
		tokens: make(map[string]core.RefreshToken),
	}
}

func (s *InMemoryRefreshStore) Save(_ context.Context, token core.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token.Value] = token
	return nil
}

func (s *InMemoryRefreshStore) Find(_ context.Context, value string) (*core.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[value]
	if !ok {
		return nil, core.ErrInvalidRefreshToken
	}
	if time.Now().After(token.ExpiresAt) {
		delete(s.tokens, value)
		return nil, core.ErrInvalidRefreshToken
	}
	return &token, nil
}

func (s *InMemoryRefreshStore) Delete(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, value)
	return nil
}

// InMemoryResultCache stores validation results per (provider, fingerprint).
// Stale entries are evicted lazily when looked up.
type InMemoryResultCache struct {
	mu      sync.RWMutex
	results map[string]core.ValidationResult
}

func NewInMemoryResultCache() *InMemoryResultCache {
	return &InMemoryResultCache{
		results: make(map[string]core.ValidationResult),
	}
}

func (c *InMemoryResultCache) Get(_ context.Context, provider, key string) (*core.ValidationResult, error) {
	cacheKey := provider + "/" + key

	c.mu.Lock()
	defer c.mu.Unlock()

	res, ok := c.results[cacheKey]
	if !ok {
		return nil, nil
	}
	if !res.Fresh(time.Now()) {
		delete(c.results, cacheKey)
		return nil, nil
	}
	return &res, nil
}

func (c *InMemoryResultCache) Put(_ context.Context, provider, key string, res core.ValidationResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results[provider+"/"+key] = res
	return nil
}
