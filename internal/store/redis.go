package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

const (
	nonceKeyPrefix   = "gw:nonce:"
	refreshKeyPrefix = "gw:refresh:"
	resultKeyPrefix  = "gw:validation:"
)

// NewRedisClient builds the shared Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisNonceStore stores one pending nonce per wallet with the nonce
// lifetime as key TTL.
type RedisNonceStore struct {
	client *redis.Client
}

func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client}
}

func (s *RedisNonceStore) Save(ctx context.Context, nonce core.Nonce) error {
	data, err := json.Marshal(nonce)
	if err != nil {
		return fmt.Errorf("encoding nonce: %w", err)
	}
	ttl := time.Until(nonce.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	return s.client.Set(ctx, nonceKeyPrefix+nonce.Wallet, data, ttl).Err()
}

func (s *RedisNonceStore) Get(ctx context.Context, wallet string) (*core.Nonce, error) {
	data, err := s.client.Get(ctx, nonceKeyPrefix+wallet).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrNoNonce
	}
	if err != nil {
		return nil, fmt.Errorf("reading nonce: %w", err)
	}
	var nonce core.Nonce
	if err := json.Unmarshal(data, &nonce); err != nil {
		return nil, fmt.Errorf("decoding nonce: %w", err)
	}
	return &nonce, nil
}

func (s *RedisNonceStore) Delete(ctx context.Context, wallet string) error {
	return s.client.Del(ctx, nonceKeyPrefix+wallet).Err()
}

// RedisRefreshStore stores refresh tokens keyed by value, expiring with the
// token itself.
type RedisRefreshStore struct {
	client *redis.Client
}

func NewRedisRefreshStore(client *redis.Client) *RedisRefreshStore {
	return &RedisRefreshStore{client: client}
}

func (s *RedisRefreshStore) Save(ctx context.Context, token core.RefreshToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding refresh token: %w", err)
	}
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	return s.client.Set(ctx, refreshKeyPrefix+token.Value, data, ttl).Err()
}

func (s *RedisRefreshStore) Find(ctx context.Context, value string) (*core.RefreshToken, error) {
	data, err := s.client.Get(ctx, refreshKeyPrefix+value).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("reading refresh token: %w", err)
	}
	var token core.RefreshToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decoding refresh token: %w", err)
	}
	return &token, nil
}

func (s *RedisRefreshStore) Delete(ctx context.Context, value string) error {
	return s.client.Del(ctx, refreshKeyPrefix+value).Err()
}

// RedisResultCache stores validation results with their TTL so that all
// gateway instances share one verdict per token.
type RedisResultCache struct {
	client *redis.Client
}

func NewRedisResultCache(client *redis.Client) *RedisResultCache {
	return &RedisResultCache{client: client}
}

func (c *RedisResultCache) Get(ctx context.Context, provider, key string) (*core.ValidationResult, error) {
	data, err := c.client.Get(ctx, resultKeyPrefix+provider+":"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading validation result: %w", err)
	}
	var res core.ValidationResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decoding validation result: %w", err)
	}
	if !res.Fresh(time.Now()) {
		return nil, nil
	}
	return &res, nil
}

func (c *RedisResultCache) Put(ctx context.Context, provider, key string, res core.ValidationResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding validation result: %w", err)
	}
	ttl := time.Until(res.TTLExpiry)
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.client.Set(ctx, resultKeyPrefix+provider+":"+key, data, ttl).Err()
}
