package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisNonceStore, *RedisRefreshStore, *RedisResultCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisNonceStore(client), NewRedisRefreshStore(client), NewRedisResultCache(client)
}

func TestRedisNonceStore(t *testing.T) {
	ctx := context.Background()
	mr, nonces, _, _ := newTestRedis(t)

	if _, err := nonces.Get(ctx, testWallet); !errors.Is(err, core.ErrNoNonce) {
		t.Fatalf("Get() on empty store error = %v, want ErrNoNonce", err)
	}

	nonce := core.Nonce{
		Value:     "n1",
		Wallet:    testWallet,
		Message:   "sign me",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Minute),
	}
	if err := nonces.Save(ctx, nonce); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := nonces.Get(ctx, testWallet)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Value != "n1" || got.Message != "sign me" {
		t.Errorf("Get() = %+v", got)
	}

	// the key expires with the nonce
	mr.FastForward(2 * time.Minute)
	if _, err := nonces.Get(ctx, testWallet); !errors.Is(err, core.ErrNoNonce) {
		t.Errorf("Get() after TTL error = %v, want ErrNoNonce", err)
	}
}

func TestRedisNonceStore_Delete(t *testing.T) {
	ctx := context.Background()
	_, nonces, _, _ := newTestRedis(t)

	nonce := core.Nonce{
		Value:     "n1",
		Wallet:    testWallet,
		ExpiresAt: time.Now().Add(time.Minute),
	}
	if err := nonces.Save(ctx, nonce); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := nonces.Delete(ctx, testWallet); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := nonces.Get(ctx, testWallet); !errors.Is(err, core.ErrNoNonce) {
		t.Errorf("Get() after delete error = %v, want ErrNoNonce", err)
	}
}

func TestRedisRefreshStore(t *testing.T) {
	ctx := context.Background()
	mr, _, refresh, _ := newTestRedis(t)

	if _, err := refresh.Find(ctx, "missing"); !errors.Is(err, core.ErrInvalidRefreshToken) {
		t.Fatalf("Find() on empty store error = %v, want ErrInvalidRefreshToken", err)
	}

	token := core.RefreshToken{
		Value:     "tok-1",
		Wallet:    testWallet,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := refresh.Save(ctx, token); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := refresh.Find(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.Wallet != testWallet {
		t.Errorf("Find() = %+v", got)
	}

	if err := refresh.Delete(ctx, "tok-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := refresh.Find(ctx, "tok-1"); !errors.Is(err, core.ErrInvalidRefreshToken) {
		t.Errorf("Find() after delete error = %v, want ErrInvalidRefreshToken", err)
	}

	// expiry is carried by the key TTL
	if err := refresh.Save(ctx, token); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := refresh.Find(ctx, "tok-1"); !errors.Is(err, core.ErrInvalidRefreshToken) {
		t.Errorf("Find() after TTL error = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestRedisResultCache(t *testing.T) {
	ctx := context.Background()
	mr, _, _, cache := newTestRedis(t)

	got, err := cache.Get(ctx, "google_captcha", "fp-1")
	if err != nil || got != nil {
		t.Fatalf("Get() on empty cache = %v, %v, want nil, nil", got, err)
	}

	res := core.ValidationResult{
		Passed:    true,
		Provider:  "google_captcha",
		Score:     0.9,
		CheckedAt: time.Now(),
		TTLExpiry: time.Now().Add(10 * time.Minute),
	}
	if err := cache.Put(ctx, "google_captcha", "fp-1", res); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err = cache.Get(ctx, "google_captcha", "fp-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || !got.Passed || got.Score != 0.9 {
		t.Errorf("Get() = %+v", got)
	}

	// failed results are cached too
	failed := core.ValidationResult{
		Passed:    false,
		Provider:  "google_captcha",
		Reason:    "score below threshold",
		TTLExpiry: time.Now().Add(10 * time.Minute),
	}
	if err := cache.Put(ctx, "google_captcha", "fp-2", failed); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err = cache.Get(ctx, "google_captcha", "fp-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.Passed {
		t.Errorf("Get() failed result = %+v", got)
	}

	mr.FastForward(11 * time.Minute)
	if got, err := cache.Get(ctx, "google_captcha", "fp-1"); err != nil || got != nil {
		t.Errorf("Get() after TTL = %v, %v, want nil, nil", got, err)
	}
}
