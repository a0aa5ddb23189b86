package auth

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

func newTestJWTService(t *testing.T, lifetime time.Duration) *JWTService {
	t.Helper()
	svc, err := NewJWTService(config.JWTConfig{
		Key:      base64.StdEncoding.EncodeToString([]byte("test-signing-key")),
		Issuer:   "gateway-test",
		Lifetime: lifetime,
	})
	if err != nil {
		t.Fatalf("NewJWTService() error = %v", err)
	}
	return svc
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := newTestJWTService(t, time.Hour)

	client := core.Client{
		ID:            "profile-1",
		CurrentWallet: "0x1111111111111111111111111111111111111111",
		WalletType:    "METAMASK",
		Wallets: []string{
			"0x1111111111111111111111111111111111111111",
			"0x2222222222222222222222222222222222222222",
		},
		Authorities: []string{"USER", "TRADER"},
	}

	token, expiresAt, err := svc.Create(client)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if time.Until(expiresAt) < 55*time.Minute {
		t.Errorf("expiry too close: %v", expiresAt)
	}

	got, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff(client, *got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestJWTService_Expired(t *testing.T) {
	svc := newTestJWTService(t, -time.Minute)

	token, _, err := svc.Create(core.Client{ID: "c"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Parse(token); !errors.Is(err, core.ErrUnauthorized) {
		t.Errorf("Parse() error = %v, want ErrUnauthorized", err)
	}
}

func TestJWTService_WrongKey(t *testing.T) {
	issuer := newTestJWTService(t, time.Hour)

	other, err := NewJWTService(config.JWTConfig{
		Key:      base64.StdEncoding.EncodeToString([]byte("another-key")),
		Lifetime: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTService() error = %v", err)
	}

	token, _, err := issuer.Create(core.Client{ID: "c"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := other.Parse(token); !errors.Is(err, core.ErrUnauthorized) {
		t.Errorf("Parse() error = %v, want ErrUnauthorized", err)
	}
}

func TestJWTService_Garbage(t *testing.T) {
	svc := newTestJWTService(t, time.Hour)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.Parse(tok); !errors.Is(err, core.ErrUnauthorized) {
			t.Errorf("Parse(%q) error = %v, want ErrUnauthorized", tok, err)
		}
	}
}

func TestNewJWTService_BadKey(t *testing.T) {
	if _, err := NewJWTService(config.JWTConfig{Key: "%%%not-base64%%%"}); err == nil {
		t.Fatal("expected error for invalid base64 key")
	}
}
