package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

const testWallet = "0x1111111111111111111111111111111111111111"

func TestClaimsClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/identity/"+testWallet {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("X-Client-Wallet") != testWallet {
			t.Errorf("wallet header = %q", r.Header.Get("X-Client-Wallet"))
		}
		fmt.Fprint(w, `{"clientId":"profile-1","type":"METAMASK","authorities":["USER","TRADER"]}`)
	}))
	defer srv.Close()

	c := NewClaimsClient(config.ClaimsConfig{URI: srv.URL + "/identity"}, srv.Client())
	got, err := c.Fetch(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	want := &core.Client{
		ID:          "profile-1",
		WalletType:  "METAMASK",
		Authorities: []string{"USER", "TRADER"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fetch() = %+v, want %+v", got, want)
	}
}

func TestClaimsClient_CustomFieldNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"profile_id":"p-9","wallet_kind":"LEDGER","roles":"ADMIN,USER"}`)
	}))
	defer srv.Close()

	c := NewClaimsClient(config.ClaimsConfig{
		URI:              srv.URL,
		ClientIDField:    "profile_id",
		TypeField:        "wallet_kind",
		AuthoritiesField: "roles",
	}, srv.Client())

	got, err := c.Fetch(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.ID != "p-9" || got.WalletType != "LEDGER" {
		t.Errorf("Fetch() = %+v", got)
	}
	if !reflect.DeepEqual(got.Authorities, []string{"ADMIN", "USER"}) {
		t.Errorf("authorities = %v", got.Authorities)
	}
}

func TestClaimsClient_EmptyIDFallsBackToWallet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"authorities":["USER"]}`)
	}))
	defer srv.Close()

	c := NewClaimsClient(config.ClaimsConfig{URI: srv.URL}, srv.Client())
	got, err := c.Fetch(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.ID != testWallet {
		t.Errorf("ID = %q, want wallet fallback", got.ID)
	}
}

func TestClaimsClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClaimsClient(config.ClaimsConfig{URI: srv.URL}, srv.Client())
	if _, err := c.Fetch(context.Background(), testWallet); !errors.Is(err, core.ErrIdentityServiceUnavailable) {
		t.Errorf("Fetch() error = %v, want ErrIdentityServiceUnavailable", err)
	}
}

func TestClaimsClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := NewClaimsClient(config.ClaimsConfig{URI: srv.URL}, http.DefaultClient)
	if _, err := c.Fetch(context.Background(), testWallet); !errors.Is(err, core.ErrIdentityServiceUnavailable) {
		t.Errorf("Fetch() error = %v, want ErrIdentityServiceUnavailable", err)
	}
}

func TestClaimsClient_ClientErrorIsNotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unknown wallet", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClaimsClient(config.ClaimsConfig{URI: srv.URL}, srv.Client())
	_, err := c.Fetch(context.Background(), testWallet)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if errors.Is(err, core.ErrIdentityServiceUnavailable) {
		t.Error("a 4xx response is not a service outage")
	}
}
