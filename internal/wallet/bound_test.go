package wallet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

func TestNewBoundService_NilConfig(t *testing.T) {
	if s := NewBoundService(nil, http.DefaultClient); s != nil {
		t.Errorf("NewBoundService(nil) = %v, want nil", s)
	}
}

func TestBoundService_Bind(t *testing.T) {
	client := core.Client{
		ID:            "p-1",
		CurrentWallet: testWallet,
		Wallets:       []string{testWallet},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q", r.Method)
		}
		if r.URL.Path != "/profiles/p-1/wallets/"+otherWallet {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("X-Client-Id") != "p-1" {
			t.Errorf("client id header = %q", r.Header.Get("X-Client-Id"))
		}
		if r.Header.Get("X-Client-Wallet") != testWallet {
			t.Errorf("wallet header = %q", r.Header.Get("X-Client-Wallet"))
		}
		want := testWallet + "," + otherWallet
		if r.Header.Get("X-Client-Wallets") != want {
			t.Errorf("wallets header = %q, want %q", r.Header.Get("X-Client-Wallets"), want)
		}
		fmt.Fprint(w, `{"status":"BOUND"}`)
	}))
	defer srv.Close()

	s := NewBoundService(&config.HTTPService{
		URI:    srv.URL + "/profiles/{profileId}/wallets/{walletSecond}",
		Method: http.MethodPut,
	}, srv.Client())

	status, err := s.Bind(context.Background(), client, otherWallet)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if status != "BOUND" {
		t.Errorf("status = %q", status)
	}
}

func TestBoundService_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such profile", http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewBoundService(&config.HTTPService{URI: srv.URL}, srv.Client())
	if _, err := s.Bind(context.Background(), core.Client{ID: "p-1"}, otherWallet); !errors.Is(err, core.ErrNotBound) {
		t.Errorf("Bind() error = %v, want ErrNotBound", err)
	}
}

func TestBoundService_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewBoundService(&config.HTTPService{URI: srv.URL}, srv.Client())
	if _, err := s.Bind(context.Background(), core.Client{ID: "p-1"}, otherWallet); err == nil {
		t.Fatal("expected error for 5xx response")
	}
}
