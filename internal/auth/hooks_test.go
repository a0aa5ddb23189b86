package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

func TestNewHTTPHook_Defaults(t *testing.T) {
	h := NewHTTPHook(config.HookConfig{Name: "profile", URI: "http://profiles"}, http.DefaultClient)

	if !reflect.DeepEqual(h.Phases(), []core.LoginPhase{core.PhaseAfter}) {
		t.Errorf("Phases() = %v", h.Phases())
	}
	if !reflect.DeepEqual(h.RequestTypes(), []string{http.MethodPost}) {
		t.Errorf("RequestTypes() = %v", h.RequestTypes())
	}
}

func TestHTTPHook_Process(t *testing.T) {
	var gotPath, gotMethod, gotWallet string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotWallet = r.Header.Get("X-Client-Wallet")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	h := NewHTTPHook(config.HookConfig{
		Name:   "profile",
		URI:    srv.URL + "/profiles",
		Method: http.MethodPut,
	}, srv.Client())

	if err := h.Process(context.Background(), testWallet); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if gotPath != "/profiles/"+testWallet {
		t.Errorf("path = %q", gotPath)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("method = %q", gotMethod)
	}
	if gotWallet != testWallet {
		t.Errorf("wallet header = %q", gotWallet)
	}
}

func TestHTTPHook_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "conflict", http.StatusConflict)
	}))
	defer srv.Close()

	h := NewHTTPHook(config.HookConfig{Name: "profile", URI: srv.URL}, srv.Client())
	if err := h.Process(context.Background(), testWallet); err == nil {
		t.Fatal("expected error for non-2xx hook response")
	}
}
