package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/store"
)

func TestGoogleAttestationOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "api-key" {
			t.Errorf("key param = %q", r.URL.Query().Get("key"))
		}
		var body struct {
			SignedAttestation string `json:"signedAttestation"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprintf(w, `{"isValidSignature":%v}`, body.SignedAttestation == "good-statement")
	}))
	defer srv.Close()

	v, err := NewGoogleAttestationValidator(config.ValidatorConfig{
		Name: "google",
		Type: TypeGoogleAttestation,
		Config: map[string]any{
			"mode": ModeOnline,
			"uri":  srv.URL,
			"key":  "api-key",
		},
	}, store.NewInMemoryResultCache(), srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewGoogleAttestationValidator() error = %v", err)
	}

	res, err := v.Validate(context.Background(), "good-statement", "")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !res.Passed {
		t.Errorf("result = %+v", res)
	}

	res, err = v.Validate(context.Background(), "tampered-statement", "")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if res.Passed {
		t.Errorf("result = %+v, want failed", res)
	}
}

func TestGoogleAttestationOffline_MalformedStatement(t *testing.T) {
	v, err := NewGoogleAttestationValidator(config.ValidatorConfig{
		Name: "google",
		Type: TypeGoogleAttestation,
		Config: map[string]any{
			"mode":         ModeOffline,
			"package_name": "com.example.wallet",
		},
	}, store.NewInMemoryResultCache(), http.DefaultClient, nil)
	if err != nil {
		t.Fatalf("NewGoogleAttestationValidator() error = %v", err)
	}

	// not a signed statement at all; must fail, not error
	res, err := v.Validate(context.Background(), "not-a-jws", "")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if res.Passed {
		t.Errorf("result = %+v, want failed", res)
	}
}

func TestNewGoogleAttestationValidator_OnlineNeedsURI(t *testing.T) {
	_, err := NewGoogleAttestationValidator(config.ValidatorConfig{
		Name:   "google",
		Type:   TypeGoogleAttestation,
		Config: map[string]any{"mode": ModeOnline},
	}, store.NewInMemoryResultCache(), http.DefaultClient, nil)
	if err == nil {
		t.Fatal("expected error for ONLINE mode without uri")
	}
}
