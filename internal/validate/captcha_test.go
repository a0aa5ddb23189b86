package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/store"
)

func captchaVerifier(t *testing.T, scores map[string]float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		if r.PostFormValue("secret") != "test-secret" {
			t.Errorf("secret = %q", r.PostFormValue("secret"))
		}
		score, ok := scores[r.PostFormValue("response")]
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": ok,
			"score":   score,
		})
	}))
}

func newCaptcha(t *testing.T, srv *httptest.Server, extra map[string]any) *component {
	t.Helper()
	conf := map[string]any{
		"key": "test-secret",
		"uri": srv.URL,
	}
	for k, v := range extra {
		conf[k] = v
	}
	v, err := NewGoogleCaptchaValidator(config.ValidatorConfig{
		Name:   "captcha",
		Type:   TypeGoogleCaptcha,
		Config: conf,
	}, store.NewInMemoryResultCache(), srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewGoogleCaptchaValidator() error = %v", err)
	}
	return v.(*component)
}

func TestCaptcha_ScoreThreshold(t *testing.T) {
	srv := captchaVerifier(t, map[string]float64{
		"good-token": 0.9,
		"meh-token":  0.35,
		"bot-token":  0.25,
	})
	defer srv.Close()

	v := newCaptcha(t, srv, nil) // default min_rate 0.3

	tests := []struct {
		name   string
		token  string
		passed bool
	}{
		{"High Score Passes", "good-token", true},
		{"Above Threshold Passes", "meh-token", true},
		{"Below Threshold Fails", "bot-token", false},
		{"Unknown Token Fails", "no-such-token", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.Validate(context.Background(), tt.token, "1.2.3.4")
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if res.Passed != tt.passed {
				t.Errorf("Passed = %v, want %v (reason %q)", res.Passed, tt.passed, res.Reason)
			}
		})
	}
}

func TestCaptcha_CustomMinRate(t *testing.T) {
	srv := captchaVerifier(t, map[string]float64{"meh-token": 0.35})
	defer srv.Close()

	v := newCaptcha(t, srv, map[string]any{"min_rate": 0.5})
	res, err := v.Validate(context.Background(), "meh-token", "")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if res.Passed {
		t.Error("score 0.35 must fail against min_rate 0.5")
	}
	if !strings.Contains(res.Reason, "below threshold") {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestCaptcha_VerifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := newCaptcha(t, srv, nil)
	if _, err := v.Validate(context.Background(), "any", ""); err == nil {
		t.Fatal("expected unavailability error for 5xx verifier response")
	}
}

func TestCaptcha_SendsRemoteIP(t *testing.T) {
	var gotIP string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = r.PostFormValue("remoteip")
		fmt.Fprint(w, `{"success":true,"score":0.9}`)
	}))
	defer srv.Close()

	v := newCaptcha(t, srv, nil)
	if _, err := v.Validate(context.Background(), "tok", "203.0.113.7"); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if gotIP != "203.0.113.7" {
		t.Errorf("remoteip = %q", gotIP)
	}
}

func TestNewGoogleCaptchaValidator_MissingKey(t *testing.T) {
	_, err := NewGoogleCaptchaValidator(config.ValidatorConfig{
		Name:   "captcha",
		Type:   TypeGoogleCaptcha,
		Config: map[string]any{},
	}, store.NewInMemoryResultCache(), http.DefaultClient, nil)
	if err == nil {
		t.Fatal("expected error for missing key")
	}

	// disabled providers do not need a key
	_, err = NewGoogleCaptchaValidator(config.ValidatorConfig{
		Name:   "captcha",
		Type:   TypeGoogleCaptcha,
		Config: map[string]any{"disabled": true},
	}, store.NewInMemoryResultCache(), http.DefaultClient, nil)
	if err != nil {
		t.Fatalf("NewGoogleCaptchaValidator() error = %v", err)
	}
}
