package validate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/store"
)

func fakeJWS(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("encoding claims: %v", err)
	}
	encode := base64.RawURLEncoding.EncodeToString
	return encode([]byte(`{"alg":"RS256"}`)) + "." + encode(payload) + "." + encode([]byte("sig"))
}

func newHuawei(t *testing.T, conf map[string]any) *component {
	t.Helper()
	v, err := NewHuaweiAttestationValidator(config.ValidatorConfig{
		Name:   "huawei",
		Type:   TypeHuaweiAttestation,
		Config: conf,
	}, store.NewInMemoryResultCache(), http.DefaultClient, nil)
	if err != nil {
		t.Fatalf("NewHuaweiAttestationValidator() error = %v", err)
	}
	return v.(*component)
}

func TestHuaweiOffline(t *testing.T) {
	v := newHuawei(t, map[string]any{
		"mode":         ModeOffline,
		"package_name": "com.example.wallet",
	})

	tests := []struct {
		name       string
		token      string
		passed     bool
		wantReason string
	}{
		{
			name: "Valid Statement",
			token: fakeJWS(t, map[string]any{
				"basicIntegrity": true,
				"apkPackageName": "com.example.wallet",
			}),
			passed: true,
		},
		{
			name: "Failed Integrity",
			token: fakeJWS(t, map[string]any{
				"basicIntegrity": false,
				"apkPackageName": "com.example.wallet",
			}),
			wantReason: "basic integrity",
		},
		{
			name: "Wrong Package",
			token: fakeJWS(t, map[string]any{
				"basicIntegrity": true,
				"apkPackageName": "com.evil.app",
			}),
			wantReason: "does not match",
		},
		{
			name:       "Not A JWS",
			token:      "just-some-string",
			wantReason: "malformed",
		},
		{
			name:       "Bad Payload Encoding",
			token:      "a.!!!.c",
			wantReason: "malformed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.Validate(context.Background(), tt.token, "")
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if res.Passed != tt.passed {
				t.Errorf("Passed = %v, want %v (reason %q)", res.Passed, tt.passed, res.Reason)
			}
			if tt.wantReason != "" && !strings.Contains(res.Reason, tt.wantReason) {
				t.Errorf("reason = %q, want containing %q", res.Reason, tt.wantReason)
			}
		})
	}
}

func TestHuaweiOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer app-secret" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		var body struct {
			JWS   string `json:"jws"`
			AppID string `json:"appId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if body.AppID != "app-1" {
			t.Errorf("appId = %q", body.AppID)
		}
		fmt.Fprintf(w, `{"basicIntegrity":%v}`, body.JWS == "good-statement")
	}))
	defer srv.Close()

	v, err := NewHuaweiAttestationValidator(config.ValidatorConfig{
		Name: "huawei",
		Type: TypeHuaweiAttestation,
		Config: map[string]any{
			"mode":   ModeOnline,
			"uri":    srv.URL,
			"app_id": "app-1",
			"secret": "app-secret",
		},
	}, store.NewInMemoryResultCache(), srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewHuaweiAttestationValidator() error = %v", err)
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
