package validate

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

const TypeGoogleAttestation = "google_attestation"

const attestationHostname = "attest.android.com"

type googleAttestationConfig struct {
	Settings `mapstructure:",squash"`

	// PackageName the attestation statement must have been issued for.
	PackageName string `mapstructure:"package_name"`

	// Key authenticates the gateway against the online verify endpoint.
	Key string `mapstructure:"key"`
}

// NewGoogleAttestationValidator builds the SafetyNet-style device
// attestation provider. In OFFLINE mode the signed statement is verified
// locally against its certificate chain; in ONLINE mode it is submitted to
// the external verify endpoint.
func NewGoogleAttestationValidator(cfg config.ValidatorConfig, cache core.ResultCache, client *http.Client, observer Observer) (core.Validator, error) {
	var conf googleAttestationConfig
	if err := decodeSettings(cfg.Config, &conf); err != nil {
		return nil, fmt.Errorf("decoding config for google attestation provider %q: %w", cfg.Name, err)
	}
	conf.Settings.applyDefaults()
	if conf.Mode == ModeOnline && !conf.Disabled && !conf.AlwaysPassed && conf.URI == "" {
		return nil, fmt.Errorf("google attestation provider %q missing 'uri' for ONLINE mode", cfg.Name)
	}

	v := &googleAttestationValidator{
		packageName: conf.PackageName,
		key:         conf.Key,
		uri:         conf.URI,
		client:      client,
	}
	check := v.checkOffline
	if conf.Mode == ModeOnline {
		check = v.checkOnline
	}
	return newComponent(TypeGoogleAttestation, conf.Settings, cache, observer, check), nil
}

type googleAttestationValidator struct {
	packageName string
	key         string
	uri         string
	client      *http.Client
}

// checkOnline submits the signed statement to the external verifier.
func (v *googleAttestationValidator) checkOnline(ctx context.Context, token, _ string) (bool, float64, string, error) {
	payload, err := json.Marshal(map[string]string{"signedAttestation": token})
	if err != nil {
		return false, 0, "", fmt.Errorf("encoding attestation request: %w", err)
	}

	uri := v.uri
	if v.key != "" {
		uri += "?key=" + v.key
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(payload))
	if err != nil {
		return false, 0, "", fmt.Errorf("building attestation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, 0, "", fmt.Errorf("calling attestation verifier: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, 0, "", fmt.Errorf("attestation verifier returned status %d", resp.StatusCode)
	}

	var body struct {
		IsValidSignature bool `json:"isValidSignature"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, 0, "", fmt.Errorf("decoding attestation response: %w", err)
	}
	if !body.IsValidSignature {
		return false, 0, "attestation signature rejected", nil
	}
	return true, 0, "", nil
}

// checkOffline verifies the signed statement locally: the JWS signature
// against its embedded certificate, the certificate hostname, and the
// integrity claims inside.
func (v *googleAttestationValidator) checkOffline(_ context.Context, token, _ string) (bool, float64, string, error) {
	parsed, err := jwt.Parse(token, attestationKeyFunc)
	if err != nil || !parsed.Valid {
		return false, 0, fmt.Sprintf("attestation statement rejected: %v", err), nil
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return false, 0, "attestation statement has no claims", nil
	}
	if v.packageName != "" {
		if pkg, _ := claims["apkPackageName"].(string); pkg != v.packageName {
			return false, 0, fmt.Sprintf("attestation package %q does not match", pkg), nil
		}
	}
	if basic, _ := claims["basicIntegrity"].(bool); !basic {
		return false, 0, "device failed basic integrity", nil
	}
	if cts, _ := claims["ctsProfileMatch"].(bool); !cts {
		return false, 0, "device failed cts profile match", nil
	}
	return true, 0, "", nil
}

// attestationKeyFunc extracts the leaf certificate from the statement's x5c
// header and checks it was issued for the attestation hostname.
func attestationKeyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	chain, ok := t.Header["x5c"].([]any)
	if !ok || len(chain) == 0 {
		return nil, fmt.Errorf("statement has no certificate chain")
	}
	leaf, ok := chain[0].(string)
	if !ok {
		return nil, fmt.Errorf("malformed certificate chain")
	}
	der, err := base64.StdEncoding.DecodeString(leaf)
	if err != nil {
		return nil, fmt.Errorf("decoding certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parsing certificate: %w", err)
	}
	if err := cert.VerifyHostname(attestationHostname); err != nil {
		return nil, fmt.Errorf("verifying certificate hostname: %w", err)
	}
	return cert.PublicKey, nil
}
