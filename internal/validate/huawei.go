package validate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

const TypeHuaweiAttestation = "huawei_attestation"

type huaweiAttestationConfig struct {
	Settings `mapstructure:",squash"`

	// PackageName the SysIntegrity statement must name.
	PackageName string `mapstructure:"package_name"`

	// AppID and Secret authenticate the gateway against the online
	// verify endpoint.
	AppID  string `mapstructure:"app_id"`
	Secret string `mapstructure:"secret"`
}

// NewHuaweiAttestationValidator builds the Huawei SysIntegrity provider.
// OFFLINE mode inspects the statement payload locally; ONLINE mode submits
// it to the configured verify endpoint.
func NewHuaweiAttestationValidator(cfg config.ValidatorConfig, cache core.ResultCache, client *http.Client, observer Observer) (core.Validator, error) {
	var conf huaweiAttestationConfig
	if err := decodeSettings(cfg.Config, &conf); err != nil {
		return nil, fmt.Errorf("decoding config for huawei attestation provider %q: %w", cfg.Name, err)
	}
	conf.Settings.applyDefaults()
	if conf.Mode == ModeOnline && !conf.Disabled && !conf.AlwaysPassed && conf.URI == "" {
		return nil, fmt.Errorf("huawei attestation provider %q missing 'uri' for ONLINE mode", cfg.Name)
	}

	v := &huaweiAttestationValidator{
		packageName: conf.PackageName,
		appID:       conf.AppID,
		secret:      conf.Secret,
		uri:         conf.URI,
		client:      client,
	}
	check := v.checkOffline
	if conf.Mode == ModeOnline {
		check = v.checkOnline
	}
	return newComponent(TypeHuaweiAttestation, conf.Settings, cache, observer, check), nil
}

type huaweiAttestationValidator struct {
	packageName string
	appID       string
	secret      string
	uri         string
	client      *http.Client
}

func (v *huaweiAttestationValidator) checkOnline(ctx context.Context, token, _ string) (bool, float64, string, error) {
	payload, err := json.Marshal(map[string]string{
		"jws":   token,
		"appId": v.appID,
	})
	if err != nil {
		return false, 0, "", fmt.Errorf("encoding sysintegrity request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.uri, bytes.NewReader(payload))
	if err != nil {
		return false, 0, "", fmt.Errorf("building sysintegrity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.secret != "" {
		req.Header.Set("Authorization", "Bearer "+v.secret)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return false, 0, "", fmt.Errorf("calling sysintegrity verifier: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, 0, "", fmt.Errorf("sysintegrity verifier returned status %d", resp.StatusCode)
	}

	var body struct {
		BasicIntegrity bool `json:"basicIntegrity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, 0, "", fmt.Errorf("decoding sysintegrity response: %w", err)
	}
	if !body.BasicIntegrity {
		return false, 0, "device failed basic integrity", nil
	}
	return true, 0, "", nil
}

// checkOffline decodes the SysIntegrity JWS payload and checks the
// integrity verdict and package name it carries.
func (v *huaweiAttestationValidator) checkOffline(_ context.Context, token, _ string) (bool, float64, string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false, 0, "malformed sysintegrity statement", nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return false, 0, "malformed sysintegrity payload", nil
	}

	var claims struct {
		BasicIntegrity bool   `json:"basicIntegrity"`
		ApkPackageName string `json:"apkPackageName"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return false, 0, "malformed sysintegrity payload", nil
	}
	if v.packageName != "" && claims.ApkPackageName != v.packageName {
		return false, 0, fmt.Sprintf("sysintegrity package %q does not match", claims.ApkPackageName), nil
	}
	if !claims.BasicIntegrity {
		return false, 0, "device failed basic integrity", nil
	}
	return true, 0, "", nil
}
