package validate

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

const TypeIOSDeviceCheck = "ios_device_check"

const (
	defaultDeviceCheckURI      = "https://api.devicecheck.apple.com/v1/validate_device_token"
	defaultDeviceCheckAudience = "https://appleid.apple.com"
)

type deviceCheckConfig struct {
	Settings `mapstructure:",squash"`

	// KeyID, Issuer and Subject go into the ES256 token Apple expects.
	// Issuer is the Apple developer team identifier.
	KeyID   string `mapstructure:"key_id"`
	Issuer  string `mapstructure:"issuer"`
	Subject string `mapstructure:"subject"`

	// PrivateKey is the base64 PKCS#8 EC key the token is signed with.
	PrivateKey string `mapstructure:"private_key"`

	Audience string        `mapstructure:"audience"`
	JWTTTL   time.Duration `mapstructure:"jwt_ttl"`
}

// NewIOSDeviceCheckValidator builds the Apple DeviceCheck provider. The
// device token is submitted to the validate_device_token endpoint with a
// short-lived ES256 bearer token; acceptance means the check passed.
func NewIOSDeviceCheckValidator(cfg config.ValidatorConfig, cache core.ResultCache, client *http.Client, observer Observer) (core.Validator, error) {
	var conf deviceCheckConfig
	if err := decodeSettings(cfg.Config, &conf); err != nil {
		return nil, fmt.Errorf("decoding config for device check provider %q: %w", cfg.Name, err)
	}
	conf.Settings.applyDefaults()
	if conf.Mode == ModeOffline {
		return nil, fmt.Errorf("device check provider %q supports ONLINE mode only", cfg.Name)
	}
	if conf.URI == "" {
		conf.URI = defaultDeviceCheckURI
	}
	if conf.Audience == "" {
		conf.Audience = defaultDeviceCheckAudience
	}
	if conf.JWTTTL <= 0 {
		conf.JWTTTL = 10 * time.Minute
	}

	v := &deviceCheckValidator{
		uri:      conf.URI,
		client:   client,
		keyID:    conf.KeyID,
		issuer:   conf.Issuer,
		subject:  conf.Subject,
		audience: conf.Audience,
		jwtTTL:   conf.JWTTTL,
	}
	if !conf.Disabled && !conf.AlwaysPassed {
		if conf.PrivateKey == "" {
			return nil, fmt.Errorf("device check provider %q missing 'private_key'", cfg.Name)
		}
		key, err := parseECPrivateKey(conf.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("device check provider %q: %w", cfg.Name, err)
		}
		v.key = key
	}
	return newComponent(TypeIOSDeviceCheck, conf.Settings, cache, observer, v.check), nil
}

type deviceCheckValidator struct {
	uri      string
	client   *http.Client
	key      *ecdsa.PrivateKey
	keyID    string
	issuer   string
	subject  string
	audience string
	jwtTTL   time.Duration

	mu         sync.Mutex
	cachedJWT  string
	jwtExpires time.Time
}

func (v *deviceCheckValidator) check(ctx context.Context, token, _ string) (bool, float64, string, error) {
	bearer, err := v.appleJWT()
	if err != nil {
		return false, 0, "", fmt.Errorf("signing device check token: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"device_token":   token,
		"transaction_id": xid.New().String(),
		"timestamp":      time.Now().UnixMilli(),
	})
	if err != nil {
		return false, 0, "", fmt.Errorf("encoding device check request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.uri, bytes.NewReader(payload))
	if err != nil {
		return false, 0, "", fmt.Errorf("building device check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := v.client.Do(req)
	if err != nil {
		return false, 0, "", fmt.Errorf("calling device check endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode >= 500 {
		return false, 0, "", fmt.Errorf("device check endpoint returned status %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, 0, fmt.Sprintf("device token rejected: %s", bytes.TrimSpace(body)), nil
	}
	return true, 1, "", nil
}

// appleJWT returns the cached bearer token, re-signing it once it expires.
func (v *deviceCheckValidator) appleJWT() (string, error) {
	now := time.Now()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cachedJWT != "" && now.Before(v.jwtExpires) {
		return v.cachedJWT, nil
	}

	expires := now.Add(v.jwtTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    v.issuer,
		Subject:   v.subject,
		Audience:  jwt.ClaimStrings{v.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	t.Header["kid"] = v.keyID

	signed, err := t.SignedString(v.key)
	if err != nil {
		return "", err
	}
	v.cachedJWT = signed
	// renew a little early so an in-flight request never carries an
	// expired token
	v.jwtExpires = expires.Add(-30 * time.Second)
	return signed, nil
}

func parseECPrivateKey(encoded string) (*ecdsa.PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, want EC", parsed)
	}
	return key, nil
}
