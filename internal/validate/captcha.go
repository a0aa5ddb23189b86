package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

const TypeGoogleCaptcha = "google_captcha"

const defaultCaptchaURI = "https://www.google.com/recaptcha/api/siteverify"

type captchaConfig struct {
	Settings `mapstructure:",squash"`

	// Key is the server-side captcha secret.
	Key string `mapstructure:"key"`

	// MinRate is the minimum accepted score, inclusive.
	MinRate float64 `mapstructure:"min_rate"`
}

// NewGoogleCaptchaValidator builds the captcha provider. The check passes
// iff the verifier reports success and a score of at least min_rate.
func NewGoogleCaptchaValidator(cfg config.ValidatorConfig, cache core.ResultCache, client *http.Client, observer Observer) (core.Validator, error) {
	var conf captchaConfig
	if err := decodeSettings(cfg.Config, &conf); err != nil {
		return nil, fmt.Errorf("decoding config for captcha provider %q: %w", cfg.Name, err)
	}
	if conf.MinRate <= 0 {
		conf.MinRate = 0.3
	}
	if conf.URI == "" {
		conf.URI = defaultCaptchaURI
	}
	if !conf.Disabled && !conf.AlwaysPassed && conf.Key == "" {
		return nil, fmt.Errorf("captcha provider %q missing 'key'", cfg.Name)
	}

	v := &captchaValidator{
		key:     conf.Key,
		minRate: conf.MinRate,
		uri:     conf.URI,
		client:  client,
	}
	return newComponent(TypeGoogleCaptcha, conf.Settings, cache, observer, v.check), nil
}

type captchaValidator struct {
	key     string
	minRate float64
	uri     string
	client  *http.Client
}

func (v *captchaValidator) check(ctx context.Context, token, ip string) (bool, float64, string, error) {
	form := url.Values{}
	form.Set("secret", v.key)
	form.Set("response", token)
	if ip != "" {
		form.Set("remoteip", ip)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.uri, strings.NewReader(form.Encode()))
	if err != nil {
		return false, 0, "", fmt.Errorf("building captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, 0, "", fmt.Errorf("calling captcha verifier: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, 0, "", fmt.Errorf("captcha verifier returned status %d", resp.StatusCode)
	}

	var body struct {
		Success    bool     `json:"success"`
		Score      float64  `json:"score"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, 0, "", fmt.Errorf("decoding captcha response: %w", err)
	}

	if !body.Success {
		return false, body.Score, fmt.Sprintf("captcha rejected: %s", strings.Join(body.ErrorCodes, ",")), nil
	}
	if body.Score < v.minRate {
		return false, body.Score, fmt.Sprintf("captcha score %.2f below threshold %.2f", body.Score, v.minRate), nil
	}
	return true, body.Score, "", nil
}
