package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/policy"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/validation"
)

// Config is the immutable configuration snapshot of the gateway.
// It is constructed once at process start and passed explicitly into each
// component; nothing mutates it during request processing.
type Config struct {
	Listen   string        `yaml:"listen"`
	Upstream string        `yaml:"upstream"`
	BasePath string        `yaml:"base_path"`
	Timeout  time.Duration `yaml:"timeout"`

	Headers     HeaderConfig      `yaml:"headers"`
	Auth        AuthConfig        `yaml:"auth"`
	Identity    IdentityConfig    `yaml:"identity"`
	MultiWallet MultiWalletConfig `yaml:"multi_wallet"`
	Security    PolicySetConfig   `yaml:"security"`
	Validation  ValidationConfig  `yaml:"validation"`
	Cache       CacheConfig       `yaml:"cache"`
	Audit       AuditConfig       `yaml:"audit"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// HeaderConfig names the inbound headers the gateway reads.
type HeaderConfig struct {
	ValidationToken string `yaml:"validation_token"`
	ValidationType  string `yaml:"validation_type"`
}

// AuthConfig groups everything the login flow needs.
type AuthConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	Nonce     NonceConfig     `yaml:"nonce"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Signature SignatureConfig `yaml:"signature"`
	Hooks     []HookConfig    `yaml:"hooks"`
}

// JWTConfig configures token issuance and verification.
type JWTConfig struct {
	// Key is the base64-encoded HMAC signing key.
	Key      string        `yaml:"key"`
	Issuer   string        `yaml:"issuer"`
	Lifetime time.Duration `yaml:"lifetime"`
}

func (c *JWTConfig) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("key is required")
	}
	if c.Lifetime <= 0 {
		return fmt.Errorf("lifetime must be positive")
	}
	return nil
}

// NonceConfig configures the one-time login challenge.
type NonceConfig struct {
	Lifetime time.Duration `yaml:"lifetime"`
	// MessageTemplate must contain two %s verbs: wallet and nonce.
	MessageTemplate string `yaml:"message_template"`
}

// RefreshConfig configures refresh token issuance.
type RefreshConfig struct {
	Lifetime time.Duration `yaml:"lifetime"`
}

// SignatureConfig selects the wallet signature verifier.
type SignatureConfig struct {
	// Disabled skips signature checks entirely (test setups only).
	Disabled bool `yaml:"disabled"`
	// Type is "local" (secp256k1 recovery in-process) or "http"
	// (remote verifier service).
	Type string `yaml:"type"`
	// URI of the remote verifier, required for type "http".
	URI string `yaml:"uri"`
}

func (c *SignatureConfig) Validate() error {
	switch c.Type {
	case "", "local":
	case "http":
		if c.URI == "" {
			return fmt.Errorf("uri is required for signature type 'http'")
		}
	default:
		return fmt.Errorf("unknown signature type %q", c.Type)
	}
	return nil
}

// HookConfig configures an external login request process.
type HookConfig struct {
	Name         string   `yaml:"name"`
	URI          string   `yaml:"uri"`
	Method       string   `yaml:"method"`
	RequestTypes []string `yaml:"request_types"`
	Phases       []string `yaml:"phases"`
}

func (c *HookConfig) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("uri is required")
	}
	for _, p := range c.Phases {
		if p != string(core.PhaseBefore) && p != string(core.PhaseAfter) {
			return fmt.Errorf("unknown phase %q", p)
		}
	}
	for _, t := range c.RequestTypes {
		switch t {
		case "GET", "POST", "PUT":
		default:
			return fmt.Errorf("unknown request type %q", t)
		}
	}
	return nil
}

// IdentityConfig configures where identity claims come from.
type IdentityConfig struct {
	// Claims configures the external claims service used to enrich the
	// issued JWT. Optional: without it the gateway issues default claims.
	Claims *ClaimsConfig `yaml:"claims"`

	// OIDC configures bearer verification for the IDENTITY_SERVER
	// security method.
	OIDC *OIDCConfig `yaml:"oidc"`
}

// ClaimsConfig describes the external identity/claims service.
type ClaimsConfig struct {
	URI    string `yaml:"uri"`
	Method string `yaml:"method"`
	// Field names in the service response.
	ClientIDField    string `yaml:"client_id_field"`
	TypeField        string `yaml:"type_field"`
	AuthoritiesField string `yaml:"authorities_field"`
}

func (c *ClaimsConfig) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("uri is required")
	}
	return nil
}

// OIDCConfig configures OIDC discovery for identity-server mode.
type OIDCConfig struct {
	IssuerURL string `yaml:"issuer_url"`
	ClientID  string `yaml:"client_id"`
	// AuthoritiesClaim is the claim carrying authority strings.
	AuthoritiesClaim string `yaml:"authorities_claim"`
}

func (c *OIDCConfig) Validate() error {
	if c.IssuerURL == "" {
		return fmt.Errorf("issuer_url is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	return nil
}

// MultiWalletConfig configures multi-wallet resolution.
type MultiWalletConfig struct {
	Disabled bool `yaml:"disabled"`
	// Provider is "HTTP_SERVICE" or "SINGLE".
	Provider    string       `yaml:"provider"`
	HTTPService *HTTPService `yaml:"http_service"`
	// Bound configures the bound-wallets service used by the
	// PUT /v1/auth/wallet/bound flow.
	Bound *HTTPService `yaml:"bound"`
}

// HTTPService is a configurable outbound call target.
type HTTPService struct {
	URI    string `yaml:"uri"`
	Method string `yaml:"method"`
}

func (c *MultiWalletConfig) Validate() error {
	switch c.Provider {
	case "", "SINGLE":
	case "HTTP_SERVICE":
		if c.HTTPService == nil || c.HTTPService.URI == "" {
			return fmt.Errorf("http_service.uri is required for provider HTTP_SERVICE")
		}
	default:
		return fmt.Errorf("unknown multi-wallet provider %q", c.Provider)
	}
	return nil
}

// PolicySetConfig configures one route policy set.
type PolicySetConfig struct {
	Method          policy.AuthMethod  `yaml:"method"`
	MatchType       policy.MatchMode   `yaml:"match_type"`
	BaseAuthorities core.AuthorityRule `yaml:"base_authorities"`
	Routes          []policy.RouteRule `yaml:"routes"`
}

func (c *PolicySetConfig) Validate(name string) error {
	switch c.MatchType {
	case "", policy.MatchIfContains, policy.MatchIfNotContains:
	default:
		return fmt.Errorf("unknown match type %q", c.MatchType)
	}
	switch c.Method {
	case "", policy.AuthWalletJWT, policy.AuthIdentityServer:
	default:
		return fmt.Errorf("unknown auth method %q", c.Method)
	}
	routes, err := validation.ValidateRoutes(name, c.Routes)
	if err != nil {
		return err
	}
	c.Routes = routes
	return nil
}

// ValidationConfig configures the anti-abuse validation policy set and its
// provider chain.
type ValidationConfig struct {
	// Disabled turns the whole chain off regardless of matched rules.
	Disabled bool `yaml:"disabled"`
	// DefaultType is used when the request carries no validation-type
	// header.
	DefaultType string            `yaml:"default_type"`
	Policy      PolicySetConfig   `yaml:"policy"`
	Providers   []ValidatorConfig `yaml:"providers"`
}

// ValidatorConfig holds configuration for one validation provider.
// Provider-specific fields are captured inline and decoded by the provider
// constructor.
type ValidatorConfig struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`    // e.g., "google_captcha", "google_attestation"
	Config map[string]any `yaml:",inline"` // Capture remaining fields
}

// CacheConfig selects the shared-state backend (validation result cache,
// nonce and refresh stores).
type CacheConfig struct {
	// Type is "memory" or "redis".
	Type  string      `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (c *CacheConfig) Validate() error {
	switch c.Type {
	case "", "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for cache type 'redis'")
		}
	default:
		return fmt.Errorf("unknown cache type %q", c.Type)
	}
	return nil
}

// AuditConfig holds configuration for request-history auditing.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Type    string `yaml:"type"` // e.g., "file", "memory", "postgres"
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
}

func (c *AuditConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Type {
	case "", "memory":
	case "file":
		if c.Path == "" {
			return fmt.Errorf("path is required for audit type 'file'")
		}
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for audit type 'postgres'")
		}
	default:
		return fmt.Errorf("unknown audit type %q", c.Type)
	}
	return nil
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Headers.ValidationToken == "" {
		c.Headers.ValidationToken = "ValidationToken"
	}
	if c.Headers.ValidationType == "" {
		c.Headers.ValidationType = "ValidationType"
	}
	if c.Auth.JWT.Issuer == "" {
		c.Auth.JWT.Issuer = "wallet-gateway"
	}
	if c.Auth.JWT.Lifetime <= 0 {
		c.Auth.JWT.Lifetime = time.Hour
	}
	if c.Auth.Nonce.Lifetime <= 0 {
		c.Auth.Nonce.Lifetime = 5 * time.Minute
	}
	if c.Auth.Nonce.MessageTemplate == "" {
		c.Auth.Nonce.MessageTemplate = "Please sign this message to log in.\nWallet: %s\nNonce: %s"
	}
	if c.Auth.Refresh.Lifetime <= 0 {
		c.Auth.Refresh.Lifetime = 30 * 24 * time.Hour
	}
	if c.Security.Method == "" {
		c.Security.Method = policy.AuthWalletJWT
	}
	if c.Security.MatchType == "" {
		// unmatched paths require authentication unless excluded
		c.Security.MatchType = policy.MatchIfNotContains
	}
	if c.Security.BaseAuthorities.CheckMode == "" {
		c.Security.BaseAuthorities.CheckMode = core.CheckAll
	}
	if c.Validation.Policy.MatchType == "" {
		c.Validation.Policy.MatchType = policy.MatchIfContains
	}
	if c.Validation.DefaultType == "" {
		c.Validation.DefaultType = "google_captcha"
	}
}

func (c *Config) Validate() error {
	if c.Upstream == "" {
		return fmt.Errorf("upstream is required")
	}
	if _, err := url.Parse(c.Upstream); err != nil {
		return fmt.Errorf("parsing upstream: %w", err)
	}
	if err := c.Auth.JWT.Validate(); err != nil {
		return fmt.Errorf("validating auth.jwt: %w", err)
	}
	if err := c.Auth.Signature.Validate(); err != nil {
		return fmt.Errorf("validating auth.signature: %w", err)
	}
	for idx, h := range c.Auth.Hooks {
		if err := h.Validate(); err != nil {
			return fmt.Errorf("validating auth.hooks[%d]: %w", idx, err)
		}
	}
	if c.Identity.Claims != nil {
		if err := c.Identity.Claims.Validate(); err != nil {
			return fmt.Errorf("validating identity.claims: %w", err)
		}
	}
	if c.Identity.OIDC != nil {
		if err := c.Identity.OIDC.Validate(); err != nil {
			return fmt.Errorf("validating identity.oidc: %w", err)
		}
	}
	if c.Security.Method == policy.AuthIdentityServer && c.Identity.OIDC == nil {
		return fmt.Errorf("security method IDENTITY_SERVER requires identity.oidc")
	}
	if err := c.MultiWallet.Validate(); err != nil {
		return fmt.Errorf("validating multi_wallet: %w", err)
	}
	if err := c.Security.Validate("security"); err != nil {
		return fmt.Errorf("validating security routes: %w", err)
	}
	if err := c.Validation.Policy.Validate("validation"); err != nil {
		return fmt.Errorf("validating validation routes: %w", err)
	}

	validNames := make(map[string]struct{})
	for idx, p := range c.Validation.Providers {
		if p.Name == "" {
			return fmt.Errorf("validation provider at index %d has empty name", idx)
		}
		if _, exists := validNames[p.Name]; exists {
			return fmt.Errorf("validation provider name '%s' is not unique", p.Name)
		}
		validNames[p.Name] = struct{}{}
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("validating cache: %w", err)
	}
	if err := c.Audit.Validate(); err != nil {
		return fmt.Errorf("validating audit: %w", err)
	}
	return nil
}
