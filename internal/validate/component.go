package validate

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// Mode selects how a provider performs its check.
const (
	ModeOnline  = "ONLINE"
	ModeOffline = "OFFLINE"
)

// Settings are the options every provider shares. Provider-specific config
// structs embed them with mapstructure's squash tag.
type Settings struct {
	// Disabled makes every check pass without calling anything.
	Disabled bool `mapstructure:"disabled"`

	// AlwaysPassed short-circuits to success, for test and staging setups.
	AlwaysPassed bool `mapstructure:"always_passed"`

	// SuperTokenEnabled allows the operator bypass token.
	SuperTokenEnabled bool   `mapstructure:"super_token_enabled"`
	SuperUserToken    string `mapstructure:"super_user_token"`

	// TTL bounds how long a check result is reused.
	TTL time.Duration `mapstructure:"ttl"`

	// Mode is ONLINE (external verify call) or OFFLINE (local verification).
	Mode string `mapstructure:"mode"`

	// URI of the external verifier, where the mode needs one.
	URI string `mapstructure:"uri"`
}

func (s *Settings) applyDefaults() {
	if s.TTL <= 0 {
		s.TTL = 10 * time.Minute
	}
	if s.Mode == "" {
		s.Mode = ModeOnline
	}
}

// Observer is notified about every completed validation decision.
type Observer interface {
	ObserveValidation(provider string, passed, cacheHit bool)
}

// NopObserver discards all observations.
type NopObserver struct{}

func (NopObserver) ObserveValidation(string, bool, bool) {}

// checkFunc performs the provider-specific verification of a token.
// It reports pass/fail with a score and reason; the error is reserved for
// verifier unavailability.
type checkFunc func(ctx context.Context, token, ip string) (passed bool, score float64, reason string, err error)

// component implements the decision algorithm every provider shares:
// disabled, always-passed and super-token short circuits, then the
// TTL-bounded result cache around the provider-specific check.
type component struct {
	typ      string
	settings Settings
	cache    core.ResultCache
	observer Observer
	check    checkFunc
}

func newComponent(typ string, settings Settings, cache core.ResultCache, observer Observer, check checkFunc) *component {
	settings.applyDefaults()
	if observer == nil {
		observer = NopObserver{}
	}
	return &component{
		typ:      typ,
		settings: settings,
		cache:    cache,
		observer: observer,
		check:    check,
	}
}

func (c *component) Type() string {
	return c.typ
}

func (c *component) Validate(ctx context.Context, token, ip string) (core.ValidationResult, error) {
	now := time.Now()

	if c.settings.Disabled {
		return c.bypass(now, "provider disabled"), nil
	}
	if c.settings.AlwaysPassed {
		return c.bypass(now, "always passed"), nil
	}
	if c.settings.SuperTokenEnabled && c.superTokenMatches(token) {
		return c.bypass(now, "super token"), nil
	}
	if token == "" {
		res := core.ValidationResult{
			Provider:  c.typ,
			Reason:    "missing validation token",
			CheckedAt: now,
			TTLExpiry: now,
		}
		c.observer.ObserveValidation(c.typ, false, false)
		return res, nil
	}

	key := fingerprint(token)
	if cached, err := c.cache.Get(ctx, c.typ, key); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("provider", c.typ).Msg("validation cache lookup failed")
	} else if cached != nil {
		c.observer.ObserveValidation(c.typ, cached.Passed, true)
		return *cached, nil
	}

	passed, score, reason, err := c.check(ctx, token, ip)
	if err != nil {
		return core.ValidationResult{}, fmt.Errorf("%w: %s: %v", core.ErrValidationUnavailable, c.typ, err)
	}

	res := core.ValidationResult{
		Passed:    passed,
		Provider:  c.typ,
		Score:     score,
		Reason:    reason,
		CheckedAt: now,
		TTLExpiry: now.Add(c.settings.TTL),
	}
	if err := c.cache.Put(ctx, c.typ, key, res); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("provider", c.typ).Msg("validation cache store failed")
	}
	c.observer.ObserveValidation(c.typ, passed, false)
	return res, nil
}

func (c *component) bypass(now time.Time, reason string) core.ValidationResult {
	c.observer.ObserveValidation(c.typ, true, false)
	return core.ValidationResult{
		Passed:    true,
		Provider:  c.typ,
		Reason:    reason,
		CheckedAt: now,
		TTLExpiry: now,
	}
}

func (c *component) superTokenMatches(token string) bool {
	if token == "" || c.settings.SuperUserToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(c.settings.SuperUserToken)) == 1
}

// fingerprint derives the cache key from the raw token so that the cache
// never stores the token itself.
func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// decodeSettings decodes a provider's inline config map into its typed
// config struct, with duration strings supported.
func decodeSettings(raw map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     out,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	return decoder.Decode(raw)
}
