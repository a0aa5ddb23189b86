package validate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// BuildRegistry constructs the configured validation providers keyed by
// their type, which is what the validation-type request header carries.
func BuildRegistry(cfgs []config.ValidatorConfig, cache core.ResultCache, client *http.Client, observer Observer) (map[string]core.Validator, error) {
	registry := make(map[string]core.Validator)
	for _, cfg := range cfgs {
		var (
			v   core.Validator
			err error
		)
		switch cfg.Type {
		case TypeGoogleCaptcha:
			v, err = NewGoogleCaptchaValidator(cfg, cache, client, observer)
		case TypeGoogleAttestation:
			v, err = NewGoogleAttestationValidator(cfg, cache, client, observer)
		case TypeHuaweiAttestation:
			v, err = NewHuaweiAttestationValidator(cfg, cache, client, observer)
		case TypeIOSDeviceCheck:
			v, err = NewIOSDeviceCheckValidator(cfg, cache, client, observer)
		default:
			return nil, fmt.Errorf("unknown validation provider type %q for provider %q", cfg.Type, cfg.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("building %s provider %q: %w", cfg.Type, cfg.Name, err)
		}
		if _, exists := registry[cfg.Type]; exists {
			return nil, fmt.Errorf("duplicate validation provider type %q", cfg.Type)
		}
		registry[cfg.Type] = v
	}
	return registry, nil
}

// Chain dispatches a validation check to the provider named by the
// validation-type header, falling back to the configured default type.
// An unknown type fails the check rather than skipping it.
type Chain struct {
	validators  map[string]core.Validator
	defaultType string
}

func NewChain(validators map[string]core.Validator, defaultType string) *Chain {
	return &Chain{
		validators:  validators,
		defaultType: defaultType,
	}
}

func (c *Chain) Validate(ctx context.Context, validationType, token, ip string) (core.ValidationResult, error) {
	typ := validationType
	if typ == "" {
		typ = c.defaultType
	}
	v, ok := c.validators[typ]
	if !ok {
		now := time.Now()
		return core.ValidationResult{
			Provider:  typ,
			Reason:    fmt.Sprintf("unknown validation type %q", typ),
			CheckedAt: now,
			TTLExpiry: now,
		}, nil
	}
	return v.Validate(ctx, token, ip)
}
