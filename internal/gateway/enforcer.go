package gateway

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/auth"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/identity"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/policy"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/validate"
)

// Deny reasons reported in verdicts, audit entries and metrics.
const (
	ReasonUnauthorized          = "Unauthorized"
	ReasonValidationFailed      = "ValidationFailed"
	ReasonValidationUnavailable = "ValidationUnavailable"
)

// VerdictObserver is notified about every enforcement decision.
type VerdictObserver interface {
	ObserveVerdict(allowed bool, reason string)
}

type nopVerdictObserver struct{}

func (nopVerdictObserver) ObserveVerdict(bool, string) {}

// Enforcer decides for each inbound request whether it may be proxied:
// it resolves the security rule, authenticates the caller when required,
// checks authorities and runs the validation chain when its policy matches.
// Security and validation are independent; both must pass.
type Enforcer struct {
	security   *policy.Set
	validation *policy.Set

	jwt  *auth.JWTService
	oidc *identity.OIDCVerifier

	chain              *validate.Chain
	validationDisabled bool

	tokenHeader string
	typeHeader  string

	observer VerdictObserver
}

type EnforcerParams struct {
	Security           *policy.Set
	Validation         *policy.Set
	JWT                *auth.JWTService
	OIDC               *identity.OIDCVerifier
	Chain              *validate.Chain
	ValidationDisabled bool
	TokenHeader        string
	TypeHeader         string
	Observer           VerdictObserver
}

func NewEnforcer(params EnforcerParams) *Enforcer {
	observer := params.Observer
	if observer == nil {
		observer = nopVerdictObserver{}
	}
	return &Enforcer{
		security:           params.Security,
		validation:         params.Validation,
		jwt:                params.JWT,
		oidc:               params.OIDC,
		chain:              params.Chain,
		validationDisabled: params.ValidationDisabled,
		tokenHeader:        params.TokenHeader,
		typeHeader:         params.TypeHeader,
		observer:           observer,
	}
}

// Decide runs the enforcement state machine for one request.
func (e *Enforcer) Decide(ctx context.Context, r *http.Request) core.Verdict {
	// CORS preflights carry no credentials
	if r.Method == http.MethodOptions {
		return e.allow(core.Verdict{Allowed: true})
	}

	verdict := core.Verdict{Allowed: true}

	secRes := e.security.Match(r.Method, r.URL.Path, r.Header)
	if secRes.Rule != nil {
		verdict.RuleName = secRes.Rule.Name
	}
	if secRes.Required {
		client, err := e.Authenticate(ctx, r)
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Msg("authentication rejected")
			return e.deny(verdict, ReasonUnauthorized, "")
		}
		verdict.Client = client
		if !secRes.Authorities.Check(client.Authorities) {
			log.Ctx(ctx).Debug().
				Str("client_id", client.ID).
				Strs("granted", client.Authorities).
				Strs("required", secRes.Authorities.Authorities).
				Str("check_mode", string(secRes.Authorities.CheckMode)).
				Msg("insufficient authorities")
			return e.deny(verdict, ReasonUnauthorized, "")
		}
	}

	valRes := e.validation.Match(r.Method, r.URL.Path, r.Header)
	if valRes.Required && !e.validationDisabled {
		token := r.Header.Get(e.tokenHeader)
		validationType := r.Header.Get(e.typeHeader)

		result, err := e.chain.Validate(ctx, validationType, token, remoteIP(r))
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("validation provider unavailable")
			return e.deny(verdict, ReasonValidationUnavailable, validationType)
		}
		if !result.Passed {
			log.Ctx(ctx).Debug().
				Str("provider", result.Provider).
				Str("reason", result.Reason).
				Float64("score", result.Score).
				Msg("validation failed")
			return e.deny(verdict, ReasonValidationFailed, result.Provider)
		}
	}

	return e.allow(verdict)
}

// Authenticate extracts and verifies the bearer credential according to the
// security set's auth method.
func (e *Enforcer) Authenticate(ctx context.Context, r *http.Request) (*core.Client, error) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, core.ErrUnauthorized
	}
	if e.security.AuthMethod == policy.AuthIdentityServer {
		return e.oidc.Verify(ctx, raw)
	}
	return e.jwt.Parse(raw)
}

func (e *Enforcer) allow(v core.Verdict) core.Verdict {
	e.observer.ObserveVerdict(true, "")
	return v
}

func (e *Enforcer) deny(v core.Verdict, reason, provider string) core.Verdict {
	v.Allowed = false
	v.Reason = reason
	v.Provider = provider
	e.observer.ObserveVerdict(false, reason)
	return v
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func remoteIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
