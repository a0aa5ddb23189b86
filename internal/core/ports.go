package core

import "context"

// SignatureVerifier checks that a wallet signature over a nonce message was
// produced by the wallet that requested the nonce.
// Implementations: local secp256k1 recovery, remote HTTP verifier, disabled.
type SignatureVerifier interface {
	// Check returns nil if the signature matches, a WrongSignerError (or a
	// wrapped ErrInvalidSignature) otherwise.
	Check(ctx context.Context, nonce Nonce, signature string) error
}

// WalletResolver resolves all wallets bound to a profile given one of its
// wallet addresses. Results must be treated as fresh on every call; caching,
// if any, belongs to the backing service.
type WalletResolver interface {
	Resolve(ctx context.Context, wallet string) (*WalletBinding, error)
}

// IdentityProvider fetches the identity claims (client id, type, authorities)
// for a wallet from an external claims service.
type IdentityProvider interface {
	Fetch(ctx context.Context, wallet string) (*Client, error)
}

// Validator is a single anti-abuse check (captcha, device attestation, ...).
// Implementations share the disabled / always-passed / super-token / cache
// algorithm and differ only in the provider-specific check.
type Validator interface {
	// Type returns the identifier used in the validation-type header.
	Type() string

	// Validate checks the client-submitted token. A failed check is reported
	// through the result, not the error; the error is reserved for provider
	// unavailability (wrapped ErrValidationUnavailable).
	Validate(ctx context.Context, token, ip string) (ValidationResult, error)
}

// ResultCache stores validation results keyed by (provider, fingerprint).
// Expired entries are dropped lazily on lookup.
type ResultCache interface {
	Get(ctx context.Context, provider, key string) (*ValidationResult, error)
	Put(ctx context.Context, provider, key string, res ValidationResult) error
}

// NonceStore keeps one pending login challenge per wallet.
type NonceStore interface {
	Save(ctx context.Context, nonce Nonce) error
	// Get returns the pending nonce for the wallet or ErrNoNonce.
	Get(ctx context.Context, wallet string) (*Nonce, error)
	Delete(ctx context.Context, wallet string) error
}

// RefreshStore keeps issued refresh tokens until they are rotated or expire.
type RefreshStore interface {
	Save(ctx context.Context, token RefreshToken) error
	// Find returns the stored token or ErrInvalidRefreshToken.
	Find(ctx context.Context, value string) (*RefreshToken, error)
	Delete(ctx context.Context, value string) error
}

// Auditor records request-history entries.
// Implementations: memory, file (JSON lines), postgres.
type Auditor interface {
	Log(ctx context.Context, entry AuditEntry) error
	Close() error
}

// LoginPhase tells when a login hook runs relative to the core login step.
type LoginPhase string

const (
	PhaseBefore LoginPhase = "BEFORE"
	PhaseAfter  LoginPhase = "AFTER"
)

// LoginHook is an external process invoked around login requests, e.g. a
// profile service that creates an account on first login.
type LoginHook interface {
	// Phases returns when this hook should run.
	Phases() []LoginPhase

	// RequestTypes returns the login request types the hook applies to
	// ("GET", "POST", "PUT").
	RequestTypes() []string

	Process(ctx context.Context, wallet string) error
}
