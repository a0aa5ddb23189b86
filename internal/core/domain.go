package core

import (
	"time"
)

// CheckMode controls how a set of required authorities is evaluated
// against the authorities granted to a client.
type CheckMode string

const (
	// CheckAny passes if at least one required authority is granted.
	CheckAny CheckMode = "ANY"
	// CheckAll passes only if every required authority is granted.
	CheckAll CheckMode = "ALL"
)

// AuthorityRule is a named requirement of authority strings plus the mode
// used to check them.
type AuthorityRule struct {
	Authorities []string  `yaml:"authorities" json:"authorities"`
	CheckMode   CheckMode `yaml:"check_mode" json:"check_mode"`
}

// Empty reports whether the rule requires no authorities at all.
func (r AuthorityRule) Empty() bool {
	return len(r.Authorities) == 0
}

// Check evaluates the granted authorities against the rule.
// An empty rule with CheckAll trivially passes; with CheckAny it trivially
// fails, since there is nothing the caller could hold to satisfy it.
func (r AuthorityRule) Check(granted []string) bool {
	have := make(map[string]struct{}, len(granted))
	for _, a := range granted {
		have[a] = struct{}{}
	}
	switch r.CheckMode {
	case CheckAny:
		for _, want := range r.Authorities {
			if _, ok := have[want]; ok {
				return true
			}
		}
		return false
	default: // CheckAll
		for _, want := range r.Authorities {
			if _, ok := have[want]; !ok {
				return false
			}
		}
		return true
	}
}

// Client represents the authenticated identity of the caller.
// It is produced by the JWT service after verifying a bearer token.
type Client struct {
	// ID is the profile identifier the wallet belongs to.
	ID string `json:"id"`

	// WalletType names the wallet provider the client logged in with.
	WalletType string `json:"wallet_type"`

	// CurrentWallet is the address the current session was opened with.
	CurrentWallet string `json:"current_wallet"`

	// Wallets are all addresses bound to the profile.
	Wallets []string `json:"wallets"`

	// Authorities are the permission strings granted to the client.
	Authorities []string `json:"authorities"`
}

// WalletBinding is the result of a multi-wallet resolution.
type WalletBinding struct {
	ProfileID string   `json:"profile_id"`
	Wallets   []string `json:"wallets"`
}

// Nonce is a one-time signing challenge issued for a wallet login.
type Nonce struct {
	Value     string
	Wallet    string
	Message   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the nonce is no longer usable at the given time.
func (n Nonce) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}

// RefreshToken is an opaque credential that can be exchanged for a new JWT.
type RefreshToken struct {
	Value     string
	Wallet    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ValidationResult is the outcome of a single anti-abuse provider check.
// Results are cached per (provider, token fingerprint) and reused until
// TTLExpiry passes; expired entries are evicted lazily on the next lookup.
type ValidationResult struct {
	Passed    bool      `json:"passed"`
	Provider  string    `json:"provider"`
	Score     float64   `json:"score"`
	Reason    string    `json:"reason,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	TTLExpiry time.Time `json:"ttl_expiry"`
}

// Fresh reports whether the cached result may still be served.
func (r ValidationResult) Fresh(now time.Time) bool {
	return now.Before(r.TTLExpiry)
}

// Verdict is the terminal state of the policy enforcer for one request.
type Verdict struct {
	Allowed bool
	// Reason is set on deny: "Unauthorized", "ValidationFailed", ...
	Reason string
	// RuleName names the matched security rule, empty for set defaults.
	RuleName string
	// Provider names the failing validation provider, if any.
	Provider string
	// Client is the authenticated caller, nil for anonymous requests.
	Client *Client
}

// AuditEntry is one request-history record written by the enforcer.
type AuditEntry struct {
	ID       string         `json:"id"`
	Time     time.Time      `json:"time"`
	Method   string         `json:"method"`
	Path     string         `json:"path"`
	RuleName string         `json:"rule_name,omitempty"`
	ClientID string         `json:"client_id,omitempty"`
	Wallet   string         `json:"wallet,omitempty"`
	Allowed  bool           `json:"allowed"`
	Reason   string         `json:"reason,omitempty"`
	Provider string         `json:"provider,omitempty"`
	Duration time.Duration  `json:"duration"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
