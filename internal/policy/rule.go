package policy

import (
	"github.com/expr-lang/expr/vm"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// AuthMethod selects how a security-matched request is authenticated.
type AuthMethod string

const (
	// AuthWalletJWT authenticates with a gateway-issued wallet JWT.
	AuthWalletJWT AuthMethod = "WALLET_JWT"
	// AuthIdentityServer authenticates against an external identity server.
	AuthIdentityServer AuthMethod = "IDENTITY_SERVER"
)

// PredicateType selects the path matching strategy of a rule.
type PredicateType string

const (
	// PredicateExact matches the request path literally.
	PredicateExact PredicateType = "EXACT"
	// PredicateAnt matches ant-style globs: `*` is one path segment,
	// `**` is any remaining segments.
	PredicateAnt PredicateType = "ANT"
	// PredicateTemplate matches route templates with `{var}` segments.
	PredicateTemplate PredicateType = "TEMPLATE"
)

// MatchMode inverts or keeps the meaning of a rule-list hit for a policy set.
type MatchMode string

const (
	// MatchIfContains applies the policy when a rule in the list matches.
	MatchIfContains MatchMode = "MATCH_IF_CONTAINS_IN_LIST"
	// MatchIfNotContains applies the policy when no rule in the list matches.
	// Used for "everything except these paths" security setups.
	MatchIfNotContains MatchMode = "MATCH_IF_NOT_CONTAINS_IN_LIST"
)

// RouteRule binds a path pattern to the authorities required to use it.
// Rules are immutable after load and shared read-only across requests.
type RouteRule struct {
	// Name is a human-readable identifier for logs/debugging.
	Name string `yaml:"name" json:"name"`

	// Path is the pattern interpreted according to Predicate.
	Path string `yaml:"path" json:"path"`

	// Methods restricts the rule to the listed HTTP methods.
	// Empty means any method.
	Methods []string `yaml:"methods" json:"methods"`

	// Predicate is the matching strategy for Path.
	Predicate PredicateType `yaml:"predicate" json:"predicate"`

	// Authorities required on this route. Empty falls back to the policy
	// set's base authorities.
	Authorities core.AuthorityRule `yaml:"authorities" json:"authorities"`

	// Expr is an optional expression constraint evaluated against
	// {path, method, headers}. Leaving it empty means no constraint.
	Expr string `yaml:"expr" json:"expr"`

	// CompiledExpr holds the pre-compiled form of Expr.
	CompiledExpr *vm.Program `yaml:"-" json:"-"`

	matcher pathMatcher
}
