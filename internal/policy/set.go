package policy

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/rs/zerolog/log"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// Set is one ordered policy-rule collection ("security" or "validation").
// A Set is immutable after construction and safe for concurrent use.
type Set struct {
	Name            string
	AuthMethod      AuthMethod
	MatchMode       MatchMode
	BaseAuthorities core.AuthorityRule

	rules []RouteRule
}

// Resolution is the outcome of matching a request against a Set.
type Resolution struct {
	// Required reports whether the policy applies to the request at all.
	Required bool

	// Rule is the matched rule, nil when the set's default applied.
	Rule *RouteRule

	// Authorities is the effective authority requirement.
	Authorities core.AuthorityRule
}

// NewSet builds an immutable policy set from validated rules.
// Rules keep their configuration order; the first match wins.
func NewSet(name string, method AuthMethod, mode MatchMode, base core.AuthorityRule, rules []RouteRule) (*Set, error) {
	built := make([]RouteRule, len(rules))
	for i, rule := range rules {
		m, err := newPathMatcher(rule.Predicate, rule.Path)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		rule.matcher = m
		built[i] = rule
	}
	return &Set{
		Name:            name,
		AuthMethod:      method,
		MatchMode:       mode,
		BaseAuthorities: base,
		rules:           built,
	}, nil
}

// Rules returns a copy of the configured rules, for listing/debugging.
func (s *Set) Rules() []RouteRule {
	out := make([]RouteRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Match resolves the applicable rule for a request. Identical inputs always
// produce identical resolutions.
func (s *Set) Match(method, path string, headers map[string][]string) Resolution {
	matched := s.find(method, path, headers)

	switch s.MatchMode {
	case MatchIfNotContains:
		if matched != nil {
			return Resolution{Required: false, Rule: matched}
		}
		return Resolution{Required: true, Authorities: s.BaseAuthorities}
	default: // MatchIfContains
		if matched == nil {
			return Resolution{Required: false}
		}
		// a rule without any authority config inherits the set's base rule;
		// an explicit empty rule (check_mode set) is kept as-is
		auth := matched.Authorities
		if auth.Empty() && auth.CheckMode == "" {
			auth = s.BaseAuthorities
		}
		return Resolution{Required: true, Rule: matched, Authorities: auth}
	}
}

func (s *Set) find(method, path string, headers map[string][]string) *RouteRule {
	for i := range s.rules {
		rule := &s.rules[i]
		if !rule.matcher.matches(path) {
			continue
		}
		if !methodAllowed(rule.Methods, method) {
			continue
		}
		if rule.CompiledExpr != nil && !evalExpr(rule, method, path, headers) {
			continue
		}
		return rule
	}
	return nil
}

func methodAllowed(allowed []string, method string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, m := range allowed {
		if m == method {
			return true
		}
	}
	return false
}

func evalExpr(rule *RouteRule, method, path string, headers map[string][]string) bool {
	env := ExprEnv(method, path, headers)
	out, err := expr.Run(rule.CompiledExpr, env)
	if err != nil {
		log.Warn().Err(err).Msgf("error evaluating expression for rule '%s'", rule.Name)
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

// ExprEnv builds the evaluation environment for rule expressions.
func ExprEnv(method, path string, headers map[string][]string) map[string]any {
	flat := make(map[string]string, len(headers))
	for k, v := range headers {
		if len(v) > 0 {
			flat[k] = v[0]
		}
	}
	return map[string]any{
		"method":  method,
		"path":    path,
		"headers": flat,
	}
}
