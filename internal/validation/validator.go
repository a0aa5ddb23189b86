package validation

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/policy"
)

// ValidateRoutes checks a policy set's rule list at load time and returns the
// rules with their expressions compiled. Invalid rule definitions are fatal
// at startup, never at request time.
func ValidateRoutes(setName string, rules []policy.RouteRule) ([]policy.RouteRule, error) {
	seenNames := make(map[string]struct{})
	var validRules []policy.RouteRule

	for i, rule := range rules {
		if rule.Name == "" {
			rule.Name = fmt.Sprintf("%s[%d]", setName, i)
		}
		if _, exists := seenNames[rule.Name]; exists {
			return nil, fmt.Errorf("rule name '%s' is not unique", rule.Name)
		}
		seenNames[rule.Name] = struct{}{}

		if rule.Path == "" {
			return nil, fmt.Errorf("rule '%s' missing path", rule.Name)
		}
		if rule.Predicate == "" {
			rule.Predicate = policy.PredicateAnt
		}
		switch rule.Predicate {
		case policy.PredicateExact, policy.PredicateAnt, policy.PredicateTemplate:
		default:
			return nil, fmt.Errorf("rule '%s' has unknown predicate type '%s'", rule.Name, rule.Predicate)
		}

		switch rule.Authorities.CheckMode {
		case "", core.CheckAny, core.CheckAll:
		default:
			return nil, fmt.Errorf("rule '%s' has unknown check mode '%s'", rule.Name, rule.Authorities.CheckMode)
		}

		if rule.Expr != "" {
			// compile and validate expression
			out, err := expr.Compile(rule.Expr,
				expr.Env(policy.ExprEnv("", "", nil)),
				expr.AsBool(),
			)
			if err != nil {
				return nil, fmt.Errorf("compiling expr for rule '%s': %w", rule.Name, err)
			}
			rule.CompiledExpr = out
		}

		validRules = append(validRules, rule)
	}

	return validRules, nil
}
