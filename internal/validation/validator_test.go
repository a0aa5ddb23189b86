package validation

import (
	"strings"
	"testing"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/policy"
)

func TestValidateRoutes(t *testing.T) {
	tests := []struct {
		name    string
		rules   []policy.RouteRule
		wantErr string
	}{
		{
			name: "Valid Rules",
			rules: []policy.RouteRule{
				{Name: "orders", Path: "/v1/orders/**"},
				{Name: "health", Path: "/healthz", Predicate: policy.PredicateExact},
			},
		},
		{
			name: "Duplicate Names",
			rules: []policy.RouteRule{
				{Name: "dup", Path: "/a"},
				{Name: "dup", Path: "/b"},
			},
			wantErr: "not unique",
		},
		{
			name:    "Missing Path",
			rules:   []policy.RouteRule{{Name: "nopath"}},
			wantErr: "missing path",
		},
		{
			name:    "Unknown Predicate",
			rules:   []policy.RouteRule{{Name: "rx", Path: "/a", Predicate: "REGEX"}},
			wantErr: "unknown predicate type",
		},
		{
			name: "Unknown Check Mode",
			rules: []policy.RouteRule{{
				Name: "bad-mode",
				Path: "/a",
				Authorities: core.AuthorityRule{
					Authorities: []string{"ADMIN"},
					CheckMode:   "SOME",
				},
			}},
			wantErr: "unknown check mode",
		},
		{
			name:    "Invalid Expression",
			rules:   []policy.RouteRule{{Name: "bad-expr", Path: "/a", Expr: "method =="}},
			wantErr: "compiling expr",
		},
		{
			name:    "Non Boolean Expression",
			rules:   []policy.RouteRule{{Name: "non-bool", Path: "/a", Expr: "path"}},
			wantErr: "compiling expr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateRoutes("security", tt.rules)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ValidateRoutes() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateRoutes() error = %v", err)
			}
			if len(got) != len(tt.rules) {
				t.Fatalf("got %d rules, want %d", len(got), len(tt.rules))
			}
		})
	}
}

func TestValidateRoutes_Defaults(t *testing.T) {
	got, err := ValidateRoutes("validation", []policy.RouteRule{
		{Path: "/v1/payment/**"},
		{Path: "/v1/market/**", Expr: `method == "POST"`},
	})
	if err != nil {
		t.Fatalf("ValidateRoutes() error = %v", err)
	}

	if got[0].Name != "validation[0]" {
		t.Errorf("auto name = %q, want %q", got[0].Name, "validation[0]")
	}
	if got[1].Name != "validation[1]" {
		t.Errorf("auto name = %q, want %q", got[1].Name, "validation[1]")
	}
	if got[0].Predicate != policy.PredicateAnt {
		t.Errorf("default predicate = %q, want %q", got[0].Predicate, policy.PredicateAnt)
	}
	if got[1].CompiledExpr == nil {
		t.Error("expression should be compiled at load time")
	}
}
