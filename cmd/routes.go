package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/policy"
)

// routesCmd represents the routes command
var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the configured policy routes",
	Long: `Prints the security and validation route tables from the configuration
	file, in evaluation order (first match wins).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fmt.Println(bold("\n── Security Routes ──"))
		fmt.Printf("  %s: %s   %s: %s\n",
			faint("match mode"), cfg.Security.MatchType,
			faint("auth method"), cfg.Security.Method)
		fmt.Printf("  %s: %s\n", faint("base authorities"), formatAuthorities(cfg.Security.BaseAuthorities))
		printRouteTable(cfg.Security.Routes)

		fmt.Println(bold("\n── Validation Routes ──"))
		fmt.Printf("  %s: %s   %s: %s\n",
			faint("match mode"), cfg.Validation.Policy.MatchType,
			faint("default type"), cfg.Validation.DefaultType)
		printRouteTable(cfg.Validation.Policy.Routes)
		return nil
	},
}

func printRouteTable(routes []policy.RouteRule) {
	if len(routes) == 0 {
		fmt.Printf("  %s\n", faint("(no routes configured)"))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{
		"#", "Name", "Predicate", "Path", "Methods", "Authorities", "Expr",
	})

	for i, route := range routes {
		methods := "*"
		if len(route.Methods) > 0 {
			methods = strings.Join(route.Methods, ",")
		}
		t.AppendRow(table.Row{
			i + 1,
			route.Name,
			route.Predicate,
			truncate(route.Path, 45),
			methods,
			formatAuthorities(route.Authorities),
			truncate(route.Expr, 30),
		})
	}

	t.SetStyle(table.StyleLight)
	t.Render()
}

func formatAuthorities(rule core.AuthorityRule) string {
	if rule.Empty() {
		return "(none)"
	}
	mode := string(rule.CheckMode)
	if mode == "" {
		mode = string(core.CheckAll)
	}
	return fmt.Sprintf("%s[%s]", mode, strings.Join(rule.Authorities, ","))
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
