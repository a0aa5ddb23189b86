package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/policy"
)

var matchHeaders []string

var debugMatchCmd = &cobra.Command{
	Use:   "match METHOD PATH",
	Short: "Explain which policy rules a request would match",
	Long: `Evaluates a method and path against the configured security and
	validation route tables and prints the resolution, without starting the
	gateway or calling any provider.`,
	Example: `  # Would a POST to /v1/orders require authentication?
  gateway debug match POST /v1/orders

  # Include a header for rules with header expressions
  gateway debug match GET /v1/market --header X-App-Version=2.1.0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		method := strings.ToUpper(args[0])
		path := args[1]

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		headers := make(map[string][]string)
		for _, h := range matchHeaders {
			key, value, found := strings.Cut(h, "=")
			if !found {
				return fmt.Errorf("malformed header %q, expected key=value", h)
			}
			headers[key] = append(headers[key], value)
		}

		securitySet, err := policy.NewSet("security",
			cfg.Security.Method, cfg.Security.MatchType, cfg.Security.BaseAuthorities, cfg.Security.Routes)
		if err != nil {
			return fmt.Errorf("building security policy set: %w", err)
		}
		validationSet, err := policy.NewSet("validation",
			cfg.Validation.Policy.Method, cfg.Validation.Policy.MatchType,
			cfg.Validation.Policy.BaseAuthorities, cfg.Validation.Policy.Routes)
		if err != nil {
			return fmt.Errorf("building validation policy set: %w", err)
		}

		fmt.Printf("\n%s %s %s\n", bold("Request:"), method, path)

		printResolution("Security", securitySet.Match(method, path, headers))
		printResolution("Validation", validationSet.Match(method, path, headers))
		return nil
	},
}

func printResolution(name string, res policy.Resolution) {
	fmt.Println(bold("\n── " + name + " ──"))
	if res.Rule != nil {
		fmt.Printf("  %s: %s\n", faint("matched rule"), bold(res.Rule.Name))
	} else {
		fmt.Printf("  %s: %s\n", faint("matched rule"), faint("(none, set default)"))
	}
	if res.Required {
		fmt.Printf("  %s: %s\n", faint("applies"), green("yes"))
		fmt.Printf("  %s: %s\n", faint("authorities"), formatAuthorities(res.Authorities))
	} else {
		fmt.Printf("  %s: %s\n", faint("applies"), red("no"))
	}
}

func init() {
	debugCmd.AddCommand(debugMatchCmd)

	debugMatchCmd.Flags().StringArrayVar(&matchHeaders, "header", nil,
		"Request header as key=value, repeatable")
}
