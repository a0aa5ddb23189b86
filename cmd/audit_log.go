package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/config"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
)

// auditLogCmd represents the audit log command
var auditLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Display recent request-history entries",
	Long: `Reads the file-backed audit log configured for the gateway and prints
	the most recent entries.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		deniedOnly, _ := cmd.Flags().GetBool("denied")

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.Audit.Type != "file" || cfg.Audit.Path == "" {
			return fmt.Errorf("audit log command requires audit type 'file'")
		}

		entries, err := readAuditFile(cfg.Audit.Path, limit, deniedOnly)
		if err != nil {
			return err
		}

		log.Info().Msgf("Showing %d audit entries", len(entries))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Time", "Method", "Path", "Allowed", "Reason", "Rule", "Client",
		})

		for _, e := range entries {
			status := green("YES")
			if !e.Allowed {
				status = red("NO")
			}
			t.AppendRow(table.Row{
				e.Time.Format(time.RFC3339),
				e.Method,
				truncate(e.Path, 40),
				status,
				e.Reason,
				e.RuleName,
				truncate(e.ClientID, 20),
			})
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func readAuditFile(path string, limit int, deniedOnly bool) ([]core.AuditEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audit log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []core.AuditEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry core.AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			log.Warn().Err(err).Msg("skipping malformed audit entry")
			continue
		}
		if deniedOnly && entry.Allowed {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading audit log file: %w", err)
	}

	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func init() {
	auditCmd.AddCommand(auditLogCmd)

	auditLogCmd.Flags().IntP("limit", "n", 25, "Number of audit entries to show")
	auditLogCmd.Flags().Bool("denied", false, "Only show denied requests")
}
