package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/buildinfo"
	"github.com/alcosi/alcosi-blockchain-api-gateway/pkg/client"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information about the gateway installation",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildinfo.GetBuildInfo()
		fmt.Println(bold("\n── Gateway Build Information ──"))
		fmt.Printf("  %s:    %s\n", faint("Version"), info.Version)
		fmt.Printf("  %s:     %s\n", faint("Commit"), info.CommitHash)

		server := viper.GetString(GatewayAddrKey)
		if server == "" {
			return nil
		}

		log.Info().Msgf("Checking gateway at %s...", server)
		if _, err := client.New(server).Health(cmd.Context()); err != nil {
			fmt.Printf("  %s:     %s\n", faint("Server"), red("unreachable"))
			return err
		}
		fmt.Printf("  %s:     %s\n", faint("Server"), green("healthy"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
