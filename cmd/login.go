package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alcosi/alcosi-blockchain-api-gateway/pkg/client"
)

var loginKey string

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to a running gateway with a wallet key",
	Long: `Performs the full wallet login flow against a running gateway: requests
	a signing challenge, signs it locally with the given private key and
	exchanges the signature for a session token.

The private key never leaves this machine.`,
	Example: `  gateway login --server http://localhost:8080 --key <hex private key>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := viper.GetString(GatewayAddrKey)
		if server == "" {
			return fmt.Errorf("server address not configured (use --server or set GATEWAY_ADDR)")
		}
		if loginKey == "" {
			return fmt.Errorf("private key not provided (use --key)")
		}

		privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(loginKey, "0x"))
		if err != nil {
			return fmt.Errorf("parsing private key: %w", err)
		}
		wallet := strings.ToLower(crypto.PubkeyToAddress(privateKey.PublicKey).Hex())

		cli := client.New(server)

		log.Info().Str("wallet", wallet).Msg("Requesting signing challenge...")
		challenge, correlation, err := cli.RequestChallenge(cmd.Context(), wallet)
		if err != nil {
			return logError(err, correlation, "failed to request challenge")
		}

		digest := crypto.Keccak256(
			[]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(challenge.Message), challenge.Message)))
		signature, err := crypto.Sign(digest, privateKey)
		if err != nil {
			return fmt.Errorf("signing challenge: %w", err)
		}
		signature[64] += 27

		log.Info().Msg("Submitting signed challenge...")
		session, correlation, err := cli.Login(cmd.Context(), wallet, "0x"+hex.EncodeToString(signature))
		if err != nil {
			return logError(err, correlation, "login failed")
		}

		fmt.Println(bold("\n── Session ──"))
		fmt.Printf("  %s: %s\n", faint("Wallet"), wallet)
		fmt.Printf("  %s: %s\n", faint("Token"), session.Token)
		fmt.Printf("  %s: %s\n", faint("Refresh"), session.RefreshToken)
		fmt.Printf("  %s: %s\n", faint("Expires"), session.ExpiresAt)
		return nil
	},
}

func logError(err error, correlation, msg string) error {
	if correlation != "" {
		log.Error().Str("correlation_id", correlation).Msg(msg)
	}
	return err
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVar(&loginKey, "key", "", "Hex-encoded wallet private key")
}
