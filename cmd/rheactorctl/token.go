package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RHeactorJS/rheactor-server/internal/config"
	"github.com/RHeactorJS/rheactor-server/internal/tokens"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect tokens",
}

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify a token and print its claims",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		pubPEM, err := os.ReadFile(cfg.Token.PublicKeyFile)
		if err != nil {
			return err
		}
		pub, err := tokens.ParsePublicKey(pubPEM)
		if err != nil {
			return fmt.Errorf("parse public key: %w", err)
		}

		claims, err := tokens.NewVerifier(pub, cfg.APIHost).Verify(args[0])
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(claims, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenVerifyCmd)
}
