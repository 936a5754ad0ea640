package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"PayGate/internal/config"
	"PayGate/internal/signature"
)

var signSecret string

var signCmd = &cobra.Command{
	Use:   "sign [payload-file]",
	Short: "Print the webhook signature of a payload",
	Long: `Print the hex HMAC-SHA256 signature of a payload, as sent in X-Signature.

Reads stdin when no file is given. The secret defaults to MESOMB_SECRET_KEY.

Examples:
  paygate sign event.json
  cat event.json | paygate sign --secret s3cr3t`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSign,
}

func init() {
	signCmd.Flags().StringVar(&signSecret, "secret", "", "signing secret")
}

func runSign(cmd *cobra.Command, args []string) error {
	secret := signSecret
	if secret == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		secret = cfg.Webhook.Secret
	}
	if secret == "" {
		return fmt.Errorf("no secret: pass --secret or set MESOMB_SECRET_KEY")
	}

	var (
		payload []byte
		err     error
	)
	if len(args) == 1 {
		payload, err = os.ReadFile(args[0])
	} else {
		payload, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), signature.Sign(payload, secret))
	return nil
}
