package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Notifuse/designer/pkg/crypto"
)

const usage = `Usage:
  go run cmd/secrets/main.go share                 secret for SHARE_SECRET
  go run cmd/secrets/main.go webhook               secret for WEBHOOK_SECRET
  go run cmd/secrets/main.go inbox <password>      bcrypt hash for DEV_INBOX_PASSWORD_HASH`

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "share":
		secret, err := crypto.GenerateShareSecret()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "SHARE_SECRET=%s\n", secret)
	case "webhook":
		secret, err := crypto.GenerateWebhookSecret()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "WEBHOOK_SECRET=%s\n", secret)
	case "inbox":
		if len(args) < 2 || args[1] == "" {
			return fmt.Errorf("inbox requires a password")
		}
		hash, err := crypto.HashPassword(args[1], 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "DEV_INBOX_PASSWORD=%s\n", args[1])
		fmt.Fprintf(out, "DEV_INBOX_PASSWORD_HASH='%s'\n", hash)
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Println(err)
		fmt.Println(usage)
		os.Exit(1)
	}
}
