package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/knsuzuki/shopmail/internal/config"
	"github.com/knsuzuki/shopmail/internal/notification"
	"github.com/knsuzuki/shopmail/internal/service"
)

// NewSendCmd returns the "send" subcommand that sends one mail from a JSON payload.
func NewSendCmd(cfg *config.AppConfig) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "send <kind>",
		Short: "Send one mail from a JSON payload",
		Long: `Send one mail of the given kind. The payload has the same shape as the
body of POST /api/mail/{kind}; pass --file - to read it from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readPayload(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			return runSend(cmd.Context(), a.mailSvc, args[0], body, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "Path to the JSON payload, - for stdin")
	return cmd
}

func readPayload(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading payload from stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	return b, nil
}

func runSend(ctx context.Context, svc service.MailService, kindArg string, body []byte, out io.Writer) error {
	kind, err := notification.ParseKind(kindArg)
	if err != nil {
		return err
	}
	resp, err := svc.Send(ctx, kind, json.RawMessage(body))
	if err != nil {
		return fmt.Errorf("sending %s mail: %w", kind, err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
