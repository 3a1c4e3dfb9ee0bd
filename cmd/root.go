package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/knsuzuki/shopmail/internal/config"
	"github.com/knsuzuki/shopmail/internal/notification"
	"github.com/knsuzuki/shopmail/internal/service"
)

// NewRootCmd returns the "shopmail" command with every subcommand attached.
func NewRootCmd(cfg *config.AppConfig) *cobra.Command {
	var noColor bool

	root := &cobra.Command{
		Use:   "shopmail",
		Short: "Transactional mail dispatcher for the storefront",
		Long: `shopmail renders and sends the storefront's transactional mails
(registration, orders, password resets, shipping notices) and keeps
shipping notice history.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if noColor || os.Getenv("NO_COLOR") != "" {
				lipgloss.SetColorProfile(termenv.Ascii)
			}
		},
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		NewServeCmd(cfg),
		NewSendCmd(cfg),
		NewHistoryCmd(cfg),
		NewTemplatesCmd(cfg),
		NewUpdateCmd(),
		NewVersionCmd(),
	)
	return root
}

// Execute loads configuration and runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := NewRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps rejected requests to 2 so scripts can tell them apart from
// delivery or infrastructure failures.
func exitCode(err error) int {
	var kindErr *notification.ValidationError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, service.ErrInvalid), errors.Is(err, service.ErrNotFound), errors.As(err, &kindErr):
		return 2
	default:
		return 1
	}
}
