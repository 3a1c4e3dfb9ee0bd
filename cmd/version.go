package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knsuzuki/shopmail/internal/build"
)

// NewVersionCmd returns the "version" subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the shopmail version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shopmail %s\n", build.String())
		},
	}
}
