package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/knsuzuki/shopmail/internal/config"
	"github.com/knsuzuki/shopmail/internal/notification"
	"github.com/knsuzuki/shopmail/internal/service"
)

// NewTemplatesCmd returns the "templates" subcommand that lists stored mail templates.
func NewTemplatesCmd(cfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the stored mail templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			return runTemplates(cmd.Context(), a.mailSvc, cmd.OutOrStdout())
		},
	}
}

func runTemplates(ctx context.Context, svc service.MailService, out io.Writer) error {
	refs, err := svc.ListTemplates(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, renderTemplatesTable(refs))
	return err
}

func renderTemplatesTable(refs []*notification.TemplateRef) string {
	rows := make([][]string, 0, len(refs))
	for _, r := range refs {
		rows = append(rows, []string{strconv.FormatInt(r.ID, 10), r.Name, r.FileName, r.Subject})
	}
	return newTable("ID", "NAME", "FILE", "SUBJECT").Rows(rows...).String()
}
