package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/knsuzuki/shopmail/internal/config"
	"github.com/knsuzuki/shopmail/internal/notification"
	"github.com/knsuzuki/shopmail/internal/service"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// NewHistoryCmd returns the "history" subcommand that lists shipping notice history.
func NewHistoryCmd(cfg *config.AppConfig) *cobra.Command {
	var orderID int64
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List shipping notices that were sent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			return runHistory(cmd.Context(), a.mailSvc, orderID, limit, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int64Var(&orderID, "order", 0, "Only show mails for this order id")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of rows")
	return cmd
}

func runHistory(ctx context.Context, svc service.MailService, orderID int64, limit int, out io.Writer) error {
	records, err := svc.ListHistory(ctx, orderID, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(out, mutedStyle.Render("No mail history."))
		return err
	}
	_, err = fmt.Fprintln(out, renderHistoryTable(records))
	return err
}

func renderHistoryTable(records []notification.HistoryRecord) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.OrderID, 10),
			r.SentAt.Local().Format("2006-01-02 15:04"),
			r.Subject,
			firstLine(r.Body, 40),
		})
	}
	return newTable("ID", "ORDER", "SENT", "SUBJECT", "BODY").Rows(rows...).String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// firstLine returns the first non-blank line of s, cut to n runes.
func firstLine(s string, n int) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r := []rune(line)
		if len(r) > n {
			return string(r[:n]) + "…"
		}
		return line
	}
	return ""
}
