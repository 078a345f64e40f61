package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/daftar-dev/daftar/internal/auditlog"
)

func newAuditCommand(opts *options) *cobra.Command {
	var q auditlog.Query
	var since string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show who changed the books and when",
		Example: `  daftar audit --action invoice
  daftar audit --since 2024-03-01 -n 0`,
		Args: cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			if since != "" {
				d, err := parseDate(since)
				if err != nil {
					return err
				}
				q.Since = d
			}
			entries, err := s.auditLog.Read(q)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				var amount string
				if e.Amount.Valid {
					amount = money(e.Amount.Decimal)
				}
				rows = append(rows, []string{e.Timestamp.Local().Format(time.DateTime), e.Actor, e.Action, e.Subject, amount, e.Details})
			}
			s.out.Table([]string{"When", "Actor", "Action", "Subject", "Amount", "Details"}, rows)
			return nil
		}),
	}

	cmd.Flags().StringVar(&q.Action, "action", "", `only this action or family, e.g. "invoice"`)
	cmd.Flags().StringVar(&since, "since", "", "only changes on or after this date")
	cmd.Flags().IntVarP(&q.Last, "last", "n", 50, "show only the last N changes, 0 for all")
	return cmd
}
