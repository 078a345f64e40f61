package commands

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
	"github.com/daftar-dev/daftar/internal/tax"
)

func newDeclarationCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "declaration",
		Aliases: []string{"declarations", "decl"},
		Short:   "Prepare and track tax declarations",
	}
	cmd.AddCommand(
		newDeclarationCreateCommand(opts),
		newDeclarationListCommand(opts),
		newDeclarationSubmitCommand(opts),
		newDeclarationDeleteCommand(opts),
	)
	return cmd
}

func newDeclarationCreateCommand(opts *options) *cobra.Command {
	var typ, per, start, end, deadline string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Compute and record a TVA, IS or IR declaration",
		Example: `  daftar declaration create --type TVA --period monthly --start 2024-03-01
  daftar declaration create --type IS --period annual --start 2024-01-01 --deadline 2025-03-31`,
		Args: cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			params := tax.DeclarationParams{
				Type:   model.DeclarationType(typ),
				Period: model.DeclarationPeriod(per),
			}
			var err error
			if params.StartDate, err = parseDate(start); err != nil {
				return err
			}
			if end != "" {
				if params.EndDate, err = parseDate(end); err != nil {
					return err
				}
			}
			if deadline != "" {
				if params.Deadline, err = parseDate(deadline); err != nil {
					return err
				}
			}

			decl, err := s.eng.Declarations.Create(cmd.Context(), params)
			if err != nil {
				return err
			}
			s.audit("declaration.create", decl.ID, decl.TotalAmount, string(decl.Type))
			if s.out.json {
				return s.out.JSON(decl)
			}
			s.out.Printf("Declaration %s: %s %s %s, %s due by %s\n",
				decl.ID, decl.Type, decl.Period, period.Window{Start: decl.StartDate, End: decl.EndDate},
				money(decl.TotalAmount), period.Format(decl.Deadline))
			return nil
		}),
	}

	cmd.Flags().StringVar(&typ, "type", "", "TVA, IS or IR (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().StringVar(&per, "period", string(model.PeriodMonthly), "monthly, quarterly or annual")
	cmd.Flags().StringVar(&start, "start", "", "first day of the period (required)")
	_ = cmd.MarkFlagRequired("start")
	cmd.Flags().StringVar(&end, "end", "", "last day of the period, derived when empty")
	cmd.Flags().StringVar(&deadline, "deadline", "", "filing deadline, derived from the configured offsets when empty")
	return cmd
}

func newDeclarationListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List declarations, latest deadline first",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			decls, err := s.eng.Declarations.List(cmd.Context())
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(decls)
			}
			today := period.Day(time.Now())
			rows := make([][]string, 0, len(decls))
			for _, d := range decls {
				status := "pending"
				switch {
				case d.Submitted:
					status = "submitted " + period.Format(d.SubmittedOn)
				case d.Deadline.Before(today):
					status = "overdue"
				}
				rows = append(rows, []string{d.ID, string(d.Type), string(d.Period), period.Format(d.StartDate), period.Format(d.EndDate), period.Format(d.Deadline), money(d.TotalAmount), status})
			}
			s.out.Table([]string{"ID", "Type", "Period", "Start", "End", "Deadline", "Amount", "Status"}, rows)
			return nil
		}),
	}
}

func newDeclarationSubmitCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "submit DECLARATION_ID",
		Short: "Mark a declaration submitted",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			decl, err := s.eng.Declarations.Submit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			s.audit("declaration.submit", decl.ID, decl.TotalAmount, string(decl.Type))
			s.out.Printf("Declaration %s submitted on %s\n", decl.ID, period.Format(decl.SubmittedOn))
			return nil
		}),
	}
}

func newDeclarationDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete DECLARATION_ID",
		Short: "Delete a declaration that has not been submitted",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			if err := s.eng.Declarations.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			s.audit("declaration.delete", args[0], decimal.Zero, "")
			s.out.Printf("Deleted declaration %s\n", args[0])
			return nil
		}),
	}
}
