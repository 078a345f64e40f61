package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/daftar-dev/daftar/internal/accounts"
	"github.com/daftar-dev/daftar/internal/journal"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
)

const cliAuthor = "cli"

func newJournalCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Record and inspect journal entries",
	}
	cmd.AddCommand(
		newJournalAddCommand(opts),
		newJournalListCommand(opts),
		newJournalShowCommand(opts),
		newJournalDeleteCommand(opts),
		newJournalExportCommand(opts),
		newJournalImportCommand(opts),
	)
	return cmd
}

func newJournalAddCommand(opts *options) *cobra.Command {
	var debits, credits []string
	var dateStr, desc, ref string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an entry from --debit and --credit legs",
		Example: `  daftar journal add --date 2024-03-01 --desc "Loyer mars" \
    --debit 6131=3000 --credit 5141=3000`,
		Args: cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			ctx := cmd.Context()
			d, err := parseDateOr(dateStr, time.Now())
			if err != nil {
				return err
			}
			chart, err := s.eng.Accounts.Chart(ctx)
			if err != nil {
				return err
			}

			params := journal.CreateParams{Date: d, Reference: ref, Description: desc, CreatedBy: cliAuthor}
			total := decimal.Zero
			for _, leg := range debits {
				acct, amount, err := resolveLeg(chart, leg)
				if err != nil {
					return err
				}
				total = total.Add(amount)
				params.Lines = append(params.Lines, journal.LineParams{AccountID: acct.ID, Debit: amount})
			}
			for _, leg := range credits {
				acct, amount, err := resolveLeg(chart, leg)
				if err != nil {
					return err
				}
				params.Lines = append(params.Lines, journal.LineParams{AccountID: acct.ID, Credit: amount})
			}

			entryID, err := s.eng.Journal.Create(ctx, params)
			if err != nil {
				return err
			}
			s.audit("journal.add", entryID, total, desc)
			if s.out.json {
				entry, err := s.eng.Journal.Get(ctx, entryID)
				if err != nil {
					return err
				}
				return s.out.JSON(entry)
			}
			s.out.Printf("Recorded entry %s\n", entryID)
			return nil
		}),
	}

	cmd.Flags().StringArrayVar(&debits, "debit", nil, "debit leg CODE=AMOUNT (repeatable)")
	cmd.Flags().StringArrayVar(&credits, "credit", nil, "credit leg CODE=AMOUNT (repeatable)")
	cmd.Flags().StringVar(&dateStr, "date", "", "entry date, defaults to today")
	cmd.Flags().StringVar(&desc, "desc", "", "entry description")
	cmd.Flags().StringVar(&ref, "ref", "", "external reference")
	return cmd
}

func resolveLeg(chart *accounts.Chart, leg string) (model.Account, decimal.Decimal, error) {
	code, amount, err := parseLeg(leg)
	if err != nil {
		return model.Account{}, decimal.Zero, err
	}
	acct, err := chart.Resolve(code)
	if err != nil {
		return model.Account{}, decimal.Zero, err
	}
	return acct, amount, nil
}

func newJournalListCommand(opts *options) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries in date order",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			f, err := entryFilter(from, to)
			if err != nil {
				return err
			}
			entries, err := s.eng.Journal.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				debit, _ := e.Totals()
				rows = append(rows, []string{e.ID, period.Format(e.Date), e.Reference, e.Description, money(debit), fmt.Sprint(len(e.Lines))})
			}
			s.out.Table([]string{"Entry", "Date", "Ref", "Description", "Amount", "Lines"}, rows)
			return nil
		}),
	}

	cmd.Flags().StringVar(&from, "from", "", "first date included")
	cmd.Flags().StringVar(&to, "to", "", "last date included")
	return cmd
}

func entryFilter(from, to string) (model.EntryFilter, error) {
	var f model.EntryFilter
	var err error
	if from != "" {
		if f.From, err = parseDate(from); err != nil {
			return f, err
		}
	}
	if to != "" {
		if f.To, err = parseDate(to); err != nil {
			return f, err
		}
	}
	return f, nil
}

func newJournalShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show ENTRY_ID",
		Short: "Show the lines of one entry",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			ctx := cmd.Context()
			entry, err := s.eng.Journal.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(entry)
			}
			chart, err := s.eng.Accounts.Chart(ctx)
			if err != nil {
				return err
			}

			s.out.Title(fmt.Sprintf("%s  %s  %s", entry.ID, period.Format(entry.Date), entry.Description))
			rows := make([][]string, 0, len(entry.Lines))
			for _, l := range entry.Lines {
				acct, _ := chart.Get(l.AccountID)
				rows = append(rows, []string{l.ID, acct.Code, acct.Name, amountCell(l.Debit), amountCell(l.Credit), l.Description})
			}
			s.out.Table([]string{"Line", "Account", "Name", "Debit", "Credit", "Description"}, rows)
			if !entry.IsBalanced() {
				debit, credit := entry.Totals()
				s.out.Alert(fmt.Sprintf("unbalanced: debits %s, credits %s", money(debit), money(credit)))
			}
			return nil
		}),
	}
}

func newJournalDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ENTRY_ID",
		Short: "Delete an entry that no invoice is posted to",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			if err := s.eng.Journal.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			s.audit("journal.delete", args[0], decimal.Zero, "")
			s.out.Printf("Deleted entry %s\n", args[0])
			return nil
		}),
	}
}

func newJournalExportCommand(opts *options) *cobra.Command {
	var from, to, file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export journal lines as CSV",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			f, err := entryFilter(from, to)
			if err != nil {
				return err
			}
			if file == "" {
				return s.eng.Journal.Export(cmd.Context(), cmd.OutOrStdout(), f)
			}
			out, err := os.Create(file)
			if err != nil {
				return fmt.Errorf("creating %s: %w", file, err)
			}
			defer out.Close()
			if err := s.eng.Journal.Export(cmd.Context(), out, f); err != nil {
				return err
			}
			return out.Close()
		}),
	}

	cmd.Flags().StringVar(&from, "from", "", "first date included")
	cmd.Flags().StringVar(&to, "to", "", "last date included")
	cmd.Flags().StringVarP(&file, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func newJournalImportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import entries from a journal CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			ids, err := s.eng.Journal.Import(cmd.Context(), f, cliAuthor)
			if err != nil {
				return err
			}
			s.audit("journal.import", filepath.Base(args[0]), decimal.Zero, fmt.Sprintf("%d entries", len(ids)))
			if s.out.json {
				return s.out.JSON(ids)
			}
			s.out.Printf("Imported %d entries\n", len(ids))
			return nil
		}),
	}
}

// amountCell leaves zero amounts blank.
func amountCell(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}
