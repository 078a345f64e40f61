package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/daftar-dev/daftar/internal/ledger"
	"github.com/daftar-dev/daftar/internal/period"
	"github.com/daftar-dev/daftar/internal/report"
)

func newReportCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Aliases: []string{"reports"},
		Short:   "Financial statements recomputed from the journal",
	}
	cmd.AddCommand(
		newBalanceSheetCommand(opts),
		newIncomeStatementCommand(opts),
		newTrialBalanceCommand(opts),
		newLedgerCommand(opts),
		newAccountBalanceCommand(opts),
		newMonthlyCommand(opts),
	)
	return cmd
}

func newBalanceSheetCommand(opts *options) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:     "balance-sheet",
		Aliases: []string{"bilan"},
		Short:   "Assets, equity and liabilities as of a date",
		Args:    cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			d, err := parseDateOr(asOf, time.Now())
			if err != nil {
				return err
			}
			bs, err := s.eng.GenerateBalanceSheet(cmd.Context(), d)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(bs)
			}

			s.out.Title("Bilan au " + period.Format(bs.Date))
			s.out.Table([]string{"Actif", "Code", "Compte", "Montant"}, concatRows(
				sectionRows("Actif immobilisé", bs.Assets.NonCurrent),
				sectionRows("Actif circulant", bs.Assets.Current),
				sectionRows("Trésorerie actif", bs.Assets.Cash),
			))
			s.out.Total("Total actif", bs.Assets.Total)
			s.out.Table([]string{"Passif", "Code", "Compte", "Montant"}, concatRows(
				sectionRows("Capitaux propres", bs.Liabilities.Equity),
				sectionRows("Dettes de financement", bs.Liabilities.NonCurrent),
				sectionRows("Passif circulant", bs.Liabilities.Current),
			))
			s.out.Total("Total passif", bs.Liabilities.Total)
			if !bs.Assets.Total.Equal(bs.Liabilities.Total) {
				s.out.Alert(fmt.Sprintf("balance sheet does not balance: difference %s", money(bs.Assets.Total.Sub(bs.Liabilities.Total))))
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "report date, defaults to today")
	return cmd
}

func sectionRows(section string, lines []report.Line) [][]string {
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{section, l.Code, l.Name, money(l.Balance)})
	}
	return rows
}

func concatRows(parts ...[][]string) [][]string {
	var out [][]string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func newIncomeStatementCommand(opts *options) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:     "income-statement",
		Aliases: []string{"cpc"},
		Short:   "Revenue and expenses over a period, year to date by default",
		Args:    cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			end, err := parseDateOr(to, time.Now())
			if err != nil {
				return err
			}
			start, err := parseDateOr(from, period.YearToDate(end).Start)
			if err != nil {
				return err
			}
			is, err := s.eng.GenerateIncomeStatement(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(is)
			}

			s.out.Title(fmt.Sprintf("Compte de produits et charges du %s au %s", period.Format(is.StartDate), period.Format(is.EndDate)))
			s.out.Table([]string{"Section", "Code", "Compte", "Montant"}, concatRows(
				sectionRows("Produits", is.Revenues),
				sectionRows("Charges", is.Expenses),
			))
			s.out.Total("Total produits", is.TotalRevenue)
			s.out.Total("Total charges", is.TotalExpense)
			s.out.Total("Résultat net", is.NetIncome)
			return nil
		}),
	}

	cmd.Flags().StringVar(&from, "from", "", "first date included, defaults to January 1")
	cmd.Flags().StringVar(&to, "to", "", "last date included, defaults to today")
	return cmd
}

func newTrialBalanceCommand(opts *options) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:     "trial-balance",
		Aliases: []string{"balance"},
		Short:   "Debit and credit columns of every account as of a date",
		Args:    cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			d, err := parseDateOr(asOf, time.Now())
			if err != nil {
				return err
			}
			tb, err := s.eng.GenerateTrialBalance(cmd.Context(), d)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(tb)
			}

			s.out.Title("Balance générale au " + period.Format(tb.Date))
			rows := make([][]string, 0, len(tb.Accounts)+1)
			for _, l := range tb.Accounts {
				rows = append(rows, []string{l.Code, l.Name, amountCell(l.Debit), amountCell(l.Credit)})
			}
			rows = append(rows, []string{"", "Total", money(tb.TotalDebit), money(tb.TotalCredit)})
			s.out.Table([]string{"Code", "Compte", "Débit", "Crédit"}, rows)
			if !tb.Balanced {
				s.out.Alert("trial balance is not balanced")
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "report date, defaults to today")
	return cmd
}

func dateFilter(from, to string) (ledger.DateFilter, error) {
	end, err := parseDateOr(to, time.Now())
	if err != nil {
		return ledger.DateFilter{}, err
	}
	if from == "" {
		return ledger.AsOf(end), nil
	}
	start, err := parseDate(from)
	if err != nil {
		return ledger.DateFilter{}, err
	}
	return ledger.DateFilter{From: start, To: end}, nil
}

func newLedgerCommand(opts *options) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:     "ledger ACCOUNT",
		Aliases: []string{"grand-livre"},
		Short:   "Lines of one account with a running balance",
		Args:    cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			ctx := cmd.Context()
			f, err := dateFilter(from, to)
			if err != nil {
				return err
			}
			acct, err := s.eng.Accounts.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			gl, err := s.eng.Ledger.AccountLedger(ctx, acct, f)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(gl)
			}

			s.out.Title(fmt.Sprintf("%s %s", acct.Code, acct.Name))
			rows := [][]string{{"", "", "", "Solde d'ouverture", "", "", money(gl.OpeningBalance)}}
			for _, l := range gl.Lines {
				rows = append(rows, []string{period.Format(l.Date), l.LineID, l.Reference, l.Description, amountCell(l.Debit), amountCell(l.Credit), money(l.Balance)})
			}
			rows = append(rows, []string{"", "", "", "Total", money(gl.TotalDebit), money(gl.TotalCredit), money(gl.ClosingBalance)})
			s.out.Table([]string{"Date", "Line", "Ref", "Description", "Débit", "Crédit", "Solde"}, rows)
			return nil
		}),
	}

	cmd.Flags().StringVar(&from, "from", "", "first date included, cumulative when empty")
	cmd.Flags().StringVar(&to, "to", "", "last date included, defaults to today")
	return cmd
}

func newAccountBalanceCommand(opts *options) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "account-balance ACCOUNT",
		Short: "Signed balance of one account",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			ctx := cmd.Context()
			f, err := dateFilter(from, to)
			if err != nil {
				return err
			}
			acct, err := s.eng.Accounts.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			bal, err := s.eng.ComputeAccountBalance(ctx, acct.ID, f)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(map[string]any{"account": acct, "from": f.From, "to": f.To, "balance": bal})
			}
			s.out.Total(fmt.Sprintf("%s %s", acct.Code, acct.Name), bal)
			return nil
		}),
	}

	cmd.Flags().StringVar(&from, "from", "", "first date included, cumulative when empty")
	cmd.Flags().StringVar(&to, "to", "", "last date included, defaults to today")
	return cmd
}

func newMonthlyCommand(opts *options) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Revenue and expenses for each month of a year",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			ctx := cmd.Context()
			if year == 0 {
				year = time.Now().Year()
			}
			chart, err := s.eng.Accounts.Chart(ctx)
			if err != nil {
				return err
			}
			series, err := s.eng.Ledger.MonthlySeries(ctx, chart, year)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(series)
			}
			rows := make([][]string, 0, len(series))
			for _, m := range series {
				rows = append(rows, []string{time.Month(m.Month).String(), money(m.Revenue), money(m.Expense), money(m.Revenue.Sub(m.Expense))})
			}
			s.out.Title(fmt.Sprintf("Activité mensuelle %d", year))
			s.out.Table([]string{"Month", "Revenue", "Expense", "Result"}, rows)
			return nil
		}),
	}

	cmd.Flags().IntVar(&year, "year", 0, "calendar year, defaults to the current year")
	return cmd
}
