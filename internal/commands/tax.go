package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
	"github.com/daftar-dev/daftar/internal/tax"
)

func newTaxCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tax",
		Aliases: []string{"taxes"},
		Short:   "Compute TVA, IS and IR",
	}
	cmd.AddCommand(
		newVATCommand(opts),
		newISCommand(opts),
		newIRCommand(opts),
		newRatesCommand(opts),
	)
	return cmd
}

func newVATCommand(opts *options) *cobra.Command {
	var req tax.VATRequest
	var end string

	cmd := &cobra.Command{
		Use:     "vat",
		Aliases: []string{"tva"},
		Short:   "VAT collected, deductible and due for a month or quarter",
		Args:    cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			if req.Year == 0 {
				req.Year = time.Now().Year()
			}
			if end != "" {
				d, err := parseDate(end)
				if err != nil {
					return err
				}
				req.EndDate = d
			}
			rep, err := s.eng.CalculateVAT(cmd.Context(), req)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(rep)
			}

			s.out.Title(fmt.Sprintf("TVA du %s au %s", period.Format(rep.StartDate), period.Format(rep.EndDate)))
			s.out.Table([]string{"Side", "Invoice", "Date", "Counterparty", "HT", "Rate", "TVA"}, concatRows(
				vatRows("Collectée", rep.CollectedDetails),
				vatRows("Déductible", rep.DeductibleDetails),
			))
			s.out.Total("TVA collectée", rep.Collected)
			s.out.Total("TVA déductible", rep.Deductible)
			s.out.Total("TVA due", rep.Due)
			if rep.Due.IsNegative() {
				s.out.Alert("crédit de TVA: " + money(rep.Due.Neg()))
			}
			return nil
		}),
	}

	cmd.Flags().IntVar(&req.Year, "year", 0, "calendar year, defaults to the current year")
	cmd.Flags().IntVar(&req.Month, "month", 0, "month 1-12")
	cmd.Flags().IntVar(&req.Quarter, "quarter", 0, "quarter 1-4")
	cmd.MarkFlagsMutuallyExclusive("month", "quarter")
	cmd.Flags().StringVar(&end, "end", "", "override the last date of the window")
	return cmd
}

func vatRows(side string, details []tax.VATDetail) [][]string {
	rows := make([][]string, 0, len(details))
	for _, d := range details {
		rows = append(rows, []string{side, d.InvoiceNumber, period.Format(d.Date), d.Counterparty, money(d.AmountHT), strconv.Itoa(d.Rate) + "%", money(d.TVA)})
	}
	return rows
}

func sliceRows(slices []tax.Slice) [][]string {
	rows := make([][]string, 0, len(slices))
	for _, sl := range slices {
		rows = append(rows, []string{sl.Label, money(sl.Base), strconv.Itoa(sl.Rate) + "%", money(sl.Tax)})
	}
	return rows
}

func newISCommand(opts *options) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "is",
		Short: "Corporate tax on a year's net income",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			if year == 0 {
				year = time.Now().Year()
			}
			rep, err := s.eng.CalculateIS(cmd.Context(), year)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(rep)
			}

			s.out.Title(fmt.Sprintf("Impôt sur les sociétés %d", rep.Year))
			s.out.Total("Produits", rep.TotalRevenue)
			s.out.Total("Charges", rep.TotalExpenses)
			s.out.Total("Résultat net", rep.NetIncome)
			s.out.Table([]string{"Tranche", "Base", "Rate", "IS"}, sliceRows(rep.Details))
			s.out.Total("IS total", rep.Total)
			return nil
		}),
	}

	cmd.Flags().IntVar(&year, "year", 0, "fiscal year, defaults to the current year")
	return cmd
}

func newIRCommand(opts *options) *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "ir",
		Short: "Income tax withheld on the payroll roster",
		Long: `Computes IR for every recorded employee. With --month salaries are
monthly and the annual tax is divided by twelve; without it salaries are
read as annual amounts. An illustrative roster is used when none is recorded.`,
		Args: cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			if year == 0 {
				year = time.Now().Year()
			}
			rep, err := s.eng.CalculateIR(cmd.Context(), year, month)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(rep)
			}

			s.out.Title(fmt.Sprintf("IR du %s au %s", period.Format(rep.StartDate), period.Format(rep.EndDate)))
			rows := make([][]string, 0, len(rep.Details))
			for _, d := range rep.Details {
				rows = append(rows, []string{d.Employee, money(d.GrossSalary), money(d.CNSS), money(d.CIMR), money(d.NetTaxable), money(d.AnnualBase), money(d.IR)})
			}
			s.out.Table([]string{"Employee", "Gross", "CNSS", "CIMR", "Net taxable", "Annual base", "IR"}, rows)
			s.out.Total("IR total", rep.Total)
			return nil
		}),
	}

	cmd.Flags().IntVar(&year, "year", 0, "calendar year, defaults to the current year")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12, annual when omitted")
	return cmd
}

func newRatesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "TVA rates and the IS and IR schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := newPrinter(cmd, opts.json)
			if out.json {
				return out.JSON(map[string]any{
					"tva_rates":   model.VATRates,
					"is_schedule": scheduleView(tax.ISSchedule),
					"ir_schedule": scheduleView(tax.IRSchedule),
				})
			}

			out.Title("Taux de TVA")
			rows := make([][]string, 0, len(model.VATRates))
			for _, r := range model.VATRates {
				rows = append(rows, []string{strconv.Itoa(r.Rate) + "%", r.Description})
			}
			out.Table([]string{"Rate", "Description"}, rows)
			out.Title("Barème IS")
			out.Table([]string{"Tranche", "Rate"}, scheduleRows(tax.ISSchedule))
			out.Title("Barème IR annuel")
			out.Table([]string{"Tranche", "Rate"}, scheduleRows(tax.IRSchedule))
			return nil
		},
	}
}

func scheduleRows(s tax.Schedule) [][]string {
	rows := make([][]string, 0, len(s))
	for _, b := range s {
		rows = append(rows, []string{b.Label, strconv.Itoa(b.Rate) + "%"})
	}
	return rows
}

type bracketView struct {
	Label string `json:"tranche"`
	Lower string `json:"lower"`
	Upper string `json:"upper,omitempty"`
	Rate  int    `json:"rate"`
}

func scheduleView(s tax.Schedule) []bracketView {
	out := make([]bracketView, 0, len(s))
	for _, b := range s {
		v := bracketView{Label: b.Label, Lower: b.Lower.String(), Rate: b.Rate}
		if b.Bounded {
			v.Upper = b.Upper.String()
		}
		out = append(out, v)
	}
	return out
}
