// Package tax computes Moroccan VAT (TVA), corporate tax (IS) and income tax
// (IR), and records tax declarations.
package tax

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/id"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
	"github.com/daftar-dev/daftar/internal/report"
)

// InvoiceSource lists invoices for VAT.
type InvoiceSource interface {
	ListInvoices(ctx context.Context, f model.InvoiceFilter) ([]model.Invoice, error)
}

// PayrollSource lists the employee roster for IR.
type PayrollSource interface {
	ListEmployees(ctx context.Context) ([]model.Employee, error)
}

// IncomeSource computes the income statement IS is based on.
type IncomeSource interface {
	IncomeStatement(ctx context.Context, start, end time.Time) (report.IncomeStatement, error)
}

// Calculator computes tax liabilities. It holds no state between calls.
type Calculator struct {
	invoices InvoiceSource
	payroll  PayrollSource
	income   IncomeSource
	log      *zap.Logger

	// Now resolves the month of a VAT request that names neither month nor quarter.
	Now func() time.Time
}

// NewCalculator creates a Calculator.
func NewCalculator(invoices InvoiceSource, payroll PayrollSource, income IncomeSource, log *zap.Logger) *Calculator {
	return &Calculator{
		invoices: invoices,
		payroll:  payroll,
		income:   income,
		log:      log,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// NotAvailable names a missing counterparty in VAT detail rows.
const NotAvailable = "N/A"

// VATRequest selects the VAT window. Month and Quarter are mutually
// exclusive; zero means unset. EndDate, when set, replaces the window end.
type VATRequest struct {
	Year    int
	Month   int
	Quarter int
	EndDate time.Time
}

// VATDetail is one invoice line of a VAT report.
type VATDetail struct {
	InvoiceNumber string          `json:"invoice_number"`
	Date          time.Time       `json:"date"`
	Counterparty  string          `json:"counterparty"`
	AmountHT      decimal.Decimal `json:"amount_ht"`
	Rate          int             `json:"tva_rate"`
	TVA           decimal.Decimal `json:"tva_amount"`
}

// RateTotal sums base and VAT for one rate.
type RateTotal struct {
	Rate   int             `json:"rate"`
	BaseHT decimal.Decimal `json:"base_ht"`
	TVA    decimal.Decimal `json:"tva"`
}

// VATReport is VAT collected on sales less VAT deductible on purchases.
// A negative Due is a credit; carrying it forward is left to the caller.
type VATReport struct {
	StartDate         time.Time       `json:"start_date"`
	EndDate           time.Time       `json:"end_date"`
	Collected         decimal.Decimal `json:"vat_collected"`
	CollectedDetails  []VATDetail     `json:"vat_collected_details"`
	CollectedByRate   []RateTotal     `json:"vat_collected_by_rate"`
	Deductible        decimal.Decimal `json:"vat_deductible"`
	DeductibleDetails []VATDetail     `json:"vat_deductible_details"`
	DeductibleByRate  []RateTotal     `json:"vat_deductible_by_rate"`
	Due               decimal.Decimal `json:"vat_due"`
}

// VATWindow resolves the dates a VAT request covers.
func (c *Calculator) VATWindow(req VATRequest) (period.Window, error) {
	var (
		w   period.Window
		err error
	)
	switch {
	case req.Month != 0 && req.Quarter != 0:
		return period.Window{}, apperr.InvalidPeriod("month and quarter are mutually exclusive")
	case req.Month != 0:
		w, err = period.Month(req.Year, req.Month)
	case req.Quarter != 0:
		w, err = period.Quarter(req.Year, req.Quarter)
	default:
		w, err = period.Month(req.Year, int(c.Now().Month()))
	}
	if err != nil {
		return period.Window{}, err
	}
	if !req.EndDate.IsZero() {
		return period.Between(w.Start, req.EndDate)
	}
	return w, nil
}

// VAT computes collected, deductible and due VAT over the requested window
// from the precomputed totals of invoice lines.
func (c *Calculator) VAT(ctx context.Context, req VATRequest) (VATReport, error) {
	w, err := c.VATWindow(req)
	if err != nil {
		return VATReport{}, err
	}

	collected, err := c.vatSide(ctx, model.InvoiceTypeClient, w)
	if err != nil {
		return VATReport{}, err
	}
	deductible, err := c.vatSide(ctx, model.InvoiceTypeSupplier, w)
	if err != nil {
		return VATReport{}, err
	}

	rep := VATReport{
		StartDate:         w.Start,
		EndDate:           w.End,
		Collected:         collected.total,
		CollectedDetails:  collected.details,
		CollectedByRate:   collected.byRate(),
		Deductible:        deductible.total,
		DeductibleDetails: deductible.details,
		DeductibleByRate:  deductible.byRate(),
		Due:               collected.total.Sub(deductible.total),
	}
	c.log.Debug("vat computed",
		zap.Stringer("window", w),
		zap.String("due", rep.Due.StringFixed(2)))
	return rep, nil
}

type vatTotals struct {
	total   decimal.Decimal
	details []VATDetail
}

func (c *Calculator) vatSide(ctx context.Context, typ model.InvoiceType, w period.Window) (vatTotals, error) {
	invoices, err := c.invoices.ListInvoices(ctx, model.InvoiceFilter{Type: typ, From: w.Start, To: w.End})
	if err != nil {
		return vatTotals{}, fmt.Errorf("listing %s invoices: %w", typ, err)
	}
	out := vatTotals{total: decimal.Zero}
	for _, inv := range invoices {
		party := inv.PartyName
		if party == "" {
			party = NotAvailable
		}
		for _, line := range inv.Lines {
			out.total = out.total.Add(line.TotalTVA)
			out.details = append(out.details, VATDetail{
				InvoiceNumber: inv.Number,
				Date:          inv.Date,
				Counterparty:  party,
				AmountHT:      line.TotalHT,
				Rate:          line.Rate,
				TVA:           line.TotalTVA,
			})
		}
	}
	return out, nil
}

func (t vatTotals) byRate() []RateTotal {
	idx := make(map[int]int)
	var out []RateTotal
	for _, d := range t.details {
		i, ok := idx[d.Rate]
		if !ok {
			i = len(out)
			idx[d.Rate] = i
			out = append(out, RateTotal{Rate: d.Rate, BaseHT: decimal.Zero, TVA: decimal.Zero})
		}
		out[i].BaseHT = out[i].BaseHT.Add(d.AmountHT)
		out[i].TVA = out[i].TVA.Add(d.TVA)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rate < out[j].Rate })
	return out
}

// ISReport is the corporate tax of a fiscal year.
type ISReport struct {
	Year          int             `json:"year"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetIncome     decimal.Decimal `json:"net_income"`
	Details       []Slice         `json:"is_details"`
	Total         decimal.Decimal `json:"total_is"`
}

// IS applies the IS schedule to the net income of Jan 1 through Dec 31.
func (c *Calculator) IS(ctx context.Context, year int) (ISReport, error) {
	w, err := period.Year(year)
	if err != nil {
		return ISReport{}, err
	}
	is, err := c.income.IncomeStatement(ctx, w.Start, w.End)
	if err != nil {
		return ISReport{}, fmt.Errorf("computing net income for %d: %w", year, err)
	}
	total, details := ISSchedule.Apply(is.NetIncome)

	c.log.Debug("is computed", zap.Int("year", year), zap.String("total", total.StringFixed(2)))
	return ISReport{
		Year:          year,
		TotalRevenue:  is.TotalRevenue,
		TotalExpenses: is.TotalExpense,
		NetIncome:     is.NetIncome,
		Details:       details,
		Total:         total,
	}, nil
}

// IRDetail is one employee's income tax.
type IRDetail struct {
	EmployeeID  string          `json:"employee_id"`
	Employee    string          `json:"employee"`
	GrossSalary decimal.Decimal `json:"gross_salary"`
	CNSS        decimal.Decimal `json:"cnss"`
	CIMR        decimal.Decimal `json:"cimr"`
	NetTaxable  decimal.Decimal `json:"net_taxable"`
	AnnualBase  decimal.Decimal `json:"annual_base"`
	Brackets    []Slice         `json:"brackets"`
	IR          decimal.Decimal `json:"ir"`
}

// IRReport is the income tax withheld over a month or a year.
type IRReport struct {
	StartDate time.Time       `json:"start_date"`
	EndDate   time.Time       `json:"end_date"`
	Monthly   bool            `json:"monthly"`
	Details   []IRDetail      `json:"ir_details"`
	Total     decimal.Decimal `json:"total_ir"`
}

var twelve = decimal.NewFromInt(12)

// IR computes income tax for the roster. With month set, salaries are monthly:
// net taxable is annualised ×12 and the annual tax divided back by 12 and
// rounded to centimes. With month zero, salaries are taken as annual amounts.
// The illustrative DefaultRoster stands in when no employee is recorded.
func (c *Calculator) IR(ctx context.Context, year, month int) (IRReport, error) {
	var (
		w   period.Window
		err error
	)
	monthly := month != 0
	if monthly {
		w, err = period.Month(year, month)
	} else {
		w, err = period.Year(year)
	}
	if err != nil {
		return IRReport{}, err
	}

	roster, err := c.payroll.ListEmployees(ctx)
	if err != nil {
		return IRReport{}, fmt.Errorf("listing employees: %w", err)
	}
	if len(roster) == 0 {
		roster = DefaultRoster()
	}

	rep := IRReport{StartDate: w.Start, EndDate: w.End, Monthly: monthly, Total: decimal.Zero}
	for _, e := range roster {
		net := e.NetTaxable()
		annual := net
		if monthly {
			annual = net.Mul(twelve)
		}
		tax, slices := IRSchedule.Apply(annual)
		if monthly {
			tax = tax.Div(twelve).Round(2)
		}
		rep.Details = append(rep.Details, IRDetail{
			EmployeeID:  e.ID,
			Employee:    e.Name,
			GrossSalary: e.GrossSalary,
			CNSS:        e.CNSS,
			CIMR:        e.CIMR,
			NetTaxable:  net,
			AnnualBase:  annual,
			Brackets:    slices,
			IR:          tax,
		})
		rep.Total = rep.Total.Add(tax)
	}

	c.log.Debug("ir computed",
		zap.Stringer("window", w),
		zap.Int("employees", len(roster)),
		zap.String("total", rep.Total.StringFixed(2)))
	return rep, nil
}

// DefaultRoster is the illustrative three-employee roster with monthly salaries.
func DefaultRoster() []model.Employee {
	emp := func(name string, gross, cnss, cimr int64) model.Employee {
		return model.Employee{
			ID:          id.Stable(name),
			Name:        name,
			GrossSalary: decimal.NewFromInt(gross),
			CNSS:        decimal.NewFromInt(cnss),
			CIMR:        decimal.NewFromInt(cimr),
		}
	}
	return []model.Employee{
		emp("Employee 1", 10000, 400, 300),
		emp("Employee 2", 20000, 800, 600),
		emp("Employee 3", 30000, 1200, 900),
	}
}
