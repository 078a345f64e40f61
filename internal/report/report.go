// Package report composes ledger balances into the balance sheet, income
// statement and trial balance.
//
// Two account selections coexist. The balance sheet sections accounts by
// account type and PCM class. The income statement and net income select
// accounts by code prefix ("7" revenue, "6" expense) regardless of type.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/accounts"
	"github.com/daftar-dev/daftar/internal/ledger"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
)

const (
	RevenuePrefix = "7"
	ExpensePrefix = "6"

	// NetIncomeLabel names the synthetic equity line carrying the year-to-date result.
	NetIncomeLabel = "Résultat net de la période"
)

// ChartLoader provides the current chart of accounts.
type ChartLoader interface {
	Chart(ctx context.Context) (*accounts.Chart, error)
}

// Line is one account row of a report section.
type Line struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// Assets is the asset side of a balance sheet.
type Assets struct {
	NonCurrent      []Line          `json:"non_current"`
	Current         []Line          `json:"current"`
	Cash            []Line          `json:"cash"`
	TotalNonCurrent decimal.Decimal `json:"total_non_current"`
	TotalCurrent    decimal.Decimal `json:"total_current"`
	TotalCash       decimal.Decimal `json:"total_cash"`
	Total           decimal.Decimal `json:"total"`
}

// Liabilities is the equity and liabilities side of a balance sheet.
type Liabilities struct {
	Equity          []Line          `json:"equity"`
	NonCurrent      []Line          `json:"non_current"`
	Current         []Line          `json:"current"`
	TotalEquity     decimal.Decimal `json:"total_equity"`
	TotalNonCurrent decimal.Decimal `json:"total_non_current"`
	TotalCurrent    decimal.Decimal `json:"total_current"`
	Total           decimal.Decimal `json:"total"`
}

// BalanceSheet is the position as of Date.
type BalanceSheet struct {
	Date        time.Time       `json:"date"`
	Assets      Assets          `json:"assets"`
	Liabilities Liabilities     `json:"liabilities"`
	NetIncome   decimal.Decimal `json:"net_income"`
}

// IncomeStatement is revenue and expense over [StartDate, EndDate].
type IncomeStatement struct {
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
	Revenues     []Line          `json:"revenues"`
	Expenses     []Line          `json:"expenses"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetIncome    decimal.Decimal `json:"net_income"`
}

// TrialLine is one account of a trial balance. At most one column is non-zero.
type TrialLine struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// TrialBalance lists every non-zero account as of Date.
type TrialBalance struct {
	Date        time.Time       `json:"date"`
	Accounts    []TrialLine     `json:"accounts"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Balanced    bool            `json:"balanced"`
}

// Generator builds reports. It holds no state between calls.
type Generator struct {
	chart ChartLoader
	agg   *ledger.Aggregator
	log   *zap.Logger
}

// NewGenerator creates a report Generator.
func NewGenerator(chart ChartLoader, agg *ledger.Aggregator, log *zap.Logger) *Generator {
	return &Generator{chart: chart, agg: agg, log: log}
}

func lineOf(a model.Account, balance decimal.Decimal) Line {
	return Line{Code: a.Code, Name: a.Name, Balance: balance}
}

// BalanceSheet computes the position as of asOf. Year-to-date net income is
// appended to equity as a line without a code.
func (g *Generator) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	if asOf.IsZero() {
		return BalanceSheet{}, ledger.DateFilter{}.Validate()
	}
	asOf = period.Day(asOf)

	chart, err := g.chart.Chart(ctx)
	if err != nil {
		return BalanceSheet{}, fmt.Errorf("loading chart of accounts: %w", err)
	}
	sums, err := g.agg.SumsByAccount(ctx, ledger.AsOf(asOf))
	if err != nil {
		return BalanceSheet{}, err
	}

	bs := BalanceSheet{
		Date: asOf,
		Assets: Assets{
			TotalNonCurrent: decimal.Zero,
			TotalCurrent:    decimal.Zero,
			TotalCash:       decimal.Zero,
			Total:           decimal.Zero,
		},
		Liabilities: Liabilities{
			TotalEquity:     decimal.Zero,
			TotalNonCurrent: decimal.Zero,
			TotalCurrent:    decimal.Zero,
			Total:           decimal.Zero,
		},
	}

	for _, acct := range chart.All() {
		balance := ledger.Balance(sums, acct)
		if balance.IsZero() {
			continue
		}
		line := lineOf(acct, balance)

		switch acct.Type {
		case model.AccountTypeAsset:
			a := &bs.Assets
			switch acct.Class {
			case 2:
				a.NonCurrent = append(a.NonCurrent, line)
				a.TotalNonCurrent = a.TotalNonCurrent.Add(balance)
			case 3:
				a.Current = append(a.Current, line)
				a.TotalCurrent = a.TotalCurrent.Add(balance)
			case 5:
				a.Cash = append(a.Cash, line)
				a.TotalCash = a.TotalCash.Add(balance)
			}
			// Other classes reach the total without a section.
			a.Total = a.Total.Add(balance)

		case model.AccountTypeLiability, model.AccountTypeEquity:
			l := &bs.Liabilities
			// Class 1 is listed under both equity and non-current liabilities.
			if acct.Class == 1 {
				l.Equity = append(l.Equity, line)
				l.TotalEquity = l.TotalEquity.Add(balance)
			}
			if acct.Class == 1 || acct.Class == 2 {
				l.NonCurrent = append(l.NonCurrent, line)
				l.TotalNonCurrent = l.TotalNonCurrent.Add(balance)
			}
			if acct.Class == 4 {
				l.Current = append(l.Current, line)
				l.TotalCurrent = l.TotalCurrent.Add(balance)
			}
			l.Total = l.Total.Add(balance)
		}
	}

	netIncome, err := g.netIncome(ctx, chart, period.YearToDate(asOf))
	if err != nil {
		return BalanceSheet{}, err
	}
	bs.NetIncome = netIncome
	bs.Liabilities.Equity = append(bs.Liabilities.Equity, Line{Name: NetIncomeLabel, Balance: netIncome})
	bs.Liabilities.TotalEquity = bs.Liabilities.TotalEquity.Add(netIncome)
	bs.Liabilities.Total = bs.Liabilities.Total.Add(netIncome)

	g.log.Debug("balance sheet generated",
		zap.String("as_of", period.Format(asOf)),
		zap.String("assets", bs.Assets.Total.StringFixed(2)),
		zap.String("liabilities", bs.Liabilities.Total.StringFixed(2)))
	return bs, nil
}

// IncomeStatement computes revenue ("7" accounts, credit minus debit) and
// expense ("6" accounts, debit minus credit) over [start, end].
func (g *Generator) IncomeStatement(ctx context.Context, start, end time.Time) (IncomeStatement, error) {
	w, err := period.Between(start, end)
	if err != nil {
		return IncomeStatement{}, err
	}
	chart, err := g.chart.Chart(ctx)
	if err != nil {
		return IncomeStatement{}, fmt.Errorf("loading chart of accounts: %w", err)
	}
	sums, err := g.agg.SumsByAccount(ctx, ledger.Range(w))
	if err != nil {
		return IncomeStatement{}, err
	}

	is := IncomeStatement{
		StartDate:    w.Start,
		EndDate:      w.End,
		TotalRevenue: decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, acct := range chart.ByCodePrefix(RevenuePrefix) {
		balance := revenueOf(sums, acct)
		if balance.IsZero() {
			continue
		}
		is.Revenues = append(is.Revenues, lineOf(acct, balance))
		is.TotalRevenue = is.TotalRevenue.Add(balance)
	}
	for _, acct := range chart.ByCodePrefix(ExpensePrefix) {
		balance := expenseOf(sums, acct)
		if balance.IsZero() {
			continue
		}
		is.Expenses = append(is.Expenses, lineOf(acct, balance))
		is.TotalExpense = is.TotalExpense.Add(balance)
	}
	is.NetIncome = is.TotalRevenue.Sub(is.TotalExpense)

	g.log.Debug("income statement generated",
		zap.Stringer("window", w),
		zap.String("net_income", is.NetIncome.StringFixed(2)))
	return is, nil
}

// TrialBalance lists each account's net balance on its normal side, or on
// the opposite side as a positive figure when the sign is reversed.
func (g *Generator) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	if asOf.IsZero() {
		return TrialBalance{}, ledger.DateFilter{}.Validate()
	}
	asOf = period.Day(asOf)

	chart, err := g.chart.Chart(ctx)
	if err != nil {
		return TrialBalance{}, fmt.Errorf("loading chart of accounts: %w", err)
	}
	sums, err := g.agg.SumsByAccount(ctx, ledger.AsOf(asOf))
	if err != nil {
		return TrialBalance{}, err
	}

	tb := TrialBalance{Date: asOf, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, acct := range chart.All() {
		s, ok := sums[acct.ID]
		if !ok {
			continue
		}
		debit, credit := columns(acct.Type, s)
		if debit.IsZero() && credit.IsZero() {
			continue
		}
		tb.Accounts = append(tb.Accounts, TrialLine{Code: acct.Code, Name: acct.Name, Debit: debit, Credit: credit})
		tb.TotalDebit = tb.TotalDebit.Add(debit)
		tb.TotalCredit = tb.TotalCredit.Add(credit)
	}
	tb.Balanced = tb.TotalDebit.Equal(tb.TotalCredit)

	g.log.Debug("trial balance generated",
		zap.String("as_of", period.Format(asOf)),
		zap.Bool("balanced", tb.Balanced))
	return tb, nil
}

// NetIncome is revenue minus expense over w, using the code-prefix selection.
func (g *Generator) NetIncome(ctx context.Context, w period.Window) (decimal.Decimal, error) {
	if err := w.Validate(); err != nil {
		return decimal.Zero, err
	}
	chart, err := g.chart.Chart(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("loading chart of accounts: %w", err)
	}
	return g.netIncome(ctx, chart, w)
}

func (g *Generator) netIncome(ctx context.Context, chart *accounts.Chart, w period.Window) (decimal.Decimal, error) {
	sums, err := g.agg.SumsByAccount(ctx, ledger.Range(w))
	if err != nil {
		return decimal.Zero, err
	}
	revenue, expense := decimal.Zero, decimal.Zero
	for _, acct := range chart.ByCodePrefix(RevenuePrefix) {
		revenue = revenue.Add(revenueOf(sums, acct))
	}
	for _, acct := range chart.ByCodePrefix(ExpensePrefix) {
		expense = expense.Add(expenseOf(sums, acct))
	}
	return revenue.Sub(expense), nil
}

func revenueOf(sums map[int]ledger.Sums, acct model.Account) decimal.Decimal {
	s := sums[acct.ID]
	return s.Credit.Sub(s.Debit)
}

func expenseOf(sums map[int]ledger.Sums, acct model.Account) decimal.Decimal {
	s := sums[acct.ID]
	return s.Debit.Sub(s.Credit)
}

func columns(t model.AccountType, s ledger.Sums) (debit, credit decimal.Decimal) {
	balance := s.Signed(t)
	if t.DebitNormal() {
		if balance.IsPositive() {
			return balance, decimal.Zero
		}
		return decimal.Zero, balance.Neg()
	}
	if balance.IsPositive() {
		return decimal.Zero, balance
	}
	return balance.Neg(), decimal.Zero
}
