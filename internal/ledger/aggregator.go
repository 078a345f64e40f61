// Package ledger aggregates journal lines into signed account balances.
// Nothing is cached: every call recomputes from the lines the Source returns.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/accounts"
	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
)

// Source supplies journal lines joined with their entry dates.
type Source interface {
	ListPostings(ctx context.Context, f model.PostingFilter) ([]model.Posting, error)
}

// DateFilter is either cumulative (From zero, lines dated on or before To)
// or an inclusive range [From, To].
type DateFilter struct {
	From time.Time
	To   time.Time
}

// AsOf selects every line dated on or before date.
func AsOf(date time.Time) DateFilter {
	return DateFilter{To: period.Day(date)}
}

// Range selects lines dated inside w.
func Range(w period.Window) DateFilter {
	return DateFilter{From: w.Start, To: w.End}
}

// Cumulative reports whether the filter has no lower bound.
func (f DateFilter) Cumulative() bool {
	return f.From.IsZero()
}

// Validate rejects a missing cutoff and ranges that end before they start.
func (f DateFilter) Validate() error {
	if f.To.IsZero() {
		return apperr.InvalidPeriod("date filter needs an end date")
	}
	if !f.From.IsZero() && f.To.Before(f.From) {
		return apperr.InvalidPeriod("end %s is before start %s", period.Format(f.To), period.Format(f.From))
	}
	return nil
}

func (f DateFilter) postings(accountIDs ...int) model.PostingFilter {
	return model.PostingFilter{AccountIDs: accountIDs, From: f.From, To: f.To}
}

// Sums holds raw debit and credit totals.
type Sums struct {
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// Add accumulates one posting.
func (s Sums) Add(p model.Posting) Sums {
	return Sums{Debit: s.Debit.Add(p.Debit), Credit: s.Credit.Add(p.Credit)}
}

// Signed applies the sign convention of an account type.
func (s Sums) Signed(t model.AccountType) decimal.Decimal {
	return t.SignedBalance(s.Debit, s.Credit)
}

// Aggregator computes balances from a Source.
type Aggregator struct {
	src Source
	log *zap.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(src Source, log *zap.Logger) *Aggregator {
	return &Aggregator{src: src, log: log}
}

// Sums returns raw debit and credit totals of one account.
func (a *Aggregator) Sums(ctx context.Context, accountID int, f DateFilter) (Sums, error) {
	if err := f.Validate(); err != nil {
		return Sums{}, err
	}
	postings, err := a.src.ListPostings(ctx, f.postings(accountID))
	if err != nil {
		return Sums{}, fmt.Errorf("listing postings for account %d: %w", accountID, err)
	}
	sums := Sums{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, p := range postings {
		sums = sums.Add(p)
	}
	return sums, nil
}

// AccountBalance returns the account's balance under the sign convention of accountType:
// debit minus credit for Asset and Expense, credit minus debit otherwise.
func (a *Aggregator) AccountBalance(ctx context.Context, accountID int, f DateFilter, accountType model.AccountType) (decimal.Decimal, error) {
	sums, err := a.Sums(ctx, accountID, f)
	if err != nil {
		return decimal.Zero, err
	}
	return sums.Signed(accountType), nil
}

// SumsByAccount returns raw totals of every account with lines inside the filter.
// Accounts without lines are absent from the map.
func (a *Aggregator) SumsByAccount(ctx context.Context, f DateFilter) (map[int]Sums, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	postings, err := a.src.ListPostings(ctx, f.postings())
	if err != nil {
		return nil, fmt.Errorf("listing postings: %w", err)
	}
	out := make(map[int]Sums)
	for _, p := range postings {
		s, ok := out[p.AccountID]
		if !ok {
			s = Sums{Debit: decimal.Zero, Credit: decimal.Zero}
		}
		out[p.AccountID] = s.Add(p)
	}
	a.log.Debug("aggregated postings",
		zap.Int("postings", len(postings)),
		zap.Int("accounts", len(out)),
		zap.String("to", period.Format(f.To)))
	return out, nil
}

// Balance looks up an account's signed balance in a SumsByAccount result.
func Balance(sums map[int]Sums, acct model.Account) decimal.Decimal {
	s, ok := sums[acct.ID]
	if !ok {
		return decimal.Zero
	}
	return s.Signed(acct.Type)
}

// LedgerLine is one row of an account ledger.
type LedgerLine struct {
	Date        time.Time       `json:"date"`
	EntryID     string          `json:"entry_id"`
	LineID      string          `json:"line_id"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// AccountLedger is the chronological line listing of one account (grand livre).
type AccountLedger struct {
	Account        model.Account   `json:"account"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Lines          []LedgerLine    `json:"lines"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// AccountLedger lists an account's lines with a running balance in the
// account's sign convention. A ranged filter opens with the balance as of the
// day before From.
func (a *Aggregator) AccountLedger(ctx context.Context, acct model.Account, f DateFilter) (AccountLedger, error) {
	if err := f.Validate(); err != nil {
		return AccountLedger{}, err
	}
	out := AccountLedger{
		Account:        acct,
		From:           f.From,
		To:             f.To,
		OpeningBalance: decimal.Zero,
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
	}
	if !f.Cumulative() {
		opening, err := a.AccountBalance(ctx, acct.ID, AsOf(f.From.AddDate(0, 0, -1)), acct.Type)
		if err != nil {
			return AccountLedger{}, err
		}
		out.OpeningBalance = opening
	}

	postings, err := a.src.ListPostings(ctx, f.postings(acct.ID))
	if err != nil {
		return AccountLedger{}, fmt.Errorf("listing postings for account %s: %w", acct.Code, err)
	}
	running := out.OpeningBalance
	for _, p := range postings {
		running = running.Add(acct.Type.SignedBalance(p.Debit, p.Credit))
		desc := p.Description
		if desc == "" {
			desc = p.EntryDescription
		}
		out.Lines = append(out.Lines, LedgerLine{
			Date:        p.Date,
			EntryID:     p.EntryID,
			LineID:      p.LineID,
			Reference:   p.Reference,
			Description: desc,
			Debit:       p.Debit,
			Credit:      p.Credit,
			Balance:     running,
		})
		out.TotalDebit = out.TotalDebit.Add(p.Debit)
		out.TotalCredit = out.TotalCredit.Add(p.Credit)
	}
	out.ClosingBalance = running
	return out, nil
}

// MonthTotals is revenue and expense activity of one month.
type MonthTotals struct {
	Month   int             `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Expense decimal.Decimal `json:"expense"`
}

// MonthlySeries returns revenue and expense totals for each month of year.
// Accounts are selected by account type.
func (a *Aggregator) MonthlySeries(ctx context.Context, chart *accounts.Chart, year int) ([]MonthTotals, error) {
	w, err := period.Year(year)
	if err != nil {
		return nil, err
	}
	postings, err := a.src.ListPostings(ctx, Range(w).postings())
	if err != nil {
		return nil, fmt.Errorf("listing postings for %d: %w", year, err)
	}

	series := make([]MonthTotals, 12)
	for i := range series {
		series[i] = MonthTotals{Month: i + 1, Revenue: decimal.Zero, Expense: decimal.Zero}
	}
	for _, p := range postings {
		acct, ok := chart.Get(p.AccountID)
		if !ok {
			continue
		}
		m := &series[int(p.Date.Month())-1]
		switch acct.Type {
		case model.AccountTypeRevenue:
			m.Revenue = m.Revenue.Add(acct.Type.SignedBalance(p.Debit, p.Credit))
		case model.AccountTypeExpense:
			m.Expense = m.Expense.Add(acct.Type.SignedBalance(p.Debit, p.Credit))
		}
	}
	return series, nil
}
