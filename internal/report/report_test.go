package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/accounts"
	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/journal"
	"github.com/daftar-dev/daftar/internal/ledger"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
	"github.com/daftar-dev/daftar/internal/store/memory"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type books struct {
	t       *testing.T
	accts   *accounts.Service
	journal *journal.Service
	gen     *Generator
}

func newBooks(t *testing.T) *books {
	t.Helper()
	store := memory.New()
	log := zap.NewNop()
	acctSvc := accounts.NewService(store, log)
	_, err := acctSvc.Seed(context.Background())
	require.NoError(t, err)
	return &books{
		t:       t,
		accts:   acctSvc,
		journal: journal.NewService(store, acctSvc, log, true),
		gen:     NewGenerator(acctSvc, ledger.NewAggregator(store, log), log),
	}
}

// post records an entry; legs alternate account code and signed amount,
// positive for debit and negative for credit.
func (b *books) post(d time.Time, legs ...any) {
	b.t.Helper()
	ctx := context.Background()
	var lines []journal.LineParams
	for i := 0; i < len(legs); i += 2 {
		acct, err := b.accts.Resolve(ctx, legs[i].(string))
		require.NoError(b.t, err)
		amt := dec(legs[i+1].(string))
		lp := journal.LineParams{AccountID: acct.ID}
		if amt.IsNegative() {
			lp.Credit = amt.Neg()
		} else {
			lp.Debit = amt
		}
		lines = append(lines, lp)
	}
	_, err := b.journal.Create(ctx, journal.CreateParams{Date: d, Lines: lines})
	require.NoError(b.t, err)
}

func (b *books) seedQuarter() {
	b.post(date(2024, 1, 2), "5141", "100000", "1111", "-100000")
	b.post(date(2024, 1, 10), "5141", "50000", "1481", "-50000")
	b.post(date(2024, 2, 1), "3421", "12000", "7111", "-10000", "4455", "-2000")
	b.post(date(2024, 2, 15), "6131", "3000", "5141", "-3000")
	b.post(date(2024, 3, 1), "2355", "20000", "5141", "-20000")
	b.post(date(2024, 3, 5), "5141", "12000", "3421", "-12000")
}

func codes(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Code
	}
	return out
}

func TestBalanceSheet(t *testing.T) {
	b := newBooks(t)
	b.seedQuarter()

	bs, err := b.gen.BalanceSheet(context.Background(), date(2024, 3, 31))
	require.NoError(t, err)

	assert.Equal(t, []string{"2355"}, codes(bs.Assets.NonCurrent))
	assert.Empty(t, bs.Assets.Current, "3421 nets to zero")
	assert.Equal(t, []string{"5141"}, codes(bs.Assets.Cash))
	assert.True(t, bs.Assets.TotalCash.Equal(dec("139000")))
	assert.True(t, bs.Assets.Total.Equal(dec("159000")))

	// Class 1 appears in equity and non-current.
	assert.Equal(t, []string{"1111", "1481", ""}, codes(bs.Liabilities.Equity))
	assert.Equal(t, []string{"1111", "1481"}, codes(bs.Liabilities.NonCurrent))
	assert.Equal(t, []string{"4455"}, codes(bs.Liabilities.Current))

	last := bs.Liabilities.Equity[len(bs.Liabilities.Equity)-1]
	assert.Equal(t, NetIncomeLabel, last.Name)
	assert.True(t, last.Balance.Equal(dec("7000")))
	assert.True(t, bs.NetIncome.Equal(dec("7000")))

	assert.True(t, bs.Liabilities.TotalEquity.Equal(dec("157000")))
	assert.True(t, bs.Liabilities.TotalNonCurrent.Equal(dec("150000")))
	assert.True(t, bs.Liabilities.TotalCurrent.Equal(dec("2000")))
	assert.True(t, bs.Liabilities.Total.Equal(dec("159000")), "grand total counts class 1 once")
	assert.True(t, bs.Liabilities.Total.Equal(bs.Assets.Total))
}

func TestBalanceSheet_Idempotent(t *testing.T) {
	b := newBooks(t)
	b.seedQuarter()
	ctx := context.Background()

	first, err := b.gen.BalanceSheet(ctx, date(2024, 3, 31))
	require.NoError(t, err)
	second, err := b.gen.BalanceSheet(ctx, date(2024, 3, 31))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBalanceSheet_EmptyLedger(t *testing.T) {
	b := newBooks(t)
	bs, err := b.gen.BalanceSheet(context.Background(), date(2024, 6, 30))
	require.NoError(t, err)
	assert.True(t, bs.Assets.Total.IsZero())
	require.Len(t, bs.Liabilities.Equity, 1)
	assert.True(t, bs.Liabilities.Equity[0].Balance.IsZero())
}

func TestBalanceSheet_UnsectionedAssetClass(t *testing.T) {
	b := newBooks(t)
	ctx := context.Background()
	_, err := b.accts.Create(ctx, model.Account{Code: "6999", Name: "Actif hors section", Class: 6, Type: model.AccountTypeAsset})
	require.NoError(t, err)
	b.post(date(2024, 1, 1), "6999", "500", "1111", "-500")

	bs, err := b.gen.BalanceSheet(ctx, date(2024, 1, 31))
	require.NoError(t, err)
	assert.Empty(t, bs.Assets.NonCurrent)
	assert.Empty(t, bs.Assets.Current)
	assert.Empty(t, bs.Assets.Cash)
	assert.True(t, bs.Assets.Total.Equal(dec("500")))
}

func TestIncomeStatement(t *testing.T) {
	b := newBooks(t)
	b.seedQuarter()
	ctx := context.Background()

	is, err := b.gen.IncomeStatement(ctx, date(2024, 2, 1), date(2024, 2, 29))
	require.NoError(t, err)
	assert.Equal(t, []string{"7111"}, codes(is.Revenues))
	assert.Equal(t, []string{"6131"}, codes(is.Expenses))
	assert.True(t, is.TotalRevenue.Equal(dec("10000")))
	assert.True(t, is.TotalExpense.Equal(dec("3000")))
	assert.True(t, is.NetIncome.Equal(dec("7000")))

	jan, err := b.gen.IncomeStatement(ctx, date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)
	assert.Empty(t, jan.Revenues)
	assert.True(t, jan.NetIncome.IsZero())
}

func TestIncomeStatement_SelectsByCodePrefix(t *testing.T) {
	b := newBooks(t)
	ctx := context.Background()
	// A "6" account typed Revenue is still read as an expense.
	_, err := b.accts.Create(ctx, model.Account{Code: "6998", Name: "Mal classé", Class: 6, Type: model.AccountTypeRevenue})
	require.NoError(t, err)
	b.post(date(2024, 5, 1), "5141", "100", "6998", "-100")

	is, err := b.gen.IncomeStatement(ctx, date(2024, 1, 1), date(2024, 12, 31))
	require.NoError(t, err)
	require.Len(t, is.Expenses, 1)
	assert.True(t, is.Expenses[0].Balance.Equal(dec("-100")))
	assert.True(t, is.NetIncome.Equal(dec("100")))
}

func TestIncomeStatement_InvalidPeriod(t *testing.T) {
	b := newBooks(t)
	_, err := b.gen.IncomeStatement(context.Background(), date(2024, 3, 1), date(2024, 2, 1))
	assert.True(t, errors.Is(err, apperr.ErrInvalidPeriod))

	_, err = b.gen.BalanceSheet(context.Background(), time.Time{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidPeriod))
}

func TestTrialBalance(t *testing.T) {
	b := newBooks(t)
	b.seedQuarter()
	b.post(date(2024, 4, 10), "4455", "2500", "5141", "-2500")

	tb, err := b.gen.TrialBalance(context.Background(), date(2024, 4, 30))
	require.NoError(t, err)

	want := map[string][2]string{
		"1111": {"0", "100000"},
		"1481": {"0", "50000"},
		"2355": {"20000", "0"},
		"4455": {"500", "0"}, // reversed sign lands in the debit column
		"5141": {"136500", "0"},
		"6131": {"3000", "0"},
		"7111": {"0", "10000"},
	}
	require.Len(t, tb.Accounts, len(want))
	for _, line := range tb.Accounts {
		cols, ok := want[line.Code]
		require.True(t, ok, "unexpected account %s", line.Code)
		assert.True(t, line.Debit.Equal(dec(cols[0])), "%s debit %s", line.Code, line.Debit)
		assert.True(t, line.Credit.Equal(dec(cols[1])), "%s credit %s", line.Code, line.Credit)
	}
	assert.Equal(t, "1111", tb.Accounts[0].Code, "ordered by code")
	assert.True(t, tb.TotalDebit.Equal(dec("160000")))
	assert.True(t, tb.TotalDebit.Equal(tb.TotalCredit))
	assert.True(t, tb.Balanced)

	// Cutoff excludes later entries.
	early, err := b.gen.TrialBalance(context.Background(), date(2024, 1, 5))
	require.NoError(t, err)
	assert.Len(t, early.Accounts, 2)
}

func TestTrialBalance_BalancedForRandomLedgers(t *testing.T) {
	b := newBooks(t)
	pairs := [][2]string{{"5141", "1111"}, {"6131", "5141"}, {"3421", "7124"}, {"6111", "4411"}, {"4411", "5161"}, {"2340", "1481"}}
	for i := 0; i < 60; i++ {
		p := pairs[i%len(pairs)]
		amount := decimal.NewFromInt(int64(37*i%997 + 1)).Div(decimal.NewFromInt(4)).Round(2)
		b.post(date(2024, 1+i%12, 1+i%28), p[0], amount.String(), p[1], amount.Neg().String())
	}
	for _, m := range []int{1, 6, 12} {
		w, err := period.Month(2024, m)
		require.NoError(t, err)
		tb, err := b.gen.TrialBalance(context.Background(), w.End)
		require.NoError(t, err)
		assert.True(t, tb.TotalDebit.Equal(tb.TotalCredit), "month %d: %s != %s", m, tb.TotalDebit, tb.TotalCredit)
	}
}

func TestNetIncome(t *testing.T) {
	b := newBooks(t)
	b.seedQuarter()
	w, err := period.Year(2024)
	require.NoError(t, err)

	ni, err := b.gen.NetIncome(context.Background(), w)
	require.NoError(t, err)
	assert.True(t, ni.Equal(dec("7000")))

	_, err = b.gen.NetIncome(context.Background(), period.Window{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidPeriod))
}
