package journal

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
)

type mockAccounts struct {
	ids map[int]bool
}

func (m *mockAccounts) Exists(id int) bool {
	return m.ids[id]
}

func newMockAccounts(ids ...int) *mockAccounts {
	m := &mockAccounts{ids: make(map[int]bool)}
	for _, id := range ids {
		m.ids[id] = true
	}
	return m
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func balancedEntry(debitAcct, creditAcct int, amount string) model.JournalEntry {
	return model.JournalEntry{
		ID: "2025-01-001",
		Lines: []model.JournalLine{
			{ID: "2025-01-001a", AccountID: debitAcct, Debit: dec(amount)},
			{ID: "2025-01-001b", AccountID: creditAcct, Credit: dec(amount)},
		},
	}
}

func invariants(verrs []ValidationError) []int {
	var out []int
	for _, ve := range verrs {
		out = append(out, ve.Invariant)
	}
	return out
}

func TestValidate_Balanced(t *testing.T) {
	errs := ValidateEntry(balancedEntry(1, 2, "100.00"), newMockAccounts(1, 2), true)
	assert.Empty(t, errs)
}

func TestValidate_Unbalanced(t *testing.T) {
	e := balancedEntry(1, 2, "100.00")
	e.Lines[1].Credit = dec("99.99")

	errs := ValidateEntry(e, newMockAccounts(1, 2), true)
	require.Len(t, errs, 1)
	assert.Equal(t, InvBalanced, errs[0].Invariant)
	assert.Contains(t, errs[0].Description, "100.00")

	assert.Empty(t, ValidateEntry(e, newMockAccounts(1, 2), false), "balance not enforced")
}

func TestValidate_BothDebitAndCredit(t *testing.T) {
	e := balancedEntry(1, 2, "50")
	e.Lines[0].Credit = dec("50")
	e.Lines[1].Debit = dec("50")

	errs := ValidateEntry(e, newMockAccounts(1, 2), true)
	assert.Equal(t, []int{InvOneSided, InvOneSided}, invariants(errs))
}

func TestValidate_NeitherDebitNorCredit(t *testing.T) {
	e := model.JournalEntry{ID: "2025-01-001", Lines: []model.JournalLine{{ID: "2025-01-001a", AccountID: 1}}}
	errs := ValidateEntry(e, newMockAccounts(1), true)
	assert.Equal(t, []int{InvOneSided}, invariants(errs))
}

func TestValidate_UnknownAccount(t *testing.T) {
	errs := ValidateEntry(balancedEntry(1, 99, "10"), newMockAccounts(1), true)
	require.Len(t, errs, 1)
	assert.Equal(t, InvAccount, errs[0].Invariant)
	assert.Equal(t, "2025-01-001b", errs[0].EntryID)
}

func TestValidate_Negative(t *testing.T) {
	e := balancedEntry(1, 2, "-10")
	errs := ValidateEntry(e, newMockAccounts(1, 2), true)
	assert.Equal(t, []int{InvNonNegative, InvNonNegative}, invariants(errs))
}

func TestValidate_NoLines(t *testing.T) {
	errs := ValidateEntry(model.JournalEntry{ID: "2025-01-001"}, newMockAccounts(), true)
	assert.Equal(t, []int{InvHasLines}, invariants(errs))
}

func TestValidate_TooManyDecimals(t *testing.T) {
	errs := ValidateEntry(balancedEntry(1, 2, "10.005"), newMockAccounts(1, 2), true)
	assert.Equal(t, []int{InvExactDecimal, InvExactDecimal}, invariants(errs))

	assert.Empty(t, ValidateEntry(balancedEntry(1, 2, "10.50"), newMockAccounts(1, 2), true))
}

func TestValidate_MultiLegBalanced(t *testing.T) {
	e := model.JournalEntry{ID: "2025-01-002", Lines: []model.JournalLine{
		{ID: "2025-01-002a", AccountID: 1, Debit: dec("1200")},
		{ID: "2025-01-002b", AccountID: 2, Credit: dec("1000")},
		{ID: "2025-01-002c", AccountID: 3, Credit: dec("200")},
	}}
	assert.Empty(t, ValidateEntry(e, newMockAccounts(1, 2, 3), true))
}

func TestAsErrorCodes(t *testing.T) {
	assert.NoError(t, asError("x", nil))

	unbalanced := asError("2025-01-001", []ValidationError{{Invariant: InvAccount}, {Invariant: InvBalanced}})
	assert.True(t, errors.Is(unbalanced, apperr.ErrUnbalanced))
	assert.False(t, errors.Is(unbalanced, apperr.ErrValidation))

	invalid := asError("2025-01-001", []ValidationError{{Invariant: InvOneSided, EntryID: "2025-01-001a"}})
	assert.True(t, errors.Is(invalid, apperr.ErrValidation))
	assert.ErrorContains(t, invalid, "invariant 2 [2025-01-001a]")

	var ve ValidationError
	assert.True(t, errors.As(invalid, &ve))
	assert.Equal(t, InvOneSided, ve.Invariant)
}
