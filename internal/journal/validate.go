package journal

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Invariant   int
	EntryID     string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [%s]: %s", e.Invariant, e.EntryID, e.Description)
}

// Invariant numbers.
const (
	InvBalanced     = 1
	InvOneSided     = 2
	InvAccount      = 3
	InvNonNegative  = 4
	InvHasLines     = 5
	InvExactDecimal = 6
)

// AccountChecker tests whether an account ID exists in the chart of accounts.
type AccountChecker interface {
	Exists(id int) bool
}

var hundred = decimal.NewFromInt(100)

// ValidateEntry enforces the line invariants on one entry. The balance
// invariant is only checked when enforceBalance is set.
func ValidateEntry(e model.JournalEntry, accounts AccountChecker, enforceBalance bool) []ValidationError {
	var errs []ValidationError

	// Invariant 5: at least one line.
	if len(e.Lines) == 0 {
		errs = append(errs, ValidationError{
			Invariant:   InvHasLines,
			EntryID:     e.ID,
			Description: "entry has no lines",
		})
	}

	// Invariant 1: sum(debits) == sum(credits).
	if enforceBalance {
		debit, credit := e.Totals()
		if !debit.Equal(credit) {
			errs = append(errs, ValidationError{
				Invariant:   InvBalanced,
				EntryID:     e.ID,
				Description: fmt.Sprintf("debits (%s) != credits (%s)", debit.StringFixed(2), credit.StringFixed(2)),
			})
		}
	}

	for _, l := range e.Lines {
		// Invariant 4: amounts are never negative.
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			errs = append(errs, ValidationError{
				Invariant:   InvNonNegative,
				EntryID:     l.ID,
				Description: fmt.Sprintf("negative amount (debit %s, credit %s)", l.Debit, l.Credit),
			})
		}

		// Invariant 2: exactly one of debit/credit per line.
		hasDebit := !l.Debit.IsZero()
		hasCredit := !l.Credit.IsZero()
		if hasDebit == hasCredit {
			errs = append(errs, ValidationError{
				Invariant:   InvOneSided,
				EntryID:     l.ID,
				Description: "line must have exactly one of debit or credit",
			})
		}

		// Invariant 3: valid account references.
		if !accounts.Exists(l.AccountID) {
			errs = append(errs, ValidationError{
				Invariant:   InvAccount,
				EntryID:     l.ID,
				Description: fmt.Sprintf("unknown account %d", l.AccountID),
			})
		}

		// Invariant 6: no more than 2 decimal places.
		for _, amt := range []decimal.Decimal{l.Debit, l.Credit} {
			if !amt.Mul(hundred).Equal(amt.Mul(hundred).Truncate(0)) {
				errs = append(errs, ValidationError{
					Invariant:   InvExactDecimal,
					EntryID:     l.ID,
					Description: fmt.Sprintf("amount %s has more than 2 decimal places", amt),
				})
			}
		}
	}

	return errs
}

// asError folds violations into one domain error. Any balance violation makes
// it UNBALANCED_ENTRY, otherwise VALIDATION_ERROR.
func asError(entryID string, verrs []ValidationError) error {
	if len(verrs) == 0 {
		return nil
	}
	code := apperr.CodeValidation
	joined := make([]error, len(verrs))
	for i, ve := range verrs {
		joined[i] = ve
		if ve.Invariant == InvBalanced {
			code = apperr.CodeUnbalanced
		}
	}
	return apperr.Error{
		Code:    code,
		Message: fmt.Sprintf("journal entry %s rejected", entryID),
		Err:     errors.Join(joined...),
		Details: map[string]any{"violations": len(verrs)},
	}
}
