package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry is a dated set of debit/credit lines.
type JournalEntry struct {
	ID          string        `json:"id"` // "YYYY-MM-NNN"
	Date        time.Time     `json:"date"`
	Reference   string        `json:"reference"`
	Description string        `json:"description"`
	CreatedBy   string        `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	Lines       []JournalLine `json:"lines"`
}

// JournalLine is one side of a double entry.
type JournalLine struct {
	ID          string          `json:"id"` // "YYYY-MM-NNNx" where x = a,b,c...
	EntryID     string          `json:"entry_id"`
	AccountID   int             `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`  // zero if credit side
	Credit      decimal.Decimal `json:"credit"` // zero if debit side
	Description string          `json:"description"`
}

// Totals returns the debit and credit sums of the entry's lines.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// IsBalanced reports whether total debits equal total credits.
func (e JournalEntry) IsBalanced() bool {
	d, c := e.Totals()
	return d.Equal(c)
}

// Posting is a journal line joined with its entry header, as read by the aggregator.
type Posting struct {
	EntryID          string
	LineID           string
	Date             time.Time
	AccountID        int
	Debit            decimal.Decimal
	Credit           decimal.Decimal
	Description      string
	Reference        string
	EntryDescription string
}

// EntryFilter bounds a journal listing. Zero times are unbounded.
type EntryFilter struct {
	From time.Time
	To   time.Time
}

// PostingFilter selects postings for aggregation. Zero times are unbounded;
// an empty AccountIDs slice selects every account.
type PostingFilter struct {
	AccountIDs []int
	From       time.Time
	To         time.Time
}

// Includes reports whether date falls inside [From, To].
func (f PostingFilter) Includes(date time.Time) bool {
	if !f.From.IsZero() && date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && date.After(f.To) {
		return false
	}
	return true
}

// Includes reports whether date falls inside [From, To].
func (f EntryFilter) Includes(date time.Time) bool {
	return PostingFilter{From: f.From, To: f.To}.Includes(date)
}
