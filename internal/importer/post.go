package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/journal"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
)

// Journal is the subset of the journal service the poster writes through.
type Journal interface {
	Create(ctx context.Context, params journal.CreateParams) (string, error)
	List(ctx context.Context, f model.EntryFilter) ([]model.JournalEntry, error)
}

// Result reports what a Post call booked.
type Result struct {
	Created []string `json:"created"`
	Skipped int      `json:"skipped"`
}

// Poster books bank transactions as two-line entries between the bank account
// and a counter account, usually the suspense account 3497.
type Poster struct {
	journal Journal
	log     *zap.Logger
}

// NewPoster creates a Poster.
func NewPoster(j Journal, log *zap.Logger) *Poster {
	return &Poster{journal: j, log: log}
}

// Post creates one entry per transaction. Money in debits the bank account,
// money out credits it. Transactions whose reference is already on an entry
// in the statement's date range are skipped, so re-importing a file is a no-op.
func (p *Poster) Post(ctx context.Context, txns []model.BankTransaction, bankID, counterID int, createdBy string) (Result, error) {
	var res Result
	if len(txns) == 0 {
		return res, nil
	}
	if bankID == counterID {
		return res, apperr.Validation("bank and counter account must differ")
	}

	f := model.EntryFilter{From: txns[0].Date, To: txns[0].Date}
	for _, t := range txns[1:] {
		if t.Date.Before(f.From) {
			f.From = t.Date
		}
		if t.Date.After(f.To) {
			f.To = t.Date
		}
	}
	existing, err := p.journal.List(ctx, f)
	if err != nil {
		return res, fmt.Errorf("listing entries %s..%s: %w", period.Format(f.From), period.Format(f.To), err)
	}
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		if e.Reference != "" {
			seen[e.Reference] = true
		}
	}

	occurrences := make(map[string]int, len(txns))
	for _, t := range txns {
		// Same-day transactions with the same label get _2, _3... in file
		// order, which a re-import reproduces.
		occurrences[t.Reference]++
		if n := occurrences[t.Reference]; n > 1 {
			t.Reference = fmt.Sprintf("%s_%d", t.Reference, n)
		}
		if t.Amount.IsZero() || seen[t.Reference] {
			res.Skipped++
			continue
		}
		amount := t.Amount.Abs()
		bank := journal.LineParams{AccountID: bankID}
		counter := journal.LineParams{AccountID: counterID}
		if t.Amount.IsPositive() {
			bank.Debit, counter.Credit = amount, amount
		} else {
			counter.Debit, bank.Credit = amount, amount
		}

		entryID, err := p.journal.Create(ctx, journal.CreateParams{
			Date:        t.Date,
			Reference:   t.Reference,
			Description: t.Description,
			CreatedBy:   createdBy,
			Lines:       []journal.LineParams{bank, counter},
		})
		if err != nil {
			return res, fmt.Errorf("booking %s: %w", t.Reference, err)
		}
		res.Created = append(res.Created, entryID)
	}

	p.log.Info("bank statement booked",
		zap.Int("created", len(res.Created)),
		zap.Int("skipped", res.Skipped))
	return res, nil
}
