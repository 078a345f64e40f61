package journal

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/accounts"
	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/id"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
)

// Repository persists journal entries.
type Repository interface {
	NextEntrySeq(ctx context.Context, year, month int) (int, error)
	CreateEntry(ctx context.Context, e model.JournalEntry) error
	GetEntry(ctx context.Context, entryID string) (model.JournalEntry, error)
	ListEntries(ctx context.Context, f model.EntryFilter) ([]model.JournalEntry, error)
	UpdateEntry(ctx context.Context, e model.JournalEntry) error
	DeleteEntry(ctx context.Context, entryID string) error
	EntryLinked(ctx context.Context, entryID string) (bool, error)
}

// ChartLoader provides the current chart of accounts.
type ChartLoader interface {
	Chart(ctx context.Context) (*accounts.Chart, error)
}

// Service is the ledger write path. Every write is validated against the
// chart of accounts and, when enforceBalance is set, must leave the entry balanced.
type Service struct {
	repo           Repository
	accounts       ChartLoader
	log            *zap.Logger
	enforceBalance bool
}

// NewService creates a journal Service.
func NewService(repo Repository, accts ChartLoader, log *zap.Logger, enforceBalance bool) *Service {
	return &Service{repo: repo, accounts: accts, log: log, enforceBalance: enforceBalance}
}

// LineParams describes one line to post.
type LineParams struct {
	AccountID   int
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// CreateParams holds parameters for a new journal entry.
type CreateParams struct {
	Date        time.Time
	Reference   string
	Description string
	CreatedBy   string
	Lines       []LineParams
}

// Create validates and stores a new entry. Returns the entry ID.
func (s *Service) Create(ctx context.Context, params CreateParams) (string, error) {
	if params.Date.IsZero() {
		return "", apperr.Validation("journal entry needs a date")
	}
	date := period.Day(params.Date)
	year, month := date.Year(), int(date.Month())

	seq, err := s.repo.NextEntrySeq(ctx, year, month)
	if err != nil {
		return "", fmt.Errorf("allocating entry sequence: %w", err)
	}
	entryID := id.FormatEntryID(year, month, seq)

	entry := model.JournalEntry{
		ID:          entryID,
		Date:        date,
		Reference:   params.Reference,
		Description: params.Description,
		CreatedBy:   params.CreatedBy,
	}
	entry.Lines = appendLines(entry.ID, nil, params.Lines)

	if err := s.validate(ctx, entry); err != nil {
		return "", err
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return "", fmt.Errorf("storing entry %s: %w", entryID, err)
	}

	debit, _ := entry.Totals()
	s.log.Info("journal entry created",
		zap.String("entry", entryID),
		zap.Int("lines", len(entry.Lines)),
		zap.String("total", debit.StringFixed(2)))
	return entryID, nil
}

// AddDoubleParams holds parameters for a two-line entry.
type AddDoubleParams struct {
	Date          time.Time
	Description   string
	Reference     string
	CreatedBy     string
	DebitAccount  int
	CreditAccount int
	Amount        decimal.Decimal
}

// AddDouble creates a balanced entry with one debit line and one credit line.
func (s *Service) AddDouble(ctx context.Context, params AddDoubleParams) (string, error) {
	return s.Create(ctx, CreateParams{
		Date:        params.Date,
		Reference:   params.Reference,
		Description: params.Description,
		CreatedBy:   params.CreatedBy,
		Lines: []LineParams{
			{AccountID: params.DebitAccount, Debit: params.Amount, Description: params.Description},
			{AccountID: params.CreditAccount, Credit: params.Amount, Description: params.Description},
		},
	})
}

// Get returns an entry with its lines.
func (s *Service) Get(ctx context.Context, entryID string) (model.JournalEntry, error) {
	return s.repo.GetEntry(ctx, entryID)
}

// List returns entries dated inside the filter, ordered by date.
func (s *Service) List(ctx context.Context, f model.EntryFilter) ([]model.JournalEntry, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, apperr.InvalidPeriod("end %s is before start %s", period.Format(f.To), period.Format(f.From))
	}
	entries, err := s.repo.ListEntries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("listing journal entries: %w", err)
	}
	return entries, nil
}

// HeaderParams replaces an entry's header fields.
type HeaderParams struct {
	Date        time.Time
	Reference   string
	Description string
}

// UpdateHeader changes date, reference and description. The entry keeps its ID.
// An entry posted from an invoice carries the invoice's date and number and is
// left alone.
func (s *Service) UpdateHeader(ctx context.Context, entryID string, params HeaderParams) error {
	if params.Date.IsZero() {
		return apperr.Validation("journal entry needs a date")
	}
	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	linked, err := s.repo.EntryLinked(ctx, entryID)
	if err != nil {
		return fmt.Errorf("checking invoice links: %w", err)
	}
	if linked {
		return apperr.Conflict("journal entry %s is referenced by an invoice", entryID)
	}
	entry.Date = period.Day(params.Date)
	entry.Reference = params.Reference
	entry.Description = params.Description

	if err := s.repo.UpdateEntry(ctx, entry); err != nil {
		return fmt.Errorf("updating entry %s: %w", entryID, err)
	}
	s.log.Info("journal entry updated", zap.String("entry", entryID))
	return nil
}

// AddLines appends lines to an existing entry. Line IDs continue after the
// highest remaining one.
func (s *Service) AddLines(ctx context.Context, entryID string, lines ...LineParams) error {
	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	entry.Lines = appendLines(entry.ID, entry.Lines, lines)

	if err := s.validate(ctx, entry); err != nil {
		return err
	}
	if err := s.repo.UpdateEntry(ctx, entry); err != nil {
		return fmt.Errorf("updating entry %s: %w", entryID, err)
	}
	s.log.Info("journal lines added", zap.String("entry", entryID), zap.Int("lines", len(lines)))
	return nil
}

// RemoveLines deletes lines from an entry by line ID.
func (s *Service) RemoveLines(ctx context.Context, entryID string, lineIDs ...string) error {
	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	for _, lid := range lineIDs {
		if !slices.ContainsFunc(entry.Lines, func(l model.JournalLine) bool { return l.ID == lid }) {
			return apperr.NotFound("journal line", lid)
		}
	}
	entry.Lines = slices.DeleteFunc(entry.Lines, func(l model.JournalLine) bool {
		return slices.Contains(lineIDs, l.ID)
	})

	if err := s.validate(ctx, entry); err != nil {
		return err
	}
	if err := s.repo.UpdateEntry(ctx, entry); err != nil {
		return fmt.Errorf("updating entry %s: %w", entryID, err)
	}
	s.log.Info("journal lines removed", zap.String("entry", entryID), zap.Strings("lines", lineIDs))
	return nil
}

// Delete removes an entry unless an invoice references it.
func (s *Service) Delete(ctx context.Context, entryID string) error {
	if _, err := s.repo.GetEntry(ctx, entryID); err != nil {
		return err
	}
	linked, err := s.repo.EntryLinked(ctx, entryID)
	if err != nil {
		return fmt.Errorf("checking invoice links: %w", err)
	}
	if linked {
		return apperr.Conflict("journal entry %s is referenced by an invoice", entryID)
	}
	if err := s.repo.DeleteEntry(ctx, entryID); err != nil {
		return fmt.Errorf("deleting entry %s: %w", entryID, err)
	}
	s.log.Info("journal entry deleted", zap.String("entry", entryID))
	return nil
}

func (s *Service) validate(ctx context.Context, entry model.JournalEntry) error {
	chart, err := s.accounts.Chart(ctx)
	if err != nil {
		return fmt.Errorf("loading chart of accounts: %w", err)
	}
	if verrs := ValidateEntry(entry, chart, s.enforceBalance); len(verrs) > 0 {
		s.log.Debug("journal entry rejected", zap.String("entry", entry.ID), zap.Int("violations", len(verrs)))
		return asError(entry.ID, verrs)
	}
	return nil
}

func appendLines(entryID string, existing []model.JournalLine, params []LineParams) []model.JournalLine {
	next := 0
	for _, l := range existing {
		if idx, err := id.LineIndex(l.ID); err == nil && idx >= next {
			next = idx + 1
		}
	}
	lines := slices.Clone(existing)
	for i, p := range params {
		lines = append(lines, model.JournalLine{
			ID:          id.FormatLineID(entryID, next+i),
			EntryID:     entryID,
			AccountID:   p.AccountID,
			Debit:       p.Debit,
			Credit:      p.Credit,
			Description: p.Description,
		})
	}
	return lines
}
