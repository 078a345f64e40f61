package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
)

// NextEntrySeq returns the next available sequence number for a month.
func (s *Store) NextEntrySeq(ctx context.Context, year, month int) (int, error) {
	var maxSeq int
	err := s.db.QueryRowContext(ctx, `
	SELECT COALESCE(MAX(CAST(substr(id, 9) AS INTEGER)), 0)
	FROM journal_entries WHERE id LIKE ?`,
		fmt.Sprintf("%04d-%02d-%%", year, month)).Scan(&maxSeq)
	if err != nil {
		return 0, err
	}
	return maxSeq + 1, nil
}

func (s *Store) CreateEntry(ctx context.Context, e model.JournalEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.Now()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO journal_entries(id, date, reference, description, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, period.Format(e.Date), e.Reference, e.Description, e.CreatedBy, timestampValue(e.CreatedAt))
		if err != nil {
			return uniqueViolation(err, "journal entry %s already exists", e.ID)
		}
		return insertLines(ctx, tx, e.ID, e.Lines)
	})
}

func insertLines(ctx context.Context, q queryer, entryID string, lines []model.JournalLine) error {
	for i, l := range lines {
		_, err := q.ExecContext(ctx, `
		INSERT INTO journal_lines(id, entry_id, position, account_id, debit, credit, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
			l.ID, entryID, i, l.AccountID, l.Debit.String(), l.Credit.String(), l.Description)
		if err != nil {
			return uniqueViolation(err, "journal line %s already exists", l.ID)
		}
	}
	return nil
}

const entryColumns = `id, date, reference, description, created_by, created_at`

func scanEntry(row interface{ Scan(...any) error }) (model.JournalEntry, error) {
	var (
		e             model.JournalEntry
		date, created string
	)
	if err := row.Scan(&e.ID, &date, &e.Reference, &e.Description, &e.CreatedBy, &created); err != nil {
		return model.JournalEntry{}, err
	}
	var err error
	if e.Date, err = period.Parse(date); err != nil {
		return model.JournalEntry{}, err
	}
	if e.CreatedAt, err = parseTimestamp(created); err != nil {
		return model.JournalEntry{}, err
	}
	return e, nil
}

func (s *Store) GetEntry(ctx context.Context, entryID string) (model.JournalEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id = ?`, entryID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.JournalEntry{}, apperr.NotFound("journal entry", entryID)
	}
	if err != nil {
		return model.JournalEntry{}, err
	}
	lines, err := s.linesByEntry(ctx, where("l.entry_id = ?"), entryID)
	if err != nil {
		return model.JournalEntry{}, err
	}
	e.Lines = lines[entryID]
	return e, nil
}

// dateRange renders inclusive bounds on column; zero bounds are left open.
func dateRange(column string, from, to time.Time) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, column+" >= ?")
		args = append(args, period.Format(from))
	}
	if !to.IsZero() {
		conds = append(conds, column+" <= ?")
		args = append(args, period.Format(to))
	}
	return strings.Join(conds, " AND "), args
}

func where(conds ...string) string {
	var nonEmpty []string
	for _, c := range conds {
		if c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	if len(nonEmpty) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(nonEmpty, " AND ")
}

// ListEntries returns entries ordered by date then id.
func (s *Store) ListEntries(ctx context.Context, f model.EntryFilter) ([]model.JournalEntry, error) {
	cond, args := dateRange("date", f.From, f.To)
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM journal_entries`+where(cond)+` ORDER BY date, id`, args...)
	if err != nil {
		return nil, err
	}
	var out []model.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lineCond, lineArgs := dateRange("e.date", f.From, f.To)
	lines, err := s.linesByEntry(ctx, where(lineCond), lineArgs...)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = lines[out[i].ID]
	}
	return out, nil
}

// linesByEntry loads lines joined with their entry, grouped by entry id in position order.
func (s *Store) linesByEntry(ctx context.Context, filter string, args ...any) (map[string][]model.JournalLine, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT l.id, l.entry_id, l.account_id, l.debit, l.credit, l.description
	FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id`+filter+`
	ORDER BY l.entry_id, l.position`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]model.JournalLine)
	for rows.Next() {
		var l model.JournalLine
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountID, &l.Debit, &l.Credit, &l.Description); err != nil {
			return nil, err
		}
		out[l.EntryID] = append(out[l.EntryID], l)
	}
	return out, rows.Err()
}

// UpdateEntry replaces an entry's header and lines.
func (s *Store) UpdateEntry(ctx context.Context, e model.JournalEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
		UPDATE journal_entries SET date = ?, reference = ?, description = ?, created_by = ?
		WHERE id = ?`,
			period.Format(e.Date), e.Reference, e.Description, e.CreatedBy, e.ID)
		if err != nil {
			return err
		}
		if err := requireRow(res, "journal entry", e.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM journal_lines WHERE entry_id = ?`, e.ID); err != nil {
			return err
		}
		return insertLines(ctx, tx, e.ID, e.Lines)
	})
}

func (s *Store) DeleteEntry(ctx context.Context, entryID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = ?`, entryID)
	if err != nil {
		return err
	}
	return requireRow(res, "journal entry", entryID)
}

// EntryLinked reports whether an invoice references the entry.
func (s *Store) EntryLinked(ctx context.Context, entryID string) (bool, error) {
	var linked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM invoices WHERE journal_entry_id = ?)`, entryID).Scan(&linked)
	return linked, err
}

// ListPostings flattens matching lines, ordered by date, entry id and line position.
func (s *Store) ListPostings(ctx context.Context, f model.PostingFilter) ([]model.Posting, error) {
	cond, args := dateRange("e.date", f.From, f.To)
	accountCond := ""
	if len(f.AccountIDs) > 0 {
		accountCond = "l.account_id IN (?" + strings.Repeat(", ?", len(f.AccountIDs)-1) + ")"
		for _, a := range f.AccountIDs {
			args = append(args, a)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT l.entry_id, l.id, e.date, l.account_id, l.debit, l.credit, l.description, e.reference, e.description
	FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id`+where(cond, accountCond)+`
	ORDER BY e.date, e.id, l.position`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Posting
	for rows.Next() {
		var (
			p    model.Posting
			date string
		)
		if err := rows.Scan(&p.EntryID, &p.LineID, &date, &p.AccountID, &p.Debit, &p.Credit, &p.Description, &p.Reference, &p.EntryDescription); err != nil {
			return nil, err
		}
		if p.Date, err = period.Parse(date); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
