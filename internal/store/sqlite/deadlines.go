package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
)

const deadlineColumns = `id, title, description, due_date, deadline_type, completed, completed_date, created_at`

func scanDeadline(row interface{ Scan(...any) error }) (model.Deadline, error) {
	var (
		d            model.Deadline
		typ, created string
		due, done    sql.NullString
	)
	if err := row.Scan(&d.ID, &d.Title, &d.Description, &due, &typ, &d.Completed, &done, &created); err != nil {
		return model.Deadline{}, err
	}
	d.Type = model.DeadlineType(typ)
	var err error
	if d.DueDate, err = parseDate(due); err != nil {
		return model.Deadline{}, err
	}
	if d.CompletedDate, err = parseDate(done); err != nil {
		return model.Deadline{}, err
	}
	if d.CreatedAt, err = parseTimestamp(created); err != nil {
		return model.Deadline{}, err
	}
	return d, nil
}

func (s *Store) CreateDeadline(ctx context.Context, d model.Deadline) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.Now()
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO deadlines(`+deadlineColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Description, dateValue(d.DueDate), string(d.Type),
		boolValue(d.Completed), dateValue(d.CompletedDate), timestampValue(d.CreatedAt))
	return uniqueViolation(err, "deadline %s already exists", d.ID)
}

func (s *Store) GetDeadline(ctx context.Context, deadlineID string) (model.Deadline, error) {
	d, err := scanDeadline(s.db.QueryRowContext(ctx, `SELECT `+deadlineColumns+` FROM deadlines WHERE id = ?`, deadlineID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Deadline{}, apperr.NotFound("deadline", deadlineID)
	}
	return d, err
}

// ListDeadlines returns deadlines due inside [from, to] ordered by due date.
// Zero bounds are open.
func (s *Store) ListDeadlines(ctx context.Context, from, to time.Time) ([]model.Deadline, error) {
	cond, args := dateRange("due_date", from, to)
	rows, err := s.db.QueryContext(ctx, `SELECT `+deadlineColumns+` FROM deadlines`+where(cond)+` ORDER BY due_date, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Deadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDeadline(ctx context.Context, d model.Deadline) error {
	res, err := s.db.ExecContext(ctx, `
	UPDATE deadlines SET title = ?, description = ?, due_date = ?, deadline_type = ?,
	       completed = ?, completed_date = ?
	WHERE id = ?`,
		d.Title, d.Description, dateValue(d.DueDate), string(d.Type),
		boolValue(d.Completed), dateValue(d.CompletedDate), d.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "deadline", d.ID)
}

func (s *Store) DeleteDeadline(ctx context.Context, deadlineID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM deadlines WHERE id = ?`, deadlineID)
	if err != nil {
		return err
	}
	return requireRow(res, "deadline", deadlineID)
}
