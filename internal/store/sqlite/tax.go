package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
)

// --- declarations ---

const declarationColumns = `id, type, period, start_date, end_date, deadline, submitted, submitted_on, total_amount, created_at`

func scanDeclaration(row interface{ Scan(...any) error }) (model.TaxDeclaration, error) {
	var (
		d                        model.TaxDeclaration
		typ, per, created        string
		start, end, deadline, on sql.NullString
	)
	err := row.Scan(&d.ID, &typ, &per, &start, &end, &deadline, &d.Submitted, &on, &d.TotalAmount, &created)
	if err != nil {
		return model.TaxDeclaration{}, err
	}
	d.Type = model.DeclarationType(typ)
	d.Period = model.DeclarationPeriod(per)
	if d.StartDate, err = parseDate(start); err != nil {
		return model.TaxDeclaration{}, err
	}
	if d.EndDate, err = parseDate(end); err != nil {
		return model.TaxDeclaration{}, err
	}
	if d.Deadline, err = parseDate(deadline); err != nil {
		return model.TaxDeclaration{}, err
	}
	if d.SubmittedOn, err = parseDate(on); err != nil {
		return model.TaxDeclaration{}, err
	}
	if d.CreatedAt, err = parseTimestamp(created); err != nil {
		return model.TaxDeclaration{}, err
	}
	return d, nil
}

func (s *Store) CreateDeclaration(ctx context.Context, d model.TaxDeclaration) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.Now()
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO tax_declarations(`+declarationColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, string(d.Type), string(d.Period), dateValue(d.StartDate), dateValue(d.EndDate), dateValue(d.Deadline),
		boolValue(d.Submitted), dateValue(d.SubmittedOn), d.TotalAmount.String(), timestampValue(d.CreatedAt))
	return uniqueViolation(err, "declaration %s already exists", d.ID)
}

func (s *Store) GetDeclaration(ctx context.Context, declID string) (model.TaxDeclaration, error) {
	d, err := scanDeclaration(s.db.QueryRowContext(ctx, `SELECT `+declarationColumns+` FROM tax_declarations WHERE id = ?`, declID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.TaxDeclaration{}, apperr.NotFound("declaration", declID)
	}
	return d, err
}

// ListDeclarations returns declarations ordered by deadline, latest first.
func (s *Store) ListDeclarations(ctx context.Context) ([]model.TaxDeclaration, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+declarationColumns+` FROM tax_declarations ORDER BY deadline DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TaxDeclaration
	for rows.Next() {
		d, err := scanDeclaration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDeclaration(ctx context.Context, d model.TaxDeclaration) error {
	res, err := s.db.ExecContext(ctx, `
	UPDATE tax_declarations SET type = ?, period = ?, start_date = ?, end_date = ?, deadline = ?,
	       submitted = ?, submitted_on = ?, total_amount = ?
	WHERE id = ?`,
		string(d.Type), string(d.Period), dateValue(d.StartDate), dateValue(d.EndDate), dateValue(d.Deadline),
		boolValue(d.Submitted), dateValue(d.SubmittedOn), d.TotalAmount.String(), d.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "declaration", d.ID)
}

func (s *Store) DeleteDeclaration(ctx context.Context, declID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tax_declarations WHERE id = ?`, declID)
	if err != nil {
		return err
	}
	return requireRow(res, "declaration", declID)
}

// --- payroll ---

// ListEmployees returns the roster ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, gross_salary, cnss, cimr FROM employees ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Employee
	for rows.Next() {
		var e model.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.GrossSalary, &e.CNSS, &e.CIMR); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CreateEmployee(ctx context.Context, e model.Employee) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO employees(id, name, gross_salary, cnss, cimr) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.GrossSalary.String(), e.CNSS.String(), e.CIMR.String())
	return uniqueViolation(err, "employee %s already exists", e.ID)
}
