package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
)

const accountColumns = `id, code, name, class, type, parent_id`

func scanAccount(row interface{ Scan(...any) error }) (model.Account, error) {
	var (
		a      model.Account
		typ    string
		parent sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Class, &typ, &parent); err != nil {
		return model.Account{}, err
	}
	a.Type = model.AccountType(typ)
	a.ParentID = int(parent.Int64)
	return a, nil
}

func parentValue(parentID int) any {
	if parentID == 0 {
		return nil
	}
	return parentID
}

func (s *Store) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAccount(ctx context.Context, accountID int) (model.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, apperr.NotFound("account", accountID)
	}
	return a, err
}

func (s *Store) CreateAccount(ctx context.Context, a model.Account) (model.Account, error) {
	res, err := s.db.ExecContext(ctx, `
	INSERT INTO accounts(code, name, class, type, parent_id)
	VALUES (?, ?, ?, ?, ?)`,
		a.Code, a.Name, a.Class, string(a.Type), parentValue(a.ParentID))
	if err != nil {
		return model.Account{}, uniqueViolation(err, "account code %s already exists", a.Code)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return model.Account{}, err
	}
	a.ID = int(newID)
	return a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a model.Account) error {
	res, err := s.db.ExecContext(ctx, `
	UPDATE accounts SET code = ?, name = ?, class = ?, type = ?, parent_id = ?
	WHERE id = ?`,
		a.Code, a.Name, a.Class, string(a.Type), parentValue(a.ParentID), a.ID)
	if err != nil {
		return uniqueViolation(err, "account code %s already exists", a.Code)
	}
	return requireRow(res, "account", a.ID)
}

func (s *Store) DeleteAccount(ctx context.Context, accountID int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, accountID)
	if err != nil {
		return err
	}
	return requireRow(res, "account", accountID)
}

func (s *Store) AccountInUse(ctx context.Context, accountID int) (bool, error) {
	var used bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM journal_lines WHERE account_id = ?)`, accountID).Scan(&used)
	return used, err
}
