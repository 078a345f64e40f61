package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
)

// --- parties ---

const partyColumns = `id, kind, name, ice, address, phone, email, created_at`

func scanParty(row interface{ Scan(...any) error }) (model.Party, error) {
	var (
		p             model.Party
		kind, created string
	)
	if err := row.Scan(&p.ID, &kind, &p.Name, &p.ICE, &p.Address, &p.Phone, &p.Email, &created); err != nil {
		return model.Party{}, err
	}
	p.Kind = model.PartyKind(kind)
	var err error
	p.CreatedAt, err = parseTimestamp(created)
	return p, err
}

func (s *Store) CreateParty(ctx context.Context, p model.Party) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.Now()
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO parties(`+partyColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, string(p.Kind), p.Name, p.ICE, p.Address, p.Phone, p.Email, timestampValue(p.CreatedAt))
	return uniqueViolation(err, "party %s already exists", p.ID)
}

func (s *Store) GetParty(ctx context.Context, partyID string) (model.Party, error) {
	p, err := scanParty(s.db.QueryRowContext(ctx, `SELECT `+partyColumns+` FROM parties WHERE id = ?`, partyID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Party{}, apperr.NotFound("party", partyID)
	}
	return p, err
}

// ListParties returns parties of a kind (all kinds when empty) ordered by name.
func (s *Store) ListParties(ctx context.Context, kind model.PartyKind) ([]model.Party, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+partyColumns+` FROM parties
	WHERE ? = '' OR kind = ?
	ORDER BY lower(name)`, string(kind), string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateParty(ctx context.Context, p model.Party) error {
	res, err := s.db.ExecContext(ctx, `
	UPDATE parties SET kind = ?, name = ?, ice = ?, address = ?, phone = ?, email = ?
	WHERE id = ?`,
		string(p.Kind), p.Name, p.ICE, p.Address, p.Phone, p.Email, p.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "party", p.ID)
}

func (s *Store) DeleteParty(ctx context.Context, partyID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM parties WHERE id = ?`, partyID)
	if err != nil {
		return err
	}
	return requireRow(res, "party", partyID)
}

// PartyInUse reports whether an invoice names the party.
func (s *Store) PartyInUse(ctx context.Context, partyID string) (bool, error) {
	var used bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM invoices WHERE party_id = ?)`, partyID).Scan(&used)
	return used, err
}

// --- invoices ---

const invoiceColumns = `i.id, i.number, i.type, i.date, i.due_date, i.party_id, COALESCE(p.name, ''),
	i.total_ht, i.total_tva, i.total_ttc, i.paid, i.payment_date, i.journal_entry_id, i.created_at`

const invoiceFrom = ` FROM invoices i LEFT JOIN parties p ON p.id = i.party_id`

func scanInvoice(row interface{ Scan(...any) error }) (model.Invoice, error) {
	var (
		inv                    model.Invoice
		typ, date, created     string
		due, paidOn, party, je sql.NullString
	)
	err := row.Scan(&inv.ID, &inv.Number, &typ, &date, &due, &party, &inv.PartyName,
		&inv.TotalHT, &inv.TotalTVA, &inv.TotalTTC, &inv.Paid, &paidOn, &je, &created)
	if err != nil {
		return model.Invoice{}, err
	}
	inv.Type = model.InvoiceType(typ)
	inv.PartyID = party.String
	inv.JournalEntryID = je.String
	if inv.Date, err = parseDate(sql.NullString{String: date, Valid: true}); err != nil {
		return model.Invoice{}, err
	}
	if inv.DueDate, err = parseDate(due); err != nil {
		return model.Invoice{}, err
	}
	if inv.PaymentDate, err = parseDate(paidOn); err != nil {
		return model.Invoice{}, err
	}
	if inv.CreatedAt, err = parseTimestamp(created); err != nil {
		return model.Invoice{}, err
	}
	return inv, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv model.Invoice) error {
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = s.Now()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO invoices(id, number, type, date, due_date, party_id, total_ht, total_tva, total_ttc,
		                     paid, payment_date, journal_entry_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.ID, inv.Number, string(inv.Type), dateValue(inv.Date), dateValue(inv.DueDate), nullString(inv.PartyID),
			inv.TotalHT.String(), inv.TotalTVA.String(), inv.TotalTTC.String(),
			boolValue(inv.Paid), dateValue(inv.PaymentDate), nullString(inv.JournalEntryID), timestampValue(inv.CreatedAt))
		if err != nil {
			return uniqueViolation(err, "invoice number %s already exists", inv.Number)
		}
		return insertInvoiceLines(ctx, tx, inv.ID, inv.Lines)
	})
}

func insertInvoiceLines(ctx context.Context, q queryer, invoiceID string, lines []model.InvoiceLine) error {
	for i, l := range lines {
		_, err := q.ExecContext(ctx, `
		INSERT INTO invoice_lines(invoice_id, position, description, quantity, unit_price, rate, total_ht, total_tva, total_ttc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			invoiceID, i, l.Description, l.Quantity.String(), l.UnitPrice.String(), l.Rate,
			l.TotalHT.String(), l.TotalTVA.String(), l.TotalTTC.String())
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invoiceID string) (model.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+invoiceFrom+` WHERE i.id = ?`, invoiceID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Invoice{}, apperr.NotFound("invoice", invoiceID)
	}
	if err != nil {
		return model.Invoice{}, err
	}
	lines, err := s.invoiceLines(ctx, where("l.invoice_id = ?"), invoiceID)
	if err != nil {
		return model.Invoice{}, err
	}
	inv.Lines = lines[inv.ID]
	return inv, nil
}

// ListInvoices returns matching invoices ordered by date then number.
func (s *Store) ListInvoices(ctx context.Context, f model.InvoiceFilter) ([]model.Invoice, error) {
	cond, args := dateRange("i.date", f.From, f.To)
	typeCond := ""
	if f.Type != "" {
		typeCond = "i.type = ?"
		args = append(args, string(f.Type))
	}
	filter := where(cond, typeCond)

	rows, err := s.db.QueryContext(ctx, `SELECT `+invoiceColumns+invoiceFrom+filter+` ORDER BY i.date, i.number`, args...)
	if err != nil {
		return nil, err
	}
	var out []model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, inv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := s.invoiceLines(ctx, filter, args...)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = lines[out[i].ID]
	}
	return out, nil
}

// invoiceLines loads lines joined with their invoice, grouped by invoice id in position order.
func (s *Store) invoiceLines(ctx context.Context, filter string, args ...any) (map[string][]model.InvoiceLine, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT l.invoice_id, l.description, l.quantity, l.unit_price, l.rate, l.total_ht, l.total_tva, l.total_ttc
	FROM invoice_lines l JOIN invoices i ON i.id = l.invoice_id`+filter+`
	ORDER BY l.invoice_id, l.position`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]model.InvoiceLine)
	for rows.Next() {
		var (
			invoiceID string
			l         model.InvoiceLine
		)
		if err := rows.Scan(&invoiceID, &l.Description, &l.Quantity, &l.UnitPrice, &l.Rate, &l.TotalHT, &l.TotalTVA, &l.TotalTTC); err != nil {
			return nil, err
		}
		out[invoiceID] = append(out[invoiceID], l)
	}
	return out, rows.Err()
}

func (s *Store) UpdateInvoice(ctx context.Context, inv model.Invoice) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
		UPDATE invoices SET number = ?, type = ?, date = ?, due_date = ?, party_id = ?,
		       total_ht = ?, total_tva = ?, total_ttc = ?, paid = ?, payment_date = ?, journal_entry_id = ?
		WHERE id = ?`,
			inv.Number, string(inv.Type), dateValue(inv.Date), dateValue(inv.DueDate), nullString(inv.PartyID),
			inv.TotalHT.String(), inv.TotalTVA.String(), inv.TotalTTC.String(),
			boolValue(inv.Paid), dateValue(inv.PaymentDate), nullString(inv.JournalEntryID), inv.ID)
		if err != nil {
			return uniqueViolation(err, "invoice number %s already exists", inv.Number)
		}
		if err := requireRow(res, "invoice", inv.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_lines WHERE invoice_id = ?`, inv.ID); err != nil {
			return err
		}
		return insertInvoiceLines(ctx, tx, inv.ID, inv.Lines)
	})
}

func (s *Store) DeleteInvoice(ctx context.Context, invoiceID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, invoiceID)
	if err != nil {
		return err
	}
	return requireRow(res, "invoice", invoiceID)
}
