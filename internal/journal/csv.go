package journal

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
)

// Header is the CSV header of a journal export.
const Header = "entry_id,date,reference,description,account_code,debit,credit,line_description"

const (
	numFields   = 8
	colEntryID  = 0
	colDate     = 1
	colRef      = 2
	colDesc     = 3
	colAcctCode = 4
	colDebit    = 5
	colCredit   = 6
	colLineDesc = 7
)

// Row is one journal line flattened with its entry header.
type Row struct {
	EntryID         string
	Date            time.Time
	Reference       string
	Description     string
	AccountCode     string
	Debit           decimal.Decimal
	Credit          decimal.Decimal
	LineDescription string
}

// ReadRows reads a journal CSV.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var rows []Row
	for i, rec := range records[1:] {
		row, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteRows writes rows to a journal CSV (including header).
func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range rows {
		if err := cw.Write(MarshalRow(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRow converts a Row to a CSV record.
func MarshalRow(row Row) []string {
	rec := make([]string, numFields)
	rec[colEntryID] = row.EntryID
	rec[colDate] = period.Format(row.Date)
	rec[colRef] = row.Reference
	rec[colDesc] = row.Description
	rec[colAcctCode] = row.AccountCode

	if !row.Debit.IsZero() {
		rec[colDebit] = row.Debit.StringFixed(2)
	}
	if !row.Credit.IsZero() {
		rec[colCredit] = row.Credit.StringFixed(2)
	}

	rec[colLineDesc] = row.LineDescription
	return rec
}

// UnmarshalRow converts a CSV record to a Row.
func UnmarshalRow(record []string) (Row, error) {
	if len(record) != numFields {
		return Row{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := period.Parse(record[colDate])
	if err != nil {
		return Row{}, err
	}

	var debit, credit decimal.Decimal

	if record[colDebit] != "" {
		debit, err = decimal.NewFromString(record[colDebit])
		if err != nil {
			return Row{}, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
		}
	}

	if record[colCredit] != "" {
		credit, err = decimal.NewFromString(record[colCredit])
		if err != nil {
			return Row{}, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
		}
	}

	return Row{
		EntryID:         record[colEntryID],
		Date:            date,
		Reference:       record[colRef],
		Description:     record[colDesc],
		AccountCode:     record[colAcctCode],
		Debit:           debit,
		Credit:          credit,
		LineDescription: record[colLineDesc],
	}, nil
}

// Export writes every line of the entries inside f as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer, f model.EntryFilter) error {
	entries, err := s.List(ctx, f)
	if err != nil {
		return err
	}
	chart, err := s.accounts.Chart(ctx)
	if err != nil {
		return fmt.Errorf("loading chart of accounts: %w", err)
	}

	var rows []Row
	for _, e := range entries {
		for _, l := range e.Lines {
			acct, _ := chart.Get(l.AccountID)
			rows = append(rows, Row{
				EntryID:         e.ID,
				Date:            e.Date,
				Reference:       e.Reference,
				Description:     e.Description,
				AccountCode:     acct.Code,
				Debit:           l.Debit,
				Credit:          l.Credit,
				LineDescription: l.Description,
			})
		}
	}
	return WriteRows(w, rows)
}

// Import creates one entry per distinct entry_id in the CSV, in file order.
// Source entry IDs only group lines; new IDs are allocated. Returns the new IDs.
func (s *Service) Import(ctx context.Context, r io.Reader, createdBy string) ([]string, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	chart, err := s.accounts.Chart(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading chart of accounts: %w", err)
	}

	var order []string
	groups := make(map[string][]Row)
	for _, row := range rows {
		if _, seen := groups[row.EntryID]; !seen {
			order = append(order, row.EntryID)
		}
		groups[row.EntryID] = append(groups[row.EntryID], row)
	}

	var created []string
	for _, key := range order {
		group := groups[key]
		params := CreateParams{
			Date:        group[0].Date,
			Reference:   group[0].Reference,
			Description: group[0].Description,
			CreatedBy:   createdBy,
		}
		for _, row := range group {
			acct, ok := chart.ByCode(row.AccountCode)
			if !ok {
				return created, apperr.NotFound("account", row.AccountCode).WithDetail("entry", key)
			}
			params.Lines = append(params.Lines, LineParams{
				AccountID:   acct.ID,
				Debit:       row.Debit,
				Credit:      row.Credit,
				Description: row.LineDescription,
			})
		}
		entryID, err := s.Create(ctx, params)
		if err != nil {
			return created, fmt.Errorf("importing entry %s: %w", key, err)
		}
		created = append(created, entryID)
	}
	return created, nil
}
