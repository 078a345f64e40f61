package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/daftar-dev/daftar/internal/model"
)

// ReleveParser parses the semicolon-separated statement export of Moroccan
// banks: Date opération;Date valeur;Libellé;Débit;Crédit, with dd/mm/yyyy
// dates and French decimals ("1 234,56").
type ReleveParser struct{}

const (
	releveDateFormat = "02/01/2006"
	releveNumFields  = 5
	releveColDate    = 0
	releveColDesc    = 2
	releveColDebit   = 3
	releveColCredit  = 4
)

// Format returns the parser name.
func (p *ReleveParser) Format() string { return "releve" }

// Sniff accepts a five-column semicolon header naming a debit column.
func (p *ReleveParser) Sniff(header string) bool {
	h := strings.ToLower(header)
	return strings.Count(h, ";") == releveNumFields-1 &&
		(strings.Contains(h, "débit") || strings.Contains(h, "debit"))
}

// Parse reads a statement and returns BankTransactions. Debits are negative.
func (p *ReleveParser) Parse(r io.Reader) ([]model.BankTransaction, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = releveNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading releve CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var txns []model.BankTransaction
	for i, rec := range records[1:] {
		txn, err := parseReleveRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func parseReleveRow(rec []string) (model.BankTransaction, error) {
	date, err := time.Parse(releveDateFormat, strings.TrimSpace(rec[releveColDate]))
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing date %q: %w", rec[releveColDate], err)
	}

	debit, err := frenchAmount(rec[releveColDebit])
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing debit %q: %w", rec[releveColDebit], err)
	}
	credit, err := frenchAmount(rec[releveColCredit])
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing credit %q: %w", rec[releveColCredit], err)
	}
	if debit.IsZero() == credit.IsZero() {
		return model.BankTransaction{}, errors.New("exactly one of debit and credit must be set")
	}

	desc := strings.TrimSpace(rec[releveColDesc])
	return model.BankTransaction{
		Date:        date,
		Description: desc,
		Amount:      credit.Sub(debit),
		Reference:   makeRef("releve", date, desc),
	}, nil
}

// frenchAmount reads "1 234,56"; an empty cell is zero.
func frenchAmount(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", ",", ".").Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
