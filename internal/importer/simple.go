package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
)

// SimpleParser reads date,description,amount with ISO dates and signed amounts.
type SimpleParser struct{}

const (
	simpleNumFields = 3
	simpleColDate   = 0
	simpleColDesc   = 1
	simpleColAmount = 2
)

// Format returns the parser name.
func (p *SimpleParser) Format() string { return "simple" }

// Sniff accepts exactly the date,description,amount header.
func (p *SimpleParser) Sniff(header string) bool {
	fields := strings.Split(header, ",")
	if len(fields) != simpleNumFields {
		return false
	}
	for i, want := range []string{"date", "description", "amount"} {
		if !strings.EqualFold(strings.TrimSpace(fields[i]), want) {
			return false
		}
	}
	return true
}

// Parse reads the CSV, skipping the header row.
func (p *SimpleParser) Parse(r io.Reader) ([]model.BankTransaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = simpleNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading simple CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var txns []model.BankTransaction
	for i, rec := range records[1:] {
		date, err := period.Parse(strings.TrimSpace(rec[simpleColDate]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(rec[simpleColAmount]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing amount %q: %w", i+2, rec[simpleColAmount], err)
		}
		desc := strings.TrimSpace(rec[simpleColDesc])
		txns = append(txns, model.BankTransaction{
			Date:        date,
			Description: desc,
			Amount:      amount,
			Reference:   makeRef("simple", date, desc),
		})
	}
	return txns, nil
}
