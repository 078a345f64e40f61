package commands

import (
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	date "github.com/joyt/godate"
	"github.com/shopspring/decimal"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/invoice"
	"github.com/daftar-dev/daftar/internal/period"
)

// parseDate reads "2006-01-02", falling back to the layouts godate
// recognises ("2024/03/15" and the like), and truncates to the calendar day.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := period.Parse(s); err == nil {
		return t, nil
	}
	t, _, err := date.ParseAndGetLayout(s)
	if err != nil {
		return time.Time{}, apperr.Validation("unrecognised date %q", s)
	}
	return period.Day(t), nil
}

// parseDateOr returns fallback when s is empty.
func parseDateOr(s string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return period.Day(fallback), nil
	}
	return parseDate(s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, apperr.Validation("invalid amount %q", s)
	}
	return d, nil
}

// parseLeg splits "CODE=AMOUNT".
func parseLeg(s string) (string, decimal.Decimal, error) {
	code, amount, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(code) == "" {
		return "", decimal.Zero, apperr.Validation("expected CODE=AMOUNT, got %q", s)
	}
	d, err := parseAmount(amount)
	if err != nil {
		return "", decimal.Zero, err
	}
	return strings.TrimSpace(code), d, nil
}

// parseInvoiceLine reads "description,quantity,unit price,rate". The
// description may be quoted to hold commas.
func parseInvoiceLine(s string) (invoice.LineParams, error) {
	fields, err := csv.NewReader(strings.NewReader(s)).Read()
	if err != nil || len(fields) != 4 {
		return invoice.LineParams{}, apperr.Validation("expected \"description,quantity,price,rate\", got %q", s)
	}
	qty, err := parseAmount(fields[1])
	if err != nil {
		return invoice.LineParams{}, err
	}
	price, err := parseAmount(fields[2])
	if err != nil {
		return invoice.LineParams{}, err
	}
	rate, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(fields[3]), "%"))
	if err != nil {
		return invoice.LineParams{}, apperr.Validation("invalid rate %q", fields[3])
	}
	return invoice.LineParams{
		Description: strings.TrimSpace(fields[0]),
		Quantity:    qty,
		UnitPrice:   price,
		Rate:        rate,
	}, nil
}
