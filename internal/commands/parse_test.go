package commands

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daftar-dev/daftar/internal/apperr"
)

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), d)

	_, err = parseDate("not a date")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestParseDateOr(t *testing.T) {
	fallback := time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)
	d, err := parseDateOr("  ", fallback)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), d)
}

func TestParseLeg(t *testing.T) {
	code, amount, err := parseLeg(" 6131 =3000.50")
	require.NoError(t, err)
	assert.Equal(t, "6131", code)
	assert.Equal(t, "3000.50", amount.StringFixed(2))

	for _, bad := range []string{"6131", "=100", "6131=abc"} {
		_, _, err := parseLeg(bad)
		assert.True(t, errors.Is(err, apperr.ErrValidation), bad)
	}
}

func TestParseInvoiceLine(t *testing.T) {
	lp, err := parseInvoiceLine(`"Conseil, mars",10,1000,20%`)
	require.NoError(t, err)
	assert.Equal(t, "Conseil, mars", lp.Description)
	assert.Equal(t, "10", lp.Quantity.String())
	assert.Equal(t, "1000", lp.UnitPrice.String())
	assert.Equal(t, 20, lp.Rate)

	for _, bad := range []string{"Conseil,10,1000", "Conseil,x,1000,20", "Conseil,10,1000,vingt"} {
		_, err := parseInvoiceLine(bad)
		assert.True(t, errors.Is(err, apperr.ErrValidation), bad)
	}
}
