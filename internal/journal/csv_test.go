package journal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
)

func TestRowRoundTrip(t *testing.T) {
	rows := []Row{
		{EntryID: "2025-01-001", Date: date(2025, 1, 15), Reference: "F-001", Description: "Vente", AccountCode: "3421", Debit: dec("1200")},
		{EntryID: "2025-01-001", Date: date(2025, 1, 15), Reference: "F-001", Description: "Vente", AccountCode: "7111", Credit: dec("1000"), LineDescription: "HT"},
		{EntryID: "2025-01-001", Date: date(2025, 1, 15), Reference: "F-001", Description: "Vente", AccountCode: "4455", Credit: dec("200.5")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, rows))
	assert.Contains(t, buf.String(), "200.50")

	got, err := ReadRows(&buf)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range rows {
		assert.Equal(t, rows[i].AccountCode, got[i].AccountCode)
		assert.True(t, rows[i].Debit.Equal(got[i].Debit))
		assert.True(t, rows[i].Credit.Equal(got[i].Credit))
		assert.Equal(t, rows[i].Date, got[i].Date)
	}
	assert.Equal(t, "HT", got[1].LineDescription)
}

func TestSpecialCharactersInDescription(t *testing.T) {
	rows := []Row{{EntryID: "2025-01-001", Date: date(2025, 1, 1), Description: `Loyer "janvier", bureau`, AccountCode: "6131", Debit: dec("1")}}
	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, rows))

	got, err := ReadRows(&buf)
	require.NoError(t, err)
	assert.Equal(t, rows[0].Description, got[0].Description)
}

func TestReadRows_Errors(t *testing.T) {
	_, err := ReadRows(strings.NewReader(Header + "\n2025-01-001,15/01/2025,,,5141,1,,\n"))
	assert.ErrorContains(t, err, "row 2")

	_, err = ReadRows(strings.NewReader(Header + "\n2025-01-001,2025-01-15,,,5141,abc,,\n"))
	assert.ErrorContains(t, err, "parsing debit")

	got, err := ReadRows(strings.NewReader(Header + "\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExportImport(t *testing.T) {
	src := newFixture(t, true)
	ctx := context.Background()

	_, err := src.svc.Create(ctx, CreateParams{
		Date: date(2025, 1, 15), Reference: "F-001", Description: "Vente",
		Lines: []LineParams{
			{AccountID: src.acct(t, "3421"), Debit: dec("1200")},
			{AccountID: src.acct(t, "7111"), Credit: dec("1000")},
			{AccountID: src.acct(t, "4455"), Credit: dec("200")},
		},
	})
	require.NoError(t, err)
	_, err = src.svc.AddDouble(ctx, AddDoubleParams{
		Date: date(2025, 2, 1), DebitAccount: src.acct(t, "5141"), CreditAccount: src.acct(t, "3421"), Amount: dec("1200"),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.svc.Export(ctx, &buf, model.EntryFilter{}))

	dst := newFixture(t, true)
	ids, err := dst.svc.Import(ctx, &buf, "import")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-001", "2025-02-001"}, ids)

	entry, err := dst.svc.Get(ctx, "2025-01-001")
	require.NoError(t, err)
	assert.Len(t, entry.Lines, 3)
	assert.Equal(t, "F-001", entry.Reference)
	assert.Equal(t, "import", entry.CreatedBy)
}

func TestImport_UnknownAccount(t *testing.T) {
	f := newFixture(t, true)
	csvData := Header + "\nX,2025-01-01,,,9999,10,,\nX,2025-01-01,,,5141,,10,\n"
	_, err := f.svc.Import(context.Background(), strings.NewReader(csvData), "")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
