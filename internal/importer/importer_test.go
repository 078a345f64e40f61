package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/accounts"
	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/journal"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/store/memory"
)

const releveHeader = "Date opération;Date valeur;Libellé;Débit;Crédit\n"

func parseFixture(t *testing.T) []model.BankTransaction {
	t.Helper()
	f, err := os.Open("testdata/releve.csv")
	require.NoError(t, err)
	defer f.Close()

	txns, err := (&ReleveParser{}).Parse(f)
	require.NoError(t, err)
	return txns
}

func TestReleveParser_Parse(t *testing.T) {
	txns := parseFixture(t)
	require.Len(t, txns, 5)

	assert.Equal(t, "VIREMENT RECU ATLAS SARL", txns[0].Description)
	assert.Equal(t, "12000.00", txns[0].Amount.StringFixed(2))
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), txns[0].Date)

	assert.Equal(t, "-450.00", txns[1].Amount.StringFixed(2))
	assert.Equal(t, "-3000.00", txns[2].Amount.StringFixed(2), "thousands separator")
	assert.Equal(t, "-25.50", txns[3].Amount.StringFixed(2))
	assert.Equal(t, "1234.56", txns[4].Amount.StringFixed(2))
	assert.Equal(t, 31, txns[4].Date.Day())
}

func TestReleveParser_Reference(t *testing.T) {
	txns := parseFixture(t)
	assert.Equal(t, "releve_20240102_VIREMENTRE", txns[0].Reference)
	assert.Equal(t, "releve_20240110_LOYERJANVI", txns[2].Reference)
}

func TestReleveParser_EmptyFile(t *testing.T) {
	txns, err := (&ReleveParser{}).Parse(strings.NewReader(releveHeader))
	require.NoError(t, err)
	assert.Nil(t, txns)
}

func TestReleveParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"bad date", "2024-01-02;;X;10,00;\n", "parsing date"},
		{"bad debit", "02/01/2024;;X;abc;\n", "parsing debit"},
		{"both sides", "02/01/2024;;X;10,00;10,00\n", "exactly one"},
		{"neither side", "02/01/2024;;X;;\n", "exactly one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&ReleveParser{}).Parse(strings.NewReader(releveHeader + tt.row))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "row 2")
		})
	}
}

func TestSimpleParser(t *testing.T) {
	csv := "date,description,amount\n2024-03-01,Client payment,1500.00\n2024-03-02,Bank fees,-12.5\n"
	txns, err := (&SimpleParser{}).Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "1500.00", txns[0].Amount.StringFixed(2))
	assert.Equal(t, "-12.50", txns[1].Amount.StringFixed(2))
	assert.Equal(t, "simple_20240302_Bankfees", txns[1].Reference)

	_, err = (&SimpleParser{}).Parse(strings.NewReader("date,description,amount\n01/03/2024,x,1\n"))
	assert.Error(t, err)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("nonexistent"))
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(&ReleveParser{})
	assert.NotNil(t, r.Get("Releve"))
	assert.NotNil(t, r.Get("RELEVE"))
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&SimpleParser{})
	assert.Panics(t, func() { r.Register(&SimpleParser{}) })
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("releve"))
	assert.NotNil(t, r.Get("simple"))
	assert.Equal(t, []string{"releve", "simple"}, r.Formats())
}

func TestRegistry_Detect(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		header string
		want   string
	}{
		{"Date opération;Date valeur;Libellé;Débit;Crédit", "releve"},
		{"\ufeffDATE;VALEUR;LIBELLE;DEBIT;CREDIT", "releve"},
		{"date,description,amount", "simple"},
		{" Date , Description , Amount ", "simple"},
		{"date;libelle;montant", ""},
		{"", ""},
	}
	for _, tt := range tests {
		p := r.Detect(tt.header)
		if tt.want == "" {
			assert.Nil(t, p, tt.header)
			continue
		}
		require.NotNil(t, p, tt.header)
		assert.Equal(t, tt.want, p.Format())
	}
}

func TestRegistry_ParseAuto(t *testing.T) {
	f, err := os.Open("testdata/releve.csv")
	require.NoError(t, err)
	defer f.Close()

	txns, p, err := DefaultRegistry().Parse(Auto, f)
	require.NoError(t, err)
	assert.Equal(t, "releve", p.Format())
	assert.Len(t, txns, 5)
}

func TestRegistry_ParseErrors(t *testing.T) {
	r := DefaultRegistry()
	_, _, err := r.Parse(Auto, strings.NewReader("what,is,this,file\n"))
	assert.ErrorContains(t, err, "unrecognised statement header")

	_, _, err = r.Parse("ofx", strings.NewReader(releveHeader))
	assert.ErrorContains(t, err, "unknown statement format")

	_, p, err := r.Parse("SIMPLE", strings.NewReader("date,description,amount\n2024-03-01,x,abc\n"))
	assert.Error(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "simple", p.Format())
}

func writeFile(t *testing.T, path string, modTime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestInbox_Pending(t *testing.T) {
	inbox := NewInbox(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(inbox.Dir(), "processed"), 0o755))

	jan := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	writeFile(t, filepath.Join(inbox.Dir(), "fevrier.csv"), jan.AddDate(0, 1, 0))
	writeFile(t, filepath.Join(inbox.Dir(), "janvier.CSV"), jan)
	writeFile(t, filepath.Join(inbox.Dir(), "notes.txt"), jan)
	writeFile(t, filepath.Join(inbox.Dir(), "processed", "decembre.csv"), jan)

	pending, err := inbox.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "janvier.CSV", pending[0].Name, "oldest first")
	assert.Equal(t, "fevrier.csv", pending[1].Name)
	assert.Equal(t, int64(4), pending[0].Size)
}

func TestInbox_PendingWithoutDir(t *testing.T) {
	pending, err := NewInbox(t.TempDir()).Pending()
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestInbox_Archive(t *testing.T) {
	inbox := NewInbox(t.TempDir())
	inbox.Now = func() time.Time { return time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC) }
	require.NoError(t, os.MkdirAll(inbox.Dir(), 0o755))

	src := filepath.Join(inbox.Dir(), "bank.csv")
	writeFile(t, src, time.Now())
	dst, err := inbox.Archive("bank.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(inbox.Dir(), "processed", "bank.csv"), dst)
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	writeFile(t, src, time.Now())
	dst, err = inbox.Archive("bank.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(inbox.Dir(), "processed", "bank-20240301-103000.csv"), dst)
	_, err = os.Stat(filepath.Join(inbox.Dir(), "processed", "bank.csv"))
	assert.NoError(t, err, "first archive is kept")
}

type books struct {
	journal *journal.Service
	chart   *accounts.Chart
	poster  *Poster
}

func newBooks(t *testing.T) books {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	acctSvc := accounts.NewService(store, zap.NewNop())
	_, err := acctSvc.Seed(ctx)
	require.NoError(t, err)
	chart, err := acctSvc.Chart(ctx)
	require.NoError(t, err)
	j := journal.NewService(store, acctSvc, zap.NewNop(), true)
	return books{journal: j, chart: chart, poster: NewPoster(j, zap.NewNop())}
}

func (b books) id(t *testing.T, code string) int {
	t.Helper()
	a, ok := b.chart.ByCode(code)
	require.True(t, ok, "account %s", code)
	return a.ID
}

func TestPoster_Post(t *testing.T) {
	b := newBooks(t)
	ctx := context.Background()
	bank, suspense := b.id(t, "5141"), b.id(t, "3497")

	res, err := b.poster.Post(ctx, parseFixture(t), bank, suspense, "test")
	require.NoError(t, err)
	assert.Len(t, res.Created, 5)
	assert.Zero(t, res.Skipped)

	entries, err := b.journal.List(ctx, model.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 5)

	in := entries[0]
	assert.Equal(t, "releve_20240102_VIREMENTRE", in.Reference)
	require.Len(t, in.Lines, 2)
	assert.Equal(t, bank, in.Lines[0].AccountID)
	assert.Equal(t, "12000.00", in.Lines[0].Debit.StringFixed(2))
	assert.Equal(t, suspense, in.Lines[1].AccountID)
	assert.Equal(t, "12000.00", in.Lines[1].Credit.StringFixed(2))

	out := entries[1]
	assert.Equal(t, "450.00", out.Lines[0].Credit.StringFixed(2), "money out credits the bank")
	assert.Equal(t, "450.00", out.Lines[1].Debit.StringFixed(2))
	for _, e := range entries {
		assert.True(t, e.IsBalanced(), e.ID)
	}
}

func TestPoster_ReimportIsNoop(t *testing.T) {
	b := newBooks(t)
	ctx := context.Background()
	bank, suspense := b.id(t, "5141"), b.id(t, "3497")

	_, err := b.poster.Post(ctx, parseFixture(t), bank, suspense, "test")
	require.NoError(t, err)
	res, err := b.poster.Post(ctx, parseFixture(t), bank, suspense, "test")
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, 5, res.Skipped)
}

func TestPoster_Rejects(t *testing.T) {
	b := newBooks(t)
	ctx := context.Background()
	bank := b.id(t, "5141")

	_, err := b.poster.Post(ctx, parseFixture(t), bank, bank, "test")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	res, err := b.poster.Post(ctx, nil, bank, b.id(t, "3497"), "test")
	require.NoError(t, err)
	assert.Empty(t, res.Created)
}

func TestPoster_RepeatedLabelsSameDay(t *testing.T) {
	b := newBooks(t)
	ctx := context.Background()
	bank, suspense := b.id(t, "5141"), b.id(t, "3497")
	stmt := releveHeader +
		"15/01/2024;15/01/2024;FRAIS SMS;5,00;\n" +
		"15/01/2024;15/01/2024;FRAIS SMS;5,00;\n"

	parse := func() []model.BankTransaction {
		txns, err := (&ReleveParser{}).Parse(strings.NewReader(stmt))
		require.NoError(t, err)
		return txns
	}

	res, err := b.poster.Post(ctx, parse(), bank, suspense, "test")
	require.NoError(t, err)
	assert.Len(t, res.Created, 2)

	entries, err := b.journal.List(ctx, model.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "releve_20240115_FRAISSMS", entries[0].Reference)
	assert.Equal(t, "releve_20240115_FRAISSMS_2", entries[1].Reference)

	res, err = b.poster.Post(ctx, parse(), bank, suspense, "test")
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, 2, res.Skipped)
}
