package invoice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/accounts"
	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/journal"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/store/memory"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	svc     *Service
	store   *memory.Store
	journal *journal.Service
	chart   *accounts.Chart
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	acctSvc := accounts.NewService(store, zap.NewNop())
	_, err := acctSvc.Seed(ctx)
	require.NoError(t, err)
	chart, err := acctSvc.Chart(ctx)
	require.NoError(t, err)
	j := journal.NewService(store, acctSvc, zap.NewNop(), true)
	return fixture{
		svc:     NewService(store, j, acctSvc, DefaultPostingAccounts, zap.NewNop()),
		store:   store,
		journal: j,
		chart:   chart,
	}
}

func (f fixture) code(t *testing.T, accountID int) string {
	t.Helper()
	a, ok := f.chart.Get(accountID)
	require.True(t, ok)
	return a.Code
}

func oneLine(qty, price string, rate int) []LineParams {
	return []LineParams{{Description: "Prestation", Quantity: dec(qty), UnitPrice: dec(price), Rate: rate}}
}

func TestComputeLineRounding(t *testing.T) {
	l := ComputeLine(model.InvoiceLine{Quantity: dec("3"), UnitPrice: dec("33.335"), Rate: 20})
	assert.Equal(t, "100.01", l.TotalHT.StringFixed(2))
	assert.Equal(t, "20.00", l.TotalTVA.StringFixed(2))
	assert.Equal(t, "120.01", l.TotalTTC.StringFixed(2))

	l = ComputeLine(model.InvoiceLine{Quantity: dec("2"), UnitPrice: dec("150"), Rate: 0})
	assert.True(t, l.TotalTVA.IsZero())
	assert.True(t, l.TotalTTC.Equal(dec("300")))
}

func TestRecomputeAfterEdit(t *testing.T) {
	inv := model.Invoice{Lines: []model.InvoiceLine{
		{Quantity: dec("1"), UnitPrice: dec("1000"), Rate: 20},
		{Quantity: dec("4"), UnitPrice: dec("25"), Rate: 10},
	}}
	Recompute(&inv)
	assert.True(t, inv.TotalHT.Equal(dec("1100")))
	assert.True(t, inv.TotalTVA.Equal(dec("210")))
	assert.True(t, inv.TotalTTC.Equal(dec("1310")))

	inv.Lines[0].Rate = 14
	Recompute(&inv)
	assert.True(t, inv.Lines[0].TotalTVA.Equal(dec("140")))
	assert.True(t, inv.TotalTTC.Equal(dec("1250")))
}

func TestCreateParty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.CreateParty(ctx, model.Party{Kind: model.PartyKindClient, Name: "  Dar Tazi SARL ", ICE: "001234567000089"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Dar Tazi SARL", p.Name)
	assert.False(t, p.CreatedAt.IsZero())

	_, err = f.svc.CreateParty(ctx, model.Party{Kind: "partner", Name: "", ICE: "12"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Contains(t, err.Error(), "15 digits")

	parties, err := f.svc.Parties(ctx, model.PartyKindSupplier)
	require.NoError(t, err)
	assert.Empty(t, parties)
}

func TestCreateInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client, err := f.svc.CreateParty(ctx, model.Party{Kind: model.PartyKindClient, Name: "Dar Tazi"})
	require.NoError(t, err)

	inv, err := f.svc.Create(ctx, CreateParams{
		Type:    model.InvoiceTypeClient,
		Date:    date(2024, 3, 10),
		DueDate: date(2024, 4, 10),
		PartyID: client.ID,
		Lines: []LineParams{
			{Description: "Conseil", Quantity: dec("2"), UnitPrice: dec("500"), Rate: 20},
			{Description: "Transport", Quantity: dec("1"), UnitPrice: dec("100"), Rate: 14},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "F-2024-001", inv.Number)
	assert.Equal(t, "Dar Tazi", inv.PartyName)
	assert.True(t, inv.TotalHT.Equal(dec("1100")))
	assert.True(t, inv.TotalTVA.Equal(dec("214")))
	assert.True(t, inv.TotalTTC.Equal(dec("1314")))
	require.Len(t, inv.Lines, 2)
	assert.True(t, inv.Lines[1].TotalTTC.Equal(dec("114")))

	second, err := f.svc.Create(ctx, CreateParams{Type: model.InvoiceTypeClient, Date: date(2024, 5, 1), Lines: oneLine("1", "10", 20)})
	require.NoError(t, err)
	assert.Equal(t, "F-2024-002", second.Number)

	purchase, err := f.svc.Create(ctx, CreateParams{Type: model.InvoiceTypeSupplier, Date: date(2024, 5, 1), Lines: oneLine("1", "10", 20)})
	require.NoError(t, err)
	assert.Equal(t, "A-2024-001", purchase.Number)

	_, err = f.svc.Create(ctx, CreateParams{Type: model.InvoiceTypeClient, Number: "F-2024-001", Date: date(2024, 5, 1), Lines: oneLine("1", "10", 20)})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	list, err := f.svc.List(ctx, model.InvoiceFilter{Type: model.InvoiceTypeClient})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCreateInvoiceRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	supplier, err := f.svc.CreateParty(ctx, model.Party{Kind: model.PartyKindSupplier, Name: "Atlas"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		params CreateParams
		want   error
	}{
		{"unknown type", CreateParams{Type: "credit-note", Date: date(2024, 1, 1), Lines: oneLine("1", "1", 20)}, apperr.ErrValidation},
		{"no date", CreateParams{Type: model.InvoiceTypeClient, Lines: oneLine("1", "1", 20)}, apperr.ErrValidation},
		{"due before date", CreateParams{Type: model.InvoiceTypeClient, Date: date(2024, 2, 1), DueDate: date(2024, 1, 1), Lines: oneLine("1", "1", 20)}, apperr.ErrValidation},
		{"wrong party kind", CreateParams{Type: model.InvoiceTypeClient, Date: date(2024, 1, 1), PartyID: supplier.ID, Lines: oneLine("1", "1", 20)}, apperr.ErrValidation},
		{"missing party", CreateParams{Type: model.InvoiceTypeClient, Date: date(2024, 1, 1), PartyID: "nope", Lines: oneLine("1", "1", 20)}, apperr.ErrNotFound},
		{"no lines", CreateParams{Type: model.InvoiceTypeClient, Date: date(2024, 1, 1)}, apperr.ErrValidation},
		{"rate outside set", CreateParams{Type: model.InvoiceTypeClient, Date: date(2024, 1, 1), Lines: oneLine("1", "1", 15)}, apperr.ErrValidation},
		{"zero quantity", CreateParams{Type: model.InvoiceTypeClient, Date: date(2024, 1, 1), Lines: oneLine("0", "1", 20)}, apperr.ErrValidation},
		{"negative price", CreateParams{Type: model.InvoiceTypeClient, Date: date(2024, 1, 1), Lines: oneLine("1", "-1", 20)}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestPostClientInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Create(ctx, CreateParams{Type: model.InvoiceTypeClient, Date: date(2024, 3, 10), Lines: oneLine("1", "1000", 20)})
	require.NoError(t, err)

	entryID, err := f.svc.Post(ctx, inv.ID, "test")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-001", entryID)

	entry, err := f.journal.Get(ctx, entryID)
	require.NoError(t, err)
	assert.Equal(t, inv.Number, entry.Reference)
	assert.True(t, entry.IsBalanced())
	require.Len(t, entry.Lines, 3)
	assert.Equal(t, "3421", f.code(t, entry.Lines[0].AccountID))
	assert.True(t, entry.Lines[0].Debit.Equal(dec("1200")))
	assert.Equal(t, "7111", f.code(t, entry.Lines[1].AccountID))
	assert.True(t, entry.Lines[1].Credit.Equal(dec("1000")))
	assert.Equal(t, "4455", f.code(t, entry.Lines[2].AccountID))
	assert.True(t, entry.Lines[2].Credit.Equal(dec("200")))

	posted, err := f.svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entryID, posted.JournalEntryID)

	_, err = f.svc.Post(ctx, inv.ID, "test")
	assert.True(t, errors.Is(err, apperr.ErrConflict), "posted once")
	_, err = f.svc.UpdateLines(ctx, inv.ID, oneLine("2", "1000", 20))
	assert.True(t, errors.Is(err, apperr.ErrConflict), "posted invoices are frozen")
	assert.True(t, errors.Is(f.journal.Delete(ctx, entryID), apperr.ErrConflict), "linked entry is kept")

	require.NoError(t, f.svc.Delete(ctx, inv.ID))
	_, err = f.journal.Get(ctx, entryID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestPostSupplierInvoiceSkipsZeroVAT(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Create(ctx, CreateParams{Type: model.InvoiceTypeSupplier, Date: date(2024, 6, 2), Lines: oneLine("3", "150", 0)})
	require.NoError(t, err)

	entryID, err := f.svc.Post(ctx, inv.ID, "test")
	require.NoError(t, err)
	entry, err := f.journal.Get(ctx, entryID)
	require.NoError(t, err)
	require.Len(t, entry.Lines, 2)
	assert.Equal(t, "6111", f.code(t, entry.Lines[0].AccountID))
	assert.True(t, entry.Lines[0].Debit.Equal(dec("450")))
	assert.Equal(t, "4411", f.code(t, entry.Lines[1].AccountID))
	assert.True(t, entry.Lines[1].Credit.Equal(dec("450")))
}

func TestPostUnknownAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	accts := DefaultPostingAccounts
	accts.Sales = "7999"
	svc := NewService(f.store, f.journal, accounts.NewService(f.store, zap.NewNop()), accts, zap.NewNop())

	inv, err := svc.Create(ctx, CreateParams{Type: model.InvoiceTypeClient, Date: date(2024, 3, 10), Lines: oneLine("1", "100", 20)})
	require.NoError(t, err)
	_, err = svc.Post(ctx, inv.ID, "test")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	got, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Empty(t, got.JournalEntryID)
}

func TestUpdateLinesAndMarkPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Create(ctx, CreateParams{Type: model.InvoiceTypeClient, Date: date(2024, 3, 10), Lines: oneLine("1", "100", 20)})
	require.NoError(t, err)

	inv, err = f.svc.UpdateLines(ctx, inv.ID, oneLine("2", "100", 10))
	require.NoError(t, err)
	assert.True(t, inv.TotalTTC.Equal(dec("220")))

	_, err = f.svc.MarkPaid(ctx, inv.ID, date(2024, 3, 1))
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	paid, err := f.svc.MarkPaid(ctx, inv.ID, date(2024, 3, 31))
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	assert.Equal(t, date(2024, 3, 31), paid.PaymentDate)

	_, err = f.svc.MarkPaid(ctx, inv.ID, date(2024, 4, 1))
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestUpdateParty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client, err := f.svc.CreateParty(ctx, model.Party{Kind: model.PartyKindClient, Name: "Dar Tazi"})
	require.NoError(t, err)

	updated, err := f.svc.UpdateParty(ctx, model.Party{ID: client.ID, Name: " Dar Tazi SA ", ICE: "001234567000089", Phone: "0522000000"})
	require.NoError(t, err)
	assert.Equal(t, "Dar Tazi SA", updated.Name)
	assert.Equal(t, model.PartyKindClient, updated.Kind)
	assert.Equal(t, "0522000000", updated.Phone)
	assert.Equal(t, client.CreatedAt, updated.CreatedAt)

	_, err = f.svc.UpdateParty(ctx, model.Party{ID: client.ID, Name: "Dar Tazi", ICE: "0012"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = f.svc.UpdateParty(ctx, model.Party{ID: client.ID, Kind: "partner", Name: "Dar Tazi"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = f.svc.UpdateParty(ctx, model.Party{ID: "nope", Name: "Ghost"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.Create(ctx, CreateParams{Type: model.InvoiceTypeClient, Date: date(2024, 3, 10), PartyID: client.ID, Lines: oneLine("1", "100", 20)})
	require.NoError(t, err)
	_, err = f.svc.UpdateParty(ctx, model.Party{ID: client.ID, Kind: model.PartyKindSupplier, Name: "Dar Tazi SA"})
	assert.True(t, errors.Is(err, apperr.ErrConflict), "invoiced client keeps its kind")

	got, err := f.svc.GetParty(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dar Tazi SA", got.Name)
	assert.Equal(t, "001234567000089", got.ICE)
}

func TestDeletePartyRefusedWhileInvoiced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	supplier, err := f.svc.CreateParty(ctx, model.Party{Kind: model.PartyKindSupplier, Name: "Atlas"})
	require.NoError(t, err)
	unused, err := f.svc.CreateParty(ctx, model.Party{Kind: model.PartyKindSupplier, Name: "Bouregreg"})
	require.NoError(t, err)

	inv, err := f.svc.Create(ctx, CreateParams{Type: model.InvoiceTypeSupplier, Date: date(2024, 3, 10), PartyID: supplier.ID, Lines: oneLine("1", "100", 20)})
	require.NoError(t, err)

	err = f.svc.DeleteParty(ctx, supplier.ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	_, err = f.svc.GetParty(ctx, supplier.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteParty(ctx, unused.ID))
	assert.True(t, errors.Is(f.svc.DeleteParty(ctx, unused.ID), apperr.ErrNotFound))

	require.NoError(t, f.svc.Delete(ctx, inv.ID))
	require.NoError(t, f.svc.DeleteParty(ctx, supplier.ID))
	parties, err := f.svc.Parties(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, parties)
}

// failingJournal posts through the real journal but cannot delete.
type failingJournal struct {
	*journal.Service
}

func (failingJournal) Delete(context.Context, string) error {
	return errors.New("disk full")
}

func TestDeleteKeepsInvoiceWhenEntryRemains(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acctSvc := accounts.NewService(f.store, zap.NewNop())
	svc := NewService(f.store, failingJournal{f.journal}, acctSvc, DefaultPostingAccounts, zap.NewNop())

	inv, err := svc.Create(ctx, CreateParams{Type: model.InvoiceTypeClient, Date: date(2024, 3, 10), Lines: oneLine("1", "1000", 20)})
	require.NoError(t, err)
	entryID, err := svc.Post(ctx, inv.ID, "test")
	require.NoError(t, err)

	err = svc.Delete(ctx, inv.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	kept, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entryID, kept.JournalEntryID)
	_, err = f.journal.Get(ctx, entryID)
	require.NoError(t, err)
	linked, err := f.store.EntryLinked(ctx, entryID)
	require.NoError(t, err)
	assert.True(t, linked)
}

func TestDueUnpaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	create := func(due time.Time) model.Invoice {
		t.Helper()
		inv, err := f.svc.Create(ctx, CreateParams{Type: model.InvoiceTypeClient, Date: date(2024, 3, 1), DueDate: due, Lines: oneLine("1", "100", 20)})
		require.NoError(t, err)
		return inv
	}
	create(date(2024, 3, 10)) // overdue
	late := create(date(2024, 6, 30))
	soon := create(date(2024, 4, 15))
	today := create(date(2024, 4, 1))
	paid := create(date(2024, 4, 2))
	_, err := f.svc.MarkPaid(ctx, paid.ID, date(2024, 3, 20))
	require.NoError(t, err)
	create(time.Time{})

	due, err := f.svc.DueUnpaid(ctx, date(2024, 4, 1), 5)
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, today.ID, due[0].ID)
	assert.Equal(t, soon.ID, due[1].ID)
	assert.Equal(t, late.ID, due[2].ID)

	due, err = f.svc.DueUnpaid(ctx, date(2024, 4, 1), 2)
	require.NoError(t, err)
	assert.Len(t, due, 2)
}
