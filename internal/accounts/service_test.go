package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/store/memory"
)

func newSeeded(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := NewService(store, zap.NewNop())
	n, err := svc.Seed(context.Background())
	require.NoError(t, err)
	require.Equal(t, len(DefaultChart()), n)
	return svc, store
}

func TestSeedIsIdempotent(t *testing.T) {
	svc, _ := newSeeded(t)
	n, err := svc.Seed(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChartLookups(t *testing.T) {
	svc, _ := newSeeded(t)
	chart, err := svc.Chart(context.Background())
	require.NoError(t, err)

	bank, ok := chart.ByCode("5141")
	require.True(t, ok)
	assert.Equal(t, "Banques", bank.Name)
	assert.True(t, chart.Exists(bank.ID))

	parent, ok := chart.Parent(bank.ID)
	require.True(t, ok)
	assert.Equal(t, "51", parent.Code)

	children := chart.Children(parent.ID)
	require.Len(t, children, 2)
	assert.Equal(t, "5141", children[0].Code)
	assert.Equal(t, "5161", children[1].Code)

	for _, a := range chart.ByCodePrefix("7") {
		assert.Equal(t, model.AccountTypeRevenue, a.Type)
	}
	for _, a := range chart.ByType(model.AccountTypeLiability) {
		assert.Contains(t, []int{1, 4}, a.Class)
	}

	_, ok = chart.Parent(parent.ID)
	assert.False(t, ok)
}

func TestResolveSuggests(t *testing.T) {
	svc, _ := newSeeded(t)
	ctx := context.Background()

	a, err := svc.Resolve(ctx, "4455")
	require.NoError(t, err)
	assert.Equal(t, "État - TVA facturée", a.Name)

	byID, err := svc.Resolve(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, byID.ID)

	_, err = svc.Resolve(ctx, "4457")
	require.True(t, errors.Is(err, apperr.ErrNotFound))
	var appErr apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Details["suggestions"], "4455")
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newSeeded(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, model.Account{Code: "5141", Name: "Dup", Class: 5, Type: model.AccountTypeAsset})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = svc.Create(ctx, model.Account{Code: "81", Name: "Bad", Class: 8, Type: model.AccountTypeAsset})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Create(ctx, model.Account{Code: "5142", Name: "Bad", Class: 5, Type: "Cash"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Create(ctx, model.Account{Code: "5142", Name: "Orphan", Class: 5, Type: model.AccountTypeAsset, ParentID: 9999})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	created, err := svc.Create(ctx, model.Account{Code: "5143", Name: "Banque populaire", Class: 5, Type: model.AccountTypeAsset})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
}

func TestUpdateRejectsCycle(t *testing.T) {
	svc, _ := newSeeded(t)
	ctx := context.Background()
	chart, err := svc.Chart(ctx)
	require.NoError(t, err)

	parent, _ := chart.ByCode("51")
	child, _ := chart.ByCode("5141")

	parent.ParentID = child.ID
	err = svc.Update(ctx, parent)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	child.Name = "Banque principale"
	require.NoError(t, svc.Update(ctx, child))
	got, err := svc.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Banque principale", got.Name)
}

func TestDeleteGuards(t *testing.T) {
	svc, store := newSeeded(t)
	ctx := context.Background()
	chart, err := svc.Chart(ctx)
	require.NoError(t, err)

	parent, _ := chart.ByCode("51")
	err = svc.Delete(ctx, parent.ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict), "account with children")

	bank, _ := chart.ByCode("5141")
	capital, _ := chart.ByCode("1111")
	require.NoError(t, store.CreateEntry(ctx, model.JournalEntry{
		ID:   "2024-01-001",
		Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Lines: []model.JournalLine{
			{ID: "2024-01-001a", AccountID: bank.ID, Debit: decimal.NewFromInt(100)},
			{ID: "2024-01-001b", AccountID: capital.ID, Credit: decimal.NewFromInt(100)},
		},
	}))
	err = svc.Delete(ctx, bank.ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict), "account in use")

	cash, _ := chart.ByCode("5161")
	require.NoError(t, svc.Delete(ctx, cash.ID))
	_, err = svc.Get(ctx, cash.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	assert.True(t, errors.Is(svc.Delete(ctx, cash.ID), apperr.ErrNotFound))
}

func TestImportExport(t *testing.T) {
	svc := NewService(memory.New(), zap.NewNop())
	ctx := context.Background()

	// Children listed before parents still import.
	n, err := svc.Import(ctx, []Definition{
		{Code: "5141", Name: "Banques", Class: 5, Type: model.AccountTypeAsset, ParentCode: "51"},
		{Code: "51", Name: "Trésorerie - actif", Class: 5, Type: model.AccountTypeAsset},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	defs, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "51", defs[0].Code)
	assert.Equal(t, "51", defs[1].ParentCode)

	_, err = svc.Import(ctx, []Definition{{Code: "6111", Name: "Achats", Class: 6, Type: model.AccountTypeExpense, ParentCode: "61"}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
