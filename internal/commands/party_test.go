package commands_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
)

func TestParty_EditAndDeleteGuard(t *testing.T) {
	dir, daftar := books(t)
	cfg := filepath.Join(dir, "daftar.yaml")

	var client, spare model.Party
	decodeJSON(t, daftar("party", "add", "Atlas", "--kind", "client", "--phone", "0522000000", "--json"), &client)
	decodeJSON(t, daftar("party", "add", "Bouregreg", "--kind", "client", "--json"), &spare)

	var edited model.Party
	decodeJSON(t, daftar("party", "edit", client.ID, "--name", "Atlas SARL", "--ice", "001234567000089", "--json"), &edited)
	assert.Equal(t, "Atlas SARL", edited.Name)
	assert.Equal(t, "001234567000089", edited.ICE)
	assert.Equal(t, "0522000000", edited.Phone, "untouched flags keep their value")
	assert.Equal(t, model.PartyKindClient, edited.Kind)

	_, err := runDaftar(t, "party", "edit", client.ID, "--ice", "12", "--config", cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation), err)

	daftar("invoice", "add", "--party", "Atlas SARL", "--date", "2024-03-05", "--line", "Conseil,1,1000,20")

	_, err = runDaftar(t, "party", "delete", client.ID, "--config", cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict), err)

	daftar("party", "delete", spare.ID)
	var parties []model.Party
	decodeJSON(t, daftar("party", "list", "--json"), &parties)
	require.Len(t, parties, 1)
	assert.Equal(t, client.ID, parties[0].ID)
}

func TestInvoice_Due(t *testing.T) {
	_, daftar := books(t)
	today := time.Now()
	day := func(n int) string { return today.AddDate(0, 0, n).Format("2006-01-02") }

	daftar("invoice", "add", "--number", "F-OLD", "--date", day(-40), "--due", day(-10), "--line", "A,1,100,20")
	daftar("invoice", "add", "--number", "F-LATER", "--date", day(-5), "--due", day(20), "--line", "B,1,100,20")
	daftar("invoice", "add", "--number", "F-SOON", "--date", day(-5), "--due", day(2), "--line", "C,1,100,20")

	var due []model.Invoice
	decodeJSON(t, daftar("invoice", "due", "--json"), &due)
	require.Len(t, due, 2)
	assert.Equal(t, "F-SOON", due[0].Number)
	assert.Equal(t, "F-LATER", due[1].Number)

	decodeJSON(t, daftar("invoice", "due", "--limit", "1", "--json"), &due)
	assert.Len(t, due, 1)
}
