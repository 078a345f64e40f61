package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Atelier Zellige")
	cfg.Business.ICE = "001234567000089"
	cfg.Business.City = "Fès"
	cfg.Tax.VATPeriod = "quarterly"
	cfg.Ledger.Accounts.Sales = "7124"

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("My Company")

	assert.Equal(t, "My Company", cfg.Business.Name)
	assert.Equal(t, "daftar.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.True(t, cfg.Ledger.EnforceBalance)
	assert.Equal(t, "3421", cfg.Ledger.Accounts.Receivable)
	assert.Equal(t, "4411", cfg.Ledger.Accounts.Payable)
	assert.Equal(t, "monthly", cfg.Tax.VATPeriod)
	assert.Equal(t, DeadlineDays{TVA: 20, IS: 90, IR: 30}, cfg.Tax.DeadlineDays)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFillsMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("business:\n  name: Souk Digital\ntax:\n  deadline_days:\n    tva: 25\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Souk Digital", cfg.Business.Name)
	assert.Equal(t, 25, cfg.Tax.DeadlineDays.TVA)
	assert.Equal(t, 90, cfg.Tax.DeadlineDays.IS)
	assert.Equal(t, "daftar.db", cfg.Database.Path)
	assert.True(t, cfg.Ledger.EnforceBalance)
	assert.Equal(t, "7111", cfg.Ledger.Accounts.Sales)
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Test Biz")))

	t.Setenv("DAFTAR_DATABASE_PATH", "/var/lib/daftar/books.db")
	t.Setenv("DAFTAR_LEDGER_ENFORCE_BALANCE", "false")
	t.Setenv("DAFTAR_LOGGING_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/daftar/books.db", cfg.Database.Path)
	assert.False(t, cfg.Ledger.EnforceBalance)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("tax:\n  vat_period: weekly\nlogging:\n  format: xml\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vat_period")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestDatabasePath(t *testing.T) {
	cfg := Default("x")
	assert.Equal(t, filepath.Join("/srv/books", "daftar.db"), cfg.DatabasePath("/srv/books/daftar.yaml"))

	cfg.Database.Path = "/data/other.db"
	assert.Equal(t, "/data/other.db", cfg.DatabasePath("/srv/books/daftar.yaml"))
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default("Test Biz")
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Biz")
	assert.Contains(t, contents, "enforce_balance: true")
	assert.Contains(t, contents, "vat_period: monthly")
	assert.Contains(t, contents, `receivable: "3421"`)
}
