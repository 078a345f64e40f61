package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file created by init.
const FileName = "daftar.yaml"

// Config represents the top-level daftar.yaml configuration.
type Config struct {
	Business BusinessConfig `yaml:"business" mapstructure:"business"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Ledger   LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
	Tax      TaxConfig      `yaml:"tax" mapstructure:"tax"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	ICE  string `yaml:"ice" mapstructure:"ice"`
	City string `yaml:"city" mapstructure:"city"`
}

// DatabaseConfig locates the SQLite file. A relative path is relative to the config file.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig selects the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "console" or "json"
}

// LedgerConfig controls journal writes and invoice posting.
type LedgerConfig struct {
	EnforceBalance bool          `yaml:"enforce_balance" mapstructure:"enforce_balance"`
	Accounts       PostingConfig `yaml:"accounts" mapstructure:"accounts"`
}

// PostingConfig names the account codes invoices post to.
type PostingConfig struct {
	Receivable    string `yaml:"receivable" mapstructure:"receivable"`
	Sales         string `yaml:"sales" mapstructure:"sales"`
	VATCollected  string `yaml:"vat_collected" mapstructure:"vat_collected"`
	Purchases     string `yaml:"purchases" mapstructure:"purchases"`
	VATDeductible string `yaml:"vat_deductible" mapstructure:"vat_deductible"`
	Payable       string `yaml:"payable" mapstructure:"payable"`
}

// TaxConfig holds the VAT filing frequency and declaration deadlines.
type TaxConfig struct {
	VATPeriod    string       `yaml:"vat_period" mapstructure:"vat_period"` // "monthly" or "quarterly"
	DeadlineDays DeadlineDays `yaml:"deadline_days" mapstructure:"deadline_days"`
}

// DeadlineDays are the days after a period's end each declaration falls due.
type DeadlineDays struct {
	TVA int `yaml:"tva" mapstructure:"tva"`
	IS  int `yaml:"is" mapstructure:"is"`
	IR  int `yaml:"ir" mapstructure:"ir"`
}

func setDefaults(v *viper.Viper) {
	d := Default("")
	v.SetDefault("business.name", d.Business.Name)
	v.SetDefault("business.ice", d.Business.ICE)
	v.SetDefault("business.city", d.Business.City)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("ledger.enforce_balance", d.Ledger.EnforceBalance)
	v.SetDefault("ledger.accounts.receivable", d.Ledger.Accounts.Receivable)
	v.SetDefault("ledger.accounts.sales", d.Ledger.Accounts.Sales)
	v.SetDefault("ledger.accounts.vat_collected", d.Ledger.Accounts.VATCollected)
	v.SetDefault("ledger.accounts.purchases", d.Ledger.Accounts.Purchases)
	v.SetDefault("ledger.accounts.vat_deductible", d.Ledger.Accounts.VATDeductible)
	v.SetDefault("ledger.accounts.payable", d.Ledger.Accounts.Payable)
	v.SetDefault("tax.vat_period", d.Tax.VATPeriod)
	v.SetDefault("tax.deadline_days.tva", d.Tax.DeadlineDays.TVA)
	v.SetDefault("tax.deadline_days.is", d.Tax.DeadlineDays.IS)
	v.SetDefault("tax.deadline_days.ir", d.Tax.DeadlineDays.IR)
}

// Load reads a daftar.yaml file from disk. Missing keys take their defaults
// and DAFTAR_-prefixed environment variables override the file
// (DAFTAR_DATABASE_PATH, DAFTAR_LEDGER_ENFORCE_BALANCE, ...).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DAFTAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks enumerated settings and deadline offsets.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is empty"))
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format %q is not console or json", c.Logging.Format))
	}
	if c.Tax.VATPeriod != "monthly" && c.Tax.VATPeriod != "quarterly" {
		errs = append(errs, fmt.Errorf("tax.vat_period %q is not monthly or quarterly", c.Tax.VATPeriod))
	}
	dd := c.Tax.DeadlineDays
	if dd.TVA < 0 || dd.IS < 0 || dd.IR < 0 {
		errs = append(errs, errors.New("tax.deadline_days must not be negative"))
	}
	return errors.Join(errs...)
}

// DatabasePath resolves the database path against the directory of the
// config file at configPath.
func (c *Config) DatabasePath(configPath string) string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(filepath.Dir(configPath), c.Database.Path)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new business.
func Default(businessName string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name: businessName,
		},
		Database: DatabaseConfig{
			Path: "daftar.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Ledger: LedgerConfig{
			EnforceBalance: true,
			Accounts: PostingConfig{
				Receivable:    "3421",
				Sales:         "7111",
				VATCollected:  "4455",
				Purchases:     "6111",
				VATDeductible: "3455",
				Payable:       "4411",
			},
		},
		Tax: TaxConfig{
			VATPeriod: "monthly",
			DeadlineDays: DeadlineDays{
				TVA: 20,
				IS:  90,
				IR:  30,
			},
		},
	}
}
