// Package engine wires the ledger, report, invoice, tax and calendar services
// over one store and exposes the reporting and tax operations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/accounts"
	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/calendar"
	"github.com/daftar-dev/daftar/internal/config"
	"github.com/daftar-dev/daftar/internal/id"
	"github.com/daftar-dev/daftar/internal/invoice"
	"github.com/daftar-dev/daftar/internal/journal"
	"github.com/daftar-dev/daftar/internal/ledger"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/report"
	"github.com/daftar-dev/daftar/internal/store/sqlite"
	"github.com/daftar-dev/daftar/internal/tax"
)

// Store is every repository the services need. Both the SQLite and the
// in-memory stores satisfy it.
type Store interface {
	accounts.Repository
	journal.Repository
	ledger.Source
	invoice.Repository
	tax.PayrollSource
	tax.DeclarationRepository
	calendar.Repository
	CreateEmployee(ctx context.Context, e model.Employee) error
	Close() error
}

// Options tune the services.
type Options struct {
	EnforceBalance bool
	Posting        invoice.PostingAccounts
	Deadlines      tax.DeadlineOffsets
}

// OptionsFrom maps the ledger and tax sections of a configuration.
func OptionsFrom(cfg *config.Config) Options {
	a := cfg.Ledger.Accounts
	return Options{
		EnforceBalance: cfg.Ledger.EnforceBalance,
		Posting: invoice.PostingAccounts{
			Receivable:    a.Receivable,
			Sales:         a.Sales,
			VATCollected:  a.VATCollected,
			Purchases:     a.Purchases,
			VATDeductible: a.VATDeductible,
			Payable:       a.Payable,
		},
		Deadlines: tax.DeadlineOffsets{
			TVA: cfg.Tax.DeadlineDays.TVA,
			IS:  cfg.Tax.DeadlineDays.IS,
			IR:  cfg.Tax.DeadlineDays.IR,
		},
	}
}

// Engine bundles the services. Reports and tax figures are recomputed from
// the store on every call.
type Engine struct {
	store Store
	log   *zap.Logger

	Accounts     *accounts.Service
	Journal      *journal.Service
	Ledger       *ledger.Aggregator
	Reports      *report.Generator
	Invoices     *invoice.Service
	Tax          *tax.Calculator
	Declarations *tax.DeclarationService
	Calendar     *calendar.Service
}

// New builds an Engine over store.
func New(store Store, opts Options, log *zap.Logger) *Engine {
	acctSvc := accounts.NewService(store, log.Named("accounts"))
	journalSvc := journal.NewService(store, acctSvc, log.Named("journal"), opts.EnforceBalance)
	agg := ledger.NewAggregator(store, log.Named("ledger"))
	reports := report.NewGenerator(acctSvc, agg, log.Named("report"))
	calc := tax.NewCalculator(store, store, reports, log.Named("tax"))

	return &Engine{
		store:        store,
		log:          log,
		Accounts:     acctSvc,
		Journal:      journalSvc,
		Ledger:       agg,
		Reports:      reports,
		Invoices:     invoice.NewService(store, journalSvc, acctSvc, opts.Posting, log.Named("invoice")),
		Tax:          calc,
		Declarations: tax.NewDeclarationService(store, calc, opts.Deadlines, log.Named("declarations")),
		Calendar:     calendar.NewService(store, log.Named("calendar")),
	}
}

// Open opens the SQLite database named by cfg, resolved against the
// directory of the config file at configPath.
func Open(cfg *config.Config, configPath string, log *zap.Logger) (*Engine, error) {
	path := cfg.DatabasePath(configPath)
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	log.Debug("database opened", zap.String("path", path))
	return New(store, OptionsFrom(cfg), log), nil
}

// Close releases the store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// ComputeAccountBalance returns an account's balance under its type's sign convention.
func (e *Engine) ComputeAccountBalance(ctx context.Context, accountID int, f ledger.DateFilter) (decimal.Decimal, error) {
	acct, err := e.Accounts.Get(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return e.Ledger.AccountBalance(ctx, acct.ID, f, acct.Type)
}

// GenerateBalanceSheet reports assets, liabilities and equity as of a date.
func (e *Engine) GenerateBalanceSheet(ctx context.Context, asOf time.Time) (report.BalanceSheet, error) {
	return e.Reports.BalanceSheet(ctx, asOf)
}

// GenerateIncomeStatement reports revenue and expenses over [start, end].
func (e *Engine) GenerateIncomeStatement(ctx context.Context, start, end time.Time) (report.IncomeStatement, error) {
	return e.Reports.IncomeStatement(ctx, start, end)
}

// GenerateTrialBalance lists debit and credit columns of every account as of a date.
func (e *Engine) GenerateTrialBalance(ctx context.Context, asOf time.Time) (report.TrialBalance, error) {
	return e.Reports.TrialBalance(ctx, asOf)
}

// CalculateVAT computes VAT due over a month, a quarter or the current month.
func (e *Engine) CalculateVAT(ctx context.Context, req tax.VATRequest) (tax.VATReport, error) {
	return e.Tax.VAT(ctx, req)
}

// CalculateIS computes corporate tax for a calendar year.
func (e *Engine) CalculateIS(ctx context.Context, year int) (tax.ISReport, error) {
	return e.Tax.IS(ctx, year)
}

// CalculateIR computes income tax for a month, or for the year when month is zero.
func (e *Engine) CalculateIR(ctx context.Context, year, month int) (tax.IRReport, error) {
	return e.Tax.IR(ctx, year, month)
}

// AddEmployee records a payroll roster member.
func (e *Engine) AddEmployee(ctx context.Context, emp model.Employee) (model.Employee, error) {
	emp.Name = strings.TrimSpace(emp.Name)
	var errs []error
	if emp.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !emp.GrossSalary.IsPositive() {
		errs = append(errs, errors.New("gross salary must be positive"))
	}
	if emp.CNSS.IsNegative() || emp.CIMR.IsNegative() {
		errs = append(errs, errors.New("contributions must not be negative"))
	}
	if len(errs) > 0 {
		return model.Employee{}, apperr.Error{Code: apperr.CodeValidation, Message: "invalid employee", Err: errors.Join(errs...)}
	}
	if emp.ID == "" {
		emp.ID = id.New()
	}
	if err := e.store.CreateEmployee(ctx, emp); err != nil {
		return model.Employee{}, fmt.Errorf("storing employee %s: %w", emp.Name, err)
	}
	e.log.Info("employee added", zap.String("id", emp.ID), zap.String("name", emp.Name))
	return emp, nil
}

// Employees returns the recorded payroll roster.
func (e *Engine) Employees(ctx context.Context) ([]model.Employee, error) {
	return e.store.ListEmployees(ctx)
}
