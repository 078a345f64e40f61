package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/auditlog"
	"github.com/daftar-dev/daftar/internal/buildinfo"
	"github.com/daftar-dev/daftar/internal/config"
	"github.com/daftar-dev/daftar/internal/engine"
	"github.com/daftar-dev/daftar/internal/logging"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	json       bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:     "daftar",
		Short:   "Moroccan double-entry bookkeeping, reports and taxes",
		Version: buildinfo.Summary(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.FileName, "path to daftar.yaml")
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print records as JSON")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountsCommand(opts),
		newJournalCommand(opts),
		newPartyCommand(opts),
		newInvoiceCommand(opts),
		newReportCommand(opts),
		newTaxCommand(opts),
		newPayrollCommand(opts),
		newDeclarationCommand(opts),
		newDeadlineCommand(opts),
		newBankCommand(opts),
		newAuditCommand(opts),
	)

	return rootCmd
}

// session is an opened set of books for one command invocation.
type session struct {
	dir      string
	cfg      *config.Config
	eng      *engine.Engine
	log      *zap.Logger
	out      *printer
	auditLog *auditlog.Log
}

func openSession(cmd *cobra.Command, opts *options) (*session, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no %s at %s, run `daftar init` first", config.FileName, opts.configPath)
		}
		return nil, err
	}
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	eng, err := engine.Open(cfg, opts.configPath, log)
	if err != nil {
		return nil, fmt.Errorf("opening books: %w", err)
	}
	dir := filepath.Dir(opts.configPath)
	return &session{
		dir:      dir,
		cfg:      cfg,
		eng:      eng,
		log:      log,
		out:      newPrinter(cmd, opts.json),
		auditLog: auditlog.Open(dir),
	}, nil
}

func (s *session) Close() {
	if err := s.eng.Close(); err != nil {
		s.log.Warn("closing database", zap.Error(err))
	}
	_ = s.log.Sync()
}

// audit records a change in the books' audit log. A failed write is logged,
// the change itself already succeeded.
func (s *session) audit(action, subject string, amount decimal.Decimal, details string) {
	e := auditlog.Entry{
		Timestamp: time.Now().UTC(),
		Actor:     cliAuthor,
		Action:    action,
		Subject:   subject,
		Details:   details,
	}
	if !amount.IsZero() {
		e.Amount = decimal.NewNullDecimal(amount)
	}
	if err := s.auditLog.Append(e); err != nil {
		s.log.Warn("writing audit log", zap.String("action", action), zap.Error(err))
	}
}

// withSession opens the books around fn.
func withSession(opts *options, fn func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, opts)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, args, s)
	}
}
