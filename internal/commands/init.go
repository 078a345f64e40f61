package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/config"
	"github.com/daftar-dev/daftar/internal/engine"
	"github.com/daftar-dev/daftar/internal/logging"
)

func newInitCommand() *cobra.Command {
	var name, ice, city string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize books with the Moroccan chart of accounts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			cfg := config.Default(name)
			cfg.Business.ICE = ice
			cfg.Business.City = city
			return runInit(cmd, absDir, cfg)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&ice, "ice", "", "Identifiant Commun de l'Entreprise")
	cmd.Flags().StringVar(&city, "city", "", "city of the registered office")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, cfg *config.Config) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return apperr.Conflict("%s already exists", cfgPath)
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	for _, sub := range []string{"import", "logs"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", sub, err)
		}
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	eng, err := engine.Open(cfg, cfgPath, log)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer eng.Close()

	n, err := eng.Accounts.Seed(cmd.Context())
	if err != nil {
		return fmt.Errorf("seeding chart of accounts: %w", err)
	}
	log.Info("books initialized", zap.String("dir", dir), zap.Int("accounts", n))

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized books for %s at %s (%d accounts)\n", cfg.Business.Name, dir, n)
	return nil
}
