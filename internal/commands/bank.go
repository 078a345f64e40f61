package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/importer"
)

func newBankCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Book bank statements",
	}
	cmd.AddCommand(newBankImportCommand(opts))
	return cmd
}

// statementFile is one statement to book; archive is set for inbox files.
type statementFile struct {
	path    string
	archive bool
}

func newBankImportCommand(opts *options) *cobra.Command {
	var format, bankCode, counterCode string
	registry := importer.DefaultRegistry()

	cmd := &cobra.Command{
		Use:   "import [FILE...]",
		Short: "Book statement CSVs, or every CSV under import/ when no file is given",
		Example: `  daftar bank import releve-janvier.csv
  daftar bank import --format simple --bank 5141 --counter 3497`,
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			ctx := cmd.Context()
			if format != importer.Auto && registry.Get(format) == nil {
				return apperr.Validation("unknown statement format %q", format)
			}
			chart, err := s.eng.Accounts.Chart(ctx)
			if err != nil {
				return err
			}
			bank, err := chart.Resolve(bankCode)
			if err != nil {
				return err
			}
			counter, err := chart.Resolve(counterCode)
			if err != nil {
				return err
			}

			inbox := importer.NewInbox(s.dir)
			var files []statementFile
			for _, a := range args {
				files = append(files, statementFile{path: a})
			}
			if len(args) == 0 {
				pending, err := inbox.Pending()
				if err != nil {
					return err
				}
				for _, st := range pending {
					files = append(files, statementFile{path: st.Path, archive: true})
				}
			}
			if len(files) == 0 {
				s.out.Printf("Nothing to import in %s\n", inbox.Dir())
				return nil
			}

			poster := importer.NewPoster(s.eng.Journal, s.log.Named("importer"))
			var total importer.Result
			for _, sf := range files {
				res, err := bookStatement(cmd, s, registry, poster, format, sf.path, bank.ID, counter.ID)
				if err != nil {
					return err
				}
				total.Created = append(total.Created, res.Created...)
				total.Skipped += res.Skipped

				name := filepath.Base(sf.path)
				if sf.archive {
					dst, err := inbox.Archive(name)
					if err != nil {
						return err
					}
					s.log.Debug("statement archived", zap.String("path", dst))
				}
				s.audit("bank.import", name, decimal.Zero, fmt.Sprintf("%d booked, %d skipped", len(res.Created), res.Skipped))
			}

			if s.out.json {
				return s.out.JSON(total)
			}
			s.out.Printf("Booked %d transactions against %s, skipped %d\n", len(total.Created), bank.Code, total.Skipped)
			return nil
		}),
	}

	cmd.Flags().StringVar(&format, "format", importer.Auto,
		fmt.Sprintf("statement format: %s, or %s to detect from the header", strings.Join(registry.Formats(), ", "), importer.Auto))
	cmd.Flags().StringVar(&bankCode, "bank", "5141", "bank account code")
	cmd.Flags().StringVar(&counterCode, "counter", "3497", "counter account code for unmatched transactions")
	return cmd
}

func bookStatement(cmd *cobra.Command, s *session, registry *importer.Registry, poster *importer.Poster,
	format, path string, bankID, counterID int,
) (importer.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return importer.Result{}, apperr.NotFound("statement", path)
		}
		return importer.Result{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	txns, parser, err := registry.Parse(format, f)
	if err != nil {
		return importer.Result{}, apperr.Validation("%s: %v", path, err)
	}
	s.log.Debug("statement parsed",
		zap.String("file", path),
		zap.String("format", parser.Format()),
		zap.Int("transactions", len(txns)))

	res, err := poster.Post(cmd.Context(), txns, bankID, counterID, cliAuthor)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
