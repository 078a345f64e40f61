package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/daftar-dev/daftar/internal/accounts"
	"github.com/daftar-dev/daftar/internal/model"
)

func newAccountsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Manage the chart of accounts",
	}
	cmd.AddCommand(
		newAccountsListCommand(opts),
		newAccountsAddCommand(opts),
		newAccountsImportCommand(opts),
		newAccountsExportCommand(opts),
	)
	return cmd
}

func newAccountsListCommand(opts *options) *cobra.Command {
	var class int
	var accountType, search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts ordered by code",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			chart, err := s.eng.Accounts.Chart(cmd.Context())
			if err != nil {
				return err
			}

			var list []model.Account
			switch {
			case search != "":
				list = chart.Suggest(search, 10)
			case accountType != "":
				list = chart.ByType(model.AccountType(accountType))
			default:
				list = chart.All()
			}
			if class != 0 {
				filtered := list[:0:0]
				for _, a := range list {
					if a.Class == class {
						filtered = append(filtered, a)
					}
				}
				list = filtered
			}

			if s.out.json {
				return s.out.JSON(list)
			}
			rows := make([][]string, 0, len(list))
			for _, a := range list {
				parent := ""
				if p, ok := chart.Parent(a.ID); ok {
					parent = p.Code
				}
				rows = append(rows, []string{a.Code, a.Name, strconv.Itoa(a.Class), string(a.Type), parent})
			}
			s.out.Table([]string{"Code", "Name", "Class", "Type", "Parent"}, rows)
			return nil
		}),
	}

	cmd.Flags().IntVar(&class, "class", 0, "only accounts of this class (1-7)")
	cmd.Flags().StringVar(&accountType, "type", "", "only accounts of this type (Asset, Liability, Equity, Revenue, Expense)")
	cmd.Flags().StringVar(&search, "search", "", "closest accounts by code or name")
	return cmd
}

func newAccountsAddCommand(opts *options) *cobra.Command {
	var class int
	var accountType, parent string

	cmd := &cobra.Command{
		Use:   "add CODE NAME",
		Short: "Add an account to the chart",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			ctx := cmd.Context()
			acct := model.Account{
				Code:  args[0],
				Name:  args[1],
				Class: class,
				Type:  model.AccountType(accountType),
			}
			if acct.Class == 0 && len(acct.Code) > 0 {
				acct.Class = int(acct.Code[0] - '0')
			}
			if parent != "" {
				p, err := s.eng.Accounts.Resolve(ctx, parent)
				if err != nil {
					return err
				}
				acct.ParentID = p.ID
			}

			created, err := s.eng.Accounts.Create(ctx, acct)
			if err != nil {
				return err
			}
			s.audit("account.add", created.Code, decimal.Zero, created.Name)
			if s.out.json {
				return s.out.JSON(created)
			}
			s.out.Printf("Added account %s %s (id %d)\n", created.Code, created.Name, created.ID)
			return nil
		}),
	}

	cmd.Flags().IntVar(&class, "class", 0, "account class, defaults to the first digit of the code")
	cmd.Flags().StringVar(&accountType, "type", "", "account type (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().StringVar(&parent, "parent", "", "parent account code")
	return cmd
}

func newAccountsImportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import accounts from a CSV file (code,name,class,type,parent_code)",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			defs, err := accounts.ReadDefinitions(f)
			if err != nil {
				return err
			}
			n, err := s.eng.Accounts.Import(cmd.Context(), defs)
			if err != nil {
				return err
			}
			s.audit("account.import", filepath.Base(args[0]), decimal.Zero, fmt.Sprintf("%d of %d accounts", n, len(defs)))
			s.out.Printf("Imported %d of %d accounts\n", n, len(defs))
			return nil
		}),
	}
}

func newAccountsExportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Export the chart of accounts as CSV, to stdout without FILE",
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			defs, err := s.eng.Accounts.Export(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return accounts.WriteDefinitions(cmd.OutOrStdout(), defs)
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("creating %s: %w", args[0], err)
			}
			defer f.Close()
			if err := accounts.WriteDefinitions(f, defs); err != nil {
				return err
			}
			return f.Close()
		}),
	}
}
