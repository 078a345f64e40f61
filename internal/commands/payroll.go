package commands

import (
	"github.com/spf13/cobra"

	"github.com/daftar-dev/daftar/internal/model"
)

func newPayrollCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payroll",
		Short: "Manage the payroll roster used for IR",
	}
	cmd.AddCommand(newPayrollAddCommand(opts), newPayrollListCommand(opts))
	return cmd
}

func newPayrollAddCommand(opts *options) *cobra.Command {
	var gross, cnss, cimr string

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add an employee",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			emp := model.Employee{Name: args[0]}
			var err error
			if emp.GrossSalary, err = parseAmount(gross); err != nil {
				return err
			}
			if emp.CNSS, err = parseAmount(cnss); err != nil {
				return err
			}
			if emp.CIMR, err = parseAmount(cimr); err != nil {
				return err
			}
			emp, err = s.eng.AddEmployee(cmd.Context(), emp)
			if err != nil {
				return err
			}
			s.audit("payroll.add", emp.ID, emp.GrossSalary, emp.Name)
			if s.out.json {
				return s.out.JSON(emp)
			}
			s.out.Printf("Added employee %s (%s), net taxable %s\n", emp.Name, emp.ID, money(emp.NetTaxable()))
			return nil
		}),
	}

	cmd.Flags().StringVar(&gross, "gross", "", "gross salary (required)")
	_ = cmd.MarkFlagRequired("gross")
	cmd.Flags().StringVar(&cnss, "cnss", "0", "CNSS contribution")
	cmd.Flags().StringVar(&cimr, "cimr", "0", "CIMR contribution")
	return cmd
}

func newPayrollListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the payroll roster",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			roster, err := s.eng.Employees(cmd.Context())
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(roster)
			}
			rows := make([][]string, 0, len(roster))
			for _, e := range roster {
				rows = append(rows, []string{e.ID, e.Name, money(e.GrossSalary), money(e.CNSS), money(e.CIMR), money(e.NetTaxable())})
			}
			s.out.Table([]string{"ID", "Name", "Gross", "CNSS", "CIMR", "Net taxable"}, rows)
			return nil
		}),
	}
}
