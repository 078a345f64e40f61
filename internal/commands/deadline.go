package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/calendar"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
)

func newDeadlineCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deadline",
		Aliases: []string{"deadlines"},
		Short:   "Track tax, invoice and CNSS deadlines",
	}
	cmd.AddCommand(
		newDeadlineAddCommand(opts),
		newDeadlineListCommand(opts),
		newDeadlineEditCommand(opts),
		newDeadlineCalendarCommand(opts),
		newDeadlineUpcomingCommand(opts),
		newDeadlineCompleteCommand(opts),
		newDeadlineDeleteCommand(opts),
	)
	return cmd
}

func deadlineTypeNames() string {
	names := make([]string, len(model.DeadlineTypes))
	for i, t := range model.DeadlineTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func deadlineStatus(d model.Deadline, today time.Time) string {
	switch {
	case d.Completed:
		return "done " + period.Format(d.CompletedDate)
	case d.DueDate.Before(today):
		return "overdue"
	}
	return "open"
}

func newDeadlineAddCommand(opts *options) *cobra.Command {
	var due, typ, description string

	cmd := &cobra.Command{
		Use:     "add TITLE",
		Short:   "Add a deadline",
		Example: `  daftar deadline add "Déclaration TVA mars" --due 2024-04-20 --type Tax`,
		Args:    cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			d, err := parseDate(due)
			if err != nil {
				return err
			}
			created, err := s.eng.Calendar.Create(cmd.Context(), calendar.Params{
				Title:       args[0],
				Description: description,
				DueDate:     d,
				Type:        model.DeadlineType(typ),
			})
			if err != nil {
				return err
			}
			s.audit("deadline.add", created.ID, decimal.Zero, created.Title)
			if s.out.json {
				return s.out.JSON(created)
			}
			s.out.Printf("Added deadline %q due %s (%s)\n", created.Title, period.Format(created.DueDate), created.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&due, "due", "", "due date (required)")
	_ = cmd.MarkFlagRequired("due")
	cmd.Flags().StringVar(&typ, "type", string(model.DeadlineOther), "one of "+deadlineTypeNames())
	cmd.Flags().StringVar(&description, "description", "", "free text")
	return cmd
}

func newDeadlineListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List deadlines by due date",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			deadlines, err := s.eng.Calendar.List(cmd.Context())
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(deadlines)
			}
			today := period.Day(time.Now())
			rows := make([][]string, 0, len(deadlines))
			for _, d := range deadlines {
				rows = append(rows, []string{d.ID, period.Format(d.DueDate), string(d.Type), d.Title, deadlineStatus(d, today)})
			}
			s.out.Table([]string{"ID", "Due", "Type", "Title", "Status"}, rows)
			return nil
		}),
	}
}

func newDeadlineEditCommand(opts *options) *cobra.Command {
	var title, due, typ, description string

	cmd := &cobra.Command{
		Use:   "edit DEADLINE_ID",
		Short: "Change a deadline",
		Long:  "Only the flags given are changed.",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			d, err := s.eng.Calendar.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			params := calendar.Params{Title: d.Title, Description: d.Description, DueDate: d.DueDate, Type: d.Type}
			flags := cmd.Flags()
			if flags.Changed("title") {
				params.Title = title
			}
			if flags.Changed("description") {
				params.Description = description
			}
			if flags.Changed("type") {
				params.Type = model.DeadlineType(typ)
			}
			if flags.Changed("due") {
				if params.DueDate, err = parseDate(due); err != nil {
					return err
				}
			}
			updated, err := s.eng.Calendar.Update(cmd.Context(), d.ID, params)
			if err != nil {
				return err
			}
			s.audit("deadline.edit", updated.ID, decimal.Zero, updated.Title)
			if s.out.json {
				return s.out.JSON(updated)
			}
			s.out.Printf("Updated deadline %q due %s\n", updated.Title, period.Format(updated.DueDate))
			return nil
		}),
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&due, "due", "", "new due date")
	cmd.Flags().StringVar(&typ, "type", "", "one of "+deadlineTypeNames())
	cmd.Flags().StringVar(&description, "description", "", "free text")
	return cmd
}

// parseMonth reads "2024-04".
func parseMonth(s string) (int, int, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, apperr.InvalidPeriod("expected YYYY-MM, got %q", s)
	}
	return t.Year(), int(t.Month()), nil
}

func newDeadlineCalendarCommand(opts *options) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show a month of deadlines grouped by day",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			now := time.Now()
			year, m := now.Year(), int(now.Month())
			if month != "" {
				var err error
				if year, m, err = parseMonth(month); err != nil {
					return err
				}
			}
			page, err := s.eng.Calendar.Month(cmd.Context(), year, m)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(page)
			}
			s.out.Title(fmt.Sprintf("Échéances %04d-%02d", page.Year, page.Month))
			today := period.Day(now)
			var rows [][]string
			for _, day := range page.Days {
				for _, d := range day.Deadlines {
					rows = append(rows, []string{strconv.Itoa(day.Day), string(d.Type), d.Title, deadlineStatus(d, today)})
				}
			}
			s.out.Table([]string{"Day", "Type", "Title", "Status"}, rows)
			return nil
		}),
	}

	cmd.Flags().StringVar(&month, "month", "", "YYYY-MM, defaults to the current month")
	return cmd
}

func newDeadlineUpcomingCommand(opts *options) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List open deadlines falling due soon",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			upcoming, err := s.eng.Calendar.Upcoming(cmd.Context(), time.Now(), days)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(upcoming)
			}
			rows := make([][]string, 0, len(upcoming))
			for _, u := range upcoming {
				rows = append(rows, []string{u.ID, period.Format(u.DueDate), strconv.Itoa(u.DaysLeft), string(u.Type), u.Title})
			}
			s.out.Table([]string{"ID", "Due", "Days left", "Type", "Title"}, rows)
			for _, u := range upcoming {
				if u.DaysLeft == 0 {
					s.out.Alert(fmt.Sprintf("%s is due today", u.Title))
				}
			}
			return nil
		}),
	}

	cmd.Flags().IntVar(&days, "days", calendar.UpcomingDays, "look-ahead in days")
	return cmd
}

func newDeadlineCompleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "complete DEADLINE_ID",
		Short: "Mark a deadline done today",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			d, err := s.eng.Calendar.Complete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			s.audit("deadline.complete", d.ID, decimal.Zero, d.Title)
			s.out.Printf("Deadline %q completed on %s\n", d.Title, period.Format(d.CompletedDate))
			return nil
		}),
	}
}

func newDeadlineDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete DEADLINE_ID",
		Short: "Delete a deadline",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			if err := s.eng.Calendar.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			s.audit("deadline.delete", args[0], decimal.Zero, "")
			s.out.Printf("Deleted deadline %s\n", args[0])
			return nil
		}),
	}
}
