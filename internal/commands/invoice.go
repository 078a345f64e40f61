package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/invoice"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
)

func newPartyCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "party",
		Aliases: []string{"parties"},
		Short:   "Manage clients and suppliers",
	}
	cmd.AddCommand(
		newPartyAddCommand(opts),
		newPartyListCommand(opts),
		newPartyEditCommand(opts),
		newPartyDeleteCommand(opts),
	)
	return cmd
}

func newPartyAddCommand(opts *options) *cobra.Command {
	var p model.Party
	var kind string

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a client or supplier",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			p.Name = args[0]
			p.Kind = model.PartyKind(kind)
			created, err := s.eng.Invoices.CreateParty(cmd.Context(), p)
			if err != nil {
				return err
			}
			s.audit("party.add", created.ID, decimal.Zero, created.Name)
			if s.out.json {
				return s.out.JSON(created)
			}
			s.out.Printf("Added %s %s (%s)\n", created.Kind, created.Name, created.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&kind, "kind", string(model.PartyKindClient), "client or supplier")
	cmd.Flags().StringVar(&p.ICE, "ice", "", "15-digit ICE")
	cmd.Flags().StringVar(&p.Address, "address", "", "postal address")
	cmd.Flags().StringVar(&p.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&p.Email, "email", "", "email address")
	return cmd
}

func newPartyListCommand(opts *options) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients and suppliers",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			parties, err := s.eng.Invoices.Parties(cmd.Context(), model.PartyKind(kind))
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(parties)
			}
			rows := make([][]string, 0, len(parties))
			for _, p := range parties {
				rows = append(rows, []string{p.ID, string(p.Kind), p.Name, p.ICE, p.Email})
			}
			s.out.Table([]string{"ID", "Kind", "Name", "ICE", "Email"}, rows)
			return nil
		}),
	}

	cmd.Flags().StringVar(&kind, "kind", "", "only clients or suppliers")
	return cmd
}

func newPartyEditCommand(opts *options) *cobra.Command {
	var name, kind, ice, address, phone, email string

	cmd := &cobra.Command{
		Use:   "edit PARTY_ID",
		Short: "Change the details of a client or supplier",
		Long:  "Only the flags given are changed. An empty --ice clears the ICE.",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			p, err := s.eng.Invoices.GetParty(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			set := func(flag string, field *string, v string) {
				if cmd.Flags().Changed(flag) {
					*field = v
				}
			}
			set("name", &p.Name, name)
			set("ice", &p.ICE, ice)
			set("address", &p.Address, address)
			set("phone", &p.Phone, phone)
			set("email", &p.Email, email)
			if cmd.Flags().Changed("kind") {
				p.Kind = model.PartyKind(kind)
			}
			updated, err := s.eng.Invoices.UpdateParty(cmd.Context(), p)
			if err != nil {
				return err
			}
			s.audit("party.edit", updated.ID, decimal.Zero, updated.Name)
			if s.out.json {
				return s.out.JSON(updated)
			}
			s.out.Printf("Updated %s %s (%s)\n", updated.Kind, updated.Name, updated.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&kind, "kind", "", "client or supplier")
	cmd.Flags().StringVar(&ice, "ice", "", "15-digit ICE")
	cmd.Flags().StringVar(&address, "address", "", "postal address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	return cmd
}

func newPartyDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete PARTY_ID",
		Short: "Delete a client or supplier no invoice names",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			if err := s.eng.Invoices.DeleteParty(cmd.Context(), args[0]); err != nil {
				return err
			}
			s.audit("party.delete", args[0], decimal.Zero, "")
			s.out.Printf("Deleted party %s\n", args[0])
			return nil
		}),
	}
}

func newInvoiceCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invoice",
		Aliases: []string{"invoices"},
		Short:   "Issue, record and post invoices",
	}
	cmd.AddCommand(
		newInvoiceAddCommand(opts),
		newInvoiceListCommand(opts),
		newInvoiceShowCommand(opts),
		newInvoicePostCommand(opts),
		newInvoicePayCommand(opts),
		newInvoiceDueCommand(opts),
		newInvoiceDeleteCommand(opts),
	)
	return cmd
}

func newInvoiceAddCommand(opts *options) *cobra.Command {
	var typ, number, dateStr, due, party string
	var lines []string
	var post bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a client or supplier invoice",
		Example: `  daftar invoice add --type client --party "Atlas SARL" --date 2024-02-01 \
    --line "Conseil,10,1000,20" --line "Formation,1,2500,10" --post`,
		Args: cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			ctx := cmd.Context()
			params := invoice.CreateParams{Type: model.InvoiceType(typ), Number: number}

			var err error
			if params.Date, err = parseDateOr(dateStr, time.Now()); err != nil {
				return err
			}
			if due != "" {
				if params.DueDate, err = parseDate(due); err != nil {
					return err
				}
			}
			if party != "" {
				p, err := findParty(cmd, s, params.Type.PartyKind(), party)
				if err != nil {
					return err
				}
				params.PartyID = p.ID
			}
			for _, l := range lines {
				lp, err := parseInvoiceLine(l)
				if err != nil {
					return err
				}
				params.Lines = append(params.Lines, lp)
			}

			inv, err := s.eng.Invoices.Create(ctx, params)
			if err != nil {
				return err
			}
			if post {
				if _, err := s.eng.Invoices.Post(ctx, inv.ID, cliAuthor); err != nil {
					return fmt.Errorf("invoice %s recorded but not posted: %w", inv.Number, err)
				}
				if inv, err = s.eng.Invoices.Get(ctx, inv.ID); err != nil {
					return err
				}
			}
			s.audit("invoice.add", inv.Number, inv.TotalTTC, inv.JournalEntryID)
			if s.out.json {
				return s.out.JSON(inv)
			}
			s.out.Printf("Recorded invoice %s: HT %s, TVA %s, TTC %s\n", inv.Number, money(inv.TotalHT), money(inv.TotalTVA), money(inv.TotalTTC))
			if inv.JournalEntryID != "" {
				s.out.Printf("Posted as entry %s\n", inv.JournalEntryID)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&typ, "type", string(model.InvoiceTypeClient), "client or supplier")
	cmd.Flags().StringVar(&number, "number", "", "invoice number, allocated when empty")
	cmd.Flags().StringVar(&dateStr, "date", "", "invoice date, defaults to today")
	cmd.Flags().StringVar(&due, "due", "", "due date")
	cmd.Flags().StringVar(&party, "party", "", "counterparty id or name")
	cmd.Flags().StringArrayVar(&lines, "line", nil, `line "description,quantity,unit price,rate" (repeatable)`)
	cmd.Flags().BoolVar(&post, "post", false, "post to the journal once recorded")
	return cmd
}

// findParty matches ref against party ids first, then names.
func findParty(cmd *cobra.Command, s *session, kind model.PartyKind, ref string) (model.Party, error) {
	parties, err := s.eng.Invoices.Parties(cmd.Context(), kind)
	if err != nil {
		return model.Party{}, err
	}
	for _, p := range parties {
		if p.ID == ref {
			return p, nil
		}
	}
	for _, p := range parties {
		if p.Name == ref {
			return p, nil
		}
	}
	return model.Party{}, apperr.NotFound(string(kind), ref)
}

func newInvoiceListCommand(opts *options) *cobra.Command {
	var typ, from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices in date order",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			ef, err := entryFilter(from, to)
			if err != nil {
				return err
			}
			f := model.InvoiceFilter{Type: model.InvoiceType(typ), From: ef.From, To: ef.To}
			invoices, err := s.eng.Invoices.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(invoices)
			}
			rows := make([][]string, 0, len(invoices))
			for _, inv := range invoices {
				rows = append(rows, []string{
					inv.Number, string(inv.Type), period.Format(inv.Date), inv.PartyName,
					money(inv.TotalHT), money(inv.TotalTVA), money(inv.TotalTTC),
					inv.JournalEntryID, strconv.FormatBool(inv.Paid),
				})
			}
			s.out.Table([]string{"Number", "Type", "Date", "Party", "HT", "TVA", "TTC", "Entry", "Paid"}, rows)
			return nil
		}),
	}

	cmd.Flags().StringVar(&typ, "type", "", "only client or supplier invoices")
	cmd.Flags().StringVar(&from, "from", "", "first date included")
	cmd.Flags().StringVar(&to, "to", "", "last date included")
	return cmd
}

func newInvoiceShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show INVOICE_ID",
		Short: "Show an invoice with its lines",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			inv, err := s.eng.Invoices.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(inv)
			}
			s.out.Title(fmt.Sprintf("%s  %s  %s  %s", inv.Number, inv.Type, period.Format(inv.Date), inv.PartyName))
			rows := make([][]string, 0, len(inv.Lines))
			for _, l := range inv.Lines {
				rows = append(rows, []string{l.Description, l.Quantity.String(), money(l.UnitPrice), strconv.Itoa(l.Rate) + "%", money(l.TotalHT), money(l.TotalTVA), money(l.TotalTTC)})
			}
			s.out.Table([]string{"Description", "Qty", "Unit price", "Rate", "HT", "TVA", "TTC"}, rows)
			s.out.Total("Total TTC", inv.TotalTTC)
			return nil
		}),
	}
}

func newInvoicePostCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "post INVOICE_ID",
		Short: "Post an invoice to the journal",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			entryID, err := s.eng.Invoices.Post(cmd.Context(), args[0], cliAuthor)
			if err != nil {
				return err
			}
			s.audit("invoice.post", args[0], decimal.Zero, entryID)
			s.out.Printf("Posted invoice %s as entry %s\n", args[0], entryID)
			return nil
		}),
	}
}

func newInvoicePayCommand(opts *options) *cobra.Command {
	var on string

	cmd := &cobra.Command{
		Use:   "pay INVOICE_ID",
		Short: "Mark an invoice paid",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			d, err := parseDateOr(on, time.Now())
			if err != nil {
				return err
			}
			inv, err := s.eng.Invoices.MarkPaid(cmd.Context(), args[0], d)
			if err != nil {
				return err
			}
			s.audit("invoice.pay", inv.Number, inv.TotalTTC, period.Format(inv.PaymentDate))
			s.out.Printf("Invoice %s paid on %s\n", inv.Number, period.Format(inv.PaymentDate))
			return nil
		}),
	}

	cmd.Flags().StringVar(&on, "on", "", "payment date, defaults to today")
	return cmd
}

func newInvoiceDueCommand(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List unpaid invoices falling due from today, soonest first",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			invoices, err := s.eng.Invoices.DueUnpaid(cmd.Context(), time.Now(), limit)
			if err != nil {
				return err
			}
			if s.out.json {
				return s.out.JSON(invoices)
			}
			rows := make([][]string, 0, len(invoices))
			for _, inv := range invoices {
				rows = append(rows, []string{inv.Number, string(inv.Type), period.Format(inv.DueDate), inv.PartyName, money(inv.TotalTTC)})
			}
			s.out.Table([]string{"Number", "Type", "Due", "Party", "TTC"}, rows)
			return nil
		}),
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "at most this many invoices, 0 for all")
	return cmd
}

func newInvoiceDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete INVOICE_ID",
		Short: "Delete an invoice and its journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, args []string, s *session) error {
			if err := s.eng.Invoices.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			s.audit("invoice.delete", args[0], decimal.Zero, "")
			s.out.Printf("Deleted invoice %s\n", args[0])
			return nil
		}),
	}
}
