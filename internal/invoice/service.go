package invoice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/accounts"
	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/id"
	"github.com/daftar-dev/daftar/internal/journal"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
)

// Repository persists parties and invoices.
type Repository interface {
	CreateParty(ctx context.Context, p model.Party) error
	GetParty(ctx context.Context, partyID string) (model.Party, error)
	ListParties(ctx context.Context, kind model.PartyKind) ([]model.Party, error)
	UpdateParty(ctx context.Context, p model.Party) error
	DeleteParty(ctx context.Context, partyID string) error
	PartyInUse(ctx context.Context, partyID string) (bool, error)

	CreateInvoice(ctx context.Context, inv model.Invoice) error
	GetInvoice(ctx context.Context, invoiceID string) (model.Invoice, error)
	ListInvoices(ctx context.Context, f model.InvoiceFilter) ([]model.Invoice, error)
	UpdateInvoice(ctx context.Context, inv model.Invoice) error
	DeleteInvoice(ctx context.Context, invoiceID string) error
}

// Journal is the ledger write path invoices are posted through.
type Journal interface {
	Create(ctx context.Context, params journal.CreateParams) (string, error)
	Delete(ctx context.Context, entryID string) error
}

// ChartLoader provides the current chart of accounts.
type ChartLoader interface {
	Chart(ctx context.Context) (*accounts.Chart, error)
}

// PostingAccounts are the account codes invoices are posted to.
type PostingAccounts struct {
	Receivable    string // clients
	Sales         string
	VATCollected  string
	Purchases     string
	VATDeductible string
	Payable       string // suppliers
}

// DefaultPostingAccounts follows the PCM: 3421 / 7111 / 4455 for sales and
// 6111 / 3455 / 4411 for purchases.
var DefaultPostingAccounts = PostingAccounts{
	Receivable:    "3421",
	Sales:         "7111",
	VATCollected:  "4455",
	Purchases:     "6111",
	VATDeductible: "3455",
	Payable:       "4411",
}

// Service manages parties and invoices.
type Service struct {
	repo     Repository
	journal  Journal
	chart    ChartLoader
	accounts PostingAccounts
	log      *zap.Logger
}

// NewService creates an invoice Service.
func NewService(repo Repository, j Journal, chart ChartLoader, accts PostingAccounts, log *zap.Logger) *Service {
	return &Service{repo: repo, journal: j, chart: chart, accounts: accts, log: log}
}

var iceRe = regexp.MustCompile(`^\d{15}$`)

func validateParty(p model.Party) error {
	var errs []error
	if p.Kind != model.PartyKindClient && p.Kind != model.PartyKindSupplier {
		errs = append(errs, fmt.Errorf("unknown party kind %q", p.Kind))
	}
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if p.ICE != "" && !iceRe.MatchString(p.ICE) {
		errs = append(errs, fmt.Errorf("ICE %q must be 15 digits", p.ICE))
	}
	if len(errs) > 0 {
		return apperr.Error{Code: apperr.CodeValidation, Message: "invalid party", Err: errors.Join(errs...)}
	}
	return nil
}

// CreateParty stores a client or supplier and returns it with its id.
func (s *Service) CreateParty(ctx context.Context, p model.Party) (model.Party, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := validateParty(p); err != nil {
		return model.Party{}, err
	}

	if p.ID == "" {
		p.ID = id.New()
	}
	if err := s.repo.CreateParty(ctx, p); err != nil {
		return model.Party{}, fmt.Errorf("storing party %s: %w", p.Name, err)
	}
	s.log.Info("party created", zap.String("id", p.ID), zap.String("kind", string(p.Kind)), zap.String("name", p.Name))
	return s.repo.GetParty(ctx, p.ID)
}

// GetParty returns one client or supplier.
func (s *Service) GetParty(ctx context.Context, partyID string) (model.Party, error) {
	return s.repo.GetParty(ctx, partyID)
}

// UpdateParty replaces the contact details of a party. An empty Kind keeps
// the current one; a party named on invoices cannot change kind.
func (s *Service) UpdateParty(ctx context.Context, p model.Party) (model.Party, error) {
	existing, err := s.repo.GetParty(ctx, p.ID)
	if err != nil {
		return model.Party{}, err
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Kind == "" {
		p.Kind = existing.Kind
	}
	if err := validateParty(p); err != nil {
		return model.Party{}, err
	}
	if p.Kind != existing.Kind {
		used, err := s.repo.PartyInUse(ctx, p.ID)
		if err != nil {
			return model.Party{}, fmt.Errorf("checking invoices of %s: %w", existing.Name, err)
		}
		if used {
			return model.Party{}, apperr.Conflict("%s %s is named on invoices and cannot become a %s", existing.Kind, existing.Name, p.Kind)
		}
	}
	p.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateParty(ctx, p); err != nil {
		return model.Party{}, fmt.Errorf("updating party %s: %w", p.Name, err)
	}
	s.log.Info("party updated", zap.String("id", p.ID), zap.String("name", p.Name))
	return s.repo.GetParty(ctx, p.ID)
}

// DeleteParty removes a party no invoice names.
func (s *Service) DeleteParty(ctx context.Context, partyID string) error {
	p, err := s.repo.GetParty(ctx, partyID)
	if err != nil {
		return err
	}
	used, err := s.repo.PartyInUse(ctx, partyID)
	if err != nil {
		return fmt.Errorf("checking invoices of %s: %w", p.Name, err)
	}
	if used {
		return apperr.Conflict("%s %s is named on invoices", p.Kind, p.Name)
	}
	if err := s.repo.DeleteParty(ctx, partyID); err != nil {
		return fmt.Errorf("deleting party %s: %w", p.Name, err)
	}
	s.log.Info("party deleted", zap.String("id", partyID), zap.String("name", p.Name))
	return nil
}

// Parties lists parties of a kind, or all when kind is empty.
func (s *Service) Parties(ctx context.Context, kind model.PartyKind) ([]model.Party, error) {
	return s.repo.ListParties(ctx, kind)
}

// LineParams describes one invoice line.
type LineParams struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Rate        int
}

// CreateParams holds parameters for a new invoice. An empty Number is
// allocated per type and year.
type CreateParams struct {
	Type    model.InvoiceType
	Number  string
	Date    time.Time
	DueDate time.Time
	PartyID string
	Lines   []LineParams
}

// Create validates the invoice, computes its totals and stores it.
func (s *Service) Create(ctx context.Context, params CreateParams) (model.Invoice, error) {
	if !params.Type.Valid() {
		return model.Invoice{}, apperr.Validation("unknown invoice type %q", params.Type)
	}
	if params.Date.IsZero() {
		return model.Invoice{}, apperr.Validation("invoice needs a date")
	}
	date := period.Day(params.Date)
	var due time.Time
	if !params.DueDate.IsZero() {
		due = period.Day(params.DueDate)
		if due.Before(date) {
			return model.Invoice{}, apperr.Validation("due date %s is before invoice date %s", period.Format(due), period.Format(date))
		}
	}
	if params.PartyID != "" {
		party, err := s.repo.GetParty(ctx, params.PartyID)
		if err != nil {
			return model.Invoice{}, err
		}
		if party.Kind != params.Type.PartyKind() {
			return model.Invoice{}, apperr.Validation("%s invoice cannot name %s %s", params.Type, party.Kind, party.Name)
		}
	}
	lines, err := buildLines(params.Lines)
	if err != nil {
		return model.Invoice{}, err
	}

	number := strings.TrimSpace(params.Number)
	if number == "" {
		number, err = s.nextNumber(ctx, params.Type, date.Year())
		if err != nil {
			return model.Invoice{}, err
		}
	}

	inv := model.Invoice{
		ID:      id.New(),
		Number:  number,
		Type:    params.Type,
		Date:    date,
		DueDate: due,
		PartyID: params.PartyID,
		Lines:   lines,
	}
	Recompute(&inv)

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return model.Invoice{}, fmt.Errorf("storing invoice %s: %w", number, err)
	}
	s.log.Info("invoice created",
		zap.String("number", number),
		zap.String("type", string(inv.Type)),
		zap.String("ttc", inv.TotalTTC.StringFixed(2)))
	return s.repo.GetInvoice(ctx, inv.ID)
}

func buildLines(params []LineParams) ([]model.InvoiceLine, error) {
	if len(params) == 0 {
		return nil, apperr.Validation("invoice has no lines")
	}
	var errs []error
	lines := make([]model.InvoiceLine, 0, len(params))
	for i, p := range params {
		if !p.Quantity.IsPositive() {
			errs = append(errs, fmt.Errorf("line %d: quantity must be positive", i+1))
		}
		if p.UnitPrice.IsNegative() {
			errs = append(errs, fmt.Errorf("line %d: unit price is negative", i+1))
		}
		if !model.ValidVATRate(p.Rate) {
			errs = append(errs, fmt.Errorf("line %d: TVA rate %d%% is not one of 0, 7, 10, 14, 20", i+1, p.Rate))
		}
		lines = append(lines, model.InvoiceLine{
			Description: p.Description,
			Quantity:    p.Quantity,
			UnitPrice:   p.UnitPrice,
			Rate:        p.Rate,
		})
	}
	if len(errs) > 0 {
		return nil, apperr.Error{Code: apperr.CodeValidation, Message: "invalid invoice lines", Err: errors.Join(errs...)}
	}
	return lines, nil
}

// nextNumber allocates "F-YYYY-NNN" for client and "A-YYYY-NNN" for supplier
// invoices, one past the highest number in use that year.
func (s *Service) nextNumber(ctx context.Context, typ model.InvoiceType, year int) (string, error) {
	prefix := fmt.Sprintf("F-%04d-", year)
	if typ == model.InvoiceTypeSupplier {
		prefix = fmt.Sprintf("A-%04d-", year)
	}
	existing, err := s.repo.ListInvoices(ctx, model.InvoiceFilter{Type: typ})
	if err != nil {
		return "", fmt.Errorf("listing invoices: %w", err)
	}
	highest := 0
	for _, inv := range existing {
		rest, ok := strings.CutPrefix(inv.Number, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1), nil
}

// Get returns an invoice with its lines.
func (s *Service) Get(ctx context.Context, invoiceID string) (model.Invoice, error) {
	return s.repo.GetInvoice(ctx, invoiceID)
}

// List returns invoices matching the filter ordered by date and number.
func (s *Service) List(ctx context.Context, f model.InvoiceFilter) ([]model.Invoice, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, apperr.Validation("unknown invoice type %q", f.Type)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, apperr.InvalidPeriod("end %s is before start %s", period.Format(f.To), period.Format(f.From))
	}
	return s.repo.ListInvoices(ctx, f)
}

// DueUnpaid returns unpaid invoices falling due on or after today, soonest
// first, at most limit of them (all when limit <= 0). Invoices without a due
// date are left out.
func (s *Service) DueUnpaid(ctx context.Context, today time.Time, limit int) ([]model.Invoice, error) {
	all, err := s.repo.ListInvoices(ctx, model.InvoiceFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	today = period.Day(today)
	var out []model.Invoice
	for _, inv := range all {
		if inv.Paid || inv.DueDate.IsZero() || inv.DueDate.Before(today) {
			continue
		}
		out = append(out, inv)
	}
	slices.SortStableFunc(out, func(a, b model.Invoice) int { return a.DueDate.Compare(b.DueDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateLines replaces the lines of an unposted invoice and recomputes its totals.
func (s *Service) UpdateLines(ctx context.Context, invoiceID string, params []LineParams) (model.Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return model.Invoice{}, err
	}
	if inv.JournalEntryID != "" {
		return model.Invoice{}, apperr.Conflict("invoice %s is posted as %s", inv.Number, inv.JournalEntryID)
	}
	lines, err := buildLines(params)
	if err != nil {
		return model.Invoice{}, err
	}
	inv.Lines = lines
	Recompute(&inv)
	if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
		return model.Invoice{}, fmt.Errorf("updating invoice %s: %w", inv.Number, err)
	}
	s.log.Info("invoice lines updated", zap.String("number", inv.Number), zap.String("ttc", inv.TotalTTC.StringFixed(2)))
	return inv, nil
}

// MarkPaid records the payment date of an invoice.
func (s *Service) MarkPaid(ctx context.Context, invoiceID string, paidOn time.Time) (model.Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return model.Invoice{}, err
	}
	if inv.Paid {
		return model.Invoice{}, apperr.Conflict("invoice %s was already paid on %s", inv.Number, period.Format(inv.PaymentDate))
	}
	paidOn = period.Day(paidOn)
	if paidOn.Before(inv.Date) {
		return model.Invoice{}, apperr.Validation("payment date %s is before invoice date %s", period.Format(paidOn), period.Format(inv.Date))
	}
	inv.Paid = true
	inv.PaymentDate = paidOn
	if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
		return model.Invoice{}, fmt.Errorf("updating invoice %s: %w", inv.Number, err)
	}
	s.log.Info("invoice paid", zap.String("number", inv.Number), zap.String("on", period.Format(paidOn)))
	return inv, nil
}

// Post records the invoice in the ledger and links the entry to it.
//
//	client:   D receivable TTC / C sales HT / C VAT collected TVA
//	supplier: D purchases HT / D VAT deductible TVA / C payable TTC
//
// Lines with a zero amount are left out.
func (s *Service) Post(ctx context.Context, invoiceID, createdBy string) (string, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return "", err
	}
	if inv.JournalEntryID != "" {
		return "", apperr.Conflict("invoice %s is already posted as %s", inv.Number, inv.JournalEntryID)
	}
	if inv.TotalTTC.IsZero() {
		return "", apperr.Validation("invoice %s has nothing to post", inv.Number)
	}

	chart, err := s.chart.Chart(ctx)
	if err != nil {
		return "", fmt.Errorf("loading chart: %w", err)
	}
	resolve := func(code string) (int, error) {
		a, err := chart.Resolve(code)
		if err != nil {
			return 0, err
		}
		return a.ID, nil
	}

	type leg struct {
		code   string
		debit  bool
		amount decimal.Decimal
	}
	var legs []leg
	desc := "Facture client " + inv.Number
	if inv.Type == model.InvoiceTypeClient {
		legs = []leg{
			{s.accounts.Receivable, true, inv.TotalTTC},
			{s.accounts.Sales, false, inv.TotalHT},
			{s.accounts.VATCollected, false, inv.TotalTVA},
		}
	} else {
		desc = "Facture fournisseur " + inv.Number
		legs = []leg{
			{s.accounts.Purchases, true, inv.TotalHT},
			{s.accounts.VATDeductible, true, inv.TotalTVA},
			{s.accounts.Payable, false, inv.TotalTTC},
		}
	}
	if inv.PartyName != "" {
		desc += " - " + inv.PartyName
	}

	var lines []journal.LineParams
	for _, l := range legs {
		if l.amount.IsZero() {
			continue
		}
		acctID, err := resolve(l.code)
		if err != nil {
			return "", fmt.Errorf("posting account %s: %w", l.code, err)
		}
		lp := journal.LineParams{AccountID: acctID, Description: desc}
		if l.debit {
			lp.Debit = l.amount
		} else {
			lp.Credit = l.amount
		}
		lines = append(lines, lp)
	}

	entryID, err := s.journal.Create(ctx, journal.CreateParams{
		Date:        inv.Date,
		Reference:   inv.Number,
		Description: desc,
		CreatedBy:   createdBy,
		Lines:       lines,
	})
	if err != nil {
		return "", fmt.Errorf("posting invoice %s: %w", inv.Number, err)
	}

	inv.JournalEntryID = entryID
	if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
		if derr := s.journal.Delete(ctx, entryID); derr != nil {
			s.log.Error("orphaned invoice entry", zap.String("entry", entryID), zap.Error(derr))
		}
		return "", fmt.Errorf("linking invoice %s to %s: %w", inv.Number, entryID, err)
	}
	s.log.Info("invoice posted", zap.String("number", inv.Number), zap.String("entry", entryID))
	return entryID, nil
}

// Delete removes an invoice. A posted invoice takes its journal entry with it.
// The invoice is unlinked first so the entry can go; when the entry cannot be
// removed the link is restored and the invoice stays.
func (s *Service) Delete(ctx context.Context, invoiceID string) error {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.JournalEntryID != "" {
		unlinked := inv
		unlinked.JournalEntryID = ""
		if err := s.repo.UpdateInvoice(ctx, unlinked); err != nil {
			return fmt.Errorf("unlinking invoice %s: %w", inv.Number, err)
		}
		if err := s.journal.Delete(ctx, inv.JournalEntryID); err != nil {
			if rerr := s.repo.UpdateInvoice(ctx, inv); rerr != nil {
				s.log.Error("invoice left unlinked", zap.String("number", inv.Number),
					zap.String("entry", inv.JournalEntryID), zap.Error(rerr))
			}
			return fmt.Errorf("deleting entry %s of invoice %s: %w", inv.JournalEntryID, inv.Number, err)
		}
	}
	if err := s.repo.DeleteInvoice(ctx, invoiceID); err != nil {
		return fmt.Errorf("deleting invoice %s: %w", inv.Number, err)
	}
	s.log.Info("invoice deleted", zap.String("number", inv.Number))
	return nil
}
