// Package memory is an in-process implementation of every repository the
// ledger, invoice and tax services read and write. It is the default test double.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/id"
	"github.com/daftar-dev/daftar/internal/model"
)

// Store keeps all records in maps guarded by one lock.
type Store struct {
	mu            sync.RWMutex
	accounts      map[int]model.Account
	nextAccountID int
	entries       map[string]model.JournalEntry
	parties       map[string]model.Party
	invoices      map[string]model.Invoice
	declarations  map[string]model.TaxDeclaration
	employees     map[string]model.Employee
	deadlines     map[string]model.Deadline

	// Now stamps CreatedAt on records that arrive without one.
	Now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts:      make(map[int]model.Account),
		nextAccountID: 1,
		entries:       make(map[string]model.JournalEntry),
		parties:       make(map[string]model.Party),
		invoices:      make(map[string]model.Invoice),
		declarations:  make(map[string]model.TaxDeclaration),
		employees:     make(map[string]model.Employee),
		deadlines:     make(map[string]model.Deadline),
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// Close is a no-op that lets Store stand in for the SQLite store.
func (s *Store) Close() error { return nil }

// --- accounts ---

func (s *Store) ListAccounts(_ context.Context) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, accountID int) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return model.Account{}, apperr.NotFound("account", accountID)
	}
	return a, nil
}

func (s *Store) CreateAccount(_ context.Context, a model.Account) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Code == a.Code {
			return model.Account{}, apperr.Conflict("account code %s already exists", a.Code)
		}
	}
	a.ID = s.nextAccountID
	s.nextAccountID++
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) UpdateAccount(_ context.Context, a model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return apperr.NotFound("account", a.ID)
	}
	for _, existing := range s.accounts {
		if existing.Code == a.Code && existing.ID != a.ID {
			return apperr.Conflict("account code %s already exists", a.Code)
		}
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, accountID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return apperr.NotFound("account", accountID)
	}
	delete(s.accounts, accountID)
	return nil
}

func (s *Store) AccountInUse(_ context.Context, accountID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		for _, l := range e.Lines {
			if l.AccountID == accountID {
				return true, nil
			}
		}
	}
	return false, nil
}

// --- journal ---

// NextEntrySeq returns the next available sequence number for a month.
func (s *Store) NextEntrySeq(_ context.Context, year, month int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	maxSeq := 0
	for entryID := range s.entries {
		y, m, seq, err := id.ParseEntryID(entryID)
		if err != nil || y != year || m != month {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1, nil
}

func (s *Store) CreateEntry(_ context.Context, e model.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[e.ID]; exists {
		return apperr.Conflict("journal entry %s already exists", e.ID)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.Now()
	}
	s.entries[e.ID] = cloneEntry(e)
	return nil
}

func (s *Store) GetEntry(_ context.Context, entryID string) (model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryID]
	if !ok {
		return model.JournalEntry{}, apperr.NotFound("journal entry", entryID)
	}
	return cloneEntry(e), nil
}

// ListEntries returns entries ordered by date then id.
func (s *Store) ListEntries(_ context.Context, f model.EntryFilter) ([]model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.JournalEntry
	for _, e := range s.entries {
		if f.Includes(e.Date) {
			out = append(out, cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateEntry replaces an entry's header and lines.
func (s *Store) UpdateEntry(_ context.Context, e model.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.entries[e.ID]
	if !ok {
		return apperr.NotFound("journal entry", e.ID)
	}
	e.CreatedAt = existing.CreatedAt
	s.entries[e.ID] = cloneEntry(e)
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entryID]; !ok {
		return apperr.NotFound("journal entry", entryID)
	}
	delete(s.entries, entryID)
	return nil
}

// EntryLinked reports whether an invoice references the entry.
func (s *Store) EntryLinked(_ context.Context, entryID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.invoices {
		if inv.JournalEntryID == entryID {
			return true, nil
		}
	}
	return false, nil
}

// ListPostings flattens matching lines, ordered by date, entry id and line position.
func (s *Store) ListPostings(_ context.Context, f model.PostingFilter) ([]model.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []model.JournalEntry
	for _, e := range s.entries {
		if f.Includes(e.Date) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].ID < entries[j].ID
	})

	var out []model.Posting
	for _, e := range entries {
		for _, l := range e.Lines {
			if len(f.AccountIDs) > 0 && !slices.Contains(f.AccountIDs, l.AccountID) {
				continue
			}
			out = append(out, model.Posting{
				EntryID:          e.ID,
				LineID:           l.ID,
				Date:             e.Date,
				AccountID:        l.AccountID,
				Debit:            l.Debit,
				Credit:           l.Credit,
				Description:      l.Description,
				Reference:        e.Reference,
				EntryDescription: e.Description,
			})
		}
	}
	return out, nil
}

// --- parties ---

func (s *Store) CreateParty(_ context.Context, p model.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.parties[p.ID]; exists {
		return apperr.Conflict("party %s already exists", p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.Now()
	}
	s.parties[p.ID] = p
	return nil
}

func (s *Store) GetParty(_ context.Context, partyID string) (model.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parties[partyID]
	if !ok {
		return model.Party{}, apperr.NotFound("party", partyID)
	}
	return p, nil
}

// ListParties returns parties of a kind (all kinds when empty) ordered by name.
func (s *Store) ListParties(_ context.Context, kind model.PartyKind) ([]model.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Party
	for _, p := range s.parties {
		if kind == "" || p.Kind == kind {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (s *Store) UpdateParty(_ context.Context, p model.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.parties[p.ID]
	if !ok {
		return apperr.NotFound("party", p.ID)
	}
	p.CreatedAt = existing.CreatedAt
	s.parties[p.ID] = p
	return nil
}

func (s *Store) DeleteParty(_ context.Context, partyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parties[partyID]; !ok {
		return apperr.NotFound("party", partyID)
	}
	delete(s.parties, partyID)
	return nil
}

// PartyInUse reports whether an invoice names the party.
func (s *Store) PartyInUse(_ context.Context, partyID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.invoices {
		if inv.PartyID == partyID {
			return true, nil
		}
	}
	return false, nil
}

// --- invoices ---

func (s *Store) CreateInvoice(_ context.Context, inv model.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.invoices[inv.ID]; exists {
		return apperr.Conflict("invoice %s already exists", inv.ID)
	}
	for _, other := range s.invoices {
		if other.Number == inv.Number {
			return apperr.Conflict("invoice number %s already exists", inv.Number)
		}
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = s.Now()
	}
	s.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (s *Store) GetInvoice(_ context.Context, invoiceID string) (model.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return model.Invoice{}, apperr.NotFound("invoice", invoiceID)
	}
	return s.withPartyName(cloneInvoice(inv)), nil
}

// ListInvoices returns matching invoices ordered by date then number.
func (s *Store) ListInvoices(_ context.Context, f model.InvoiceFilter) ([]model.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Invoice
	for _, inv := range s.invoices {
		if f.Matches(inv) {
			out = append(out, s.withPartyName(cloneInvoice(inv)))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (s *Store) UpdateInvoice(_ context.Context, inv model.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.invoices[inv.ID]
	if !ok {
		return apperr.NotFound("invoice", inv.ID)
	}
	for _, other := range s.invoices {
		if other.Number == inv.Number && other.ID != inv.ID {
			return apperr.Conflict("invoice number %s already exists", inv.Number)
		}
	}
	inv.CreatedAt = existing.CreatedAt
	s.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (s *Store) DeleteInvoice(_ context.Context, invoiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[invoiceID]; !ok {
		return apperr.NotFound("invoice", invoiceID)
	}
	delete(s.invoices, invoiceID)
	return nil
}

// --- declarations ---

func (s *Store) CreateDeclaration(_ context.Context, d model.TaxDeclaration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.declarations[d.ID]; exists {
		return apperr.Conflict("declaration %s already exists", d.ID)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.Now()
	}
	s.declarations[d.ID] = d
	return nil
}

func (s *Store) GetDeclaration(_ context.Context, declID string) (model.TaxDeclaration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.declarations[declID]
	if !ok {
		return model.TaxDeclaration{}, apperr.NotFound("declaration", declID)
	}
	return d, nil
}

// ListDeclarations returns declarations ordered by deadline, latest first.
func (s *Store) ListDeclarations(_ context.Context) ([]model.TaxDeclaration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TaxDeclaration, 0, len(s.declarations))
	for _, d := range s.declarations {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Deadline.Equal(out[j].Deadline) {
			return out[i].Deadline.After(out[j].Deadline)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateDeclaration(_ context.Context, d model.TaxDeclaration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.declarations[d.ID]
	if !ok {
		return apperr.NotFound("declaration", d.ID)
	}
	d.CreatedAt = existing.CreatedAt
	s.declarations[d.ID] = d
	return nil
}

func (s *Store) DeleteDeclaration(_ context.Context, declID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.declarations[declID]; !ok {
		return apperr.NotFound("declaration", declID)
	}
	delete(s.declarations, declID)
	return nil
}

// --- deadlines ---

func (s *Store) CreateDeadline(_ context.Context, d model.Deadline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.deadlines[d.ID]; exists {
		return apperr.Conflict("deadline %s already exists", d.ID)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.Now()
	}
	s.deadlines[d.ID] = d
	return nil
}

func (s *Store) GetDeadline(_ context.Context, deadlineID string) (model.Deadline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deadlines[deadlineID]
	if !ok {
		return model.Deadline{}, apperr.NotFound("deadline", deadlineID)
	}
	return d, nil
}

// ListDeadlines returns deadlines due inside [from, to] ordered by due date.
// Zero bounds are open.
func (s *Store) ListDeadlines(_ context.Context, from, to time.Time) ([]model.Deadline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Deadline
	for _, d := range s.deadlines {
		if !from.IsZero() && d.DueDate.Before(from) {
			continue
		}
		if !to.IsZero() && d.DueDate.After(to) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateDeadline(_ context.Context, d model.Deadline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.deadlines[d.ID]
	if !ok {
		return apperr.NotFound("deadline", d.ID)
	}
	d.CreatedAt = existing.CreatedAt
	s.deadlines[d.ID] = d
	return nil
}

func (s *Store) DeleteDeadline(_ context.Context, deadlineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deadlines[deadlineID]; !ok {
		return apperr.NotFound("deadline", deadlineID)
	}
	delete(s.deadlines, deadlineID)
	return nil
}

// --- payroll ---

// ListEmployees returns the roster ordered by name.
func (s *Store) ListEmployees(_ context.Context) ([]model.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateEmployee(_ context.Context, e model.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.employees[e.ID]; exists {
		return apperr.Conflict("employee %s already exists", e.ID)
	}
	s.employees[e.ID] = e
	return nil
}

func (s *Store) withPartyName(inv model.Invoice) model.Invoice {
	if p, ok := s.parties[inv.PartyID]; ok {
		inv.PartyName = p.Name
	}
	return inv
}

func cloneEntry(e model.JournalEntry) model.JournalEntry {
	e.Lines = slices.Clone(e.Lines)
	return e
}

func cloneInvoice(inv model.Invoice) model.Invoice {
	inv.Lines = slices.Clone(inv.Lines)
	return inv
}
