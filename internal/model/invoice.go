package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceType tells a sales invoice from a purchase invoice.
type InvoiceType string

const (
	InvoiceTypeClient   InvoiceType = "client"
	InvoiceTypeSupplier InvoiceType = "supplier"
)

// Valid reports whether t is client or supplier.
func (t InvoiceType) Valid() bool {
	return t == InvoiceTypeClient || t == InvoiceTypeSupplier
}

// PartyKind returns the counterparty kind an invoice of this type refers to.
func (t InvoiceType) PartyKind() PartyKind {
	if t == InvoiceTypeSupplier {
		return PartyKindSupplier
	}
	return PartyKindClient
}

// VATRate is a Moroccan TVA rate in percent.
type VATRate struct {
	Rate        int    `json:"rate"`
	Description string `json:"description"`
}

// VATRates is the fixed set of TVA rates, highest first.
var VATRates = []VATRate{
	{Rate: 20, Description: "Taux normal"},
	{Rate: 14, Description: "Taux intermédiaire"},
	{Rate: 10, Description: "Taux réduit"},
	{Rate: 7, Description: "Taux spécial"},
	{Rate: 0, Description: "Exonéré"},
}

// ValidVATRate reports whether rate belongs to the fixed TVA rate set.
func ValidVATRate(rate int) bool {
	for _, r := range VATRates {
		if r.Rate == rate {
			return true
		}
	}
	return false
}

// Invoice is a client or supplier invoice.
type Invoice struct {
	ID             string          `json:"id"`
	Number         string          `json:"number"`
	Type           InvoiceType     `json:"type"`
	Date           time.Time       `json:"date"`
	DueDate        time.Time       `json:"due_date"`   // zero = none
	PartyID        string          `json:"party_id"`   // empty = none
	PartyName      string          `json:"party_name"` // filled on read
	TotalHT        decimal.Decimal `json:"total_ht"`
	TotalTVA       decimal.Decimal `json:"total_tva"`
	TotalTTC       decimal.Decimal `json:"total_ttc"`
	Paid           bool            `json:"paid"`
	PaymentDate    time.Time       `json:"payment_date"`
	JournalEntryID string          `json:"journal_entry_id"` // empty until posted
	CreatedAt      time.Time       `json:"created_at"`
	Lines          []InvoiceLine   `json:"lines"`
}

// InvoiceLine carries precomputed totals. Editing Quantity, UnitPrice or
// Rate requires recomputing TotalHT, TotalTVA and TotalTTC.
type InvoiceLine struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Rate        int             `json:"rate"`
	TotalHT     decimal.Decimal `json:"total_ht"`
	TotalTVA    decimal.Decimal `json:"total_tva"`
	TotalTTC    decimal.Decimal `json:"total_ttc"`
}

// InvoiceFilter selects invoices. Empty Type selects both kinds; zero times are unbounded.
type InvoiceFilter struct {
	Type InvoiceType
	From time.Time
	To   time.Time
}

// Matches reports whether inv satisfies the filter.
func (f InvoiceFilter) Matches(inv Invoice) bool {
	if f.Type != "" && inv.Type != f.Type {
		return false
	}
	return PostingFilter{From: f.From, To: f.To}.Includes(inv.Date)
}

// PartyKind distinguishes clients from suppliers.
type PartyKind string

const (
	PartyKindClient   PartyKind = "client"
	PartyKindSupplier PartyKind = "supplier"
)

// Party is a client or supplier.
type Party struct {
	ID        string    `json:"id"`
	Kind      PartyKind `json:"kind"`
	Name      string    `json:"name"`
	ICE       string    `json:"ice"` // Identifiant Commun de l'Entreprise
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
