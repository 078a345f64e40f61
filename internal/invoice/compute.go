// Package invoice manages clients, suppliers and their invoices, and posts
// invoices to the ledger.
package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/daftar-dev/daftar/internal/model"
)

var hundred = decimal.NewFromInt(100)

// ComputeLine fills a line's HT, TVA and TTC totals from quantity, unit price
// and rate. HT and TVA are rounded to centimes.
func ComputeLine(l model.InvoiceLine) model.InvoiceLine {
	l.TotalHT = l.Quantity.Mul(l.UnitPrice).Round(2)
	l.TotalTVA = l.TotalHT.Mul(decimal.NewFromInt(int64(l.Rate))).Div(hundred).Round(2)
	l.TotalTTC = l.TotalHT.Add(l.TotalTVA)
	return l
}

// Recompute refreshes every line total and the invoice totals. Call it after
// editing a line's quantity, unit price or rate.
func Recompute(inv *model.Invoice) {
	inv.TotalHT, inv.TotalTVA, inv.TotalTTC = decimal.Zero, decimal.Zero, decimal.Zero
	for i, l := range inv.Lines {
		l = ComputeLine(l)
		inv.Lines[i] = l
		inv.TotalHT = inv.TotalHT.Add(l.TotalHT)
		inv.TotalTVA = inv.TotalTVA.Add(l.TotalTVA)
		inv.TotalTTC = inv.TotalTTC.Add(l.TotalTTC)
	}
}
