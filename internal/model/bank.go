package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction is one parsed row of a bank statement.
type BankTransaction struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"` // negative = money out, positive = money in
	Reference   string          `json:"reference"`
}
