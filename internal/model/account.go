package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "Asset"
	AccountTypeLiability AccountType = "Liability"
	AccountTypeEquity    AccountType = "Equity"
	AccountTypeRevenue   AccountType = "Revenue"
	AccountTypeExpense   AccountType = "Expense"
)

// AccountTypes lists every account type in chart order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

// Valid reports whether t is one of the five known account types.
func (t AccountType) Valid() bool {
	for _, at := range AccountTypes {
		if t == at {
			return true
		}
	}
	return false
}

// DebitNormal reports whether the type carries its normal balance on the debit side.
// Asset and Expense are debit-normal; Liability, Equity and Revenue are credit-normal.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// SignedBalance applies the type's sign convention to raw debit and credit sums.
func (t AccountType) SignedBalance(debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// PCM major classes.
const (
	MinClass = 1
	MaxClass = 7
)

// Account is a node of the Moroccan chart of accounts (PCM).
type Account struct {
	ID       int         `json:"id"`
	Code     string      `json:"code"` // "61" is the parent prefix of "611" by convention only
	Name     string      `json:"name"`
	Class    int         `json:"class"` // 1-7
	Type     AccountType `json:"type"`
	ParentID int         `json:"parent_id"` // 0 = root
}

// IsRoot reports whether the account has no parent.
func (a Account) IsRoot() bool {
	return a.ParentID == 0
}

// HasCodePrefix reports whether the account code starts with prefix.
func (a Account) HasCodePrefix(prefix string) bool {
	return strings.HasPrefix(a.Code, prefix)
}
