package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeclarationType is the tax a declaration reports.
type DeclarationType string

const (
	DeclarationTVA DeclarationType = "TVA"
	DeclarationIS  DeclarationType = "IS"
	DeclarationIR  DeclarationType = "IR"
)

// Valid reports whether t is TVA, IS or IR.
func (t DeclarationType) Valid() bool {
	return t == DeclarationTVA || t == DeclarationIS || t == DeclarationIR
}

// DeclarationPeriod is the filing frequency.
type DeclarationPeriod string

const (
	PeriodMonthly   DeclarationPeriod = "monthly"
	PeriodQuarterly DeclarationPeriod = "quarterly"
	PeriodAnnual    DeclarationPeriod = "annual"
)

// Valid reports whether p is monthly, quarterly or annual.
func (p DeclarationPeriod) Valid() bool {
	return p == PeriodMonthly || p == PeriodQuarterly || p == PeriodAnnual
}

// TaxDeclaration records a filing. TotalAmount is computed once at creation.
type TaxDeclaration struct {
	ID          string            `json:"id"`
	Type        DeclarationType   `json:"type"`
	Period      DeclarationPeriod `json:"period"`
	StartDate   time.Time         `json:"start_date"`
	EndDate     time.Time         `json:"end_date"`
	Deadline    time.Time         `json:"deadline"`
	Submitted   bool              `json:"submitted"`
	SubmittedOn time.Time         `json:"submitted_on"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Employee is a payroll roster member used by the IR calculation.
type Employee struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	GrossSalary decimal.Decimal `json:"gross_salary"`
	CNSS        decimal.Decimal `json:"cnss"`
	CIMR        decimal.Decimal `json:"cimr"`
}

// NetTaxable is gross salary less CNSS and CIMR contributions.
func (e Employee) NetTaxable() decimal.Decimal {
	return e.GrossSalary.Sub(e.CNSS).Sub(e.CIMR)
}
