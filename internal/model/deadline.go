package model

import "time"

// DeadlineType groups calendar deadlines.
type DeadlineType string

const (
	DeadlineTax     DeadlineType = "Tax"
	DeadlineInvoice DeadlineType = "Invoice"
	DeadlineCNSS    DeadlineType = "CNSS"
	DeadlineOther   DeadlineType = "Other"
)

// DeadlineTypes lists every deadline type.
var DeadlineTypes = []DeadlineType{DeadlineTax, DeadlineInvoice, DeadlineCNSS, DeadlineOther}

func (t DeadlineType) Valid() bool {
	switch t {
	case DeadlineTax, DeadlineInvoice, DeadlineCNSS, DeadlineOther:
		return true
	}
	return false
}

// Deadline is a dated obligation tracked on the calendar. CompletedDate is
// zero until the deadline is completed.
type Deadline struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	DueDate       time.Time    `json:"due_date"`
	Type          DeadlineType `json:"deadline_type"`
	Completed     bool         `json:"completed"`
	CompletedDate time.Time    `json:"completed_date"`
	CreatedAt     time.Time    `json:"created_at"`
}
