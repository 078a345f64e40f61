package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Bracket is one slice of a progressive schedule. Income above Lower and up
// to Upper is taxed at Rate percent. The last bracket has no upper bound.
type Bracket struct {
	Label   string
	Lower   decimal.Decimal
	Upper   decimal.Decimal
	Bounded bool
	Rate    int
}

// Schedule is an ordered list of contiguous brackets starting at zero.
type Schedule []Bracket

// Slice is the part of an amount falling inside one bracket.
type Slice struct {
	Label string          `json:"tranche"`
	Base  decimal.Decimal `json:"base"`
	Rate  int             `json:"rate"`
	Tax   decimal.Decimal `json:"tax"`
}

func mad(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func bounded(label string, lower, upper int64, rate int) Bracket {
	return Bracket{Label: label, Lower: mad(lower), Upper: mad(upper), Bounded: true, Rate: rate}
}

func open(label string, lower int64, rate int) Bracket {
	return Bracket{Label: label, Lower: mad(lower), Rate: rate}
}

// ISSchedule is the corporate tax (IS) schedule.
var ISSchedule = Schedule{
	bounded("≤ 300,000 MAD", 0, 300_000, 10),
	bounded("300,001 - 1,000,000 MAD", 300_000, 1_000_000, 20),
	open("> 1,000,000 MAD", 1_000_000, 31),
}

// IRSchedule is the annual income tax (IR) schedule. The flat amounts of the
// official table (2,000 / 4,000 / 10,000 / 44,000) are the cumulative tax of
// the lower brackets.
var IRSchedule = Schedule{
	bounded("≤ 30,000 MAD", 0, 30_000, 0),
	bounded("30,001 - 50,000 MAD", 30_000, 50_000, 10),
	bounded("50,001 - 60,000 MAD", 50_000, 60_000, 20),
	bounded("60,001 - 80,000 MAD", 60_000, 80_000, 30),
	bounded("80,001 - 180,000 MAD", 80_000, 180_000, 34),
	open("> 180,000 MAD", 180_000, 38),
}

// NonPositiveLabel labels the single slice reported for an amount of zero or less.
const NonPositiveLabel = "≤ 0 MAD"

// Apply taxes each bracket's slice of amount at that bracket's marginal rate.
// Only brackets the amount reaches are reported. An amount of zero or less
// yields no tax and one zero-rate slice carrying the amount.
func (s Schedule) Apply(amount decimal.Decimal) (decimal.Decimal, []Slice) {
	if !amount.IsPositive() {
		return decimal.Zero, []Slice{{Label: NonPositiveLabel, Base: amount, Rate: 0, Tax: decimal.Zero}}
	}
	total := decimal.Zero
	var slices []Slice
	for _, b := range s {
		if amount.LessThanOrEqual(b.Lower) {
			break
		}
		top := amount
		if b.Bounded && amount.GreaterThan(b.Upper) {
			top = b.Upper
		}
		base := top.Sub(b.Lower)
		tax := base.Mul(decimal.NewFromInt(int64(b.Rate))).Div(decimal.NewFromInt(100))
		slices = append(slices, Slice{Label: b.Label, Base: base, Rate: b.Rate, Tax: tax})
		total = total.Add(tax)
	}
	return total, slices
}

// Validate checks that brackets are contiguous from zero and only the last is open.
func (s Schedule) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("empty schedule")
	}
	prev := decimal.Zero
	for i, b := range s {
		if !b.Lower.Equal(prev) {
			return fmt.Errorf("bracket %d starts at %s, want %s", i, b.Lower, prev)
		}
		last := i == len(s)-1
		if b.Bounded == last {
			return fmt.Errorf("bracket %d: only the last bracket may be open", i)
		}
		if b.Bounded && !b.Upper.GreaterThan(b.Lower) {
			return fmt.Errorf("bracket %d is empty", i)
		}
		prev = b.Upper
	}
	return nil
}
