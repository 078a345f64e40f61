// Package period resolves calendar windows used by reports and tax calculations.
// All dates are midnight UTC and windows are inclusive on both ends.
package period

import (
	"fmt"
	"time"

	"github.com/daftar-dev/daftar/internal/apperr"
)

// Layout is the canonical text form of a date.
const Layout = "2006-01-02"

// Window is an inclusive date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// Parse reads a date in Layout form.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// Format renders t in Layout form; the zero time renders empty.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(Layout)
}

// Between validates and returns [start, end].
func Between(start, end time.Time) (Window, error) {
	w := Window{Start: Day(start), End: Day(end)}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Month returns the window of a calendar month.
func Month(year, month int) (Window, error) {
	if err := checkYear(year); err != nil {
		return Window{}, err
	}
	if month < 1 || month > 12 {
		return Window{}, apperr.InvalidPeriod("month %d outside 1-12", month)
	}
	start := Date(year, time.Month(month), 1)
	return Window{Start: start, End: start.AddDate(0, 1, -1)}, nil
}

// Quarter returns months (q-1)*3+1 through q*3.
func Quarter(year, quarter int) (Window, error) {
	if err := checkYear(year); err != nil {
		return Window{}, err
	}
	if quarter < 1 || quarter > 4 {
		return Window{}, apperr.InvalidPeriod("quarter %d outside 1-4", quarter)
	}
	start := Date(year, time.Month((quarter-1)*3+1), 1)
	return Window{Start: start, End: start.AddDate(0, 3, -1)}, nil
}

// Year returns Jan 1 through Dec 31.
func Year(year int) (Window, error) {
	if err := checkYear(year); err != nil {
		return Window{}, err
	}
	return Window{Start: Date(year, time.January, 1), End: Date(year, time.December, 31)}, nil
}

// YearToDate returns Jan 1 of asOf's year through asOf.
func YearToDate(asOf time.Time) Window {
	asOf = Day(asOf)
	return Window{Start: Date(asOf.Year(), time.January, 1), End: asOf}
}

// QuarterOf returns the quarter (1-4) containing t.
func QuarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	t = Day(t)
	return !t.Before(w.Start) && !t.After(w.End)
}

// Validate rejects zero bounds and windows that end before they start.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return apperr.InvalidPeriod("window needs both a start and an end date")
	}
	if w.End.Before(w.Start) {
		return apperr.InvalidPeriod("end %s is before start %s", Format(w.End), Format(w.Start))
	}
	return nil
}

func (w Window) String() string {
	return Format(w.Start) + ".." + Format(w.End)
}

func checkYear(year int) error {
	if year < 1 || year > 9999 {
		return apperr.InvalidPeriod("year %d out of range", year)
	}
	return nil
}
