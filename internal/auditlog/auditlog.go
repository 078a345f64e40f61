// Package auditlog keeps an append-only CSV trail of the changes made to a
// set of books, stored next to daftar.yaml in logs/audit-log.csv.
package auditlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one row in the audit log. Amount is invalid when the change
// carries no amount (deletes, submissions of nil declarations).
type Entry struct {
	Timestamp time.Time           `json:"timestamp"`
	Actor     string              `json:"actor"`
	Action    string              `json:"action"`
	Subject   string              `json:"subject"` // entry, invoice, declaration id or file name
	Amount    decimal.NullDecimal `json:"amount"`
	Details   string              `json:"details"`
}

// Header is the CSV header for audit-log.csv.
var Header = []string{"timestamp", "actor", "action", "subject", "amount", "details"}

const (
	colTimestamp = iota
	colActor
	colAction
	colSubject
	colAmount
	colDetails
	numFields
)

// Path is the log location relative to the books directory.
const Path = "logs/audit-log.csv"

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colActor] = e.Actor
	row[colAction] = e.Action
	row[colSubject] = e.Subject
	if e.Amount.Valid {
		row[colAmount] = e.Amount.Decimal.StringFixed(2)
	}
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	e := Entry{
		Timestamp: ts,
		Actor:     record[colActor],
		Action:    record[colAction],
		Subject:   record[colSubject],
		Details:   record[colDetails],
	}
	if s := record[colAmount]; s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Entry{}, fmt.Errorf("parsing amount %q: %w", s, err)
		}
		e.Amount = decimal.NewNullDecimal(d)
	}
	return e, nil
}

// Query selects entries. Zero fields match everything.
type Query struct {
	// Action matches the action or its dotted prefix: "invoice" matches
	// "invoice.add" and "invoice.pay".
	Action string
	Since  time.Time
	// Last keeps only the most recent matches.
	Last int
}

func (q Query) match(e Entry) bool {
	if q.Action != "" && e.Action != q.Action && !strings.HasPrefix(e.Action, q.Action+".") {
		return false
	}
	return q.Since.IsZero() || !e.Timestamp.Before(q.Since)
}

// Log is the audit log of one set of books. Appends from the same process
// are serialized.
type Log struct {
	path string
	mu   sync.Mutex
}

// Open returns the log of the books rooted at root. The file is created on
// the first Append.
func Open(root string) *Log {
	return &Log{path: filepath.Join(root, Path)}
}

// Append writes entries, creating the file and header if needed.
func (l *Log) Append(entries ...Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat audit log: %w", err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return f.Close()
}

// Read returns the entries matching q in file order. A missing log is empty.
func (l *Log) Read(q Query) ([]Entry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	all, err := readEntries(f)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if q.match(e) {
			out = append(out, e)
		}
	}
	if q.Last > 0 && len(out) > q.Last {
		out = out[len(out)-q.Last:]
	}
	return out, nil
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
