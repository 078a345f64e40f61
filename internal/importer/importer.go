// Package importer reads bank statement exports and books them against the
// bank account in the journal.
package importer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/daftar-dev/daftar/internal/model"
)

// Parser converts a bank statement file into BankTransactions.
type Parser interface {
	Parse(r io.Reader) ([]model.BankTransaction, error)
	Format() string
	// Sniff reports whether header looks like this format's first line.
	Sniff(header string) bool
}

// Auto selects the parser from the statement's first line.
const Auto = "auto"

// Registry holds named parsers in registration order. Detection tries them
// in that order, so register the stricter formats first.
type Registry struct {
	byName map[string]Parser
	order  []Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.byName[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.byName[key] = p
	r.order = append(r.order, p)
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.byName[strings.ToLower(format)]
}

// Formats lists registered format names, sorted.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, strings.ToLower(p.Format()))
	}
	slices.Sort(out)
	return out
}

// Detect returns the first parser whose Sniff accepts header, or nil.
func (r *Registry) Detect(header string) Parser {
	header = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	for _, p := range r.order {
		if p.Sniff(header) {
			return p
		}
	}
	return nil
}

// Parse reads a whole statement with the named parser, or the detected one
// when format is Auto.
func (r *Registry) Parse(format string, rd io.Reader) ([]model.BankTransaction, Parser, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, nil, fmt.Errorf("reading statement: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	var p Parser
	if strings.EqualFold(format, Auto) {
		header, _, _ := bufio.NewReader(bytes.NewReader(data)).ReadLine()
		if p = r.Detect(string(header)); p == nil {
			return nil, nil, fmt.Errorf("unrecognised statement header %q", header)
		}
	} else if p = r.Get(format); p == nil {
		return nil, nil, fmt.Errorf("unknown statement format %q", format)
	}

	txns, err := p.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, p, err
	}
	return txns, p, nil
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ReleveParser{})
	r.Register(&SimpleParser{})
	return r
}

// makeRef creates a reference like releve_20240103_VIREMENTAT.
func makeRef(format string, date time.Time, desc string) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("%s_%s_%s", format, date.Format("20060102"), prefix)
}
