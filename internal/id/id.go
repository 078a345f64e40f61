package id

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// FormatEntryID returns an entry ID like "2025-01-001".
func FormatEntryID(year, month, seq int) string {
	return fmt.Sprintf("%04d-%02d-%03d", year, month, seq)
}

// FormatLineID returns a line ID like "2025-01-001a". Line 0='a', 25='z', 26='aa'.
func FormatLineID(entryID string, line int) string {
	return entryID + lineSuffix(line)
}

func lineSuffix(n int) string {
	var b []byte
	for n >= 0 {
		b = append([]byte{byte('a' + n%26)}, b...)
		n = n/26 - 1
	}
	return string(b)
}

// LineIndex returns the zero-based position encoded in a line ID's suffix.
func LineIndex(lineID string) (int, error) {
	suffix := lineID[len(EntryGroup(lineID)):]
	if suffix == "" {
		return 0, fmt.Errorf("line ID %q has no suffix", lineID)
	}
	n := 0
	for _, c := range suffix {
		n = n*26 + int(c-'a') + 1
	}
	return n - 1, nil
}

// ParseEntryID parses "2025-01-001" into year, month, seq.
func ParseEntryID(id string) (year, month, seq int, err error) {
	base := EntryGroup(id)

	parts := strings.SplitN(base, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid entry ID format: %q", id)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid year in entry ID %q: %w", id, err)
	}

	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid month in entry ID %q: %w", id, err)
	}
	if month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("month %d out of range in entry ID %q", month, id)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid sequence in entry ID %q: %w", id, err)
	}

	return year, month, seq, nil
}

// EntryGroup strips the line suffix from a line ID.
// "2025-01-001a" -> "2025-01-001"
func EntryGroup(lineID string) string {
	i := len(lineID)
	for i > 0 && lineID[i-1] >= 'a' && lineID[i-1] <= 'z' {
		i--
	}
	return lineID[:i]
}

// New returns a random identifier for invoices, parties, employees and deadlines.
func New() string {
	return uuid.NewString()
}

var seedNamespace = uuid.MustParse("6f1c3b9e-1d2a-4c55-9a47-3f0d8e2b7c10")

// Stable returns a name-based identifier, identical for identical names.
func Stable(name string) string {
	return uuid.NewSHA1(seedNamespace, []byte(name)).String()
}

// NewDeclarationID returns a time-ordered identifier for tax declarations.
func NewDeclarationID() string {
	return ulid.Make().String()
}
