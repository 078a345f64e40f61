package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/daftar-dev/daftar/internal/model"
)

// Header is the CSV header of a chart-of-accounts file.
const Header = "code,name,class,type,parent_code"

const (
	numFields     = 5
	colCode       = 0
	colName       = 1
	colClass      = 2
	colType       = 3
	colParentCode = 4
)

// Definition describes an account by codes rather than store ids, for import and export.
type Definition struct {
	Code       string
	Name       string
	Class      int
	Type       model.AccountType
	ParentCode string
}

// ReadDefinitions reads a chart-of-accounts CSV.
func ReadDefinitions(r io.Reader) ([]Definition, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var defs []Definition
	for i, rec := range records[1:] {
		def, err := UnmarshalDefinition(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// WriteDefinitions writes a chart-of-accounts CSV including the header.
func WriteDefinitions(w io.Writer, defs []Definition) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, def := range defs {
		if err := cw.Write(MarshalDefinition(def)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalDefinition converts a Definition to a CSV row.
func MarshalDefinition(def Definition) []string {
	row := make([]string, numFields)
	row[colCode] = def.Code
	row[colName] = def.Name
	row[colClass] = strconv.Itoa(def.Class)
	row[colType] = string(def.Type)
	row[colParentCode] = def.ParentCode
	return row
}

// UnmarshalDefinition converts a CSV row to a Definition.
func UnmarshalDefinition(record []string) (Definition, error) {
	if len(record) != numFields {
		return Definition{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	class, err := strconv.Atoi(record[colClass])
	if err != nil {
		return Definition{}, fmt.Errorf("parsing class %q: %w", record[colClass], err)
	}

	return Definition{
		Code:       strings.TrimSpace(record[colCode]),
		Name:       record[colName],
		Class:      class,
		Type:       model.AccountType(record[colType]),
		ParentCode: strings.TrimSpace(record[colParentCode]),
	}, nil
}
