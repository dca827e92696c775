// Package refdata loads the reference tables used to enrich feed records:
// aircraft-model codes to model names and airline ICAO codes to airline names.
//
// Resources are plain comma-delimited text: one header row of field names
// followed by data rows. Fields are split positionally on commas. Quoted
// fields and embedded commas are NOT supported; a row containing them is
// split wherever a comma appears. This matches the format the receiver's web
// root serves and is a known limitation rather than a parsing bug.
package refdata

import (
	"strings"
)

// Field names used by the two reference resources.
// The casing differs between the files and must be preserved as-is.
const (
	ModelKeyField    = "ICAO"
	ModelNameField   = "model"
	AirlineKeyField  = "icao"
	AirlineNameField = "airlinename"
)

// Record is a single reference row.
type Record struct {
	// Name is the human-readable value (model name or airline name)
	Name string

	// IATA is the two/three-letter IATA code when present
	IATA string

	// ICAO is the key the record was indexed by
	ICAO string

	// Fields holds every column of the row keyed by header name
	Fields map[string]string
}

// Table is an immutable code → Record mapping. Lookups are case-sensitive.
// The zero value is an empty table.
type Table struct {
	records map[string]Record
}

// NewTable builds a table from records keyed by their ICAO field.
// Records with an empty key are skipped. Later duplicates win.
func NewTable(records []Record) *Table {
	t := &Table{records: make(map[string]Record, len(records))}
	for _, r := range records {
		if r.ICAO == "" {
			continue
		}
		t.records[r.ICAO] = r
	}
	return t
}

// EmptyTable returns a table with no records.
func EmptyTable() *Table {
	return &Table{records: map[string]Record{}}
}

// Lookup returns the record for code.
func (t *Table) Lookup(code string) (Record, bool) {
	if t == nil || t.records == nil {
		return Record{}, false
	}
	r, ok := t.records[code]
	return r, ok
}

// Len returns the number of records in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Parse reads delimited text into a Table keyed by keyField, with the
// record name taken from nameField. Blank lines are ignored and rows missing
// the key are skipped. Short rows leave trailing fields empty.
func Parse(text, keyField, nameField string) *Table {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return EmptyTable()
	}

	headers := splitRow(lines[0])
	records := make([]Record, 0, len(lines)-1)

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		values := splitRow(line)
		fields := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(values) {
				fields[h] = values[i]
			} else {
				fields[h] = ""
			}
		}

		key := fields[keyField]
		if key == "" {
			continue
		}

		records = append(records, Record{
			Name:   fields[nameField],
			IATA:   fields["IATA"],
			ICAO:   key,
			Fields: fields,
		})
	}

	return NewTable(records)
}

// splitRow splits a line on commas and trims each value.
func splitRow(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
