// Package table holds the tabular artifacts (edges and search rows) and their
// CSV encoding.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/hal9000y/mailthread/internal/textenc"
)

// ErrWidth is returned when a row does not have one value per column.
var ErrWidth = errors.New("row width does not match columns")

// Table is a header plus string rows.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New returns an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Index returns the position of col or -1.
func (t *Table) Index(col string) int {
	return slices.Index(t.Columns, col)
}

// Missing returns the columns of want that the table does not have, in the
// order given.
func (t *Table) Missing(want ...string) []string {
	var missing []string
	for _, col := range want {
		if t.Index(col) == -1 {
			missing = append(missing, col)
		}
	}
	return missing
}

// Append adds one row.
func (t *Table) Append(values ...string) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("append %d values to %d columns: %w", len(values), len(t.Columns), ErrWidth)
	}

	t.Rows = append(t.Rows, values)
	return nil
}

// Get returns the value of col in row i, or "" when the column is absent.
func (t *Table) Get(i int, col string) string {
	idx := t.Index(col)
	if idx == -1 || i < 0 || i >= len(t.Rows) {
		return ""
	}
	return t.Rows[i][idx]
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ReadCSV reads a table whose first record is the header. Bytes that are not
// valid UTF-8 are decoded with the first fallback encoding that accepts them.
// Empty input yields a table without columns.
func ReadCSV(r io.Reader, fallbacks []string) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll failed: %w", err)
	}

	text, _, err := textenc.Decode(raw, fallbacks)
	if err != nil {
		return nil, fmt.Errorf("textenc.Decode failed: %w", err)
	}

	cr := csv.NewReader(strings.NewReader(text))
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv.ReadAll failed: %w", err)
	}

	t := &Table{}
	if len(records) == 0 {
		return t, nil
	}

	t.Columns = make([]string, len(records[0]))
	for i, col := range records[0] {
		t.Columns[i] = strings.TrimSpace(col)
	}
	t.Rows = records[1:]

	return t, nil
}

// WriteCSV writes the header and every row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("csv.Write failed: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("csv.WriteAll failed: %w", err)
	}

	return nil
}
