// Package dataset holds survey rows in memory and tracks which column stores
// the codes for each question.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/labels"
)

// CodesSuffix is appended to a question column name to name its codes
// column, e.g. "Q1 [Codes]", then "Q1 [Codes] (2)" if that is taken.
const CodesSuffix = " [Codes]"

// ErrColumnNotFound is returned when a named column does not exist.
var ErrColumnNotFound = errors.New("column not found")

// Dataset is an ordered table of string cells. Missing values are empty
// strings. It is not safe for concurrent mutation.
type Dataset struct {
	columns []string
	rows    [][]string
	// codes maps a question column to its codes column.
	codes map[string]string
	sheet string
}

// New builds a dataset from a header and rows. Short rows are padded and
// long rows truncated to the header width. Existing codes columns are bound
// to their question columns here, once; when several candidates exist the
// rightmost wins.
func New(columns []string, rows [][]string) *Dataset {
	d := &Dataset{
		columns: append([]string(nil), columns...),
		rows:    make([][]string, len(rows)),
		codes:   make(map[string]string),
	}
	for i, r := range rows {
		row := make([]string, len(columns))
		copy(row, r)
		d.rows[i] = row
	}
	d.bindCodesColumns()
	return d
}

func (d *Dataset) bindCodesColumns() {
	for _, c := range d.columns {
		for _, q := range d.columns {
			base := q + CodesSuffix
			if c == base || strings.HasPrefix(c, base+" (") {
				d.codes[q] = c
			}
		}
	}
}

// Columns returns a copy of the header.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Sheet is the spreadsheet tab the data came from, if any.
func (d *Dataset) Sheet() string { return d.sheet }

// ColumnIndex returns the position of name, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether name is a column.
func (d *Dataset) HasColumn(name string) bool {
	return d.ColumnIndex(name) >= 0
}

// Cell returns the value at row/column, or "" if either is out of range.
func (d *Dataset) Cell(row int, column string) string {
	idx := d.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(d.rows) {
		return ""
	}
	return d.rows[row][idx]
}

// SetCell overwrites one value.
func (d *Dataset) SetCell(row int, column, value string) error {
	idx := d.ColumnIndex(column)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}
	if row < 0 || row >= len(d.rows) {
		return fmt.Errorf("row %d out of range [0,%d)", row, len(d.rows))
	}
	d.rows[row][idx] = value
	return nil
}

// Values returns a copy of one column.
func (d *Dataset) Values(column string) ([]string, error) {
	idx := d.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}
	out := make([]string, len(d.rows))
	for i, r := range d.rows {
		out[i] = r[idx]
	}
	return out, nil
}

// BlankRows lists the rows whose value in column is empty or whitespace.
func (d *Dataset) BlankRows(column string) []int {
	idx := d.ColumnIndex(column)
	if idx < 0 {
		return nil
	}
	var out []int
	for i, r := range d.rows {
		if labels.IsBlank(r[idx]) {
			out = append(out, i)
		}
	}
	return out
}

// CodesColumn returns the codes column bound to question.
func (d *Dataset) CodesColumn(question string) (string, bool) {
	name, ok := d.codes[question]
	return name, ok
}

// EnsureCodesColumn returns the codes column bound to question, creating it
// immediately right of the question column on first use.
func (d *Dataset) EnsureCodesColumn(question string) (name string, created bool, err error) {
	qIdx := d.ColumnIndex(question)
	if qIdx < 0 {
		return "", false, fmt.Errorf("%w: %s", ErrColumnNotFound, question)
	}
	if name, ok := d.codes[question]; ok && d.HasColumn(name) {
		return name, false, nil
	}

	name = d.uniqueName(question + CodesSuffix)
	d.insertColumn(qIdx+1, name)
	d.codes[question] = name
	return name, true, nil
}

// uniqueName returns base, or base with the first free " (n)" suffix.
func (d *Dataset) uniqueName(base string) string {
	name := base
	for i := 2; d.HasColumn(name); i++ {
		name = base + " (" + strconv.Itoa(i) + ")"
	}
	return name
}

func (d *Dataset) insertColumn(at int, name string) {
	d.columns = append(d.columns[:at], append([]string{name}, d.columns[at:]...)...)
	for i, r := range d.rows {
		d.rows[i] = append(r[:at], append([]string{""}, r[at:]...)...)
	}
}
