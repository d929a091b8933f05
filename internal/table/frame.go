// Package table holds the tabular data model the pipelines operate on and
// the loaders/writers for the supported file formats. A Frame stores cells
// as strings exactly as loaded; typed accessors coerce on demand so schema
// validation can report the offending column by name.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frame is an in-memory table with ordered columns. Cell values are kept as
// strings; use Floats, Times and Bools to coerce a column.
type Frame struct {
	cols  []string
	index map[string]int
	rows  [][]string
}

// NewFrame creates an empty frame with the given column names.
func NewFrame(columns []string) *Frame {
	f := &Frame{
		cols:  make([]string, len(columns)),
		index: make(map[string]int, len(columns)),
	}
	copy(f.cols, columns)
	for i, c := range f.cols {
		f.index[c] = i
	}
	return f
}

// Columns returns the column names in file order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return len(f.rows) }

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// AppendRow adds a row. The row must have one cell per column.
func (f *Frame) AppendRow(row []string) error {
	if len(row) != len(f.cols) {
		return fmt.Errorf("row has %d cells, frame has %d columns", len(row), len(f.cols))
	}
	cp := make([]string, len(row))
	copy(cp, row)
	f.rows = append(f.rows, cp)
	return nil
}

// Cell returns the raw string at (row, column).
func (f *Frame) Cell(row int, column string) (string, error) {
	i, ok := f.index[column]
	if !ok {
		return "", fmt.Errorf("no column %q", column)
	}
	if row < 0 || row >= len(f.rows) {
		return "", fmt.Errorf("row %d out of range (%d rows)", row, len(f.rows))
	}
	return f.rows[row][i], nil
}

// Strings returns a column as raw strings.
func (f *Frame) Strings(column string) ([]string, error) {
	i, ok := f.index[column]
	if !ok {
		return nil, fmt.Errorf("no column %q", column)
	}
	out := make([]string, len(f.rows))
	for r, row := range f.rows {
		out[r] = row[i]
	}
	return out, nil
}

// Floats coerces a column to float64. The error names the first cell that
// fails to parse.
func (f *Frame) Floats(column string) ([]float64, error) {
	raw, err := f.Strings(column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for r, s := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %q is not numeric", column, r, s)
		}
		out[r] = v
	}
	return out, nil
}

// Times coerces a column to time.Time using the accepted timestamp formats.
func (f *Frame) Times(column string) ([]time.Time, error) {
	raw, err := f.Strings(column)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(raw))
	for r, s := range raw {
		t, err := ParseTimestamp(s)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", column, r, err)
		}
		out[r] = t
	}
	return out, nil
}

// Bools coerces a column of binary labels to bool. Accepts 0/1 and the
// usual true/false spellings.
func (f *Frame) Bools(column string) ([]bool, error) {
	raw, err := f.Strings(column)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(raw))
	for r, s := range raw {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "t", "yes":
			out[r] = true
		case "0", "false", "f", "no", "":
			out[r] = false
		default:
			return nil, fmt.Errorf("column %q row %d: %q is not a binary label", column, r, s)
		}
	}
	return out, nil
}

// AddFloatColumn appends a float64 column formatted with 6 decimal places.
// The fixed format keeps repeated runs byte-identical.
func (f *Frame) AddFloatColumn(name string, values []float64) error {
	if len(values) != len(f.rows) {
		return fmt.Errorf("column %q has %d values, frame has %d rows", name, len(values), len(f.rows))
	}
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = strconv.FormatFloat(v, 'f', 6, 64)
	}
	return f.addColumn(name, cells)
}

// AddBoolColumn appends a bool column rendered as true/false.
func (f *Frame) AddBoolColumn(name string, values []bool) error {
	if len(values) != len(f.rows) {
		return fmt.Errorf("column %q has %d values, frame has %d rows", name, len(values), len(f.rows))
	}
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = strconv.FormatBool(v)
	}
	return f.addColumn(name, cells)
}

func (f *Frame) addColumn(name string, cells []string) error {
	if f.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	f.cols = append(f.cols, name)
	f.index[name] = len(f.cols) - 1
	for i := range f.rows {
		f.rows[i] = append(f.rows[i], cells[i])
	}
	return nil
}

// Select returns a new frame containing only the named columns, in the
// given order. Unknown names are an error.
func (f *Frame) Select(columns []string) (*Frame, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		j, ok := f.index[c]
		if !ok {
			return nil, fmt.Errorf("no column %q", c)
		}
		idx[i] = j
	}
	out := NewFrame(columns)
	for _, row := range f.rows {
		sel := make([]string, len(idx))
		for i, j := range idx {
			sel[i] = row[j]
		}
		out.rows = append(out.rows, sel)
	}
	return out, nil
}

// Rename returns a new frame with columns renamed per the mapping. Columns
// absent from the mapping keep their names.
func (f *Frame) Rename(mapping map[string]string) *Frame {
	cols := make([]string, len(f.cols))
	for i, c := range f.cols {
		if to, ok := mapping[c]; ok {
			cols[i] = to
		} else {
			cols[i] = c
		}
	}
	out := NewFrame(cols)
	out.rows = make([][]string, len(f.rows))
	for i, row := range f.rows {
		cp := make([]string, len(row))
		copy(cp, row)
		out.rows[i] = cp
	}
	return out
}
