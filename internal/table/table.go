// Package table holds the immutable columnar value passed between the stats
// client, the cache stores and the domain entities.
package table

import (
	"errors"
	"fmt"
	"math"
)

// Kind is the uniform scalar type of a column.
type Kind uint8

const (
	String Kind = iota + 1
	Int
	Float
	Bool
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Column is a named sequence of values of one Kind. A nil entry is a null.
// Non-nil entries must be string, int64, float64 or bool matching Kind.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// Table is an ordered list of equally long columns. A Table never changes
// after construction; every accessor hands out copies.
type Table struct {
	cols  []Column
	index map[string]int
	rows  int
}

var ErrShape = errors.New("table: invalid shape")

// New validates the columns and builds a Table from copies of them.
func New(cols ...Column) (*Table, error) {
	t := &Table{
		cols:  make([]Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrShape, i)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrShape, c.Name)
		}
		if i == 0 {
			t.rows = len(c.Values)
		} else if len(c.Values) != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", ErrShape, c.Name, len(c.Values), t.rows)
		}
		for r, v := range c.Values {
			if v == nil {
				continue
			}
			if !kindMatches(c.Kind, v) {
				return nil, fmt.Errorf("%w: column %q row %d holds %T, want %s", ErrShape, c.Name, r, v, c.Kind)
			}
		}
		t.index[c.Name] = i
		t.cols = append(t.cols, copyColumn(c))
	}
	return t, nil
}

// MustNew is New for static data; it panics on a malformed table.
func MustNew(cols ...Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func kindMatches(k Kind, v any) bool {
	switch v.(type) {
	case string:
		return k == String
	case int64:
		return k == Int
	case float64:
		return k == Float
	case bool:
		return k == Bool
	default:
		return false
	}
}

func copyColumn(c Column) Column {
	vals := make([]any, len(c.Values))
	copy(vals, c.Values)
	return Column{Name: c.Name, Kind: c.Kind, Values: vals}
}

func (t *Table) NumRows() int { return t.rows }
func (t *Table) NumCols() int { return len(t.cols) }

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns a deep copy of the columns in order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.cols))
	for i, c := range t.cols {
		out[i] = copyColumn(c)
	}
	return out
}

func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return copyColumn(t.cols[i]), true
}

// Value returns the cell at (name, row). ok is false when the column or row
// does not exist; a null cell is (nil, true).
func (t *Table) Value(name string, row int) (any, bool) {
	i, ok := t.index[name]
	if !ok || row < 0 || row >= t.rows {
		return nil, false
	}
	return t.cols[i].Values[row], true
}

// Take builds a table from the given row positions, in that order.
func (t *Table) Take(rows []int) *Table {
	cols := make([]Column, len(t.cols))
	for i, c := range t.cols {
		vals := make([]any, len(rows))
		for j, r := range rows {
			vals[j] = c.Values[r]
		}
		cols[i] = Column{Name: c.Name, Kind: c.Kind, Values: vals}
	}
	return fromTrusted(cols, len(rows))
}

// Head returns the first n rows. n <= 0 or n >= NumRows returns every row.
func (t *Table) Head(n int) *Table {
	if n <= 0 || n >= t.rows {
		n = t.rows
	}
	return t.Take(seq(0, n))
}

// Tail returns the last n rows. n <= 0 or n >= NumRows returns every row.
func (t *Table) Tail(n int) *Table {
	if n <= 0 || n >= t.rows {
		n = t.rows
	}
	return t.Take(seq(t.rows-n, t.rows))
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	rows := make([]int, 0, t.rows)
	for r := 0; r < t.rows; r++ {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return t.Take(rows)
}

// DropLeading removes the first n columns.
func (t *Table) DropLeading(n int) *Table {
	if n <= 0 {
		return fromTrusted(t.Columns(), t.rows)
	}
	if n > len(t.cols) {
		n = len(t.cols)
	}
	cols := make([]Column, 0, len(t.cols)-n)
	for _, c := range t.cols[n:] {
		cols = append(cols, copyColumn(c))
	}
	return fromTrusted(cols, t.rows)
}

// Select projects the named columns in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, fmt.Errorf("table: unknown column %q", n)
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

func fromTrusted(cols []Column, rows int) *Table {
	t := &Table{cols: cols, index: make(map[string]int, len(cols)), rows: rows}
	for i, c := range cols {
		t.index[c.Name] = i
	}
	return t
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

// Equal reports whether a and b have the same columns, kinds and values in
// the same order. NaN equals NaN so that stored tables compare equal to the
// ones they were written from.
func Equal(a, b *Table) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.rows != b.rows || len(a.cols) != len(b.cols) {
		return false
	}
	for i := range a.cols {
		ca, cb := a.cols[i], b.cols[i]
		if ca.Name != cb.Name || ca.Kind != cb.Kind {
			return false
		}
		for r := range ca.Values {
			if !valueEqual(ca.Values[r], cb.Values[r]) {
				return false
			}
		}
	}
	return true
}

func valueEqual(x, y any) bool {
	if fx, ok := x.(float64); ok {
		fy, ok := y.(float64)
		if !ok {
			return false
		}
		return fx == fy || (math.IsNaN(fx) && math.IsNaN(fy))
	}
	return x == y
}
