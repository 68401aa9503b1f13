// Package table holds the in-memory tabular model shared by every file format:
// an ordered list of named, typed columns with a common row count.
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"tabio/domain/core"
)

// TimeLayout is the text form used when a timestamp has to be written as text
const TimeLayout = "2006-01-02 15:04:05.999999999"

// Table is an ordered set of columns of equal length
type Table struct {
	columns []*Column
	rows    int
}

// New builds a table from columns, rejecting columns of different lengths
func New(columns ...*Column) (*Table, error) {
	t := &Table{columns: columns}
	if len(columns) == 0 {
		return t, nil
	}
	t.rows = columns[0].Len()
	for _, c := range columns[1:] {
		if c.Len() != t.rows {
			return nil, core.NewRaggedColumnsError(c.Name, c.Len(), t.rows)
		}
	}
	return t, nil
}

// MustNew is New for fixtures; it panics on ragged columns
func MustNew(columns ...*Column) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the shared row count
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the number of columns
func (t *Table) NumCols() int { return len(t.columns) }

// Columns returns the columns in order. The slice must not be modified.
func (t *Table) Columns() []*Column { return t.columns }

// Column returns column i
func (t *Table) Column(i int) *Column { return t.columns[i] }

// ColumnByName returns the first column with the given name
func (t *Table) ColumnByName(name string) (*Column, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Names returns the column names in order
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Row returns the values of row i in column order
func (t *Table) Row(i int) ([]any, error) {
	if i < 0 || i >= t.rows {
		return nil, fmt.Errorf("%w: %d of %d", core.ErrRowOutOfRange, i, t.rows)
	}
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i]
	}
	return row, nil
}

// Slice returns rows [start, end) as a new table; bounds are clamped
func (t *Table) Slice(start, end int) *Table {
	start = max(0, min(start, t.rows))
	end = max(start, min(end, t.rows))
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.slice(start, end)
	}
	return &Table{columns: cols, rows: end - start}
}

// Split divides the table into n contiguous parts whose sizes differ by at most one.
// The first rows%n parts carry the extra row.
func (t *Table) Split(n int) []*Table {
	if n <= 1 {
		return []*Table{t}
	}
	base, extra := t.rows/n, t.rows%n
	parts := make([]*Table, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		parts = append(parts, t.Slice(start, start+size))
		start += size
	}
	return parts
}

// Concat appends tables row-wise; all tables must share column names
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return &Table{}, nil
	}
	first := tables[0]
	names := first.Names()
	cols := make([]*Column, len(first.columns))
	for i, c := range first.columns {
		cols[i] = &Column{Name: c.Name, Kind: c.Kind, Values: make([]any, 0, c.Len())}
	}
	rows := 0
	for _, t := range tables {
		if !sameNames(t.Names(), names) {
			return nil, core.NewColumnMismatchError(t.Names(), names)
		}
		for i, c := range t.columns {
			cols[i].Values = append(cols[i].Values, c.Values...)
			if cols[i].Kind != c.Kind {
				cols[i].Kind = widen(cols[i].Kind, c.Kind)
			}
		}
		rows += t.rows
	}
	return &Table{columns: cols, rows: rows}, nil
}

func widen(a, b Kind) Kind {
	if a.IsNumeric() && b.IsNumeric() {
		return KindFloat
	}
	return KindObject
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Equal reports whether two tables have the same names, kinds and cells
func Equal(a, b *Table) bool {
	if a.rows != b.rows || len(a.columns) != len(b.columns) {
		return false
	}
	for i, ca := range a.columns {
		cb := b.columns[i]
		if ca.Name != cb.Name || ca.Kind != cb.Kind {
			return false
		}
		for r := range ca.Values {
			if !ValueEqual(ca.Values[r], cb.Values[r]) {
				return false
			}
		}
	}
	return true
}

// ValueEqual compares two cells; NaN equals NaN and times compare by instant
func ValueEqual(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case float64:
		y, ok := b.(float64)
		return ok && (x == y || (math.IsNaN(x) && math.IsNaN(y)))
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	default:
		return a == b
	}
}

// Fingerprint hashes names, kinds and cell text in column order
func (t *Table) Fingerprint() core.Hash {
	h := core.NewHasher()
	for _, c := range t.columns {
		h.WriteField(c.Name)
		h.WriteField(c.Kind.String())
		for _, v := range c.Values {
			if v == nil {
				h.WriteField("\x00")
				continue
			}
			h.WriteField(FormatValue(v))
		}
	}
	return h.Sum()
}

// FormatValue renders a cell as text. Floats always keep a decimal point or
// exponent so that they read back as floats; missing cells render empty.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return FormatFloat(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case time.Time:
		return x.Format(TimeLayout)
	default:
		return fmt.Sprint(x)
	}
}

// FormatFloat renders f the shortest way that still parses back as a float
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ""
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	var s string
	if abs == 0 || (abs >= 1e-4 && abs < 1e16) {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	} else {
		s = strconv.FormatFloat(f, 'e', -1, 64)
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
