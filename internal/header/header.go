// Package header finds the real column labels of sheets and CSV exports whose
// first row is blank or decorative, and normalises raw header cells.
package header

import (
	"fmt"
	"strconv"
	"strings"

	"tabio/adapters/datareadiness/coercer"
	"tabio/domain/table"
	"tabio/internal"
)

// Placeholder marks a column label generated for an empty header cell
const Placeholder = "Unnamed"

// PlaceholderName returns the generated label for column i
func PlaceholderName(i int) string {
	return fmt.Sprintf("%s: %d", Placeholder, i)
}

// Normalize fills empty labels with placeholders and de-duplicates repeats
// as name.1, name.2, ...
func Normalize(raw []string) []string {
	names := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, name := range raw {
		if strings.TrimSpace(name) == "" {
			name = PlaceholderName(i)
		}
		if seen[name] > 0 {
			base := name
			n := seen[base]
			for seen[base+"."+strconv.Itoa(n)] > 0 {
				n++
			}
			name = base + "." + strconv.Itoa(n)
			seen[base] = n + 1
		}
		seen[name]++
		names[i] = name
	}
	return names
}

// Locator promotes the first complete row to header when the declared header is mostly placeholders
type Locator struct {
	coercer *coercer.TypeCoercer
	logger  *internal.Logger
}

// NewLocator creates a header locator
func NewLocator(c *coercer.TypeCoercer, logger *internal.Logger) *Locator {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Locator{coercer: c, logger: logger}
}

// NeedsLocation reports whether at least two labels are placeholders
func NeedsLocation(names []string) bool {
	n := 0
	for _, name := range names {
		if strings.Contains(name, Placeholder) {
			n++
		}
	}
	return n >= 2
}

// Locate returns t unchanged unless NeedsLocation holds. Otherwise the first
// row with a value in every column (or the first row, if none is complete)
// becomes the header, it and all rows above it are dropped, and each column
// is coerced to float where every value allows it.
func (l *Locator) Locate(t *table.Table) *table.Table {
	if !NeedsLocation(t.Names()) || t.NumRows() == 0 {
		return t
	}

	headerRow := l.firstCompleteRow(t)
	row, _ := t.Row(headerRow)
	raw := make([]string, len(row))
	for i, v := range row {
		raw[i] = table.FormatValue(v)
	}
	names := Normalize(raw)
	l.logger.Debug("[HeaderLocator] promoting row %d to header: %v", headerRow, names)

	body := t.Slice(headerRow+1, t.NumRows())
	cols := make([]*table.Column, body.NumCols())
	for i, col := range body.Columns() {
		col.Name = names[i]
		coerced, ok := l.coercer.ToFloatColumn(col)
		if !ok {
			l.logger.Debug("[HeaderLocator] column %q kept as %s", col.Name, col.Kind)
		}
		cols[i] = coerced
	}
	return table.MustNew(cols...)
}

func (l *Locator) firstCompleteRow(t *table.Table) int {
	for r := 0; r < t.NumRows(); r++ {
		filled := 0
		for _, col := range t.Columns() {
			if !col.IsNull(r) {
				filled++
			}
		}
		if filled >= t.NumCols() {
			return r
		}
	}
	return 0
}
