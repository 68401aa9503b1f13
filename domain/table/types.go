package table

import (
	"fmt"
	"strings"
)

// Kind describes the type shared by the non-missing values of a column
type Kind int

const (
	KindObject Kind = iota // mixed or unrecognised values
	KindInt                // int64
	KindFloat              // float64
	KindBool               // bool
	KindString             // string
	KindTime               // time.Time
)

var kindNames = map[Kind]string{
	KindObject: "object",
	KindInt:    "int",
	KindFloat:  "float",
	KindBool:   "bool",
	KindString: "string",
	KindTime:   "time",
}

// String returns the lower-case kind name
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsNumeric reports whether values of this kind can be summarised as numbers
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat
}

// ParseKind is the inverse of Kind.String
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindObject, fmt.Errorf("unknown column kind: %q", s)
}

// MarshalText renders the kind name in JSON output
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Column is a named sequence of values. A nil value is a missing cell.
type Column struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	Values []any  `json:"values"`
}

// NewColumn creates a column; values are used as-is
func NewColumn(name string, kind Kind, values []any) *Column {
	return &Column{Name: name, Kind: kind, Values: values}
}

// Len returns the number of cells
func (c *Column) Len() int {
	return len(c.Values)
}

// IsNull reports whether cell i is missing
func (c *Column) IsNull(i int) bool {
	return c.Values[i] == nil
}

// Count returns the number of non-missing cells
func (c *Column) Count() int {
	n := 0
	for _, v := range c.Values {
		if v != nil {
			n++
		}
	}
	return n
}

// Floats returns the non-missing values as float64 for numeric columns
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		switch x := v.(type) {
		case float64:
			out = append(out, x)
		case int64:
			out = append(out, float64(x))
		}
	}
	return out
}

func (c *Column) slice(start, end int) *Column {
	values := make([]any, end-start)
	copy(values, c.Values[start:end])
	return &Column{Name: c.Name, Kind: c.Kind, Values: values}
}
