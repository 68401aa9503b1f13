package coercer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"tabio/domain/table"
)

// TypeCoercer turns raw text cells into typed columns with fixed rules
type TypeCoercer struct {
	config  CoercionConfig
	missing map[string]bool
	truthy  map[string]bool
	falsy   map[string]bool
}

// CoercionConfig defines the tokens recognised while inferring column kinds
type CoercionConfig struct {
	MissingTokens []string `json:"missing_tokens"` // cells read as missing
	TrueTokens    []string `json:"true_tokens"`
	FalseTokens   []string `json:"false_tokens"`
	TrimSpace     bool     `json:"trim_space"` // trim before parsing numbers and booleans
}

// DefaultCoercionConfig mirrors the usual dataframe reader defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		MissingTokens: []string{
			"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
			"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
		},
		TrueTokens:  []string{"True", "TRUE", "true"},
		FalseTokens: []string{"False", "FALSE", "false"},
		TrimSpace:   true,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{
		config:  config,
		missing: toSet(config.MissingTokens),
		truthy:  toSet(config.TrueTokens),
		falsy:   toSet(config.FalseTokens),
	}
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int        `json:"total_count"`
	ValidCount      int        `json:"valid_count"`
	IntCount        int        `json:"int_count"`
	FloatCount      int        `json:"float_count"`
	BooleanCount    int        `json:"boolean_count"`
	RecommendedKind table.Kind `json:"recommended_kind"`
}

// IsMissing reports whether a raw cell is a missing-value token
func (c *TypeCoercer) IsMissing(s string) bool {
	return c.missing[s]
}

// AnalyzeTypeDistribution counts how many non-missing cells parse as each kind
func (c *TypeCoercer) AnalyzeTypeDistribution(cells []string) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(cells)}

	for _, raw := range cells {
		if c.IsMissing(raw) {
			continue
		}
		analysis.ValidCount++
		s := c.clean(raw)
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			analysis.IntCount++
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			analysis.FloatCount++
		}
		if c.truthy[s] || c.falsy[s] {
			analysis.BooleanCount++
		}
	}

	analysis.RecommendedKind = c.determineRecommendedKind(analysis)
	return analysis
}

// determineRecommendedKind picks the narrowest kind every valid cell parses as
func (c *TypeCoercer) determineRecommendedKind(analysis TypeAnalysis) table.Kind {
	switch {
	case analysis.ValidCount == 0:
		return table.KindFloat
	case analysis.IntCount == analysis.ValidCount:
		return table.KindInt
	case analysis.FloatCount == analysis.ValidCount:
		return table.KindFloat
	case analysis.BooleanCount == analysis.ValidCount:
		return table.KindBool
	default:
		return table.KindString
	}
}

// ColumnFromStrings builds a typed column from raw text cells
func (c *TypeCoercer) ColumnFromStrings(name string, cells []string) *table.Column {
	kind := c.AnalyzeTypeDistribution(cells).RecommendedKind
	values := make([]any, len(cells))
	for i, raw := range cells {
		if c.IsMissing(raw) {
			continue
		}
		values[i] = c.parse(kind, raw)
	}
	return table.NewColumn(name, kind, values)
}

func (c *TypeCoercer) parse(kind table.Kind, raw string) any {
	s := c.clean(raw)
	switch kind {
	case table.KindInt:
		v, _ := strconv.ParseInt(s, 10, 64)
		return v
	case table.KindFloat:
		v, _ := strconv.ParseFloat(s, 64)
		return v
	case table.KindBool:
		return c.truthy[s]
	default:
		return raw
	}
}

func (c *TypeCoercer) clean(s string) string {
	if c.config.TrimSpace {
		return strings.TrimSpace(s)
	}
	return s
}

// ToFloatColumn coerces every non-missing value of col to float64.
// It reports false and returns col untouched when any value does not convert.
func (c *TypeCoercer) ToFloatColumn(col *table.Column) (*table.Column, bool) {
	values := make([]any, len(col.Values))
	for i, v := range col.Values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && c.IsMissing(s) {
			continue
		}
		f, ok := c.ToFloat(v)
		if !ok {
			return col, false
		}
		values[i] = f
	}
	return table.NewColumn(col.Name, table.KindFloat, values), true
}

// ToFloat converts a single typed value to float64
func (c *TypeCoercer) ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(c.clean(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Normalize derives a kind from values produced by a typed reader. Mixed
// int and float values are widened to float64; NaN floats become missing.
func Normalize(values []any) (table.Kind, []any) {
	kind, seen := table.KindObject, false
	mixedNumeric := false
	for i, v := range values {
		if f, ok := v.(float64); ok && math.IsNaN(f) {
			values[i] = nil
			continue
		}
		if v == nil {
			continue
		}
		k := kindOf(v)
		switch {
		case !seen:
			kind, seen = k, true
		case k == kind:
		case k.IsNumeric() && kind.IsNumeric():
			kind, mixedNumeric = table.KindFloat, true
		default:
			return table.KindObject, values
		}
	}
	if !seen {
		return table.KindFloat, values
	}
	if mixedNumeric {
		for i, v := range values {
			if n, ok := v.(int64); ok {
				values[i] = float64(n)
			}
		}
	}
	return kind, values
}

func kindOf(v any) table.Kind {
	switch v.(type) {
	case int64:
		return table.KindInt
	case float64:
		return table.KindFloat
	case bool:
		return table.KindBool
	case string:
		return table.KindString
	case time.Time:
		return table.KindTime
	default:
		return table.KindObject
	}
}
