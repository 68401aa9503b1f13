package profiling

import (
	"tabio/domain/table"
	"tabio/internal"
)

// DataProfiler summarises every column of a table
type DataProfiler struct {
	analyzer *DistributionAnalyzer
	logger   *internal.Logger
}

// NewDataProfiler creates a new data profiler
func NewDataProfiler(logger *internal.Logger) *DataProfiler {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &DataProfiler{analyzer: NewDistributionAnalyzer(), logger: logger}
}

// ProfileColumn counts values and, for numeric columns with data, adds
// summary statistics and distribution shape
func (dp *DataProfiler) ProfileColumn(col *table.Column) ColumnProfile {
	profile := ColumnProfile{
		Name:    col.Name,
		Kind:    col.Kind,
		Count:   col.Count(),
		Missing: col.Len() - col.Count(),
	}

	distinct := make(map[string]struct{})
	for _, v := range col.Values {
		if v != nil {
			distinct[table.FormatValue(v)] = struct{}{}
		}
	}
	profile.Distinct = len(distinct)

	if !col.Kind.IsNumeric() || profile.Count == 0 {
		return profile
	}
	summary, shape, err := dp.analyzer.AnalyzeDistribution(col.Floats())
	if err != nil {
		dp.logger.Debug("[DataProfiler] skipping statistics for %s: %v", col.Name, err)
		return profile
	}
	profile.Numeric = true
	profile.Summary = summary
	profile.Shape = shape
	return profile
}

// ProfileTable analyzes all columns in order
func (dp *DataProfiler) ProfileTable(t *table.Table) []ColumnProfile {
	results := make([]ColumnProfile, 0, t.NumCols())
	for _, col := range t.Columns() {
		results = append(results, dp.ProfileColumn(col))
	}
	return results
}
