package profiling

import "tabio/domain/table"

// Summary holds location and spread of a numeric column
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// Shape describes the distribution of a numeric column
type Shape struct {
	Skewness       float64 `json:"skewness"`
	ExcessKurtosis float64 `json:"excess_kurtosis"`
	IsNormal       bool    `json:"is_normal"`
	NormalityP     float64 `json:"normality_p"`
	Outliers       int     `json:"outliers"` // outside 1.5 IQR of the quartiles
}

// ColumnProfile is the per-column result of DataProfiler
type ColumnProfile struct {
	Name     string     `json:"name"`
	Kind     table.Kind `json:"kind"`
	Count    int        `json:"count"`
	Missing  int        `json:"missing"`
	Distinct int        `json:"distinct"`
	Numeric  bool       `json:"numeric"` // Summary and Shape are set
	Summary  Summary    `json:"summary"`
	Shape    Shape      `json:"shape"`
}
