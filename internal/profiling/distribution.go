package profiling

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DistributionAnalyzer handles distribution shape analysis
type DistributionAnalyzer struct{}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{}
}

// AnalyzeDistribution computes summary statistics and shape for data
func (da *DistributionAnalyzer) AnalyzeDistribution(data []float64) (Summary, Shape, error) {
	var summary Summary
	var shape Shape
	var err error

	if summary.Mean, err = stats.Mean(data); err != nil {
		return summary, shape, err
	}
	if summary.StdDev, err = stats.StandardDeviation(data); err != nil {
		return summary, shape, err
	}
	if summary.Min, err = stats.Min(data); err != nil {
		return summary, shape, err
	}
	if summary.Max, err = stats.Max(data); err != nil {
		return summary, shape, err
	}
	if summary.Median, err = stats.Median(data); err != nil {
		return summary, shape, err
	}
	if summary.Q25, err = stats.PercentileNearestRank(data, 25); err != nil {
		return summary, shape, err
	}
	if summary.Q75, err = stats.PercentileNearestRank(data, 75); err != nil {
		return summary, shape, err
	}

	if len(data) >= 3 && summary.StdDev > 0 {
		shape.Skewness = stat.Skew(data, nil)
	}
	if len(data) >= 4 && summary.StdDev > 0 {
		shape.ExcessKurtosis = stat.ExKurtosis(data, nil)
	}
	shape.IsNormal, shape.NormalityP = testNormality(len(data), shape.Skewness, shape.ExcessKurtosis)
	shape.Outliers = detectOutliers(data, summary.Q25, summary.Q75)

	return summary, shape, nil
}

// testNormality is the Jarque-Bera test; its statistic is chi-squared with
// two degrees of freedom under normality
func testNormality(n int, skewness, excessKurtosis float64) (isNormal bool, pValue float64) {
	if n < 3 {
		return false, 1.0
	}

	jb := float64(n) / 6 * (skewness*skewness + excessKurtosis*excessKurtosis/4)
	chiDist := distuv.ChiSquared{K: 2}
	pValue = 1 - chiDist.CDF(jb)
	if math.IsNaN(pValue) {
		return false, 1.0
	}

	return pValue > 0.05, pValue
}

// detectOutliers identifies outliers using IQR method
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}

	return outlierCount
}
