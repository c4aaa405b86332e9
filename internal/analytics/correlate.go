package analytics

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"

	"air-quality-platform/internal/dataset"
	"air-quality-platform/internal/models"
)

// Sampling defaults for the correlation scatter.
const (
	DefaultSampleSize = 1000
	DefaultSampleSeed = 42
)

// CorrelationOptions controls the display sample drawn by Correlate.
type CorrelationOptions struct {
	SampleSize int
	Seed       uint64
}

// DefaultCorrelationOptions returns a 1000-point sample with seed 42
func DefaultCorrelationOptions() CorrelationOptions {
	return CorrelationOptions{SampleSize: DefaultSampleSize, Seed: DefaultSampleSeed}
}

// pairs holds the complete (x, y) observations of two columns.
type pairs struct {
	xs []float64
	ys []float64
}

func (p *pairs) add(x, y float64) {
	p.xs = append(p.xs, x)
	p.ys = append(p.ys, y)
}

// pearson returns r, or false when fewer than two pairs or either side is constant.
func (p *pairs) pearson() (float64, bool) {
	if len(p.xs) < 2 || constant(p.xs) || constant(p.ys) {
		return 0, false
	}
	r := stat.Correlation(p.xs, p.ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, r)), true
}

// line returns the least-squares fit y = slope*x + intercept.
func (p *pairs) line() (models.RegressionLine, bool) {
	if len(p.xs) < 2 || constant(p.xs) {
		return models.RegressionLine{}, false
	}
	intercept, slope := stat.LinearRegression(p.xs, p.ys, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) || math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return models.RegressionLine{}, false
	}
	return models.RegressionLine{Slope: slope, Intercept: intercept}, true
}

// constant reports whether every value equals the first.
func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// Correlate measures the linear association between covariate and target
// over the rows of view where both are present. The coefficient uses every
// such row; the returned sample and its fitted line are for display only.
func Correlate(view dataset.View, covariate, target string, opts CorrelationOptions) (models.Correlation, error) {
	result := models.Correlation{Covariate: covariate, Target: target, Sample: []models.SamplePoint{}}

	xs, err := column(view, covariate)
	if err != nil {
		return result, err
	}
	ys, err := column(view, target)
	if err != nil {
		return result, err
	}

	var full pairs
	complete := make([]int, 0, view.Len())
	for k := 0; k < view.Len(); k++ {
		row := view.Row(k)
		x, y := xs.At(row), ys.At(row)
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		full.add(x, y)
		complete = append(complete, row)
	}

	result.N = len(complete)
	result.Coefficient, result.Defined = full.pearson()

	rows := sampleRows(complete, opts)
	var fit pairs
	for _, row := range rows {
		x, y := xs.At(row), ys.At(row)
		result.Sample = append(result.Sample, models.SamplePoint{X: x, Y: y})
		fit.add(x, y)
	}
	if line, ok := fit.line(); ok {
		result.Fit = &line
	}
	return result, nil
}

// sampleRows draws min(size, len(rows)) rows without replacement using a
// seeded PCG source, returned in their original order. The same rows and
// options always give the same sample.
func sampleRows(rows []int, opts CorrelationOptions) []int {
	size := opts.SampleSize
	if size <= 0 {
		size = DefaultSampleSize
	}
	if len(rows) <= size {
		return rows
	}

	picked := make([]int, len(rows))
	copy(picked, rows)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	// partial Fisher-Yates: the first size slots become the sample
	for i := 0; i < size; i++ {
		j := i + rng.IntN(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	picked = picked[:size]
	sort.Ints(picked)
	return picked
}
