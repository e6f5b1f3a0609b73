package aggregate

import (
	"math"
	"sort"
)

// Summary holds descriptive statistics over a numeric sample. HasData is
// false when no value qualified; every other field is then zero.
type Summary struct {
	Total   int     `json:"total"`
	Valid   int     `json:"valid"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	HasData bool    `json:"has_data"`
}

// Describe summarises every finite value.
func Describe(values []float64) Summary {
	return describe(values, func(v float64) bool { return !math.IsNaN(v) })
}

// DescribePositive summarises the strictly positive values only; this is the
// "valid values" sample of statistics panels.
func DescribePositive(values []float64) Summary {
	return describe(values, func(v float64) bool { return v > 0 })
}

func describe(values []float64, keep func(float64) bool) Summary {
	s := Summary{Total: len(values)}
	sample := make([]float64, 0, len(values))
	var acc Accumulator
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) && keep(v) {
			sample = append(sample, v)
			acc.Add(v)
		}
	}
	if len(sample) == 0 {
		return s
	}

	sort.Float64s(sample)
	s.Valid = len(sample)
	s.Mean = acc.Mean()
	s.Median = sample[len(sample)/2]
	s.Min = acc.Min
	s.Max = acc.Max
	s.HasData = true
	return s
}

// Gini returns the Gini coefficient of the non-negative values, 0 for an
// empty sample or a zero total.
//
//	G = sum_i (2i - n - 1) x_i / (n * sum x), with x sorted ascending, i from 1
func Gini(values []float64) float64 {
	sample := make([]float64, 0, len(values))
	sum := 0.0
	for _, v := range values {
		if v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
			sample = append(sample, v)
			sum += v
		}
	}
	n := len(sample)
	if n == 0 || sum == 0 {
		return 0
	}

	sort.Float64s(sample)
	weighted := 0.0
	for i, x := range sample {
		weighted += float64(2*(i+1)-n-1) * x
	}
	return weighted / (float64(n) * sum)
}

// Shannon returns the Shannon diversity index (natural log) of a category
// count distribution. Non-positive counts are ignored. Categories are folded
// in name order so equal inputs give bit-identical results.
func Shannon(counts map[string]float64) float64 {
	names := make([]string, 0, len(counts))
	total := 0.0
	for name, c := range counts {
		if c > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		total += counts[name]
	}
	if total == 0 {
		return 0
	}

	h := 0.0
	for _, name := range names {
		p := counts[name] / total
		h -= p * math.Log(p)
	}
	return h
}
