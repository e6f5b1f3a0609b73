// Package aggregate computes the roll-ups behind tables, legends and
// statistics panels: grouped sums, token frequencies and descriptive
// statistics. Every function is pure and allocates its result.
package aggregate

import "math"

// Accumulator folds a stream of numbers into count, sum, min and max.
type Accumulator struct {
	Count int
	Sum   float64
	Min   float64
	Max   float64
	IsSet bool
}

// Add folds v into the accumulator. NaN and infinite values are ignored.
func (a *Accumulator) Add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if !a.IsSet || v < a.Min {
		a.Min = v
	}
	if !a.IsSet || v > a.Max {
		a.Max = v
	}
	a.Sum += v
	a.Count++
	a.IsSet = true
}

// Mean returns the arithmetic mean, or 0 when nothing was added.
func (a *Accumulator) Mean() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.Sum / float64(a.Count)
}

// MeanPositive returns the mean of the strictly positive values, or 0 when
// there are none.
func MeanPositive(values []float64) float64 {
	var acc Accumulator
	for _, v := range values {
		if v > 0 {
			acc.Add(v)
		}
	}
	return acc.Mean()
}
