package aggregate

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sommarioni/sommarioni/pkg/types"
)

type kv struct {
	k string
	v float64
}

func TestGroupSum_DescendingBySum(t *testing.T) {
	rows := []kv{{"A", 3}, {"B", 5}, {"A", 1}}
	got := GroupSum(rows, func(r kv) string { return r.k }, func(r kv) float64 { return r.v })
	assert.Equal(t, []types.AggregateRow{{Name: "B", Value: 5}, {Name: "A", Value: 4}}, got)
}

func TestGroupSum_TiesKeepFirstSeenOrder(t *testing.T) {
	rows := []kv{{"C", 2}, {"A", 1}, {"B", 2}, {"A", 1}, {"D", 1}}
	got := GroupSum(rows, func(r kv) string { return r.k }, func(r kv) float64 { return r.v })
	names := make([]string, len(got))
	for i, r := range got {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"C", "A", "B", "D"}, names)
}

func TestGroupSum_Empty(t *testing.T) {
	got := GroupSum([]kv(nil), func(r kv) string { return r.k }, func(r kv) float64 { return r.v })
	assert.Empty(t, got)
}

func TestGroupCount(t *testing.T) {
	got := GroupCount([]string{"x", "y", "y"}, func(s string) string { return s })
	assert.Equal(t, []types.AggregateRow{{Name: "y", Value: 2}, {Name: "x", Value: 1}}, got)
}

func TestTopAndWithout(t *testing.T) {
	rows := []types.AggregateRow{{Name: "a", Value: 3}, {Name: "possessore ignoto", Value: 2}, {Name: "b", Value: 1}}
	assert.Len(t, Top(rows, 2), 2)
	assert.Len(t, Top(rows, 10), 3)
	assert.Len(t, Top(rows, -1), 3)
	assert.Equal(t, []types.AggregateRow{{Name: "a", Value: 3}, {Name: "b", Value: 1}}, Without(rows, "possessore ignoto"))
}

func TestFrequencies(t *testing.T) {
	lists := [][]string{{"CASA", "BOTTEGA"}, {"CASA"}, {}, {"ORTO", "CASA", "ORTO"}}
	assert.Equal(t, map[string]int{"CASA": 3, "BOTTEGA": 1, "ORTO": 2}, CountTokens(lists))
	assert.Equal(t, []types.AggregateRow{
		{Name: "CASA", Value: 3},
		{Name: "ORTO", Value: 2},
		{Name: "BOTTEGA", Value: 1},
	}, Frequencies(lists))
}

func TestMeanPositive(t *testing.T) {
	assert.Equal(t, 150.0, MeanPositive([]float64{100, -5, 200}))
	assert.Equal(t, 0.0, MeanPositive([]float64{0, -1}))
	assert.Equal(t, 0.0, MeanPositive(nil))
}

func TestDescribePositive(t *testing.T) {
	s := DescribePositive([]float64{4, 0, 1, -2, 3, 2})
	assert.Equal(t, Summary{Total: 6, Valid: 4, Mean: 2.5, Median: 3, Min: 1, Max: 4, HasData: true}, s)

	empty := DescribePositive([]float64{0, -1})
	assert.False(t, empty.HasData)
	assert.Equal(t, 2, empty.Total)
	assert.Zero(t, empty.Mean)
}

func TestDescribe_KeepsNonPositive(t *testing.T) {
	s := Describe([]float64{-1, 0, 4, math.NaN()})
	assert.Equal(t, 3, s.Valid)
	assert.Equal(t, -1.0, s.Min)
	assert.Equal(t, 0.0, s.Median)
	assert.InDelta(t, 1.0, s.Mean, 1e-9)
}

func TestGini(t *testing.T) {
	assert.Equal(t, 0.0, Gini(nil))
	assert.Equal(t, 0.0, Gini([]float64{0, 0}))
	assert.InDelta(t, 0.0, Gini([]float64{5, 5, 5, 5}), 1e-12)
	assert.InDelta(t, 0.75, Gini([]float64{0, 0, 0, 10}), 1e-12)
	assert.InDelta(t, Gini([]float64{1, 2, 3}), Gini([]float64{3, 1, 2, -7}), 1e-12)
}

func TestShannon(t *testing.T) {
	assert.Equal(t, 0.0, Shannon(nil))
	assert.Equal(t, 0.0, Shannon(map[string]float64{"a": 4}))
	assert.InDelta(t, math.Log(2), Shannon(map[string]float64{"a": 1, "b": 1}), 1e-12)
	assert.InDelta(t, math.Log(3), Shannon(map[string]float64{"a": 2, "b": 2, "c": 2, "d": 0}), 1e-12)
}

func TestShannon_Deterministic(t *testing.T) {
	counts := make(map[string]float64)
	for i := 0; i < 40; i++ {
		counts[fmt.Sprintf("cat-%02d", i)] = float64(i%7) + 0.1*float64(i)
	}
	want := Shannon(counts)
	for i := 0; i < 50; i++ {
		assert.Equal(t, want, Shannon(counts))
	}
}

func TestAccumulator_IgnoresInfinities(t *testing.T) {
	var acc Accumulator
	for _, v := range []float64{math.Inf(1), 4, math.Inf(-1)} {
		acc.Add(v)
	}
	assert.Equal(t, 1, acc.Count)
	assert.Equal(t, 4.0, acc.Max)
	assert.Equal(t, 4.0, MeanPositive([]float64{math.Inf(1), 4}))

	s := DescribePositive([]float64{math.Inf(1), 2, 6})
	assert.Equal(t, 2, s.Valid)
	assert.Equal(t, 6.0, s.Max)
	assert.Equal(t, 6.0, s.Median)
}

func TestAccumulator(t *testing.T) {
	var acc Accumulator
	assert.Zero(t, acc.Mean())
	for _, v := range []float64{3, -1, math.NaN(), 7} {
		acc.Add(v)
	}
	require.True(t, acc.IsSet)
	assert.Equal(t, 3, acc.Count)
	assert.Equal(t, -1.0, acc.Min)
	assert.Equal(t, 7.0, acc.Max)
	assert.InDelta(t, 3.0, acc.Mean(), 1e-12)
}
