package aggregate

import (
	"sort"

	"github.com/sommarioni/sommarioni/pkg/types"
)

// GroupSum groups rows by key and sums value per group. The result is sorted
// by sum, largest first; groups with equal sums keep first-seen order.
func GroupSum[T any](rows []T, key func(T) string, value func(T) float64) []types.AggregateRow {
	positions := make(map[string]int)
	var out []types.AggregateRow
	for _, row := range rows {
		k := key(row)
		i, ok := positions[k]
		if !ok {
			i = len(out)
			positions[k] = i
			out = append(out, types.AggregateRow{Name: k})
		}
		out[i].Value += value(row)
	}
	SortDesc(out)
	return out
}

// GroupCount is GroupSum with every row counting one.
func GroupCount[T any](rows []T, key func(T) string) []types.AggregateRow {
	return GroupSum(rows, key, func(T) float64 { return 1 })
}

// SortDesc sorts rows by value, largest first, keeping the relative order of
// equal values.
func SortDesc(rows []types.AggregateRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Value > rows[j].Value
	})
}

// Top returns at most n leading rows. A negative n keeps every row.
func Top(rows []types.AggregateRow, n int) []types.AggregateRow {
	if n < 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}

// Without returns rows minus the ones named name.
func Without(rows []types.AggregateRow, name string) []types.AggregateRow {
	out := make([]types.AggregateRow, 0, len(rows))
	for _, r := range rows {
		if r.Name != name {
			out = append(out, r)
		}
	}
	return out
}
