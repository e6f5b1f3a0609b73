package aggregate

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_GroupSum(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	key := func(v int) string { return string(rune('A' + v%4)) }
	value := func(v int) float64 { return float64(v % 7) }

	properties.Property("sums are non-increasing", prop.ForAll(
		func(values []int) bool {
			rows := GroupSum(values, key, value)
			for i := 1; i < len(rows); i++ {
				if rows[i].Value > rows[i-1].Value {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.Property("total is preserved and keys are distinct", prop.ForAll(
		func(values []int) bool {
			want := 0.0
			for _, v := range values {
				want += value(v)
			}
			got := 0.0
			seen := make(map[string]bool)
			for _, r := range GroupSum(values, key, value) {
				if seen[r.Name] {
					return false
				}
				seen[r.Name] = true
				got += r.Value
			}
			return got == want
		},
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.Property("gini stays within [0, 1)", prop.ForAll(
		func(values []float64) bool {
			g := Gini(values)
			return g > -1e-9 && g < 1
		},
		gen.SliceOf(gen.Float64Range(0, 1000)),
	))

	properties.TestingRun(t)
}
