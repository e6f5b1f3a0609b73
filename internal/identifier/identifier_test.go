package identifier

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, ""},
		{"string", "7", "7"},
		{"padded string", " 7 ", "7"},
		{"float64 integral", float64(7), "7"},
		{"float64 fraction", 7.25, "7.25"},
		{"large float", float64(1234567), "1234567"},
		{"int", 7, "7"},
		{"int64", int64(-3), "-3"},
		{"uint32", uint32(9), "9"},
		{"json number", json.Number("42"), "42"},
		{"json number float", json.Number("4.50"), "4.5"},
		{"nan", math.NaN(), ""},
		{"inf", math.Inf(1), ""},
		{"bool", true, "true"},
		{"decomposed accent", "Santé", "Santé"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_NumericAndStringJoin(t *testing.T) {
	assert.Equal(t, Normalize("7"), Normalize(float64(7)))
	assert.Equal(t, Normalize("7"), Normalize(7))
}

func TestUsable(t *testing.T) {
	_, ok := Usable(nil)
	assert.False(t, ok)
	_, ok = Usable("   ")
	assert.False(t, ok)

	id, ok := Usable(0)
	assert.True(t, ok)
	assert.Equal(t, "0", id)
}
