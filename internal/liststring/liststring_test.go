package liststring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want []string
	}{
		{"quoted comma", "['a', 'b, c']", []string{"a", "b, c"}},
		{"empty list", "[]", []string{""}},
		{"not a string", 42, []string{}},
		{"nil", nil, []string{}},
		{"double quotes", `["CASA", "BOTTEGA"]`, []string{"CASA", "BOTTEGA"}},
		{"mixed quotes", `["it's", 'b']`, []string{"it's", "b"}},
		{"bare words", "[CASA, BOTTEGA]", []string{"CASA", "BOTTEGA"}},
		{"apostrophe in bare word", "[d'oro, b]", []string{"d'oro", "b"}},
		{"surrounding whitespace", "  [ 'x' ,  'y' ]  ", []string{"x", "y"}},
		{"tuple", "('x', 'y')", []string{"x", "y"}},
		{"keeps duplicates", "['a', 'a']", []string{"a", "a"}},
		{"keeps inner spaces", "[' a ']", []string{" a "}},
		{"escaped quote", `['a\', b', 'c']`, []string{`a\', b`, "c"}},
		{"empty string", "", []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestNonEmpty(t *testing.T) {
	assert.Equal(t, []string{}, NonEmpty(Parse("[]")))
	assert.Equal(t, []string{"a", "b"}, NonEmpty([]string{"", "a", "", "b"}))
}

func TestContains(t *testing.T) {
	tokens := Parse("['CASA', 'BOTTEGA']")
	assert.True(t, Contains(tokens, "CASA"))
	assert.False(t, Contains(tokens, "casa"))
}
