// Package liststring parses list values serialised as text in the registry,
// e.g. "['CASA', 'BOTTEGA, con corte']".
package liststring

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse splits a serialised list into its tokens.
//
// A single leading and trailing bracket is stripped, the remainder is split on
// commas that are not inside a quoted element, and each token is trimmed and
// loses one layer of matching quotes. Tokens keep their order and are not
// deduplicated. Non-string input yields an empty slice. "[]" yields a single
// empty token; use NonEmpty to drop those.
func Parse(raw interface{}) []string {
	s, ok := raw.(string)
	if !ok {
		return []string{}
	}
	s = stripBrackets(strings.TrimSpace(s))

	parts := split(s)
	tokens := make([]string, len(parts))
	for i, p := range parts {
		tokens[i] = unquote(strings.TrimSpace(p))
	}
	return tokens
}

// Tokens reads a list column whatever its decoded shape: a JSON array
// ([]interface{} or []string) is taken element by element, anything else
// goes through Parse. Array elements are not trimmed; nil elements give "".
func Tokens(v interface{}) []string {
	switch val := v.(type) {
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, element(item))
		}
		return out
	default:
		return Parse(v)
	}
}

func element(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// NonEmpty returns the tokens of tokens that are not empty.
func NonEmpty(tokens []string) []string {
	out := tokens[:0:0]
	for _, t := range tokens {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Contains reports whether token occurs in tokens.
func Contains(tokens []string, token string) bool {
	for _, t := range tokens {
		if t == token {
			return true
		}
	}
	return false
}

func stripBrackets(s string) string {
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "(") {
		s = s[1:]
	}
	if strings.HasSuffix(s, "]") || strings.HasSuffix(s, ")") {
		s = s[:len(s)-1]
	}
	return s
}

// split cuts s on top-level commas. A quote only opens an element when it is
// the first non-blank character of that element, so apostrophes inside bare
// words ("d'oro") do not swallow the rest of the list.
func split(s string) []string {
	var (
		parts   []string
		start   int
		quote   byte
		escaped bool
		fresh   = true
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
		case c == ',':
			parts = append(parts, s[start:i])
			start = i + 1
			fresh = true
		case fresh && (c == '\'' || c == '"'):
			quote = c
			fresh = false
		case c != ' ' && c != '\t' && c != '\n' && c != '\r':
			fresh = false
		}
	}
	return append(parts, s[start:])
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' || first == '"') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
