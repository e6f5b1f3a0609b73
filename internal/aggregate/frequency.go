package aggregate

import "github.com/sommarioni/sommarioni/pkg/types"

// CountTokens counts how often each token occurs across lists.
func CountTokens(lists [][]string) map[string]int {
	counts := make(map[string]int)
	for _, tokens := range lists {
		for _, t := range tokens {
			counts[t]++
		}
	}
	return counts
}

// Frequencies is CountTokens as rows, most frequent first, ties in
// first-seen order.
func Frequencies(lists [][]string) []types.AggregateRow {
	var flat []string
	for _, tokens := range lists {
		flat = append(flat, tokens...)
	}
	return GroupCount(flat, func(t string) string { return t })
}
