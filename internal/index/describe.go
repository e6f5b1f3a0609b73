package index

import (
	"sort"

	"github.com/sommarioni/sommarioni/pkg/types"
)

// DefaultExclude lists the columns left out of popup entries by default.
var DefaultExclude = []string{types.GeometryIDKey, types.ColUniqueID}

// Field is one column/value pair of a described registry record.
type Field struct {
	Column string      `json:"column"`
	Value  interface{} `json:"value"`
}

// Describe lists the columns of r, sorted by name, skipping null values and
// the columns in exclude.
func Describe(r types.Record, exclude []string) []Field {
	skip := make(map[string]struct{}, len(exclude))
	for _, col := range exclude {
		skip[col] = struct{}{}
	}

	fields := make([]Field, 0, len(r))
	for col, v := range r {
		if v == nil {
			continue
		}
		if _, ok := skip[col]; ok {
			continue
		}
		fields = append(fields, Field{Column: col, Value: v})
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Column < fields[j].Column
	})
	return fields
}

// DescribeAll describes every record of a lookup result.
func DescribeAll(records []types.Record, exclude []string) [][]Field {
	out := make([][]Field, len(records))
	for i, r := range records {
		out[i] = Describe(r, exclude)
	}
	return out
}
