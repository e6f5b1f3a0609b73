package enrich

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sommarioni/sommarioni/internal/aggregate"
	"github.com/sommarioni/sommarioni/internal/liststring"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// Properties written by the built-in policies.
const (
	PropExpropriations     = "expropriations"
	PropExpropriationCount = "expropriation_count"
	PropSurface            = "surface"
	PropPorzioneCount      = "porzione_count"
)

// Ownership collects the category tokens of one registry column across the
// matching records. The feature gets the deduplicated tokens, in first-seen
// order, under the column's own name.
type Ownership struct {
	Column string
}

func (p Ownership) Name() string { return "ownership" }

func (p Ownership) Derive(records []types.Record) (types.Properties, bool) {
	if len(records) == 0 {
		return nil, false
	}
	seen := make(map[string]struct{})
	var values []string
	for _, r := range records {
		for _, tok := range liststring.NonEmpty(liststring.Tokens(r.Ownership(p.Column).Values)) {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			values = append(values, tok)
		}
	}
	if len(values) == 0 {
		return nil, false
	}
	return types.Properties{p.Column: values}, true
}

// Expropriation keeps the records in which a public entity acquired the
// parcel from an owner of another, known class.
type Expropriation struct {
	PublicEntity string
}

func (p Expropriation) Name() string { return "expropriation" }

// IsExpropriation reports whether r transfers ownership to the public
// entity from a prior owner of a different, non-empty class.
func (p Expropriation) IsExpropriation(r types.ExpropriationRecord) bool {
	return r.OwnerClass == p.PublicEntity &&
		r.PreviousOwnerClass != "" &&
		r.PreviousOwnerClass != p.PublicEntity
}

func (p Expropriation) Derive(records []types.Record) (types.Properties, bool) {
	var matched []types.Record
	for _, r := range records {
		if p.IsExpropriation(r.Expropriation()) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil, false
	}
	return types.Properties{
		PropExpropriations:     matched,
		PropExpropriationCount: len(matched),
	}, true
}

// AverageSurface averages the positive areas of the records whose qualities
// include a target token.
type AverageSurface struct {
	Quality string
}

func (p AverageSurface) Name() string { return "average_surface" }

func (p AverageSurface) Derive(records []types.Record) (types.Properties, bool) {
	var areas []float64
	for _, r := range records {
		q := r.Quality()
		if q.HasArea && liststring.Contains(liststring.Tokens(q.Qualities), p.Quality) {
			areas = append(areas, q.Area)
		}
	}
	mean := aggregate.MeanPositive(areas)
	if mean <= 0 {
		return nil, false
	}
	return types.Properties{PropSurface: mean}, true
}

// Porzione counts case-insensitive occurrences of a marker in the free-text
// quality of the matching records. Every feature with an id is kept, with a
// zero count when nothing matches.
type Porzione struct {
	Marker string
}

func (p Porzione) Name() string { return "porzione" }

func (p Porzione) Derive(records []types.Record) (types.Properties, bool) {
	return types.Properties{PropPorzioneCount: CountMarker(records, p.Marker)}, true
}

// CountMarker sums the non-overlapping, case-folded occurrences of marker in
// the quality column of records. An empty marker counts nothing.
func CountMarker(records []types.Record, marker string) int {
	if marker == "" {
		return 0
	}
	fold := cases.Fold()
	needle := fold.String(marker)
	count := 0
	for _, r := range records {
		count += strings.Count(fold.String(r.Porzione().Quality), needle)
	}
	return count
}
