package views

import (
	"context"
	"strings"

	"github.com/sommarioni/sommarioni/internal/aggregate"
	"github.com/sommarioni/sommarioni/internal/choropleth"
	"github.com/sommarioni/sommarioni/internal/enrich"
	"github.com/sommarioni/sommarioni/internal/identifier"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// Expropriation tables.
const (
	TableByPreviousOwner = "by_previous_owner"
	TableByOwner         = "by_owner"
	TableByGroup         = "by_group"
)

// ExpropriationFact is one expropriated record joined to its parcel.
type ExpropriationFact struct {
	GeometryID    string  `json:"geometry_id"`
	PreviousOwner string  `json:"previous_owner"`
	Owner         string  `json:"owner"`
	Surface       float64 `json:"surface"`
	Group         string  `json:"group"`
}

// ExpropriationFacts flattens the expropriations of enriched features. The
// surface of a fact is the area of its parcel.
func ExpropriationFacts(fc *types.FeatureCollection) []ExpropriationFact {
	if fc == nil {
		return nil
	}
	var facts []ExpropriationFact
	for _, f := range fc.Features {
		records, _ := f.Properties[enrich.PropExpropriations].([]types.Record)
		area, _ := f.Properties.Float(types.ColArea)
		id := identifier.Normalize(f.GeometryID())
		for _, r := range records {
			e := r.Expropriation()
			facts = append(facts, ExpropriationFact{
				GeometryID:    id,
				PreviousOwner: strings.TrimSpace(e.PreviousOwner),
				Owner:         strings.TrimSpace(e.Owner),
				Surface:       area,
				Group:         strings.TrimSpace(e.PreviousOwnerClass),
			})
		}
	}
	return facts
}

// ExpropriationTables sums the surface of facts by previous owner, by new
// owner and by previous owner class.
func ExpropriationTables(facts []ExpropriationFact) []types.Table {
	surface := func(f ExpropriationFact) float64 { return f.Surface }
	return []types.Table{
		{Name: TableByPreviousOwner, Rows: aggregate.GroupSum(facts, func(f ExpropriationFact) string { return f.PreviousOwner }, surface)},
		{Name: TableByOwner, Rows: aggregate.GroupSum(facts, func(f ExpropriationFact) string { return f.Owner }, surface)},
		{Name: TableByGroup, Rows: aggregate.GroupSum(facts, func(f ExpropriationFact) string { return f.Group }, surface)},
	}
}

func (b *Builder) buildExpropriation(ctx context.Context, in Inputs) (*View, error) {
	v, err := b.enrich(ctx, in.Parcels, enrich.Expropriation{PublicEntity: b.settings.PublicEntity})
	if err != nil {
		return nil, err
	}

	facts := ExpropriationFacts(v.Collection)
	v.Tables = ExpropriationTables(facts)

	ids := make(map[string][]string)
	seen := make(map[[2]string]bool)
	for _, f := range facts {
		key := [2]string{f.Group, f.GeometryID}
		if !seen[key] {
			seen[key] = true
			ids[f.Group] = append(ids[f.Group], f.GeometryID)
		}
	}
	v.Layers = groupLayers(sortedKeys(ids), ids)
	paint(v, v.Collection, enrich.PropExpropriationCount, choropleth.Expropriation)
	return v, nil
}
