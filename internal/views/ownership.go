package views

import (
	"context"

	"github.com/sommarioni/sommarioni/internal/aggregate"
	"github.com/sommarioni/sommarioni/internal/enrich"
	"github.com/sommarioni/sommarioni/internal/identifier"
	"github.com/sommarioni/sommarioni/internal/liststring"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// TableCategories is the ownership view's category frequency table.
const TableCategories = "categories"

func (b *Builder) buildOwnership(ctx context.Context, in Inputs) (*View, error) {
	column := b.settings.OwnershipColumn
	v, err := b.enrich(ctx, in.Parcels, enrich.Ownership{Column: column})
	if err != nil {
		return nil, err
	}

	var order []string
	ids := make(map[string][]string)
	var lists [][]string
	for _, f := range v.Collection.Features {
		categories, _ := f.Properties[column].([]string)
		lists = append(lists, categories)
		id := identifier.Normalize(f.GeometryID())
		for _, c := range categories {
			if _, ok := ids[c]; !ok {
				order = append(order, c)
			}
			ids[c] = append(ids[c], id)
		}
	}
	v.Layers = groupLayers(order, ids)
	v.Tables = []types.Table{{Name: TableCategories, Rows: aggregate.Frequencies(lists)}}
	v.Institutions = Institutions(in.Registry, b.settings.UnknownOwner, b.settings.TopInstitutions)
	return v, nil
}

// Institutions ranks owners by their number of registry rows, drops the
// unknown-owner sentinel, keeps the top n and lists, per owner, every
// non-empty quality that occurs more than twice. Owners keep their rank
// order; qualities within an owner are most frequent first.
func Institutions(registry []types.Record, unknownOwner string, n int) []types.QualityCount {
	byOwner := make(map[string][]types.Record)
	for _, r := range registry {
		owner := r.String(types.ColOwner)
		byOwner[owner] = append(byOwner[owner], r)
	}
	ranked := aggregate.GroupCount(registry, func(r types.Record) string { return r.String(types.ColOwner) })
	ranked = aggregate.Top(aggregate.Without(ranked, unknownOwner), n)

	var out []types.QualityCount
	for _, owner := range ranked {
		var lists [][]string
		for _, r := range byOwner[owner.Name] {
			lists = append(lists, liststring.Tokens(r[types.ColQualities]))
		}
		for _, q := range aggregate.Frequencies(lists) {
			if q.Value > 2 && q.Name != "" {
				out = append(out, types.QualityCount{Name: owner.Name, Quality: q.Name, Count: int(q.Value)})
			}
		}
	}
	return out
}
