package views

import (
	"context"

	"github.com/sommarioni/sommarioni/internal/aggregate"
	"github.com/sommarioni/sommarioni/internal/choropleth"
	"github.com/sommarioni/sommarioni/internal/enrich"
	"github.com/sommarioni/sommarioni/internal/walkability"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// TableByParish is the average-surface view's parish table.
const TableByParish = "by_parish"

func (b *Builder) buildAverageSurface(ctx context.Context, in Inputs) (*View, error) {
	v, err := b.enrich(ctx, in.Parcels, enrich.AverageSurface{Quality: b.settings.TargetQuality})
	if err != nil {
		return nil, err
	}
	paint(v, v.Collection, enrich.PropSurface, choropleth.AverageSurface)

	if in.Parishes != nil {
		v.Parishes = enrich.ParishAverages(in.Parishes, v.Collection)
		rows := make([]types.AggregateRow, 0, v.Parishes.Len())
		for _, f := range v.Parishes.Features {
			avg, _ := f.Properties.Float(enrich.PropAverageSurface)
			f.Properties[PropFillColor] = choropleth.AverageSurface.Color(avg)
			rows = append(rows, types.AggregateRow{Name: f.Properties.String(enrich.PropParishName), Value: avg})
		}
		aggregate.SortDesc(rows)
		v.Tables = append(v.Tables, types.Table{Name: TableByParish, Rows: rows})
	}
	return v, nil
}

func (b *Builder) buildPorzione(ctx context.Context, in Inputs) (*View, error) {
	v, err := b.enrich(ctx, in.Parcels, enrich.Porzione{Marker: b.settings.PorzioneMarker})
	if err != nil {
		return nil, err
	}
	paint(v, v.Collection, enrich.PropPorzioneCount, choropleth.Porzione)
	return v, nil
}

// buildWalkability serves the walkability layer as loaded: its indicators
// are precomputed, so nothing is joined.
func (b *Builder) buildWalkability(in Inputs) (*View, error) {
	fc := types.NewFeatureCollection(in.Walkability, in.Walkability.Len())
	if in.Walkability != nil {
		for _, f := range in.Walkability.Features {
			fc.Features = append(fc.Features, f.WithProperties(f.Properties.Clone()))
		}
	}
	v := &View{
		Collection: fc,
		Counts:     Counts{Input: fc.Len(), Kept: fc.Len()},
		Overview:   walkability.Overview(fc),
	}
	paint(v, fc, walkability.POICount, choropleth.Walkability)
	return v, nil
}
