package enrich

import (
	"github.com/sommarioni/sommarioni/internal/aggregate"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// Parish roll-up property names.
const (
	PropParishName     = "NAME"
	PropParcelParish   = "parish_standardized"
	PropAverageSurface = "average_surface"
)

// ParishAverages returns a copy of parishes in which every parish carries
// the mean positive surface of the parcels that name it, or 0 when none do.
// parcels is normally the output of the AverageSurface policy.
func ParishAverages(parishes, parcels *types.FeatureCollection) *types.FeatureCollection {
	byParish := make(map[string][]float64)
	if parcels != nil {
		for _, f := range parcels.Features {
			name := f.Properties.String(PropParcelParish)
			if name == "" {
				continue
			}
			if s, ok := f.Properties.Float(PropSurface); ok {
				byParish[name] = append(byParish[name], s)
			}
		}
	}

	out := types.NewFeatureCollection(parishes, parishes.Len())
	if parishes == nil {
		return out
	}
	for _, f := range parishes.Features {
		props := f.Properties.Clone()
		props[PropAverageSurface] = aggregate.MeanPositive(byParish[f.Properties.String(PropParishName)])
		out.Features = append(out.Features, f.WithProperties(props))
	}
	return out
}
