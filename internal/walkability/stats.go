package walkability

import (
	"math"

	"github.com/sommarioni/sommarioni/internal/aggregate"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// IndicatorStats summarises the strictly positive values of an indicator.
// Summary.HasData is false when no feature carries a positive value.
func IndicatorStats(fc *types.FeatureCollection, name string) (aggregate.Summary, error) {
	values, err := Values(fc, name)
	if err != nil {
		return aggregate.Summary{}, err
	}
	return aggregate.DescribePositive(values), nil
}

// DatasetStats is the overview of a walkability dataset.
type DatasetStats struct {
	TotalPoints      int     `json:"total_points"`
	AvgPOICount      float64 `json:"avg_poi_count"`
	MaxPOICount      float64 `json:"max_poi_count"`
	AvgDiversity     float64 `json:"avg_diversity"`
	AvgReachableArea float64 `json:"avg_reachable_area_m2"`
}

// Overview computes the dataset overview. Averages run over every feature,
// with missing values counted as 0; the POI and area means are rounded to
// integers and the diversity mean to one decimal.
func Overview(fc *types.FeatureCollection) DatasetStats {
	n := fc.Len()
	if n == 0 {
		return DatasetStats{}
	}

	var poi, diversity, area aggregate.Accumulator
	for _, f := range fc.Features {
		poi.Add(plain(POICount)(f.Properties))
		diversity.Add(plain(POIDiversity)(f.Properties))
		area.Add(plain(propReachableArea)(f.Properties))
	}
	return DatasetStats{
		TotalPoints:      n,
		AvgPOICount:      roundHalfUp(poi.Mean()),
		MaxPOICount:      poi.Max,
		AvgDiversity:     roundHalfUp(diversity.Mean()*10) / 10,
		AvgReachableArea: roundHalfUp(area.Mean()),
	}
}

// roundHalfUp rounds halves towards positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
