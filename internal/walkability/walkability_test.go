package walkability

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/sommarioni/sommarioni/internal/errors"
	"github.com/sommarioni/sommarioni/pkg/types"
)

func point(props types.Properties) types.Feature {
	return types.Feature{Type: "Feature", Properties: props}
}

func collection(features ...types.Feature) *types.FeatureCollection {
	fc := types.NewFeatureCollection(nil, len(features))
	fc.Features = append(fc.Features, features...)
	return fc
}

func TestValue_Plain(t *testing.T) {
	v, err := Value(types.Properties{"poi_count": 42.0}, POICount)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)

	v, err = Value(types.Properties{}, RentMean)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestValue_BottegaCountFromPOITypes(t *testing.T) {
	props := types.Properties{"poi_types": map[string]interface{}{"BOTTEGA": 7.0, "CASA": 3.0}}
	v, err := Value(props, BottegaCount)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	v, err = Value(types.Properties{"poi_types": `{"BOTTEGA": 4}`}, BottegaCount)
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)
}

func TestValue_OwnerEntityCountIsKeyCount(t *testing.T) {
	props := types.Properties{"owner_entity_counts": map[string]interface{}{"a": 1.0, "b": 5.0, "c": 2.0}}
	v, err := Value(props, OwnerEntityCounts)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestValue_GiniFallback(t *testing.T) {
	equal := types.Properties{"owner_entity_counts": map[string]interface{}{"a": 2.0, "b": 2.0}}
	v, err := Value(equal, GiniOwner)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, v, 1e-12)

	given := types.Properties{"gini_owner": 0.35, "owner_entity_counts": map[string]interface{}{"a": 1.0}}
	v, err = Value(given, GiniOwner)
	require.NoError(t, err)
	assert.Equal(t, 0.35, v)
}

func TestValue_ShannonFallback(t *testing.T) {
	props := types.Properties{"bottega_types": map[string]interface{}{"x": 1.0, "y": 1.0}}
	v, err := Value(props, ShannonBottega)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(2), v, 1e-12)
}

func TestValue_UnknownIndicator(t *testing.T) {
	_, err := Value(types.Properties{}, "footfall")
	require.Error(t, err)
	assert.Equal(t, serrors.ErrCategoryValidation, serrors.GetCategory(err))
	assert.Equal(t, serrors.CodeUnknownIndicator, serrors.GetCode(err))

	_, err = IndicatorStats(collection(), "footfall")
	assert.Error(t, err)
}

func TestIndicators(t *testing.T) {
	names := Indicators()
	assert.Len(t, names, 11)
	assert.True(t, Known(RentMedian))
	assert.False(t, Known("rent"))
}

func TestIndicatorStats_PositiveOnly(t *testing.T) {
	fc := collection(
		point(types.Properties{"rent_sum": 0.0}),
		point(types.Properties{"rent_sum": 30.0}),
		point(types.Properties{"rent_sum": 10.0}),
		point(types.Properties{"rent_sum": 20.0}),
		point(types.Properties{}),
	)
	s, err := IndicatorStats(fc, RentSum)
	require.NoError(t, err)
	assert.True(t, s.HasData)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 3, s.Valid)
	assert.Equal(t, 20.0, s.Mean)
	assert.Equal(t, 20.0, s.Median)
	assert.Equal(t, 10.0, s.Min)
	assert.Equal(t, 30.0, s.Max)
}

func TestIndicatorStats_NoData(t *testing.T) {
	s, err := IndicatorStats(collection(point(types.Properties{"poi_count": 0.0})), POICount)
	require.NoError(t, err)
	assert.False(t, s.HasData)
}

func TestOverview(t *testing.T) {
	fc := collection(
		point(types.Properties{"poi_count": 10.0, "poi_diversity": 2.0, "reachable_area_m2": 1000.0}),
		point(types.Properties{"poi_count": 15.0, "poi_diversity": 3.25, "reachable_area_m2": 1001.0}),
	)
	got := Overview(fc)
	assert.Equal(t, DatasetStats{
		TotalPoints:      2,
		AvgPOICount:      13,
		MaxPOICount:      15,
		AvgDiversity:     2.6,
		AvgReachableArea: 1001,
	}, got)

	assert.Equal(t, DatasetStats{}, Overview(nil))
}
