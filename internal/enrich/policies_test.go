package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sommarioni/sommarioni/internal/dataset"
	"github.com/sommarioni/sommarioni/pkg/types"
)

func TestOwnership(t *testing.T) {
	p := Ownership{Column: "ownership_types"}

	props, ok := p.Derive([]types.Record{
		record("1", "ownership_types", "['ecclesiastico', 'privato']"),
		record("1", "ownership_types", "['privato', '']"),
		record("1", "ownership_types", nil),
		record("1", "ownership_types", "['pubblico, demanio']"),
	})
	require.True(t, ok)
	assert.Equal(t, []string{"ecclesiastico", "privato", "pubblico, demanio"}, props["ownership_types"])

	_, ok = p.Derive(nil)
	assert.False(t, ok)

	_, ok = p.Derive([]types.Record{record("1", "ownership_types", "[]")})
	assert.False(t, ok)
}

func TestExpropriation(t *testing.T) {
	p := Expropriation{PublicEntity: "venezia_entities"}

	assert.False(t, p.IsExpropriation(types.ExpropriationRecord{OwnerClass: "venezia_entities", PreviousOwnerClass: ""}))
	assert.True(t, p.IsExpropriation(types.ExpropriationRecord{OwnerClass: "venezia_entities", PreviousOwnerClass: "privati"}))
	assert.False(t, p.IsExpropriation(types.ExpropriationRecord{OwnerClass: "venezia_entities", PreviousOwnerClass: "venezia_entities"}))
	assert.False(t, p.IsExpropriation(types.ExpropriationRecord{OwnerClass: "privati", PreviousOwnerClass: "ecclesiastici"}))

	keep := record("1", types.ColOwnerClass, "venezia_entities", types.ColPreviousOwnerClass, "privati")
	props, ok := p.Derive([]types.Record{
		record("1", types.ColOwnerClass, "venezia_entities", types.ColPreviousOwnerClass, nil),
		keep,
		record("1", types.ColOwnerClass, "venezia_entities", types.ColPreviousOwnerClass, ""),
	})
	require.True(t, ok)
	assert.Equal(t, []types.Record{keep}, props[PropExpropriations])
	assert.Equal(t, 1, props[PropExpropriationCount])

	_, ok = p.Derive([]types.Record{record("1", types.ColOwnerClass, "privati")})
	assert.False(t, ok)
}

func TestAverageSurface(t *testing.T) {
	p := AverageSurface{Quality: "CASA"}

	props, ok := p.Derive([]types.Record{
		record("1", types.ColQualities, "['CASA']", types.ColArea, 100.0),
		record("1", types.ColQualities, "['CASA']", types.ColArea, -5.0),
		record("1", types.ColQualities, "['CASA', 'CORTE']", types.ColArea, "200"),
		record("1", types.ColQualities, "['BOTTEGA']", types.ColArea, 10000.0),
		record("1", types.ColQualities, "['CASA']", types.ColArea, nil),
	})
	require.True(t, ok)
	assert.Equal(t, 150.0, props[PropSurface])

	_, ok = p.Derive([]types.Record{record("1", types.ColQualities, "['CASA']", types.ColArea, 0.0)})
	assert.False(t, ok)

	_, ok = p.Derive([]types.Record{record("1", types.ColQualities, "['casa']", types.ColArea, 10.0)})
	assert.False(t, ok, "quality tokens match exactly")
}

func TestPorzione(t *testing.T) {
	p := Porzione{Marker: "porzion"}

	props, ok := p.Derive([]types.Record{
		record("1", types.ColQuality, "PORZIONE di casa e porzione di corte"),
		record("1", types.ColQuality, "casa"),
		record("1", types.ColQuality, nil),
	})
	require.True(t, ok)
	assert.Equal(t, 2, props[PropPorzioneCount])

	props, ok = p.Derive(nil)
	require.True(t, ok)
	assert.Equal(t, 0, props[PropPorzioneCount])

	assert.Zero(t, CountMarker([]types.Record{record("1", types.ColQuality, "porzione")}, ""))
}

func TestParishAverages(t *testing.T) {
	parcels := collection(
		feature("1", PropParcelParish, "San Marco", PropSurface, 100.0),
		feature("2", PropParcelParish, "San Marco", PropSurface, 300.0),
		feature("3", PropParcelParish, "Castello", PropSurface, 50.0),
		feature("4", PropSurface, 999.0),
	)
	parishes := &types.FeatureCollection{Type: "FeatureCollection", Features: []types.Feature{
		{Type: "Feature", Properties: types.Properties{PropParishName: "San Marco"}},
		{Type: "Feature", Properties: types.Properties{PropParishName: "Castello"}},
		{Type: "Feature", Properties: types.Properties{PropParishName: "Dorsoduro"}},
	}}

	out := ParishAverages(parishes, parcels)
	require.Len(t, out.Features, 3)
	assert.Equal(t, 200.0, out.Features[0].Properties[PropAverageSurface])
	assert.Equal(t, 50.0, out.Features[1].Properties[PropAverageSurface])
	assert.Equal(t, 0.0, out.Features[2].Properties[PropAverageSurface])

	_, touched := parishes.Features[0].Properties[PropAverageSurface]
	assert.False(t, touched)

	assert.Zero(t, ParishAverages(nil, parcels).Len())
}

func TestPolicies_JSONRegistryArrays(t *testing.T) {
	const registry = `[
  {"geometry_id": 7, "ownership_types": ["PRIVATE", "CHURCH"], "qualities": ["CASA"], "area": 100},
  {"geometry_id": 7, "ownership_types": ["PRIVATE"], "qualities": ["CASA", "ORTO"], "area": 200},
  {"geometry_id": 7, "ownership_types": [], "qualities": ["BOTTEGA"], "area": 50}
]`
	records, err := dataset.DecodeRegistry(strings.NewReader(registry), dataset.FormatJSON)
	require.NoError(t, err)
	require.Len(t, records, 3)

	props, ok := Ownership{Column: "ownership_types"}.Derive(records)
	require.True(t, ok)
	assert.Equal(t, []string{"PRIVATE", "CHURCH"}, props["ownership_types"])

	props, ok = AverageSurface{Quality: "CASA"}.Derive(records)
	require.True(t, ok)
	assert.Equal(t, 150.0, props[PropSurface])
}

func TestAverageSurface_NonFiniteArea(t *testing.T) {
	const registry = "geometry_id,qualities,area\n" +
		"1,['CASA'],inf\n" +
		"1,['CASA'],-Infinity\n" +
		"1,['CASA'],NaN\n"
	records, err := dataset.DecodeRegistry(strings.NewReader(registry), dataset.FormatCSV)
	require.NoError(t, err)

	p := AverageSurface{Quality: "CASA"}
	_, ok := p.Derive(records)
	assert.False(t, ok)

	records = append(records, record("1", types.ColQualities, "['CASA']", types.ColArea, "80"))
	props, ok := p.Derive(records)
	require.True(t, ok)
	assert.Equal(t, 80.0, props[PropSurface])
}
