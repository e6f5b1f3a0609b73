package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord_StringAndFloat(t *testing.T) {
	r := Record{
		"geometry_id": float64(7),
		"area":        "120.5",
		"owner":       nil,
		"count":       json.Number("3"),
	}

	assert.Equal(t, "7", r.String("geometry_id"))
	assert.Equal(t, "", r.String("owner"))
	assert.Equal(t, "", r.String("missing"))

	area, ok := r.Float("area")
	assert.True(t, ok)
	assert.InDelta(t, 120.5, area, 1e-9)

	n, ok := r.Float("count")
	assert.True(t, ok)
	assert.Equal(t, 3.0, n)

	_, ok = r.Float("owner")
	assert.False(t, ok)
}

func TestRecord_FloatRejectsNonFinite(t *testing.T) {
	for _, v := range []interface{}{"inf", "+Inf", "-Infinity", "NaN", math.Inf(1), math.NaN(), json.Number("1e400")} {
		_, ok := Record{ColArea: v}.Float(ColArea)
		assert.False(t, ok, "%v", v)
	}

	q := Record{ColQualities: "['CASA']", ColArea: "inf"}.Quality()
	assert.False(t, q.HasArea)
}

func TestRecord_Expropriation_NullClassIsEmpty(t *testing.T) {
	r := Record{
		ColOwner:              "Demanio",
		ColOwnerClass:         "venezia_entities",
		ColPreviousOwner:      "Scuola Grande",
		ColPreviousOwnerClass: nil,
	}
	e := r.Expropriation()
	assert.Equal(t, "venezia_entities", e.OwnerClass)
	assert.Equal(t, "", e.PreviousOwnerClass)
	assert.Equal(t, "Scuola Grande", e.PreviousOwner)
}

func TestRecord_Quality(t *testing.T) {
	q := Record{ColQualities: "['CASA']", ColArea: 150}.Quality()
	assert.True(t, q.HasArea)
	assert.Equal(t, 150.0, q.Area)

	q = Record{ColQualities: "['CASA']"}.Quality()
	assert.False(t, q.HasArea)
}

func TestProperties_CloneIsIndependent(t *testing.T) {
	p := Properties{"a": 1}
	c := p.Clone()
	c["b"] = 2
	_, ok := p["b"]
	assert.False(t, ok)
	assert.Equal(t, 1, c["a"])
}
