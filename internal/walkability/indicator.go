// Package walkability reads the walkability indicators carried by isochrone
// features and summarises them for the statistics panels.
package walkability

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sommarioni/sommarioni/internal/aggregate"
	serrors "github.com/sommarioni/sommarioni/internal/errors"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// Indicator property names.
const (
	POICount          = "poi_count"
	POIDiversity      = "poi_diversity"
	BottegaCount      = "bottega_count"
	BottegaDiversity  = "bottega_diversity"
	ShannonBottega    = "shannon_bottega"
	RentSum           = "rent_sum"
	RentMean          = "rent_mean"
	RentMedian        = "rent_median"
	OwnerEntityCounts = "owner_entity_counts"
	MultiOwnerCount   = "multi_owner_count"
	GiniOwner         = "gini_owner"
)

// Source properties that some indicators are read from or derived from.
const (
	propPOITypes      = "poi_types"
	propBottegaTypes  = "bottega_types"
	propReachableArea = "reachable_area_m2"
	bottegaType       = "BOTTEGA"
)

type extractor func(types.Properties) float64

var extractors = map[string]extractor{
	POICount:          plain(POICount),
	POIDiversity:      plain(POIDiversity),
	BottegaCount:      bottegaCount,
	BottegaDiversity:  plain(BottegaDiversity),
	ShannonBottega:    shannonBottega,
	RentSum:           plain(RentSum),
	RentMean:          plain(RentMean),
	RentMedian:        plain(RentMedian),
	OwnerEntityCounts: ownerEntityCount,
	MultiOwnerCount:   plain(MultiOwnerCount),
	GiniOwner:         giniOwner,
}

// Indicators lists the known indicator names in order.
func Indicators() []string {
	names := make([]string, 0, len(extractors))
	for name := range extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is a walkability indicator.
func Known(name string) bool {
	_, ok := extractors[name]
	return ok
}

// Value reads indicator name from props. Missing or non-numeric values are 0.
func Value(props types.Properties, name string) (float64, error) {
	ex, ok := extractors[name]
	if !ok {
		return 0, unknown(name)
	}
	return ex(props), nil
}

// Values reads indicator name from every feature of fc.
func Values(fc *types.FeatureCollection, name string) ([]float64, error) {
	ex, ok := extractors[name]
	if !ok {
		return nil, unknown(name)
	}
	if fc == nil {
		return nil, nil
	}
	out := make([]float64, len(fc.Features))
	for i, f := range fc.Features {
		out[i] = ex(f.Properties)
	}
	return out, nil
}

func unknown(name string) error {
	return serrors.NewValidationError(serrors.CodeUnknownIndicator,
		fmt.Sprintf("unknown walkability indicator %q", name)).
		WithDetails(map[string]interface{}{"indicator": name})
}

func plain(key string) extractor {
	return func(p types.Properties) float64 {
		v, _ := p.Float(key)
		return v
	}
}

func bottegaCount(p types.Properties) float64 {
	v, _ := toFloat(object(p[propPOITypes])[bottegaType])
	return v
}

func ownerEntityCount(p types.Properties) float64 {
	return float64(len(object(p[OwnerEntityCounts])))
}

func giniOwner(p types.Properties) float64 {
	if v, ok := p.Float(GiniOwner); ok {
		return v
	}
	counts := object(p[OwnerEntityCounts])
	values := make([]float64, 0, len(counts))
	for _, c := range counts {
		if v, ok := toFloat(c); ok {
			values = append(values, v)
		}
	}
	return aggregate.Gini(values)
}

func shannonBottega(p types.Properties) float64 {
	if v, ok := p.Float(ShannonBottega); ok {
		return v
	}
	counts := object(p[propBottegaTypes])
	dist := make(map[string]float64, len(counts))
	for k, c := range counts {
		if v, ok := toFloat(c); ok {
			dist[k] = v
		}
	}
	return aggregate.Shannon(dist)
}

// object returns v as a JSON object. Objects serialised into a string
// property are decoded; anything else is an empty object.
func object(v interface{}) map[string]interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return val
	case types.Properties:
		return val
	case string:
		var m map[string]interface{}
		if json.Unmarshal([]byte(val), &m) == nil {
			return m
		}
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	return types.Properties{"v": v}.Float("v")
}
