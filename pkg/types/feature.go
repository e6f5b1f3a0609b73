// Package types provides the core data types shared by the Sommarioni
// registry join and aggregation packages.
package types

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// GeometryIDKey is the property (on features) and column (on registry
// records) that links a parcel geometry to its registry entries.
const GeometryIDKey = "geometry_id"

// Properties holds the attribute bag of a GeoJSON feature.
type Properties map[string]interface{}

// Clone returns a shallow copy of the property map. Nested values are shared;
// callers add keys to the copy and never edit nested values in place.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p)+2)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Float returns the numeric value of key. Numeric strings are accepted.
func (p Properties) Float(key string) (float64, bool) {
	return toFloat(p[key])
}

// String returns the value of key rendered as text, or "" when absent.
func (p Properties) String(key string) string {
	return toString(p[key])
}

// Feature is a GeoJSON feature. The geometry is carried verbatim: nothing in
// the join or aggregation layers inspects coordinates.
type Feature struct {
	Type       string          `json:"type"`
	ID         interface{}     `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties Properties      `json:"properties"`
}

// GeometryID returns the raw geometry identifier of the feature.
func (f Feature) GeometryID() interface{} {
	return f.Properties[GeometryIDKey]
}

// WithProperties returns a copy of f carrying props.
func (f Feature) WithProperties(props Properties) Feature {
	f.Properties = props
	return f
}

// FeatureCollection is a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string          `json:"type"`
	Name     string          `json:"name,omitempty"`
	CRS      json.RawMessage `json:"crs,omitempty"`
	Features []Feature       `json:"features"`
}

// NewFeatureCollection returns an empty collection that inherits the
// descriptive members (name, crs) of template when it is non-nil.
func NewFeatureCollection(template *FeatureCollection, capacity int) *FeatureCollection {
	fc := &FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]Feature, 0, capacity),
	}
	if template != nil {
		fc.Name = template.Name
		fc.CRS = template.CRS
	}
	return fc
}

// Len returns the number of features, treating a nil collection as empty.
func (fc *FeatureCollection) Len() int {
	if fc == nil {
		return 0
	}
	return len(fc.Features)
}

// toFloat reads v as a finite number. NaN and infinities, whether stored or
// spelled out in a string ("inf", "NaN"), are not numbers here.
func toFloat(v interface{}) (float64, bool) {
	f, ok := rawFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func rawFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		if f, ok := rawFloat(val); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
