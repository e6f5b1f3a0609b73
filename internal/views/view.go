// Package views composes the map views served to the presentation layer:
// each view is an enriched feature collection plus the aggregate tables,
// layer groups and colour scheme its map needs.
package views

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sommarioni/sommarioni/internal/aggregate"
	"github.com/sommarioni/sommarioni/internal/choropleth"
	"github.com/sommarioni/sommarioni/internal/enrich"
	serrors "github.com/sommarioni/sommarioni/internal/errors"
	"github.com/sommarioni/sommarioni/internal/logging"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// View names.
const (
	Ownership      = "ownership"
	Expropriation  = "expropriation"
	AverageSurface = "average_surface"
	Porzione       = "porzione"
	Walkability    = "walkability"
)

// PropFillColor is the property carrying a feature's choropleth colour.
const PropFillColor = "fill_color"

// Names lists the built-in views in build order.
func Names() []string {
	return []string{Ownership, Expropriation, AverageSurface, Porzione, Walkability}
}

// Settings configures the view policies.
type Settings struct {
	OwnershipColumn string
	PublicEntity    string
	TargetQuality   string
	PorzioneMarker  string
	UnknownOwner    string
	TopInstitutions int
}

// DefaultSettings returns the settings of the published maps.
func DefaultSettings() Settings {
	return Settings{
		OwnershipColumn: "ownership_types",
		PublicEntity:    "venezia_entities",
		TargetQuality:   "CASA",
		PorzioneMarker:  "porzion",
		UnknownOwner:    "possessore ignoto",
		TopInstitutions: 10,
	}
}

// Inputs are the decoded datasets a view is built from. Parishes and
// Walkability are optional.
type Inputs struct {
	Parcels     *types.FeatureCollection
	Registry    []types.Record
	Parishes    *types.FeatureCollection
	Walkability *types.FeatureCollection
}

// LayerGroup is a toggleable map layer: a category and the features in it.
type LayerGroup struct {
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	GeometryIDs []string `json:"geometry_ids"`
}

// Counts reports how the enrichment pass treated the input features.
type Counts struct {
	Input     int `json:"input"`
	Kept      int `json:"kept"`
	Dropped   int `json:"dropped"`
	MissingID int `json:"missing_id"`
	Unmatched int `json:"unmatched"`
}

// View is one built map view.
type View struct {
	Name         string                   `json:"name"`
	BuiltAt      time.Time                `json:"built_at"`
	Collection   *types.FeatureCollection `json:"-"`
	Parishes     *types.FeatureCollection `json:"-"`
	Counts       Counts                   `json:"counts"`
	Statistic    string                   `json:"statistic,omitempty"`
	Scheme       *choropleth.Scheme       `json:"scheme,omitempty"`
	Stats        *aggregate.Summary       `json:"stats,omitempty"`
	Tables       []types.Table            `json:"tables,omitempty"`
	Institutions []types.QualityCount     `json:"institutions,omitempty"`
	Layers       []LayerGroup             `json:"layers,omitempty"`
	Overview     interface{}              `json:"overview,omitempty"`
}

// Table returns the named table.
func (v *View) Table(name string) (types.Table, bool) {
	for _, t := range v.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return types.Table{}, false
}

// Builder builds views from a shared registry index.
type Builder struct {
	enricher *enrich.Enricher
	settings Settings
	logger   logging.Logger
	now      func() time.Time
}

// NewBuilder creates a Builder. The enricher's index must have been built
// from the same registry that is later passed in Inputs.
func NewBuilder(enricher *enrich.Enricher, settings Settings, logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Builder{
		enricher: enricher,
		settings: settings,
		logger:   logger.Named("views"),
		now:      time.Now,
	}
}

// Build builds the named view.
func (b *Builder) Build(ctx context.Context, name string, in Inputs) (*View, error) {
	var (
		v   *View
		err error
	)
	switch name {
	case Ownership:
		v, err = b.buildOwnership(ctx, in)
	case Expropriation:
		v, err = b.buildExpropriation(ctx, in)
	case AverageSurface:
		v, err = b.buildAverageSurface(ctx, in)
	case Porzione:
		v, err = b.buildPorzione(ctx, in)
	case Walkability:
		v, err = b.buildWalkability(in)
	default:
		return nil, serrors.NewValidationError(serrors.CodeUnknownView, fmt.Sprintf("unknown view %q", name)).
			WithDetails(map[string]interface{}{"view": name})
	}
	if err != nil {
		return nil, err
	}
	v.Name = name
	v.BuiltAt = b.now().UTC()
	return v, nil
}

// BuildAll builds every view whose inputs are present. The walkability view
// is skipped when no walkability layer was loaded.
func (b *Builder) BuildAll(ctx context.Context, in Inputs) (map[string]*View, error) {
	out := make(map[string]*View, len(Names()))
	for _, name := range Names() {
		if name == Walkability && in.Walkability == nil {
			b.logger.Info("skipping view without input", logging.String("view", name))
			continue
		}
		v, err := b.Build(ctx, name, in)
		if err != nil {
			return nil, fmt.Errorf("build view %s: %w", name, err)
		}
		b.logger.Info("view built",
			logging.String("view", name),
			logging.Int("features", v.Collection.Len()),
			logging.Int("dropped", v.Counts.Dropped),
			logging.Int("tables", len(v.Tables)))
		out[name] = v
	}
	return out, nil
}

func (b *Builder) enrich(ctx context.Context, fc *types.FeatureCollection, p enrich.Policy) (*View, error) {
	res, err := b.enricher.Enrich(ctx, fc, p)
	if err != nil {
		return nil, err
	}
	return &View{
		Collection: res.Collection,
		Counts: Counts{
			Input:     fc.Len(),
			Kept:      res.Kept,
			Dropped:   res.Dropped,
			MissingID: res.MissingID,
			Unmatched: res.Unmatched,
		},
	}, nil
}

// paint sets the choropleth scheme of v, colours every feature by prop and
// summarises the positive values of prop. The collection belongs to the
// view, so features are annotated in place.
func paint(v *View, fc *types.FeatureCollection, prop string, scheme choropleth.Scheme) {
	v.Statistic = prop
	v.Scheme = &scheme
	if fc == nil {
		return
	}
	values := make([]float64, len(fc.Features))
	for i, f := range fc.Features {
		values[i], _ = f.Properties.Float(prop)
		f.Properties[PropFillColor] = scheme.Color(values[i])
	}
	s := aggregate.DescribePositive(values)
	v.Stats = &s
}

// groupLayers turns category -> ids into layer groups, in order of keys.
func groupLayers(keys []string, ids map[string][]string) []LayerGroup {
	layers := make([]LayerGroup, 0, len(keys))
	for _, k := range keys {
		layers = append(layers, LayerGroup{
			Name:        k,
			Color:       choropleth.SeedColor(k),
			GeometryIDs: ids[k],
		})
	}
	return layers
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
