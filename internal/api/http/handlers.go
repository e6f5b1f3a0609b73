package http

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sommarioni/sommarioni/internal/aggregate"
	"github.com/sommarioni/sommarioni/internal/choropleth"
	"github.com/sommarioni/sommarioni/internal/dataset"
	serrors "github.com/sommarioni/sommarioni/internal/errors"
	"github.com/sommarioni/sommarioni/internal/export"
	"github.com/sommarioni/sommarioni/internal/identifier"
	"github.com/sommarioni/sommarioni/internal/index"
	"github.com/sommarioni/sommarioni/internal/logging"
	"github.com/sommarioni/sommarioni/internal/observability"
	"github.com/sommarioni/sommarioni/internal/views"
	"github.com/sommarioni/sommarioni/internal/walkability"
	"github.com/sommarioni/sommarioni/pkg/types"
)

const (
	defaultStatsLimit = 20
	maxStatsLimit     = 1000

	contentTypeGeoJSON = "application/geo+json"
	contentTypeXLSX    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handler serves the read-only API.
type Handler struct {
	views        map[string]*views.View
	registry     RegistryLookup
	popupExclude []string
	lookups      *observability.LookupStats
	logger       logging.Logger
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Views    int    `json:"views"`
	Registry bool   `json:"registry"`
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Views:    len(h.views),
		Registry: h.registry != nil,
	})
}

// ViewSummary describes one view in listings and table responses.
type ViewSummary struct {
	*views.View
	Features int `json:"features"`
}

// ListViews handles GET /v1/views.
func (h *Handler) ListViews(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.views))
	for name := range h.views {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ViewSummary, 0, len(names))
	for _, name := range names {
		v := h.views[name]
		out = append(out, ViewSummary{View: v, Features: v.Collection.Len()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"views": out})
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) (*views.View, bool) {
	name := chi.URLParam(r, "view")
	v, ok := h.views[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown view %q", name), serrors.CodeUnknownView, GetRequestID(r.Context()))
		return nil, false
	}
	return v, true
}

// GetView handles GET /v1/views/{view}: the enriched feature collection.
// ?layer=parishes selects the parish roll-up of the average-surface view.
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}

	fc := v.Collection
	switch layer := r.URL.Query().Get("layer"); layer {
	case "", "parcels":
	case "parishes":
		if v.Parishes == nil {
			writeErr(w, r, serrors.NewValidationError(serrors.CodeInvalidInput,
				fmt.Sprintf("view %q has no parish layer", v.Name)))
			return
		}
		fc = v.Parishes
	default:
		writeErr(w, r, serrors.NewValidationError(serrors.CodeInvalidInput, fmt.Sprintf("unknown layer %q", layer)))
		return
	}

	var buf bytes.Buffer
	if err := dataset.EncodeFeatures(&buf, fc); err != nil {
		writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeGeoJSON)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// GetTables handles GET /v1/views/{view}/tables. ?format=xlsx returns the
// tables as a workbook.
func (h *Handler) GetTables(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, ViewSummary{View: v, Features: v.Collection.Len()})
	case "xlsx":
		data, err := export.Bytes(v.Sheets())
		if err != nil {
			writeErr(w, r, serrors.NewInternalError("render workbook", err))
			return
		}
		w.Header().Set("Content-Type", contentTypeXLSX)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", v.Name+".xlsx"))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	default:
		writeErr(w, r, serrors.NewValidationError(serrors.CodeInvalidInput, fmt.Sprintf("unknown format %q", format)))
	}
}

// LegendResponse is the body of GET /v1/views/{view}/legend.
type LegendResponse struct {
	View      string             `json:"view"`
	Statistic string             `json:"statistic,omitempty"`
	Scheme    string             `json:"scheme,omitempty"`
	Label     string             `json:"label,omitempty"`
	Bins      []choropleth.Bin   `json:"bins,omitempty"`
	Layers    []views.LayerGroup `json:"layers,omitempty"`
	Stats     *aggregate.Summary `json:"stats,omitempty"`
}

// GetLegend handles GET /v1/views/{view}/legend.
func (h *Handler) GetLegend(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	resp := LegendResponse{View: v.Name, Statistic: v.Statistic, Layers: v.Layers, Stats: v.Stats}
	if v.Scheme != nil {
		resp.Scheme = v.Scheme.Name
		resp.Label = v.Scheme.Label
		resp.Bins = v.Scheme.Legend()
	}
	writeJSON(w, http.StatusOK, resp)
}

// RegistryResponse is the body of GET /v1/registry/{geometryID}.
type RegistryResponse struct {
	GeometryID string          `json:"geometry_id"`
	Records    [][]index.Field `json:"records"`
}

// GetRegistry handles GET /v1/registry/{geometryID}: the popup entries of
// one parcel.
func (h *Handler) GetRegistry(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeErr(w, r, serrors.NewDatasetError(serrors.CodeDatasetMissing, "registry index not loaded", nil))
		return
	}
	id, ok := identifier.Usable(chi.URLParam(r, "geometryID"))
	if !ok {
		writeErr(w, r, serrors.NewValidationError(serrors.CodeInvalidInput, "geometry id is empty"))
		return
	}

	records, err := h.registry.Lookup(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if h.lookups != nil {
		h.lookups.Record(id, len(records) > 0)
	}
	if len(records) == 0 {
		writeErr(w, r, serrors.NewIndexError(serrors.CodeGeometryNotFound,
			fmt.Sprintf("no registry records for geometry %q", id), nil))
		return
	}
	writeJSON(w, http.StatusOK, RegistryResponse{
		GeometryID: id,
		Records:    index.DescribeAll(records, h.popupExclude),
	})
}

// GetLookupStats handles GET /v1/registry/stats?limit=N.
func (h *Handler) GetLookupStats(w http.ResponseWriter, r *http.Request) {
	limit := defaultStatsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxStatsLimit {
			writeErr(w, r, serrors.NewValidationError(serrors.CodeInvalidInput,
				fmt.Sprintf("limit must be between 1 and %d", maxStatsLimit)))
			return
		}
		limit = n
	}

	top := []observability.IDStats{}
	tracked := 0
	if h.lookups != nil {
		top = h.lookups.Top(limit)
		tracked = h.lookups.Len()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tracked": tracked,
		"top":     top,
	})
}

func (h *Handler) walkability(w http.ResponseWriter, r *http.Request) (*types.FeatureCollection, bool) {
	v, ok := h.views[views.Walkability]
	if !ok {
		writeErr(w, r, serrors.NewDatasetError(serrors.CodeDatasetMissing, "walkability layer not loaded", nil))
		return nil, false
	}
	return v.Collection, true
}

// GetWalkabilityOverview handles GET /v1/walkability/stats.
func (h *Handler) GetWalkabilityOverview(w http.ResponseWriter, r *http.Request) {
	fc, ok := h.walkability(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, walkability.Overview(fc))
}

// IndicatorResponse is the body of GET /v1/walkability/{indicator}/stats.
type IndicatorResponse struct {
	Indicator string            `json:"indicator"`
	Label     string            `json:"label"`
	Stats     aggregate.Summary `json:"stats"`
	Bins      []choropleth.Bin  `json:"bins"`
}

// GetIndicatorStats handles GET /v1/walkability/{indicator}/stats.
func (h *Handler) GetIndicatorStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "indicator")
	if !walkability.Known(name) {
		writeErr(w, r, serrors.NewValidationError(serrors.CodeUnknownIndicator, fmt.Sprintf("unknown walkability indicator %q", name)))
		return
	}
	fc, ok := h.walkability(w, r)
	if !ok {
		return
	}
	stats, err := walkability.IndicatorStats(fc, name)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	scheme, _ := choropleth.Indicator(name)
	writeJSON(w, http.StatusOK, IndicatorResponse{
		Indicator: name,
		Label:     scheme.Label,
		Stats:     stats,
		Bins:      scheme.Legend(),
	})
}
