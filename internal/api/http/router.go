package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sommarioni/sommarioni/internal/logging"
	"github.com/sommarioni/sommarioni/internal/observability"
	"github.com/sommarioni/sommarioni/internal/views"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// RegistryLookup returns the registry records of one geometry id.
type RegistryLookup interface {
	Lookup(ctx context.Context, id interface{}) ([]types.Record, error)
}

// RouterConfig aggregates the dependencies of the route tree. Views are
// built before the router and never modified while it serves them.
type RouterConfig struct {
	Views        map[string]*views.View
	Registry     RegistryLookup
	PopupExclude []string
	LookupStats  *observability.LookupStats
	Metrics      *observability.Metrics
	Logger       logging.Logger
}

// NewRouter constructs the HTTP route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	h := &Handler{
		views:        cfg.Views,
		registry:     cfg.Registry,
		popupExclude: cfg.PopupExclude,
		lookups:      cfg.LookupStats,
		logger:       cfg.Logger.Named("http"),
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	var recorder HTTPRecorder
	if cfg.Metrics != nil {
		recorder = cfg.Metrics
	}
	r.Use(ObserveMiddleware(recorder, h.logger))
	r.Use(RecoveryMiddleware(h.logger))

	r.Get("/healthz", h.Health)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Route("/v1", func(api chi.Router) {
		api.Route("/views", func(vr chi.Router) {
			vr.Get("/", h.ListViews)
			vr.Route("/{view}", func(item chi.Router) {
				item.Get("/", h.GetView)
				item.Get("/tables", h.GetTables)
				item.Get("/legend", h.GetLegend)
			})
		})
		api.Route("/registry", func(rr chi.Router) {
			rr.Get("/stats", h.GetLookupStats)
			rr.Get("/{geometryID}", h.GetRegistry)
		})
		api.Route("/walkability", func(wr chi.Router) {
			wr.Get("/stats", h.GetWalkabilityOverview)
			wr.Get("/{indicator}/stats", h.GetIndicatorStats)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", "", GetRequestID(r.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", GetRequestID(r.Context()))
	})
	return r
}
