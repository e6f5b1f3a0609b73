// Package app wires storage, datasets, the registry index and the views into
// the commands of the sommarioni CLI and the HTTP feed.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	httpapi "github.com/sommarioni/sommarioni/internal/api/http"
	"github.com/sommarioni/sommarioni/internal/config"
	"github.com/sommarioni/sommarioni/internal/dataset"
	"github.com/sommarioni/sommarioni/internal/enrich"
	serrors "github.com/sommarioni/sommarioni/internal/errors"
	"github.com/sommarioni/sommarioni/internal/index"
	"github.com/sommarioni/sommarioni/internal/logging"
	"github.com/sommarioni/sommarioni/internal/observability"
	"github.com/sommarioni/sommarioni/internal/server"
	"github.com/sommarioni/sommarioni/internal/storage"
	"github.com/sommarioni/sommarioni/internal/views"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// App holds the resources shared by every command.
type App struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *observability.Metrics

	storage   storage.ObjectStorage
	loader    *dataset.Loader
	snapshots *index.Store
	lookups   *observability.LookupStats
	shutdown  *server.ShutdownManager

	// Lifecycle
	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	serveErr <-chan error
}

// Workspace is one loaded set of inputs with the index and view builder
// derived from it.
type Workspace struct {
	Bundle  *dataset.Bundle
	Index   *index.Index
	Builder *views.Builder
}

// Inputs returns the view inputs of the workspace.
func (w *Workspace) Inputs() views.Inputs {
	return views.Inputs{
		Parcels:     w.Bundle.Parcels,
		Registry:    w.Bundle.Registry,
		Parishes:    w.Bundle.Parishes,
		Walkability: w.Bundle.Walkability,
	}
}

// New resolves and validates cfg, prepares the local directories and
// connects to the configured object storage.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	st, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	logger.Info("storage initialized",
		logging.String("type", cfg.Storage.Type),
		logging.String("path", cfg.Storage.Path),
		logging.String("bucket", cfg.Storage.S3.Bucket))

	fetcher := storage.NewFetcher(st, cfg.Datasets.Concurrency, cfg.Datasets.CacheDir)
	return &App{
		cfg:       cfg,
		logger:    logger,
		metrics:   observability.NewMetrics(),
		storage:   st,
		loader:    dataset.NewLoader(fetcher, logger),
		snapshots: index.NewStore(st, cfg.Index.Prefix, cfg.SnapshotDir()),
		lookups:   observability.NewLookupStats(cfg.Index.LookupStatsWindow),
	}, nil
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStorage, error) {
	switch cfg.Type {
	case "local":
		st, err := storage.NewLocalStorage(cfg.Path)
		if err != nil {
			return nil, serrors.NewStorageError(serrors.CodeUnavailable, "failed to initialize local storage", err)
		}
		return st, nil
	case "s3":
		s3cfg := storage.DefaultS3Config()
		if cfg.S3.Region != "" {
			s3cfg.Region = cfg.S3.Region
		}
		s3cfg.Endpoint = cfg.S3.Endpoint
		s3cfg.UsePathStyle = cfg.S3.UsePathStyle
		s3cfg.Prefix = cfg.S3.Prefix
		st, err := storage.NewS3Storage(ctx, cfg.S3.Bucket, s3cfg)
		if err != nil {
			return nil, serrors.NewStorageError(serrors.CodeUnavailable, "failed to initialize s3 storage", err)
		}
		return st, nil
	default:
		return nil, serrors.NewValidationError(serrors.CodeInvalidConfig, "unsupported storage type: "+cfg.Type)
	}
}

// Config returns the resolved configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Storage returns the object storage.
func (a *App) Storage() storage.ObjectStorage { return a.storage }

// Metrics returns the metrics registry of the app.
func (a *App) Metrics() *observability.Metrics { return a.metrics }

// PurgeCache empties the dataset cache so the next load downloads every
// object again.
func (a *App) PurgeCache() error {
	dir := a.cfg.Datasets.CacheDir
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to purge cache %s: %w", dir, err)
	}
	return os.MkdirAll(dir, 0755)
}

// Sources returns the dataset sources of the configuration.
func (a *App) Sources() dataset.Sources {
	d := a.cfg.Datasets
	format := dataset.RegistryFormat(d.RegistryFormat)
	if format == "" {
		format = dataset.FormatFor(d.Registry)
	}
	return dataset.Sources{
		Parcels:        d.Parcels,
		Registry:       d.Registry,
		RegistryFormat: format,
		Parishes:       d.Parishes,
		Walkability:    d.Walkability,
	}
}

// Settings maps the views configuration onto view settings.
func (a *App) Settings() views.Settings {
	v := a.cfg.Views
	return views.Settings{
		OwnershipColumn: v.OwnershipColumn,
		PublicEntity:    v.PublicEntity,
		TargetQuality:   v.TargetQuality,
		PorzioneMarker:  v.PorzioneMarker,
		UnknownOwner:    v.UnknownOwner,
		TopInstitutions: v.TopInstitutions,
	}
}

// Load fetches and decodes the datasets and builds the registry index.
func (a *App) Load(ctx context.Context) (*Workspace, error) {
	bundle, err := a.loader.Load(ctx, a.Sources())
	if err != nil {
		return nil, err
	}

	ix := index.Build(bundle.Registry)
	a.metrics.SetIndexRecords(ix.Size())
	if ix.Skipped() > 0 {
		a.logger.Warn("registry records without geometry id",
			logging.Int("skipped", ix.Skipped()))
	}

	enricher := enrich.New(ix,
		enrich.WithLogger(a.logger),
		enrich.WithRecorder(a.metrics),
		enrich.WithWorkers(a.cfg.Enrich.Workers))

	return &Workspace{
		Bundle:  bundle,
		Index:   ix,
		Builder: views.NewBuilder(enricher, a.Settings(), a.logger),
	}, nil
}

// LoadWalkability loads the walkability layer alone.
func (a *App) LoadWalkability(ctx context.Context) (*types.FeatureCollection, error) {
	if a.cfg.Datasets.Walkability == "" {
		return nil, serrors.NewDatasetError(serrors.CodeDatasetMissing, "no walkability dataset configured", nil)
	}
	return a.loader.LoadFeatures(ctx, a.cfg.Datasets.Walkability)
}

// BuildView loads the datasets and builds the named view.
func (a *App) BuildView(ctx context.Context, name string) (*views.View, error) {
	ws, err := a.Load(ctx)
	if err != nil {
		return nil, err
	}
	return ws.Builder.Build(ctx, name, ws.Inputs())
}

// PublishIndex persists ix as the configured snapshot.
func (a *App) PublishIndex(ctx context.Context, ix *index.Index) (*index.SnapshotInfo, error) {
	info, err := a.snapshots.Publish(ctx, ix, a.cfg.Index.Snapshot)
	if err != nil {
		return nil, err
	}
	a.logger.Info("snapshot published",
		logging.String("object", a.snapshots.ObjectPath(a.cfg.Index.Snapshot)),
		logging.String("id", info.ID),
		logging.Int("records", info.Records),
		logging.Int("geometries", info.Geometries))
	return info, nil
}

// OpenSnapshot opens the configured snapshot.
func (a *App) OpenSnapshot(ctx context.Context) (*index.Snapshot, error) {
	return a.snapshots.Open(ctx, a.cfg.Index.Snapshot)
}

// EnsureSnapshot opens the configured snapshot, publishing ix first when the
// snapshot is missing or was written from different registry content.
func (a *App) EnsureSnapshot(ctx context.Context, ix *index.Index) (*index.Snapshot, error) {
	digest, err := ix.Digest()
	if err != nil {
		return nil, serrors.NewIndexError(serrors.CodeSnapshotWrite, "failed to fingerprint index", err)
	}

	snap, err := a.OpenSnapshot(ctx)
	switch {
	case err == nil:
		info := snap.Info()
		if info.Digest == digest && info.Records == ix.Size() && info.Geometries == ix.Len() {
			return snap, nil
		}
		a.logger.Info("snapshot out of date",
			logging.String("id", info.ID),
			logging.String("digest", info.Digest),
			logging.String("expected", digest))
		if err := snap.Close(); err != nil {
			return nil, err
		}
	case serrors.GetCode(err) == serrors.CodeObjectNotFound:
		a.logger.Info("snapshot missing", logging.String("name", a.cfg.Index.Snapshot))
	default:
		return nil, err
	}

	if _, err := a.PublishIndex(ctx, ix); err != nil {
		return nil, err
	}
	return a.OpenSnapshot(ctx)
}

// Start loads the datasets, builds every view and starts the HTTP feed.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	handler, err := a.prepare(ctx)
	if err != nil {
		a.cleanup()
		return err
	}

	srv := &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}
	a.serveErr = a.shutdown.ServeHTTP(srv)

	a.wg.Add(1)
	go a.pruneLookups(ctx)

	a.logger.Info("sommarioni started", logging.String("addr", a.cfg.HTTP.Addr))
	return nil
}

// prepare builds the handler served by Start and registers what it holds
// open with the shutdown manager.
func (a *App) prepare(ctx context.Context) (http.Handler, error) {
	a.shutdown = server.NewShutdownManager(server.ShutdownConfig{
		ShutdownTimeout: a.cfg.HTTP.ShutdownTimeout,
		DrainTimeout:    a.cfg.HTTP.ShutdownTimeout,
	}, a.logger)

	ws, err := a.Load(ctx)
	if err != nil {
		return nil, err
	}
	built, err := ws.Builder.BuildAll(ctx, ws.Inputs())
	if err != nil {
		return nil, err
	}

	snap, err := a.EnsureSnapshot(ctx, ws.Index)
	if err != nil {
		return nil, err
	}
	a.shutdown.RegisterCloser("snapshot", snap)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Views:        built,
		Registry:     snap,
		PopupExclude: a.cfg.Views.PopupExclude,
		LookupStats:  a.lookups,
		Metrics:      a.metrics,
		Logger:       a.logger,
	})
	return server.ShutdownMiddleware(a.shutdown)(router), nil
}

func (a *App) pruneLookups(ctx context.Context) {
	defer a.wg.Done()

	interval := a.cfg.Index.LookupStatsWindow
	if interval <= 0 || interval > time.Hour {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.lookups.Prune(); n > 0 {
				a.logger.Debug("pruned lookup stats", logging.Int("ids", n))
			}
		}
	}
}

// Wait blocks until a termination signal arrives, ctx is done or the HTTP
// listener fails, then stops the app.
func (a *App) Wait(ctx context.Context) error {
	if a.shutdown == nil {
		return fmt.Errorf("app is not running")
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	failed := make(chan error, 1)
	go func() {
		if err, ok := <-a.serveErr; ok && err != nil {
			a.logger.Error("http server failed", logging.Err(err))
			failed <- err
			cancel()
		}
	}()

	err := a.shutdown.ListenForSignals(waitCtx)
	a.cleanup()
	select {
	case listenErr := <-failed:
		return listenErr
	default:
		return err
	}
}

// Stop shuts the app down and waits for background goroutines.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	running := a.running
	a.mu.Unlock()
	if !running {
		return nil
	}

	var err error
	if a.shutdown != nil {
		err = a.shutdown.Shutdown(ctx, "stop requested")
	}
	a.cleanup()
	return err
}

func (a *App) cleanup() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}
