package dataset

import (
	"context"
	"errors"
	"time"

	serrors "github.com/sommarioni/sommarioni/internal/errors"
	"github.com/sommarioni/sommarioni/internal/logging"
	"github.com/sommarioni/sommarioni/internal/storage"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// Sources names the object paths of the input layers. Empty paths are
// skipped; only Parcels and Registry are required.
type Sources struct {
	Parcels        string
	Registry       string
	RegistryFormat RegistryFormat
	Parishes       string
	Walkability    string
}

// Bundle is the decoded set of inputs. Optional layers are nil when their
// source path was empty.
type Bundle struct {
	Parcels     *types.FeatureCollection
	Registry    []types.Record
	Parishes    *types.FeatureCollection
	Walkability *types.FeatureCollection
}

// Loader fetches dataset objects from storage into a local cache and
// decodes them.
type Loader struct {
	fetcher *storage.Fetcher
	logger  logging.Logger
}

// NewLoader creates a Loader.
func NewLoader(fetcher *storage.Fetcher, logger logging.Logger) *Loader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Loader{fetcher: fetcher, logger: logger.Named("dataset")}
}

// Load fetches every configured source in parallel and decodes them.
func (l *Loader) Load(ctx context.Context, src Sources) (*Bundle, error) {
	if src.Parcels == "" || src.Registry == "" {
		return nil, serrors.NewValidationError(serrors.CodeInvalidConfig, "parcels and registry sources are required")
	}

	start := time.Now()
	paths := []string{src.Parcels, src.Registry}
	for _, p := range []string{src.Parishes, src.Walkability} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	res, err := l.fetcher.Fetch(ctx, paths)
	if err != nil {
		return nil, serrors.NewStorageError(serrors.CodeDownloadFailed, "prepare dataset cache", err)
	}
	for _, p := range paths {
		if ferr, ok := res.Errors[p]; ok {
			return nil, fetchError(p, ferr)
		}
	}

	b := &Bundle{}
	if b.Parcels, err = ReadFeatureFile(res.LocalPaths[src.Parcels]); err != nil {
		return nil, err
	}
	format := src.RegistryFormat
	if format == "" {
		format = FormatFor(src.Registry)
	}
	if b.Registry, err = ReadRegistryFile(res.LocalPaths[src.Registry], format); err != nil {
		return nil, err
	}
	if src.Parishes != "" {
		if b.Parishes, err = ReadFeatureFile(res.LocalPaths[src.Parishes]); err != nil {
			return nil, err
		}
	}
	if src.Walkability != "" {
		if b.Walkability, err = ReadFeatureFile(res.LocalPaths[src.Walkability]); err != nil {
			return nil, err
		}
	}

	l.logger.Info("datasets loaded",
		logging.Int("parcels", b.Parcels.Len()),
		logging.Int("registry_records", len(b.Registry)),
		logging.Int("parishes", b.Parishes.Len()),
		logging.Int("walkability_points", b.Walkability.Len()),
		logging.Int("cache_hits", res.CacheHits),
		logging.Int("downloads", res.Downloads),
		logging.Duration("elapsed", time.Since(start)))
	return b, nil
}

// LoadFeatures fetches and decodes a single GeoJSON object.
func (l *Loader) LoadFeatures(ctx context.Context, objectPath string) (*types.FeatureCollection, error) {
	local, err := l.fetchOne(ctx, objectPath)
	if err != nil {
		return nil, err
	}
	return ReadFeatureFile(local)
}

// LoadRegistry fetches and decodes a single registry object. An empty
// format is guessed from the object name.
func (l *Loader) LoadRegistry(ctx context.Context, objectPath string, format RegistryFormat) ([]types.Record, error) {
	local, err := l.fetchOne(ctx, objectPath)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatFor(objectPath)
	}
	return ReadRegistryFile(local, format)
}

func (l *Loader) fetchOne(ctx context.Context, objectPath string) (string, error) {
	res, err := l.fetcher.Fetch(ctx, []string{objectPath})
	if err != nil {
		return "", serrors.NewStorageError(serrors.CodeDownloadFailed, "prepare dataset cache", err)
	}
	if ferr, ok := res.Errors[objectPath]; ok {
		return "", fetchError(objectPath, ferr)
	}
	return res.LocalPaths[objectPath], nil
}

func fetchError(objectPath string, err error) error {
	details := map[string]interface{}{"object": objectPath}
	if errors.Is(err, storage.ErrObjectNotFound) {
		return serrors.NewDatasetError(serrors.CodeDatasetMissing, "dataset not found: "+objectPath, err).WithDetails(details)
	}
	return serrors.NewStorageError(serrors.CodeDownloadFailed, "fetch dataset "+objectPath, err).WithDetails(details)
}
