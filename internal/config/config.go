// Package config provides the configuration of the sommarioni CLI and
// server: a YAML or JSON file overlaid by SOMMARIONI_* environment
// variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	serrors "github.com/sommarioni/sommarioni/internal/errors"
	"github.com/sommarioni/sommarioni/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SOMMARIONI_"

// Config holds the configuration of every command.
type Config struct {
	// DataDir is the base directory for caches and derived files
	DataDir string `json:"data_dir" yaml:"data_dir" validate:"required"`

	Log      logging.Config `json:"log" yaml:"log"`
	HTTP     HTTPConfig     `json:"http" yaml:"http"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	Datasets DatasetsConfig `json:"datasets" yaml:"datasets"`
	Index    IndexConfig    `json:"index" yaml:"index"`
	Views    ViewsConfig    `json:"views" yaml:"views"`
	Enrich   EnrichConfig   `json:"enrich" yaml:"enrich"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Addr            string        `json:"addr" yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gte=0"`
}

// StorageConfig selects the object store datasets and snapshots live in.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type" validate:"oneof=local s3"`

	// Path is the local storage root (for local type)
	Path string `json:"path" yaml:"path"`

	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	Bucket       string `json:"bucket" yaml:"bucket"`
	Region       string `json:"region" yaml:"region"`
	Endpoint     string `json:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	UsePathStyle bool   `json:"use_path_style" yaml:"use_path_style"`
	Prefix       string `json:"prefix" yaml:"prefix"`
}

// DatasetsConfig names the dataset objects in storage.
type DatasetsConfig struct {
	Parcels        string `json:"parcels" yaml:"parcels" validate:"required"`
	Registry       string `json:"registry" yaml:"registry" validate:"required"`
	RegistryFormat string `json:"registry_format" yaml:"registry_format" validate:"omitempty,oneof=csv json"`
	Parishes       string `json:"parishes" yaml:"parishes"`
	Walkability    string `json:"walkability" yaml:"walkability"`

	// CacheDir receives downloaded objects
	CacheDir    string `json:"cache_dir" yaml:"cache_dir"`
	Concurrency int    `json:"concurrency" yaml:"concurrency" validate:"gte=1,lte=64"`
}

// IndexConfig controls the persisted registry snapshot.
type IndexConfig struct {
	// Prefix is the storage prefix snapshots are published under
	Prefix string `json:"prefix" yaml:"prefix"`

	// Snapshot is the snapshot object name
	Snapshot string `json:"snapshot" yaml:"snapshot" validate:"required"`

	// LookupStatsWindow is how long per-id lookup statistics are kept
	LookupStatsWindow time.Duration `json:"lookup_stats_window" yaml:"lookup_stats_window" validate:"gte=0"`
}

// ViewsConfig parameterises the view policies.
type ViewsConfig struct {
	OwnershipColumn string   `json:"ownership_column" yaml:"ownership_column" validate:"required"`
	PublicEntity    string   `json:"public_entity" yaml:"public_entity" validate:"required"`
	TargetQuality   string   `json:"target_quality" yaml:"target_quality" validate:"required"`
	PorzioneMarker  string   `json:"porzione_marker" yaml:"porzione_marker" validate:"required"`
	UnknownOwner    string   `json:"unknown_owner" yaml:"unknown_owner"`
	TopInstitutions int      `json:"top_institutions" yaml:"top_institutions" validate:"gte=0"`
	PopupExclude    []string `json:"popup_exclude" yaml:"popup_exclude"`
}

// EnrichConfig controls the enrichment pass.
type EnrichConfig struct {
	// Workers is the number of goroutines per pass; 1 runs serially
	Workers int `json:"workers" yaml:"workers" validate:"gte=1,lte=256"`
}

// DefaultConfig returns the default configuration for local use.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/sommarioni",
		Log: logging.Config{
			Level:  "info",
			Format: "json",
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Type: "local",
		},
		Datasets: DatasetsConfig{
			Parcels:     "datasets/parcels.geojson",
			Registry:    "datasets/registry.json",
			Concurrency: 4,
		},
		Index: IndexConfig{
			Prefix:            "snapshots",
			Snapshot:          "registry",
			LookupStatsWindow: time.Hour,
		},
		Views: ViewsConfig{
			OwnershipColumn: "ownership_types",
			PublicEntity:    "venezia_entities",
			TargetQuality:   "CASA",
			PorzioneMarker:  "porzion",
			UnknownOwner:    "possessore ignoto",
			TopInstitutions: 10,
			PopupExclude:    []string{"geometry_id", "unique_id"},
		},
		Enrich: EnrichConfig{
			Workers: 1,
		},
	}
}

// Resolve fills the paths derived from DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/sommarioni"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
	if c.Datasets.CacheDir == "" {
		c.Datasets.CacheDir = filepath.Join(c.DataDir, "cache")
	}
}

// SnapshotDir is where snapshots are written before upload.
func (c *Config) SnapshotDir() string {
	return filepath.Join(c.DataDir, "snapshots")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks field constraints and the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return serrors.Wrap(serrors.ErrCategoryValidation, serrors.CodeInvalidConfig, "invalid configuration", err)
		}
		details := make(map[string]interface{}, len(fieldErrs))
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			path := fieldPath(fe.Namespace())
			details[path] = fe.Tag()
			msgs = append(msgs, fmt.Sprintf("%s fails %q", path, fe.Tag()))
		}
		return serrors.NewValidationError(serrors.CodeInvalidConfig,
			"invalid configuration: "+strings.Join(msgs, "; ")).WithDetails(details)
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return serrors.NewValidationError(serrors.CodeInvalidConfig, "storage.s3.bucket is required when storage type is s3")
	}
	if c.Storage.Type == "local" && c.Storage.Path == "" {
		return serrors.NewValidationError(serrors.CodeInvalidConfig, "storage.path is required when storage type is local")
	}
	return nil
}

// fieldPath turns "Config.storage.s3.bucket" into "storage.s3.bucket".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and resolves derived paths. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Resolve()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, serrors.Wrap(serrors.ErrCategoryValidation, serrors.CodeInvalidConfig, "failed to parse YAML config", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, serrors.Wrap(serrors.ErrCategoryValidation, serrors.CodeInvalidConfig, "failed to parse JSON config", err)
		}
	default:
		return nil, serrors.NewValidationError(serrors.CodeInvalidConfig, "unsupported config file format: "+ext)
	}

	return cfg, nil
}

// LoadFromEnv applies SOMMARIONI_* environment variables to cfg. Malformed
// numbers and durations are errors.
func LoadFromEnv(cfg *Config) error {
	e := envReader{}

	e.str("DATA_DIR", &cfg.DataDir)
	e.str("LOG_LEVEL", &cfg.Log.Level)
	e.str("LOG_FORMAT", &cfg.Log.Format)

	e.str("HTTP_ADDR", &cfg.HTTP.Addr)
	e.duration("HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout)
	e.duration("HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout)
	e.duration("HTTP_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout)

	e.str("STORAGE_TYPE", &cfg.Storage.Type)
	e.str("STORAGE_PATH", &cfg.Storage.Path)
	e.str("S3_BUCKET", &cfg.Storage.S3.Bucket)
	e.str("S3_REGION", &cfg.Storage.S3.Region)
	e.str("S3_ENDPOINT", &cfg.Storage.S3.Endpoint)
	e.str("S3_PREFIX", &cfg.Storage.S3.Prefix)
	e.boolean("S3_USE_PATH_STYLE", &cfg.Storage.S3.UsePathStyle)

	e.str("DATASETS_PARCELS", &cfg.Datasets.Parcels)
	e.str("DATASETS_REGISTRY", &cfg.Datasets.Registry)
	e.str("DATASETS_REGISTRY_FORMAT", &cfg.Datasets.RegistryFormat)
	e.str("DATASETS_PARISHES", &cfg.Datasets.Parishes)
	e.str("DATASETS_WALKABILITY", &cfg.Datasets.Walkability)
	e.str("DATASETS_CACHE_DIR", &cfg.Datasets.CacheDir)
	e.integer("DATASETS_CONCURRENCY", &cfg.Datasets.Concurrency)

	e.str("INDEX_PREFIX", &cfg.Index.Prefix)
	e.str("INDEX_SNAPSHOT", &cfg.Index.Snapshot)
	e.duration("INDEX_LOOKUP_STATS_WINDOW", &cfg.Index.LookupStatsWindow)

	e.str("VIEWS_OWNERSHIP_COLUMN", &cfg.Views.OwnershipColumn)
	e.str("VIEWS_PUBLIC_ENTITY", &cfg.Views.PublicEntity)
	e.str("VIEWS_TARGET_QUALITY", &cfg.Views.TargetQuality)
	e.str("VIEWS_PORZIONE_MARKER", &cfg.Views.PorzioneMarker)
	e.str("VIEWS_UNKNOWN_OWNER", &cfg.Views.UnknownOwner)
	e.integer("VIEWS_TOP_INSTITUTIONS", &cfg.Views.TopInstitutions)
	if v, ok := os.LookupEnv(EnvPrefix + "VIEWS_POPUP_EXCLUDE"); ok {
		cfg.Views.PopupExclude = splitList(v)
	}

	e.integer("ENRICH_WORKERS", &cfg.Enrich.Workers)

	return errors.Join(e.errs...)
}

type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := os.Getenv(EnvPrefix + key)
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = d
	}
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, serrors.Wrap(serrors.ErrCategoryValidation, serrors.CodeInvalidConfig,
		fmt.Sprintf("%s%s=%q", EnvPrefix, key, value), err))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// EnsureDirectories creates the local directories the configuration names.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.Datasets.CacheDir, c.SnapshotDir()}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
