// Package enrich projects registry records onto parcel features. A Policy
// derives the new properties of one feature from its matching records, or
// rejects the feature; the Enricher applies a policy to a whole collection.
package enrich

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sommarioni/sommarioni/internal/identifier"
	"github.com/sommarioni/sommarioni/internal/index"
	"github.com/sommarioni/sommarioni/internal/logging"
	"github.com/sommarioni/sommarioni/pkg/types"
)

// Policy derives feature-level properties from the registry records that
// share the feature's geometry id. Derive must be a pure function of its
// input: it may not retain or modify records. It returns the properties to
// add and whether the feature is kept.
type Policy interface {
	Name() string
	Derive(records []types.Record) (types.Properties, bool)
}

// Recorder receives the outcome of each pass; *observability.Metrics
// implements it.
type Recorder interface {
	ObserveEnrichment(view string, kept, dropped int, elapsed time.Duration)
}

// Result is the outcome of one enrichment pass.
type Result struct {
	Collection *types.FeatureCollection
	Kept       int
	Dropped    int
	// MissingID counts features without a usable geometry id.
	MissingID int
	// Unmatched counts features whose id has no registry records.
	Unmatched int
}

// Enricher joins features to an index under a policy.
type Enricher struct {
	index    *index.Index
	logger   logging.Logger
	recorder Recorder
	workers  int
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithLogger sets the logger; passes are summarised at debug level.
func WithLogger(l logging.Logger) Option {
	return func(e *Enricher) { e.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Enricher) { e.recorder = r }
}

// WithWorkers splits each pass across n goroutines. Values below 2 keep the
// pass on the calling goroutine.
func WithWorkers(n int) Option {
	return func(e *Enricher) { e.workers = n }
}

// New creates an Enricher over ix.
func New(ix *index.Index, opts ...Option) *Enricher {
	e := &Enricher{
		index:   ix,
		logger:  logging.NewNopLogger(),
		workers: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Index returns the registry index the enricher joins against.
func (e *Enricher) Index() *index.Index {
	return e.index
}

type outcome struct {
	feature   types.Feature
	kept      bool
	missingID bool
	unmatched bool
}

// Enrich applies p to every feature of fc and returns a new collection of
// the kept features, in input order. fc is not modified: kept features get a
// copy of their properties with the derived ones added. The only error is
// cancellation of ctx.
func (e *Enricher) Enrich(ctx context.Context, fc *types.FeatureCollection, p Policy) (*Result, error) {
	start := time.Now()
	var features []types.Feature
	if fc != nil {
		features = fc.Features
	}
	n := len(features)
	outcomes := make([]outcome, n)

	if e.workers < 2 || n < e.workers {
		if err := e.enrichRange(ctx, features, outcomes, p); err != nil {
			return nil, err
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		chunk := (n + e.workers - 1) / e.workers
		for lo := 0; lo < n; lo += chunk {
			hi := lo + chunk
			if hi > n {
				hi = n
			}
			part, out := features[lo:hi], outcomes[lo:hi]
			g.Go(func() error {
				return e.enrichRange(gctx, part, out, p)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	res := &Result{Collection: types.NewFeatureCollection(fc, n)}
	for _, o := range outcomes {
		switch {
		case o.kept:
			res.Collection.Features = append(res.Collection.Features, o.feature)
			res.Kept++
		case o.missingID:
			res.MissingID++
		case o.unmatched:
			res.Unmatched++
		}
	}
	res.Dropped = n - res.Kept

	elapsed := time.Since(start)
	if e.recorder != nil {
		e.recorder.ObserveEnrichment(p.Name(), res.Kept, res.Dropped, elapsed)
	}
	e.logger.Debug("enrichment pass",
		logging.String("view", p.Name()),
		logging.Int("features", n),
		logging.Int("kept", res.Kept),
		logging.Int("dropped", res.Dropped),
		logging.Int("missing_id", res.MissingID),
		logging.Int("unmatched", res.Unmatched),
		logging.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (e *Enricher) enrichRange(ctx context.Context, features []types.Feature, out []outcome, p Policy) error {
	for i, f := range features {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		out[i] = e.enrichOne(f, p)
	}
	return nil
}

func (e *Enricher) enrichOne(f types.Feature, p Policy) outcome {
	id, ok := identifier.Usable(f.GeometryID())
	if !ok {
		return outcome{missingID: true}
	}

	records := e.index.Lookup(id)
	derived, keep := p.Derive(records)
	if !keep {
		return outcome{unmatched: len(records) == 0}
	}

	props := f.Properties.Clone()
	for k, v := range derived {
		props[k] = v
	}
	return outcome{feature: f.WithProperties(props), kept: true}
}
