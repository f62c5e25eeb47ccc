package ingest

import (
	"context"

	"github.com/anstrom/surfacesync/internal/config"
	"github.com/anstrom/surfacesync/internal/errors"
	"github.com/anstrom/surfacesync/internal/logging"
	"github.com/anstrom/surfacesync/internal/metrics"
	"github.com/anstrom/surfacesync/internal/report"
	"github.com/anstrom/surfacesync/internal/store"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks . Searcher,Bulker

// Searcher looks up documents by exact hostname.
type Searcher interface {
	SearchHostname(ctx context.Context, index, hostname string) (store.Lookup, error)
}

// Option configures the reconciler, the batch writer and the pipeline.
type Option func(*options)

type options struct {
	metrics metrics.Recorder
	logger  *logging.Logger
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func applyOptions(opts []Option) options {
	o := options{
		metrics: metrics.Noop{},
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ReconcilerConfig controls how host records become operations.
type ReconcilerConfig struct {
	Index       string
	Subsidiary  string
	Mode        string
	OnDuplicate string
}

// Reconciler decides create or update for each host record.
type Reconciler struct {
	searcher Searcher
	cfg      ReconcilerConfig
	metrics  metrics.Recorder
	logger   *logging.Logger
}

// NewReconciler creates a reconciler. searcher may be nil in create mode.
func NewReconciler(searcher Searcher, cfg ReconcilerConfig, opts ...Option) *Reconciler {
	o := applyOptions(opts)
	if cfg.Mode == "" {
		cfg.Mode = config.ModeReconcile
	}
	if cfg.OnDuplicate == "" {
		cfg.OnDuplicate = config.DuplicateFirst
	}
	return &Reconciler{
		searcher: searcher,
		cfg:      cfg,
		metrics:  o.metrics,
		logger:   o.logger.WithComponent("reconciler"),
	}
}

// Reconcile emits exactly one operation for rec. In reconcile mode it issues
// one search; a transport failure is returned and nothing is emitted.
func (r *Reconciler) Reconcile(ctx context.Context, rec report.HostRecord) (Operation, error) {
	if r.cfg.Mode == config.ModeCreate {
		r.metrics.IncrementOperations(string(ActionCreate))
		return NewCreate(r.cfg.Index, r.cfg.Subsidiary, rec), nil
	}

	lookup, err := r.searcher.SearchHostname(ctx, r.cfg.Index, rec.Hostname)
	if err != nil {
		return Operation{}, err
	}
	r.metrics.IncrementLookups(lookup.Kind.String())

	log := r.logger.WithHostname(rec.Hostname)

	switch lookup.Kind {
	case store.Found:
		if lookup.Total > 1 {
			if r.cfg.OnDuplicate == config.DuplicateError {
				return Operation{}, errors.ErrDuplicateHostname(rec.Hostname, lookup.Total)
			}
			log.Warn("Several documents share hostname, updating the first",
				"total", lookup.Total,
				"id", lookup.ID)
		}
		log.Debug("Document exists", "id", lookup.ID)
		r.metrics.IncrementOperations(string(ActionUpdate))
		return NewUpdate(r.cfg.Index, lookup.ID, rec), nil

	case store.Malformed:
		log.Warn("Unrecognised search response, creating a new document", "reason", lookup.Reason)
	default:
		log.Debug("No document for hostname")
	}

	r.metrics.IncrementOperations(string(ActionCreate))
	return NewCreate(r.cfg.Index, r.cfg.Subsidiary, rec), nil
}

// ReconcileAll reconciles recs sequentially, preserving order. The first
// error aborts and discards the operations accumulated so far.
func (r *Reconciler) ReconcileAll(ctx context.Context, recs []report.HostRecord) ([]Operation, error) {
	ops := make([]Operation, 0, len(recs))
	for _, rec := range recs {
		op, err := r.Reconcile(ctx, rec)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}
