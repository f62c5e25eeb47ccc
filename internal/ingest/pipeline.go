package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/surfacesync/internal/config"
	"github.com/anstrom/surfacesync/internal/errors"
	"github.com/anstrom/surfacesync/internal/logging"
	"github.com/anstrom/surfacesync/internal/metrics"
	"github.com/anstrom/surfacesync/internal/report"
)

// Operator-facing result lines.
const (
	SuccessMessage = "Bulk indexing complete."
	FailurePrefix  = "Bulk indexing failed. Response: "
)

const (
	runStatusSuccess = "success"
	runStatusFailure = "failure"
)

// Store is the document store as seen by the pipeline.
type Store interface {
	Searcher
	Bulker
}

// Summary describes one pipeline run.
type Summary struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	Hosts     int
	Skipped   int
	OpenPorts int
	Created   int
	Updated   int

	Operations []Operation

	// DryRun runs keep the payload instead of submitting it.
	DryRun  bool
	Payload []byte

	// Batch is nil when nothing was submitted.
	Batch *BatchResult
}

// Pipeline runs parse, reconcile and batch write for one configuration.
type Pipeline struct {
	cfg     *config.Config
	store   Store
	metrics metrics.Recorder
	logger  *logging.Logger
	opts    []Option
}

// NewPipeline creates a pipeline over st.
func NewPipeline(cfg *config.Config, st Store, opts ...Option) *Pipeline {
	o := applyOptions(opts)
	return &Pipeline{
		cfg:     cfg,
		store:   st,
		metrics: o.metrics,
		logger:  o.logger.WithComponent("pipeline"),
		opts:    opts,
	}
}

// Run parses the configured report and synchronises it into the store.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := p.newSummary()
	log := p.logger.WithRunID(summary.RunID)

	log.Info("Reading scan report", "path", p.cfg.Input.Path)
	res, err := report.ParseFile(p.cfg.Input.Path, report.Options{
		SkipInvalidHosts: p.cfg.Ingest.SkipInvalidHosts,
		Logger:           log,
	})
	if err != nil {
		return p.finish(summary, err)
	}
	return p.sync(ctx, summary, res)
}

// RunResult synchronises an already parsed report into the store.
func (p *Pipeline) RunResult(ctx context.Context, res *report.Result) (*Summary, error) {
	return p.sync(ctx, p.newSummary(), res)
}

func (p *Pipeline) newSummary() *Summary {
	return &Summary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		DryRun:    p.cfg.Ingest.DryRun,
	}
}

func (p *Pipeline) sync(ctx context.Context, summary *Summary, res *report.Result) (*Summary, error) {
	log := p.logger.WithRunID(summary.RunID)
	opts := append([]Option{}, p.opts...)
	opts = append(opts, WithLogger(log))

	summary.Hosts = len(res.Hosts)
	summary.Skipped = res.Skipped
	for _, h := range res.Hosts {
		summary.OpenPorts += len(h.Ports)
	}
	p.metrics.AddHostsParsed(summary.Hosts)
	p.metrics.AddHostsSkipped(summary.Skipped)
	p.metrics.AddOpenPorts(summary.OpenPorts)

	log.Info("Reconciling hosts",
		"hosts", summary.Hosts,
		"skipped", summary.Skipped,
		"mode", p.cfg.Ingest.Mode)

	reconciler := NewReconciler(p.store, ReconcilerConfig{
		Index:       p.cfg.Store.Index,
		Subsidiary:  p.cfg.Store.Subsidiary,
		Mode:        p.cfg.Ingest.Mode,
		OnDuplicate: p.cfg.Ingest.OnDuplicate,
	}, opts...)

	ops, err := reconciler.ReconcileAll(ctx, res.Hosts)
	if err != nil {
		return p.finish(summary, err)
	}
	summary.Operations = ops
	summary.Created, summary.Updated = CountActions(ops)

	if summary.DryRun {
		payload, err := BuildPayload(ops)
		if err != nil {
			return p.finish(summary, err)
		}
		summary.Payload = payload
		log.Info("Dry run, batch not submitted", "operations", len(ops))
		return p.finish(summary, nil)
	}

	batch, err := NewBatchWriter(p.store, opts...).Submit(ctx, ops)
	summary.Batch = batch
	return p.finish(summary, err)
}

func (p *Pipeline) finish(summary *Summary, err error) (*Summary, error) {
	summary.Duration = time.Since(summary.StartedAt)
	log := p.logger.WithRunID(summary.RunID)

	if err != nil {
		p.metrics.RecordRun(runStatusFailure, summary.Duration)
		log.Error("Ingest run failed",
			"error", err,
			"code", errors.GetCode(err),
			"duration", summary.Duration)
		return summary, err
	}

	p.metrics.RecordRun(runStatusSuccess, summary.Duration)
	log.Info("Ingest run completed",
		"created", summary.Created,
		"updated", summary.Updated,
		"duration", summary.Duration)
	return summary, nil
}

// OutcomeMessage renders the single line printed to the operator after a run.
func OutcomeMessage(summary *Summary, err error) string {
	if err != nil {
		if errors.IsCode(err, errors.CodeBatchRejected) && summary != nil && summary.Batch != nil {
			return FailurePrefix + string(summary.Batch.Body)
		}
		if errors.IsCode(err, errors.CodeBatchPartialFailure) {
			return "Bulk indexing failed. " + err.Error()
		}
		return "Ingest failed: " + err.Error()
	}

	switch {
	case summary.DryRun:
		return fmt.Sprintf("Dry run: %d operations planned (%d create, %d update), nothing submitted.",
			len(summary.Operations), summary.Created, summary.Updated)
	case len(summary.Operations) == 0:
		return "No hosts to index."
	default:
		return SuccessMessage
	}
}
