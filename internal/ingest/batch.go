package ingest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/anstrom/surfacesync/internal/errors"
	"github.com/anstrom/surfacesync/internal/logging"
	"github.com/anstrom/surfacesync/internal/metrics"
	"github.com/anstrom/surfacesync/internal/store"
)

// Bulker submits a bulk payload in one request.
type Bulker interface {
	Bulk(ctx context.Context, payload []byte) (*store.BulkResponse, error)
}

// BatchResult describes a submitted batch.
type BatchResult struct {
	Operations int
	StatusCode int
	Body       []byte
	Took       int
}

// BatchWriter serialises operations and submits them as one bulk request.
type BatchWriter struct {
	bulker  Bulker
	metrics metrics.Recorder
	logger  *logging.Logger
}

// NewBatchWriter creates a batch writer.
func NewBatchWriter(bulker Bulker, opts ...Option) *BatchWriter {
	o := applyOptions(opts)
	return &BatchWriter{
		bulker:  bulker,
		metrics: o.metrics,
		logger:  o.logger.WithComponent("batch"),
	}
}

type bulkItemResult struct {
	Index  string `json:"_index"`
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

type bulkResponseBody struct {
	Took   int                         `json:"took"`
	Errors bool                        `json:"errors"`
	Items  []map[string]bulkItemResult `json:"items"`
}

// Submit sends ops in a single request. With no operations nothing is sent
// and a nil result is returned. A non-200 status yields a BATCH_REJECTED
// error carrying the raw body; a 200 response whose items report errors
// yields a BatchPartialFailureError.
func (w *BatchWriter) Submit(ctx context.Context, ops []Operation) (*BatchResult, error) {
	if len(ops) == 0 {
		w.logger.Info("No operations to submit")
		return nil, nil
	}

	payload, err := BuildPayload(ops)
	if err != nil {
		return nil, err
	}

	w.logger.Debug("Submitting bulk request", "operations", len(ops), "bytes", len(payload))

	resp, err := w.bulker.Bulk(ctx, payload)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{
		Operations: len(ops),
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}

	if resp.StatusCode != http.StatusOK {
		w.logger.Error("Bulk request rejected", "status", resp.StatusCode)
		return result, errors.ErrBatchRejected(resp.StatusCode, string(resp.Body))
	}

	var body bulkResponseBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		w.logger.Warn("Could not decode bulk response, assuming success", "error", err)
		return result, nil
	}
	result.Took = body.Took

	if !body.Errors {
		return result, nil
	}

	failures := itemFailures(ops, body.Items)
	w.metrics.AddBulkItemFailures(len(failures))
	w.logger.Error("Bulk request completed with item failures",
		"failed", len(failures),
		"total", len(ops))
	return result, &errors.BatchPartialFailureError{Total: len(ops), Items: failures}
}

func itemFailures(ops []Operation, items []map[string]bulkItemResult) []errors.BulkItemFailure {
	var failures []errors.BulkItemFailure
	for i, item := range items {
		for action, res := range item {
			if res.Error == nil && res.Status < http.StatusMultipleChoices {
				continue
			}
			failure := errors.BulkItemFailure{
				Position: i,
				Action:   action,
				ID:       res.ID,
				Status:   res.Status,
			}
			if res.Error != nil {
				failure.Type = res.Error.Type
				failure.Reason = res.Error.Reason
			}
			if failure.ID == "" && i < len(ops) {
				failure.ID = ops[i].ID
			}
			failures = append(failures, failure)
		}
	}
	return failures
}
