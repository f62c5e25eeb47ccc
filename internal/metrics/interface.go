// Package metrics provides interfaces for metrics collection and monitoring.
package metrics

import "time"

//go:generate mockgen -destination=mocks/mock_recorder.go -package=mocks . Recorder

// Recorder defines the pipeline metrics surface.
// This interface allows for easy mocking and testing of metrics functionality.
type Recorder interface {
	// AddHostsParsed counts host records produced by the report parser.
	AddHostsParsed(count int)

	// AddHostsSkipped counts host entries dropped by the parser.
	AddHostsSkipped(count int)

	// AddOpenPorts counts open ports across parsed hosts.
	AddOpenPorts(count int)

	// IncrementLookups counts hostname lookups by outcome.
	IncrementLookups(kind string)

	// IncrementOperations counts bulk operations by action.
	IncrementOperations(action string)

	// RecordStoreRequest records one request to the document store.
	RecordStoreRequest(endpoint, status string, duration time.Duration)

	// AddBulkItemFailures counts bulk items the store rejected.
	AddBulkItemFailures(count int)

	// RecordRun records the outcome of one pipeline run.
	RecordRun(status string, duration time.Duration)
}

// Ensure that PrometheusMetrics and Noop implement Recorder.
var (
	_ Recorder = (*PrometheusMetrics)(nil)
	_ Recorder = Noop{}
)

// Noop discards every measurement. It is the default Recorder when none is
// configured.
type Noop struct{}

// AddHostsParsed does nothing.
func (Noop) AddHostsParsed(int) {}

// AddHostsSkipped does nothing.
func (Noop) AddHostsSkipped(int) {}

// AddOpenPorts does nothing.
func (Noop) AddOpenPorts(int) {}

// IncrementLookups does nothing.
func (Noop) IncrementLookups(string) {}

// IncrementOperations does nothing.
func (Noop) IncrementOperations(string) {}

// RecordStoreRequest does nothing.
func (Noop) RecordStoreRequest(string, string, time.Duration) {}

// AddBulkItemFailures does nothing.
func (Noop) AddBulkItemFailures(int) {}

// RecordRun does nothing.
func (Noop) RecordRun(string, time.Duration) {}
