// Package metrics provides Prometheus-based metrics collection for surfacesync.
// A batch run has no scrape endpoint, so the registry is written to a
// node_exporter textfile once the run finishes.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// Namespace for all surfacesync metrics
	namespace = "surfacesync"

	// Subsystems
	subsystemReport = "report"
	subsystemIngest = "ingest"
	subsystemStore  = "store"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Report metrics
	hostsParsed  prometheus.Counter
	hostsSkipped prometheus.Counter
	openPorts    prometheus.Counter

	// Ingest metrics
	lookups      *prometheus.CounterVec
	operations   *prometheus.CounterVec
	runsTotal    *prometheus.CounterVec
	runDuration  prometheus.Histogram
	lastRun      prometheus.Gauge
	lastSuccess  prometheus.Gauge
	itemFailures prometheus.Counter

	// Store metrics
	storeRequests        *prometheus.CounterVec
	storeRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		registry: registry,
	}

	pm.initReportMetrics()
	pm.initIngestMetrics()
	pm.initStoreMetrics()

	pm.registerMetrics()

	// Register standard Go collector for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())

	return pm
}

// initReportMetrics initializes report parsing metrics
func (pm *PrometheusMetrics) initReportMetrics() {
	pm.hostsParsed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemReport,
		Name:      "hosts_total",
		Help:      "Total number of host records parsed from scan reports",
	})

	pm.hostsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemReport,
		Name:      "hosts_skipped_total",
		Help:      "Total number of host entries skipped for missing an address",
	})

	pm.openPorts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemReport,
		Name:      "open_ports_total",
		Help:      "Total number of open ports found in scan reports",
	})
}

// initIngestMetrics initializes reconciliation and run metrics
func (pm *PrometheusMetrics) initIngestMetrics() {
	pm.lookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemIngest,
			Name:      "lookups_total",
			Help:      "Total number of hostname lookups by outcome",
		},
		[]string{"outcome"},
	)

	pm.operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemIngest,
			Name:      "operations_total",
			Help:      "Total number of bulk operations by action",
		},
		[]string{"action"},
	)

	pm.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemIngest,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		},
		[]string{"status"},
	)

	pm.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystemIngest,
		Name:      "run_duration_seconds",
		Help:      "Duration of pipeline runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0},
	})

	pm.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystemIngest,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last pipeline run",
	})

	pm.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystemIngest,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful pipeline run",
	})

	pm.itemFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemIngest,
		Name:      "bulk_item_failures_total",
		Help:      "Total number of bulk items rejected by the store",
	})
}

// initStoreMetrics initializes document store request metrics
func (pm *PrometheusMetrics) initStoreMetrics() {
	pm.storeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemStore,
			Name:      "requests_total",
			Help:      "Total number of document store requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	pm.storeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemStore,
			Name:      "request_duration_seconds",
			Help:      "Duration of document store requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"endpoint"},
	)
}

// registerMetrics registers all metrics with the Prometheus registry
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(
		pm.hostsParsed,
		pm.hostsSkipped,
		pm.openPorts,
		pm.lookups,
		pm.operations,
		pm.runsTotal,
		pm.runDuration,
		pm.lastRun,
		pm.lastSuccess,
		pm.itemFailures,
		pm.storeRequests,
		pm.storeRequestDuration,
	)
}

// GetRegistry returns the Prometheus registry
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// AddHostsParsed increments the parsed hosts counter
func (pm *PrometheusMetrics) AddHostsParsed(count int) {
	pm.hostsParsed.Add(float64(count))
}

// AddHostsSkipped increments the skipped hosts counter
func (pm *PrometheusMetrics) AddHostsSkipped(count int) {
	pm.hostsSkipped.Add(float64(count))
}

// AddOpenPorts increments the open ports counter
func (pm *PrometheusMetrics) AddOpenPorts(count int) {
	pm.openPorts.Add(float64(count))
}

// IncrementLookups increments the lookup counter for an outcome
func (pm *PrometheusMetrics) IncrementLookups(kind string) {
	pm.lookups.WithLabelValues(kind).Inc()
}

// IncrementOperations increments the operation counter for an action
func (pm *PrometheusMetrics) IncrementOperations(action string) {
	pm.operations.WithLabelValues(action).Inc()
}

// RecordStoreRequest records a store request and its duration
func (pm *PrometheusMetrics) RecordStoreRequest(endpoint, status string, duration time.Duration) {
	pm.storeRequests.WithLabelValues(endpoint, status).Inc()
	pm.storeRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// AddBulkItemFailures increments the bulk item failure counter
func (pm *PrometheusMetrics) AddBulkItemFailures(count int) {
	pm.itemFailures.Add(float64(count))
}

// RecordRun records a finished pipeline run
func (pm *PrometheusMetrics) RecordRun(status string, duration time.Duration) {
	now := float64(time.Now().Unix())
	pm.runsTotal.WithLabelValues(status).Inc()
	pm.runDuration.Observe(duration.Seconds())
	pm.lastRun.Set(now)
	if status == "success" {
		pm.lastSuccess.Set(now)
	}
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (pm *PrometheusMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, pm.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
