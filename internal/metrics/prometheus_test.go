package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetrics_Initialization(t *testing.T) {
	pm := NewPrometheusMetrics()
	if pm == nil {
		t.Fatalf("NewPrometheusMetrics returned nil")
	}
	if pm.GetRegistry() == nil {
		t.Fatalf("GetRegistry returned nil")
	}
}

func TestPrometheusMetrics_ReportMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.AddHostsParsed(3)
	pm.AddHostsParsed(2)
	pm.AddHostsSkipped(1)
	pm.AddOpenPorts(7)

	if got := testutil.ToFloat64(pm.hostsParsed); got != 5 {
		t.Errorf("expected 5 parsed hosts, got %v", got)
	}
	if got := testutil.ToFloat64(pm.hostsSkipped); got != 1 {
		t.Errorf("expected 1 skipped host, got %v", got)
	}
	if got := testutil.ToFloat64(pm.openPorts); got != 7 {
		t.Errorf("expected 7 open ports, got %v", got)
	}
}

func TestPrometheusMetrics_IngestMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.IncrementLookups("found")
	pm.IncrementLookups("not_found")
	pm.IncrementLookups("not_found")
	pm.IncrementOperations("create")
	pm.IncrementOperations("update")
	pm.AddBulkItemFailures(2)

	if count := testutil.CollectAndCount(pm.lookups); count != 2 {
		t.Errorf("expected 2 lookup label combinations, got %d", count)
	}
	if got := testutil.ToFloat64(pm.lookups.WithLabelValues("not_found")); got != 2 {
		t.Errorf("expected 2 not_found lookups, got %v", got)
	}
	if got := testutil.ToFloat64(pm.operations.WithLabelValues("update")); got != 1 {
		t.Errorf("expected 1 update, got %v", got)
	}
	if got := testutil.ToFloat64(pm.itemFailures); got != 2 {
		t.Errorf("expected 2 item failures, got %v", got)
	}
}

func TestPrometheusMetrics_RecordRun(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.RecordRun("failure", time.Second)
	if got := testutil.ToFloat64(pm.lastSuccess); got != 0 {
		t.Errorf("expected no success timestamp after a failure, got %v", got)
	}
	if got := testutil.ToFloat64(pm.lastRun); got == 0 {
		t.Errorf("expected last run timestamp to be set")
	}

	pm.RecordRun("success", 2*time.Second)
	if got := testutil.ToFloat64(pm.lastSuccess); got == 0 {
		t.Errorf("expected success timestamp to be set")
	}
	if got := testutil.ToFloat64(pm.runsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("expected 1 successful run, got %v", got)
	}
}

func TestPrometheusMetrics_StoreMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.RecordStoreRequest("search", "200", 10*time.Millisecond)
	pm.RecordStoreRequest("bulk", "200", 20*time.Millisecond)
	pm.RecordStoreRequest("bulk", "400", 30*time.Millisecond)

	if count := testutil.CollectAndCount(pm.storeRequests); count != 3 {
		t.Errorf("expected 3 request label combinations, got %d", count)
	}
	if count := testutil.CollectAndCount(pm.storeRequestDuration); count != 2 {
		t.Errorf("expected 2 duration series, got %d", count)
	}
}

func TestPrometheusMetrics_HTTPHandlerServes(t *testing.T) {
	pm := NewPrometheusMetrics()
	pm.AddHostsParsed(1)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	handler := promhttp.HandlerFor(pm.GetRegistry(), promhttp.HandlerOpts{})
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "surfacesync_report_hosts_total 1") {
		t.Fatalf("expected hosts metric in output")
	}
}

func TestPrometheusMetrics_WriteTextfile(t *testing.T) {
	pm := NewPrometheusMetrics()
	pm.IncrementOperations("create")

	path := filepath.Join(t.TempDir(), "surfacesync.prom")
	if err := pm.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected textfile, got %v", err)
	}
	if !strings.Contains(string(data), `surfacesync_ingest_operations_total{action="create"} 1`) {
		t.Errorf("expected operations metric in textfile, got:\n%s", string(data))
	}
}

func TestPrometheusMetrics_WriteTextfileError(t *testing.T) {
	pm := NewPrometheusMetrics()
	path := filepath.Join(t.TempDir(), "missing-dir", "surfacesync.prom")
	if err := pm.WriteTextfile(path); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestNoop(t *testing.T) {
	var r Recorder = Noop{}
	r.AddHostsParsed(1)
	r.AddHostsSkipped(1)
	r.AddOpenPorts(1)
	r.IncrementLookups("found")
	r.IncrementOperations("create")
	r.RecordStoreRequest("bulk", "200", time.Millisecond)
	r.AddBulkItemFailures(1)
	r.RecordRun("success", time.Millisecond)
}
