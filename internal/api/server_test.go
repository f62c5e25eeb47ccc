package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/surfacesync/internal/ingest"
	"github.com/anstrom/surfacesync/internal/metrics"
)

func newTestServer(t *testing.T) (*Server, *RunStatus, *metrics.PrometheusMetrics) {
	t.Helper()
	pm := metrics.NewPrometheusMetrics()
	status := NewRunStatus()
	return New("127.0.0.1:0", pm.GetRegistry(), status, WithVersion("1.2.3")), status, pm
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLiveness(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := get(t, s, "/api/v1/liveness")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "alive", decode(t, rec)["status"])
}

func TestHealth(t *testing.T) {
	s, status, _ := newTestServer(t)

	t.Run("pending before first run", func(t *testing.T) {
		rec := get(t, s, "/api/v1/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, OutcomePending, body["last_run"])
	})

	t.Run("unhealthy after failed run", func(t *testing.T) {
		status.Record(&ingest.Summary{RunID: "r1"}, fmt.Errorf("boom"))

		rec := get(t, s, "/api/v1/health")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "unhealthy", decode(t, rec)["status"])
	})

	t.Run("healthy again after success", func(t *testing.T) {
		status.Record(&ingest.Summary{RunID: "r2", Operations: []ingest.Operation{{Action: ingest.ActionCreate}}}, nil)

		rec := get(t, s, "/api/v1/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, OutcomeSuccess, decode(t, rec)["last_run"])
	})
}

func TestStatus(t *testing.T) {
	s, status, _ := newTestServer(t)

	rec := get(t, s, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "surfacesync", body["service"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Nil(t, body["last_run"])
	assert.NotContains(t, body, "next_run")

	next := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	status.SetNextRun(next)

	status.Record(&ingest.Summary{
		RunID:      "run-7",
		Hosts:      3,
		Created:    1,
		Updated:    2,
		Operations: make([]ingest.Operation, 3),
		Batch:      &ingest.BatchResult{StatusCode: http.StatusOK},
	}, nil)

	body = decode(t, get(t, s, "/api/v1/status"))
	assert.EqualValues(t, 1, body["runs"])
	assert.EqualValues(t, 0, body["failures"])
	assert.Equal(t, "2026-10-18T12:00:00Z", body["next_run"])

	last, ok := body["last_run"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "run-7", last["run_id"])
	assert.EqualValues(t, 3, last["hosts"])
	assert.EqualValues(t, 200, last["status_code"])
	assert.Equal(t, ingest.SuccessMessage, last["message"])
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, pm := newTestServer(t)
	pm.IncrementOperations("create")

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `surfacesync_ingest_operations_total{action="create"} 1`)
}

func TestCompressedResponse(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/liveness", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"alive"`)
}

func TestUnknownRoute(t *testing.T) {
	s, _, _ := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/v1/scans").Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStartStop(t *testing.T) {
	s, _, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStart_BadAddress(t *testing.T) {
	pm := metrics.NewPrometheusMetrics()
	s := New("no-port", pm.GetRegistry(), NewRunStatus())

	assert.Equal(t, "no-port", s.Addr())
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status server failed")
}
