package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/surfacesync/internal/config"
	"github.com/anstrom/surfacesync/internal/errors"
	metricsmocks "github.com/anstrom/surfacesync/internal/metrics/mocks"
	"github.com/anstrom/surfacesync/internal/report"
	"github.com/anstrom/surfacesync/internal/store"
	"github.com/anstrom/surfacesync/internal/store/storetest"
)

const pipelineReport = `<?xml version="1.0" encoding="UTF-8"?>
<nmaprun scanner="nmap" version="7.94">
  <host>
    <address addr="10.0.0.5" addrtype="ipv4"/>
    <hostnames><hostname name="alpha" type="user"/></hostnames>
    <ports>
      <port protocol="tcp" portid="22">
        <state state="open"/>
        <service name="ssh"/>
      </port>
      <port protocol="tcp" portid="25">
        <state state="filtered"/>
        <service name="smtp"/>
      </port>
    </ports>
  </host>
  <host>
    <address addr="10.0.0.6" addrtype="ipv4"/>
    <ports/>
  </host>
  <host>
    <address addr="10.0.0.7" addrtype="ipv4"/>
    <hostnames><hostname name="gamma" type="PTR"/></hostnames>
    <ports>
      <port protocol="tcp" portid="443">
        <state state="open"/>
        <service name="https" product="nginx"/>
      </port>
    </ports>
  </host>
</nmaprun>
`

func writeReport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nmap.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func pipelineConfig(t *testing.T, host string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Host = host
	cfg.Input.Path = writeReport(t, pipelineReport)
	return cfg
}

func bulkActions(t *testing.T, body []byte) []string {
	t.Helper()
	var actions []string
	lines := bytes.Split(bytes.TrimSuffix(body, []byte("\n")), []byte("\n"))
	for i := 0; i < len(lines); i += 2 {
		var meta map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(lines[i], &meta))
		for action := range meta {
			actions = append(actions, action)
		}
	}
	return actions
}

func TestPipeline_FirstRunCreates(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	cfg := pipelineConfig(t, srv.URL)
	p := NewPipeline(cfg, store.NewClient(store.Config{Host: srv.URL}))

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.Hosts)
	assert.Equal(t, 2, summary.OpenPorts)
	assert.Equal(t, 3, summary.Created)
	assert.Zero(t, summary.Updated)
	assert.Equal(t, SuccessMessage, OutcomeMessage(summary, nil))

	assert.Len(t, srv.RequestsTo("/attack-surface/_search"), 3)
	bulk := srv.RequestsTo("/_bulk")
	require.Len(t, bulk, 1)
	assert.Equal(t, []string{"index", "index", "index"}, bulkActions(t, bulk[0].Body))

	docs := srv.Documents("attack-surface")
	require.Len(t, docs, 3)
	assert.Equal(t, "alpha", docs[0].Source["hostname"])
	assert.Equal(t, report.NotAvailable, docs[1].Source["hostname"])
	assert.Equal(t, []interface{}{}, docs[1].Source["ports"])
	assert.Equal(t, "gamma", docs[2].Source["hostname"])
	assert.Equal(t, "Evil Corp", docs[2].Source["subsidiary"])
}

func TestPipeline_SecondRunOnlyUpdates(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	cfg := pipelineConfig(t, srv.URL)
	p := NewPipeline(cfg, store.NewClient(store.Config{Host: srv.URL}))

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	srv.ResetRequests()

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Created)
	assert.Equal(t, 3, summary.Updated)

	bulk := srv.RequestsTo("/_bulk")
	require.Len(t, bulk, 1)
	assert.Equal(t, []string{"update", "update", "update"}, bulkActions(t, bulk[0].Body))
	assert.Len(t, srv.Documents("attack-surface"), 3)
}

func TestPipeline_UpdateKeepsSubsidiary(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	id := srv.Seed("attack-surface", map[string]interface{}{
		"hostname":   "alpha",
		"ip_address": "10.9.9.9",
		"ports":      []interface{}{},
		"subsidiary": "Acme",
	})

	cfg := pipelineConfig(t, srv.URL)
	_, err := NewPipeline(cfg, store.NewClient(store.Config{Host: srv.URL})).Run(context.Background())
	require.NoError(t, err)

	for _, doc := range srv.Documents("attack-surface") {
		if doc.ID != id {
			continue
		}
		assert.Equal(t, "10.0.0.5", doc.Source["ip_address"])
		assert.Equal(t, "Acme", doc.Source["subsidiary"])
		assert.Equal(t, []interface{}{map[string]interface{}{"port": "22", "service_name": "ssh"}}, doc.Source["ports"])
	}
}

func TestPipeline_CreateMode(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	cfg := pipelineConfig(t, srv.URL)
	cfg.Ingest.Mode = config.ModeCreate

	summary, err := NewPipeline(cfg, store.NewClient(store.Config{Host: srv.URL})).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Created)
	assert.Empty(t, srv.RequestsTo("/attack-surface/_search"))
	assert.Len(t, srv.RequestsTo("/_bulk"), 1)
}

func TestPipeline_DryRun(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	cfg := pipelineConfig(t, srv.URL)
	cfg.Ingest.DryRun = true

	summary, err := NewPipeline(cfg, store.NewClient(store.Config{Host: srv.URL})).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, srv.RequestsTo("/_bulk"))
	assert.Nil(t, summary.Batch)
	assert.Equal(t, []string{"index", "index", "index"}, bulkActions(t, summary.Payload))
	assert.True(t, strings.HasPrefix(OutcomeMessage(summary, nil), "Dry run: 3 operations planned"))
}

func TestPipeline_BatchRejected(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	body := `{"error":{"type":"es_rejected_execution_exception"},"status":429}`
	srv.FailBulk(http.StatusTooManyRequests, body)

	cfg := pipelineConfig(t, srv.URL)
	summary, err := NewPipeline(cfg, store.NewClient(store.Config{Host: srv.URL})).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeBatchRejected))
	assert.Equal(t, "Bulk indexing failed. Response: "+body, OutcomeMessage(summary, err))
}

func TestPipeline_MalformedReportMakesNoRequests(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	cfg := pipelineConfig(t, srv.URL)
	cfg.Input.Path = writeReport(t, "<nmaprun><host>")

	_, err := NewPipeline(cfg, store.NewClient(store.Config{Host: srv.URL})).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMalformedReport))
	assert.Empty(t, srv.Requests())
}

func TestPipeline_MissingAddress(t *testing.T) {
	const withoutAddress = `<nmaprun>
  <host><hostnames><hostname name="ghost"/></hostnames></host>
  <host><address addr="10.0.0.5" addrtype="ipv4"/><hostnames><hostname name="alpha"/></hostnames></host>
</nmaprun>`

	t.Run("aborts by default", func(t *testing.T) {
		srv := storetest.NewServer()
		defer srv.Close()

		cfg := pipelineConfig(t, srv.URL)
		cfg.Input.Path = writeReport(t, withoutAddress)

		_, err := NewPipeline(cfg, store.NewClient(store.Config{Host: srv.URL})).Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeMissingAddress))
		assert.Empty(t, srv.Requests())
	})

	t.Run("skips when configured", func(t *testing.T) {
		srv := storetest.NewServer()
		defer srv.Close()

		cfg := pipelineConfig(t, srv.URL)
		cfg.Input.Path = writeReport(t, withoutAddress)
		cfg.Ingest.SkipInvalidHosts = true

		summary, err := NewPipeline(cfg, store.NewClient(store.Config{Host: srv.URL})).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Hosts)
		assert.Equal(t, 1, summary.Skipped)
		assert.Len(t, srv.Documents("attack-surface"), 1)
	})
}

func TestPipeline_EmptyReportSubmitsNothing(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	cfg := pipelineConfig(t, srv.URL)
	summary, err := NewPipeline(cfg, store.NewClient(store.Config{Host: srv.URL})).
		RunResult(context.Background(), &report.Result{Hosts: []report.HostRecord{}})
	require.NoError(t, err)
	assert.Empty(t, srv.Requests())
	assert.Equal(t, "No hosts to index.", OutcomeMessage(summary, nil))
}

func TestPipeline_RecordsRunMetrics(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	ctrl := gomock.NewController(t)
	recorder := metricsmocks.NewMockRecorder(ctrl)

	recorder.EXPECT().AddHostsParsed(3)
	recorder.EXPECT().AddHostsSkipped(0)
	recorder.EXPECT().AddOpenPorts(2)
	recorder.EXPECT().IncrementLookups("not_found").Times(3)
	recorder.EXPECT().IncrementOperations("create").Times(3)
	recorder.EXPECT().RecordRun("success", gomock.Any())

	cfg := pipelineConfig(t, srv.URL)
	_, err := NewPipeline(cfg, store.NewClient(store.Config{Host: srv.URL}), WithMetrics(recorder)).Run(context.Background())
	require.NoError(t, err)
}

func TestOutcomeMessage_Errors(t *testing.T) {
	partial := &errors.BatchPartialFailureError{Total: 2, Items: []errors.BulkItemFailure{{Position: 1, Action: "update", ID: "x", Reason: "missing", Type: "document_missing_exception"}}}
	assert.True(t, strings.HasPrefix(OutcomeMessage(&Summary{}, partial), "Bulk indexing failed. [BATCH_PARTIAL_FAILURE]"))

	unavailable := errors.ErrStoreUnavailable("search", assert.AnError)
	assert.True(t, strings.HasPrefix(OutcomeMessage(&Summary{}, unavailable), "Ingest failed: [STORE_UNAVAILABLE]"))
}
