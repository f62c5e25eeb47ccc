package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/surfacesync/internal/errors"
	"github.com/anstrom/surfacesync/internal/metrics/mocks"
	"github.com/anstrom/surfacesync/internal/store/storetest"
)

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	c := NewClient(Config{Host: "http://localhost:9200/"})
	assert.Equal(t, "http://localhost:9200", c.BaseURL())
}

func TestTermQuery(t *testing.T) {
	data, err := json.Marshal(TermQuery("alpha"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{"term":{"hostname.keyword":{"value":"alpha"}}}}`, string(data))
}

func TestClient_SearchHostname(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	id := srv.Seed("attack-surface", map[string]interface{}{"hostname": "alpha", "ip_address": "10.0.0.5"})
	srv.Seed("attack-surface", map[string]interface{}{"hostname": "beta", "ip_address": "10.0.0.9"})

	c := NewClient(Config{Host: srv.URL})

	lookup, err := c.SearchHostname(context.Background(), "attack-surface", "alpha")
	require.NoError(t, err)
	assert.Equal(t, Lookup{Kind: Found, ID: id, Total: 1}, lookup)

	lookup, err = c.SearchHostname(context.Background(), "attack-surface", "gamma")
	require.NoError(t, err)
	assert.Equal(t, NotFound, lookup.Kind)

	requests := srv.RequestsTo("/attack-surface/_search")
	require.Len(t, requests, 2)
	assert.Equal(t, http.MethodGet, requests[0].Method)
	assert.Equal(t, "application/json", requests[0].ContentType)
	assert.JSONEq(t, `{"query":{"term":{"hostname.keyword":{"value":"alpha"}}}}`, string(requests[0].Body))
}

func TestClient_SearchHostname_ExactMatch(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	srv.Seed("attack-surface", map[string]interface{}{"hostname": "alpha.example.com"})

	c := NewClient(Config{Host: srv.URL})
	lookup, err := c.SearchHostname(context.Background(), "attack-surface", "alpha")
	require.NoError(t, err)
	assert.Equal(t, NotFound, lookup.Kind)
}

func TestClient_SearchHostname_MissingIndex(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	c := NewClient(Config{Host: srv.URL})
	lookup, err := c.SearchHostname(context.Background(), "attack-surface", "alpha")
	require.NoError(t, err)
	assert.Equal(t, NotFound, lookup.Kind)
}

func TestClient_SearchHostname_MalformedBody(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	srv.FixSearch("alpha", http.StatusBadGateway, "<html>upstream error</html>")

	c := NewClient(Config{Host: srv.URL})
	lookup, err := c.SearchHostname(context.Background(), "attack-surface", "alpha")
	require.NoError(t, err)
	assert.Equal(t, Malformed, lookup.Kind)
}

func TestClient_SearchHostname_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{Host: url, Timeout: time.Second})
	_, err := c.SearchHostname(context.Background(), "attack-surface", "alpha")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeStoreUnavailable))
}

func TestClient_Bulk(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	payload := []byte(`{"index":{"_index":"attack-surface"}}` + "\n" +
		`{"hostname":"alpha","ip_address":"10.0.0.5","ports":[],"subsidiary":"Evil Corp"}` + "\n")

	c := NewClient(Config{Host: srv.URL})
	resp, err := c.Bulk(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), `"errors":false`)

	requests := srv.RequestsTo("/_bulk")
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPost, requests[0].Method)
	assert.Equal(t, ContentTypeNDJSON, requests[0].ContentType)
	assert.Equal(t, payload, requests[0].Body)

	docs := srv.Documents("attack-surface")
	require.Len(t, docs, 1)
	assert.Equal(t, "alpha", docs[0].Source["hostname"])
}

func TestClient_Bulk_NonSuccessStatus(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	srv.FailBulk(http.StatusBadRequest, `{"error":"bad request"}`)

	c := NewClient(Config{Host: srv.URL})
	resp, err := c.Bulk(context.Background(), []byte("{}\n{}\n"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `{"error":"bad request"}`, string(resp.Body))
}

func TestClient_RecordsMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	recorder := mocks.NewMockRecorder(ctrl)

	srv := storetest.NewServer()
	defer srv.Close()

	recorder.EXPECT().RecordStoreRequest("search", "404", gomock.Any())
	recorder.EXPECT().RecordStoreRequest("bulk", "200", gomock.Any())

	c := NewClient(Config{Host: srv.URL}, WithMetrics(recorder))
	_, err := c.SearchHostname(context.Background(), "attack-surface", "alpha")
	require.NoError(t, err)

	_, err = c.Bulk(context.Background(), []byte(`{"index":{"_index":"attack-surface"}}`+"\n"+`{"hostname":"alpha"}`+"\n"))
	require.NoError(t, err)
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := storetest.NewServer()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(Config{Host: srv.URL})
	_, err := c.Bulk(ctx, []byte("{}\n{}\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeStoreUnavailable))
}
