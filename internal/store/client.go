// Package store talks to the Elasticsearch-compatible document store.
// It implements the two endpoints the ingest pipeline needs: a term search
// on hostname.keyword and the NDJSON bulk endpoint.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anstrom/surfacesync/internal/errors"
	"github.com/anstrom/surfacesync/internal/logging"
	"github.com/anstrom/surfacesync/internal/metrics"
)

const (
	// HostnameField is the non-analyzed hostname field used for exact matches.
	HostnameField = "hostname.keyword"

	// ContentTypeNDJSON is the content type of bulk payloads.
	ContentTypeNDJSON = "application/x-ndjson"

	endpointSearch = "search"
	endpointBulk   = "bulk"

	defaultUserAgent = "surfacesync/1.0"
)

// Config holds the connection settings for a store client.
type Config struct {
	// Host is the base URL, e.g. http://localhost:9200.
	Host string
	// Timeout bounds each request; zero keeps the transport default.
	Timeout time.Duration
}

// BulkResponse is the raw answer to a bulk request.
type BulkResponse struct {
	StatusCode int
	Body       []byte
}

// Client provides HTTP access to the document store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	metrics    metrics.Recorder
	logger     *logging.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithMetrics records request counts and durations.
func WithMetrics(m metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a store client for cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.Host, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  defaultUserAgent,
		metrics:    metrics.Noop{},
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("store")
	return c
}

// BaseURL returns the store base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TermQuery builds the exact-match query for a hostname.
func TermQuery(hostname string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				HostnameField: map[string]interface{}{
					"value": hostname,
				},
			},
		},
	}
}

// SearchHostname looks up documents whose hostname matches exactly.
// Only transport failures are returned as errors; every response body,
// whatever its status, is decoded into a Lookup.
func (c *Client) SearchHostname(ctx context.Context, index, hostname string) (Lookup, error) {
	body, err := json.Marshal(TermQuery(hostname))
	if err != nil {
		return Lookup{}, fmt.Errorf("failed to marshal search query: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/_search", c.baseURL, url.PathEscape(index))
	status, respBody, err := c.do(ctx, http.MethodGet, endpoint, endpointSearch, "application/json", body)
	if err != nil {
		return Lookup{}, err
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		c.logger.Warn("Search returned non-success status",
			"hostname", hostname,
			"index", index,
			"status", status)
	}

	return DecodeLookup(respBody), nil
}

// Bulk submits an NDJSON payload to the bulk endpoint in a single request.
func (c *Client) Bulk(ctx context.Context, payload []byte) (*BulkResponse, error) {
	status, body, err := c.do(ctx, http.MethodPost, c.baseURL+"/_bulk", endpointBulk, ContentTypeNDJSON, payload)
	if err != nil {
		return nil, err
	}
	return &BulkResponse{StatusCode: status, Body: body}, nil
}

// do performs the HTTP request and reads the whole response body.
func (c *Client) do(ctx context.Context, method, target, endpoint, contentType string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordStoreRequest(endpoint, "transport_error", time.Since(start))
		c.logger.ErrorStore("Store request failed", err, "endpoint", endpoint, "url", target)
		return 0, nil, errors.ErrStoreUnavailable(endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordStoreRequest(endpoint, "transport_error", time.Since(start))
		return 0, nil, errors.ErrStoreUnavailable(endpoint, fmt.Errorf("failed to read response body: %w", err))
	}

	c.metrics.RecordStoreRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
	c.logger.Debug("Store request completed",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	return resp.StatusCode, body, nil
}
