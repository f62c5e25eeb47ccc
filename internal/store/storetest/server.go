// Package storetest provides an in-memory document store speaking the
// subset of the Elasticsearch HTTP API used by surfacesync, for tests.
package storetest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"
)

// Request is a request received by the fake store.
type Request struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

// Document is a stored document.
type Document struct {
	Index  string
	ID     string
	Source map[string]interface{}
}

// Server is a fake document store backed by httptest.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	docs      []*Document
	requests  []Request
	nextID    int
	bulkFail  *cannedResponse
	searchFix map[string]*cannedResponse
}

type cannedResponse struct {
	status int
	body   string
}

// NewServer starts a fake store. Callers must Close it.
func NewServer() *Server {
	s := &Server{searchFix: make(map[string]*cannedResponse)}

	r := mux.NewRouter()
	r.HandleFunc("/_bulk", s.handleBulk).Methods(http.MethodPost, http.MethodPut)
	r.HandleFunc("/{index}/_search", s.handleSearch).Methods(http.MethodGet, http.MethodPost)

	s.Server = httptest.NewServer(s.record(r))
	return s
}

// record keeps a copy of every request before routing it.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// Seed stores a document directly and returns its id.
func (s *Server) Seed(index string, source map[string]interface{}) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(index, source)
}

func (s *Server) insert(index string, source map[string]interface{}) string {
	s.nextID++
	id := fmt.Sprintf("doc-%d", s.nextID)
	s.docs = append(s.docs, &Document{Index: index, ID: id, Source: source})
	return id
}

// FailBulk makes every bulk request answer with status and body.
func (s *Server) FailBulk(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkFail = &cannedResponse{status: status, body: body}
}

// FixSearch makes searches for hostname answer with status and body.
func (s *Server) FixSearch(hostname string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchFix[hostname] = &cannedResponse{status: status, body: body}
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the requests received for a path.
func (s *Server) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests forgets recorded requests but keeps documents.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// Documents returns the documents of an index in insertion order.
func (s *Server) Documents(index string) []Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Document
	for _, d := range s.docs {
		if d.Index == index {
			out = append(out, *d)
		}
	}
	return out
}

type searchRequest struct {
	Query struct {
		Term map[string]struct {
			Value string `json:"value"`
		} `json:"term"`
	} `json:"query"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	index := mux.Vars(r)["index"]

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  map[string]interface{}{"type": "parsing_exception", "reason": err.Error()},
			"status": http.StatusBadRequest,
		})
		return
	}
	hostname := req.Query.Term["hostname.keyword"].Value

	s.mu.Lock()
	defer s.mu.Unlock()

	if fix, ok := s.searchFix[hostname]; ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fix.status)
		_, _ = io.WriteString(w, fix.body)
		return
	}

	exists := false
	hits := []map[string]interface{}{}
	for _, d := range s.docs {
		if d.Index != index {
			continue
		}
		exists = true
		if d.Source["hostname"] == hostname {
			hits = append(hits, map[string]interface{}{
				"_index":  d.Index,
				"_id":     d.ID,
				"_score":  1.0,
				"_source": d.Source,
			})
		}
	}

	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": map[string]interface{}{
				"type":   "index_not_found_exception",
				"reason": "no such index [" + index + "]",
			},
			"status": http.StatusNotFound,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"took":      1,
		"timed_out": false,
		"hits": map[string]interface{}{
			"total": map[string]interface{}{"value": len(hits), "relation": "eq"},
			"hits":  hits,
		},
	})
}

type bulkAction struct {
	Index  string `json:"_index"`
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Result string `json:"result,omitempty"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}

type updateBody struct {
	Script struct {
		Source string                 `json:"source"`
		Lang   string                 `json:"lang"`
		Params map[string]interface{} `json:"params"`
	} `json:"script"`
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bulkFail != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.bulkFail.status)
		_, _ = io.WriteString(w, s.bulkFail.body)
		return
	}

	var lines [][]byte
	scanner := bufio.NewScanner(r.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) > 0 {
			lines = append(lines, append([]byte(nil), line...))
		}
	}
	if len(lines) == 0 || len(lines)%2 != 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  map[string]interface{}{"type": "illegal_argument_exception", "reason": "malformed bulk body"},
			"status": http.StatusBadRequest,
		})
		return
	}

	items := make([]map[string]*bulkAction, 0, len(lines)/2)
	anyErrors := false
	for i := 0; i < len(lines); i += 2 {
		var meta map[string]bulkAction
		if err := json.Unmarshal(lines[i], &meta); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":  map[string]interface{}{"type": "illegal_argument_exception", "reason": err.Error()},
				"status": http.StatusBadRequest,
			})
			return
		}

		for action, target := range meta {
			result := target
			switch action {
			case "index", "create":
				var source map[string]interface{}
				_ = json.Unmarshal(lines[i+1], &source)
				result.ID = s.insert(target.Index, source)
				result.Status = http.StatusCreated
				result.Result = "created"
			case "update":
				var body updateBody
				_ = json.Unmarshal(lines[i+1], &body)
				if doc := s.find(target.Index, target.ID); doc != nil {
					for key, value := range body.Script.Params {
						doc.Source[key] = value
					}
					result.Status = http.StatusOK
					result.Result = "updated"
				} else {
					anyErrors = true
					result.Status = http.StatusNotFound
					result.Error = &struct {
						Type   string `json:"type"`
						Reason string `json:"reason"`
					}{"document_missing_exception", "[" + target.ID + "]: document missing"}
				}
			}
			items = append(items, map[string]*bulkAction{action: &result})
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"took":   2,
		"errors": anyErrors,
		"items":  items,
	})
}

func (s *Server) find(index, id string) *Document {
	for _, d := range s.docs {
		if d.Index == index && d.ID == id {
			return d
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
