package api

import (
	"sync"
	"time"

	"github.com/anstrom/surfacesync/internal/ingest"
)

// Run outcomes reported by the status endpoints.
const (
	OutcomePending = "pending"
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// RunReport is the JSON view of one finished ingest run.
type RunReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	Duration   string    `json:"duration"`
	Hosts      int       `json:"hosts"`
	Skipped    int       `json:"skipped"`
	OpenPorts  int       `json:"open_ports"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	DryRun     bool      `json:"dry_run"`
	StatusCode int       `json:"status_code,omitempty"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
}

// RunStatus keeps the most recent run for the status server. It is safe for
// concurrent use by the scheduler and HTTP handlers.
type RunStatus struct {
	mu       sync.RWMutex
	last     *RunReport
	runs     int
	failures int
	nextRun  time.Time
}

// NewRunStatus returns an empty RunStatus.
func NewRunStatus() *RunStatus {
	return &RunStatus{}
}

// Record stores the outcome of a pipeline run.
func (s *RunStatus) Record(summary *ingest.Summary, err error) {
	report := &RunReport{
		Outcome: OutcomeSuccess,
		Message: ingest.OutcomeMessage(summary, err),
	}
	if summary != nil {
		report.RunID = summary.RunID
		report.StartedAt = summary.StartedAt
		report.Duration = summary.Duration.String()
		report.Hosts = summary.Hosts
		report.Skipped = summary.Skipped
		report.OpenPorts = summary.OpenPorts
		report.Created = summary.Created
		report.Updated = summary.Updated
		report.DryRun = summary.DryRun
		if summary.Batch != nil {
			report.StatusCode = summary.Batch.StatusCode
		}
	}
	if err != nil {
		report.Outcome = OutcomeFailure
		report.Error = err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = report
	s.runs++
	if err != nil {
		s.failures++
	}
}

// Last returns a copy of the most recent run, or nil before the first one.
func (s *RunStatus) Last() *RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	last := *s.last
	return &last
}

// Counts returns the number of recorded runs and how many of them failed.
func (s *RunStatus) Counts() (runs, failures int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs, s.failures
}

// SetNextRun records when the scheduler fires next.
func (s *RunStatus) SetNextRun(next time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRun = next
}

// NextRun returns the next scheduled run, zero when unknown.
func (s *RunStatus) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRun
}

// Outcome returns the outcome of the most recent run.
func (s *RunStatus) Outcome() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return OutcomePending
	}
	return s.last.Outcome
}
