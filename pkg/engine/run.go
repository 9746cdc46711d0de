package engine

import (
	"time"

	"github.com/verdictdev/verdict/pkg/backend"
	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/project"
)

// State is the lifecycle state of an analysis run.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Warning records one backend that produced no signal. A warned run is
// degraded, not failed.
type Warning struct {
	Backend string `json:"backend"`
	Reason  string `json:"reason"`
}

// Run is the merged outcome of dispatching all backends over one project.
// Once the state reaches Completed or Failed the run is immutable.
type Run struct {
	State      State                      `json:"state"`
	Project    *project.Project           `json:"-"`
	Files      []string                   `json:"files"`
	Issues     []issue.Issue              `json:"issues"`
	Metrics    map[backend.Metric]float64 `json:"metrics"`
	Warnings   []Warning                  `json:"warnings,omitempty"`
	Succeeded  []string                   `json:"succeeded"`
	FailReason string                     `json:"fail_reason,omitempty"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
}

// Degraded reports whether any backend failed during a completed run.
func (r *Run) Degraded() bool {
	return len(r.Warnings) > 0
}

// Measured reports whether any backend produced the given metric.
func (r *Run) Measured(m backend.Metric) bool {
	_, ok := r.Metrics[m]
	return ok
}
