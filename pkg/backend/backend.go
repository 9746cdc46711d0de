// Package backend defines the contract every analyzer backend implements
// and the registry the orchestrator dispatches through.
package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/project"
)

// Metric names one per-category quality scalar in [0,100].
type Metric string

const (
	MetricCoverage        Metric = "coverage"
	MetricComplexity      Metric = "complexity"
	MetricSecurity        Metric = "security"
	MetricMaintainability Metric = "maintainability"
	MetricDuplication     Metric = "duplication"
)

// Result is a successful backend contribution: normalized issues plus the
// subset of category metrics the backend can measure.
type Result struct {
	Issues  []issue.Issue
	Metrics map[Metric]float64
}

// Failure is the typed error a backend returns instead of letting internal
// faults cross the contract boundary. The orchestrator records it as a
// degraded contributor and continues.
type Failure struct {
	Backend string
	Reason  string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("backend %s: %s: %v", f.Backend, f.Reason, f.Err)
	}
	return fmt.Sprintf("backend %s: %s", f.Backend, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

// Failuref builds a Failure with a formatted reason and no cause.
func Failuref(backend, format string, args ...any) *Failure {
	return &Failure{Backend: backend, Reason: fmt.Sprintf(format, args...)}
}

// Backend is one pluggable analyzer. Implementations must be stateless
// across runs, must not mutate analyzed files, and must return any internal
// fault as a *Failure rather than panicking or returning raw errors.
type Backend interface {
	// Name identifies the backend in issues, warnings, and the registry.
	Name() string

	// Analyze inspects the given files (paths relative to the project
	// root) and returns a Result, or a *Failure describing why this
	// backend produced no signal. The context carries the per-backend
	// timeout and run cancellation.
	Analyze(ctx context.Context, p *project.Project, files []string) (*Result, error)
}

// Registry maps backend names to implementations so new analyzers are
// added without modifying the orchestrator.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds a backend. Registering a duplicate name is an error.
func (r *Registry) Register(b Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := b.Name()
	if _, exists := r.backends[name]; exists {
		return fmt.Errorf("backend %q already registered", name)
	}
	r.backends[name] = b
	return nil
}

// Get returns the backend with the given name.
func (r *Registry) Get(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}

// Names returns all registered backend names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
