// Package engine orchestrates backends over a project: bounded parallel
// dispatch, per-backend timeouts, and a deterministic merge of whatever
// succeeded. A failed backend degrades the run instead of killing it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/verdictdev/verdict/pkg/backend"
	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/project"
)

const (
	// DefaultMaxParallel bounds concurrent backends. Backends parallelize
	// internally, so this stays small.
	DefaultMaxParallel = 4

	// DefaultBackendTimeout is the per-backend deadline.
	DefaultBackendTimeout = 2 * time.Minute
)

// ErrRunFailed is wrapped by every error Run returns for a failed run.
var ErrRunFailed = errors.New("analysis run failed")

// ErrCancelled marks a run that failed because its context ended rather
// than because backends broke.
var ErrCancelled = errors.New("run cancelled")

// Engine dispatches registered backends and merges their results.
type Engine struct {
	registry       *backend.Registry
	maxParallel    int
	backendTimeout time.Duration
	onBackendDone  func(name string)
}

// Option configures the Engine.
type Option func(*Engine)

// WithMaxParallel bounds how many backends run at once.
func WithMaxParallel(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxParallel = n
		}
	}
}

// WithBackendTimeout sets the per-backend deadline.
func WithBackendTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.backendTimeout = d
		}
	}
}

// WithOnBackendDone installs a callback invoked as each backend finishes,
// successful or not. Used for progress reporting; must be fast and
// goroutine-safe.
func WithOnBackendDone(fn func(name string)) Option {
	return func(e *Engine) {
		e.onBackendDone = fn
	}
}

// New creates an engine over a registry.
func New(registry *backend.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry:       registry,
		maxParallel:    DefaultMaxParallel,
		backendTimeout: DefaultBackendTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes all registered backends against the project. The returned
// Run is always non-nil; on failure its state is StateFailed and the error
// wraps ErrRunFailed.
func (e *Engine) Run(ctx context.Context, p *project.Project, files []string) (*Run, error) {
	run := &Run{
		State:     StateQueued,
		Project:   p,
		Files:     files,
		Metrics:   make(map[backend.Metric]float64),
		StartedAt: time.Now(),
	}

	names := e.registry.Names()
	if len(names) == 0 {
		return e.fail(run, "no backends registered", nil)
	}

	run.State = StateRunning

	var (
		mu       sync.Mutex
		results  = make(map[string]*backend.Result, len(names))
		failures = make(map[string]string, len(names))
	)

	workers := pool.New().WithMaxGoroutines(e.maxParallel)
	for _, name := range names {
		b, _ := e.registry.Get(name)
		workers.Go(func() {
			result, err := e.runOne(ctx, b, p, files)
			if e.onBackendDone != nil {
				e.onBackendDone(name)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[name] = failureReason(err)
				return
			}
			results[name] = result
		})
	}
	workers.Wait()

	if err := ctx.Err(); err != nil {
		reason := "run cancelled"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "run deadline exceeded"
		}
		return e.fail(run, reason, fmt.Errorf("%w: %w", ErrCancelled, err))
	}
	if len(results) == 0 {
		return e.fail(run, "all backends failed", nil)
	}

	// Merge in sorted backend order so the outcome does not depend on
	// completion timing.
	for _, name := range names {
		if reason, ok := failures[name]; ok {
			run.Warnings = append(run.Warnings, Warning{Backend: name, Reason: reason})
			continue
		}
		result := results[name]
		run.Succeeded = append(run.Succeeded, name)
		run.Issues = append(run.Issues, result.Issues...)
	}
	issue.SortStable(run.Issues)
	run.Metrics = mergeMetrics(names, results)

	run.State = StateCompleted
	run.FinishedAt = time.Now()
	return run, nil
}

// backendOutcome carries one backend's return values across the goroutine
// boundary in runOne.
type backendOutcome struct {
	result *backend.Result
	err    error
}

// runOne isolates a single backend: its own timeout, and panic containment
// so a buggy backend degrades rather than crashes the run. Analyze runs in
// its own goroutine so a backend stuck in a blocking call cannot outlive its
// deadline; the goroutine is abandoned and drains into the buffered channel
// whenever it eventually returns.
func (e *Engine) runOne(ctx context.Context, b backend.Backend, p *project.Project, files []string) (*backend.Result, error) {
	bctx, cancel := context.WithTimeout(ctx, e.backendTimeout)
	defer cancel()

	done := make(chan backendOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- backendOutcome{err: backend.Failuref(b.Name(), "panic: %v", r)}
			}
		}()
		result, err := b.Analyze(bctx, p, files)
		done <- backendOutcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		if o.result == nil {
			return nil, backend.Failuref(b.Name(), "returned no result")
		}
		return o.result, nil
	case <-bctx.Done():
		reason := "timed out"
		if ctx.Err() != nil {
			reason = "cancelled"
		}
		return nil, &backend.Failure{Backend: b.Name(), Reason: reason, Err: bctx.Err()}
	}
}

// mergeMetrics combines per-backend metrics. When several backends measure
// the same metric the values are averaged, iterating in sorted backend
// order for determinism.
func mergeMetrics(names []string, results map[string]*backend.Result) map[backend.Metric]float64 {
	sums := make(map[backend.Metric]float64)
	counts := make(map[backend.Metric]int)
	for _, name := range names {
		result, ok := results[name]
		if !ok {
			continue
		}
		metrics := make([]backend.Metric, 0, len(result.Metrics))
		for m := range result.Metrics {
			metrics = append(metrics, m)
		}
		sort.Slice(metrics, func(a, b int) bool { return metrics[a] < metrics[b] })
		for _, m := range metrics {
			sums[m] += result.Metrics[m]
			counts[m]++
		}
	}
	merged := make(map[backend.Metric]float64, len(sums))
	for m, sum := range sums {
		merged[m] = sum / float64(counts[m])
	}
	return merged
}

func (e *Engine) fail(run *Run, reason string, cause error) (*Run, error) {
	run.State = StateFailed
	run.FailReason = reason
	run.FinishedAt = time.Now()
	if cause != nil {
		return run, fmt.Errorf("%w: %s: %w", ErrRunFailed, reason, cause)
	}
	return run, fmt.Errorf("%w: %s", ErrRunFailed, reason)
}

func failureReason(err error) string {
	var failure *backend.Failure
	if errors.As(err, &failure) {
		if failure.Err != nil {
			return fmt.Sprintf("%s: %v", failure.Reason, failure.Err)
		}
		return failure.Reason
	}
	return err.Error()
}
