// Package fileproc provides bounded concurrent per-file processing.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"github.com/verdictdev/verdict/pkg/parser"
)

// ProcessingError is an error tied to one file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ProcessingErrors collects per-file errors from a parallel pass.
type ProcessingErrors struct {
	mu     sync.Mutex
	Errors []ProcessingError
}

// Add appends an error. Safe for concurrent use.
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// Empty reports whether no errors were collected.
func (e *ProcessingErrors) Empty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) == 0
}

func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	default:
		return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
	}
}

// defaultWorkers is 2x NumCPU, which works well for mixed I/O and CGO loads.
func defaultWorkers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU() * 2
}

// indexed pairs a result with its input position so output order matches
// input order regardless of completion order.
type indexed[T any] struct {
	pos    int
	result T
}

// MapParsed runs fn over files with a dedicated parser per call, at most
// maxWorkers at a time (<=0 means 2x NumCPU). Results are returned in input
// order; failed files are skipped and their errors collected. Workers stop
// picking up new files once ctx is cancelled, and the context error is
// recorded for each unprocessed file.
func MapParsed[T any](ctx context.Context, files []string, maxWorkers int, fn func(*parser.Parser, string) (T, error)) ([]T, *ProcessingErrors) {
	return run(ctx, files, maxWorkers, func(path string) (T, error) {
		psr := parser.New()
		defer psr.Close()
		return fn(psr, path)
	})
}

// Map runs fn over files without a parser, for non-AST work such as raw
// line loading. Same ordering and cancellation behavior as MapParsed.
func Map[T any](ctx context.Context, files []string, maxWorkers int, fn func(string) (T, error)) ([]T, *ProcessingErrors) {
	return run(ctx, files, maxWorkers, fn)
}

func run[T any](ctx context.Context, files []string, maxWorkers int, fn func(string) (T, error)) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		results []indexed[T]
	)
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(defaultWorkers(maxWorkers))
	for i, path := range files {
		p.Go(func() {
			select {
			case <-ctx.Done():
				errs.Add(path, ctx.Err())
				return
			default:
			}

			result, err := fn(path)
			if err != nil {
				errs.Add(path, err)
				return
			}

			mu.Lock()
			results = append(results, indexed[T]{pos: i, result: result})
			mu.Unlock()
		})
	}
	p.Wait()

	ordered := sortedPositions(results)

	if errs.Empty() {
		return ordered, nil
	}
	return ordered, errs
}

func sortedPositions[T any](results []indexed[T]) []T {
	// Insertion sort by position; result sets are small relative to the
	// work done per file.
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].pos < results[j-1].pos; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
	out := make([]T, len(results))
	for i, r := range results {
		out[i] = r.result
	}
	return out
}
