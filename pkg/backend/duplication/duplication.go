// Package duplication detects near-identical files by comparing their sets
// of distinct lines. Lines are interned to integer IDs once, so each pair
// comparison is a bitmap intersection rather than a text diff.
package duplication

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
	"github.com/sourcegraph/conc/pool"
	"github.com/zeebo/blake3"

	"github.com/verdictdev/verdict/internal/scanner"
	"github.com/verdictdev/verdict/pkg/backend"
	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/project"
)

// BackendName is the registry name of the duplication backend.
const BackendName = "duplication"

const (
	// DefaultThreshold is the minimum similarity reported as duplication.
	DefaultThreshold = 0.8

	// DefaultMinFileBytes filters out files too small to be meaningful
	// duplicates.
	DefaultMinFileBytes = 100

	// highSimilarity escalates a pair from Medium to High.
	highSimilarity = 0.95
)

// Backend detects duplicate file pairs.
type Backend struct {
	threshold    float64
	minFileBytes int64
	maxWorkers   int
}

// Option configures the Backend.
type Option func(*Backend)

// WithThreshold sets the similarity threshold in (0,1].
func WithThreshold(t float64) Option {
	return func(b *Backend) {
		if t > 0 && t <= 1 {
			b.threshold = t
		}
	}
}

// WithMinFileBytes sets the minimum file size considered.
func WithMinFileBytes(n int64) Option {
	return func(b *Backend) {
		b.minFileBytes = n
	}
}

// WithMaxWorkers bounds comparison parallelism (<=0 means GOMAXPROCS via conc).
func WithMaxWorkers(n int) Option {
	return func(b *Backend) {
		b.maxWorkers = n
	}
}

// New creates a duplication backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		threshold:    DefaultThreshold,
		minFileBytes: DefaultMinFileBytes,
		maxWorkers:   8,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return BackendName }

// fileSet is one file's distinct lines as a bitmap over the intern table,
// plus a content fingerprint for the identical-file fast path.
type fileSet struct {
	path        string
	lines       *roaring.Bitmap
	fingerprint [32]byte
}

// internTable maps line text to stable uint32 IDs. Lines are bucketed by
// xxhash so the table stores each distinct line once and lookups stay exact.
type internTable struct {
	buckets map[uint64][]internEntry
	next    uint32
}

type internEntry struct {
	line string
	id   uint32
}

func newInternTable() *internTable {
	return &internTable{buckets: make(map[uint64][]internEntry)}
}

func (t *internTable) id(line string) uint32 {
	h := xxhash.Sum64String(line)
	for _, e := range t.buckets[h] {
		if e.line == line {
			return e.id
		}
	}
	id := t.next
	t.next++
	t.buckets[h] = append(t.buckets[h], internEntry{line: line, id: id})
	return id
}

// Analyze implements backend.Backend.
func (b *Backend) Analyze(ctx context.Context, p *project.Project, files []string) (*backend.Result, error) {
	files = scanner.FilterMinSize(p.Root(), files, b.minFileBytes)

	sets, err := b.loadFiles(ctx, p.Root(), files)
	if err != nil {
		return nil, err
	}

	pairs := b.comparePairs(ctx, sets)
	if err := ctx.Err(); err != nil {
		return nil, &backend.Failure{Backend: BackendName, Reason: "cancelled", Err: err}
	}
	sortPairs(pairs)

	result := &backend.Result{
		Metrics: map[backend.Metric]float64{
			backend.MetricDuplication: duplicationMetric(len(pairs), len(sets)),
		},
	}
	for _, pair := range pairs {
		severity := issue.SeverityMedium
		if pair.Similarity >= highSimilarity {
			severity = issue.SeverityHigh
		}
		result.Issues = append(result.Issues, issue.Issue{
			Backend:  BackendName,
			Rule:     "duplicate-file",
			Severity: severity,
			Category: issue.CategoryDuplication,
			File:     pair.FileA,
			Start:    issue.Location{Line: 1},
			Message: fmt.Sprintf("%.0f%% similar to %s (%d of %d distinct lines shared)",
				pair.Similarity*100, pair.FileB, pair.SharedLines, pair.TotalLines),
			Fix:    fmt.Sprintf("extract the shared code of %s and %s", pair.FileA, pair.FileB),
			Status: issue.StatusActive,
		})
	}
	if stats := computeStats(pairs); stats.Pairs > 0 {
		result.Issues = append(result.Issues, issue.Issue{
			Backend:  BackendName,
			Rule:     "duplication-summary",
			Severity: issue.SeverityInfo,
			Category: issue.CategoryDuplication,
			File:     ".",
			Start:    issue.Location{Line: 1},
			Message: fmt.Sprintf("%d duplicate pairs, mean similarity %.2f, p95 %.2f",
				stats.Pairs, stats.MeanSimilarity, stats.P95Similarity),
			Status: issue.StatusActive,
		})
	}
	issue.SortStable(result.Issues)
	return result, nil
}

// loadFiles builds one fileSet per readable file. The intern table is shared
// so loading is sequential; comparisons carry the parallelism.
func (b *Backend) loadFiles(ctx context.Context, root string, files []string) ([]fileSet, error) {
	table := newInternTable()
	sets := make([]fileSet, 0, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, &backend.Failure{Backend: BackendName, Reason: "cancelled", Err: err}
		}
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			continue
		}
		lines := roaring.New()
		scan := bufio.NewScanner(bytes.NewReader(data))
		scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scan.Scan() {
			// Lines match exactly, whitespace included. The scanner only
			// drops the line terminator (and the \r of a CRLF), so
			// checkouts with different line endings still compare equal.
			lines.Add(table.id(scan.Text()))
		}
		if lines.IsEmpty() {
			continue
		}
		sets = append(sets, fileSet{
			path:        rel,
			lines:       lines,
			fingerprint: blake3.Sum256(data),
		})
	}
	return sets, nil
}

// comparePairs checks every candidate pair, pruned by sorting: files sorted
// by distinct-line count cannot reach the threshold once the size ratio
// falls below it, so each inner scan stops early.
func (b *Backend) comparePairs(ctx context.Context, sets []fileSet) []Pair {
	sort.Slice(sets, func(a, c int) bool {
		if ca, cc := sets[a].lines.GetCardinality(), sets[c].lines.GetCardinality(); ca != cc {
			return ca < cc
		}
		return sets[a].path < sets[c].path
	})

	var (
		mu    sync.Mutex
		pairs []Pair
	)
	workers := pool.New().WithMaxGoroutines(b.maxWorkers)
	for i := range sets {
		workers.Go(func() {
			if ctx.Err() != nil {
				return
			}
			var local []Pair
			cardI := sets[i].lines.GetCardinality()
			for j := i + 1; j < len(sets); j++ {
				cardJ := sets[j].lines.GetCardinality()
				if float64(cardI)/float64(cardJ) < b.threshold {
					break
				}
				if pair, ok := b.compare(&sets[i], &sets[j], cardI, cardJ); ok {
					local = append(local, pair)
				}
			}
			if len(local) > 0 {
				mu.Lock()
				pairs = append(pairs, local...)
				mu.Unlock()
			}
		})
	}
	workers.Wait()
	return pairs
}

func (b *Backend) compare(a, c *fileSet, cardA, cardC uint64) (Pair, bool) {
	fileA, fileB := a.path, c.path
	if fileB < fileA {
		fileA, fileB = fileB, fileA
	}
	total := int(max(cardA, cardC))

	// Byte-identical files need no intersection.
	if a.fingerprint == c.fingerprint {
		return Pair{FileA: fileA, FileB: fileB, Similarity: 1.0, SharedLines: total, TotalLines: total}, true
	}

	shared := int(a.lines.AndCardinality(c.lines))
	similarity := float64(shared) / float64(total)
	if similarity < b.threshold {
		return Pair{}, false
	}
	return Pair{FileA: fileA, FileB: fileB, Similarity: similarity, SharedLines: shared, TotalLines: total}, true
}

// duplicationMetric maps the duplicate-pair ratio onto [0,100], higher is
// better. With n comparable files there are n(n-1)/2 possible pairs.
func duplicationMetric(dupPairs, files int) float64 {
	if files < 2 {
		return 100
	}
	possible := float64(files*(files-1)) / 2
	score := 100 * (1 - float64(dupPairs)/possible)
	if score < 0 {
		return 0
	}
	return score
}
