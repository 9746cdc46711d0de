// Package coverage reads a coverage.py style JSON report and turns it into
// the coverage metric. It never runs the test suite itself; when no report
// exists the backend fails and the run degrades.
package coverage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/verdictdev/verdict/pkg/backend"
	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/project"
)

// BackendName is the registry name of the coverage backend.
const BackendName = "coverage"

// DefaultReportFile is the report looked up under the project root.
const DefaultReportFile = "coverage.json"

// Backend reads an existing coverage report.
type Backend struct {
	reportFile string
}

// Option configures the Backend.
type Option func(*Backend)

// WithReportFile overrides the report path relative to the project root.
func WithReportFile(rel string) Option {
	return func(b *Backend) {
		b.reportFile = rel
	}
}

// New creates a coverage backend.
func New(opts ...Option) *Backend {
	b := &Backend{reportFile: DefaultReportFile}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return BackendName }

// report mirrors the subset of the coverage.py JSON format we consume.
type report struct {
	Files map[string]struct {
		Summary struct {
			PercentCovered float64 `json:"percent_covered"`
		} `json:"summary"`
	} `json:"files"`
	Totals struct {
		PercentCovered float64 `json:"percent_covered"`
	} `json:"totals"`
}

// Analyze implements backend.Backend. The files argument is ignored; the
// report names its own files.
func (b *Backend) Analyze(ctx context.Context, p *project.Project, _ []string) (*backend.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &backend.Failure{Backend: BackendName, Reason: "cancelled", Err: err}
	}

	path := filepath.Join(p.Root(), b.reportFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &backend.Failure{
			Backend: BackendName,
			Reason:  fmt.Sprintf("coverage report %s not readable", b.reportFile),
			Err:     err,
		}
	}

	var r report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &backend.Failure{
			Backend: BackendName,
			Reason:  fmt.Sprintf("coverage report %s is not valid JSON", b.reportFile),
			Err:     err,
		}
	}

	total := clamp(r.Totals.PercentCovered)
	result := &backend.Result{
		Metrics: map[backend.Metric]float64{backend.MetricCoverage: total},
	}

	minCoverage := p.Thresholds().MinCoverage
	for file, entry := range r.Files {
		pct := clamp(entry.Summary.PercentCovered)
		if pct >= minCoverage {
			continue
		}
		result.Issues = append(result.Issues, issue.Issue{
			Backend:  BackendName,
			Rule:     "low-coverage",
			Severity: issue.SeverityLow,
			Category: issue.CategoryMaintainability,
			File:     filepath.ToSlash(file),
			Start:    issue.Location{Line: 1},
			Message:  fmt.Sprintf("file is %.1f%% covered (minimum %.0f%%)", pct, minCoverage),
			Fix:      "add tests for the uncovered paths",
			Status:   issue.StatusActive,
		})
	}
	issue.SortStable(result.Issues)
	return result, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
