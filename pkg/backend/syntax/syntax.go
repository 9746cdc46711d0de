// Package syntax implements the built-in tree-sitter backend. It walks each
// file's syntax tree once, collecting structural metrics and emitting
// complexity and dead-code issues.
package syntax

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/verdictdev/verdict/internal/fileproc"
	"github.com/verdictdev/verdict/pkg/backend"
	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/parser"
	"github.com/verdictdev/verdict/pkg/project"
)

// BackendName is the registry name of the syntax backend.
const BackendName = "syntax"

// Dead-code weights for the maintainability metric, reflecting how strongly
// each finding suggests rot.
const (
	weightSyntaxError = 10.0
	weightUnreachable = 2.0
	weightUnusedImp   = 1.0
)

// Backend is the internal syntax-tree analyzer.
type Backend struct {
	maxWorkers int
}

// Option configures the Backend.
type Option func(*Backend)

// WithMaxWorkers bounds the per-file parse parallelism (<=0 means 2x NumCPU).
func WithMaxWorkers(n int) Option {
	return func(b *Backend) {
		b.maxWorkers = n
	}
}

// New creates a syntax backend.
func New(opts ...Option) *Backend {
	b := &Backend{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return BackendName }

// fileResult is the per-file contribution gathered by one worker.
type fileResult struct {
	issues     []issue.Issue
	functions  int
	classes    int
	maxNesting int
	violations int
	lines      int
	deadWeight float64
}

// Analyze implements backend.Backend. A file that fails to parse yields one
// Critical syntax-error issue and is otherwise skipped; it never aborts the
// backend.
func (b *Backend) Analyze(ctx context.Context, p *project.Project, files []string) (*backend.Result, error) {
	maxComplexity := p.Thresholds().MaxComplexity

	results, errs := fileproc.MapParsed(ctx, files, b.maxWorkers, func(psr *parser.Parser, rel string) (fileResult, error) {
		parsed, err := psr.ParseFile(ctx, filepath.Join(p.Root(), rel))
		if err != nil {
			return fileResult{}, err
		}
		return analyzeFile(parsed, rel, maxComplexity), nil
	})

	if ctx.Err() != nil {
		return nil, &backend.Failure{Backend: BackendName, Reason: "cancelled", Err: ctx.Err()}
	}
	if len(results) == 0 {
		if errs != nil {
			return nil, &backend.Failure{Backend: BackendName, Reason: "no file could be analyzed", Err: errs}
		}
		return nil, backend.Failuref(BackendName, "no supported source files")
	}

	out := &backend.Result{Metrics: make(map[backend.Metric]float64)}
	var totalFunctions, totalClasses, maxNesting, totalViolations, totalLines int
	var deadWeight float64
	for _, fr := range results {
		out.Issues = append(out.Issues, fr.issues...)
		totalFunctions += fr.functions
		totalClasses += fr.classes
		if fr.maxNesting > maxNesting {
			maxNesting = fr.maxNesting
		}
		totalViolations += fr.violations
		totalLines += fr.lines
		deadWeight += fr.deadWeight
	}

	out.Issues = append(out.Issues, issue.Issue{
		Backend:  BackendName,
		Rule:     "structure-summary",
		Severity: issue.SeverityInfo,
		Category: issue.CategoryMaintainability,
		File:     ".",
		Start:    issue.Location{Line: 1},
		Message: fmt.Sprintf("%d functions, %d classes across %d files, max nesting depth %d",
			totalFunctions, totalClasses, len(results), maxNesting),
		Status: issue.StatusActive,
	})

	out.Metrics[backend.MetricComplexity] = complexityMetric(totalFunctions, totalViolations)
	out.Metrics[backend.MetricMaintainability] = maintainabilityMetric(deadWeight, totalLines)
	return out, nil
}

// complexityMetric is the percentage of functions violating the threshold,
// so 0 is best. The aggregator inverts it.
func complexityMetric(functions, violations int) float64 {
	if functions == 0 {
		return 0
	}
	return 100 * float64(violations) / float64(functions)
}

// maintainabilityMetric maps weighted dead-code density per 1K lines onto
// [0,100], higher is better.
func maintainabilityMetric(deadWeight float64, lines int) float64 {
	if lines == 0 {
		return 100
	}
	density := deadWeight / float64(lines) * 1000
	score := 100 - density*5
	if score < 0 {
		return 0
	}
	return score
}

// analyzeFile performs the single traversal for one parsed file.
func analyzeFile(parsed *parser.ParseResult, rel string, maxComplexity int) fileResult {
	fr := fileResult{lines: int(parsed.Tree.RootNode().EndPoint().Row) + 1}

	if parsed.HasSyntaxError() {
		line := 1
		if errNode := parsed.FirstError(); errNode != nil {
			line = int(errNode.StartPoint().Row) + 1
		}
		fr.deadWeight += weightSyntaxError
		fr.issues = append(fr.issues, issue.Issue{
			Backend:  BackendName,
			Rule:     "syntax-error",
			Severity: issue.SeverityCritical,
			Category: issue.CategoryMaintainability,
			File:     rel,
			Start:    issue.Location{Line: line},
			Message:  "file could not be parsed; analysis skipped for this file",
			Status:   issue.StatusActive,
		})
		return fr
	}

	fr.classes = parser.CountClasses(parsed)

	for _, fn := range parser.GetFunctions(parsed) {
		fr.functions++
		if depth := maxNestingDepth(fn, parsed); depth > fr.maxNesting {
			fr.maxNesting = depth
		}
		cyclomatic := cyclomaticComplexity(fn, parsed)
		if cyclomatic <= maxComplexity {
			continue
		}
		fr.violations++
		severity := issue.SeverityMedium
		if cyclomatic > 2*maxComplexity {
			severity = issue.SeverityHigh
		}
		name := fn.Name
		if name == "" {
			name = "(anonymous)"
		}
		end := issue.Location{Line: int(fn.EndLine)}
		fr.issues = append(fr.issues, issue.Issue{
			Backend:  BackendName,
			Rule:     "high-complexity",
			Severity: severity,
			Category: issue.CategoryComplexity,
			File:     rel,
			Start:    issue.Location{Line: int(fn.StartLine)},
			End:      &end,
			Message:  fmt.Sprintf("function %q has cyclomatic complexity %d (limit %d)", name, cyclomatic, maxComplexity),
			Fix:      fmt.Sprintf("split %q into smaller functions", name),
			Status:   issue.StatusActive,
		})
	}

	dead := findDeadCode(parsed, rel)
	fr.issues = append(fr.issues, dead...)
	for i := range dead {
		switch dead[i].Rule {
		case "unreachable-code":
			fr.deadWeight += weightUnreachable
		case "unused-import":
			fr.deadWeight += weightUnusedImp
		}
	}

	return fr
}
