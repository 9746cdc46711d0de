// Package report assembles run results into consumable views: a short
// executive summary and a full technical breakdown.
package report

import (
	"fmt"
	"time"

	"github.com/verdictdev/verdict/pkg/engine"
	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/scoring"
)

// TopIssueCount is how many issues the executive view surfaces.
const TopIssueCount = 5

// ErrRunNotCompleted is returned when a view is requested for a run that
// did not complete.
var ErrRunNotCompleted = fmt.Errorf("run is not completed")

// Executive builds the summary view: grade, category grades, counts, and
// the most urgent issues. Views are generic maps so output formatters and
// API consumers share one shape.
func Executive(run *engine.Run, card *scoring.Scorecard) (map[string]any, error) {
	if err := checkCompleted(run); err != nil {
		return nil, err
	}

	categories := make(map[string]any, len(card.Categories))
	for _, c := range card.Categories {
		categories[string(c.Metric)] = map[string]any{
			"grade":    c.Grade,
			"score":    c.Score,
			"measured": c.Measured,
		}
	}

	top := issue.TopN(run.Issues, TopIssueCount)
	topOut := make([]map[string]any, 0, len(top))
	for _, is := range top {
		topOut = append(topOut, map[string]any{
			"severity": string(is.Severity),
			"file":     is.File,
			"line":     is.Start.Line,
			"message":  is.Message,
		})
	}

	return map[string]any{
		"grade":              card.Grade,
		"score":              card.Total,
		"categories":         categories,
		"issues":             severityCounts(run.Issues),
		"top_issues":         topOut,
		"threshold_breaches": breachMaps(run),
		"degraded":           run.Degraded(),
	}, nil
}

// Technical builds the full view: every issue grouped by file, every
// metric, backend outcomes, and timing. Like Executive, the result holds
// only maps, slices, and primitives so presentation layers stay decoupled
// from the engine's types.
func Technical(run *engine.Run, card *scoring.Scorecard) (map[string]any, error) {
	if err := checkCompleted(run); err != nil {
		return nil, err
	}

	warnings := make([]map[string]any, 0, len(run.Warnings))
	for _, w := range run.Warnings {
		warnings = append(warnings, map[string]any{
			"backend": w.Backend,
			"reason":  w.Reason,
		})
	}

	metrics := make(map[string]float64, len(run.Metrics))
	for m, v := range run.Metrics {
		metrics[string(m)] = v
	}

	categories := make([]map[string]any, 0, len(card.Categories))
	for _, c := range card.Categories {
		categories = append(categories, map[string]any{
			"metric":   string(c.Metric),
			"score":    c.Score,
			"weight":   c.Weight,
			"grade":    c.Grade,
			"measured": c.Measured,
		})
	}

	// run.Issues is already in deterministic sorted order, so each file's
	// slice preserves that order.
	issuesByFile := make(map[string][]map[string]any)
	for i := range run.Issues {
		is := &run.Issues[i]
		issuesByFile[is.File] = append(issuesByFile[is.File], issueMap(is))
	}

	return map[string]any{
		"grade":              card.Grade,
		"score":              card.Total,
		"categories":         categories,
		"metrics":            metrics,
		"issues":             issuesByFile,
		"issue_count":        severityCounts(run.Issues),
		"threshold_breaches": breachMaps(run),
		"files":              len(run.Files),
		"backends": map[string]any{
			"succeeded": run.Succeeded,
			"warnings":  warnings,
		},
		"degraded":    run.Degraded(),
		"started_at":  run.StartedAt.Format(time.RFC3339Nano),
		"finished_at": run.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms": run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	}, nil
}

func issueMap(is *issue.Issue) map[string]any {
	m := map[string]any{
		"backend":  is.Backend,
		"rule":     is.Rule,
		"severity": string(is.Severity),
		"category": string(is.Category),
		"line":     is.Start.Line,
		"column":   is.Start.Column,
		"message":  is.Message,
		"status":   string(is.Status),
	}
	if is.End != nil {
		m["end_line"] = is.End.Line
		m["end_column"] = is.End.Column
	}
	if is.Fix != "" {
		m["fix"] = is.Fix
	}
	return m
}

// breachMaps lists measured metrics that crossed their project thresholds.
// Runs without a project reference report none.
func breachMaps(run *engine.Run) []map[string]any {
	if run.Project == nil {
		return nil
	}
	breaches := scoring.Breaches(run.Metrics, run.Project.Thresholds())
	out := make([]map[string]any, 0, len(breaches))
	for _, b := range breaches {
		out = append(out, map[string]any{
			"metric":  string(b.Metric),
			"value":   b.Value,
			"limit":   b.Limit,
			"message": b.Message,
		})
	}
	return out
}

func checkCompleted(run *engine.Run) error {
	if run.State != engine.StateCompleted {
		return fmt.Errorf("%w: state is %s", ErrRunNotCompleted, run.State)
	}
	return nil
}

func severityCounts(issues []issue.Issue) map[string]int {
	counts := make(map[string]int, 5)
	for _, s := range issue.Severities() {
		counts[string(s)] = 0
	}
	for s, n := range issue.CountBySeverity(issues) {
		counts[string(s)] = n
	}
	return counts
}
