package exttool

import (
	"encoding/json"
	"strings"

	"github.com/verdictdev/verdict/pkg/backend"
	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/project"
)

// Per-finding deductions for the security metric.
const (
	banditHighPenalty   = 10.0
	banditMediumPenalty = 5.0
	banditLowPenalty    = 1.0
)

var banditSchema = mustCompileSchema("bandit.json", `{
	"type": "object",
	"required": ["results"],
	"properties": {
		"results": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["filename", "line_number", "issue_severity", "issue_text", "test_id"],
				"properties": {
					"filename": {"type": "string"},
					"line_number": {"type": "integer"},
					"issue_severity": {"type": "string"},
					"issue_confidence": {"type": "string"},
					"issue_text": {"type": "string"},
					"test_id": {"type": "string"}
				}
			}
		}
	}
}`)

type banditReport struct {
	Results []struct {
		Filename      string `json:"filename"`
		LineNumber    int    `json:"line_number"`
		IssueSeverity string `json:"issue_severity"`
		IssueText     string `json:"issue_text"`
		TestID        string `json:"test_id"`
	} `json:"results"`
}

// Bandit returns the bandit security scanner backend. It is the only
// external tool that contributes a metric: the security score starts at 100
// and loses points per finding by severity.
func Bandit() *Adapter {
	return NewAdapter(Tool{
		Name:   "bandit",
		Binary: "bandit",
		Args: func(_ *project.Project, files []string) []string {
			args := []string{"-f", "json", "-q"}
			return append(args, pythonOnly(files)...)
		},
		OKExitCodes: []int{1},
		Parse:       parseBandit,
	})
}

func parseBandit(p *project.Project, stdout []byte) (*backend.Result, error) {
	if err := validateJSON(banditSchema, stdout); err != nil {
		return nil, err
	}
	var report banditReport
	if err := json.Unmarshal(stdout, &report); err != nil {
		return nil, err
	}

	result := &backend.Result{Metrics: map[backend.Metric]float64{}}
	score := 100.0
	for _, r := range report.Results {
		severity := banditSeverity(r.IssueSeverity)
		switch severity {
		case issue.SeverityHigh:
			score -= banditHighPenalty
		case issue.SeverityMedium:
			score -= banditMediumPenalty
		default:
			score -= banditLowPenalty
		}
		result.Issues = append(result.Issues, issue.Issue{
			Backend:  "bandit",
			Rule:     strings.ToLower(r.TestID),
			Severity: severity,
			Category: issue.CategorySecurity,
			File:     relPath(p, r.Filename),
			Start:    issue.Location{Line: r.LineNumber},
			Message:  r.IssueText,
			Status:   issue.StatusActive,
		})
	}
	if score < 0 {
		score = 0
	}
	result.Metrics[backend.MetricSecurity] = score
	return result, nil
}

func banditSeverity(s string) issue.Severity {
	switch strings.ToUpper(s) {
	case "HIGH":
		return issue.SeverityHigh
	case "MEDIUM":
		return issue.SeverityMedium
	default:
		return issue.SeverityLow
	}
}
