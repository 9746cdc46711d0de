package exttool

import (
	"encoding/json"
	"strings"

	"github.com/verdictdev/verdict/pkg/backend"
	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/project"
)

// ruffSchema accepts the ruff JSON output format: a flat array of
// diagnostics.
var ruffSchema = mustCompileSchema("ruff.json", `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["code", "message", "filename", "location"],
		"properties": {
			"code": {"type": ["string", "null"]},
			"message": {"type": "string"},
			"filename": {"type": "string"},
			"location": {
				"type": "object",
				"required": ["row"],
				"properties": {
					"row": {"type": "integer"},
					"column": {"type": "integer"}
				}
			},
			"end_location": {
				"type": ["object", "null"],
				"properties": {
					"row": {"type": "integer"},
					"column": {"type": "integer"}
				}
			}
		}
	}
}`)

type ruffDiagnostic struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Location struct {
		Row    int `json:"row"`
		Column int `json:"column"`
	} `json:"location"`
	EndLocation *struct {
		Row    int `json:"row"`
		Column int `json:"column"`
	} `json:"end_location"`
	Fix *struct {
		Message string `json:"message"`
	} `json:"fix"`
}

// Ruff returns the ruff linter backend.
func Ruff() *Adapter {
	return NewAdapter(Tool{
		Name:   "ruff",
		Binary: "ruff",
		Args: func(_ *project.Project, files []string) []string {
			args := []string{"check", "--output-format", "json"}
			return append(args, pythonOnly(files)...)
		},
		OKExitCodes: []int{1},
		Parse:       parseRuff,
	})
}

func parseRuff(p *project.Project, stdout []byte) (*backend.Result, error) {
	if err := validateJSON(ruffSchema, stdout); err != nil {
		return nil, err
	}
	var diags []ruffDiagnostic
	if err := json.Unmarshal(stdout, &diags); err != nil {
		return nil, err
	}

	result := &backend.Result{Metrics: map[backend.Metric]float64{}}
	for _, d := range diags {
		severity, category := classifyRuffCode(d.Code)
		is := issue.Issue{
			Backend:  "ruff",
			Rule:     strings.ToLower(d.Code),
			Severity: severity,
			Category: category,
			File:     relPath(p, d.Filename),
			Start:    issue.Location{Line: d.Location.Row, Column: d.Location.Column},
			Message:  d.Message,
			Status:   issue.StatusActive,
		}
		if d.Code == "" {
			is.Rule = "ruff"
		}
		if d.EndLocation != nil {
			is.End = &issue.Location{Line: d.EndLocation.Row, Column: d.EndLocation.Column}
		}
		if d.Fix != nil {
			is.Fix = d.Fix.Message
		}
		result.Issues = append(result.Issues, is)
	}
	return result, nil
}

// classifyRuffCode maps ruff rule prefixes onto the normalized model.
// S rules come from flake8-bandit, C9 is mccabe, F401/F811 are dead imports
// and redefinitions.
func classifyRuffCode(code string) (issue.Severity, issue.Category) {
	switch {
	case code == "":
		return issue.SeverityLow, issue.CategoryStyle
	case strings.HasPrefix(code, "S"):
		return issue.SeverityHigh, issue.CategorySecurity
	case strings.HasPrefix(code, "C9"):
		return issue.SeverityMedium, issue.CategoryComplexity
	case code == "F401" || code == "F811":
		return issue.SeverityLow, issue.CategoryDeadCode
	default:
		return issue.SeverityLow, issue.CategoryStyle
	}
}

// pythonOnly keeps the paths ruff and friends can actually check.
func pythonOnly(files []string) []string {
	kept := make([]string, 0, len(files))
	for _, f := range files {
		switch {
		case strings.HasSuffix(f, ".py"), strings.HasSuffix(f, ".pyi"), strings.HasSuffix(f, ".pyw"):
			kept = append(kept, f)
		}
	}
	return kept
}
