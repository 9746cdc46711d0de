package exttool

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/verdictdev/verdict/pkg/backend"
	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/project"
)

// mypySchema validates one line of mypy's JSON-lines output.
var mypySchema = mustCompileSchema("mypy.json", `{
	"type": "object",
	"required": ["file", "line", "severity", "message"],
	"properties": {
		"file": {"type": "string"},
		"line": {"type": "integer"},
		"column": {"type": "integer"},
		"severity": {"type": "string"},
		"message": {"type": "string"},
		"code": {"type": ["string", "null"]}
	}
}`)

type mypyDiagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Code     string `json:"code"`
}

// Mypy returns the mypy type checker backend.
func Mypy() *Adapter {
	return NewAdapter(Tool{
		Name:   "mypy",
		Binary: "mypy",
		Args: func(_ *project.Project, files []string) []string {
			args := []string{"--output", "json", "--no-error-summary"}
			return append(args, pythonOnly(files)...)
		},
		OKExitCodes: []int{1},
		Parse:       parseMypy,
	})
}

// parseMypy reads mypy's one-JSON-object-per-line output. A blank stdout is
// a clean run.
func parseMypy(p *project.Project, stdout []byte) (*backend.Result, error) {
	result := &backend.Result{Metrics: map[backend.Metric]float64{}}

	scan := bufio.NewScanner(bytes.NewReader(stdout))
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scan.Scan() {
		lineNo++
		line := bytes.TrimSpace(scan.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := validateJSON(mypySchema, line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		var d mypyDiagnostic
		if err := json.Unmarshal(line, &d); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		severity := issue.SeverityMedium
		if d.Severity == "note" {
			severity = issue.SeverityInfo
		}
		rule := d.Code
		if rule == "" {
			rule = "mypy"
		}
		result.Issues = append(result.Issues, issue.Issue{
			Backend:  "mypy",
			Rule:     rule,
			Severity: severity,
			Category: issue.CategoryTyping,
			File:     relPath(p, d.File),
			Start:    issue.Location{Line: d.Line, Column: d.Column},
			Message:  d.Message,
			Status:   issue.StatusActive,
		})
	}
	if err := scan.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
