package exttool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdictdev/verdict/pkg/backend"
	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/project"
)

func testProject(t *testing.T) *project.Project {
	t.Helper()
	p, err := project.New(t.TempDir())
	require.NoError(t, err)
	return p
}

const ruffSample = `[
  {
    "code": "S602",
    "message": "subprocess call with shell=True identified",
    "filename": "src/run.py",
    "location": {"row": 12, "column": 5},
    "end_location": {"row": 12, "column": 40},
    "fix": null
  },
  {
    "code": "F401",
    "message": "os imported but unused",
    "filename": "src/run.py",
    "location": {"row": 1, "column": 1},
    "end_location": null,
    "fix": {"message": "Remove unused import: os"}
  },
  {
    "code": "E501",
    "message": "Line too long",
    "filename": "src/long.py",
    "location": {"row": 3, "column": 89},
    "end_location": null,
    "fix": null
  }
]`

func TestParseRuff(t *testing.T) {
	p := testProject(t)
	result, err := parseRuff(p, []byte(ruffSample))
	require.NoError(t, err)
	require.Len(t, result.Issues, 3)

	byRule := map[string]issue.Issue{}
	for _, is := range result.Issues {
		byRule[is.Rule] = is
	}

	sec := byRule["s602"]
	assert.Equal(t, issue.SeverityHigh, sec.Severity)
	assert.Equal(t, issue.CategorySecurity, sec.Category)
	assert.Equal(t, "src/run.py", sec.File)
	assert.Equal(t, 12, sec.Start.Line)
	require.NotNil(t, sec.End)
	assert.Equal(t, 40, sec.End.Column)

	dead := byRule["f401"]
	assert.Equal(t, issue.SeverityLow, dead.Severity)
	assert.Equal(t, issue.CategoryDeadCode, dead.Category)
	assert.Equal(t, "Remove unused import: os", dead.Fix)

	style := byRule["e501"]
	assert.Equal(t, issue.CategoryStyle, style.Category)
}

func TestParseRuff_RejectsWrongShape(t *testing.T) {
	p := testProject(t)
	_, err := parseRuff(p, []byte(`{"not": "an array"}`))
	assert.Error(t, err)

	_, err = parseRuff(p, []byte(`[{"message": "missing fields"}]`))
	assert.Error(t, err)
}

func TestClassifyRuffCode(t *testing.T) {
	tests := []struct {
		code     string
		severity issue.Severity
		category issue.Category
	}{
		{"S101", issue.SeverityHigh, issue.CategorySecurity},
		{"C901", issue.SeverityMedium, issue.CategoryComplexity},
		{"F401", issue.SeverityLow, issue.CategoryDeadCode},
		{"F811", issue.SeverityLow, issue.CategoryDeadCode},
		{"E501", issue.SeverityLow, issue.CategoryStyle},
		{"", issue.SeverityLow, issue.CategoryStyle},
	}
	for _, tt := range tests {
		severity, category := classifyRuffCode(tt.code)
		assert.Equal(t, tt.severity, severity, tt.code)
		assert.Equal(t, tt.category, category, tt.code)
	}
}

const mypySample = `{"file": "src/api.py", "line": 10, "column": 4, "severity": "error", "message": "Incompatible return value type", "code": "return-value"}
{"file": "src/api.py", "line": 11, "column": 0, "severity": "note", "message": "See docs", "code": null}
`

func TestParseMypy(t *testing.T) {
	p := testProject(t)
	result, err := parseMypy(p, []byte(mypySample))
	require.NoError(t, err)
	require.Len(t, result.Issues, 2)

	assert.Equal(t, "return-value", result.Issues[0].Rule)
	assert.Equal(t, issue.SeverityMedium, result.Issues[0].Severity)
	assert.Equal(t, issue.CategoryTyping, result.Issues[0].Category)

	assert.Equal(t, "mypy", result.Issues[1].Rule)
	assert.Equal(t, issue.SeverityInfo, result.Issues[1].Severity)
}

func TestParseMypy_EmptyOutputIsClean(t *testing.T) {
	result, err := parseMypy(testProject(t), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Issues)
}

func TestParseMypy_RejectsBrokenLine(t *testing.T) {
	_, err := parseMypy(testProject(t), []byte(`{"file": "a.py"}`+"\n"))
	assert.Error(t, err)
}

const banditSample = `{
  "results": [
    {"filename": "src/db.py", "line_number": 30, "issue_severity": "HIGH",
     "issue_confidence": "HIGH", "issue_text": "Possible SQL injection", "test_id": "B608"},
    {"filename": "src/db.py", "line_number": 8, "issue_severity": "MEDIUM",
     "issue_confidence": "LOW", "issue_text": "Use of exec detected", "test_id": "B102"},
    {"filename": "src/util.py", "line_number": 2, "issue_severity": "LOW",
     "issue_confidence": "HIGH", "issue_text": "Consider possible security implications", "test_id": "B404"}
  ]
}`

func TestParseBandit(t *testing.T) {
	p := testProject(t)
	result, err := parseBandit(p, []byte(banditSample))
	require.NoError(t, err)
	require.Len(t, result.Issues, 3)

	for _, is := range result.Issues {
		assert.Equal(t, issue.CategorySecurity, is.Category)
	}
	assert.Equal(t, issue.SeverityHigh, result.Issues[0].Severity)
	assert.Equal(t, "b608", result.Issues[0].Rule)

	// 100 - 10 (high) - 5 (medium) - 1 (low).
	assert.InDelta(t, 84.0, result.Metrics[backend.MetricSecurity], 0.001)
}

func TestParseBandit_ScoreFloor(t *testing.T) {
	sample := `{"results": [`
	for i := range 15 {
		if i > 0 {
			sample += ","
		}
		sample += `{"filename": "a.py", "line_number": 1, "issue_severity": "HIGH",
		  "issue_confidence": "HIGH", "issue_text": "x", "test_id": "B000"}`
	}
	sample += `]}`

	result, err := parseBandit(testProject(t), []byte(sample))
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Metrics[backend.MetricSecurity])
}

func TestAdapter_MissingBinary(t *testing.T) {
	a := NewAdapter(Tool{
		Name:   "ghost",
		Binary: "definitely-not-installed-anywhere-xyz",
		Args:   func(_ *project.Project, _ []string) []string { return nil },
	})

	_, err := a.Analyze(context.Background(), testProject(t), []string{"a.py"})
	var failure *backend.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "ghost", failure.Backend)
	assert.Contains(t, failure.Reason, "not installed")
}

func TestAdapter_RejectsFindingWithEndBeforeStart(t *testing.T) {
	payload := `[{"code": "X100", "message": "m", "filename": "a.py",
		"location": {"row": 5, "column": 2},
		"end_location": {"row": 4, "column": 1}, "fix": null}]`
	a := NewAdapter(Tool{
		Name:   "fake",
		Binary: "sh",
		Args: func(_ *project.Project, _ []string) []string {
			return []string{"-c", "echo '" + payload + "'"}
		},
		Parse: parseRuff,
	})

	_, err := a.Analyze(context.Background(), testProject(t), nil)
	var failure *backend.Failure
	require.ErrorAs(t, err, &failure)
	assert.Contains(t, failure.Reason, "invalid finding")
	assert.Contains(t, failure.Err.Error(), "end location precedes start")
}

func TestAdapter_ExitCodePolicy(t *testing.T) {
	findings := NewAdapter(Tool{
		Name:        "fake",
		Binary:      "sh",
		Args:        func(_ *project.Project, _ []string) []string { return []string{"-c", "echo '[]'; exit 1"} },
		OKExitCodes: []int{1},
		Parse:       parseRuff,
	})
	result, err := findings.Analyze(context.Background(), testProject(t), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Issues)

	crash := NewAdapter(Tool{
		Name:        "fake",
		Binary:      "sh",
		Args:        func(_ *project.Project, _ []string) []string { return []string{"-c", "echo boom >&2; exit 2"} },
		OKExitCodes: []int{1},
		Parse:       parseRuff,
	})
	_, err = crash.Analyze(context.Background(), testProject(t), nil)
	var failure *backend.Failure
	require.ErrorAs(t, err, &failure)
	assert.Contains(t, failure.Reason, "boom")
}
