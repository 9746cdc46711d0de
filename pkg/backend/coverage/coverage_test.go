package coverage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdictdev/verdict/pkg/backend"
	"github.com/verdictdev/verdict/pkg/project"
)

const sampleReport = `{
  "files": {
    "src/api.py":  {"summary": {"percent_covered": 95.0}},
    "src/core.py": {"summary": {"percent_covered": 42.5}}
  },
  "totals": {"percent_covered": 78.5}
}`

func newProject(t *testing.T, reportContent string) *project.Project {
	t.Helper()
	root := t.TempDir()
	if reportContent != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, DefaultReportFile), []byte(reportContent), 0o644))
	}
	p, err := project.New(root)
	require.NoError(t, err)
	return p
}

func TestAnalyze_ReadsReport(t *testing.T) {
	p := newProject(t, sampleReport)

	result, err := New().Analyze(context.Background(), p, nil)
	require.NoError(t, err)
	assert.InDelta(t, 78.5, result.Metrics[backend.MetricCoverage], 0.001)

	// Only core.py is below the default 80% minimum.
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "src/core.py", result.Issues[0].File)
	assert.Equal(t, "low-coverage", result.Issues[0].Rule)
	assert.Contains(t, result.Issues[0].Message, "42.5%")
}

func TestAnalyze_MissingReportFails(t *testing.T) {
	p := newProject(t, "")

	_, err := New().Analyze(context.Background(), p, nil)
	var failure *backend.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, BackendName, failure.Backend)
	assert.Contains(t, failure.Reason, DefaultReportFile)
}

func TestAnalyze_MalformedReportFails(t *testing.T) {
	p := newProject(t, "{not json")

	_, err := New().Analyze(context.Background(), p, nil)
	var failure *backend.Failure
	require.ErrorAs(t, err, &failure)
	assert.Contains(t, failure.Reason, "not valid JSON")
}

func TestAnalyze_CustomReportPath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "build"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "build", "cov.json"),
		[]byte(`{"totals": {"percent_covered": 100}}`), 0o644))
	p, err := project.New(root)
	require.NoError(t, err)

	result, err := New(WithReportFile(filepath.Join("build", "cov.json"))).Analyze(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Metrics[backend.MetricCoverage])
}
