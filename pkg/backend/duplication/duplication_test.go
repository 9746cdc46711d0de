package duplication

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdictdev/verdict/pkg/backend"
	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/project"
)

// genSource builds a file of n distinct lines, comfortably over the minimum
// size filter.
func genSource(prefix string, n int) string {
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "%s_value_%02d = compute(%d)\n", prefix, i, i)
	}
	return b.String()
}

func writeProject(t *testing.T, files map[string]string) *project.Project {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	p, err := project.New(root)
	require.NoError(t, err)
	return p
}

func TestAnalyze_IdenticalFiles(t *testing.T) {
	content := genSource("shared", 10)
	p := writeProject(t, map[string]string{
		"a.py": content,
		"b.py": content,
	})

	result, err := New().Analyze(context.Background(), p, []string{"a.py", "b.py"})
	require.NoError(t, err)

	dupes := byRule(result.Issues, "duplicate-file")
	require.Len(t, dupes, 1)
	assert.Equal(t, issue.SeverityHigh, dupes[0].Severity)
	assert.Equal(t, "a.py", dupes[0].File)
	assert.Contains(t, dupes[0].Message, "100% similar to b.py")

	// The only possible pair is a duplicate.
	assert.Equal(t, 0.0, result.Metrics[backend.MetricDuplication])
}

func TestAnalyze_NearDuplicate(t *testing.T) {
	base := genSource("x", 10)
	variant := strings.Replace(base, "x_value_09 = compute(9)", "x_value_09 = compute(90)", 1)
	p := writeProject(t, map[string]string{
		"a.py": base,
		"b.py": variant,
	})

	result, err := New().Analyze(context.Background(), p, []string{"a.py", "b.py"})
	require.NoError(t, err)

	dupes := byRule(result.Issues, "duplicate-file")
	require.Len(t, dupes, 1)
	// 9 of 10 distinct lines shared.
	assert.Equal(t, issue.SeverityMedium, dupes[0].Severity)
	assert.Contains(t, dupes[0].Message, "90% similar")
}

func TestAnalyze_UnrelatedFiles(t *testing.T) {
	p := writeProject(t, map[string]string{
		"a.py": genSource("alpha", 10),
		"b.py": genSource("beta", 10),
	})

	result, err := New().Analyze(context.Background(), p, []string{"a.py", "b.py"})
	require.NoError(t, err)
	assert.Empty(t, result.Issues)
	assert.Equal(t, 100.0, result.Metrics[backend.MetricDuplication])
}

func TestAnalyze_SmallFilesIgnored(t *testing.T) {
	p := writeProject(t, map[string]string{
		"a.py": "x = 1\n",
		"b.py": "x = 1\n",
	})

	result, err := New().Analyze(context.Background(), p, []string{"a.py", "b.py"})
	require.NoError(t, err)
	assert.Empty(t, result.Issues)
}

func TestAnalyze_SummaryIssue(t *testing.T) {
	content := genSource("s", 10)
	p := writeProject(t, map[string]string{
		"a.py": content,
		"b.py": content,
	})

	result, err := New().Analyze(context.Background(), p, []string{"a.py", "b.py"})
	require.NoError(t, err)

	summary := byRule(result.Issues, "duplication-summary")
	require.Len(t, summary, 1)
	assert.Equal(t, issue.SeverityInfo, summary[0].Severity)
	assert.Contains(t, summary[0].Message, "1 duplicate pairs")
}

func TestAnalyze_OrderIndependent(t *testing.T) {
	content := genSource("o", 12)
	p := writeProject(t, map[string]string{
		"a.py": content,
		"b.py": content,
		"c.py": genSource("other", 12),
	})

	forward, err := New().Analyze(context.Background(), p, []string{"a.py", "b.py", "c.py"})
	require.NoError(t, err)
	reversed, err := New().Analyze(context.Background(), p, []string{"c.py", "b.py", "a.py"})
	require.NoError(t, err)
	assert.Equal(t, forward.Issues, reversed.Issues)
	assert.Equal(t, forward.Metrics, reversed.Metrics)
}

func TestAnalyze_WhitespaceDiffersMeansDifferentLines(t *testing.T) {
	base := genSource("w", 10)
	// Same text, but every line picks up trailing whitespace.
	padded := strings.ReplaceAll(base, "\n", "  \n")
	p := writeProject(t, map[string]string{
		"a.py": base,
		"b.py": padded,
	})

	result, err := New().Analyze(context.Background(), p, []string{"a.py", "b.py"})
	require.NoError(t, err)

	// Matching is exact: no line is shared, so no pair is reported.
	assert.Empty(t, byRule(result.Issues, "duplicate-file"))
	assert.Equal(t, 100.0, result.Metrics[backend.MetricDuplication])
}

func TestInternTable_ExactMatching(t *testing.T) {
	table := newInternTable()
	a := table.id("line one")
	b := table.id("line two")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, table.id("line one"))
}

func TestDuplicationMetric(t *testing.T) {
	assert.Equal(t, 100.0, duplicationMetric(0, 0))
	assert.Equal(t, 100.0, duplicationMetric(0, 10))
	assert.Equal(t, 0.0, duplicationMetric(1, 2))
	// 1 duplicate pair among 4 files (6 possible pairs).
	assert.InDelta(t, 100.0*5/6, duplicationMetric(1, 4), 0.001)
}

func byRule(issues []issue.Issue, rule string) []issue.Issue {
	var out []issue.Issue
	for _, is := range issues {
		if is.Rule == rule {
			out = append(out, is)
		}
	}
	return out
}
