package project

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestNew_ValidatesRoot(t *testing.T) {
	_, err := New("/nonexistent/path/for/sure")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "root", verr.Field)

	p, err := New(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultThresholds(), p.Thresholds())
}

func TestNew_RejectsFileRoot(t *testing.T) {
	dir := t.TempDir()
	file := dir + "/f.py"
	require.NoError(t, writeFile(file, "x = 1\n"))

	_, err := New(file)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestThresholds_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Thresholds)
		field  string
	}{
		{"coverage high", func(th *Thresholds) { th.MinCoverage = 101 }, "min_coverage"},
		{"coverage negative", func(th *Thresholds) { th.MinCoverage = -1 }, "min_coverage"},
		{"duplication high", func(th *Thresholds) { th.MaxDuplication = 150 }, "max_duplication"},
		{"security negative", func(th *Thresholds) { th.MinSecurity = -0.5 }, "min_security"},
		{"maintainability high", func(th *Thresholds) { th.MinMaintainability = 100.5 }, "min_maintainability"},
		{"complexity zero", func(th *Thresholds) { th.MaxComplexity = 0 }, "max_complexity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.mutate(&th)
			err := th.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.NoError(t, DefaultThresholds().Validate())
}

func TestThresholdsFromMap(t *testing.T) {
	th, err := ThresholdsFromMap(map[string]string{
		"min_coverage":   "72.5",
		"max_complexity": "15",
	})
	require.NoError(t, err)
	assert.Equal(t, 72.5, th.MinCoverage)
	assert.Equal(t, 15, th.MaxComplexity)
	// Untouched keys keep defaults.
	assert.Equal(t, DefaultThresholds().MinSecurity, th.MinSecurity)

	_, err = ThresholdsFromMap(map[string]string{"min_coverage": "abc"})
	assert.Error(t, err)

	_, err = ThresholdsFromMap(map[string]string{"min_covrage": "80"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "unknown threshold key", verr.Reason)

	_, err = ThresholdsFromMap(map[string]string{"min_coverage": "120"})
	require.Error(t, err)
	assert.True(t, errors.As(err, &verr))
}
