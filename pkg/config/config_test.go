package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}

	// Check backend defaults
	if !cfg.Backends.Syntax {
		t.Error("Backends.Syntax should be true by default")
	}
	if !cfg.Backends.Duplication {
		t.Error("Backends.Duplication should be true by default")
	}
	if !cfg.Backends.Bandit {
		t.Error("Backends.Bandit should be true by default")
	}

	// Check threshold defaults
	if cfg.Thresholds.MaxComplexity != 10 {
		t.Errorf("Thresholds.MaxComplexity = %d, want 10", cfg.Thresholds.MaxComplexity)
	}
	if cfg.Thresholds.MinCoverage != 80 {
		t.Errorf("Thresholds.MinCoverage = %f, want 80", cfg.Thresholds.MinCoverage)
	}

	// Check engine defaults
	if cfg.Engine.MaxParallel != 4 {
		t.Errorf("Engine.MaxParallel = %d, want 4", cfg.Engine.MaxParallel)
	}
	if cfg.Engine.BackendTimeoutSeconds != 120 {
		t.Errorf("Engine.BackendTimeoutSeconds = %d, want 120", cfg.Engine.BackendTimeoutSeconds)
	}

	// Check duplication defaults
	if cfg.Duplication.Similarity != 0.8 {
		t.Errorf("Duplication.Similarity = %f, want 0.8", cfg.Duplication.Similarity)
	}
	if cfg.Duplication.MinFileBytes != 100 {
		t.Errorf("Duplication.MinFileBytes = %d, want 100", cfg.Duplication.MinFileBytes)
	}

	// Check output defaults
	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %s, want text", cfg.Output.Format)
	}
	if cfg.Output.View != "executive" {
		t.Errorf("Output.View = %s, want executive", cfg.Output.View)
	}
}

func TestLoadTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "verdict.toml")

	content := `
[backends]
mypy = false

[thresholds]
max_complexity = 15

[files]
exclude = ["generated/", "*.min.js"]

[duplication]
similarity = 0.9

[output]
view = "technical"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backends.Mypy {
		t.Error("Backends.Mypy should be false")
	}
	if !cfg.Backends.Syntax {
		t.Error("Backends.Syntax should keep its default")
	}
	if cfg.Thresholds.MaxComplexity != 15 {
		t.Errorf("Thresholds.MaxComplexity = %d, want 15", cfg.Thresholds.MaxComplexity)
	}
	if cfg.Thresholds.MinCoverage != 80 {
		t.Errorf("Thresholds.MinCoverage = %f, want default 80", cfg.Thresholds.MinCoverage)
	}
	if want := []string{"generated/", "*.min.js"}; !reflect.DeepEqual(cfg.Files.Exclude, want) {
		t.Errorf("Files.Exclude = %v, want %v", cfg.Files.Exclude, want)
	}
	if cfg.Duplication.Similarity != 0.9 {
		t.Errorf("Duplication.Similarity = %f, want 0.9", cfg.Duplication.Similarity)
	}
	if cfg.Output.View != "technical" {
		t.Errorf("Output.View = %s, want technical", cfg.Output.View)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "verdict.yaml")

	content := `
thresholds:
  min_coverage: 90
coverage:
  report: build/coverage.json
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Thresholds.MinCoverage != 90 {
		t.Errorf("Thresholds.MinCoverage = %f, want 90", cfg.Thresholds.MinCoverage)
	}
	if cfg.Coverage.Report != "build/coverage.json" {
		t.Errorf("Coverage.Report = %s, want build/coverage.json", cfg.Coverage.Report)
	}
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "verdict.json")

	content := `{"engine": {"max_parallel": 2}}`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.MaxParallel != 2 {
		t.Errorf("Engine.MaxParallel = %d, want 2", cfg.Engine.MaxParallel)
	}
}

func TestLoadRejectsInvalidThresholds(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "verdict.toml")

	content := `
[thresholds]
min_coverage = 150
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() should reject out-of-range thresholds")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/verdict.toml"); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestLoadOrDefault(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := LoadOrDefault(tmpDir)
	if cfg.Thresholds.MaxComplexity != 10 {
		t.Error("LoadOrDefault() without a file should return defaults")
	}

	content := "[thresholds]\nmax_complexity = 20\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "verdict.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg = LoadOrDefault(tmpDir)
	if cfg.Thresholds.MaxComplexity != 20 {
		t.Errorf("Thresholds.MaxComplexity = %d, want 20", cfg.Thresholds.MaxComplexity)
	}
}

func TestEnabledBackends(t *testing.T) {
	cfg := DefaultConfig()
	want := []string{"bandit", "coverage", "duplication", "mypy", "ruff", "syntax"}
	if got := cfg.EnabledBackends(); !reflect.DeepEqual(got, want) {
		t.Errorf("EnabledBackends() = %v, want %v", got, want)
	}

	cfg.Backends.Ruff = false
	cfg.Backends.Coverage = false
	want = []string{"bandit", "duplication", "mypy", "syntax"}
	if got := cfg.EnabledBackends(); !reflect.DeepEqual(got, want) {
		t.Errorf("EnabledBackends() = %v, want %v", got, want)
	}
}
