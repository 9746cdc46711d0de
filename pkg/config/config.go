// Package config loads verdict configuration from TOML, YAML, or JSON files.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/verdictdev/verdict/pkg/project"
)

// Config holds all configuration options for verdict.
type Config struct {
	// Backends toggles individual analyzers.
	Backends BackendsConfig `koanf:"backends"`

	// Thresholds the project is judged against.
	Thresholds project.Thresholds `koanf:"thresholds"`

	// Files controls which sources are analyzed.
	Files FilesConfig `koanf:"files"`

	// Engine controls run orchestration.
	Engine EngineConfig `koanf:"engine"`

	// Duplication tunes the duplicate detector.
	Duplication DuplicationConfig `koanf:"duplication"`

	// Coverage locates the coverage report.
	Coverage CoverageConfig `koanf:"coverage"`

	// Output controls report formatting.
	Output OutputConfig `koanf:"output"`
}

// BackendsConfig toggles which backends run.
type BackendsConfig struct {
	Syntax      bool `koanf:"syntax"`
	Duplication bool `koanf:"duplication"`
	Coverage    bool `koanf:"coverage"`
	Ruff        bool `koanf:"ruff"`
	Mypy        bool `koanf:"mypy"`
	Bandit      bool `koanf:"bandit"`
}

// FilesConfig defines file selection globs (gitignore syntax).
type FilesConfig struct {
	Include []string `koanf:"include"`
	Exclude []string `koanf:"exclude"`
}

// EngineConfig controls run orchestration.
type EngineConfig struct {
	MaxParallel           int `koanf:"max_parallel"`
	BackendTimeoutSeconds int `koanf:"backend_timeout_seconds"`
}

// DuplicationConfig tunes the duplicate detector.
type DuplicationConfig struct {
	Similarity   float64 `koanf:"similarity"`
	MinFileBytes int64   `koanf:"min_file_bytes"`
}

// CoverageConfig locates the coverage report.
type CoverageConfig struct {
	Report string `koanf:"report"`
}

// OutputConfig controls report formatting.
type OutputConfig struct {
	Format  string `koanf:"format"` // text, json
	View    string `koanf:"view"`   // executive, technical
	Color   bool   `koanf:"color"`
	Verbose bool   `koanf:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backends: BackendsConfig{
			Syntax:      true,
			Duplication: true,
			Coverage:    true,
			Ruff:        true,
			Mypy:        true,
			Bandit:      true,
		},
		Thresholds: project.DefaultThresholds(),
		Files: FilesConfig{
			Exclude: []string{
				"vendor/",
				"node_modules/",
				"dist/",
				"build/",
				"__pycache__/",
				"*.min.js",
			},
		},
		Engine: EngineConfig{
			MaxParallel:           4,
			BackendTimeoutSeconds: 120,
		},
		Duplication: DuplicationConfig{
			Similarity:   0.8,
			MinFileBytes: 100,
		},
		Coverage: CoverageConfig{
			Report: "coverage.json",
		},
		Output: OutputConfig{
			Format: "text",
			View:   "executive",
			Color:  true,
		},
	}
}

// EnabledBackends lists the names of backends turned on, sorted.
func (c *Config) EnabledBackends() []string {
	var names []string
	for name, on := range map[string]bool{
		"syntax":      c.Backends.Syntax,
		"duplication": c.Backends.Duplication,
		"coverage":    c.Backends.Coverage,
		"ruff":        c.Backends.Ruff,
		"mypy":        c.Backends.Mypy,
		"bandit":      c.Backends.Bandit,
	} {
		if on {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Load loads configuration from a file. Values not present in the file keep
// their defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault tries standard locations under root and falls back to
// defaults when no config file exists.
func LoadOrDefault(root string) *Config {
	names := []string{
		"verdict.toml",
		"verdict.yaml",
		"verdict.yml",
		"verdict.json",
		".verdict.toml",
		".verdict.yaml",
		".verdict.yml",
		".verdict.json",
	}
	for _, name := range names {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			if cfg, err := Load(path); err == nil {
				return cfg
			}
		}
	}
	return DefaultConfig()
}
