// Package project describes an analysis target: where the sources live,
// which files count, and the thresholds a run is judged against.
package project

import (
	"fmt"
	"os"
	"strconv"
)

// Thresholds holds the quality minimums for one project. All score-like
// values are percentages in [0,100]; MaxComplexity is a per-function
// cyclomatic limit.
type Thresholds struct {
	MinCoverage        float64 `json:"min_coverage" koanf:"min_coverage"`
	MaxComplexity      int     `json:"max_complexity" koanf:"max_complexity"`
	MaxDuplication     float64 `json:"max_duplication" koanf:"max_duplication"`
	MinSecurity        float64 `json:"min_security" koanf:"min_security"`
	MinMaintainability float64 `json:"min_maintainability" koanf:"min_maintainability"`
}

// DefaultThresholds returns the thresholds used when a project supplies none.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinCoverage:        80,
		MaxComplexity:      10,
		MaxDuplication:     10,
		MinSecurity:        85,
		MinMaintainability: 70,
	}
}

// ValidationError reports an invalid project or threshold configuration.
// It is fatal: no run is started from an invalid project.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid project configuration: " + e.Field + ": " + e.Reason
}

// Validate checks that all thresholds are in range.
func (t Thresholds) Validate() error {
	checkPercent := func(field string, v float64) error {
		if v < 0 || v > 100 {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("%v outside [0,100]", v)}
		}
		return nil
	}
	if err := checkPercent("min_coverage", t.MinCoverage); err != nil {
		return err
	}
	if err := checkPercent("max_duplication", t.MaxDuplication); err != nil {
		return err
	}
	if err := checkPercent("min_security", t.MinSecurity); err != nil {
		return err
	}
	if err := checkPercent("min_maintainability", t.MinMaintainability); err != nil {
		return err
	}
	if t.MaxComplexity < 1 {
		return &ValidationError{Field: "max_complexity", Reason: fmt.Sprintf("%d must be at least 1", t.MaxComplexity)}
	}
	return nil
}

// ThresholdsFromMap builds thresholds from a flat key→value mapping, the
// form in which external callers supply configuration. Unknown keys are
// rejected so typos fail loudly; missing keys keep their defaults.
func ThresholdsFromMap(m map[string]string) (Thresholds, error) {
	t := DefaultThresholds()
	for key, raw := range m {
		switch key {
		case "min_coverage", "max_duplication", "min_security", "min_maintainability":
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return t, &ValidationError{Field: key, Reason: "not a number: " + raw}
			}
			switch key {
			case "min_coverage":
				t.MinCoverage = v
			case "max_duplication":
				t.MaxDuplication = v
			case "min_security":
				t.MinSecurity = v
			case "min_maintainability":
				t.MinMaintainability = v
			}
		case "max_complexity":
			v, err := strconv.Atoi(raw)
			if err != nil {
				return t, &ValidationError{Field: key, Reason: "not an integer: " + raw}
			}
			t.MaxComplexity = v
		default:
			return t, &ValidationError{Field: key, Reason: "unknown threshold key"}
		}
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Project is an immutable description of an analysis target. It is created
// once before a run and never mutated while backends read from it.
type Project struct {
	root       string
	include    []string
	exclude    []string
	thresholds Thresholds
}

// Option configures a Project during construction.
type Option func(*Project)

// WithInclude sets include globs (gitignore syntax); empty means all
// supported source files.
func WithInclude(globs ...string) Option {
	return func(p *Project) {
		p.include = append(p.include, globs...)
	}
}

// WithExclude sets exclude globs (gitignore syntax).
func WithExclude(globs ...string) Option {
	return func(p *Project) {
		p.exclude = append(p.exclude, globs...)
	}
}

// WithThresholds sets the project thresholds.
func WithThresholds(t Thresholds) Option {
	return func(p *Project) {
		p.thresholds = t
	}
}

// New validates the root path and thresholds and returns an immutable
// Project. The root must be an existing directory.
func New(root string, opts ...Option) (*Project, error) {
	p := &Project{
		root:       root,
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(p)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, &ValidationError{Field: "root", Reason: err.Error()}
	}
	if !info.IsDir() {
		return nil, &ValidationError{Field: "root", Reason: root + " is not a directory"}
	}
	if err := p.thresholds.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Root returns the project root directory.
func (p *Project) Root() string { return p.root }

// Include returns the include globs.
func (p *Project) Include() []string { return p.include }

// Exclude returns the exclude globs.
func (p *Project) Exclude() []string { return p.exclude }

// Thresholds returns the project thresholds.
func (p *Project) Thresholds() Thresholds { return p.thresholds }
