// Package issue defines the normalized issue model that every backend
// converts its native findings into.
package issue

import (
	"fmt"
	"sort"
)

// Severity ranks how urgent a finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityRank orders severities from most to least urgent.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// Rank returns the sort rank of the severity (lower is more urgent).
// Unknown severities rank after Info.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// String returns the string representation.
func (s Severity) String() string {
	return string(s)
}

// Severities lists all severities from most to least urgent.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}

// Category identifies the quality dimension a finding belongs to.
type Category string

const (
	CategorySecurity        Category = "security"
	CategoryComplexity      Category = "complexity"
	CategoryDuplication     Category = "duplication"
	CategoryDeadCode        Category = "dead_code"
	CategoryStyle           Category = "style"
	CategoryTyping          Category = "typing"
	CategoryMaintainability Category = "maintainability"
)

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// Status tracks the lifecycle of an issue within a run.
type Status string

const (
	StatusActive     Status = "active"
	StatusSuppressed Status = "suppressed"
	StatusFixed      Status = "fixed"
)

// Location is a position within a source file. Column is 1-based;
// a zero column means "unknown, start of line".
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column,omitempty"`
}

// Before reports whether l strictly precedes other.
func (l Location) Before(other Location) bool {
	if l.Line != other.Line {
		return l.Line < other.Line
	}
	return l.Column < other.Column
}

// Issue is one normalized finding. Issues are append-only within a run.
type Issue struct {
	Backend  string    `json:"backend"`
	Rule     string    `json:"rule"`
	Severity Severity  `json:"severity"`
	Category Category  `json:"category"`
	File     string    `json:"file"`
	Start    Location  `json:"start"`
	End      *Location `json:"end,omitempty"`
	Message  string    `json:"message"`
	Fix      string    `json:"fix,omitempty"`
	Status   Status    `json:"status"`
}

// Validate checks the issue's structural invariants: a present end location
// must not precede the start location.
func (i *Issue) Validate() error {
	if i.End != nil && i.End.Before(i.Start) {
		return fmt.Errorf("issue %s at %s:%d: end location precedes start", i.Rule, i.File, i.Start.Line)
	}
	return nil
}

// Active reports whether the issue should count toward severity totals.
func (i *Issue) Active() bool {
	return i.Status == "" || i.Status == StatusActive
}

// CountBySeverity tallies active issues per severity.
func CountBySeverity(issues []Issue) map[Severity]int {
	counts := make(map[Severity]int)
	for i := range issues {
		if issues[i].Active() {
			counts[issues[i].Severity]++
		}
	}
	return counts
}

// SortStable orders issues by file, then position, then severity, then rule.
// The sort is stable so discovery order within a backend is preserved for
// issues at the same location.
func SortStable(issues []Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		ia, ib := &issues[a], &issues[b]
		if ia.File != ib.File {
			return ia.File < ib.File
		}
		if ia.Start != ib.Start {
			return ia.Start.Before(ib.Start)
		}
		if ia.Severity != ib.Severity {
			return ia.Severity.Rank() < ib.Severity.Rank()
		}
		return ia.Rule < ib.Rule
	})
}

// TopN returns up to n active issues ranked by severity, then file/position.
// The input slice is not modified.
func TopN(issues []Issue, n int) []Issue {
	ranked := make([]Issue, 0, len(issues))
	for i := range issues {
		if issues[i].Active() {
			ranked = append(ranked, issues[i])
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].Severity != ranked[b].Severity {
			return ranked[a].Severity.Rank() < ranked[b].Severity.Rank()
		}
		if ranked[a].File != ranked[b].File {
			return ranked[a].File < ranked[b].File
		}
		return ranked[a].Start.Before(ranked[b].Start)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
