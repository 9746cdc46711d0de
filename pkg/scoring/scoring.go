// Package scoring turns merged run metrics into weighted category scores,
// a total score, and letter grades.
package scoring

import (
	"fmt"

	"github.com/verdictdev/verdict/pkg/backend"
	"github.com/verdictdev/verdict/pkg/project"
)

// Fixed category weights. They sum to 1 so the total stays in [0,100].
const (
	WeightCoverage        = 0.30
	WeightComplexity      = 0.25
	WeightSecurity        = 0.25
	WeightMaintainability = 0.20
)

// NeutralScore substitutes for a category no backend measured. A degraded
// run neither sinks nor inflates the grade.
const NeutralScore = 50.0

// CategoryScore is one scored quality dimension.
type CategoryScore struct {
	Metric backend.Metric `json:"metric"`
	Score  float64        `json:"score"`
	Weight float64        `json:"weight"`
	Grade  string         `json:"grade"`

	// Measured is false when the score is the neutral default.
	Measured bool `json:"measured"`
}

// Scorecard is the scored outcome of one run.
type Scorecard struct {
	Total      float64         `json:"total"`
	Grade      string          `json:"grade"`
	Categories []CategoryScore `json:"categories"`
}

// Compute scores the merged metrics of a run. Metrics are goodness values
// in [0,100] except complexity, which arrives as a badness percentage and
// is inverted here. Duplication has no weight of its own; when measured it
// folds into maintainability as an average.
func Compute(metrics map[backend.Metric]float64) *Scorecard {
	coverage := categoryScore(metrics, backend.MetricCoverage, WeightCoverage, false)
	complexity := categoryScore(metrics, backend.MetricComplexity, WeightComplexity, true)
	security := categoryScore(metrics, backend.MetricSecurity, WeightSecurity, false)
	maintainability := maintainabilityScore(metrics)

	card := &Scorecard{
		Categories: []CategoryScore{coverage, complexity, security, maintainability},
	}
	for _, c := range card.Categories {
		card.Total += c.Score * c.Weight
	}
	card.Total = clamp(card.Total)
	card.Grade = Grade(card.Total)
	return card
}

func categoryScore(metrics map[backend.Metric]float64, m backend.Metric, weight float64, invert bool) CategoryScore {
	score := NeutralScore
	value, measured := metrics[m]
	if measured {
		score = clamp(value)
		if invert {
			score = 100 - score
		}
	}
	return CategoryScore{
		Metric:   m,
		Score:    score,
		Weight:   weight,
		Grade:    Grade(score),
		Measured: measured,
	}
}

// maintainabilityScore averages the maintainability and duplication metrics
// when both exist, so heavy copy-paste drags the category down even if the
// code itself is tidy.
func maintainabilityScore(metrics map[backend.Metric]float64) CategoryScore {
	maint, haveMaint := metrics[backend.MetricMaintainability]
	dup, haveDup := metrics[backend.MetricDuplication]

	var score float64
	switch {
	case haveMaint && haveDup:
		score = (clamp(maint) + clamp(dup)) / 2
	case haveMaint:
		score = clamp(maint)
	case haveDup:
		score = clamp(dup)
	default:
		score = NeutralScore
	}
	return CategoryScore{
		Metric:   backend.MetricMaintainability,
		Score:    score,
		Weight:   WeightMaintainability,
		Grade:    Grade(score),
		Measured: haveMaint || haveDup,
	}
}

// Breach records one measured metric that crossed a project threshold.
type Breach struct {
	Metric  backend.Metric `json:"metric"`
	Value   float64        `json:"value"`
	Limit   float64        `json:"limit"`
	Message string         `json:"message"`
}

// Breaches compares the measured run metrics against the project thresholds.
// Unmeasured metrics are skipped: a neutral default must not trip a quality
// gate. MaxComplexity is enforced per function by the syntax backend, not
// here. Results come back in a fixed metric order.
func Breaches(metrics map[backend.Metric]float64, t project.Thresholds) []Breach {
	var out []Breach
	if v, ok := metrics[backend.MetricCoverage]; ok && v < t.MinCoverage {
		out = append(out, Breach{
			Metric: backend.MetricCoverage, Value: v, Limit: t.MinCoverage,
			Message: fmt.Sprintf("coverage %.1f%% is below the minimum %.1f%%", v, t.MinCoverage),
		})
	}
	if v, ok := metrics[backend.MetricSecurity]; ok && v < t.MinSecurity {
		out = append(out, Breach{
			Metric: backend.MetricSecurity, Value: v, Limit: t.MinSecurity,
			Message: fmt.Sprintf("security score %.1f is below the minimum %.1f", v, t.MinSecurity),
		})
	}
	if v, ok := metrics[backend.MetricMaintainability]; ok && v < t.MinMaintainability {
		out = append(out, Breach{
			Metric: backend.MetricMaintainability, Value: v, Limit: t.MinMaintainability,
			Message: fmt.Sprintf("maintainability score %.1f is below the minimum %.1f", v, t.MinMaintainability),
		})
	}
	// The duplication metric is a goodness score; the threshold caps the
	// duplicated share, which is its complement.
	if v, ok := metrics[backend.MetricDuplication]; ok {
		if dup := 100 - v; dup > t.MaxDuplication {
			out = append(out, Breach{
				Metric: backend.MetricDuplication, Value: dup, Limit: t.MaxDuplication,
				Message: fmt.Sprintf("duplication %.1f%% exceeds the maximum %.1f%%", dup, t.MaxDuplication),
			})
		}
	}
	return out
}

// gradeSteps maps minimum scores to letter grades, highest first.
var gradeSteps = []struct {
	min   float64
	grade string
}{
	{97, "A+"}, {93, "A"}, {90, "A-"},
	{87, "B+"}, {83, "B"}, {80, "B-"},
	{77, "C+"}, {73, "C"}, {70, "C-"},
	{67, "D+"}, {63, "D"}, {60, "D-"},
}

// Grade maps a score in [0,100] to its letter grade.
func Grade(score float64) string {
	for _, step := range gradeSteps {
		if score >= step.min {
			return step.grade
		}
	}
	return "F"
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
