package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verdictdev/verdict/internal/output"
	"github.com/verdictdev/verdict/internal/progress"
	"github.com/verdictdev/verdict/internal/scanner"
	"github.com/verdictdev/verdict/pkg/backend"
	"github.com/verdictdev/verdict/pkg/backend/coverage"
	"github.com/verdictdev/verdict/pkg/backend/duplication"
	"github.com/verdictdev/verdict/pkg/backend/exttool"
	"github.com/verdictdev/verdict/pkg/backend/syntax"
	"github.com/verdictdev/verdict/pkg/config"
	"github.com/verdictdev/verdict/pkg/engine"
	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/project"
	"github.com/verdictdev/verdict/pkg/report"
	"github.com/verdictdev/verdict/pkg/scoring"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a project and compute its quality grade",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("view", "", "Report view: executive or technical")
	analyzeCmd.Flags().Float64("fail-under", 0, "Exit non-zero when the total score is below this value")
	analyzeCmd.Flags().Int("max-complexity", 0, "Override the cyclomatic complexity limit")
	analyzeCmd.Flags().StringSlice("only", nil, "Run only the named backends")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	root := getPath(args)

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if maxComplexity, _ := cmd.Flags().GetInt("max-complexity"); maxComplexity > 0 {
		cfg.Thresholds.MaxComplexity = maxComplexity
	}

	p, err := project.New(root,
		project.WithInclude(cfg.Files.Include...),
		project.WithExclude(cfg.Files.Exclude...),
		project.WithThresholds(cfg.Thresholds),
	)
	if err != nil {
		return err
	}

	spinner := progress.NewSpinner("scanning")
	files, err := scanner.New(p).Scan(p.Root())
	spinner.Finish()
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if len(files) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	registry, err := buildRegistry(cfg, backendFilter(cmd))
	if err != nil {
		return err
	}

	tracker := progress.NewTracker("analyzing", len(registry.Names()))
	eng := engine.New(registry,
		engine.WithMaxParallel(cfg.Engine.MaxParallel),
		engine.WithBackendTimeout(time.Duration(cfg.Engine.BackendTimeoutSeconds)*time.Second),
		engine.WithOnBackendDone(func(string) { tracker.Tick() }),
	)

	run, err := eng.Run(cmd.Context(), p, files)
	if err != nil {
		tracker.FinishError(err)
		return err
	}
	tracker.Finish()

	card := scoring.Compute(run.Metrics)

	view, err := buildView(cmd, cfg, run, card)
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(output.ParseFormat(getFormat(cfg)), outputFile, useColor(cfg))
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(renderableReport(run, card, view)); err != nil {
		return err
	}

	if failUnder, _ := cmd.Flags().GetFloat64("fail-under"); failUnder > 0 && card.Total < failUnder {
		return fmt.Errorf("score %.1f is below --fail-under %.1f", card.Total, failUnder)
	}
	return nil
}

func loadConfig(root string) (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.LoadOrDefault(root), nil
}

func getFormat(cfg *config.Config) string {
	if formatFlag != "" {
		return formatFlag
	}
	return cfg.Output.Format
}

func useColor(cfg *config.Config) bool {
	return cfg.Output.Color && !noColor
}

// pickView resolves the report view: an explicit flag wins, then verbose
// mode implies the technical view, then the config default.
func pickView(flagView string, cfg *config.Config, verbose bool) string {
	if flagView != "" {
		return flagView
	}
	if verbose || cfg.Output.Verbose {
		return "technical"
	}
	return cfg.Output.View
}

// backendFilter narrows the enabled backend set when --only is given.
func backendFilter(cmd *cobra.Command) func(name string) bool {
	only, _ := cmd.Flags().GetStringSlice("only")
	if len(only) == 0 {
		return func(string) bool { return true }
	}
	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[strings.ToLower(strings.TrimSpace(name))] = true
	}
	return func(name string) bool { return wanted[name] }
}

func buildRegistry(cfg *config.Config, keep func(name string) bool) (*backend.Registry, error) {
	registry := backend.NewRegistry()
	for _, name := range cfg.EnabledBackends() {
		if !keep(name) {
			continue
		}
		var b backend.Backend
		switch name {
		case syntax.BackendName:
			b = syntax.New()
		case duplication.BackendName:
			b = duplication.New(
				duplication.WithThreshold(cfg.Duplication.Similarity),
				duplication.WithMinFileBytes(cfg.Duplication.MinFileBytes),
			)
		case coverage.BackendName:
			b = coverage.New(coverage.WithReportFile(cfg.Coverage.Report))
		case "ruff":
			b = exttool.Ruff()
		case "mypy":
			b = exttool.Mypy()
		case "bandit":
			b = exttool.Bandit()
		default:
			return nil, fmt.Errorf("unknown backend %q", name)
		}
		if err := registry.Register(b); err != nil {
			return nil, err
		}
	}
	if len(registry.Names()) == 0 {
		return nil, fmt.Errorf("no backends enabled")
	}
	return registry, nil
}

func buildView(cmd *cobra.Command, cfg *config.Config, run *engine.Run, card *scoring.Scorecard) (map[string]any, error) {
	flagView, _ := cmd.Flags().GetString("view")
	viewName := pickView(flagView, cfg, verbose)
	switch strings.ToLower(viewName) {
	case "", "executive":
		return report.Executive(run, card)
	case "technical":
		return report.Technical(run, card)
	default:
		return nil, fmt.Errorf("unknown view %q (want executive or technical)", viewName)
	}
}

// renderableReport builds the text/markdown rendering of a run. The JSON
// form is the view itself.
func renderableReport(run *engine.Run, card *scoring.Scorecard, view map[string]any) *output.Report {
	summary := &output.Section{
		Title: "Summary",
		Content: fmt.Sprintf("Grade: %s  Score: %.1f  Files: %d",
			output.GradeColor(card.Grade), card.Total, len(run.Files)),
	}

	categoryRows := make([][]string, 0, len(card.Categories))
	for _, c := range card.Categories {
		measured := "yes"
		if !c.Measured {
			measured = "no (neutral default)"
		}
		categoryRows = append(categoryRows, []string{
			string(c.Metric),
			fmt.Sprintf("%.1f", c.Score),
			output.GradeColor(c.Grade),
			fmt.Sprintf("%.0f%%", c.Weight*100),
			measured,
		})
	}
	categories := &output.Table{
		Title:   "Categories",
		Headers: []string{"Category", "Score", "Grade", "Weight", "Measured"},
		Rows:    categoryRows,
	}

	sections := []output.Renderable{summary, categories}

	if run.Project != nil {
		if breaches := scoring.Breaches(run.Metrics, run.Project.Thresholds()); len(breaches) > 0 {
			var lines []string
			for _, breach := range breaches {
				lines = append(lines, "- "+breach.Message)
			}
			sections = append(sections, &output.Section{
				Title:   "Threshold Breaches",
				Content: strings.Join(lines, "\n"),
			})
		}
	}

	if top := issue.TopN(run.Issues, report.TopIssueCount); len(top) > 0 {
		rows := make([][]string, 0, len(top))
		for _, is := range top {
			rows = append(rows, []string{
				output.SeverityColor(string(is.Severity), string(is.Severity)),
				fmt.Sprintf("%s:%d", is.File, is.Start.Line),
				is.Message,
			})
		}
		sections = append(sections, &output.Table{
			Title:   "Top Issues",
			Headers: []string{"Severity", "Location", "Message"},
			Rows:    rows,
		})
	}

	if run.Degraded() {
		var lines []string
		for _, w := range run.Warnings {
			lines = append(lines, fmt.Sprintf("- %s: %s", w.Backend, w.Reason))
		}
		sections = append(sections, &output.Section{
			Title:   "Degraded Backends",
			Content: strings.Join(lines, "\n"),
		})
	}

	return &output.Report{
		Title:    "verdict",
		Sections: sections,
		Data:     view,
	}
}
