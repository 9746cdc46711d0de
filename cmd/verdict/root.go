package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	formatFlag string
	outputFile string
	noColor    bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "verdict",
	Short: "Code quality scoring for multi-language projects",
	Long: `Verdict runs a set of analysis backends over a project, normalizes
their findings into one issue model, and folds the results into weighted
category scores and a letter grade.

Supports: Python, Go, TypeScript, JavaScript, Ruby`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (TOML, YAML, or JSON)")
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "", "Output format: text, json, markdown")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "Write output to file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose output")
}

// getPath returns the project root from positional args, defaulting to ".".
func getPath(args []string) string {
	if len(args) > 0 {
		return strings.TrimSuffix(args[0], "/")
	}
	return "."
}
