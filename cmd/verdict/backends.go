package main

import (
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/verdictdev/verdict/internal/output"
)

var backendsCmd = &cobra.Command{
	Use:   "backends [path]",
	Short: "List analysis backends and their availability",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackends,
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}

// backendInfo describes one backend for the listing.
type backendInfo struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Enabled   bool   `json:"enabled"`
	Available bool   `json:"available"`
}

func runBackends(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(getPath(args))
	if err != nil {
		return err
	}

	enabled := make(map[string]bool)
	for _, name := range cfg.EnabledBackends() {
		enabled[name] = true
	}

	infos := []backendInfo{
		{Name: "syntax", Kind: "internal", Enabled: enabled["syntax"], Available: true},
		{Name: "duplication", Kind: "internal", Enabled: enabled["duplication"], Available: true},
		{Name: "coverage", Kind: "report", Enabled: enabled["coverage"], Available: true},
		{Name: "ruff", Kind: "external", Enabled: enabled["ruff"], Available: binaryOnPath("ruff")},
		{Name: "mypy", Kind: "external", Enabled: enabled["mypy"], Available: binaryOnPath("mypy")},
		{Name: "bandit", Kind: "external", Enabled: enabled["bandit"], Available: binaryOnPath("bandit")},
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{info.Name, info.Kind, yesNo(info.Enabled), yesNo(info.Available)})
	}

	formatter, err := output.NewFormatter(output.ParseFormat(getFormat(cfg)), outputFile, useColor(cfg))
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(&output.Table{
		Title:   "Backends",
		Headers: []string{"Name", "Kind", "Enabled", "Available"},
		Rows:    rows,
		Data:    infos,
	})
}

func binaryOnPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
