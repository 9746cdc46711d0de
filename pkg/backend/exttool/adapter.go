// Package exttool adapts external command-line analyzers to the backend
// contract. Each tool declares its binary, arguments, exit-code policy, and
// an output parser; the shared adapter handles process execution and failure
// isolation so a missing or broken tool degrades only its own backend.
package exttool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/verdictdev/verdict/pkg/backend"
	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/project"
)

// Tool describes one external analyzer.
type Tool struct {
	// Name is the backend name, also stamped on every issue.
	Name string

	// Binary is the executable looked up on PATH.
	Binary string

	// Args builds the command line for a run. Paths are relative to the
	// project root, which is also the working directory.
	Args func(p *project.Project, files []string) []string

	// OKExitCodes are the exit codes that still mean usable output.
	// Analyzers conventionally exit 1 when they found something.
	OKExitCodes []int

	// Parse converts raw stdout into a result. It must validate the
	// payload before trusting it.
	Parse func(p *project.Project, stdout []byte) (*backend.Result, error)
}

// Adapter runs one Tool as a Backend.
type Adapter struct {
	tool Tool
}

// NewAdapter wraps a tool definition.
func NewAdapter(tool Tool) *Adapter {
	return &Adapter{tool: tool}
}

// Name implements backend.Backend.
func (a *Adapter) Name() string { return a.tool.Name }

// Analyze implements backend.Backend. Every fault is returned as a
// *backend.Failure so the orchestrator can continue with other backends.
func (a *Adapter) Analyze(ctx context.Context, p *project.Project, files []string) (*backend.Result, error) {
	bin, err := exec.LookPath(a.tool.Binary)
	if err != nil {
		return nil, &backend.Failure{
			Backend: a.tool.Name,
			Reason:  fmt.Sprintf("%s is not installed", a.tool.Binary),
			Err:     err,
		}
	}

	cmd := exec.CommandContext(ctx, bin, a.tool.Args(p, files)...)
	cmd.Dir = p.Root()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		reason := "cancelled"
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			reason = "timed out"
		}
		return nil, &backend.Failure{Backend: a.tool.Name, Reason: reason, Err: ctxErr}
	}
	if runErr != nil && !a.exitAllowed(runErr) {
		return nil, &backend.Failure{
			Backend: a.tool.Name,
			Reason:  fmt.Sprintf("%s failed: %s", a.tool.Binary, firstLine(stderr.String())),
			Err:     runErr,
		}
	}

	result, err := a.tool.Parse(p, stdout.Bytes())
	if err != nil {
		return nil, &backend.Failure{
			Backend: a.tool.Name,
			Reason:  fmt.Sprintf("%s produced unusable output", a.tool.Binary),
			Err:     err,
		}
	}
	// Locations come from untrusted tool output; reject findings that break
	// the issue invariants instead of letting them into the run.
	for i := range result.Issues {
		if verr := result.Issues[i].Validate(); verr != nil {
			return nil, &backend.Failure{
				Backend: a.tool.Name,
				Reason:  fmt.Sprintf("%s produced an invalid finding", a.tool.Binary),
				Err:     verr,
			}
		}
	}
	issue.SortStable(result.Issues)
	return result, nil
}

func (a *Adapter) exitAllowed(runErr error) bool {
	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		return false
	}
	for _, code := range a.tool.OKExitCodes {
		if exitErr.ExitCode() == code {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if s == "" {
		return "no error output"
	}
	return s
}

// relPath normalizes a tool-reported path against the project root. Tools
// run with the root as working directory, but some still report absolute
// paths.
func relPath(p *project.Project, path string) string {
	path = strings.TrimPrefix(path, p.Root()+"/")
	return strings.TrimPrefix(path, "./")
}
