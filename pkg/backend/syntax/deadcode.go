package syntax

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/verdictdev/verdict/pkg/issue"
	"github.com/verdictdev/verdict/pkg/parser"
)

// blockNodeTypes are the statement containers scanned for unreachable code.
func blockNodeTypes(lang parser.Language) map[string]bool {
	switch lang {
	case parser.LangPython:
		return map[string]bool{"block": true}
	case parser.LangGo:
		return map[string]bool{"block": true}
	case parser.LangTypeScript, parser.LangJavaScript:
		return map[string]bool{"statement_block": true}
	case parser.LangRuby:
		return map[string]bool{"body_statement": true, "then": true, "do_block": true}
	default:
		return nil
	}
}

// terminatorNodeTypes are statements after which control cannot continue
// within the same block.
var terminatorNodeTypes = map[string]bool{
	"return_statement": true,
	"raise_statement":  true,
	"throw_statement":  true,
	"return":           true,
	"break_statement":  true,
	"continue_statement": true,
}

// findDeadCode reports unused imports and statements unreachable after an
// unconditional terminator.
func findDeadCode(parsed *parser.ParseResult, rel string) []issue.Issue {
	var issues []issue.Issue
	issues = append(issues, findUnusedImports(parsed, rel)...)
	issues = append(issues, findUnreachable(parsed, rel)...)
	return issues
}

func findUnusedImports(parsed *parser.ParseResult, rel string) []issue.Issue {
	var issues []issue.Issue
	seen := make(map[string]bool)
	for _, imp := range parser.GetImports(parsed) {
		if seen[imp.Name] {
			continue
		}
		seen[imp.Name] = true
		if parser.CountIdentifier(parsed, imp.Name) > 0 {
			continue
		}
		issues = append(issues, issue.Issue{
			Backend:  BackendName,
			Rule:     "unused-import",
			Severity: issue.SeverityLow,
			Category: issue.CategoryDeadCode,
			File:     rel,
			Start:    issue.Location{Line: int(imp.Line)},
			Message:  fmt.Sprintf("imported name %q is never used", imp.Name),
			Fix:      fmt.Sprintf("remove the unused import of %q", imp.Name),
			Status:   issue.StatusActive,
		})
	}
	return issues
}

func findUnreachable(parsed *parser.ParseResult, rel string) []issue.Issue {
	blocks := blockNodeTypes(parsed.Language)
	var issues []issue.Issue

	parser.WalkTyped(parsed.Tree.RootNode(), parsed.Source, func(node *sitter.Node, nodeType string, _ []byte) bool {
		if !blocks[nodeType] {
			return true
		}
		if dead := firstUnreachable(node); dead != nil {
			issues = append(issues, issue.Issue{
				Backend:  BackendName,
				Rule:     "unreachable-code",
				Severity: issue.SeverityMedium,
				Category: issue.CategoryDeadCode,
				File:     rel,
				Start:    issue.Location{Line: int(dead.StartPoint().Row) + 1},
				Message:  "statement is unreachable",
				Fix:      "remove code after the terminating statement",
				Status:   issue.StatusActive,
			})
		}
		return true
	})
	return issues
}

// firstUnreachable returns the first statement following a terminator in the
// block, or nil. One finding per block keeps reports readable. A labeled
// statement ends the scan since a goto may target it.
func firstUnreachable(block *sitter.Node) *sitter.Node {
	terminated := false
	for i := range int(block.NamedChildCount()) {
		child := block.NamedChild(i)
		t := child.Type()
		if t == "comment" {
			continue
		}
		if terminated {
			if t == "labeled_statement" {
				return nil
			}
			return child
		}
		if terminatorNodeTypes[t] {
			terminated = true
		}
	}
	return nil
}
