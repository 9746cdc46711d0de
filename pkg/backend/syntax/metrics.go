package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/verdictdev/verdict/pkg/parser"
)

// decisionNodeTypes lists the syntax nodes that add a decision point per
// language: conditionals, loops, and exception handlers. Boolean operators
// are handled separately because most grammars expose them as generic
// binary expressions.
func decisionNodeTypes(lang parser.Language) map[string]bool {
	var types []string
	switch lang {
	case parser.LangPython:
		types = []string{
			"if_statement", "elif_clause", "conditional_expression",
			"for_statement", "while_statement",
			"except_clause", "case_clause",
		}
	case parser.LangGo:
		types = []string{
			"if_statement", "for_statement",
			"expression_case", "type_case", "communication_case",
		}
	case parser.LangTypeScript, parser.LangJavaScript:
		types = []string{
			"if_statement", "ternary_expression",
			"for_statement", "for_in_statement", "while_statement", "do_statement",
			"switch_case", "catch_clause",
		}
	case parser.LangRuby:
		types = []string{
			"if", "elsif", "unless", "conditional",
			"while", "until", "for", "while_modifier", "until_modifier",
			"if_modifier", "unless_modifier",
			"when", "rescue",
		}
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// booleanOperatorTexts are the short-circuit operators that add a decision
// point when they appear in a binary expression.
var booleanOperatorTexts = map[string]bool{
	"&&": true, "||": true, "and": true, "or": true,
}

// cyclomaticComplexity computes 1 + decision points for one function body.
// Nested function definitions are counted toward their own entry in
// GetFunctions, so the walk prunes them here.
func cyclomaticComplexity(fn parser.FunctionNode, parsed *parser.ParseResult) int {
	if fn.Body == nil {
		return 1
	}
	decisions := decisionNodeTypes(parsed.Language)
	nested := make(map[string]bool)
	for _, t := range functionTypesFor(parsed.Language) {
		nested[t] = true
	}

	complexity := 1
	parser.WalkTyped(fn.Body, parsed.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		if nested[nodeType] {
			return false
		}
		switch {
		case decisions[nodeType]:
			complexity++
		case nodeType == "boolean_operator":
			// Python's dedicated and/or node.
			complexity++
		case nodeType == "binary_expression" || nodeType == "binary":
			if op := node.ChildByFieldName("operator"); op != nil && booleanOperatorTexts[parser.GetNodeText(op, source)] {
				complexity++
			}
		}
		return true
	})
	return complexity
}

// maxNestingDepth reports how deeply decision constructs nest inside one
// function body. Nested function definitions are measured on their own
// GetFunctions entry and pruned here, like in cyclomaticComplexity.
func maxNestingDepth(fn parser.FunctionNode, parsed *parser.ParseResult) int {
	if fn.Body == nil {
		return 0
	}
	decisions := decisionNodeTypes(parsed.Language)
	nested := make(map[string]bool)
	for _, t := range functionTypesFor(parsed.Language) {
		nested[t] = true
	}

	var walk func(node *sitter.Node, depth int) int
	walk = func(node *sitter.Node, depth int) int {
		nodeType := node.Type()
		if nested[nodeType] {
			return depth
		}
		if decisions[nodeType] {
			depth++
		}
		deepest := depth
		for i := range int(node.ChildCount()) {
			if d := walk(node.Child(i), depth); d > deepest {
				deepest = d
			}
		}
		return deepest
	}
	return walk(fn.Body, 0)
}

// functionTypesFor mirrors the parser's function node table so complexity
// walks can prune nested definitions.
func functionTypesFor(lang parser.Language) []string {
	switch lang {
	case parser.LangGo:
		return []string{"function_declaration", "method_declaration", "func_literal"}
	case parser.LangPython:
		return []string{"function_definition"}
	case parser.LangTypeScript, parser.LangJavaScript:
		return []string{"function_declaration", "function_expression", "arrow_function", "method_definition"}
	case parser.LangRuby:
		return []string{"method", "singleton_method"}
	default:
		return nil
	}
}
