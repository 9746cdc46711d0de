// Package parser wraps tree-sitter for multi-language syntax analysis.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language represents a supported programming language.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangRuby       Language = "ruby"
	LangUnknown    Language = "unknown"
)

// Parser wraps a tree-sitter parser. Not safe for concurrent use; create
// one per worker.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed tree and enough context to walk it.
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// New creates a new parser instance.
func New() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// ParseFile reads and parses a source file. The context cancels the parse
// mid-file, not just between files.
func (p *Parser) ParseFile(ctx context.Context, path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	lang := DetectLanguage(path)
	if lang == LangUnknown {
		return nil, fmt.Errorf("unsupported language for file: %s", path)
	}
	return p.Parse(ctx, source, lang, path)
}

// Parse parses source code with an explicit language.
func (p *Parser) Parse(ctx context.Context, source []byte, lang Language, path string) (*ParseResult, error) {
	tsLang, err := treeSitterLanguage(lang)
	if err != nil {
		return nil, err
	}
	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	return &ParseResult{Tree: tree, Language: lang, Source: source, Path: path}, nil
}

// HasSyntaxError reports whether the parse produced error nodes. Tree-sitter
// recovers from bad input instead of failing, so a damaged file still yields
// a tree; this is how callers detect it.
func (r *ParseResult) HasSyntaxError() bool {
	return r.Tree.RootNode().HasError()
}

// FirstError returns the first ERROR node in source order, or nil.
func (r *ParseResult) FirstError() *sitter.Node {
	var found *sitter.Node
	WalkTyped(r.Tree.RootNode(), r.Source, func(n *sitter.Node, nodeType string, _ []byte) bool {
		if found != nil {
			return false
		}
		if nodeType == "ERROR" || n.IsMissing() {
			found = n
			return false
		}
		return true
	})
	return found
}

func treeSitterLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangGo:
		return golang.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangRuby:
		return ruby.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// DetectLanguage determines the language from a file path.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return LangGo
	case ".py", ".pyw", ".pyi":
		return LangPython
	case ".ts", ".tsx":
		return LangTypeScript
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript
	case ".rb":
		return LangRuby
	default:
		return LangUnknown
	}
}

// TypedNodeVisitor visits nodes with the node type pre-fetched, avoiding
// repeated CGO calls when the visitor branches on type.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// WalkTyped traverses the tree depth-first. Returning false from the
// visitor prunes the subtree.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}
	if !visitor(node, node.Type(), source) {
		return
	}
	for i := range int(node.ChildCount()) {
		WalkTyped(node.Child(i), source, visitor)
	}
}

// GetNodeText extracts the source text for a node.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}

// FunctionNode is a function or method definition found in a parse result.
type FunctionNode struct {
	Name      string
	StartLine uint32
	EndLine   uint32
	Body      *sitter.Node
}

// functionNodeTypes maps each language to its function definition node types.
func functionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"function_declaration", "method_declaration"}
	case LangPython:
		return []string{"function_definition"}
	case LangTypeScript, LangJavaScript:
		return []string{"function_declaration", "function_expression", "arrow_function", "method_definition"}
	case LangRuby:
		return []string{"method", "singleton_method"}
	default:
		return nil
	}
}

// GetFunctions extracts all function definitions in source order.
func GetFunctions(result *ParseResult) []FunctionNode {
	types := make(map[string]bool)
	for _, t := range functionNodeTypes(result.Language) {
		types[t] = true
	}

	var functions []FunctionNode
	WalkTyped(result.Tree.RootNode(), result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		if !types[nodeType] {
			return true
		}
		fn := FunctionNode{
			StartLine: node.StartPoint().Row + 1,
			EndLine:   node.EndPoint().Row + 1,
		}
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			fn.Name = GetNodeText(nameNode, source)
		}
		fn.Body = node.ChildByFieldName("body")
		if fn.Body == nil {
			// Ruby method bodies.
			fn.Body = node.ChildByFieldName("body_statement")
		}
		functions = append(functions, fn)
		return true
	})
	return functions
}

// classNodeTypes maps each language to its class-like definition node types.
func classNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"type_declaration"}
	case LangPython:
		return []string{"class_definition"}
	case LangTypeScript, LangJavaScript:
		return []string{"class_declaration"}
	case LangRuby:
		return []string{"class", "module"}
	default:
		return nil
	}
}

// CountClasses returns the number of class-like definitions.
func CountClasses(result *ParseResult) int {
	types := make(map[string]bool)
	for _, t := range classNodeTypes(result.Language) {
		types[t] = true
	}
	count := 0
	WalkTyped(result.Tree.RootNode(), result.Source, func(_ *sitter.Node, nodeType string, _ []byte) bool {
		if types[nodeType] {
			count++
		}
		return true
	})
	return count
}

// ImportNode is one imported name and where it was declared.
type ImportNode struct {
	// Name is the identifier the import binds locally (the alias when one
	// is present, otherwise the first path segment).
	Name string
	Line uint32
}

// GetImports extracts imported names for unused-import analysis. Wildcard
// and side-effect imports are skipped since their usage cannot be tracked
// by identifier.
func GetImports(result *ParseResult) []ImportNode {
	var imports []ImportNode
	add := func(name string, node *sitter.Node) {
		name = strings.TrimSpace(name)
		if name == "" || name == "*" || name == "_" || name == "." {
			return
		}
		// "a.b.c" binds "a" in Python; keep the bound segment.
		if idx := strings.IndexByte(name, '.'); idx > 0 {
			name = name[:idx]
		}
		imports = append(imports, ImportNode{Name: name, Line: node.StartPoint().Row + 1})
	}

	root := result.Tree.RootNode()
	switch result.Language {
	case LangPython:
		WalkTyped(root, result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
			switch nodeType {
			case "import_statement", "import_from_statement":
				for i := range int(node.NamedChildCount()) {
					child := node.NamedChild(i)
					switch child.Type() {
					case "dotted_name":
						// In `from pkg import x`, the module name is the
						// first named child; only the imported names bind.
						if nodeType == "import_from_statement" && i == 0 {
							continue
						}
						add(GetNodeText(child, source), child)
					case "aliased_import":
						add(GetNodeText(child.ChildByFieldName("alias"), source), child)
					case "wildcard_import":
						// Unusable for unused-import tracking.
					}
				}
				return false
			}
			return true
		})
	case LangGo:
		WalkTyped(root, result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
			if nodeType != "import_spec" {
				return true
			}
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				add(GetNodeText(nameNode, source), node)
			} else if pathNode := node.ChildByFieldName("path"); pathNode != nil {
				path := strings.Trim(GetNodeText(pathNode, source), "\"`")
				add(filepath.Base(path), node)
			}
			return false
		})
	case LangTypeScript, LangJavaScript:
		WalkTyped(root, result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
			if nodeType != "import_statement" {
				return true
			}
			WalkTyped(node, source, func(n *sitter.Node, t string, src []byte) bool {
				if t == "identifier" {
					add(GetNodeText(n, src), n)
				}
				return true
			})
			return false
		})
	}
	return imports
}

// CountIdentifier counts occurrences of name as an identifier outside
// import declarations.
func CountIdentifier(result *ParseResult, name string) int {
	count := 0
	WalkTyped(result.Tree.RootNode(), result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		switch nodeType {
		case "import_statement", "import_from_statement", "import_declaration", "import_spec":
			return false
		case "identifier", "package_identifier":
			// package_identifier covers Go imports referenced only in
			// qualified type names.
			if GetNodeText(node, source) == name {
				count++
			}
		}
		return true
	})
	return count
}
