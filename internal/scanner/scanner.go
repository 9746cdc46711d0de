// Package scanner discovers the source files of a project.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/verdictdev/verdict/pkg/parser"
	"github.com/verdictdev/verdict/pkg/project"
)

// Scanner finds analyzable source files under a project root, honoring the
// project's include/exclude globs and any .gitignore files in the tree.
type Scanner struct {
	include gitignore.Matcher
	exclude gitignore.Matcher
}

// New creates a scanner for the given project. Globs use gitignore syntax.
func New(p *project.Project) *Scanner {
	s := &Scanner{}

	if globs := p.Include(); len(globs) > 0 {
		patterns := make([]gitignore.Pattern, 0, len(globs))
		for _, g := range globs {
			patterns = append(patterns, gitignore.ParsePattern(g, nil))
		}
		s.include = gitignore.NewMatcher(patterns)
	}

	var patterns []gitignore.Pattern
	for _, g := range p.Exclude() {
		patterns = append(patterns, gitignore.ParsePattern(g, nil))
	}
	// Nested .gitignore files apply in addition to configured excludes.
	if gitPatterns, err := gitignore.ReadPatterns(osfs.New(p.Root()), nil); err == nil {
		patterns = append(patterns, gitPatterns...)
	}
	if len(patterns) > 0 {
		s.exclude = gitignore.NewMatcher(patterns)
	}

	return s
}

// Scan walks the project root and returns all matching source files in
// deterministic (lexical walk) order, as paths relative to the root.
func (s *Scanner) Scan(root string) ([]string, error) {
	files := make([]string, 0, 256)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal; the project
			// itself was validated before scanning.
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}

		if d.IsDir() {
			if isHidden(rel) || s.excluded(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.excluded(rel, false) {
			return nil
		}
		if parser.DetectLanguage(path) == parser.LangUnknown {
			return nil
		}
		if s.include != nil && !s.include.Match(split(rel), false) {
			return nil
		}
		files = append(files, rel)
		return nil
	})

	return files, err
}

// FilterMinSize drops files smaller than minBytes. Used by the duplication
// detector to ignore trivially small files.
func FilterMinSize(root string, files []string, minBytes int64) []string {
	kept := make([]string, 0, len(files))
	for _, f := range files {
		info, err := os.Stat(filepath.Join(root, f))
		if err != nil {
			continue
		}
		if info.Size() >= minBytes {
			kept = append(kept, f)
		}
	}
	return kept
}

func (s *Scanner) excluded(rel string, isDir bool) bool {
	return s.exclude != nil && s.exclude.Match(split(rel), isDir)
}

func split(rel string) []string {
	return strings.Split(rel, string(filepath.Separator))
}

// isHidden reports whether the path's last element is a dot-directory
// (".git", ".venv", ...).
func isHidden(rel string) bool {
	base := filepath.Base(rel)
	return len(base) > 1 && base[0] == '.'
}
