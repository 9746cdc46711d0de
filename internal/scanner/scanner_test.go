package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdictdev/verdict/pkg/project"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestScan_FindsSupportedSources(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app/main.py":      "x = 1\n",
		"app/util.py":      "y = 2\n",
		"web/index.js":     "var a;\n",
		"README.md":        "docs\n",
		".venv/lib/mod.py": "hidden\n",
	})

	p, err := project.New(root)
	require.NoError(t, err)

	files, err := New(p).Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("app", "main.py"),
		filepath.Join("app", "util.py"),
		filepath.Join("web", "index.js"),
	}, files)
}

func TestScan_ExcludeGlobs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/a.py":        "x\n",
		"src/a_test.py":   "x\n",
		"vendor/dep.py":   "x\n",
		"src/gen/auto.py": "x\n",
	})

	p, err := project.New(root,
		project.WithExclude("*_test.py", "vendor/", "gen/"))
	require.NoError(t, err)

	files, err := New(p).Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("src", "a.py")}, files)
}

func TestScan_IncludeGlobs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py": "x\n",
		"b.js": "x\n",
	})

	p, err := project.New(root, project.WithInclude("*.py"))
	require.NoError(t, err)

	files, err := New(p).Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, files)
}

func TestScan_HonorsGitignore(t *testing.T) {
	root := writeTree(t, map[string]string{
		".gitignore":   "build/\n",
		"build/gen.py": "x\n",
		"src/a.py":     "x\n",
	})

	p, err := project.New(root)
	require.NoError(t, err)

	files, err := New(p).Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("src", "a.py")}, files)
}

func TestFilterMinSize(t *testing.T) {
	root := writeTree(t, map[string]string{
		"big.py":   string(make([]byte, 200)),
		"small.py": "x",
	})
	kept := FilterMinSize(root, []string{"big.py", "small.py", "missing.py"}, 100)
	assert.Equal(t, []string{"big.py"}, kept)
}
