package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScan_DiscoversSourceFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Assets/Player.cs", "class Player {}")
	writeFile(t, root, "Assets/Enemy.cs", "class Enemy {}")
	writeFile(t, root, "README.md", "# not source")

	s := New(Config{Roots: []string{root}})
	files, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, files, 2)

	for _, f := range files {
		assert.Equal(t, ".cs", filepath.Ext(f.Path))
		assert.NotEmpty(t, f.Hash)
		assert.NotContains(t, f.Path, "\\")
	}
}

func TestScan_HashChangesWithContent(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "A.cs", "class A {}")

	s := New(Config{Roots: []string{root}})
	before, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, before, 1)

	require.NoError(t, os.WriteFile(path, []byte("class A { int x; }"), 0o644))
	after, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, after, 1)

	assert.NotEqual(t, before[0].Hash, after[0].Hash)
}

func TestScan_DefaultExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Assets/Keep.cs", "class Keep {}")
	writeFile(t, root, "Library/Generated.cs", "class Generated {}")
	writeFile(t, root, "Temp/Scratch.cs", "class Scratch {}")
	writeFile(t, root, "obj/Debug/Build.cs", "class Build {}")

	s := New(Config{Roots: []string{root}})
	files, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Contains(t, files[0].Path, "Keep.cs")
}

func TestScan_CustomExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/Keep.cs", "class Keep {}")
	writeFile(t, root, "generated/Skip.cs", "class Skip {}")

	s := New(Config{Roots: []string{root}, ExcludePatterns: []string{"/generated/"}})
	files, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Contains(t, files[0].Path, "Keep.cs")
}

func TestScan_MaxFilesCap(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"A.cs", "B.cs", "C.cs", "D.cs"} {
		writeFile(t, root, name, "class X {}")
	}

	s := New(Config{Roots: []string{root}, MaxFiles: 2})
	files, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestScan_Gitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "ignored/\n")
	writeFile(t, root, "src/Keep.cs", "class Keep {}")
	writeFile(t, root, "ignored/Skip.cs", "class Skip {}")

	s := New(Config{Roots: []string{root}, UseGitignore: true})
	files, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Contains(t, files[0].Path, "Keep.cs")
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "A.cs", "class A {}")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(Config{Roots: []string{root}})
	files, err := s.Scan(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, files)
}

func TestScan_Progress(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "A.cs", "class A {}")
	writeFile(t, root, "B.cs", "class B {}")

	var fractions []float64
	s := New(Config{Roots: []string{root}})
	_, err := s.Scan(context.Background(), func(f float64) {
		fractions = append(fractions, f)
	})
	require.NoError(t, err)

	require.NotEmpty(t, fractions)
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
	for _, f := range fractions {
		assert.GreaterOrEqual(t, f, 0.0)
		assert.LessOrEqual(t, f, 1.0)
	}
}
