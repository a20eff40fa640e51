package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knagel/codesage/pkg/types"
)

func TestParse_DocumentedMethod(t *testing.T) {
	content := `public class Foo
{
    /// <summary>
    /// Does the bar thing.
    /// </summary>
    public void Bar()
    {
        DoSomething();
    }
}`

	p := New()
	units := p.Parse("Foo.cs", content)

	var methods []types.CodeUnit
	for _, u := range units {
		if u.Kind == types.KindMethod {
			methods = append(methods, u)
		}
	}

	require.Len(t, methods, 1)
	m := methods[0]
	assert.Equal(t, "Foo.Bar", m.Name)
	assert.Equal(t, 6, m.StartLine)
	assert.Equal(t, 9, m.EndLine)
	assert.Equal(t, "Does the bar thing.", m.Summary)
	assert.Contains(t, m.Content, "DoSomething")
	assert.NoError(t, m.Validate())
}

func TestParse_ClassSpan(t *testing.T) {
	content := `using UnityEngine;

public class PlayerController : MonoBehaviour
{
    void Update()
    {
    }
}`

	p := New()
	units := p.Parse("PlayerController.cs", content)

	var class *types.CodeUnit
	for i := range units {
		if units[i].Kind == types.KindClass {
			class = &units[i]
		}
	}

	require.NotNil(t, class)
	assert.Equal(t, "PlayerController", class.Name)
	assert.Equal(t, 3, class.StartLine)
	assert.Equal(t, 8, class.EndLine)
}

func TestParse_AutoProperty(t *testing.T) {
	content := `public class Player
{
    public int Health { get; set; }

    private int maxHealth;
}`

	p := New()
	units := p.Parse("Player.cs", content)

	var props []types.CodeUnit
	for _, u := range units {
		if u.Kind == types.KindProperty {
			props = append(props, u)
		}
	}

	// The field without accessors must not be picked up.
	require.Len(t, props, 1)
	assert.Equal(t, "Player.Health", props[0].Name)
	assert.Equal(t, 3, props[0].StartLine)
	assert.Equal(t, 3, props[0].EndLine)
}

func TestParse_ExpressionBodiedMethod(t *testing.T) {
	content := `public class Calc
{
    public int Twice(int x) => x * 2;
}`

	p := New()
	units := p.Parse("Calc.cs", content)

	var method *types.CodeUnit
	for i := range units {
		if units[i].Kind == types.KindMethod {
			method = &units[i]
		}
	}

	require.NotNil(t, method)
	assert.Equal(t, "Calc.Twice", method.Name)
	assert.Equal(t, 3, method.StartLine)
	assert.Equal(t, 3, method.EndLine)
}

func TestParse_NestedClassQualification(t *testing.T) {
	content := `public class Outer
{
    public class Inner
    {
        public void Run()
        {
        }
    }
}`

	p := New()
	units := p.Parse("Outer.cs", content)

	var method *types.CodeUnit
	for i := range units {
		if units[i].Kind == types.KindMethod {
			method = &units[i]
		}
	}

	require.NotNil(t, method)
	// Innermost containing class wins.
	assert.Equal(t, "Inner.Run", method.Name)
}

func TestParse_WholeFileFallback(t *testing.T) {
	content := `// Configuration constants only.
#define DEBUG_MODE`

	p := New()
	units := p.Parse("Defines.cs", content)

	require.Len(t, units, 1)
	assert.Equal(t, types.KindFile, units[0].Kind)
	assert.Equal(t, "Defines.cs", units[0].Name)
	assert.Equal(t, 1, units[0].StartLine)
	assert.Equal(t, 2, units[0].EndLine)
	assert.Equal(t, content, units[0].Content)
}

func TestParse_ControlFlowNotMethods(t *testing.T) {
	content := `public class Loop
{
    public void Tick()
    {
        if (ready)
        {
            Go();
        }
    }
}`

	p := New()
	units := p.Parse("Loop.cs", content)

	for _, u := range units {
		if u.Kind == types.KindMethod {
			assert.Equal(t, "Loop.Tick", u.Name)
		}
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Enemy.cs")
	content := `public class Enemy
{
    public void Attack()
    {
    }
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p := New()
	units, err := p.ParseFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, units)

	_, err = p.ParseFile(filepath.Join(dir, "missing.cs"))
	assert.Error(t, err)
}
