// Copyright © 2024 The ELPS authors

package parser

import (
	"strings"
	"testing"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/astutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Assignment(t *testing.T) {
	root, err := Parse([]byte("<?php\n$x = 1 + 2;\n"))
	require.NoError(t, err)
	assert.Equal(t, ast.KindProgram, root.Kind())

	var bin *ast.Node
	astutil.WalkKind(root, func(n *ast.Node, _ int) { bin = n }, ast.KindBinary)
	require.NotNil(t, bin)
	assert.Equal(t, "1 + 2", bin.Text())
	assert.Equal(t, "1", bin.Field("left").Text())
	assert.Equal(t, "2", bin.Field("right").Text())
	require.NotNil(t, bin.Field("operator"))
	assert.Equal(t, "+", bin.Field("operator").Text())
	assert.Equal(t, 2, bin.Range().Line())
}

func TestParse_IfStatement(t *testing.T) {
	root, err := Parse([]byte("<?php if ($a) { echo 1; } else { echo 2; }"))
	require.NoError(t, err)
	var ifs *ast.Node
	astutil.WalkKind(root, func(n *ast.Node, _ int) { ifs = n }, ast.KindIfStatement)
	require.NotNil(t, ifs)
	assert.NotNil(t, ifs.Field("condition"))
	assert.NotNil(t, ifs.Field("body"))
	alts := ifs.Fields("alternative")
	require.Len(t, alts, 1)
	assert.Equal(t, ast.KindElseClause, alts[0].Kind())
}

func TestParse_SyntaxError(t *testing.T) {
	root, err := Parse([]byte("<?php $x = ;"))
	require.NoError(t, err)
	var bad int
	astutil.Walk(root, func(n *ast.Node, _ *ast.Node, _ int) {
		if n.IsError() {
			bad++
		}
	})
	// Missing nodes are anonymous, so they are visible through AllChildren only.
	var missing func(n *ast.Node)
	missing = func(n *ast.Node) {
		for _, c := range n.AllChildren() {
			if c.IsMissing() {
				bad++
			}
			missing(c)
		}
	}
	missing(root)
	assert.Positive(t, bad)
}

func TestParser_Read(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()
	root, err := p.Read("test.php", strings.NewReader("<?php function f() {}"))
	require.NoError(t, err)
	fn := root.ChildOfKind(ast.KindFunctionDefinition)
	require.NotNil(t, fn)
	assert.Equal(t, "f", fn.Field("name").Text())
}

func TestParser_Closed(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	p.Close()
	_, err = p.Parse([]byte("<?php"))
	assert.ErrorIs(t, err, ErrNoTree)
}
