// Copyright © 2024 The ELPS authors

package astutil

import (
	"testing"

	"github.com/luthersystems/phpsema/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const src = `$ab = (1);`

func span(start, end uint) ast.Range {
	return ast.Range{
		StartByte: start,
		EndByte:   end,
		Start:     ast.Point{Column: start},
		End:       ast.Point{Column: end},
	}
}

// buildTree builds the tree of src by hand.
func buildTree() *ast.Node {
	b := []byte(src)
	varName := ast.NewNode(ast.KindVariableName, true, span(0, 3), b)
	varName.AddChild("", ast.NewNode("$", false, span(0, 1), b))
	varName.AddChild("", ast.NewNode(ast.KindName, true, span(1, 3), b))

	paren := ast.NewNode(ast.KindParenthesized, true, span(6, 9), b)
	paren.AddChild("", ast.NewNode("(", false, span(6, 7), b))
	paren.AddChild("", ast.NewNode(ast.KindInteger, true, span(7, 8), b))
	paren.AddChild("", ast.NewNode(")", false, span(8, 9), b))

	assign := ast.NewNode(ast.KindAssignment, true, span(0, 9), b)
	assign.AddChild("left", varName)
	assign.AddChild("", ast.NewNode("=", false, span(4, 5), b))
	assign.AddChild("right", paren)

	stmt := ast.NewNode(ast.KindExpressionStatement, true, span(0, 10), b)
	stmt.AddChild("", assign)
	stmt.AddChild("", ast.NewNode(";", false, span(9, 10), b))

	root := ast.NewNode(ast.KindProgram, true, span(0, 10), b)
	root.AddChild("", stmt)
	return root
}

func TestWalk_VisitsNamedNodes(t *testing.T) {
	var kinds []ast.Kind
	var depths []int
	Walk(buildTree(), func(node *ast.Node, parent *ast.Node, depth int) {
		kinds = append(kinds, node.Kind())
		depths = append(depths, depth)
		if depth == 0 {
			assert.Nil(t, parent)
		} else {
			assert.NotNil(t, parent)
		}
	})
	assert.Equal(t, []ast.Kind{
		ast.KindProgram,
		ast.KindExpressionStatement,
		ast.KindAssignment,
		ast.KindVariableName,
		ast.KindName,
		ast.KindParenthesized,
		ast.KindInteger,
	}, kinds)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 3, 4}, depths)
}

func TestWalkKind(t *testing.T) {
	var found []string
	WalkKind(buildTree(), func(node *ast.Node, _ int) {
		found = append(found, node.Text())
	}, ast.KindVariableName, ast.KindInteger)
	assert.Equal(t, []string{"$ab", "1"}, found)
}

func TestPathTo(t *testing.T) {
	root := buildTree()
	path := PathTo(root, 7)
	require.Len(t, path, 5)
	assert.Equal(t, ast.KindInteger, path[4].Kind())
	assert.Equal(t, ast.KindParenthesized, path[3].Kind())

	// The "=" token is anonymous so the assignment is innermost.
	assert.Equal(t, ast.KindAssignment, NodeAt(root, 4).Kind())
	assert.Empty(t, PathTo(root, 42))
	assert.Nil(t, NodeAt(root, 42))
}

func TestUnparen(t *testing.T) {
	root := buildTree()
	assign := root.NamedChild(0).NamedChild(0)
	right := assign.Field("right")
	assert.Equal(t, ast.KindInteger, Unparen(right).Kind())
	assert.Nil(t, Unparen(nil))
}

func TestVarName(t *testing.T) {
	root := buildTree()
	assign := root.NamedChild(0).NamedChild(0)
	assert.Equal(t, "ab", VarName(assign.Field("left")))
	assert.Equal(t, "", VarName(assign.Field("right")))
	assert.Equal(t, "", VarName(nil))
}

func TestOffset(t *testing.T) {
	text := []byte("ab\ncde\n")
	assert.Equal(t, uint(0), Offset(text, 1, 1))
	assert.Equal(t, uint(1), Offset(text, 1, 2))
	assert.Equal(t, uint(4), Offset(text, 2, 2))
	assert.Equal(t, uint(6), Offset(text, 2, 40))
	assert.Equal(t, uint(len(text)), Offset(text, 9, 1))
}
