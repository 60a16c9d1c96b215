// Copyright © 2024 The ELPS authors

// Package astutil provides shared syntax tree walking utilities.
//
// These helpers are used by the analysis, lint and lsp packages for
// traversing parsed PHP source.
package astutil

import (
	"strings"

	"github.com/luthersystems/phpsema/ast"
)

// Walk calls fn for every named node in the tree, depth-first.
// parent is nil for the root.
func Walk(root *ast.Node, fn func(node *ast.Node, parent *ast.Node, depth int)) {
	walkNode(root, nil, 0, fn)
}

func walkNode(node *ast.Node, parent *ast.Node, depth int, fn func(*ast.Node, *ast.Node, int)) {
	if node == nil {
		return
	}
	fn(node, parent, depth)
	for _, child := range node.Children() {
		walkNode(child, node, depth+1, fn)
	}
}

// WalkKind calls fn for every node of one of the given kinds.
func WalkKind(root *ast.Node, fn func(node *ast.Node, depth int), kinds ...ast.Kind) {
	Walk(root, func(node *ast.Node, _ *ast.Node, depth int) {
		if node.Kind().In(kinds...) {
			fn(node, depth)
		}
	})
}

// Comments returns every comment node in the tree in source order.
func Comments(root *ast.Node) []*ast.Node {
	var out []*ast.Node
	WalkKind(root, func(node *ast.Node, _ int) {
		out = append(out, node)
	}, ast.KindComment)
	return out
}

// PathTo returns the chain of named nodes from root down to the innermost
// node containing offset.  The result is empty when root does not contain
// offset.
func PathTo(root *ast.Node, offset uint) []*ast.Node {
	if root == nil || !root.Range().Contains(offset) {
		return nil
	}
	path := []*ast.Node{root}
	node := root
	for {
		next := childContaining(node, offset)
		if next == nil {
			return path
		}
		path = append(path, next)
		node = next
	}
}

// NodeAt returns the innermost named node containing offset, or nil.
func NodeAt(root *ast.Node, offset uint) *ast.Node {
	path := PathTo(root, offset)
	if len(path) == 0 {
		return nil
	}
	return path[len(path)-1]
}

func childContaining(node *ast.Node, offset uint) *ast.Node {
	for _, c := range node.Children() {
		if c.Range().Contains(offset) {
			return c
		}
	}
	return nil
}

// Unparen strips any number of enclosing parentheses from an expression.
func Unparen(node *ast.Node) *ast.Node {
	for node != nil && node.Kind() == ast.KindParenthesized {
		inner := node.NamedChild(0)
		if inner == nil {
			return node
		}
		node = inner
	}
	return node
}

// VarName returns the name of a simple variable without the leading "$",
// or "" when node is not a simple variable.
func VarName(node *ast.Node) string {
	node = Unparen(node)
	if node == nil || node.Kind() != ast.KindVariableName {
		return ""
	}
	if n := node.ChildOfKind(ast.KindName); n != nil {
		return n.Text()
	}
	return strings.TrimPrefix(node.Text(), "$")
}

// NameText returns the text of a name-like node with surrounding
// whitespace removed.  It is used for names, qualified names and
// namespace names.
func NameText(node *ast.Node) string {
	if node == nil {
		return ""
	}
	return strings.Join(strings.Fields(node.Text()), "")
}

// Offset converts a 1-based line and column into a byte offset of src.
// Positions past the end of a line clamp to the line end and positions past
// the end of src clamp to len(src).
func Offset(src []byte, line, col int) uint {
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	pos := 0
	for l := 1; l < line; l++ {
		i := strings.IndexByte(string(src[pos:]), '\n')
		if i < 0 {
			return uint(len(src))
		}
		pos += i + 1
	}
	end := pos
	for end < len(src) && src[end] != '\n' {
		end++
	}
	if pos+col-1 > end {
		return uint(end)
	}
	return uint(pos + col - 1)
}
