// Copyright © 2024 The ELPS authors

package lint

import (
	"strings"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/astutil"
)

// WalkAll calls fn for every node in the tree, anonymous tokens included,
// depth-first.  The children of a node are skipped when fn returns false.
func WalkAll(root *ast.Node, fn func(node *ast.Node) bool) {
	if root == nil || !fn(root) {
		return
	}
	for _, child := range root.AllChildren() {
		WalkAll(child, fn)
	}
}

// WalkKinds calls fn for every named node of one of the given kinds.
func WalkKinds(root *ast.Node, fn func(node *ast.Node), kinds ...ast.Kind) {
	astutil.WalkKind(root, func(node *ast.Node, _ int) { fn(node) }, kinds...)
}

// Snippet returns the first line of the text of node, shortened to at most
// max bytes.
func Snippet(node *ast.Node, max int) string {
	text := node.Text()
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if len(text) > max {
		text = text[:max] + "..."
	}
	if text == "" {
		return "end of input"
	}
	return "'" + text + "'"
}
