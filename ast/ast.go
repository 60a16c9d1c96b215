// Copyright © 2024 The ELPS authors

// Package ast defines the immutable PHP syntax tree consumed by the
// analysis passes.  Trees are produced by the parser package and are never
// modified once construction finishes.
package ast

import (
	"fmt"
)

// Point is a 0-based row/column position.  Columns count bytes.
type Point struct {
	Row    uint
	Column uint
}

// Range is the source span of a node.  The byte range is half-open.
type Range struct {
	StartByte uint
	EndByte   uint
	Start     Point
	End       Point
}

// Contains reports whether the byte offset lies inside r.
func (r Range) Contains(offset uint) bool {
	return r.StartByte <= offset && offset < r.EndByte
}

// Line returns the 1-based line on which r starts.
func (r Range) Line() int {
	return int(r.Start.Row) + 1
}

// Col returns the 1-based column at which r starts.
func (r Range) Col() int {
	return int(r.Start.Column) + 1
}

// String returns the 1-based "line:col" of the start of r.
func (r Range) String() string {
	return fmt.Sprintf("%d:%d", r.Line(), r.Col())
}

// Node is a syntax tree node.  Anonymous tokens (keywords, operators and
// punctuation) are kept as unnamed children so that fields referring to
// them, such as a binary operator, can be resolved.
type Node struct {
	kind     Kind
	named    bool
	isError  bool
	missing  bool
	rng      Range
	src      []byte
	children []*Node
	fields   []string // field name of children[i], "" when unlabeled
}

// NewNode starts a node over the shared source buffer src.  Children are
// attached with AddChild while the tree is being built.
func NewNode(kind Kind, named bool, rng Range, src []byte) *Node {
	return &Node{kind: kind, named: named, rng: rng, src: src}
}

// AddChild appends child to n under the given field name, which may be
// empty.  It must only be called during construction.
func (n *Node) AddChild(field string, child *Node) {
	n.children = append(n.children, child)
	n.fields = append(n.fields, field)
}

// MarkError flags n as a syntax error node.  Missing nodes are inserted by
// error recovery and have an empty range.
func (n *Node) MarkError(missing bool) {
	n.isError = true
	n.missing = missing
}

// Kind returns the grammar production of n.
func (n *Node) Kind() Kind { return n.kind }

// Range returns the source span of n.
func (n *Node) Range() Range { return n.rng }

// IsNamed reports whether n is a named production rather than a token.
func (n *Node) IsNamed() bool { return n.named }

// IsError reports whether n was produced by error recovery.
func (n *Node) IsError() bool { return n.isError || n.kind == KindError }

// IsMissing reports whether n was inserted by error recovery.
func (n *Node) IsMissing() bool { return n.missing }

// Text returns the source text covered by n.
func (n *Node) Text() string {
	if n == nil || int(n.rng.EndByte) > len(n.src) || n.rng.StartByte > n.rng.EndByte {
		return ""
	}
	return string(n.src[n.rng.StartByte:n.rng.EndByte])
}

// Children returns the named children of n in source order.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.children {
		if c.named {
			out = append(out, c)
		}
	}
	return out
}

// AllChildren returns every child of n including anonymous tokens.
func (n *Node) AllChildren() []*Node {
	if n == nil {
		return nil
	}
	return n.children
}

// Field returns the first child labeled with the given field name, or nil.
func (n *Node) Field(name string) *Node {
	if n == nil {
		return nil
	}
	for i, f := range n.fields {
		if f == name {
			return n.children[i]
		}
	}
	return nil
}

// Fields returns every child labeled with the given field name.
func (n *Node) Fields(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for i, f := range n.fields {
		if f == name {
			out = append(out, n.children[i])
		}
	}
	return out
}

// FieldOf returns the field name under which child is attached to n.
func (n *Node) FieldOf(child *Node) string {
	for i, c := range n.children {
		if c == child {
			return n.fields[i]
		}
	}
	return ""
}

// ChildOfKind returns the first named child of one of the given kinds.
func (n *Node) ChildOfKind(kinds ...Kind) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.named && c.kind.In(kinds...) {
			return c
		}
	}
	return nil
}

// ChildrenOfKind returns every named child of one of the given kinds.
func (n *Node) ChildrenOfKind(kinds ...Kind) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.children {
		if c.named && c.kind.In(kinds...) {
			out = append(out, c)
		}
	}
	return out
}

// Token returns the first anonymous child whose text is one of the given
// tokens.  It is used to find operators and keywords.
func (n *Node) Token(tokens ...string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.named {
			continue
		}
		for _, t := range tokens {
			if string(c.kind) == t {
				return c
			}
		}
	}
	return nil
}

// NamedChild returns the i-th named child of n, or nil.
func (n *Node) NamedChild(i int) *Node {
	children := n.Children()
	if i < 0 || i >= len(children) {
		return nil
	}
	return children[i]
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s@%s", n.kind, n.rng)
}
