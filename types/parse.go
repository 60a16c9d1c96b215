// Copyright © 2024 The ELPS authors

package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luthersystems/phpsema/names"
	parsec "github.com/prataprc/goparsec"
)

// ErrSyntax is returned (wrapped) when a type string cannot be parsed.
var ErrSyntax = errors.New("invalid type syntax")

// typeExpr is the parse tree of a type string before names are resolved.
type typeExpr struct {
	name     string
	literal  string // quoted string or integer literal type
	nullable bool
	array    int // number of trailing [] suffixes
	members  []*typeExpr // set for unions and parenthesized groups
}

// Parse parses a type string written in a declaration hint or a doc
// comment, such as "?Foo", "int|string[]" or "array<string, Bar>".  Class
// names are resolved with r; self and static resolve to self.  Types with
// no discrete representation, like mixed or callable, make the whole
// result unknown (nil) without an error.
func Parse(text string, r *names.Resolver, self names.FullyQualifiedName) (*UnionType, error) {
	src := strings.TrimSpace(stripShapes(text))
	if src == "" {
		return nil, fmt.Errorf("%w: empty type", ErrSyntax)
	}
	s := parsec.NewScanner([]byte(src))
	root, s := newTypeParser()(s)
	_, s = s.SkipWS()
	if root == nil || !s.Endof() || strings.HasSuffix(src, "|") || strings.HasSuffix(src, "&") {
		return nil, fmt.Errorf("%w: %q at offset %d", ErrSyntax, text, s.GetCursor())
	}
	expr, ok := root.(*typeExpr)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSyntax, text)
	}
	return expr.resolve(r, self), nil
}

func newTypeParser() parsec.Parser {
	pipe := parsec.Atom("|", "PIPE")
	amp := parsec.Atom("&", "AMP")
	question := parsec.Atom("?", "QUESTION")
	openP := parsec.Atom("(", "OPENP")
	closeP := parsec.Atom(")", "CLOSEP")
	openA := parsec.Atom("<", "OPENA")
	closeA := parsec.Atom(">", "CLOSEA")
	comma := parsec.Atom(",", "COMMA")
	brackets := parsec.Atom("[]", "BRACKETS")
	this := parsec.Atom("$this", "THIS")
	name := parsec.Token(`\\?[\pL_][\pL\pN_\\-]*`, "NAME")
	intLit := parsec.Token(`-?[0-9]+`, "INT")
	strLit := parsec.Token(`(?:'[^']*'|"[^"]*")`, "STRING")

	var union parsec.Parser // forward declaration for nested types
	args := parsec.Many(nil, &union, comma)
	generic := parsec.And(nil, openA, args, closeA)
	suffix := parsec.Kleene(nil, brackets)
	named := parsec.And(namedNode, parsec.OrdChoice(nil, this, name), parsec.Maybe(nil, generic), suffix)
	group := parsec.And(groupNode, openP, &union, closeP, suffix)
	literal := parsec.OrdChoice(literalNode, intLit, strLit)
	atom := parsec.OrdChoice(nil, group, literal, named)
	nullable := parsec.And(nullableNode, question, atom)
	single := parsec.OrdChoice(nil, nullable, atom)
	union = parsec.Many(unionNode, single, parsec.OrdChoice(nil, pipe, amp))
	return union
}

func namedNode(nodes []parsec.ParsecNode) parsec.ParsecNode {
	term, ok := nodes[0].(*parsec.Terminal)
	if !ok {
		return nil
	}
	// Generic arguments are accepted but do not refine the discrete type.
	return &typeExpr{name: term.GetValue(), array: countSuffix(nodes[2])}
}

func groupNode(nodes []parsec.ParsecNode) parsec.ParsecNode {
	inner, ok := nodes[1].(*typeExpr)
	if !ok {
		return nil
	}
	return &typeExpr{members: []*typeExpr{inner}, array: countSuffix(nodes[3])}
}

func literalNode(nodes []parsec.ParsecNode) parsec.ParsecNode {
	term, ok := nodes[0].(*parsec.Terminal)
	if !ok {
		return nil
	}
	return &typeExpr{literal: term.GetValue()}
}

func nullableNode(nodes []parsec.ParsecNode) parsec.ParsecNode {
	inner, ok := nodes[1].(*typeExpr)
	if !ok {
		return nil
	}
	return &typeExpr{members: []*typeExpr{inner}, nullable: true}
}

func unionNode(nodes []parsec.ParsecNode) parsec.ParsecNode {
	members := collectExprs(nodes)
	if len(members) == 1 {
		return members[0]
	}
	return &typeExpr{members: members}
}

func collectExprs(nodes []parsec.ParsecNode) []*typeExpr {
	var out []*typeExpr
	for _, n := range nodes {
		if e, ok := n.(*typeExpr); ok {
			out = append(out, e)
		}
	}
	return out
}

func countSuffix(n parsec.ParsecNode) int {
	if ns, ok := n.([]parsec.ParsecNode); ok {
		return len(ns)
	}
	return 0
}

func (e *typeExpr) resolve(r *names.Resolver, self names.FullyQualifiedName) *UnionType {
	if e.array > 0 {
		return New(Array)
	}
	if e.literal != "" {
		if strings.ContainsAny(e.literal[:1], `'"`) {
			return New(String)
		}
		return New(Int)
	}
	if e.members != nil {
		parts := make([]*UnionType, 0, len(e.members)+1)
		for _, m := range e.members {
			parts = append(parts, m.resolve(r, self))
		}
		if e.nullable {
			parts = append(parts, New(Null))
		}
		return Union(parts...)
	}
	return resolveName(e.name, r, self)
}

func resolveName(name string, r *names.Resolver, self names.FullyQualifiedName) *UnionType {
	switch strings.ToLower(name) {
	case "int", "integer", "positive-int", "negative-int", "non-negative-int", "non-positive-int":
		return New(Int)
	case "float", "double":
		return New(Float)
	case "string", "non-empty-string", "class-string", "numeric-string", "lowercase-string":
		return New(String)
	case "bool", "boolean", "true", "false":
		return New(Bool)
	case "null", "void":
		return New(Null)
	case "never", "no-return", "noreturn":
		return Never()
	case "array", "list", "non-empty-array", "non-empty-list", "iterable":
		return New(Array)
	case "object":
		return New(AnyObject)
	case "self", "static", "$this":
		return New(Object(self))
	case "scalar":
		return New(Bool, Int, Float, String)
	case "numeric":
		return New(Int, Float)
	case "array-key":
		return New(Int, String)
	case "mixed", "callable", "resource", "closed-resource", "callable-string":
		return nil
	}
	return New(Object(r.Resolve(name)))
}

// stripShapes removes the bodies of array and object shapes, e.g.
// "array{a: int}" becomes "array", since shapes carry no discrete type
// information beyond the container kind.
func stripShapes(s string) string {
	if !strings.Contains(s, "{") {
		return s
	}
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '{':
			depth++
		case r == '}':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
