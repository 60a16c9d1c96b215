// Copyright © 2024 The ELPS authors

// Package parser turns PHP source into the immutable syntax tree defined by
// package ast.  Parsing is delegated to the tree-sitter PHP grammar; the
// resulting tree is copied so that no tree-sitter resources outlive a call.
package parser

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/luthersystems/phpsema/ast"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
)

// ErrNoTree is returned when the grammar produced no tree at all.  Syntax
// errors do not cause it; they are represented as error nodes.
var ErrNoTree = errors.New("parser produced no tree")

// Parser parses PHP source.  A Parser is safe for concurrent use; calls are
// serialized.
type Parser struct {
	mu sync.Mutex
	ts *tree_sitter.Parser
}

// New returns a parser configured for PHP files, including inline HTML
// around <?php tags.
func New() (*Parser, error) {
	ts := tree_sitter.NewParser()
	if err := ts.SetLanguage(tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())); err != nil {
		ts.Close()
		return nil, fmt.Errorf("php grammar: %w", err)
	}
	return &Parser{ts: ts}, nil
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ts != nil {
		p.ts.Close()
		p.ts = nil
	}
}

// Parse parses src and returns the root of its syntax tree.
func (p *Parser) Parse(src []byte) (*ast.Node, error) {
	// The tree keeps references into the buffer.
	buf := append([]byte(nil), src...)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ts == nil {
		return nil, ErrNoTree
	}
	tree := p.ts.Parse(buf, nil)
	if tree == nil {
		return nil, ErrNoTree
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, ErrNoTree
	}
	cursor := root.Walk()
	defer cursor.Close()
	return convert(cursor, buf), nil
}

// Read parses the contents of r.  The name is used in error messages.
func (p *Parser) Read(name string, r io.Reader) (*ast.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	root, err := p.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return root, nil
}

// Parse parses src with a fresh parser.
func Parse(src []byte) (*ast.Node, error) {
	p, err := New()
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.Parse(src)
}

func convert(c *tree_sitter.TreeCursor, src []byte) *ast.Node {
	n := c.Node()
	out := ast.NewNode(ast.Kind(n.Kind()), n.IsNamed(), rangeOf(n), src)
	if n.IsError() || n.IsMissing() {
		out.MarkError(n.IsMissing())
	}
	if c.GotoFirstChild() {
		for {
			field := c.FieldName()
			out.AddChild(field, convert(c, src))
			if !c.GotoNextSibling() {
				break
			}
		}
		c.GotoParent()
	}
	return out
}

func rangeOf(n *tree_sitter.Node) ast.Range {
	start, end := n.StartPosition(), n.EndPosition()
	return ast.Range{
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		Start:     ast.Point{Row: start.Row, Column: start.Column},
		End:       ast.Point{Row: end.Row, Column: end.Column},
	}
}
