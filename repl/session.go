// Copyright © 2024 The ELPS authors

package repl

import (
	"context"
	"strings"

	"github.com/luthersystems/phpsema/analysis"
	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/parser"
	"github.com/luthersystems/phpsema/symbols"
)

const (
	openTag = "<?php\n"
	// InputName is the file name issues of the REPL are reported under.
	InputName = "<input>"
)

// Session accumulates the statements entered so far.  Every input is
// analyzed together with the statements before it, so variables, functions
// and classes carry over from one input to the next.
type Session struct {
	symbols func() *symbols.Table
	src     string
	last    *analysis.Result
}

// Reply is the outcome of one input.
type Reply struct {
	// Issues found in the input.  Their ranges are relative to the input.
	Issues []issue.Issue
	// Result describes the value of an expression statement.
	Result *analysis.Description
	// Rejected is set when the input contains syntax errors.  It is not
	// added to the session.
	Rejected bool
}

// NewSession returns an empty session.  When table is not nil it is called
// for the symbol table each analysis starts from.
func NewSession(table func() *symbols.Table) *Session {
	return &Session{symbols: table, src: openTag}
}

// Source returns the statements accepted so far.
func (s *Session) Source() string {
	return s.src
}

// Reset forgets every statement.
func (s *Session) Reset() {
	s.src = openTag
	s.last = nil
}

// Vars returns the variables defined at the end of the session.
func (s *Session) Vars() []*analysis.VarData {
	if s.last == nil {
		return nil
	}
	return s.last.Scope.Vars()
}

// Symbols returns the declarations known at the end of the session.
func (s *Session) Symbols() *symbols.Table {
	if s.last == nil {
		if s.symbols != nil {
			return s.symbols()
		}
		return symbols.NewBuiltinTable()
	}
	return s.last.Symbols
}

func (s *Session) config() *analysis.Config {
	cfg := &analysis.Config{Filename: InputName}
	if s.symbols != nil {
		cfg.Symbols = s.symbols()
	}
	return cfg
}

// Eval analyzes input after the accepted statements.  A missing final
// semicolon is supplied.
func (s *Session) Eval(ctx context.Context, input string) (*Reply, error) {
	input = terminate(input)
	base := len(s.src)
	lines := strings.Count(s.src, "\n")
	src := s.src + input + "\n"

	root, err := parser.Parse([]byte(src))
	if err != nil {
		return nil, err
	}
	res, err := analysis.Analyze(ctx, root, s.config())
	if err != nil {
		return nil, err
	}
	reply := &Reply{}
	for _, i := range res.Issues {
		if int(i.Range.StartByte) < base {
			continue
		}
		if i.Kind == issue.ParseAnomaly {
			reply.Rejected = true
		}
		i.Range = rebase(i.Range, uint(base), lines)
		reply.Issues = append(reply.Issues, i)
	}
	if reply.Rejected {
		return reply, nil
	}
	prev := s.src
	s.src, s.last = src, res

	if expr, ok := expression(input); ok {
		d, err := s.describe(ctx, prev, expr)
		if err != nil {
			return nil, err
		}
		reply.Result = d
	}
	return reply, nil
}

// TypeOf describes expr evaluated after the accepted statements without
// adding it to the session.
func (s *Session) TypeOf(ctx context.Context, expr string) (*analysis.Description, error) {
	return s.describe(ctx, s.src, strings.TrimSuffix(strings.TrimSpace(expr), ";"))
}

// describe evaluates expr in parentheses after prev and looks up the
// parenthesized expression, whose fold is the value of expr.
func (s *Session) describe(ctx context.Context, prev, expr string) (*analysis.Description, error) {
	src := prev + "(" + expr + ");\n"
	root, err := parser.Parse([]byte(src))
	if err != nil {
		return nil, err
	}
	var out *analysis.Description
	_, err = analysis.LookupAt(ctx, root, uint(len(prev)), s.config(), func(n *ast.Node, st *analysis.State, path []*ast.Node) {
		if n.Kind() != ast.KindParenthesized {
			return
		}
		d := st.Describe(n, path)
		d.Subject = expr
		out = &d
	})
	return out, err
}

// expression returns the expression of input when input is a single
// expression statement.
func expression(input string) (string, bool) {
	root, err := parser.Parse([]byte(openTag + input))
	if err != nil {
		return "", false
	}
	var stmts []*ast.Node
	for _, c := range root.Children() {
		if c.Kind() != ast.KindPHPTag && c.Kind() != ast.KindComment {
			stmts = append(stmts, c)
		}
	}
	if len(stmts) != 1 || stmts[0].Kind() != ast.KindExpressionStatement {
		return "", false
	}
	expr := stmts[0].NamedChild(0)
	if expr == nil {
		return "", false
	}
	return expr.Text(), true
}

func terminate(input string) string {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasSuffix(input, ";") || strings.HasSuffix(input, "}") {
		return input
	}
	return input + ";"
}

func rebase(r ast.Range, base uint, lines int) ast.Range {
	r.StartByte -= base
	r.EndByte -= base
	r.Start.Row -= uint(lines)
	r.End.Row -= uint(lines)
	return r
}

// Complete reports whether input can be analyzed: brackets are balanced
// and no string or comment is left open.
func Complete(input string) bool {
	depth := 0
	for i := 0; i < len(input); i++ {
		switch c := input[i]; c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '\'', '"', '`':
			j := closing(input, i+1, c)
			if j < 0 {
				return false
			}
			i = j
		case '#':
			i = lineEnd(input, i)
		case '/':
			if i+1 < len(input) && input[i+1] == '/' {
				i = lineEnd(input, i)
			} else if i+1 < len(input) && input[i+1] == '*' {
				j := strings.Index(input[i+2:], "*/")
				if j < 0 {
					return false
				}
				i += j + 3
			}
		}
	}
	return depth <= 0
}

// closing returns the index of the quote ending a string opened before
// start, or -1.
func closing(s string, start int, quote byte) int {
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return -1
}

func lineEnd(s string, i int) int {
	if j := strings.IndexByte(s[i:], '\n'); j >= 0 {
		return i + j
	}
	return len(s)
}
