// Copyright © 2024 The ELPS authors

package analysis

import (
	"strings"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/astutil"
	"github.com/luthersystems/phpsema/symbols"
	"github.com/luthersystems/phpsema/types"
	"github.com/luthersystems/phpsema/value"
)

// Description is what is known about the node found by a lookup.
type Description struct {
	// Subject is the node as it is shown to the user: a variable name,
	// a declaration signature or an expression.
	Subject string
	Type    *types.UnionType
	Value   *value.Value
	Doc     string
	// Location is set for user declarations.
	Location symbols.Location
	// Known is false when nothing beyond the subject could be determined.
	Known bool
}

// String renders d on one or two lines, followed by the doc comment.
func (d Description) String() string {
	var b strings.Builder
	b.WriteString(d.Subject)
	if d.Type != nil {
		b.WriteString(": ")
		b.WriteString(d.Type.String())
	}
	if d.Value != nil {
		b.WriteString(" = ")
		b.WriteString(d.Value.String())
	}
	if d.Doc != "" {
		b.WriteString("\n\n")
		b.WriteString(d.Doc)
	}
	return b.String()
}

// Describe reports what is known about n at the current point of the flow.
// It is meant to be called from a lookup callback with the ancestors the
// callback was given.
func (s *State) Describe(n *ast.Node, path []*ast.Node) Description {
	var parent *ast.Node
	if len(path) > 0 {
		parent = path[len(path)-1]
	}
	switch n.Kind() {
	case ast.KindVariableName:
		return s.describeVar(n)
	case ast.KindName, ast.KindQualifiedName, ast.KindRelativeScope:
		if d, ok := s.describeName(n, parent); ok {
			return d
		}
	}
	d := Description{Subject: subjectText(n)}
	if s.evaluated == n {
		d.Type, d.Value = s.result.Type, s.result.Value
		d.Known = d.Type != nil || d.Value != nil
	}
	return d
}

func (s *State) describeVar(n *ast.Node) Description {
	name := astutil.VarName(n)
	d := Description{Subject: "$" + name}
	if v, ok := s.Scope().Lookup(name); ok {
		d.Type, d.Value, d.Known = v.EffectiveType(), v.Value, true
		return d
	}
	if name == "this" && s.InFunction != nil && s.InFunction.This != nil {
		d.Type, d.Known = s.InFunction.This, true
		return d
	}
	if s.evaluated == n {
		d.Type, d.Value = s.result.Type, s.result.Value
		d.Known = d.Type != nil || d.Value != nil
	}
	return d
}

func (s *State) describeName(n, parent *ast.Node) (Description, bool) {
	text := astutil.NameText(n)
	if parent != nil {
		switch parent.Kind() {
		case ast.KindFunctionCall:
			if parent.Field("function") == n {
				if fn, ok := s.resolveFunction(text); ok {
					return describeFunction(fn), true
				}
				return Description{}, false
			}
		case ast.KindMemberCall, ast.KindNullsafeMemberCall:
			if parent.Field("name") == n {
				return s.describeMethod(s.objectType(parent.Field("object")), text)
			}
		case ast.KindScopedCall:
			if parent.Field("name") == n {
				if c, ok := s.scopeClass(parent.Field("scope")); ok {
					return s.describeMethod(types.New(types.Object(c.Name)), text)
				}
				return Description{}, false
			}
		case ast.KindClassConstantAccess:
			kids := parent.Children()
			if len(kids) > 1 && kids[len(kids)-1] == n {
				c, ok := s.scopeClass(kids[0])
				if !ok {
					return Description{}, false
				}
				if k, ok := s.Symbols.FindClassConstant(c.Name, text); ok {
					return describeConstant(c.Name.String()+"::"+text, k), true
				}
				return Description{}, false
			}
		}
	}
	if classContext(n, parent) {
		if c, ok := s.scopeClass(n); ok {
			return describeClass(c), true
		}
		return Description{}, false
	}
	if k, ok := s.resolveConstant(text); ok {
		return describeConstant(k.Name.String(), k), true
	}
	if c, ok := s.scopeClass(n); ok {
		return describeClass(c), true
	}
	return Description{}, false
}

// classContext reports whether the name n can only refer to a class.
func classContext(n, parent *ast.Node) bool {
	if n.Kind() == ast.KindRelativeScope || parent == nil {
		return n.Kind() == ast.KindRelativeScope
	}
	switch parent.Kind() {
	case ast.KindObjectCreation, ast.KindNamedType, ast.KindOptionalType,
		ast.KindUnionType, ast.KindTypeList, ast.KindBaseClause,
		ast.KindClassInterfaceClause, ast.KindUseDeclaration:
		return true
	case ast.KindScopedCall, ast.KindScopedPropertyAccess, ast.KindClassConstantAccess:
		return parent.NamedChild(0) == n
	}
	return false
}

// objectType returns the type of the object of a member access without
// evaluating it again.
func (s *State) objectType(obj *ast.Node) *types.UnionType {
	if s.evaluated == obj && s.result.Type != nil {
		return s.result.Type
	}
	if astutil.VarName(obj) == "this" && s.InFunction != nil && s.InFunction.This != nil {
		return s.InFunction.This
	}
	return s.peekType(obj)
}

// scopeClass resolves a class name without reporting unknown classes.
func (s *State) scopeClass(n *ast.Node) (*symbols.ClassSymbol, bool) {
	if n == nil || !n.Kind().In(ast.KindName, ast.KindQualifiedName, ast.KindRelativeScope) {
		return nil, false
	}
	fq, ok := s.resolveClass(astutil.NameText(n))
	if !ok {
		return nil, false
	}
	return s.Symbols.Class(fq)
}

func (s *State) describeMethod(t *types.UnionType, method string) (Description, bool) {
	for _, d := range t.Types() {
		if d.Kind != types.KindObject || d.Class.IsRoot() {
			continue
		}
		if fn, ok := s.Symbols.FindMethod(d.Class, method); ok {
			return describeFunction(fn), true
		}
	}
	return Description{}, false
}

func describeFunction(fn *symbols.FunctionSymbol) Description {
	return Description{
		Subject:  fn.Signature(),
		Doc:      fn.Doc,
		Location: fn.Location,
		Known:    true,
	}
}

func describeClass(c *symbols.ClassSymbol) Description {
	subject := c.Kind.String() + " " + c.Name.String()
	if c.Abstract {
		subject = "abstract " + subject
	}
	return Description{
		Subject:  subject,
		Doc:      c.Doc,
		Location: c.Location,
		Known:    true,
	}
}

func describeConstant(name string, k *symbols.ConstantSymbol) Description {
	return Description{
		Subject:  "const " + name,
		Type:     k.Type,
		Value:    k.Value,
		Doc:      k.Doc,
		Location: k.Location,
		Known:    true,
	}
}

// subjectText returns the first line of the source of n, shortened for
// display.
func subjectText(n *ast.Node) string {
	text := strings.TrimSpace(n.Text())
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = strings.TrimSpace(text[:i]) + " ..."
	}
	if len(text) > 60 {
		text = text[:57] + "..."
	}
	return text
}
