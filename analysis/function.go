// Copyright © 2024 The ELPS authors

package analysis

import (
	"strings"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/astutil"
	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/names"
	"github.com/luthersystems/phpsema/symbols"
	"github.com/luthersystems/phpsema/types"
)

var closureClass = names.FQN("Closure")

// enterFunction runs fn with fs as the current function.
func (s *State) enterFunction(fs *FunctionState, n *ast.Node, fn func()) {
	outer, doc := s.InFunction, s.LastDoc
	s.InFunction, s.LastDoc = fs, nil
	s.path = append(s.path, n)
	defer func() {
		s.path = s.path[:len(s.path)-1]
		s.InFunction, s.LastDoc = outer, doc
	}()
	fn()
}

// analyzeFunction walks the body of a function or method declared at n.
func (s *State) analyzeFunction(fn *symbols.FunctionSymbol, n *ast.Node, doc *ast.Node) {
	fs := &FunctionState{
		Symbol:    fn,
		Scopes:    []*Scope{NewScope()},
		Templates: s.docTemplates(doc),
	}
	if fn.Class != nil && !fn.Static {
		fs.This = types.New(types.Object(fn.Class.Name))
	}
	s.enterFunction(fs, n, func() {
		s.bindParams(fn.Params, n.Field("parameters"))
		s.referTypes(n.Field("return_type"))
		if body := n.Field("body"); body != nil {
			s.conditionally(func() { s.walkChildren(body) })
		}
		if !s.halted {
			s.reportUnused(fs)
		}
	})
}

// bindParams binds the parameters of the current function.  Defaults are
// evaluated so that the constants they name are resolved.
func (s *State) bindParams(params []symbols.Param, list *ast.Node) {
	nodes := list.ChildrenOfKind(ast.KindSimpleParameter, ast.KindVariadicParameter, ast.KindPromotionParameter)
	for _, p := range nodes {
		nameNode := p.Field("name")
		if nameNode != nil && nameNode.Kind() != ast.KindVariableName {
			nameNode = nameNode.ChildOfKind(ast.KindVariableName)
		}
		name := astutil.VarName(nameNode)
		if name == "" {
			continue
		}
		s.referTypes(p.Field("type"))
		if d := p.Field("default_value"); d != nil {
			s.eval(d)
		}
		v := &VarData{
			Name:    name,
			IsParam: true,
			Usage:   &Usage{Writes: 1, First: nameNode.Range()},
		}
		for _, param := range params {
			if string(param.Name) != name {
				continue
			}
			v.Type, v.Declared = param.Type, param.Type
			if param.Variadic {
				v.Type = types.New(types.Array)
			}
		}
		s.Scope().Bind(v)
		s.touch(nameNode)
	}
}

// referTypes records the classes named by a type hint.
func (s *State) referTypes(hint *ast.Node) {
	if hint == nil {
		return
	}
	astutil.WalkKind(hint, func(n *ast.Node, _ int) {
		if n.ChildOfKind(ast.KindName, ast.KindQualifiedName) != nil {
			return
		}
		if fq, ok := s.resolveClass(astutil.NameText(n)); ok {
			if c, found := s.Symbols.Class(fq); found {
				s.refer(RefClass, n, c.Name.String(), c.Location)
			}
		}
	}, ast.KindNamedType, ast.KindName, ast.KindQualifiedName)
	s.touch(hint)
}

// closureParams declares the parameters of an anonymous function.
func (s *State) closureParams(n *ast.Node) []symbols.Param {
	var params []symbols.Param
	s.quietly(func() { params, _ = s.declareParams(n.Field("parameters")) })
	return params
}

func evalClosure(s *State, n *ast.Node) operand {
	outer := s.InFunction
	captured := s.captureUses(n.ChildOfKind(ast.KindAnonymousFunctionUse))
	fs := &FunctionState{Scopes: []*Scope{NewScope()}}
	if outer != nil {
		fs.Templates = outer.Templates
		if !hasModifier(n, ast.KindStaticModifier, "static") {
			fs.This = outer.This
		}
	}
	params := s.closureParams(n)
	s.enterFunction(fs, n, func() {
		for _, v := range captured {
			s.Scope().Bind(v)
		}
		s.bindParams(params, n.Field("parameters"))
		s.referTypes(n.Field("return_type"))
		if body := n.Field("body"); body != nil {
			s.conditionally(func() { s.walkChildren(body) })
		}
		if !s.halted {
			s.reportUnused(fs)
		}
	})
	return typed(types.Object(closureClass))
}

// captureUses evaluates the use clause of a closure in the enclosing
// scope.  Variables captured by reference are created when missing and
// share their usage with the enclosing variable.
func (s *State) captureUses(clause *ast.Node) []*VarData {
	var out []*VarData
	for _, c := range clause.Children() {
		byRef := c.Kind() == ast.KindByRef
		target := c
		if byRef {
			target = c.NamedChild(0)
		}
		name := astutil.VarName(target)
		if name == "" {
			continue
		}
		var op operand
		if byRef {
			s.probe(func() { op = s.eval(target) })
			if _, ok := s.Scope().Lookup(name); !ok {
				s.bindVar(target, name, operand{})
			}
		} else {
			op = s.eval(target)
		}
		v := &VarData{
			Name:    name,
			Type:    op.Type,
			Value:   op.Value,
			IsParam: true,
			Usage:   &Usage{Writes: 1, First: target.Range()},
		}
		if outer, ok := s.Scope().Lookup(name); ok && byRef {
			v.Usage = outer.Usage
			v.Declared = outer.Declared
		}
		out = append(out, v)
		s.touch(c)
	}
	return out
}

// evalArrowFunction evaluates fn(...) => expr.  The body sees the
// enclosing scope by value, so nothing it binds leaks out.
func evalArrowFunction(s *State, n *ast.Node) operand {
	outer := s.InFunction
	fs := &FunctionState{Scopes: []*Scope{s.Scope().Branch()}}
	if outer != nil {
		fs.Templates, fs.dynamic = outer.Templates, outer.dynamic
		if !hasModifier(n, ast.KindStaticModifier, "static") {
			fs.This = outer.This
		}
	}
	params := s.closureParams(n)
	s.enterFunction(fs, n, func() {
		s.bindParams(params, n.Field("parameters"))
		s.referTypes(n.Field("return_type"))
		if body := n.Field("body"); body != nil {
			fs.Returns = append(fs.Returns, s.eval(body).Type)
		}
	})
	return typed(types.Object(closureClass))
}

// reportUnused reports the variables of fs that were written but never
// read.  Functions which may bind variables dynamically are not checked.
func (s *State) reportUnused(fs *FunctionState) {
	if fs.dynamic {
		return
	}
	for _, v := range fs.Scopes[0].Vars() {
		u := v.Usage
		if v.IsParam || u == nil || u.Reads > 0 || u.Writes == 0 || strings.HasPrefix(v.Name, "_") {
			continue
		}
		name := v.Name
		s.reportAt(issue.UnusedVariable, u.First, func(i *issue.Issue) { i.Name = name })
	}
}
