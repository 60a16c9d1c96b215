// Copyright © 2024 The ELPS authors

package analysis

import (
	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/astutil"
	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/names"
	"github.com/luthersystems/phpsema/symbols"
)

// fold evaluates a constant initializer without reporting anything.
func (s *State) fold(n *ast.Node) operand {
	var op operand
	s.quietly(func() { op = s.eval(n) })
	return op
}

func resolveClassHandler(s *State, n *ast.Node) bool {
	nameNode := n.Field("name")
	if nameNode == nil {
		return true
	}
	c, ok := s.Symbols.Class(s.Namespace.Join(names.Name(nameNode.Text())))
	if !ok || !s.declaredHere(c.Location, nameNode) {
		return true
	}
	body := n.Field("body")
	if s.finalResolve {
		var parents []*ast.Node
		for _, b := range n.ChildrenOfKind(ast.KindBaseClause, ast.KindClassInterfaceClause) {
			parents = append(parents, classNames(b)...)
		}
		for _, u := range body.ChildrenOfKind(ast.KindUseDeclaration) {
			parents = append(parents, classNames(u)...)
		}
		for _, p := range parents {
			fq := s.resolver().Resolve(p.Text())
			if _, ok := s.Symbols.Class(fq); !ok {
				s.report(issue.UnknownClass, p, func(i *issue.Issue) { i.Name = fq.String() })
			}
		}
	}

	outer := s.InClass
	s.InClass = c
	defer func() { s.InClass = outer }()
	for _, m := range body.Children() {
		switch m.Kind() {
		case ast.KindConstDeclaration:
			for _, el := range constElements(m) {
				k, ok := c.Constants[el[0].Text()]
				if ok && k.Init != nil && s.declaredHere(k.Location, el[0]) {
					op := s.fold(k.Init)
					s.Symbols.SetConstantValue(k, op.Value, op.Type)
				}
			}
		case ast.KindPropertyDeclaration:
			for _, el := range propertyElements(m) {
				if el[0] == nil || el[1] == nil {
					continue
				}
				p, ok := c.Properties[astutil.VarName(el[0])]
				if ok && s.declaredHere(p.Location, el[0]) {
					p.Default = s.fold(el[1]).Value
				}
			}
		case ast.KindMethodDeclaration:
			if fn, ok := c.Methods[names.Name(m.Field("name").Text()).Lower()]; ok && fn.Class == c {
				s.refoldDefaults(fn, m)
			}
		}
	}
	return true
}

// refoldDefaults folds parameter defaults again now that constants may
// have values.
func (s *State) refoldDefaults(fn *symbols.FunctionSymbol, n *ast.Node) {
	if n.Field("name") == nil || !s.declaredHere(fn.Location, n.Field("name")) {
		return
	}
	params := n.Field("parameters").ChildrenOfKind(ast.KindSimpleParameter, ast.KindPromotionParameter)
	for _, p := range params {
		d := p.Field("default_value")
		if d == nil {
			continue
		}
		name := astutil.VarName(p.Field("name"))
		for i := range fn.Params {
			if string(fn.Params[i].Name) == name {
				fn.Params[i].Default = s.fold(d).Value
			}
		}
	}
}

func resolveFunctionHandler(s *State, n *ast.Node) bool {
	nameNode := n.Field("name")
	if nameNode == nil {
		return true
	}
	if fn, ok := s.Symbols.Function(s.Namespace.Join(names.Name(nameNode.Text()))); ok {
		s.refoldDefaults(fn, n)
	}
	return s.walkChildren(n)
}

func resolveConstHandler(s *State, n *ast.Node) bool {
	for _, el := range constElements(n) {
		k, ok := s.Symbols.Constant(s.Namespace.Join(names.Name(el[0].Text())))
		if !ok || k.Init == nil || !s.declaredHere(k.Location, el[0]) {
			continue
		}
		op := s.fold(k.Init)
		s.Symbols.SetConstantValue(k, op.Value, op.Type)
	}
	return true
}

func resolveDefineHandler(s *State, n *ast.Node) bool {
	nameNode, fq, init, ok := s.defineCall(n)
	if ok {
		if k, found := s.Symbols.Constant(fq); found && s.declaredHere(k.Location, nameNode) {
			op := s.fold(init)
			s.Symbols.SetConstantValue(k, op.Value, op.Type)
		}
	}
	return s.walkChildren(n)
}

// checkTypeRefs reports the classes named by hints and doc comments that
// were never declared.
func (s *State) checkTypeRefs() {
	type key struct {
		start uint
		class string
	}
	seen := make(map[key]bool)
	for _, r := range s.typeRefs {
		k := key{r.rng.StartByte, r.class.Key()}
		if seen[k] {
			continue
		}
		seen[k] = true
		if _, ok := s.Symbols.Class(r.class); !ok {
			class := r.class
			s.reportAt(issue.UnknownType, r.rng, func(i *issue.Issue) { i.Name = class.String() })
		}
	}
}
