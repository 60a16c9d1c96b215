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
	"github.com/luthersystems/phpsema/value"
)

// reportAnomalies reports the syntax errors recovered by the parser.  The
// content of an error node is not inspected further.
func (s *State) reportAnomalies(n *ast.Node) {
	for _, c := range n.AllChildren() {
		switch {
		case c.IsMissing():
			s.report(issue.ParseAnomaly, c, func(i *issue.Issue) {
				i.Text = "missing " + c.Kind().String()
			})
		case c.IsError():
			s.report(issue.ParseAnomaly, c, func(i *issue.Issue) {
				i.Text = "syntax error near " + snippet(c.Text())
			})
		default:
			s.reportAnomalies(c)
		}
	}
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > 24 {
		return text[:24] + "..."
	}
	return text
}

// namespaceHandler is shared by all passes.  A braced namespace scopes
// the namespace name and the imported aliases to its body.
func namespaceHandler(s *State, n *ast.Node) bool {
	nameNode := n.Field("name")
	body := n.Field("body")
	if nameNode == nil && body == nil {
		if s.Pass == 1 {
			s.report(issue.ParseAnomaly, n, func(i *issue.Issue) { i.Text = "namespace without a name" })
		}
		return true
	}
	var ns names.FullyQualifiedName
	if nameNode != nil {
		ns = names.ParseFQN(astutil.NameText(nameNode))
	}
	if body == nil {
		s.enterNamespace(ns)
		return true
	}
	saved := *s
	s.enterNamespace(ns)
	ok := s.walkChildren(body)
	s.Namespace, s.UseMap = saved.Namespace, saved.UseMap
	s.funcUses, s.constUses = saved.funcUses, saved.constUses
	return ok
}

func (s *State) enterNamespace(ns names.FullyQualifiedName) {
	s.Namespace = ns
	s.UseMap = nil
	s.funcUses = nil
	s.constUses = nil
}

// useHandler records the aliases of a use declaration.  Only pass 1
// reports duplicates; later passes rebuild the same maps silently.
func useHandler(s *State, n *ast.Node) bool {
	kind := useKind(n)
	if group := n.ChildOfKind(ast.KindNamespaceUseGroup); group != nil {
		prefix := names.ParseFQN(astutil.NameText(n.ChildOfKind(ast.KindNamespaceName, ast.KindName, ast.KindQualifiedName)))
		for _, c := range group.ChildrenOfKind(ast.KindNamespaceUseClause, ast.KindNamespaceUseGroupClause) {
			s.useClause(c, prefix, kind)
		}
		return true
	}
	for _, c := range n.ChildrenOfKind(ast.KindNamespaceUseClause) {
		s.useClause(c, names.FullyQualifiedName{}, kind)
	}
	return true
}

// useKind returns "function", "const" or "" for class imports.
func useKind(n *ast.Node) string {
	if t := n.Field("type"); t != nil {
		return strings.ToLower(t.Text())
	}
	if t := n.Token("function", "const"); t != nil {
		return strings.ToLower(t.Text())
	}
	return ""
}

func (s *State) useClause(c *ast.Node, prefix names.FullyQualifiedName, kind string) {
	if k := useKind(c); k != "" {
		kind = k
	}
	target := prefix.Append(names.ParseFQN(astutil.NameText(c.ChildOfKind(ast.KindQualifiedName, ast.KindName, ast.KindNamespaceName))))
	if target.IsRoot() {
		return
	}
	alias := target.Last()
	if a := c.Field("alias"); a != nil {
		alias = names.Name(a.Text())
	} else if ac := c.ChildOfKind(ast.KindNamespaceAliasingClause); ac != nil {
		alias = names.Name(astutil.NameText(ac.ChildOfKind(ast.KindName)))
	}

	var m *map[string]names.FullyQualifiedName
	switch kind {
	case "function":
		m = &s.funcUses
	case "const":
		m = &s.constUses
	default:
		m = &s.UseMap
	}
	if *m == nil {
		*m = make(map[string]names.FullyQualifiedName)
	}
	key := alias.Lower()
	if kind == "const" {
		key = string(alias)
	}
	if _, dup := (*m)[key]; dup {
		if s.Pass == 1 {
			s.report(issue.DuplicateSymbol, c, func(i *issue.Issue) { i.Name = string(alias) })
		}
		return
	}
	(*m)[key] = target
	if kind == "" && s.Pass == 1 {
		s.Symbols.InsertAlias(s.Filename, s.Namespace, alias, target)
	}
}

func classKind(k ast.Kind) symbols.ClassKind {
	switch k {
	case ast.KindInterfaceDeclaration:
		return symbols.KindInterface
	case ast.KindTraitDeclaration:
		return symbols.KindTrait
	case ast.KindEnumDeclaration:
		return symbols.KindEnum
	}
	return symbols.KindClass
}

func hasModifier(n *ast.Node, kind ast.Kind, token string) bool {
	return n.ChildOfKind(kind) != nil || n.Token(token) != nil
}

// classNames returns the name nodes listed by a base or interface clause.
func classNames(clause *ast.Node) []*ast.Node {
	return clause.ChildrenOfKind(ast.KindName, ast.KindQualifiedName)
}

func (s *State) declareClassHandler(n *ast.Node) bool {
	nameNode := n.Field("name")
	if nameNode == nil {
		return true
	}
	fq := s.Namespace.Join(names.Name(nameNode.Text()))
	c := symbols.NewClass(fq, classKind(n.Kind()))
	c.Location = s.location(nameNode)
	c.Abstract = c.Kind == symbols.KindInterface || hasModifier(n, ast.KindAbstractModifier, "abstract")

	for _, b := range n.ChildrenOfKind(ast.KindBaseClause) {
		for _, p := range classNames(b) {
			c.Extends = append(c.Extends, s.resolver().Resolve(p.Text()))
		}
	}
	for _, b := range n.ChildrenOfKind(ast.KindClassInterfaceClause) {
		for _, p := range classNames(b) {
			c.Implements = append(c.Implements, s.resolver().Resolve(p.Text()))
		}
	}
	body := n.Field("body")
	for _, u := range body.ChildrenOfKind(ast.KindUseDeclaration) {
		for _, p := range classNames(u) {
			c.Traits = append(c.Traits, s.resolver().Resolve(p.Text()))
		}
	}

	doc := s.readDoc(docClass, nil)
	c.Doc = doc.summary
	c.Magic = doc.magic

	if _, ok := s.Symbols.InsertClass(c); !ok {
		s.report(issue.DuplicateClass, nameNode, func(i *issue.Issue) { i.Name = fq.String() })
		return true
	}
	for _, p := range doc.properties {
		c.AddProperty(p)
	}

	outer, outerTemplates := s.InClass, s.classTemplates
	s.InClass, s.classTemplates = c, doc.templates
	defer func() { s.InClass, s.classTemplates = outer, outerTemplates }()

	s.LastDoc = nil
	for _, m := range body.Children() {
		if m.Kind() == ast.KindComment {
			s.LastDoc = m
			continue
		}
		switch m.Kind() {
		case ast.KindMethodDeclaration:
			s.declareMethod(c, m)
		case ast.KindPropertyDeclaration:
			s.declareProperties(c, m)
		case ast.KindConstDeclaration:
			s.declareClassConstants(c, m)
		case ast.KindEnumCase:
			s.declareEnumCase(c, m)
		}
		s.LastDoc = nil
	}
	return true
}

func declareClassHandler(s *State, n *ast.Node) bool {
	return s.declareClassHandler(n)
}

func (s *State) declareMethod(c *symbols.ClassSymbol, n *ast.Node) {
	fn, params := s.declareFunction(n, c)
	if fn == nil {
		return
	}
	if c.Kind == symbols.KindInterface {
		fn.Abstract = true
	}
	if _, ok := c.AddMethod(fn); !ok {
		s.report(issue.DuplicateFunction, n.Field("name"), func(i *issue.Issue) { i.Name = fn.DisplayName() })
		return
	}
	for i, p := range fn.Params {
		if !p.Promoted {
			continue
		}
		c.AddProperty(&symbols.PropertySymbol{
			Name:     string(p.Name),
			Type:     p.Type,
			Default:  p.Default,
			Location: s.location(params[i]),
		})
	}
}

// propertyElements returns the name and the initializer of each property
// of a declaration.
func propertyElements(n *ast.Node) [][2]*ast.Node {
	var out [][2]*ast.Node
	for _, e := range n.ChildrenOfKind(ast.KindPropertyElement) {
		nameNode := e.Field("name")
		if nameNode == nil {
			nameNode = e.ChildOfKind(ast.KindVariableName)
		}
		init := e.Field("default_value")
		if init == nil {
			if pi := e.ChildOfKind(ast.KindPropertyInitializer); pi != nil {
				init = pi.NamedChild(0)
			}
		}
		out = append(out, [2]*ast.Node{nameNode, init})
	}
	return out
}

func (s *State) declareProperties(c *symbols.ClassSymbol, n *ast.Node) {
	doc := s.readDoc(docProperty, nil)
	var hint *types.UnionType
	if t := n.Field("type"); t != nil {
		hint = s.hintType(t)
	}
	static := hasModifier(n, ast.KindStaticModifier, "static")
	for _, el := range propertyElements(n) {
		if el[0] == nil {
			continue
		}
		name := astutil.VarName(el[0])
		typ := hint
		if typ == nil {
			typ = doc.varType
		}
		p := &symbols.PropertySymbol{
			Name:     name,
			Type:     typ,
			Static:   static,
			Location: s.location(el[0]),
			Doc:      doc.summary,
		}
		if _, ok := c.AddProperty(p); !ok {
			s.report(issue.DuplicateDeclaration, el[0], func(i *issue.Issue) {
				i.Text = "property " + c.Name.String() + "::$" + name
			})
		}
	}
}

// constElements returns the name and the value of each element of a
// const declaration.
func constElements(n *ast.Node) [][2]*ast.Node {
	var out [][2]*ast.Node
	for _, e := range n.ChildrenOfKind(ast.KindConstElement) {
		kids := e.Children()
		if len(kids) == 0 {
			continue
		}
		init := e.Field("value")
		if init == nil && len(kids) > 1 {
			init = kids[len(kids)-1]
		}
		out = append(out, [2]*ast.Node{kids[0], init})
	}
	return out
}

func (s *State) declareClassConstants(c *symbols.ClassSymbol, n *ast.Node) {
	doc := s.readDoc(docConstant, nil)
	for _, el := range constElements(n) {
		name := el[0].Text()
		k := &symbols.ConstantSymbol{
			Name:     c.Name.Join(names.Name(name)),
			Location: s.location(el[0]),
			Doc:      doc.summary,
			Init:     el[1],
		}
		if _, ok := c.AddConstant(k); !ok {
			s.report(issue.DuplicateClassConstant, el[0], func(i *issue.Issue) {
				i.Name = name
				i.Class = c.Name.String()
			})
		}
	}
}

// declareEnumCase declares a case as a constant holding an instance of
// the enum.
func (s *State) declareEnumCase(c *symbols.ClassSymbol, n *ast.Node) {
	nameNode := n.Field("name")
	if nameNode == nil {
		nameNode = n.ChildOfKind(ast.KindName)
	}
	if nameNode == nil {
		return
	}
	name := nameNode.Text()
	k := &symbols.ConstantSymbol{
		Name:     c.Name.Join(names.Name(name)),
		Value:    value.Object(c.Name),
		Type:     types.New(types.Object(c.Name)),
		Location: s.location(nameNode),
	}
	if _, ok := c.AddConstant(k); !ok {
		s.report(issue.DuplicateClassConstant, nameNode, func(i *issue.Issue) {
			i.Name = name
			i.Class = c.Name.String()
		})
	}
}

func declareFunctionHandler(s *State, n *ast.Node) bool {
	fn, _ := s.declareFunction(n, nil)
	if fn == nil {
		return true
	}
	if _, ok := s.Symbols.InsertFunction(fn); !ok {
		s.report(issue.DuplicateFunction, n.Field("name"), func(i *issue.Issue) { i.Name = fn.Name.String() })
		return true
	}
	// Declarations nested in the body exist once the function ran.
	ok := true
	if body := n.Field("body"); body != nil {
		s.conditionally(func() { ok = s.walkChildren(body) })
	}
	return ok
}

// declareFunction builds the symbol of a function or method declaration.
// It returns the parameter nodes along with it.
func (s *State) declareFunction(n *ast.Node, class *symbols.ClassSymbol) (*symbols.FunctionSymbol, []*ast.Node) {
	nameNode := n.Field("name")
	if nameNode == nil {
		return nil, nil
	}
	name := names.Name(nameNode.Text())
	fq := s.Namespace.Join(name)
	if class != nil {
		fq = class.Name.Join(name)
	}
	fn := &symbols.FunctionSymbol{
		Name:     fq,
		Location: s.location(nameNode),
		Static:   hasModifier(n, ast.KindStaticModifier, "static"),
		Abstract: hasModifier(n, ast.KindAbstractModifier, "abstract"),
	}
	var paramNodes []*ast.Node
	fn.Params, paramNodes = s.declareParams(n.Field("parameters"))
	if rt := n.Field("return_type"); rt != nil {
		fn.ReturnType = s.hintType(rt)
	}
	fn.Doc = s.readDoc(docFunction, fn).summary
	return fn, paramNodes
}

// declareParams builds the parameters of a formal parameter list.
func (s *State) declareParams(list *ast.Node) ([]symbols.Param, []*ast.Node) {
	var params []symbols.Param
	var nodes []*ast.Node
	for _, p := range list.ChildrenOfKind(ast.KindSimpleParameter, ast.KindVariadicParameter, ast.KindPromotionParameter) {
		nameNode := p.Field("name")
		name := astutil.VarName(nameNode)
		if name == "" && nameNode != nil {
			name = astutil.VarName(nameNode.ChildOfKind(ast.KindVariableName))
		}
		if name == "" {
			continue
		}
		param := symbols.Param{
			Name:     names.Name(name),
			Variadic: p.Kind() == ast.KindVariadicParameter,
			ByRef:    p.ChildOfKind(ast.KindReferenceModifier) != nil || p.Token("&") != nil,
			Promoted: p.Kind() == ast.KindPromotionParameter,
		}
		param.Optional = param.Variadic
		if t := p.Field("type"); t != nil {
			param.Type = s.hintType(t)
		}
		if d := p.Field("default_value"); d != nil {
			param.Optional = true
			op := s.fold(d)
			param.Default = op.Value
			if op.Value != nil && op.Value.Kind == value.KindNull && param.Type != nil {
				param.Type = types.Union(param.Type, types.New(types.Null))
			}
		}
		params = append(params, param)
		nodes = append(nodes, p)
	}
	return params, nodes
}

// hintType parses a declared type.  Unparsable hints, which the grammar
// should have rejected, are unknown.
func (s *State) hintType(n *ast.Node) *types.UnionType {
	t, err := s.parseType(n.Text(), nil, n.Range())
	if err != nil {
		s.debug(n, "unparsable type hint")
		return nil
	}
	return t
}

func declareConstHandler(s *State, n *ast.Node) bool {
	doc := s.readDoc(docConstant, nil)
	for _, el := range constElements(n) {
		fq := s.Namespace.Join(names.Name(el[0].Text()))
		k := &symbols.ConstantSymbol{
			Name:        fq,
			Location:    s.location(el[0]),
			Doc:         doc.summary,
			Conditional: s.InConditional > 0,
			Init:        el[1],
		}
		if _, ok := s.Symbols.InsertConstant(k); !ok {
			s.report(issue.DuplicateConstant, el[0], func(i *issue.Issue) { i.Name = fq.String() })
		}
	}
	return true
}

// defineCall recognizes define('NAME', value) and returns the name
// argument, the constant name and the value expression.
func (s *State) defineCall(n *ast.Node) (*ast.Node, names.FullyQualifiedName, *ast.Node, bool) {
	fnNode := n.Field("function")
	if fnNode == nil || !fnNode.Kind().In(ast.KindName, ast.KindQualifiedName) {
		return nil, names.FullyQualifiedName{}, nil, false
	}
	if !strings.EqualFold(strings.TrimPrefix(astutil.NameText(fnNode), `\`), "define") {
		return nil, names.FullyQualifiedName{}, nil, false
	}
	args := callArguments(n)
	if len(args) < 2 || args[0].spread || args[1].spread {
		return nil, names.FullyQualifiedName{}, nil, false
	}
	str, ok := stringLiteral(args[0].expr)
	if !ok || str == "" {
		return nil, names.FullyQualifiedName{}, nil, false
	}
	return args[0].expr, names.ParseFQN(str), args[1].expr, true
}

func declareDefineHandler(s *State, n *ast.Node) bool {
	nameNode, fq, init, ok := s.defineCall(n)
	if ok {
		k := &symbols.ConstantSymbol{
			Name:        fq,
			Location:    s.location(nameNode),
			Conditional: s.InConditional > 0,
			Init:        init,
		}
		if _, ok := s.Symbols.InsertConstant(k); !ok {
			s.report(issue.DuplicateConstant, nameNode, func(i *issue.Issue) { i.Name = fq.String() })
		}
	}
	return s.walkChildren(n)
}
