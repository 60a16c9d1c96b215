// Copyright © 2024 The ELPS authors

package analysis

import (
	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/astutil"
	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/names"
	"github.com/luthersystems/phpsema/types"
)

// conditional wraps a flow handler so declarations below it count as
// conditional.
func conditional(h handler) handler {
	return func(s *State, n *ast.Node) bool {
		ok := true
		s.conditionally(func() { ok = h(s, n) })
		return ok
	}
}

// walkBody visits the body of a control structure.  A nil body is empty.
func (s *State) walkBody(n *ast.Node) bool {
	if n == nil {
		return true
	}
	return s.visit(n) && !s.serviceLookup(n)
}

// statementExprs returns the named children of n which are not comments.
func statementExprs(n *ast.Node) []*ast.Node {
	var out []*ast.Node
	for _, c := range n.Children() {
		if c.Kind() != ast.KindComment {
			out = append(out, c)
		}
	}
	return out
}

func expressionStatementHandler(s *State, n *ast.Node) bool {
	docs := s.inlineVars(s.LastDoc)
	for _, c := range statementExprs(n) {
		s.eval(c)
	}
	for name, t := range docs {
		if v, ok := s.Scope().Lookup(name); ok {
			d := v.clone()
			d.Declared = t
			s.Scope().Bind(d)
		}
	}
	return !s.halted
}

func returnHandler(s *State, n *ast.Node) bool {
	var t *types.UnionType
	if exprs := statementExprs(n); len(exprs) > 0 {
		t = s.eval(exprs[0]).Type
	} else {
		t = types.New(types.Null)
	}
	if s.InFunction != nil {
		s.InFunction.Returns = append(s.InFunction.Returns, t)
	}
	s.Scope().terminated = true
	return !s.halted
}

func jumpHandler(s *State, n *ast.Node) bool {
	for _, c := range statementExprs(n) {
		s.eval(c)
	}
	s.Scope().jumped = true
	return !s.halted
}

func exitHandler(s *State, n *ast.Node) bool {
	for _, c := range statementExprs(n) {
		s.eval(c)
	}
	s.Scope().terminated = true
	return !s.halted
}

type ifClause struct {
	cond, body *ast.Node
}

func ifClauses(n *ast.Node) []ifClause {
	clauses := []ifClause{{cond: n.Field("condition"), body: n.Field("body")}}
	for _, alt := range n.Fields("alternative") {
		switch alt.Kind() {
		case ast.KindElseIfClause:
			clauses = append(clauses, ifClause{cond: alt.Field("condition"), body: alt.Field("body")})
		case ast.KindElseClause:
			body := alt.Field("body")
			if body == nil {
				body = alt.NamedChild(0)
			}
			clauses = append(clauses, ifClause{body: body})
		}
	}
	return clauses
}

// ifHandler analyzes if/elseif/else.  Each condition is evaluated in the
// scope where every earlier condition was false.  Clauses whose condition
// is known to be false, and clauses after one known to be true, are
// unreachable.
func ifHandler(s *State, n *ast.Node) bool {
	cur := s.Scope()
	scope := cur
	var branches []*Scope
	decided, hasElse := false, false
	for _, cl := range ifClauses(n) {
		if decided {
			if cl.body != nil {
				s.report(issue.UnreachableCode, cl.body, nil)
			}
			continue
		}
		if cl.cond == nil {
			hasElse = true
			b := scope
			if b == cur {
				b = cur.Branch()
			}
			ok := true
			s.within(b, func() { ok = s.walkBody(cl.body) })
			branches = append(branches, b)
			if !ok {
				return false
			}
			continue
		}
		var c operand
		s.within(scope, func() { c = s.eval(cl.cond) })
		if s.halted {
			return false
		}
		cb := c.Value.AsBool()
		if cb != nil && !cb.Bool {
			if cl.body != nil {
				s.report(issue.UnreachableCode, cl.body, nil)
			}
			continue
		}
		b := s.BranchWithHardenedTypes(scope, cl.cond, TrueBranch)
		ok := true
		s.within(b, func() { ok = s.walkBody(cl.body) })
		branches = append(branches, b)
		if !ok {
			return false
		}
		if cb != nil {
			decided = true
			continue
		}
		scope = s.BranchWithHardenedTypes(scope, cl.cond, FalseBranch)
	}
	if !decided && !hasElse {
		if scope == cur {
			scope = cur.Branch()
		}
		branches = append(branches, scope)
	}
	cur.Join(branches)
	return true
}

func switchHandler(s *State, n *ast.Node) bool {
	s.eval(n.Field("condition"))
	body := n.Field("body")
	cur := s.Scope()
	var branches []*Scope
	var b *Scope
	hasDefault := false
	for _, c := range body.ChildrenOfKind(ast.KindCaseStatement, ast.KindDefaultStatement) {
		stmts := statementExprs(c)
		if c.Kind() == ast.KindCaseStatement {
			val := c.Field("value")
			if val == nil && len(stmts) > 0 {
				val = stmts[0]
			}
			s.eval(val)
			if len(stmts) > 0 && stmts[0] == val {
				stmts = stmts[1:]
			}
		} else {
			hasDefault = true
		}
		// Without break or return the previous case falls through.
		if b == nil || b.jumped || b.terminated {
			if b != nil {
				branches = append(branches, b)
			}
			b = cur.Branch()
		}
		ok := true
		s.within(b, func() { ok = s.walkNodes(c, stmts) })
		if !ok {
			return false
		}
	}
	if b != nil {
		branches = append(branches, b)
	}
	if !hasDefault {
		branches = append(branches, cur.Branch())
	}
	for _, br := range branches {
		br.jumped = false
	}
	cur.Join(branches)
	return true
}

// loopSpec describes one loop for the loop driver.
type loopSpec struct {
	node *ast.Node
	cond *ast.Node
	// isDo is set for do-while, whose body runs before the condition.
	isDo bool
	// always adds the path where the body never runs, as for foreach.
	always bool
	// each binds the per-iteration variables, as the foreach target.
	each   func()
	body   *ast.Node
	update []*ast.Node
}

// iterate runs one iteration of l in the current scope.
func (s *State) iterate(l *loopSpec) bool {
	if !l.isDo && l.cond != nil {
		s.eval(l.cond)
	}
	if l.each != nil {
		l.each()
	}
	if !s.walkBody(l.body) {
		return false
	}
	if l.isDo && l.cond != nil {
		s.eval(l.cond)
	}
	for _, u := range l.update {
		s.eval(u)
	}
	return !s.halted
}

// loop analyzes a loop.  A silent iteration first widens the variables
// the body assigns, so the analyzed iteration sees the values of both the
// first and later iterations.
func (s *State) loop(l *loopSpec) bool {
	cur := s.Scope()
	jumped := cur.jumped

	silent := cur.Branch()
	s.quietly(func() { s.within(silent, func() { s.iterate(l) }) })
	silent.terminated, silent.jumped = false, false
	cur.join([]*Scope{silent, cur.Branch()}, false)

	var cb *operand
	if !l.isDo && l.cond != nil {
		c := s.eval(l.cond)
		cb = &c
	}
	var truth *bool
	if cb != nil {
		if b := cb.Value.AsBool(); b != nil {
			truth = &b.Bool
		}
	}
	if truth != nil && !*truth {
		if l.body != nil {
			s.report(issue.UnreachableCode, l.body, nil)
		}
		cur.jumped = jumped
		return !s.halted
	}

	b := cur.Branch()
	if cb != nil {
		b = s.BranchWithHardenedTypes(cur, l.cond, TrueBranch)
	}
	b.jumped = false
	ok := true
	s.within(b, func() {
		if l.each != nil {
			l.each()
		}
		if ok = s.walkBody(l.body); !ok {
			return
		}
		if l.isDo && l.cond != nil {
			s.eval(l.cond)
		}
		for _, u := range l.update {
			s.eval(u)
		}
	})
	if !ok || s.halted {
		return false
	}
	b.jumped = false
	branches := []*Scope{b}
	switch {
	case l.always:
		branches = append(branches, cur.Branch())
	case l.isDo || l.cond == nil || truth != nil:
	default:
		branches = append(branches, s.BranchWithHardenedTypes(cur, l.cond, FalseBranch))
	}
	cur.Join(branches)
	cur.jumped = jumped
	return true
}

func whileHandler(s *State, n *ast.Node) bool {
	return s.loop(&loopSpec{node: n, cond: n.Field("condition"), body: n.Field("body")})
}

func doHandler(s *State, n *ast.Node) bool {
	return s.loop(&loopSpec{node: n, cond: n.Field("condition"), isDo: true, body: n.Field("body")})
}

// forParts splits a for statement into its initializers, conditions,
// updates and body by the position of the separators.
func forParts(n *ast.Node) (init, cond, update []*ast.Node, body *ast.Node) {
	segment := 0
	closed := false
	for _, c := range n.AllChildren() {
		switch {
		case !c.IsNamed() && c.Kind() == ";" && !closed:
			segment++
		case !c.IsNamed() && c.Kind() == ")" && !closed:
			closed = true
		case !c.IsNamed() || c.Kind() == ast.KindComment:
		case closed:
			body = c
		default:
			switch segment {
			case 0:
				init = append(init, c)
			case 1:
				cond = append(cond, c)
			default:
				update = append(update, c)
			}
		}
	}
	if b := n.Field("body"); b != nil {
		body = b
	}
	return init, cond, update, body
}

func forHandler(s *State, n *ast.Node) bool {
	init, conds, update, body := forParts(n)
	for _, e := range init {
		s.eval(e)
	}
	var cond *ast.Node
	if len(conds) > 0 {
		// Only the last condition decides.
		for _, c := range conds[:len(conds)-1] {
			update = append([]*ast.Node{c}, update...)
		}
		cond = conds[len(conds)-1]
	}
	return s.loop(&loopSpec{node: n, cond: cond, body: body, update: update})
}

func foreachHandler(s *State, n *ast.Node) bool {
	kids := statementExprs(n)
	body := n.Field("body")
	if len(kids) < 2 {
		return s.walkChildren(n)
	}
	subject, target := kids[0], kids[1]
	op := s.eval(subject)
	if t := op.Type; t != nil && !t.ContainsKind(types.KindArray) && !t.ContainsKind(types.KindObject) {
		s.report(issue.TraversalOfUnknownType, subject, nil)
	}
	if body == nil && len(kids) > 2 {
		body = kids[len(kids)-1]
	}
	each := func() {
		if target.Kind() == ast.KindPair {
			parts := target.Children()
			if len(parts) == 2 {
				s.assign(parts[0], operand{Type: types.New(types.Int, types.String)})
				s.assign(parts[1], operand{})
			}
			return
		}
		s.assign(target, operand{})
	}
	return s.loop(&loopSpec{node: n, always: true, each: each, body: body})
}

func tryHandler(s *State, n *ast.Node) bool {
	cur := s.Scope()
	tb := cur.Branch()
	ok := true
	s.within(tb, func() { ok = s.walkBody(n.Field("body")) })
	if !ok {
		return false
	}
	// A catch may run after any prefix of the try block.
	pre := cur.Branch()
	pre.join([]*Scope{tb, pre.Branch()}, false)
	pre.terminated = false

	branches := []*Scope{tb}
	for _, c := range n.ChildrenOfKind(ast.KindCatchClause) {
		cb := pre.Branch()
		s.within(cb, func() { ok = s.catchClause(c) })
		branches = append(branches, cb)
		if !ok {
			return false
		}
	}
	cur.Join(branches)
	if f := n.ChildOfKind(ast.KindFinallyClause); f != nil {
		return s.walkBody(f.Field("body"))
	}
	return true
}

func (s *State) catchClause(c *ast.Node) bool {
	var ts []*types.UnionType
	typeList := c.Field("type")
	for _, t := range typeList.ChildrenOfKind(ast.KindName, ast.KindQualifiedName, ast.KindNamedType) {
		fq := s.resolver().Resolve(astutil.NameText(t))
		if cls, ok := s.Symbols.Class(fq); ok {
			s.refer(RefClass, t, cls.Name.String(), cls.Location)
			ts = append(ts, types.New(types.Object(cls.Name)))
		} else {
			s.report(issue.UnknownClass, t, func(i *issue.Issue) { i.Name = fq.String() })
			ts = append(ts, types.New(types.Object(fq)))
		}
		s.touch(t)
	}
	if name := c.Field("name"); name != nil {
		t := types.Union(ts...)
		if len(ts) == 0 {
			t = nil
		}
		s.Scope().Bind(&VarData{
			Name:    astutil.VarName(name),
			Type:    t,
			IsParam: true,
			Usage:   &Usage{Writes: 1, First: name.Range()},
		})
		s.touch(name)
	}
	return s.walkBody(c.Field("body"))
}

func unsetHandler(s *State, n *ast.Node) bool {
	for _, c := range statementExprs(n) {
		name := astutil.VarName(c)
		if name == "" {
			s.probe(func() { s.eval(c) })
			continue
		}
		sc := s.Scope()
		if v, ok := sc.Lookup(name); ok {
			v.Usage.Reads++
			d := v.clone()
			d.Type = types.New(types.Null)
			d.Value = nil
			d.Partial = false
			sc.Bind(d)
		}
		s.touch(c)
	}
	return !s.halted
}

func globalHandler(s *State, n *ast.Node) bool {
	for _, c := range n.ChildrenOfKind(ast.KindVariableName) {
		s.Scope().Bind(&VarData{
			Name:    astutil.VarName(c),
			IsParam: true,
			Usage:   &Usage{Writes: 1, First: c.Range()},
		})
		s.touch(c)
	}
	return !s.halted
}

func staticHandler(s *State, n *ast.Node) bool {
	for _, d := range n.ChildrenOfKind(ast.KindStaticVariable) {
		name := d.Field("name")
		if name == nil {
			name = d.ChildOfKind(ast.KindVariableName)
		}
		if v := d.Field("value"); v != nil {
			s.eval(v)
		}
		if name == nil {
			continue
		}
		// The value persists between calls so nothing is known about it.
		s.Scope().Bind(&VarData{
			Name:    astutil.VarName(name),
			IsParam: true,
			Usage:   &Usage{Writes: 1, First: name.Range()},
		})
		s.touch(name)
	}
	return !s.halted
}

func flowConstHandler(s *State, n *ast.Node) bool {
	if s.InConditional > 0 {
		s.report(issue.ConditionalConstantDeclaration, n, nil)
	}
	for _, el := range constElements(n) {
		s.eval(el[1])
		s.touch(el[0])
	}
	return !s.halted
}

func flowClassHandler(s *State, n *ast.Node) bool {
	nameNode := n.Field("name")
	if nameNode == nil {
		return true
	}
	c, ok := s.Symbols.Class(s.Namespace.Join(names.Name(nameNode.Text())))
	if !ok || !s.declaredHere(c.Location, nameNode) {
		return true
	}
	s.refer(RefClass, nameNode, c.Name.String(), c.Location)

	outer, outerTemplates := s.InClass, s.classTemplates
	s.InClass, s.classTemplates = c, s.docTemplates(s.LastDoc)
	defer func() { s.InClass, s.classTemplates = outer, outerTemplates }()

	s.path = append(s.path, n)
	defer func() { s.path = s.path[:len(s.path)-1] }()
	for _, b := range n.ChildrenOfKind(ast.KindBaseClause, ast.KindClassInterfaceClause) {
		for _, p := range classNames(b) {
			s.referClass(p)
		}
	}

	body := n.Field("body")
	var doc *ast.Node
	for _, m := range body.Children() {
		if m.Kind() == ast.KindComment {
			doc = m
			continue
		}
		switch m.Kind() {
		case ast.KindMethodDeclaration:
			if fn, ok := c.Methods[names.Name(m.Field("name").Text()).Lower()]; ok && fn.Class == c && s.declaredHere(fn.Location, m.Field("name")) {
				s.analyzeFunction(fn, m, doc)
			}
		case ast.KindConstDeclaration:
			for _, el := range constElements(m) {
				s.eval(el[1])
			}
		case ast.KindPropertyDeclaration:
			for _, el := range propertyElements(m) {
				s.eval(el[1])
			}
		case ast.KindEnumCase:
			s.eval(m.Field("value"))
		case ast.KindUseDeclaration:
			for _, p := range classNames(m) {
				s.referClass(p)
			}
		}
		doc = nil
		if s.halted || s.serviceLookup(m) {
			return false
		}
	}
	return true
}

// referClass records a reference from a class name in a declaration.
func (s *State) referClass(n *ast.Node) {
	if c, ok := s.Symbols.Class(s.resolver().Resolve(n.Text())); ok {
		s.refer(RefClass, n, c.Name.String(), c.Location)
	}
	s.touch(n)
}

func flowFunctionHandler(s *State, n *ast.Node) bool {
	nameNode := n.Field("name")
	if nameNode == nil {
		return true
	}
	fn, ok := s.Symbols.Function(s.Namespace.Join(names.Name(nameNode.Text())))
	if !ok || !s.declaredHere(fn.Location, nameNode) {
		return true
	}
	s.analyzeFunction(fn, n, s.LastDoc)
	return !s.halted
}
