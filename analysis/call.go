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

var stdClass = names.FQN("stdClass")

// callArg is one argument of a call.
type callArg struct {
	node *ast.Node
	expr *ast.Node
	// spread is set for ...$args.
	spread bool
	// named is the parameter name of a named argument.
	named string
	// placeholder is set for the first class callable syntax f(...).
	placeholder bool
}

// callArguments returns the arguments of a call or new expression.
func callArguments(n *ast.Node) []callArg {
	list := n.Field("arguments")
	if list == nil {
		list = n.ChildOfKind(ast.KindArguments)
	}
	var out []callArg
	for _, c := range list.Children() {
		switch c.Kind() {
		case ast.KindVariadicPlaceholder:
			out = append(out, callArg{node: c, placeholder: true})
		case ast.KindArgument:
			a := callArg{node: c}
			nameNode := c.Field("name")
			if nameNode != nil {
				a.named = nameNode.Text()
			}
			for _, k := range c.Children() {
				if k == nameNode {
					continue
				}
				a.expr = k
			}
			if a.expr != nil && a.expr.Kind() == ast.KindVariadicUnpacking {
				a.spread = true
				a.expr = a.expr.NamedChild(0)
			} else if c.Token("...") != nil {
				a.spread = true
			}
			if a.expr != nil {
				out = append(out, a)
			}
		}
	}
	return out
}

// byRefBuiltins lists the by-reference parameters of library functions.
var byRefBuiltins = map[string][]int{
	"preg_match":     {2},
	"preg_match_all": {2},
	"sort":           {0},
	"rsort":          {0},
	"usort":          {0},
	"uasort":         {0},
	"uksort":         {0},
	"ksort":          {0},
	"krsort":         {0},
	"asort":          {0},
	"arsort":         {0},
	"shuffle":        {0},
	"array_push":     {0},
	"array_pop":      {0},
	"array_shift":    {0},
	"array_unshift":  {0},
	"array_splice":   {0},
	"array_walk":     {0},
	"end":            {0},
	"reset":          {0},
	"next":           {0},
	"prev":           {0},
	"settype":        {0},
	"parse_str":      {1},
	"str_replace":    {3},
	"exec":           {1, 2},
}

// byRef reports whether argument i of a call to fn is passed by reference.
func byRef(fn *symbols.FunctionSymbol, i int, a callArg) bool {
	if fn == nil {
		return false
	}
	if fn.Builtin && fn.Class == nil {
		for _, j := range byRefBuiltins[strings.ToLower(string(fn.Name.Last()))] {
			if j == i {
				return true
			}
		}
		return false
	}
	if a.named != "" {
		p, ok := fn.Param(a.named)
		return ok && p.ByRef
	}
	switch {
	case i < len(fn.Params):
		return fn.Params[i].ByRef
	case len(fn.Params) > 0 && fn.Params[len(fn.Params)-1].Variadic:
		return fn.Params[len(fn.Params)-1].ByRef
	}
	return false
}

// evalArgs evaluates the arguments of a call to fn, which may be nil.
// A variable passed by reference counts as read and is then rebound
// since the callee may have written it.
func (s *State) evalArgs(fn *symbols.FunctionSymbol, args []callArg) []operand {
	ops := make([]operand, len(args))
	for i, a := range args {
		if a.placeholder {
			continue
		}
		name := astutil.VarName(a.expr)
		if name == "" || !byRef(fn, i, a) {
			ops[i] = s.eval(a.expr)
			s.touch(a.node)
			continue
		}
		var t *types.UnionType
		if v, ok := s.Scope().Lookup(name); ok {
			v.Usage.Reads++
			t = v.Type
		} else if i < len(fn.Params) && !fn.Builtin {
			t = fn.Params[i].Type
		}
		s.bindVar(a.expr, name, operand{Type: t})
		s.touch(a.expr)
		s.touch(a.node)
	}
	return ops
}

// checkArity reports a call to fn with too few or too many arguments.
// Calls spreading an array or creating a callable are not checked.
func (s *State) checkArity(n *ast.Node, fn *symbols.FunctionSymbol, args []callArg) {
	for _, a := range args {
		if a.spread || a.placeholder {
			return
		}
	}
	got, lo, hi := len(args), fn.MinArity(), fn.MaxArity()
	expected := -1
	switch {
	case got < lo:
		expected = lo
	case hi >= 0 && got > hi:
		expected = hi
	}
	if expected < 0 {
		return
	}
	s.report(issue.WrongNumberOfArguments, n, func(i *issue.Issue) {
		i.Name = fn.DisplayName()
		i.Got = got
		i.Expected = expected
	})
}

// folder folds a call to a library function with the given arguments.  A
// zero operand means the call is not decided.
type folder func(s *State, ops []operand) operand

var folders map[string]folder

func init() {
	folders = map[string]folder{
		"strlen": func(_ *State, ops []operand) operand {
			if str := ops[0].Value.AsString(); str != nil {
				return known(value.Int(int64(len(str.Str))))
			}
			return operand{}
		},
		"strtolower": asciiCase(func(r rune) rune {
			if 'A' <= r && r <= 'Z' {
				return r + ('a' - 'A')
			}
			return r
		}),
		"strtoupper": asciiCase(func(r rune) rune {
			if 'a' <= r && r <= 'z' {
				return r - ('a' - 'A')
			}
			return r
		}),
		"count": func(_ *State, ops []operand) operand {
			if v := ops[0].Value; v != nil && v.Kind == value.KindArray {
				return known(value.Int(int64(v.Len())))
			}
			return operand{}
		},
		"intval":   coerce((*value.Value).AsInt),
		"strval":   coerce((*value.Value).AsString),
		"boolval":  coerce((*value.Value).AsBool),
		"floatval": coerce((*value.Value).AsFloat),
		"defined": func(s *State, ops []operand) operand {
			if str := ops[0].Value; str != nil && str.Kind == value.KindString {
				if _, ok := s.Symbols.Constant(names.ParseFQN(str.Str)); ok {
					return known(value.Bool(true))
				}
			}
			return operand{}
		},
	}
	for name, kind := range typeChecks {
		folders[name] = typeCheck(kind)
	}
}

func asciiCase(m func(rune) rune) folder {
	return func(_ *State, ops []operand) operand {
		if str := ops[0].Value.AsString(); str != nil {
			return known(value.String(strings.Map(m, str.Str)))
		}
		return operand{}
	}
}

func coerce(conv func(*value.Value) *value.Value) folder {
	return func(_ *State, ops []operand) operand {
		return known(conv(ops[0].Value))
	}
}

func typeCheck(kind types.Kind) folder {
	return func(_ *State, ops []operand) operand {
		t := ops[0].Type
		switch {
		case t == nil || t.IsNever():
			return operand{}
		case t.OnlyKinds(kind):
			return known(value.Bool(true))
		case !t.ContainsKind(kind):
			return known(value.Bool(false))
		}
		return operand{}
	}
}

func evalFunctionCall(s *State, n *ast.Node) operand {
	fnNode := n.Field("function")
	args := callArguments(n)
	if fnNode == nil || !fnNode.Kind().In(ast.KindName, ast.KindQualifiedName) {
		return s.evalDynamicCall(fnNode, args)
	}
	text := astutil.NameText(fnNode)
	lower := strings.ToLower(strings.TrimPrefix(text, `\`))
	switch lower {
	case "isset", "empty":
		s.probe(func() { s.evalArgs(nil, args) })
		s.touch(fnNode)
		return typed(types.Bool)
	case "compact":
		s.markDynamic()
		for _, a := range args {
			if str, ok := stringLiteral(a.expr); ok {
				if v, found := s.Scope().Lookup(str); found {
					v.Usage.Reads++
				}
			}
			s.eval(a.expr)
		}
		s.touch(fnNode)
		return typed(types.Array)
	case "extract":
		s.markDynamic()
	case "exit", "die":
		s.evalArgs(nil, args)
		s.Scope().terminated = true
		return operand{Type: types.Never()}
	case "define":
		if s.InConditional > 0 {
			s.report(issue.ConditionalConstantDeclaration, n, nil)
		}
	}

	fn, ok := s.resolveFunction(text)
	if !ok {
		s.report(issue.UnknownFunction, fnNode, func(i *issue.Issue) { i.Name = text })
		s.evalArgs(nil, args)
		s.touch(fnNode)
		return operand{}
	}
	written := string(names.ParseFQN(text).Last())
	if declared := string(fn.Name.Last()); written != declared {
		s.report(issue.WrongFunctionNameCasing, fnNode, func(i *issue.Issue) {
			i.Name = written
			i.Text = declared
		})
	}
	s.refer(RefFunction, fnNode, fn.Name.String(), fn.Location)
	s.touch(fnNode)
	s.checkArity(n, fn, args)
	ops := s.evalArgs(fn, args)
	if f, ok := folders[lower]; ok && fn.Builtin && len(ops) > 0 && !args[0].spread {
		if op := f(s, ops); op.Type != nil {
			return op
		}
	}
	return operand{Type: fn.ReturnType}
}

// evalDynamicCall evaluates a call through an expression such as $f().
func (s *State) evalDynamicCall(callee *ast.Node, args []callArg) operand {
	name := astutil.VarName(callee)
	if name == "" {
		s.eval(callee)
		s.evalArgs(nil, args)
		return operand{}
	}
	_, exists := s.Scope().Lookup(name)
	op := s.eval(callee)
	switch {
	case !exists:
	case op.Type == nil:
		s.report(issue.NotAVerifiedCallableVariable, callee, func(i *issue.Issue) { i.Name = name })
	case op.Type.OnlyKinds(types.KindInt, types.KindFloat, types.KindBool, types.KindNull, types.KindArray):
		s.report(issue.NotACallableVariable, callee, func(i *issue.Issue) { i.Name = name })
	}
	s.evalArgs(nil, args)
	return operand{}
}

// hasMagic reports whether calls or accesses on class may be resolved at
// run time: some class of the hierarchy is a library class, is documented
// with @method or @property, or declares one of the given magic methods.
func (s *State) hasMagic(class names.FullyQualifiedName, methods ...string) bool {
	return s.Symbols.AnyInHierarchy(class, func(c *symbols.ClassSymbol) bool {
		if c.Builtin || c.Magic {
			return true
		}
		for _, m := range methods {
			if _, ok := c.Methods[m]; ok {
				return true
			}
		}
		return false
	})
}

// memberName returns the name of a member access.  Names given by an
// expression are evaluated and known only when they fold to a string.
func (s *State) memberName(n *ast.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	if n.Kind() == ast.KindName {
		return n.Text(), true
	}
	if str := s.eval(n).Value; str != nil && str.Kind == value.KindString {
		return str.Str, true
	}
	return "", false
}

func nullable(n *ast.Node, op operand) operand {
	if op.Type == nil || !n.Kind().In(ast.KindNullsafeMemberCall, ast.KindNullsafeMemberAccess) {
		return op
	}
	return operand{Type: types.Union(op.Type, types.New(types.Null))}
}

func evalMemberCall(s *State, n *ast.Node) operand {
	obj := s.eval(n.Field("object"))
	nameNode := n.Field("name")
	method, named := s.memberName(nameNode)
	args := callArguments(n)
	t := obj.Type
	switch {
	case t == nil:
		s.report(issue.MethodCallOnUnknownType, n, func(i *issue.Issue) {
			i.Name = method
			i.Types = "mixed"
		})
	case t.ContainsKind(types.KindNull) && n.Kind() != ast.KindNullsafeMemberCall:
		s.report(issue.MethodCallOnNullableType, n, func(i *issue.Issue) { i.Name = method })
	}
	if t == nil || !named {
		s.evalArgs(nil, args)
		s.touch(nameNode)
		return operand{}
	}

	var target *symbols.FunctionSymbol
	var rets []*types.UnionType
	undecided := false
	for _, d := range t.Types() {
		if d.Kind != types.KindObject {
			continue
		}
		if d.Class.IsRoot() {
			undecided = true
			continue
		}
		fn, ok := s.Symbols.FindMethod(d.Class, method)
		if !ok {
			if s.Symbols.HierarchyKnown(d.Class) && !s.hasMagic(d.Class, "__call") {
				class := d.Class
				s.report(issue.UnknownMethod, nameNode, func(i *issue.Issue) {
					i.Name = method
					i.Class = class.String()
				})
			}
			undecided = true
			continue
		}
		if target == nil {
			target = fn
			s.refer(RefMethod, nameNode, fn.DisplayName(), fn.Location)
			s.checkArity(n, fn, args)
		}
		rets = append(rets, fn.ReturnType)
	}
	s.touch(nameNode)
	s.evalArgs(target, args)
	if undecided || len(rets) == 0 {
		return operand{}
	}
	return nullable(n, operand{Type: types.Union(rets...)})
}

func evalMemberAccess(s *State, n *ast.Node) operand {
	obj := s.eval(n.Field("object"))
	nameNode := n.Field("name")
	prop, named := s.memberName(nameNode)
	s.touch(nameNode)
	t := obj.Type
	if !named {
		s.report(issue.IndeterminablePropertyName, n, func(i *issue.Issue) {
			i.Types = "mixed"
			if t != nil {
				i.Types = t.String()
			}
		})
		return operand{}
	}
	if t == nil {
		s.report(issue.PropertyAccessOnUnknownType, n, func(i *issue.Issue) { i.Name = prop })
		return operand{}
	}
	var rets []*types.UnionType
	undecided := false
	for _, d := range t.Types() {
		if d.Kind != types.KindObject {
			continue
		}
		c, ok := s.Symbols.Class(d.Class)
		if !ok {
			undecided = true
			continue
		}
		if c.Kind == symbols.KindInterface {
			s.report(issue.PropertyAccessOnInterfaceType, n, func(i *issue.Issue) {
				i.Name = prop
				i.Class = c.Name.String()
			})
			undecided = true
			continue
		}
		p, ok := s.Symbols.FindProperty(c.Name, prop)
		if !ok {
			if s.Symbols.HierarchyKnown(c.Name) && !s.hasMagic(c.Name, "__get") {
				s.report(issue.UnknownProperty, nameNode, func(i *issue.Issue) {
					i.Name = prop
					i.Class = c.Name.String()
				})
			}
			undecided = true
			continue
		}
		rets = append(rets, p.Type)
	}
	if undecided || len(rets) == 0 {
		return operand{}
	}
	return nullable(n, operand{Type: types.Union(rets...)})
}

// classOfScope resolves the left side of ::.  Names that do not resolve to
// a declared class are reported.  For expressions the class is taken from
// the type of the value.
func (s *State) classOfScope(scope *ast.Node) (*symbols.ClassSymbol, bool) {
	if scope == nil {
		return nil, false
	}
	if !scope.Kind().In(ast.KindName, ast.KindQualifiedName, ast.KindRelativeScope) {
		op := s.eval(scope)
		if d, ok := op.Type.Single(); ok && d.Kind == types.KindObject && !d.Class.IsRoot() {
			return s.Symbols.Class(d.Class)
		}
		return nil, false
	}
	text := astutil.NameText(scope)
	defer s.touch(scope)
	fq, ok := s.resolveClass(text)
	if !ok {
		s.report(issue.UnknownClass, scope, func(i *issue.Issue) { i.Name = text })
		return nil, false
	}
	c, ok := s.Symbols.Class(fq)
	if !ok {
		s.report(issue.UnknownClass, scope, func(i *issue.Issue) { i.Name = fq.String() })
		return nil, false
	}
	if scope.Kind() != ast.KindRelativeScope {
		s.refer(RefClass, scope, c.Name.String(), c.Location)
	}
	return c, true
}

func evalScopedCall(s *State, n *ast.Node) operand {
	c, ok := s.classOfScope(n.Field("scope"))
	nameNode := n.Field("name")
	method, named := s.memberName(nameNode)
	args := callArguments(n)
	s.touch(nameNode)
	if !ok || !named {
		s.evalArgs(nil, args)
		return operand{}
	}
	fn, found := s.Symbols.FindMethod(c.Name, method)
	if !found {
		if s.Symbols.HierarchyKnown(c.Name) && !s.hasMagic(c.Name, "__callstatic", "__call") {
			s.report(issue.UnknownMethod, nameNode, func(i *issue.Issue) {
				i.Name = method
				i.Class = c.Name.String()
			})
		}
		s.evalArgs(nil, args)
		return operand{}
	}
	s.refer(RefMethod, nameNode, fn.DisplayName(), fn.Location)
	s.checkArity(n, fn, args)
	s.evalArgs(fn, args)
	return operand{Type: fn.ReturnType}
}

func evalScopedPropertyAccess(s *State, n *ast.Node) operand {
	c, ok := s.classOfScope(n.Field("scope"))
	nameNode := n.Field("name")
	s.touch(nameNode)
	name := astutil.VarName(nameNode)
	if !ok || name == "" {
		return operand{}
	}
	p, found := s.Symbols.FindProperty(c.Name, name)
	if !found {
		if s.Symbols.HierarchyKnown(c.Name) && !s.hasMagic(c.Name) {
			s.report(issue.UnknownProperty, nameNode, func(i *issue.Issue) {
				i.Name = name
				i.Class = c.Name.String()
			})
		}
		return operand{}
	}
	return operand{Type: p.Type}
}

func evalClassConstant(s *State, n *ast.Node) operand {
	kids := n.Children()
	if len(kids) < 2 {
		return operand{}
	}
	scope, nameNode := kids[0], kids[len(kids)-1]
	name := nameNode.Text()
	s.touch(nameNode)
	late := strings.EqualFold(scope.Text(), "static") || !scope.Kind().In(ast.KindName, ast.KindQualifiedName, ast.KindRelativeScope)
	c, ok := s.classOfScope(scope)
	if strings.EqualFold(name, "class") {
		if !ok || late {
			return typed(types.String)
		}
		return known(value.String(strings.TrimPrefix(c.Name.String(), `\`)))
	}
	if !ok {
		return operand{}
	}
	k, found := s.Symbols.FindClassConstant(c.Name, name)
	if !found {
		if s.Symbols.HierarchyKnown(c.Name) {
			s.report(issue.UnknownClassConstant, nameNode, func(i *issue.Issue) {
				i.Name = name
				i.Class = c.Name.String()
			})
		}
		return operand{}
	}
	s.refer(RefConstant, nameNode, c.Name.String()+"::"+name, k.Location)
	if late {
		// A subclass may override the value.
		return operand{Type: k.Type}
	}
	return operand{Type: k.Type, Value: k.Value}
}

func evalNew(s *State, n *ast.Node) operand {
	args := callArguments(n)
	if n.ChildOfKind(ast.KindAnonymousClass) != nil {
		s.evalArgs(nil, args)
		return typed(types.AnyObject)
	}
	classNode := n.ChildOfKind(ast.KindName, ast.KindQualifiedName, ast.KindRelativeScope)
	if classNode == nil {
		for _, c := range n.Children() {
			if c.Kind() != ast.KindArguments && c.Kind() != ast.KindComment {
				s.eval(c)
				break
			}
		}
		s.evalArgs(nil, args)
		return typed(types.AnyObject)
	}
	text := astutil.NameText(classNode)
	s.touch(classNode)
	fq, ok := s.resolveClass(text)
	if !ok {
		s.report(issue.UnknownClass, classNode, func(i *issue.Issue) { i.Name = text })
		s.evalArgs(nil, args)
		return typed(types.AnyObject)
	}
	c, ok := s.Symbols.Class(fq)
	if !ok {
		s.report(issue.UnknownClass, classNode, func(i *issue.Issue) { i.Name = fq.String() })
		s.evalArgs(nil, args)
		return typed(types.Object(fq))
	}
	if classNode.Kind() != ast.KindRelativeScope {
		if written, declared := string(fq.Last()), string(c.Name.Last()); written != declared {
			s.report(issue.WrongClassNameCasing, classNode, func(i *issue.Issue) {
				i.Name = written
				i.Text = declared
			})
		}
		s.refer(RefClass, classNode, c.Name.String(), c.Location)
	}
	ctor, hasCtor := s.Symbols.FindMethod(c.Name, "__construct")
	if hasCtor {
		s.checkArity(n, ctor, args)
	} else {
		ctor = nil
	}
	ops := s.evalArgs(ctor, args)
	obj := value.Object(c.Name)
	for _, op := range ops {
		obj.Object.Args = append(obj.Object.Args, op.Value)
	}
	return known(obj)
}
