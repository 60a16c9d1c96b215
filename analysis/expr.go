// Copyright © 2024 The ELPS authors

package analysis

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/astutil"
	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/types"
	"github.com/luthersystems/phpsema/value"
)

var superglobals = map[string]bool{
	"GLOBALS": true, "_SERVER": true, "_GET": true, "_POST": true,
	"_FILES": true, "_COOKIE": true, "_SESSION": true, "_REQUEST": true,
	"_ENV": true,
}

// operatorOf returns the lower-cased operator token of an operator
// expression.
func operatorOf(n *ast.Node) string {
	if op := n.Field("operator"); op != nil {
		return strings.ToLower(op.Text())
	}
	for _, c := range n.AllChildren() {
		if !c.IsNamed() && c.Kind() != "(" && c.Kind() != ")" {
			return strings.ToLower(string(c.Kind()))
		}
	}
	return ""
}

func evalInteger(s *State, n *ast.Node) operand {
	text := strings.ReplaceAll(n.Text(), "_", "")
	lower := strings.ToLower(text)
	if len(lower) > 1 && lower[0] == '0' && lower[1] >= '0' && lower[1] <= '9' {
		text = "0o" + text[1:]
	}
	i, err := strconv.ParseInt(text, 0, 64)
	if err == nil {
		return known(value.Int(i))
	}
	// Integer literals beyond the int range are floats.
	u, uerr := strconv.ParseUint(text, 0, 64)
	if uerr == nil {
		return known(value.Float(float64(u)))
	}
	f, ferr := strconv.ParseFloat(text, 64)
	if ferr == nil {
		return known(value.Float(f))
	}
	return typed(types.Float)
}

func evalFloat(s *State, n *ast.Node) operand {
	f, err := strconv.ParseFloat(strings.ReplaceAll(n.Text(), "_", ""), 64)
	if err != nil {
		return typed(types.Float)
	}
	return known(value.Float(f))
}

func evalBoolean(s *State, n *ast.Node) operand {
	return known(value.Bool(strings.EqualFold(strings.TrimSpace(n.Text()), "true")))
}

func evalNull(s *State, n *ast.Node) operand {
	return known(value.Null())
}

// stringLiteral returns the content of a string literal without
// interpolation.
func stringLiteral(n *ast.Node) (string, bool) {
	n = astutil.Unparen(n)
	if n == nil {
		return "", false
	}
	switch n.Kind() {
	case ast.KindString:
		return singleQuoted(n.Text()), true
	case ast.KindEncapsedString:
		for _, c := range n.Children() {
			if !c.Kind().In(ast.KindStringContent, ast.KindStringValue, ast.KindEscapeSequence) {
				return "", false
			}
		}
		return doubleQuoted(n.Text()), true
	}
	return "", false
}

func trimQuotes(text string, q byte) string {
	text = strings.TrimPrefix(strings.TrimPrefix(text, "b"), "B")
	if len(text) >= 2 && text[0] == q && text[len(text)-1] == q {
		return text[1 : len(text)-1]
	}
	return text
}

func singleQuoted(text string) string {
	body := trimQuotes(text, '\'')
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) && (body[i+1] == '\\' || body[i+1] == '\'') {
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String()
}

func doubleQuoted(text string) string {
	return unescape(trimQuotes(text, '"'))
}

// unescape decodes the escape sequences of a double quoted string.
func unescape(body string) string {
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		next := body[i+1]
		switch next {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'v':
			b.WriteByte('\v')
		case 'e':
			b.WriteByte(0x1b)
		case 'f':
			b.WriteByte('\f')
		case '\\', '$', '"':
			b.WriteByte(next)
		case 'x':
			j := i + 2
			for j < len(body) && j < i+4 && isHex(body[j]) {
				j++
			}
			if j == i+2 {
				b.WriteString(`\x`)
				i++
				continue
			}
			v, _ := strconv.ParseUint(body[i+2:j], 16, 8)
			b.WriteByte(byte(v))
			i = j - 1
			continue
		case 'u':
			end := strings.IndexByte(body[i:], '}')
			if i+2 < len(body) && body[i+2] == '{' && end > 0 {
				if r, err := strconv.ParseUint(body[i+3:i+end], 16, 32); err == nil {
					var buf [utf8.UTFMax]byte
					b.Write(buf[:utf8.EncodeRune(buf[:], rune(r))])
					i += end
					continue
				}
			}
			b.WriteString(`\u`)
		default:
			if next >= '0' && next <= '7' {
				j := i + 1
				for j < len(body) && j < i+4 && body[j] >= '0' && body[j] <= '7' {
					j++
				}
				v, _ := strconv.ParseUint(body[i+1:j], 8, 16)
				b.WriteByte(byte(v))
				i = j - 1
				continue
			}
			b.WriteByte('\\')
			b.WriteByte(next)
		}
		i++
	}
	return b.String()
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// stringParts are the literal pieces of strings and heredocs.
var stringParts = []ast.Kind{
	ast.KindStringContent, ast.KindStringValue, ast.KindEscapeSequence,
	"heredoc_start", "heredoc_end", "nowdoc_string", "text_interpolation",
}

func evalString(s *State, n *ast.Node) operand {
	switch n.Kind() {
	case ast.KindString:
		return known(value.String(singleQuoted(n.Text())))
	case ast.KindNowdoc:
		return typed(types.String)
	case ast.KindHeredoc:
		s.evalInterpolations(n)
		return typed(types.String)
	}
	if len(n.Children()) == 0 {
		return known(value.String(doubleQuoted(n.Text())))
	}
	var b strings.Builder
	decided := true
	for _, c := range n.AllChildren() {
		switch {
		case !c.IsNamed():
		case c.Kind().In(ast.KindStringContent, ast.KindStringValue):
			b.WriteString(c.Text())
		case c.Kind() == ast.KindEscapeSequence:
			b.WriteString(unescape(c.Text()))
		default:
			v := s.eval(c).Value.AsString()
			if v == nil {
				decided = false
				continue
			}
			b.WriteString(v.Str)
		}
	}
	if !decided {
		return typed(types.String)
	}
	return known(value.String(b.String()))
}

// evalInterpolations evaluates the expressions embedded in a heredoc.
func (s *State) evalInterpolations(n *ast.Node) {
	for _, c := range n.Children() {
		switch {
		case c.Kind().In(stringParts...):
		case c.Kind().In(ast.KindHeredocBody, ast.KindNowdocBody):
			s.evalInterpolations(c)
		default:
			s.eval(c)
		}
	}
}

// evalConstant evaluates a bare name used as an expression.
func evalConstant(s *State, n *ast.Node) operand {
	text := astutil.NameText(n)
	switch strings.ToLower(text) {
	case "true", "false":
		return known(value.Bool(strings.EqualFold(text, "true")))
	case "null":
		return known(value.Null())
	}
	switch strings.ToUpper(text) {
	case "__LINE__":
		return known(value.Int(int64(n.Range().Line())))
	case "__CLASS__":
		if s.InClass == nil {
			return known(value.String(""))
		}
		return known(value.String(strings.TrimPrefix(s.InClass.Name.String(), `\`)))
	case "__NAMESPACE__":
		return known(value.String(strings.TrimPrefix(s.Namespace.String(), `\`)))
	case "__FILE__", "__DIR__", "__FUNCTION__", "__METHOD__", "__TRAIT__", "__COMPILER_HALT_OFFSET__":
		return typed(types.String)
	}
	k, ok := s.resolveConstant(text)
	if !ok {
		if s.probing == 0 {
			s.report(issue.UnknownConstant, n, func(i *issue.Issue) { i.Name = text })
		}
		return operand{}
	}
	s.refer(RefConstant, n, k.Name.String(), k.Location)
	if k.Conditional {
		return operand{Type: k.Type}
	}
	return operand{Type: k.Type, Value: k.Value}
}

func evalVariable(s *State, n *ast.Node) operand {
	name := astutil.VarName(n)
	if superglobals[name] {
		return typed(types.Array)
	}
	if name == "this" {
		if s.InFunction != nil && s.InFunction.This != nil {
			return operand{Type: s.InFunction.This}
		}
		if s.probing == 0 {
			s.report(issue.UnknownVariable, n, func(i *issue.Issue) { i.Name = name })
		}
		return operand{}
	}
	v, ok := s.Scope().Lookup(name)
	if !ok {
		if s.probing == 0 && !s.dynamic() {
			s.report(issue.UnknownVariable, n, func(i *issue.Issue) { i.Name = name })
		}
		return operand{}
	}
	v.Usage.Reads++
	if v.Partial && !v.Usage.partialReported && s.silent == 0 && s.probing == 0 {
		v.Usage.partialReported = true
		s.report(issue.VariableNotInitializedInAllBranches, n, func(i *issue.Issue) { i.Name = name })
	}
	return operand{Type: v.EffectiveType(), Value: v.Value}
}

// dynamic reports whether the current function may bind variables the
// analyzer cannot see.
func (s *State) dynamic() bool {
	return s.InFunction != nil && s.InFunction.dynamic
}

func (s *State) markDynamic() {
	if s.InFunction != nil {
		s.InFunction.dynamic = true
	}
}

func evalDynamicVariable(s *State, n *ast.Node) operand {
	s.markDynamic()
	for _, c := range n.Children() {
		s.eval(c)
	}
	return operand{}
}

func evalParenthesized(s *State, n *ast.Node) operand {
	return s.eval(n.NamedChild(0))
}

func evalAssignment(s *State, n *ast.Node) operand {
	left, right := n.Field("left"), n.Field("right")
	if left == nil {
		left = n.NamedChild(0)
	}
	if right == nil {
		right = n.NamedChild(len(n.Children()) - 1)
	}
	var op operand
	if n.Kind() == ast.KindReferenceAssignment && astutil.VarName(right) != "" {
		// Taking a reference creates the variable.
		s.probe(func() { op = s.eval(right) })
		if _, ok := s.Scope().Lookup(astutil.VarName(right)); !ok {
			s.bindVar(right, astutil.VarName(right), operand{})
		}
	} else {
		op = s.eval(right)
	}
	s.assign(left, op)
	return op
}

// assign stores op into the target of an assignment.
func (s *State) assign(target *ast.Node, op operand) {
	target = astutil.Unparen(target)
	if target == nil {
		return
	}
	switch target.Kind() {
	case ast.KindVariableName:
		if name := astutil.VarName(target); name != "this" {
			s.bindVar(target, name, op)
		}
	case ast.KindByRef:
		s.assign(target.NamedChild(0), op)
		return
	case ast.KindListLiteral, ast.KindArrayCreation:
		s.destructure(target, op)
		return
	case ast.KindSubscript:
		base := target.NamedChild(0)
		if idx := target.NamedChild(1); idx != nil {
			s.eval(idx)
		}
		cur := s.peekType(base)
		if cur != nil && cur.ContainsKind(types.KindObject) {
			s.assign(base, operand{Type: cur})
		} else {
			s.assign(base, typed(types.Array))
		}
	case ast.KindMemberAccess, ast.KindNullsafeMemberAccess:
		s.eval(target.Field("object"))
		if name := target.Field("name"); name != nil && name.Kind() != ast.KindName {
			s.eval(name)
		}
	case ast.KindScopedPropertyAccess:
		s.classOfScope(target.Field("scope"))
	case ast.KindDynamicVariableName:
		evalDynamicVariable(s, target)
	default:
		s.eval(target)
		return
	}
	s.touch(target)
}

// peekType returns the type of an assignment base without counting a read.
func (s *State) peekType(n *ast.Node) *types.UnionType {
	if name := astutil.VarName(n); name != "" {
		if v, ok := s.Scope().Lookup(name); ok {
			return v.EffectiveType()
		}
	}
	return nil
}

// bindVar records a write of op to the variable name.
func (s *State) bindVar(n *ast.Node, name string, op operand) {
	sc := s.Scope()
	v := &VarData{Name: name, Type: op.Type, Value: op.Value}
	if prev, ok := sc.Lookup(name); ok {
		v.Usage = prev.Usage
		v.Declared = prev.Declared
		v.IsParam = prev.IsParam
	} else {
		v.Usage = &Usage{}
	}
	v.Usage.write(n.Range())
	sc.Bind(v)
}

// destructure assigns the elements of a list() or [...] target.
func (s *State) destructure(target *ast.Node, op operand) {
	i := int64(0)
	for _, el := range target.Children() {
		if el.Kind() == ast.KindComment {
			continue
		}
		kids := el.Children()
		if el.Kind() != ast.KindArrayElement || len(kids) == 0 {
			if el.Kind().In(ast.KindVariableName, ast.KindListLiteral, ast.KindByRef) {
				s.assign(el, s.element(op, value.Int(i)))
				i++
			}
			continue
		}
		dst := kids[len(kids)-1]
		key := value.Int(i)
		if len(kids) > 1 {
			key = s.eval(kids[0]).Value
		} else {
			i++
		}
		s.assign(dst, s.element(op, key))
	}
}

func (s *State) element(op operand, key *value.Value) operand {
	if key == nil {
		return operand{}
	}
	if v, ok := op.Value.Lookup(key); ok && v != nil {
		return known(v)
	}
	return operand{}
}

func evalAugmentedAssignment(s *State, n *ast.Node) operand {
	left, right := n.Field("left"), n.Field("right")
	op := strings.TrimSuffix(operatorOf(n), "=")
	if op == "??" {
		var l operand
		s.probe(func() { l = s.eval(left) })
		var res operand
		if l.Value != nil && l.Value.Kind != value.KindNull {
			res = l
			s.eval(right)
		} else {
			r := s.eval(right)
			res = operand{Type: types.Union(l.Type.Without(types.KindNull), r.Type)}
			if l.Value != nil {
				res = r
			}
		}
		s.assign(left, res)
		return res
	}
	l := s.eval(left)
	r := s.eval(right)
	res := s.arith(op, l, r)
	s.assign(left, res)
	return res
}

func evalBinary(s *State, n *ast.Node) operand {
	left, right := n.Field("left"), n.Field("right")
	op := operatorOf(n)
	switch op {
	case "&&", "and":
		return s.shortCircuit(left, right, true)
	case "||", "or":
		return s.shortCircuit(left, right, false)
	case "??":
		var l operand
		s.probe(func() { l = s.eval(left) })
		if l.Value != nil && l.Value.Kind != value.KindNull {
			s.evalBranch(right)
			return l
		}
		r := s.evalBranch(right)
		if l.Value != nil {
			return r
		}
		return operand{Type: types.Union(l.Type.Without(types.KindNull), r.Type)}
	case "instanceof":
		return s.instanceOf(left, right)
	}
	l := s.eval(left)
	r := s.eval(right)
	return s.arith(op, l, r)
}

// evalBranch evaluates n in a branch which may not run.
func (s *State) evalBranch(n *ast.Node) operand {
	cur := s.Scope()
	b := cur.Branch()
	var op operand
	s.within(b, func() { op = s.eval(n) })
	cur.join([]*Scope{b, cur.Branch()}, false)
	return op
}

// shortCircuit evaluates && (and) or || (or).  The right operand runs in a
// branch hardened by the left one.
func (s *State) shortCircuit(left, right *ast.Node, and bool) operand {
	l := s.eval(left)
	lb := l.Value.AsBool()
	if lb != nil && lb.Bool != and {
		return known(value.Bool(!and))
	}
	side := TrueBranch
	if !and {
		side = FalseBranch
	}
	cur := s.Scope()
	b := s.BranchWithHardenedTypes(cur, left, side)
	var r operand
	s.within(b, func() { r = s.eval(right) })
	if lb != nil {
		cur.join([]*Scope{b}, false)
	} else {
		cur.join([]*Scope{b, cur.Branch()}, false)
	}
	rb := r.Value.AsBool()
	switch {
	case lb != nil && rb != nil:
		return known(rb)
	case rb != nil && rb.Bool != and:
		return known(value.Bool(!and))
	}
	return typed(types.Bool)
}

func (s *State) instanceOf(left, right *ast.Node) operand {
	l := s.eval(left)
	var class *types.DiscreteType
	if right != nil && right.Kind().In(ast.KindName, ast.KindQualifiedName) {
		if fq, ok := s.resolveClass(astutil.NameText(right)); ok {
			d := types.Object(fq)
			class = &d
			if c, ok := s.Symbols.Class(fq); ok {
				s.refer(RefClass, right, c.Name.String(), c.Location)
			}
		}
		s.touch(right)
	} else {
		s.eval(right)
	}
	if l.Type == nil {
		return typed(types.Bool)
	}
	if !l.Type.ContainsKind(types.KindObject) {
		return known(value.Bool(false))
	}
	if class == nil || !l.Type.OnlyKinds(types.KindObject) {
		return typed(types.Bool)
	}
	for _, t := range l.Type.Types() {
		if t.Class.IsRoot() || !s.Symbols.IsSubclassOf(t.Class, class.Class) {
			return typed(types.Bool)
		}
	}
	return known(value.Bool(true))
}

func numericType(l, r *types.UnionType) *types.UnionType {
	if l != nil && r != nil && l.OnlyKinds(types.KindInt, types.KindBool, types.KindNull) &&
		r.OnlyKinds(types.KindInt, types.KindBool, types.KindNull) {
		return types.New(types.Int, types.Float)
	}
	if l != nil && r != nil && (l.OnlyKinds(types.KindFloat) || r.OnlyKinds(types.KindFloat)) {
		return types.New(types.Float)
	}
	return types.New(types.Int, types.Float)
}

// arith folds a binary operator other than the short-circuiting ones.
func (s *State) arith(op string, l, r operand) operand {
	switch op {
	case ".":
		a, b := l.Value.AsString(), r.Value.AsString()
		if a == nil || b == nil {
			return typed(types.String)
		}
		return known(value.String(a.Str + b.Str))
	case "+":
		if l.Type != nil && r.Type != nil && l.Type.OnlyKinds(types.KindArray) && r.Type.OnlyKinds(types.KindArray) {
			return typed(types.Array)
		}
		fallthrough
	case "-", "*", "/", "%", "**":
		if v := numeric(op, l.Value.AsNum(), r.Value.AsNum()); v != nil {
			return known(v)
		}
		if op == "%" {
			return typed(types.Int)
		}
		return operand{Type: numericType(l.Type, r.Type)}
	case "&", "|", "^", "<<", ">>":
		if v := bitwise(op, l.Value.AsInt(), r.Value.AsInt()); v != nil {
			return known(v)
		}
		return typed(types.Int)
	case "xor":
		a, b := l.Value.AsBool(), r.Value.AsBool()
		if a == nil || b == nil {
			return typed(types.Bool)
		}
		return known(value.Bool(a.Bool != b.Bool))
	case "===", "!==":
		same, ok := l.Value.IdenticalTo(r.Value)
		if !ok && disjoint(l.Type, r.Type) {
			same, ok = false, true
		}
		if !ok {
			return typed(types.Bool)
		}
		return known(value.Bool(same == (op == "===")))
	case "==", "!=", "<>":
		same, ok := l.Value.EqualTo(r.Value)
		if !ok {
			return typed(types.Bool)
		}
		return known(value.Bool(same == (op == "==")))
	case "<", ">", "<=", ">=", "<=>":
		return compare(op, l.Value.AsNum(), r.Value.AsNum())
	}
	return operand{}
}

// disjoint reports whether no value can have both types.
func disjoint(a, b *types.UnionType) bool {
	if a == nil || b == nil || a.IsNever() || b.IsNever() {
		return false
	}
	for _, t := range a.Types() {
		if b.ContainsKind(t.Kind) {
			return false
		}
	}
	return true
}

func toFloat(v *value.Value) float64 {
	if v.Kind == value.KindInt {
		return float64(v.Int)
	}
	return v.Float
}

// realOperands reports whether a and b are known numbers other than NaN
// and the infinities.
func realOperands(a, b *value.Value) bool {
	isReal := func(v *value.Value) bool {
		return v != nil && (v.Kind == value.KindInt || v.FloatClass == value.FloatReal)
	}
	return isReal(a) && isReal(b)
}

// numeric folds an arithmetic operator.  Integer overflow yields a float
// the way PHP does.  Division by zero is left unknown.
func numeric(op string, a, b *value.Value) *value.Value {
	if !realOperands(a, b) {
		return nil
	}
	ints := a.Kind == value.KindInt && b.Kind == value.KindInt
	switch op {
	case "+":
		if ints {
			if c := a.Int + b.Int; (c > a.Int) == (b.Int > 0) {
				return value.Int(c)
			}
		}
		return value.Float(toFloat(a) + toFloat(b))
	case "-":
		if ints {
			if c := a.Int - b.Int; (c < a.Int) == (b.Int > 0) {
				return value.Int(c)
			}
		}
		return value.Float(toFloat(a) - toFloat(b))
	case "*":
		if ints {
			if a.Int == 0 || b.Int == 0 {
				return value.Int(0)
			}
			c := a.Int * b.Int
			if c/b.Int == a.Int && !(a.Int == -1 && b.Int == math.MinInt64) && !(b.Int == -1 && a.Int == math.MinInt64) {
				return value.Int(c)
			}
		}
		return value.Float(toFloat(a) * toFloat(b))
	case "/":
		if toFloat(b) == 0 {
			return nil
		}
		if ints && !(a.Int == math.MinInt64 && b.Int == -1) && a.Int%b.Int == 0 {
			return value.Int(a.Int / b.Int)
		}
		return value.Float(toFloat(a) / toFloat(b))
	case "%":
		x, y := a.AsInt(), b.AsInt()
		if x == nil || y == nil || y.Int == 0 {
			return nil
		}
		if y.Int == -1 {
			return value.Int(0)
		}
		return value.Int(x.Int % y.Int)
	case "**":
		if ints && b.Int >= 0 {
			if p, ok := intPow(a.Int, b.Int); ok {
				return value.Int(p)
			}
		}
		return value.Float(math.Pow(toFloat(a), toFloat(b)))
	}
	return nil
}

// intPow returns base**exp by repeated squaring.  It reports false when
// the result overflows int64.
func intPow(base, exp int64) (int64, bool) {
	switch base {
	case 0:
		if exp == 0 {
			return 1, true
		}
		return 0, true
	case 1:
		return 1, true
	case -1:
		if exp%2 == 0 {
			return 1, true
		}
		return -1, true
	}
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			r, ok := mulInt(result, base)
			if !ok {
				return 0, false
			}
			result = r
		}
		exp >>= 1
		if exp > 0 {
			b, ok := mulInt(base, base)
			if !ok {
				return 0, false
			}
			base = b
		}
	}
	return result, true
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return c, true
}

func bitwise(op string, a, b *value.Value) *value.Value {
	if a == nil || b == nil {
		return nil
	}
	switch op {
	case "&":
		return value.Int(a.Int & b.Int)
	case "|":
		return value.Int(a.Int | b.Int)
	case "^":
		return value.Int(a.Int ^ b.Int)
	case "<<":
		switch {
		case b.Int < 0:
			return nil
		case b.Int >= 64:
			return value.Int(0)
		}
		return value.Int(a.Int << uint(b.Int))
	case ">>":
		switch {
		case b.Int < 0:
			return nil
		case b.Int >= 64:
			if a.Int < 0 {
				return value.Int(-1)
			}
			return value.Int(0)
		}
		return value.Int(a.Int >> uint(b.Int))
	}
	return nil
}

func compare(op string, a, b *value.Value) operand {
	if op == "<=>" {
		if !realOperands(a, b) {
			return typed(types.Int)
		}
		x, y := toFloat(a), toFloat(b)
		if a.Kind == value.KindInt && b.Kind == value.KindInt {
			x, y = 0, 0
			switch {
			case a.Int < b.Int:
				x = -1
			case a.Int > b.Int:
				x = 1
			}
		}
		switch {
		case x < y:
			return known(value.Int(-1))
		case x > y:
			return known(value.Int(1))
		}
		return known(value.Int(0))
	}
	if !realOperands(a, b) {
		return typed(types.Bool)
	}
	var less, equal bool
	if a.Kind == value.KindInt && b.Kind == value.KindInt {
		less, equal = a.Int < b.Int, a.Int == b.Int
	} else {
		less, equal = toFloat(a) < toFloat(b), toFloat(a) == toFloat(b)
	}
	switch op {
	case "<":
		return known(value.Bool(less))
	case ">":
		return known(value.Bool(!less && !equal))
	case "<=":
		return known(value.Bool(less || equal))
	}
	return known(value.Bool(!less))
}

func evalUnary(s *State, n *ast.Node) operand {
	arg := n.Field("argument")
	if arg == nil {
		arg = n.NamedChild(0)
	}
	op := operatorOf(n)
	if op == "@" {
		return evalSuppressed(s, n)
	}
	v := s.eval(arg)
	switch op {
	case "!":
		if b := v.Value.AsBool(); b != nil {
			return known(value.Bool(!b.Bool))
		}
		return typed(types.Bool)
	case "-":
		num := v.Value.AsNum()
		switch {
		case num == nil:
			return operand{Type: numericType(v.Type, v.Type)}
		case num.Kind == value.KindFloat:
			return known(value.Float(-num.Float))
		case num.Int == math.MinInt64:
			return operand{Type: types.New(types.Float)}
		}
		return known(value.Int(-num.Int))
	case "+":
		if num := v.Value.AsNum(); num != nil {
			return known(num)
		}
		return operand{Type: numericType(v.Type, v.Type)}
	case "~":
		if i := v.Value.AsInt(); i != nil && v.Value.Kind == value.KindInt {
			return known(value.Int(^i.Int))
		}
		return typed(types.Int)
	}
	return operand{}
}

func evalUpdate(s *State, n *ast.Node) operand {
	arg := n.Field("argument")
	if arg == nil {
		arg = n.NamedChild(0)
	}
	tok := n.Token("++", "--")
	if tok == nil || arg == nil {
		return operand{}
	}
	inc := tok.Kind() == "++"
	prefix := tok.Range().StartByte < arg.Range().StartByte
	old := s.eval(arg)
	if old.Type != nil && (old.Type.ContainsKind(types.KindArray) || old.Type.ContainsKind(types.KindObject)) {
		kind := issue.IncrementIsIllegalOnType
		if !inc {
			kind = issue.DecrementIsIllegalOnType
		}
		s.report(kind, n, func(i *issue.Issue) { i.Types = old.Type.String() })
	}
	next := step(old, inc)
	s.assign(arg, next)
	if prefix {
		return next
	}
	return old
}

// step folds ++ or --.
func step(op operand, inc bool) operand {
	v := op.Value
	switch {
	case v == nil:
		t := op.Type
		if t != nil && t.ContainsKind(types.KindNull) && inc {
			t = types.Union(t.Without(types.KindNull), types.New(types.Int))
		}
		return operand{Type: t}
	case v.Kind == value.KindNull:
		if inc {
			return known(value.Int(1))
		}
		return known(v)
	case v.Kind == value.KindInt:
		d := int64(1)
		if !inc {
			d = -1
		}
		if r := numeric("+", v, value.Int(d)); r != nil {
			return known(r)
		}
	case v.Kind == value.KindFloat:
		d := 1.0
		if !inc {
			d = -1
		}
		return known(value.Float(v.Float + d))
	}
	return operand{Type: op.Type}
}

func evalCast(s *State, n *ast.Node) operand {
	target := n.Field("value")
	if target == nil {
		target = n.NamedChild(len(n.Children()) - 1)
	}
	ct := n.Field("type")
	if ct == nil {
		ct = n.ChildOfKind(ast.KindCastType)
	}
	v := s.eval(target)
	kind := strings.ToLower(strings.Trim(ct.Text(), "() \t"))
	switch kind {
	case "int", "integer":
		if i := v.Value.AsInt(); i != nil {
			return known(i)
		}
		return typed(types.Int)
	case "float", "double", "real":
		if f := v.Value.AsFloat(); f != nil {
			return known(f)
		}
		return typed(types.Float)
	case "string", "binary":
		if str := v.Value.AsString(); str != nil {
			return known(str)
		}
		return typed(types.String)
	case "bool", "boolean":
		if b := v.Value.AsBool(); b != nil {
			return known(b)
		}
		return typed(types.Bool)
	case "array":
		if v.Value != nil && v.Value.Kind == value.KindArray {
			return known(v.Value)
		}
		return typed(types.Array)
	case "object":
		return typed(types.Object(stdClass))
	case "unset":
		return known(value.Null())
	}
	return operand{}
}

func evalConditional(s *State, n *ast.Node) operand {
	cond, body, alt := n.Field("condition"), n.Field("body"), n.Field("alternative")
	c := s.eval(cond)
	cb := c.Value.AsBool()
	cur := s.Scope()
	var t, f operand
	var branches []*Scope
	if cb == nil || cb.Bool {
		tb := s.BranchWithHardenedTypes(cur, cond, TrueBranch)
		if body != nil {
			s.within(tb, func() { t = s.eval(body) })
		} else {
			t = c
		}
		branches = append(branches, tb)
	}
	switch {
	case cb == nil:
	case cb.Bool && alt != nil:
		s.report(issue.UnreachableCode, alt, nil)
	case !cb.Bool && body != nil:
		s.report(issue.UnreachableCode, body, nil)
	}
	if cb == nil || !cb.Bool {
		fb := s.BranchWithHardenedTypes(cur, cond, FalseBranch)
		s.within(fb, func() { f = s.eval(alt) })
		branches = append(branches, fb)
	}
	cur.Join(branches)
	switch {
	case cb == nil:
		return operand{Type: types.Union(t.Type, f.Type), Value: value.Common(t.Value, f.Value)}
	case cb.Bool:
		return t
	}
	return f
}

func evalArray(s *State, n *ast.Node) operand {
	var pairs []value.Pair
	var elems []*value.Value
	decided := true
	vector := true
	next := int64(0)
	for _, el := range n.ChildrenOfKind(ast.KindArrayElement) {
		kids := el.Children()
		if len(kids) == 0 {
			continue
		}
		if kids[0].Kind() == ast.KindVariadicUnpacking {
			s.eval(kids[0])
			decided = false
			continue
		}
		var key *value.Value
		if len(kids) > 1 {
			k := s.eval(kids[0])
			key = k.Value.AsArrayKey()
			if key == nil {
				decided = false
			}
			vector = false
		}
		v := s.eval(kids[len(kids)-1])
		if v.Value == nil {
			decided = false
		}
		if !decided {
			continue
		}
		if key == nil {
			key = value.Int(next)
		}
		if key.Kind == value.KindInt && key.Int >= next {
			if key.Int == math.MaxInt64 {
				decided = false
				continue
			}
			next = key.Int + 1
		}
		replaced := false
		for i := range pairs {
			if same, _ := pairs[i].Key.IdenticalTo(key); same {
				pairs[i].Value = v.Value
				replaced = true
			}
		}
		if !replaced {
			pairs = append(pairs, value.Pair{Key: key, Value: v.Value})
		}
		elems = append(elems, v.Value)
	}
	if !decided {
		return typed(types.Array)
	}
	if vector {
		return known(value.Vector(elems...))
	}
	return known(value.Map(pairs...))
}

func evalSubscript(s *State, n *ast.Node) operand {
	base := s.eval(n.NamedChild(0))
	idxNode := n.NamedChild(1)
	if idxNode == nil {
		return operand{}
	}
	idx := s.eval(idxNode)
	if idx.Type != nil && (idx.Type.ContainsKind(types.KindArray) || idx.Type.ContainsKind(types.KindObject)) {
		s.report(issue.UnknownIndexType, idxNode, nil)
		return operand{}
	}
	if base.Value != nil {
		switch base.Value.Kind {
		case value.KindArray:
			if v, ok := base.Value.Lookup(idx.Value); ok && v != nil {
				return known(v)
			}
		case value.KindString:
			if i := idx.Value.AsInt(); i != nil && idx.Value.Kind == value.KindInt {
				str := base.Value.Str
				pos := i.Int
				if pos < 0 {
					pos += int64(len(str))
				}
				if pos >= 0 && pos < int64(len(str)) {
					return known(value.String(str[pos : pos+1]))
				}
			}
			return typed(types.String)
		}
	}
	if base.Type != nil && base.Type.OnlyKinds(types.KindString) {
		return typed(types.String)
	}
	return operand{}
}

func evalMatch(s *State, n *ast.Node) operand {
	s.eval(n.Field("condition"))
	body := n.Field("body")
	if body == nil {
		body = n.ChildOfKind(ast.KindMatchBlock)
	}
	cur := s.Scope()
	var branches []*Scope
	var ts []*types.UnionType
	var vs []*value.Value
	for _, arm := range body.ChildrenOfKind(ast.KindMatchConditional, ast.KindMatchDefault) {
		if conds := arm.Field("conditional_expressions"); conds != nil {
			for _, c := range conds.Children() {
				s.eval(c)
			}
		} else if conds := arm.ChildOfKind(ast.KindMatchConditionList); conds != nil {
			for _, c := range conds.Children() {
				s.eval(c)
			}
		}
		ret := arm.Field("return_expression")
		if ret == nil {
			ret = arm.NamedChild(len(arm.Children()) - 1)
		}
		b := cur.Branch()
		var op operand
		s.within(b, func() { op = s.eval(ret) })
		branches = append(branches, b)
		ts = append(ts, op.Type)
		vs = append(vs, op.Value)
	}
	if len(branches) == 0 {
		return operand{}
	}
	cur.Join(branches)
	return operand{Type: types.Union(ts...), Value: value.Common(vs...)}
}

func evalThrow(s *State, n *ast.Node) operand {
	s.eval(n.NamedChild(0))
	s.Scope().terminated = true
	return operand{Type: types.Never()}
}

func evalPrint(s *State, n *ast.Node) operand {
	s.eval(n.NamedChild(0))
	return known(value.Int(1))
}

func evalClone(s *State, n *ast.Node) operand {
	return operand{Type: s.eval(n.NamedChild(0)).Type}
}

func evalSuppressed(s *State, n *ast.Node) operand {
	var op operand
	s.probe(func() { op = s.eval(n.NamedChild(0)) })
	return op
}

func evalSequence(s *State, n *ast.Node) operand {
	var last operand
	for _, c := range n.Children() {
		last = s.eval(c)
	}
	return last
}
