// Copyright © 2024 The ELPS authors

package analysis

import (
	"strings"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/astutil"
	"github.com/luthersystems/phpsema/types"
	"github.com/luthersystems/phpsema/value"
)

// BranchSide selects the outcome of a condition a branch runs under.
type BranchSide int

const (
	TrueBranch BranchSide = iota
	FalseBranch
)

// Inverse returns the other side.
func (b BranchSide) Inverse() BranchSide {
	if b == TrueBranch {
		return FalseBranch
	}
	return TrueBranch
}

// typeChecks maps the is_* functions to the kind they test for.
var typeChecks = map[string]types.Kind{
	"is_null":    types.KindNull,
	"is_int":     types.KindInt,
	"is_integer": types.KindInt,
	"is_long":    types.KindInt,
	"is_string":  types.KindString,
	"is_array":   types.KindArray,
	"is_bool":    types.KindBool,
	"is_float":   types.KindFloat,
	"is_double":  types.KindFloat,
}

// BranchWithHardenedTypes returns a branch of sc in which the variables
// tested by cond are narrowed to the types they must have when cond
// evaluates to side.  The condition must already have been evaluated in
// sc.
func (s *State) BranchWithHardenedTypes(sc *Scope, cond *ast.Node, side BranchSide) *Scope {
	b := sc.Branch()
	s.harden(b, cond, side)
	return b
}

func (s *State) harden(b *Scope, cond *ast.Node, side BranchSide) {
	cond = astutil.Unparen(cond)
	if cond == nil {
		return
	}
	switch cond.Kind() {
	case ast.KindVariableName:
		v, ok := b.Lookup(astutil.VarName(cond))
		if !ok {
			return
		}
		t := v.EffectiveType()
		if t == nil {
			return
		}
		t = t.Filter(func(d types.DiscreteType) bool {
			if side == TrueBranch {
				return d.CanEvaluateToTrue()
			}
			return d.CanEvaluateToFalse()
		})
		var val *value.Value
		if only, ok := t.Single(); ok {
			switch only.Kind {
			case types.KindBool:
				val = value.Bool(side == TrueBranch)
			case types.KindNull:
				val = value.Null()
			}
		}
		narrow(b, v, t, val)
	case ast.KindUnary:
		if operatorOf(cond) == "!" {
			arg := cond.Field("argument")
			if arg == nil {
				arg = cond.NamedChild(0)
			}
			s.harden(b, arg, side.Inverse())
		}
	case ast.KindAssignment:
		s.harden(b, cond.Field("left"), side)
	case ast.KindBinary:
		s.hardenBinary(b, cond, side)
	case ast.KindFunctionCall:
		s.hardenCall(b, cond, side)
	}
}

func (s *State) hardenBinary(b *Scope, cond *ast.Node, side BranchSide) {
	left, right := cond.Field("left"), cond.Field("right")
	switch op := operatorOf(cond); op {
	case "&&", "and":
		if side == TrueBranch {
			s.harden(b, left, side)
			s.harden(b, right, side)
		}
	case "||", "or":
		if side == FalseBranch {
			s.harden(b, left, side)
			s.harden(b, right, side)
		}
	case "instanceof":
		v, ok := b.Lookup(astutil.VarName(left))
		if !ok || right == nil || !right.Kind().In(ast.KindName, ast.KindQualifiedName) {
			return
		}
		class, ok := s.resolveClass(astutil.NameText(right))
		if !ok {
			return
		}
		isInstance := func(d types.DiscreteType) bool {
			return d.Kind == types.KindObject && !d.Class.IsRoot() && s.Symbols.IsSubclassOf(d.Class, class)
		}
		t := v.EffectiveType()
		if side == TrueBranch {
			kept := t.Filter(isInstance)
			if t == nil || kept.IsNever() {
				kept = types.New(types.Object(class))
			}
			narrow(b, v, kept, nil)
		} else if t != nil {
			narrow(b, v, t.Filter(func(d types.DiscreteType) bool { return !isInstance(d) }), v.Value)
		}
	case "===", "!==":
		target := left
		if isNullLiteral(left) {
			target = right
		} else if !isNullLiteral(right) {
			return
		}
		v, ok := b.Lookup(astutil.VarName(target))
		if !ok {
			return
		}
		if (op == "===") == (side == TrueBranch) {
			narrow(b, v, types.New(types.Null), value.Null())
			return
		}
		if t := v.EffectiveType(); t != nil {
			narrow(b, v, t.Without(types.KindNull), v.Value)
		}
	}
}

func isNullLiteral(n *ast.Node) bool {
	n = astutil.Unparen(n)
	if n == nil {
		return false
	}
	return n.Kind() == ast.KindNull ||
		n.Kind() == ast.KindName && strings.EqualFold(n.Text(), "null")
}

func (s *State) hardenCall(b *Scope, cond *ast.Node, side BranchSide) {
	fn := cond.Field("function")
	if fn == nil || !fn.Kind().In(ast.KindName, ast.KindQualifiedName) {
		return
	}
	name := strings.ToLower(strings.TrimPrefix(astutil.NameText(fn), `\`))
	args := callArguments(cond)
	if name == "isset" {
		if side != TrueBranch {
			return
		}
		for _, a := range args {
			v, ok := b.Lookup(astutil.VarName(a.expr))
			if !ok {
				continue
			}
			if t := v.EffectiveType(); t != nil {
				narrow(b, v, t.Without(types.KindNull), v.Value)
			}
		}
		return
	}
	kind, ok := typeChecks[name]
	if !ok || len(args) != 1 {
		return
	}
	v, ok := b.Lookup(astutil.VarName(args[0].expr))
	if !ok {
		return
	}
	t := v.EffectiveType()
	if side == TrueBranch {
		nt := types.New(types.DiscreteType{Kind: kind})
		if t != nil {
			nt = t.Filter(func(d types.DiscreteType) bool { return d.Kind == kind })
		}
		var val *value.Value
		if kind == types.KindNull {
			val = value.Null()
		}
		narrow(b, v, nt, val)
	} else if t != nil {
		narrow(b, v, t.Without(kind), v.Value)
	}
}

// narrow binds a copy of v in b with the type t.  A value which t rules
// out is dropped.
func narrow(b *Scope, v *VarData, t *types.UnionType, val *value.Value) {
	n := v.clone()
	n.Type = t
	if val != nil {
		n.Value = val
	}
	if n.Value != nil {
		if vt, ok := n.Value.Type(); !ok || t != nil && !t.Contains(vt) {
			n.Value = nil
		}
	}
	b.Bind(n)
}
