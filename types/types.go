// Copyright © 2024 The ELPS authors

// Package types implements the discrete runtime types of PHP values and
// union types built from them.
//
// A nil *UnionType means the type is unknown.  A non-nil UnionType with no
// members is uninhabited: no value can flow there.  The two must never be
// confused, so every operation in this package is nil-aware.
package types

import (
	"sort"
	"strings"

	"github.com/luthersystems/phpsema/names"
)

// Kind enumerates the discrete runtime types.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// DiscreteType is one concrete category of runtime value.  Only KindObject
// carries a class; an object with the root name stands for any object.
type DiscreteType struct {
	Kind  Kind
	Class names.FullyQualifiedName
}

var (
	Null   = DiscreteType{Kind: KindNull}
	Bool   = DiscreteType{Kind: KindBool}
	Int    = DiscreteType{Kind: KindInt}
	Float  = DiscreteType{Kind: KindFloat}
	String = DiscreteType{Kind: KindString}
	Array  = DiscreteType{Kind: KindArray}
)

// Object returns the discrete type of instances of class.
func Object(class names.FullyQualifiedName) DiscreteType {
	return DiscreteType{Kind: KindObject, Class: class}
}

// AnyObject is an object whose class is not known.
var AnyObject = DiscreteType{Kind: KindObject}

func (t DiscreteType) String() string {
	if t.Kind == KindObject && !t.Class.IsRoot() {
		return t.Class.String()
	}
	return t.Kind.String()
}

// CanEvaluateToTrue reports whether some value of type t is truthy.
func (t DiscreteType) CanEvaluateToTrue() bool {
	return t.Kind != KindNull
}

// CanEvaluateToFalse reports whether some value of type t is falsy.
// Objects are always truthy.
func (t DiscreteType) CanEvaluateToFalse() bool {
	return t.Kind != KindObject
}

// CanBeInstance reports whether values of type t may satisfy instanceof.
func (t DiscreteType) CanBeInstance() bool {
	return t.Kind == KindObject
}

// IsScalar reports whether t is one of int, float, string or bool.
func (t DiscreteType) IsScalar() bool {
	switch t.Kind {
	case KindBool, KindInt, KindFloat, KindString:
		return true
	}
	return false
}

func (t DiscreteType) less(other DiscreteType) bool {
	if t.Kind != other.Kind {
		return t.Kind < other.Kind
	}
	return t.Class.Key() < other.Class.Key()
}

func (t DiscreteType) same(other DiscreteType) bool {
	return t.Kind == other.Kind && t.Class.EqualFold(other.Class)
}

// UnionType is an immutable set of discrete types.
type UnionType struct {
	types []DiscreteType // sorted, no duplicates
}

// New returns the union of the given discrete types.  New() with no
// arguments is the uninhabited type.
func New(ts ...DiscreteType) *UnionType {
	u := &UnionType{types: append([]DiscreteType(nil), ts...)}
	u.normalize()
	return u
}

// Never returns the uninhabited type.
func Never() *UnionType {
	return &UnionType{}
}

func (u *UnionType) normalize() {
	sort.SliceStable(u.types, func(i, j int) bool { return u.types[i].less(u.types[j]) })
	out := u.types[:0]
	for _, t := range u.types {
		if len(out) > 0 && out[len(out)-1].same(t) {
			continue
		}
		out = append(out, t)
	}
	u.types = out
}

// Types returns the members of u in a stable order.
func (u *UnionType) Types() []DiscreteType {
	if u == nil {
		return nil
	}
	return append([]DiscreteType(nil), u.types...)
}

// Len returns the number of members of u.
func (u *UnionType) Len() int {
	if u == nil {
		return 0
	}
	return len(u.types)
}

// IsNever reports whether u is known and uninhabited.
func (u *UnionType) IsNever() bool {
	return u != nil && len(u.types) == 0
}

// Single returns the only member of u.
func (u *UnionType) Single() (DiscreteType, bool) {
	if u == nil || len(u.types) != 1 {
		return DiscreteType{}, false
	}
	return u.types[0], true
}

// Contains reports whether t is a member of u.
func (u *UnionType) Contains(t DiscreteType) bool {
	if u == nil {
		return false
	}
	for _, m := range u.types {
		if m.same(t) {
			return true
		}
	}
	return false
}

// ContainsKind reports whether u has a member of kind k.
func (u *UnionType) ContainsKind(k Kind) bool {
	if u == nil {
		return false
	}
	for _, m := range u.types {
		if m.Kind == k {
			return true
		}
	}
	return false
}

// OnlyKinds reports whether u is known and every member has one of the
// given kinds.
func (u *UnionType) OnlyKinds(ks ...Kind) bool {
	if u == nil {
		return false
	}
	for _, m := range u.types {
		found := false
		for _, k := range ks {
			if m.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Filter returns the members of u satisfying keep.  Filtering an unknown
// type yields an unknown type.
func (u *UnionType) Filter(keep func(DiscreteType) bool) *UnionType {
	if u == nil {
		return nil
	}
	out := &UnionType{}
	for _, t := range u.types {
		if keep(t) {
			out.types = append(out.types, t)
		}
	}
	return out
}

// Without returns u with every member of kind k removed.
func (u *UnionType) Without(k Kind) *UnionType {
	return u.Filter(func(t DiscreteType) bool { return t.Kind != k })
}

// Equal reports whether u and other denote the same set.  Two unknown
// types are equal.
func (u *UnionType) Equal(other *UnionType) bool {
	if u == nil || other == nil {
		return u == nil && other == nil
	}
	if len(u.types) != len(other.types) {
		return false
	}
	for i := range u.types {
		if !u.types[i].same(other.types[i]) {
			return false
		}
	}
	return true
}

// String renders u as a PHP type string such as "int|string".
func (u *UnionType) String() string {
	if u == nil {
		return "mixed"
	}
	if len(u.types) == 0 {
		return "never"
	}
	parts := make([]string, len(u.types))
	for i, t := range u.types {
		parts[i] = t.String()
	}
	return strings.Join(parts, "|")
}

// Union returns the set union of the given types.  If any of them is
// unknown the union is unknown.
func Union(us ...*UnionType) *UnionType {
	out := &UnionType{}
	for _, u := range us {
		if u == nil {
			return nil
		}
		out.types = append(out.types, u.types...)
	}
	out.normalize()
	return out
}

// Intersect returns the set intersection of a and b.  An unknown operand
// does not constrain the result.
func Intersect(a, b *UnionType) *UnionType {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return a.Filter(b.Contains)
}
