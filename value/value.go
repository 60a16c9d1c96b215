// Copyright © 2024 The ELPS authors

// Package value implements concrete PHP runtime values for constant
// folding.  A Value is always fully known.  Code that cannot determine a
// value represents that with a nil *Value and must never substitute a
// guess.
package value

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/luthersystems/phpsema/names"
	"github.com/luthersystems/phpsema/types"
)

// Kind is the variant tag of a Value.
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

// FloatClass distinguishes real floats from NaN and infinities, which
// must not be compared with IEEE semantics.
type FloatClass uint8

const (
	FloatReal FloatClass = iota
	FloatNaN
	FloatInfinite
)

// ArrayClass distinguishes the three array shapes.
type ArrayClass uint8

const (
	ArrayEmpty ArrayClass = iota
	ArrayVector
	ArrayMap
)

// Pair is one key/value entry of a map-shaped array.
type Pair struct {
	Key   *Value
	Value *Value
}

// ObjectInstance records what is known about an object created with new.
type ObjectInstance struct {
	Class    names.FullyQualifiedName
	Args     []*Value           // constructor arguments, nil when not recorded
	Generics []*types.UnionType // generic arguments, nil when not recorded
}

// Value is a concrete PHP value.  Which fields are meaningful depends on
// Kind.
type Value struct {
	Kind       Kind
	Bool       bool
	Int        int64
	Float      float64
	FloatClass FloatClass
	Str        string
	ArrayClass ArrayClass
	Elems      []*Value // ArrayVector
	Pairs      []Pair   // ArrayMap
	Object     *ObjectInstance
}

// Null returns the null value.
func Null() *Value { return &Value{Kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) *Value { return &Value{Kind: KindBool, Bool: b} }

// Int returns an integer value.
func Int(i int64) *Value { return &Value{Kind: KindInt, Int: i} }

// Float returns a float value classified as real, NaN or infinite.
func Float(f float64) *Value {
	v := &Value{Kind: KindFloat, Float: f}
	switch {
	case math.IsNaN(f):
		v.FloatClass = FloatNaN
	case math.IsInf(f, 0):
		v.FloatClass = FloatInfinite
	}
	return v
}

// String returns a string value.
func String(s string) *Value { return &Value{Kind: KindString, Str: s} }

// EmptyArray returns an array with no elements.
func EmptyArray() *Value { return &Value{Kind: KindArray, ArrayClass: ArrayEmpty} }

// Vector returns a list-shaped array.  With no elements it is the empty
// array.
func Vector(elems ...*Value) *Value {
	if len(elems) == 0 {
		return EmptyArray()
	}
	return &Value{Kind: KindArray, ArrayClass: ArrayVector, Elems: elems}
}

// Map returns a map-shaped array.  With no pairs it is the empty array.
func Map(pairs ...Pair) *Value {
	if len(pairs) == 0 {
		return EmptyArray()
	}
	return &Value{Kind: KindArray, ArrayClass: ArrayMap, Pairs: pairs}
}

// Object returns an instance of class with nothing else recorded.
func Object(class names.FullyQualifiedName) *Value {
	return &Value{Kind: KindObject, Object: &ObjectInstance{Class: class}}
}

// Len returns the number of elements of an array value.
func (v *Value) Len() int {
	switch v.ArrayClass {
	case ArrayVector:
		return len(v.Elems)
	case ArrayMap:
		return len(v.Pairs)
	}
	return 0
}

// Type returns the discrete type of v.  A nil value has no discrete type
// and the second result is false.
func (v *Value) Type() (types.DiscreteType, bool) {
	if v == nil {
		return types.DiscreteType{}, false
	}
	switch v.Kind {
	case KindNull:
		return types.Null, true
	case KindBool:
		return types.Bool, true
	case KindInt:
		return types.Int, true
	case KindFloat:
		return types.Float, true
	case KindString:
		return types.String, true
	case KindArray:
		return types.Array, true
	case KindObject:
		return types.Object(v.Object.Class), true
	}
	return types.DiscreteType{}, false
}

// UnionType returns the singleton union of the type of v, or nil when v
// is unknown.
func (v *Value) UnionType() *types.UnionType {
	t, ok := v.Type()
	if !ok {
		return nil
	}
	return types.New(t)
}

// Lookup returns the element stored under key in an array value.  The
// second result is false when the lookup cannot be decided.
func (v *Value) Lookup(key *Value) (*Value, bool) {
	if v == nil || v.Kind != KindArray {
		return nil, false
	}
	k := key.AsArrayKey()
	if k == nil {
		return nil, false
	}
	switch v.ArrayClass {
	case ArrayEmpty:
		return nil, true
	case ArrayVector:
		if k.Kind != KindInt {
			return nil, false
		}
		if k.Int < 0 || k.Int >= int64(len(v.Elems)) {
			return nil, true
		}
		return v.Elems[k.Int], true
	case ArrayMap:
		for _, p := range v.Pairs {
			pk := p.Key.AsArrayKey()
			if pk == nil {
				return nil, false
			}
			if same, ok := pk.IdenticalTo(k); ok && same {
				return p.Value, true
			}
		}
		return nil, true
	}
	return nil, false
}

// String renders v the way it would appear as a PHP literal.
func (v *Value) String() string {
	if v == nil {
		return "unknown"
	}
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		switch v.FloatClass {
		case FloatNaN:
			return "NAN"
		case FloatInfinite:
			if v.Float < 0 {
				return "-INF"
			}
			return "INF"
		}
		s := strconv.FormatFloat(v.Float, 'g', -1, 64)
		if math.Trunc(v.Float) == v.Float && !bytes.ContainsAny([]byte(s), "e.") {
			s += ".0"
		}
		return s
	case KindString:
		return strconv.Quote(v.Str)
	case KindArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		switch v.ArrayClass {
		case ArrayVector:
			for i, e := range v.Elems {
				if i > 0 {
					buf.WriteString(", ")
				}
				buf.WriteString(e.String())
			}
		case ArrayMap:
			for i, p := range v.Pairs {
				if i > 0 {
					buf.WriteString(", ")
				}
				fmt.Fprintf(&buf, "%s => %s", p.Key, p.Value)
			}
		}
		buf.WriteByte(']')
		return buf.String()
	case KindObject:
		return "new " + v.Object.Class.String() + "()"
	}
	return "unknown"
}
