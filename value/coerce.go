// Copyright © 2024 The ELPS authors

package value

import (
	"math"
	"strconv"
)

// maxSafeFloat bounds the floats that convert to integers exactly.
const maxSafeFloat = 9007199254740992.0 // 2^53

// AsBool converts v using PHP truthiness rules.  NaN and infinite floats
// are not decided.
func (v *Value) AsBool() *Value {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindNull:
		return Bool(false)
	case KindBool:
		return v
	case KindInt:
		return Bool(v.Int != 0)
	case KindFloat:
		if v.FloatClass != FloatReal {
			return nil
		}
		// -0.0 == 0.0 holds, so both zeros are falsy
		return Bool(v.Float != 0.0)
	case KindString:
		return Bool(v.Str != "" && v.Str != "0")
	case KindArray:
		return Bool(v.Len() > 0)
	case KindObject:
		return Bool(true)
	}
	return nil
}

// AsInt converts v to an integer.  Floats outside ±2^53 and non-real
// floats are not decided, and neither are strings and objects.
func (v *Value) AsInt() *Value {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindNull:
		return Int(0)
	case KindBool:
		if v.Bool {
			return Int(1)
		}
		return Int(0)
	case KindInt:
		return v
	case KindFloat:
		if v.FloatClass != FloatReal {
			return nil
		}
		if v.Float > maxSafeFloat || v.Float < -maxSafeFloat {
			return nil
		}
		return Int(int64(math.Trunc(v.Float)))
	case KindArray:
		return v.AsBool().AsInt()
	}
	return nil
}

// AsFloat converts v to a float.  Integers are converted only when the
// conversion is exact.
func (v *Value) AsFloat() *Value {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindNull:
		return Float(0)
	case KindBool:
		if v.Bool {
			return Float(1)
		}
		return Float(0)
	case KindInt:
		f := float64(v.Int)
		if f > maxSafeFloat || f < -maxSafeFloat {
			return nil
		}
		return Float(f)
	case KindFloat:
		return v
	case KindArray:
		return v.AsBool().AsFloat()
	}
	return nil
}

// AsNum converts v to an integer or a float, the operand forms of
// arithmetic.
func (v *Value) AsNum() *Value {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindNull, KindBool:
		return v.AsInt()
	case KindInt, KindFloat:
		return v
	}
	return nil
}

// AsString converts v to a string.  Float formatting and object
// stringification are not decided.
func (v *Value) AsString() *Value {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindNull:
		return String("")
	case KindBool:
		if v.Bool {
			return String("1")
		}
		return String("")
	case KindInt:
		return String(strconv.FormatInt(v.Int, 10))
	case KindString:
		return v
	case KindArray:
		return String("Array")
	}
	return nil
}

// AsArrayKey normalizes v for use as an array key.  Arrays and objects are
// not valid keys.
func (v *Value) AsArrayKey() *Value {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindNull:
		return String("")
	case KindBool, KindFloat:
		return v.AsInt()
	case KindInt, KindString:
		return v
	}
	return nil
}

// IdenticalTo implements ===.  The second result is false when the
// comparison cannot be decided, which is the case for two arrays or two
// objects.
func (v *Value) IdenticalTo(other *Value) (bool, bool) {
	if v == nil || other == nil {
		return false, false
	}
	if v.Kind != other.Kind {
		return false, true
	}
	switch v.Kind {
	case KindNull:
		return true, true
	case KindBool:
		return v.Bool == other.Bool, true
	case KindInt:
		return v.Int == other.Int, true
	case KindFloat:
		if v.FloatClass != other.FloatClass {
			return false, true
		}
		switch v.FloatClass {
		case FloatReal:
			return v.Float == other.Float, true
		case FloatInfinite:
			return math.Signbit(v.Float) == math.Signbit(other.Float), true
		}
		return true, true
	case KindString:
		return v.Str == other.Str, true
	}
	return false, false
}

// EqualTo implements ==.  Comparisons across kinds with coercion are not
// modelled; they fall back to strict identity.
func (v *Value) EqualTo(other *Value) (bool, bool) {
	return v.IdenticalTo(other)
}

// Common returns the value shared by every element of vs, or nil when
// they differ, when any of them is unknown or when the comparison cannot
// be decided.
func Common(vs ...*Value) *Value {
	if len(vs) == 0 {
		return nil
	}
	first := vs[0]
	if first == nil {
		return nil
	}
	for _, v := range vs[1:] {
		same, ok := first.IdenticalTo(v)
		if !ok || !same {
			return nil
		}
	}
	return first
}
