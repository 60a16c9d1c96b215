// Copyright © 2024 The ELPS authors

package value

import (
	"math"
	"testing"

	"github.com/luthersystems/phpsema/names"
	"github.com/luthersystems/phpsema/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samples covers every variant and sub-variant of Value.
func samples() []*Value {
	return []*Value{
		Null(),
		Bool(true), Bool(false),
		Int(0), Int(-7), Int(math.MaxInt64), Int(math.MinInt64),
		Float(0), Float(math.Copysign(0, -1)), Float(2.5), Float(-2.5), Float(1e300),
		Float(math.NaN()), Float(math.Inf(1)), Float(math.Inf(-1)),
		String(""), String("0"), String("0.0"), String(" "), String("abc"),
		EmptyArray(), Vector(Int(1)), Map(Pair{Key: String("a"), Value: Int(1)}),
		Object(names.ParseFQN(`Foo`)),
	}
}

func TestCoercion_Totality(t *testing.T) {
	for _, v := range samples() {
		assert.NotPanics(t, func() {
			if b := v.AsBool(); b != nil {
				assert.Equal(t, KindBool, b.Kind, v.String())
			}
			if i := v.AsInt(); i != nil {
				assert.Equal(t, KindInt, i.Kind, v.String())
			}
			if f := v.AsFloat(); f != nil {
				assert.Equal(t, KindFloat, f.Kind, v.String())
			}
			if n := v.AsNum(); n != nil {
				assert.Contains(t, []Kind{KindInt, KindFloat}, n.Kind, v.String())
			}
			if s := v.AsString(); s != nil {
				assert.Equal(t, KindString, s.Kind, v.String())
			}
			if k := v.AsArrayKey(); k != nil {
				assert.Contains(t, []Kind{KindInt, KindString}, k.Kind, v.String())
			}
		}, v.String())
	}
	var unknown *Value
	assert.Nil(t, unknown.AsBool())
	assert.Nil(t, unknown.AsInt())
	assert.Nil(t, unknown.AsFloat())
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		name string
		in   *Value
		want *Value
	}{
		{"null", Null(), Bool(false)},
		{"true", Bool(true), Bool(true)},
		{"zero", Int(0), Bool(false)},
		{"negative", Int(-1), Bool(true)},
		{"float zero", Float(0.0), Bool(false)},
		{"float negative zero", Float(math.Copysign(0, -1)), Bool(false)},
		{"float", Float(0.1), Bool(true)},
		{"nan", Float(math.NaN()), nil},
		{"inf", Float(math.Inf(1)), nil},
		{"empty string", String(""), Bool(false)},
		{"string zero", String("0"), Bool(false)},
		{"string zero float", String("0.0"), Bool(true)},
		{"string space", String(" "), Bool(true)},
		{"string", String("a"), Bool(true)},
		{"empty array", EmptyArray(), Bool(false)},
		{"empty vector", Vector(), Bool(false)},
		{"empty map", Map(), Bool(false)},
		{"vector", Vector(Null()), Bool(true)},
		{"map", Map(Pair{Key: Int(0), Value: Null()}), Bool(true)},
		{"object", Object(names.ParseFQN(`Foo`)), Bool(true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.AsBool())
		})
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		name string
		in   *Value
		want *Value
	}{
		{"null", Null(), Int(0)},
		{"true", Bool(true), Int(1)},
		{"false", Bool(false), Int(0)},
		{"int", Int(42), Int(42)},
		{"truncate", Float(2.9), Int(2)},
		{"truncate negative", Float(-2.9), Int(-2)},
		{"safe limit", Float(9007199254740992.0), Int(9007199254740992)},
		{"beyond safe limit", Float(9007199254740994.0), nil},
		{"beyond negative limit", Float(-1e20), nil},
		{"nan", Float(math.NaN()), nil},
		{"string", String("12"), nil},
		{"array", Vector(Int(5)), Int(1)},
		{"object", Object(names.ParseFQN(`Foo`)), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.AsInt())
		})
	}
}

func TestAsFloat(t *testing.T) {
	assert.Equal(t, Float(0), Null().AsFloat())
	assert.Equal(t, Float(1), Bool(true).AsFloat())
	assert.Equal(t, Float(3), Int(3).AsFloat())
	assert.Nil(t, Int(math.MaxInt64).AsFloat())
	assert.Equal(t, Float(1.5), Float(1.5).AsFloat())
	assert.Nil(t, String("1.5").AsFloat())
	assert.Equal(t, Float(0), EmptyArray().AsFloat())
	assert.Nil(t, Object(names.ParseFQN(`Foo`)).AsFloat())
}

func TestAsNum(t *testing.T) {
	assert.Equal(t, Int(0), Null().AsNum())
	assert.Equal(t, Int(1), Bool(true).AsNum())
	assert.Equal(t, Float(1.5), Float(1.5).AsNum())
	assert.Nil(t, String("1").AsNum())
	assert.Nil(t, EmptyArray().AsNum())
}

func TestAsString(t *testing.T) {
	assert.Equal(t, String(""), Null().AsString())
	assert.Equal(t, String("1"), Bool(true).AsString())
	assert.Equal(t, String(""), Bool(false).AsString())
	assert.Equal(t, String("-12"), Int(-12).AsString())
	assert.Equal(t, String("Array"), Vector(Int(1)).AsString())
	assert.Nil(t, Float(1.5).AsString())
}

func TestAsArrayKey(t *testing.T) {
	assert.Equal(t, String(""), Null().AsArrayKey())
	assert.Equal(t, Int(1), Bool(true).AsArrayKey())
	assert.Equal(t, Int(3), Float(3.7).AsArrayKey())
	assert.Equal(t, Int(9), Int(9).AsArrayKey())
	assert.Equal(t, String("k"), String("k").AsArrayKey())
	assert.Nil(t, EmptyArray().AsArrayKey())
	assert.Nil(t, Object(names.ParseFQN(`Foo`)).AsArrayKey())
}

func TestIdenticalTo(t *testing.T) {
	tests := []struct {
		name      string
		a, b      *Value
		same, dec bool
	}{
		{"null", Null(), Null(), true, true},
		{"int", Int(1), Int(1), true, true},
		{"int differs", Int(1), Int(2), false, true},
		{"float", Float(1.5), Float(1.5), true, true},
		{"zeros", Float(0), Float(math.Copysign(0, -1)), true, true},
		{"nan tag", Float(math.NaN()), Float(math.NaN()), true, true},
		{"nan vs real", Float(math.NaN()), Float(1), false, true},
		{"inf sign", Float(math.Inf(1)), Float(math.Inf(-1)), false, true},
		{"bool", Bool(true), Bool(true), true, true},
		{"string", String("a"), String("a"), true, true},
		{"cross kind", Int(1), String("1"), false, true},
		{"int float", Int(1), Float(1), false, true},
		{"array", Vector(Int(1)), Vector(Int(1)), false, false},
		{"object", Object(names.ParseFQN(`A`)), Object(names.ParseFQN(`A`)), false, false},
		{"unknown", nil, Int(1), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			same, ok := tt.a.IdenticalTo(tt.b)
			assert.Equal(t, tt.dec, ok)
			assert.Equal(t, tt.same, same)
			same, ok = tt.a.EqualTo(tt.b)
			assert.Equal(t, tt.dec, ok)
			assert.Equal(t, tt.same, same)
		})
	}
}

func TestCommon(t *testing.T) {
	assert.Equal(t, Int(1), Common(Int(1), Int(1), Int(1)))
	assert.Nil(t, Common(Int(1), Int(2)))
	assert.Nil(t, Common(Int(1), nil))
	assert.Nil(t, Common(nil, Int(1)))
	assert.Nil(t, Common())
	assert.Nil(t, Common(Vector(Int(1)), Vector(Int(1))))
	assert.Equal(t, String("x"), Common(String("x")))
}

func TestValue_Type(t *testing.T) {
	foo := names.ParseFQN(`Foo`)
	tests := []struct {
		in   *Value
		want types.DiscreteType
	}{
		{Null(), types.Null},
		{Bool(true), types.Bool},
		{Int(1), types.Int},
		{Float(math.NaN()), types.Float},
		{String(""), types.String},
		{EmptyArray(), types.Array},
		{Object(foo), types.Object(foo)},
	}
	for _, tt := range tests {
		got, ok := tt.in.Type()
		require.True(t, ok)
		assert.Equal(t, tt.want, got)
	}
	var unknown *Value
	assert.Nil(t, unknown.UnionType())
	assert.Equal(t, "int", Int(3).UnionType().String())
}

func TestValue_Lookup(t *testing.T) {
	vec := Vector(String("a"), String("b"))
	got, ok := vec.Lookup(Int(1))
	assert.True(t, ok)
	assert.Equal(t, String("b"), got)

	got, ok = vec.Lookup(Bool(true))
	assert.True(t, ok)
	assert.Equal(t, String("b"), got)

	got, ok = vec.Lookup(Int(5))
	assert.True(t, ok)
	assert.Nil(t, got)

	m := Map(Pair{Key: String("k"), Value: Int(7)})
	got, ok = m.Lookup(String("k"))
	assert.True(t, ok)
	assert.Equal(t, Int(7), got)

	_, ok = m.Lookup(EmptyArray())
	assert.False(t, ok)
	_, ok = Int(1).Lookup(Int(0))
	assert.False(t, ok)
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "null", Null().String())
	assert.Equal(t, "1.0", Float(1).String())
	assert.Equal(t, "-INF", Float(math.Inf(-1)).String())
	assert.Equal(t, `["a" => 1, "b" => [2]]`, Map(
		Pair{Key: String("a"), Value: Int(1)},
		Pair{Key: String("b"), Value: Vector(Int(2))},
	).String())
	assert.Equal(t, `new \Foo()`, Object(names.ParseFQN(`Foo`)).String())
}
