// Copyright © 2024 The ELPS authors

package symbols

import (
	"fmt"
	"math"

	"github.com/luthersystems/phpsema/names"
	"github.com/luthersystems/phpsema/types"
	"github.com/luthersystems/phpsema/value"
)

// builtinFunc describes a function of the PHP standard library.  max is -1
// for variadic functions.
type builtinFunc struct {
	name     string
	min, max int
	ret      string
}

var builtinFunctions = []builtinFunc{
	// strings
	{"strlen", 1, 1, "int"},
	{"strtolower", 1, 1, "string"},
	{"strtoupper", 1, 1, "string"},
	{"ucfirst", 1, 1, "string"},
	{"lcfirst", 1, 1, "string"},
	{"ucwords", 1, 2, "string"},
	{"trim", 1, 2, "string"},
	{"ltrim", 1, 2, "string"},
	{"rtrim", 1, 2, "string"},
	{"str_repeat", 2, 2, "string"},
	{"str_replace", 3, 4, "string|array"},
	{"str_pad", 2, 4, "string"},
	{"str_contains", 2, 2, "bool"},
	{"str_starts_with", 2, 2, "bool"},
	{"str_ends_with", 2, 2, "bool"},
	{"str_split", 1, 2, "array"},
	{"strpos", 2, 3, "int|false"},
	{"stripos", 2, 3, "int|false"},
	{"strrpos", 2, 3, "int|false"},
	{"strstr", 2, 3, "string|false"},
	{"strcmp", 2, 2, "int"},
	{"strcasecmp", 2, 2, "int"},
	{"substr", 2, 3, "string"},
	{"substr_count", 2, 4, "int"},
	{"sprintf", 1, -1, "string"},
	{"printf", 1, -1, "int"},
	{"vsprintf", 2, 2, "string"},
	{"number_format", 1, 4, "string"},
	{"implode", 1, 2, "string"},
	{"explode", 2, 3, "array"},
	{"nl2br", 1, 2, "string"},
	{"htmlspecialchars", 1, 4, "string"},
	{"addslashes", 1, 1, "string"},
	{"md5", 1, 2, "string"},
	{"sha1", 1, 2, "string"},
	{"base64_encode", 1, 1, "string"},
	{"base64_decode", 1, 2, "string|false"},
	{"urlencode", 1, 1, "string"},
	{"preg_match", 2, 5, "int|false"},
	{"preg_match_all", 2, 5, "int|false"},
	{"preg_replace", 3, 5, "string|array|null"},
	{"preg_split", 2, 4, "array|false"},
	{"preg_quote", 1, 2, "string"},
	{"parse_str", 2, 2, "void"},
	{"mb_strlen", 1, 2, "int"},
	{"mb_substr", 2, 4, "string"},
	{"mb_strtolower", 1, 2, "string"},
	{"mb_strtoupper", 1, 2, "string"},

	// arrays
	{"count", 1, 2, "int"},
	{"array_keys", 1, 3, "array"},
	{"array_values", 1, 1, "array"},
	{"array_merge", 0, -1, "array"},
	{"array_map", 2, -1, "array"},
	{"array_filter", 1, 3, "array"},
	{"array_reduce", 2, 3, "mixed"},
	{"array_key_exists", 2, 2, "bool"},
	{"array_search", 2, 3, "int|string|false"},
	{"array_slice", 2, 4, "array"},
	{"array_splice", 2, 4, "array"},
	{"array_push", 1, -1, "int"},
	{"array_pop", 1, 1, "mixed"},
	{"array_shift", 1, 1, "mixed"},
	{"array_unshift", 1, -1, "int"},
	{"array_reverse", 1, 2, "array"},
	{"array_unique", 1, 2, "array"},
	{"array_flip", 1, 1, "array"},
	{"array_fill", 3, 3, "array"},
	{"array_combine", 2, 2, "array"},
	{"array_column", 2, 3, "array"},
	{"array_sum", 1, 1, "int|float"},
	{"array_diff", 1, -1, "array"},
	{"array_intersect", 1, -1, "array"},
	{"in_array", 2, 3, "bool"},
	{"range", 2, 3, "array"},
	{"sort", 1, 2, "bool"},
	{"rsort", 1, 2, "bool"},
	{"usort", 2, 2, "bool"},
	{"uasort", 2, 2, "bool"},
	{"ksort", 1, 2, "bool"},
	{"asort", 1, 2, "bool"},
	{"compact", 1, -1, "array"},
	{"extract", 1, 3, "int"},
	{"min", 1, -1, "mixed"},
	{"max", 1, -1, "mixed"},

	// math
	{"abs", 1, 1, "int|float"},
	{"floor", 1, 1, "float"},
	{"ceil", 1, 1, "float"},
	{"round", 1, 3, "float"},
	{"sqrt", 1, 1, "float"},
	{"pow", 2, 2, "int|float"},
	{"intdiv", 2, 2, "int"},
	{"rand", 0, 2, "int"},
	{"mt_rand", 0, 2, "int"},
	{"random_int", 2, 2, "int"},

	// types
	{"is_int", 1, 1, "bool"},
	{"is_integer", 1, 1, "bool"},
	{"is_float", 1, 1, "bool"},
	{"is_double", 1, 1, "bool"},
	{"is_long", 1, 1, "bool"},
	{"is_string", 1, 1, "bool"},
	{"is_bool", 1, 1, "bool"},
	{"is_array", 1, 1, "bool"},
	{"is_object", 1, 1, "bool"},
	{"is_null", 1, 1, "bool"},
	{"is_numeric", 1, 1, "bool"},
	{"is_callable", 1, 3, "bool"},
	{"is_iterable", 1, 1, "bool"},
	{"intval", 1, 2, "int"},
	{"floatval", 1, 1, "float"},
	{"strval", 1, 1, "string"},
	{"boolval", 1, 1, "bool"},
	{"gettype", 1, 1, "string"},
	{"get_class", 0, 1, "string"},
	{"get_object_vars", 1, 1, "array"},
	{"method_exists", 2, 2, "bool"},
	{"property_exists", 2, 2, "bool"},
	{"class_exists", 1, 2, "bool"},
	{"function_exists", 1, 1, "bool"},
	{"defined", 1, 1, "bool"},
	{"define", 2, 3, "bool"},
	{"constant", 1, 1, "mixed"},

	// misc
	{"json_encode", 1, 3, "string|false"},
	{"json_decode", 1, 4, "mixed"},
	{"serialize", 1, 1, "string"},
	{"unserialize", 1, 2, "mixed"},
	{"var_dump", 1, -1, "void"},
	{"var_export", 1, 2, "string|null"},
	{"print_r", 1, 2, "string|bool"},
	{"error_log", 1, 4, "bool"},
	{"trigger_error", 1, 2, "bool"},
	{"time", 0, 0, "int"},
	{"microtime", 0, 1, "string|float"},
	{"date", 1, 2, "string"},
	{"strtotime", 1, 2, "int|false"},
	{"mktime", 0, 6, "int|false"},
	{"sleep", 1, 1, "int"},
	{"usleep", 1, 1, "void"},
	{"uniqid", 0, 2, "string"},
	{"call_user_func", 1, -1, "mixed"},
	{"call_user_func_array", 2, 2, "mixed"},
	{"func_get_args", 0, 0, "array"},
	{"spl_autoload_register", 0, 3, "bool"},
	{"file_get_contents", 1, 5, "string|false"},
	{"file_put_contents", 2, 4, "int|false"},
	{"file_exists", 1, 1, "bool"},
	{"is_file", 1, 1, "bool"},
	{"is_dir", 1, 1, "bool"},
	{"fopen", 2, 4, "mixed"},
	{"fclose", 1, 1, "bool"},
	{"fwrite", 2, 3, "int|false"},
	{"fgets", 1, 2, "string|false"},
	{"dirname", 1, 2, "string"},
	{"basename", 1, 2, "string"},
	{"realpath", 1, 1, "string|false"},
	{"getenv", 0, 2, "string|array|false"},
	{"header", 1, 3, "void"},
	{"exec", 1, 3, "string|false"},
	{"session_start", 0, 1, "bool"},
	{"ob_start", 0, 3, "bool"},
	{"ob_get_clean", 0, 0, "string|false"},
}

type builtinConst struct {
	name string
	val  *value.Value
	typ  string
}

var builtinConstants = []builtinConst{
	{"PHP_EOL", value.String("\n"), ""},
	{"PHP_INT_MAX", value.Int(math.MaxInt64), ""},
	{"PHP_INT_MIN", value.Int(math.MinInt64), ""},
	{"PHP_INT_SIZE", value.Int(8), ""},
	{"PHP_FLOAT_EPSILON", value.Float(math.SmallestNonzeroFloat64), ""},
	{"PHP_FLOAT_MAX", value.Float(math.MaxFloat64), ""},
	{"PHP_VERSION", nil, "string"},
	{"PHP_OS", nil, "string"},
	{"PHP_OS_FAMILY", nil, "string"},
	{"DIRECTORY_SEPARATOR", value.String("/"), ""},
	{"PATH_SEPARATOR", value.String(":"), ""},
	{"NAN", value.Float(math.NaN()), ""},
	{"INF", value.Float(math.Inf(1)), ""},
	{"M_PI", value.Float(math.Pi), ""},
	{"M_E", value.Float(math.E), ""},
	{"E_ERROR", value.Int(1), ""},
	{"E_WARNING", value.Int(2), ""},
	{"E_NOTICE", value.Int(8), ""},
	{"E_USER_ERROR", value.Int(256), ""},
	{"E_USER_WARNING", value.Int(512), ""},
	{"E_USER_NOTICE", value.Int(1024), ""},
	{"E_STRICT", value.Int(2048), ""},
	{"E_DEPRECATED", value.Int(8192), ""},
	{"E_USER_DEPRECATED", value.Int(16384), ""},
	{"E_ALL", value.Int(32767), ""},
	{"SORT_REGULAR", value.Int(0), ""},
	{"SORT_NUMERIC", value.Int(1), ""},
	{"SORT_STRING", value.Int(2), ""},
	{"COUNT_RECURSIVE", value.Int(1), ""},
	{"ARRAY_FILTER_USE_BOTH", value.Int(1), ""},
	{"ARRAY_FILTER_USE_KEY", value.Int(2), ""},
	{"STR_PAD_LEFT", value.Int(0), ""},
	{"STR_PAD_RIGHT", value.Int(1), ""},
	{"STR_PAD_BOTH", value.Int(2), ""},
	{"ENT_QUOTES", value.Int(3), ""},
	{"PREG_SPLIT_NO_EMPTY", value.Int(1), ""},
	{"JSON_UNESCAPED_SLASHES", value.Int(64), ""},
	{"JSON_PRETTY_PRINT", value.Int(128), ""},
	{"JSON_UNESCAPED_UNICODE", value.Int(256), ""},
	{"JSON_THROW_ON_ERROR", value.Int(4194304), ""},
}

type builtinClass struct {
	name       string
	kind       ClassKind
	extends    string
	implements []string
	methods    []builtinFunc
}

var throwableMethods = []builtinFunc{
	{"getMessage", 0, 0, "string"},
	{"getCode", 0, 0, "int"},
	{"getPrevious", 0, 0, "?Throwable"},
	{"getFile", 0, 0, "string"},
	{"getLine", 0, 0, "int"},
	{"getTrace", 0, 0, "array"},
	{"getTraceAsString", 0, 0, "string"},
	{"__toString", 0, 0, "string"},
}

var builtinClasses = []builtinClass{
	{name: "Traversable", kind: KindInterface},
	{name: "Iterator", kind: KindInterface, implements: []string{"Traversable"}, methods: []builtinFunc{
		{"current", 0, 0, "mixed"}, {"key", 0, 0, "mixed"}, {"next", 0, 0, "void"},
		{"rewind", 0, 0, "void"}, {"valid", 0, 0, "bool"},
	}},
	{name: "IteratorAggregate", kind: KindInterface, implements: []string{"Traversable"}, methods: []builtinFunc{
		{"getIterator", 0, 0, "Traversable"},
	}},
	{name: "Countable", kind: KindInterface, methods: []builtinFunc{{"count", 0, 0, "int"}}},
	{name: "ArrayAccess", kind: KindInterface, methods: []builtinFunc{
		{"offsetExists", 1, 1, "bool"}, {"offsetGet", 1, 1, "mixed"},
		{"offsetSet", 2, 2, "void"}, {"offsetUnset", 1, 1, "void"},
	}},
	{name: "Stringable", kind: KindInterface, methods: []builtinFunc{{"__toString", 0, 0, "string"}}},
	{name: "JsonSerializable", kind: KindInterface, methods: []builtinFunc{{"jsonSerialize", 0, 0, "mixed"}}},
	{name: "Throwable", kind: KindInterface, implements: []string{"Stringable"}, methods: throwableMethods},
	{name: "Exception", implements: []string{"Throwable"}, methods: append([]builtinFunc{
		{"__construct", 0, 3, "void"},
	}, throwableMethods...)},
	{name: "Error", implements: []string{"Throwable"}, methods: append([]builtinFunc{
		{"__construct", 0, 3, "void"},
	}, throwableMethods...)},
	{name: "TypeError", extends: "Error"},
	{name: "ValueError", extends: "Error"},
	{name: "ArithmeticError", extends: "Error"},
	{name: "DivisionByZeroError", extends: "ArithmeticError"},
	{name: "ErrorException", extends: "Exception"},
	{name: "LogicException", extends: "Exception"},
	{name: "InvalidArgumentException", extends: "LogicException"},
	{name: "DomainException", extends: "LogicException"},
	{name: "LengthException", extends: "LogicException"},
	{name: "OutOfRangeException", extends: "LogicException"},
	{name: "RuntimeException", extends: "Exception"},
	{name: "OutOfBoundsException", extends: "RuntimeException"},
	{name: "OverflowException", extends: "RuntimeException"},
	{name: "UnexpectedValueException", extends: "RuntimeException"},
	{name: "JsonException", extends: "Exception"},
	{name: "stdClass"},
	{name: "Closure", methods: []builtinFunc{
		{"bind", 2, 3, "?Closure"}, {"bindTo", 1, 2, "?Closure"}, {"call", 1, -1, "mixed"},
		{"fromCallable", 1, 1, "Closure"},
	}},
	{name: "ArrayIterator", implements: []string{"Iterator", "Countable", "ArrayAccess"}, methods: []builtinFunc{
		{"__construct", 0, 2, "void"}, {"getArrayCopy", 0, 0, "array"},
	}},
	{name: "ArrayObject", implements: []string{"IteratorAggregate", "Countable", "ArrayAccess"}, methods: []builtinFunc{
		{"__construct", 0, 3, "void"}, {"getArrayCopy", 0, 0, "array"}, {"append", 1, 1, "void"},
	}},
	{name: "DateTimeInterface", kind: KindInterface, methods: []builtinFunc{
		{"format", 1, 1, "string"}, {"getTimestamp", 0, 0, "int"},
	}},
	{name: "DateTime", implements: []string{"DateTimeInterface"}, methods: []builtinFunc{
		{"__construct", 0, 2, "void"}, {"modify", 1, 1, "DateTime|false"},
		{"setTimestamp", 1, 1, "DateTime"},
	}},
	{name: "DateTimeImmutable", implements: []string{"DateTimeInterface"}, methods: []builtinFunc{
		{"__construct", 0, 2, "void"}, {"modify", 1, 1, "DateTimeImmutable|false"},
		{"setTimestamp", 1, 1, "DateTimeImmutable"},
	}},
}

// NewBuiltinTable returns a table holding the declarations of the PHP
// standard library the analyzer knows about.
func NewBuiltinTable() *Table {
	t := NewTable()
	t.AddBuiltins()
	return t
}

// AddBuiltins inserts the standard library declarations into t.
func (t *Table) AddBuiltins() {
	for _, b := range builtinFunctions {
		fn := b.symbol(names.FQN(names.Name(b.name)))
		t.InsertFunction(fn)
	}
	for _, b := range builtinConstants {
		k := &ConstantSymbol{
			Name:    names.FQN(names.Name(b.name)),
			Value:   b.val,
			Builtin: true,
		}
		if b.val != nil {
			k.Type = b.val.UnionType()
		} else {
			k.Type = mustParse(b.typ)
		}
		t.InsertConstant(k)
	}
	for _, b := range builtinClasses {
		fq := names.FQN(names.Name(b.name))
		c := NewClass(fq, b.kind)
		c.Builtin = true
		if b.extends != "" {
			c.Extends = []names.FullyQualifiedName{names.FQN(names.Name(b.extends))}
		}
		for _, i := range b.implements {
			c.Implements = append(c.Implements, names.FQN(names.Name(i)))
		}
		for _, m := range b.methods {
			c.AddMethod(m.symbol(fq.Join(names.Name(m.name))))
		}
		t.InsertClass(c)
	}
}

func (b builtinFunc) symbol(name names.FullyQualifiedName) *FunctionSymbol {
	fn := &FunctionSymbol{
		Name:       name,
		ReturnType: mustParse(b.ret),
		Builtin:    true,
	}
	n := b.max
	if n < 0 {
		n = b.min
	}
	for i := 0; i < n; i++ {
		fn.Params = append(fn.Params, Param{
			Name:     names.Name(fmt.Sprintf("arg%d", i+1)),
			Optional: i >= b.min,
		})
	}
	if b.max < 0 {
		fn.Params = append(fn.Params, Param{Name: "rest", Variadic: true, Optional: true})
	}
	return fn
}

// mustParse parses a type of the builtin tables.  They are static so a
// failure is a programming error.
func mustParse(s string) *types.UnionType {
	if s == "" {
		return nil
	}
	u, err := types.Parse(s, nil, names.FullyQualifiedName{})
	if err != nil {
		panic(fmt.Sprintf("builtin type %q: %v", s, err))
	}
	return u
}
