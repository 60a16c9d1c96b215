// Copyright © 2024 The ELPS authors

package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/parser"
	"github.com/luthersystems/phpsema/types"
	"github.com/luthersystems/phpsema/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func parse(t *testing.T, src string) *ast.Node {
	t.Helper()
	root, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	return root
}

func analyze(t *testing.T, src string) *Result {
	t.Helper()
	res, err := Analyze(context.Background(), parse(t, src), &Config{Filename: "test.php"})
	require.NoError(t, err)
	return res
}

func ofKind(issues []issue.Issue, k issue.Kind) []issue.Issue {
	var out []issue.Issue
	for _, i := range issues {
		if i.Kind == k {
			out = append(out, i)
		}
	}
	return out
}

func topVar(t *testing.T, res *Result, name string) *VarData {
	t.Helper()
	v, ok := res.Scope.Lookup(name)
	require.True(t, ok, "variable $%s", name)
	return v
}

func TestAnalyze_FoldsArithmetic(t *testing.T) {
	res := analyze(t, "<?php\n$x = 1 + 2;\n$y = $x * 2;\n$s = 'a' . $y;\n")
	assert.Empty(t, res.Issues)
	x := topVar(t, res, "x")
	require.NotNil(t, x.Value)
	assert.Equal(t, int64(3), x.Value.Int)
	assert.True(t, x.Type.Equal(types.New(types.Int)))
	assert.Equal(t, int64(6), topVar(t, res, "y").Value.Int)
	assert.Equal(t, "a6", topVar(t, res, "s").Value.Str)
}

func TestAnalyze_IntegerDivisionByMinusOne(t *testing.T) {
	res := analyze(t, "<?php\n$x = 6 / -1;\n$y = 7 / -1;\n")
	x := topVar(t, res, "x")
	require.NotNil(t, x.Value)
	assert.Equal(t, value.KindInt, x.Value.Kind)
	assert.Equal(t, int64(-6), x.Value.Int)
	assert.True(t, x.Type.Equal(types.New(types.Int)))
	y := topVar(t, res, "y")
	require.NotNil(t, y.Value)
	assert.Equal(t, int64(-7), y.Value.Int)
}

func TestAnalyze_PowerFolding(t *testing.T) {
	res := analyze(t, `<?php
$odd = (-1) ** 20000000001;
$even = (-1) ** 20000000000;
$big = 2 ** 62;
$over = 2 ** 64;
$zero = 0 ** 0;
`)
	for name, want := range map[string]int64{"odd": -1, "even": 1, "big": 1 << 62, "zero": 1} {
		v := topVar(t, res, name)
		require.NotNil(t, v.Value, name)
		assert.Equal(t, value.KindInt, v.Value.Kind, name)
		assert.Equal(t, want, v.Value.Int, name)
	}
	over := topVar(t, res, "over")
	require.NotNil(t, over.Value)
	assert.Equal(t, value.KindFloat, over.Value.Kind)
	assert.Equal(t, 18446744073709551616.0, over.Value.Float)
}

func TestAnalyze_UnknownTernary(t *testing.T) {
	res := analyze(t, "<?php\n$x = $_GET ? 1 : \"s\";\n")
	assert.Empty(t, ofKind(res.Issues, issue.UnreachableCode))
	x := topVar(t, res, "x")
	assert.True(t, x.Type.Equal(types.New(types.Int, types.String)))
	assert.Nil(t, x.Value)
}

func TestAnalyze_DeadTernary(t *testing.T) {
	res := analyze(t, `<?php
$x = true ? 1 : "s";
$y = false ? 1 : "s";
`)
	dead := ofKind(res.Issues, issue.UnreachableCode)
	require.Len(t, dead, 2)
	SortIssues(dead)
	assert.Equal(t, 2, dead[0].Range.Line())
	assert.Equal(t, 17, dead[0].Range.Col())
	assert.Equal(t, 3, dead[1].Range.Line())
	assert.Equal(t, 14, dead[1].Range.Col())

	x := topVar(t, res, "x")
	assert.True(t, x.Type.Equal(types.New(types.Int)))
	require.NotNil(t, x.Value)
	assert.Equal(t, int64(1), x.Value.Int)
	y := topVar(t, res, "y")
	assert.True(t, y.Type.Equal(types.New(types.String)))
	require.NotNil(t, y.Value)
	assert.Equal(t, "s", y.Value.Str)
}

func TestAnalyze_JoinsBranches(t *testing.T) {
	res := analyze(t, `<?php
if ($_GET) {
    $x = 1;
} else {
    $x = "a";
}
echo $x;
`)
	assert.Empty(t, res.Issues)
	x := topVar(t, res, "x")
	assert.True(t, x.Type.Equal(types.New(types.Int, types.String)))
	assert.Nil(t, x.Value)
	assert.False(t, x.Partial)
}

func TestAnalyze_KeepsCommonValue(t *testing.T) {
	res := analyze(t, `<?php
if ($_GET) {
    $x = 2;
} else {
    $x = 2;
}
`)
	x := topVar(t, res, "x")
	require.NotNil(t, x.Value)
	assert.Equal(t, int64(2), x.Value.Int)
}

func TestAnalyze_PartialInitialization(t *testing.T) {
	res := analyze(t, `<?php
if ($_GET) {
    $y = 1;
}
echo $y;
echo $y;
`)
	got := ofKind(res.Issues, issue.VariableNotInitializedInAllBranches)
	require.Len(t, got, 1)
	assert.Equal(t, "y", got[0].Name)
	assert.Equal(t, issue.SeverityWarning, got[0].Severity())
}

func TestAnalyze_DeadBranch(t *testing.T) {
	res := analyze(t, `<?php
if (false) {
    echo 1;
}
if (true) {
    $a = 1;
} else {
    $a = 2;
}
`)
	assert.Len(t, ofKind(res.Issues, issue.UnreachableCode), 2)
	a := topVar(t, res, "a")
	require.NotNil(t, a.Value)
	assert.Equal(t, int64(1), a.Value.Int)
}

func TestAnalyze_DuplicateClassReportedOnce(t *testing.T) {
	res := analyze(t, `<?php
class A {}
class A {}
$a = new A();
`)
	dups := ofKind(res.Issues, issue.DuplicateClass)
	require.Len(t, dups, 1)
	assert.Equal(t, 3, dups[0].Range.Line())
}

func TestAnalyze_ForwardReference(t *testing.T) {
	res := analyze(t, `<?php
$b = new B();
$b->run();
class B {
    public function run(): int { return 1; }
}
`)
	assert.Empty(t, res.Issues)
}

func TestAnalyze_UnusedVariable(t *testing.T) {
	res := analyze(t, `<?php
function f($param) {
    $a = 1;
    $_ignored = 2;
    $used = 3;
    return $used;
}
$top = 1;
`)
	unused := ofKind(res.Issues, issue.UnusedVariable)
	require.Len(t, unused, 1)
	assert.Equal(t, "a", unused[0].Name)
	assert.Equal(t, 3, unused[0].Range.Line())
}

func TestAnalyze_UnknownSymbols(t *testing.T) {
	res := analyze(t, `<?php
foo();
echo $nope;
echo NOPE;
$x = new Missing();
`)
	require.Len(t, ofKind(res.Issues, issue.UnknownFunction), 1)
	assert.Equal(t, "foo", ofKind(res.Issues, issue.UnknownFunction)[0].Name)
	require.Len(t, ofKind(res.Issues, issue.UnknownVariable), 1)
	assert.Equal(t, "nope", ofKind(res.Issues, issue.UnknownVariable)[0].Name)
	assert.Len(t, ofKind(res.Issues, issue.UnknownConstant), 1)
	assert.Len(t, ofKind(res.Issues, issue.UnknownClass), 1)
}

func TestAnalyze_Arity(t *testing.T) {
	res := analyze(t, `<?php
function g($a, $b = 1) { return $a + $b; }
g();
g(1);
g(1, 2);
g(1, 2, 3);
`)
	got := ofKind(res.Issues, issue.WrongNumberOfArguments)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Got)
	assert.Equal(t, 1, got[0].Expected)
	assert.Equal(t, 3, got[1].Got)
	assert.Equal(t, 2, got[1].Expected)
}

func TestAnalyze_NameCasing(t *testing.T) {
	res := analyze(t, `<?php
function myFunc() {}
class MyClass {}
MYFUNC();
$c = new myclass();
`)
	fn := ofKind(res.Issues, issue.WrongFunctionNameCasing)
	require.Len(t, fn, 1)
	assert.Equal(t, "MYFUNC", fn[0].Name)
	assert.Equal(t, "myFunc", fn[0].Text)
	assert.Len(t, ofKind(res.Issues, issue.WrongClassNameCasing), 1)
}

func TestAnalyze_MethodCalls(t *testing.T) {
	res := analyze(t, `<?php
class C {
    public function m(): int { return 1; }
}
function h($x) {
    return $x->foo();
}
$c = new C();
$c->m();
$c->n();
`)
	unknown := ofKind(res.Issues, issue.MethodCallOnUnknownType)
	require.Len(t, unknown, 1)
	assert.Equal(t, "foo", unknown[0].Name)
	missing := ofKind(res.Issues, issue.UnknownMethod)
	require.Len(t, missing, 1)
	assert.Equal(t, "n", missing[0].Name)
	assert.Equal(t, `\C`, missing[0].Class)
}

func TestAnalyze_NullableHardening(t *testing.T) {
	res := analyze(t, `<?php
class C {
    public function m() {}
}
function a(?C $c) {
    $c->m();
}
function b(?C $c) {
    if ($c !== null) {
        $c->m();
    }
}
function d(?C $c) {
    if ($c) {
        $c->m();
    }
}
`)
	got := ofKind(res.Issues, issue.MethodCallOnNullableType)
	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].Range.Line())
}

func TestAnalyze_TypeChecksNarrow(t *testing.T) {
	res := analyze(t, `<?php
$a = $_GET ? 1 : null;
if (is_null($a)) {
    $n = $a;
} else {
    $m = $a;
}
if ($a) {
    $t = $a;
}
`)
	a := topVar(t, res, "a")
	assert.True(t, a.Type.Equal(types.New(types.Int, types.Null)))
	n := topVar(t, res, "n")
	assert.True(t, n.Type.Equal(types.New(types.Null)))
	m := topVar(t, res, "m")
	assert.True(t, m.Type.Equal(types.New(types.Int)))
	tv := topVar(t, res, "t")
	assert.True(t, tv.Type.Equal(types.New(types.Int)))
	assert.True(t, tv.Partial)
}

func TestAnalyze_LoopWidening(t *testing.T) {
	res := analyze(t, `<?php
$i = 0;
while ($i < 10) {
    $i = $i + 1;
}
`)
	assert.Empty(t, res.Issues)
	i := topVar(t, res, "i")
	assert.Nil(t, i.Value)
	assert.True(t, i.Type.ContainsKind(types.KindInt))
}

func TestAnalyze_LoopReadsLaterAssignment(t *testing.T) {
	res := analyze(t, `<?php
for ($i = 0; $i < 3; $i++) {
    if ($i > 0) {
        echo $prev;
    }
    $prev = $i;
}
`)
	assert.Empty(t, ofKind(res.Issues, issue.UnknownVariable))
}

func TestAnalyze_Constants(t *testing.T) {
	res := analyze(t, `<?php
const A = 2;
define('B', 'x');
class K {
    const V = A + 3;
}
$x = A * 3;
$y = B;
$z = K::V;
$w = K::W;
$n = K::class;
`)
	assert.Equal(t, int64(6), topVar(t, res, "x").Value.Int)
	assert.Equal(t, "x", topVar(t, res, "y").Value.Str)
	assert.Equal(t, int64(5), topVar(t, res, "z").Value.Int)
	assert.Equal(t, "K", topVar(t, res, "n").Value.Str)
	got := ofKind(res.Issues, issue.UnknownClassConstant)
	require.Len(t, got, 1)
	assert.Equal(t, "W", got[0].Name)
}

func TestAnalyze_ConditionalConstant(t *testing.T) {
	res := analyze(t, `<?php
if ($_GET) {
    define('C', 1);
}
`)
	got := ofKind(res.Issues, issue.ConditionalConstantDeclaration)
	require.Len(t, got, 1)
	assert.Equal(t, issue.SeverityHint, got[0].Severity())
}

func TestAnalyze_Closures(t *testing.T) {
	res := analyze(t, `<?php
$a = 1;
$f = function ($b) use ($a) {
    return $a + $b;
};
$g = fn($b) => $a + $b;
echo $f(1) + $g(2);
`)
	assert.Empty(t, ofKind(res.Issues, issue.UnknownVariable))
	f := topVar(t, res, "f")
	assert.True(t, f.Type.Equal(types.New(types.Object(closureClass))))
}

func TestAnalyze_CallableVariables(t *testing.T) {
	res := analyze(t, `<?php
function k($cb) {
    return $cb();
}
$n = 5;
$n();
`)
	assert.Len(t, ofKind(res.Issues, issue.NotAVerifiedCallableVariable), 1)
	assert.Len(t, ofKind(res.Issues, issue.NotACallableVariable), 1)
}

func TestAnalyze_Foreach(t *testing.T) {
	res := analyze(t, `<?php
foreach ([1, 2] as $k => $v) {
    echo $k, $v;
}
$n = 5;
foreach ($n as $item) {
    echo $item;
}
`)
	assert.Empty(t, ofKind(res.Issues, issue.UnknownVariable))
	assert.Len(t, ofKind(res.Issues, issue.TraversalOfUnknownType), 1)
}

func TestAnalyze_TryCatch(t *testing.T) {
	res := analyze(t, `<?php
try {
    $r = 1;
} catch (Exception $e) {
    echo $e->getMessage();
} catch (Nope $e) {
}
`)
	got := ofKind(res.Issues, issue.UnknownClass)
	require.Len(t, got, 1)
	assert.Equal(t, `\Nope`, got[0].Name)
}

func TestAnalyze_IncrementOnArray(t *testing.T) {
	res := analyze(t, "<?php\n$arr = [];\n$arr++;\n$i = 1;\n$i++;\n")
	assert.Len(t, ofKind(res.Issues, issue.IncrementIsIllegalOnType), 1)
	assert.Equal(t, int64(2), topVar(t, res, "i").Value.Int)
}

func TestAnalyze_Switch(t *testing.T) {
	res := analyze(t, `<?php
switch ($_GET) {
    case 1:
        $s = 'a';
        break;
    default:
        $s = 'b';
}
echo $s;
`)
	assert.Empty(t, res.Issues)
	assert.True(t, topVar(t, res, "s").Type.Equal(types.New(types.String)))
}

func TestAnalyze_Properties(t *testing.T) {
	res := analyze(t, `<?php
interface I {}
class P {
    public int $known = 1;
    public function get(I $i) {
        echo $i->prop;
        return $this->known + $this->missing;
    }
}
`)
	assert.Len(t, ofKind(res.Issues, issue.PropertyAccessOnInterfaceType), 1)
	got := ofKind(res.Issues, issue.UnknownProperty)
	require.Len(t, got, 1)
	assert.Equal(t, "missing", got[0].Name)
}

func TestAnalyze_ReturnsIssuesWithFile(t *testing.T) {
	res := analyze(t, "<?php\necho $nope;\n")
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "test.php", res.Issues[0].File)
	assert.Equal(t, issue.SeverityError, res.Issues[0].Severity())
}

func TestAnalyze_NilRoot(t *testing.T) {
	_, err := Analyze(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoRoot)
}

func TestAnalyze_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Analyze(ctx, parse(t, "<?php echo 1;"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_References(t *testing.T) {
	src := `<?php
function target() {}
class T {}
target();
$t = new T();
`
	res := analyze(t, src)
	ref, ok := ReferenceAt(res.References, uint(strings.Index(src, "target();")))
	require.True(t, ok)
	assert.Equal(t, RefFunction, ref.Kind)
	assert.Equal(t, 2, ref.Target.Range.Line())
	ref, ok = ReferenceAt(res.References, uint(strings.Index(src, "T()")))
	require.True(t, ok)
	assert.Equal(t, RefClass, ref.Kind)
}

func TestLookupAt(t *testing.T) {
	src := "<?php\n$x = 40 + 2;\necho $x;\n$after = 1;\n"
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	cfg := &Config{Filename: "test.php", Tracer: tp.Tracer("test")}

	var got *ast.Node
	var val *value.Value
	found, err := LookupAt(context.Background(), parse(t, src), uint(strings.Index(src, "$x;")), cfg,
		func(n *ast.Node, s *State, path []*ast.Node) {
			got = n
			if v, ok := s.Scope().Lookup("x"); ok {
				val = v.Value
			}
			_, after := s.Scope().Lookup("after")
			assert.False(t, after)
			assert.NotEmpty(t, path)
		})
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, got)
	assert.Equal(t, ast.KindVariableName, got.Kind())
	require.NotNil(t, val)
	assert.Equal(t, int64(42), val.Int)

	var spans []string
	for _, s := range sr.Ended() {
		spans = append(spans, s.Name())
	}
	assert.Contains(t, spans, "lookup")
	assert.Contains(t, spans, "declare")
	assert.Contains(t, spans, "resolve")
	assert.Contains(t, spans, "flow")
}

func TestLookupAt_Miss(t *testing.T) {
	src := "<?php\n$x = 1;\n"
	called := false
	found, err := LookupAt(context.Background(), parse(t, src), uint(len(src)+10), nil,
		func(*ast.Node, *State, []*ast.Node) { called = true })
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, called)
}

func TestResolve_ConstantChainConverges(t *testing.T) {
	res := analyze(t, `<?php
const D = C + 1;
const C = B + 1;
const B = A + 1;
const A = 1;
$d = D;
`)
	assert.Empty(t, res.Issues)
	d := topVar(t, res, "d")
	require.NotNil(t, d.Value)
	assert.Equal(t, int64(4), d.Value.Int)
}
