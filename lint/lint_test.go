// Copyright © 2024 The ELPS authors

package lint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luthersystems/phpsema/issue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lintSource runs all default analyzers on the given source and returns diagnostics.
func lintSource(t *testing.T, source string) []Diagnostic {
	t.Helper()
	l := &Linter{Analyzers: DefaultAnalyzers()}
	diags, err := l.LintFile(context.Background(), []byte(source), "test.php")
	require.NoError(t, err)
	return diags
}

// lintCheck runs a single analyzer on the given source.
func lintCheck(t *testing.T, analyzer *Analyzer, source string) []Diagnostic {
	t.Helper()
	l := &Linter{Analyzers: []*Analyzer{analyzer}}
	diags, err := l.LintFile(context.Background(), []byte(source), "test.php")
	require.NoError(t, err)
	return diags
}

func byName(t *testing.T, name string) *Analyzer {
	t.Helper()
	as, err := Select(DefaultAnalyzers(), []string{name})
	require.NoError(t, err)
	require.Len(t, as, 1)
	return as[0]
}

// assertDiagOnLine checks that a diagnostic exists on the given line with the given substring.
func assertDiagOnLine(t *testing.T, diags []Diagnostic, line int, substr string) {
	t.Helper()
	for _, d := range diags {
		if d.Pos.Line == line && strings.Contains(d.Message, substr) {
			return
		}
	}
	var msgs []string
	for _, d := range diags {
		msgs = append(msgs, fmt.Sprintf("line %d: %s", d.Pos.Line, d.Message))
	}
	t.Errorf("expected diagnostic on line %d containing %q, got: %v", line, substr, msgs)
}

func analyzersOf(diags []Diagnostic) []string {
	var out []string
	for _, d := range diags {
		out = append(out, d.Analyzer)
	}
	return out
}

func TestSemanticAnalyzers_CoverEveryKind(t *testing.T) {
	as := SemanticAnalyzers()
	require.Len(t, as, len(issue.Kinds()))
	for i, k := range issue.Kinds() {
		assert.Equal(t, k.String(), as[i].Name)
		assert.Equal(t, k.Severity(), as[i].Severity)
		assert.NotEmpty(t, as[i].Doc, k.String())
	}
}

func TestDefaultAnalyzers_UniqueNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, a := range DefaultAnalyzers() {
		assert.False(t, seen[a.Name], "duplicate analyzer %s", a.Name)
		seen[a.Name] = true
		assert.NotEmpty(t, a.Doc, a.Name)
	}
}

func TestLint_CleanFile(t *testing.T) {
	diags := lintSource(t, `<?php
function add(int $a, int $b): int {
    return $a + $b;
}
echo add(1, 2);
`)
	assert.Empty(t, diags)
}

func TestLint_SemanticIssues(t *testing.T) {
	diags := lintSource(t, `<?php
foo();
echo $nope;
function f() {
    $unused = 1;
}
`)
	assertDiagOnLine(t, diags, 2, "Unknown function foo")
	assertDiagOnLine(t, diags, 3, "Unknown variable $nope")
	assertDiagOnLine(t, diags, 5, "Unused variable $unused")
	assert.Equal(t, []string{"unknown-function", "unknown-variable", "unused-variable"}, analyzersOf(diags))

	for _, d := range diags {
		if d.Analyzer == "unused-variable" {
			assert.Equal(t, issue.SeverityWarning, d.Severity)
		} else {
			assert.Equal(t, issue.SeverityError, d.Severity)
		}
		assert.Equal(t, "test.php", d.Pos.File)
	}
}

func TestLint_SingleCheck(t *testing.T) {
	diags := lintCheck(t, byName(t, "unknown-variable"), "<?php\nfoo();\necho $nope;\n")
	require.Len(t, diags, 1)
	assert.Equal(t, "unknown-variable", diags[0].Analyzer)
	assert.Equal(t, 3, diags[0].Pos.Line)
	assert.Equal(t, 6, diags[0].Pos.Col)
}

func TestSyntaxError(t *testing.T) {
	diags := lintCheck(t, AnalyzerSyntaxError, "<?php\n$x = ;\n")
	require.NotEmpty(t, diags)
	assert.Equal(t, 2, diags[0].Pos.Line)
	assert.Contains(t, diags[0].Message, "syntax error")
}

func TestEmptyCatch(t *testing.T) {
	diags := lintCheck(t, AnalyzerEmptyCatch, `<?php
try {
    risky();
} catch (Exception $e) {
}
try {
    risky();
} catch (Exception $e) {
    // ignored on purpose
}
`)
	require.Len(t, diags, 1)
	assert.Equal(t, 4, diags[0].Pos.Line)
	assert.Equal(t, issue.SeverityWarning, diags[0].Severity)
}

func TestClosingTag(t *testing.T) {
	diags := lintCheck(t, AnalyzerClosingTag, "<?php\necho 1;\n?>\n")
	require.Len(t, diags, 1)
	assert.Equal(t, 3, diags[0].Pos.Line)

	diags = lintCheck(t, AnalyzerClosingTag, "<?php\necho 1;\n")
	assert.Empty(t, diags)

	diags = lintCheck(t, AnalyzerClosingTag, "<?php echo 1; ?>\n<p>html</p>\n")
	assert.Empty(t, diags)
}

func TestNolint_SuppressAll(t *testing.T) {
	diags := lintSource(t, "<?php\nfoo(); // nolint\necho $nope;\n")
	assert.Equal(t, []string{"unknown-variable"}, analyzersOf(diags))
}

func TestNolint_HashComment(t *testing.T) {
	diags := lintSource(t, "<?php\nfoo(); # nolint:unknown-function\n")
	assert.Empty(t, diags)
}

func TestNolint_SpecificCheck(t *testing.T) {
	diags := lintSource(t, "<?php\nfoo($nope); // nolint:unknown-variable\n")
	assert.Equal(t, []string{"unknown-function"}, analyzersOf(diags))
}

func TestNolint_NotSuppressedOnOtherLine(t *testing.T) {
	diags := lintSource(t, "<?php\n// nolint\nfoo();\n")
	assertDiagOnLine(t, diags, 3, "Unknown function foo")
}

func TestUnusedNolint_Unused(t *testing.T) {
	diags := lintSource(t, "<?php\necho 1; // nolint\n")
	require.Len(t, diags, 1)
	assert.Equal(t, "unused-nolint", diags[0].Analyzer)
	assert.Equal(t, 2, diags[0].Pos.Line)
}

func TestUnusedNolint_Used(t *testing.T) {
	diags := lintSource(t, "<?php\nfoo(); // nolint:unknown-function\n")
	assert.Empty(t, diags)
}

func TestUnusedNolint_UnknownAnalyzer(t *testing.T) {
	diags := lintSource(t, "<?php\nfoo(); // nolint:unknown-function,no-such-check\n")
	require.Len(t, diags, 1)
	assert.Equal(t, "unused-nolint", diags[0].Analyzer)
	assert.Contains(t, diags[0].Message, "no-such-check")
}

func TestUnusedNolint_PartiallyUsed(t *testing.T) {
	diags := lintSource(t, "<?php\nfoo(); // nolint:unknown-function,unknown-variable\n")
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "unknown-variable")
	assert.NotContains(t, diags[0].Message, "unknown-function")
}

func TestUnusedNolint_SelfSuppression(t *testing.T) {
	diags := lintSource(t, "<?php\necho 1; // nolint:unused-nolint\n")
	assert.Empty(t, diags)
}

func TestUnusedNolint_HasNotes(t *testing.T) {
	diags := lintSource(t, "<?php\necho 1; // nolint\n")
	require.Len(t, diags, 1)
	assert.NotEmpty(t, diags[0].Notes)
	assert.Contains(t, diags[0].String(), "= note:")
}

func TestSelect(t *testing.T) {
	as, err := Select(DefaultAnalyzers(), []string{"unused-variable", "syntax-error"})
	require.NoError(t, err)
	require.Len(t, as, 2)
	assert.Equal(t, "syntax-error", as[0].Name)
	assert.Equal(t, "unused-variable", as[1].Name)

	_, err = Select(DefaultAnalyzers(), []string{"nope", "also-nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "also-nope, nope")
}

func TestFormatText(t *testing.T) {
	var buf bytes.Buffer
	FormatText(&buf, []Diagnostic{{
		Pos:      Position{File: "a.php", Line: 3, Col: 5},
		Message:  "Unknown function foo",
		Analyzer: "unknown-function",
	}})
	assert.Equal(t, "a.php:3:5: Unknown function foo (unknown-function)\n", buf.String())
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(&buf, []Diagnostic{{
		Pos:      Position{File: "a.php", Line: 3},
		Message:  "m",
		Analyzer: "unused-variable",
		Severity: issue.SeverityWarning,
	}}))
	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "warning", got[0]["severity"])
	assert.Equal(t, "unused-variable", got[0]["analyzer"])
	assert.NotContains(t, got[0], "notes")
}

func TestPosition_String(t *testing.T) {
	assert.Equal(t, "a.php", Position{File: "a.php"}.String())
	assert.Equal(t, "a.php:2", Position{File: "a.php", Line: 2}.String())
	assert.Equal(t, "a.php:2:7", Position{File: "a.php", Line: 2, Col: 7}.String())
}

func TestLintFiles_Workspace(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.php")
	app := filepath.Join(dir, "app.php")
	require.NoError(t, os.WriteFile(lib, []byte("<?php\nfunction helper($x) { return $x; }\n"), 0o600))
	require.NoError(t, os.WriteFile(app, []byte("<?php\necho helper(1);\necho missing();\n"), 0o600))

	l := &Linter{Analyzers: DefaultAnalyzers()}
	diags, err := l.LintFiles(context.Background(), []string{lib, app}, 2)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, app, diags[0].Pos.File)
	assert.Equal(t, 3, diags[0].Pos.Line)
	assert.Equal(t, "unknown-function", diags[0].Analyzer)
}

func TestLintFiles_FileNotFound(t *testing.T) {
	l := &Linter{Analyzers: DefaultAnalyzers()}
	_, err := l.LintFiles(context.Background(), []string{filepath.Join(t.TempDir(), "nope.php")}, 1)
	assert.Error(t, err)
}

func TestUnusedNolint_CheckNotSelected(t *testing.T) {
	l := &Linter{Analyzers: []*Analyzer{byName(t, "unknown-variable"), AnalyzerUnusedNolint}}
	diags, err := l.LintFile(context.Background(), []byte("<?php\nfoo(); // nolint:unknown-function\n"), "test.php")
	require.NoError(t, err)
	assert.Empty(t, diags)
}
