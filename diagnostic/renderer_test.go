// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/issue"
)

func testRenderer(sources map[string]string) *Renderer {
	return &Renderer{
		Color: ColorNever,
		SourceReader: func(name string) ([]byte, error) {
			s, ok := sources[name]
			if !ok {
				return nil, errors.New("not found: " + name)
			}
			return []byte(s), nil
		},
	}
}

// rng builds a range from 0-based rows and byte columns.  Equal ends give
// an empty range.
func rng(row, col, endRow, endCol uint) ast.Range {
	r := ast.Range{
		Start: ast.Point{Row: row, Column: col},
		End:   ast.Point{Row: endRow, Column: endCol},
	}
	if r.Start != r.End {
		r.EndByte = 1
	}
	return r
}

func render(t *testing.T, r *Renderer, d Diagnostic) string {
	t.Helper()
	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestRenderError(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.php": "<?php\nfoo(1);\n",
	})
	got := render(t, r, Diagnostic{
		Severity: issue.SeverityError,
		Message:  "Call to unknown function foo",
		Code:     "unknown-function",
		Spans:    []Span{{File: "test.php", Range: rng(1, 0, 1, 3), Label: "not declared anywhere"}},
	})

	assertContains(t, got, "error[unknown-function]: Call to unknown function foo\n")
	assertContains(t, got, "  --> test.php:2:1\n")
	assertContains(t, got, " 2 |  foo(1);\n")
	assertContains(t, got, "   |  ^^^ not declared anywhere\n")
	assertNotContains(t, got, "^^^^")
}

func TestRenderWarning(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.php": "<?php\nfunction f() {\n    $unused = 1;\n}\n",
	})
	got := render(t, r, Diagnostic{
		Severity: issue.SeverityWarning,
		Message:  "Unused variable $unused",
		Spans:    []Span{{File: "test.php", Range: rng(2, 4, 2, 11)}},
	})
	assertContains(t, got, "warning: Unused variable $unused")
	assertContains(t, got, "--> test.php:3:5")
	assertContains(t, got, " 3 |      $unused = 1;\n")
	assertContains(t, got, "   |      ^^^^^^^\n")
}

func TestRenderHint(t *testing.T) {
	got := render(t, testRenderer(nil), Diagnostic{Severity: issue.SeverityHint, Message: "m"})
	assertContains(t, got, "hint: m")
}

func TestRenderNoSource(t *testing.T) {
	got := render(t, testRenderer(nil), Diagnostic{
		Message: "some error",
		Spans:   []Span{{File: "-", Range: rng(4, 2, 4, 5)}},
	})
	assertContains(t, got, "error: some error")
	assertContains(t, got, "--> -:5:3")
	assertContains(t, got, "   |\n")
	assertNotContains(t, got, "^")
}

func TestRenderLineOutOfRange(t *testing.T) {
	r := testRenderer(map[string]string{"short.php": "<?php\n"})
	got := render(t, r, Diagnostic{
		Message: "gone",
		Spans:   []Span{{File: "short.php", Range: rng(9, 0, 9, 1)}},
	})
	assertContains(t, got, "--> short.php:10:1")
	assertNotContains(t, got, "^")
}

func TestRenderNotes(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.php": "<?php\nfoo();\n",
	})
	got := render(t, r, Diagnostic{
		Message: "Call to unknown function foo",
		Spans:   []Span{{File: "test.php", Range: rng(1, 0, 1, 3)}},
		Notes: []string{
			"functions are looked up case-insensitively",
			`to suppress: add "// nolint:unknown-function" on this line`,
		},
	})
	assertContains(t, got, "   = note: functions are looked up case-insensitively\n")
	assertContains(t, got, `   = note: to suppress: add "// nolint:unknown-function" on this line`)
}

func TestRenderEmptyRangeUnderlinesToken(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.php": "<?php\necho $total;\n",
	})
	got := render(t, r, Diagnostic{
		Message: "Unknown variable $total",
		Spans:   []Span{{File: "test.php", Range: rng(1, 5, 1, 5)}},
	})
	assertContains(t, got, "   |       ^^^^^^\n")
	assertNotContains(t, got, "^^^^^^^")
}

func TestRenderTabs(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.php": "<?php\n\t$x = y();\n",
	})
	got := render(t, r, Diagnostic{
		Message: "Call to unknown function y",
		Spans:   []Span{{File: "test.php", Range: rng(1, 6, 1, 7)}},
	})
	assertContains(t, got, " 2 |      $x = y();\n")
	// four columns for the tab and five for "$x = "
	assertContains(t, got, "   |           ^\n")
}

func TestRenderMultiByte(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.php": "<?php\n$é = nope();\n",
	})
	// "$é = " is six bytes wide and five columns wide.
	got := render(t, r, Diagnostic{
		Message: "Call to unknown function nope",
		Spans:   []Span{{File: "test.php", Range: rng(1, 6, 1, 10)}},
	})
	assertContains(t, got, "   |       ^^^^\n")
}

func TestRenderMultiLine(t *testing.T) {
	r := testRenderer(map[string]string{
		"test.php": "<?php\nif (true) {\n    a();\n    b();\n    c();\n}\n",
	})
	got := render(t, r, Diagnostic{
		Severity: issue.SeverityError,
		Message:  "Unreachable code",
		Spans:    []Span{{File: "test.php", Range: rng(1, 10, 5, 1), Label: "never runs"}},
	})
	assertContains(t, got, " 2 |  if (true) {\n")
	assertContains(t, got, "   |            ^\n")
	assertContains(t, got, " 3 |      a();\n")
	assertContains(t, got, "   |      ^^^^\n")
	assertContains(t, got, " ...\n")
	assertNotContains(t, got, "b();")
	assertNotContains(t, got, "c();")
	assertContains(t, got, " 6 |  }\n")
	assertContains(t, got, "   |  ^ never runs\n")
}

func TestRenderReadsSourceOnce(t *testing.T) {
	reads := 0
	r := &Renderer{
		Color: ColorNever,
		SourceReader: func(string) ([]byte, error) {
			reads++
			return []byte("<?php\na();\nb();\n"), nil
		},
	}
	diags := []Diagnostic{
		{Message: "a", Spans: []Span{{File: "f.php", Range: rng(1, 0, 1, 1)}}},
		{Message: "b", Spans: []Span{{File: "f.php", Range: rng(2, 0, 2, 1)}}},
	}
	var buf bytes.Buffer
	if err := r.RenderAll(&buf, diags); err != nil {
		t.Fatal(err)
	}
	if reads != 1 {
		t.Errorf("source read %d times, want 1", reads)
	}
	if parts := strings.Split(buf.String(), "\n\n"); len(parts) != 2 {
		t.Errorf("expected two diagnostics separated by a blank line, got:\n%s", buf.String())
	}
	assertContains(t, buf.String(), "b();")
}

func TestRenderNoSpans(t *testing.T) {
	got := render(t, testRenderer(nil), Diagnostic{Message: "lib.php: no such file"})
	assertContains(t, got, "error: lib.php: no such file")
	assertNotContains(t, got, "-->")
}

func TestRenderAlwaysColor(t *testing.T) {
	r := testRenderer(nil)
	r.Color = ColorAlways
	got := render(t, r, Diagnostic{Severity: issue.SeverityWarning, Message: "m"})
	assertContains(t, got, "\033[1;33mwarning")
	assertContains(t, got, "\033[0m")
}

func TestFromIssue(t *testing.T) {
	i := issue.Issue{Kind: issue.UnknownVariable, Name: "x", Range: rng(1, 5, 1, 7)}
	d := FromIssue("main.php", i)
	if d.Code != "unknown-variable" || d.Severity != issue.SeverityError {
		t.Errorf("unexpected diagnostic %+v", d)
	}
	if len(d.Spans) != 1 || d.Spans[0].File != "main.php" {
		t.Fatalf("unexpected spans %+v", d.Spans)
	}

	i.File = "lib.php"
	if d := FromIssue("main.php", i); d.Spans[0].File != "lib.php" {
		t.Errorf("span file %q, want lib.php", d.Spans[0].File)
	}
}

func TestParseColorMode(t *testing.T) {
	for in, want := range map[string]ColorMode{
		"":       ColorAuto,
		"auto":   ColorAuto,
		"ALWAYS": ColorAlways,
		"never":  ColorNever,
	} {
		got, err := ParseColorMode(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Errorf("%q: got %v, want %v", in, got, want)
		}
	}
	if _, err := ParseColorMode("sometimes"); err == nil {
		t.Error("expected error for invalid mode")
	}
}

func assertContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("output does not contain %q:\n%s", want, got)
	}
}

func assertNotContains(t *testing.T, got, unwanted string) {
	t.Helper()
	if strings.Contains(got, unwanted) {
		t.Errorf("output unexpectedly contains %q:\n%s", unwanted, got)
	}
}
