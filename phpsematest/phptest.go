// Copyright © 2018 The ELPS authors

// Package phpsematest runs analysis fixtures.  A fixture is PHP source in
// which every line that should produce issues ends with a comment naming
// their kinds:
//
//	echo $nope; // expect: unknown-variable
//	g(1, 2, 3); // expect: wrong-argument-count, unknown-constant
//
// Lines without an expectation must not produce any issue.
package phpsematest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/luthersystems/phpsema/analysis"
	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/parser"
	"github.com/luthersystems/phpsema/symbols"
)

var expectComment = regexp.MustCompile(`(?://|#)\s*expect:\s*([a-z0-9-]+(?:\s*,\s*[a-z0-9-]+)*)\s*$`)

// Expectation is an issue kind expected on a 1-based line.
type Expectation struct {
	Line int
	Kind string
}

func (e Expectation) String() string {
	return fmt.Sprintf("%d: %s", e.Line, e.Kind)
}

// ParseExpectations collects the expect comments of source.  Unknown kind
// names are an error.
func ParseExpectations(source string) ([]Expectation, error) {
	var out []Expectation
	for i, line := range strings.Split(source, "\n") {
		m := expectComment.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		for _, kind := range strings.Split(m[1], ",") {
			kind = strings.TrimSpace(kind)
			if _, ok := issue.KindByName(kind); !ok {
				return nil, fmt.Errorf("line %d: unknown issue kind %q", i+1, kind)
			}
			out = append(out, Expectation{Line: i + 1, Kind: kind})
		}
	}
	sortExpectations(out)
	return out, nil
}

func sortExpectations(es []Expectation) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].Line != es[j].Line {
			return es[i].Line < es[j].Line
		}
		return es[i].Kind < es[j].Kind
	})
}

// Runner analyzes fixtures.
type Runner struct {
	// Symbols constructs the table analysis starts from.  When nil the
	// table holds the PHP builtins.
	Symbols func() *symbols.Table
}

// Analyze parses and analyzes source and returns the issues found.
func (r *Runner) Analyze(ctx context.Context, name, source string) ([]issue.Issue, error) {
	root, err := parser.Parse([]byte(source))
	if err != nil {
		return nil, err
	}
	cfg := &analysis.Config{Filename: name}
	if r.Symbols != nil {
		cfg.Symbols = r.Symbols()
	}
	res, err := analysis.Analyze(ctx, root, cfg)
	if err != nil {
		return nil, err
	}
	return res.Issues, nil
}

// RunTest checks the issues of source against its expect comments.
func (r *Runner) RunTest(t *testing.T, name, source string) {
	t.Helper()
	want, err := ParseExpectations(source)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	issues, err := r.Analyze(context.Background(), name, source)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	got := make([]Expectation, 0, len(issues))
	for _, i := range issues {
		got = append(got, Expectation{Line: i.Range.Line(), Kind: i.Kind.String()})
	}
	sortExpectations(got)

	missing, unexpected := diff(want, got)
	for _, e := range missing {
		t.Errorf("%s:%s: expected issue not reported", name, e)
	}
	for _, e := range unexpected {
		t.Errorf("%s:%s: unexpected issue", name, e)
	}
	if t.Failed() {
		for _, i := range issues {
			t.Logf("reported: %s", i)
		}
	}
}

// diff returns the expectations of want missing from got and those of got
// not in want.  Both must be sorted.
func diff(want, got []Expectation) (missing, unexpected []Expectation) {
	i, j := 0, 0
	less := func(a, b Expectation) bool {
		return a.Line < b.Line || a.Line == b.Line && a.Kind < b.Kind
	}
	for i < len(want) && j < len(got) {
		switch {
		case want[i] == got[j]:
			i++
			j++
		case less(want[i], got[j]):
			missing = append(missing, want[i])
			i++
		default:
			unexpected = append(unexpected, got[j])
			j++
		}
	}
	missing = append(missing, want[i:]...)
	unexpected = append(unexpected, got[j:]...)
	return missing, unexpected
}

// RunTestFile runs the fixture at path as a subtest named after the file.
func (r *Runner) RunTestFile(t *testing.T, path string) {
	source, err := os.ReadFile(path) //#nosec G304
	if err != nil {
		t.Errorf("Unable to read test file: %v", err)
		return
	}
	t.Run(filepath.Base(path), func(t *testing.T) {
		r.RunTest(t, path, string(source))
	})
}

// RunTestDir runs every .php fixture in dir.
func (r *Runner) RunTestDir(t *testing.T, dir string) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.php"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatalf("no fixtures in %s", dir)
	}
	for _, path := range paths {
		r.RunTestFile(t, path)
	}
}

// TestSuite is a set of named fixtures given inline.
type TestSuite []struct {
	Name   string
	Source string
}

// RunTestSuite runs each fixture of tests as a subtest.
func RunTestSuite(t *testing.T, tests TestSuite) {
	r := &Runner{}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			r.RunTest(t, test.Name+".php", test.Source)
		})
	}
}

// BenchmarkAnalyze returns a benchmark parsing and analyzing the file at
// path.
func BenchmarkAnalyze(path string) func(*testing.B) {
	return func(b *testing.B) {
		buf, err := os.ReadFile(path) //#nosec G304
		if err != nil {
			b.Fatalf("Unable to read source file %v: %v", path, err)
		}
		b.SetBytes(int64(len(buf)))
		ctx := context.Background()
		for i := 0; i < b.N; i++ {
			root, err := parser.Parse(buf)
			if err != nil {
				b.Fatalf("Parse failure: %v", err)
			}
			if _, err := analysis.Analyze(ctx, root, &analysis.Config{Filename: path}); err != nil {
				b.Fatalf("Analysis failure: %v", err)
			}
		}
	}
}
