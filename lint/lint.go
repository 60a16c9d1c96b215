// Copyright © 2024 The ELPS authors

// Package lint provides static analysis for PHP source files.
//
// The linter is modeled after go vet: each check is an independent Analyzer
// that receives a parsed syntax tree, and the result of semantic analysis,
// and reports diagnostics.  The framework handles parsing, running the
// semantic passes, running analyzers, suppression and output formatting.
//
// Every issue kind of the semantic engine is exposed as a check of the
// same name.  Embedders can define custom checks alongside the built-in set.
package lint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/luthersystems/phpsema/analysis"
	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/astutil"
	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/parser"
)

// Analyzer defines a single lint check.
type Analyzer struct {
	// Name is a short identifier for this check (e.g. "unused-variable").
	Name string

	// Doc is a human-readable description. The first line is a short summary.
	Doc string

	// Severity is the default severity for diagnostics from this analyzer.
	Severity issue.Severity

	// Run executes the check. It should call pass.Report() for each finding.
	Run func(pass *Pass) error
}

// Pass provides context to a running analyzer.
type Pass struct {
	// Analyzer is the currently running check.
	Analyzer *Analyzer

	// Filename is the source file being analyzed.
	Filename string

	// Root is the parsed program.
	Root *ast.Node

	// Semantics holds the result of semantic analysis.  It is nil when the
	// semantic passes could not be run; semantic analyzers return early.
	Semantics *analysis.Result

	diagnostics []Diagnostic
}

// Report records a diagnostic finding.
func (p *Pass) Report(d Diagnostic) {
	d.Analyzer = p.Analyzer.Name
	p.diagnostics = append(p.diagnostics, d)
}

// ReportWithNotes records a diagnostic with additional hint text.
func (p *Pass) ReportWithNotes(d Diagnostic, notes ...string) {
	d.Notes = append(d.Notes, notes...)
	p.Report(d)
}

// Reportf is a convenience for reporting a diagnostic over a source range
// with the analyzer's default severity.
func (p *Pass) Reportf(rng ast.Range, format string, args ...interface{}) {
	p.Report(Diagnostic{
		Pos:      PositionOf(p.Filename, rng),
		Range:    rng,
		Message:  fmt.Sprintf(format, args...),
		Severity: p.Analyzer.Severity,
	})
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	// Pos is the source location of the problem.
	Pos Position `json:"pos"`

	// Range is the source span the problem covers.
	Range ast.Range `json:"-"`

	// Message is a human-readable description of the problem.
	Message string `json:"message"`

	// Analyzer is the name of the check that found this problem.
	Analyzer string `json:"analyzer"`

	// Severity is the severity level of the diagnostic.
	Severity issue.Severity `json:"severity"`

	// Notes are optional hint text lines for the user.
	Notes []string `json:"notes,omitempty"`
}

// Position identifies a location in source code.
type Position struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col,omitempty"`
}

// PositionOf returns the start of rng in file.
func PositionOf(file string, rng ast.Range) Position {
	return Position{File: file, Line: rng.Line(), Col: rng.Col()}
}

// String returns the position in file:line format.
func (p Position) String() string {
	if p.Line == 0 {
		return p.File
	}
	if p.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// String returns the diagnostic in go vet style: file:line: message (analyzer)
// with optional note lines appended.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s (%s)", d.Pos, d.Message, d.Analyzer)
	for _, n := range d.Notes {
		s += "\n  = note: " + n
	}
	return s
}

// Linter runs a set of analyzers over source files.
type Linter struct {
	Analyzers []*Analyzer

	// Config is the base configuration of the semantic passes.  Filename
	// and Emitter are set per file.
	Config *analysis.Config
}

func (l *Linter) config(filename string) *analysis.Config {
	cfg := analysis.Config{}
	if l.Config != nil {
		cfg = *l.Config
	}
	cfg.Filename = filename
	cfg.Emitter = nil
	return &cfg
}

// LintFile parses and analyzes a single source file and returns all
// diagnostics.
func (l *Linter) LintFile(ctx context.Context, source []byte, filename string) ([]Diagnostic, error) {
	root, err := parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	res, err := analysis.Analyze(ctx, root, l.config(filename))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return l.LintFileWithContext(filename, root, res)
}

// LintFiles lints files as one workspace, so that declarations in any of
// them are visible to all of them.  Files are parsed concurrently.
func (l *Linter) LintFiles(ctx context.Context, paths []string, concurrency int) ([]Diagnostic, error) {
	files, err := analysis.ParseFiles(ctx, paths, concurrency)
	if err != nil {
		return nil, err
	}
	base := l.config("")
	w := &analysis.Workspace{
		Symbols:          base.Symbols,
		PHPDoc:           base.PHPDoc,
		MaxResolvePasses: base.MaxResolvePasses,
		Log:              base.Log,
		Tracer:           base.Tracer,
		Concurrency:      concurrency,
	}
	res, err := w.Analyze(ctx, files)
	if err != nil {
		return nil, err
	}
	byFile := make(map[string][]issue.Issue, len(files))
	for _, i := range res.Issues {
		byFile[i.File] = append(byFile[i.File], i)
	}
	var all []Diagnostic
	for _, f := range files {
		sem := &analysis.Result{
			Symbols:    res.Symbols,
			Issues:     byFile[f.Name],
			References: res.References[f.Name],
		}
		diags, err := l.LintFileWithContext(f.Name, f.Root, sem)
		if err != nil {
			return nil, err
		}
		all = append(all, diags...)
	}
	sortDiagnostics(all)
	return all, nil
}

// LintFileWithContext runs the analyzers over an already parsed and
// analyzed file.  When semantics is nil semantic analyzers are no-ops.
func (l *Linter) LintFileWithContext(filename string, root *ast.Node, semantics *analysis.Result) ([]Diagnostic, error) {
	var all []Diagnostic
	var reportUnused *Analyzer
	for _, analyzer := range l.Analyzers {
		if analyzer == AnalyzerUnusedNolint {
			reportUnused = analyzer
			continue
		}
		pass := &Pass{
			Analyzer:  analyzer,
			Filename:  filename,
			Root:      root,
			Semantics: semantics,
		}
		if err := analyzer.Run(pass); err != nil {
			return nil, fmt.Errorf("%s: analyzer %s: %w", filename, analyzer.Name, err)
		}
		for i := range pass.diagnostics {
			if pass.diagnostics[i].Pos.File == "" {
				pass.diagnostics[i].Pos.File = filename
			}
		}
		all = append(all, pass.diagnostics...)
	}

	directives := nolintDirectives(root)
	all = filterSuppressed(all, directives)
	if reportUnused != nil {
		pass := &Pass{Analyzer: reportUnused, Filename: filename, Root: root, Semantics: semantics}
		unusedNolint(pass, directives, l.known(), l.running())
		all = append(all, filterSuppressed(pass.diagnostics, directives)...)
	}
	sortDiagnostics(all)
	return all, nil
}

// known returns the names a nolint directive may refer to.  Built-in
// checks that were not selected are known but not running.
func (l *Linter) known() map[string]bool {
	known := l.running()
	for _, a := range DefaultAnalyzers() {
		known[a.Name] = true
	}
	return known
}

func (l *Linter) running() map[string]bool {
	running := make(map[string]bool, len(l.Analyzers))
	for _, a := range l.Analyzers {
		running[a.Name] = true
	}
	return running
}

func sortDiagnostics(all []Diagnostic) {
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Pos.File != all[j].Pos.File {
			return all[i].Pos.File < all[j].Pos.File
		}
		if all[i].Pos.Line != all[j].Pos.Line {
			return all[i].Pos.Line < all[j].Pos.Line
		}
		return all[i].Pos.Col < all[j].Pos.Col
	})
}

// nolint is one suppression comment.  An empty names list suppresses every
// check on its line.
type nolint struct {
	rng   ast.Range
	names []string
	used  map[string]bool
	all   bool
}

// nolintDirectives finds "// nolint" and "# nolint" comments, optionally
// followed by ":check-a,check-b", and maps them to their line.
func nolintDirectives(root *ast.Node) map[int]*nolint {
	lines := make(map[int]*nolint)
	for _, c := range astutil.Comments(root) {
		text := strings.TrimSpace(c.Text())
		switch {
		case strings.HasPrefix(text, "//"):
			text = strings.TrimPrefix(text, "//")
		case strings.HasPrefix(text, "#"):
			text = strings.TrimPrefix(text, "#")
		case strings.HasPrefix(text, "/*"):
			text = strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
		}
		text = strings.TrimSpace(text)
		if !strings.HasPrefix(text, "nolint") {
			continue
		}
		rest := strings.TrimPrefix(text, "nolint")
		d := &nolint{rng: c.Range(), used: make(map[string]bool)}
		switch {
		case rest == "" || rest[0] == ' ':
			d.all = true
		case rest[0] == ':':
			fields := strings.Fields(rest[1:])
			if len(fields) == 0 {
				continue
			}
			for _, name := range strings.Split(fields[0], ",") {
				if name = strings.TrimSpace(name); name != "" {
					d.names = append(d.names, name)
				}
			}
		default:
			continue
		}
		lines[c.Range().Line()] = d
	}
	return lines
}

// filterSuppressed removes diagnostics on lines with nolint comments and
// records which directives were used.
func filterSuppressed(diags []Diagnostic, directives map[int]*nolint) []Diagnostic {
	var filtered []Diagnostic
	for _, d := range diags {
		directive, ok := directives[d.Pos.Line]
		if !ok {
			filtered = append(filtered, d)
			continue
		}
		if directive.all {
			directive.used[""] = true
			continue
		}
		suppressed := false
		for _, name := range directive.names {
			if name == d.Analyzer {
				directive.used[name] = true
				suppressed = true
				break
			}
		}
		if !suppressed {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// FormatText writes diagnostics in go vet text format.
func FormatText(w io.Writer, diags []Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String()) //nolint:errcheck // best-effort output to writer
	}
}

// FormatJSON writes diagnostics as JSON.
func FormatJSON(w io.Writer, diags []Diagnostic) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(diags)
}

// DefaultAnalyzers returns the built-in set of lint checks.
func DefaultAnalyzers() []*Analyzer {
	out := []*Analyzer{
		AnalyzerSyntaxError,
		AnalyzerEmptyCatch,
		AnalyzerClosingTag,
	}
	out = append(out, SemanticAnalyzers()...)
	return append(out, AnalyzerUnusedNolint)
}

// Select returns the analyzers of all whose names are in names, in the
// order of all.  Unknown names are returned as an error.
func Select(all []*Analyzer, names []string) ([]*Analyzer, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []*Analyzer
	for _, a := range all {
		if want[a.Name] {
			out = append(out, a)
			delete(want, a.Name)
		}
	}
	if len(want) > 0 {
		var unknown []string
		for n := range want {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown check(s): %s", strings.Join(unknown, ", "))
	}
	return out, nil
}
