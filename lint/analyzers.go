// Copyright © 2024 The ELPS authors

package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/issue"
)

// AnalyzerSyntaxError reports the nodes produced by parser error recovery.
var AnalyzerSyntaxError = &Analyzer{
	Name:     "syntax-error",
	Doc:      "Report syntax errors.\n\nThe parser recovers from errors so that the rest of the file can still be analyzed. Each recovered region is reported once, along with tokens the parser had to assume were present.",
	Severity: issue.SeverityError,
	Run: func(pass *Pass) error {
		WalkAll(pass.Root, func(node *ast.Node) bool {
			switch {
			case node.IsMissing():
				pass.Reportf(node.Range(), "syntax error: missing %s", node.Kind())
				return false
			case node.IsError():
				pass.Reportf(node.Range(), "syntax error near %s", Snippet(node, 20))
				return false
			}
			return true
		})
		return nil
	},
}

// AnalyzerEmptyCatch warns about catch blocks which silently swallow the
// exception.
var AnalyzerEmptyCatch = &Analyzer{
	Name:     "empty-catch",
	Doc:      "Warn when a catch block is empty.\n\nAn empty catch block discards the exception without a trace. A comment inside the block documents that ignoring the exception is intended and silences the check.",
	Severity: issue.SeverityWarning,
	Run: func(pass *Pass) error {
		WalkKinds(pass.Root, func(node *ast.Node) {
			body := node.Field("body")
			if body == nil || len(body.Children()) > 0 {
				return
			}
			pass.Reportf(node.Range(), "empty catch block discards the exception")
		}, ast.KindCatchClause)
		return nil
	},
}

// AnalyzerClosingTag flags a closing tag at the very end of a file, where
// trailing whitespace after it would be sent as output.
var AnalyzerClosingTag = &Analyzer{
	Name:     "closing-tag",
	Doc:      "Flag a closing ?> tag at the end of a file.\n\nAny whitespace following the final closing tag is emitted as output, which can corrupt headers. Files containing only PHP should omit it.",
	Severity: issue.SeverityHint,
	Run: func(pass *Pass) error {
		if pass.Root == nil {
			return nil
		}
		children := pass.Root.AllChildren()
		for i := len(children) - 1; i >= 0; i-- {
			c := children[i]
			if c.Kind() == ast.KindText && strings.TrimSpace(c.Text()) == "" {
				continue
			}
			if c.Kind() == "?>" || strings.HasSuffix(strings.TrimSpace(c.Text()), "?>") {
				pass.Reportf(c.Range(), "omit the closing tag at the end of the file")
			}
			return nil
		}
		return nil
	},
}

// AnalyzerUnusedNolint reports nolint directives that did not suppress
// anything, and directives naming checks that do not exist.  It runs after
// every other analyzer of the linter.
var AnalyzerUnusedNolint = &Analyzer{
	Name:     "unused-nolint",
	Doc:      "Report nolint directives which suppress nothing.\n\nA directive that no longer matches a diagnostic hides future problems on its line. Directives naming unknown checks are reported as well.",
	Severity: issue.SeverityWarning,
	Run:      func(*Pass) error { return nil },
}

func unusedNolint(pass *Pass, directives map[int]*nolint, known, running map[string]bool) {
	lines := make([]int, 0, len(directives))
	for line := range directives {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	for _, line := range lines {
		d := directives[line]
		if d.all {
			if !d.used[""] {
				pass.ReportWithNotes(Diagnostic{
					Pos:      PositionOf(pass.Filename, d.rng),
					Range:    d.rng,
					Message:  "nolint directive suppresses nothing",
					Severity: pass.Analyzer.Severity,
				}, "remove the directive")
			}
			continue
		}
		var unused, unknown []string
		for _, name := range d.names {
			switch {
			case !known[name]:
				unknown = append(unknown, name)
			case running[name] && !d.used[name] && name != pass.Analyzer.Name:
				unused = append(unused, name)
			}
		}
		if len(unused) == 0 && len(unknown) == 0 {
			continue
		}
		diag := Diagnostic{
			Pos:      PositionOf(pass.Filename, d.rng),
			Range:    d.rng,
			Severity: pass.Analyzer.Severity,
		}
		var notes []string
		if len(unused) > 0 {
			diag.Message = fmt.Sprintf("nolint directive for %s suppresses nothing", strings.Join(unused, ", "))
			notes = append(notes, "remove the unused names")
		} else {
			diag.Message = fmt.Sprintf("nolint directive names unknown check %s", strings.Join(unknown, ", "))
		}
		if len(unknown) > 0 {
			notes = append(notes, fmt.Sprintf("unknown checks: %s", strings.Join(unknown, ", ")))
		}
		pass.ReportWithNotes(diag, notes...)
	}
}

// KindAnalyzer returns a check reporting the semantic issues of kind k.
func KindAnalyzer(k issue.Kind) *Analyzer {
	return &Analyzer{
		Name:     k.String(),
		Doc:      k.Doc(),
		Severity: k.Severity(),
		Run: func(pass *Pass) error {
			if pass.Semantics == nil {
				return nil
			}
			for _, i := range pass.Semantics.Issues {
				if i.Kind != k {
					continue
				}
				pass.Report(Diagnostic{
					Pos:      PositionOf(pass.Filename, i.Range),
					Range:    i.Range,
					Message:  i.Message(),
					Severity: i.Severity(),
				})
			}
			return nil
		},
	}
}

var semanticAnalyzers = func() []*Analyzer {
	var out []*Analyzer
	for _, k := range issue.Kinds() {
		out = append(out, KindAnalyzer(k))
	}
	return out
}()

// SemanticAnalyzers returns one check per issue kind of the semantic
// engine, sorted by name.
func SemanticAnalyzers() []*Analyzer {
	return append([]*Analyzer(nil), semanticAnalyzers...)
}
