// Copyright © 2024 The ELPS authors

package cmd

import (
	"io"

	"github.com/luthersystems/phpsema/diagnostic"
	lintpkg "github.com/luthersystems/phpsema/lint"
)

func newRenderer() *diagnostic.Renderer {
	return &diagnostic.Renderer{Color: colorMode()}
}

// lintDiagToDiagnostic converts a lint.Diagnostic to a diagnostic.Diagnostic.
func lintDiagToDiagnostic(ld lintpkg.Diagnostic) diagnostic.Diagnostic {
	d := diagnostic.Diagnostic{
		Severity: ld.Severity,
		Message:  ld.Message,
		Code:     ld.Analyzer,
		Notes:    append([]string(nil), ld.Notes...),
	}
	if ld.Pos.Line > 0 {
		d.Spans = []diagnostic.Span{{File: ld.Pos.File, Range: ld.Range}}
	}
	if ld.Analyzer != lintpkg.AnalyzerUnusedNolint.Name {
		d.Notes = append(d.Notes, "to suppress: add \"// nolint:"+ld.Analyzer+"\" as a comment on this line")
	}
	return d
}

// renderLintDiagnostics renders lint diagnostics with diagnostic formatting.
func renderLintDiagnostics(w io.Writer, diags []lintpkg.Diagnostic) error {
	ds := make([]diagnostic.Diagnostic, 0, len(diags))
	for _, ld := range diags {
		ds = append(ds, lintDiagToDiagnostic(ld))
	}
	return newRenderer().RenderAll(w, ds)
}
