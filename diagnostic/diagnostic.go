// Copyright © 2024 The ELPS authors

// Package diagnostic renders analysis issues as annotated source snippets
// in the style of rustc:
//
//	error[unknown-function]: Call to unknown function foo
//	  --> index.php:2:1
//	   |
//	 2 |  foo(1);
//	   |  ^^^
//	   = note: ...
package diagnostic

import (
	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/issue"
)

// Span is a region of a file to underline.  A span with an empty range
// underlines the token starting at its position.
type Span struct {
	File  string
	Range ast.Range
	Label string
}

// Diagnostic is a message with its source annotations and trailing notes.
type Diagnostic struct {
	Severity issue.Severity
	Message  string
	// Code is shown as "error[code]".
	Code  string
	Spans []Span
	Notes []string
}

// FromIssue builds the diagnostic for an issue found in file.  The
// issue's own file takes precedence when set.
func FromIssue(file string, i issue.Issue) Diagnostic {
	if i.File != "" {
		file = i.File
	}
	return Diagnostic{
		Severity: i.Severity(),
		Message:  i.Message(),
		Code:     i.Kind.String(),
		Spans:    []Span{{File: file, Range: i.Range}},
	}
}
