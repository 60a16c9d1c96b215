// Copyright © 2024 The ELPS authors

package lsp

import (
	"strings"
	"time"

	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/lint"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const debounceDelay = 300 * time.Millisecond

const diagnosticSource = "phpsema"

// textDocumentDidOpen analyzes a newly opened file right away.
func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.captureNotify(ctx)
	doc := s.docs.Open(
		params.TextDocument.URI,
		int32(params.TextDocument.Version),
		params.TextDocument.Text,
	)
	s.analyzeAndPublish(doc)
	return nil
}

// textDocumentDidChange stores the new text and schedules analysis once
// edits pause for debounceDelay.
func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.captureNotify(ctx)
	// full sync: the last change holds the whole text
	var content string
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			content = c.Text
		case protocol.TextDocumentContentChangeEvent:
			content = c.Text
		}
	}

	doc := s.docs.Change(
		params.TextDocument.URI,
		int32(params.TextDocument.Version),
		content,
	)

	s.debounceMu.Lock()
	if t, ok := s.debounce[doc.URI]; ok {
		t.Stop()
	}
	s.debounce[doc.URI] = time.AfterFunc(debounceDelay, func() {
		defer s.recoverPanic("analysis")
		if d := s.docs.Get(doc.URI); d != nil {
			s.analyzeAndPublish(d)
		}
	})
	s.debounceMu.Unlock()
	return nil
}

// textDocumentDidSave republishes at once and refreshes the file's
// declarations in the workspace index.
func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.captureNotify(ctx)
	s.cancelDebounce(params.TextDocument.URI)

	if doc := s.docs.Get(params.TextDocument.URI); doc != nil {
		s.analyzeAndPublish(doc)
	}

	go func() {
		defer s.recoverPanic("reindex")
		s.reindexFile(params.TextDocument.URI)
	}()
	return nil
}

// textDocumentDidClose clears the diagnostics of the file.
func (s *Server) textDocumentDidClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.cancelDebounce(params.TextDocument.URI)

	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})

	s.docs.Close(params.TextDocument.URI)
	return nil
}

func (s *Server) cancelDebounce(uri string) {
	s.debounceMu.Lock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
		delete(s.debounce, uri)
	}
	s.debounceMu.Unlock()
}

// analyzeAndPublish lints doc and publishes the result.  A document that
// failed to parse gets one error diagnostic for the failure.
func (s *Server) analyzeAndPublish(doc *Document) {
	s.ensureAnalysis(doc)

	doc.mu.Lock()
	parseErr := doc.parseErr
	content := doc.Content
	root := doc.root
	res := doc.analysis
	uri := doc.URI
	version := doc.Version
	doc.mu.Unlock()

	diags := []protocol.Diagnostic{}
	if parseErr != nil {
		diags = append(diags, protocol.Diagnostic{
			Severity: ptr(protocol.DiagnosticSeverityError),
			Source:   ptr(diagnosticSource),
			Message:  parseErr.Error(),
		})
	}
	if root != nil {
		lintDiags, err := s.linter.LintFileWithContext(uriToPath(uri), root, res)
		if err != nil {
			s.log.WithError(err).WithField("uri", uri).Warn("lint failed")
		}
		for _, d := range lintDiags {
			diags = append(diags, convertLintDiagnostic(content, d))
		}
	}

	v := protocol.UInteger(max(version, 0)) // #nosec G115 -- clamped above
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     &v,
		Diagnostics: diags,
	})
}

// convertLintDiagnostic maps d onto the protocol.  Notes become extra
// lines of the message.
func convertLintDiagnostic(content string, d lint.Diagnostic) protocol.Diagnostic {
	msg := d.Message
	if len(d.Notes) > 0 {
		msg += "\n" + strings.Join(d.Notes, "\n")
	}
	return protocol.Diagnostic{
		Range:    toRange(content, d.Range),
		Severity: ptr(mapSeverity(d.Severity)),
		Source:   ptr(diagnosticSource),
		Code:     &protocol.IntegerOrString{Value: d.Analyzer},
		Message:  msg,
	}
}

func mapSeverity(sev issue.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case issue.SeverityError:
		return protocol.DiagnosticSeverityError
	case issue.SeverityHint:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityWarning
	}
}

func ptr[T any](v T) *T {
	return &v
}
