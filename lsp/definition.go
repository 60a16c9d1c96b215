// Copyright © 2024 The ELPS authors

package lsp

import (
	"os"
	"path/filepath"

	"github.com/luthersystems/phpsema/analysis"
	"github.com/luthersystems/phpsema/symbols"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentDefinition handles the textDocument/definition request.
func (s *Server) textDocumentDefinition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	target, ok := s.targetAt(doc, params.Position)
	if !ok {
		return nil, nil
	}
	loc, ok := s.location(params.TextDocument.URI, target)
	if !ok {
		return nil, nil
	}
	return loc, nil
}

// targetAt returns the declaration the name at pos refers to, or the
// declaration whose name is at pos.
func (s *Server) targetAt(doc *Document, pos protocol.Position) (symbols.Location, bool) {
	s.ensureAnalysis(doc)
	doc.mu.Lock()
	res, content := doc.analysis, doc.Content
	doc.mu.Unlock()
	if res == nil {
		return symbols.Location{}, false
	}
	offset := offsetAt(content, pos)
	if ref, ok := analysis.ReferenceAt(res.References, offset); ok {
		return ref.Target, true
	}
	return declarationAt(res.Symbols, uriToPath(doc.URI), offset)
}

// declarationAt finds a class, method, function or constant declared in
// file whose name contains offset.
func declarationAt(t *symbols.Table, file string, offset uint) (symbols.Location, bool) {
	if t == nil {
		return symbols.Location{}, false
	}
	hit := func(loc symbols.Location) bool {
		return loc.File == file && loc.Range.Contains(offset)
	}
	for _, c := range t.Classes() {
		if hit(c.Location) {
			return c.Location, true
		}
		for _, m := range c.Methods {
			if hit(m.Location) {
				return m.Location, true
			}
		}
		for _, k := range c.Constants {
			if hit(k.Location) {
				return k.Location, true
			}
		}
	}
	for _, fn := range t.Functions() {
		if hit(fn.Location) {
			return fn.Location, true
		}
	}
	for _, k := range t.Constants() {
		if hit(k.Location) {
			return k.Location, true
		}
	}
	return symbols.Location{}, false
}

// location converts a declaration site to an LSP location.  The file is
// read from the open documents first and from disk otherwise.
func (s *Server) location(currentURI string, loc symbols.Location) (protocol.Location, bool) {
	uri := s.resolveURI(currentURI, loc.File)
	var content string
	if doc := s.docs.Get(uri); doc != nil {
		doc.mu.Lock()
		content = doc.Content
		doc.mu.Unlock()
	} else {
		src, err := os.ReadFile(uriToPath(uri)) //nolint:gosec // paths come from the workspace
		if err != nil {
			return protocol.Location{}, false
		}
		content = string(src)
	}
	return protocol.Location{URI: uri, Range: toRange(content, loc.Range)}, true
}

// resolveURI resolves a file path from analysis into a document URI.
// If the file matches the current document, the original URI is returned.
func (s *Server) resolveURI(currentURI, file string) string {
	if file == "" || file == uriToPath(currentURI) {
		return currentURI
	}
	path := file
	if !filepath.IsAbs(path) && s.rootPath != "" {
		path = filepath.Join(s.rootPath, path)
	}
	return pathToURI(path)
}
