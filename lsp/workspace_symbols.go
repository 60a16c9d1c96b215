// Copyright © 2024 The ELPS authors

package lsp

import (
	"strings"

	"github.com/luthersystems/phpsema/symbols"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// workspaceSymbol handles the workspace/symbol request.  It returns the
// classes, functions and constants of the workspace index and the open
// documents whose name contains the query.  An empty query matches all.
func (s *Server) workspaceSymbol(_ *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	s.ensureWorkspaceIndex()
	query := strings.ToLower(params.Query)

	type source struct {
		table *symbols.Table
		keep  func(file string) bool
	}
	var sources []source
	open := make(map[string]bool)
	for _, doc := range s.docs.All() {
		s.ensureAnalysis(doc)
		path := uriToPath(doc.URI)
		open[path] = true
		doc.mu.Lock()
		if doc.analysis != nil && doc.analysis.Symbols != nil {
			sources = append(sources, source{doc.analysis.Symbols, func(file string) bool { return file == path }})
		}
		doc.mu.Unlock()
	}
	if idx := s.workspaceIndex(); idx != nil {
		sources = append(sources, source{idx.Symbols, func(file string) bool { return !open[file] }})
	}

	seen := make(map[symbols.Location]bool)
	var results []protocol.SymbolInformation
	for _, src := range sources {
		add := func(name string, kind protocol.SymbolKind, loc symbols.Location, container string) {
			if loc.File == "" || seen[loc] || !src.keep(loc.File) {
				return
			}
			name = strings.TrimPrefix(name, `\`)
			if !matchesQuery(name, query) {
				return
			}
			l, ok := s.location(s.rootURI, loc)
			if !ok {
				return
			}
			seen[loc] = true
			si := protocol.SymbolInformation{Name: name, Kind: kind, Location: l}
			if container != "" {
				si.ContainerName = &container
			}
			results = append(results, si)
		}
		for _, c := range src.table.Classes() {
			add(c.Name.String(), classSymbolKind(c.Kind), c.Location, "")
			container := strings.TrimPrefix(c.Name.String(), `\`)
			for _, m := range sortedMethods(c) {
				add(string(m.Name.Last()), protocol.SymbolKindMethod, m.Location, container)
			}
		}
		for _, fn := range src.table.Functions() {
			add(fn.Name.String(), protocol.SymbolKindFunction, fn.Location, "")
		}
		for _, k := range src.table.Constants() {
			add(k.Name.String(), protocol.SymbolKindConstant, k.Location, "")
		}
	}
	return results, nil
}

// matchesQuery performs case-insensitive substring matching. An empty query
// matches everything.
func matchesQuery(name, lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), lowerQuery)
}
