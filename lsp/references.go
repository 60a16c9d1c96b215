// Copyright © 2024 The ELPS authors

package lsp

import (
	"sort"

	"github.com/luthersystems/phpsema/symbols"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentReferences handles the textDocument/references request.
// Open documents are searched with their current content and the other
// workspace files through the index.
func (s *Server) textDocumentReferences(_ *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	target, ok := s.targetAt(doc, params.Position)
	if !ok {
		return nil, nil
	}

	var locs []protocol.Location
	add := func(file string, loc symbols.Location) {
		if l, ok := s.location(params.TextDocument.URI, symbols.Location{File: file, Range: loc.Range}); ok {
			locs = append(locs, l)
		}
	}
	if params.Context.IncludeDeclaration {
		add(target.File, target)
	}

	open := make(map[string]bool)
	for _, d := range s.docs.All() {
		s.ensureAnalysis(d)
		path := uriToPath(d.URI)
		open[path] = true
		d.mu.Lock()
		res := d.analysis
		d.mu.Unlock()
		if res == nil {
			continue
		}
		for _, ref := range res.References {
			if ref.Target == target {
				add(path, symbols.Location{Range: ref.Range})
			}
		}
	}
	if idx := s.workspaceIndex(); idx != nil {
		files := make([]string, 0, len(idx.References))
		for file := range idx.References {
			if !open[file] {
				files = append(files, file)
			}
		}
		sort.Strings(files)
		for _, file := range files {
			for _, ref := range idx.References[file] {
				if ref.Target == target {
					add(file, symbols.Location{Range: ref.Range})
				}
			}
		}
	}
	sortLocations(locs)
	return locs, nil
}

func sortLocations(locs []protocol.Location) {
	sort.SliceStable(locs, func(i, j int) bool {
		a, b := locs[i], locs[j]
		if a.URI != b.URI {
			return a.URI < b.URI
		}
		if a.Range.Start.Line != b.Range.Start.Line {
			return a.Range.Start.Line < b.Range.Start.Line
		}
		return a.Range.Start.Character < b.Range.Start.Character
	})
}
