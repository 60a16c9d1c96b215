// Copyright © 2024 The ELPS authors

package lsp

import (
	"sort"
	"strings"

	"github.com/luthersystems/phpsema/symbols"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentDocumentSymbol handles the textDocument/documentSymbol
// request.  Classes carry their members as children.
func (s *Server) textDocumentDocumentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	s.ensureAnalysis(doc)
	doc.mu.Lock()
	res, content := doc.analysis, doc.Content
	doc.mu.Unlock()
	if res == nil || res.Symbols == nil {
		return nil, nil
	}

	path := uriToPath(params.TextDocument.URI)
	local := func(loc symbols.Location) bool { return loc.File == path }
	out := []protocol.DocumentSymbol{}

	for _, c := range res.Symbols.Classes() {
		if !local(c.Location) {
			continue
		}
		sym := documentSymbol(content, c.Name.String(), classSymbolKind(c.Kind), c.Location, nil)
		for _, m := range sortedMethods(c) {
			detail := m.Signature()
			sym.Children = append(sym.Children,
				documentSymbol(content, string(m.Name.Last()), protocol.SymbolKindMethod, m.Location, &detail))
		}
		for _, p := range sortedProperties(c) {
			sym.Children = append(sym.Children,
				documentSymbol(content, "$"+p.Name, protocol.SymbolKindProperty, p.Location, nil))
		}
		for _, k := range sortedConstants(c) {
			sym.Children = append(sym.Children,
				documentSymbol(content, string(k.Name.Last()), protocol.SymbolKindConstant, k.Location, nil))
		}
		out = append(out, sym)
	}
	for _, fn := range res.Symbols.Functions() {
		if local(fn.Location) {
			detail := fn.Signature()
			out = append(out, documentSymbol(content, fn.Name.String(), protocol.SymbolKindFunction, fn.Location, &detail))
		}
	}
	for _, k := range res.Symbols.Constants() {
		if local(k.Location) {
			out = append(out, documentSymbol(content, k.Name.String(), protocol.SymbolKindConstant, k.Location, nil))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Range.Start, out[j].Range.Start
		return a.Line < b.Line || a.Line == b.Line && a.Character < b.Character
	})
	return out, nil
}

func documentSymbol(content, name string, kind protocol.SymbolKind, loc symbols.Location, detail *string) protocol.DocumentSymbol {
	r := toRange(content, loc.Range)
	return protocol.DocumentSymbol{
		Name:           strings.TrimPrefix(name, `\`),
		Detail:         detail,
		Kind:           kind,
		Range:          r,
		SelectionRange: r,
	}
}

func classSymbolKind(k symbols.ClassKind) protocol.SymbolKind {
	switch k {
	case symbols.KindInterface:
		return protocol.SymbolKindInterface
	case symbols.KindEnum:
		return protocol.SymbolKindEnum
	default:
		return protocol.SymbolKindClass
	}
}

func sortedMethods(c *symbols.ClassSymbol) []*symbols.FunctionSymbol {
	out := make([]*symbols.FunctionSymbol, 0, len(c.Methods))
	for _, m := range c.Methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Location.Range.StartByte < out[j].Location.Range.StartByte
	})
	return out
}

func sortedProperties(c *symbols.ClassSymbol) []*symbols.PropertySymbol {
	out := make([]*symbols.PropertySymbol, 0, len(c.Properties))
	for _, p := range c.Properties {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Location.Range.StartByte < out[j].Location.Range.StartByte
	})
	return out
}

func sortedConstants(c *symbols.ClassSymbol) []*symbols.ConstantSymbol {
	out := make([]*symbols.ConstantSymbol, 0, len(c.Constants))
	for _, k := range c.Constants {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Location.Range.StartByte < out[j].Location.Range.StartByte
	})
	return out
}
