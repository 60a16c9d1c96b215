// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"sort"
	"strings"

	"github.com/luthersystems/phpsema/analysis"
	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/symbols"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentCompletion handles the textDocument/completion request.
// Variables in scope are offered after "$", and functions, classes and
// constants otherwise.
func (s *Server) textDocumentCompletion(_ *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	s.ensureAnalysis(doc)
	doc.mu.Lock()
	root, content, res := doc.root, doc.Content, doc.analysis
	doc.mu.Unlock()
	if res == nil {
		return nil, nil
	}

	offset := offsetAt(content, params.Position)
	prefix := wordBefore(content, offset)
	items := []protocol.CompletionItem{}
	if strings.HasPrefix(prefix, "$") {
		items = append(items, s.variableCompletions(doc.URI, root, res, offset, prefix)...)
	} else {
		items = append(items, globalCompletions(res, prefix)...)
	}
	return items, nil
}

// variableCompletions lists the variables bound where the cursor is.
// Without a node at the cursor the variables of the top level scope after
// the whole file are used.
func (s *Server) variableCompletions(uri string, root *ast.Node, res *analysis.Result, offset uint, prefix string) []protocol.CompletionItem {
	var vars []*analysis.VarData
	if offset > 0 && root != nil {
		_, err := analysis.LookupAt(context.Background(), root, offset-1, s.configFor(uri),
			func(_ *ast.Node, st *analysis.State, _ []*ast.Node) {
				vars = st.Scope().Vars()
			})
		if err != nil {
			s.log.WithError(err).Debug("completion lookup failed")
		}
	}
	if vars == nil && res.Scope != nil {
		vars = res.Scope.Vars()
	}

	var items []protocol.CompletionItem
	kind := protocol.CompletionItemKindVariable
	for _, v := range vars {
		label := "$" + v.Name
		if !strings.HasPrefix(label, prefix) || label == prefix {
			continue
		}
		detail := v.EffectiveType().String()
		items = append(items, protocol.CompletionItem{
			Label:  label,
			Kind:   &kind,
			Detail: &detail,
		})
	}
	return items
}

// globalCompletions lists the functions, classes and constants whose
// name starts with prefix, ignoring case.
func globalCompletions(res *analysis.Result, prefix string) []protocol.CompletionItem {
	if res.Symbols == nil {
		return nil
	}
	want := strings.ToLower(strings.TrimPrefix(prefix, `\`))
	match := func(name string) (string, bool) {
		name = strings.TrimPrefix(name, `\`)
		return name, strings.HasPrefix(strings.ToLower(name), want)
	}

	var items []protocol.CompletionItem
	add := func(label string, kind protocol.CompletionItemKind, detail, doc string) {
		item := protocol.CompletionItem{Label: label, Kind: &kind}
		if detail != "" {
			item.Detail = &detail
		}
		if doc != "" {
			item.Documentation = &protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: doc}
		}
		items = append(items, item)
	}
	for _, fn := range res.Symbols.Functions() {
		if name, ok := match(fn.Name.String()); ok {
			add(name, protocol.CompletionItemKindFunction, fn.Signature(), fn.Doc)
		}
	}
	for _, c := range res.Symbols.Classes() {
		if name, ok := match(c.Name.String()); ok {
			kind := protocol.CompletionItemKindClass
			if c.Kind == symbols.KindInterface {
				kind = protocol.CompletionItemKindInterface
			}
			add(name, kind, c.Kind.String(), c.Doc)
		}
	}
	for _, k := range res.Symbols.Constants() {
		if name, ok := match(k.Name.String()); ok {
			detail := ""
			if k.Type != nil {
				detail = k.Type.String()
			}
			add(name, protocol.CompletionItemKindConstant, detail, k.Doc)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}
