// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/luthersystems/phpsema/analysis"
	"github.com/luthersystems/phpsema/ast"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentHover handles the textDocument/hover request.
func (s *Server) textDocumentHover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	s.ensureWorkspaceIndex()

	doc.mu.Lock()
	root, content := doc.root, doc.Content
	doc.mu.Unlock()
	if root == nil {
		return nil, nil
	}

	var (
		desc analysis.Description
		rng  ast.Range
	)
	offset := offsetAt(content, params.Position)
	found, err := analysis.LookupAt(context.Background(), root, offset, s.configFor(doc.URI),
		func(n *ast.Node, st *analysis.State, path []*ast.Node) {
			desc, rng = st.Describe(n, path), n.Range()
		})
	if err != nil || !found || !desc.Known {
		return nil, err
	}

	r := toRange(content, rng)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: s.hoverContent(desc),
		},
		Range: &r,
	}, nil
}

// hoverContent renders a description as a PHP code block followed by the
// doc summary and the declaration site.
func (s *Server) hoverContent(d analysis.Description) string {
	var sb strings.Builder
	doc := d.Doc
	d.Doc = ""
	fmt.Fprintf(&sb, "```php\n%s\n```", d.String())
	if doc != "" {
		fmt.Fprintf(&sb, "\n\n%s", doc)
	}
	if loc := d.Location; loc.File != "" {
		file := loc.File
		if s.rootPath != "" {
			if rel, err := filepath.Rel(s.rootPath, file); err == nil && !strings.HasPrefix(rel, "..") {
				file = rel
			}
		}
		fmt.Fprintf(&sb, "\n\n*Defined in %s:%d*", file, loc.Range.Line())
	}
	return sb.String()
}
