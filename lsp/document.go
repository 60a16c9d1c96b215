// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"sync"

	"github.com/luthersystems/phpsema/analysis"
	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/parser"
)

// Document represents an open text document tracked by the LSP server.
type Document struct {
	mu       sync.Mutex
	URI      string
	Version  int32
	Content  string
	root     *ast.Node
	analysis *analysis.Result
	parseErr error
}

// parse parses the document content and caches the tree.  The parser
// recovers from syntax errors, so parseErr is only set when no tree could
// be built at all.
func (d *Document) parse() {
	d.root, d.parseErr = parser.Parse([]byte(d.Content))
}

// analyze runs the semantic passes over the cached tree.  A failed
// analysis leaves an empty result so that it is not retried until the
// content changes.
func (d *Document) analyze(ctx context.Context, cfg *analysis.Config) error {
	if d.root == nil {
		return nil
	}
	res, err := analysis.Analyze(ctx, d.root, cfg)
	if err != nil {
		d.analysis = &analysis.Result{Symbols: cfg.Symbols}
		return err
	}
	d.analysis = res
	return nil
}

// DocumentStore manages open documents with thread-safe access.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewDocumentStore creates an empty document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*Document)}
}

// Open adds a document to the store and parses it.
func (s *DocumentStore) Open(uri string, version int32, content string) *Document {
	doc := &Document{
		URI:     uri,
		Version: version,
		Content: content,
	}
	doc.parse()
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

// Change replaces a document's content and re-parses it.
func (s *DocumentStore) Change(uri string, version int32, content string) *Document {
	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		doc = &Document{URI: uri}
		s.docs[uri] = doc
	}
	s.mu.Unlock()

	doc.mu.Lock()
	doc.Version = version
	doc.Content = content
	doc.parse()
	doc.analysis = nil
	doc.mu.Unlock()
	return doc
}

// Close removes a document from the store.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

// Get retrieves a document by URI. Returns nil if not found.
func (s *DocumentStore) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// All returns the open documents.
func (s *DocumentStore) All() []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out
}
