// Copyright © 2024 The ELPS authors

// Package lsp implements a Language Server Protocol server for PHP.
// It provides diagnostics, hover, go-to-definition, references,
// completion, and document and workspace symbols.
package lsp

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/luthersystems/phpsema/analysis"
	"github.com/luthersystems/phpsema/lint"
	"github.com/luthersystems/phpsema/symbols"
	"github.com/sirupsen/logrus"
	"github.com/tliron/glsp"
	glspserver "github.com/tliron/glsp/server"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const serverName = "phpsema-lsp"

// Server is the PHP language server.
type Server struct {
	handler  protocol.Handler
	glspSrv  *glspserver.Server
	docs     *DocumentStore
	rootURI  string
	rootPath string

	// base is the analysis configuration every document starts from.
	base       analysis.Config
	newSymbols func() *symbols.Table
	log        logrus.FieldLogger

	// index holds the declarations and references of the workspace files
	// as they are on disk.
	index     *analysis.WorkspaceResult
	indexMu   sync.RWMutex
	indexOnce sync.Once

	linter *lint.Linter

	// pending analyses of edited documents, by URI
	debounceMu sync.Mutex
	debounce   map[string]*time.Timer

	// notify publishes to the client outside of a request.
	notifyMu sync.Mutex
	notify   glsp.NotifyFunc

	// exitFn is called on the LSP exit notification. Defaults to os.Exit.
	exitFn func(int)
}

// Option configures the LSP server.
type Option func(*Server)

// WithSymbols injects a constructor for the symbol table each analysis
// starts from.  The default holds the PHP builtins.
func WithSymbols(fn func() *symbols.Table) Option {
	return func(s *Server) { s.newSymbols = fn }
}

// WithAnalyzers adds checks to the built-in set.
func WithAnalyzers(as ...*lint.Analyzer) Option {
	return func(s *Server) { s.linter.Analyzers = append(s.linter.Analyzers, as...) }
}

// WithConfig sets the base analysis configuration.  Its Filename, Symbols
// and Emitter are ignored.
func WithConfig(cfg *analysis.Config) Option {
	return func(s *Server) {
		if cfg != nil {
			s.base = *cfg
		}
	}
}

// WithLogger sets the logger for server events.  Nothing is logged by
// default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a new PHP LSP server.
func New(opts ...Option) *Server {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	s := &Server{
		docs:       NewDocumentStore(),
		linter:     &lint.Linter{Analyzers: lint.DefaultAnalyzers()},
		newSymbols: symbols.NewBuiltinTable,
		log:        quiet,
		debounce:   make(map[string]*time.Timer),
		exitFn:     os.Exit,
	}
	for _, o := range opts {
		o(s)
	}
	if s.base.Log == nil {
		s.base.Log = s.log
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		Exit:        s.exit,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidSave:   s.textDocumentDidSave,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentReferences:     s.textDocumentReferences,
		TextDocumentCompletion:     s.textDocumentCompletion,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
		WorkspaceSymbol:            s.workspaceSymbol,
	}

	s.glspSrv = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

// RunStdio serves a client over stdin and stdout.
func (s *Server) RunStdio() error {
	return s.glspSrv.RunStdio()
}

// RunTCP serves clients connecting to addr.
func (s *Server) RunTCP(addr string) error {
	return s.glspSrv.RunTCP(addr)
}

// initialize records the workspace root and advertises full document sync.
func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.captureNotify(ctx)

	if params.RootURI != nil {
		s.rootURI = *params.RootURI
		s.rootPath = uriToPath(s.rootURI)
	} else if params.RootPath != nil {
		s.rootPath = *params.RootPath
		s.rootURI = pathToURI(s.rootPath)
	}

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: ptr(true),
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: ptr(false)},
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"$", "\\"},
	}

	version := "0.1.0"
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &version,
		},
	}, nil
}

// initialized starts indexing the workspace in the background and
// republishes diagnostics once the index is ready.
func (s *Server) initialized(ctx *glsp.Context, _ *protocol.InitializedParams) error {
	s.captureNotify(ctx)
	go func() {
		defer s.recoverPanic("index")
		s.ensureWorkspaceIndex()
		for _, doc := range s.docs.All() {
			s.analyzeAndPublish(doc)
		}
	}()
	return nil
}

// shutdown stops pending analyses.
func (s *Server) shutdown(_ *glsp.Context) error {
	s.debounceMu.Lock()
	for _, t := range s.debounce {
		t.Stop()
	}
	s.debounce = make(map[string]*time.Timer)
	s.debounceMu.Unlock()
	return nil
}

// exit terminates the process through exitFn.
func (s *Server) exit(_ *glsp.Context) error {
	s.exitFn(0)
	return nil
}

// setTrace accepts $/setTrace, which some clients send unconditionally.
func (s *Server) setTrace(_ *glsp.Context, _ *protocol.SetTraceParams) error {
	return nil
}

// ensureWorkspaceIndex builds the workspace index at most once.  Cached
// analysis of open documents is dropped afterwards so that it picks up
// the declarations of the other files.
func (s *Server) ensureWorkspaceIndex() {
	s.indexOnce.Do(func() {
		idx := s.buildWorkspaceIndex(context.Background())
		s.indexMu.Lock()
		s.index = idx
		s.indexMu.Unlock()
		for _, doc := range s.docs.All() {
			doc.mu.Lock()
			doc.analysis = nil
			doc.mu.Unlock()
		}
	})
}

// buildWorkspaceIndex analyzes the PHP files below the workspace root.
// It returns nil when there is no root or the workspace cannot be read.
func (s *Server) buildWorkspaceIndex(ctx context.Context) *analysis.WorkspaceResult {
	if s.rootPath == "" {
		return nil
	}
	log := s.log.WithField("root", s.rootPath)
	paths, err := analysis.ScanWorkspace(s.rootPath)
	if err != nil {
		log.WithError(err).Warn("scanning workspace")
		return nil
	}
	files, err := analysis.ParseFiles(ctx, paths, 0)
	if err != nil {
		log.WithError(err).Warn("parsing workspace")
		return nil
	}
	w := &analysis.Workspace{
		Symbols:          s.newSymbols(),
		PHPDoc:           s.base.PHPDoc,
		MaxResolvePasses: s.base.MaxResolvePasses,
		Log:              s.base.Log,
		Tracer:           s.base.Tracer,
	}
	res, err := w.Analyze(ctx, files)
	if err != nil {
		log.WithError(err).Warn("analyzing workspace")
		return nil
	}
	log.WithFields(logrus.Fields{
		"files":   len(files),
		"symbols": res.Symbols.Len(),
	}).Info("workspace indexed")
	return res
}

func (s *Server) workspaceIndex() *analysis.WorkspaceResult {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	return s.index
}

// reindexFile refreshes the index entry of a saved file.  The whole
// workspace is analyzed again because the declarations of one file can
// change the references of every other.
func (s *Server) reindexFile(uri string) {
	if s.workspaceIndex() == nil || s.rootPath == "" {
		return
	}
	s.log.WithField("file", uriToPath(uri)).Debug("reindexing workspace")
	idx := s.buildWorkspaceIndex(context.Background())
	if idx == nil {
		return
	}
	s.indexMu.Lock()
	s.index = idx
	s.indexMu.Unlock()
}

// symbolsFor returns a fresh table holding the base declarations and
// every workspace declaration not made in path.
func (s *Server) symbolsFor(path string) *symbols.Table {
	t := s.newSymbols()
	idx := s.workspaceIndex()
	if idx == nil {
		return t
	}
	other := symbols.NewTable()
	for _, c := range idx.Symbols.Classes() {
		if !c.Builtin && c.Location.File != path {
			other.InsertClass(c)
		}
	}
	for _, fn := range idx.Symbols.Functions() {
		if !fn.Builtin && fn.Location.File != path {
			other.InsertFunction(fn)
		}
	}
	for _, k := range idx.Symbols.Constants() {
		if !k.Builtin && k.Location.File != path {
			other.InsertConstant(k)
		}
	}
	t.Merge(other)
	return t
}

// configFor returns the analysis configuration of the document at uri.
func (s *Server) configFor(uri string) *analysis.Config {
	cfg := s.base
	cfg.Filename = uriToPath(uri)
	cfg.Symbols = s.symbolsFor(cfg.Filename)
	cfg.Emitter = nil
	return &cfg
}

// ensureAnalysis ensures the document has a current analysis result.  The
// workspace index is built first if the client never sent initialized.
func (s *Server) ensureAnalysis(doc *Document) {
	s.ensureWorkspaceIndex()

	doc.mu.Lock()
	defer doc.mu.Unlock()
	if doc.analysis != nil {
		return
	}
	if err := doc.analyze(context.Background(), s.configFor(doc.URI)); err != nil {
		s.log.WithError(err).WithField("uri", doc.URI).Warn("analysis failed")
	}
}

// recoverPanic keeps a failure in background work from taking the
// server down.
func (s *Server) recoverPanic(what string) {
	if r := recover(); r != nil {
		s.log.WithField("panic", r).Errorf("%s aborted", what)
	}
}

// captureNotify keeps the notify function of ctx for publishing from
// timers and goroutines.
func (s *Server) captureNotify(ctx *glsp.Context) {
	s.notifyMu.Lock()
	s.notify = ctx.Notify
	s.notifyMu.Unlock()
}

// sendNotification is a no-op until a request has been seen.
func (s *Server) sendNotification(method string, params any) {
	s.notifyMu.Lock()
	fn := s.notify
	s.notifyMu.Unlock()
	if fn != nil {
		fn(method, params)
	}
}
