// Copyright © 2024 The ELPS authors

package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/parser"
	"github.com/luthersystems/phpsema/symbols"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// File is one parsed source file of a workspace.
type File struct {
	Name string
	Root *ast.Node
}

// Workspace analyzes a set of files against one symbol table, so that
// declarations in any file are visible to every other file.
//
// Declarations are collected from the files in parallel, each into a
// private table, and merged into the shared table in file order.  Cross
// references are then resolved jointly and the flow pass again runs in
// parallel.
type Workspace struct {
	// Symbols is the shared table.  When nil a table holding the builtin
	// declarations is created.
	Symbols *symbols.Table
	// Emitter receives the issues of every file.  It must be safe for
	// concurrent use.  When nil the issues are collected and returned
	// sorted in WorkspaceResult.Issues.
	Emitter          issue.Emitter
	PHPDoc           PHPDocConfig
	MaxResolvePasses int
	Log              logrus.FieldLogger
	Tracer           trace.Tracer
	// Concurrency bounds the files processed at once.  Zero selects
	// GOMAXPROCS.
	Concurrency int
}

// WorkspaceResult is the outcome of analyzing a workspace.
type WorkspaceResult struct {
	Symbols *symbols.Table
	Issues  []issue.Issue
	// References are keyed by file name.
	References map[string][]Reference
}

func (w *Workspace) limit() int {
	if w.Concurrency > 0 {
		return w.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

func (w *Workspace) config() *Config {
	return &Config{
		Symbols:          w.Symbols,
		Emitter:          w.Emitter,
		PHPDoc:           w.PHPDoc,
		MaxResolvePasses: w.MaxResolvePasses,
		Log:              w.Log,
		Tracer:           w.Tracer,
	}
}

// Analyze runs the three passes over files.
func (w *Workspace) Analyze(ctx context.Context, files []File) (*WorkspaceResult, error) {
	c, coll := normalize(w.config())
	ctx, span := c.tracer().Start(ctx, "workspace", trace.WithAttributes(attribute.Int("files", len(files))))
	defer span.End()

	for _, f := range files {
		if f.Root == nil {
			return nil, fmt.Errorf("%s: %w", f.Name, ErrNoRoot)
		}
	}
	units := make([]*unit, len(files))
	tables := make([]*symbols.Table, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.limit())
	for i, f := range files {
		uc := *c
		uc.Filename = f.Name
		uc.Symbols = symbols.NewTable()
		tables[i] = uc.Symbols
		units[i] = &unit{state: newState(&uc, uc.Symbols), root: f.Root}
		u := units[i]
		g.Go(func() error { return u.state.runDeclare(gctx, u.root) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, t := range tables {
		for _, conflict := range c.Symbols.Merge(t) {
			reportConflict(c.Emitter, conflict)
		}
		units[i].state.Symbols = c.Symbols
		units[i].state.cfg.Symbols = c.Symbols
	}
	c.logger().WithFields(logrus.Fields{
		"files":   len(files),
		"symbols": c.Symbols.Len(),
	}).Debug("declarations merged")

	if err := resolveAll(ctx, c, units); err != nil {
		return nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(w.limit())
	for _, u := range units {
		g.Go(func() error { return u.state.runFlow(gctx, u.root) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &WorkspaceResult{
		Symbols:    c.Symbols,
		References: make(map[string][]Reference, len(units)),
	}
	for _, u := range units {
		res.References[u.state.Filename] = u.state.references
	}
	if coll != nil {
		res.Issues = coll.Issues()
		SortIssues(res.Issues)
		span.SetAttributes(attribute.Int("issues", len(res.Issues)))
	}
	return res, nil
}

// reportConflict reports a declaration which lost to one with the same
// name in an earlier file.
func reportConflict(e issue.Emitter, c symbols.Conflict) {
	var i issue.Issue
	switch {
	case c.Class != nil:
		i = issue.Issue{Kind: issue.DuplicateClass, Name: c.Class.Name.String(), File: c.Class.Location.File, Range: c.Class.Location.Range}
	case c.Function != nil:
		i = issue.Issue{Kind: issue.DuplicateFunction, Name: c.Function.Name.String(), File: c.Function.Location.File, Range: c.Function.Location.Range}
	case c.Constant != nil:
		i = issue.Issue{Kind: issue.DuplicateConstant, Name: c.Constant.Name.String(), File: c.Constant.Location.File, Range: c.Constant.Location.Range}
	default:
		return
	}
	e.Emit(i)
}

// SortIssues orders issues by file and position.
func SortIssues(issues []issue.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Range.StartByte < b.Range.StartByte
	})
}

// ScanWorkspace returns the PHP files below root in lexical order.  Hidden
// directories, vendor and node_modules are skipped.
func ScanWorkspace(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// unreadable directories are skipped
			return nil
		}
		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".php") {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

func shouldSkipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules"
}

// ParseFiles reads and parses paths in parallel.  The files are returned
// in the order of paths.
func ParseFiles(ctx context.Context, paths []string, concurrency int) ([]File, error) {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	files := make([]File, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(path) //nolint:gosec // paths come from the user
			if err != nil {
				return err
			}
			root, err := parser.Parse(src)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			files[i] = File{Name: path, Root: root}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
