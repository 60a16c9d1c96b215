// Copyright © 2024 The ELPS authors

// Package analysis implements the three pass semantic analysis of PHP
// source.  Pass 1 collects declarations into a symbol table, pass 2
// resolves cross references until the table stops changing, and pass 3
// walks executable code with a flow sensitive model of variable types and
// values.  Findings are reported through an issue.Emitter.
package analysis

import (
	"context"
	"errors"
	"io"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/phpdoc"
	"github.com/luthersystems/phpsema/symbols"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of the spans emitted by the
// analyzer.
const TracerName = "github.com/luthersystems/phpsema/analysis"

// DefaultMaxResolvePasses bounds the number of cross reference passes.
const DefaultMaxResolvePasses = 4

// ErrNoRoot is returned when there is no tree to analyze.
var ErrNoRoot = errors.New("no syntax tree to analyze")

// PHPDocConfig controls doc comment checks.
type PHPDocConfig struct {
	// KnownTags are accepted in addition to the standard tags.  Nil
	// selects phpdoc.DefaultKnownTags.
	KnownTags []string
}

// Config controls an analysis run.
type Config struct {
	// Filename is attached to every issue and declaration location.
	Filename string

	// Symbols is the table to declare into.  When nil a table holding the
	// builtin declarations is created.
	Symbols *symbols.Table

	// Emitter receives issues.  When nil the issues are collected and
	// returned in Result.Issues.
	Emitter issue.Emitter

	PHPDoc PHPDocConfig

	// MaxResolvePasses bounds the cross reference pass.  Zero selects
	// DefaultMaxResolvePasses.
	MaxResolvePasses int

	// Log receives debug output about constructs the analyzer does not
	// model.  When nil nothing is logged.
	Log logrus.FieldLogger

	// Tracer records one span per pass.  When nil the global tracer
	// provider is used.
	Tracer trace.Tracer
}

// Result is the outcome of analyzing one unit.
type Result struct {
	Symbols *symbols.Table
	// Scope is the top level scope once the flow pass finished.
	Scope  *Scope
	Issues []issue.Issue
	// References are the uses of user declared functions, methods and
	// classes resolved by the flow pass.
	References []Reference
}

func (c *Config) emitter() issue.Emitter {
	if c.Emitter == nil {
		return issue.Discard
	}
	return c.Emitter
}

var discardLogger = func() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func (c *Config) logger() logrus.FieldLogger {
	if c.Log == nil {
		return discardLogger
	}
	return c.Log
}

func (c *Config) tracer() trace.Tracer {
	if c.Tracer == nil {
		return otel.Tracer(TracerName)
	}
	return c.Tracer
}

func (c *Config) maxResolvePasses() int {
	if c.MaxResolvePasses <= 0 {
		return DefaultMaxResolvePasses
	}
	return c.MaxResolvePasses
}

func (c *Config) knownTags() []string {
	if c.PHPDoc.KnownTags == nil {
		return phpdoc.DefaultKnownTags
	}
	return c.PHPDoc.KnownTags
}

// normalize returns a copy of cfg with defaults applied, and the collector
// standing in for a missing emitter.
func normalize(cfg *Config) (*Config, *issue.Collector) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.Symbols == nil {
		c.Symbols = symbols.NewBuiltinTable()
	}
	var coll *issue.Collector
	if c.Emitter == nil {
		coll = &issue.Collector{}
		c.Emitter = coll
	}
	return &c, coll
}

// Analyze runs the three passes over root.  A nil cfg selects defaults.
// The context is checked between passes.
func Analyze(ctx context.Context, root *ast.Node, cfg *Config) (*Result, error) {
	if root == nil {
		return nil, ErrNoRoot
	}
	c, coll := normalize(cfg)
	s := newState(c, c.Symbols)
	ctx, span := c.tracer().Start(ctx, "analyze", trace.WithAttributes(semconv.CodeFilepath(c.Filename)))
	defer span.End()

	if err := s.runDeclare(ctx, root); err != nil {
		return nil, err
	}
	if err := resolveAll(ctx, c, []*unit{{state: s, root: root}}); err != nil {
		return nil, err
	}
	if err := s.runFlow(ctx, root); err != nil {
		return nil, err
	}

	res := &Result{
		Symbols:    c.Symbols,
		Scope:      s.Scopes[0],
		References: s.references,
	}
	if coll != nil {
		res.Issues = coll.Issues()
		span.SetAttributes(attribute.Int("issues", len(res.Issues)))
	}
	return res, nil
}

// LookupAt analyzes root silently and stops the flow pass at the innermost
// node containing offset.  The callback receives the node, the state at
// that point and the ancestors of the node.  LookupAt reports whether a
// node was found.
func LookupAt(ctx context.Context, root *ast.Node, offset uint, cfg *Config, cb func(*ast.Node, *State, []*ast.Node)) (bool, error) {
	if root == nil {
		return false, ErrNoRoot
	}
	c, _ := normalize(cfg)
	c.Emitter = issue.Discard
	s := newState(c, c.Symbols)
	ctx, span := c.tracer().Start(ctx, "lookup", trace.WithAttributes(
		semconv.CodeFilepath(c.Filename),
		attribute.Int("offset", int(offset)),
	))
	defer span.End()

	if err := s.runDeclare(ctx, root); err != nil {
		return false, err
	}
	if err := resolveAll(ctx, c, []*unit{{state: s, root: root}}); err != nil {
		return false, err
	}
	found := false
	s.reset(3)
	s.LookingFor = &LookupRequest{
		Offset: offset,
		Callback: func(n *ast.Node, st *State, path []*ast.Node) {
			found = true
			cb(n, st, path)
		},
	}
	if err := s.flow(ctx, root); err != nil {
		return false, err
	}
	span.SetAttributes(attribute.Bool("found", found))
	return found, nil
}

// unit is one file taking part in an analysis.
type unit struct {
	state *State
	root  *ast.Node
}

func (s *State) span(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.cfg.tracer().Start(ctx, name, trace.WithAttributes(
		semconv.CodeFilepath(s.Filename),
		attribute.Int("pass", s.Pass),
	))
}

// runDeclare runs pass 1.
func (s *State) runDeclare(ctx context.Context, root *ast.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.reset(1)
	_, span := s.span(ctx, "declare")
	defer span.End()
	s.reportAnomalies(root)
	s.visit(root)
	return nil
}

// runFlow runs pass 3.
func (s *State) runFlow(ctx context.Context, root *ast.Node) error {
	s.reset(3)
	return s.flow(ctx, root)
}

func (s *State) flow(ctx context.Context, root *ast.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, span := s.span(ctx, "flow")
	defer span.End()
	s.visit(root)
	span.SetAttributes(attribute.Int("references", len(s.references)))
	return nil
}

// resolveAll runs pass 2 over every unit until the shared table stops
// changing, then once more to report what is still unresolved.
func resolveAll(ctx context.Context, c *Config, units []*unit) error {
	ctx, span := c.tracer().Start(ctx, "resolve", trace.WithAttributes(attribute.Int("units", len(units))))
	defer span.End()
	runs := 0
	for runs < c.maxResolvePasses()-1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		before := c.Symbols.Generation()
		for _, u := range units {
			u.state.quietly(func() { u.state.resolve(u.root, false) })
		}
		runs++
		if c.Symbols.Generation() == before {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, u := range units {
		u.state.resolve(u.root, true)
	}
	span.SetAttributes(attribute.Int("runs", runs+1))
	return nil
}

// resolve runs pass 2 once.  Unresolved references are reported on the
// final run only.
func (s *State) resolve(root *ast.Node, final bool) {
	s.reset(2)
	s.finalResolve = final
	s.visit(root)
	if final {
		s.checkTypeRefs()
	}
}
