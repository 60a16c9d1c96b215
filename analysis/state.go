// Copyright © 2024 The ELPS authors

package analysis

import (
	"errors"
	"strings"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/names"
	"github.com/luthersystems/phpsema/phpdoc"
	"github.com/luthersystems/phpsema/symbols"
	"github.com/luthersystems/phpsema/types"
	"github.com/luthersystems/phpsema/value"
	"github.com/sirupsen/logrus"
)

// LookupRequest asks the flow pass to stop at the innermost node containing
// Offset and report it.  Callback is invoked at most once with the node,
// the state at that point of the flow and the ancestors of the node.
type LookupRequest struct {
	Offset   uint
	Callback func(node *ast.Node, s *State, path []*ast.Node)
}

// FunctionState is the part of the state owned by one function body.
type FunctionState struct {
	// Symbol is nil for closures and arrow functions.
	Symbol *symbols.FunctionSymbol
	// Scopes is the scope stack of the body, innermost last.
	Scopes []*Scope
	// Returns collects the types of the returned expressions.
	Returns []*types.UnionType
	// This is the type of $this, nil outside of instance methods.
	This      *types.UnionType
	Templates map[string]bool

	dynamic bool // compact, extract or $$name was seen
}

// State is the mutable context threaded through every pass over one unit.
type State struct {
	Pass     int
	Filename string
	Symbols  *symbols.Table

	// Scopes is the scope stack of top level code, innermost last.
	Scopes    []*Scope
	Namespace names.FullyQualifiedName
	// UseMap maps lower-cased class aliases to their targets.
	UseMap map[string]names.FullyQualifiedName
	// LastDoc is the comment immediately preceding the node being visited.
	LastDoc       *ast.Node
	InConditional int
	InClass       *symbols.ClassSymbol
	InFunction    *FunctionState
	LookingFor    *LookupRequest
	Emitter       issue.Emitter
	Log           logrus.FieldLogger

	funcUses  map[string]names.FullyQualifiedName
	constUses map[string]names.FullyQualifiedName

	cfg     *Config
	path    []*ast.Node
	halted  bool
	probing int
	silent  int

	// classTemplates are the @template names of the enclosing class.
	classTemplates map[string]bool

	// evaluated is the last folded expression and result its operand.
	evaluated *ast.Node
	result    operand

	references   []Reference
	typeRefs     []typeRef
	finalResolve bool
}

// typeRef is a class named by a type hint or a doc comment, checked once
// every declaration is known.
type typeRef struct {
	class names.FullyQualifiedName
	rng   ast.Range
}

func newState(cfg *Config, table *symbols.Table) *State {
	return &State{
		Filename: cfg.Filename,
		Symbols:  table,
		Emitter:  cfg.emitter(),
		Log:      cfg.logger(),
		cfg:      cfg,
	}
}

// reset prepares s for a new pass.
func (s *State) reset(pass int) {
	s.Pass = pass
	s.Namespace = names.FullyQualifiedName{}
	s.UseMap = nil
	s.funcUses = nil
	s.constUses = nil
	s.LastDoc = nil
	s.InConditional = 0
	s.InClass = nil
	s.InFunction = nil
	s.Scopes = []*Scope{NewScope()}
	s.path = s.path[:0]
	s.halted = false
	s.probing = 0
	s.references = nil
}

// Scope returns the innermost scope of the current function, or of top
// level code.
func (s *State) Scope() *Scope {
	stack := s.Scopes
	if s.InFunction != nil {
		stack = s.InFunction.Scopes
	}
	return stack[len(stack)-1]
}

func (s *State) pushScope(sc *Scope) {
	if s.InFunction != nil {
		s.InFunction.Scopes = append(s.InFunction.Scopes, sc)
		return
	}
	s.Scopes = append(s.Scopes, sc)
}

func (s *State) popScope() *Scope {
	stack := &s.Scopes
	if s.InFunction != nil {
		stack = &s.InFunction.Scopes
	}
	top := (*stack)[len(*stack)-1]
	*stack = (*stack)[:len(*stack)-1]
	return top
}

// within runs fn with sc pushed on the scope stack.
func (s *State) within(sc *Scope, fn func()) {
	s.pushScope(sc)
	defer s.popScope()
	fn()
}

// conditionally runs fn as part of a conditional branch.
func (s *State) conditionally(fn func()) {
	s.InConditional++
	defer func() { s.InConditional-- }()
	fn()
}

// quietly runs fn without emitting issues or servicing lookups.
func (s *State) quietly(fn func()) {
	emitter, looking := s.Emitter, s.LookingFor
	s.Emitter, s.LookingFor = issue.Discard, nil
	s.silent++
	defer func() {
		s.Emitter, s.LookingFor = emitter, looking
		s.silent--
	}()
	fn()
}

// probe runs fn without reporting unknown variables, as inside isset().
func (s *State) probe(fn func()) {
	s.probing++
	defer func() { s.probing-- }()
	fn()
}

func (s *State) emit(i issue.Issue) {
	if i.File == "" {
		i.File = s.Filename
	}
	s.Emitter.Emit(i)
}

func (s *State) report(kind issue.Kind, n *ast.Node, fill func(*issue.Issue)) {
	s.reportAt(kind, n.Range(), fill)
}

func (s *State) reportAt(kind issue.Kind, rng ast.Range, fill func(*issue.Issue)) {
	i := issue.Issue{Kind: kind, Range: rng}
	if fill != nil {
		fill(&i)
	}
	s.emit(i)
}

func (s *State) debug(n *ast.Node, msg string) {
	s.Log.WithFields(logrus.Fields{
		"kind": n.Kind(),
		"pass": s.Pass,
		"file": s.Filename,
	}).Debug(msg)
}

func (s *State) location(n *ast.Node) symbols.Location {
	return symbols.Location{File: s.Filename, Range: n.Range()}
}

// declaredHere reports whether loc is the declaration at n.  Losing
// duplicates are skipped by later passes.
func (s *State) declaredHere(loc symbols.Location, n *ast.Node) bool {
	return loc.File == s.Filename && loc.Range.StartByte == n.Range().StartByte
}

func (s *State) resolver() *names.Resolver {
	return &names.Resolver{Namespace: s.Namespace, Uses: s.UseMap}
}

// resolveClass resolves a class name written in source.  self, static and
// parent refer to the enclosing class.
func (s *State) resolveClass(text string) (names.FullyQualifiedName, bool) {
	switch strings.ToLower(text) {
	case "self", "static":
		if s.InClass == nil {
			return names.FullyQualifiedName{}, false
		}
		return s.InClass.Name, true
	case "parent":
		if s.InClass == nil || len(s.InClass.Extends) == 0 || s.InClass.Kind != symbols.KindClass {
			return names.FullyQualifiedName{}, false
		}
		return s.InClass.Extends[0], true
	}
	return s.resolver().Resolve(text), true
}

func (s *State) selfName() names.FullyQualifiedName {
	if s.InClass == nil {
		return names.FullyQualifiedName{}
	}
	return s.InClass.Name
}

func (s *State) resolveFunction(text string) (*symbols.FunctionSymbol, bool) {
	if !strings.HasPrefix(text, `\`) {
		first, rest, qualified := strings.Cut(text, `\`)
		if target, ok := s.funcUses[strings.ToLower(first)]; ok && !qualified {
			return s.Symbols.Function(target)
		} else if ok {
			return s.Symbols.Function(target.Append(names.ParseFQN(rest)))
		}
	}
	return s.Symbols.ResolveFunction(text, s.resolver())
}

func (s *State) resolveConstant(text string) (*symbols.ConstantSymbol, bool) {
	if target, ok := s.constUses[strings.ToLower(text)]; ok {
		return s.Symbols.Constant(target)
	}
	return s.Symbols.ResolveConstant(text, s.resolver())
}

// serviceLookup reports n to a pending lookup request when n contains the
// requested offset.  It returns true when the walk must halt.
func (s *State) serviceLookup(n *ast.Node) bool {
	if s.halted {
		return true
	}
	if s.Pass != 3 || s.LookingFor == nil || !n.Range().Contains(s.LookingFor.Offset) {
		return false
	}
	req := s.LookingFor
	s.LookingFor = nil
	s.halted = true
	path := append([]*ast.Node(nil), s.path...)
	req.Callback(n, s, path)
	return true
}

// docComment parses the comment in LastDoc.  Malformed comments are
// reported and yield nil.
func (s *State) docComment() (*phpdoc.Comment, ast.Range) {
	n := s.LastDoc
	if n == nil {
		return nil, ast.Range{}
	}
	c, err := phpdoc.Parse(n.Text())
	switch {
	case errors.Is(err, phpdoc.ErrNotDocComment):
		return nil, ast.Range{}
	case err != nil:
		if s.Pass == 1 {
			s.report(issue.PHPDocParseError, n, func(i *issue.Issue) { i.Text = err.Error() })
		}
		return nil, ast.Range{}
	}
	return c, n.Range()
}

// operand is the folded type and value of an expression.
type operand struct {
	Type  *types.UnionType
	Value *value.Value
}

func known(v *value.Value) operand {
	if v == nil {
		return operand{}
	}
	return operand{Type: v.UnionType(), Value: v}
}

func typed(t types.DiscreteType) operand {
	return operand{Type: types.New(t)}
}
