// Copyright © 2024 The ELPS authors

// Package issue defines the diagnostics produced by semantic analysis and
// the sink they are emitted to.
package issue

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/luthersystems/phpsema/ast"
)

// Severity of an issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityHint:
		return "hint"
	default:
		return "error"
	}
}

// MarshalJSON encodes the severity as its string name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name written by MarshalJSON.
func (s *Severity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "hint":
		*s = SeverityHint
	default:
		return fmt.Errorf("unknown severity %q", name)
	}
	return nil
}

// Issue is one finding of the analyzer.  Which of the data fields are
// meaningful depends on Kind.
type Issue struct {
	Kind  Kind
	File  string
	Range ast.Range

	Name     string // variable, function, class, constant, member or tag
	Class    string // class of member issues
	Expected int    // arity issues
	Got      int    // arity issues
	Types    string // rendered union type
	Text     string // free-form detail
}

// Severity is derived from the kind of i.
func (i Issue) Severity() Severity {
	return i.Kind.Severity()
}

// Message renders the human readable text of i.
func (i Issue) Message() string {
	switch i.Kind {
	case UnusedVariable:
		return fmt.Sprintf("Unused variable $%s", i.Name)
	case UnknownVariable:
		return fmt.Sprintf("Unknown variable $%s", i.Name)
	case UnknownFunction:
		return fmt.Sprintf("Unknown function %s", i.Name)
	case UnknownClass:
		return fmt.Sprintf("Unknown class %s", i.Name)
	case UnknownType:
		return fmt.Sprintf("Unknown type %s", i.Name)
	case UnknownProperty:
		return fmt.Sprintf("Unknown property %s in %s", i.Name, i.Class)
	case DuplicateClass:
		return fmt.Sprintf("Duplicate class %s", i.Name)
	case DuplicateSymbol:
		return fmt.Sprintf("Duplicate symbol %s", i.Name)
	case NotAVerifiedCallableVariable:
		return fmt.Sprintf("Could not verify that variable $%s is callable", i.Name)
	case NotACallableVariable:
		return fmt.Sprintf("Variable $%s is not callable", i.Name)
	case DecrementIsIllegalOnType:
		return fmt.Sprintf("<expr>-- is illegal on %s", i.Types)
	case IncrementIsIllegalOnType:
		return fmt.Sprintf("<expr>++ is illegal on %s", i.Types)
	case UnknownConstant:
		return fmt.Sprintf("Unknown constant %s", i.Name)
	case UnreachableCode:
		return "Unreachable code"
	case EmptyTemplate:
		return fmt.Sprintf("Generic template %s is unfulfilled", i.Name)
	case MethodCallOnUnknownType:
		return fmt.Sprintf("Method call %s on a target with unidentifiable type %s", i.Name, i.Types)
	case MethodCallOnNullableType:
		return fmt.Sprintf("Method call %s on a target which can be null", i.Name)
	case PropertyAccessOnUnknownType:
		return fmt.Sprintf("Property %s accessed on unknown type", i.Name)
	case PropertyAccessOnInterfaceType:
		return fmt.Sprintf("Not possible to access property %s on interface %s", i.Name, i.Class)
	case IndeterminablePropertyName:
		return fmt.Sprintf("Unable to determine the name of the property, accessed on %s", i.Types)
	case UnknownMethod:
		return fmt.Sprintf("Unknown method %s on %s", i.Name, i.Class)
	case TraversalOfUnknownType:
		return "Traversal of unknown type"
	case ConditionalConstantDeclaration:
		return "Conditional declaration of constant is not recommended"
	case WrongNumberOfArguments:
		return fmt.Sprintf("Wrong number of arguments to %s, got %d, expected %d", i.Name, i.Got, i.Expected)
	case WrongFunctionNameCasing:
		return fmt.Sprintf("Function name is cased differently [%s] than in the declaration [%s]", i.Name, i.Text)
	case WrongClassNameCasing:
		return fmt.Sprintf("Class name is cased differently [%s] than in the declaration [%s]", i.Name, i.Text)
	case DuplicateConstant:
		return fmt.Sprintf("Duplicate constant %s", i.Name)
	case DuplicateFunction:
		return fmt.Sprintf("Duplicate function %s", i.Name)
	case UnknownClassConstant:
		return fmt.Sprintf("Unknown class constant %s::%s", i.Class, i.Name)
	case DuplicateClassConstant:
		return fmt.Sprintf("Duplicate class constant %s::%s", i.Class, i.Name)
	case DuplicateDeclaration:
		return fmt.Sprintf("Duplicate declaration: %s", i.Text)
	case DuplicateTemplate:
		return fmt.Sprintf("Duplicate template %s", i.Name)
	case UnknownIndexType:
		return "Unknown index type"
	case ParseAnomaly:
		return fmt.Sprintf("Arrived at an unexpected parse state: %s", i.Text)
	case VariableNotInitializedInAllBranches:
		return fmt.Sprintf("Variable $%s is not initialized in all branches", i.Name)
	case PHPDocParseError:
		return "Unable to parse PHP Doc-comment"
	case PHPDocTypeError:
		return fmt.Sprintf("Parse error while parsing type in phpdoc-comment: %s", i.Text)
	case MisplacedPHPDocEntry:
		return fmt.Sprintf("PHPDoc-entry used in the wrong context: %s", i.Text)
	case InvalidPHPDocEntry:
		return fmt.Sprintf("Invalid PHPDoc-entry: %s", i.Text)
	case RedundantPHPDocEntry:
		return fmt.Sprintf("Redundant PHPDoc-entry: %s", i.Text)
	case UnknownPHPDocEntry:
		return fmt.Sprintf("Unknown PHPDoc-entry: %s", i.Text)
	}
	return i.Kind.String()
}

// String formats i as "file:line:col: severity: message [kind]".
func (i Issue) String() string {
	var b strings.Builder
	if i.File != "" {
		b.WriteString(i.File)
		b.WriteByte(':')
	}
	fmt.Fprintf(&b, "%s: %s: %s [%s]", i.Range, i.Severity(), i.Message(), i.Kind)
	return b.String()
}

// Emitter receives issues.  Emit never fails and never blocks for long.
type Emitter interface {
	Emit(Issue)
	// Status summarizes what was emitted.
	Status() string
}

// VoidEmitter only counts issues.
type VoidEmitter struct {
	mu    sync.Mutex
	count int
}

func (e *VoidEmitter) Emit(Issue) {
	e.mu.Lock()
	e.count++
	e.mu.Unlock()
}

func (e *VoidEmitter) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fmt.Sprintf("Found %d issues", e.count)
}

// Collector keeps every emitted issue in order.
type Collector struct {
	mu     sync.Mutex
	issues []Issue
}

func (c *Collector) Emit(i Issue) {
	c.mu.Lock()
	c.issues = append(c.issues, i)
	c.mu.Unlock()
}

func (c *Collector) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("Found %d issues", len(c.issues))
}

// Issues returns a copy of the collected issues.
func (c *Collector) Issues() []Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Issue(nil), c.issues...)
}

// OfKind returns the collected issues of kind k.
func (c *Collector) OfKind(k Kind) []Issue {
	var out []Issue
	for _, i := range c.Issues() {
		if i.Kind == k {
			out = append(out, i)
		}
	}
	return out
}

// Discard drops every issue.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Issue)      {}
func (discard) Status() string { return "" }
