// Copyright © 2024 The ELPS authors

package analysis

import (
	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/symbols"
)

// ReferenceKind tells what a reference points to.
type ReferenceKind int

const (
	RefFunction ReferenceKind = iota
	RefMethod
	RefClass
	RefConstant
)

func (k ReferenceKind) String() string {
	switch k {
	case RefFunction:
		return "function"
	case RefMethod:
		return "method"
	case RefClass:
		return "class"
	default:
		return "constant"
	}
}

// Reference is a resolved use of a declaration in source.
type Reference struct {
	Kind ReferenceKind
	// Name is the name of the target as declared.
	Name  string
	Range ast.Range
	// Target is where the declaration lives.
	Target symbols.Location
}

// refer records a use of a user declaration.  Builtins have no location
// and are skipped, and so are silent loop iterations.
func (s *State) refer(kind ReferenceKind, n *ast.Node, name string, target symbols.Location) {
	if s.Pass != 3 || s.silent > 0 || target.File == "" && target.Range == (ast.Range{}) {
		return
	}
	s.references = append(s.references, Reference{
		Kind:   kind,
		Name:   name,
		Range:  n.Range(),
		Target: target,
	})
}

// ReferenceAt returns the reference whose range contains offset.
func ReferenceAt(refs []Reference, offset uint) (Reference, bool) {
	for _, r := range refs {
		if r.Range.Contains(offset) {
			return r, true
		}
	}
	return Reference{}, false
}
