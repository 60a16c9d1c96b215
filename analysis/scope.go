// Copyright © 2024 The ELPS authors

package analysis

import (
	"sort"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/types"
	"github.com/luthersystems/phpsema/value"
)

// Usage counts the reads and writes of one variable.  It is shared by every
// copy of the variable across branches, so counts survive joins.
type Usage struct {
	Reads  int
	Writes int
	// First is the range of the first write.
	First ast.Range

	partialReported bool
}

func (u *Usage) write(rng ast.Range) {
	if u.Writes == 0 {
		u.First = rng
	}
	u.Writes++
}

// VarData is what is known about a variable at one point of the flow.
type VarData struct {
	Name  string
	Type  *types.UnionType // nil when unknown
	Value *value.Value     // nil when unknown
	// Declared is the type given by a hint or a doc comment.
	Declared *types.UnionType
	// Partial is set when some incoming path did not initialize the
	// variable.
	Partial bool
	// IsParam is set for variables bound by the function signature, a
	// closure use clause or a global/static declaration.
	IsParam bool
	Usage   *Usage
}

func (v *VarData) clone() *VarData {
	c := *v
	return &c
}

// EffectiveType returns the inferred type, falling back to the declared
// type.
func (v *VarData) EffectiveType() *types.UnionType {
	if v.Type == nil {
		return v.Declared
	}
	return v.Type
}

// Scope maps variable names to their data.  Branches are copy-on-write
// children: lookups fall through to the parent and writes bind locally.
type Scope struct {
	parent *Scope
	vars   map[string]*VarData

	// terminated is set once return, throw or exit was reached.
	terminated bool
	// jumped is set once break or continue was reached.
	jumped bool
}

// NewScope returns an empty root scope.
func NewScope() *Scope {
	return &Scope{vars: make(map[string]*VarData)}
}

// Branch returns a child of s.  Writes to the child are not visible in s
// until the child is joined back.
func (s *Scope) Branch() *Scope {
	return &Scope{parent: s, vars: make(map[string]*VarData), terminated: s.terminated}
}

// Lookup returns the variable name as visible from s.
func (s *Scope) Lookup(name string) (*VarData, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Bind makes v visible in s under v.Name.
func (s *Scope) Bind(v *VarData) {
	s.vars[v.Name] = v
}

// Terminated reports whether every path through s ended in return, throw
// or exit.
func (s *Scope) Terminated() bool {
	return s.terminated
}

// Vars returns every variable visible from s sorted by name.
func (s *Scope) Vars() []*VarData {
	seen := make(map[string]*VarData)
	for sc := s; sc != nil; sc = sc.parent {
		for name, v := range sc.vars {
			if _, ok := seen[name]; !ok {
				seen[name] = v
			}
		}
	}
	out := make([]*VarData, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// localsUpTo returns the bindings made in s and its ancestors below stop.
// Nearer bindings shadow farther ones.
func (s *Scope) localsUpTo(stop map[*Scope]bool) map[string]*VarData {
	out := make(map[string]*VarData)
	for sc := s; sc != nil && !stop[sc]; sc = sc.parent {
		for name, v := range sc.vars {
			if _, ok := out[name]; !ok {
				out[name] = v
			}
		}
	}
	return out
}

func (s *Scope) ancestry() map[*Scope]bool {
	out := make(map[*Scope]bool)
	for sc := s; sc != nil; sc = sc.parent {
		out[sc] = true
	}
	return out
}

// Join merges branches back into s.  A branch may descend from s or from
// an ancestor of s.  For every variable bound in some branch the joined
// type is the union over all branches, a branch that did not bind it
// contributing the binding visible from s.  The value survives only when
// every branch agrees on it.  Branches that terminated are ignored unless
// all of them did.  The branches must not be used afterwards.
func (s *Scope) Join(branches []*Scope) {
	s.join(branches, true)
}

func (s *Scope) join(branches []*Scope, honorTermination bool) {
	if len(branches) == 0 {
		return
	}
	live := branches
	if honorTermination {
		live = nil
		for _, b := range branches {
			if !b.terminated {
				live = append(live, b)
			}
		}
		if len(live) == 0 {
			s.terminated = true
			live = branches
		}
	}
	jumped := true
	for _, b := range live {
		jumped = jumped && (b.jumped || b.terminated)
	}
	if jumped {
		s.jumped = true
	}

	stop := s.ancestry()
	locals := make([]map[string]*VarData, len(live))
	var varNames []string
	seen := make(map[string]bool)
	for i, b := range live {
		locals[i] = b.localsUpTo(stop)
		for name := range locals[i] {
			if !seen[name] {
				seen[name] = true
				varNames = append(varNames, name)
			}
		}
	}
	sort.Strings(varNames)

	for _, name := range varNames {
		outer, hasOuter := s.Lookup(name)
		var present []*VarData
		missing := false
		for _, l := range locals {
			switch v, ok := l[name]; {
			case ok:
				present = append(present, v)
			case hasOuter:
				present = append(present, outer)
			default:
				missing = true
			}
		}
		s.vars[name] = joinVar(name, present, missing)
	}
}

func joinVar(name string, present []*VarData, missing bool) *VarData {
	joined := &VarData{Name: name, Partial: missing}
	ts := make([]*types.UnionType, len(present))
	vs := make([]*value.Value, len(present))
	for i, v := range present {
		ts[i] = v.Type
		vs[i] = v.Value
		joined.Partial = joined.Partial || v.Partial
		joined.IsParam = joined.IsParam || v.IsParam
		if joined.Declared == nil {
			joined.Declared = v.Declared
		}
	}
	joined.Type = types.Union(ts...)
	if !missing {
		joined.Value = value.Common(vs...)
	}
	joined.Usage = joinUsage(present)
	return joined
}

func joinUsage(present []*VarData) *Usage {
	var distinct []*Usage
	for _, v := range present {
		dup := false
		for _, u := range distinct {
			if u == v.Usage {
				dup = true
				break
			}
		}
		if !dup && v.Usage != nil {
			distinct = append(distinct, v.Usage)
		}
	}
	switch len(distinct) {
	case 0:
		return &Usage{}
	case 1:
		return distinct[0]
	}
	merged := &Usage{}
	for _, u := range distinct {
		merged.Reads += u.Reads
		if u.Writes > 0 && (merged.Writes == 0 || u.First.StartByte < merged.First.StartByte) {
			merged.First = u.First
		}
		merged.Writes += u.Writes
		merged.partialReported = merged.partialReported || u.partialReported
	}
	return merged
}
