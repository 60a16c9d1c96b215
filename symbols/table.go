// Copyright © 2024 The ELPS authors

package symbols

import (
	"sort"
	"strings"
	"sync"

	"github.com/luthersystems/phpsema/names"
	"github.com/luthersystems/phpsema/types"
	"github.com/luthersystems/phpsema/value"
)

// Table maps names to declarations.  Classes and functions are keyed
// case-insensitively.  Constant names are case-sensitive but their
// namespace is not.
//
// The table is safe for concurrent use.  Every change bumps a generation
// counter which callers use to detect a fixed point.
type Table struct {
	mu         sync.RWMutex
	classes    map[string]*ClassSymbol
	functions  map[string]*FunctionSymbol
	constants  map[string]*ConstantSymbol
	aliases    map[string]names.FullyQualifiedName
	generation uint64
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		classes:   make(map[string]*ClassSymbol),
		functions: make(map[string]*FunctionSymbol),
		constants: make(map[string]*ConstantSymbol),
		aliases:   make(map[string]names.FullyQualifiedName),
	}
}

func constKey(fq names.FullyQualifiedName) string {
	return fq.Namespace().Key() + `\` + string(fq.Last())
}

func aliasKey(unit string, ns names.FullyQualifiedName, alias names.Name) string {
	return unit + "\x00" + ns.Key() + "\x00" + alias.Lower()
}

// InsertClass adds c.  When a class with the same name exists the table is
// unchanged and the existing class is returned with false.
func (t *Table) InsertClass(c *ClassSymbol) (*ClassSymbol, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := c.Name.Key()
	if prev, ok := t.classes[key]; ok {
		return prev, false
	}
	t.classes[key] = c
	t.generation++
	return c, true
}

// InsertFunction adds fn.  The first declaration of a name wins.
func (t *Table) InsertFunction(fn *FunctionSymbol) (*FunctionSymbol, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := fn.Name.Key()
	if prev, ok := t.functions[key]; ok {
		return prev, false
	}
	t.functions[key] = fn
	t.generation++
	return fn, true
}

// InsertConstant adds k.  The first declaration of a name wins.
func (t *Table) InsertConstant(k *ConstantSymbol) (*ConstantSymbol, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := constKey(k.Name)
	if prev, ok := t.constants[key]; ok {
		return prev, false
	}
	t.constants[key] = k
	t.generation++
	return k, true
}

// InsertAlias records a use clause of a unit within namespace ns.  An
// alias imported twice keeps its first target.
func (t *Table) InsertAlias(unit string, ns names.FullyQualifiedName, alias names.Name, target names.FullyQualifiedName) (names.FullyQualifiedName, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := aliasKey(unit, ns, alias)
	if prev, ok := t.aliases[key]; ok {
		return prev, false
	}
	t.aliases[key] = target
	t.generation++
	return target, true
}

// Alias returns the target of an alias recorded with InsertAlias.
func (t *Table) Alias(unit string, ns names.FullyQualifiedName, alias names.Name) (names.FullyQualifiedName, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fq, ok := t.aliases[aliasKey(unit, ns, alias)]
	return fq, ok
}

// SetConstantValue stores the folded value of k.  The generation changes
// only when the stored value does.
func (t *Table) SetConstantValue(k *ConstantSymbol, v *value.Value, typ *types.UnionType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sameValue(k.Value, v) && k.Type.Equal(typ) {
		return
	}
	k.Value = v
	k.Type = typ
	t.generation++
}

func sameValue(a, b *value.Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	same, ok := a.IdenticalTo(b)
	if !ok {
		// Arrays compare by their rendering, which is exact for folded
		// literals.
		return a.String() == b.String()
	}
	return same
}

// Class returns the class with the given name.
func (t *Table) Class(name names.FullyQualifiedName) (*ClassSymbol, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.classes[name.Key()]
	return c, ok
}

// Function returns the function with the given name.
func (t *Table) Function(name names.FullyQualifiedName) (*FunctionSymbol, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn, ok := t.functions[name.Key()]
	return fn, ok
}

// Constant returns the global constant with the given name.
func (t *Table) Constant(name names.FullyQualifiedName) (*ConstantSymbol, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	k, ok := t.constants[constKey(name)]
	return k, ok
}

// ResolveFunction looks a function name up the way PHP does: first in the
// current namespace, then in the global namespace for unqualified names.
func (t *Table) ResolveFunction(name string, r *names.Resolver) (*FunctionSymbol, bool) {
	fq := r.Resolve(name)
	if fn, ok := t.Function(fq); ok {
		return fn, true
	}
	if isUnqualified(name) {
		return t.Function(names.FQN(names.Name(name)))
	}
	return nil, false
}

// ResolveConstant looks a constant name up with the global fallback of
// unqualified names.
func (t *Table) ResolveConstant(name string, r *names.Resolver) (*ConstantSymbol, bool) {
	fq := r.Resolve(name)
	if k, ok := t.Constant(fq); ok {
		return k, true
	}
	if isUnqualified(name) {
		return t.Constant(names.FQN(names.Name(name)))
	}
	return nil, false
}

func isUnqualified(name string) bool {
	return !strings.Contains(name, `\`)
}

// FindMethod looks up a method on class and its supertypes.
func (t *Table) FindMethod(class names.FullyQualifiedName, method string) (*FunctionSymbol, bool) {
	key := strings.ToLower(method)
	var found *FunctionSymbol
	t.walkHierarchy(class, func(c *ClassSymbol) bool {
		found = c.Methods[key]
		return found != nil
	})
	return found, found != nil
}

// FindProperty looks up a property on class and its supertypes.
func (t *Table) FindProperty(class names.FullyQualifiedName, prop string) (*PropertySymbol, bool) {
	var found *PropertySymbol
	t.walkHierarchy(class, func(c *ClassSymbol) bool {
		found = c.Properties[prop]
		return found != nil
	})
	return found, found != nil
}

// FindClassConstant looks up a class constant on class and its supertypes.
func (t *Table) FindClassConstant(class names.FullyQualifiedName, name string) (*ConstantSymbol, bool) {
	var found *ConstantSymbol
	t.walkHierarchy(class, func(c *ClassSymbol) bool {
		found = c.Constants[name]
		return found != nil
	})
	return found, found != nil
}

// HierarchyKnown reports whether class and all of its supertypes are
// declared.  Member checks are only meaningful for known hierarchies.
func (t *Table) HierarchyKnown(class names.FullyQualifiedName) bool {
	known := true
	seen := make(map[string]bool)
	var visit func(fq names.FullyQualifiedName)
	visit = func(fq names.FullyQualifiedName) {
		if !known || seen[fq.Key()] {
			return
		}
		seen[fq.Key()] = true
		c, ok := t.Class(fq)
		if !ok {
			known = false
			return
		}
		for _, p := range c.Parents() {
			visit(p)
		}
	}
	visit(class)
	return known
}

// IsSubclassOf reports whether class is sub or extends or implements super.
func (t *Table) IsSubclassOf(sub, super names.FullyQualifiedName) bool {
	found := false
	t.walkHierarchy(sub, func(c *ClassSymbol) bool {
		found = c.Name.EqualFold(super)
		return found
	})
	return found
}

// AnyInHierarchy reports whether pred holds for class or one of its
// declared supertypes.
func (t *Table) AnyInHierarchy(class names.FullyQualifiedName, pred func(*ClassSymbol) bool) bool {
	found := false
	t.walkHierarchy(class, func(c *ClassSymbol) bool {
		found = pred(c)
		return found
	})
	return found
}

// walkHierarchy visits class and then its supertypes breadth first until
// fn returns true.  Cycles are visited once.
func (t *Table) walkHierarchy(class names.FullyQualifiedName, fn func(*ClassSymbol) bool) {
	seen := make(map[string]bool)
	queue := []names.FullyQualifiedName{class}
	for len(queue) > 0 {
		fq := queue[0]
		queue = queue[1:]
		if seen[fq.Key()] {
			continue
		}
		seen[fq.Key()] = true
		c, ok := t.Class(fq)
		if !ok {
			continue
		}
		if fn(c) {
			return
		}
		queue = append(queue, c.Parents()...)
	}
}

// Generation returns a counter which changes whenever the table does.
func (t *Table) Generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation
}

// Len returns the number of classes, functions and constants.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.classes) + len(t.functions) + len(t.constants)
}

// Classes returns every class sorted by name.
func (t *Table) Classes() []*ClassSymbol {
	t.mu.RLock()
	out := make([]*ClassSymbol, 0, len(t.classes))
	for _, c := range t.classes {
		out = append(out, c)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name.Key() < out[j].Name.Key() })
	return out
}

// Functions returns every function sorted by name.
func (t *Table) Functions() []*FunctionSymbol {
	t.mu.RLock()
	out := make([]*FunctionSymbol, 0, len(t.functions))
	for _, fn := range t.functions {
		out = append(out, fn)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name.Key() < out[j].Name.Key() })
	return out
}

// Constants returns every global constant sorted by name.
func (t *Table) Constants() []*ConstantSymbol {
	t.mu.RLock()
	out := make([]*ConstantSymbol, 0, len(t.constants))
	for _, k := range t.constants {
		out = append(out, k)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name.String() < out[j].Name.String() })
	return out
}

// Conflict is a declaration of other rejected by Merge because the name
// was already taken.
type Conflict struct {
	Class    *ClassSymbol
	Function *FunctionSymbol
	Constant *ConstantSymbol
}

// Merge copies every declaration of other into t.  Declarations whose name
// is already present are skipped and returned in a deterministic order.
func (t *Table) Merge(other *Table) []Conflict {
	var conflicts []Conflict
	for _, c := range other.Classes() {
		if _, ok := t.InsertClass(c); !ok {
			conflicts = append(conflicts, Conflict{Class: c})
		}
	}
	for _, fn := range other.Functions() {
		if _, ok := t.InsertFunction(fn); !ok {
			conflicts = append(conflicts, Conflict{Function: fn})
		}
	}
	for _, k := range other.Constants() {
		if _, ok := t.InsertConstant(k); !ok {
			conflicts = append(conflicts, Conflict{Constant: k})
		}
	}
	other.mu.RLock()
	aliases := make(map[string]names.FullyQualifiedName, len(other.aliases))
	for k, v := range other.aliases {
		aliases[k] = v
	}
	other.mu.RUnlock()
	t.mu.Lock()
	for k, v := range aliases {
		if _, ok := t.aliases[k]; !ok {
			t.aliases[k] = v
			t.generation++
		}
	}
	t.mu.Unlock()
	return conflicts
}
