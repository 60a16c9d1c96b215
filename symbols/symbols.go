// Copyright © 2024 The ELPS authors

// Package symbols holds the declarations collected from PHP source: classes
// and their members, functions, constants and namespace aliases.
package symbols

import (
	"strings"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/names"
	"github.com/luthersystems/phpsema/types"
	"github.com/luthersystems/phpsema/value"
)

// ClassKind classifies a class-like declaration.
type ClassKind int

const (
	KindClass ClassKind = iota
	KindInterface
	KindTrait
	KindEnum
)

func (k ClassKind) String() string {
	switch k {
	case KindInterface:
		return "interface"
	case KindTrait:
		return "trait"
	case KindEnum:
		return "enum"
	default:
		return "class"
	}
}

// Location is where a symbol was declared.  Builtins have no location.
type Location struct {
	File  string
	Range ast.Range
}

// ClassSymbol describes a class, interface, trait or enum.
type ClassSymbol struct {
	Name     names.FullyQualifiedName
	Kind     ClassKind
	Location Location
	Doc      string
	Abstract bool
	Builtin  bool
	// Magic is set when members may exist without a declaration, through
	// @method or @mixin doc tags.
	Magic bool

	// Names as resolved in pass 1.  Pass 2 checks them against the table.
	Extends    []names.FullyQualifiedName
	Implements []names.FullyQualifiedName
	Traits     []names.FullyQualifiedName

	Methods    map[string]*FunctionSymbol // keyed by lower-cased name
	Properties map[string]*PropertySymbol
	Constants  map[string]*ConstantSymbol
}

// NewClass returns an empty class symbol.
func NewClass(name names.FullyQualifiedName, kind ClassKind) *ClassSymbol {
	return &ClassSymbol{
		Name:       name,
		Kind:       kind,
		Methods:    make(map[string]*FunctionSymbol),
		Properties: make(map[string]*PropertySymbol),
		Constants:  make(map[string]*ConstantSymbol),
	}
}

// AddMethod records a method.  A method with the same case-insensitive name
// is kept and returned with false.
func (c *ClassSymbol) AddMethod(fn *FunctionSymbol) (*FunctionSymbol, bool) {
	key := fn.Name.Last().Lower()
	if prev, ok := c.Methods[key]; ok {
		return prev, false
	}
	fn.Class = c
	c.Methods[key] = fn
	return fn, true
}

// AddProperty records a property.  The first declaration wins.
func (c *ClassSymbol) AddProperty(p *PropertySymbol) (*PropertySymbol, bool) {
	if prev, ok := c.Properties[p.Name]; ok {
		return prev, false
	}
	c.Properties[p.Name] = p
	return p, true
}

// AddConstant records a class constant.  The first declaration wins.
func (c *ClassSymbol) AddConstant(k *ConstantSymbol) (*ConstantSymbol, bool) {
	name := string(k.Name.Last())
	if prev, ok := c.Constants[name]; ok {
		return prev, false
	}
	c.Constants[name] = k
	return k, true
}

// Parents returns the names of every direct supertype: the parent class,
// implemented interfaces and used traits.
func (c *ClassSymbol) Parents() []names.FullyQualifiedName {
	out := make([]names.FullyQualifiedName, 0, len(c.Extends)+len(c.Implements)+len(c.Traits))
	out = append(out, c.Extends...)
	out = append(out, c.Implements...)
	return append(out, c.Traits...)
}

// Param is one formal parameter of a function.
type Param struct {
	Name     names.Name
	Type     *types.UnionType // nil when unknown
	Default  *value.Value     // folded default, nil when absent or unknown
	Optional bool
	Variadic bool
	ByRef    bool
	Promoted bool // constructor property promotion
}

func (p Param) String() string {
	var b strings.Builder
	if p.Type != nil {
		b.WriteString(p.Type.String())
		b.WriteByte(' ')
	}
	if p.ByRef {
		b.WriteByte('&')
	}
	if p.Variadic {
		b.WriteString("...")
	}
	b.WriteByte('$')
	b.WriteString(string(p.Name))
	switch {
	case p.Default != nil:
		b.WriteString(" = ")
		b.WriteString(p.Default.String())
	case p.Optional && !p.Variadic:
		b.WriteString(" = ...")
	}
	return b.String()
}

// FunctionSymbol describes a function or a method.
type FunctionSymbol struct {
	// Name is the fully qualified function name.  Methods use the class
	// name joined with the method name.
	Name       names.FullyQualifiedName
	Params     []Param
	ReturnType *types.UnionType
	Doc        string
	Location   Location
	Static     bool
	Abstract   bool
	Builtin    bool
	Class      *ClassSymbol // nil for functions
}

// Variadic reports whether the function accepts any number of trailing
// arguments.
func (f *FunctionSymbol) Variadic() bool {
	for _, p := range f.Params {
		if p.Variadic {
			return true
		}
	}
	return false
}

// MinArity returns the number of required parameters.
func (f *FunctionSymbol) MinArity() int {
	n := 0
	for _, p := range f.Params {
		if p.Optional || p.Variadic {
			break
		}
		n++
	}
	return n
}

// MaxArity returns the number of accepted arguments, or -1 when the
// function is variadic.
func (f *FunctionSymbol) MaxArity() int {
	if f.Variadic() {
		return -1
	}
	return len(f.Params)
}

// DisplayName renders the name the way it is written at call sites.
func (f *FunctionSymbol) DisplayName() string {
	if f.Class != nil {
		return f.Class.Name.String() + "::" + string(f.Name.Last())
	}
	return f.Name.String()
}

// Signature renders f the way it would be declared, without a body.
func (f *FunctionSymbol) Signature() string {
	var b strings.Builder
	if f.Static {
		b.WriteString("static ")
	}
	b.WriteString("function ")
	b.WriteString(f.DisplayName())
	b.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	if f.ReturnType != nil {
		b.WriteString(": ")
		b.WriteString(f.ReturnType.String())
	}
	return b.String()
}

// Param returns the parameter with the given name.
func (f *FunctionSymbol) Param(name string) (Param, bool) {
	for _, p := range f.Params {
		if string(p.Name) == name {
			return p, true
		}
	}
	return Param{}, false
}

// ConstantSymbol describes a global or class constant.
type ConstantSymbol struct {
	// Name is fully qualified for global constants.  Class constants use
	// the class name joined with the constant name.
	Name        names.FullyQualifiedName
	Value       *value.Value     // nil until folded
	Type        *types.UnionType // nil until folded
	Location    Location
	Doc         string
	Conditional bool
	Builtin     bool

	// Init is the initializer expression, kept for folding in pass 2.
	Init *ast.Node
}

// PropertySymbol describes a class property.
type PropertySymbol struct {
	Name     string // without the leading "$"
	Type     *types.UnionType
	Default  *value.Value
	Static   bool
	Location Location
	Doc      string
}
