// Copyright © 2024 The ELPS authors

package issue

import "sort"

// Kind identifies a class of issue.  The set of kinds is closed.
type Kind int

const (
	kindUnset Kind = iota
	UnusedVariable
	UnknownVariable
	UnknownFunction
	UnknownClass
	UnknownType
	UnknownProperty
	DuplicateClass
	DuplicateSymbol
	NotAVerifiedCallableVariable
	NotACallableVariable
	DecrementIsIllegalOnType
	IncrementIsIllegalOnType
	UnknownConstant
	UnreachableCode
	EmptyTemplate
	MethodCallOnUnknownType
	MethodCallOnNullableType
	PropertyAccessOnUnknownType
	PropertyAccessOnInterfaceType
	IndeterminablePropertyName
	UnknownMethod
	TraversalOfUnknownType
	ConditionalConstantDeclaration
	WrongNumberOfArguments
	WrongFunctionNameCasing
	WrongClassNameCasing
	DuplicateConstant
	DuplicateFunction
	UnknownClassConstant
	DuplicateClassConstant
	DuplicateDeclaration
	DuplicateTemplate
	UnknownIndexType
	ParseAnomaly
	VariableNotInitializedInAllBranches
	PHPDocParseError
	PHPDocTypeError
	MisplacedPHPDocEntry
	InvalidPHPDocEntry
	RedundantPHPDocEntry
	UnknownPHPDocEntry
	numKinds
)

type kindInfo struct {
	name string
	doc  string
}

var kindInfos = [numKinds]kindInfo{
	UnusedVariable: {"unused-variable",
		"A local variable is assigned but its value is never read. Variables whose name starts with an underscore and function parameters are exempt."},
	UnknownVariable: {"unknown-variable",
		"A variable is read before any assignment on every path reaching the read, or $this is used outside of a class."},
	UnknownFunction: {"unknown-function",
		"A function is called that is neither declared in the analyzed files nor a known builtin."},
	UnknownClass: {"unknown-class",
		"A class name used in new, extends, implements or a static access does not resolve to a declared class."},
	UnknownType: {"unknown-type",
		"A type named in a doc comment does not resolve."},
	UnknownProperty: {"unknown-property",
		"A property is accessed on an object of a declared class which has no such property."},
	DuplicateClass: {"duplicate-class",
		"A class, interface, trait or enum with the same fully qualified name is declared more than once. The first declaration wins."},
	DuplicateSymbol: {"duplicate-symbol",
		"A namespace alias is imported more than once."},
	NotAVerifiedCallableVariable: {"unverified-callable",
		"A variable is called as a function but its type could not be determined."},
	NotACallableVariable: {"not-callable",
		"A variable is called as a function but its type can never be callable."},
	DecrementIsIllegalOnType: {"illegal-decrement",
		"The decrement operator is applied to an array or an object."},
	IncrementIsIllegalOnType: {"illegal-increment",
		"The increment operator is applied to an array or an object."},
	UnknownConstant: {"unknown-constant",
		"A bare constant name does not resolve to a declared or builtin constant."},
	UnreachableCode: {"unreachable-code",
		"A branch can never run because its condition folds to a constant."},
	EmptyTemplate: {"empty-template",
		"A generic template declared in a doc comment is never fulfilled."},
	MethodCallOnUnknownType: {"method-call-on-unknown-type",
		"A method is called on a value whose type could not be determined."},
	MethodCallOnNullableType: {"method-call-on-nullable",
		"A method is called on a value which may be null."},
	PropertyAccessOnUnknownType: {"property-on-unknown-type",
		"A property is accessed on a value whose type could not be determined."},
	PropertyAccessOnInterfaceType: {"property-on-interface",
		"A property is accessed on a value only known to implement an interface."},
	IndeterminablePropertyName: {"indeterminable-property",
		"A dynamic property name could not be determined."},
	UnknownMethod: {"unknown-method",
		"A method is called on an object of a declared class which neither declares nor inherits it."},
	TraversalOfUnknownType: {"traversal-of-unknown-type",
		"A foreach loop traverses a value which is neither an array nor an object."},
	ConditionalConstantDeclaration: {"conditional-constant",
		"A constant is declared inside a conditional branch."},
	WrongNumberOfArguments: {"wrong-argument-count",
		"A function or method is called with fewer arguments than it requires or more than it accepts."},
	WrongFunctionNameCasing: {"function-name-casing",
		"A function is called with different letter case than its declaration."},
	WrongClassNameCasing: {"class-name-casing",
		"A class is referenced with different letter case than its declaration."},
	DuplicateConstant: {"duplicate-constant",
		"A constant with the same fully qualified name is declared more than once."},
	DuplicateFunction: {"duplicate-function",
		"A function or method with the same name is declared more than once in the same namespace or class."},
	UnknownClassConstant: {"unknown-class-constant",
		"A class constant is accessed on a declared class which has no such constant."},
	DuplicateClassConstant: {"duplicate-class-constant",
		"A class constant is declared more than once in the same class."},
	DuplicateDeclaration: {"duplicate-declaration",
		"A doc comment entry is repeated."},
	DuplicateTemplate: {"duplicate-template",
		"A generic template is declared more than once in a doc comment."},
	UnknownIndexType: {"unknown-index-type",
		"An array is indexed with an array or an object."},
	ParseAnomaly: {"parse-anomaly",
		"The syntax tree contains an error or a shape the analyzer does not expect."},
	VariableNotInitializedInAllBranches: {"not-initialized-in-all-branches",
		"A variable is read which is assigned on some but not all paths reaching the read."},
	PHPDocParseError: {"phpdoc-parse-error",
		"A doc comment could not be parsed."},
	PHPDocTypeError: {"phpdoc-type-error",
		"A type in a doc comment could not be parsed."},
	MisplacedPHPDocEntry: {"phpdoc-misplaced",
		"A doc comment tag is used on a declaration it does not apply to."},
	InvalidPHPDocEntry: {"phpdoc-invalid",
		"A doc comment tag is malformed or refers to something that does not exist."},
	RedundantPHPDocEntry: {"phpdoc-redundant",
		"A doc comment tag repeats what the declaration already states."},
	UnknownPHPDocEntry: {"phpdoc-unknown-tag",
		"A doc comment uses a tag which is neither standard nor configured as known."},
}

// String returns the stable kebab-case name of k.
func (k Kind) String() string {
	if k <= kindUnset || k >= numKinds {
		return "unknown"
	}
	return kindInfos[k].name
}

// Doc returns a description of the kind of problem k reports.
func (k Kind) Doc() string {
	if k <= kindUnset || k >= numKinds {
		return ""
	}
	return kindInfos[k].doc
}

// Severity is fixed per kind.
func (k Kind) Severity() Severity {
	switch k {
	case UnusedVariable, VariableNotInitializedInAllBranches, NotAVerifiedCallableVariable:
		return SeverityWarning
	case ConditionalConstantDeclaration:
		return SeverityHint
	default:
		return SeverityError
	}
}

// Kinds returns every kind sorted by name.
func Kinds() []Kind {
	out := make([]Kind, 0, numKinds-1)
	for k := kindUnset + 1; k < numKinds; k++ {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// KindByName returns the kind with the given name.
func KindByName(name string) (Kind, bool) {
	for k := kindUnset + 1; k < numKinds; k++ {
		if kindInfos[k].name == name {
			return k, true
		}
	}
	return kindUnset, false
}
