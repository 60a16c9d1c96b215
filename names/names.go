// Copyright © 2024 The ELPS authors

// Package names provides the identifier types used as symbol table keys:
// plain names and namespace-qualified names.
package names

import (
	"strings"
)

// Name is a single, case-preserving PHP identifier.
type Name string

// Lower returns the case-insensitive key for n.  PHP class, function and
// namespace names are case-insensitive.
func (n Name) Lower() string {
	return strings.ToLower(string(n))
}

// EqualFold reports whether n and other name the same class or function.
func (n Name) EqualFold(other Name) bool {
	return strings.EqualFold(string(n), string(other))
}

func (n Name) String() string {
	return string(n)
}

// FullyQualifiedName is an absolute namespace path such as \Foo\Bar.  The
// zero value is the global namespace.  FullyQualifiedName values are
// comparable and may be used as map keys, though Key should be preferred
// when case-insensitive lookup is intended.
type FullyQualifiedName struct {
	path string // canonical "\A\B" form, "" for the root
}

// ParseFQN parses a backslash separated name.  A leading backslash is
// optional; the result is always absolute.  Empty segments are skipped.
func ParseFQN(s string) FullyQualifiedName {
	var b strings.Builder
	for _, part := range strings.Split(strings.TrimSpace(s), `\`) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte('\\')
		b.WriteString(part)
	}
	return FullyQualifiedName{path: b.String()}
}

// FQN builds a fully qualified name from path segments.
func FQN(parts ...Name) FullyQualifiedName {
	var fq FullyQualifiedName
	for _, p := range parts {
		fq = fq.Join(p)
	}
	return fq
}

// IsRoot reports whether fq is the global namespace.
func (fq FullyQualifiedName) IsRoot() bool {
	return fq.path == ""
}

// Join appends a name to the namespace path fq.
func (fq FullyQualifiedName) Join(n Name) FullyQualifiedName {
	if n == "" {
		return fq
	}
	return FullyQualifiedName{path: fq.path + `\` + string(n)}
}

// Append appends every segment of other to fq.  It is used to resolve a
// relative qualified name against the current namespace.
func (fq FullyQualifiedName) Append(other FullyQualifiedName) FullyQualifiedName {
	return FullyQualifiedName{path: fq.path + other.path}
}

// Path returns the segments of fq.
func (fq FullyQualifiedName) Path() []Name {
	if fq.path == "" {
		return nil
	}
	parts := strings.Split(fq.path[1:], `\`)
	path := make([]Name, len(parts))
	for i, p := range parts {
		path[i] = Name(p)
	}
	return path
}

// Last returns the unqualified final segment of fq.
func (fq FullyQualifiedName) Last() Name {
	i := strings.LastIndexByte(fq.path, '\\')
	if i < 0 {
		return ""
	}
	return Name(fq.path[i+1:])
}

// Namespace returns fq without its final segment.
func (fq FullyQualifiedName) Namespace() FullyQualifiedName {
	i := strings.LastIndexByte(fq.path, '\\')
	if i <= 0 {
		return FullyQualifiedName{}
	}
	return FullyQualifiedName{path: fq.path[:i]}
}

// Key returns the lower-cased form of fq used for case-insensitive lookup.
func (fq FullyQualifiedName) Key() string {
	return strings.ToLower(fq.path)
}

// EqualFold reports whether fq and other name the same symbol.
func (fq FullyQualifiedName) EqualFold(other FullyQualifiedName) bool {
	return strings.EqualFold(fq.path, other.path)
}

// String returns the name in \A\B form.  The root namespace is rendered
// as a single backslash.
func (fq FullyQualifiedName) String() string {
	if fq.path == "" {
		return `\`
	}
	return fq.path
}

// Resolver resolves names written in source against the current namespace
// and the aliases imported with use clauses.
type Resolver struct {
	Namespace FullyQualifiedName
	// Uses maps a lower-cased alias to its import target.
	Uses map[string]FullyQualifiedName
}

// Resolve resolves a class-like name.  Absolute names are returned as-is,
// a leading alias segment is expanded from Uses, and anything else is
// relative to Namespace.
func (r *Resolver) Resolve(name string) FullyQualifiedName {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, `\`) {
		return ParseFQN(name)
	}
	if r == nil {
		return ParseFQN(name)
	}
	if rest, ok := cutPrefixFold(name, `namespace\`); ok {
		return r.Namespace.Append(ParseFQN(rest))
	}
	first, rest, qualified := strings.Cut(name, `\`)
	if target, ok := r.Uses[strings.ToLower(first)]; ok {
		if !qualified {
			return target
		}
		return target.Append(ParseFQN(rest))
	}
	return r.Namespace.Append(ParseFQN(name))
}

// Alias records a use clause.
func (r *Resolver) Alias(alias Name, target FullyQualifiedName) {
	if r.Uses == nil {
		r.Uses = make(map[string]FullyQualifiedName)
	}
	r.Uses[alias.Lower()] = target
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
