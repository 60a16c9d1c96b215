// Copyright © 2024 The ELPS authors

// Package phpdoc parses PHPDoc comments into tagged entries.
//
// Only the structure of a comment is parsed here.  Type expressions are
// kept as text and parsed by the types package once the namespace context
// of the declaration is known.
package phpdoc

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/luthersystems/phpsema/ast"
)

var (
	// ErrNotDocComment is returned for comments which do not start with
	// "/**".  They are ordinary comments, not malformed doc comments.
	ErrNotDocComment = errors.New("not a doc comment")
	// ErrSyntax is returned (wrapped) for malformed doc comments.
	ErrSyntax = errors.New("malformed doc comment")
)

// TagKind classifies the tags the analyzer interprets.
type TagKind int

const (
	TagOther TagKind = iota
	TagParam
	TagReturn
	TagVar
	TagTemplate
	TagThrows
	TagDeprecated
)

// Entry is one tag of a doc comment.
type Entry struct {
	Tag    string // as written, without "@"
	Kind   TagKind
	Type   string // type expression, "" when absent
	Var    string // variable or template name without "$", "" when absent
	Desc   string
	Offset int // byte offset of the tag within the raw comment
}

// Comment is a parsed doc comment.
type Comment struct {
	Raw     string
	Summary string
	Entries []Entry
}

// Parse parses a raw comment including its delimiters.
func Parse(raw string) (*Comment, error) {
	if !strings.HasPrefix(raw, "/**") || strings.HasPrefix(raw, "/**/") {
		return nil, ErrNotDocComment
	}
	if !strings.HasSuffix(raw, "*/") || len(raw) < len("/***/") {
		return nil, fmt.Errorf("%w: unterminated comment", ErrSyntax)
	}
	c := &Comment{Raw: raw}
	body := raw[len("/**") : len(raw)-len("*/")]
	offset := len("/**")
	var summary []string
	for _, line := range strings.SplitAfter(body, "\n") {
		lineStart := offset
		offset += len(line)
		content, skipped := stripDecoration(line)
		if content == "" {
			continue
		}
		if content[0] != '@' {
			if n := len(c.Entries); n > 0 {
				c.Entries[n-1].Desc = joinDesc(c.Entries[n-1].Desc, content)
			} else {
				summary = append(summary, content)
			}
			continue
		}
		e, err := parseEntry(content)
		if err != nil {
			return nil, err
		}
		e.Offset = lineStart + skipped
		c.Entries = append(c.Entries, e)
	}
	c.Summary = strings.Join(summary, " ")
	return c, nil
}

// stripDecoration removes the leading "*" and whitespace of a comment line
// and returns the content and the number of bytes removed from the front.
func stripDecoration(line string) (string, int) {
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
	if strings.HasPrefix(trimmed, "*") {
		trimmed = trimmed[1:]
	}
	trimmed = strings.TrimLeftFunc(trimmed, unicode.IsSpace)
	skipped := len(line) - len(trimmed)
	return strings.TrimRightFunc(trimmed, unicode.IsSpace), skipped
}

func joinDesc(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

var tagName = regexp.MustCompile(`^@([A-Za-z][A-Za-z0-9_\-:\\]*)`)

func parseEntry(content string) (Entry, error) {
	m := tagName.FindStringSubmatch(content)
	if m == nil {
		return Entry{}, fmt.Errorf("%w: bad tag %q", ErrSyntax, firstWord(content))
	}
	e := Entry{Tag: m[1], Kind: kindOf(m[1])}
	rest := strings.TrimSpace(content[len(m[0]):])
	switch e.Kind {
	case TagParam, TagVar:
		if !strings.HasPrefix(rest, "$") && !strings.HasPrefix(rest, "&") && !strings.HasPrefix(rest, "...") {
			typ, after, err := scanType(rest)
			if err != nil {
				return Entry{}, err
			}
			e.Type, rest = typ, after
		}
		e.Var, rest = scanVar(rest)
	case TagReturn, TagThrows:
		typ, after, err := scanType(rest)
		if err != nil {
			return Entry{}, err
		}
		e.Type, rest = typ, after
	case TagTemplate:
		e.Var = firstWord(rest)
		rest = strings.TrimSpace(rest[len(e.Var):])
		if bound, ok := strings.CutPrefix(rest, "of "); ok {
			typ, after, err := scanType(strings.TrimSpace(bound))
			if err != nil {
				return Entry{}, err
			}
			e.Type, rest = typ, after
		}
	}
	e.Desc = strings.TrimSpace(rest)
	return e, nil
}

func kindOf(tag string) TagKind {
	switch strings.ToLower(tag) {
	case "param", "psalm-param", "phpstan-param":
		return TagParam
	case "return", "psalm-return", "phpstan-return":
		return TagReturn
	case "var", "psalm-var", "phpstan-var":
		return TagVar
	case "template", "template-covariant", "template-contravariant", "psalm-template", "phpstan-template":
		return TagTemplate
	case "throws":
		return TagThrows
	case "deprecated":
		return TagDeprecated
	}
	return TagOther
}

func firstWord(s string) string {
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return s[:i]
	}
	return s
}

// scanType reads a type expression from the front of s.  Whitespace ends
// the type except inside brackets or next to a union operator.
func scanType(s string) (string, string, error) {
	var stack []rune
	i := 0
	for i < len(s) {
		r := rune(s[i])
		switch r {
		case '<', '(', '{', '[':
			stack = append(stack, r)
		case '>', ')', '}', ']':
			if len(stack) == 0 || !matches(stack[len(stack)-1], r) {
				return "", "", fmt.Errorf("%w: unbalanced %q in type", ErrSyntax, string(r))
			}
			stack = stack[:len(stack)-1]
		case ' ', '\t':
			if len(stack) > 0 {
				break
			}
			// "int | string" is one type
			j := i
			for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
				j++
			}
			if (j < len(s) && (s[j] == '|' || s[j] == '&')) || (i > 0 && (s[i-1] == '|' || s[i-1] == '&')) {
				i = j
				continue
			}
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i:]), nil
		}
		i++
	}
	if len(stack) > 0 {
		return "", "", fmt.Errorf("%w: unterminated %q in type", ErrSyntax, string(stack[len(stack)-1]))
	}
	return strings.TrimSpace(s), "", nil
}

func matches(open, close rune) bool {
	switch open {
	case '<':
		return close == '>'
	case '(':
		return close == ')'
	case '{':
		return close == '}'
	}
	return close == ']'
}

// scanVar reads "$name", "&$name" or "...$name" from the front of s.
func scanVar(s string) (string, string) {
	rest := strings.TrimPrefix(strings.TrimPrefix(s, "&"), "...")
	if !strings.HasPrefix(rest, "$") {
		return "", s
	}
	end := 1
	for end < len(rest) && isIdent(rune(rest[end])) {
		end++
	}
	return rest[1:end], strings.TrimSpace(rest[end:])
}

func isIdent(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || r >= 0x80
}

// Params returns the @param entries.
func (c *Comment) Params() []Entry { return c.entries(TagParam) }

// Templates returns the @template entries.
func (c *Comment) Templates() []Entry { return c.entries(TagTemplate) }

// Vars returns the @var entries.
func (c *Comment) Vars() []Entry { return c.entries(TagVar) }

// Returns returns the @return entries.  More than one is a duplicate
// declaration.
func (c *Comment) Returns() []Entry { return c.entries(TagReturn) }

func (c *Comment) entries(kind TagKind) []Entry {
	if c == nil {
		return nil
	}
	var out []Entry
	for _, e := range c.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Deprecated reports whether the comment carries a @deprecated tag.
func (c *Comment) Deprecated() bool {
	return len(c.entries(TagDeprecated)) > 0
}

// RangeOf returns the source range of the tag of e, given the range of the
// whole comment.
func (c *Comment) RangeOf(e Entry, comment ast.Range) ast.Range {
	start := pointAt(c.Raw, e.Offset, comment.Start)
	end := e.Offset + 1 + len(e.Tag)
	return ast.Range{
		StartByte: comment.StartByte + uint(e.Offset),
		EndByte:   comment.StartByte + uint(end),
		Start:     start,
		End:       pointAt(c.Raw, end, comment.Start),
	}
}

func pointAt(raw string, offset int, base ast.Point) ast.Point {
	if offset > len(raw) {
		offset = len(raw)
	}
	p := base
	lineStart := 0
	for i := 0; i < offset; i++ {
		if raw[i] == '\n' {
			p.Row++
			lineStart = i + 1
		}
	}
	if p.Row == base.Row {
		p.Column = base.Column + uint(offset)
	} else {
		p.Column = uint(offset - lineStart)
	}
	return p
}
