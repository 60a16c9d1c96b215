// Copyright © 2024 The ELPS authors

package analysis

import (
	"regexp"
	"strings"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/phpdoc"
	"github.com/luthersystems/phpsema/symbols"
	"github.com/luthersystems/phpsema/types"
)

// docTarget is the kind of declaration a doc comment is attached to.
type docTarget int

const (
	docFunction docTarget = iota
	docClass
	docProperty
	docConstant
)

// docInfo is what a doc comment contributes to a declaration.
type docInfo struct {
	summary    string
	templates  map[string]bool
	varType    *types.UnionType
	properties []*symbols.PropertySymbol
	magic      bool
}

var typeWord = regexp.MustCompile(`[A-Za-z_\\][A-Za-z0-9_\\]*`)

// parseType parses a type written in a hint or a doc comment.  Template
// names stand for any type.  Classes named by the type are checked once
// every declaration is known.
func (s *State) parseType(text string, templates map[string]bool, rng ast.Range) (*types.UnionType, error) {
	if len(templates) > 0 || len(s.classTemplates) > 0 {
		text = typeWord.ReplaceAllStringFunc(text, func(w string) string {
			if templates[w] || s.classTemplates[w] {
				return "mixed"
			}
			return w
		})
	}
	t, err := types.Parse(text, s.resolver(), s.selfName())
	if err != nil {
		return nil, err
	}
	if s.Pass == 1 {
		self := s.selfName()
		for _, d := range t.Types() {
			if d.Kind == types.KindObject && !d.Class.IsRoot() && !d.Class.EqualFold(self) {
				s.typeRefs = append(s.typeRefs, typeRef{class: d.Class, rng: rng})
			}
		}
	}
	return t, nil
}

// readDoc interprets the doc comment preceding a declaration.  Problems
// are reported in pass 1 only.  For functions the types of fn are
// completed from @param and @return.
func (s *State) readDoc(target docTarget, fn *symbols.FunctionSymbol) docInfo {
	var info docInfo
	c, rng := s.docComment()
	s.LastDoc = nil
	if c == nil {
		return info
	}
	info.summary = c.Summary
	if s.Pass != 1 {
		return info
	}
	at := func(e phpdoc.Entry) ast.Range {
		return c.RangeOf(e, rng)
	}
	report := func(kind issue.Kind, e phpdoc.Entry, fill func(*issue.Issue)) {
		s.reportAt(kind, at(e), fill)
	}

	info.templates = make(map[string]bool)
	for _, e := range c.Templates() {
		if info.templates[e.Var] {
			report(issue.DuplicateTemplate, e, func(i *issue.Issue) { i.Name = e.Var })
			continue
		}
		info.templates[e.Var] = true
	}

	seenParams := make(map[string]bool)
	seenReturn := false
	for _, e := range c.Entries {
		if !phpdoc.IsKnownTag(e.Tag, s.cfg.knownTags()) {
			report(issue.UnknownPHPDocEntry, e, func(i *issue.Issue) { i.Text = "@" + e.Tag })
			continue
		}
		switch e.Kind {
		case phpdoc.TagParam:
			if target != docFunction {
				report(issue.MisplacedPHPDocEntry, e, func(i *issue.Issue) { i.Text = "@" + e.Tag })
				continue
			}
			s.docParam(fn, e, info.templates, seenParams, at(e))
		case phpdoc.TagReturn:
			if target != docFunction {
				report(issue.MisplacedPHPDocEntry, e, func(i *issue.Issue) { i.Text = "@" + e.Tag })
				continue
			}
			if seenReturn {
				report(issue.DuplicateDeclaration, e, func(i *issue.Issue) { i.Text = "@" + e.Tag })
				continue
			}
			seenReturn = true
			t, ok := s.docType(e, info.templates, at(e))
			if !ok || fn == nil {
				continue
			}
			switch {
			case fn.ReturnType != nil && t.Equal(fn.ReturnType) && e.Desc == "":
				report(issue.RedundantPHPDocEntry, e, func(i *issue.Issue) { i.Text = "@return " + e.Type })
			case fn.ReturnType == nil:
				fn.ReturnType = t
			}
		case phpdoc.TagVar:
			if target == docFunction || target == docClass {
				report(issue.MisplacedPHPDocEntry, e, func(i *issue.Issue) { i.Text = "@" + e.Tag })
				continue
			}
			if t, ok := s.docType(e, info.templates, at(e)); ok {
				info.varType = t
			}
		case phpdoc.TagOther:
			switch strings.ToLower(e.Tag) {
			case "property", "property-read", "property-write":
				if target != docClass {
					report(issue.MisplacedPHPDocEntry, e, func(i *issue.Issue) { i.Text = "@" + e.Tag })
					continue
				}
				if e.Var == "" {
					report(issue.InvalidPHPDocEntry, e, func(i *issue.Issue) { i.Text = "@" + e.Tag + " without a property name" })
					continue
				}
				t, _ := s.docType(e, info.templates, at(e))
				info.properties = append(info.properties, &symbols.PropertySymbol{
					Name:     e.Var,
					Type:     t,
					Location: symbols.Location{File: s.Filename, Range: at(e)},
					Doc:      e.Desc,
				})
			case "method", "mixin":
				info.magic = true
			}
		}
	}
	return info
}

func (s *State) docParam(fn *symbols.FunctionSymbol, e phpdoc.Entry, templates map[string]bool, seen map[string]bool, at ast.Range) {
	if e.Var == "" {
		s.reportAt(issue.InvalidPHPDocEntry, at, func(i *issue.Issue) { i.Text = "@param without a variable name" })
		return
	}
	if fn == nil {
		return
	}
	idx := -1
	for i, p := range fn.Params {
		if string(p.Name) == e.Var {
			idx = i
			break
		}
	}
	switch {
	case idx < 0:
		s.reportAt(issue.InvalidPHPDocEntry, at, func(i *issue.Issue) { i.Text = "@param $" + e.Var + " does not name a parameter" })
		return
	case seen[e.Var]:
		s.reportAt(issue.InvalidPHPDocEntry, at, func(i *issue.Issue) { i.Text = "@param $" + e.Var + " is documented twice" })
		return
	}
	seen[e.Var] = true
	t, ok := s.docType(e, templates, at)
	if !ok {
		return
	}
	hint := fn.Params[idx].Type
	switch {
	case hint != nil && t.Equal(hint) && e.Desc == "":
		s.reportAt(issue.RedundantPHPDocEntry, at, func(i *issue.Issue) { i.Text = "@param " + e.Type + " $" + e.Var })
	case hint == nil:
		if fn.Params[idx].Variadic && t != nil {
			t = types.New(types.Array)
		}
		fn.Params[idx].Type = t
	}
}

// docType parses the type of a doc entry.  It reports false when the entry
// has no type or the type is malformed.
func (s *State) docType(e phpdoc.Entry, templates map[string]bool, at ast.Range) (*types.UnionType, bool) {
	if e.Type == "" {
		return nil, false
	}
	t, err := s.parseType(e.Type, templates, at)
	if err != nil {
		s.reportAt(issue.PHPDocTypeError, at, func(i *issue.Issue) { i.Text = err.Error() })
		return nil, false
	}
	return t, true
}

// docTemplates returns the @template names of the comment preceding a
// function, without reporting anything.
func (s *State) docTemplates(doc *ast.Node) map[string]bool {
	if doc == nil {
		return nil
	}
	c, err := phpdoc.Parse(doc.Text())
	if err != nil {
		return nil
	}
	var out map[string]bool
	for _, e := range c.Templates() {
		if out == nil {
			out = make(map[string]bool)
		}
		out[e.Var] = true
	}
	return out
}

// inlineVars returns the types declared by an inline @var comment, keyed
// by variable name.  A type naming a template of the enclosing function is
// reported since nothing can fulfill it there.
func (s *State) inlineVars(doc *ast.Node) map[string]*types.UnionType {
	if doc == nil {
		return nil
	}
	c, err := phpdoc.Parse(doc.Text())
	if err != nil {
		return nil
	}
	var templates map[string]bool
	if s.InFunction != nil {
		templates = s.InFunction.Templates
	}
	out := make(map[string]*types.UnionType)
	for _, e := range c.Vars() {
		if e.Var == "" || e.Type == "" {
			continue
		}
		if name, ok := mentionsTemplate(e.Type, templates); ok {
			s.reportAt(issue.EmptyTemplate, c.RangeOf(e, doc.Range()), func(i *issue.Issue) { i.Name = name })
		}
		t, err := s.parseType(e.Type, templates, doc.Range())
		if err != nil {
			continue
		}
		out[e.Var] = t
	}
	return out
}

func mentionsTemplate(text string, templates map[string]bool) (string, bool) {
	for _, w := range typeWord.FindAllString(text, -1) {
		if templates[w] {
			return w, true
		}
	}
	return "", false
}
