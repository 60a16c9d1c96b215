// Copyright © 2018 The ELPS authors

package repl

import (
	"sort"
	"strings"
)

var commands = []string{":help", ":reset", ":source", ":type", ":vars"}

// symbolCompleter implements readline.AutoCompleter with the variables,
// functions and classes known to the session.
type symbolCompleter struct {
	session *Session
}

func (c *symbolCompleter) Do(line []rune, pos int) ([][]rune, int) {
	start := pos
	for start > 0 && wordRune(line[start-1]) {
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}

	candidates := c.collect(prefix, start == 0)
	if len(candidates) == 0 {
		return nil, 0
	}
	result := make([][]rune, 0, len(candidates))
	for _, name := range candidates {
		result = append(result, []rune(name[len(prefix):]))
	}
	return result, len(prefix)
}

func wordRune(r rune) bool {
	switch {
	case r == '_' || r == '$' || r == '\\' || r == ':':
		return true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return r >= 0x80
}

func (c *symbolCompleter) collect(prefix string, lineStart bool) []string {
	seen := make(map[string]bool)
	var result []string
	add := func(name string) {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}

	switch {
	case strings.HasPrefix(prefix, ":"):
		if lineStart {
			for _, cmd := range commands {
				add(cmd)
			}
		}
	case strings.HasPrefix(prefix, "$"):
		for _, v := range c.session.Vars() {
			add("$" + v.Name)
		}
	default:
		table := c.session.Symbols()
		for _, fn := range table.Functions() {
			add(strings.TrimPrefix(fn.Name.String(), `\`))
		}
		for _, cl := range table.Classes() {
			add(strings.TrimPrefix(cl.Name.String(), `\`))
		}
	}
	sort.Strings(result)
	return result
}
