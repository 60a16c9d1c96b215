// Copyright © 2018 The ELPS authors

package repl

import (
	"context"
	"testing"
)

func TestSymbolCompleter(t *testing.T) {
	s := NewSession(nil)
	if _, err := s.Eval(context.Background(), "$value = 1; function my_helper() {}"); err != nil {
		t.Fatal(err)
	}
	c := &symbolCompleter{session: s}

	candidates, offset := c.Do([]rune("echo $va"), 8)
	if offset != 3 {
		t.Errorf("offset = %d, want 3", offset)
	}
	if len(candidates) != 1 || string(candidates[0]) != "lue" {
		t.Errorf("candidates = %q, want [lue]", candidates)
	}

	candidates, _ = c.Do([]rune("my_h"), 4)
	if len(candidates) != 1 || string(candidates[0]) != "elper" {
		t.Errorf("candidates = %q, want [elper]", candidates)
	}

	candidates, _ = c.Do([]rune("str_rep"), 7)
	if len(candidates) == 0 {
		t.Error("expected completions for 'str_rep', got none")
	}

	candidates, offset = c.Do([]rune(":va"), 3)
	if offset != 3 || len(candidates) != 1 || string(candidates[0]) != "rs" {
		t.Errorf("command completion = %q at %d", candidates, offset)
	}

	candidates, _ = c.Do([]rune("zzz_nonexistent"), 15)
	if len(candidates) != 0 {
		t.Errorf("expected no completions for 'zzz_nonexistent', got %d", len(candidates))
	}
}
