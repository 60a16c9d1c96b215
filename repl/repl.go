// Copyright © 2018 The ELPS authors

// Package repl is an interactive shell showing what the analyzer infers
// about PHP statements as they are typed.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"github.com/luthersystems/phpsema/diagnostic"
	"github.com/luthersystems/phpsema/symbols"
)

type config struct {
	stdin   io.ReadCloser
	stderr  io.WriteCloser
	symbols func() *symbols.Table
	color   diagnostic.ColorMode
}

func newConfig(opts ...Option) *config {
	config := &config{}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

type Option func(*config)

// WithStdin allows overriding the input to the REPL.
func WithStdin(stdin io.ReadCloser) Option {
	return func(c *config) {
		c.stdin = stdin
	}
}

// WithStderr allows overriding the output to the REPL.
func WithStderr(stderr io.WriteCloser) Option {
	return func(c *config) {
		c.stderr = stderr
	}
}

// WithSymbols sets the constructor of the symbol table every analysis of
// the session starts from.
func WithSymbols(fn func() *symbols.Table) Option {
	return func(c *config) {
		c.symbols = fn
	}
}

// WithColor sets the color mode of rendered issues.
func WithColor(mode diagnostic.ColorMode) Option {
	return func(c *config) {
		c.color = mode
	}
}

const helpText = `Enter PHP statements without the opening tag. Each statement is
analyzed after the ones before it; the inferred type of an expression is
printed after it.

Commands:
  :vars          List the variables defined so far with their types
  :type EXPR     Show the type of EXPR without keeping it
  :source        Print the statements kept so far
  :reset         Forget every statement
  :help          Show this text
`

// RunRepl reads statements until end of input.
func RunRepl(prompt string, opts ...Option) error {
	cfg := newConfig(opts...)
	var out io.Writer = os.Stderr
	if cfg.stderr != nil {
		out = cfg.stderr
	}
	session := NewSession(cfg.symbols)
	cont := strings.Repeat(" ", max(len(prompt)-4, 0)) + "... "

	histFile := historyPath()
	ensureHistoryFilePermissions(histFile)
	rlCfg := &readline.Config{
		Stdout:            out,
		Stderr:            out,
		Prompt:            prompt,
		HistoryFile:       histFile,
		HistorySearchFold: true,
		AutoComplete:      &symbolCompleter{session: session},
	}
	if cfg.stdin != nil {
		rlCfg.Stdin = cfg.stdin
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return err
	}
	defer rl.Close() //nolint:errcheck // best-effort cleanup

	ctx := context.Background()
	var pending strings.Builder
	for {
		if pending.Len() == 0 {
			rl.SetPrompt(prompt)
		} else {
			rl.SetPrompt(cont)
		}
		line, err := rl.ReadSlice()
		if errors.Is(err, readline.ErrInterrupt) {
			pending.Reset()
			continue
		}
		if err != nil {
			return nil
		}
		if pending.Len() == 0 {
			text := strings.TrimSpace(string(line))
			if text == "" {
				continue
			}
			if strings.HasPrefix(text, ":") {
				command(ctx, out, session, text)
				continue
			}
		}
		pending.Write(line)
		pending.WriteByte('\n')
		input := pending.String()
		if !Complete(input) {
			continue
		}
		pending.Reset()
		reply, err := session.Eval(ctx, input)
		if err != nil {
			fmt.Fprintln(out, err) //nolint:errcheck // best-effort error display
			continue
		}
		printReply(out, cfg.color, terminate(input), reply)
	}
}

func command(ctx context.Context, w io.Writer, s *Session, text string) {
	name, arg, _ := strings.Cut(text, " ")
	switch name {
	case ":vars":
		for _, v := range s.Vars() {
			fmt.Fprintf(w, "$%s: %s\n", v.Name, v.EffectiveType()) //nolint:errcheck // best-effort REPL output
		}
	case ":type":
		d, err := s.TypeOf(ctx, arg)
		switch {
		case err != nil:
			fmt.Fprintln(w, err) //nolint:errcheck // best-effort error display
		case d == nil:
			fmt.Fprintln(w, "not an expression") //nolint:errcheck // best-effort REPL output
		default:
			fmt.Fprintln(w, resultText(d.Type, d.Value)) //nolint:errcheck // best-effort REPL output
		}
	case ":source":
		fmt.Fprint(w, s.Source()) //nolint:errcheck // best-effort REPL output
	case ":reset":
		s.Reset()
	case ":help":
		fmt.Fprint(w, helpText) //nolint:errcheck // best-effort REPL output
	default:
		fmt.Fprintf(w, "unknown command %s, try :help\n", name) //nolint:errcheck // best-effort REPL output
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".phpsema_history")
}

// ensureHistoryFilePermissions creates the history file readable only by
// its owner, or restricts an existing one.
func ensureHistoryFilePermissions(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600) //nolint:gosec // path is under the home directory
	if err != nil {
		return
	}
	_ = f.Close()
	_ = os.Chmod(path, 0o600)
}
