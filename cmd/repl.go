// Copyright © 2018 The ELPS authors

package cmd

import (
	"fmt"
	"os"

	"github.com/luthersystems/phpsema/repl"
	"github.com/spf13/cobra"
)

// ReplCommand creates the "repl" cobra command.
func ReplCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)
	return &cobra.Command{
		Use:   "repl",
		Short: "Inspect inferred types interactively",
		Long: `Start an interactive shell for PHP statements.

Statements are entered without the opening tag and are analyzed together
with the statements entered before them. Issues are reported as they are
found and the inferred type of each expression is printed. Nothing is
executed. Line editing and command history are supported via readline.
Use Ctrl-D to exit.

Example session:
  php> $x = 40 + 2
  int = 42
  php> $name = strtoupper("ab")
  string
  php> echo $nope;
  error[unknown-variable]: Unknown variable $nope
  php> :vars
  $name: string
  $x: int`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			opts := []repl.Option{repl.WithColor(colorMode())}
			if cfg.symbols != nil {
				opts = append(opts, repl.WithSymbols(cfg.symbols))
			}
			if err := repl.RunRepl("php> ", opts...); err != nil {
				fmt.Fprintln(os.Stderr, err) //nolint:errcheck
				os.Exit(exitBadInvocation)
			}
		},
	}
}

func init() {
	rootCmd.AddCommand(ReplCommand())
}
