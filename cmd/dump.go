// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/parser"
	"github.com/spf13/cobra"
)

var dumpTokens bool

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] [file]",
	Short: "Print the syntax tree of a PHP file",
	Long: `Print the syntax tree of a PHP file, one node per line.

Each line shows the node kind, its 1-based position and, for leaves, the
source text. Nodes recovered from syntax errors are marked ERROR or
MISSING. With no file, reads from stdin.

Examples:
  phpsema dump index.php             Print named nodes
  phpsema dump --tokens index.php    Include punctuation and keywords`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var (
			src []byte
			err error
		)
		if len(args) == 0 {
			src, err = io.ReadAll(cmd.InOrStdin())
		} else {
			src, err = os.ReadFile(args[0]) //nolint:gosec // CLI tool reads user-specified files
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err) //nolint:errcheck
			os.Exit(exitBadInvocation)
		}
		root, err := parser.Parse(src)
		if err != nil {
			fmt.Fprintln(os.Stderr, err) //nolint:errcheck
			os.Exit(exitBadInvocation)
		}
		if err := dumpTree(cmd.OutOrStdout(), root, dumpTokens); err != nil {
			fmt.Fprintln(os.Stderr, err) //nolint:errcheck
			os.Exit(exitBadInvocation)
		}
	},
}

func dumpTree(w io.Writer, root *ast.Node, tokens bool) error {
	var err error
	var dump func(n *ast.Node, depth int)
	dump = func(n *ast.Node, depth int) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintln(w, strings.Repeat("  ", depth)+dumpLine(n))
		children := n.Children()
		if tokens {
			children = n.AllChildren()
		}
		for _, c := range children {
			dump(c, depth+1)
		}
	}
	dump(root, 0)
	return err
}

func dumpLine(n *ast.Node) string {
	rng := n.Range()
	line := fmt.Sprintf("%s %d:%d-%d:%d", n.Kind(), rng.Line(), rng.Col(), rng.End.Row+1, rng.End.Column+1)
	switch {
	case n.IsMissing():
		line = "MISSING " + line
	case n.IsError() && n.Kind() != ast.KindError:
		line = "ERROR " + line
	}
	if len(n.AllChildren()) == 0 && n.IsNamed() {
		text := n.Text()
		if len(text) > 40 {
			text = text[:40] + "..."
		}
		line += " " + strconv.Quote(text)
	}
	return line
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().BoolVar(&dumpTokens, "tokens", false,
		"Include anonymous tokens such as punctuation and keywords.")
}
