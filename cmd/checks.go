// Copyright © 2021 The ELPS authors

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/luthersystems/phpsema/lint"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
)

// docWidth is the column at which check documentation is wrapped.
const docWidth = 72

// ChecksCommand creates the "checks" cobra command.
func ChecksCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)
	return &cobra.Command{
		Use:   "checks [CHECK...]",
		Short: "Show documentation for the lint checks",
		Long: `Show the documentation of the lint checks.

With no arguments every check is listed with the first line of its
documentation. With check names, the full documentation of each is shown.

Examples:
  phpsema checks                     List all checks
  phpsema checks unused-variable     Show the documentation of one check`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := bufio.NewWriter(cmd.OutOrStdout())
			defer out.Flush() //nolint:errcheck // best-effort flush on exit
			analyzers := cfg.allAnalyzers()
			if len(args) == 0 {
				return renderCheckList(out, analyzers)
			}
			selected, err := lint.Select(analyzers, args)
			if err != nil {
				return err
			}
			for i, a := range selected {
				if i > 0 {
					fmt.Fprintln(out) //nolint:errcheck
				}
				if err := renderCheck(out, a); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func summary(doc string) string {
	first, _, _ := strings.Cut(doc, "\n")
	return strings.TrimSpace(first)
}

func renderCheckList(w io.Writer, analyzers []*lint.Analyzer) error {
	width := 0
	for _, a := range analyzers {
		width = max(width, len(a.Name))
	}
	for _, a := range analyzers {
		if _, err := fmt.Fprintf(w, "%-*s  %-7s  %s\n", width, a.Name, a.Severity, summary(a.Doc)); err != nil {
			return err
		}
	}
	return nil
}

func renderCheck(w io.Writer, a *lint.Analyzer) error {
	if _, err := fmt.Fprintf(w, "%s (%s)\n", a.Name, a.Severity); err != nil {
		return err
	}
	doc := strings.TrimSpace(a.Doc)
	if doc == "" {
		return nil
	}
	doc = indent.String(wordwrap.String(doc, docWidth), 2)
	_, err := fmt.Fprintln(w, strings.TrimSuffix(doc, "\n"))
	return err
}

func init() {
	rootCmd.AddCommand(ChecksCommand())
}
