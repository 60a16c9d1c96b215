// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/luthersystems/phpsema/lint"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Exit codes of the lint command.
const (
	exitClean         = 0
	exitProblems      = 1
	exitBadInvocation = 2
)

type lintOptions struct {
	json     bool
	checks   []string
	list     bool
	excludes []string
}

// LintCommand creates the "lint" cobra command with optional embedder
// configuration.
func LintCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)
	var lo lintOptions

	cmd := &cobra.Command{
		Use:   "lint [flags] [files...]",
		Short: "Run semantic analysis checks on PHP source files",
		Long: `Run semantic analysis checks on PHP source files.

All files given on the command line are analyzed together: a class or
function declared in one file is known in every other. Directories and
patterns ending in "/..." are searched recursively for .php files; hidden
directories, vendor and node_modules are skipped.

With no files, reads a single file from stdin.

Exit codes:
  0  No problems found
  1  One or more problems were reported
  2  Bad invocation (invalid flags, unreadable files)

To suppress a specific diagnostic, add a comment on the same line:
  $legacy = $GLOBALS['x']; // nolint:unused-variable

To suppress all checks on a line:
  $legacy = $GLOBALS['x']; // nolint

Use "phpsema checks" to list the available checks with their documentation.

Examples:
  phpsema lint index.php                           # Lint a single file
  phpsema lint src/...                             # Lint a directory tree
  phpsema lint --json src/...                      # Output diagnostics as JSON
  phpsema lint --checks=unknown-function src/...   # Run only specific checks
  phpsema lint --list                              # List available checks
  phpsema lint --exclude='cache' src/...           # Exclude a directory
  cat index.php | phpsema lint                     # Lint from stdin`,
		Run: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("checks") {
				lo.checks = cfg.v().GetStringSlice("checks")
			}
			if !cmd.Flags().Changed("exclude") {
				lo.excludes = cfg.v().GetStringSlice("exclude")
			}
			code := runLint(cmd.Context(), cfg, &lo, args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code != exitClean {
				os.Exit(code)
			}
		},
	}

	cmd.Flags().BoolVar(&lo.json, "json", false,
		"Output diagnostics as JSON.")
	cmd.Flags().StringSliceVar(&lo.checks, "checks", nil,
		"Comma-separated list of checks to run (default: all).")
	cmd.Flags().BoolVar(&lo.list, "list", false,
		"List available checks and exit.")
	cmd.Flags().StringArrayVar(&lo.excludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")
	return cmd
}

func runLint(ctx context.Context, cfg *cmdConfig, lo *lintOptions, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if ctx == nil {
		ctx = context.Background()
	}
	analyzers := cfg.allAnalyzers()
	if lo.list {
		for _, a := range analyzers {
			fmt.Fprintln(stdout, a.Name) //nolint:errcheck
		}
		return exitClean
	}
	if len(lo.checks) > 0 {
		selected, err := lint.Select(analyzers, trimAll(lo.checks))
		if err != nil {
			fmt.Fprintf(stderr, "phpsema lint: %v\n", err) //nolint:errcheck
			return exitBadInvocation
		}
		analyzers = selected
	}
	l := &lint.Linter{Analyzers: analyzers, Config: cfg.analysisConfig()}

	var diags []lint.Diagnostic
	if len(args) == 0 {
		src, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "phpsema lint: reading stdin: %v\n", err) //nolint:errcheck
			return exitBadInvocation
		}
		diags, err = l.LintFile(ctx, src, "-")
		if err != nil {
			fmt.Fprintln(stderr, err) //nolint:errcheck
			return exitBadInvocation
		}
	} else {
		paths, err := expandArgs(args, lo.excludes)
		if err != nil {
			fmt.Fprintln(stderr, err) //nolint:errcheck
			return exitBadInvocation
		}
		logrus.WithField("files", len(paths)).Debug("linting workspace")
		diags, err = l.LintFiles(ctx, paths, cfg.jobs())
		if err != nil {
			fmt.Fprintln(stderr, err) //nolint:errcheck
			return exitBadInvocation
		}
	}

	if len(diags) == 0 {
		return exitClean
	}
	if lo.json {
		if err := lint.FormatJSON(stdout, diags); err != nil {
			fmt.Fprintln(stderr, err) //nolint:errcheck
			return exitBadInvocation
		}
	} else if err := renderLintDiagnostics(stderr, diags); err != nil {
		return exitBadInvocation
	}
	return exitProblems
}

func trimAll(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(LintCommand())
}
