// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"os"

	"github.com/luthersystems/phpsema/lsp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// LSPCommand creates the "lsp" cobra command.  Symbols and analyzers
// injected with WithSymbols and WithAnalyzers are passed to the server.
func LSPCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)

	var (
		stdio bool
		port  int
	)

	cmd := &cobra.Command{
		Use:   "lsp [flags]",
		Short: "Start the PHP Language Server Protocol server",
		Long: `Start an LSP server for PHP source files.

The language server publishes the same diagnostics as the lint command
while files are edited, and answers hover, go-to-definition, find
references, completion, document symbol and workspace symbol requests.
Declarations of every PHP file below the workspace root are visible to
the open files.

Transport modes:
  --stdio      Use stdin/stdout for LSP communication (default)
  --port N     Listen for an LSP client on TCP port N

Examples:
  phpsema lsp                        Start with stdio transport
  phpsema lsp --port 7998            Start with TCP on port 7998

Logs are written to stderr and never to the stdio transport.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			acfg := cfg.analysisConfig()
			acfg.Symbols = nil
			serverOpts := []lsp.Option{
				lsp.WithConfig(acfg),
				lsp.WithLogger(logrus.StandardLogger()),
				lsp.WithAnalyzers(cfg.analyzers...),
			}
			if cfg.symbols != nil {
				serverOpts = append(serverOpts, lsp.WithSymbols(cfg.symbols))
			}
			srv := lsp.New(serverOpts...)

			var err error
			if !stdio && port > 0 {
				addr := fmt.Sprintf("localhost:%d", port)
				logrus.WithField("addr", addr).Info("LSP server listening")
				err = srv.RunTCP(addr)
			} else {
				err = srv.RunStdio()
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "lsp server error: %v\n", err) //nolint:errcheck
				os.Exit(exitBadInvocation)
			}
		},
	}

	cmd.Flags().BoolVar(&stdio, "stdio", false,
		"Use stdin/stdout for LSP communication (default behavior)")
	cmd.Flags().IntVar(&port, "port", 0,
		"TCP port for LSP server (use instead of --stdio)")

	return cmd
}

func init() {
	rootCmd.AddCommand(LSPCommand())
}
