// Copyright © 2018 The ELPS authors

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/luthersystems/phpsema/analysis"
	"github.com/luthersystems/phpsema/diagnostic"
	"github.com/luthersystems/phpsema/phpdoc"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// shutdownTracing flushes the tracer provider installed for the command.
var shutdownTracing = func(context.Context) error { return nil }

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "phpsema",
	Short: "Semantic analysis for PHP",
	Long: `phpsema is a static analyzer for PHP implemented in Go. It infers the
types and values of variables along every control flow path and reports
unreachable code, unresolved symbols, and type and arity violations.

Getting started:
  phpsema lint src/...            Lint every PHP file below src
  phpsema lint --json index.php   Report findings as JSON
  phpsema checks                  List the available checks
  phpsema lookup index.php:12:5   Show what is known at a position
  phpsema dump index.php          Print the syntax tree
  phpsema repl                    Inspect inferred types interactively
  phpsema lsp                     Serve hover information to an editor

Configuration is read from .phpsema.yaml in the current directory or the
home directory, or from the file given with --config. Every key can be set
through the environment with the PHPSEMA_ prefix, for example
PHPSEMA_LOG_LEVEL=debug.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setupLogging(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		return shutdownTracing(context.Background())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInvocation)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.phpsema.yaml or $HOME/.phpsema.yaml)")
	rootCmd.PersistentFlags().String("color", "auto",
		`Control colored output: "auto", "always", or "never".`)
	rootCmd.PersistentFlags().String("log-level", "warning",
		"Logging level (trace, debug, info, warning, error).")
	cobra.CheckErr(viper.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color")))
	cobra.CheckErr(viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")))

	setDefaults(viper.GetViper())
}

// setDefaults registers the default value of every configuration key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("color", "auto")
	v.SetDefault("log-level", "warning")
	v.SetDefault("checks", []string{})
	v.SetDefault("exclude", []string{})
	v.SetDefault("phpdoc.known-tags", phpdoc.DefaultKnownTags)
	v.SetDefault("analysis.max-resolve-passes", analysis.DefaultMaxResolvePasses)
	v.SetDefault("workspace.jobs", 0)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("PHPSEMA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".phpsema")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			fmt.Fprintf(os.Stderr, "phpsema: reading config: %v\n", err)
			os.Exit(exitBadInvocation)
		}
		return
	}
	logrus.WithField("file", viper.ConfigFileUsed()).Debug("using config file")
}

// setupLogging applies the configured log level and installs the tracer
// provider when span logging is enabled.
func setupLogging(ctx context.Context) error {
	level, err := logrus.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log-level: %w", err)
	}
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(level)
	if level >= logrus.TraceLevel {
		shutdownTracing = setupTracing(ctx, logrus.StandardLogger())
	}
	return nil
}

func colorMode() diagnostic.ColorMode {
	mode, err := diagnostic.ParseColorMode(viper.GetString("color"))
	if err != nil {
		logrus.WithError(err).Warn("falling back to automatic color")
	}
	return mode
}
