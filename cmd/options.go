// Copyright © 2024 The ELPS authors

package cmd

import (
	"github.com/luthersystems/phpsema/analysis"
	"github.com/luthersystems/phpsema/lint"
	"github.com/luthersystems/phpsema/symbols"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Option configures an exported command factory (LintCommand, LSPCommand,
// LookupCommand).
type Option func(*cmdConfig)

type cmdConfig struct {
	symbols   func() *symbols.Table
	analyzers []*lint.Analyzer
	viper     *viper.Viper
}

// WithSymbols injects a constructor for the symbol table analysis starts
// from.  Embedders use it to declare the classes and functions their
// runtime provides, beyond the PHP builtins.  The constructor is called
// once per analysis because analysis adds the declarations it finds.
func WithSymbols(fn func() *symbols.Table) Option {
	return func(c *cmdConfig) { c.symbols = fn }
}

// WithAnalyzers adds custom checks to the built-in set of the lint command.
func WithAnalyzers(as ...*lint.Analyzer) Option {
	return func(c *cmdConfig) { c.analyzers = append(c.analyzers, as...) }
}

// withViper replaces the global configuration, for tests.
func withViper(v *viper.Viper) Option {
	return func(c *cmdConfig) { c.viper = v }
}

func newCmdConfig(opts []Option) *cmdConfig {
	cfg := &cmdConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

func (c *cmdConfig) v() *viper.Viper {
	if c.viper != nil {
		return c.viper
	}
	return viper.GetViper()
}

// analysisConfig builds the engine configuration from the loaded settings.
func (c *cmdConfig) analysisConfig() *analysis.Config {
	v := c.v()
	cfg := &analysis.Config{
		PHPDoc:           analysis.PHPDocConfig{KnownTags: v.GetStringSlice("phpdoc.known-tags")},
		MaxResolvePasses: v.GetInt("analysis.max-resolve-passes"),
		Log:              logrus.StandardLogger(),
	}
	if c.symbols != nil {
		cfg.Symbols = c.symbols()
	}
	return cfg
}

// jobs is the number of files processed concurrently.  Zero selects
// GOMAXPROCS.
func (c *cmdConfig) jobs() int {
	return c.v().GetInt("workspace.jobs")
}

// allAnalyzers returns the built-in checks followed by the injected ones.
func (c *cmdConfig) allAnalyzers() []*lint.Analyzer {
	return append(lint.DefaultAnalyzers(), c.analyzers...)
}
