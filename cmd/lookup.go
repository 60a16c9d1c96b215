// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/luthersystems/phpsema/analysis"
	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/astutil"
	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/parser"
	"github.com/luthersystems/phpsema/symbols"
	"github.com/spf13/cobra"
)

type lookupOptions struct {
	json      bool
	workspace string
}

// lookupReport is what lookup prints about a position.
type lookupReport struct {
	File    string          `json:"file"`
	Line    int             `json:"line"`
	Col     int             `json:"col"`
	Kind    string          `json:"kind"`
	Path    []string        `json:"path"`
	Subject string          `json:"subject"`
	Type    string          `json:"type,omitempty"`
	Value   string          `json:"value,omitempty"`
	Defined string          `json:"defined,omitempty"`
	Vars    []lookupVarInfo `json:"vars"`

	desc analysis.Description
}

type lookupVarInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Value   string `json:"value,omitempty"`
	Partial bool   `json:"partial,omitempty"`
}

// LookupCommand creates the "lookup" cobra command, which reports what the
// analysis knows at a source position.
func LookupCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)
	var lo lookupOptions

	cmd := &cobra.Command{
		Use:   "lookup [flags] file:line:col",
		Short: "Show the inferred type and value at a position",
		Long: `Show what the analysis knows at a position of a PHP file.

The position is 1-based. The innermost syntax node at the position is
reported along with its inferred type and value, or the declaration it
refers to. The variables visible at that point of the flow are listed
with their types.

Declarations from other files are known when --workspace names the
directory holding them.

Examples:
  phpsema lookup index.php:12:5
  phpsema lookup --json src/Model.php:40:17
  phpsema lookup --workspace . src/Controller.php:8:20`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runLookup(cmd.Context(), cfg, &lo, args[0], cmd.OutOrStdout()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "phpsema lookup: %v\n", err) //nolint:errcheck
				os.Exit(exitBadInvocation)
			}
		},
	}
	cmd.Flags().BoolVar(&lo.json, "json", false,
		"Output the report as JSON.")
	cmd.Flags().StringVar(&lo.workspace, "workspace", "",
		"Directory whose PHP files declare symbols visible to the file.")
	return cmd
}

// parsePosition splits "file:line:col".  File names may contain colons.
func parsePosition(arg string) (string, int, int, error) {
	rest, colText, ok := cutLast(arg, ":")
	if !ok {
		return "", 0, 0, fmt.Errorf("position %q is not file:line:col", arg)
	}
	file, lineText, ok := cutLast(rest, ":")
	if !ok || file == "" {
		return "", 0, 0, fmt.Errorf("position %q is not file:line:col", arg)
	}
	line, err := strconv.Atoi(lineText)
	if err != nil || line < 1 {
		return "", 0, 0, fmt.Errorf("invalid line %q", lineText)
	}
	col, err := strconv.Atoi(colText)
	if err != nil || col < 1 {
		return "", 0, 0, fmt.Errorf("invalid column %q", colText)
	}
	return file, line, col, nil
}

func cutLast(s, sep string) (string, string, bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

func runLookup(ctx context.Context, cfg *cmdConfig, lo *lookupOptions, arg string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	file, line, col, err := parsePosition(arg)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(file) //nolint:gosec // CLI tool reads user-specified files
	if err != nil {
		return err
	}
	root, err := parser.Parse(src)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	acfg := cfg.analysisConfig()
	acfg.Filename = file
	if lo.workspace != "" {
		table, err := workspaceSymbols(ctx, cfg, lo.workspace, file)
		if err != nil {
			return err
		}
		acfg.Symbols = table
	}

	report := &lookupReport{File: file, Line: line, Col: col}
	found, err := analysis.LookupAt(ctx, root, astutil.Offset(src, line, col), acfg,
		func(n *ast.Node, s *analysis.State, path []*ast.Node) {
			report.fill(n, s, path)
		})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s:%d:%d: no code at position", file, line, col)
	}
	if lo.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return report.write(w)
}

func (r *lookupReport) fill(n *ast.Node, s *analysis.State, path []*ast.Node) {
	r.Kind = string(n.Kind())
	for _, p := range path {
		r.Path = append(r.Path, string(p.Kind()))
	}
	r.desc = s.Describe(n, path)
	r.Subject = r.desc.Subject
	if r.desc.Type != nil {
		r.Type = r.desc.Type.String()
	}
	if r.desc.Value != nil {
		r.Value = r.desc.Value.String()
	}
	if loc := r.desc.Location; loc.File != "" {
		r.Defined = fmt.Sprintf("%s:%d:%d", loc.File, loc.Range.Line(), loc.Range.Col())
	}
	for _, v := range s.Scope().Vars() {
		info := lookupVarInfo{
			Name:    "$" + v.Name,
			Type:    v.EffectiveType().String(),
			Partial: v.Partial,
		}
		if v.Value != nil {
			info.Value = v.Value.String()
		}
		r.Vars = append(r.Vars, info)
	}
}

func (r *lookupReport) write(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d:%d: %s\n", r.File, r.Line, r.Col, r.Kind)
	if len(r.Path) > 0 {
		fmt.Fprintf(&b, "  in %s\n", strings.Join(r.Path, " > "))
	}
	b.WriteString("\n")
	b.WriteString(r.desc.String())
	b.WriteString("\n")
	if r.Defined != "" {
		fmt.Fprintf(&b, "defined at %s\n", r.Defined)
	}
	if len(r.Vars) > 0 {
		b.WriteString("\nvariables:\n")
		for _, v := range r.Vars {
			fmt.Fprintf(&b, "  %s: %s", v.Name, v.Type)
			if v.Value != "" {
				fmt.Fprintf(&b, " = %s", v.Value)
			}
			if v.Partial {
				b.WriteString(" (possibly undefined)")
			}
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// workspaceSymbols declares the PHP files under dir, except skip, into a
// fresh table.  Issues are discarded.
func workspaceSymbols(ctx context.Context, cfg *cmdConfig, dir, skip string) (*symbols.Table, error) {
	paths, err := analysis.ScanWorkspace(dir)
	if err != nil {
		return nil, err
	}
	skipAbs, _ := filepath.Abs(skip)
	kept := paths[:0]
	for _, p := range paths {
		if abs, _ := filepath.Abs(p); abs == skipAbs {
			continue
		}
		kept = append(kept, p)
	}
	files, err := analysis.ParseFiles(ctx, kept, cfg.jobs())
	if err != nil {
		return nil, err
	}
	acfg := cfg.analysisConfig()
	ws := &analysis.Workspace{
		Symbols:          acfg.Symbols,
		Emitter:          issue.Discard,
		PHPDoc:           acfg.PHPDoc,
		MaxResolvePasses: acfg.MaxResolvePasses,
		Log:              acfg.Log,
		Concurrency:      cfg.jobs(),
	}
	res, err := ws.Analyze(ctx, files)
	if err != nil {
		return nil, err
	}
	return res.Symbols, nil
}

func init() {
	rootCmd.AddCommand(LookupCommand())
}
