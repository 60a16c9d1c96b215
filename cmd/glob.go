// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/luthersystems/phpsema/analysis"
)

// expandArgs expands arguments, resolving directories and patterns ending
// with "/..." to all .php files found recursively below them.  Files
// matching one of excludes are dropped.
func expandArgs(args []string, excludes []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		dir, recursive := strings.CutSuffix(arg, "/...")
		if recursive && dir == "" {
			dir = "."
		}
		if !recursive {
			info, err := os.Stat(arg)
			if err != nil {
				return nil, err
			}
			if !info.IsDir() {
				out = append(out, arg)
				continue
			}
			dir = arg
		}
		files, err := analysis.ScanWorkspace(dir)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", arg, err)
		}
		out = append(out, files...)
	}
	return filterExcludes(out, excludes), nil
}

// filterExcludes drops paths matching one of the glob patterns.
func filterExcludes(paths []string, patterns []string) []string {
	if len(patterns) == 0 {
		return paths
	}
	var out []string
	for _, p := range paths {
		if !matchesAny(p, patterns) {
			out = append(out, p)
		}
	}
	return out
}

// matchesAny reports whether path, or one of its components, matches one
// of the glob patterns.
func matchesAny(path string, patterns []string) bool {
	slashed := filepath.ToSlash(path)
	parts := splitPath(path)
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, slashed); ok {
			return true
		}
		for _, part := range parts {
			if ok, _ := filepath.Match(pat, part); ok {
				return true
			}
		}
	}
	return false
}

func splitPath(path string) []string {
	return strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
}
