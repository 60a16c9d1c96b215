// Copyright © 2024 The ELPS authors

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luthersystems/phpsema/lint"
	"github.com/luthersystems/phpsema/names"
	"github.com/luthersystems/phpsema/symbols"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, opts ...Option) *cmdConfig {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.Set("color", "never")
	return newCmdConfig(append([]Option{withViper(v)}, opts...))
}

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestLintCommand_DefaultFlags(t *testing.T) {
	cmd := LintCommand()
	assert.Equal(t, "lint [flags] [files...]", cmd.Use)
	for _, name := range []string{"json", "checks", "list", "exclude"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag: %s", name)
	}
}

func TestRunLint_Workspace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.php", "<?php\nfunction helper() { return 1; }\n")
	app := writeFile(t, dir, "src/app.php", "<?php\necho helper();\necho missing();\n")

	var stdout, stderr bytes.Buffer
	code := runLint(context.Background(), testConfig(t), &lintOptions{}, []string{dir}, nil, &stdout, &stderr)
	assert.Equal(t, exitProblems, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "error[unknown-function]")
	assert.Contains(t, stderr.String(), app+":3:")
	assert.NotContains(t, stderr.String(), "helper")
}

func TestRunLint_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.php", "<?php\nfunction f() {\n    $unused = 1;\n}\n")

	var stdout, stderr bytes.Buffer
	code := runLint(context.Background(), testConfig(t), &lintOptions{json: true}, []string{path}, nil, &stdout, &stderr)
	assert.Equal(t, exitProblems, code)

	var got []lint.Diagnostic
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "unused-variable", got[0].Analyzer)
	assert.Equal(t, 3, got[0].Pos.Line)
}

func TestRunLint_Stdin(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runLint(context.Background(), testConfig(t), &lintOptions{}, nil,
		strings.NewReader("<?php\n$x = 1;\necho $x;\n"), &stdout, &stderr)
	assert.Equal(t, exitClean, code)
	assert.Empty(t, stderr.String())
}

func TestRunLint_Checks(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.php", "<?php\nfoo();\necho $nope;\n")

	var stdout, stderr bytes.Buffer
	lo := &lintOptions{json: true, checks: []string{" unknown-variable "}}
	code := runLint(context.Background(), testConfig(t), lo, []string{path}, nil, &stdout, &stderr)
	assert.Equal(t, exitProblems, code)
	var got []lint.Diagnostic
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "unknown-variable", got[0].Analyzer)

	stderr.Reset()
	lo = &lintOptions{checks: []string{"no-such-check"}}
	code = runLint(context.Background(), testConfig(t), lo, []string{path}, nil, &stdout, &stderr)
	assert.Equal(t, exitBadInvocation, code)
	assert.Contains(t, stderr.String(), "unknown check")
}

func TestRunLint_List(t *testing.T) {
	extra := &lint.Analyzer{Name: "house-rule", Doc: "A house rule.", Run: func(*lint.Pass) error { return nil }}
	var stdout, stderr bytes.Buffer
	code := runLint(context.Background(), testConfig(t, WithAnalyzers(extra)), &lintOptions{list: true}, nil, nil, &stdout, &stderr)
	assert.Equal(t, exitClean, code)
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Contains(t, lines, "syntax-error")
	assert.Contains(t, lines, "unknown-function")
	assert.Equal(t, "house-rule", lines[len(lines)-1])
}

func TestRunLint_Exclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cache/gen.php", "<?php\nmissing();\n")
	writeFile(t, dir, "ok.php", "<?php\necho 1;\n")

	var stdout, stderr bytes.Buffer
	lo := &lintOptions{excludes: []string{"cache"}}
	code := runLint(context.Background(), testConfig(t), lo, []string{dir + "/..."}, nil, &stdout, &stderr)
	assert.Equal(t, exitClean, code, stderr.String())
}

func TestRunLint_MissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runLint(context.Background(), testConfig(t), &lintOptions{},
		[]string{filepath.Join(t.TempDir(), "nope.php")}, nil, &stdout, &stderr)
	assert.Equal(t, exitBadInvocation, code)
	assert.NotEmpty(t, stderr.String())
}

func TestRunLint_WithSymbols(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.php", "<?php\necho host_version();\n")
	withHost := WithSymbols(func() *symbols.Table {
		table := symbols.NewBuiltinTable()
		table.InsertFunction(&symbols.FunctionSymbol{Name: names.ParseFQN("host_version"), Builtin: true})
		return table
	})

	var stdout, stderr bytes.Buffer
	code := runLint(context.Background(), testConfig(t), &lintOptions{}, []string{path}, nil, &stdout, &stderr)
	assert.Equal(t, exitProblems, code)

	stderr.Reset()
	code = runLint(context.Background(), testConfig(t, withHost), &lintOptions{}, []string{path}, nil, &stdout, &stderr)
	assert.Equal(t, exitClean, code, stderr.String())
}

func TestChecksCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := ChecksCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"empty-catch"})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "empty-catch (warning)\n  Warn when a catch block is empty."), out.String())

	out.Reset()
	cmd = ChecksCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "unused-nolint")

	cmd = ChecksCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"bogus"})
	assert.Error(t, cmd.Execute())
}
