// Copyright © 2024 The ELPS authors

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/luthersystems/phpsema/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePosition(t *testing.T) {
	file, line, col, err := parsePosition("src/a.php:12:5")
	require.NoError(t, err)
	assert.Equal(t, "src/a.php", file)
	assert.Equal(t, 12, line)
	assert.Equal(t, 5, col)

	file, _, _, err = parsePosition(`C:\src\a.php:1:1`)
	require.NoError(t, err)
	assert.Equal(t, `C:\src\a.php`, file)

	for _, bad := range []string{"a.php", "a.php:3", ":3:4", "a.php:x:1", "a.php:1:0"} {
		_, _, _, err := parsePosition(bad)
		assert.Error(t, err, bad)
	}
}

func TestRunLookup_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.php", "<?php\n$n = 40;\n$m = $n + 2;\necho $m;\n")
	var out bytes.Buffer
	require.NoError(t, runLookup(context.Background(), testConfig(t), &lookupOptions{}, path+":4:6", &out))
	text := out.String()
	assert.Contains(t, text, path+":4:6: variable_name")
	assert.Contains(t, text, "$m: int = 42")
	assert.Contains(t, text, "variables:\n  $m: int = 42\n  $n: int = 40\n")
}

func TestRunLookup_JSONWorkspace(t *testing.T) {
	dir := t.TempDir()
	lib := writeFile(t, dir, "lib.php", "<?php\nfunction helper(int $x): int { return $x; }\n")
	app := writeFile(t, dir, "app.php", "<?php\necho helper(1);\n")

	var out bytes.Buffer
	lo := &lookupOptions{json: true, workspace: dir}
	require.NoError(t, runLookup(context.Background(), testConfig(t), lo, app+":2:6", &out))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "name", got["kind"])
	assert.Equal(t, `function \helper(int $x): int`, got["subject"])
	assert.Equal(t, lib+":2:10", got["defined"])
}

func TestRunLookup_Errors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.php", "<?php\n")
	err := runLookup(context.Background(), testConfig(t), &lookupOptions{}, path+":40:1", &bytes.Buffer{})
	assert.ErrorContains(t, err, "no code at position")

	err = runLookup(context.Background(), testConfig(t), &lookupOptions{}, "missing.php:1:1", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestDumpTree(t *testing.T) {
	root, err := parser.Parse([]byte("<?php\n$x = 1;\n"))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, dumpTree(&out, root, false))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "program 1:1-"), lines[0])
	assert.Contains(t, out.String(), "\n    assignment_expression 2:1-2:7\n")
	assert.Contains(t, out.String(), `integer 2:6-2:7 "1"`)
	assert.NotContains(t, out.String(), " = ")

	out.Reset()
	require.NoError(t, dumpTree(&out, root, true))
	assert.Contains(t, out.String(), "\n      = 2:4-2:5\n")
}
