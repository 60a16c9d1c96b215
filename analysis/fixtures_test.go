// Copyright © 2024 The ELPS authors

package analysis_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/luthersystems/phpsema/analysis"
	"github.com/luthersystems/phpsema/phpsematest"
	"github.com/luthersystems/phpsema/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtures(t *testing.T) {
	r := &phpsematest.Runner{Symbols: symbols.NewBuiltinTable}
	r.RunTestDir(t, "testdata")
}

func TestInlineFixtures(t *testing.T) {
	phpsematest.RunTestSuite(t, phpsematest.TestSuite{
		{"clean", "<?php\n$x = 1;\necho $x;\n"},
		{"casing", `<?php
function myFunc() {}
MYFUNC(); // expect: function-name-casing
`},
		{"callable", `<?php
$n = 5;
$n(); // expect: not-callable
`},
	})
}

func TestWorkspaceFixtures(t *testing.T) {
	paths, err := analysis.ScanWorkspace("testdata")
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	files, err := analysis.ParseFiles(context.Background(), paths, 2)
	require.NoError(t, err)

	w := &analysis.Workspace{Log: phpsematest.Logrus(t), Concurrency: 2}
	res, err := w.Analyze(context.Background(), files)
	require.NoError(t, err)
	require.NotEmpty(t, res.Issues)
	for _, i := range res.Issues {
		assert.Contains(t, paths, i.File)
	}
	assert.NotEmpty(t, res.References[filepath.Join("testdata", "arity.php")])
	assert.NotEmpty(t, res.References[filepath.Join("testdata", "methods.php")])
}

func BenchmarkAnalyzeMethods(b *testing.B) {
	phpsematest.BenchmarkAnalyze("testdata/methods.php")(b)
}
