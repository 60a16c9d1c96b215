// Copyright © 2024 The ELPS authors

package lsp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luthersystems/phpsema/ast"
	"github.com/luthersystems/phpsema/issue"
	"github.com/luthersystems/phpsema/lint"
	"github.com/luthersystems/phpsema/names"
	"github.com/luthersystems/phpsema/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const addSource = `<?php
/**
 * Adds two numbers.
 */
function add(int $a, int $b): int { return $a + $b; }
$r = add(1, 2);
echo add($r, 3);
`

func testServer(opts ...Option) *Server {
	s := New(opts...)
	s.exitFn = func(int) {}
	return s
}

// openDoc opens a document in the test server and returns it.
func openDoc(s *Server, uri, content string) *Document {
	return s.docs.Open(uri, 1, content)
}

// mockContext returns a minimal glsp.Context for testing.
func mockContext() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {},
	}
}

// capturingContext returns a context that captures published diagnostics.
func capturingContext() (*glsp.Context, *[]*protocol.PublishDiagnosticsParams) {
	var captured []*protocol.PublishDiagnosticsParams
	ctx := &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				captured = append(captured, params.(*protocol.PublishDiagnosticsParams))
			}
		},
	}
	return ctx, &captured
}

func publish(t *testing.T, s *Server, uri, text string) *protocol.PublishDiagnosticsParams {
	t.Helper()
	ctx, captured := capturingContext()
	err := s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: "php",
			Version:    1,
			Text:       text,
		},
	})
	require.NoError(t, err)
	require.Len(t, *captured, 1)
	return (*captured)[0]
}

func pos(line, char int) protocol.Position {
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(char)}
}

// --- Position conversion tests ---

func TestOffsetAt(t *testing.T) {
	content := "ab\n$é = 'x𝄞y';\n"
	assert.Equal(t, uint(0), offsetAt(content, pos(0, 0)))
	assert.Equal(t, uint(2), offsetAt(content, pos(0, 99)), "clamps to line end")
	assert.Equal(t, uint(6), offsetAt(content, pos(1, 2)), "é is one unit and two bytes")
	// 𝄞 takes two UTF-16 units and four bytes.
	at := strings.Index(content, "y")
	assert.Equal(t, uint(at), offsetAt(content, pos(1, 9)))
	assert.Equal(t, uint(len(content)), offsetAt(content, pos(5, 0)))
}

func TestToPosition(t *testing.T) {
	content := "ab\n$é = 'x𝄞y';\n"
	p := toPosition(content, ast.Point{Row: 1, Column: 3})
	assert.Equal(t, pos(1, 2), p)
	y := strings.Index(content, "y") - 3
	p = toPosition(content, ast.Point{Row: 1, Column: uint(y)})
	assert.Equal(t, pos(1, 9), p)
}

func TestToRange(t *testing.T) {
	r := toRange("<?php\necho 1;\n", ast.Range{
		Start: ast.Point{Row: 1, Column: 5},
		End:   ast.Point{Row: 1, Column: 6},
	})
	assert.Equal(t, protocol.Range{Start: pos(1, 5), End: pos(1, 6)}, r)
}

func TestWordBefore(t *testing.T) {
	content := `echo $valu + \App\he`
	assert.Equal(t, "$valu", wordBefore(content, 10))
	assert.Equal(t, `\App\he`, wordBefore(content, uint(len(content))))
	assert.Equal(t, "", wordBefore(content, 11))
	assert.Equal(t, "ec", wordBefore(content, 2))
}

func TestURIConversion(t *testing.T) {
	assert.Equal(t, "/home/user/test.php", uriToPath("file:///home/user/test.php"))
	assert.Equal(t, "relative/path", uriToPath("relative/path"))
	assert.Equal(t, "file:///home/user/test.php", pathToURI("/home/user/test.php"))
	assert.Equal(t, "relative/path", pathToURI("relative/path"))
}

// --- Document store tests ---

func TestDocumentStore(t *testing.T) {
	t.Run("Open", func(t *testing.T) {
		store := NewDocumentStore()
		doc := store.Open("file:///test.php", 1, "<?php echo 1;")
		require.NotNil(t, doc)
		assert.Equal(t, "<?php echo 1;", doc.Content)
		assert.NotNil(t, doc.root)
		assert.NoError(t, doc.parseErr)
	})
	t.Run("Get", func(t *testing.T) {
		store := NewDocumentStore()
		store.Open("file:///test.php", 1, "<?php echo 1;")
		got := store.Get("file:///test.php")
		require.NotNil(t, got)
		assert.Equal(t, "<?php echo 1;", got.Content)
		assert.Nil(t, store.Get("file:///nonexistent.php"))
	})
	t.Run("Change", func(t *testing.T) {
		store := NewDocumentStore()
		store.Open("file:///test.php", 1, "<?php echo 1;")
		changed := store.Change("file:///test.php", 2, "<?php echo 2;")
		assert.Equal(t, "<?php echo 2;", changed.Content)
		assert.Equal(t, int32(2), changed.Version)
		assert.Nil(t, changed.analysis, "analysis cache should be cleared on change")
	})
	t.Run("Close", func(t *testing.T) {
		store := NewDocumentStore()
		store.Open("file:///test.php", 1, "<?php echo 1;")
		store.Open("file:///other.php", 1, "<?php echo 2;")
		store.Close("file:///test.php")
		assert.Nil(t, store.Get("file:///test.php"))
		assert.Len(t, store.All(), 1)
	})
}

// --- Diagnostics tests ---

func TestDiagnosticsOnOpen_ValidCode(t *testing.T) {
	pub := publish(t, testServer(), "file:///test.php", "<?php\n$x = 1;\necho $x;\n")
	assert.Equal(t, "file:///test.php", pub.URI)
	assert.Empty(t, pub.Diagnostics)
	require.NotNil(t, pub.Version)
	assert.Equal(t, protocol.UInteger(1), *pub.Version)
}

func TestDiagnosticsUnknownVariable(t *testing.T) {
	pub := publish(t, testServer(), "file:///test.php", "<?php\necho $nope;\n")
	require.Len(t, pub.Diagnostics, 1)
	d := pub.Diagnostics[0]
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	assert.Equal(t, "phpsema", *d.Source)
	assert.Equal(t, issue.UnknownVariable.String(), d.Code.Value)
	assert.Equal(t, "Unknown variable $nope", d.Message)
	assert.Equal(t, pos(1, 5), d.Range.Start)
	assert.Equal(t, pos(1, 10), d.Range.End)
}

func TestDiagnosticsOnSyntaxError(t *testing.T) {
	pub := publish(t, testServer(), "file:///test.php", "<?php\n$x = ;\n")
	require.NotEmpty(t, pub.Diagnostics)
	var found bool
	for _, d := range pub.Diagnostics {
		if d.Code != nil && d.Code.Value == lint.AnalyzerSyntaxError.Name {
			found = true
			assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
			assert.Equal(t, protocol.UInteger(1), d.Range.Start.Line)
		}
	}
	assert.True(t, found, "syntax errors should be reported")
}

func TestDiagnosticsCustomAnalyzer(t *testing.T) {
	custom := &lint.Analyzer{
		Name:     "no-echo",
		Doc:      "Report echo statements.",
		Severity: issue.SeverityHint,
		Run: func(pass *lint.Pass) error {
			lint.WalkAll(pass.Root, func(n *ast.Node) bool {
				if n.Kind() == ast.KindEchoStatement {
					pass.Reportf(n.Range(), "echo found")
				}
				return true
			})
			return nil
		},
	}
	pub := publish(t, testServer(WithAnalyzers(custom)), "file:///test.php", "<?php\necho 1;\n")
	require.Len(t, pub.Diagnostics, 1)
	assert.Equal(t, "no-echo", pub.Diagnostics[0].Code.Value)
	assert.Equal(t, protocol.DiagnosticSeverityHint, *pub.Diagnostics[0].Severity)
}

func TestDiagnosticsWithSymbols(t *testing.T) {
	table := func() *symbols.Table {
		tbl := symbols.NewBuiltinTable()
		tbl.InsertFunction(&symbols.FunctionSymbol{Name: names.ParseFQN("host_call"), Builtin: true})
		return tbl
	}
	src := "<?php\nhost_call();\n"
	pub := publish(t, testServer(), "file:///a.php", src)
	require.Len(t, pub.Diagnostics, 1)
	assert.Equal(t, issue.UnknownFunction.String(), pub.Diagnostics[0].Code.Value)

	pub = publish(t, testServer(WithSymbols(table)), "file:///a.php", src)
	assert.Empty(t, pub.Diagnostics)
}

func TestDiagnosticsOnClose_Cleared(t *testing.T) {
	s := testServer()
	publish(t, s, "file:///test.php", "<?php\necho $nope;\n")

	ctx, captured := capturingContext()
	s.captureNotify(ctx)
	err := s.textDocumentDidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///test.php"},
	})
	require.NoError(t, err)
	require.Len(t, *captured, 1)
	assert.Empty(t, (*captured)[0].Diagnostics)
	assert.Nil(t, s.docs.Get("file:///test.php"))
}

func TestDiagnosticsOnSave_Immediate(t *testing.T) {
	s := testServer()
	openDoc(s, "file:///test.php", "<?php\necho $nope;\n")
	ctx, captured := capturingContext()
	err := s.textDocumentDidSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///test.php"},
	})
	require.NoError(t, err)
	require.Len(t, *captured, 1)
	assert.Len(t, (*captured)[0].Diagnostics, 1)
}

func TestConvertLintDiagnostic(t *testing.T) {
	d := convertLintDiagnostic("<?php\n$é = $x;\n", lint.Diagnostic{
		Range: ast.Range{
			Start: ast.Point{Row: 1, Column: 6},
			End:   ast.Point{Row: 1, Column: 8},
		},
		Message:  "Unknown variable $x",
		Analyzer: "unknown-variable",
		Severity: issue.SeverityWarning,
		Notes:    []string{"declared later"},
	})
	assert.Equal(t, pos(1, 5), d.Range.Start)
	assert.Equal(t, pos(1, 7), d.Range.End)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *d.Severity)
	assert.Equal(t, "Unknown variable $x\ndeclared later", d.Message)
}

// --- Navigation tests ---

func TestHoverOnFunctionCall(t *testing.T) {
	s := testServer()
	openDoc(s, "file:///test.php", addSource)

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///test.php"},
			Position:     pos(5, 6),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	content := hover.Contents.(protocol.MarkupContent)
	assert.Equal(t, protocol.MarkupKindMarkdown, content.Kind)
	assert.Contains(t, content.Value, "```php\nfunction \\add(int $a, int $b): int\n```")
	assert.Contains(t, content.Value, "Adds two numbers.")
	assert.Contains(t, content.Value, "*Defined in /test.php:5*")
	require.NotNil(t, hover.Range)
	assert.Equal(t, pos(5, 5), hover.Range.Start)
}

func TestHoverOnVariable(t *testing.T) {
	s := testServer()
	openDoc(s, "file:///test.php", "<?php\n$x = 40 + 2;\necho $x;\n")

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///test.php"},
			Position:     pos(2, 5),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "```php\n$x: int = 42\n```", hover.Contents.(protocol.MarkupContent).Value)
}

func TestHoverOnEmpty(t *testing.T) {
	s := testServer()
	openDoc(s, "file:///test.php", "<?php\n\n\n$x = 1;\n")

	hover, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///test.php"},
			Position:     pos(1, 0),
		},
	})
	require.NoError(t, err)
	assert.Nil(t, hover)

	hover, err = s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///missing.php"},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestDefinition(t *testing.T) {
	s := testServer()
	openDoc(s, "file:///test.php", addSource)

	result, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///test.php"},
			Position:     pos(6, 6),
		},
	})
	require.NoError(t, err)
	loc, ok := result.(protocol.Location)
	require.True(t, ok, "definition should be a Location, got %T", result)
	assert.Equal(t, "file:///test.php", loc.URI)
	assert.Equal(t, protocol.Range{Start: pos(4, 9), End: pos(4, 12)}, loc.Range)
}

func TestDefinitionBuiltinReturnsNil(t *testing.T) {
	s := testServer()
	openDoc(s, "file:///test.php", "<?php\necho strlen('ab');\n")

	result, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///test.php"},
			Position:     pos(1, 6),
		},
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestReferences(t *testing.T) {
	s := testServer()
	openDoc(s, "file:///test.php", addSource)

	params := &protocol.ReferenceParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///test.php"},
			Position:     pos(4, 10),
		},
	}
	locs, err := s.textDocumentReferences(mockContext(), params)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, pos(5, 5), locs[0].Range.Start)
	assert.Equal(t, pos(6, 5), locs[1].Range.Start)

	params.Context.IncludeDeclaration = true
	locs, err = s.textDocumentReferences(mockContext(), params)
	require.NoError(t, err)
	require.Len(t, locs, 3)
	assert.Equal(t, pos(4, 9), locs[0].Range.Start)
}

func TestDocumentSymbols(t *testing.T) {
	s := testServer()
	openDoc(s, "file:///test.php", `<?php
const LIMIT = 3;
interface Shape { public function area(): float; }
class Square implements Shape {
    const SIDES = 4;
    public function area(): float { return 1.0; }
}
function make(): Square { return new Square(); }
`)

	result, err := s.textDocumentDocumentSymbol(mockContext(), &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///test.php"},
	})
	require.NoError(t, err)
	syms, ok := result.([]protocol.DocumentSymbol)
	require.True(t, ok)

	var got []string
	for _, sym := range syms {
		got = append(got, sym.Name)
	}
	assert.Equal(t, []string{"LIMIT", "Shape", "Square", "make"}, got)
	assert.Equal(t, protocol.SymbolKindInterface, syms[1].Kind)
	require.NotNil(t, syms[3].Detail)
	assert.Equal(t, `function \make(): \Square`, *syms[3].Detail)

	var members []string
	for _, c := range syms[2].Children {
		members = append(members, c.Name)
	}
	assert.Equal(t, []string{"area", "SIDES"}, members)
}

func TestCompletionVariables(t *testing.T) {
	s := testServer()
	openDoc(s, "file:///test.php", "<?php\n$value = 1;\n$other = 2;\necho $va;\n")

	result, err := s.textDocumentCompletion(mockContext(), &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///test.php"},
			Position:     pos(3, 8),
		},
	})
	require.NoError(t, err)
	items := result.([]protocol.CompletionItem)
	require.Len(t, items, 1)
	assert.Equal(t, "$value", items[0].Label)
	assert.Equal(t, "int", *items[0].Detail)
}

func TestCompletionFunctions(t *testing.T) {
	s := testServer()
	openDoc(s, "file:///test.php", "<?php\nfunction my_helper(): void {}\nmy_h();\nstr_rep();\n")

	complete := func(p protocol.Position) []string {
		result, err := s.textDocumentCompletion(mockContext(), &protocol.CompletionParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: "file:///test.php"},
				Position:     p,
			},
		})
		require.NoError(t, err)
		var labels []string
		for _, item := range result.([]protocol.CompletionItem) {
			labels = append(labels, item.Label)
		}
		return labels
	}
	assert.Equal(t, []string{"my_helper"}, complete(pos(2, 4)))
	assert.Contains(t, complete(pos(3, 7)), "str_replace")
}

// --- Workspace tests ---

func writeWorkspace(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.php")
	main := filepath.Join(dir, "main.php")
	require.NoError(t, os.WriteFile(lib, []byte("<?php\nfunction helper(): int { return 1; }\n"), 0o600))
	require.NoError(t, os.WriteFile(main, []byte("<?php\necho helper();\n"), 0o600))
	return dir, main
}

func initWorkspace(t *testing.T, s *Server, dir string) {
	t.Helper()
	root := pathToURI(dir)
	_, err := s.initialize(mockContext(), &protocol.InitializeParams{RootURI: &root})
	require.NoError(t, err)
	s.ensureWorkspaceIndex()
	require.NotNil(t, s.workspaceIndex())
}

func TestWorkspaceDefinition(t *testing.T) {
	dir, main := writeWorkspace(t)
	s := testServer()
	initWorkspace(t, s, dir)

	pub := publish(t, s, pathToURI(main), "<?php\necho helper();\n")
	assert.Empty(t, pub.Diagnostics, "declarations of other files are visible")

	result, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: pathToURI(main)},
			Position:     pos(1, 6),
		},
	})
	require.NoError(t, err)
	loc := result.(protocol.Location)
	assert.Equal(t, pathToURI(filepath.Join(dir, "lib.php")), loc.URI)
	assert.Equal(t, pos(1, 9), loc.Range.Start)
}

func TestWorkspaceReferences(t *testing.T) {
	dir, main := writeWorkspace(t)
	s := testServer()
	initWorkspace(t, s, dir)

	lib := pathToURI(filepath.Join(dir, "lib.php"))
	openDoc(s, lib, "<?php\nfunction helper(): int { return 1; }\n")
	locs, err := s.textDocumentReferences(mockContext(), &protocol.ReferenceParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: lib},
			Position:     pos(1, 10),
		},
	})
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, pathToURI(main), locs[0].URI)
	assert.Equal(t, pos(1, 5), locs[0].Range.Start)
}

func TestWorkspaceSymbols(t *testing.T) {
	dir, _ := writeWorkspace(t)
	s := testServer()
	initWorkspace(t, s, dir)

	syms, err := s.workspaceSymbol(mockContext(), &protocol.WorkspaceSymbolParams{Query: "HELP"})
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "helper", syms[0].Name)
	assert.Equal(t, protocol.SymbolKindFunction, syms[0].Kind)
	assert.Equal(t, pathToURI(filepath.Join(dir, "lib.php")), syms[0].Location.URI)
}

// --- Lifecycle tests ---

func TestExitHandler(t *testing.T) {
	s := testServer()
	var exitCode int
	var exitCalled bool
	s.exitFn = func(code int) {
		exitCode = code
		exitCalled = true
	}

	err := s.exit(mockContext())
	require.NoError(t, err)
	assert.True(t, exitCalled, "exit handler should call exitFn")
	assert.Equal(t, 0, exitCode, "exit should call with code 0")
}

func TestInitializeLifecycle(t *testing.T) {
	s := testServer()

	rootURI := "file:///workspace"
	result, err := s.initialize(mockContext(), &protocol.InitializeParams{
		RootURI: &rootURI,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	initResult, ok := result.(protocol.InitializeResult)
	require.True(t, ok)
	assert.NotNil(t, initResult.ServerInfo)
	assert.Equal(t, serverName, initResult.ServerInfo.Name)
	assert.Equal(t, "/workspace", s.rootPath)
	assert.NoError(t, s.shutdown(mockContext()))
}
