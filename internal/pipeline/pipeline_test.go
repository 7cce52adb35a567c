package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takc-lang/tak/internal/config"
	"github.com/takc-lang/tak/internal/diagnostics"
)

type memLoader map[string]string

func (m memLoader) Read(path string) (string, error) {
	if src, ok := m[path]; ok {
		return src, nil
	}
	return "", assert.AnError
}

func TestRunProducesIRForWellTypedProgram(t *testing.T) {
	rep := diagnostics.NewConsoleReporter(nil, false)
	p := New(config.Default(), rep, memLoader{"/t.tak": `proc add(a: i32, b: i32) -> i32 { ret a + b; }`})

	res, err := p.Run("/t.tak")
	require.NoError(t, err)
	assert.False(t, rep.HasErrors())
	assert.Contains(t, res.IR, "@add")
	assert.NotEmpty(t, res.Toplevel)
}

func TestRunStopsAtParseStageOnSyntaxError(t *testing.T) {
	rep := diagnostics.NewConsoleReporter(nil, false)
	p := New(config.Default(), rep, memLoader{"/t.tak": `proc f( -> i32 { ret 1; }`})

	res, err := p.Run("/t.tak")
	require.Error(t, err)
	assert.True(t, rep.HasErrors())
	assert.Empty(t, res.IR, "no codegen output once an earlier stage fails")
}

func TestRunStopsAtCheckStageOnTypeError(t *testing.T) {
	rep := diagnostics.NewConsoleReporter(nil, false)
	p := New(config.Default(), rep, memLoader{"/t.tak": `proc f() { ret 1; }`})

	res, err := p.Run("/t.tak")
	require.Error(t, err)
	assert.True(t, rep.HasErrors())
	assert.Empty(t, res.IR, "codegen never runs once checking reports an error")
	assert.NotEmpty(t, res.Toplevel, "the AST from a successful parse is still available for dumping")
}

func TestRunPopulatesEntityTableAccessibleViaTable(t *testing.T) {
	rep := diagnostics.NewConsoleReporter(nil, false)
	p := New(config.Default(), rep, memLoader{"/t.tak": `struct Point { x: i32, y: i32 }`})

	_, err := p.Run("/t.tak")
	require.NoError(t, err)

	tab := p.Table()
	require.NotNil(t, tab)
	assert.True(t, tab.TypeExists("Point"))
}

func TestNewWithNilLoaderFallsBackToOSFileLoader(t *testing.T) {
	rep := diagnostics.NewConsoleReporter(nil, false)
	p := New(config.Default(), rep, nil)

	_, err := p.Run("/nonexistent/path/does/not/exist.tak")
	require.Error(t, err)
}

func TestDumpSymbolsAfterRunListsDeclaredProcedure(t *testing.T) {
	rep := diagnostics.NewConsoleReporter(nil, false)
	p := New(config.Default(), rep, memLoader{"/t.tak": `proc add(a: i32, b: i32) -> i32 { ret a + b; }`})

	_, err := p.Run("/t.tak")
	require.NoError(t, err)

	out := DumpSymbols(p.Table())
	assert.Contains(t, out, "add")
}

func TestDumpTypesAfterRunListsStructAndFields(t *testing.T) {
	rep := diagnostics.NewConsoleReporter(nil, false)
	p := New(config.Default(), rep, memLoader{"/t.tak": `struct Point { x: i32, y: i32 }`})

	_, err := p.Run("/t.tak")
	require.NoError(t, err)

	out := DumpTypes(p.Table())
	assert.Contains(t, out, "struct Point")
	assert.Contains(t, out, "x: i32")
	assert.Contains(t, out, "y: i32")
}

func TestDumpASTRendersToplevelNodes(t *testing.T) {
	rep := diagnostics.NewConsoleReporter(nil, false)
	p := New(config.Default(), rep, memLoader{"/t.tak": `proc f() -> i32 { ret 1; }`})

	res, err := p.Run("/t.tak")
	require.NoError(t, err)

	out := DumpAST(res.Toplevel)
	assert.Contains(t, out, "ProcDecl")
}

func TestDumpASTEmptyNodeListRendersEmptyString(t *testing.T) {
	assert.Equal(t, "", DumpAST(nil))
}

func TestDumpSymbolsOrdersByDenseIndex(t *testing.T) {
	rep := diagnostics.NewConsoleReporter(nil, false)
	p := New(config.Default(), rep, memLoader{"/t.tak": `
proc a() -> i32 { ret 1; }
proc b() -> i32 { ret 2; }
proc c() -> i32 { ret 3; }
`})
	_, err := p.Run("/t.tak")
	require.NoError(t, err)

	out := DumpSymbols(p.Table())
	ia, ib, ic := strings.Index(out, "#1 "), strings.Index(out, "#2 "), strings.Index(out, "#3 ")
	require.True(t, ia >= 0 && ib >= 0 && ic >= 0)
	assert.True(t, ia < ib && ib < ic)
}
