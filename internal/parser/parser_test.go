package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takc-lang/tak/internal/ast"
	"github.com/takc-lang/tak/internal/diagnostics"
	"github.com/takc-lang/tak/internal/entity"
)

type memLoader map[string]string

func (m memLoader) Read(path string) (string, error) {
	if src, ok := m[path]; ok {
		return src, nil
	}
	return "", assert.AnError
}

func parse(t *testing.T, src string) ([]ast.Node, *entity.Table, *diagnostics.ConsoleReporter) {
	t.Helper()
	tab := entity.New()
	rep := diagnostics.NewConsoleReporter(nil, false)
	p := New(tab, rep, memLoader{"/root.tak": src})
	toplevel, err := p.ParseFile("/root.tak")
	require.NoError(t, err)
	return toplevel, tab, rep
}

func TestParseProcDeclRegistersSymbolAndBody(t *testing.T) {
	toplevel, tab, rep := parse(t, `proc add(a: i32, b: i32) -> i32 { ret a + b; }`)
	require.False(t, rep.HasErrors())
	require.Len(t, toplevel, 1)

	proc, ok := toplevel[0].(*ast.ProcDecl)
	require.True(t, ok)
	assert.Equal(t, "add", proc.Name)
	require.Len(t, proc.Params, 2)
	assert.Equal(t, "a", proc.Params[0].Name)
	require.NotNil(t, proc.Body)
	require.Len(t, proc.Body.Children, 1)

	_, ok = tab.LookupSymbol("add")
	assert.True(t, ok)
}

func TestParseGenericProcBodySkippedVerbatim(t *testing.T) {
	toplevel, _, rep := parse(t, `proc identity[T](x: T) -> T { ret x; }`)
	require.False(t, rep.HasErrors())
	require.Len(t, toplevel, 1)

	proc := toplevel[0].(*ast.ProcDecl)
	assert.Equal(t, []string{"T"}, proc.Generics)
	assert.Nil(t, proc.Body, "generic proc bodies are skipped, not parsed into statements")
}

func TestParseExternPrototypeNoBody(t *testing.T) {
	toplevel, _, rep := parse(t, `@extern ["C"] proc puts(s: u8^) -> i32;`)
	require.False(t, rep.HasErrors())
	require.Len(t, toplevel, 1)

	proc := toplevel[0].(*ast.ProcDecl)
	assert.True(t, proc.ExternC)
	assert.Nil(t, proc.Body)
}

func TestParseStructDefRegistersUserType(t *testing.T) {
	toplevel, tab, rep := parse(t, `struct Point { x: i32, y: i32 }`)
	require.False(t, rep.HasErrors())
	require.Len(t, toplevel, 1)

	def := toplevel[0].(*ast.StructDef)
	require.Len(t, def.Fields, 2)
	assert.True(t, tab.TypeExists("Point"))
}

func TestParseEnumAssignsSequentialValues(t *testing.T) {
	toplevel, _, rep := parse(t, `enum Color { Red, Green = 4, Blue };`)
	require.False(t, rep.HasErrors())
	def := toplevel[0].(*ast.EnumDef)
	require.Len(t, def.Members, 3)
	assert.EqualValues(t, 0, def.Members[0].Value)
	assert.EqualValues(t, 4, def.Members[1].Value)
	assert.EqualValues(t, 5, def.Members[2].Value, "members without an explicit value continue from the previous + 1")
}

func TestParseVarDeclForms(t *testing.T) {
	toplevel, _, rep := parse(t, `x : i32 = 1; y :: i32 = 2; z := 3;`)
	require.False(t, rep.HasErrors())
	require.Len(t, toplevel, 3)

	x := toplevel[0].(*ast.VarDecl)
	assert.False(t, x.Constant)
	y := toplevel[1].(*ast.VarDecl)
	assert.True(t, y.Constant)
	z := toplevel[2].(*ast.VarDecl)
	assert.Nil(t, z.DeclaredType, "z := 3 has no declared type, only inference")
}

func TestParseIfElseChain(t *testing.T) {
	toplevel, _, rep := parse(t, `proc f() { if a { ret; } else if b { ret; } else { ret; } }`)
	// 'a'/'b' are undeclared, so name resolution errors are expected;
	// that does not block the branch shape from being checked.
	_ = rep
	proc := toplevel[0].(*ast.ProcDecl)
	branch := proc.Body.Children[0].(*ast.Branch)
	require.NotNil(t, branch.Else)
	elseBranch, ok := branch.Else.(*ast.Branch)
	require.True(t, ok)
	assert.NotNil(t, elseBranch.Else)
}

func TestParseForLoopAllClauses(t *testing.T) {
	toplevel, _, _ := parse(t, `proc f() { for i := 0; i < 10; i = i + 1 { } }`)
	proc := toplevel[0].(*ast.ProcDecl)
	forNode := proc.Body.Children[0].(*ast.For)
	assert.NotNil(t, forNode.Init)
	assert.NotNil(t, forNode.Cond)
	assert.NotNil(t, forNode.Update)
}

func TestParseBrkOutsideLoopReportsControlFlowError(t *testing.T) {
	_, _, rep := parse(t, `proc f() { brk; }`)
	require.True(t, rep.HasErrors())
	assert.Equal(t, diagnostics.ControlFlow, rep.Errors()[0].Category)
}

func TestParseSwitchDuplicateCaseValueReported(t *testing.T) {
	_, _, rep := parse(t, `proc f() { switch 1 { case 1: brk; case 1: brk; default: brk; } }`)
	require.True(t, rep.HasErrors())
}

func TestParseSwitchFallthrough(t *testing.T) {
	toplevel, _, rep := parse(t, `proc f() { switch 1 { case 1: fallthrough; case 2: default: } }`)
	require.False(t, rep.HasErrors())
	proc := toplevel[0].(*ast.ProcDecl)
	sw := proc.Body.Children[0].(*ast.Switch)
	require.Len(t, sw.Cases, 3)
	assert.True(t, sw.Cases[0].Fallthrough)
	assert.True(t, sw.Cases[2].IsDefault)
}

func TestParseSwitchWithoutDefaultReportsControlFlowError(t *testing.T) {
	_, _, rep := parse(t, `proc f() { switch 1 { case 1: brk; } }`)
	require.True(t, rep.HasErrors())
	assert.Equal(t, diagnostics.ControlFlow, rep.Errors()[0].Category)
}

func TestParseDeferRequiresCallExpression(t *testing.T) {
	_, _, rep := parse(t, `proc g() -> i32 { ret 1; } proc f() { defer g(); }`)
	assert.False(t, rep.HasErrors())

	_, _, rep2 := parse(t, `proc f() { defer 1 + 2; }`)
	assert.True(t, rep2.HasErrors(), "defer operand must be a call")
}

func TestParseCastBindsTighterThanBinary(t *testing.T) {
	toplevel, _, rep := parse(t, `proc f() -> i32 { ret cast(i32) 1 + 2; }`)
	require.False(t, rep.HasErrors())
	proc := toplevel[0].(*ast.ProcDecl)
	ret := proc.Body.Children[0].(*ast.Ret)
	bin := ret.Value.(*ast.BinExpr)
	_, isCast := bin.Left.(*ast.Cast)
	assert.True(t, isCast, "cast(i32) 1 + 2 parses as (cast(i32) 1) + 2")
}

func TestParseSizeofDisambiguatesTypeVsExpr(t *testing.T) {
	toplevel, _, rep := parse(t, `proc f() -> i32 { x := 1; ret sizeof(i32) + sizeof(x); }`)
	require.False(t, rep.HasErrors())
	proc := toplevel[0].(*ast.ProcDecl)
	ret := proc.Body.Children[1].(*ast.Ret)
	bin := ret.Value.(*ast.BinExpr)

	left := bin.Left.(*ast.Sizeof)
	require.NotNil(t, left.TypeOperand)
	assert.Nil(t, left.ExprOperand)

	right := bin.Right.(*ast.Sizeof)
	require.NotNil(t, right.ExprOperand)
	assert.Nil(t, right.TypeOperand)
}

func TestParseTypePostfixesPointerAndArray(t *testing.T) {
	toplevel, _, rep := parse(t, `x : i32^[4] = nullptr;`)
	require.False(t, rep.HasErrors())
	decl := toplevel[0].(*ast.VarDecl)
	require.NotNil(t, decl.DeclaredType)
	assert.EqualValues(t, 1, decl.DeclaredType.PointerDepth)
	assert.Equal(t, []uint32{4}, decl.DeclaredType.ArrayLengths)
}

func TestParseGenericStructArgs(t *testing.T) {
	toplevel, tab, rep := parse(t, `struct Box[T] { value: T } x : Box[i32];`)
	require.False(t, rep.HasErrors())
	require.Len(t, toplevel, 2)
	assert.True(t, tab.TypeExists("Box"))

	decl := toplevel[1].(*ast.VarDecl)
	require.NotNil(t, decl.DeclaredType)
	require.Len(t, decl.DeclaredType.Parameters, 1)
}

func TestParseNamespaceDeclScopesChildren(t *testing.T) {
	toplevel, tab, rep := parse(t, `namespace math { x : i32 = 1; }`)
	require.False(t, rep.HasErrors())
	ns := toplevel[0].(*ast.NamespaceDecl)
	require.Len(t, ns.Children, 1)
	assert.Equal(t, "", tab.NamespaceAsString(), "namespace is left after the block closes")
}

func TestParseUnresolvedIdentifierSuggestsCloseName(t *testing.T) {
	_, _, rep := parse(t, `counter : i32 = 0; x : i32 = countr;`)
	require.True(t, rep.HasErrors())
	errs := rep.Errors()
	found := false
	for _, e := range errs {
		if len(e.Hints) > 0 {
			found = true
			assert.Contains(t, e.Hints[0], "counter")
		}
	}
	assert.True(t, found, "expected a did-you-mean hint for a near-miss identifier")
}

func TestParseAliasDirective(t *testing.T) {
	toplevel, tab, rep := parse(t, `@alias Scalar = i32; x : Scalar = 1;`)
	require.False(t, rep.HasErrors())
	require.Len(t, toplevel, 2)
	_, ok := tab.LookupTypeAlias("Scalar")
	assert.True(t, ok)
}

func TestParseInternDirectiveSetsVisibility(t *testing.T) {
	toplevel, _, rep := parse(t, `@intern proc helper() { }`)
	require.False(t, rep.HasErrors())
	proc := toplevel[0].(*ast.ProcDecl)
	assert.True(t, proc.Internal)
}
