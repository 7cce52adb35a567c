package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takc-lang/tak/internal/diagnostics"
	"github.com/takc-lang/tak/internal/entity"
	"github.com/takc-lang/tak/internal/parser"
	"github.com/takc-lang/tak/internal/postparser"
)

type memLoader map[string]string

func (m memLoader) Read(path string) (string, error) {
	if src, ok := m[path]; ok {
		return src, nil
	}
	return "", assert.AnError
}

func check(t *testing.T, src string) *diagnostics.ConsoleReporter {
	t.Helper()
	tab := entity.New()
	rep := diagnostics.NewConsoleReporter(nil, false)
	p := parser.New(tab, rep, memLoader{"/t.tak": src})
	toplevel, err := p.ParseFile("/t.tak")
	require.NoError(t, err)
	require.False(t, rep.HasErrors(), "unexpected parse errors: %v", rep.Errors())

	postparser.Run(tab, rep)
	require.False(t, rep.HasErrors(), "unexpected postparser errors: %v", rep.Errors())

	New(tab, rep).Check("/t.tak", toplevel)
	return rep
}

func TestCheckWellTypedProgramHasNoErrors(t *testing.T) {
	rep := check(t, `proc add(a: i32, b: i32) -> i32 { ret a + b; } proc main() -> i32 { x := add(1, 2); ret x; }`)
	assert.False(t, rep.HasErrors())
}

func TestCheckRetTypeMismatchReported(t *testing.T) {
	rep := check(t, `proc f() { ret 1; }`)
	require.True(t, rep.HasErrors())
	assert.Equal(t, diagnostics.TypeError, rep.Errors()[0].Category)
}

func TestCheckRetMissingValueReported(t *testing.T) {
	rep := check(t, `proc f() -> i32 { ret; }`)
	require.True(t, rep.HasErrors())
}

func TestCheckIfConditionMustBeLogicalEligible(t *testing.T) {
	rep := check(t, `struct Pair { a: i32, b: i32 } proc f() { p : Pair = { 1, 2 }; if p { } }`)
	require.True(t, rep.HasErrors())
	assert.Equal(t, diagnostics.ControlFlow, rep.Errors()[0].Category)
}

func TestCheckCallArityMismatchReported(t *testing.T) {
	rep := check(t, `proc add(a: i32, b: i32) -> i32 { ret a + b; } proc f() { add(1); }`)
	require.True(t, rep.HasErrors())
}

func TestCheckBinaryOperatorRequiresCoercibleOperands(t *testing.T) {
	rep := check(t, `struct Pair { a: i32, b: i32 } proc f() { p : Pair = { 1, 2 }; q : Pair = { 1, 2 }; x := p + q; }`)
	require.True(t, rep.HasErrors())
}

func TestCheckUnaryMinusOnBoolCannotFlipSign(t *testing.T) {
	rep := check(t, `proc f() { y := -true; }`)
	require.True(t, rep.HasErrors())
}

func TestCheckUnaryMinusFlipsSignednessOfUnsigned(t *testing.T) {
	rep := check(t, `proc f() { x : u32 = 1; y := -x; }`)
	assert.False(t, rep.HasErrors(), "FlipSign succeeds for a standard unsigned/signed pair")
}

func TestCheckDereferenceNonPointerReported(t *testing.T) {
	rep := check(t, `proc f() { x : i32 = 1; y := ^x; }`)
	require.True(t, rep.HasErrors())
}

func TestCheckAddressOfVariableIsLegal(t *testing.T) {
	rep := check(t, `proc f() { x : i32 = 1; p := &x; }`)
	assert.False(t, rep.HasErrors())
}

func TestCheckSubscriptRequiresDereferenceableTarget(t *testing.T) {
	rep := check(t, `proc f() { x : i32 = 1; y := x[0]; }`)
	require.True(t, rep.HasErrors())
}

func TestCheckArrayDeclRequiresBracedInitializer(t *testing.T) {
	rep := check(t, `x : i32[3] = 1;`)
	require.True(t, rep.HasErrors())
}

func TestCheckArrayDeclWithMatchingBracedInitializer(t *testing.T) {
	rep := check(t, `x : i32[3] = { 1, 2, 3 };`)
	assert.False(t, rep.HasErrors())
}

func TestCheckStructLiteralMemberCountMismatch(t *testing.T) {
	rep := check(t, `struct Point { x: i32, y: i32 } p : Point = { 1 };`)
	require.True(t, rep.HasErrors())
}

func TestCheckMemberAccessOnNonStructReported(t *testing.T) {
	rep := check(t, `proc f() { x : i32 = 1; y := x.field; }`)
	require.True(t, rep.HasErrors())
}

func TestCheckCastImpermissibleTypesReported(t *testing.T) {
	rep := check(t, `struct Point { x: i32, y: i32 } proc f() { p : Point = { 1, 2 }; y := cast(i32) p; }`)
	require.True(t, rep.HasErrors())
}

func TestCheckCastPointerToIntegerIsPermissible(t *testing.T) {
	rep := check(t, `proc f() { x : i32 = 1; p := &x; y := cast(u64) p; }`)
	assert.False(t, rep.HasErrors())
}

func TestCheckBrkOutsideLoopAlreadyCaughtByParserButCheckerAgrees(t *testing.T) {
	// parser already rejects this at parse time (spec §4.4); confirm the
	// checker doesn't additionally choke on whatever partial AST resulted.
	tab := entity.New()
	rep := diagnostics.NewConsoleReporter(nil, false)
	p := parser.New(tab, rep, memLoader{"/t.tak": `proc f() { brk; }`})
	toplevel, err := p.ParseFile("/t.tak")
	require.NoError(t, err)
	require.True(t, rep.HasErrors())

	postparser.Run(tab, rep)
	New(tab, rep).Check("/t.tak", toplevel)
	assert.True(t, rep.HasErrors())
}
