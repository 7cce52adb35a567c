package irbuilder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModuleStringAssemblesSectionsInOrder(t *testing.T) {
	m := NewModule("x86_64-unknown-linux-gnu")
	m.DefineStructBody("Point", []string{"i32", "i32"})
	m.DeclareGlobal("counter", "internal", "i32", "0")
	m.DeclareFunction("external", "i32", "puts", []string{"ptr"}, false)

	out := m.String()
	assert.Contains(t, out, `target triple = "x86_64-unknown-linux-gnu"`)
	assert.Contains(t, out, "%Point = type { i32, i32 }")
	assert.Contains(t, out, "@counter = internal global i32 0")
	assert.Contains(t, out, "@puts")

	typeIdx := strings.Index(out, "%Point")
	globalIdx := strings.Index(out, "@counter")
	protoIdx := strings.Index(out, "declare")
	assert.True(t, typeIdx < globalIdx && globalIdx < protoIdx, "sections emit in type/global/proto order")
}

func TestSetUnitIDPrintsInHeaderComment(t *testing.T) {
	m := NewModule("")
	assert.NotContains(t, m.String(), "CompilationUnit", "no header line until an ID is set")

	m.SetUnitID("deadbeef")
	assert.Contains(t, m.String(), "; CompilationUnit = deadbeef")
}

func TestNewLabelIsModuleUniqueAndPrefixed(t *testing.T) {
	m := NewModule("")
	a := m.NewLabel("if.then")
	b := m.NewLabel("if.then")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "if.then")
}

func TestFuncBuilderEmitsDefineAndBody(t *testing.T) {
	m := NewModule("")
	fb := m.BeginFunction("external", "i32", "add", []Param{{Name: "a", Type: "i32"}, {Name: "b", Type: "i32"}}, false)
	fb.CreateBlock("entry")
	sum := fb.BinOp("add", "i32", "%a", "%b")
	fb.Ret("i32", sum)
	fb.End()

	out := m.String()
	assert.Contains(t, out, "define external i32 @add(i32 %a, i32 %b) {")
	assert.Contains(t, out, "entry:")
	assert.Contains(t, out, "= add i32 %a, %b")
	assert.Contains(t, out, "ret i32")
}

func TestHasTerminatorTracksBrAndRet(t *testing.T) {
	m := NewModule("")
	fb := m.BeginFunction("external", "void", "f", nil, false)
	fb.CreateBlock("entry")
	assert.False(t, fb.HasTerminator())
	fb.Br("exit")
	assert.True(t, fb.HasTerminator())

	fb.CreateBlock("exit")
	assert.False(t, fb.HasTerminator(), "CreateBlock resets the terminator flag for the new block")
	fb.RetVoid()
	assert.True(t, fb.HasTerminator())
}

func TestCallReturnsEmptyStringForVoidReturn(t *testing.T) {
	m := NewModule("")
	fb := m.BeginFunction("external", "void", "f", nil, false)
	fb.CreateBlock("entry")
	v := fb.Call("void", "@puts", []CallArg{{Type: "ptr", Value: "%s"}}, false)
	assert.Empty(t, v)

	v2 := fb.Call("i32", "@getval", nil, false)
	assert.NotEmpty(t, v2)
}

func TestGEPEmitsIndexList(t *testing.T) {
	m := NewModule("")
	fb := m.BeginFunction("external", "void", "f", nil, false)
	fb.CreateBlock("entry")
	ptr := fb.GEP("%Point", "%p", []GEPIndex{{Type: "i32", Value: "0"}, {Type: "i32", Value: "1"}})
	fb.End()

	assert.Contains(t, m.String(), "getelementptr %Point, ptr %p, i32 0, i32 1")
	assert.NotEmpty(t, ptr)
}

func TestSwitchEmitsCaseList(t *testing.T) {
	m := NewModule("")
	fb := m.BeginFunction("external", "void", "f", nil, false)
	fb.CreateBlock("entry")
	fb.Switch("i32", "%x", "default", []SwitchCase{{Type: "i32", Value: "1", Block: "case1"}})
	out := m.String()
	assert.Contains(t, out, "switch i32 %x, label %default [ i32 1, label %case1 ]")
	assert.True(t, fb.HasTerminator())
}
