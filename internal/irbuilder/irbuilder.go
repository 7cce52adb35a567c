// Package irbuilder implements the opaque IR-builder capability
// abstraction required by spec §6.3: a textual-LLVM-IR builder with an
// insert-point discipline, grounded on the teacher's
// `codegen.Generator` (`_examples/sokoide-llvm5/codegen/generator.go`)
// — a `strings.Builder`-backed emitter with `emit`/`emitRaw`/`newLabel`
// helpers — generalized into its own package so `internal/codegen` can
// depend on a narrow capability surface instead of owning IR-text
// formatting itself.
package irbuilder

import (
	"fmt"
	"strings"
)

// Module accumulates a whole compilation unit's IR: the prologue
// (struct type bodies, global declarations, function prototypes) and
// one buffer per defined function body, concatenated on String().
type Module struct {
	target string
	unitID string

	typeDefs  strings.Builder
	globals   strings.Builder
	protos    strings.Builder
	functions []*strings.Builder

	valueCounter int
	labelCounter int
}

func NewModule(target string) *Module {
	return &Module{target: target}
}

// SetUnitID records the compilation unit's identifier, printed in the
// module header comment and available to callers (internal/codegen)
// that need to uniquify private symbol names across separately
// compiled units destined to be linked together.
func (m *Module) SetUnitID(id string) { m.unitID = id }

func (m *Module) nextValue() string {
	m.valueCounter++
	return fmt.Sprintf("%%v%d", m.valueCounter)
}

// NewLabel returns a fresh, module-unique basic-block label with the
// given human-readable prefix (e.g. "if.then", "loop.cond").
func (m *Module) NewLabel(prefix string) string {
	m.labelCounter++
	return fmt.Sprintf("%s.%d", prefix, m.labelCounter)
}

// DefineStructBody emits `%Name = type { field1, field2, ... }` into
// the module's type-definition section (spec §4.7's "named struct type
// ... filled later").
func (m *Module) DefineStructBody(name string, fieldTypes []string) {
	fmt.Fprintf(&m.typeDefs, "%%%s = type { %s }\n", name, strings.Join(fieldTypes, ", "))
}

// DeclareGlobal emits a module-scope global with the given linkage
// ("internal"/"external"/"private") and a literal initializer (or
// "zeroinitializer").
func (m *Module) DeclareGlobal(name, linkage, irType, initializer string) {
	fmt.Fprintf(&m.globals, "@%s = %s global %s %s\n", name, linkage, irType, initializer)
}

// DeclarePrivateConstant emits an unnamed-addr private constant, used
// for string-literal backing storage.
func (m *Module) DeclarePrivateConstant(name, irType, initializer string) {
	fmt.Fprintf(&m.globals, "@%s = private unnamed_addr constant %s %s\n", name, irType, initializer)
}

// DeclareFunction emits a `declare` prototype for a procedure whose
// body is not in this module. Function definitions are opened by
// BeginFunction, which writes its own signature line.
func (m *Module) DeclareFunction(linkage, retType, name string, paramTypes []string, variadic bool) {
	params := strings.Join(paramTypes, ", ")
	if variadic {
		if params != "" {
			params += ", "
		}
		params += "..."
	}
	fmt.Fprintf(&m.protos, "declare %s %s @%s(%s)\n", linkage, retType, name, params)
}

func (m *Module) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "; ModuleID = 'tak'\n")
	if m.unitID != "" {
		fmt.Fprintf(&b, "; CompilationUnit = %s\n", m.unitID)
	}
	fmt.Fprintf(&b, "target triple = %q\n\n", m.target)
	if m.typeDefs.Len() > 0 {
		b.WriteString("; Type definitions\n")
		b.WriteString(m.typeDefs.String())
		b.WriteString("\n")
	}
	if m.globals.Len() > 0 {
		b.WriteString("; Globals\n")
		b.WriteString(m.globals.String())
		b.WriteString("\n")
	}
	if m.protos.Len() > 0 {
		b.WriteString("; External declarations\n")
		b.WriteString(m.protos.String())
		b.WriteString("\n")
	}
	for _, fn := range m.functions {
		b.WriteString(fn.String())
		b.WriteString("\n")
	}
	return b.String()
}

// FuncBuilder is the insert-point builder for one function body (spec
// §6.3: "basic blocks and an insert-point builder").
type FuncBuilder struct {
	module      *Module
	out         *strings.Builder
	indent      int
	terminated  bool
	currentName string
}

// BeginFunction opens a function definition and returns a FuncBuilder
// positioned with no block yet open — call CreateBlock/SetInsertPoint
// before emitting instructions.
func (m *Module) BeginFunction(linkage, retType, name string, params []Param, variadic bool) *FuncBuilder {
	buf := &strings.Builder{}
	var parts []string
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%s %%%s", p.Type, p.Name))
	}
	paramList := strings.Join(parts, ", ")
	if variadic {
		if paramList != "" {
			paramList += ", "
		}
		paramList += "..."
	}
	fmt.Fprintf(buf, "define %s %s @%s(%s) {\n", linkage, retType, name, paramList)
	m.functions = append(m.functions, buf)
	return &FuncBuilder{module: m, out: buf}
}

type Param struct {
	Name string
	Type string
}

func (f *FuncBuilder) End() {
	f.out.WriteString("}\n")
}

// CreateBlock opens `label:` and positions the insert point there.
func (f *FuncBuilder) CreateBlock(label string) {
	fmt.Fprintf(f.out, "%s:\n", label)
	f.currentName = label
	f.terminated = false
}

func (f *FuncBuilder) CurrentBlock() string { return f.currentName }

// HasTerminator reports whether the current block already ended in a
// br/ret/switch — callers must check this before synthesizing a
// fallthrough branch or a default return (spec §4.7 step 4).
func (f *FuncBuilder) HasTerminator() bool { return f.terminated }

func (f *FuncBuilder) emit(format string, args ...interface{}) {
	f.out.WriteString("  ")
	fmt.Fprintf(f.out, format, args...)
	f.out.WriteString("\n")
}

func (f *FuncBuilder) value() string { return f.module.nextValue() }

// Alloca emits a stack slot named after the declaration (entry-block
// discipline is the caller's responsibility, per spec §4.7 step 2).
func (f *FuncBuilder) Alloca(name, irType string) string {
	slot := "%" + name
	f.emit("%s = alloca %s", slot, irType)
	return slot
}

func (f *FuncBuilder) Load(irType, ptr string) string {
	v := f.value()
	f.emit("%s = load %s, ptr %s", v, irType, ptr)
	return v
}

func (f *FuncBuilder) Store(irType, value, ptr string) {
	f.emit("store %s %s, ptr %s", irType, value, ptr)
}

// GEP emits `getelementptr` with the given element type and a list of
// (type, index) pairs.
func (f *FuncBuilder) GEP(elemType, ptr string, indices []GEPIndex) string {
	v := f.value()
	var parts []string
	for _, idx := range indices {
		parts = append(parts, fmt.Sprintf("%s %s", idx.Type, idx.Value))
	}
	f.emit("%s = getelementptr %s, ptr %s, %s", v, elemType, ptr, strings.Join(parts, ", "))
	return v
}

type GEPIndex struct {
	Type  string
	Value string
}

// BinOp emits an integer/float arithmetic or bitwise instruction
// (spec §6.3: "integer & float binary arithmetic ... bit ops, shifts").
func (f *FuncBuilder) BinOp(op, irType, lhs, rhs string) string {
	v := f.value()
	f.emit("%s = %s %s %s, %s", v, op, irType, lhs, rhs)
	return v
}

// ICmp/FCmp emit comparisons with ordered/unordered flavours for FCmp
// (spec §6.3).
func (f *FuncBuilder) ICmp(pred, irType, lhs, rhs string) string {
	v := f.value()
	f.emit("%s = icmp %s %s %s, %s", v, pred, irType, lhs, rhs)
	return v
}

func (f *FuncBuilder) FCmp(pred, irType, lhs, rhs string) string {
	v := f.value()
	f.emit("%s = fcmp %s %s %s, %s", v, pred, irType, lhs, rhs)
	return v
}

// Convert emits any of the single-operand numeric/pointer conversion
// instructions (sext/zext/trunc/fpext/fptrunc/sitofp/uitofp/fptosi/
// fptoui/ptrtoint/inttoptr/bitcast).
func (f *FuncBuilder) Convert(op, fromType, value, toType string) string {
	v := f.value()
	f.emit("%s = %s %s %s to %s", v, op, fromType, value, toType)
	return v
}

func (f *FuncBuilder) Br(target string) {
	f.emit("br label %%%s", target)
	f.terminated = true
}

func (f *FuncBuilder) CondBr(cond, trueTarget, falseTarget string) {
	f.emit("br i1 %s, label %%%s, label %%%s", cond, trueTarget, falseTarget)
	f.terminated = true
}

type PhiIncoming struct {
	Value string
	Block string
}

func (f *FuncBuilder) Phi(irType string, incoming []PhiIncoming) string {
	v := f.value()
	var parts []string
	for _, in := range incoming {
		parts = append(parts, fmt.Sprintf("[ %s, %%%s ]", in.Value, in.Block))
	}
	f.emit("%s = phi %s %s", v, irType, strings.Join(parts, ", "))
	return v
}

func (f *FuncBuilder) Ret(irType, value string) {
	f.emit("ret %s %s", irType, value)
	f.terminated = true
}

func (f *FuncBuilder) RetVoid() {
	f.emit("ret void")
	f.terminated = true
}

// Call emits a call instruction; returns "" when retType is "void".
func (f *FuncBuilder) Call(retType, callee string, args []CallArg, variadic bool) string {
	var parts []string
	for _, a := range args {
		parts = append(parts, fmt.Sprintf("%s %s", a.Type, a.Value))
	}
	if retType == "void" {
		f.emit("call void %s(%s)", callee, strings.Join(parts, ", "))
		return ""
	}
	v := f.value()
	f.emit("%s = call %s %s(%s)", v, retType, callee, strings.Join(parts, ", "))
	return v
}

type CallArg struct {
	Type  string
	Value string
}

type SwitchCase struct {
	Type  string
	Value string
	Block string
}

// Switch emits an LLVM `switch` terminator (resolved Open Question:
// switch IS lowered, per spec §4.7's "the implementation may add a
// straightforward lowering").
func (f *FuncBuilder) Switch(irType, value, defaultBlock string, cases []SwitchCase) {
	var parts []string
	for _, c := range cases {
		parts = append(parts, fmt.Sprintf("%s %s, label %%%s", c.Type, c.Value, c.Block))
	}
	f.emit("switch %s %s, label %%%s [ %s ]", irType, value, defaultBlock, strings.Join(parts, " "))
	f.terminated = true
}

// Comment emits a raw `;`-prefixed line, for readability in the
// generated IR (grounded on the teacher's frequent `g.emit("; ...")`
// section headers).
func (f *FuncBuilder) Comment(format string, args ...interface{}) {
	f.out.WriteString("  ; ")
	fmt.Fprintf(f.out, format, args...)
	f.out.WriteString("\n")
}
