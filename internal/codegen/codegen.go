// Package codegen implements Tak's IR emitter (C8, spec §4.7): a
// recursive post-order visitor that lowers the checked AST to textual
// LLVM IR via the internal/irbuilder capability surface. It mirrors
// the checker's evaluate/Accept double-dispatch idiom but never trusts
// cached node types — the checker never calls ast.Typed.SetType, so
// every expression's type is re-derived here, independently, against
// the same rules the checker already enforced.
package codegen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/takc-lang/tak/internal/ast"
	"github.com/takc-lang/tak/internal/diagnostics"
	"github.com/takc-lang/tak/internal/entity"
	"github.com/takc-lang/tak/internal/irbuilder"
	"github.com/takc-lang/tak/internal/types"
)

// WrappedValue is the evaluate/give payload: an IR value, its Tak
// type, and whether Value is a pointer that must be loaded before use
// in a value position (spec §4.7's "loadable" flag).
type WrappedValue struct {
	Value    string
	Type     types.TypeData
	Loadable bool
}

type unpackMode int

const (
	unpackRegular unpackMode = iota
	unpackUntilLoopBase
	unpackAll
)

type deferredCall struct {
	call     *ast.Call
	condSlot string // "" for an unconditional `defer`
	loopBase bool
}

type deferFrame struct {
	calls    []deferredCall
	loopBase bool
}

type loopContext struct {
	afterLabel string
	mergeLabel string
}

// Codegen holds C8's state for one compilation unit.
type Codegen struct {
	tab      *entity.Table
	reporter diagnostics.Reporter
	file     string

	module *irbuilder.Module
	fb     *irbuilder.FuncBuilder

	lastValue WrappedValue

	currentProc   *ast.ProcDecl
	deferStack    []*deferFrame
	loopStack     []loopContext
	returnAllocas map[string]string
	castingCtx    *types.TypeData

	deferIfCounter int
	indirectCalls  int

	structBodiesEmitted map[string]bool
	slotsByProc         map[*ast.ProcDecl]map[uint32]string

	unitID             string
	stringConstCounter int
}

// New constructs a Codegen whose module header names the given LLVM
// target triple (internal/pipeline passes an empty string; takc has no
// flag that selects a target). Each Codegen gets
// its own compilation-unit ID, stamped into the module header comment
// and folded into every private string-literal global's name so two
// separately compiled Tak files can be `llvm-link`ed together without
// colliding on `@str.const.N` symbols.
func New(tab *entity.Table, reporter diagnostics.Reporter, target string) *Codegen {
	module := irbuilder.NewModule(target)
	unitID := strings.ReplaceAll(uuid.New().String(), "-", "")
	module.SetUnitID(unitID)
	return &Codegen{
		tab:                 tab,
		reporter:            reporter,
		module:              module,
		returnAllocas:       make(map[string]string),
		structBodiesEmitted: make(map[string]bool),
		unitID:              unitID,
	}
}

// evaluate double-dispatches via Accept/Visit, mirroring the
// checker's idiom (internal/checker.Checker.evaluate), and returns the
// WrappedValue the visit method gave back via give.
func (c *Codegen) evaluate(n ast.Node) WrappedValue {
	if n == nil {
		return WrappedValue{}
	}
	c.lastValue = WrappedValue{}
	n.Accept(c)
	return c.lastValue
}

func (c *Codegen) give(wv WrappedValue) { c.lastValue = wv }

func (c *Codegen) errorAt(loc ast.Range, format string, args ...interface{}) {
	c.reporter.Report(diagnostics.Diagnostic{
		Category: diagnostics.Internal,
		Severity: diagnostics.SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Location: diagnostics.Range{
			Start: diagnostics.Position{File: loc.File, Line: loc.StartLine},
			End:   diagnostics.Position{File: loc.File, Line: loc.EndLine},
		},
	})
}

// ---- casting context (spec §4.7's single-slot, not-a-stack discipline) --

func (c *Codegen) setCastingContext(t *types.TypeData) { c.castingCtx = t }

// swapCastingContext installs a new context and returns the previous
// one, so callers can restore it after a nested evaluation (argument
// lists, assignment RHS, explicit casts).
func (c *Codegen) swapCastingContext(t *types.TypeData) *types.TypeData {
	prev := c.castingCtx
	c.castingCtx = t
	return prev
}

func (c *Codegen) deleteCastingContext() { c.castingCtx = nil }

// clearCastingContext is called after every statement and after every
// call argument (spec §4.7), so a stale context never leaks sideways.
func (c *Codegen) clearCastingContext() { c.castingCtx = nil }

// loadIfNeeded dereferences a loadable WrappedValue into a value.
func (c *Codegen) loadIfNeeded(wv WrappedValue) WrappedValue {
	if !wv.Loadable {
		return wv
	}
	irType := c.generateType(wv.Type)
	v := c.fb.Load(irType, wv.Value)
	return WrappedValue{Value: v, Type: types.ToRValue(wv.Type), Loadable: false}
}

// maybeAdjust loads a loadable value, then applies a casting-context
// coercion if one is pending (spec §4.7's maybe_adjust: "loads
// loadable values, applies casting-context coercions").
func (c *Codegen) maybeAdjust(wv WrappedValue) WrappedValue {
	wv = c.loadIfNeeded(wv)
	if c.castingCtx == nil {
		return wv
	}
	return c.coerce(wv, *c.castingCtx)
}

// coerce emits whatever conversion instruction gets wv.Value from its
// current type to target, per spec §4.7's coercion list: FP
// extend/truncate, signed/unsigned integer extend/truncate, int<->float,
// pointer<->integer, and opaque-pointer bit-casts. Identical types and
// identical-shape pointers pass through unchanged.
func (c *Codegen) coerce(wv WrappedValue, target types.TypeData) WrappedValue {
	if types.Identical(wv.Type, target) {
		return wv
	}
	fromIR := c.generateType(wv.Type)
	toIR := c.generateType(target)
	if fromIR == toIR {
		return WrappedValue{Value: wv.Value, Type: target}
	}

	fromPtr := wv.Type.Flags.Has(types.FlagPointer)
	toPtr := target.Flags.Has(types.FlagPointer)

	switch {
	case fromPtr && toPtr:
		// Both lower to opaque `ptr`; no instruction needed.
		return WrappedValue{Value: wv.Value, Type: target}
	case fromPtr && !toPtr:
		v := c.fb.Convert("ptrtoint", "ptr", wv.Value, toIR)
		return WrappedValue{Value: v, Type: target}
	case !fromPtr && toPtr:
		v := c.fb.Convert("inttoptr", fromIR, wv.Value, "ptr")
		return WrappedValue{Value: v, Type: target}
	}

	fromFloat := wv.Type.Kind == types.KindPrimitive && types.IsFloat(wv.Type.Primitive)
	toFloat := target.Kind == types.KindPrimitive && types.IsFloat(target.Primitive)

	switch {
	case fromFloat && toFloat:
		op := "fpext"
		if types.SizeBytes(target.Primitive) < types.SizeBytes(wv.Type.Primitive) {
			op = "fptrunc"
		}
		v := c.fb.Convert(op, fromIR, wv.Value, toIR)
		return WrappedValue{Value: v, Type: target}
	case fromFloat && !toFloat:
		op := "fptoui"
		if target.Kind == types.KindPrimitive && types.IsSigned(target.Primitive) {
			op = "fptosi"
		}
		v := c.fb.Convert(op, fromIR, wv.Value, toIR)
		return WrappedValue{Value: v, Type: target}
	case !fromFloat && toFloat:
		op := "uitofp"
		if wv.Type.Kind == types.KindPrimitive && types.IsSigned(wv.Type.Primitive) {
			op = "sitofp"
		}
		v := c.fb.Convert(op, fromIR, wv.Value, toIR)
		return WrappedValue{Value: v, Type: target}
	}

	fromSize := types.SizeBytes(wv.Type.Primitive)
	toSize := types.SizeBytes(target.Primitive)
	if toSize == fromSize {
		return WrappedValue{Value: wv.Value, Type: target}
	}
	if toSize < fromSize {
		v := c.fb.Convert("trunc", fromIR, wv.Value, toIR)
		return WrappedValue{Value: v, Type: target}
	}
	op := "zext"
	if types.IsSigned(wv.Type.Primitive) {
		op = "sext"
	}
	v := c.fb.Convert(op, fromIR, wv.Value, toIR)
	return WrappedValue{Value: v, Type: target}
}

// toI1Value converts an already-evaluated, already-loaded WrappedValue
// to an i1 truth value (pointers: non-null; floats: one 0.0; integers:
// ne 0), used by every branching construct's condition.
func (c *Codegen) toI1Value(wv WrappedValue) string {
	irType := c.generateType(wv.Type)
	switch {
	case wv.Type.Flags.Has(types.FlagPointer):
		return c.fb.ICmp("ne", "ptr", wv.Value, "null")
	case wv.Type.Kind == types.KindPrimitive && types.IsFloat(wv.Type.Primitive):
		return c.fb.FCmp("one", irType, wv.Value, "0.0")
	case irType == "i1":
		return wv.Value
	default:
		return c.fb.ICmp("ne", irType, wv.Value, "0")
	}
}

func (c *Codegen) toI1(n ast.Node) string {
	return c.toI1Value(c.loadIfNeeded(c.evaluate(n)))
}

// ---- defer frames (spec §4.7's unpack discipline) ------------------------

func (c *Codegen) pushDeferFrame(loopBase bool) {
	c.deferStack = append(c.deferStack, &deferFrame{loopBase: loopBase})
}

func (c *Codegen) popDeferFrame() {
	if len(c.deferStack) > 0 {
		c.deferStack = c.deferStack[:len(c.deferStack)-1]
	}
}

func (c *Codegen) recordDefer(call *ast.Call) {
	if len(c.deferStack) == 0 {
		return
	}
	top := c.deferStack[len(c.deferStack)-1]
	top.calls = append(top.calls, deferredCall{call: call})
}

// recordDeferIf captures cond eagerly into a hidden i1 slot at the
// defer_if statement's own point (matching defer's own eager-argument-
// evaluation discipline), and replays the guard at unpack time.
func (c *Codegen) recordDeferIf(cond ast.Node, call *ast.Call) {
	if len(c.deferStack) == 0 {
		return
	}
	condVal := c.toI1(cond)
	slot := c.fb.Alloca(fmt.Sprintf("deferif.%d", c.deferIfCounter), "i1")
	c.deferIfCounter++
	c.fb.Store("i1", condVal, slot)
	top := c.deferStack[len(c.deferStack)-1]
	top.calls = append(top.calls, deferredCall{call: call, condSlot: slot})
}

// unpack emits pending deferred calls, innermost frame first, each
// frame's calls in reverse registration order, per mode: REGULAR
// unpacks only the top frame; UNTIL_LOOP_BASE stops at and includes
// the nearest loop-base frame; ALL unpacks every frame up to the
// procedure root.
func (c *Codegen) unpack(mode unpackMode) {
	if mode == unpackRegular {
		if len(c.deferStack) > 0 {
			c.emitDeferCallsReverse(c.deferStack[len(c.deferStack)-1].calls)
		}
		return
	}
	for i := len(c.deferStack) - 1; i >= 0; i-- {
		frame := c.deferStack[i]
		c.emitDeferCallsReverse(frame.calls)
		if mode == unpackUntilLoopBase && frame.loopBase {
			return
		}
	}
}

func (c *Codegen) emitDeferCallsReverse(calls []deferredCall) {
	for i := len(calls) - 1; i >= 0; i-- {
		dc := calls[i]
		if dc.condSlot == "" {
			c.evaluate(dc.call)
			c.clearCastingContext()
			continue
		}
		flag := c.fb.Load("i1", dc.condSlot)
		thenLabel := c.module.NewLabel("deferif.then")
		afterLabel := c.module.NewLabel("deferif.after")
		c.fb.CondBr(flag, thenLabel, afterLabel)
		c.fb.CreateBlock(thenLabel)
		c.evaluate(dc.call)
		c.clearCastingContext()
		if !c.fb.HasTerminator() {
			c.fb.Br(afterLabel)
		}
		c.fb.CreateBlock(afterLabel)
	}
}

// ---- type lowering (spec §4.7's generate_type) ----------------------------

func sanitizeIRName(name string) string {
	return strings.NewReplacer(`\`, ".", "[", ".", "]", "", ",", ".", " ", "").Replace(name)
}

func (c *Codegen) primitiveIRType(p types.Primitive) string {
	switch p {
	case types.PrimitiveBool:
		return "i1"
	case types.PrimitiveU8, types.PrimitiveI8:
		return "i8"
	case types.PrimitiveU16, types.PrimitiveI16:
		return "i16"
	case types.PrimitiveU32, types.PrimitiveI32:
		return "i32"
	case types.PrimitiveU64, types.PrimitiveI64:
		return "i64"
	case types.PrimitiveF32:
		return "float"
	case types.PrimitiveF64:
		return "double"
	case types.PrimitiveVoid:
		return "void"
	default:
		return "i32"
	}
}

// generateType lowers a TypeData to an IR type string: pointer wraps
// always collapse to opaque `ptr`; array wraps apply outermost last
// (T[3][2] -> [2 x [3 x T]]); struct/procedure base kinds lower via
// generateBaseType.
func (c *Codegen) generateType(t types.TypeData) string {
	if t.Flags.Has(types.FlagPointer) {
		return "ptr"
	}
	if len(t.ArrayLengths) > 0 {
		contained, _ := types.GetLowestArrayType(t)
		base := c.generateBaseType(contained)
		for i := len(t.ArrayLengths) - 1; i >= 0; i-- {
			base = fmt.Sprintf("[%d x %s]", t.ArrayLengths[i], base)
		}
		return base
	}
	return c.generateBaseType(t)
}

func (c *Codegen) generateBaseType(t types.TypeData) string {
	switch t.Kind {
	case types.KindPrimitive:
		return c.primitiveIRType(t.Primitive)
	case types.KindStruct:
		name := sanitizeIRName(t.UserName)
		c.ensureStructBody(t.UserName, name)
		return "%" + name
	case types.KindProcedure:
		ret := "void"
		if t.ReturnType != nil {
			ret = c.generateType(*t.ReturnType)
		}
		var params []string
		for _, p := range t.Parameters {
			params = append(params, c.generateType(p))
		}
		paramList := strings.Join(params, ", ")
		if t.Flags.Has(types.FlagProcVarargs) {
			if paramList != "" {
				paramList += ", "
			}
			paramList += "..."
		}
		return fmt.Sprintf("%s (%s)", ret, paramList)
	default:
		return "i32"
	}
}

// ensureStructBody lazily defines a named struct type's body the first
// time it is referenced (spec §4.7's "named struct type, filled
// later"), so mutually-referential struct pointers never recurse.
func (c *Codegen) ensureStructBody(userName, irName string) {
	if c.structBodiesEmitted[userName] {
		return
	}
	c.structBodiesEmitted[userName] = true
	ut, ok := c.tab.LookupType(userName)
	if !ok {
		return
	}
	var fields []string
	for _, f := range ut.Fields {
		fields = append(fields, c.generateType(f.Type))
	}
	c.module.DefineStructBody(irName, fields)
}

// sizeOf returns a primitive's storage size in bytes; pointers and
// procedures are pointer-sized (8 on every target this emitter
// supports), structs sum their fields, arrays multiply by length.
func (c *Codegen) sizeOf(t types.TypeData) uint64 {
	if t.Flags.Has(types.FlagPointer) {
		return 8
	}
	if len(t.ArrayLengths) > 0 {
		contained, _ := types.GetLowestArrayType(t)
		total := c.sizeOf(contained)
		for _, n := range t.ArrayLengths {
			total *= uint64(n)
		}
		return total
	}
	switch t.Kind {
	case types.KindPrimitive:
		return uint64(types.SizeBytes(t.Primitive))
	case types.KindProcedure:
		return 8
	case types.KindStruct:
		ut, ok := c.tab.LookupType(t.UserName)
		if !ok {
			return 0
		}
		var total uint64
		for _, f := range ut.Fields {
			total += c.sizeOf(f.Type)
		}
		return total
	default:
		return 0
	}
}
