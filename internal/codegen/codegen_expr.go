package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/takc-lang/tak/internal/ast"
	"github.com/takc-lang/tak/internal/irbuilder"
	"github.com/takc-lang/tak/internal/lexer"
	"github.com/takc-lang/tak/internal/token"
	"github.com/takc-lang/tak/internal/types"
)

// literalTargetType resolves the type a bare numeric literal should
// take: the pending casting context if one is primitive, else the
// language defaults (i64 for int/hex, f64 for float, spec §4.7).
func (c *Codegen) literalTargetType(kind ast.LiteralKind) types.TypeData {
	if c.castingCtx != nil && c.castingCtx.Kind == types.KindPrimitive {
		return *c.castingCtx
	}
	switch kind {
	case ast.LitFloat:
		return types.GetConstDouble()
	default:
		return types.TypeData{Kind: types.KindPrimitive, NameKind: types.NameIsPrimitive, Primitive: types.PrimitiveI64, Flags: types.FlagConstant | types.FlagRValue}
	}
}

// nextStringConstName names a private string-literal global, folding
// in this compilation unit's ID so the name stays unique when this
// unit's IR is linked against another unit's (spec DOMAIN STACK:
// google/uuid wiring).
func (c *Codegen) nextStringConstName() string {
	c.stringConstCounter++
	return fmt.Sprintf("str.const.%s.%d", c.unitID, c.stringConstCounter)
}

// VisitLiteral lowers every literal kind (spec §4.7's literal rules):
// strings become a private constant byte array plus a pointer GEP;
// nullptr becomes a null pointer constant; numerics resolve their
// target type from the casting context (defaulting i64/f64) and are
// emitted as bare IR constant text (no instruction needed).
func (c *Codegen) VisitLiteral(n *ast.Literal) error {
	switch n.Kind {
	case ast.LitString:
		resolved, err := lexer.ResolveEscapes(n.Raw)
		if err != nil {
			c.errorAt(n.Location, "%v", err)
			c.give(WrappedValue{})
			return nil
		}
		bytes := append([]byte(resolved), 0)
		arrIR := fmt.Sprintf("[%d x i8]", len(bytes))
		name := c.nextStringConstName()
		c.module.DeclarePrivateConstant(name, arrIR, stringConstantLiteralText(bytes))
		ptr := c.fb.GEP(arrIR, "@"+name, []irbuilder.GEPIndex{{Type: "i32", Value: "0"}, {Type: "i32", Value: "0"}})
		strType := types.GetConstString()
		c.give(WrappedValue{Value: ptr, Type: strType})
		return nil
	case ast.LitNullptr:
		c.give(WrappedValue{Value: "null", Type: types.GetConstVoidPtr()})
		return nil
	case ast.LitChar:
		resolved, err := lexer.ResolveEscapes(n.Raw)
		var b byte
		if err == nil && len(resolved) > 0 {
			b = resolved[0]
		}
		c.give(WrappedValue{Value: fmt.Sprintf("%d", b), Type: types.TypeData{Kind: types.KindPrimitive, NameKind: types.NameIsPrimitive, Primitive: types.PrimitiveU8, Flags: types.FlagConstant | types.FlagRValue}})
		return nil
	case ast.LitBool:
		v := "0"
		if n.Raw == "true" {
			v = "1"
		}
		c.give(WrappedValue{Value: v, Type: types.GetConstBool()})
		return nil
	case ast.LitHex:
		target := c.literalTargetType(n.Kind)
		trimmed := strings.TrimPrefix(strings.TrimPrefix(n.Raw, "0x"), "0X")
		v, err := strconv.ParseUint(trimmed, 16, 64)
		if err != nil {
			c.errorAt(n.Location, "invalid hex literal '%s'", n.Raw)
			c.give(WrappedValue{})
			return nil
		}
		c.give(WrappedValue{Value: fmt.Sprintf("%d", v), Type: target})
		return nil
	case ast.LitFloat:
		target := c.literalTargetType(n.Kind)
		raw := n.Raw
		if !strings.ContainsAny(raw, ".eE") {
			raw += ".0"
		}
		c.give(WrappedValue{Value: raw, Type: target})
		return nil
	default: // ast.LitInt
		target := c.literalTargetType(n.Kind)
		c.give(WrappedValue{Value: n.Raw, Type: target})
		return nil
	}
}

func stringConstantLiteralText(bytes []byte) string {
	var b strings.Builder
	b.WriteByte('c')
	b.WriteByte('"')
	for _, by := range bytes {
		fmt.Fprintf(&b, "\\%02X", by)
	}
	b.WriteByte('"')
	return b.String()
}

// VisitIdentifier resolves a name to its local alloca slot or global
// symbol, seeding the casting context from the identifier's own type
// when none is pending and the type is primitive (spec §4.7).
func (c *Codegen) VisitIdentifier(n *ast.Identifier) error {
	sym, ok := c.tab.SymbolByIndex(n.SymbolIndex)
	if !ok {
		c.errorAt(n.Location, "unresolved identifier '%s'", n.Name)
		c.give(WrappedValue{})
		return nil
	}

	if c.castingCtx == nil && sym.Type.Kind == types.KindPrimitive {
		t := sym.Type
		c.setCastingContext(&t)
	}

	if sym.Type.Kind == types.KindProcedure && !sym.Type.Flags.Has(types.FlagPointer) {
		c.give(WrappedValue{Value: "@" + sym.CanonicalName, Type: sym.Type, Loadable: false})
		return nil
	}

	if slot, ok := c.findLocalSlot(sym.Index); ok {
		c.give(WrappedValue{Value: slot, Type: sym.Type, Loadable: true})
		return nil
	}

	c.give(WrappedValue{Value: "@" + sym.CanonicalName, Type: sym.Type, Loadable: true})
	return nil
}

func (c *Codegen) findLocalSlot(idx uint32) (string, bool) {
	if c.slotsByProc == nil || c.currentProc == nil {
		return "", false
	}
	m, ok := c.slotsByProc[c.currentProc]
	if !ok {
		return "", false
	}
	slot, ok := m[idx]
	return slot, ok
}

// VisitCall lowers a call expression: the callee is loaded through a
// pointer first if it is itself a procedure-pointer value (rather than
// a direct top-level procedure reference); each argument is primed
// with its parameter's type as the casting context; a return value is
// stashed in a per-callee named alloca (spec §4.7's `<fnname>.returnalloc`),
// reused across call sites to the same callee within a procedure.
func (c *Codegen) VisitCall(n *ast.Call) error {
	calleeWV := c.evaluate(n.Callee)
	c.clearCastingContext()
	calleeType := calleeWV.Type
	calleeIR := calleeWV.Value
	if calleeWV.Loadable {
		calleeIR = c.fb.Load("ptr", calleeWV.Value)
	}

	var retType types.TypeData
	hasReturn := false
	if calleeType.ReturnType != nil {
		retType = *calleeType.ReturnType
		hasReturn = !(retType.Kind == types.KindPrimitive && retType.Primitive == types.PrimitiveVoid && !retType.Flags.Has(types.FlagPointer))
	}
	retIR := "void"
	if hasReturn {
		retIR = c.generateType(retType)
	}

	var args []irbuilder.CallArg
	for i, argNode := range n.Args {
		var target *types.TypeData
		if i < len(calleeType.Parameters) {
			t := calleeType.Parameters[i]
			target = &t
		}
		prev := c.swapCastingContext(target)
		av := c.maybeAdjust(c.evaluate(argNode))
		c.castingCtx = prev
		c.clearCastingContext()
		args = append(args, irbuilder.CallArg{Type: c.generateType(av.Type), Value: av.Value})
	}

	result := c.fb.Call(retIR, calleeIR, args, calleeType.Flags.Has(types.FlagProcVarargs))

	if !hasReturn {
		c.give(WrappedValue{})
		return nil
	}

	key := calleeCacheKey(n.Callee, c)
	slot, ok := c.returnAllocas[key]
	if !ok {
		slot = c.fb.Alloca(key+".returnalloc", retIR)
		c.returnAllocas[key] = slot
	}
	c.fb.Store(retIR, result, slot)

	resultType := types.ToRValue(retType)
	c.give(WrappedValue{Value: slot, Type: resultType, Loadable: true})
	return nil
}

func calleeCacheKey(callee ast.Node, c *Codegen) string {
	if id, ok := callee.(*ast.Identifier); ok {
		return sanitizeIRName(id.Name)
	}
	c.indirectCalls++
	return fmt.Sprintf("indirect%d", c.indirectCalls)
}

// VisitBinExpr dispatches assignment, compound-assignment,
// short-circuit logical, pointer arithmetic, comparison and plain
// arithmetic/bitwise operators (spec §4.7).
func (c *Codegen) VisitBinExpr(n *ast.BinExpr) error {
	switch {
	case n.Op == token.ValueAssignment:
		c.emitAssignment(n)
		return nil
	case token.IsArithAssign(n.Op) || token.IsBWAssign(n.Op):
		c.emitCompoundAssign(n)
		return nil
	case n.Op == token.LogicalAnd || n.Op == token.LogicalOr:
		c.emitShortCircuit(n)
		return nil
	}

	lhs := c.maybeAdjust(c.evaluate(n.Left))
	target := lhs.Type
	prev := c.swapCastingContext(&target)
	rhs := c.maybeAdjust(c.evaluate(n.Right))
	c.castingCtx = prev

	if token.IsComparison(n.Op) {
		result := c.emitComparison(n.Op, lhs, rhs)
		c.give(WrappedValue{Value: result, Type: types.GetConstBool()})
		return nil
	}

	if lhs.Type.Flags.Has(types.FlagPointer) && token.IsValidPointerArith(n.Op) {
		result := c.emitPointerArith(n.Op, lhs, rhs)
		c.give(WrappedValue{Value: result, Type: types.ToRValue(lhs.Type)})
		return nil
	}

	irType := c.generateType(lhs.Type)
	op := irBinOp(n.Op, lhs.Type)
	result := c.fb.BinOp(op, irType, lhs.Value, rhs.Value)
	c.give(WrappedValue{Value: result, Type: types.ToRValue(lhs.Type)})
	return nil
}

// emitAssignment lowers `lhs = rhs`: a braced-initializer RHS into a
// struct/array whose LHS is an lvalue walks fields via GEP (reusing
// initAggregateLocal); otherwise the RHS is evaluated under the LHS's
// type as casting context and stored.
func (c *Codegen) emitAssignment(n *ast.BinExpr) {
	lhsWV := c.evaluate(n.Left)
	c.clearCastingContext()
	if !lhsWV.Loadable {
		c.errorAt(n.Location, "left-hand side of assignment is not assignable")
		c.give(WrappedValue{})
		return
	}

	if braced, ok := n.Right.(*ast.BracedExpr); ok && (types.IsStructValueType(lhsWV.Type) || len(lhsWV.Type.ArrayLengths) > 0) {
		baseIR := c.generateType(lhsWV.Type)
		c.initAggregateLocal(lhsWV.Value, baseIR, lhsWV.Type, braced, nil)
		c.give(WrappedValue{Value: lhsWV.Value, Type: types.ToRValue(lhsWV.Type), Loadable: true})
		return
	}

	target := lhsWV.Type
	prev := c.swapCastingContext(&target)
	rhs := c.maybeAdjust(c.evaluate(n.Right))
	c.castingCtx = prev
	irType := c.generateType(lhsWV.Type)
	c.fb.Store(irType, rhs.Value, lhsWV.Value)
	c.give(WrappedValue{Value: lhsWV.Value, Type: types.ToRValue(lhsWV.Type), Loadable: true})
}

// arithOpFromCompound maps a compound-assignment token to the plain
// binary operator it applies (`+=` -> `+`, etc).
func arithOpFromCompound(op token.Type) token.Type {
	switch op {
	case token.PlusEq:
		return token.Plus
	case token.MinusEq:
		return token.Minus
	case token.StarEq:
		return token.Star
	case token.SlashEq:
		return token.Slash
	case token.ModEq:
		return token.Mod
	case token.AndEq:
		return token.Amp
	case token.OrEq:
		return token.Pipe
	case token.XorEq:
		return token.Xor
	case token.LShiftEq:
		return token.LShift
	case token.RShiftEq:
		return token.RShift
	default:
		return token.Plus
	}
}

func (c *Codegen) emitCompoundAssign(n *ast.BinExpr) {
	lhsWV := c.evaluate(n.Left)
	c.clearCastingContext()
	if !lhsWV.Loadable {
		c.errorAt(n.Location, "left-hand side of compound assignment is not assignable")
		c.give(WrappedValue{})
		return
	}
	irType := c.generateType(lhsWV.Type)
	curVal := c.fb.Load(irType, lhsWV.Value)
	cur := WrappedValue{Value: curVal, Type: types.ToRValue(lhsWV.Type)}

	baseOp := arithOpFromCompound(n.Op)
	target := lhsWV.Type
	prev := c.swapCastingContext(&target)
	rhs := c.maybeAdjust(c.evaluate(n.Right))
	c.castingCtx = prev

	var result string
	if lhsWV.Type.Flags.Has(types.FlagPointer) {
		result = c.emitPointerArith(baseOp, cur, rhs)
	} else {
		op := irBinOp(baseOp, lhsWV.Type)
		result = c.fb.BinOp(op, irType, curVal, rhs.Value)
	}
	c.fb.Store(irType, result, lhsWV.Value)
	c.give(WrappedValue{Value: lhsWV.Value, Type: types.ToRValue(lhsWV.Type), Loadable: true})
}

// emitShortCircuit lowers `&&`/`||` as a diamond with a PHI merging
// the short-circuited boolean (spec §4.7).
func (c *Codegen) emitShortCircuit(n *ast.BinExpr) {
	lhsI1 := c.toI1(n.Left)
	startBlock := c.fb.CurrentBlock()

	rhsLabel := c.module.NewLabel("logic.rhs")
	mergeLabel := c.module.NewLabel("logic.merge")

	if n.Op == token.LogicalAnd {
		c.fb.CondBr(lhsI1, rhsLabel, mergeLabel)
	} else {
		c.fb.CondBr(lhsI1, mergeLabel, rhsLabel)
	}

	c.fb.CreateBlock(rhsLabel)
	rhsI1 := c.toI1(n.Right)
	rhsEndBlock := c.fb.CurrentBlock()
	c.fb.Br(mergeLabel)

	c.fb.CreateBlock(mergeLabel)
	result := c.fb.Phi("i1", []irbuilder.PhiIncoming{
		{Value: lhsI1, Block: startBlock},
		{Value: rhsI1, Block: rhsEndBlock},
	})
	c.give(WrappedValue{Value: result, Type: types.GetConstBool()})
}

func intPred(op token.Type, signed bool) string {
	switch op {
	case token.Eq:
		return "eq"
	case token.Neq:
		return "ne"
	case token.Lt:
		if signed {
			return "slt"
		}
		return "ult"
	case token.Lte:
		if signed {
			return "sle"
		}
		return "ule"
	case token.Gt:
		if signed {
			return "sgt"
		}
		return "ugt"
	case token.Gte:
		if signed {
			return "sge"
		}
		return "uge"
	default:
		return "eq"
	}
}

func floatPred(op token.Type) string {
	switch op {
	case token.Eq:
		return "oeq"
	case token.Neq:
		return "one"
	case token.Lt:
		return "olt"
	case token.Lte:
		return "ole"
	case token.Gt:
		return "ogt"
	case token.Gte:
		return "oge"
	default:
		return "oeq"
	}
}

func (c *Codegen) emitComparison(op token.Type, lhs, rhs WrappedValue) string {
	irType := c.generateType(lhs.Type)
	if lhs.Type.Flags.Has(types.FlagPointer) {
		return c.fb.ICmp(intPred(op, false), "ptr", lhs.Value, rhs.Value)
	}
	if lhs.Type.Kind == types.KindPrimitive && types.IsFloat(lhs.Type.Primitive) {
		return c.fb.FCmp(floatPred(op), irType, lhs.Value, rhs.Value)
	}
	signed := lhs.Type.Kind == types.KindPrimitive && types.IsSigned(lhs.Type.Primitive)
	return c.fb.ICmp(intPred(op, signed), irType, lhs.Value, rhs.Value)
}

// emitPointerArith lowers pointer +/- integer as a GEP over the
// pointee type, always normalizing the index operand to i64 first.
func (c *Codegen) emitPointerArith(op token.Type, lhs, rhs WrappedValue) string {
	elemType, ok := types.GetContained(lhs.Type)
	elemIR := "i8"
	if ok {
		elemIR = c.generateType(elemType)
	}

	idxIR := c.generateType(rhs.Type)
	idxVal := rhs.Value
	if idxIR != "i64" {
		signed := rhs.Type.Kind == types.KindPrimitive && types.IsSigned(rhs.Type.Primitive)
		convOp := "zext"
		if signed {
			convOp = "sext"
		}
		idxVal = c.fb.Convert(convOp, idxIR, idxVal, "i64")
	}
	if op == token.Minus {
		idxVal = c.fb.BinOp("sub", "i64", "0", idxVal)
	}
	return c.fb.GEP(elemIR, lhs.Value, []irbuilder.GEPIndex{{Type: "i64", Value: idxVal}})
}

// irBinOp maps a binary-operator token to its IR arithmetic/bitwise
// mnemonic for a given operand type.
func irBinOp(op token.Type, t types.TypeData) string {
	isFloat := t.Kind == types.KindPrimitive && types.IsFloat(t.Primitive)
	signed := t.Kind == types.KindPrimitive && types.IsSigned(t.Primitive)
	switch op {
	case token.Plus:
		if isFloat {
			return "fadd"
		}
		return "add"
	case token.Minus:
		if isFloat {
			return "fsub"
		}
		return "sub"
	case token.Star:
		if isFloat {
			return "fmul"
		}
		return "mul"
	case token.Slash:
		if isFloat {
			return "fdiv"
		}
		if signed {
			return "sdiv"
		}
		return "udiv"
	case token.Mod:
		if isFloat {
			return "frem"
		}
		if signed {
			return "srem"
		}
		return "urem"
	case token.Amp:
		return "and"
	case token.Pipe:
		return "or"
	case token.Xor:
		return "xor"
	case token.LShift:
		return "shl"
	case token.RShift:
		if signed {
			return "ashr"
		}
		return "lshr"
	default:
		return "add"
	}
}

// VisitUnaryExpr lowers address-of, dereference, pre/post
// increment/decrement, unary +/-, bitwise-not and logical-not.
func (c *Codegen) VisitUnaryExpr(n *ast.UnaryExpr) error {
	switch n.Op {
	case token.Amp:
		operandWV := c.evaluate(n.Operand)
		c.clearCastingContext()
		if !operandWV.Loadable {
			c.errorAt(n.Location, "cannot take the address of a non-lvalue")
			c.give(WrappedValue{})
			return nil
		}
		ptrType, _ := types.GetPointerTo(types.ToLValue(operandWV.Type))
		c.give(WrappedValue{Value: operandWV.Value, Type: ptrType})
		return nil

	case token.Caret:
		operandWV := c.maybeAdjust(c.evaluate(n.Operand))
		contained, ok := types.GetContained(operandWV.Type)
		if !ok {
			c.errorAt(n.Location, "cannot dereference this type")
			c.give(WrappedValue{})
			return nil
		}
		c.give(WrappedValue{Value: operandWV.Value, Type: contained, Loadable: true})
		return nil

	case token.Increment, token.Decrement:
		operandWV := c.evaluate(n.Operand)
		c.clearCastingContext()
		if !operandWV.Loadable {
			c.errorAt(n.Location, "operand of '++'/'--' is not assignable")
			c.give(WrappedValue{})
			return nil
		}
		irType := c.generateType(operandWV.Type)
		cur := c.fb.Load(irType, operandWV.Value)
		var next string
		switch {
		case operandWV.Type.Flags.Has(types.FlagPointer):
			elemType, _ := types.GetContained(operandWV.Type)
			elemIR := c.generateType(elemType)
			delta := "1"
			if n.Op == token.Decrement {
				delta = "-1"
			}
			next = c.fb.GEP(elemIR, cur, []irbuilder.GEPIndex{{Type: "i64", Value: delta}})
		case operandWV.Type.Kind == types.KindPrimitive && types.IsFloat(operandWV.Type.Primitive):
			op := "fadd"
			if n.Op == token.Decrement {
				op = "fsub"
			}
			next = c.fb.BinOp(op, irType, cur, "1.0")
		default:
			op := "add"
			if n.Op == token.Decrement {
				op = "sub"
			}
			next = c.fb.BinOp(op, irType, cur, "1")
		}
		c.fb.Store(irType, next, operandWV.Value)
		if n.Postfix {
			c.give(WrappedValue{Value: cur, Type: types.ToRValue(operandWV.Type)})
		} else {
			c.give(WrappedValue{Value: next, Type: types.ToRValue(operandWV.Type)})
		}
		return nil
	}

	operandWV := c.maybeAdjust(c.evaluate(n.Operand))
	irType := c.generateType(operandWV.Type)
	switch n.Op {
	case token.Plus:
		c.give(operandWV)
	case token.Minus:
		isFloat := operandWV.Type.Kind == types.KindPrimitive && types.IsFloat(operandWV.Type.Primitive)
		var result string
		if isFloat {
			result = c.fb.BinOp("fsub", irType, "0.0", operandWV.Value)
		} else {
			result = c.fb.BinOp("sub", irType, "0", operandWV.Value)
		}
		c.give(WrappedValue{Value: result, Type: types.ToRValue(operandWV.Type)})
	case token.Tilde:
		result := c.fb.BinOp("xor", irType, operandWV.Value, "-1")
		c.give(WrappedValue{Value: result, Type: types.ToRValue(operandWV.Type)})
	case token.LogicalNot:
		i1 := c.toI1Value(operandWV)
		result := c.fb.BinOp("xor", "i1", i1, "1")
		c.give(WrappedValue{Value: result, Type: types.GetConstBool()})
	default:
		c.give(WrappedValue{})
	}
	return nil
}

// VisitSubscript lowers `target[index]`: `[0, idx]` for an array
// lvalue, `[idx]` for a pointer (spec §4.7).
func (c *Codegen) VisitSubscript(n *ast.Subscript) error {
	targetWV := c.evaluate(n.Target)
	c.clearCastingContext()
	idxWV := c.loadIfNeeded(c.evaluate(n.Index))
	c.clearCastingContext()

	idxIR := c.generateType(idxWV.Type)
	idxVal := idxWV.Value
	if idxIR != "i32" {
		if idxIR == "i64" {
			idxVal = c.fb.Convert("trunc", "i64", idxVal, "i32")
		} else if idxIR == "i16" || idxIR == "i8" {
			signed := idxWV.Type.Kind == types.KindPrimitive && types.IsSigned(idxWV.Type.Primitive)
			op := "zext"
			if signed {
				op = "sext"
			}
			idxVal = c.fb.Convert(op, idxIR, idxVal, "i32")
		}
	}

	if len(targetWV.Type.ArrayLengths) > 0 {
		elemType, ok := types.GetContained(targetWV.Type)
		if !ok {
			c.give(WrappedValue{})
			return nil
		}
		baseIR := c.generateType(targetWV.Type)
		ptr := c.fb.GEP(baseIR, targetWV.Value, []irbuilder.GEPIndex{{Type: "i32", Value: "0"}, {Type: "i32", Value: idxVal}})
		c.give(WrappedValue{Value: ptr, Type: elemType, Loadable: true})
		return nil
	}

	ptrWV := c.loadIfNeeded(targetWV)
	elemType, ok := types.GetContained(ptrWV.Type)
	if !ok {
		c.give(WrappedValue{})
		return nil
	}
	elemIR := c.generateType(elemType)
	ptr := c.fb.GEP(elemIR, ptrWV.Value, []irbuilder.GEPIndex{{Type: "i32", Value: idxVal}})
	c.give(WrappedValue{Value: ptr, Type: elemType, Loadable: true})
	return nil
}

// VisitMemberAccess walks a dotted member path, accumulating struct-
// field GEP indices and restarting the walk whenever it crosses a
// pointer field boundary (load-and-restart, spec §4.7).
func (c *Codegen) VisitMemberAccess(n *ast.MemberAccess) error {
	targetWV := c.evaluate(n.Target)
	c.clearCastingContext()

	curType := targetWV.Type
	basePtr := targetWV.Value
	if curType.Flags.Has(types.FlagPointer) {
		loaded := c.loadIfNeeded(targetWV)
		basePtr = loaded.Value
		curType, _ = types.GetContained(curType)
	}
	baseIR := c.generateType(curType)

	var indices []irbuilder.GEPIndex
	for _, member := range n.Path {
		ut, ok := c.tab.LookupType(curType.UserName)
		if !ok {
			c.errorAt(n.Location, "unknown struct type '%s'", curType.UserName)
			c.give(WrappedValue{})
			return nil
		}
		fieldIdx := -1
		var field struct {
			Name string
			Type types.TypeData
		}
		for i, f := range ut.Fields {
			if f.Name == member {
				fieldIdx = i
				field.Name, field.Type = f.Name, f.Type
				break
			}
		}
		if fieldIdx < 0 {
			c.errorAt(n.Location, "no member '%s' on '%s'", member, curType.UserName)
			c.give(WrappedValue{})
			return nil
		}
		indices = append(indices, irbuilder.GEPIndex{Type: "i32", Value: fmt.Sprintf("%d", fieldIdx)})

		if field.Type.Flags.Has(types.FlagPointer) {
			full := append([]irbuilder.GEPIndex{{Type: "i32", Value: "0"}}, indices...)
			ptr := c.fb.GEP(baseIR, basePtr, full)
			fieldIR := c.generateType(field.Type)
			basePtr = c.fb.Load(fieldIR, ptr)
			curType, _ = types.GetContained(field.Type)
			baseIR = c.generateType(curType)
			indices = nil
		} else {
			curType = field.Type
		}
	}

	full := append([]irbuilder.GEPIndex{{Type: "i32", Value: "0"}}, indices...)
	ptr := c.fb.GEP(baseIR, basePtr, full)
	c.give(WrappedValue{Value: ptr, Type: curType, Loadable: true})
	return nil
}

// VisitCast lowers an explicit cast via the same coercion machinery
// used for implicit conversions (casts are a strict superset, spec
// §4.2's IsCastPermissible), with the casting context suppressed while
// evaluating the operand since the cast target is already explicit.
func (c *Codegen) VisitCast(n *ast.Cast) error {
	prev := c.swapCastingContext(nil)
	valWV := c.loadIfNeeded(c.evaluate(n.Value))
	c.castingCtx = prev
	result := c.coerce(valWV, n.Target)
	c.give(WrappedValue{Value: result.Value, Type: types.ToRValue(n.Target)})
	return nil
}

// VisitSizeof always yields a constant i32 (spec §4.6/§4.7).
func (c *Codegen) VisitSizeof(n *ast.Sizeof) error {
	var sz uint64
	if n.TypeOperand != nil {
		sz = c.sizeOf(*n.TypeOperand)
	} else if n.ExprOperand != nil {
		wv := c.evaluate(n.ExprOperand)
		c.clearCastingContext()
		sz = c.sizeOf(wv.Type)
	}
	c.give(WrappedValue{Value: fmt.Sprintf("%d", sz), Type: types.GetConstInt32()})
	return nil
}

// VisitBracedExpr is only reached when a brace-initializer appears
// somewhere other than a var-decl initializer or an assignment RHS
// (both of those special-case it directly); evaluated standalone it
// has no meaningful runtime value of its own.
func (c *Codegen) VisitBracedExpr(n *ast.BracedExpr) error {
	for _, el := range n.Elements {
		c.evaluate(el)
		c.clearCastingContext()
	}
	c.give(WrappedValue{})
	return nil
}
