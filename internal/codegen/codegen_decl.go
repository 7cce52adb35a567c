package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/takc-lang/tak/internal/ast"
	"github.com/takc-lang/tak/internal/irbuilder"
	"github.com/takc-lang/tak/internal/lexer"
	"github.com/takc-lang/tak/internal/types"
)

// Generate is C8's entry point: it walks the toplevel-declarations
// list once to collect every procedure/variable/struct (flattening
// namespaces, spec §4.7 step 1), emits the module prologue, then one
// function body per procedure with a Block, and returns the finished
// IR text.
func (c *Codegen) Generate(file string, toplevel []ast.Node) string {
	c.file = file

	var procs []*ast.ProcDecl
	var globals []*ast.VarDecl
	c.collect(toplevel, &procs, &globals)

	for _, pd := range procs {
		sym, ok := c.tab.SymbolByIndex(pd.SymbolIndex)
		if !ok {
			continue
		}
		linkage := "external"
		if pd.Internal {
			linkage = "internal"
		}
		if pd.Body == nil {
			retIR := "void"
			if sym.Type.ReturnType != nil {
				retIR = c.generateType(*sym.Type.ReturnType)
			}
			var paramTypes []string
			for _, p := range sym.Type.Parameters {
				paramTypes = append(paramTypes, c.generateType(p))
			}
			c.module.DeclareFunction(linkage, retIR, sym.CanonicalName, paramTypes, sym.Type.Flags.Has(types.FlagProcVarargs))
		}
	}

	for _, vd := range globals {
		c.emitGlobal(vd)
	}

	for _, pd := range procs {
		if pd.Body != nil {
			c.emitProcBody(pd)
		}
	}

	return c.module.String()
}

// collect recurses into NamespaceDecl.Children (namespaces are purely
// a naming device over a flat toplevel list, spec §4.4), splitting
// toplevel declarations into procedures and globals; struct/enum/alias
// declarations need no codegen action of their own since struct bodies
// are emitted lazily (ensureStructBody) and enums desugar entirely at
// parse time into constant symbols.
func (c *Codegen) collect(nodes []ast.Node, procs *[]*ast.ProcDecl, globals *[]*ast.VarDecl) {
	for _, n := range nodes {
		switch d := n.(type) {
		case *ast.NamespaceDecl:
			c.collect(d.Children, procs, globals)
		case *ast.ProcDecl:
			if len(d.Generics) == 0 {
				*procs = append(*procs, d)
			}
		case *ast.VarDecl:
			*globals = append(*globals, d)
		}
	}
}

func (c *Codegen) emitGlobal(vd *ast.VarDecl) {
	sym, ok := c.tab.SymbolByIndex(vd.SymbolIndex)
	if !ok {
		return
	}
	irType := c.generateType(sym.Type)
	linkage := "external"
	if vd.Internal {
		linkage = "internal"
	}
	init := "zeroinitializer"
	if vd.Init != nil {
		if text, ok := c.foldConstantInit(vd.Init, sym.Type); ok {
			init = text
		} else {
			c.errorAt(vd.Location, "global initializer for '%s' must be a compile-time constant", sym.CanonicalName)
		}
	}
	c.module.DeclareGlobal(sym.CanonicalName, linkage, irType, init)
}

// foldLiteralText renders a literal node's value as an IR constant
// literal, coerced to target's family (int/float/bool/pointer).
func (c *Codegen) foldLiteralText(node ast.Node, target types.TypeData) (string, bool) {
	lit, ok := node.(*ast.Literal)
	if !ok {
		return "", false
	}
	switch lit.Kind {
	case ast.LitInt:
		return lit.Raw, true
	case ast.LitHex:
		trimmed := strings.TrimPrefix(strings.TrimPrefix(lit.Raw, "0x"), "0X")
		v, err := strconv.ParseUint(trimmed, 16, 64)
		if err != nil {
			return "", false
		}
		return fmt.Sprintf("%d", v), true
	case ast.LitFloat:
		raw := lit.Raw
		if !strings.ContainsAny(raw, ".eE") {
			raw += ".0"
		}
		return raw, true
	case ast.LitBool:
		if lit.Raw == "true" {
			return "1", true
		}
		return "0", true
	case ast.LitChar:
		resolved, err := lexer.ResolveEscapes(lit.Raw)
		if err != nil || len(resolved) == 0 {
			return "0", true
		}
		return fmt.Sprintf("%d", resolved[0]), true
	case ast.LitNullptr:
		return "null", true
	case ast.LitString:
		return "", false
	}
	return "", false
}

// foldConstantInit recursively folds a global initializer: scalar
// literals via foldLiteralText, and braced struct/array initializers
// into nested LLVM aggregate-constant syntax.
func (c *Codegen) foldConstantInit(node ast.Node, target types.TypeData) (string, bool) {
	if braced, ok := node.(*ast.BracedExpr); ok {
		if types.IsStructValueType(target) {
			ut, ok := c.tab.LookupType(target.UserName)
			if !ok {
				return "", false
			}
			var parts []string
			for i, el := range braced.Elements {
				if i >= len(ut.Fields) {
					break
				}
				f := ut.Fields[i]
				txt, ok := c.foldConstantInit(el, f.Type)
				if !ok {
					return "", false
				}
				parts = append(parts, fmt.Sprintf("%s %s", c.generateType(f.Type), txt))
			}
			return "{ " + strings.Join(parts, ", ") + " }", true
		}
		if len(target.ArrayLengths) > 0 {
			elemType, ok := types.GetContained(target)
			if !ok {
				return "", false
			}
			elemIR := c.generateType(elemType)
			var parts []string
			for _, el := range braced.Elements {
				txt, ok := c.foldConstantInit(el, elemType)
				if !ok {
					return "", false
				}
				parts = append(parts, fmt.Sprintf("%s %s", elemIR, txt))
			}
			return "[ " + strings.Join(parts, ", ") + " ]", true
		}
		return "", false
	}
	return c.foldLiteralText(node, target)
}

// emitProcBody opens the function, emits the entry block (per-param
// alloca+store), a base defer frame, the body statements, and a
// default return if the body falls off the end unterminated (spec
// §4.7 step 4's four-step procedure-body discipline).
func (c *Codegen) emitProcBody(pd *ast.ProcDecl) {
	sym, ok := c.tab.SymbolByIndex(pd.SymbolIndex)
	if !ok {
		return
	}
	retIR := "void"
	if sym.Type.ReturnType != nil {
		retIR = c.generateType(*sym.Type.ReturnType)
	}
	linkage := "external"
	if pd.Internal {
		linkage = "internal"
	}

	var params []irbuilder.Param
	for _, p := range pd.Params {
		params = append(params, irbuilder.Param{Name: sanitizeIRName(p.Name) + ".arg", Type: c.generateType(p.Type)})
	}

	prevProc, prevFB, prevAllocas := c.currentProc, c.fb, c.returnAllocas
	c.currentProc = pd
	c.fb = c.module.BeginFunction(linkage, retIR, sym.CanonicalName, params, sym.Type.Flags.Has(types.FlagProcVarargs))
	c.returnAllocas = make(map[string]string)

	c.fb.CreateBlock(c.module.NewLabel("entry"))
	c.pushDeferFrame(false)

	for i, p := range pd.Params {
		psym, ok := c.tab.SymbolByIndex(p.SymbolIndex)
		if !ok {
			continue
		}
		irType := c.generateType(p.Type)
		slot := c.fb.Alloca(sanitizeIRName(p.Name), irType)
		c.fb.Store(irType, "%"+params[i].Name, slot)
		c.localSlots()[psym.Index] = slot
	}

	if pd.Body != nil {
		for _, child := range pd.Body.Children {
			c.evaluate(child)
			c.clearCastingContext()
		}
	}

	if !c.fb.HasTerminator() {
		c.unpack(unpackAll)
		c.emitDefaultReturn(retIR)
	}
	c.popDeferFrame()
	c.fb.End()

	c.fb = prevFB
	c.currentProc = prevProc
	c.returnAllocas = prevAllocas
	delete(c.slotsByProc, pd)
}

func (c *Codegen) emitDefaultReturn(retIR string) {
	if retIR == "void" {
		c.fb.RetVoid()
		return
	}
	zero := "0"
	switch retIR {
	case "float", "double":
		zero = "0.0"
	case "ptr":
		zero = "null"
	}
	c.fb.Ret(retIR, zero)
}

// localSlots returns the alloca-slot map for the procedure currently
// being emitted, created lazily per procedure.
func (c *Codegen) localSlots() map[uint32]string {
	if c.slotsByProc == nil {
		c.slotsByProc = make(map[*ast.ProcDecl]map[uint32]string)
	}
	m, ok := c.slotsByProc[c.currentProc]
	if !ok {
		m = make(map[uint32]string)
		c.slotsByProc[c.currentProc] = m
	}
	return m
}

// ---- local declarations ---------------------------------------------------

// VisitVarDecl emits a local variable: an alloca at the current insert
// point (it is not hoisted into the entry block), its initializer if
// present, and registers the slot by symbol index so Identifier
// lookups resolve it.
func (c *Codegen) VisitVarDecl(n *ast.VarDecl) error {
	sym, ok := c.tab.SymbolByIndex(n.SymbolIndex)
	if !ok {
		c.give(WrappedValue{})
		return nil
	}
	irType := c.generateType(sym.Type)
	slot := c.fb.Alloca(sanitizeIRName(sym.CanonicalName), irType)
	c.localSlots()[sym.Index] = slot

	if n.Init != nil {
		if braced, ok := n.Init.(*ast.BracedExpr); ok && (types.IsStructValueType(sym.Type) || len(sym.Type.ArrayLengths) > 0) {
			var indices []irbuilder.GEPIndex
			c.initAggregateLocal(slot, irType, sym.Type, braced, indices)
		} else {
			target := sym.Type
			prev := c.swapCastingContext(&target)
			val := c.maybeAdjust(c.evaluate(n.Init))
			c.castingCtx = prev
			c.fb.Store(irType, val.Value, slot)
		}
	}

	c.give(WrappedValue{Value: slot, Type: types.ToRValue(sym.Type), Loadable: true})
	return nil
}

// initAggregateLocal walks a braced initializer's elements, emitting a
// field/index GEP per element (spec §4.7's "GEP-indices-stack walk
// starting [0]") and either recursing into nested braces or storing a
// scalar leaf.
func (c *Codegen) initAggregateLocal(base, baseIR string, t types.TypeData, braced *ast.BracedExpr, indices []irbuilder.GEPIndex) {
	full := append([]irbuilder.GEPIndex{{Type: "i32", Value: "0"}}, indices...)

	if types.IsStructValueType(t) {
		ut, ok := c.tab.LookupType(t.UserName)
		if !ok {
			return
		}
		for i, el := range braced.Elements {
			if i >= len(ut.Fields) {
				break
			}
			field := ut.Fields[i]
			fieldIndices := append(append([]irbuilder.GEPIndex{}, indices...), irbuilder.GEPIndex{Type: "i32", Value: fmt.Sprintf("%d", i)})
			c.storeLeaf(base, baseIR, field.Type, el, fieldIndices)
		}
		return
	}

	if len(t.ArrayLengths) > 0 {
		elemType, ok := types.GetContained(t)
		if !ok {
			return
		}
		for i, el := range braced.Elements {
			elIndices := append(append([]irbuilder.GEPIndex{}, indices...), irbuilder.GEPIndex{Type: "i32", Value: fmt.Sprintf("%d", i)})
			c.storeLeaf(base, baseIR, elemType, el, elIndices)
		}
		return
	}

	_ = full
}

func (c *Codegen) storeLeaf(base, baseIR string, leafType types.TypeData, el ast.Node, indices []irbuilder.GEPIndex) {
	if nested, ok := el.(*ast.BracedExpr); ok {
		c.initAggregateLocal(base, baseIR, leafType, nested, indices)
		return
	}
	full := append([]irbuilder.GEPIndex{{Type: "i32", Value: "0"}}, indices...)
	ptr := c.fb.GEP(baseIR, base, full)
	irType := c.generateType(leafType)
	target := leafType
	prev := c.swapCastingContext(&target)
	val := c.maybeAdjust(c.evaluate(el))
	c.castingCtx = prev
	c.fb.Store(irType, val.Value, ptr)
}

// ---- declaration/namespace nodes never separately emitted -----------------

func (c *Codegen) VisitNamespaceDecl(n *ast.NamespaceDecl) error {
	for _, child := range n.Children {
		c.evaluate(child)
	}
	c.give(WrappedValue{})
	return nil
}

func (c *Codegen) VisitProcDecl(n *ast.ProcDecl) error {
	c.give(WrappedValue{})
	return nil
}

func (c *Codegen) VisitTypeAlias(n *ast.TypeAlias) error {
	c.give(WrappedValue{})
	return nil
}

func (c *Codegen) VisitStructDef(n *ast.StructDef) error {
	c.give(WrappedValue{})
	return nil
}

func (c *Codegen) VisitEnumDef(n *ast.EnumDef) error {
	c.give(WrappedValue{})
	return nil
}

func (c *Codegen) VisitIncludeStmt(n *ast.IncludeStmt) error {
	c.give(WrappedValue{})
	return nil
}
