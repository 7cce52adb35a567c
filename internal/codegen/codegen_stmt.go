package codegen

import (
	"github.com/takc-lang/tak/internal/ast"
	"github.com/takc-lang/tak/internal/diagnostics"
	"github.com/takc-lang/tak/internal/irbuilder"
	"github.com/takc-lang/tak/internal/types"
)

func (c *Codegen) VisitBlock(n *ast.Block) error {
	for _, child := range n.Children {
		c.evaluate(child)
		c.clearCastingContext()
	}
	c.give(WrappedValue{})
	return nil
}

// VisitBranch lowers if/else into a then/else/merge diamond, each arm
// under its own (non-loop-base) defer frame, branching to merge only
// when the arm itself doesn't already terminate (spec §4.7's if/else
// lowering).
func (c *Codegen) VisitBranch(n *ast.Branch) error {
	condVal := c.toI1(n.If.Cond)
	mergeLabel := c.module.NewLabel("if.merge")
	thenLabel := c.module.NewLabel("if.then")

	if n.Else != nil {
		elseLabel := c.module.NewLabel("if.else")
		c.fb.CondBr(condVal, thenLabel, elseLabel)

		c.fb.CreateBlock(thenLabel)
		c.pushDeferFrame(false)
		c.evaluate(n.If.Body)
		c.clearCastingContext()
		if !c.fb.HasTerminator() {
			c.unpack(unpackRegular)
			c.fb.Br(mergeLabel)
		}
		c.popDeferFrame()

		c.fb.CreateBlock(elseLabel)
		c.pushDeferFrame(false)
		c.evaluate(n.Else)
		c.clearCastingContext()
		if !c.fb.HasTerminator() {
			c.unpack(unpackRegular)
			c.fb.Br(mergeLabel)
		}
		c.popDeferFrame()
	} else {
		c.fb.CondBr(condVal, thenLabel, mergeLabel)

		c.fb.CreateBlock(thenLabel)
		c.pushDeferFrame(false)
		c.evaluate(n.If.Body)
		c.clearCastingContext()
		if !c.fb.HasTerminator() {
			c.unpack(unpackRegular)
			c.fb.Br(mergeLabel)
		}
		c.popDeferFrame()
	}

	c.fb.CreateBlock(mergeLabel)
	c.give(WrappedValue{})
	return nil
}

// VisitWhile lowers cond/body/merge, pushing exactly one loop-base
// defer frame for the whole construct (spec §4.7's "a single
// loop-base-marked defer frame per loop construct").
func (c *Codegen) VisitWhile(n *ast.While) error {
	condLabel := c.module.NewLabel("while.cond")
	bodyLabel := c.module.NewLabel("while.body")
	afterLabel := c.module.NewLabel("while.after")

	c.fb.Br(condLabel)
	c.fb.CreateBlock(condLabel)
	condVal := c.toI1(n.Cond)
	c.fb.CondBr(condVal, bodyLabel, afterLabel)

	c.fb.CreateBlock(bodyLabel)
	c.pushDeferFrame(true)
	c.loopStack = append(c.loopStack, loopContext{afterLabel: condLabel, mergeLabel: afterLabel})
	c.evaluate(n.Body)
	c.clearCastingContext()
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	if !c.fb.HasTerminator() {
		c.unpack(unpackUntilLoopBase)
		c.fb.Br(condLabel)
	}
	c.popDeferFrame()

	c.fb.CreateBlock(afterLabel)
	c.give(WrappedValue{})
	return nil
}

// VisitDoWhile lowers body/cond/merge: the body always runs once
// before the condition is tested.
func (c *Codegen) VisitDoWhile(n *ast.DoWhile) error {
	bodyLabel := c.module.NewLabel("dowhile.body")
	condLabel := c.module.NewLabel("dowhile.cond")
	afterLabel := c.module.NewLabel("dowhile.after")

	c.fb.Br(bodyLabel)
	c.fb.CreateBlock(bodyLabel)
	c.pushDeferFrame(true)
	c.loopStack = append(c.loopStack, loopContext{afterLabel: condLabel, mergeLabel: afterLabel})
	c.evaluate(n.Body)
	c.clearCastingContext()
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	if !c.fb.HasTerminator() {
		c.unpack(unpackUntilLoopBase)
		c.fb.Br(condLabel)
	}
	c.popDeferFrame()

	c.fb.CreateBlock(condLabel)
	condVal := c.toI1(n.Cond)
	c.fb.CondBr(condVal, bodyLabel, afterLabel)

	c.fb.CreateBlock(afterLabel)
	c.give(WrappedValue{})
	return nil
}

// VisitFor lowers init/cond/body/update/merge. init and update run
// outside the loop-base defer frame (init once before the loop, update
// once per iteration after the body's own frame has already unpacked),
// matching a C-style for loop's scoping.
func (c *Codegen) VisitFor(n *ast.For) error {
	if n.Init != nil {
		c.evaluate(n.Init)
		c.clearCastingContext()
	}

	condLabel := c.module.NewLabel("for.cond")
	bodyLabel := c.module.NewLabel("for.body")
	updateLabel := c.module.NewLabel("for.update")
	afterLabel := c.module.NewLabel("for.after")

	c.fb.Br(condLabel)
	c.fb.CreateBlock(condLabel)
	if n.Cond != nil {
		condVal := c.toI1(n.Cond)
		c.fb.CondBr(condVal, bodyLabel, afterLabel)
	} else {
		c.fb.Br(bodyLabel)
	}

	c.fb.CreateBlock(bodyLabel)
	c.pushDeferFrame(true)
	c.loopStack = append(c.loopStack, loopContext{afterLabel: updateLabel, mergeLabel: afterLabel})
	c.evaluate(n.Body)
	c.clearCastingContext()
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	if !c.fb.HasTerminator() {
		c.unpack(unpackUntilLoopBase)
		c.fb.Br(updateLabel)
	}
	c.popDeferFrame()

	c.fb.CreateBlock(updateLabel)
	if n.Update != nil {
		c.evaluate(n.Update)
		c.clearCastingContext()
	}
	c.fb.Br(condLabel)

	c.fb.CreateBlock(afterLabel)
	c.give(WrappedValue{})
	return nil
}

// VisitSwitch lowers a switch as an LLVM switch terminator, one block
// per case and a merge block after (resolved Open Question: switch IS
// lowered). Each case body runs under its own (non-loop-base) defer
// frame, unpacked before the case branches to the merge block or falls
// through to the next case.
func (c *Codegen) VisitSwitch(n *ast.Switch) error {
	targetWV := c.loadIfNeeded(c.evaluate(n.Target))
	targetIR := c.generateType(targetWV.Type)

	mergeLabel := c.module.NewLabel("switch.merge")
	bodyLabels := make([]string, len(n.Cases))
	for i := range n.Cases {
		bodyLabels[i] = c.module.NewLabel("case")
	}

	var cases []irbuilder.SwitchCase
	defaultLabel := mergeLabel
	for i, cs := range n.Cases {
		if cs.IsDefault {
			defaultLabel = bodyLabels[i]
			continue
		}
		text, ok := c.foldLiteralText(cs.Value, targetWV.Type)
		if !ok {
			c.reporter.Report(diagnostics.Diagnostic{
				Category: diagnostics.TypeError,
				Severity: diagnostics.SeverityError,
				Message:  "switch case value must be a compile-time constant",
			})
			text = "0"
		}
		cases = append(cases, irbuilder.SwitchCase{Type: targetIR, Value: text, Block: bodyLabels[i]})
	}
	c.fb.Switch(targetIR, targetWV.Value, defaultLabel, cases)

	for i, cs := range n.Cases {
		c.fb.CreateBlock(bodyLabels[i])
		c.pushDeferFrame(false)
		if cs.Body != nil {
			c.evaluate(cs.Body)
			c.clearCastingContext()
		}
		if !c.fb.HasTerminator() {
			c.unpack(unpackRegular)
			if cs.Fallthrough && i+1 < len(n.Cases) {
				c.fb.Br(bodyLabels[i+1])
			} else {
				c.fb.Br(mergeLabel)
			}
		}
		c.popDeferFrame()
	}

	c.fb.CreateBlock(mergeLabel)
	c.give(WrappedValue{})
	return nil
}

func (c *Codegen) VisitCase(n *ast.Case) error {
	if n.Body != nil {
		c.evaluate(n.Body)
	}
	c.give(WrappedValue{})
	return nil
}

// VisitRet unpacks every defer frame up to the procedure root before
// returning (spec §4.7's `ret` unpacking mode ALL).
func (c *Codegen) VisitRet(n *ast.Ret) error {
	c.unpack(unpackAll)
	if n.Value == nil {
		c.fb.RetVoid()
		c.give(WrappedValue{})
		return nil
	}
	var target *types.TypeData
	if c.currentProc != nil && c.currentProc.ReturnType != nil {
		t := *c.currentProc.ReturnType
		target = &t
	}
	prev := c.swapCastingContext(target)
	val := c.maybeAdjust(c.evaluate(n.Value))
	c.castingCtx = prev
	irType := c.generateType(val.Type)
	c.fb.Ret(irType, val.Value)
	c.give(WrappedValue{})
	return nil
}

// VisitBrk unpacks up to and including the nearest loop-base frame,
// then branches to that loop's merge block.
func (c *Codegen) VisitBrk(n *ast.Brk) error {
	c.unpack(unpackUntilLoopBase)
	if len(c.loopStack) > 0 {
		c.fb.Br(c.loopStack[len(c.loopStack)-1].mergeLabel)
	}
	c.give(WrappedValue{})
	return nil
}

// VisitCont unpacks up to and including the nearest loop-base frame,
// then branches to that loop's update/cond re-test block.
func (c *Codegen) VisitCont(n *ast.Cont) error {
	c.unpack(unpackUntilLoopBase)
	if len(c.loopStack) > 0 {
		c.fb.Br(c.loopStack[len(c.loopStack)-1].afterLabel)
	}
	c.give(WrappedValue{})
	return nil
}

func (c *Codegen) VisitDefer(n *ast.Defer) error {
	if n.Call != nil {
		c.recordDefer(n.Call)
	}
	c.give(WrappedValue{})
	return nil
}

func (c *Codegen) VisitDeferIf(n *ast.DeferIf) error {
	if n.Call != nil {
		c.recordDeferIf(n.Cond, n.Call)
	}
	c.give(WrappedValue{})
	return nil
}
