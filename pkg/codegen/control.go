package codegen

import (
	"github.com/pkg/errors"
	"github.com/lumen-lang/lumen/pkg/bytecode"
	"github.com/lumen-lang/lumen/pkg/ir"
	"github.com/lumen-lang/lumen/pkg/value"
)

// emitIf lowers the two-armed conditional directly to JUMPF/JUMP -- both
// arms leave exactly one value, so no stack bookkeeping beyond the branch
// itself is needed.
func (g *Generator) emitIf(sc *Scope, t *ir.If) error {
	if err := g.emit(sc, t.Cond); err != nil {
		return err
	}
	sc.depth-- // JumpIfFalse consumes Cond's pushed value at run time
	branchStart := sc.depth
	elseLabel := g.label("if_else")
	endLabel := g.label("if_end")
	g.b.EmitToLabel(bytecode.JumpIfFalse, elseLabel)
	if err := g.emit(sc, t.Then); err != nil {
		return err
	}
	g.b.EmitToLabel(bytecode.Jump, endLabel)
	g.b.Label(elseLabel)
	sc.depth = branchStart
	if err := g.emit(sc, t.Else); err != nil {
		return err
	}
	g.b.Label(endLabel)
	sc.depth = branchStart + 1
	return nil
}

// emitPanic raises the named runtime error atom unconditionally -- the
// failure path for a pattern spec guarantees cannot actually mismatch at
// run time (an irrefutable Let binding, or a rule-iterator result that
// disagrees with its own iteration pattern).
func (g *Generator) emitPanic(atom value.ErrorAtom) {
	g.b.Emit(bytecode.Const, g.b.Constant(atom.Atom()))
	g.b.EmitNone(bytecode.Panic)
}

// emitLet lowers Value, binds Pattern against it irrefutably, applies
// boxing to any bound name spec §4.7's trigger selects, compiles Body,
// then collapses back to Let's own start depth so the whole expression
// nets exactly the one value Body produced.
func (g *Generator) emitLet(sc *Scope, t *ir.Let) error {
	start := sc.depth
	if err := g.emit(sc, t.Value); err != nil {
		return err
	}
	failLabel := g.label("let_nomatch")
	if err := g.bindStacked(sc, t.Pattern, failLabel); err != nil {
		return err
	}
	okLabel := g.label("let_ok")
	g.b.EmitToLabel(bytecode.Jump, okLabel)
	g.b.Label(failLabel)
	g.emitPanic(value.ErrNoMatchingFunctionOverload)
	g.b.Label(okLabel)

	for _, name := range patternNames(t.Pattern) {
		if needsBoxing(t.Body, name) {
			r, _ := sc.Resolve(name)
			g.emitBoxPrologue(r.slot)
			sc.MarkBoxed(name)
		}
	}

	if err := g.emit(sc, t.Body); err != nil {
		return err
	}
	g.collapseTo(sc, start)
	return nil
}

// emitMatch tries each arm in turn against a discriminant evaluated once.
// A failed arm's partial bindings are real physical pushes (matchValue
// re-derives every field from the discriminant's own slot, so partial
// failure never leaves the stack in an inconsistent shape) and are
// discarded before the next arm is attempted; a successful arm collapses
// straight to Match's own start depth.
func (g *Generator) emitMatch(sc *Scope, t *ir.Match) error {
	start := sc.depth
	if err := g.emit(sc, t.Discriminant); err != nil {
		return err
	}
	discSlot := sc.DeclareTemp()
	endLabel := g.label("match_end")

	for _, arm := range t.Arms {
		armStart := sc.depth
		armFail := g.label("match_arm_fail")
		if err := g.matchValue(sc, arm.Pattern, discSlot, armFail); err != nil {
			return err
		}
		if err := g.emit(sc, arm.Body); err != nil {
			return err
		}
		g.collapseTo(sc, start)
		g.b.EmitToLabel(bytecode.Jump, endLabel)
		g.b.Label(armFail)
		// matchValue guarantees a failure jump lands with real depth ==
		// armStart already; only the compile-time bookkeeping (left over
		// from the arm's own success-path emission above) needs resetting.
		sc.depth = armStart
	}

	g.emitPanic(value.ErrNoMatchingFunctionOverload)
	g.b.Label(endLabel)
	sc.depth = start + 1
	return nil
}

// loopFrame records where Break/Continue inside the innermost enclosing
// loop must collapse the stack to before jumping: breakDepth is the
// loop's own start depth (so Break's value becomes the loop's one net
// result), continueDepth is the depth at the loop's retry label (so a
// round's scratch is discarded but the loop's own bookkeeping locals --
// e.g. For's iterator closure -- survive).
type loopFrame struct {
	breakLabel    string
	continueLabel string
	breakDepth    int
	continueDepth int
}

// emitWhile lowers the loop body so Break/Continue within it can find
// their targets; the loop as a whole evaluates to Break's value, or unit
// if the condition simply goes false.
func (g *Generator) emitWhile(sc *Scope, t *ir.While) error {
	start := sc.depth
	topLabel := g.label("while_top")
	falseLabel := g.label("while_false")
	endLabel := g.label("while_end")
	g.loops = append(g.loops, loopFrame{
		// Break must land past falseLabel's Const Unit, not at it: that
		// push only supplies the loop's result when Cond went false on its
		// own, and would otherwise bury whatever value Break just pushed.
		breakLabel: endLabel, continueLabel: topLabel,
		breakDepth: start, continueDepth: start,
	})
	defer func() { g.loops = g.loops[:len(g.loops)-1] }()

	g.b.Label(topLabel)
	if err := g.emit(sc, t.Cond); err != nil {
		return err
	}
	sc.depth-- // JumpIfFalse consumes Cond's pushed value at run time
	g.b.EmitToLabel(bytecode.JumpIfFalse, falseLabel)
	bodyStart := sc.depth
	if err := g.emit(sc, t.Body); err != nil {
		return err
	}
	g.b.EmitNone(bytecode.Pop)
	sc.depth = bodyStart
	g.b.EmitToLabel(bytecode.Jump, topLabel)

	g.b.Label(falseLabel)
	g.b.Emit(bytecode.Const, g.b.Constant(value.Unit{}))
	g.b.Label(endLabel)
	sc.depth = start + 1
	return nil
}

func (g *Generator) emitBreak(sc *Scope, t *ir.Break) error {
	if len(g.loops) == 0 {
		return errors.New("codegen: break outside a loop")
	}
	loop := g.loops[len(g.loops)-1]
	if err := g.emit(sc, t.Value); err != nil {
		return err
	}
	n := sc.depth - loop.breakDepth - 1
	if n > 0 {
		g.b.Emit(bytecode.Slide, n)
	}
	g.b.EmitToLabel(bytecode.Jump, loop.breakLabel)
	return nil
}

func (g *Generator) emitContinue(sc *Scope, t *ir.Continue) error {
	_ = t
	if len(g.loops) == 0 {
		return errors.New("codegen: continue outside a loop")
	}
	loop := g.loops[len(g.loops)-1]
	g.discardScratch(sc, loop.continueDepth)
	g.b.EmitToLabel(bytecode.Jump, loop.continueLabel)
	g.b.Emit(bytecode.Const, g.b.Constant(value.Unit{}))
	sc.depth++
	return nil
}

// emitFor lowers the rule-iterator protocol (spec §4.8): Iterator is
// called with no arguments to obtain a fresh iterator closure, which is
// then called repeatedly, once per round, with one unset VAR cell per
// name Pattern binds. Each round's result is either the bare atom 'done,
// or a 'next-tagged struct wrapping the round's bindings. On 'next,
// Pattern is matched against the payload and Body runs; on 'done, Else
// runs once and the loop ends.
func (g *Generator) emitFor(sc *Scope, t *ir.For) error {
	start := sc.depth
	if err := g.emit(sc, t.Iterator); err != nil {
		return err
	}
	g.b.Emit(bytecode.Call, 0)
	iterSlot := sc.DeclareTemp()
	names := patternNames(t.Pattern)

	topLabel := g.label("for_top")
	gotNext := g.label("for_next")
	endLabel := g.label("for_end")
	g.loops = append(g.loops, loopFrame{
		breakLabel: endLabel, continueLabel: topLabel,
		breakDepth: start, continueDepth: iterSlot + 1,
	})
	defer func() { g.loops = g.loops[:len(g.loops)-1] }()

	g.b.Label(topLabel)
	roundStart := sc.depth
	g.b.Emit(bytecode.LoadLocal, iterSlot)
	for range names {
		g.b.EmitNone(bytecode.Var)
	}
	g.b.Emit(bytecode.Call, len(names))
	resultSlot := sc.DeclareTemp()
	g.b.Emit(bytecode.LoadLocal, resultSlot)
	g.b.Emit(bytecode.Const, g.b.Constant(value.Intern("done")))
	g.b.EmitNone(bytecode.ValEq)
	g.b.EmitToLabel(bytecode.JumpIfFalse, gotNext)

	// exhausted
	g.discardScratch(sc, roundStart)
	if err := g.emit(sc, t.Else); err != nil {
		return err
	}
	g.b.EmitToLabel(bytecode.Jump, endLabel)

	g.b.Label(gotNext)
	g.b.Emit(bytecode.LoadLocal, resultSlot)
	g.b.EmitNone(bytecode.Destruct)
	sc.DeclareTemp() // tag, unused once past the dispatch above
	payloadSlot := sc.DeclareTemp()
	failLabel := g.label("for_nomatch")
	if err := g.matchValue(sc, t.Pattern, payloadSlot, failLabel); err != nil {
		return err
	}
	okLabel := g.label("for_ok")
	g.b.EmitToLabel(bytecode.Jump, okLabel)
	g.b.Label(failLabel)
	g.emitPanic(value.ErrNoMatchingFunctionOverload)
	g.b.Label(okLabel)
	if err := g.emit(sc, t.Body); err != nil {
		return err
	}
	g.b.EmitNone(bytecode.Pop)
	g.discardScratch(sc, roundStart)
	g.b.EmitToLabel(bytecode.Jump, topLabel)

	g.b.Label(endLabel)
	sc.depth = start + 1
	return nil
}
