package codegen

import (
	"github.com/pkg/errors"
	"github.com/lumen-lang/lumen/pkg/bytecode"
	"github.com/lumen-lang/lumen/pkg/ir"
	"github.com/lumen-lang/lumen/pkg/value"
)

// bindStacked claims the value currently on top of the stack as a new
// local (its slot is simply the scope's current depth -- nothing needs to
// be pushed, it is already there) and matches pattern against it.
//
// matchValue and bindStacked share one invariant: if the match fails and
// control jumps to failLabel, the real stack depth at that jump is
// exactly the depth sc had when this call was entered. Every case below
// restores that depth itself (via a per-site cleanup jump) before handing
// off to the caller's failLabel, so a caller never needs to guess how
// much scratch a failed nested pattern left behind.
func (g *Generator) bindStacked(sc *Scope, pattern ir.Pattern, failLabel string) error {
	slot := sc.DeclareTemp()
	return g.matchValue(sc, pattern, slot, failLabel)
}

// matchValue matches pattern against the value already resident in local
// slot, declaring one new local per BindPattern encountered (aliased to
// whatever slot actually holds that sub-value). See bindStacked's comment
// for the depth invariant every case here must preserve on failure.
func (g *Generator) matchValue(sc *Scope, pattern ir.Pattern, slot int, failLabel string) error {
	switch t := pattern.(type) {
	case *ir.WildcardPattern:
		return nil

	case *ir.BindPattern:
		sc.Alias(t.Name, slot)
		return nil

	case *ir.LiteralPattern:
		g.b.Emit(bytecode.LoadLocal, slot)
		g.b.Emit(bytecode.Const, g.b.Constant(t.Value))
		g.b.EmitNone(bytecode.ValEq)
		g.b.EmitToLabel(bytecode.JumpIfFalse, failLabel)
		return nil

	case *ir.TuplePattern:
		entry := sc.depth
		g.b.Emit(bytecode.LoadLocal, slot)
		g.b.EmitNone(bytecode.Uncons)
		firstSlot := sc.DeclareTemp()
		secondSlot := sc.DeclareTemp()
		afterUncons := sc.depth

		firstFail := g.label("pat_fail")
		if err := g.matchValue(sc, t.First, firstSlot, firstFail); err != nil {
			return err
		}
		afterFirst := sc.depth

		secondFail := g.label("pat_fail")
		if err := g.matchValue(sc, t.Second, secondSlot, secondFail); err != nil {
			return err
		}

		okLabel := g.label("pat_ok")
		g.b.EmitToLabel(bytecode.Jump, okLabel)
		g.b.Label(firstFail)
		g.emitCleanupJump(afterUncons, entry, failLabel)
		g.b.Label(secondFail)
		g.emitCleanupJump(afterFirst, entry, failLabel)
		g.b.Label(okLabel)
		return nil

	case *ir.StructPattern:
		entry := sc.depth
		g.b.Emit(bytecode.LoadLocal, slot)
		g.b.EmitNone(bytecode.Destruct)
		tagSlot := sc.DeclareTemp()
		innerSlot := sc.DeclareTemp()
		afterDestruct := sc.depth

		tagFail := g.label("pat_fail")
		g.b.Emit(bytecode.LoadLocal, tagSlot)
		g.b.Emit(bytecode.Const, g.b.Constant(t.Tag))
		g.b.EmitNone(bytecode.ValEq)
		g.b.EmitToLabel(bytecode.JumpIfFalse, tagFail)

		innerFail := g.label("pat_fail")
		if err := g.matchValue(sc, t.Inner, innerSlot, innerFail); err != nil {
			return err
		}

		okLabel := g.label("pat_ok")
		g.b.EmitToLabel(bytecode.Jump, okLabel)
		g.b.Label(tagFail)
		g.emitCleanupJump(afterDestruct, entry, failLabel)
		g.b.Label(innerFail)
		g.emitCleanupJump(afterDestruct, entry, failLabel)
		g.b.Label(okLabel)
		return nil

	case *ir.ArrayPattern:
		entry := sc.depth
		g.b.Emit(bytecode.LoadLocal, slot)
		g.b.EmitNone(bytecode.Length)
		g.b.Emit(bytecode.Const, g.b.Constant(value.Int(int64(len(t.Elements)))))
		g.b.EmitNone(bytecode.ValEq)
		lengthFail := g.label("pat_fail")
		g.b.EmitToLabel(bytecode.JumpIfFalse, lengthFail)

		fails := make([]string, 0, len(t.Elements))
		depths := make([]int, 0, len(t.Elements))
		prev := entry
		for _, elem := range t.Elements {
			g.b.Emit(bytecode.LoadLocal, slot)
			g.b.Emit(bytecode.Const, g.b.Constant(value.Int(int64(len(depths)))))
			g.b.EmitNone(bytecode.Access)
			elemSlot := sc.DeclareTemp()
			elemFail := g.label("pat_fail")
			if err := g.matchValue(sc, elem, elemSlot, elemFail); err != nil {
				return err
			}
			fails = append(fails, elemFail)
			depths = append(depths, prev)
			prev = sc.depth
		}

		okLabel := g.label("pat_ok")
		g.b.EmitToLabel(bytecode.Jump, okLabel)
		g.b.Label(lengthFail)
		g.emitCleanupJump(entry, entry, failLabel)
		for i, fl := range fails {
			g.b.Label(fl)
			g.emitCleanupJump(depths[i], entry, failLabel)
		}
		g.b.Label(okLabel)
		return nil

	default:
		return errors.Errorf("codegen: unhandled pattern %T", pattern)
	}
}

// emitCleanupJump pops depthNow-target values (a compile-time constant
// derived from sc.depth snapshots on the success path, per matchValue's
// failure-depth invariant) and jumps to dest. It never touches sc.depth
// itself: it only ever runs on a failure edge that does not fall through
// to the surrounding success-path bookkeeping.
func (g *Generator) emitCleanupJump(depthNow, target int, dest string) {
	for i := 0; i < depthNow-target; i++ {
		g.b.EmitNone(bytecode.Pop)
	}
	g.b.EmitToLabel(bytecode.Jump, dest)
}

// discardScratch pops every slot this scope has grown by since markDepth,
// without preserving a result -- cleanup for a point that is genuinely
// reached with a known compile-time sc.depth (an iterator round that
// turned out exhausted, a backtrack point in logic.go), as opposed to a
// pattern-match failure edge, which carries its own depth bookkeeping
// (see emitCleanupJump).
func (g *Generator) discardScratch(sc *Scope, markDepth int) {
	for sc.depth > markDepth {
		g.b.EmitNone(bytecode.Pop)
		sc.depth--
	}
}

// collapseTo slides the single value on top of the stack down to sit
// immediately above markDepth, discarding everything declared since --
// the cleanup every scope-introducing construct (Let, a Match arm, a
// closure body ending its work) performs so it nets exactly one pushed
// value, keeping Scope.depth equal to the real physical stack depth.
func (g *Generator) collapseTo(sc *Scope, markDepth int) {
	n := sc.depth - markDepth - 1
	if n > 0 {
		g.b.Emit(bytecode.Slide, n)
	}
	sc.depth = markDepth + 1
}
