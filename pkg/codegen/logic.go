package codegen

import (
	"github.com/pkg/errors"
	"github.com/lumen-lang/lumen/pkg/bytecode"
	"github.com/lumen-lang/lumen/pkg/ir"
	"github.com/lumen-lang/lumen/pkg/value"
)

// searchCellName is the boxed cell a rule's iterator closure captures to
// remember, across separate calls, the continuation that resumes the
// backtracking search exactly where the previous round's solution left
// off. Boxed the same way a mutable closure capture is (a one-cell Array,
// see emitBoxPrologue) since an upvalue slot itself cannot be written
// through SETLOCAL once captured -- only what it points to can mutate.
const searchCellName = "$search"

// emitRuleBody lowers a qy closure's own zero-argument entry (spec's
// rule(k) calling convention, phase one): it builds and CLOSEs a fresh
// iterator closure over whatever t.Body's search needs from the
// enclosing frame plus a fresh, empty search cell, then returns that
// iterator as this entry's own result.
//
// t.Params are not bound here -- the zero-arg entry carries no call
// arguments of its own. They are the rule's unification targets, bound
// afresh by the iterator on every round.
func (g *Generator) emitRuleBody(inner *Scope, t *ir.Closure) error {
	captured, err := g.materializeFreeVars(inner, &ir.Closure{
		Kind:   ir.KindDo,
		Params: t.Params,
		Body:   t.Body,
	})
	if err != nil {
		return err
	}

	// Empty array: Length 0 reads as "search not yet started." Pushed
	// last (appended last to captured) so it lands adjacent to CLOSE, as
	// emitWhen's outer-handler capture does.
	g.b.Emit(bytecode.Const, g.emptyArray)
	g.b.EmitNone(bytecode.Clone)
	inner.Declare(searchCellName)
	captured = appendUnique(captured, searchCellName)

	iterLabel := g.label("rule_iter")
	g.b.EmitToLabel(bytecode.Close, iterLabel)
	inner.DeclareTemp() // CLOSE's own pushed closure, this entry's result
	resume := g.label("rule_entry_resume")
	g.b.EmitToLabel(bytecode.Jump, resume)

	g.b.Label(iterLabel)
	iter := NewClosureScope(inner, captured)
	if err := g.emitRuleIterator(iter, t); err != nil {
		return err
	}

	g.b.Label(resume)
	g.b.EmitNone(bytecode.Return)
	return nil
}

// emitRuleIterator lowers one round of the iterator protocol: bind the
// round's k fresh VAR cells against t.Params, then either resume the
// search exactly where the last round's accepted solution suspended it,
// or -- on the very first round -- start the search fresh. Either path
// ends in a solution SHIFT (emitSolution) or the search running dry.
func (g *Generator) emitRuleIterator(iter *Scope, t *ir.Closure) error {
	for _, p := range t.Params {
		slot := iter.DeclareTemp()
		failLabel := g.label("rule_param_nomatch")
		if err := g.matchValue(iter, p, slot, failLabel); err != nil {
			return err
		}
		okLabel := g.label("rule_param_ok")
		g.b.EmitToLabel(bytecode.Jump, okLabel)
		g.b.Label(failLabel)
		g.emitPanic(value.ErrIncorrectArity)
		g.b.Label(okLabel)
	}

	cellR, ok := iter.Resolve(searchCellName)
	if !ok {
		return errors.New("codegen: rule iterator lost its search-state capture")
	}

	// An empty cell means no round has suspended a search yet; anything
	// else is a continuation captured by a previous round's SHIFT,
	// ready to resume exactly where that round's accepted solution was
	// produced.
	g.b.Emit(bytecode.LoadLocal, cellR.slot)
	g.b.EmitNone(bytecode.Length)
	g.b.Emit(bytecode.Const, g.b.Constant(value.Int(0)))
	g.b.EmitNone(bytecode.ValEq)
	resumeSearch := g.label("rule_resume")
	g.b.EmitToLabel(bytecode.JumpIfFalse, resumeSearch)

	doneLabel := g.label("rule_exhausted")
	successCB := func(retry string) error {
		return g.emitSolution(iter, t.Params, cellR.slot, retry)
	}
	if err := g.emitQuery(iter, t.Body, successCB, doneLabel); err != nil {
		return err
	}

	g.b.Label(doneLabel)
	g.b.Emit(bytecode.Const, g.b.Constant(value.Intern("done")))
	g.b.EmitNone(bytecode.Return)

	g.b.Label(resumeSearch)
	g.b.Emit(bytecode.LoadLocal, cellR.slot)
	g.b.Emit(bytecode.Const, g.b.Constant(value.Int(0)))
	g.b.EmitNone(bytecode.Access)
	g.b.Emit(bytecode.Const, g.b.Constant(value.Unit{}))
	g.b.Emit(bytecode.Call, 1)
	// Unreachable: calling a *value.Continuation dispatches straight to
	// resumeContinuation, which replaces this execution's whole
	// stack/ip/chunk and never returns control here.
	return nil
}

// emitSolution is the single suspension point of a rule's search: it
// packs t.Params' currently-bound values into the "bindings" the rule
// iterator protocol promises, SHIFTs (capturing the rest of the search,
// ready to produce the next solution on the next round), stashes that
// continuation into the search cell, and returns 'next(bindings).
//
// Resuming the captured continuation later re-enters right after SHIFT:
// that is treated as "this solution was rejected, keep searching," which
// is exactly what jumping to retry (the fail label active at this exact
// point in the search tree) means.
func (g *Generator) emitSolution(sc *Scope, params []ir.Pattern, cellSlot int, retry string) error {
	var names []string
	for _, p := range params {
		names = append(names, patternNames(p)...)
	}

	g.b.Emit(bytecode.Const, g.b.Constant(value.Intern("next")))
	switch len(names) {
	case 0:
		g.b.Emit(bytecode.Const, g.b.Constant(value.Unit{}))
	case 1:
		r, ok := sc.Resolve(names[0])
		if !ok {
			return errors.Errorf("codegen: rule variable %q unresolved", names[0])
		}
		g.b.Emit(bytecode.LoadLocal, r.slot)
	default:
		g.b.Emit(bytecode.Const, g.emptyArray)
		g.b.EmitNone(bytecode.Clone)
		for _, name := range names {
			r, ok := sc.Resolve(name)
			if !ok {
				return errors.Errorf("codegen: rule variable %q unresolved", name)
			}
			g.b.Emit(bytecode.LoadLocal, r.slot)
			g.b.EmitNone(bytecode.Insert)
		}
	}
	g.b.EmitNone(bytecode.Construct)
	solutionSlot := sc.DeclareTemp()

	shiftLabel := g.label("rule_shift")
	g.b.EmitToLabel(bytecode.Shift, shiftLabel)
	// Resume path: falls through here once some later round calls the
	// continuation this SHIFT captures. The resumed dummy value is of no
	// interest; behave as if this solution had just been rejected.
	g.b.EmitNone(bytecode.Pop)
	g.b.EmitToLabel(bytecode.Jump, retry)

	g.b.Label(shiftLabel)
	// First-time path: the freshly captured continuation is on top.
	// Overwrite the search cell with it (ASSIGN at index 0), replacing
	// whatever it held before, then return this round's solution.
	contSlot := sc.DeclareTemp()
	g.b.Emit(bytecode.LoadLocal, cellSlot)
	g.b.Emit(bytecode.Const, g.b.Constant(value.Int(0)))
	g.b.Emit(bytecode.LoadLocal, contSlot)
	g.b.EmitNone(bytecode.Assign)
	g.b.EmitNone(bytecode.Pop)
	g.b.Emit(bytecode.LoadLocal, solutionSlot)
	g.b.EmitNone(bytecode.Return)
	return nil
}

// succFn is a logic-query success continuation: it emits whatever comes
// next once the construct that received it is satisfied, parameterized
// by the fail label active at the exact point success was reached (the
// target a later backtrack -- a resumed solution continuation -- should
// jump to, per emitSolution's doc). Failure, by contrast, is always a
// plain label: every construct below implements spec's non-backtracking
// simplifications (see DESIGN.md), so propagating failure is always a
// static jump, never something that needs to be resumed.
type succFn func(fail string) error

// emitQuery CPS-compiles one node of a qy closure's logic body (spec
// §4.8): Conjunction/Disjunction/Negation/Implication thread success and
// failure through the search tree; anything else is a leaf. A Let leaf
// unifies Pattern against Value (a query variable's binding occurrence)
// and continues into Body under that binding; any other leaf succeeds
// iff it evaluates to true.
//
// Every call is entered at some real stack depth D = sc.depth. Failure
// (a jump to fail) is guaranteed to land at real depth D; success calls
// succ(f) with sc.depth reflecting whatever new bindings this node
// introduced, and f naming the fail label a fresh attempt at the next
// solution, from exactly here, should target.
func (g *Generator) emitQuery(sc *Scope, n ir.Node, succ succFn, fail string) error {
	switch t := n.(type) {
	case *ir.Conjunction:
		return g.emitConjunction(sc, t, succ, fail)
	case *ir.Disjunction:
		return g.emitDisjunction(sc, t, succ, fail)
	case *ir.Negation:
		return g.emitNegation(sc, t, succ, fail)
	case *ir.Implication:
		return g.emitImplication(sc, t, succ, fail)
	case *ir.Let:
		return g.emitQueryLet(sc, t, succ, fail)
	default:
		if err := g.emit(sc, n); err != nil {
			return err
		}
		g.b.Emit(bytecode.Const, g.b.Constant(value.Boolean(true)))
		g.b.EmitNone(bytecode.ValEq)
		sc.depth-- // ValEq's result is consumed by JumpIfFalse below
		g.b.EmitToLabel(bytecode.JumpIfFalse, fail)
		return succ(fail)
	}
}

// emitQueryLet lowers a unification leaf: Value is evaluated once,
// Pattern binds against it (a fresh query variable, or a repeat
// occurrence re-checked structurally by matchValue/LiteralPattern-style
// comparison), and Body -- the rest of the conjunction this Let was
// sugar for -- runs under that binding.
func (g *Generator) emitQueryLet(sc *Scope, t *ir.Let, succ succFn, fail string) error {
	start := sc.depth
	if err := g.emit(sc, t.Value); err != nil {
		return err
	}
	failBind := g.label("unify_fail")
	if err := g.bindStacked(sc, t.Pattern, failBind); err != nil {
		return err
	}
	afterBind := sc.depth
	okBind := g.label("unify_ok")
	g.b.EmitToLabel(bytecode.Jump, okBind)
	g.b.Label(failBind)
	// bindStacked's own invariant: real depth here already equals start.
	g.b.EmitToLabel(bytecode.Jump, fail)
	g.b.Label(okBind)

	bodyFail := g.label("unify_bodyfail")
	if err := g.emitQuery(sc, t.Body, succ, bodyFail); err != nil {
		return err
	}
	g.b.Label(bodyFail)
	g.emitCleanupJump(afterBind, start, fail)
	return nil
}

// emitConjunction runs Left, and only if it succeeds, Right -- per
// DESIGN.md's documented simplification, a conjunction does not backtrack
// into Left once Right is exhausted for Left's first accepted solution;
// Right's own failure propagates straight to the outer fail.
func (g *Generator) emitConjunction(sc *Scope, t *ir.Conjunction, succ succFn, fail string) error {
	start := sc.depth
	rightFail := g.label("conj_right_fail")
	var afterLeft int
	err := g.emitQuery(sc, t.Left, func(string) error {
		afterLeft = sc.depth
		return g.emitQuery(sc, t.Right, succ, rightFail)
	}, fail)
	if err != nil {
		return err
	}
	g.b.Label(rightFail)
	g.emitCleanupJump(afterLeft, start, fail)
	return nil
}

// emitDisjunction tries every solution Left can produce (via resumed
// SHIFT continuations further down the tree, not the VM's cross-
// execution BRANCH -- see DESIGN.md) before trying Right. Left's own
// internal backtracking already lands exactly at leftFail once it is
// genuinely exhausted, at real depth start; Right then runs fresh.
func (g *Generator) emitDisjunction(sc *Scope, t *ir.Disjunction, succ succFn, fail string) error {
	start := sc.depth
	leftFail := g.label("disj_leftfail")
	if err := g.emitQuery(sc, t.Left, succ, leftFail); err != nil {
		return err
	}
	g.b.Label(leftFail)
	sc.depth = start
	return g.emitQuery(sc, t.Right, succ, fail)
}

// emitNegation succeeds, binding nothing, iff Node has no solutions at
// all -- a one-shot existence check: the first solution Node produces is
// enough to fail Negation outright, so its own success continuation never
// calls the outer succ, just records "found" and stops.
func (g *Generator) emitNegation(sc *Scope, t *ir.Negation, succ succFn, fail string) error {
	start := sc.depth
	foundLabel := g.label("negation_found")
	notFoundLabel := g.label("negation_notfound")
	err := g.emitQuery(sc, t.Node, func(string) error {
		here := sc.depth
		g.emitCleanupJump(here, start, foundLabel)
		return nil
	}, notFoundLabel)
	if err != nil {
		return err
	}

	g.b.Label(notFoundLabel)
	sc.depth = start
	if err := succ(fail); err != nil {
		return err
	}
	afterLabel := g.label("negation_after")
	g.b.EmitToLabel(bytecode.Jump, afterLabel)

	g.b.Label(foundLabel)
	g.b.EmitToLabel(bytecode.Jump, fail)
	g.b.Label(afterLabel)
	return nil
}

// emitImplication succeeds vacuously if Antecedent has no solutions; if
// it has at least one, Consequent runs under that (first, committed)
// binding and the implication succeeds iff Consequent does. Like
// Negation, this only ever samples Antecedent's first solution.
func (g *Generator) emitImplication(sc *Scope, t *ir.Implication, succ succFn, fail string) error {
	start := sc.depth
	haveLabel := g.label("implication_have")
	noneLabel := g.label("implication_none")
	var haveDepth int
	err := g.emitQuery(sc, t.Antecedent, func(string) error {
		haveDepth = sc.depth
		g.b.EmitToLabel(bytecode.Jump, haveLabel)
		return nil
	}, noneLabel)
	if err != nil {
		return err
	}

	g.b.Label(noneLabel)
	sc.depth = start
	if err := succ(fail); err != nil {
		return err
	}
	afterLabel := g.label("implication_after")
	g.b.EmitToLabel(bytecode.Jump, afterLabel)

	g.b.Label(haveLabel)
	sc.depth = haveDepth
	if err := g.emitQuery(sc, t.Consequent, succ, fail); err != nil {
		return err
	}
	g.b.Label(afterLabel)
	return nil
}
