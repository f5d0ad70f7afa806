package codegen

import (
	"github.com/pkg/errors"
	"github.com/lumen-lang/lumen/pkg/bytecode"
	"github.com/lumen-lang/lumen/pkg/ir"
	"github.com/lumen-lang/lumen/pkg/vm"
)

var handlerRegister, _ = vm.RegisterIndex("HANDLER")

// emitWhen installs a new effect handler for the dynamic extent of Body
// and restores the previous one once Body completes normally. The
// installed handler is itself an ordinary two-parameter closure (effect,
// resume): it matches effect against EffectPattern, binds Resume to the
// captured continuation and runs HandlerBody on a match, or forwards to
// whatever handler was installed before (captured as an upvalue) when it
// doesn't.
func (g *Generator) emitWhen(sc *Scope, t *ir.When) error {
	start := sc.depth

	// EffectPattern's own bound names (not just the raw $effect param) must
	// count as bound for this walk -- HandlerBody references those, not
	// $effect itself, which only exists to stage the match in
	// emitHandlerBody.
	captured, err := g.materializeFreeVars(sc, &ir.Closure{
		Kind:   ir.KindFn,
		Params: []ir.Pattern{t.EffectPattern, &ir.BindPattern{Name: t.Resume}},
		Body:   t.HandlerBody,
	})
	if err != nil {
		return err
	}

	// Pushed last (and appended last to captured) so it lands physically
	// adjacent to CLOSE -- materializeFreeVars's own pushes must already
	// be done, since CLOSE captures the whole frame contiguously and the
	// capture order below must agree with physical push order.
	g.b.Emit(bytecode.LoadRegister, handlerRegister)
	oldSlot := sc.Declare(outerHandlerName)
	defer func() { delete(sc.vars, outerHandlerName) }()
	captured = appendUnique(captured, outerHandlerName)

	bodyLabel := g.label("when_handler")
	g.b.EmitToLabel(bytecode.Close, bodyLabel)
	// CLOSE's pushed closure value is consumed below (SetRegister+Pop);
	// track it so the slot numbers that follow stay correct.
	sc.DeclareTemp()
	resume := g.label("when_installed")
	g.b.EmitToLabel(bytecode.Jump, resume)

	g.b.Label(bodyLabel)
	inner := NewClosureScope(sc, captured)
	inner.Declare(effectParamName)
	inner.Declare(t.Resume)
	if err := g.emitHandlerBody(inner, t); err != nil {
		return err
	}

	g.b.Label(resume)
	g.b.Emit(bytecode.SetRegister, handlerRegister)
	g.b.EmitNone(bytecode.Pop)
	sc.depth--

	if err := g.emit(sc, t.Body); err != nil {
		return err
	}
	// Restore the previous handler above Body's result, then discard that
	// pushed copy -- Body's own result is left untouched underneath.
	g.b.Emit(bytecode.LoadLocal, oldSlot)
	g.b.Emit(bytecode.SetRegister, handlerRegister)
	g.b.EmitNone(bytecode.Pop)
	g.collapseTo(sc, start)
	return nil
}

const (
	effectParamName   = "$effect"
	outerHandlerName  = "$outer_handler"
)

func appendUnique(names []string, name string) []string {
	for _, n := range names {
		if n == name {
			return names
		}
	}
	return append(names, name)
}

// emitHandlerBody lowers the installed handler closure's own body: match
// effect against EffectPattern, run HandlerBody on success, or tail-call
// the captured outer handler with the same (effect, resume) pair to let
// an unmatched effect propagate further up the dynamic handler stack.
func (g *Generator) emitHandlerBody(inner *Scope, t *ir.When) error {
	effectR, _ := inner.Resolve(effectParamName)

	noMatch := g.label("when_nomatch")
	if err := g.matchValue(inner, t.EffectPattern, effectR.slot, noMatch); err != nil {
		return err
	}

	for _, name := range append(patternNames(t.EffectPattern), t.Resume) {
		if needsBoxing(t.HandlerBody, name) {
			r, _ := inner.Resolve(name)
			g.emitBoxPrologue(r.slot)
			inner.MarkBoxed(name)
		}
	}

	g.resumeStack = append(g.resumeStack, t.Resume)
	err := g.emit(inner, t.HandlerBody)
	g.resumeStack = g.resumeStack[:len(g.resumeStack)-1]
	if err != nil {
		return err
	}
	g.b.EmitNone(bytecode.Return)

	g.b.Label(noMatch)
	outerR, ok := inner.Resolve(outerHandlerName)
	if !ok {
		return errors.New("codegen: when handler lost its outer-handler capture")
	}
	resumeR, ok := inner.Resolve(t.Resume)
	if !ok {
		return errors.New("codegen: when handler lost its resume capture")
	}
	g.b.Emit(bytecode.LoadLocal, outerR.slot)
	g.b.Emit(bytecode.LoadLocal, effectR.slot)
	g.b.Emit(bytecode.LoadLocal, resumeR.slot)
	g.b.Emit(bytecode.Become, 2)
	return nil
}

// emitYield suspends the current computation, capturing a one-shot
// continuation, and tail-calls whatever handler is currently installed
// with (effect, continuation) (spec §4.6): doShift captures the resume
// point as the instruction right after SHIFT, so the code emitted there
// is exactly what runs once some handler later calls the continuation.
//
// doShift's snapshot is taken before the continuation itself is pushed,
// so resuming lands with (handler, effect, resumedValue) on the stack --
// the two staging values this site pushed to reach SHIFT, still sitting
// below the value the caller of resume actually supplied. SLIDE discards
// them, leaving just the resumed value as this expression's result.
func (g *Generator) emitYield(sc *Scope, t *ir.Yield) error {
	g.b.Emit(bytecode.LoadRegister, handlerRegister)
	if err := g.emit(sc, t.Effect); err != nil {
		return err
	}
	invokeLabel := g.label("yield_invoke")
	pastLabel := g.label("yield_past")
	g.b.EmitToLabel(bytecode.Shift, invokeLabel)
	g.b.Emit(bytecode.Slide, 2)
	g.b.EmitToLabel(bytecode.Jump, pastLabel)

	g.b.Label(invokeLabel)
	g.b.Emit(bytecode.Become, 2)

	g.b.Label(pastLabel)
	return nil
}

// emitResume calls the captured continuation with Value, continuing the
// suspended yield point; its own result is whatever that computation
// eventually produces.
func (g *Generator) emitResume(sc *Scope, t *ir.Resume) error {
	if len(g.resumeStack) == 0 {
		return errors.New("codegen: resume used outside a when handler")
	}
	r, ok := sc.Resolve(g.resumeStack[len(g.resumeStack)-1])
	if !ok {
		return errors.New("codegen: resume used outside a when handler")
	}
	g.b.Emit(bytecode.LoadLocal, r.slot)
	if err := g.emit(sc, t.Value); err != nil {
		return err
	}
	g.b.Emit(bytecode.Call, 1)
	return nil
}

// emitCancel abandons the suspended continuation: Value becomes the
// result of the handler closure itself (and, since that closure was
// invoked in tail position from the yield site, of the whole delimited
// computation up to whatever installed it) without ever resuming it.
func (g *Generator) emitCancel(sc *Scope, t *ir.Cancel) error {
	if err := g.emit(sc, t.Value); err != nil {
		return err
	}
	g.b.EmitNone(bytecode.Return)
	return nil
}
