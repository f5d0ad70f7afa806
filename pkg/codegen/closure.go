package codegen

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/lumen-lang/lumen/pkg/bytecode"
	"github.com/lumen-lang/lumen/pkg/ir"
	"github.com/lumen-lang/lumen/pkg/value"
)

// materializeFreeVars ensures every name t's body needs from outside its
// own parameters is a genuine, physically-present local in sc (the
// enclosing frame) by the time CLOSE runs. CLOSE only ever captures its
// own frame's contiguous live slots (spec §4.7): a name already local to
// sc needs nothing; a name sc itself only reaches as an upvalue (i.e. an
// ancestor's binding, not sc's own) is pulled down by loading it through
// sc's own resolution and declaring it afresh here, so the nested
// closure's capture sees it sitting in sc like any other local.
//
// It returns the capture list in a stable order (sorted, so chunks come
// out deterministic across compiles) -- CLOSE captures contiguously from
// the frame pointer, so the Closure's Upvalues slice agrees with however
// they ended up laid out physically, not with this returned order itself;
// NewClosureScope is built from the same order so the two stay in sync.
func (g *Generator) materializeFreeVars(sc *Scope, t *ir.Closure) ([]string, error) {
	bound := make(map[string]bool)
	if t.Name != "" {
		bound[t.Name] = true
	}
	for _, p := range t.Params {
		for _, name := range patternNames(p) {
			bound[name] = true
		}
	}
	free := make(map[string]bool)
	freeVars(t.Body, bound, free)
	for _, m := range t.Members {
		freeVars(m, bound, free)
	}

	names := make([]string, 0, len(free))
	for name := range free {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if sc.Has(name) {
			continue
		}
		r, ok := sc.Resolve(name)
		if !ok {
			return nil, errors.Errorf("codegen: closure references unresolved name %q", name)
		}
		g.b.Emit(bytecode.LoadLocal, r.slot)
		slot := sc.Declare(name)
		if r.boxed {
			sc.MarkBoxed(name)
			_ = slot
		}
	}
	return names, nil
}

// emitClosure lowers a Closure node: materialize whatever its body needs
// from the enclosing frame as genuine locals here, CLOSE past a jumped-
// over body compiled in a fresh Scope chained for resolution only, then
// specialize the entry sequence per Kind.
//
// A named closure may reference itself recursively: a placeholder unset
// local is declared before CLOSE so it is captured as part of the
// contiguous region, then fixed up with the real closure value right
// after, so a self-call resolves to a live upvalue instead of the
// placeholder.
func (g *Generator) emitClosure(sc *Scope, t *ir.Closure) error {
	captured, err := g.materializeFreeVars(sc, t)
	if err != nil {
		return err
	}

	selfSlot := -1
	if t.Name != "" {
		g.b.EmitNone(bytecode.Var)
		selfSlot = sc.Declare(t.Name)
		captured = append(captured, t.Name)
	}

	bodyLabel := g.label("closure_body")
	g.b.EmitToLabel(bytecode.Close, bodyLabel)
	// CLOSE's pushed closure value is this expression's own result -- a
	// plain, untracked-until-now real push, whether or not it is also
	// copied down into selfSlot below (SetLocal writes in place without
	// popping its source).
	sc.DeclareTemp()

	if selfSlot >= 0 {
		g.b.Emit(bytecode.SetLocal, selfSlot)
	}

	resume := g.label("closure_resume")
	g.b.EmitToLabel(bytecode.Jump, resume)
	g.b.Label(bodyLabel)

	inner := NewClosureScope(sc, captured)
	if err := g.emitClosureEntry(inner, t); err != nil {
		return err
	}

	g.b.Label(resume)
	return nil
}

// emitClosureEntry lowers the callable's own prologue and body, per Kind.
//
// A qy closure's outer entry is the one exception to the ordinary
// per-Params prologue: it is always called with zero arguments (spec's
// rule(k) calling convention, phase one) regardless of how many
// parameters the rule itself declares -- those are bound fresh on every
// round by the nested iterator closure emitRuleBody builds instead, so
// the generic match-against-call-args loop below does not apply to it.
func (g *Generator) emitClosureEntry(inner *Scope, t *ir.Closure) error {
	if t.Kind == ir.KindQy {
		return g.emitRuleBody(inner, t)
	}

	for _, p := range t.Params {
		slot := inner.DeclareTemp()
		failLabel := g.label("param_nomatch")
		if err := g.matchValue(inner, p, slot, failLabel); err != nil {
			return err
		}
		okLabel := g.label("param_ok")
		g.b.EmitToLabel(bytecode.Jump, okLabel)
		g.b.Label(failLabel)
		g.emitPanic(value.ErrIncorrectArity)
		g.b.Label(okLabel)
	}

	for _, p := range t.Params {
		for _, name := range patternNames(p) {
			if needsBoxing(t.Body, name) {
				r, _ := inner.Resolve(name)
				g.emitBoxPrologue(r.slot)
				inner.MarkBoxed(name)
			}
		}
	}

	switch t.Kind {
	case ir.KindModule:
		return g.emitModuleBody(inner, t)
	default:
		if err := g.emit(inner, t.Body); err != nil {
			return err
		}
		g.b.EmitNone(bytecode.Return)
		return nil
	}
}

// emitModuleBody evaluates Body for its side effects (top-level bindings
// it may declare via Let are visible to Members through inner) and packs
// Members into a record exposed as the module's own value.
func (g *Generator) emitModuleBody(inner *Scope, t *ir.Closure) error {
	start := inner.depth
	if err := g.emit(inner, t.Body); err != nil {
		return err
	}
	g.b.EmitNone(bytecode.Pop)
	inner.depth = start

	names := make([]string, 0, len(t.Members))
	for name := range t.Members {
		names = append(names, name)
	}
	sort.Strings(names)

	// A fresh CLONE is required here for the same reason boxing clones its
	// cell (see emitBoxPrologue): the empty-record constant is interned
	// once, and ASSIGN mutates its *Record receiver in place.
	g.b.Emit(bytecode.Const, g.emptyRecord)
	g.b.EmitNone(bytecode.Clone)
	for _, name := range names {
		g.b.Emit(bytecode.Const, g.b.Constant(value.Intern(name)))
		if err := g.emit(inner, t.Members[name]); err != nil {
			return err
		}
		g.b.EmitNone(bytecode.Assign)
	}
	g.b.EmitNone(bytecode.Return)
	return nil
}
