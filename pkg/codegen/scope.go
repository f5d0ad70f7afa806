// Package codegen lowers a resolved pkg/ir tree to a bytecode.Chunk, per
// the scope/closure discipline and expression lowering rules of this
// system's code generator. It never resolves names or disambiguates
// shadowing -- pkg/ir's contract guarantees every Variable name is already
// unique within whatever can see it -- it only decides where each name
// lives on the cactus stack and emits the instructions to get it there.
package codegen

// bindKind distinguishes a name physically present in the current call
// frame from one reached through the ghost stack (an upvalue captured by
// CLOSE).
type bindKind int

const (
	bindLocal bindKind = iota
	bindUpvalue
)

// binding is what a Scope remembers about one declared name.
type binding struct {
	kind bindKind
	// slot is this name's fixed position above the frame pointer if kind
	// is bindLocal. If kind is bindUpvalue, slot is this name's ordinal
	// among the upvalues CLOSE captured for this frame -- referencing it
	// still requires adding the scope's current depth at each reference
	// site, since Local()'s ghost fallback is computed relative to Len()
	// at the moment of the read, not at declaration time. See Resolve.
	slot  int
	boxed bool
}

// Scope tracks, for one call frame, the mapping from resolved IR names to
// stack positions: spec's "ordered list of captured upvalues" plus the
// frame's own locals. A fresh closure body gets a fresh Scope chained to
// the enclosing one only for resolution purposes -- an upvalue reference
// never walks past its immediate parent, because CLOSE only ever captures
// its own frame's live slots (see materializeFreeVars in closure.go, which
// pulls a grandparent's upvalue down into the parent frame before a
// doubly-nested closure needs it).
type Scope struct {
	parent *Scope
	vars   map[string]*binding
	// depth is the number of slots currently pushed in this frame (args
	// plus every local declared so far) -- the operand a fresh LOADLOCAL
	// of a brand new local would use, and the number added to an
	// upvalue's ordinal to compute its live Local() operand right now.
	depth int
}

// NewScope starts a fresh root scope (the top level program body).
func NewScope() *Scope {
	return &Scope{vars: make(map[string]*binding)}
}

// NewClosureScope starts the scope for a closure body. upvalues names the
// captured upvalues in CLOSE's capture order (ordinal = index). An
// upvalue already boxed in parent stays boxed here: CLOSE captured
// whatever value currently sat in that slot, which for a boxed name is
// the shared cell itself, so reads and writes through it still need the
// ACCESS/ASSIGN indirection, not a plain LOADLOCAL/SETLOCAL.
func NewClosureScope(parent *Scope, upvalues []string) *Scope {
	s := &Scope{parent: parent, vars: make(map[string]*binding)}
	for i, name := range upvalues {
		boxed := false
		if r, ok := parent.Resolve(name); ok {
			boxed = r.boxed
		}
		s.vars[name] = &binding{kind: bindUpvalue, slot: i, boxed: boxed}
	}
	return s
}

// Declare reserves the next local slot for name, returning its operand.
func (s *Scope) Declare(name string) int {
	slot := s.depth
	s.vars[name] = &binding{kind: bindLocal, slot: slot}
	s.depth++
	return slot
}

// DeclareTemp reserves an unnamed local slot (an intermediate of spec
// §4.7's intermediate()/end_intermediate() staging helpers).
func (s *Scope) DeclareTemp() int {
	slot := s.depth
	s.depth++
	return slot
}

// MarkBoxed records that name's binding is promoted to a one-cell
// reference, so reads and writes go through ACCESS/ASSIGN on the boxed
// array instead of LOADLOCAL/SETLOCAL directly.
func (s *Scope) MarkBoxed(name string) {
	if b, ok := s.vars[name]; ok {
		b.boxed = true
	}
}

// Alias registers name as referring to a slot that already physically
// holds a value (an extracted pattern sub-match, or a scrutinee that was
// itself a bare BindPattern) -- unlike Declare, it does not advance depth,
// since no new value is being pushed.
func (s *Scope) Alias(name string, slot int) {
	s.vars[name] = &binding{kind: bindLocal, slot: slot}
}

// Has reports whether name is declared directly in this scope (not an
// ancestor) -- used by query-leaf unification to tell a fresh binding
// occurrence from a repeat reference to an existing one.
func (s *Scope) Has(name string) bool {
	_, ok := s.vars[name]
	return ok
}

// resolved is what Resolve reports about a name: where to find it and at
// what operand, plus whether it is boxed.
type resolved struct {
	kind  bindKind
	slot  int
	boxed bool
}

// Resolve finds name, computing an upvalue's live operand relative to
// this scope's current depth (see binding.slot's doc comment). It never
// searches past the immediate parent: by the time a Closure is compiled,
// materializeFreeVars (closure.go) has already pulled any deeper ancestor
// binding down into the parent frame as an ordinary local there.
func (s *Scope) Resolve(name string) (resolved, bool) {
	if b, ok := s.vars[name]; ok {
		if b.kind == bindLocal {
			return resolved{kind: bindLocal, slot: b.slot, boxed: b.boxed}, true
		}
		return resolved{kind: bindUpvalue, slot: s.depth + b.slot, boxed: b.boxed}, true
	}
	return resolved{}, false
}
