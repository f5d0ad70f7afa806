// Package stack implements the cactus stack: a branchable execution stack
// where multiple live branches share a common prefix copy-on-write. It is
// the substrate the VM executes instructions against, and the mechanism by
// which closures and continuations carry a private view of the stack they
// closed over.
package stack

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/lumen-lang/lumen/pkg/value"
)

// ErrEmptyStack reports an attempt to pop, peek, or slide past the bottom
// of a branch's own (unshared) region -- an internal VM invariant
// violation, not a user-facing error.
var ErrEmptyStack = errors.New("internal runtime error: empty stack")

// ErrNoReturn reports pop-frame finding no return record to unwind to.
var ErrNoReturn = errors.New("internal runtime error: no return record")

// slotKind tags what a Slot holds.
type slotKind int

const (
	slotValue slotKind = iota
	slotUnset
	slotReturn
)

// Return is the payload of a return-record Slot: where to resume, the
// frame pointer to restore, and (for a closure's invocation) the ghost
// stack of upvalues local() falls back to once the new frame's own locals
// are exhausted.
type Return struct {
	IP    int
	Chunk string
	Frame int
	Ghost []value.Value
}

// Slot is one cell of the cactus stack.
type Slot struct {
	kind  slotKind
	value value.Value
	ret   Return
}

// ValueSlot wraps a value as a Slot.
func ValueSlot(v value.Value) Slot { return Slot{kind: slotValue, value: v} }

// UnsetSlot is an uninitialized variable cell.
func UnsetSlot() Slot { return Slot{kind: slotUnset} }

// ReturnSlot wraps a return record as a Slot.
func ReturnSlot(r Return) Slot { return Slot{kind: slotReturn, ret: r} }

// IsValue reports whether the slot holds a value (set).
func (s Slot) IsValue() bool { return s.kind == slotValue }

// IsUnset reports whether the slot is an uninitialized variable cell.
func (s Slot) IsUnset() bool { return s.kind == slotUnset }

// IsReturn reports whether the slot is a return record.
func (s Slot) IsReturn() bool { return s.kind == slotReturn }

// Value returns the slot's value, or an error if it is not a value slot.
func (s Slot) Value() (value.Value, error) {
	if s.kind != slotValue {
		return nil, errors.New("internal runtime error: expected a value")
	}
	return s.value, nil
}

// Return returns the slot's return record, or an error if it is not one.
func (s Slot) Return() (Return, error) {
	if s.kind != slotReturn {
		return Return{}, errors.New("internal runtime error: expected a return record")
	}
	return s.ret, nil
}

// Branch is one logically independent view of the cactus stack. A fresh
// Branch shares its parent's entire prefix by reference; writes to an
// index within that shared prefix are copy-on-write, kept private to this
// Branch via overrides, while writes past the prefix append to this
// Branch's own private suffix.
type Branch struct {
	mu        *sync.RWMutex
	parent    *Branch
	prefixLen int
	overrides map[int]Slot
	own       []Slot
	frame     int
}

// New creates a fresh, empty root branch: the starting stack for a brand
// new execution. The frame pointer starts at -1 (no enclosing return
// record), so Local(0) addresses index 0 directly, the same convention a
// pushed return record establishes for every call frame after it.
func New() *Branch {
	return &Branch{mu: &sync.RWMutex{}, frame: -1}
}

// Len returns the number of cells visible to this branch.
func (b *Branch) Len() int { return b.prefixLen + len(b.own) }

// Frame returns the current frame pointer (absolute index of the nearest
// return record).
func (b *Branch) Frame() int { return b.frame }

func (b *Branch) at(i int) (Slot, error) {
	if i < 0 || i >= b.Len() {
		return Slot{}, errors.Wrapf(ErrEmptyStack, "index %d out of range (len %d)", i, b.Len())
	}
	if i >= b.prefixLen {
		return b.own[i-b.prefixLen], nil
	}
	if s, ok := b.overrides[i]; ok {
		return s, nil
	}
	return b.parent.at(i)
}

// PeekAt reads the slot at absolute index i.
func (b *Branch) PeekAt(i int) (Slot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.at(i)
}

// ReplaceAt overwrites the slot at absolute index i, copy-on-write if i
// falls within the shared prefix.
func (b *Branch) ReplaceAt(i int, s Slot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= b.Len() {
		return errors.Wrapf(ErrEmptyStack, "index %d out of range (len %d)", i, b.Len())
	}
	if i >= b.prefixLen {
		b.own[i-b.prefixLen] = s
		return nil
	}
	if b.overrides == nil {
		b.overrides = make(map[int]Slot)
	}
	b.overrides[i] = s
	return nil
}

// Push pushes a value onto the top of the stack.
func (b *Branch) Push(v value.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.own = append(b.own, ValueSlot(v))
}

// PushUnset pushes an uninitialized variable cell.
func (b *Branch) PushUnset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.own = append(b.own, UnsetSlot())
}

// PushReturn pushes a return record and advances the frame pointer to it.
func (b *Branch) PushReturn(ip int, chunk string, oldFrame int, ghost []value.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.own = append(b.own, ReturnSlot(Return{IP: ip, Chunk: chunk, Frame: oldFrame, Ghost: ghost}))
	b.frame = b.Len() - 1
}

// Attach appends many slots at once, in order, without reversing -- the
// bulk counterpart to repeated Push, used by SWAP to push back the
// exchanged pair.
func (b *Branch) Attach(vs []value.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range vs {
		b.own = append(b.own, ValueSlot(v))
	}
}

// Pop removes and returns the top slot.
func (b *Branch) Pop() (Slot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.own) == 0 {
		return Slot{}, errors.Wrap(ErrEmptyStack, "pop below branch point")
	}
	s := b.own[len(b.own)-1]
	b.own = b.own[:len(b.own)-1]
	return s, nil
}

// PopValue pops the top slot and unwraps it as a value.
func (b *Branch) PopValue() (value.Value, error) {
	s, err := b.Pop()
	if err != nil {
		return nil, err
	}
	return s.Value()
}

// PopN detaches the top n slots and returns them in original (bottom to
// top) order.
func (b *Branch) PopN(n int) ([]Slot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.own) < n {
		return nil, errors.Wrap(ErrEmptyStack, "pop-n below branch point")
	}
	out := make([]Slot, n)
	copy(out, b.own[len(b.own)-n:])
	b.own = b.own[:len(b.own)-n]
	return out, nil
}

// Slide moves the top value past the next n elements, discarding those n
// elements: equivalent to popping the top, popping n more, pushing the
// top back, then discarding what was popped in between.
func (b *Branch) Slide(n int) error {
	top, err := b.Pop()
	if err != nil {
		return err
	}
	if _, err := b.PopN(n); err != nil {
		return err
	}
	b.mu.Lock()
	b.own = append(b.own, top)
	b.mu.Unlock()
	return nil
}

// PopFrame unwinds to the next return record below the top, restoring the
// frame pointer, and returns that record.
func (b *Branch) PopFrame() (Return, error) {
	for {
		s, err := b.Pop()
		if err != nil {
			return Return{}, errors.Wrap(ErrNoReturn, "no return record to unwind to")
		}
		if s.IsReturn() {
			b.mu.Lock()
			b.frame = s.ret.Frame
			b.mu.Unlock()
			return s.ret, nil
		}
	}
}

// Branch forks a new, logically independent branch sharing the current
// prefix copy-on-write.
func (b *Branch) Branch() *Branch {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &Branch{
		mu:        b.mu,
		parent:    b,
		prefixLen: b.Len(),
		frame:     b.frame,
	}
}

// SetFrame forcibly sets the frame pointer. The VM does not call it:
// closure entry installs its ghost stack through PushReturn.
func (b *Branch) SetFrame(frame int) { b.frame = frame }

// Local addresses the i-th slot above the current frame pointer. If that
// falls outside this branch's own region, it recurses into the ghost
// stack captured by the enclosing return record (the closure's upvalues).
func (b *Branch) Local(i int) (value.Value, error) {
	abs := b.frame + 1 + i
	if abs < b.Len() {
		s, err := b.at(abs)
		if err != nil {
			return nil, err
		}
		if s.IsUnset() {
			return nil, errors.New("runtime type error: read of unset local")
		}
		return s.Value()
	}
	retSlot, err := b.at(b.frame)
	if err != nil {
		return nil, err
	}
	ret, err := retSlot.Return()
	if err != nil {
		return nil, err
	}
	ghostIndex := abs - b.Len()
	if ghostIndex < 0 || ghostIndex >= len(ret.Ghost) {
		return nil, errors.New("internal runtime error: local out of range")
	}
	return ret.Ghost[ghostIndex], nil
}

// SetLocal sets the i-th local above the current frame pointer.
func (b *Branch) SetLocal(i int, v value.Value) error {
	abs := b.frame + 1 + i
	if abs < b.Len() {
		return b.ReplaceAt(abs, ValueSlot(v))
	}
	return errors.New("internal runtime error: cannot assign a captured upvalue slot")
}

// InitLocal sets the i-th local only if it is currently unset, reporting
// whether the initialization took effect.
func (b *Branch) InitLocal(i int, v value.Value) (bool, error) {
	abs := b.frame + 1 + i
	s, err := b.PeekAt(abs)
	if err != nil {
		return false, err
	}
	if !s.IsUnset() {
		return false, nil
	}
	return true, b.ReplaceAt(abs, ValueSlot(v))
}

// UnsetLocal resets the i-th local to the unset marker.
func (b *Branch) UnsetLocal(i int) error {
	abs := b.frame + 1 + i
	return b.ReplaceAt(abs, UnsetSlot())
}

// IsSetLocal reports whether the i-th local currently holds a value.
func (b *Branch) IsSetLocal(i int) (bool, error) {
	abs := b.frame + 1 + i
	s, err := b.PeekAt(abs)
	if err != nil {
		return false, err
	}
	return s.IsValue(), nil
}
