package stack

import (
	"testing"

	"github.com/lumen-lang/lumen/pkg/value"
)

func TestPushPop(t *testing.T) {
	b := New()
	b.Push(value.Int(1))
	b.Push(value.Int(2))
	v, err := b.PopValue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !value.StructurallyEqual(v, value.Int(2)) {
		t.Fatalf("expected 2, got %v", v)
	}
	if b.Len() != 1 {
		t.Fatalf("expected len 1, got %d", b.Len())
	}
}

func TestPopEmptyBranch(t *testing.T) {
	b := New()
	if _, err := b.Pop(); err == nil {
		t.Fatalf("pop on empty branch should error")
	}
}

// SlideRoundTrip verifies the law: slide(n) followed by pop() is
// equivalent to pop() followed by discarding the n elements below the
// popped value, leaving the same remaining stack.
func TestSlideRoundTrip(t *testing.T) {
	b := New()
	b.Push(value.Int(1))
	b.Push(value.Int(2))
	b.Push(value.Int(3))
	b.Push(value.Int(99)) // the value that will slide down past 2 elements

	if err := b.Slide(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Len() != 2 {
		t.Fatalf("expected len 2 after slide, got %d", b.Len())
	}
	top, err := b.PopValue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !value.StructurallyEqual(top, value.Int(99)) {
		t.Fatalf("expected 99 to have slid to the top, got %v", top)
	}
	bottom, err := b.PopValue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !value.StructurallyEqual(bottom, value.Int(1)) {
		t.Fatalf("expected 1 beneath the slid value, got %v", bottom)
	}
}

func TestBranchSharesPrefixCopyOnWrite(t *testing.T) {
	root := New()
	root.Push(value.Int(1))
	root.Push(value.Int(2))

	a := root.Branch()
	b := root.Branch()

	a.Push(value.Int(100))
	b.Push(value.Int(200))

	if a.Len() != 3 || b.Len() != 3 {
		t.Fatalf("each branch should see the shared prefix plus its own push")
	}
	av, _ := a.PeekAt(2)
	bv, _ := b.PeekAt(2)
	avv, _ := av.Value()
	bvv, _ := bv.Value()
	if !value.StructurallyEqual(avv, value.Int(100)) || !value.StructurallyEqual(bvv, value.Int(200)) {
		t.Fatalf("branches must not observe each other's pushes")
	}

	if err := a.ReplaceAt(0, ValueSlot(value.Int(999))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rootSlot, _ := root.PeekAt(0)
	rootVal, _ := rootSlot.Value()
	if !value.StructurallyEqual(rootVal, value.Int(1)) {
		t.Fatalf("mutating a shared prefix index in one branch must not affect the parent")
	}
	bSlot, _ := b.PeekAt(0)
	bVal, _ := bSlot.Value()
	if !value.StructurallyEqual(bVal, value.Int(1)) {
		t.Fatalf("mutating a shared prefix index in one branch must not affect a sibling branch")
	}
}

func TestPushFrameAndPopFrame(t *testing.T) {
	b := New()
	b.Push(value.Int(1))
	oldFrame := b.Frame()
	b.PushReturn(42, "main", oldFrame, nil)
	b.Push(value.Int(2))

	ret, err := b.PopFrame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ret.IP != 42 {
		t.Fatalf("expected restored ip 42, got %d", ret.IP)
	}
	if b.Frame() != oldFrame {
		t.Fatalf("expected frame restored to %d, got %d", oldFrame, b.Frame())
	}
	if b.Len() != 1 {
		t.Fatalf("pop-frame should unwind everything above and including the return record, got len=%d", b.Len())
	}
}

func TestLocalFallsBackToGhostStack(t *testing.T) {
	b := New()
	ghost := []value.Value{value.Int(7), value.Int(8)}
	b.PushReturn(0, "main", 0, ghost)
	// no locals of its own pushed in this frame

	v, err := b.Local(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !value.StructurallyEqual(v, value.Int(7)) {
		t.Fatalf("expected local(0) to fall back to ghost[0]=7, got %v", v)
	}
	v, err = b.Local(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !value.StructurallyEqual(v, value.Int(8)) {
		t.Fatalf("expected local(1) to fall back to ghost[1]=8, got %v", v)
	}
}

func TestSetLocalAndUnsetLocal(t *testing.T) {
	b := New()
	b.PushReturn(0, "main", 0, nil)
	b.PushUnset()

	set, err := b.IsSetLocal(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set {
		t.Fatalf("freshly pushed-unset local should not be set")
	}
	ok, err := b.InitLocal(0, value.Int(5))
	if err != nil || !ok {
		t.Fatalf("init of unset local should succeed: ok=%v err=%v", ok, err)
	}
	ok, err = b.InitLocal(0, value.Int(6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("init of an already-set local should not take effect")
	}
	v, err := b.Local(0)
	if err != nil || !value.StructurallyEqual(v, value.Int(5)) {
		t.Fatalf("expected local to remain 5, got %v err=%v", v, err)
	}
	if err := b.UnsetLocal(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	set, _ = b.IsSetLocal(0)
	if set {
		t.Fatalf("local should be unset after UnsetLocal")
	}
}

func TestPopNOrdersBottomToTop(t *testing.T) {
	b := New()
	b.Push(value.Int(1))
	b.Push(value.Int(2))
	b.Push(value.Int(3))
	slots, err := b.PopN(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := slots[0].Value()
	second, _ := slots[1].Value()
	if !value.StructurallyEqual(first, value.Int(2)) || !value.StructurallyEqual(second, value.Int(3)) {
		t.Fatalf("expected [2, 3] in bottom-to-top order, got %v, %v", first, second)
	}
}

func TestAttachAppendsInOrder(t *testing.T) {
	b := New()
	b.Attach([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	if b.Len() != 3 {
		t.Fatalf("expected len 3, got %d", b.Len())
	}
	top, _ := b.PopValue()
	if !value.StructurallyEqual(top, value.Int(3)) {
		t.Fatalf("attach should push in order so the last element ends on top, got %v", top)
	}
}
