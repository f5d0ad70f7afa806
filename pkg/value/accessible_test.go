package value

import "testing"

func TestAccessArrayOutOfRangeIsMIA(t *testing.T) {
	arr := NewArray([]Value{Int(1), Int(2)})
	_, mia, err := Access(arr, Int(10))
	if err != nil {
		t.Fatalf("out of range index should not error, got %v", err)
	}
	if !mia {
		t.Fatalf("out of range index should raise the MIA effect")
	}
}

func TestAccessArrayInvalidAccessor(t *testing.T) {
	arr := NewArray([]Value{Int(1)})
	_, _, err := Access(arr, String("x"))
	if err == nil {
		t.Fatalf("non-integer accessor on an array must error")
	}
	if _, ok := err.(*Panic); !ok {
		t.Fatalf("expected a *Panic, got %T", err)
	}
}

func TestAccessNotAccessible(t *testing.T) {
	_, _, err := Access(Int(1), Int(0))
	if err == nil {
		t.Fatalf("accessing a number should error")
	}
}

func TestRecordAccessAndAssign(t *testing.T) {
	r := NewRecord()
	r.Set(Intern("k"), Int(1))
	v, mia, err := Access(r, Intern("k"))
	if err != nil || mia {
		t.Fatalf("unexpected: v=%v mia=%v err=%v", v, mia, err)
	}
	if !StructurallyEqual(v, Int(1)) {
		t.Fatalf("expected 1, got %v", v)
	}
	_, mia, _ = Access(r, Intern("missing"))
	if !mia {
		t.Fatalf("missing record key should raise MIA")
	}
}

func TestArrayLength(t *testing.T) {
	arr := NewArray([]Value{Int(1), Int(2), Int(3)})
	n, err := Length(arr)
	if err != nil || n != 3 {
		t.Fatalf("expected length 3, got %d err=%v", n, err)
	}
}

func TestSetContainsAndDelete(t *testing.T) {
	s := NewSet([]Value{Int(1), Int(2), Int(2)})
	if s.Len() != 2 {
		t.Fatalf("duplicate insert should not grow the set, got len=%d", s.Len())
	}
	if !s.Contains(Int(1)) {
		t.Fatalf("set should contain 1")
	}
	if !s.Delete(Int(1)) {
		t.Fatalf("delete of present element should succeed")
	}
	if s.Contains(Int(1)) {
		t.Fatalf("set should no longer contain 1 after delete")
	}
}

func TestTakeSkip(t *testing.T) {
	arr := NewArray([]Value{Int(1), Int(2), Int(3), Int(4)})
	taken, _ := Take(arr, 2)
	skipped, _ := Skip(arr, 2)
	if taken.(*Array).Len() != 2 || skipped.(*Array).Len() != 2 {
		t.Fatalf("take/skip should partition the array")
	}
}

func TestGlueStrings(t *testing.T) {
	g, err := Glue(String("foo"), String("bar"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g != String("foobar") {
		t.Fatalf("expected foobar, got %v", g)
	}
}
