package value

import "testing"

func TestAtomInterning(t *testing.T) {
	a := Intern("foo")
	b := Intern("foo")
	if !a.Equal(b) {
		t.Fatalf("interned atoms with same name should be equal")
	}
	c := Intern("bar")
	if a.Equal(c) {
		t.Fatalf("interned atoms with different names should not be equal")
	}
}

func TestAnonymousAtomsDistinct(t *testing.T) {
	a := NewAnonymous()
	b := NewAnonymous()
	if a.Equal(b) {
		t.Fatalf("two anonymous atoms must never be equal")
	}
	if !a.Equal(a) {
		t.Fatalf("an anonymous atom must equal itself")
	}
}

func TestTupleRoundTrip(t *testing.T) {
	tup := Cons(Int(1), String("x"))
	if !StructurallyEqual(Cons(tup.First, tup.Second), tup) {
		t.Fatalf("cons(first(t), second(t)) should equal t")
	}
}

func TestStructRoundTrip(t *testing.T) {
	tag := Intern("wrapped")
	s := Construct(tag, Int(42))
	gotTag, gotInner := Destruct(s)
	if !gotTag.Equal(tag) || !StructurallyEqual(gotInner, Int(42)) {
		t.Fatalf("destruct(construct(a, v)) should equal (a, v)")
	}
}

func TestStructuralCloneEquality(t *testing.T) {
	arr := NewArray([]Value{Int(1), String("hi")})
	clone := StructuralCloneValue(arr)
	if !StructurallyEqual(arr, clone) {
		t.Fatalf("structural clone must be structurally equal to original")
	}
	if ReferentiallyEqual(arr, clone) {
		t.Fatalf("structural clone of a mutable collection must not be referentially equal")
	}
}

func TestShallowCloneSharesElements(t *testing.T) {
	inner := NewArray([]Value{Int(1)})
	outer := NewArray([]Value{inner})
	clone := ShallowCloneValue(outer).(*Array)
	sharedInner, _ := clone.At(0)
	if sharedInner.(*Array) != inner {
		t.Fatalf("shallow clone should share nested mutable elements by identity")
	}
}

func TestScalarReferentialEquality(t *testing.T) {
	if !ReferentiallyEqual(Int(5), Int(5)) {
		t.Fatalf("immutable scalars with equal value should be referentially equal")
	}
}
