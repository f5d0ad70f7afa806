package value

// ReferentiallyEqual compares instance identity for mutable collections and
// callables, and value equality for immutable scalars (for which there is
// no other notion of identity).
func ReferentiallyEqual(a, b Value) bool {
	switch av := a.(type) {
	case *Array:
		bv, ok := b.(*Array)
		return ok && av == bv
	case *Set:
		bv, ok := b.(*Set)
		return ok && av == bv
	case *Record:
		bv, ok := b.(*Record)
		return ok && av == bv
	case Callable:
		bv, ok := b.(Callable)
		return ok && av.identity() == bv.identity()
	default:
		return StructurallyEqual(a, b)
	}
}

// StructurallyEqual compares two values recursively by content.
func StructurallyEqual(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Unit:
		return true
	case Boolean:
		bv := b.(Boolean)
		return av == bv
	case Character:
		bv := b.(Character)
		return av == bv
	case Atom:
		bv := b.(Atom)
		return av.Equal(bv)
	case String:
		bv := b.(String)
		return av == bv
	case *Number:
		bv := b.(*Number)
		return av.Equal(bv)
	case Bits:
		bv := b.(Bits)
		return av.Equal(bv)
	case *Tuple:
		bv := b.(*Tuple)
		return StructurallyEqual(av.First, bv.First) && StructurallyEqual(av.Second, bv.Second)
	case *Struct:
		bv := b.(*Struct)
		return av.Tag.Equal(bv.Tag) && StructurallyEqual(av.Inner, bv.Inner)
	case *Array:
		bv := b.(*Array)
		if len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !StructurallyEqual(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case *Set:
		bv := b.(*Set)
		return av.equalTo(bv)
	case *Record:
		bv := b.(*Record)
		return av.equalTo(bv)
	case Callable:
		bv, ok := b.(Callable)
		return ok && av.identity() == bv.identity()
	default:
		return false
	}
}

// Compare orders two values for <, <=, >, >= (numbers by magnitude,
// characters/strings lexicographically, booleans false<true). Returns an
// error-signaling bool via ok when the kinds are not ordered against each
// other.
func Compare(a, b Value) (int, bool) {
	if a.Kind() != b.Kind() {
		return 0, false
	}
	switch av := a.(type) {
	case Boolean:
		bv := b.(Boolean)
		if av == bv {
			return 0, true
		}
		if !bool(av) {
			return -1, true
		}
		return 1, true
	case Character:
		bv := b.(Character)
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case String:
		bv := b.(String)
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case *Number:
		bv := b.(*Number)
		c, err := av.Cmp(bv)
		if err != nil {
			return 0, false
		}
		return c, true
	default:
		return 0, false
	}
}
