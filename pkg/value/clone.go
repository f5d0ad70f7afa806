package value

// ShallowCloneValue produces a new instance sharing elements for mutable
// collections, and returns scalars/callables unchanged (they have no
// mutable substructure to share, or are not cloneable at all).
func ShallowCloneValue(v Value) Value {
	switch cv := v.(type) {
	case *Array:
		return cv.ShallowClone()
	case *Set:
		return cv.ShallowClone()
	case *Record:
		return cv.ShallowClone()
	default:
		return v
	}
}

// StructuralCloneValue recurses into mutable collections, cloning every
// nested collection as well. Callables are never deep-cloned: a captured
// continuation or closure keeps its identity through a structural clone.
func StructuralCloneValue(v Value) Value {
	switch cv := v.(type) {
	case *Tuple:
		return Cons(StructuralCloneValue(cv.First), StructuralCloneValue(cv.Second))
	case *Struct:
		return Construct(cv.Tag, StructuralCloneValue(cv.Inner))
	case *Array:
		items := make([]Value, len(cv.Items))
		for i, item := range cv.Items {
			items[i] = StructuralCloneValue(item)
		}
		return &Array{Items: items}
	case *Set:
		return cv.structuralClone()
	case *Record:
		return cv.structuralClone()
	default:
		return v
	}
}
