package value

import "unicode/utf8"

func asInt(key Value) (int, bool) {
	n, ok := key.(*Number)
	if !ok || !n.IsInteger() {
		return 0, false
	}
	return int(n.Re.Num().Int64()), true
}

// Access implements ACCESS: records by key, arrays/strings/bits by integer
// index. mia is true when the index/key is legal but not present (pushes
// the 'MIA effect instead of a value); err is non-nil for a genuinely
// invalid operation (wrong-typed index, or a receiver that can't be
// indexed at all).
func Access(receiver, key Value) (result Value, mia bool, err error) {
	switch r := receiver.(type) {
	case *Record:
		v, ok := r.Get(key)
		if !ok {
			return nil, true, nil
		}
		return v, false, nil
	case *Array:
		i, ok := asInt(key)
		if !ok {
			return nil, false, InvalidAccessorError(key)
		}
		v, ok := r.At(i)
		if !ok {
			return nil, true, nil
		}
		return v, false, nil
	case String:
		i, ok := asInt(key)
		if !ok {
			return nil, false, InvalidAccessorError(key)
		}
		runes := []rune(string(r))
		if i < 0 || i >= len(runes) {
			return nil, true, nil
		}
		return Character(runes[i]), false, nil
	case Bits:
		i, ok := asInt(key)
		if !ok {
			return nil, false, InvalidAccessorError(key)
		}
		bit, found := r.At(i)
		if !found {
			return nil, true, nil
		}
		return Boolean(bit), false, nil
	default:
		return nil, false, NotAccessibleError(receiver)
	}
}

// Assign implements ASSIGN, returning the (possibly new) collection value
// with key bound to v.
func Assign(receiver, key, v Value) (Value, error) {
	switch r := receiver.(type) {
	case *Record:
		r.Set(key, v)
		return r, nil
	case *Array:
		i, ok := asInt(key)
		if !ok {
			return nil, InvalidAccessorError(key)
		}
		if !r.Set(i, v) {
			return nil, NewPanic(ErrInvalidAccessor, String("index out of range"))
		}
		return r, nil
	case String:
		i, ok := asInt(key)
		if !ok {
			return nil, InvalidAccessorError(key)
		}
		ch, ok := v.(Character)
		if !ok {
			return nil, TypeError("ASSIGN", v)
		}
		runes := []rune(string(r))
		if i < 0 || i >= len(runes) {
			return nil, NewPanic(ErrInvalidAccessor, String("index out of range"))
		}
		runes[i] = rune(ch)
		return String(runes), nil
	case Bits:
		i, ok := asInt(key)
		if !ok {
			return nil, InvalidAccessorError(key)
		}
		b, ok := v.(Boolean)
		if !ok {
			return nil, TypeError("ASSIGN", v)
		}
		if i < 0 || i >= r.Len() {
			return nil, NewPanic(ErrInvalidAccessor, String("index out of range"))
		}
		bits := make([]bool, r.Len())
		for j := 0; j < r.Len(); j++ {
			bits[j], _ = r.At(j)
		}
		bits[i] = bool(b)
		return NewBits(bits), nil
	default:
		return nil, NotAccessibleError(receiver)
	}
}

// Insert implements INSERT: append to an array, add to a set.
func Insert(receiver, v Value) (Value, error) {
	switch r := receiver.(type) {
	case *Array:
		r.Insert(v)
		return r, nil
	case *Set:
		r.Insert(v)
		return r, nil
	default:
		return nil, NotAccessibleError(receiver)
	}
}

// Delete implements DELETE: by index for arrays, by key for records, by
// value for sets.
func Delete(receiver, key Value) (Value, error) {
	switch r := receiver.(type) {
	case *Record:
		r.Delete(key)
		return r, nil
	case *Set:
		r.Delete(key)
		return r, nil
	case *Array:
		i, ok := asInt(key)
		if !ok {
			return nil, InvalidAccessorError(key)
		}
		if _, ok := r.Delete(i); !ok {
			return nil, NewPanic(ErrInvalidAccessor, String("index out of range"))
		}
		return r, nil
	default:
		return nil, NotAccessibleError(receiver)
	}
}

// Contains implements CONTAINS.
func Contains(receiver, key Value) (bool, error) {
	switch r := receiver.(type) {
	case *Record:
		return r.Contains(key), nil
	case *Set:
		return r.Contains(key), nil
	case *Array:
		for _, item := range r.Items {
			if StructurallyEqual(item, key) {
				return true, nil
			}
		}
		return false, nil
	case String:
		sub, ok := key.(String)
		if !ok {
			return false, TypeError("CONTAINS", key)
		}
		return utf8.RuneCountInString(string(r)) >= 0 && stringContains(string(r), string(sub)), nil
	default:
		return false, NotAccessibleError(receiver)
	}
}

func stringContains(s, sub string) bool {
	if len(sub) == 0 {
		return true
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// Entries implements ENTRIES: materialize a collection's key/value (or
// just value, for sequences) pairs as an Array.
func Entries(receiver Value) (*Array, error) {
	switch r := receiver.(type) {
	case *Record:
		return NewArray(r.Entries()), nil
	case *Set:
		return NewArray(r.Entries()), nil
	case *Array:
		return r.ShallowClone(), nil
	case String:
		runes := []rune(string(r))
		items := make([]Value, len(runes))
		for i, ch := range runes {
			items[i] = Character(ch)
		}
		return &Array{Items: items}, nil
	default:
		return nil, NotIterableError(receiver)
	}
}

// Length implements LENGTH.
func Length(receiver Value) (int, error) {
	switch r := receiver.(type) {
	case *Record:
		return r.Len(), nil
	case *Set:
		return r.Len(), nil
	case *Array:
		return r.Len(), nil
	case String:
		return utf8.RuneCountInString(string(r)), nil
	case Bits:
		return r.Len(), nil
	default:
		return 0, NotAccessibleError(receiver)
	}
}

// Take implements TAKE: the first n elements of a sequence.
func Take(receiver Value, n int) (Value, error) {
	switch r := receiver.(type) {
	case *Array:
		return r.Take(n), nil
	case String:
		runes := []rune(string(r))
		if n > len(runes) {
			n = len(runes)
		}
		if n < 0 {
			n = 0
		}
		return String(runes[:n]), nil
	default:
		return nil, NotIterableError(receiver)
	}
}

// Skip implements SKIP: a sequence with the first n elements removed.
func Skip(receiver Value, n int) (Value, error) {
	switch r := receiver.(type) {
	case *Array:
		return r.Skip(n), nil
	case String:
		runes := []rune(string(r))
		if n > len(runes) {
			n = len(runes)
		}
		if n < 0 {
			n = 0
		}
		return String(runes[n:]), nil
	default:
		return nil, NotIterableError(receiver)
	}
}

// Glue implements GLUE: concatenate two collections of the same kind.
func Glue(a, b Value) (Value, error) {
	switch av := a.(type) {
	case *Array:
		bv, ok := b.(*Array)
		if !ok {
			return nil, TypeError("GLUE", b)
		}
		return av.Glue(bv), nil
	case *Set:
		bv, ok := b.(*Set)
		if !ok {
			return nil, TypeError("GLUE", b)
		}
		return av.Glue(bv), nil
	case *Record:
		bv, ok := b.(*Record)
		if !ok {
			return nil, TypeError("GLUE", b)
		}
		return av.Glue(bv), nil
	case String:
		bv, ok := b.(String)
		if !ok {
			return nil, TypeError("GLUE", b)
		}
		return av + bv, nil
	default:
		return nil, NotAccessibleError(a)
	}
}
