package value

import "strings"

// Array is a mutable sequence with stable instance identity: referential
// equality compares the pointer, structural equality recurses over Items.
type Array struct {
	Items []Value
}

func NewArray(items []Value) *Array {
	cp := make([]Value, len(items))
	copy(cp, items)
	return &Array{Items: cp}
}

func (*Array) Kind() Kind { return KindArray }

func (a *Array) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range a.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// ShallowClone returns a new *Array sharing the same elements.
func (a *Array) ShallowClone() *Array { return NewArray(a.Items) }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.Items) }

// At returns the element at i, or ok=false if out of range.
func (a *Array) At(i int) (Value, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}

// Set assigns the element at i in place, returning ok=false if out of range.
func (a *Array) Set(i int, v Value) bool {
	if i < 0 || i >= len(a.Items) {
		return false
	}
	a.Items[i] = v
	return true
}

// Insert appends v to the end of the array, mutating it in place.
func (a *Array) Insert(v Value) { a.Items = append(a.Items, v) }

// Delete removes and returns the element at i, mutating the array in place.
func (a *Array) Delete(i int) (Value, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	v := a.Items[i]
	a.Items = append(a.Items[:i], a.Items[i+1:]...)
	return v, true
}

// Take returns a new array of the first n elements (n is clamped to Len()).
func (a *Array) Take(n int) *Array {
	if n > len(a.Items) {
		n = len(a.Items)
	}
	if n < 0 {
		n = 0
	}
	return NewArray(a.Items[:n])
}

// Skip returns a new array with the first n elements removed.
func (a *Array) Skip(n int) *Array {
	if n > len(a.Items) {
		n = len(a.Items)
	}
	if n < 0 {
		n = 0
	}
	return NewArray(a.Items[n:])
}

// Glue returns a new array with other's elements appended after a's.
func (a *Array) Glue(other *Array) *Array {
	out := make([]Value, 0, len(a.Items)+len(other.Items))
	out = append(out, a.Items...)
	out = append(out, other.Items...)
	return &Array{Items: out}
}
