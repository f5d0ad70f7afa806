package value

import (
	"strings"

	"github.com/dolthub/swiss"
)

// Set is a mutable unordered collection with stable instance identity.
// Membership is keyed by each element's canonical textual representation
// (which two structurally-equal values always share), bucketed in a swiss
// table the same way Record buckets its keys; a short bucket list resolves
// the rare case of two distinct values sharing one printed form.
type Set struct {
	buckets *swiss.Map[string, []Value]
	size    int
}

func NewSet(items []Value) *Set {
	s := &Set{buckets: swiss.NewMap[string, []Value](uint32(len(items) + 1))}
	for _, item := range items {
		s.Insert(item)
	}
	return s
}

func (*Set) Kind() Kind { return KindSet }

func (s *Set) String() string {
	var sb strings.Builder
	sb.WriteString("[|")
	first := true
	s.forEach(func(v Value) {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(v.String())
	})
	sb.WriteString("|]")
	return sb.String()
}

func (s *Set) forEach(fn func(Value)) {
	s.buckets.Iter(func(_ string, vs []Value) bool {
		for _, v := range vs {
			fn(v)
		}
		return false
	})
}

// Len returns the number of elements.
func (s *Set) Len() int { return s.size }

// Contains reports whether v is a member, by structural equality.
func (s *Set) Contains(v Value) bool {
	bucket, ok := s.buckets.Get(v.String())
	if !ok {
		return false
	}
	for _, existing := range bucket {
		if StructurallyEqual(existing, v) {
			return true
		}
	}
	return false
}

// Insert adds v if not already present, mutating the set in place.
func (s *Set) Insert(v Value) {
	key := v.String()
	bucket, _ := s.buckets.Get(key)
	for _, existing := range bucket {
		if StructurallyEqual(existing, v) {
			return
		}
	}
	s.buckets.Put(key, append(bucket, v))
	s.size++
}

// Delete removes v if present, reporting whether it was found.
func (s *Set) Delete(v Value) bool {
	key := v.String()
	bucket, ok := s.buckets.Get(key)
	if !ok {
		return false
	}
	for i, existing := range bucket {
		if StructurallyEqual(existing, v) {
			bucket = append(bucket[:i], bucket[i+1:]...)
			if len(bucket) == 0 {
				s.buckets.Delete(key)
			} else {
				s.buckets.Put(key, bucket)
			}
			s.size--
			return true
		}
	}
	return false
}

// Entries materializes the set as a slice of its elements, unwrapped, in
// unspecified order (sets are unordered); the ENTRIES instruction uses
// this directly.
func (s *Set) Entries() []Value {
	out := make([]Value, 0, s.size)
	s.forEach(func(v Value) { out = append(out, v) })
	return out
}

// ShallowClone returns a new *Set sharing the same elements.
func (s *Set) ShallowClone() *Set { return NewSet(s.Entries()) }

func (s *Set) structuralClone() *Set {
	entries := s.Entries()
	cloned := make([]Value, len(entries))
	for i, v := range entries {
		cloned[i] = StructuralCloneValue(v)
	}
	return NewSet(cloned)
}

func (s *Set) equalTo(o *Set) bool {
	if s.size != o.size {
		return false
	}
	equal := true
	s.forEach(func(v Value) {
		if !o.Contains(v) {
			equal = false
		}
	})
	return equal
}

// Glue returns a new set containing the union of s and other.
func (s *Set) Glue(other *Set) *Set {
	out := NewSet(s.Entries())
	other.forEach(func(v Value) { out.Insert(v) })
	return out
}
