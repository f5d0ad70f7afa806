package value

import (
	"strings"

	"github.com/dolthub/swiss"
)

type recordEntry struct {
	key   Value
	value Value
}

// Record is a mutable key->value map with stable instance identity, backed
// by a swiss table bucketed on the key's canonical textual form (see Set for
// why: it lets any Value, including ones with non-comparable Go
// representations like Bits, serve as a key without reaching for unsafe
// hashing tricks).
type Record struct {
	buckets *swiss.Map[string, []recordEntry]
	size    int
}

func NewRecord() *Record {
	return &Record{buckets: swiss.NewMap[string, []recordEntry](8)}
}

func (*Record) Kind() Kind { return KindRecord }

func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString("{|")
	first := true
	r.forEach(func(k, v Value) {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(k.String())
		sb.WriteString(" => ")
		sb.WriteString(v.String())
	})
	sb.WriteString("|}")
	return sb.String()
}

func (r *Record) forEach(fn func(k, v Value)) {
	r.buckets.Iter(func(_ string, entries []recordEntry) bool {
		for _, e := range entries {
			fn(e.key, e.value)
		}
		return false
	})
}

func (r *Record) Len() int { return r.size }

func (r *Record) Get(key Value) (Value, bool) {
	bucket, _ := r.buckets.Get(key.String())
	for _, e := range bucket {
		if StructurallyEqual(e.key, key) {
			return e.value, true
		}
	}
	return nil, false
}

func (r *Record) Set(key, v Value) {
	k := key.String()
	bucket, _ := r.buckets.Get(k)
	for i, e := range bucket {
		if StructurallyEqual(e.key, key) {
			bucket[i].value = v
			r.buckets.Put(k, bucket)
			return
		}
	}
	r.buckets.Put(k, append(bucket, recordEntry{key: key, value: v}))
	r.size++
}

func (r *Record) Delete(key Value) bool {
	k := key.String()
	bucket, ok := r.buckets.Get(k)
	if !ok {
		return false
	}
	for i, e := range bucket {
		if StructurallyEqual(e.key, key) {
			bucket = append(bucket[:i], bucket[i+1:]...)
			if len(bucket) == 0 {
				r.buckets.Delete(k)
			} else {
				r.buckets.Put(k, bucket)
			}
			r.size--
			return true
		}
	}
	return false
}

func (r *Record) Contains(key Value) bool {
	_, ok := r.Get(key)
	return ok
}

// Entries materializes the record as key:value tuples, in unspecified order.
func (r *Record) Entries() []Value {
	out := make([]Value, 0, r.size)
	r.forEach(func(k, v Value) { out = append(out, Cons(k, v)) })
	return out
}

func (r *Record) ShallowClone() *Record {
	out := NewRecord()
	r.forEach(func(k, v Value) { out.Set(k, v) })
	return out
}

func (r *Record) structuralClone() *Record {
	out := NewRecord()
	r.forEach(func(k, v Value) {
		out.Set(StructuralCloneValue(k), StructuralCloneValue(v))
	})
	return out
}

func (r *Record) equalTo(o *Record) bool {
	if r.size != o.size {
		return false
	}
	equal := true
	r.forEach(func(k, v Value) {
		ov, ok := o.Get(k)
		if !ok || !StructurallyEqual(v, ov) {
			equal = false
		}
	})
	return equal
}

// Glue returns a new record with other's entries overlaid on r's (other
// wins on key collision).
func (r *Record) Glue(other *Record) *Record {
	out := r.ShallowClone()
	other.forEach(func(k, v Value) { out.Set(k, v) })
	return out
}
