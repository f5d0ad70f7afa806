package value

import "fmt"

// Tuple is a two-cell cons, built by CONS and taken apart by UNCONS/FIRST/SECOND.
type Tuple struct {
	First  Value
	Second Value
}

func (*Tuple) Kind() Kind { return KindTuple }

func (t *Tuple) String() string {
	return fmt.Sprintf("(%s:%s)", t.First.String(), t.Second.String())
}

// Cons builds a tuple from its two components.
func Cons(first, second Value) *Tuple { return &Tuple{First: first, Second: second} }
