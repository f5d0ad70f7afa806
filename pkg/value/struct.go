package value

import "fmt"

// Struct is an atom tag wrapping an inner value ('name(value)).
type Struct struct {
	Tag   Atom
	Inner Value
}

func (*Struct) Kind() Kind { return KindStruct }

func (s *Struct) String() string {
	return fmt.Sprintf("%s(%s)", s.Tag.String(), s.Inner.String())
}

// Construct builds a struct from a tag atom and a wrapped value.
func Construct(tag Atom, inner Value) *Struct { return &Struct{Tag: tag, Inner: inner} }

// Destruct takes a struct apart into its tag and wrapped value.
func Destruct(s *Struct) (Atom, Value) { return s.Tag, s.Inner }
