package value

import (
	"strings"

	"golang.org/x/exp/constraints"
)

// Bits is a length-prefixed bit vector, most-significant bit first. Its
// literal form (parsed by the assembler and printed by String) is a `0b`
// prefix followed by the bits, e.g. `0b101`; a `0bb` prefix is not accepted.
type Bits struct {
	bits []bool
}

func NewBits(bits []bool) Bits {
	cp := make([]bool, len(bits))
	copy(cp, bits)
	return Bits{bits: cp}
}

func (Bits) Kind() Kind { return KindBits }

func (b Bits) Len() int { return len(b.bits) }

func (b Bits) At(i int) (bool, bool) {
	if i < 0 || i >= len(b.bits) {
		return false, false
	}
	return b.bits[i], true
}

func (b Bits) String() string {
	var sb strings.Builder
	sb.WriteString("0b")
	for _, bit := range b.bits {
		if bit {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func zipBits(a, b Bits, op func(x, y bool) bool) Bits {
	n := maxInt(len(a.bits), len(b.bits))
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		var x, y bool
		if i < len(a.bits) {
			x = a.bits[i]
		}
		if i < len(b.bits) {
			y = b.bits[i]
		}
		out[i] = op(x, y)
	}
	return Bits{bits: out}
}

func (a Bits) And(b Bits) Bits { return zipBits(a, b, func(x, y bool) bool { return x && y }) }
func (a Bits) Or(b Bits) Bits  { return zipBits(a, b, func(x, y bool) bool { return x || y }) }
func (a Bits) Xor(b Bits) Bits { return zipBits(a, b, func(x, y bool) bool { return x != y }) }

func (b Bits) Neg() Bits {
	out := make([]bool, len(b.bits))
	for i, bit := range b.bits {
		out[i] = !bit
	}
	return Bits{bits: out}
}

// ShiftLeftExtend shifts left, growing the vector so no bits are lost.
func (b Bits) ShiftLeftExtend(n int) Bits {
	out := make([]bool, len(b.bits)+n)
	copy(out[n:], b.bits)
	return Bits{bits: out}
}

// ShiftLeftContract shifts left, keeping the vector the same length and
// dropping bits shifted off the front.
func (b Bits) ShiftLeftContract(n int) Bits {
	out := make([]bool, len(b.bits))
	for i := range out {
		src := i - n
		if src >= 0 && src < len(b.bits) {
			out[i] = b.bits[src]
		}
	}
	return Bits{bits: out}
}

// ShiftRightExtend shifts right, growing the vector so no bits are lost.
func (b Bits) ShiftRightExtend(n int) Bits {
	out := make([]bool, len(b.bits)+n)
	copy(out, b.bits)
	return Bits{bits: out}
}

// ShiftRightContract shifts right, keeping the vector the same length.
func (b Bits) ShiftRightContract(n int) Bits {
	out := make([]bool, len(b.bits))
	for i := range out {
		src := i + n
		if src < len(b.bits) {
			out[i] = b.bits[src]
		}
	}
	return Bits{bits: out}
}

func (a Bits) Equal(b Bits) bool {
	if len(a.bits) != len(b.bits) {
		return false
	}
	for i := range a.bits {
		if a.bits[i] != b.bits[i] {
			return false
		}
	}
	return true
}

func maxInt[T constraints.Integer](a, b T) T {
	if a > b {
		return a
	}
	return b
}
