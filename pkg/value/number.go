package value

import (
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

// Number is an arbitrary-precision complex rational. Real, rational,
// integer, and complex cases are distinguished so arithmetic on integers
// stays integer: Im is nil for a real number, and Re.IsInt() tells whether
// the real part (or, for a real number, the whole value) is an integer.
type Number struct {
	Re *big.Rat
	Im *big.Rat // nil for a real number
}

func (*Number) Kind() Kind { return KindNumber }

// IsReal reports whether the number has no imaginary component.
func (n *Number) IsReal() bool { return n.Im == nil || n.Im.Sign() == 0 }

// IsInteger reports whether the number is real and has an integral value.
func (n *Number) IsInteger() bool { return n.IsReal() && n.Re.IsInt() }

func (n *Number) String() string {
	if n.IsReal() {
		return formatRat(n.Re)
	}
	sign := "+"
	im := new(big.Rat).Set(n.Im)
	if im.Sign() < 0 {
		sign = "-"
		im.Neg(im)
	}
	return fmt.Sprintf("%s%s%si", formatRat(n.Re), sign, formatRat(im))
}

func formatRat(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	return r.RatString()
}

// Int builds a Number from an int64.
func Int(n int64) *Number { return &Number{Re: new(big.Rat).SetInt64(n)} }

// Rational builds an exact rational a/b.
func Rational(a, b int64) *Number { return &Number{Re: big.NewRat(a, b)} }

// Real builds a real number from a *big.Rat, taking ownership of it.
func Real(r *big.Rat) *Number { return &Number{Re: r} }

// Complex builds a complex number from real and imaginary *big.Rat parts.
func Complex(re, im *big.Rat) *Number { return &Number{Re: re, Im: im} }

var (
	ErrDivideByZero = errors.New("division by zero")
	ErrNotInteger   = errors.New("number is not an integer")
)

func (n *Number) Add(o *Number) *Number {
	re := new(big.Rat).Add(n.Re, o.Re)
	if n.IsReal() && o.IsReal() {
		return &Number{Re: re}
	}
	im := new(big.Rat).Add(n.imOrZero(), o.imOrZero())
	return &Number{Re: re, Im: im}
}

func (n *Number) Sub(o *Number) *Number {
	re := new(big.Rat).Sub(n.Re, o.Re)
	if n.IsReal() && o.IsReal() {
		return &Number{Re: re}
	}
	im := new(big.Rat).Sub(n.imOrZero(), o.imOrZero())
	return &Number{Re: re, Im: im}
}

func (n *Number) Mul(o *Number) *Number {
	if n.IsReal() && o.IsReal() {
		return &Number{Re: new(big.Rat).Mul(n.Re, o.Re)}
	}
	a, b := n.Re, n.imOrZero()
	c, d := o.Re, o.imOrZero()
	re := new(big.Rat).Sub(new(big.Rat).Mul(a, c), new(big.Rat).Mul(b, d))
	im := new(big.Rat).Add(new(big.Rat).Mul(a, d), new(big.Rat).Mul(b, c))
	return &Number{Re: re, Im: im}
}

func (n *Number) imOrZero() *big.Rat {
	if n.Im == nil {
		return new(big.Rat)
	}
	return n.Im
}

// Div computes exact complex-rational division.
func (n *Number) Div(o *Number) (*Number, error) {
	if o.IsReal() && o.Re.Sign() == 0 {
		return nil, ErrDivideByZero
	}
	if n.IsReal() && o.IsReal() {
		return &Number{Re: new(big.Rat).Quo(n.Re, o.Re)}, nil
	}
	c, d := o.Re, o.imOrZero()
	denom := new(big.Rat).Add(new(big.Rat).Mul(c, c), new(big.Rat).Mul(d, d))
	if denom.Sign() == 0 {
		return nil, ErrDivideByZero
	}
	a, b := n.Re, n.imOrZero()
	reNum := new(big.Rat).Add(new(big.Rat).Mul(a, c), new(big.Rat).Mul(b, d))
	imNum := new(big.Rat).Sub(new(big.Rat).Mul(b, c), new(big.Rat).Mul(a, d))
	return &Number{
		Re: new(big.Rat).Quo(reNum, denom),
		Im: new(big.Rat).Quo(imNum, denom),
	}, nil
}

// IntDiv computes integer (truncating towards zero is not used; Trilogy
// rounds towards negative infinity) division on two integers.
func (n *Number) IntDiv(o *Number) (*Number, error) {
	if !n.IsInteger() || !o.IsInteger() {
		return nil, ErrNotInteger
	}
	if o.Re.Sign() == 0 {
		return nil, ErrDivideByZero
	}
	a, b := n.Re.Num(), o.Re.Num()
	return &Number{Re: new(big.Rat).SetInt(floorDiv(a, b))}, nil
}

func floorDiv(a, b *big.Int) *big.Int {
	q, m := new(big.Int), new(big.Int)
	q.QuoRem(a, b, m)
	if m.Sign() != 0 && (m.Sign() < 0) != (b.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return q
}

// Rem computes the remainder of integer division, matching the sign of the
// divisor (floored division remainder).
func (n *Number) Rem(o *Number) (*Number, error) {
	if !n.IsInteger() || !o.IsInteger() {
		return nil, ErrNotInteger
	}
	if o.Re.Sign() == 0 {
		return nil, ErrDivideByZero
	}
	a, b := n.Re.Num(), o.Re.Num()
	q := floorDiv(a, b)
	r := new(big.Int).Sub(a, new(big.Int).Mul(q, b))
	return &Number{Re: new(big.Rat).SetInt(r)}, nil
}

// Pow raises n to an integer power o. Fractional/complex exponents are not
// representable exactly as complex rationals and are rejected.
func (n *Number) Pow(o *Number) (*Number, error) {
	if !o.IsInteger() {
		return nil, ErrNotInteger
	}
	exp := o.Re.Num()
	if exp.Sign() == 0 {
		return &Number{Re: big.NewRat(1, 1)}, nil
	}
	neg := exp.Sign() < 0
	e := new(big.Int).Abs(exp)
	result := &Number{Re: big.NewRat(1, 1)}
	base := n
	one := big.NewInt(1)
	zero := big.NewInt(0)
	for e.Cmp(zero) > 0 {
		if new(big.Int).And(e, one).Sign() != 0 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		e.Rsh(e, 1)
	}
	if neg {
		return (&Number{Re: big.NewRat(1, 1)}).Div(result)
	}
	return result, nil
}

func (n *Number) Neg() *Number {
	re := new(big.Rat).Neg(n.Re)
	if n.IsReal() {
		return &Number{Re: re}
	}
	return &Number{Re: re, Im: new(big.Rat).Neg(n.Im)}
}

// Cmp orders two real numbers; complex numbers are not ordered.
func (n *Number) Cmp(o *Number) (int, error) {
	if !n.IsReal() || !o.IsReal() {
		return 0, errors.New("complex numbers are not ordered")
	}
	return n.Re.Cmp(o.Re), nil
}

func (n *Number) Equal(o *Number) bool {
	if n.IsReal() != o.IsReal() {
		return false
	}
	if n.Re.Cmp(o.Re) != 0 {
		return false
	}
	if n.IsReal() {
		return true
	}
	return n.Im.Cmp(o.Im) == 0
}
