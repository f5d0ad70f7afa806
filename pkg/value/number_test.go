package value

import "testing"

func TestNumberArithmeticStaysInteger(t *testing.T) {
	sum := Int(1).Add(Int(2))
	if !sum.IsInteger() {
		t.Fatalf("1 + 2 should stay an integer")
	}
	if sum.Re.Num().Int64() != 3 {
		t.Fatalf("expected 3, got %s", sum.String())
	}
}

func TestNumberDivideByZero(t *testing.T) {
	_, err := Int(5).Div(Int(0))
	if err != ErrDivideByZero {
		t.Fatalf("expected divide by zero error, got %v", err)
	}
}

func TestNumberRationalDivision(t *testing.T) {
	q, err := Int(1).Div(Int(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.IsInteger() {
		t.Fatalf("1/3 should not be an integer")
	}
}

func TestNumberComplexArithmetic(t *testing.T) {
	a := Complex(Rational(1, 1).Re, Rational(2, 1).Re)
	b := Complex(Rational(3, 1).Re, Rational(-1, 1).Re)
	sum := a.Add(b)
	if sum.IsReal() {
		t.Fatalf("sum of two complex numbers with nonzero imaginary parts should be complex")
	}
}

func TestNumberFloorDivision(t *testing.T) {
	q, err := Int(-7).IntDiv(Int(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Re.Num().Int64() != -4 {
		t.Fatalf("expected floor(-7/2) == -4, got %s", q.String())
	}
}

func TestNumberPower(t *testing.T) {
	r, err := Int(2).Pow(Int(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Re.Num().Int64() != 1024 {
		t.Fatalf("expected 1024, got %s", r.String())
	}
}

func TestNumberOrdering(t *testing.T) {
	c, err := Int(1).Cmp(Int(2))
	if err != nil || c >= 0 {
		t.Fatalf("expected 1 < 2")
	}
}
