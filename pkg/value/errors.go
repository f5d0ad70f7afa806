package value

import "fmt"

// ErrorAtom names one of the canonical runtime error atoms from spec §6/§7.
type ErrorAtom string

const (
	ErrRuntimeTypeError          ErrorAtom = "RuntimeTypeError"
	ErrInvalidAccessor           ErrorAtom = "InvalidAccessor"
	ErrIncorrectArity            ErrorAtom = "IncorrectArity"
	ErrInvalidCall               ErrorAtom = "InvalidCall"
	ErrNotAccessible             ErrorAtom = "NotAccessible"
	ErrNotIterable               ErrorAtom = "NotIterable"
	ErrUnhandledEffect           ErrorAtom = "UnhandledEffect"
	ErrMIA                       ErrorAtom = "MIA"
	ErrNoMatchingFunctionOverload ErrorAtom = "NoMatchingFunctionOverload"
)

// Atom interns the error atom's name, for contexts (like the 'MIA effect
// pushed by ACCESS) that need the bare atom rather than a full Panic struct.
func (e ErrorAtom) Atom() Atom { return Intern(string(e)) }

// Panic is a canonical atom-tagged runtime error value: the thing PANIC
// exits the program with, and what a user-level `panic` expression raises.
type Panic struct {
	*Struct
}

// NewPanic builds an atom-tagged error struct: 'ErrorAtom(detail).
func NewPanic(atom ErrorAtom, detail Value) *Panic {
	return &Panic{Struct: Construct(Intern(string(atom)), detail)}
}

func (p *Panic) Error() string { return p.Struct.String() }

// TypeError builds a 'RuntimeTypeError panic describing an operation that
// received a value of the wrong kind.
func TypeError(op string, got Value) *Panic {
	return NewPanic(ErrRuntimeTypeError, String(fmt.Sprintf("%s: unexpected %s", op, got.Kind())))
}

// NotAccessibleError builds a 'NotAccessible panic for a receiver that
// cannot be indexed at all.
func NotAccessibleError(v Value) *Panic {
	return NewPanic(ErrNotAccessible, String(fmt.Sprintf("value of kind %s is not accessible", v.Kind())))
}

// InvalidAccessorError builds an 'InvalidAccessor panic for a non-integer
// index into a sequence.
func InvalidAccessorError(key Value) *Panic {
	return NewPanic(ErrInvalidAccessor, String(fmt.Sprintf("invalid accessor: %s", key.String())))
}

// NotIterableError builds a 'NotIterable panic.
func NotIterableError(v Value) *Panic {
	return NewPanic(ErrNotIterable, String(fmt.Sprintf("value of kind %s is not iterable", v.Kind())))
}
