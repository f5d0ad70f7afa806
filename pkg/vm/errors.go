package vm

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/lumen-lang/lumen/pkg/value"
)

// PanicError is a user-level program error: the program explicitly ran
// PANIC, or hit a runtime condition the spec defines as a panic (type
// error, bad accessor, incorrect arity, invalid call, unhandled effect).
// It carries the canonical atom-tagged error value so a host can inspect
// it without parsing a message string.
type PanicError struct {
	Value value.Value
	IP    int
	Chunk string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s at %d: %s", e.Chunk, e.IP, e.Value.String())
}

// InternalError reports a VM invariant violation -- a malformed chunk, a
// stack-frame bookkeeping bug, an unresolved chunk reference -- something
// that indicates the bytecode or VM is broken, not that the running
// program behaved badly. Always wraps an underlying cause via
// github.com/pkg/errors so the stack trace survives.
type InternalError struct {
	cause error
	IP    int
	Chunk string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error in %s at %d: %v", e.Chunk, e.IP, e.cause)
}

func (e *InternalError) Unwrap() error { return e.cause }

func newInternal(chunk string, ip int, cause error) *InternalError {
	return &InternalError{cause: cause, IP: ip, Chunk: chunk}
}

func wrapInternal(chunk string, ip int, cause error, msg string) *InternalError {
	return &InternalError{cause: errors.Wrap(cause, msg), IP: ip, Chunk: chunk}
}

// ExecutionFizzledError reports that the last live execution fizzled,
// leaving the VM with no execution to advance and no value to report.
var ExecutionFizzledError = errors.New("execution fizzled with no value produced")

// incorrectArity builds the 'IncorrectArity panic raised when a callable
// is invoked with the wrong number of arguments for its tag.
func incorrectArity(detail string) *value.Panic {
	return value.NewPanic(value.ErrIncorrectArity, value.String(detail))
}

// invalidCall builds the 'InvalidCall panic raised when a callable is
// invoked under the wrong calling-convention tag.
func invalidCall(detail string) *value.Panic {
	return value.NewPanic(value.ErrInvalidCall, value.String(detail))
}

// unhandledEffect builds the 'UnhandledEffect panic for an effect with no
// installed handler. There is no YIELD instruction, and nothing in this
// package calls it.
func unhandledEffect(effect value.Value) *value.Panic {
	return value.NewPanic(value.ErrUnhandledEffect, effect)
}
