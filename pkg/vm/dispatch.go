package vm

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/lumen-lang/lumen/pkg/bytecode"
	"github.com/lumen-lang/lumen/pkg/stack"
	"github.com/lumen-lang/lumen/pkg/value"
)

func (vm *VM) popValue(exec *Execution) (value.Value, error) {
	v, err := exec.stack.PopValue()
	if err != nil {
		return nil, newInternal(exec.chunk, exec.ip, err)
	}
	return v, nil
}

func (vm *VM) peekValue(exec *Execution) (value.Value, error) {
	s, err := exec.stack.PeekAt(exec.stack.Len() - 1)
	if err != nil {
		return nil, newInternal(exec.chunk, exec.ip, err)
	}
	v, err := s.Value()
	if err != nil {
		return nil, newInternal(exec.chunk, exec.ip, err)
	}
	return v, nil
}

func (vm *VM) pop2(exec *Execution) (top, below value.Value, err error) {
	slots, err := exec.stack.PopN(2)
	if err != nil {
		return nil, nil, newInternal(exec.chunk, exec.ip, err)
	}
	below, err = slots[0].Value()
	if err != nil {
		return nil, nil, newInternal(exec.chunk, exec.ip, err)
	}
	top, err = slots[1].Value()
	if err != nil {
		return nil, nil, newInternal(exec.chunk, exec.ip, err)
	}
	return top, below, nil
}

func (vm *VM) pop3(exec *Execution) (top, mid, bottom value.Value, err error) {
	slots, err := exec.stack.PopN(3)
	if err != nil {
		return nil, nil, nil, newInternal(exec.chunk, exec.ip, err)
	}
	bottom, err = slots[0].Value()
	if err != nil {
		return nil, nil, nil, newInternal(exec.chunk, exec.ip, err)
	}
	mid, err = slots[1].Value()
	if err != nil {
		return nil, nil, nil, newInternal(exec.chunk, exec.ip, err)
	}
	top, err = slots[2].Value()
	if err != nil {
		return nil, nil, nil, newInternal(exec.chunk, exec.ip, err)
	}
	return top, mid, bottom, nil
}

func (vm *VM) popNumber(exec *Execution, op string) (*value.Number, error) {
	v, err := vm.popValue(exec)
	if err != nil {
		return nil, err
	}
	n, ok := v.(*value.Number)
	if !ok {
		return nil, vm.panicked(exec, value.TypeError(op, v))
	}
	return n, nil
}

func (vm *VM) popBool(exec *Execution, op string) (value.Boolean, error) {
	v, err := vm.popValue(exec)
	if err != nil {
		return false, err
	}
	b, ok := v.(value.Boolean)
	if !ok {
		return false, vm.panicked(exec, value.TypeError(op, v))
	}
	return b, nil
}

func (vm *VM) popBits(exec *Execution, op string) (value.Bits, error) {
	v, err := vm.popValue(exec)
	if err != nil {
		return value.Bits{}, err
	}
	b, ok := v.(value.Bits)
	if !ok {
		return value.Bits{}, vm.panicked(exec, value.TypeError(op, v))
	}
	return b, nil
}

// popIntAnd pops a count then a receiver, in that order (TAKE/SKIP push
// the receiver first, then the count).
func (vm *VM) popIntAnd(exec *Execution, op string) (int, value.Value, error) {
	n, recv, err := vm.pop2(exec)
	if err != nil {
		return 0, nil, err
	}
	num, ok := n.(*value.Number)
	if !ok || !num.IsInteger() {
		return 0, nil, vm.panicked(exec, value.TypeError(op, n))
	}
	return int(num.Re.Num().Int64()), recv, nil
}

func (vm *VM) panicked(exec *Execution, err error) error {
	if p, ok := err.(*value.Panic); ok {
		return &PanicError{Value: p, IP: exec.ip - 1, Chunk: exec.chunk}
	}
	return newInternal(exec.chunk, exec.ip, err)
}

func (vm *VM) runtimeTypeError(exec *Execution, op string, cause error) error {
	return &PanicError{
		Value: value.NewPanic(value.ErrRuntimeTypeError, value.String(op+": "+cause.Error())),
		IP:    exec.ip - 1,
		Chunk: exec.chunk,
	}
}

func (vm *VM) register(exec *Execution, idx int) value.Value {
	switch idx {
	case int(RegisterHandler):
		return exec.handler
	default:
		return exec.module
	}
}

func (vm *VM) setRegister(exec *Execution, idx int, v value.Value) {
	switch idx {
	case int(RegisterHandler):
		exec.handler = v
	default:
		exec.module = v
	}
}

func (vm *VM) arith(exec *Execution, op bytecode.Opcode) error {
	b, err := vm.popNumber(exec, op.String())
	if err != nil {
		return err
	}
	a, err := vm.popNumber(exec, op.String())
	if err != nil {
		return err
	}
	var result *value.Number
	switch op {
	case bytecode.Add:
		result = a.Add(b)
	case bytecode.Sub:
		result = a.Sub(b)
	case bytecode.Mul:
		result = a.Mul(b)
	case bytecode.Div:
		result, err = a.Div(b)
	case bytecode.IntDiv:
		result, err = a.IntDiv(b)
	case bytecode.Rem:
		result, err = a.Rem(b)
	case bytecode.Pow:
		result, err = a.Pow(b)
	}
	if err != nil {
		return vm.panicked(exec, value.TypeError(op.String(), value.String(err.Error())))
	}
	exec.stack.Push(result)
	return nil
}

func (vm *VM) logic(exec *Execution, op bytecode.Opcode) error {
	b, err := vm.popBool(exec, op.String())
	if err != nil {
		return err
	}
	a, err := vm.popBool(exec, op.String())
	if err != nil {
		return err
	}
	var result bool
	if op == bytecode.And {
		result = bool(a) && bool(b)
	} else {
		result = bool(a) || bool(b)
	}
	exec.stack.Push(value.Boolean(result))
	return nil
}

func (vm *VM) bitwise(exec *Execution, op bytecode.Opcode) error {
	b, err := vm.popBits(exec, op.String())
	if err != nil {
		return err
	}
	a, err := vm.popBits(exec, op.String())
	if err != nil {
		return err
	}
	var result value.Bits
	switch op {
	case bytecode.BitAnd:
		result = a.And(b)
	case bytecode.BitOr:
		result = a.Or(b)
	case bytecode.BitXor:
		result = a.Xor(b)
	}
	exec.stack.Push(result)
	return nil
}

// shift maps the single LSHIFT/RSHIFT opcodes onto Bits' contracting
// variants: the vector's length is a meaningful part of its value (it is
// what LENGTH reports and what bit-for-bit ACCESS indexes against), so a
// plain shift keeps it fixed and lets bits fall off the end, matching how
// a fixed-width shift behaves in every language that has one. No
// instruction extends a bit vector: GLUE, TAKE and SKIP do not accept bits.
func (vm *VM) shift(exec *Execution, op bytecode.Opcode) error {
	n, err := vm.popNumber(exec, op.String())
	if err != nil {
		return err
	}
	if !n.IsInteger() {
		return vm.panicked(exec, value.TypeError(op.String(), n))
	}
	b, err := vm.popBits(exec, op.String())
	if err != nil {
		return err
	}
	count := int(n.Re.Num().Int64())
	var result value.Bits
	if op == bytecode.LeftShift {
		result = b.ShiftLeftContract(count)
	} else {
		result = b.ShiftRightContract(count)
	}
	exec.stack.Push(result)
	return nil
}

func (vm *VM) compare(exec *Execution, op bytecode.Opcode) error {
	b, err := vm.popValue(exec)
	if err != nil {
		return err
	}
	a, err := vm.popValue(exec)
	if err != nil {
		return err
	}
	c, ok := value.Compare(a, b)
	if !ok {
		return vm.panicked(exec, value.TypeError(op.String(), b))
	}
	var result bool
	switch op {
	case bytecode.Leq:
		result = c <= 0
	case bytecode.Lt:
		result = c < 0
	case bytecode.Geq:
		result = c >= 0
	case bytecode.Gt:
		result = c > 0
	}
	exec.stack.Push(value.Boolean(result))
	return nil
}

func (vm *VM) refCompare(exec *Execution, op bytecode.Opcode) error {
	b, err := vm.popValue(exec)
	if err != nil {
		return err
	}
	a, err := vm.popValue(exec)
	if err != nil {
		return err
	}
	eq := value.ReferentiallyEqual(a, b)
	if op == bytecode.RefNeq {
		eq = !eq
	}
	exec.stack.Push(value.Boolean(eq))
	return nil
}

func (vm *VM) valCompare(exec *Execution, op bytecode.Opcode) error {
	b, err := vm.popValue(exec)
	if err != nil {
		return err
	}
	a, err := vm.popValue(exec)
	if err != nil {
		return err
	}
	eq := value.StructurallyEqual(a, b)
	if op == bytecode.ValNeq {
		eq = !eq
	}
	exec.stack.Push(value.Boolean(eq))
	return nil
}

// doCall implements both CALL and BECOME: pop n args then the callable
// beneath them (the callable is pushed first by codegen, so it ends up
// deepest), check arity against the calling convention, and transfer
// control. become=true makes it a tail call: the current frame's return
// record is reused instead of a new one being pushed.
func (vm *VM) doCall(exec *Execution, n int, become bool) (stepOutcome, any, error) {
	slots, err := exec.stack.PopN(n + 1)
	if err != nil {
		return 0, nil, newInternal(exec.chunk, exec.ip, err)
	}
	calleeVal, err := slots[0].Value()
	if err != nil {
		return 0, nil, newInternal(exec.chunk, exec.ip, err)
	}
	args := make([]value.Value, n)
	for i := 1; i <= n; i++ {
		v, err := slots[i].Value()
		if err != nil {
			return 0, nil, newInternal(exec.chunk, exec.ip, err)
		}
		args[i-1] = v
	}

	if cont, ok := calleeVal.(*value.Continuation); ok {
		if n != 1 {
			return 0, nil, vm.panicked(exec, incorrectArity("continuation expects exactly one resumed value"))
		}
		return vm.resumeContinuation(exec, cont, args[0])
	}

	callable, ok := calleeVal.(value.Callable)
	if !ok {
		return 0, nil, vm.panicked(exec, invalidCall("cannot call a non-callable value"))
	}
	if fn, ok := vm.Program.nativeAt(callable.Entry()); ok {
		arity, err := vm.arityOf(exec, callable, n)
		if err != nil {
			return 0, nil, err
		}
		if n != arity {
			return 0, nil, vm.panicked(exec, incorrectArity("expected "+strconv.Itoa(arity)+" arguments"))
		}
		result, err := fn(args)
		if err != nil {
			return 0, nil, vm.panicked(exec, err)
		}
		exec.stack.Push(result)
		return stepContinue, nil, nil
	}
	return vm.enter(exec, callable, args, become)
}

// enter transfers control into callable with args already evaluated,
// pushing the argument locals, and either pushing a new return record
// (call) or reusing the current frame (become). No unlock tag is pushed:
// the callee's stack holds only its arguments above the return record.
func (vm *VM) enter(exec *Execution, callable value.Callable, args []value.Value, become bool) (stepOutcome, any, error) {
	arity, err := vm.arityOf(exec, callable, len(args))
	if err != nil {
		return 0, nil, err
	}
	if len(args) != arity {
		return 0, nil, vm.panicked(exec, incorrectArity("expected "+strconv.Itoa(arity)+" arguments"))
	}

	var ghost []value.Value
	if c, ok := callable.(*value.Closure); ok {
		ghost = c.Upvalues
	}

	targetChunk := callable.ChunkName()
	if targetChunk == "" {
		targetChunk = exec.chunk
	}

	if become {
		ret, err := exec.stack.PopFrame()
		if err != nil {
			return 0, nil, newInternal(exec.chunk, exec.ip, err)
		}
		// Reuse the grandparent return address so RETURN still unwinds to
		// the original caller, but install the new callable's own ghost
		// stack -- a tail call into a different closure must not keep
		// falling back into the caller's upvalues.
		exec.stack.PushReturn(ret.IP, ret.Chunk, ret.Frame, ghost)
	} else {
		exec.stack.PushReturn(exec.ip, exec.chunk, exec.stack.Frame(), ghost)
	}
	for _, a := range args {
		exec.stack.Push(a)
	}
	exec.ip = callable.Entry()
	exec.chunk = targetChunk
	return stepContinue, nil, nil
}

func (vm *VM) arityOf(exec *Execution, callable value.Callable, got int) (int, error) {
	switch c := callable.(type) {
	case *value.Procedure:
		return c.Arity, nil
	case *value.Function:
		return 1, nil
	case *value.Rule:
		return c.Arity, nil
	case *value.Closure:
		return got, nil
	default:
		return 0, vm.panicked(exec, invalidCall("value is not callable"))
	}
}

// resumeContinuation restores a captured continuation's stack snapshot and
// registers, then resumes it at its saved ip with the single resumed value
// pushed on top.
func (vm *VM) resumeContinuation(exec *Execution, cont *value.Continuation, resumed value.Value) (stepOutcome, any, error) {
	snap, ok := cont.Snapshot.(*stack.Branch)
	if !ok {
		return 0, nil, newInternal(exec.chunk, exec.ip, errors.New("continuation snapshot is not a stack branch"))
	}
	exec.stack = snap.Branch()
	exec.module = cont.Module
	exec.handler = cont.Handler
	exec.ip = cont.IP
	exec.chunk = cont.ChunkName()
	exec.stack.Push(resumed)
	return stepContinue, nil, nil
}

// doReturn pops the result, unwinds to the enclosing return record, and
// pushes the result back onto the caller's view of the stack.
func (vm *VM) doReturn(exec *Execution) (stepOutcome, any, error) {
	result, err := vm.popValue(exec)
	if err != nil {
		return 0, nil, err
	}
	ret, err := exec.stack.PopFrame()
	if err != nil {
		return 0, nil, newInternal(exec.chunk, exec.ip, err)
	}
	exec.ip = ret.IP
	exec.chunk = ret.Chunk
	exec.stack.Push(result)
	return stepContinue, nil, nil
}

// doClose captures every local addressable in the current frame (from one
// past the frame pointer to the current top) as a flat upvalue snapshot,
// and pushes a Closure whose entry is the instruction off past this one.
func (vm *VM) doClose(exec *Execution, off int) error {
	frame := exec.stack.Frame()
	top := exec.stack.Len()
	count := top - frame - 1
	if count < 0 {
		count = 0
	}
	upvalues := make([]value.Value, 0, count)
	for i := frame + 1; i < top; i++ {
		v, err := exec.stack.Local(i - frame - 1)
		if err != nil {
			return newInternal(exec.chunk, exec.ip, err)
		}
		upvalues = append(upvalues, v)
	}
	entry := bytecode.Target(exec.ip-1, off)
	exec.stack.Push(&value.Closure{IP: entry, Chunk: exec.chunk, Upvalues: upvalues})
	return nil
}

// doShift captures the current continuation -- a forked snapshot of the
// stack plus the current registers, resuming at the instruction right
// after this one -- pushes it, then jumps unconditionally to off. Codegen
// uses this to implement yield: push the continuation, tail-call the
// installed handler with (effect, continuation), and let a later CALL on
// the continuation resume this point.
func (vm *VM) doShift(exec *Execution, off int) error {
	snapshot := exec.stack.Branch()
	cont := &value.Continuation{
		IP:       exec.ip,
		Chunk:    exec.chunk,
		Snapshot: snapshot,
		Module:   exec.module,
		Handler:  exec.handler,
	}
	exec.stack.Push(cont)
	exec.ip = bytecode.Target(exec.ip-1, off)
	return nil
}

// doBranch pops two zero-arity callables, forks the current execution so
// each callable runs in its own stack branch, continues the current
// execution with the first, and enqueues the fork -- invoking the second
// -- at the tail of the VM's FIFO.
func (vm *VM) doBranch(exec *Execution) (stepOutcome, any, error) {
	first, second, err := vm.pop2(exec)
	if err != nil {
		return 0, nil, err
	}
	firstCallable, ok := first.(value.Callable)
	if !ok {
		return 0, nil, vm.panicked(exec, invalidCall("BRANCH operand is not callable"))
	}
	secondCallable, ok := second.(value.Callable)
	if !ok {
		return 0, nil, vm.panicked(exec, invalidCall("BRANCH operand is not callable"))
	}

	forked := exec.fork()
	if _, _, err := vm.enter(exec, firstCallable, nil, false); err != nil {
		return 0, nil, err
	}
	if _, _, err := vm.enter(forked, secondCallable, nil, false); err != nil {
		return 0, nil, err
	}
	return stepBranch, forked, nil
}

// invoke runs callable(args) to completion against exec's stack by
// pushing a sentinel EXIT-catching frame -- used only for the host entry
// path (RunFrom), where there is no enclosing caller bytecode to return
// into, so the call must itself drive the dispatch loop.
func (vm *VM) invoke(exec *Execution, callable value.Callable, args []value.Value, become bool) error {
	_, _, err := vm.enter(exec, callable, args, become)
	return err
}
