// Package vm implements the Lumen bytecode virtual machine: a cooperative,
// single-threaded, FIFO-scheduled executor of bytecode.Chunk instructions
// over a cactus stack, including the calling conventions of procedures,
// functions, rules, modules and continuations, and the shift/reset
// primitives codegen uses to lower effect handlers.
//
// Execution loop: fetch the instruction at ip, advance ip, dispatch; on
// FIZZLE drop the current execution and rotate to the next; on an empty
// queue, report ExecutionFizzledError. EXIT and PANIC end the whole VM.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/lumen-lang/lumen/pkg/bytecode"
	"github.com/lumen-lang/lumen/pkg/stack"
	"github.com/lumen-lang/lumen/pkg/value"
)

// VM executes a Program's chunks against a FIFO of cooperative Executions.
type VM struct {
	Program *Program
	Debug   io.Writer
	queue   []*Execution
}

// New creates a VM for the given program. By default DEBUG instructions
// write to os.Stderr, matching the host's own terminal.
func New(p *Program) *VM {
	return &VM{Program: p, Debug: os.Stderr}
}

// Run starts a single execution at the program's entry chunk, instruction
// zero, and drives the FIFO scheduler until EXIT, PANIC, or the queue runs
// dry. On EXIT it returns the exited value; on PANIC a *PanicError; if
// every execution fizzles without exiting, ExecutionFizzledError.
func (vm *VM) Run() (value.Value, error) {
	vm.queue = []*Execution{newEntryExecution(vm.Program.Entry.Name)}
	return vm.drive()
}

// RunFrom starts a single execution calling entry with args (typically
// the program's exported entry procedure), instead of ip zero -- the
// host-embedding path described in the external interfaces.
func (vm *VM) RunFrom(entry value.Callable, args []value.Value) (value.Value, error) {
	exec := newEntryExecution(vm.Program.Entry.Name)
	vm.queue = []*Execution{exec}
	if err := vm.invoke(exec, entry, args, false); err != nil {
		return nil, err
	}
	return vm.drive()
}

func (vm *VM) drive() (value.Value, error) {
	for len(vm.queue) > 0 {
		exec := vm.queue[0]
		result, fizzled, err := vm.runExecution(exec)
		if err != nil {
			return nil, err
		}
		if fizzled {
			vm.queue = vm.queue[1:]
			continue
		}
		return result, nil
	}
	return nil, ExecutionFizzledError
}

// runExecution runs exec until it exits (returns a value, fizzled==false),
// fizzles (fizzled==true), or errors (panic/internal).
func (vm *VM) runExecution(exec *Execution) (value.Value, bool, error) {
	for {
		chunk, err := vm.Program.chunk(exec.chunk)
		if err != nil {
			return nil, false, newInternal(exec.chunk, exec.ip, err)
		}
		instr, ok := chunk.At(exec.ip)
		if !ok {
			return nil, false, wrapInternal(exec.chunk, exec.ip, errors.New("ip out of range"), "fetch")
		}
		exec.ip++
		outcome, result, err := vm.step(exec, chunk, instr)
		if err != nil {
			return nil, false, err
		}
		switch outcome {
		case stepContinue:
			continue
		case stepFizzle:
			return nil, true, nil
		case stepExit:
			return result, false, nil
		case stepBranch:
			vm.queue = append(vm.queue, result.(*Execution))
			continue
		}
	}
}

type stepOutcome int

const (
	stepContinue stepOutcome = iota
	stepFizzle
	stepExit
	stepBranch
)

func (vm *VM) step(exec *Execution, chunk *bytecode.Chunk, instr bytecode.Instruction) (stepOutcome, any, error) {
	s := exec.stack
	switch instr.Op {

	case bytecode.Const:
		v, ok := chunk.Constant(instr.Operand)
		if !ok {
			return 0, nil, wrapInternal(exec.chunk, exec.ip, errors.New("bad constant index"), "CONST")
		}
		s.Push(v)

	case bytecode.Copy:
		top, err := s.PeekAt(s.Len() - 1)
		if err != nil {
			return 0, nil, wrapInternal(exec.chunk, exec.ip, err, "COPY")
		}
		v, err := top.Value()
		if err != nil {
			return 0, nil, wrapInternal(exec.chunk, exec.ip, err, "COPY")
		}
		s.Push(v)

	case bytecode.Clone:
		v, err := vm.popValue(exec)
		if err != nil {
			return 0, nil, err
		}
		s.Push(value.ShallowCloneValue(v))

	case bytecode.Cloned:
		v, err := vm.popValue(exec)
		if err != nil {
			return 0, nil, err
		}
		s.Push(value.StructuralCloneValue(v))

	case bytecode.Pop:
		if _, err := s.Pop(); err != nil {
			return 0, nil, wrapInternal(exec.chunk, exec.ip, err, "POP")
		}

	case bytecode.Swap:
		top, err := s.PopN(2)
		if err != nil {
			return 0, nil, wrapInternal(exec.chunk, exec.ip, err, "SWAP")
		}
		s.Attach([]value.Value{mustValue(top[1]), mustValue(top[0])})

	case bytecode.Slide:
		if err := s.Slide(instr.Operand); err != nil {
			return 0, nil, wrapInternal(exec.chunk, exec.ip, err, "SLIDE")
		}

	case bytecode.TypeOf:
		v, err := vm.popValue(exec)
		if err != nil {
			return 0, nil, err
		}
		s.Push(v.Kind().Atom())

	case bytecode.Var:
		s.PushUnset()

	case bytecode.LoadLocal:
		v, err := s.Local(instr.Operand)
		if err != nil {
			return 0, nil, vm.runtimeTypeError(exec, "LOADL", err)
		}
		s.Push(v)

	case bytecode.SetLocal:
		v, err := vm.peekValue(exec)
		if err != nil {
			return 0, nil, err
		}
		if err := s.SetLocal(instr.Operand, v); err != nil {
			return 0, nil, wrapInternal(exec.chunk, exec.ip, err, "SETL")
		}

	case bytecode.InitLocal:
		v, err := vm.popValue(exec)
		if err != nil {
			return 0, nil, err
		}
		ok, err := s.InitLocal(instr.Operand, v)
		if err != nil {
			return 0, nil, wrapInternal(exec.chunk, exec.ip, err, "INITL")
		}
		s.Push(value.Boolean(ok))

	case bytecode.UnsetLocal:
		if err := s.UnsetLocal(instr.Operand); err != nil {
			return 0, nil, wrapInternal(exec.chunk, exec.ip, err, "UNSETL")
		}

	case bytecode.IsSetLocal:
		ok, err := s.IsSetLocal(instr.Operand)
		if err != nil {
			return 0, nil, wrapInternal(exec.chunk, exec.ip, err, "ISSETL")
		}
		s.Push(value.Boolean(ok))

	case bytecode.LoadRegister:
		s.Push(vm.register(exec, instr.Operand))

	case bytecode.SetRegister:
		v, err := vm.peekValue(exec)
		if err != nil {
			return 0, nil, err
		}
		vm.setRegister(exec, instr.Operand, v)

	case bytecode.Add, bytecode.Sub, bytecode.Mul, bytecode.Div, bytecode.IntDiv, bytecode.Rem, bytecode.Pow:
		return 0, nil, vm.arith(exec, instr.Op)

	case bytecode.Neg:
		n, err := vm.popNumber(exec, "NEG")
		if err != nil {
			return 0, nil, err
		}
		s.Push(n.Neg())

	case bytecode.Not:
		b, err := vm.popBool(exec, "NOT")
		if err != nil {
			return 0, nil, err
		}
		s.Push(value.Boolean(!bool(b)))

	case bytecode.And, bytecode.Or:
		return 0, nil, vm.logic(exec, instr.Op)

	case bytecode.BitAnd, bytecode.BitOr, bytecode.BitXor:
		return 0, nil, vm.bitwise(exec, instr.Op)

	case bytecode.BitNeg:
		b, err := vm.popBits(exec, "BNEG")
		if err != nil {
			return 0, nil, err
		}
		s.Push(b.Neg())

	case bytecode.LeftShift, bytecode.RightShift:
		return 0, nil, vm.shift(exec, instr.Op)

	case bytecode.Leq, bytecode.Lt, bytecode.Geq, bytecode.Gt:
		return 0, nil, vm.compare(exec, instr.Op)

	case bytecode.RefEq, bytecode.RefNeq:
		return 0, nil, vm.refCompare(exec, instr.Op)

	case bytecode.ValEq, bytecode.ValNeq:
		return 0, nil, vm.valCompare(exec, instr.Op)

	case bytecode.Access:
		key, recv, err := vm.pop2(exec)
		if err != nil {
			return 0, nil, err
		}
		result, mia, err := value.Access(recv, key)
		if err != nil {
			return 0, nil, vm.panicked(exec, err)
		}
		if mia {
			s.Push(value.ErrMIA.Atom())
		} else {
			s.Push(result)
		}

	case bytecode.Assign:
		val, key, recv, err := vm.pop3(exec)
		if err != nil {
			return 0, nil, err
		}
		result, err := value.Assign(recv, key, val)
		if err != nil {
			return 0, nil, vm.panicked(exec, err)
		}
		s.Push(result)

	case bytecode.Insert:
		v, recv, err := vm.pop2(exec)
		if err != nil {
			return 0, nil, err
		}
		result, err := value.Insert(recv, v)
		if err != nil {
			return 0, nil, vm.panicked(exec, err)
		}
		s.Push(result)

	case bytecode.Delete:
		key, recv, err := vm.pop2(exec)
		if err != nil {
			return 0, nil, err
		}
		result, err := value.Delete(recv, key)
		if err != nil {
			return 0, nil, vm.panicked(exec, err)
		}
		s.Push(result)

	case bytecode.Contains:
		key, recv, err := vm.pop2(exec)
		if err != nil {
			return 0, nil, err
		}
		ok, err := value.Contains(recv, key)
		if err != nil {
			return 0, nil, vm.panicked(exec, err)
		}
		s.Push(value.Boolean(ok))

	case bytecode.Entries:
		recv, err := vm.popValue(exec)
		if err != nil {
			return 0, nil, err
		}
		entries, err := value.Entries(recv)
		if err != nil {
			return 0, nil, vm.panicked(exec, err)
		}
		s.Push(entries)

	case bytecode.Length:
		recv, err := vm.popValue(exec)
		if err != nil {
			return 0, nil, err
		}
		n, err := value.Length(recv)
		if err != nil {
			return 0, nil, vm.panicked(exec, err)
		}
		s.Push(value.Int(int64(n)))

	case bytecode.Take, bytecode.Skip:
		n, recv, err := vm.popIntAnd(exec, instr.Op.String())
		if err != nil {
			return 0, nil, err
		}
		var result value.Value
		if instr.Op == bytecode.Take {
			result, err = value.Take(recv, n)
		} else {
			result, err = value.Skip(recv, n)
		}
		if err != nil {
			return 0, nil, vm.panicked(exec, err)
		}
		s.Push(result)

	case bytecode.Glue:
		b, a, err := vm.pop2(exec)
		if err != nil {
			return 0, nil, err
		}
		result, err := value.Glue(a, b)
		if err != nil {
			return 0, nil, vm.panicked(exec, err)
		}
		s.Push(result)

	case bytecode.Cons:
		b, a, err := vm.pop2(exec)
		if err != nil {
			return 0, nil, err
		}
		s.Push(value.Cons(a, b))

	case bytecode.Uncons:
		v, err := vm.popValue(exec)
		if err != nil {
			return 0, nil, err
		}
		t, ok := v.(*value.Tuple)
		if !ok {
			return 0, nil, vm.panicked(exec, value.TypeError("UNCONS", v))
		}
		s.Push(t.First)
		s.Push(t.Second)

	case bytecode.First:
		v, err := vm.popValue(exec)
		if err != nil {
			return 0, nil, err
		}
		t, ok := v.(*value.Tuple)
		if !ok {
			return 0, nil, vm.panicked(exec, value.TypeError("FIRST", v))
		}
		s.Push(t.First)

	case bytecode.Second:
		v, err := vm.popValue(exec)
		if err != nil {
			return 0, nil, err
		}
		t, ok := v.(*value.Tuple)
		if !ok {
			return 0, nil, vm.panicked(exec, value.TypeError("SECOND", v))
		}
		s.Push(t.Second)

	case bytecode.Construct:
		inner, tag, err := vm.pop2(exec)
		if err != nil {
			return 0, nil, err
		}
		a, ok := tag.(value.Atom)
		if !ok {
			return 0, nil, vm.panicked(exec, value.TypeError("CONSTRUCT", tag))
		}
		s.Push(value.Construct(a, inner))

	case bytecode.Destruct:
		v, err := vm.popValue(exec)
		if err != nil {
			return 0, nil, err
		}
		st, ok := v.(*value.Struct)
		if !ok {
			return 0, nil, vm.panicked(exec, value.TypeError("DESTRUCT", v))
		}
		tag, inner := value.Destruct(st)
		s.Push(tag)
		s.Push(inner)

	case bytecode.Call:
		return vm.doCall(exec, instr.Operand, false)

	case bytecode.Become:
		return vm.doCall(exec, instr.Operand, true)

	case bytecode.Return:
		return vm.doReturn(exec)

	case bytecode.Close:
		return 0, nil, vm.doClose(exec, instr.Operand)

	case bytecode.Shift:
		return 0, nil, vm.doShift(exec, instr.Operand)

	case bytecode.Jump:
		exec.ip = bytecode.Target(exec.ip-1, instr.Operand)

	case bytecode.JumpIfFalse:
		cond, err := vm.popBool(exec, "JUMPF")
		if err != nil {
			return 0, nil, err
		}
		if !bool(cond) {
			exec.ip = bytecode.Target(exec.ip-1, instr.Operand)
		}

	case bytecode.Branch:
		return vm.doBranch(exec)

	case bytecode.Fizzle:
		return stepFizzle, nil, nil

	case bytecode.Exit:
		v, err := vm.popValue(exec)
		if err != nil {
			return 0, nil, err
		}
		return stepExit, v, nil

	case bytecode.Panic:
		v, err := vm.popValue(exec)
		if err != nil {
			return 0, nil, err
		}
		return 0, nil, &PanicError{Value: v, IP: exec.ip - 1, Chunk: exec.chunk}

	case bytecode.LoadChunk:
		v, ok := chunk.Constant(instr.Operand)
		if !ok {
			return 0, nil, wrapInternal(exec.chunk, exec.ip, errors.New("bad constant index"), "CHUNK")
		}
		name, ok := v.(value.String)
		if !ok {
			return 0, nil, vm.panicked(exec, value.TypeError("CHUNK", v))
		}
		if _, err := vm.Program.chunk(string(name)); err != nil {
			return 0, nil, newInternal(exec.chunk, exec.ip, err)
		}
		s.Push(&value.Procedure{Arity: 0, IP: 0, Chunk: string(name)})

	case bytecode.Debug:
		top, err := s.PeekAt(s.Len() - 1)
		if err != nil {
			return 0, nil, wrapInternal(exec.chunk, exec.ip, err, "DEBUG")
		}
		v, _ := top.Value()
		fmt.Fprintln(vm.Debug, v.String())

	default:
		return 0, nil, wrapInternal(exec.chunk, exec.ip, errors.Errorf("unimplemented opcode %s", instr.Op), "dispatch")
	}
	return stepContinue, nil, nil
}

func mustValue(s stack.Slot) value.Value {
	v, _ := s.Value()
	return v
}
