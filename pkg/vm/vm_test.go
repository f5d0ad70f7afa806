package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/pkg/bytecode"
	"github.com/lumen-lang/lumen/pkg/value"
)

func chunkFromBuilder(t *testing.T, name string, build func(b *bytecode.Builder)) *bytecode.Chunk {
	t.Helper()
	b := bytecode.NewBuilder(name)
	build(b)
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func TestExitAddition(t *testing.T) {
	c := chunkFromBuilder(t, "main", func(b *bytecode.Builder) {
		b.Emit(bytecode.Const, b.Constant(value.Int(1)))
		b.Emit(bytecode.Const, b.Constant(value.Int(2)))
		b.EmitNone(bytecode.Add)
		b.EmitNone(bytecode.Exit)
	})
	result, err := New(NewProgram(c)).Run()
	require.NoError(t, err)
	require.True(t, value.StructurallyEqual(result, value.Int(3)))
}

func TestDivideByZeroPanics(t *testing.T) {
	c := chunkFromBuilder(t, "main", func(b *bytecode.Builder) {
		b.Emit(bytecode.Const, b.Constant(value.Int(5)))
		b.Emit(bytecode.Const, b.Constant(value.Int(0)))
		b.EmitNone(bytecode.Div)
		b.EmitNone(bytecode.Exit)
	})
	_, err := New(NewProgram(c)).Run()
	require.Error(t, err)
	var perr *PanicError
	require.ErrorAs(t, err, &perr)
}

func TestLengthOfSet(t *testing.T) {
	c := chunkFromBuilder(t, "main", func(b *bytecode.Builder) {
		b.Emit(bytecode.Const, b.Constant(value.NewSet([]value.Value{value.Int(1), value.Int(2), value.Int(3)})))
		b.EmitNone(bytecode.Length)
		b.EmitNone(bytecode.Exit)
	})
	result, err := New(NewProgram(c)).Run()
	require.NoError(t, err)
	require.True(t, value.StructurallyEqual(result, value.Int(3)))
}

// TestProcedureCallReturn exercises CALL/RETURN: a two-argument procedure
// that adds its locals and returns the sum.
func TestProcedureCallReturn(t *testing.T) {
	c := chunkFromBuilder(t, "main", func(b *bytecode.Builder) {
		proc := b.EmitToLabel(bytecode.Jump, "main_body")
		_ = proc
		b.Label("add_proc")
		b.Emit(bytecode.LoadLocal, 0)
		b.Emit(bytecode.LoadLocal, 1)
		b.EmitNone(bytecode.Add)
		b.EmitNone(bytecode.Return)

		b.Label("main_body")
		b.Emit(bytecode.Const, b.Constant(&value.Procedure{Arity: 2, IP: 0, Chunk: ""}))
		b.Emit(bytecode.Const, b.Constant(value.Int(10)))
		b.Emit(bytecode.Const, b.Constant(value.Int(20)))
		b.Emit(bytecode.Call, 2)
		b.EmitNone(bytecode.Exit)
	})

	// Patch the procedure constant's IP to the resolved add_proc label,
	// since the Builder interns constants before labels are known and a
	// *value.Procedure can't be re-looked-up by label name after Build.
	addProcIP, ok := c.Labels["add_proc"]
	require.True(t, ok)
	for _, v := range c.Constants {
		if p, ok := v.(*value.Procedure); ok {
			p.IP = addProcIP
		}
	}

	result, err := New(NewProgram(c)).Run()
	require.NoError(t, err)
	require.True(t, value.StructurallyEqual(result, value.Int(30)))
}

// TestClosureIndependence builds two closures, each from its own call to a
// make_adder procedure so each CLOSE only ever sees its own call frame's
// locals, and checks each keeps its own captured x independent of the
// other.
func TestClosureIndependence(t *testing.T) {
	c := chunkFromBuilder(t, "main", func(b *bytecode.Builder) {
		b.EmitToLabel(bytecode.Jump, "main_body")

		b.Label("add_fn")
		b.Emit(bytecode.LoadLocal, 1) // captured x, ghost[0]
		b.Emit(bytecode.LoadLocal, 0) // argument y
		b.EmitNone(bytecode.Add)
		b.EmitNone(bytecode.Return)

		b.Label("make_adder")
		b.Emit(bytecode.LoadLocal, 0) // x, to capture
		b.EmitToLabel(bytecode.Close, "add_fn")
		b.EmitNone(bytecode.Return)

		b.Label("main_body")
		makeAdderConst := b.Constant(&value.Procedure{Arity: 1, IP: 0})
		b.Emit(bytecode.Const, makeAdderConst)
		b.Emit(bytecode.Const, b.Constant(value.Int(5)))
		b.Emit(bytecode.Call, 1) // closure1 captures x=5

		b.Emit(bytecode.Const, makeAdderConst)
		b.Emit(bytecode.Const, b.Constant(value.Int(100)))
		b.Emit(bytecode.Call, 1) // stack: [closure1, closure2] captures x=100

		b.Emit(bytecode.Const, b.Constant(value.Int(2)))
		b.Emit(bytecode.Call, 1) // closure2(2) = 102; stack: [closure1, 102]
		b.EmitNone(bytecode.Swap)

		b.Emit(bytecode.Const, b.Constant(value.Int(7)))
		b.Emit(bytecode.Call, 1) // closure1(7) = 12; stack: [102, 12]
		b.EmitNone(bytecode.Add)
		b.EmitNone(bytecode.Exit)
	})

	makeAdderIP, ok := c.Labels["make_adder"]
	require.True(t, ok)
	for _, v := range c.Constants {
		if p, ok := v.(*value.Procedure); ok {
			p.IP = makeAdderIP
		}
	}

	result, err := New(NewProgram(c)).Run()
	require.NoError(t, err)
	require.True(t, value.StructurallyEqual(result, value.Int(114)))
}

// TestShiftAndResume exercises SHIFT/CALL-on-continuation: code captures
// its own continuation, immediately resumes it with 7, and exits with
// whatever value the resumed code produces.
func TestShiftAndResume(t *testing.T) {
	c := chunkFromBuilder(t, "main", func(b *bytecode.Builder) {
		b.EmitToLabel(bytecode.Shift, "after_shift")
		// this code runs once the continuation is invoked with a value,
		// which becomes the result of SHIFT on the stack.
		b.EmitNone(bytecode.Exit)

		b.Label("after_shift")
		// top of stack is the continuation; call it with 7.
		b.Emit(bytecode.Const, b.Constant(value.Int(7)))
		b.Emit(bytecode.Call, 1)
		b.EmitNone(bytecode.Fizzle)
	})

	result, err := New(NewProgram(c)).Run()
	require.NoError(t, err)
	require.True(t, value.StructurallyEqual(result, value.Int(7)))
}

func TestBranchRunsBothCallables(t *testing.T) {
	c := chunkFromBuilder(t, "main", func(b *bytecode.Builder) {
		b.EmitToLabel(bytecode.Jump, "main_body")

		b.Label("exit_one")
		b.Emit(bytecode.Const, b.Constant(value.Int(1)))
		b.EmitNone(bytecode.Exit)

		b.Label("exit_two")
		b.Emit(bytecode.Const, b.Constant(value.Int(2)))
		b.EmitNone(bytecode.Exit)

		b.Label("main_body")
		b.Emit(bytecode.Const, b.Constant(&value.Procedure{Arity: 0, IP: 0}))
		b.Emit(bytecode.Const, b.Constant(&value.Procedure{Arity: 0, IP: 0}))
		b.EmitNone(bytecode.Branch)
	})

	exitOneIP := c.Labels["exit_one"]
	exitTwoIP := c.Labels["exit_two"]
	procs := 0
	for _, v := range c.Constants {
		if p, ok := v.(*value.Procedure); ok {
			if procs == 0 {
				p.IP = exitOneIP
			} else {
				p.IP = exitTwoIP
			}
			procs++
		}
	}

	result, err := New(NewProgram(c)).Run()
	require.NoError(t, err)
	// BRANCH continues the current execution with the callable nearest
	// the top of the stack (pushed last) and enqueues the other as a
	// forked execution behind it; the current execution's EXIT wins the
	// race since the queued fork never gets to run.
	require.True(t, value.StructurallyEqual(result, value.Int(2)))
}
