package bytecode

import (
	"strings"
	"testing"

	"github.com/lumen-lang/lumen/pkg/value"
)

func TestBuilderResolvesForwardLabel(t *testing.T) {
	b := NewBuilder("main")
	b.EmitToLabel(Jump, "end")
	b.EmitNone(Pop)
	b.Label("end")
	b.EmitNone(Return)

	chunk, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	jump := chunk.Instructions[0]
	if Target(0, jump.Operand) != 2 {
		t.Fatalf("expected jump to resolve to instruction 2, got %d", Target(0, jump.Operand))
	}
}

func TestBuilderUnresolvedLabelErrors(t *testing.T) {
	b := NewBuilder("main")
	b.EmitToLabel(Jump, "nowhere")
	if _, err := b.Build(); err == nil {
		t.Fatalf("expected an error for an unresolved label")
	}
}

func TestConstantDeduplicatesStructurallyEqual(t *testing.T) {
	b := NewBuilder("main")
	i1 := b.Constant(value.Int(5))
	i2 := b.Constant(value.Int(5))
	if i1 != i2 {
		t.Fatalf("structurally equal constants should share a pool slot")
	}
	i3 := b.Constant(value.String("5"))
	if i3 == i1 {
		t.Fatalf("a string and a number with the same text must not share a slot")
	}
}

func TestAssembleAndDisassembleRoundTrip(t *testing.T) {
	src := `
# a trivial program
start:
  CONST 1
  CONST 2
  ADD
  EXIT
`
	chunk, err := Assemble("main", src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunk.Len() != 4 {
		t.Fatalf("expected 4 instructions, got %d", chunk.Len())
	}
	text := Disassemble(chunk)
	if !strings.Contains(text, "ADD") || !strings.Contains(text, "EXIT") {
		t.Fatalf("disassembly missing expected mnemonics: %s", text)
	}
	reassembled, err := Assemble("main", text)
	if err != nil {
		t.Fatalf("unexpected error re-assembling disassembly: %v", err)
	}
	if reassembled.Len() != chunk.Len() {
		t.Fatalf("round trip changed instruction count: %d vs %d", reassembled.Len(), chunk.Len())
	}
}

func TestAssembleUnknownOpcode(t *testing.T) {
	if _, err := Assemble("main", "BOGUS 1"); err == nil {
		t.Fatalf("expected an error for an unknown opcode")
	}
}

func TestAssembleValueLiterals(t *testing.T) {
	cases := map[string]string{
		`CONST unit`:        "unit",
		`CONST true`:        "true",
		`CONST 'atom`:       "'atom",
		`CONST "hello"`:     `"hello"`,
		`CONST (1:2)`:       "(1:2)",
		`CONST [1, 2, 3]`:   "[1, 2, 3]",
		`CONST 'wrapped(1)`: "'wrapped(1)",
		`CONST 0b101`:       "0b101",
		`CONST 1/3`:         "1/3",
	}
	for src, want := range cases {
		chunk, err := Assemble("main", src)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", src, err)
		}
		v, ok := chunk.Constant(chunk.Instructions[0].Operand)
		if !ok {
			t.Fatalf("%q: missing constant", src)
		}
		if v.String() != want {
			t.Fatalf("%q: expected %q, got %q", src, want, v.String())
		}
	}
}

func TestOptimizeCollapsesCopyPop(t *testing.T) {
	b := NewBuilder("main")
	b.EmitNone(Copy)
	b.EmitNone(Pop)
	b.EmitNone(Return)
	chunk, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunk.Optimize()
	if chunk.Len() != 1 || chunk.Instructions[0].Op != Return {
		t.Fatalf("expected COPY;POP to collapse, leaving just RETURN, got %d instructions", chunk.Len())
	}
}

func TestOptimizeDropsDeadCodeAfterUnconditionalJump(t *testing.T) {
	b := NewBuilder("main")
	b.EmitToLabel(Jump, "skip")
	b.EmitNone(Pop) // unreachable
	b.Label("skip")
	b.EmitNone(Return)
	chunk, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunk.Optimize()
	for _, instr := range chunk.Instructions {
		if instr.Op == Pop {
			t.Fatalf("dead POP after unconditional jump should be removed")
		}
	}
	jump := chunk.Instructions[0]
	if Target(0, jump.Operand) != 1 {
		t.Fatalf("jump target should remap to the surviving RETURN instruction, got %d", Target(0, jump.Operand))
	}
}
