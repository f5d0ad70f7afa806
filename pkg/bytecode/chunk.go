package bytecode

import "github.com/lumen-lang/lumen/pkg/value"

// Instruction is one decoded bytecode instruction. Operand's meaning
// depends on Op.OperandKind(): a constant-pool index, a local/register
// index, a count, or a resolved jump offset measured in instructions
// (not bytes) relative to the instruction immediately following this one.
type Instruction struct {
	Op      Opcode
	Operand int
	Line    int // source line, for panics and DEBUG; 0 if unknown
}

// Chunk is a compiled unit: its instruction stream plus the constant pool
// those instructions index into. A Program (see package vm) is a table of
// Chunks; LoadChunk instructions reference other chunks by constant-pool
// index naming them.
type Chunk struct {
	Name         string
	Instructions []Instruction
	Constants    []value.Value

	// Labels maps a label name to its resolved instruction index, kept
	// after building so a disassembler can recover jump targets as names
	// instead of raw offsets.
	Labels map[string]int

	// Protected holds labels a peephole pass must never remove, because
	// something outside this chunk's own instruction stream (another
	// chunk, or the host) may jump to them directly.
	Protected map[string]bool
}

// NewChunk creates an empty, named chunk.
func NewChunk(name string) *Chunk {
	return &Chunk{
		Name:      name,
		Labels:    make(map[string]int),
		Protected: make(map[string]bool),
	}
}

// At returns the instruction at ip, and whether ip was in range.
func (c *Chunk) At(ip int) (Instruction, bool) {
	if ip < 0 || ip >= len(c.Instructions) {
		return Instruction{}, false
	}
	return c.Instructions[ip], true
}

// Len reports the instruction count.
func (c *Chunk) Len() int { return len(c.Instructions) }

// Constant returns constant-pool entry i.
func (c *Chunk) Constant(i int) (value.Value, bool) {
	if i < 0 || i >= len(c.Constants) {
		return nil, false
	}
	return c.Constants[i], true
}

// Target resolves a jump-style instruction's off operand to an absolute
// instruction index.
func Target(ip int, off int) int { return ip + 1 + off }
