package bytecode

import (
	"github.com/pkg/errors"
	"github.com/lumen-lang/lumen/pkg/value"
)

// Builder assembles a Chunk incrementally: it resolves forward label
// references in a final pass and deduplicates constant-pool entries by
// structural equality, so a code generator never has to track whether a
// literal it wants to push has already been interned.
type Builder struct {
	chunk      *Chunk
	constIndex map[string]int
	pending    []pendingRef
}

type pendingRef struct {
	ip    int
	label string
}

// NewBuilder starts a fresh chunk under construction.
func NewBuilder(name string) *Builder {
	return &Builder{
		chunk:      NewChunk(name),
		constIndex: make(map[string]int),
	}
}

// Constant interns v into the constant pool, returning its index. Two
// structurally equal values (looked up by their canonical String text,
// then confirmed with value.StructurallyEqual) share one slot.
func (b *Builder) Constant(v value.Value) int {
	key := v.String()
	if i, ok := b.constIndex[key]; ok && value.StructurallyEqual(b.chunk.Constants[i], v) {
		return i
	}
	i := len(b.chunk.Constants)
	b.chunk.Constants = append(b.chunk.Constants, v)
	b.constIndex[key] = i
	return i
}

// Here returns the instruction index the next Emit will occupy.
func (b *Builder) Here() int { return len(b.chunk.Instructions) }

// Emit appends an instruction whose operand is already a concrete int
// (a constant index, local index, or argument count).
func (b *Builder) Emit(op Opcode, operand int) int {
	ip := b.Here()
	b.chunk.Instructions = append(b.chunk.Instructions, Instruction{Op: op, Operand: operand})
	return ip
}

// EmitNone appends a no-operand instruction.
func (b *Builder) EmitNone(op Opcode) int { return b.Emit(op, 0) }

// EmitToLabel appends a jump-family instruction whose operand is a label
// to resolve once the whole chunk has been emitted.
func (b *Builder) EmitToLabel(op Opcode, label string) int {
	ip := b.Emit(op, 0)
	b.pending = append(b.pending, pendingRef{ip: ip, label: label})
	return ip
}

// Label marks the current position under name, resolvable by later
// EmitToLabel calls (forward or backward) and by Jump targets recovered
// during disassembly.
func (b *Builder) Label(name string) {
	b.chunk.Labels[name] = b.Here()
}

// Protect marks a label that must survive peephole dead-code elimination
// because something outside this chunk's linear instruction stream may
// jump to it directly (a chunk entry point, an exported rule/module).
func (b *Builder) Protect(name string) {
	b.chunk.Protected[name] = true
}

// Build resolves every pending label reference to an instruction-relative
// offset and returns the finished chunk. It is an error for a Builder to
// reference a label that was never defined with Label.
func (b *Builder) Build() (*Chunk, error) {
	for _, p := range b.pending {
		target, ok := b.chunk.Labels[p.label]
		if !ok {
			return nil, errors.Errorf("unresolved label %q", p.label)
		}
		b.chunk.Instructions[p.ip].Operand = target - (p.ip + 1)
	}
	return b.chunk, nil
}
