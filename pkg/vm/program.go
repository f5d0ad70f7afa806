package vm

import (
	"github.com/pkg/errors"
	"github.com/lumen-lang/lumen/pkg/bytecode"
	"github.com/lumen-lang/lumen/pkg/value"
)

// nativeFn is a host-provided procedure body.
type nativeFn func(args []value.Value) (value.Value, error)

// Program is a table of chunks produced by one compilation: an entry
// chunk plus whatever other chunks LOADCHUNK may reference by name, plus
// any natives the host has registered.
type Program struct {
	Entry   *bytecode.Chunk
	Chunks  map[string]*bytecode.Chunk
	natives []nativeFn
}

// NewProgram builds a Program from an entry chunk and any additional
// chunks it (transitively) references.
func NewProgram(entry *bytecode.Chunk, others ...*bytecode.Chunk) *Program {
	p := &Program{Entry: entry, Chunks: map[string]*bytecode.Chunk{entry.Name: entry}}
	for _, c := range others {
		p.Chunks[c.Name] = c
	}
	return p
}

// RegisterNative exposes a Go function to running programs as an ordinary
// Procedure. Its Entry() is a negative sentinel (-(index+1)) the VM's CALL
// handler recognizes and dispatches to fn instead of jumping into chunk
// instructions; its arity is checked exactly as for a bytecode procedure.
func (p *Program) RegisterNative(arity int, fn nativeFn) *value.Procedure {
	idx := len(p.natives)
	p.natives = append(p.natives, fn)
	return &value.Procedure{Arity: arity, IP: -(idx + 1)}
}

func (p *Program) nativeAt(ip int) (nativeFn, bool) {
	idx := -(ip + 1)
	if idx < 0 || idx >= len(p.natives) {
		return nil, false
	}
	return p.natives[idx], true
}

func (p *Program) chunk(name string) (*bytecode.Chunk, error) {
	c, ok := p.Chunks[name]
	if !ok {
		return nil, errors.Errorf("no such chunk %q", name)
	}
	return c, nil
}

// registerSlot names a VM register by index; Module and Handler are
// mandatory and always present.
type registerSlot int

const (
	RegisterModule registerSlot = iota
	RegisterHandler
)

// registerNames lets a host or assembler refer to registers symbolically.
var registerNames = map[string]registerSlot{
	"MODULE":  RegisterModule,
	"HANDLER": RegisterHandler,
}

// RegisterIndex resolves a register name to its index, for callers
// assembling LOADR/SETR instructions.
func RegisterIndex(name string) (int, bool) {
	s, ok := registerNames[name]
	return int(s), ok
}
