package vm

import (
	"github.com/lumen-lang/lumen/pkg/stack"
	"github.com/lumen-lang/lumen/pkg/value"
)

// Execution is one runnable thread of control: an instruction pointer
// into a named chunk, its own branch of the cactus stack, and its own
// Module/Handler registers. BRANCH forks a new Execution that shares the
// stack prefix copy-on-write with its sibling; FIFO scheduling between
// Executions is the VM's only concurrency.
type Execution struct {
	ip      int
	chunk   string
	stack   *stack.Branch
	module  value.Value
	handler value.Value
}

func newEntryExecution(chunkName string) *Execution {
	return &Execution{
		chunk:   chunkName,
		stack:   stack.New(),
		module:  value.Unit{},
		handler: value.Unit{},
	}
}

func (e *Execution) fork() *Execution {
	return &Execution{
		ip:      e.ip,
		chunk:   e.chunk,
		stack:   e.stack.Branch(),
		module:  e.module,
		handler: e.handler,
	}
}
