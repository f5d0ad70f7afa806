package value

import (
	"fmt"
	"reflect"
)

// Callable is any value that CALL/BECOME may invoke: procedure, function,
// rule, continuation, or closure. Every variant carries the instruction
// pointer execution resumes at; Entry() is relative to the chunk named by
// ChunkName (empty means the program's entry chunk), which the VM
// resolves against its program's chunk table.
type Callable interface {
	Value
	Entry() int
	ChunkName() string
	identity() uintptr
}

func identityOf(v any) uintptr { return reflect.ValueOf(v).Pointer() }

// Procedure is called with exactly Arity arguments, received as locals
// 0..Arity.
type Procedure struct {
	Arity int
	IP    int
	Chunk string
}

func (*Procedure) Kind() Kind          { return KindCallable }
func (p *Procedure) Entry() int        { return p.IP }
func (p *Procedure) ChunkName() string { return p.Chunk }
func (p *Procedure) identity() uintptr { return identityOf(p) }
func (p *Procedure) String() string    { return fmt.Sprintf("&%d", p.IP) }

// Function is called with exactly one argument. Multi-parameter source
// functions are curried by the code generator into a chain of Functions,
// each returning a Closure for the next.
type Function struct {
	IP    int
	Chunk string
}

func (*Function) Kind() Kind          { return KindCallable }
func (f *Function) Entry() int        { return f.IP }
func (f *Function) ChunkName() string { return f.Chunk }
func (f *Function) identity() uintptr { return identityOf(f) }
func (f *Function) String() string    { return fmt.Sprintf("&%d", f.IP) }

// Rule is called with zero arguments to begin a query; it returns an
// iterator Closure that is subsequently called with Arity arguments
// (unbound slots represented as unset locals) and yields 'next(bindings)
// or 'done.
type Rule struct {
	Arity int
	IP    int
	Chunk string
}

func (*Rule) Kind() Kind          { return KindCallable }
func (r *Rule) Entry() int        { return r.IP }
func (r *Rule) ChunkName() string { return r.Chunk }
func (r *Rule) identity() uintptr { return identityOf(r) }
func (r *Rule) String() string    { return fmt.Sprintf("&%d", r.IP) }

// Closure is produced by CLOSE: an entry point plus the upvalues captured
// from the enclosing scope at creation time. On entry, the VM stores
// Upvalues in the new return record; the callee's arguments are its
// locals from 0, and local() indexing that overflows the callee's own
// frame falls back to Upvalues (the "ghost stack" of the spec).
type Closure struct {
	IP       int
	Chunk    string
	Upvalues []Value
}

func (*Closure) Kind() Kind          { return KindCallable }
func (c *Closure) Entry() int        { return c.IP }
func (c *Closure) ChunkName() string { return c.Chunk }
func (c *Closure) identity() uintptr { return identityOf(c) }
func (c *Closure) String() string    { return fmt.Sprintf("&%d", c.IP) }

// Continuation is produced by SHIFT: reinvoking it restores the captured
// stack Snapshot (an opaque *stack.Branch, kept untyped here so that
// package value never imports package stack) and resumes at IP with the
// Module/Handler registers as they were at capture time.
type Continuation struct {
	IP       int
	Chunk    string
	Snapshot any
	Module   Value
	Handler  Value
}

func (*Continuation) Kind() Kind          { return KindCallable }
func (c *Continuation) Entry() int        { return c.IP }
func (c *Continuation) ChunkName() string { return c.Chunk }
func (c *Continuation) identity() uintptr { return identityOf(c) }
func (c *Continuation) String() string    { return fmt.Sprintf("&%d", c.IP) }

// Calling-convention tags, as used by UnlockTag. The VM's CALL and BECOME
// do not push an unlock value: a callee receives only its arguments.
var (
	TagProcedure = Intern("procedure")
	TagFunction  = Intern("function")
	TagRule      = Intern("rule")
	TagModule    = Intern("module")
)

// UnlockTag builds the 'procedure(k) / 'function(1) / 'rule(k) struct value
// for those callables, and 'module(k) for any other. Neither the VM nor the
// code generator calls it.
func UnlockTag(c Callable, arity int) *Struct {
	switch c.(type) {
	case *Procedure:
		return Construct(TagProcedure, Int(int64(arity)))
	case *Function:
		return Construct(TagFunction, Int(1))
	case *Rule:
		return Construct(TagRule, Int(int64(arity)))
	case *Continuation:
		return Construct(TagModule, Int(int64(arity)))
	default:
		return Construct(TagModule, Int(int64(arity)))
	}
}
