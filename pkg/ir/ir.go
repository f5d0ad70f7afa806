// Package ir defines the resolved intermediate representation the code
// generator consumes. It is the narrow contract at the boundary described
// by the purpose statement: name resolution, desugaring of surface syntax,
// and identifier disambiguation all happen upstream, outside this
// repository. By the time a Node reaches pkg/codegen every Variable name
// is already unique within the scope that can see it -- the generator's
// own Scope (see pkg/codegen) resolves those names to stack offsets and
// upvalue slots, but it never has to disambiguate shadowing or resolve
// which declaration a name refers to.
package ir

import "github.com/lumen-lang/lumen/pkg/value"

// Node is any lowerable IR expression. Lumen has no statement/expression
// split -- everything, including control flow, produces a value -- so
// every Node lowers to code that leaves exactly one value on the stack.
type Node interface {
	irNode()
}

// Literal pushes a constant value.
type Literal struct {
	Value value.Value
}

func (*Literal) irNode() {}

// Variable reads a named binding: a local, a boxed (mutable-captured)
// local, or an upvalue, per however the generator's Scope resolves Name.
type Variable struct {
	Name string
}

func (*Variable) irNode() {}

// Sequence evaluates each expression in order, discarding every result but
// the last.
type Sequence struct {
	Exprs []Node
}

func (*Sequence) irNode() {}

// Call invokes Callee with Args. Callee's calling convention (procedure,
// function, rule, module, continuation) is determined at runtime by the
// VM per spec §4.5; the generator only emits CALL n.
type Call struct {
	Callee Node
	Args   []Node
}

func (*Call) irNode() {}

// AssignTarget is the left-hand side of an Assign: either a simple named
// binding or a (receiver, key) member location.
type AssignTarget interface {
	irAssignTarget()
}

// VarTarget assigns a simple local/upvalue binding.
type VarTarget struct {
	Name string
}

func (*VarTarget) irAssignTarget() {}

// MemberTarget assigns into an accessible collection at Key.
type MemberTarget struct {
	Receiver Node
	Key      Node
}

func (*MemberTarget) irAssignTarget() {}

// Assign evaluates Value and stores it at Target, per §4.8: member-assign
// desugars to (receiver, key, value) binding temporaries then ASSIGN;
// simple-variable assign writes to the local or its reference cell.
type Assign struct {
	Target AssignTarget
	Value  Node
}

func (*Assign) irNode() {}
