package codegen

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/lumen-lang/lumen/pkg/bytecode"
	"github.com/lumen-lang/lumen/pkg/ir"
	"github.com/lumen-lang/lumen/pkg/value"
)

// Generator lowers one pkg/ir tree into one bytecode.Chunk. Every nested
// closure is emitted inline in the same chunk (a CLOSE past a jumped-over
// body), matching how value.Closure's Chunk field defaults to the chunk
// CLOSE executed in -- a program's closures don't need separate chunks
// unless cmd/lumen's loader splits modules across files.
type Generator struct {
	b      *bytecode.Builder
	labelN int
	loops  []loopFrame

	// resumeStack tracks the innermost active when-handler's resume
	// binding name, so a Resume/Cancel node nested anywhere inside
	// HandlerBody (including inside further nested whens) can find the
	// continuation currently in scope without pkg/ir threading it through
	// every intervening node.
	resumeStack []string

	// emptyArray is the constant-pool index of a canonical empty array,
	// CLONEd fresh at every box-creation site (see analysis.go's boxing
	// trigger and closure.go's box prologue) -- never pushed directly,
	// since Builder interns constants by structural equality and Insert
	// mutates its receiver in place: two box cells sharing one constant
	// instance would alias every closure's capture of that name.
	emptyArray  int
	emptyRecord int
}

// Generate lowers program into a complete, runnable chunk named name: the
// top-level entry point a Program wraps (spec's external interface), CONST
// result EXIT at the end since a whole program is itself one expression.
func Generate(name string, program ir.Node) (*bytecode.Chunk, error) {
	g := &Generator{b: bytecode.NewBuilder(name)}
	g.emptyArray = g.b.Constant(value.NewArray(nil))
	g.emptyRecord = g.b.Constant(value.NewRecord())
	sc := NewScope()
	if err := g.emit(sc, program); err != nil {
		return nil, err
	}
	g.b.EmitNone(bytecode.Exit)
	return g.b.Build()
}

func (g *Generator) label(prefix string) string {
	g.labelN++
	return fmt.Sprintf("%s_%d", prefix, g.labelN)
}

// emit lowers n so that it leaves exactly one value on the stack -- the
// defining property of spec §4.8's "everything is an expression."
func (g *Generator) emit(sc *Scope, n ir.Node) error {
	switch t := n.(type) {
	case *ir.Literal:
		g.b.Emit(bytecode.Const, g.b.Constant(t.Value))
		return nil

	case *ir.Variable:
		return g.emitLoad(sc, t.Name)

	case *ir.Sequence:
		if len(t.Exprs) == 0 {
			g.b.Emit(bytecode.Const, g.b.Constant(value.Unit{}))
			return nil
		}
		for i, e := range t.Exprs {
			if err := g.emit(sc, e); err != nil {
				return err
			}
			if i < len(t.Exprs)-1 {
				g.b.EmitNone(bytecode.Pop)
			}
		}
		return nil

	case *ir.Call:
		if err := g.emit(sc, t.Callee); err != nil {
			return err
		}
		for _, a := range t.Args {
			if err := g.emit(sc, a); err != nil {
				return err
			}
		}
		g.b.Emit(bytecode.Call, len(t.Args))
		return nil

	case *ir.Assign:
		return g.emitAssign(sc, t)

	case *ir.If:
		return g.emitIf(sc, t)
	case *ir.Let:
		return g.emitLet(sc, t)
	case *ir.Match:
		return g.emitMatch(sc, t)
	case *ir.While:
		return g.emitWhile(sc, t)
	case *ir.Break:
		return g.emitBreak(sc, t)
	case *ir.Continue:
		return g.emitContinue(sc, t)
	case *ir.For:
		return g.emitFor(sc, t)

	case *ir.Closure:
		return g.emitClosure(sc, t)

	case *ir.When:
		return g.emitWhen(sc, t)
	case *ir.Yield:
		return g.emitYield(sc, t)
	case *ir.Resume:
		return g.emitResume(sc, t)
	case *ir.Cancel:
		return g.emitCancel(sc, t)

	case *ir.Conjunction, *ir.Disjunction, *ir.Negation, *ir.Implication:
		return errors.Errorf("codegen: %T only valid inside a qy closure body", n)

	default:
		return errors.Errorf("codegen: unhandled ir node %T", n)
	}
}

// emitLoad pushes the current value of name, resolved through sc.
func (g *Generator) emitLoad(sc *Scope, name string) error {
	r, ok := sc.Resolve(name)
	if !ok {
		return errors.Errorf("codegen: unresolved variable %q", name)
	}
	g.b.Emit(bytecode.LoadLocal, r.slot)
	if r.boxed {
		g.b.Emit(bytecode.Const, g.b.Constant(value.Int(0)))
		g.b.EmitNone(bytecode.Access)
	}
	return nil
}

// emitAssign lowers Assign per spec §4.8: a member target stacks
// (receiver, key, value) and ASSIGNs; a simple variable writes its local
// slot directly, or if boxed, writes through the reference cell, staging
// the new value through a temporary so the expression's own result is the
// assigned value and not ASSIGN's receiver-shaped return.
func (g *Generator) emitAssign(sc *Scope, a *ir.Assign) error {
	switch target := a.Target.(type) {
	case *ir.MemberTarget:
		if err := g.emit(sc, target.Receiver); err != nil {
			return err
		}
		if err := g.emit(sc, target.Key); err != nil {
			return err
		}
		if err := g.emit(sc, a.Value); err != nil {
			return err
		}
		g.b.EmitNone(bytecode.Assign)
		return nil

	case *ir.VarTarget:
		r, ok := sc.Resolve(target.Name)
		if !ok {
			return errors.Errorf("codegen: unresolved assignment target %q", target.Name)
		}
		if !r.boxed {
			if err := g.emit(sc, a.Value); err != nil {
				return err
			}
			g.b.Emit(bytecode.SetLocal, r.slot)
			return nil
		}
		tmp := sc.DeclareTemp()
		if err := g.emit(sc, a.Value); err != nil {
			return err
		}
		g.b.Emit(bytecode.SetLocal, tmp)
		g.b.EmitNone(bytecode.Pop)
		g.b.Emit(bytecode.LoadLocal, r.slot)
		g.b.Emit(bytecode.Const, g.b.Constant(value.Int(0)))
		g.b.Emit(bytecode.LoadLocal, tmp)
		g.b.EmitNone(bytecode.Assign)
		g.b.EmitNone(bytecode.Pop)
		g.b.Emit(bytecode.LoadLocal, tmp)
		return nil

	default:
		return errors.Errorf("codegen: unhandled assign target %T", a.Target)
	}
}

// emitBoxPrologue boxes the local already sitting at slot (a freshly
// declared Let binding or closure parameter): wraps its current value in
// a fresh one-cell array and writes the box back into the same slot, so
// every later reference (this scope's own, and any nested closure's
// upvalue reference) goes through the same shared cell.
func (g *Generator) emitBoxPrologue(slot int) {
	g.b.Emit(bytecode.Const, g.emptyArray)
	g.b.EmitNone(bytecode.Clone)
	g.b.Emit(bytecode.LoadLocal, slot)
	g.b.EmitNone(bytecode.Insert)
	g.b.Emit(bytecode.SetLocal, slot)
	g.b.EmitNone(bytecode.Pop)
}
