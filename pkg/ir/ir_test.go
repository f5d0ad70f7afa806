package ir

import (
	"testing"

	"github.com/lumen-lang/lumen/pkg/value"
)

// These are shape tests: pkg/ir carries no behavior of its own (every Node
// is pure data, per the package doc), so there is nothing to assert beyond
// "the tree I built is the tree I get back." Anything more belongs in
// pkg/codegen, which is what actually interprets these trees.

func TestNodesSatisfyInterface(t *testing.T) {
	var nodes = []Node{
		&Literal{Value: value.Int(1)},
		&Variable{Name: "x"},
		&Sequence{Exprs: []Node{&Literal{Value: value.Unit{}}}},
		&Call{Callee: &Variable{Name: "f"}, Args: []Node{&Literal{Value: value.Int(1)}}},
		&Assign{Target: &VarTarget{Name: "x"}, Value: &Literal{Value: value.Int(2)}},
		&If{Cond: &Literal{Value: value.Boolean(true)}, Then: &Literal{Value: value.Unit{}}, Else: &Literal{Value: value.Unit{}}},
		&Let{Pattern: &BindPattern{Name: "x"}, Value: &Literal{Value: value.Int(1)}, Body: &Variable{Name: "x"}},
		&Match{Discriminant: &Variable{Name: "x"}, Arms: []MatchArm{{Pattern: &WildcardPattern{}, Body: &Literal{Value: value.Unit{}}}}},
		&While{Cond: &Literal{Value: value.Boolean(false)}, Body: &Literal{Value: value.Unit{}}},
		&Break{Value: &Literal{Value: value.Unit{}}},
		&Continue{},
		&For{Pattern: &BindPattern{Name: "x"}, Iterator: &Variable{Name: "r"}, Body: &Literal{Value: value.Unit{}}, Else: &Literal{Value: value.Unit{}}},
		&Closure{Kind: KindFn, Params: []Pattern{&BindPattern{Name: "x"}}, Body: &Variable{Name: "x"}},
		&When{EffectPattern: &WildcardPattern{}, Resume: "k", HandlerBody: &Resume{Value: &Literal{Value: value.Unit{}}}, Body: &Literal{Value: value.Unit{}}},
		&Yield{Effect: &Literal{Value: value.Unit{}}},
		&Resume{Value: &Literal{Value: value.Unit{}}},
		&Cancel{Value: &Literal{Value: value.Unit{}}},
		&Conjunction{Left: &Literal{Value: value.Boolean(true)}, Right: &Literal{Value: value.Boolean(true)}},
		&Disjunction{Left: &Literal{Value: value.Boolean(true)}, Right: &Literal{Value: value.Boolean(true)}},
		&Negation{Node: &Literal{Value: value.Boolean(false)}},
		&Implication{Antecedent: &Literal{Value: value.Boolean(true)}, Consequent: &Literal{Value: value.Boolean(true)}},
	}
	for i, n := range nodes {
		if n == nil {
			t.Fatalf("node %d is nil", i)
		}
	}
}

func TestAssignTargetsSatisfyInterface(t *testing.T) {
	var targets = []AssignTarget{
		&VarTarget{Name: "x"},
		&MemberTarget{Receiver: &Variable{Name: "x"}, Key: &Literal{Value: value.Int(0)}},
	}
	for i, target := range targets {
		if target == nil {
			t.Fatalf("target %d is nil", i)
		}
	}
}

func TestPatternsSatisfyInterface(t *testing.T) {
	var patterns = []Pattern{
		&WildcardPattern{},
		&BindPattern{Name: "x"},
		&LiteralPattern{Value: value.Int(1)},
		&TuplePattern{First: &WildcardPattern{}, Second: &WildcardPattern{}},
		&StructPattern{Tag: value.Intern("some"), Inner: &WildcardPattern{}},
		&ArrayPattern{Elements: []Pattern{&WildcardPattern{}, &WildcardPattern{}}},
	}
	for i, p := range patterns {
		if p == nil {
			t.Fatalf("pattern %d is nil", i)
		}
	}
}
