package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/pkg/ir"
	"github.com/lumen-lang/lumen/pkg/value"
	"github.com/lumen-lang/lumen/pkg/vm"
)

// run generates program, runs it on a fresh VM to completion, and returns
// its final value -- the same parse/compile/run/assert shape pkg/vm's own
// tests use, minus a front end: pkg/ir trees are built directly here since
// nothing in this module parses Lumen source text into one.
func run(t *testing.T, program ir.Node) value.Value {
	t.Helper()
	chunk, err := Generate("main", program)
	require.NoError(t, err)
	result, err := vm.New(vm.NewProgram(chunk)).Run()
	require.NoError(t, err)
	return result
}

func TestIfLowering(t *testing.T) {
	program := &ir.If{
		Cond: &ir.Literal{Value: value.Boolean(true)},
		Then: &ir.Literal{Value: value.Int(1)},
		Else: &ir.Literal{Value: value.Int(2)},
	}
	result := run(t, program)
	require.True(t, value.StructurallyEqual(result, value.Int(1)))
}

func TestLetBindsNameInBody(t *testing.T) {
	program := &ir.Let{
		Pattern: &ir.BindPattern{Name: "x"},
		Value:   &ir.Literal{Value: value.Int(5)},
		Body:    &ir.Variable{Name: "x"},
	}
	result := run(t, program)
	require.True(t, value.StructurallyEqual(result, value.Int(5)))
}

func TestMatchSelectsMatchingArm(t *testing.T) {
	program := &ir.Match{
		Discriminant: &ir.Literal{Value: value.Construct(value.Intern("ok"), value.Int(7))},
		Arms: []ir.MatchArm{
			{
				Pattern: &ir.StructPattern{Tag: value.Intern("err"), Inner: &ir.WildcardPattern{}},
				Body:    &ir.Literal{Value: value.Int(-1)},
			},
			{
				Pattern: &ir.StructPattern{Tag: value.Intern("ok"), Inner: &ir.BindPattern{Name: "v"}},
				Body:    &ir.Variable{Name: "v"},
			},
		},
	}
	result := run(t, program)
	require.True(t, value.StructurallyEqual(result, value.Int(7)))
}

// TestWhileLoopBreakValue exercises While/Break together: the loop counts
// a boxed-free local down to zero then breaks with a sentinel, which
// becomes the loop expression's own value.
func TestWhileLoopBreakValue(t *testing.T) {
	program := &ir.Let{
		Pattern: &ir.BindPattern{Name: "n"},
		Value:   &ir.Literal{Value: value.Int(3)},
		Body: &ir.While{
			Cond: &ir.Literal{Value: value.Boolean(true)},
			Body: &ir.Break{Value: &ir.Literal{Value: value.Int(99)}},
		},
	}
	result := run(t, program)
	require.True(t, value.StructurallyEqual(result, value.Int(99)))
}

// TestClosureCapturesUpvalue builds a zero-parameter procedure closure
// that reads an enclosing Let binding and calls it, matching how
// materializeFreeVars pulls a genuinely free name down into the frame
// CLOSE captures from.
func TestClosureCapturesUpvalue(t *testing.T) {
	program := &ir.Let{
		Pattern: &ir.BindPattern{Name: "x"},
		Value:   &ir.Literal{Value: value.Int(41)},
		Body: &ir.Call{
			Callee: &ir.Closure{
				Kind:   ir.KindDo,
				Params: nil,
				Body:   &ir.Variable{Name: "x"},
			},
			Args: nil,
		},
	}
	result := run(t, program)
	require.True(t, value.StructurallyEqual(result, value.Int(41)))
}

// TestMutableCaptureIsBoxed exercises the boxing trigger of analysis.go:
// a closure assigns to an enclosing Let binding it also captures, so the
// binding must be promoted to a shared cell for the mutation to be
// visible once the closure returns.
func TestMutableCaptureIsBoxed(t *testing.T) {
	program := &ir.Let{
		Pattern: &ir.BindPattern{Name: "x"},
		Value:   &ir.Literal{Value: value.Int(0)},
		Body: &ir.Sequence{Exprs: []ir.Node{
			&ir.Call{
				Callee: &ir.Closure{
					Kind:   ir.KindDo,
					Params: nil,
					Body: &ir.Assign{
						Target: &ir.VarTarget{Name: "x"},
						Value:  &ir.Literal{Value: value.Int(13)},
					},
				},
				Args: nil,
			},
			&ir.Variable{Name: "x"},
		}},
	}
	result := run(t, program)
	require.True(t, value.StructurallyEqual(result, value.Int(13)))
}

// TestWhenYieldResume exercises the effect handler state machine of
// handler.go end to end: Body yields an effect the installed handler
// matches, and resumes with a value that becomes Body's own result.
func TestWhenYieldResume(t *testing.T) {
	program := &ir.When{
		EffectPattern: &ir.StructPattern{Tag: value.Intern("ask"), Inner: &ir.WildcardPattern{}},
		Resume:        "k",
		HandlerBody: &ir.Resume{
			Value: &ir.Literal{Value: value.Int(100)},
		},
		Body: &ir.Yield{
			Effect: &ir.Literal{Value: value.Construct(value.Intern("ask"), value.Unit{})},
		},
	}
	result := run(t, program)
	require.True(t, value.StructurallyEqual(result, value.Int(100)))
}

// TestWhenCancelSkipsBody exercises Cancel: the handler abandons the
// suspended computation entirely, and its own Value becomes the whole
// When block's result instead of anything Body would otherwise produce.
func TestWhenCancelSkipsBody(t *testing.T) {
	program := &ir.When{
		EffectPattern: &ir.WildcardPattern{},
		Resume:        "k",
		HandlerBody: &ir.Cancel{
			Value: &ir.Literal{Value: value.Int(-7)},
		},
		Body: &ir.Sequence{Exprs: []ir.Node{
			&ir.Yield{Effect: &ir.Literal{Value: value.Unit{}}},
			&ir.Literal{Value: value.Int(1)}, // unreachable: Cancel never resumes here
		}},
	}
	result := run(t, program)
	require.True(t, value.StructurallyEqual(result, value.Int(-7)))
}

// ruleOf builds a zero-parameter qy closure from a query body, the shape
// emitRuleBody/emitRuleIterator lower per the rule iterator protocol.
func ruleOf(params []ir.Pattern, body ir.Node) *ir.Closure {
	return &ir.Closure{Kind: ir.KindQy, Params: params, Body: body}
}

// TestRuleConjunctionAndNegation drives a zero-argument rule through one
// full round trip of the iterator protocol: the outer entry produces an
// iterator, the iterator's first call satisfies "true and not(false)" and
// yields 'next(unit), and a second call resumes the stashed continuation,
// which (since the body has no Disjunction to try next) falls straight
// through to exhaustion and yields bare 'done.
func TestRuleConjunctionAndNegation(t *testing.T) {
	rule := ruleOf(nil, &ir.Conjunction{
		Left: &ir.Literal{Value: value.Boolean(true)},
		Right: &ir.Negation{
			Node: &ir.Literal{Value: value.Boolean(false)},
		},
	})

	program := &ir.Let{
		Pattern: &ir.BindPattern{Name: "iter"},
		Value:   &ir.Call{Callee: rule, Args: nil},
		Body: &ir.Let{
			Pattern: &ir.BindPattern{Name: "r1"},
			Value:   &ir.Call{Callee: &ir.Variable{Name: "iter"}, Args: nil},
			Body: &ir.Let{
				Pattern: &ir.BindPattern{Name: "r2"},
				Value:   &ir.Call{Callee: &ir.Variable{Name: "iter"}, Args: nil},
				Body: &ir.Match{
					Discriminant: &ir.Variable{Name: "r1"},
					Arms: []ir.MatchArm{
						{
							Pattern: &ir.StructPattern{Tag: value.Intern("next"), Inner: &ir.LiteralPattern{Value: value.Unit{}}},
							Body: &ir.Match{
								Discriminant: &ir.Variable{Name: "r2"},
								Arms: []ir.MatchArm{
									{
										Pattern: &ir.LiteralPattern{Value: value.Intern("done")},
										Body:    &ir.Literal{Value: value.String("ok")},
									},
									{
										Pattern: &ir.WildcardPattern{},
										Body:    &ir.Literal{Value: value.String("r2-unexpected")},
									},
								},
							},
						},
						{
							Pattern: &ir.WildcardPattern{},
							Body:    &ir.Literal{Value: value.String("r1-unexpected")},
						},
					},
				},
			},
		},
	}

	result := run(t, program)
	require.True(t, value.StructurallyEqual(result, value.String("ok")))
}

// TestRuleDisjunctionBacktracksAllSolutions drives a one-parameter rule
// whose body is a three-way Disjunction of unification leaves through a
// For loop, exercising the single-SHIFT backtracking protocol across
// every solution: each round's binding is assigned into an outer local,
// so once the loop exhausts, that local holds the last solution the
// search produced.
func TestRuleDisjunctionBacktracksAllSolutions(t *testing.T) {
	unify := func(n int64) ir.Node {
		return &ir.Let{
			Pattern: &ir.BindPattern{Name: "x"},
			Value:   &ir.Literal{Value: value.Int(n)},
			Body:    &ir.Literal{Value: value.Boolean(true)},
		}
	}
	rule := ruleOf([]ir.Pattern{&ir.BindPattern{Name: "x"}}, &ir.Disjunction{
		Left: unify(1),
		Right: &ir.Disjunction{
			Left:  unify(2),
			Right: unify(3),
		},
	})

	program := &ir.Let{
		Pattern: &ir.BindPattern{Name: "out"},
		Value:   &ir.Literal{Value: value.Int(0)},
		Body: &ir.Sequence{Exprs: []ir.Node{
			&ir.For{
				Pattern:  &ir.BindPattern{Name: "x"},
				Iterator: rule,
				Body: &ir.Assign{
					Target: &ir.VarTarget{Name: "out"},
					Value:  &ir.Variable{Name: "x"},
				},
				Else: &ir.Literal{Value: value.Unit{}},
			},
			&ir.Variable{Name: "out"},
		}},
	}

	result := run(t, program)
	require.True(t, value.StructurallyEqual(result, value.Int(3)))
}

// TestRuleImplicationVacuousSuccess exercises Implication when Antecedent
// has no solutions at all: the implication still succeeds, vacuously,
// with none of Consequent's bindings ever having run.
func TestRuleImplicationVacuousSuccess(t *testing.T) {
	rule := ruleOf(nil, &ir.Implication{
		Antecedent: &ir.Literal{Value: value.Boolean(false)},
		Consequent: &ir.Literal{Value: value.Boolean(false)}, // never reached
	})

	program := &ir.Let{
		Pattern: &ir.BindPattern{Name: "iter"},
		Value:   &ir.Call{Callee: rule, Args: nil},
		Body: &ir.Match{
			Discriminant: &ir.Call{Callee: &ir.Variable{Name: "iter"}, Args: nil},
			Arms: []ir.MatchArm{
				{
					Pattern: &ir.StructPattern{Tag: value.Intern("next"), Inner: &ir.LiteralPattern{Value: value.Unit{}}},
					Body:    &ir.Literal{Value: value.String("vacuous")},
				},
				{
					Pattern: &ir.WildcardPattern{},
					Body:    &ir.Literal{Value: value.String("unexpected")},
				},
			},
		},
	}

	result := run(t, program)
	require.True(t, value.StructurallyEqual(result, value.String("vacuous")))
}
