package codegen

import "github.com/lumen-lang/lumen/pkg/ir"

// patternNames collects every name a pattern binds, in left-to-right order.
func patternNames(p ir.Pattern) []string {
	switch t := p.(type) {
	case *ir.WildcardPattern:
		return nil
	case *ir.BindPattern:
		return []string{t.Name}
	case *ir.LiteralPattern:
		return nil
	case *ir.TuplePattern:
		return append(patternNames(t.First), patternNames(t.Second)...)
	case *ir.StructPattern:
		return patternNames(t.Inner)
	case *ir.ArrayPattern:
		var names []string
		for _, e := range t.Elements {
			names = append(names, patternNames(e)...)
		}
		return names
	default:
		return nil
	}
}

// freeVars collects every name referenced by n that is not in bound,
// recursing into nested closures with their own parameters (and, for a
// named closure, its own name) added to the bound set. It is how
// emitClosure decides what an inner closure needs from its enclosing
// frame, per spec §4.7's closure-emission discipline.
func freeVars(n ir.Node, bound map[string]bool, out map[string]bool) {
	if n == nil {
		return
	}
	switch t := n.(type) {
	case *ir.Literal:
	case *ir.Variable:
		if !bound[t.Name] {
			out[t.Name] = true
		}
	case *ir.Sequence:
		for _, e := range t.Exprs {
			freeVars(e, bound, out)
		}
	case *ir.Call:
		freeVars(t.Callee, bound, out)
		for _, a := range t.Args {
			freeVars(a, bound, out)
		}
	case *ir.Assign:
		switch target := t.Target.(type) {
		case *ir.VarTarget:
			if !bound[target.Name] {
				out[target.Name] = true
			}
		case *ir.MemberTarget:
			freeVars(target.Receiver, bound, out)
			freeVars(target.Key, bound, out)
		}
		freeVars(t.Value, bound, out)
	case *ir.If:
		freeVars(t.Cond, bound, out)
		freeVars(t.Then, bound, out)
		freeVars(t.Else, bound, out)
	case *ir.Let:
		freeVars(t.Value, bound, out)
		inner := extend(bound, patternNames(t.Pattern))
		freeVars(t.Body, inner, out)
	case *ir.Match:
		freeVars(t.Discriminant, bound, out)
		for _, arm := range t.Arms {
			inner := extend(bound, patternNames(arm.Pattern))
			freeVars(arm.Body, inner, out)
		}
	case *ir.While:
		freeVars(t.Cond, bound, out)
		freeVars(t.Body, bound, out)
	case *ir.Break:
		freeVars(t.Value, bound, out)
	case *ir.Continue:
	case *ir.For:
		freeVars(t.Iterator, bound, out)
		inner := extend(bound, patternNames(t.Pattern))
		freeVars(t.Body, inner, out)
		freeVars(t.Else, bound, out)
	case *ir.Closure:
		inner := extend(bound, nil)
		if t.Name != "" {
			inner[t.Name] = true
		}
		for _, p := range t.Params {
			for _, name := range patternNames(p) {
				inner[name] = true
			}
		}
		freeVars(t.Body, inner, out)
		for _, m := range t.Members {
			freeVars(m, inner, out)
		}
	case *ir.When:
		freeVars(t.Body, bound, out)
		inner := extend(bound, patternNames(t.EffectPattern))
		inner[t.Resume] = true
		freeVars(t.HandlerBody, inner, out)
	case *ir.Yield:
		freeVars(t.Effect, bound, out)
	case *ir.Resume:
		freeVars(t.Value, bound, out)
	case *ir.Cancel:
		freeVars(t.Value, bound, out)
	case *ir.Conjunction:
		freeVars(t.Left, bound, out)
		freeVars(t.Right, extend(bound, queryBoundVars(t.Left)), out)
	case *ir.Disjunction:
		freeVars(t.Left, bound, out)
		freeVars(t.Right, bound, out)
	case *ir.Negation:
		freeVars(t.Node, bound, out)
	case *ir.Implication:
		freeVars(t.Antecedent, bound, out)
		freeVars(t.Consequent, extend(bound, queryBoundVars(t.Antecedent)), out)
	}
}

// queryBoundVars names every query variable n's own success is guaranteed
// to leave bound, for a sibling that runs only once n has already
// succeeded (Conjunction's Right, Implication's Consequent) -- per
// ir.Conjunction's own documented contract that "a query variable bound
// in Left is visible to Right." Disjunction's two arms may bind
// differently shaped names depending which one actually matched, so
// nothing downstream of a Disjunction can rely on any of them.
func queryBoundVars(n ir.Node) []string {
	switch t := n.(type) {
	case *ir.Let:
		return append(patternNames(t.Pattern), queryBoundVars(t.Body)...)
	case *ir.Conjunction:
		return append(queryBoundVars(t.Left), queryBoundVars(t.Right)...)
	default:
		return nil
	}
}

func extend(bound map[string]bool, names []string) map[string]bool {
	inner := make(map[string]bool, len(bound)+len(names))
	for k := range bound {
		inner[k] = true
	}
	for _, n := range names {
		inner[n] = true
	}
	return inner
}

// assignsTo reports whether n contains an Assign targeting name anywhere
// within it (including inside nested closures, which still share the same
// boxed cell if name is captured). Combined with a capture check, this is
// the boxing trigger of spec §4.7 point 3: a binding is promoted to a
// one-cell reference only if it is both ever reassigned and ever captured
// by a nested closure, so an ordinary mutable local that never crosses a
// closure boundary stays a plain stack slot.
func assignsTo(n ir.Node, name string) bool {
	found := false
	var walk func(n ir.Node)
	walk = func(n ir.Node) {
		if n == nil || found {
			return
		}
		switch t := n.(type) {
		case *ir.Assign:
			if target, ok := t.Target.(*ir.VarTarget); ok && target.Name == name {
				found = true
				return
			}
			if target, ok := t.Target.(*ir.MemberTarget); ok {
				walk(target.Receiver)
				walk(target.Key)
			}
			walk(t.Value)
		case *ir.Sequence:
			for _, e := range t.Exprs {
				walk(e)
			}
		case *ir.Call:
			walk(t.Callee)
			for _, a := range t.Args {
				walk(a)
			}
		case *ir.If:
			walk(t.Cond)
			walk(t.Then)
			walk(t.Else)
		case *ir.Let:
			walk(t.Value)
			walk(t.Body)
		case *ir.Match:
			walk(t.Discriminant)
			for _, arm := range t.Arms {
				walk(arm.Body)
			}
		case *ir.While:
			walk(t.Cond)
			walk(t.Body)
		case *ir.Break:
			walk(t.Value)
		case *ir.For:
			walk(t.Iterator)
			walk(t.Body)
			walk(t.Else)
		case *ir.Closure:
			walk(t.Body)
			for _, m := range t.Members {
				walk(m)
			}
		case *ir.When:
			walk(t.Body)
			walk(t.HandlerBody)
		case *ir.Yield:
			walk(t.Effect)
		case *ir.Resume:
			walk(t.Value)
		case *ir.Cancel:
			walk(t.Value)
		case *ir.Conjunction:
			walk(t.Left)
			walk(t.Right)
		case *ir.Disjunction:
			walk(t.Left)
			walk(t.Right)
		case *ir.Negation:
			walk(t.Node)
		case *ir.Implication:
			walk(t.Antecedent)
			walk(t.Consequent)
		}
	}
	walk(n)
	return found
}

// capturesName reports whether n contains a nested Closure whose body (or
// further-nested closures) references name as a free variable.
func capturesName(n ir.Node, name string) bool {
	found := false
	var walk func(n ir.Node)
	walk = func(n ir.Node) {
		if n == nil || found {
			return
		}
		switch t := n.(type) {
		case *ir.Closure:
			free := make(map[string]bool)
			bound := make(map[string]bool)
			if t.Name != "" {
				bound[t.Name] = true
			}
			for _, p := range t.Params {
				for _, pname := range patternNames(p) {
					bound[pname] = true
				}
			}
			freeVars(t.Body, bound, free)
			for _, m := range t.Members {
				freeVars(m, bound, free)
			}
			if free[name] {
				found = true
				return
			}
			walk(t.Body)
			for _, m := range t.Members {
				walk(m)
			}
		case *ir.Sequence:
			for _, e := range t.Exprs {
				walk(e)
			}
		case *ir.Call:
			walk(t.Callee)
			for _, a := range t.Args {
				walk(a)
			}
		case *ir.Assign:
			if target, ok := t.Target.(*ir.MemberTarget); ok {
				walk(target.Receiver)
				walk(target.Key)
			}
			walk(t.Value)
		case *ir.If:
			walk(t.Cond)
			walk(t.Then)
			walk(t.Else)
		case *ir.Let:
			walk(t.Value)
			walk(t.Body)
		case *ir.Match:
			walk(t.Discriminant)
			for _, arm := range t.Arms {
				walk(arm.Body)
			}
		case *ir.While:
			walk(t.Cond)
			walk(t.Body)
		case *ir.Break:
			walk(t.Value)
		case *ir.For:
			walk(t.Iterator)
			walk(t.Body)
			walk(t.Else)
		case *ir.When:
			walk(t.Body)
			walk(t.HandlerBody)
		case *ir.Yield:
			walk(t.Effect)
		case *ir.Resume:
			walk(t.Value)
		case *ir.Cancel:
			walk(t.Value)
		case *ir.Conjunction:
			walk(t.Left)
			walk(t.Right)
		case *ir.Disjunction:
			walk(t.Left)
			walk(t.Right)
		case *ir.Negation:
			walk(t.Node)
		case *ir.Implication:
			walk(t.Antecedent)
			walk(t.Consequent)
		}
	}
	walk(n)
	return found
}

// needsBoxing combines both halves of the boxing trigger for one name
// declared by the body containing it.
func needsBoxing(body ir.Node, name string) bool {
	return assignsTo(body, name) && capturesName(body, name)
}
