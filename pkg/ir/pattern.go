package ir

import "github.com/lumen-lang/lumen/pkg/value"

// Pattern is a destructuring match target: used by Let (irrefutable),
// Match arms (refutable), closure parameter lists, and the rule iterator
// protocol's bindings. Every Pattern either matches, binding zero or more
// names, or fails to the generator's current failure label.
type Pattern interface {
	irPattern()
}

// WildcardPattern matches anything and binds nothing.
type WildcardPattern struct{}

func (*WildcardPattern) irPattern() {}

// BindPattern matches anything and binds it to Name.
type BindPattern struct {
	Name string
}

func (*BindPattern) irPattern() {}

// LiteralPattern matches iff the scrutinee is structurally equal to Value.
type LiteralPattern struct {
	Value value.Value
}

func (*LiteralPattern) irPattern() {}

// TuplePattern matches a *value.Tuple, destructuring both cells.
type TuplePattern struct {
	First  Pattern
	Second Pattern
}

func (*TuplePattern) irPattern() {}

// StructPattern matches a *value.Struct tagged with Tag, destructuring its
// inner value.
type StructPattern struct {
	Tag   value.Atom
	Inner Pattern
}

func (*StructPattern) irPattern() {}

// ArrayPattern matches a *value.Array of exactly len(Elements) items.
// Variadic (rest-binding) array patterns are not supported by this pass;
// see DESIGN.md.
type ArrayPattern struct {
	Elements []Pattern
}

func (*ArrayPattern) irPattern() {}
