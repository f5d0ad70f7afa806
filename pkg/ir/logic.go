package ir

// The logic-query nodes below only occur inside a KindQy closure's body
// (see closure.go): they describe the search the rule iterator protocol
// drives, not an ordinary value-producing expression. Each names how the
// generator should thread the current success/backtrack continuations
// (spec §4.8): conjunction chains them, disjunction tries Right once Left
// backtracks, negation inverts exhaustion, implication is sugar over both.

// Conjunction succeeds by running Left then, only if Left succeeds,
// Right; a query variable bound in Left is visible to Right.
type Conjunction struct {
	Left  Node
	Right Node
}

func (*Conjunction) irNode() {}

// Disjunction tries every solution Left can produce before trying Right,
// via backtracking rather than the VM's cross-execution BRANCH -- see
// DESIGN.md for why a caller-driven rule iterator cannot be built on top
// of BRANCH's independent-Execution fork.
type Disjunction struct {
	Left  Node
	Right Node
}

func (*Disjunction) irNode() {}

// Negation succeeds, binding nothing, iff Node has no solutions at all.
type Negation struct {
	Node Node
}

func (*Negation) irNode() {}

// Implication succeeds if Antecedent has no solutions, or if it does,
// Consequent succeeds.
type Implication struct {
	Antecedent Node
	Consequent Node
}

func (*Implication) irNode() {}
