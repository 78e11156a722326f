package byteslice

import (
	"fmt"
	"strings"
)

// Combinator joins the results of several predicates.
type Combinator uint8

const (
	And Combinator = iota // all predicates hold
	Or                    // at least one predicate holds
)

// String returns "AND" or "OR".
func (op Combinator) String() string {
	switch op {
	case And:
		return "AND"
	case Or:
		return "OR"
	default:
		return fmt.Sprintf("Combinator(%d)", uint8(op))
	}
}

// ParseCombinator accepts "and", "&&", "or" or "||" (case-insensitive).
func ParseCombinator(s string) (Combinator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "and", "&&", "&":
		return And, nil
	case "or", "||", "|":
		return Or, nil
	}
	return 0, fmt.Errorf("%w: unknown combinator %q", ErrInvalidCombinator, s)
}

func (op Combinator) valid() bool {
	return op <= Or
}

// Apply combines two scalar results.
func (op Combinator) Apply(a, b bool) bool {
	if op == Or {
		return a || b
	}
	return a && b
}

// aggState is the joint early-stop view of one or more predicates. equal
// marks lanes whose combined outcome may still change with further slices.
type aggState struct {
	equal   mask
	success mask
	fail    mask
}

func (ts *triState) agg() aggState {
	return aggState{equal: ts.equal, success: ts.success, fail: ts.fail}
}

// aggregate folds two early-stop states under op. Under AND a lane stays
// pending only while neither side failed and one side is undecided; OR is
// the dual with success.
func aggregate(op Combinator, a, b aggState) aggState {
	switch op {
	case Or:
		return aggState{
			equal:   a.success.andNot(b.equal).or(b.success.andNot(a.equal)),
			success: a.success.or(b.success),
			fail:    a.fail.and(b.fail),
		}
	default:
		return aggState{
			equal:   a.fail.andNot(b.equal).or(b.fail.andNot(a.equal)),
			success: a.success.and(b.success),
			fail:    a.fail.or(b.fail),
		}
	}
}

// combine joins two resolved predicate results under op.
func combine(op Combinator, a, b mask) mask {
	if op == Or {
		return a.or(b)
	}
	return a.and(b)
}
