package byteslice

import (
	"fmt"
	"strings"
)

// Comparator is the comparison applied between a code and a literal.
type Comparator uint8

const (
	Equal        Comparator = iota // code == literal
	NotEqual                       // code != literal
	Less                           // code < literal
	LessEqual                      // code <= literal
	Greater                        // code > literal
	GreaterEqual                   // code >= literal
)

// String returns the operator symbol.
func (c Comparator) String() string {
	switch c {
	case Equal:
		return "="
	case NotEqual:
		return "!="
	case Less:
		return "<"
	case LessEqual:
		return "<="
	case Greater:
		return ">"
	case GreaterEqual:
		return ">="
	default:
		return fmt.Sprintf("Comparator(%d)", uint8(c))
	}
}

// ParseComparator accepts an operator symbol or its name (case-insensitive),
// e.g. "<=", "le" or "lessequal".
func ParseComparator(s string) (Comparator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "=", "==", "eq", "equal":
		return Equal, nil
	case "!=", "<>", "ne", "notequal":
		return NotEqual, nil
	case "<", "lt", "less":
		return Less, nil
	case "<=", "le", "lessequal":
		return LessEqual, nil
	case ">", "gt", "greater":
		return Greater, nil
	case ">=", "ge", "greaterequal":
		return GreaterEqual, nil
	}
	return 0, fmt.Errorf("%w: unknown comparator %q", ErrInvalidPredicate, s)
}

func (c Comparator) valid() bool {
	return c <= GreaterEqual
}

// Eval applies the comparator to scalar operands.
func (c Comparator) Eval(code, literal uint32) bool {
	switch c {
	case Equal:
		return code == literal
	case NotEqual:
		return code != literal
	case Less:
		return code < literal
	case LessEqual:
		return code <= literal
	case Greater:
		return code > literal
	case GreaterEqual:
		return code >= literal
	}
	return false
}

// triState tracks one predicate over the byte slices processed so far. Every
// lane is in exactly one of equal, less or greater; less and greater never
// clear once set. success and fail are derived from them by derive.
type triState struct {
	equal   mask
	less    mask
	greater mask
	success mask
	fail    mask
}

// first evaluates the most significant slice from scratch.
func (ts *triState) first(data, lit vec, cmp Comparator) {
	for w := range vecWords {
		ts.equal[w] = cmpeqWord(data[w], lit[w])
		ts.less[w] = cmpgtWord(lit[w], data[w])
		ts.greater[w] = cmpgtWord(data[w], lit[w])
	}
	ts.derive(cmp)
}

// refine evaluates a further slice for the lanes that are still equal.
func (ts *triState) refine(data, lit vec, cmp Comparator) {
	for w := range vecWords {
		eq := ts.equal[w]
		ts.less[w] |= eq & cmpgtWord(lit[w], data[w])
		ts.greater[w] |= eq & cmpgtWord(data[w], lit[w])
		ts.equal[w] = eq & cmpeqWord(data[w], lit[w])
	}
	ts.derive(cmp)
}

// derive computes success and fail. For <= and >= the strict masks decide
// early; the boundary case stays pending until resolve.
func (ts *triState) derive(cmp Comparator) {
	switch cmp {
	case Equal:
		ts.fail = ts.equal.not()
		ts.success = mask{}
	case NotEqual:
		ts.fail = mask{}
		ts.success = ts.equal.not()
	case Less, LessEqual:
		ts.fail = ts.greater
		ts.success = ts.less
	case Greater, GreaterEqual:
		ts.fail = ts.less
		ts.success = ts.greater
	}
}

// resolve maps the settled tri-state to the predicate's result.
func (ts *triState) resolve(cmp Comparator) mask {
	switch cmp {
	case Equal:
		return ts.equal
	case NotEqual:
		return ts.equal.not()
	case Less:
		return ts.less
	case LessEqual:
		return ts.less.or(ts.equal)
	case Greater:
		return ts.greater
	case GreaterEqual:
		return ts.greater.or(ts.equal)
	}
	return mask{}
}
