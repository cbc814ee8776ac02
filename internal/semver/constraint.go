package semver

import (
	"fmt"
	"strings"
)

// Op is one of the five constraint operators.
type Op string

const (
	OpEQ Op = "="
	OpGE Op = ">="
	OpGT Op = ">"
	OpLE Op = "<="
	OpLT Op = "<"
)

// Constraint is a parsed dependency constraint: a bare package name, or a
// name with an operator and version. A zero-value Bound is "any version".
type Constraint struct {
	Name    string
	Bound   bool
	Op      Op
	Version Version
}

// ParseConstraint parses the grammar:
//
//	constraint := name | name OP version
//	OP         := "=" | ">=" | ">" | "<=" | "<"
//
// Whitespace around the operator is insensitive; a bare name means "any
// installed version is accepted".
func ParseConstraint(s string) (Constraint, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Constraint{}, &ParseError{Input: s, Reason: "empty constraint"}
	}

	for _, op := range []Op{OpGE, OpLE, OpEQ, OpGT, OpLT} {
		idx := strings.Index(trimmed, string(op))
		if idx < 0 {
			continue
		}
		// Disambiguate ">" / "<" from ">=" / "<=" by checking the next rune.
		if (op == OpGT && strings.HasPrefix(trimmed[idx:], ">=")) ||
			(op == OpLT && strings.HasPrefix(trimmed[idx:], "<=")) {
			continue
		}
		name := strings.TrimSpace(trimmed[:idx])
		rest := strings.TrimSpace(trimmed[idx+len(op):])
		if name == "" || rest == "" {
			return Constraint{}, &ParseError{Input: s, Reason: "missing name or version around operator"}
		}
		v, err := Parse(rest)
		if err != nil {
			return Constraint{}, &ParseError{Input: s, Reason: fmt.Sprintf("invalid version %q in constraint", rest)}
		}
		return Constraint{Name: name, Bound: true, Op: op, Version: v}, nil
	}

	// No operator found: bare name, any version accepted.
	if strings.ContainsAny(trimmed, "<>=") {
		return Constraint{}, &ParseError{Input: s, Reason: "unknown operator"}
	}
	return Constraint{Name: trimmed, Bound: false}, nil
}

// Satisfies reports whether v satisfies the constraint.
func (c Constraint) Satisfies(v Version) bool {
	if !c.Bound {
		return true
	}
	switch c.Op {
	case OpEQ:
		return v.Equal(c.Version)
	case OpGE:
		return v.Equal(c.Version) || v.GreaterThan(c.Version)
	case OpGT:
		return v.GreaterThan(c.Version)
	case OpLE:
		return v.Equal(c.Version) || v.LessThan(c.Version)
	case OpLT:
		return v.LessThan(c.Version)
	default:
		return false
	}
}

// String renders the constraint back to its canonical textual form.
func (c Constraint) String() string {
	if !c.Bound {
		return c.Name
	}
	return fmt.Sprintf("%s %s %s", c.Name, c.Op, c.Version)
}
