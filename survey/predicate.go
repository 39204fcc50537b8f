//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package survey

import (
	"fmt"
	"strings"
)

// Comparison operators supported by rule predicates.
const (
	OpEqual              = "=="
	OpNotEqual           = "!="
	OpGreaterThan        = ">"
	OpLessThan           = "<"
	OpGreaterThanOrEqual = ">="
	OpLessThanOrEqual    = "<="
	OpIn                 = "in"
	OpNotIn              = "not_in"
	OpContains           = "contains"
)

// Predicate is a boolean expression over prior answers. Exactly one of All,
// Any, Not or the leaf triple (Variable, Operator, Value) is set. The
// structured form serializes with the survey; Parse builds it from the
// compact text form.
type Predicate struct {
	// All is satisfied when every child is (logical and).
	All []*Predicate `json:"all,omitempty" yaml:"all,omitempty"`
	// Any is satisfied when at least one child is (logical or).
	Any []*Predicate `json:"any,omitempty" yaml:"any,omitempty"`
	// Not negates its child.
	Not *Predicate `json:"not,omitempty" yaml:"not,omitempty"`

	// Variable is a dotted path into the answers, e.g. "q1.answer".
	// A bare question name resolves to its answer.
	Variable string `json:"variable,omitempty" yaml:"variable,omitempty"`
	// Operator is one of the comparison operators.
	Operator string `json:"operator,omitempty" yaml:"operator,omitempty"`
	// Value is the comparison operand.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`
}

// Evaluate tests the predicate against answers: a map from question name to
// the structured answer value.
func (p *Predicate) Evaluate(answers map[string]any) (bool, error) {
	switch {
	case p == nil:
		return false, fmt.Errorf("nil predicate")
	case len(p.All) > 0:
		for _, child := range p.All {
			ok, err := child.Evaluate(answers)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case len(p.Any) > 0:
		for _, child := range p.Any {
			ok, err := child.Evaluate(answers)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case p.Not != nil:
		ok, err := p.Not.Evaluate(answers)
		return !ok, err
	default:
		return p.evaluateLeaf(answers)
	}
}

func (p *Predicate) evaluateLeaf(answers map[string]any) (bool, error) {
	actual, ok := resolveVariable(answers, p.Variable)
	if !ok {
		// An unanswered question never satisfies a rule; the survey walks
		// forward and rules only look backward.
		return false, nil
	}
	return compareValues(p.Operator, actual, p.Value)
}

// resolveVariable resolves "q1", "q1.answer" or deeper dotted paths against
// the answers map. Bare names resolve to the answer itself.
func resolveVariable(answers map[string]any, variable string) (any, bool) {
	parts := strings.Split(variable, ".")
	v, ok := answers[parts[0]]
	if !ok {
		return nil, false
	}
	for _, part := range parts[1:] {
		if part == "answer" && len(parts) == 2 {
			// "q.answer" is an alias for the answer value itself.
			return v, true
		}
		m, isMap := v.(map[string]any)
		if !isMap {
			return nil, false
		}
		v, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return v, true
}

func compareValues(op string, actual, expected any) (bool, error) {
	switch op {
	case OpEqual:
		return looseEqual(actual, expected), nil
	case OpNotEqual:
		return !looseEqual(actual, expected), nil
	case OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual:
		a, aok := asFloat(actual)
		b, bok := asFloat(expected)
		if !aok || !bok {
			return false, fmt.Errorf("operator %q requires numbers, got %T and %T", op, actual, expected)
		}
		switch op {
		case OpGreaterThan:
			return a > b, nil
		case OpLessThan:
			return a < b, nil
		case OpGreaterThanOrEqual:
			return a >= b, nil
		default:
			return a <= b, nil
		}
	case OpIn, OpNotIn:
		list, ok := asSlice(expected)
		if !ok {
			return false, fmt.Errorf("operator %q requires a list operand", op)
		}
		found := false
		for _, elem := range list {
			if looseEqual(actual, elem) {
				found = true
				break
			}
		}
		if op == OpIn {
			return found, nil
		}
		return !found, nil
	case OpContains:
		switch hay := actual.(type) {
		case string:
			needle, ok := expected.(string)
			if !ok {
				return false, fmt.Errorf("contains on a string requires a string operand")
			}
			return strings.Contains(hay, needle), nil
		default:
			list, ok := asSlice(actual)
			if !ok {
				return false, fmt.Errorf("contains requires a string or list subject, got %T", actual)
			}
			for _, elem := range list {
				if looseEqual(elem, expected) {
					return true, nil
				}
			}
			return false, nil
		}
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}

// looseEqual compares across the numeric types JSON decoding produces and
// compares strings case-sensitively.
func looseEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func asSlice(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
