//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package question

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// toFloat converts numeric representations produced by decoding JSON or by
// callers into float64. Strings are deliberately excluded; string-to-number
// coercion is a repair, not validation.
func toFloat(v any) (float64, bool) {
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
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func isInteger(f float64) bool {
	return f == math.Trunc(f)
}

// toStringSlice accepts []string and []any-of-strings.
func toStringSlice(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return x, true
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func toStringMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// matchOption resolves a reply against the option labels: exact match first,
// then case-insensitive, then unique substring containment either way.
func matchOption(options []string, reply string) (string, bool) {
	for _, o := range options {
		if o == reply {
			return o, true
		}
	}
	lower := strings.ToLower(strings.TrimSpace(reply))
	for _, o := range options {
		if strings.ToLower(o) == lower {
			return o, true
		}
	}
	var hit string
	hits := 0
	for _, o := range options {
		lo := strings.ToLower(o)
		if strings.Contains(lower, lo) || strings.Contains(lo, lower) {
			hit = o
			hits++
		}
	}
	if hits == 1 && lower != "" {
		return hit, true
	}
	return "", false
}

// --- construction checks ---

func checkTopK(q *Question) error {
	if err := requireOptions(q); err != nil {
		return err
	}
	if q.NumSelections == nil || *q.NumSelections <= 0 {
		return fmt.Errorf("top_k question requires a positive num_selections")
	}
	if *q.NumSelections > len(q.Options) {
		return fmt.Errorf("num_selections %d exceeds option count %d", *q.NumSelections, len(q.Options))
	}
	return nil
}

func checkLinearScale(q *Question) error {
	if q.ScaleLo == nil || q.ScaleHi == nil {
		return fmt.Errorf("linear_scale question requires scale bounds")
	}
	if *q.ScaleLo >= *q.ScaleHi {
		return fmt.Errorf("scale lo %d must be below hi %d", *q.ScaleLo, *q.ScaleHi)
	}
	for v := range q.ScaleLabels {
		if v < *q.ScaleLo || v > *q.ScaleHi {
			return fmt.Errorf("scale label value %d outside [%d, %d]", v, *q.ScaleLo, *q.ScaleHi)
		}
	}
	return nil
}

func checkDict(q *Question) error {
	if len(q.AnswerKeys) == 0 {
		return fmt.Errorf("%s question requires answer_keys", q.Type)
	}
	for k, t := range q.AnswerTypes {
		switch t {
		case "string", "number", "boolean", "list", "any":
		default:
			return fmt.Errorf("answer key %q has unsupported type %q", k, t)
		}
	}
	return nil
}

func checkMatrix(q *Question) error {
	if len(q.Rows) == 0 || len(q.Columns) == 0 {
		return fmt.Errorf("matrix question requires rows and columns")
	}
	return nil
}

func checkBudget(q *Question) error {
	if err := requireOptions(q); err != nil {
		return err
	}
	if q.BudgetSum == nil || *q.BudgetSum < 0 {
		return fmt.Errorf("budget question requires a non-negative budget_sum")
	}
	return nil
}

func checkCompute(q *Question) error {
	if strings.TrimSpace(q.Expression) == "" {
		return fmt.Errorf("compute question requires an expression")
	}
	_, err := parseComputeExpr(q.Expression)
	return err
}

func checkSchema(q *Question) error {
	if len(q.Schema) == 0 {
		return fmt.Errorf("pydantic_schema question requires an answer_schema")
	}
	_, err := compileSchema(q.Schema)
	return err
}

// --- validators ---

func validateFreeText(q *Question, answer any) *ValidationError {
	if _, ok := answer.(string); !ok {
		return invalidf(ErrKindShape, answer, "expected a string, got %T", answer)
	}
	return nil
}

func validateMultipleChoice(q *Question, answer any) *ValidationError {
	s, ok := answer.(string)
	if !ok {
		return invalidf(ErrKindShape, answer, "expected a string option, got %T", answer)
	}
	if q.Permissive {
		return nil
	}
	if _, ok := matchOption(q.Options, s); !ok {
		return invalidf(ErrKindOption, answer, "%q is not one of the options", s)
	}
	return nil
}

func validateMultipleChoiceWithOther(q *Question, answer any) *ValidationError {
	if _, ok := answer.(string); !ok {
		return invalidf(ErrKindShape, answer, "expected a string, got %T", answer)
	}
	// Any string is acceptable; the registered options are a suggestion.
	return nil
}

func validateCheckBox(q *Question, answer any) *ValidationError {
	items, ok := toStringSlice(answer)
	if !ok {
		return invalidf(ErrKindShape, answer, "expected a list of options, got %T", answer)
	}
	for _, item := range items {
		if _, ok := matchOption(q.Options, item); !ok {
			return invalidf(ErrKindOption, answer, "%q is not one of the options", item)
		}
	}
	if q.Permissive {
		return nil
	}
	if q.MinSelections != nil && len(items) < *q.MinSelections {
		return invalidf(ErrKindCardinal, answer, "%d selections below minimum %d", len(items), *q.MinSelections)
	}
	if q.MaxSelections != nil && len(items) > *q.MaxSelections {
		return invalidf(ErrKindCardinal, answer, "%d selections above maximum %d", len(items), *q.MaxSelections)
	}
	return nil
}

func validateTopK(q *Question, answer any) *ValidationError {
	items, ok := toStringSlice(answer)
	if !ok {
		return invalidf(ErrKindShape, answer, "expected a list of options, got %T", answer)
	}
	for _, item := range items {
		if _, ok := matchOption(q.Options, item); !ok {
			return invalidf(ErrKindOption, answer, "%q is not one of the options", item)
		}
	}
	if q.Permissive {
		return nil
	}
	if q.NumSelections != nil && len(items) != *q.NumSelections {
		return invalidf(ErrKindCardinal, answer, "expected exactly %d selections, got %d", *q.NumSelections, len(items))
	}
	return nil
}

func validateNumerical(q *Question, answer any) *ValidationError {
	f, ok := toFloat(answer)
	if !ok {
		return invalidf(ErrKindShape, answer, "expected a number, got %T", answer)
	}
	if q.Permissive {
		return nil
	}
	if q.MinValue != nil && f < *q.MinValue {
		return invalidf(ErrKindRange, answer, "%v below minimum %v", f, *q.MinValue)
	}
	if q.MaxValue != nil && f > *q.MaxValue {
		return invalidf(ErrKindRange, answer, "%v above maximum %v", f, *q.MaxValue)
	}
	return nil
}

func validateLinearScale(q *Question, answer any) *ValidationError {
	f, ok := toFloat(answer)
	if !ok || !isInteger(f) {
		return invalidf(ErrKindShape, answer, "expected an integer, got %v", answer)
	}
	n := int(f)
	if q.Permissive {
		return nil
	}
	if n < *q.ScaleLo || n > *q.ScaleHi {
		return invalidf(ErrKindRange, answer, "%d outside scale [%d, %d]", n, *q.ScaleLo, *q.ScaleHi)
	}
	return nil
}

func validateList(q *Question, answer any) *ValidationError {
	items, ok := toStringSlice(answer)
	if !ok {
		return invalidf(ErrKindShape, answer, "expected a list of strings, got %T", answer)
	}
	if q.Permissive {
		return nil
	}
	if q.MinListItems != nil && len(items) < *q.MinListItems {
		return invalidf(ErrKindCardinal, answer, "%d items below minimum %d", len(items), *q.MinListItems)
	}
	if q.MaxListItems != nil && len(items) > *q.MaxListItems {
		return invalidf(ErrKindCardinal, answer, "%d items above maximum %d", len(items), *q.MaxListItems)
	}
	return nil
}

func validateDict(q *Question, answer any) *ValidationError {
	m, ok := toStringMap(answer)
	if !ok {
		return invalidf(ErrKindShape, answer, "expected an object, got %T", answer)
	}
	for _, key := range q.AnswerKeys {
		v, present := m[key]
		if !present {
			if q.Permissive {
				continue
			}
			return invalidf(ErrKindShape, answer, "missing key %q", key)
		}
		if verr := checkValueType(key, q.AnswerTypes[key], v); verr != nil {
			return verr
		}
	}
	return nil
}

func checkValueType(key, typ string, v any) *ValidationError {
	switch typ {
	case "", "any":
		return nil
	case "string":
		if _, ok := v.(string); !ok {
			return invalidf(ErrKindShape, v, "key %q expects a string, got %T", key, v)
		}
	case "number":
		if _, ok := toFloat(v); !ok {
			return invalidf(ErrKindShape, v, "key %q expects a number, got %T", key, v)
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return invalidf(ErrKindShape, v, "key %q expects a boolean, got %T", key, v)
		}
	case "list":
		switch v.(type) {
		case []any, []string:
		default:
			return invalidf(ErrKindShape, v, "key %q expects a list, got %T", key, v)
		}
	}
	return nil
}

func validateMatrix(q *Question, answer any) *ValidationError {
	m, ok := toStringMap(answer)
	if !ok {
		return invalidf(ErrKindShape, answer, "expected an object, got %T", answer)
	}
	for _, row := range q.Rows {
		v, present := m[row]
		if !present {
			if q.Permissive {
				continue
			}
			return invalidf(ErrKindShape, answer, "missing row %q", row)
		}
		col, ok := v.(string)
		if !ok {
			return invalidf(ErrKindShape, answer, "row %q expects a column label, got %T", row, v)
		}
		if _, ok := matchOption(q.Columns, col); !ok {
			return invalidf(ErrKindOption, answer, "row %q: %q is not a column", row, col)
		}
	}
	return nil
}

func validateRank(q *Question, answer any) *ValidationError {
	items, ok := toStringSlice(answer)
	if !ok {
		return invalidf(ErrKindShape, answer, "expected a ranked list, got %T", answer)
	}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		resolved, ok := matchOption(q.Options, item)
		if !ok {
			return invalidf(ErrKindOption, answer, "%q is not one of the options", item)
		}
		if seen[resolved] {
			return invalidf(ErrKindPermute, answer, "%q appears more than once", resolved)
		}
		seen[resolved] = true
	}
	if q.Permissive {
		return nil
	}
	want := len(q.Options)
	if q.NumSelections != nil {
		want = *q.NumSelections
	}
	if len(items) != want {
		return invalidf(ErrKindPermute, answer, "expected %d ranked items, got %d", want, len(items))
	}
	return nil
}

// budgetTolerance is the rounding slack allowed on budget sums.
const budgetTolerance = 1e-6

func validateBudget(q *Question, answer any) *ValidationError {
	m, ok := toStringMap(answer)
	if !ok {
		return invalidf(ErrKindShape, answer, "expected an allocation object, got %T", answer)
	}
	total := 0.0
	for option, v := range m {
		if _, ok := matchOption(q.Options, option); !ok {
			return invalidf(ErrKindOption, answer, "%q is not one of the options", option)
		}
		f, ok := toFloat(v)
		if !ok {
			return invalidf(ErrKindShape, answer, "allocation for %q expects a number, got %T", option, v)
		}
		if f < 0 {
			return invalidf(ErrKindRange, answer, "allocation for %q is negative", option)
		}
		total += f
	}
	if q.Permissive {
		return nil
	}
	if math.Abs(total-*q.BudgetSum) > budgetTolerance {
		return invalidf(ErrKindSum, answer, "allocations sum to %v, expected %v", total, *q.BudgetSum)
	}
	return nil
}

func validateCompute(q *Question, answer any) *ValidationError {
	if _, ok := toFloat(answer); !ok {
		return invalidf(ErrKindExpression, answer, "compute result must be numeric, got %T", answer)
	}
	return nil
}

// --- normalizers ---

func normalizeTrim(q *Question, answer any) any {
	if s, ok := answer.(string); ok {
		return strings.TrimSpace(s)
	}
	return answer
}

func normalizeOption(q *Question, answer any) any {
	if s, ok := answer.(string); ok {
		if resolved, ok := matchOption(q.Options, s); ok {
			return resolved
		}
		return strings.TrimSpace(s)
	}
	return answer
}

func normalizeOptionList(q *Question, answer any) any {
	items, ok := toStringSlice(answer)
	if !ok {
		return answer
	}
	out := make([]string, len(items))
	for i, item := range items {
		if resolved, ok := matchOption(q.Options, item); ok {
			out[i] = resolved
		} else {
			out[i] = strings.TrimSpace(item)
		}
	}
	return out
}

func normalizeStringList(q *Question, answer any) any {
	items, ok := toStringSlice(answer)
	if !ok {
		return answer
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = strings.TrimSpace(item)
	}
	return out
}

func normalizeNumber(q *Question, answer any) any {
	if f, ok := toFloat(answer); ok {
		return f
	}
	return answer
}

func normalizeInteger(q *Question, answer any) any {
	if f, ok := toFloat(answer); ok && isInteger(f) {
		return int(f)
	}
	return answer
}

// normalizeBudget rounds allocations to 6 decimal places and coerces values
// to float64.
func normalizeBudget(q *Question, answer any) any {
	m, ok := toStringMap(answer)
	if !ok {
		return answer
	}
	out := make(map[string]any, len(m))
	for option, v := range m {
		resolved := option
		if r, ok := matchOption(q.Options, option); ok {
			resolved = r
		}
		if f, ok := toFloat(v); ok {
			out[resolved] = math.Round(f*1e6) / 1e6
		} else {
			out[resolved] = v
		}
	}
	return out
}
