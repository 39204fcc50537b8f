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
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadNames(t *testing.T) {
	_, err := New("1bad", TypeFreeText, "text")
	require.Error(t, err)
	_, err = New("has space", TypeFreeText, "text")
	require.Error(t, err)
	_, err = New("ok_name", TypeFreeText, "text")
	require.NoError(t, err)
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New("q", Type("nope"), "text")
	require.Error(t, err)
}

func TestYesNoDefaultsOptions(t *testing.T) {
	q := MustNew("q", TypeYesNo, "Agree?")
	assert.Equal(t, []string{"Yes", "No"}, q.Options)
}

func TestFreeText(t *testing.T) {
	q := MustNew("q", TypeFreeText, "Say hi.")
	got, verr := ValidateAnswer(q, "  hello ")
	require.Nil(t, verr)
	assert.Equal(t, "hello", got)

	_, verr = ValidateAnswer(q, 7)
	require.Nil(t, verr, "numbers repair to strings")
}

func TestMultipleChoice(t *testing.T) {
	q := MustNew("q", TypeMultipleChoice, "Pick one", WithOptions("Yes", "No"))

	got, verr := ValidateAnswer(q, "Yes")
	require.Nil(t, verr)
	assert.Equal(t, "Yes", got)

	// Case-insensitive repair.
	got, verr = ValidateAnswer(q, "yes")
	require.Nil(t, verr)
	assert.Equal(t, "Yes", got)

	// Substring repair.
	got, verr = ValidateAnswer(q, "I would say No.")
	require.Nil(t, verr)
	assert.Equal(t, "No", got)

	_, verr = ValidateAnswer(q, "Maybe")
	require.NotNil(t, verr)
	assert.Equal(t, ErrKindOption, verr.Kind)
}

func TestCheckBoxConstraints(t *testing.T) {
	q := MustNew("q", TypeCheckBox, "Pick some",
		WithOptions("a", "b", "c", "d"), WithSelectionBounds(2, 3))

	got, verr := ValidateAnswer(q, []string{"a", "c"})
	require.Nil(t, verr)
	assert.Equal(t, []string{"a", "c"}, got)

	// Too few selections.
	_, verr = ValidateAnswer(q, []string{"a"})
	require.NotNil(t, verr)
	assert.Equal(t, ErrKindCardinal, verr.Kind)

	// Too many.
	_, verr = ValidateAnswer(q, []string{"a", "b", "c", "d"})
	require.NotNil(t, verr)

	// Permissive keeps structural checks but drops cardinality.
	p := MustNew("q", TypeCheckBox, "Pick some",
		WithOptions("a", "b", "c", "d"), WithSelectionBounds(2, 3), WithPermissive())
	got, verr = ValidateAnswer(p, []string{"a"})
	require.Nil(t, verr)
	assert.Equal(t, []string{"a"}, got)

	_, verr = ValidateAnswer(p, []string{"zzz"})
	require.NotNil(t, verr, "permissive still rejects unknown options")
}

func TestCheckBoxDelimitedRepair(t *testing.T) {
	q := MustNew("q", TypeCheckBox, "Pick some", WithOptions("a", "b", "c"))
	got, verr := ValidateAnswer(q, "a, b")
	require.Nil(t, verr)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestNumerical(t *testing.T) {
	q := MustNew("q", TypeNumerical, "How many?", WithValueBounds(0, 100))

	got, verr := ValidateAnswer(q, 42)
	require.Nil(t, verr)
	assert.Equal(t, 42.0, got)

	_, verr = ValidateAnswer(q, 101.0)
	require.NotNil(t, verr)
	assert.Equal(t, ErrKindRange, verr.Kind)

	// Regex extraction repair.
	got, verr = ValidateAnswer(q, "I'd estimate around 17 of them.")
	require.Nil(t, verr)
	assert.Equal(t, 17.0, got)
}

func TestLinearScaleLabelRepair(t *testing.T) {
	q := MustNew("q", TypeLinearScale, "Rate it",
		WithScale(1, 5, map[int]string{1: "I hate it", 5: "I love it"}))

	got, verr := ValidateAnswer(q, "I LOVE IT")
	require.Nil(t, verr)
	assert.Equal(t, 5, got)

	got, verr = ValidateAnswer(q, "I hate it")
	require.Nil(t, verr)
	assert.Equal(t, 1, got)

	// Sentiment keyword fallback.
	got, verr = ValidateAnswer(q, "feeling pretty neutral about this")
	require.Nil(t, verr)
	assert.Equal(t, 3, got)

	got, verr = ValidateAnswer(q, 4)
	require.Nil(t, verr)
	assert.Equal(t, 4, got)

	_, verr = ValidateAnswer(q, 9)
	require.NotNil(t, verr)
}

func TestListBounds(t *testing.T) {
	q := MustNew("q", TypeList, "Name three fruits", WithListBounds(3, 3))
	got, verr := ValidateAnswer(q, "apple, pear, fig")
	require.Nil(t, verr)
	assert.Equal(t, []string{"apple", "pear", "fig"}, got)

	_, verr = ValidateAnswer(q, []string{"apple"})
	require.NotNil(t, verr)
}

func TestDict(t *testing.T) {
	q := MustNew("q", TypeDict, "Describe",
		WithAnswerKeys([]string{"name", "age"}, map[string]string{"name": "string", "age": "number"}))

	got, verr := ValidateAnswer(q, map[string]any{"name": "Ada", "age": 36.0})
	require.Nil(t, verr)
	assert.NotNil(t, got)

	_, verr = ValidateAnswer(q, map[string]any{"name": "Ada"})
	require.NotNil(t, verr)

	_, verr = ValidateAnswer(q, map[string]any{"name": "Ada", "age": "old"})
	require.NotNil(t, verr)

	// String-encoded dict repairs into structured form.
	_, verr = ValidateAnswer(q, `{"name": "Ada", "age": 36}`)
	require.Nil(t, verr)
}

func TestMatrix(t *testing.T) {
	q := MustNew("q", TypeMatrix, "Rate each",
		WithMatrix([]string{"speed", "price"}, []string{"Low", "High"}))

	_, verr := ValidateAnswer(q, map[string]any{"speed": "Low", "price": "High"})
	require.Nil(t, verr)

	// Cell repair via case-insensitive column match.
	_, verr = ValidateAnswer(q, map[string]any{"speed": "low", "price": "HIGH"})
	require.Nil(t, verr)

	_, verr = ValidateAnswer(q, map[string]any{"speed": "Medium", "price": "High"})
	require.NotNil(t, verr)
}

func TestRank(t *testing.T) {
	q := MustNew("q", TypeRank, "Rank them", WithOptions("a", "b", "c"))

	got, verr := ValidateAnswer(q, []string{"c", "a", "b"})
	require.Nil(t, verr)
	assert.Equal(t, []string{"c", "a", "b"}, got)

	_, verr = ValidateAnswer(q, []string{"c", "a"})
	require.NotNil(t, verr)
	assert.Equal(t, ErrKindPermute, verr.Kind)

	_, verr = ValidateAnswer(q, []string{"a", "a", "b"})
	require.NotNil(t, verr)

	// k-prefix ranking.
	k := MustNew("q", TypeRank, "Rank top 2", WithOptions("a", "b", "c"), WithNumSelections(2))
	_, verr = ValidateAnswer(k, []string{"b", "c"})
	require.Nil(t, verr)
}

func TestBudget(t *testing.T) {
	q := MustNew("q", TypeBudget, "Allocate 100",
		WithOptions("x", "y"), WithBudget(100))

	got, verr := ValidateAnswer(q, map[string]any{"x": 60.0, "y": 40.0})
	require.Nil(t, verr)
	m := got.(map[string]any)
	assert.Equal(t, 60.0, m["x"])

	_, verr = ValidateAnswer(q, map[string]any{"x": 60.0, "y": 50.0})
	require.NotNil(t, verr)
	assert.Equal(t, ErrKindSum, verr.Kind)

	_, verr = ValidateAnswer(q, map[string]any{"x": -1.0, "y": 101.0})
	require.NotNil(t, verr)
}

func TestTopK(t *testing.T) {
	q := MustNew("q", TypeTopK, "Pick two", WithOptions("a", "b", "c"), WithNumSelections(2))
	_, verr := ValidateAnswer(q, []string{"a", "c"})
	require.Nil(t, verr)
	_, verr = ValidateAnswer(q, []string{"a"})
	require.NotNil(t, verr)
}

func TestPydanticSchema(t *testing.T) {
	schema := json.RawMessage(`{"type": "object", "required": ["city"], "properties": {"city": {"type": "string"}}}`)
	q := MustNew("q", TypePydanticSchema, "Where?", WithSchema(schema))

	_, verr := ValidateAnswer(q, map[string]any{"city": "Boston"})
	require.Nil(t, verr)

	_, verr = ValidateAnswer(q, map[string]any{"city": 5})
	require.NotNil(t, verr)
	assert.Equal(t, ErrKindSchema, verr.Kind)
}

func TestValidationFailureLog(t *testing.T) {
	failures := NewFailureLog(2)
	q := MustNew("q", TypeNumerical, "n")
	failures.Append(q, invalidf(ErrKindShape, "x", "not a number"))
	failures.Append(q, invalidf(ErrKindShape, "y", "not a number"))
	failures.Append(q, invalidf(ErrKindShape, "z", "not a number"))
	recs := failures.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "y", recs[0].InvalidData)
	assert.Equal(t, "z", recs[1].InvalidData)
}

// Normalization must be idempotent for every valid answer.
func TestNormalizeIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	mc := MustNew("q", TypeMultipleChoice, "Pick", WithOptions("Alpha", "Beta", "Gamma"))
	properties.Property("multiple choice normalize idempotent", prop.ForAll(
		func(idx int) bool {
			opt := mc.Options[((idx%3)+3)%3]
			first, verr := ValidateAnswer(mc, opt)
			if verr != nil {
				return false
			}
			second, verr := ValidateAnswer(mc, first)
			return verr == nil && first == second
		},
		gen.Int(),
	))

	num := MustNew("q", TypeNumerical, "n")
	properties.Property("numerical normalize idempotent", prop.ForAll(
		func(f float64) bool {
			first, verr := ValidateAnswer(num, f)
			if verr != nil {
				return false
			}
			second, verr := ValidateAnswer(num, first)
			return verr == nil && first == second
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.TestingRun(t)
}
