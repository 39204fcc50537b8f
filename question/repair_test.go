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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponseJSONObject(t *testing.T) {
	q := MustNew("q", TypeFreeText, "Say hi.")
	ans := DecodeResponse(q, `{"answer": "hello", "comment": "greeting"}`)
	assert.Equal(t, "hello", ans.Answer)
	assert.Equal(t, "greeting", ans.Comment)
	assert.Equal(t, `{"answer": "hello", "comment": "greeting"}`, ans.GeneratedTokens)
}

func TestDecodeResponseWithProse(t *testing.T) {
	q := MustNew("q", TypeFreeText, "Say hi.")
	ans := DecodeResponse(q, "Sure! Here you go:\n```json\n{\"answer\": \"hi\"}\n```\nHope that helps.")
	assert.Equal(t, "hi", ans.Answer)
}

func TestDecodeResponsePlainText(t *testing.T) {
	q := MustNew("q", TypeFreeText, "Say hi.")
	ans := DecodeResponse(q, "  just plain text  ")
	assert.Equal(t, "just plain text", ans.Answer)
}

func TestDecodeResponseBareArray(t *testing.T) {
	q := MustNew("q", TypeList, "List")
	ans := DecodeResponse(q, `["a", "b"]`)
	items, ok := toStringSlice(ans.Answer)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, items)
}

func TestExtractJSONValueNested(t *testing.T) {
	v, ok := extractJSONValue(`prefix {"answer": {"x": 1}} suffix`)
	require.True(t, ok)
	m := v.(map[string]any)
	assert.Contains(t, m, "answer")
}

func TestExtractJSONValueBracesInStrings(t *testing.T) {
	v, ok := extractJSONValue(`{"answer": "curly } brace"}`)
	require.True(t, ok)
	m := v.(map[string]any)
	assert.Equal(t, "curly } brace", m["answer"])
}

func TestRepairFirstNumber(t *testing.T) {
	q := MustNew("q", TypeNumerical, "n")
	got, ok := repairFirstNumber(q, "roughly 1,250 units")
	require.True(t, ok)
	assert.Equal(t, 1250.0, got)

	got, ok = repairFirstNumber(q, "-3.5 degrees")
	require.True(t, ok)
	assert.Equal(t, -3.5, got)

	_, ok = repairFirstNumber(q, "no digits here")
	assert.False(t, ok)
}

func TestRepairSplitDelimited(t *testing.T) {
	q := MustNew("q", TypeList, "l")
	got, ok := repairSplitDelimited(q, "- apple\n- pear\n- fig")
	require.True(t, ok)
	assert.Equal(t, []string{"apple", "pear", "fig"}, got)

	got, ok = repairSplitDelimited(q, `"a", "b"; "c"`)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestRepairScaleLabelSubstring(t *testing.T) {
	q := MustNew("q", TypeLinearScale, "rate",
		WithScale(1, 5, map[int]string{1: "terrible", 3: "fine", 5: "fantastic"}))
	got, ok := repairScaleLabel(q, "honestly it was fine I guess")
	require.True(t, ok)
	assert.Equal(t, 3.0, got)
}

func TestRepairScaleLabelTieBreaksLow(t *testing.T) {
	// "it" substring-matches both extreme labels with equal score; the
	// repair must settle the tie the same way every time, on the lower
	// scale value.
	q := MustNew("q", TypeLinearScale, "rate",
		WithScale(1, 5, map[int]string{1: "I hate it", 5: "I love it"}))
	for i := 0; i < 200; i++ {
		got, ok := repairScaleLabel(q, "it")
		require.True(t, ok)
		assert.Equal(t, 1.0, got)
	}
}

func TestNarrowOptions(t *testing.T) {
	options := []string{
		"United States", "United Kingdom", "France", "Germany",
		"South Korea", "North Korea", "Japan", "Brazil",
	}
	got := NarrowOptions(options, "korea south", 2)
	require.Len(t, got, 2)
	assert.Contains(t, got, "South Korea")
	assert.Contains(t, got, "North Korea")

	// k too large leaves options untouched.
	assert.Equal(t, options, NarrowOptions(options, "korea", 100))
	assert.Equal(t, options, NarrowOptions(options, "", 2))
}

func TestEvaluateCompute(t *testing.T) {
	q := MustNew("q", TypeCompute, "total", WithExpression("(q1.answer + q2.answer) * 2"))
	env := map[string]any{
		"q1": map[string]any{"answer": 3.0},
		"q2": map[string]any{"answer": 4},
	}
	got, err := EvaluateCompute(q, env)
	require.NoError(t, err)
	assert.Equal(t, 14.0, got)
}

func TestEvaluateComputeErrors(t *testing.T) {
	_, err := New("q", TypeCompute, "bad", WithExpression("1 + "))
	require.Error(t, err)

	q := MustNew("q", TypeCompute, "div", WithExpression("1 / q1.answer"))
	_, err = EvaluateCompute(q, map[string]any{"q1": map[string]any{"answer": 0}})
	require.Error(t, err)

	q2 := MustNew("q", TypeCompute, "ref", WithExpression("missing.answer"))
	_, err = EvaluateCompute(q2, map[string]any{})
	require.Error(t, err)
}
