//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package results

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expectedparrot/edsl-go/agent"
	"github.com/expectedparrot/edsl-go/interview"
	"github.com/expectedparrot/edsl-go/model"
	"github.com/expectedparrot/edsl-go/prompt"
	"github.com/expectedparrot/edsl-go/question"
	"github.com/expectedparrot/edsl-go/scenario"
	"github.com/expectedparrot/edsl-go/survey"
)

func sampleSurvey() *survey.Survey {
	return survey.MustNew(
		question.MustNew("q1", question.TypeYesNo, "Do you like pizza?"),
		question.MustNew("q2", question.TypeNumerical, "How many slices?"),
	)
}

func outcomeRow(order int, persona string, q1 string, q2 float64, cost float64) *Result {
	o := &interview.Outcome{
		Order:     order,
		Agent:     agent.New(map[string]any{"persona": persona}),
		Scenario:  scenario.Scenario{"food": "pizza"},
		Model:     model.New("test", "canned", model.Parameters{}),
		Iteration: 0,
		Asked:     []string{"q1", "q2"},
		Records: map[string]*interview.TurnRecord{
			"q1": {
				QuestionName: "q1",
				Answer:       q1,
				Validated:    true,
				CacheHit:     true,
				Prompts:      prompt.Prompts{System: "sys", User: "user q1"},
				Cost:         cost,
			},
			"q2": {
				QuestionName: "q2",
				Answer:       q2,
				Validated:    true,
				Prompts:      prompt.Prompts{System: "sys", User: "user q2"},
			},
		},
	}
	return FromOutcome(sampleSurvey(), o)
}

func sampleResults() Results {
	var rs Results
	rs.Insert(outcomeRow(2, "critic", "No", 0, 0.002))
	rs.Insert(outcomeRow(0, "chef", "Yes", 3, 0.001))
	rs.Insert(outcomeRow(1, "chef", "Yes", 5, 0.003))
	return rs
}

func TestInsertKeepsOrder(t *testing.T) {
	rs := sampleResults()
	require.Len(t, rs, 3)
	assert.Equal(t, 0, rs[0].Order)
	assert.Equal(t, 1, rs[1].Order)
	assert.Equal(t, 2, rs[2].Order)
}

func TestFromOutcomeColumns(t *testing.T) {
	r := outcomeRow(0, "chef", "Yes", 3, 0.001)
	cols := r.Columns()
	assert.Equal(t, "Yes", cols["answer.q1"])
	assert.Equal(t, "chef", cols["agent.persona"])
	assert.Equal(t, "pizza", cols["scenario.food"])
	assert.Equal(t, "canned", cols["model.model_name"])
	assert.Equal(t, "yes_no", cols["question_type.q1"])
	assert.Equal(t, "user q1", cols["prompt.q1_user_prompt"])
	assert.Equal(t, true, cols["cache_used.q1"])
	assert.Equal(t, true, cols["validated.q2"])
	assert.Equal(t, 0, cols["iteration"])
}

func TestSelectWildcards(t *testing.T) {
	rs := sampleResults()
	rows := rs.Select("answer.*", "agent.persona")
	require.Len(t, rows, 3)
	want := map[string]any{
		"answer.q1":     "Yes",
		"answer.q2":     3.0,
		"agent.persona": "chef",
	}
	if diff := cmp.Diff(want, rows[0]); diff != "" {
		t.Errorf("projection mismatch (-want +got):\n%s", diff)
	}
	// Bare prefix behaves like a wildcard.
	rows = rs.Select("comment")
	assert.Contains(t, rows[0], "comment.q1")
	assert.NotContains(t, rows[0], "answer.q1")
}

func TestFilterAndFilterExpr(t *testing.T) {
	rs := sampleResults()

	kept := rs.Filter(func(r *Result) bool {
		v, _ := r.Get("answer.q1")
		return v == "Yes"
	})
	assert.Len(t, kept, 2)

	kept, err := rs.FilterExpr("answer.q1 == 'Yes' and answer.q2 > 4")
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, 1, kept[0].Order)

	_, err = rs.FilterExpr("answer.q1 ==")
	require.Error(t, err)
}

func TestSortBy(t *testing.T) {
	rs := sampleResults()
	sorted := rs.SortBy("-answer.q2")
	assert.Equal(t, 1, sorted[0].Order)
	assert.Equal(t, 0, sorted[1].Order)
	assert.Equal(t, 2, sorted[2].Order)

	sorted = rs.SortBy("agent.persona", "answer.q2")
	assert.Equal(t, 0, sorted[0].Order)
	assert.Equal(t, 1, sorted[1].Order)
	assert.Equal(t, 2, sorted[2].Order)
	// The receiver is untouched.
	assert.Equal(t, 0, rs[0].Order)
}

func TestShuffleAndSampleDeterministic(t *testing.T) {
	rs := sampleResults()
	a := rs.Shuffle(42)
	b := rs.Shuffle(42)
	for i := range a {
		assert.Equal(t, a[i].Order, b[i].Order)
	}

	s1 := rs.Sample(2, 7)
	s2 := rs.Sample(2, 7)
	require.Len(t, s1, 2)
	assert.Equal(t, s1[0].Order, s2[0].Order)
	assert.Equal(t, s1[1].Order, s2[1].Order)

	all := rs.Sample(10, 7)
	assert.Len(t, all, 3)
}

func TestGroupByAggregates(t *testing.T) {
	rs := sampleResults()
	rows, err := rs.GroupBy([]string{"agent.persona"}, []Aggregation{
		{Column: "answer.q2", Op: AggMean},
		{Column: "answer.q2", Op: AggMax},
		{Column: "cost.q1", Op: AggSum},
		{Column: "answer.q1", Op: AggCount},
		{Column: "answer.q1", Op: AggFirst},
		{Column: "answer.q1", Op: AggList},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	chef := rows[0]
	assert.Equal(t, "chef", chef["agent.persona"])
	assert.Equal(t, 4.0, chef["mean(answer.q2)"])
	assert.Equal(t, 5.0, chef["max(answer.q2)"])
	assert.InDelta(t, 0.004, chef["sum(cost.q1)"].(float64), 1e-9)
	assert.Equal(t, 2, chef["count(answer.q1)"])
	assert.Equal(t, "Yes", chef["first(answer.q1)"])
	assert.Equal(t, []any{"Yes", "Yes"}, chef["list(answer.q1)"])

	_, err = rs.GroupBy([]string{"agent.persona"}, []Aggregation{{Column: "answer.q1", Op: AggSum}})
	require.Error(t, err)
}

func TestAddAndDropColumns(t *testing.T) {
	rs := sampleResults()
	with := rs.AddColumn("total_cost", func(r *Result) any {
		total := 0.0
		for _, c := range r.Cost {
			total += c
		}
		return total
	})
	v, ok := with[0].Get("total_cost")
	require.True(t, ok)
	assert.InDelta(t, 0.001, v.(float64), 1e-9)
	// The original rows are untouched.
	_, ok = rs[0].Get("total_cost")
	assert.False(t, ok)

	dropped := with.DropColumns("prompt.*", "raw_model_response")
	_, ok = dropped[0].Get("prompt.q1_user_prompt")
	assert.False(t, ok)
	_, ok = dropped[0].Get("answer.q1")
	assert.True(t, ok)
}

func TestDedup(t *testing.T) {
	var rs Results
	rs.Insert(outcomeRow(0, "chef", "Yes", 3, 0.001))
	rs.Insert(outcomeRow(1, "chef", "Yes", 3, 0.001))
	rs.Insert(outcomeRow(2, "critic", "No", 1, 0.001))

	deduped := rs.Dedup()
	require.Len(t, deduped, 2)
	assert.Equal(t, 0, deduped[0].Order)
	assert.Equal(t, 2, deduped[1].Order)
}

func TestJSONRoundTrip(t *testing.T) {
	rs := sampleResults()
	data, err := json.Marshal(rs)
	require.NoError(t, err)

	var decoded Results
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, len(rs))
	for i := range rs {
		assert.Equal(t, rs[i].Order, decoded[i].Order)
		assert.Equal(t, rs[i].Answer["q1"], decoded[i].Answer["q1"])
		assert.Equal(t, rs[i].Validated, decoded[i].Validated)
	}
}

func TestFlatten(t *testing.T) {
	var rs Results
	r := outcomeRow(0, "chef", "Yes", 3, 0.001)
	r = r.clone()
	if r.Extra == nil {
		r.Extra = map[string]any{}
	}
	r.Extra["answer.profile"] = map[string]any{"age": 40, "city": "Boston"}
	rs.Insert(r)

	rows := rs.Flatten("answer.profile")
	require.Len(t, rows, 1)
	assert.Equal(t, 40, rows[0]["answer.profile.age"])
	assert.Equal(t, "Boston", rows[0]["answer.profile.city"])
	_, ok := rows[0]["answer.profile"]
	assert.False(t, ok)
}
