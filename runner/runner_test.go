//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/expectedparrot/edsl-go/agent"
	"github.com/expectedparrot/edsl-go/cache"
	"github.com/expectedparrot/edsl-go/model"
	"github.com/expectedparrot/edsl-go/model/testmodel"
	"github.com/expectedparrot/edsl-go/question"
	"github.com/expectedparrot/edsl-go/scenario"
	"github.com/expectedparrot/edsl-go/survey"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func registerProvider(t *testing.T, opts ...testmodel.Option) *testmodel.Provider {
	t.Helper()
	p := testmodel.New(opts...)
	model.RegisterProvider(p)
	t.Cleanup(func() { model.UnregisterProvider(testmodel.ServiceName) })
	return p
}

func twoQuestionSurvey() *survey.Survey {
	return survey.MustNew(
		question.MustNew("q1", question.TypeYesNo, "Do you like pizza?"),
		question.MustNew("q2", question.TypeYesNo, "Do you like pasta?"),
	)
}

func TestRunCanonicalOrder(t *testing.T) {
	registerProvider(t)

	spec := Spec{
		Survey: twoQuestionSurvey(),
		Agents: []*agent.Agent{
			agent.New(map[string]any{"persona": "chef"}),
			agent.New(map[string]any{"persona": "critic"}),
		},
		Scenarios: []scenario.Scenario{
			{"city": "Rome"},
			{"city": "Naples"},
		},
		Iterations: 2,
	}
	job, err := New(WithConcurrency(8)).Run(context.Background(), spec)
	require.NoError(t, err)

	rows, err := job.Wait()
	require.NoError(t, err)
	require.Len(t, rows, 8)

	// Rows come back in enumeration order: agents outer, scenarios next,
	// iterations innermost.
	for i, r := range rows {
		assert.Equal(t, i, r.Order)
	}
	assert.Equal(t, "chef", rows[0].Agent["persona"])
	assert.Equal(t, "Rome", rows[0].Scenario["city"])
	assert.Equal(t, 0, rows[0].Iteration)
	assert.Equal(t, 1, rows[1].Iteration)
	assert.Equal(t, "Naples", rows[2].Scenario["city"])
	assert.Equal(t, "critic", rows[4].Agent["persona"])

	status := job.Status()
	assert.Equal(t, 8, status.Total)
	assert.Equal(t, 8, status.Done)
	assert.Zero(t, status.Queued)
	assert.Zero(t, status.Running)
	assert.Zero(t, status.Failed)
}

func TestRunDeterministicAcrossRuns(t *testing.T) {
	registerProvider(t)
	spec := Spec{
		Survey: twoQuestionSurvey(),
		Agents: []*agent.Agent{
			agent.New(map[string]any{"persona": "chef"}),
			agent.New(map[string]any{"persona": "critic"}),
		},
		Iterations: 2,
	}

	run := func() [][2]any {
		job, err := New(WithConcurrency(4)).Run(context.Background(), spec)
		require.NoError(t, err)
		rows, err := job.Wait()
		require.NoError(t, err)
		out := make([][2]any, len(rows))
		for i, r := range rows {
			out[i] = [2]any{r.Answer["q1"], r.Answer["q2"]}
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestConcurrentJobsCoalesceCacheBuilds(t *testing.T) {
	p := registerProvider(t, testmodel.WithLatency(30*time.Millisecond))
	shared := cache.New(cache.NewMemoryStore())
	spec := Spec{Survey: twoQuestionSurvey()}

	r := New(WithCache(shared))
	jobA, err := r.Run(context.Background(), spec)
	require.NoError(t, err)
	jobB, err := r.Run(context.Background(), spec)
	require.NoError(t, err)

	rowsA, err := jobA.Wait()
	require.NoError(t, err)
	rowsB, err := jobB.Wait()
	require.NoError(t, err)

	// One underlying call per question, shared by both jobs.
	assert.Equal(t, int64(2), p.Calls())
	require.Len(t, rowsA, 1)
	require.Len(t, rowsB, 1)
	assert.Equal(t, rowsA[0].Answer, rowsB[0].Answer)
}

func TestResumabilitySkipsCachedTurns(t *testing.T) {
	p := registerProvider(t)
	shared := cache.New(cache.NewMemoryStore())
	spec := Spec{Survey: twoQuestionSurvey(), Iterations: 2}

	job, err := New(WithCache(shared)).Run(context.Background(), spec)
	require.NoError(t, err)
	_, err = job.Wait()
	require.NoError(t, err)
	firstCalls := p.Calls()
	assert.Equal(t, int64(4), firstCalls)

	// Re-running the identical job hits the cache for every turn.
	job, err = New(WithCache(shared)).Run(context.Background(), spec)
	require.NoError(t, err)
	rows, err := job.Wait()
	require.NoError(t, err)
	assert.Equal(t, firstCalls, p.Calls())
	for _, r := range rows {
		assert.True(t, r.CacheUsed["q1"])
		assert.True(t, r.CacheUsed["q2"])
	}
}

func TestCancelRetainsPartialResults(t *testing.T) {
	registerProvider(t, testmodel.WithLatency(20*time.Millisecond))
	spec := Spec{Survey: twoQuestionSurvey(), Iterations: 50}

	job, err := New(WithConcurrency(2)).Run(context.Background(), spec)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	job.Cancel()

	rows, err := job.Wait()
	require.NoError(t, err)
	assert.Less(t, len(rows), 50)

	status := job.Status()
	assert.Equal(t, 50, status.Total)
	assert.Zero(t, status.Running)
}

func TestFatalErrorCancelsJob(t *testing.T) {
	p := registerProvider(t)
	p.FailNext(1, model.NewProviderError(testmodel.ServiceName, model.ErrKindAuth, 401, "bad key", nil))
	spec := Spec{Survey: twoQuestionSurvey(), Iterations: 20}

	job, err := New(WithConcurrency(1)).Run(context.Background(), spec)
	require.NoError(t, err)
	_, err = job.Wait()
	require.Error(t, err)
	assert.True(t, model.IsFatal(err))

	status := job.Status()
	assert.Greater(t, status.Failed, 0)
	assert.Less(t, status.Done+status.Failed, status.Total)
}

func TestSpecValidation(t *testing.T) {
	registerProvider(t)

	_, err := New().Run(context.Background(), Spec{})
	require.Error(t, err)

	s := Spec{Survey: twoQuestionSurvey()}
	require.NoError(t, s.normalize())
	assert.Equal(t, 1, s.Total())
	assert.Equal(t, testmodel.ServiceName, s.Models[0].Service)
}
