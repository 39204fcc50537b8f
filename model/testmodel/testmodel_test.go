//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package testmodel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expectedparrot/edsl-go/model"
)

func TestDefaultResponse(t *testing.T) {
	p := New()
	resp, err := p.Call(context.Background(), "canned", &model.Request{UserPrompt: "Anything at all"})
	require.NoError(t, err)
	assert.Equal(t, DefaultResponse, resp.Raw)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Greater(t, resp.OutputTokens, 0)
}

func TestCannedResponsesLongestKeyWins(t *testing.T) {
	p := New(
		WithResponse("favorite color", `{"answer": "blue"}`),
		WithResponse("color", `{"answer": "red"}`),
	)
	resp, err := p.Call(context.Background(), "canned", &model.Request{UserPrompt: "What is your favorite color?"})
	require.NoError(t, err)
	assert.Equal(t, `{"answer": "blue"}`, resp.Raw)

	resp, err = p.Call(context.Background(), "canned", &model.Request{UserPrompt: "Name a color."})
	require.NoError(t, err)
	assert.Equal(t, `{"answer": "red"}`, resp.Raw)
}

func TestResponderOverridesCanned(t *testing.T) {
	p := New(
		WithResponse("color", `{"answer": "red"}`),
		WithResponder(func(req *model.Request) (string, error) {
			return "echo: " + req.UserPrompt, nil
		}),
	)
	resp, err := p.Call(context.Background(), "canned", &model.Request{UserPrompt: "color"})
	require.NoError(t, err)
	assert.Equal(t, "echo: color", resp.Raw)
}

func TestCallCounterAndFailNext(t *testing.T) {
	p := New()
	boom := errors.New("boom")
	p.FailNext(2, boom)

	_, err := p.Call(context.Background(), "canned", &model.Request{})
	assert.ErrorIs(t, err, boom)
	_, err = p.Call(context.Background(), "canned", &model.Request{})
	assert.ErrorIs(t, err, boom)
	_, err = p.Call(context.Background(), "canned", &model.Request{})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), p.Calls())

	p.ResetCalls()
	assert.Equal(t, int64(0), p.Calls())
}

func TestFailNextUnderConcurrency(t *testing.T) {
	p := New()
	boom := errors.New("boom")
	p.FailNext(1, boom)

	const callers = 16
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Call(context.Background(), "canned", &model.Request{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	failures := 0
	for err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, boom)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestWorksWithAdapterRetry(t *testing.T) {
	p := New()
	p.FailNext(1, model.NewProviderError(ServiceName, model.ErrKindQuota, 429, "rate limited", nil))
	model.RegisterProvider(p)
	defer model.UnregisterProvider(ServiceName)

	a := model.NewAdapter(model.WithRetryConfig(model.RetryConfig{MaxRetries: 2, BaseDelay: 1, MaxDelay: 1}))
	resp, err := a.Call(context.Background(), model.New(ServiceName, "canned", model.Parameters{}), &model.Request{UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, DefaultResponse, resp.Raw)
	assert.Equal(t, int64(2), p.Calls())
}
