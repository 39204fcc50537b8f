//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestModelHashStable(t *testing.T) {
	a := New("openai", "gpt-4o", Parameters{Temperature: floatPtr(0.5)})
	b := New("openai", "gpt-4o", Parameters{Temperature: floatPtr(0.5)})
	assert.Equal(t, a.Hash(), b.Hash())

	c := New("openai", "gpt-4o", Parameters{Temperature: floatPtr(0.7)})
	assert.NotEqual(t, a.Hash(), c.Hash())

	d := New("anthropic", "gpt-4o", Parameters{Temperature: floatPtr(0.5)})
	assert.NotEqual(t, a.Hash(), d.Hash())
}

func TestEffectiveParameters(t *testing.T) {
	m := New("openai", "gpt-4o", Parameters{
		Temperature: floatPtr(0.5),
		MaxTokens:   intPtr(100),
		Extra:       map[string]any{"seed": 7, "user": "edsl"},
	})
	req := &Request{Parameters: Parameters{
		Temperature: floatPtr(0.9),
		Extra:       map[string]any{"seed": 11},
	}}
	got := effectiveParameters(m, req)
	assert.Equal(t, 0.9, *got.Temperature)
	assert.Equal(t, 100, *got.MaxTokens)
	assert.Equal(t, 11, got.Extra["seed"])
	assert.Equal(t, "edsl", got.Extra["user"])
	// The model's own parameters are untouched.
	assert.Equal(t, 0.5, *m.Parameters.Temperature)
	assert.Equal(t, 7, m.Parameters.Extra["seed"])
}

func TestClassifyStatus(t *testing.T) {
	cases := map[int]ErrorKind{
		401: ErrKindAuth,
		403: ErrKindAuth,
		429: ErrKindQuota,
		400: ErrKindMalformed,
		422: ErrKindMalformed,
		500: ErrKindOther,
		503: ErrKindOther,
		418: ErrKindOther,
	}
	for status, want := range cases {
		assert.Equal(t, want, ClassifyStatus(status), "status %d", status)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(NewProviderError("openai", ErrKindQuota, 429, "rate limited", nil)))
	assert.True(t, IsRetryable(NewProviderError("openai", ErrKindOther, 503, "unavailable", nil)))
	assert.False(t, IsRetryable(NewProviderError("openai", ErrKindAuth, 401, "bad key", nil)))
	assert.False(t, IsRetryable(NewProviderError("openai", ErrKindSafety, 0, "refused", nil)))

	assert.True(t, IsRetryable(errors.New("dial tcp: connection refused")))
	assert.True(t, IsRetryable(errors.New("read tcp: i/o timeout")))
	assert.True(t, IsRetryable(errors.New("unexpected EOF")))
	assert.False(t, IsRetryable(errors.New("invalid request body")))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(NewProviderError("openai", ErrKindAuth, 401, "bad key", nil)))
	assert.False(t, IsFatal(NewProviderError("openai", ErrKindQuota, 429, "rate limited", nil)))
	assert.False(t, IsFatal(errors.New("anything else")))
}

func TestProviderErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewProviderError("openai", ErrKindOther, 0, "wrapped", cause)
	assert.ErrorIs(t, err, cause)
	var perr *ProviderError
	require.ErrorAs(t, error(err), &perr)
	assert.Equal(t, ErrKindOther, perr.Kind)
}

func TestCost(t *testing.T) {
	input, output := Cost("openai", "gpt-4o", 1_000_000, 500_000)
	assert.InDelta(t, 2.50, input, 1e-9)
	assert.InDelta(t, 5.00, output, 1e-9)

	input, output = Cost("openai", "mystery-model", 1000, 1000)
	assert.Zero(t, input)
	assert.Zero(t, output)

	SetPrice("acme", "widget-1", Price{InputPerMillion: 1, OutputPerMillion: 2})
	input, output = Cost("acme", "widget-1", 2_000_000, 1_000_000)
	assert.InDelta(t, 2.0, input, 1e-9)
	assert.InDelta(t, 2.0, output, 1e-9)
}

func TestEstimateTokens(t *testing.T) {
	assert.Zero(t, EstimateTokens("gpt-4o", ""))
	n := EstimateTokens("gpt-4o", "The quick brown fox jumps over the lazy dog.")
	assert.Greater(t, n, 0)

	req := &Request{SystemPrompt: "You are helpful.", UserPrompt: "Say hi."}
	assert.Greater(t, EstimateRequestTokens("gpt-4o", req), EstimateTokens("gpt-4o", "Say hi."))
}
