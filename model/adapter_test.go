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
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	service string
	calls   atomic.Int64
	// errs are returned in order; once exhausted the provider succeeds.
	errs []error
}

func (p *scriptedProvider) Service() string { return p.service }

func (p *scriptedProvider) Call(ctx context.Context, modelName string, req *Request) (*RawResponse, error) {
	n := p.calls.Add(1)
	if int(n) <= len(p.errs) {
		return nil, p.errs[n-1]
	}
	return &RawResponse{Raw: "ok", InputTokens: 10, OutputTokens: 5}, nil
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, JitterFraction: 0}
}

func TestAdapterRetriesTransientErrors(t *testing.T) {
	p := &scriptedProvider{service: "scripted", errs: []error{
		NewProviderError("scripted", ErrKindQuota, 429, "rate limited", nil),
		NewProviderError("scripted", ErrKindOther, 503, "unavailable", nil),
	}}
	RegisterProvider(p)
	defer UnregisterProvider(p.service)

	a := NewAdapter(WithRetryConfig(fastRetry()))
	m := New("scripted", "m1", Parameters{})
	resp, err := a.Call(context.Background(), m, &Request{UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Raw)
	assert.Equal(t, int64(3), p.calls.Load())
}

func TestAdapterDoesNotRetryPermanentErrors(t *testing.T) {
	p := &scriptedProvider{service: "scripted", errs: []error{
		NewProviderError("scripted", ErrKindAuth, 401, "bad key", nil),
	}}
	RegisterProvider(p)
	defer UnregisterProvider(p.service)

	a := NewAdapter(WithRetryConfig(fastRetry()))
	_, err := a.Call(context.Background(), New("scripted", "m1", Parameters{}), &Request{})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, int64(1), p.calls.Load())
}

func TestAdapterExhaustsRetries(t *testing.T) {
	transient := NewProviderError("scripted", ErrKindOther, 503, "unavailable", nil)
	p := &scriptedProvider{service: "scripted", errs: []error{transient, transient, transient, transient, transient}}
	RegisterProvider(p)
	defer UnregisterProvider(p.service)

	a := NewAdapter(WithRetryConfig(fastRetry()))
	_, err := a.Call(context.Background(), New("scripted", "m1", Parameters{}), &Request{})
	require.Error(t, err)
	// First attempt plus MaxRetries.
	assert.Equal(t, int64(4), p.calls.Load())
}

func TestAdapterUnknownService(t *testing.T) {
	a := NewAdapter()
	_, err := a.Call(context.Background(), New("nope", "m1", Parameters{}), &Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider registered")
}

func TestAdapterRespectsContextCancellation(t *testing.T) {
	transient := NewProviderError("scripted", ErrKindQuota, 429, "rate limited", nil)
	p := &scriptedProvider{service: "scripted", errs: []error{transient, transient, transient}}
	RegisterProvider(p)
	defer UnregisterProvider(p.service)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := NewAdapter(WithRetryConfig(RetryConfig{MaxRetries: 3, BaseDelay: time.Minute, MaxDelay: time.Minute}))
	_, err := a.Call(ctx, New("scripted", "m1", Parameters{}), &Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAdapterFillsCosts(t *testing.T) {
	p := &scriptedProvider{service: "scripted"}
	RegisterProvider(p)
	defer UnregisterProvider(p.service)
	SetPrice("scripted", "m1", Price{InputPerMillion: 1, OutputPerMillion: 2})

	a := NewAdapter()
	resp, err := a.Call(context.Background(), New("scripted", "m1", Parameters{}), &Request{})
	require.NoError(t, err)
	assert.InDelta(t, 10.0/1e6, resp.InputCost, 1e-12)
	assert.InDelta(t, 10.0/1e6, resp.OutputCost, 1e-12)
	assert.InDelta(t, resp.InputCost+resp.OutputCost, resp.TotalCost, 1e-12)
}
