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
	"fmt"
	"math/rand"
	"time"

	"github.com/expectedparrot/edsl-go/log"
)

// RetryConfig controls exponential backoff on transient provider failures.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the first backoff delay.
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
	// JitterFraction is the fraction of the delay randomized away
	// (0.25 means delays land in [0.75d, d]).
	JitterFraction float64
}

// DefaultRetryConfig is the adapter's default backoff policy.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:     3,
	BaseDelay:      500 * time.Millisecond,
	MaxDelay:       30 * time.Second,
	JitterFraction: 0.25,
}

// Adapter wraps a Provider with per-call timeout, classified retries and
// cost accounting. Permanent errors surface immediately; transient errors
// retry with exponential backoff and jitter.
type Adapter struct {
	retry       RetryConfig
	callTimeout time.Duration
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithRetryConfig overrides the backoff policy.
func WithRetryConfig(rc RetryConfig) AdapterOption {
	return func(a *Adapter) { a.retry = rc }
}

// WithCallTimeout sets the per-call timeout (0 disables).
func WithCallTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) { a.callTimeout = d }
}

// NewAdapter constructs an Adapter.
func NewAdapter(opts ...AdapterOption) *Adapter {
	a := &Adapter{retry: DefaultRetryConfig, callTimeout: 2 * time.Minute}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Call invokes m's provider and fills in cost fields on the response.
func (a *Adapter) Call(ctx context.Context, m *Model, req *Request) (*RawResponse, error) {
	provider, ok := LookupProvider(m.Service)
	if !ok {
		return nil, NewProviderError(m.Service, ErrKindOther, 0,
			fmt.Sprintf("no provider registered for service %q", m.Service), nil)
	}
	merged := *req
	merged.Parameters = effectiveParameters(m, req)

	var resp *RawResponse
	var err error
	delay := a.retry.BaseDelay
	for attempt := 0; ; attempt++ {
		resp, err = a.callOnce(ctx, provider, m, &merged)
		if err == nil {
			break
		}
		if attempt >= a.retry.MaxRetries || !IsRetryable(err) {
			return nil, err
		}
		wait := jitter(delay, a.retry.JitterFraction)
		log.Debugf("model call to %s failed (attempt %d/%d), retrying in %s: %v",
			m.Identity(), attempt+1, a.retry.MaxRetries, wait, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
		if delay > a.retry.MaxDelay {
			delay = a.retry.MaxDelay
		}
	}

	resp.InputCost, resp.OutputCost = Cost(m.Service, m.Name, resp.InputTokens, resp.OutputTokens)
	resp.TotalCost = resp.InputCost + resp.OutputCost
	return resp, nil
}

func (a *Adapter) callOnce(ctx context.Context, provider Provider, m *Model, req *Request) (*RawResponse, error) {
	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}
	return provider.Call(ctx, m.Name, req)
}

func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	slack := float64(d) * fraction
	return d - time.Duration(rand.Float64()*slack)
}
