//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package testmodel provides the "test" inference service: a deterministic
// in-process provider that answers without network calls. It backs unit
// tests and dry runs of surveys.
package testmodel

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/expectedparrot/edsl-go/model"
)

// ServiceName is the inference service identifier of this provider.
const ServiceName = "test"

// DefaultResponse is returned when no canned response matches.
const DefaultResponse = `{"answer": "Yes"}`

// ResponderFunc produces the full raw response for a request. When set it
// takes precedence over the canned response table.
type ResponderFunc func(req *model.Request) (string, error)

// Provider is a deterministic model.Provider. Responses are chosen by, in
// order: the responder function, the longest canned key contained in the
// user prompt, then DefaultResponse.
type Provider struct {
	mu        sync.RWMutex
	responder ResponderFunc
	canned    map[string]string
	latency   time.Duration
	failures  atomic.Int32
	failErr   error

	calls atomic.Int64
}

// Option configures a Provider.
type Option func(*Provider)

// WithResponder installs a responder function.
func WithResponder(fn ResponderFunc) Option {
	return func(p *Provider) { p.responder = fn }
}

// WithResponse adds a canned response returned whenever key appears in the
// user prompt.
func WithResponse(key, response string) Option {
	return func(p *Provider) { p.canned[key] = response }
}

// WithLatency makes every call sleep for d before answering.
func WithLatency(d time.Duration) Option {
	return func(p *Provider) { p.latency = d }
}

// New constructs a test provider.
func New(opts ...Option) *Provider {
	p := &Provider{canned: make(map[string]string)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Service implements model.Provider.
func (p *Provider) Service() string {
	return ServiceName
}

// SetResponse adds or replaces a canned response after construction.
func (p *Provider) SetResponse(key, response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.canned[key] = response
}

// FailNext makes the next n calls return err before any response logic runs.
func (p *Provider) FailNext(n int, err error) {
	p.mu.Lock()
	p.failErr = err
	p.mu.Unlock()
	p.failures.Store(int32(n))
}

// Calls returns the number of Call invocations so far.
func (p *Provider) Calls() int64 {
	return p.calls.Load()
}

// ResetCalls zeroes the call counter.
func (p *Provider) ResetCalls() {
	p.calls.Store(0)
}

// takeFailure claims one injected failure. Concurrent callers never claim
// more failures than FailNext armed.
func (p *Provider) takeFailure() bool {
	for {
		n := p.failures.Load()
		if n <= 0 {
			return false
		}
		if p.failures.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// Call implements model.Provider.
func (p *Provider) Call(ctx context.Context, modelName string, req *model.Request) (*model.RawResponse, error) {
	p.calls.Add(1)

	if p.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.latency):
		}
	}

	if p.takeFailure() {
		p.mu.RLock()
		err := p.failErr
		p.mu.RUnlock()
		if err != nil {
			return nil, err
		}
	}

	raw, err := p.respond(req)
	if err != nil {
		return nil, err
	}
	return &model.RawResponse{
		Raw:             raw,
		InputTokens:     model.EstimateRequestTokens(modelName, req),
		OutputTokens:    model.EstimateTokens(modelName, raw),
		FinishReason:    "stop",
		ProviderModelID: ServiceName + "/" + modelName,
	}, nil
}

func (p *Provider) respond(req *model.Request) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.responder != nil {
		return p.responder(req)
	}

	// Longest key wins so more specific prompts can shadow generic ones.
	best := ""
	for key := range p.canned {
		if strings.Contains(req.UserPrompt, key) && len(key) > len(best) {
			best = key
		}
	}
	if best != "" {
		return p.canned[best], nil
	}
	return DefaultResponse, nil
}
