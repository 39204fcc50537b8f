//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package bucket

import (
	"context"
	"sync"
)

// Conservative defaults applied when a model has no configured limits.
const (
	DefaultTokensPerMinute   = 480_000
	DefaultRequestsPerMinute = 480
)

// Pair is the token and request buckets gating one model.
type Pair struct {
	Tokens   *Bucket
	Requests *Bucket
}

// Acquire takes one request slot and tokens estimated tokens, request
// bucket first.
func (p *Pair) Acquire(ctx context.Context, tokens float64) error {
	if err := p.Requests.Acquire(ctx, 1); err != nil {
		return err
	}
	return p.Tokens.Acquire(ctx, tokens)
}

// Limits are per-minute rate limits for one model.
type Limits struct {
	TokensPerMinute   float64
	RequestsPerMinute float64
}

// Collection holds one bucket pair per (service, model) identity, created
// lazily with configured or default limits.
type Collection struct {
	mu     sync.Mutex
	pairs  map[string]*Pair
	limits map[string]Limits
}

// NewCollection constructs an empty Collection.
func NewCollection() *Collection {
	return &Collection{
		pairs:  make(map[string]*Pair),
		limits: make(map[string]Limits),
	}
}

// SetLimits configures the limits for a model identity ("service/name").
// An existing pair is updated in place.
func (c *Collection) SetLimits(identity string, limits Limits) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limits[identity] = limits
	if pair, ok := c.pairs[identity]; ok {
		pair.Tokens.SetRate(limits.TokensPerMinute, limits.TokensPerMinute/60)
		pair.Requests.SetRate(limits.RequestsPerMinute, limits.RequestsPerMinute/60)
	}
}

// Get returns the bucket pair for a model identity, creating it on first
// use.
func (c *Collection) Get(identity string) *Pair {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pair, ok := c.pairs[identity]; ok {
		return pair
	}
	limits, ok := c.limits[identity]
	if !ok {
		limits = Limits{
			TokensPerMinute:   DefaultTokensPerMinute,
			RequestsPerMinute: DefaultRequestsPerMinute,
		}
	}
	pair := &Pair{
		Tokens:   NewBucket(identity+"/tokens", limits.TokensPerMinute, limits.TokensPerMinute/60),
		Requests: NewBucket(identity+"/requests", limits.RequestsPerMinute, limits.RequestsPerMinute/60),
	}
	c.pairs[identity] = pair
	return pair
}
