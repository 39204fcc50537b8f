//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package bucket provides token and request rate limiting for model calls.
// Buckets refill continuously, computed lazily from wall-clock time.
package bucket

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Error is a misconfigured bucket or a permanent acquire failure. It fails
// the turn, not the job.
type Error struct {
	Name string
	Msg  string
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("bucket %s: %s", e.Name, e.Msg)
}

// Bucket is a thread-safe token bucket. A request larger than the capacity
// is admitted once the bucket is full by draining it to zero ("cheating"),
// so oversized single requests cannot starve forever.
type Bucket struct {
	name string

	mu       sync.Mutex
	capacity float64
	rate     float64 // tokens per second
	tokens   float64
	last     time.Time
	depleted bool

	now func() time.Time
}

// NewBucket constructs a bucket that starts full. rate is tokens per second.
func NewBucket(name string, capacity, rate float64) *Bucket {
	b := &Bucket{
		name:     name,
		capacity: capacity,
		rate:     rate,
		tokens:   capacity,
		now:      time.Now,
	}
	b.last = b.now()
	return b
}

// refillLocked advances the token count from elapsed wall-clock time.
func (b *Bucket) refillLocked() {
	now := b.now()
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.rate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
	}
	b.last = now
}

// Tokens returns the current token count.
func (b *Bucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	return b.tokens
}

// Depleted reports whether the bucket was ever drained by an oversized
// request.
func (b *Bucket) Depleted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depleted
}

// SetRate updates capacity and refill rate, keeping the current fill level.
// Used when a provider reports its actual limits.
func (b *Bucket) SetRate(capacity, rate float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	b.capacity = capacity
	b.rate = rate
	if b.tokens > capacity {
		b.tokens = capacity
	}
}

// WaitTime returns how long until n tokens are available. Zero means n can
// be acquired now. Oversized requests wait for a full bucket.
func (b *Bucket) WaitTime(n float64) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waitTimeLocked(n)
}

func (b *Bucket) waitTimeLocked(n float64) time.Duration {
	b.refillLocked()
	need := n
	if need > b.capacity {
		need = b.capacity
	}
	if b.tokens >= need {
		return 0
	}
	if b.rate <= 0 {
		return -1
	}
	return time.Duration((need - b.tokens) / b.rate * float64(time.Second))
}

// Acquire blocks until n tokens are available, then consumes them. When n
// exceeds the capacity it waits for a full bucket, drains it to zero and
// proceeds, marking the bucket depleted.
func (b *Bucket) Acquire(ctx context.Context, n float64) error {
	if n <= 0 {
		return nil
	}
	for {
		b.mu.Lock()
		wait := b.waitTimeLocked(n)
		if wait == 0 {
			if n > b.capacity {
				b.tokens = 0
				b.depleted = true
			} else {
				b.tokens -= n
			}
			b.mu.Unlock()
			return nil
		}
		b.mu.Unlock()
		if wait < 0 {
			return &Error{Name: b.name, Msg: fmt.Sprintf("cannot acquire %.0f tokens with zero refill rate", n)}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
