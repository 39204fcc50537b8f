//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package cache provides the content-addressed response cache: prompts plus
// model identity map to prior raw responses so identical calls execute at
// most once.
package cache

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/expectedparrot/edsl-go/internal/canonicaljson"
	"github.com/expectedparrot/edsl-go/log"
	"github.com/expectedparrot/edsl-go/model"
)

// Entry is one cached (prompt, response) pair. Entries are immutable once
// written; the first insert for a fingerprint wins.
type Entry struct {
	Fingerprint   string           `json:"fingerprint"`
	ModelIdentity string           `json:"model_identity"`
	Parameters    model.Parameters `json:"parameters"`
	SystemPrompt  string           `json:"system_prompt"`
	UserPrompt    string           `json:"user_prompt"`
	Iteration     int              `json:"iteration"`
	Output        string           `json:"output_raw"`
	TimestampMS   int64            `json:"timestamp_unix_ms"`
}

// Store is the backend contract: lookup and idempotent insert. Stores must
// be safe for concurrent use.
type Store interface {
	Lookup(ctx context.Context, fingerprint string) (*Entry, bool, error)
	Insert(ctx context.Context, e *Entry) error
	Close() error
}

// Error is a backend failure. Lookup failures on a degradable cache are
// treated as misses; insert failures are logged and dropped.
type Error struct {
	Backend string
	Op      string
	Err     error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// fingerprintDoc is the canonical key material. Field order is irrelevant;
// canonical JSON sorts keys.
type fingerprintDoc struct {
	ModelIdentity string           `json:"model_identity"`
	Parameters    model.Parameters `json:"parameters"`
	SystemPrompt  string           `json:"system_prompt"`
	UserPrompt    string           `json:"user_prompt"`
	Iteration     int              `json:"iteration"`
	FileHashes    []string         `json:"file_hashes,omitempty"`
}

// Fingerprint computes the content-addressed key of one model call. Binary
// attachments contribute their sorted content hashes.
func Fingerprint(m *model.Model, req *model.Request, iteration int) string {
	doc := fingerprintDoc{
		ModelIdentity: m.Identity(),
		Parameters:    m.Parameters,
		SystemPrompt:  req.SystemPrompt,
		UserPrompt:    req.UserPrompt,
		Iteration:     iteration,
	}
	if len(req.Files) > 0 {
		doc.FileHashes = make([]string, len(req.Files))
		for i, f := range req.Files {
			doc.FileHashes[i] = f.SHA256
		}
		sort.Strings(doc.FileHashes)
	}
	h, err := canonicaljson.Fingerprint(doc)
	if err != nil {
		// Only reachable with non-serializable Extra parameters.
		return canonicaljson.HashBytes([]byte(doc.ModelIdentity + "\x00" + doc.SystemPrompt + "\x00" + doc.UserPrompt))
	}
	return h
}

// NewEntry builds an Entry for a completed call.
func NewEntry(fingerprint string, m *model.Model, req *model.Request, iteration int, output string) *Entry {
	return &Entry{
		Fingerprint:   fingerprint,
		ModelIdentity: m.Identity(),
		Parameters:    m.Parameters,
		SystemPrompt:  req.SystemPrompt,
		UserPrompt:    req.UserPrompt,
		Iteration:     iteration,
		Output:        output,
		TimestampMS:   time.Now().UnixMilli(),
	}
}

// Cache coordinates a Store with single-flight builds: concurrent
// GetOrBuild calls for one fingerprint invoke the builder exactly once.
type Cache struct {
	store    Store
	fresh    bool
	degrade  bool
	inflight singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithFresh forces cache misses on lookup; results are still inserted.
func WithFresh(fresh bool) CacheOption {
	return func(c *Cache) { c.fresh = fresh }
}

// WithDegrade controls whether backend failures degrade to no-cache
// operation (default) or surface as errors. Remote-only deployments
// should disable degradation.
func WithDegrade(degrade bool) CacheOption {
	return func(c *Cache) { c.degrade = degrade }
}

// New constructs a Cache over a store.
func New(store Store, opts ...CacheOption) *Cache {
	c := &Cache{store: store, degrade: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fresh reports whether lookups are bypassed.
func (c *Cache) Fresh() bool {
	return c.fresh
}

// Builder produces the entry for a cache miss.
type Builder func(ctx context.Context) (*Entry, error)

type buildResult struct {
	entry *Entry
	hit   bool
}

// GetOrBuild returns the cached entry for fingerprint, building and
// inserting it on miss. The boolean reports a cache hit. Concurrent calls
// with the same fingerprint coalesce into one builder invocation.
func (c *Cache) GetOrBuild(ctx context.Context, fingerprint string, build Builder) (*Entry, bool, error) {
	v, err, _ := c.inflight.Do(fingerprint, func() (any, error) {
		if !c.fresh {
			entry, ok, err := c.lookup(ctx, fingerprint)
			if err != nil {
				return nil, err
			}
			if ok {
				return buildResult{entry: entry, hit: true}, nil
			}
		}
		entry, err := build(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.insert(ctx, entry); err != nil {
			return nil, err
		}
		return buildResult{entry: entry}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(buildResult)
	return res.entry, res.hit, nil
}

// Lookup reads an entry without building.
func (c *Cache) Lookup(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	return c.lookup(ctx, fingerprint)
}

func (c *Cache) lookup(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	entry, ok, err := c.store.Lookup(ctx, fingerprint)
	if err != nil {
		if c.degrade {
			log.Warnf("cache lookup failed, treating as miss: %v", err)
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry, ok, nil
}

func (c *Cache) insert(ctx context.Context, e *Entry) error {
	if err := c.store.Insert(ctx, e); err != nil {
		if !c.degrade {
			return err
		}
		log.Warnf("cache insert failed, continuing uncached: %v", err)
	}
	return nil
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}
