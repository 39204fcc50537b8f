//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package cache

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store backed by a map.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

// Lookup implements Store.
func (s *MemoryStore) Lookup(_ context.Context, fingerprint string) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[fingerprint]
	return e, ok, nil
}

// Insert implements Store. The first write for a fingerprint wins.
func (s *MemoryStore) Insert(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.Fingerprint]; ok {
		return nil
	}
	s.entries[e.Fingerprint] = e
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
