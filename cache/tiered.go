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

	"github.com/expectedparrot/edsl-go/log"
)

// TieredStore layers a fast local store in front of a shared remote one.
// Lookups try local first, then remote with local write-back. Inserts go to
// both; a remote failure does not fail the insert.
type TieredStore struct {
	local  Store
	remote Store
}

// NewTieredStore constructs a TieredStore.
func NewTieredStore(local, remote Store) *TieredStore {
	return &TieredStore{local: local, remote: remote}
}

// Lookup implements Store.
func (s *TieredStore) Lookup(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	entry, ok, err := s.local.Lookup(ctx, fingerprint)
	if err != nil {
		log.Warnf("local cache lookup failed, consulting remote: %v", err)
	} else if ok {
		return entry, true, nil
	}

	entry, ok, err = s.remote.Lookup(ctx, fingerprint)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	if err := s.local.Insert(ctx, entry); err != nil {
		log.Warnf("local cache write-back failed: %v", err)
	}
	return entry, true, nil
}

// Insert implements Store.
func (s *TieredStore) Insert(ctx context.Context, e *Entry) error {
	if err := s.local.Insert(ctx, e); err != nil {
		return err
	}
	if err := s.remote.Insert(ctx, e); err != nil {
		log.Warnf("remote cache insert failed: %v", err)
	}
	return nil
}

// Close implements Store, closing both tiers.
func (s *TieredStore) Close() error {
	lerr := s.local.Close()
	rerr := s.remote.Close()
	if lerr != nil {
		return lerr
	}
	return rerr
}
