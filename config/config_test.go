//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Concurrency)
	assert.Equal(t, 2*time.Minute, cfg.CallTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.False(t, cfg.Fresh)
	assert.Equal(t, time.Second, cfg.PollInterval)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(EnvConcurrency, "8")
	t.Setenv(EnvCallTimeout, "30s")
	t.Setenv(EnvFresh, "true")
	t.Setenv(EnvTPM, "1200")
	t.Setenv(EnvOpenAIAPIKey, "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.True(t, cfg.Fresh)
	assert.Equal(t, 1200.0, cfg.TokensPerMinute)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv(EnvConcurrency, "many")
	_, err := Load()
	require.Error(t, err)
}

func TestNewCacheSelectsBackend(t *testing.T) {
	cfg := defaults
	c, err := cfg.NewCache()
	require.NoError(t, err)
	defer c.Close()
	assert.False(t, c.Fresh())

	cfg.CachePath = filepath.Join(t.TempDir(), "cache.db")
	cfg.Fresh = true
	c2, err := cfg.NewCache()
	require.NoError(t, err)
	defer c2.Close()
	assert.True(t, c2.Fresh())
}

func TestNewBucketsAppliesLimits(t *testing.T) {
	cfg := defaults
	cfg.TokensPerMinute = 600
	buckets := cfg.NewBuckets("openai/gpt-4o")
	pair := buckets.Get("openai/gpt-4o")
	require.NoError(t, pair.Tokens.Acquire(context.Background(), 600))
	assert.Greater(t, pair.Tokens.WaitTime(300), time.Duration(0))
}
