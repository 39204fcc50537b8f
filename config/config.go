//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package config loads execution settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/expectedparrot/edsl-go/bucket"
	"github.com/expectedparrot/edsl-go/cache"
	"github.com/expectedparrot/edsl-go/log"
	"github.com/expectedparrot/edsl-go/model"
)

// Environment variable names.
const (
	EnvExpectedParrotAPIKey = "EXPECTED_PARROT_API_KEY"
	EnvOpenAIAPIKey         = "OPENAI_API_KEY"
	EnvAnthropicAPIKey      = "ANTHROPIC_API_KEY"

	EnvCachePath = "EDSL_CACHE_PATH"
	EnvFresh     = "EDSL_FRESH"

	EnvConcurrency  = "EDSL_CONCURRENCY"
	EnvCallTimeout  = "EDSL_CALL_TIMEOUT"
	EnvMaxRetries   = "EDSL_MAX_RETRIES"
	EnvBackoffBase  = "EDSL_BACKOFF_BASE"
	EnvBackoffMax   = "EDSL_BACKOFF_MAX"
	EnvTPM          = "EDSL_TPM"
	EnvRPM          = "EDSL_RPM"
	EnvPollInterval = "EDSL_POLL_INTERVAL"
	EnvLogLevel     = "EDSL_LOG_LEVEL"
)

// Config is the resolved execution configuration.
type Config struct {
	// ExpectedParrotAPIKey authenticates against the remote universal
	// cache, when one is configured.
	ExpectedParrotAPIKey string
	OpenAIAPIKey         string
	AnthropicAPIKey      string

	// CachePath is the SQLite cache file; empty selects the in-memory
	// store.
	CachePath string
	// Fresh forces cache misses while still writing results.
	Fresh bool

	Concurrency int
	CallTimeout time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// TokensPerMinute and RequestsPerMinute seed bucket limits for every
	// model without explicit limits.
	TokensPerMinute   float64
	RequestsPerMinute float64

	// PollInterval paces job status polling in wrappers.
	PollInterval time.Duration
}

// Default values applied when the environment is silent.
var defaults = Config{
	Concurrency:       64,
	CallTimeout:       2 * time.Minute,
	MaxRetries:        3,
	BackoffBase:       500 * time.Millisecond,
	BackoffMax:        30 * time.Second,
	TokensPerMinute:   bucket.DefaultTokensPerMinute,
	RequestsPerMinute: bucket.DefaultRequestsPerMinute,
	PollInterval:      time.Second,
}

// Load reads configuration from .env (when present) and the process
// environment. Environment variables win over .env values.
func Load() (*Config, error) {
	// Missing .env is the normal case.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debugf("skipping .env: %v", err)
	}

	cfg := defaults
	cfg.ExpectedParrotAPIKey = os.Getenv(EnvExpectedParrotAPIKey)
	cfg.OpenAIAPIKey = os.Getenv(EnvOpenAIAPIKey)
	cfg.AnthropicAPIKey = os.Getenv(EnvAnthropicAPIKey)
	cfg.CachePath = os.Getenv(EnvCachePath)

	var err error
	if cfg.Fresh, err = boolEnv(EnvFresh, false); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = intEnv(EnvConcurrency, cfg.Concurrency); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = intEnv(EnvMaxRetries, cfg.MaxRetries); err != nil {
		return nil, err
	}
	if cfg.CallTimeout, err = durationEnv(EnvCallTimeout, cfg.CallTimeout); err != nil {
		return nil, err
	}
	if cfg.BackoffBase, err = durationEnv(EnvBackoffBase, cfg.BackoffBase); err != nil {
		return nil, err
	}
	if cfg.BackoffMax, err = durationEnv(EnvBackoffMax, cfg.BackoffMax); err != nil {
		return nil, err
	}
	if cfg.TokensPerMinute, err = floatEnv(EnvTPM, cfg.TokensPerMinute); err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute, err = floatEnv(EnvRPM, cfg.RequestsPerMinute); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = durationEnv(EnvPollInterval, cfg.PollInterval); err != nil {
		return nil, err
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		log.SetLevel(level)
	}
	return &cfg, nil
}

// NewCache builds the configured cache: SQLite-backed when CachePath is
// set, in-memory otherwise.
func (c *Config) NewCache() (*cache.Cache, error) {
	var store cache.Store
	if c.CachePath != "" {
		s, err := cache.NewSQLiteStore(c.CachePath)
		if err != nil {
			return nil, err
		}
		store = s
	} else {
		store = cache.NewMemoryStore()
	}
	return cache.New(store, cache.WithFresh(c.Fresh)), nil
}

// NewAdapter builds a model adapter with the configured retry policy.
func (c *Config) NewAdapter() *model.Adapter {
	return model.NewAdapter(
		model.WithCallTimeout(c.CallTimeout),
		model.WithRetryConfig(model.RetryConfig{
			MaxRetries:     c.MaxRetries,
			BaseDelay:      c.BackoffBase,
			MaxDelay:       c.BackoffMax,
			JitterFraction: model.DefaultRetryConfig.JitterFraction,
		}),
	)
}

// NewBuckets builds a bucket collection seeded with the configured default
// limits for the given model identities.
func (c *Config) NewBuckets(identities ...string) *bucket.Collection {
	buckets := bucket.NewCollection()
	for _, id := range identities {
		buckets.SetLimits(id, bucket.Limits{
			TokensPerMinute:   c.TokensPerMinute,
			RequestsPerMinute: c.RequestsPerMinute,
		})
	}
	return buckets
}

func boolEnv(name string, def bool) (bool, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func intEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func floatEnv(name string, def float64) (float64, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}
