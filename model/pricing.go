//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package model

import "sync"

// Price is USD per one million tokens, split by token class.
type Price struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var (
	pricesMu sync.RWMutex

	// prices is the published price table keyed by "service/model".
	// Unknown models cost zero; callers can extend via SetPrice.
	prices = map[string]Price{
		"openai/gpt-4o":                {InputPerMillion: 2.50, OutputPerMillion: 10.00},
		"openai/gpt-4o-mini":           {InputPerMillion: 0.15, OutputPerMillion: 0.60},
		"openai/gpt-4.1":               {InputPerMillion: 2.00, OutputPerMillion: 8.00},
		"openai/gpt-4.1-mini":          {InputPerMillion: 0.40, OutputPerMillion: 1.60},
		"openai/o3-mini":               {InputPerMillion: 1.10, OutputPerMillion: 4.40},
		"anthropic/claude-sonnet-4-0":  {InputPerMillion: 3.00, OutputPerMillion: 15.00},
		"anthropic/claude-opus-4-0":    {InputPerMillion: 15.00, OutputPerMillion: 75.00},
		"anthropic/claude-3-5-haiku":   {InputPerMillion: 0.80, OutputPerMillion: 4.00},
		"anthropic/claude-3-7-sonnet":  {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	}
)

// SetPrice installs or overrides the price for a (service, model) pair.
func SetPrice(service, modelName string, p Price) {
	pricesMu.Lock()
	defer pricesMu.Unlock()
	prices[service+"/"+modelName] = p
}

// LookupPrice returns the price for a (service, model) pair.
func LookupPrice(service, modelName string) (Price, bool) {
	pricesMu.RLock()
	defer pricesMu.RUnlock()
	p, ok := prices[service+"/"+modelName]
	return p, ok
}

// Cost computes USD input/output costs for a token usage. Unknown models
// cost zero.
func Cost(service, modelName string, inputTokens, outputTokens int) (input, output float64) {
	p, ok := LookupPrice(service, modelName)
	if !ok {
		return 0, 0
	}
	input = float64(inputTokens) * p.InputPerMillion / 1e6
	output = float64(outputTokens) * p.OutputPerMillion / 1e6
	return input, output
}
