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
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackCharsPerToken is the heuristic used when no encoding is available.
const fallbackCharsPerToken = 4

var (
	encodingsMu sync.RWMutex
	encodings   = make(map[string]*tiktoken.Tiktoken)
)

// encodingFor returns a cached tiktoken encoding for modelName, falling back
// to cl100k_base for models tiktoken does not know. Returns nil when no
// encoding can be loaded at all.
func encodingFor(modelName string) *tiktoken.Tiktoken {
	encodingsMu.RLock()
	enc, ok := encodings[modelName]
	encodingsMu.RUnlock()
	if ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
	}

	encodingsMu.Lock()
	encodings[modelName] = enc
	encodingsMu.Unlock()
	return enc
}

// EstimateTokens estimates the token count of text for modelName. It is used
// for bucket admission before the provider reports exact usage, so it only
// needs to be in the right ballpark.
func EstimateTokens(modelName, text string) int {
	if text == "" {
		return 0
	}
	if enc := encodingFor(modelName); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	n := (len(text) + fallbackCharsPerToken - 1) / fallbackCharsPerToken
	if n < 1 {
		n = 1
	}
	return n
}

// EstimateRequestTokens estimates the input token demand of a request:
// both prompts plus a small per-message overhead.
func EstimateRequestTokens(modelName string, req *Request) int {
	const perMessageOverhead = 4
	total := perMessageOverhead
	if req.SystemPrompt != "" {
		total += EstimateTokens(modelName, req.SystemPrompt) + perMessageOverhead
	}
	total += EstimateTokens(modelName, req.UserPrompt)
	return total
}
