//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package model provides the uniform call interface over heterogeneous
// language-model providers: model identity, request/response types, retry,
// error taxonomy and cost accounting.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/expectedparrot/edsl-go/internal/canonicaljson"
	"github.com/expectedparrot/edsl-go/scenario"
)

// Parameters are the sampling parameters contributing to a model's identity.
// Two Model values with equal (service, name, parameters) are
// interchangeable.
type Parameters struct {
	Temperature      *float64       `json:"temperature,omitempty"`
	MaxTokens        *int           `json:"max_tokens,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// Model identifies one provider-backed model plus sampling parameters.
type Model struct {
	// Service is the inference service identifier ("openai", "anthropic",
	// "test", ...).
	Service string `json:"inference_service"`
	// Name is the concrete model identifier ("gpt-4o", ...).
	Name string `json:"model_name"`
	// Parameters are the sampling parameters.
	Parameters Parameters `json:"parameters"`
}

// New constructs a Model.
func New(service, name string, params Parameters) *Model {
	return &Model{Service: service, Name: name, Parameters: params}
}

// Identity returns the short "service/name" identity string.
func (m *Model) Identity() string {
	return m.Service + "/" + m.Name
}

// Hash returns the model's stable content hash covering service, name and
// parameters.
func (m *Model) Hash() string {
	h, err := canonicaljson.Fingerprint(m)
	if err != nil {
		return canonicaljson.HashBytes([]byte(m.Identity()))
	}
	return h
}

// Request is one model invocation.
type Request struct {
	// SystemPrompt and UserPrompt are the rendered prompt pair.
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`
	// Parameters override the model's defaults when set.
	Parameters Parameters `json:"parameters"`
	// ResponseSchema, when present, asks for provider-native structured
	// output. Providers without native support treat it as documentation.
	ResponseSchema json.RawMessage `json:"response_schema,omitempty"`
	// Files are blob references attached to the request.
	Files []scenario.FileRef `json:"files,omitempty"`
}

// RawResponse is a materialized provider response. Streaming responses are
// collected before return.
type RawResponse struct {
	// Raw is the textual payload.
	Raw string `json:"raw"`
	// InputTokens and OutputTokens are the provider-reported counts.
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	// FinishReason is the provider finish reason ("stop", "length", ...).
	FinishReason string `json:"finish_reason,omitempty"`
	// ProviderModelID is the provider-opaque model identity, for debugging.
	ProviderModelID string `json:"provider_model_id,omitempty"`
	// InputCost, OutputCost and TotalCost are in USD per the price table.
	InputCost  float64 `json:"input_cost"`
	OutputCost float64 `json:"output_cost"`
	TotalCost  float64 `json:"total_cost"`
}

// Provider is the adapter interface one inference service implements.
// Implementations classify failures as retry-worthy or fatal via
// ProviderError kinds.
type Provider interface {
	// Service returns the service identifier this provider serves.
	Service() string
	// Call invokes the named model. Implementations must be safe for
	// concurrent use.
	Call(ctx context.Context, modelName string, req *Request) (*RawResponse, error)
}

var (
	providersMu sync.RWMutex
	providers   = make(map[string]Provider)
)

// RegisterProvider makes a provider available for its service identifier.
func RegisterProvider(p Provider) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[p.Service()] = p
}

// LookupProvider returns the provider registered for service.
func LookupProvider(service string) (Provider, bool) {
	providersMu.RLock()
	defer providersMu.RUnlock()
	p, ok := providers[service]
	return p, ok
}

// UnregisterProvider removes a provider registration. Intended for tests.
func UnregisterProvider(service string) {
	providersMu.Lock()
	defer providersMu.Unlock()
	delete(providers, service)
}

// effectiveParameters merges request overrides onto the model's defaults.
func effectiveParameters(m *Model, req *Request) Parameters {
	out := m.Parameters
	if req.Parameters.Temperature != nil {
		out.Temperature = req.Parameters.Temperature
	}
	if req.Parameters.MaxTokens != nil {
		out.MaxTokens = req.Parameters.MaxTokens
	}
	if req.Parameters.TopP != nil {
		out.TopP = req.Parameters.TopP
	}
	if req.Parameters.FrequencyPenalty != nil {
		out.FrequencyPenalty = req.Parameters.FrequencyPenalty
	}
	if req.Parameters.PresencePenalty != nil {
		out.PresencePenalty = req.Parameters.PresencePenalty
	}
	if len(req.Parameters.Extra) > 0 {
		merged := make(map[string]any, len(out.Extra)+len(req.Parameters.Extra))
		for k, v := range out.Extra {
			merged[k] = v
		}
		for k, v := range req.Parameters.Extra {
			merged[k] = v
		}
		out.Extra = merged
	}
	return out
}

// String implements fmt.Stringer.
func (m *Model) String() string {
	return fmt.Sprintf("Model(%s)", m.Identity())
}
