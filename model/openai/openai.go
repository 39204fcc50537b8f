//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package openai provides the OpenAI-backed model provider.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openaigo "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/expectedparrot/edsl-go/model"
)

// ServiceName is the inference service identifier of this provider.
const ServiceName = "openai"

// Provider implements model.Provider over the OpenAI chat completions API.
type Provider struct {
	client      openaigo.Client
	requestOpts []openaiopt.RequestOption
}

type options struct {
	apiKey      string
	baseURL     string
	clientOpts  []openaiopt.RequestOption
	requestOpts []openaiopt.RequestOption
}

// Option configures a Provider.
type Option func(*options)

// WithAPIKey sets the API key. When unset the SDK reads OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL overrides the API endpoint, for proxies and compatible
// services.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithClientOptions appends raw SDK client options.
func WithClientOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// WithRequestOptions appends raw SDK per-request options.
func WithRequestOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) { o.requestOpts = append(o.requestOpts, opts...) }
}

// New constructs an OpenAI provider.
func New(opts ...Option) *Provider {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var clientOpts []openaiopt.RequestOption
	if o.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	clientOpts = append(clientOpts, o.clientOpts...)
	return &Provider{
		client:      openaigo.NewClient(clientOpts...),
		requestOpts: o.requestOpts,
	}
}

// Service implements model.Provider.
func (p *Provider) Service() string {
	return ServiceName
}

// Call implements model.Provider.
func (p *Provider) Call(ctx context.Context, modelName string, req *model.Request) (*model.RawResponse, error) {
	params, err := buildParams(modelName, req)
	if err != nil {
		return nil, model.NewProviderError(ServiceName, model.ErrKindMalformed, 0, err.Error(), err)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params, p.requestOpts...)
	if err != nil {
		return nil, classify(err)
	}
	if len(completion.Choices) == 0 {
		return nil, model.NewProviderError(ServiceName, model.ErrKindOther, 0, "empty choices in completion", nil)
	}

	choice := completion.Choices[0]
	resp := &model.RawResponse{
		Raw:             choice.Message.Content,
		InputTokens:     int(completion.Usage.PromptTokens),
		OutputTokens:    int(completion.Usage.CompletionTokens),
		FinishReason:    string(choice.FinishReason),
		ProviderModelID: completion.Model,
	}
	if string(choice.FinishReason) == "content_filter" {
		return nil, model.NewProviderError(ServiceName, model.ErrKindSafety, 0, "completion refused by content filter", nil)
	}
	return resp, nil
}

func buildParams(modelName string, req *model.Request) (openaigo.ChatCompletionNewParams, error) {
	var messages []openaigo.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openaigo.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openaigo.UserMessage(req.UserPrompt))

	params := openaigo.ChatCompletionNewParams{
		Model:    shared.ChatModel(modelName),
		Messages: messages,
	}
	if req.Parameters.Temperature != nil {
		params.Temperature = openaigo.Float(*req.Parameters.Temperature)
	}
	if req.Parameters.MaxTokens != nil {
		params.MaxCompletionTokens = openaigo.Int(int64(*req.Parameters.MaxTokens))
	}
	if req.Parameters.TopP != nil {
		params.TopP = openaigo.Float(*req.Parameters.TopP)
	}
	if req.Parameters.FrequencyPenalty != nil {
		params.FrequencyPenalty = openaigo.Float(*req.Parameters.FrequencyPenalty)
	}
	if req.Parameters.PresencePenalty != nil {
		params.PresencePenalty = openaigo.Float(*req.Parameters.PresencePenalty)
	}

	if len(req.ResponseSchema) > 0 {
		var schema any
		if err := json.Unmarshal(req.ResponseSchema, &schema); err != nil {
			return params, fmt.Errorf("decode response schema: %w", err)
		}
		params.ResponseFormat = openaigo.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "answer",
					Schema: schema,
				},
			},
		}
	}
	return params, nil
}

func classify(err error) error {
	var apierr *openaigo.Error
	if errors.As(err, &apierr) {
		return model.NewProviderError(ServiceName, model.ClassifyStatus(apierr.StatusCode),
			apierr.StatusCode, apierr.Message, err)
	}
	return model.NewProviderError(ServiceName, model.ErrKindOther, 0, err.Error(), err)
}
