//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package anthropic provides the Anthropic-backed model provider.
package anthropic

import (
	"context"
	"errors"
	"strings"

	anthropicgo "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/expectedparrot/edsl-go/model"
)

// ServiceName is the inference service identifier of this provider.
const ServiceName = "anthropic"

// defaultMaxTokens applies when the request carries no max token limit;
// the messages API requires one.
const defaultMaxTokens = 4096

// Provider implements model.Provider over the Anthropic messages API.
type Provider struct {
	client      anthropicgo.Client
	requestOpts []option.RequestOption
}

type options struct {
	apiKey      string
	baseURL     string
	clientOpts  []option.RequestOption
	requestOpts []option.RequestOption
}

// Option configures a Provider.
type Option func(*options)

// WithAPIKey sets the API key. When unset the SDK reads ANTHROPIC_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithClientOptions appends raw SDK client options.
func WithClientOptions(opts ...option.RequestOption) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// WithRequestOptions appends raw SDK per-request options.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(o *options) { o.requestOpts = append(o.requestOpts, opts...) }
}

// New constructs an Anthropic provider.
func New(opts ...Option) *Provider {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var clientOpts []option.RequestOption
	if o.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(o.baseURL))
	}
	clientOpts = append(clientOpts, o.clientOpts...)
	return &Provider{
		client:      anthropicgo.NewClient(clientOpts...),
		requestOpts: o.requestOpts,
	}
}

// Service implements model.Provider.
func (p *Provider) Service() string {
	return ServiceName
}

// Call implements model.Provider.
func (p *Provider) Call(ctx context.Context, modelName string, req *model.Request) (*model.RawResponse, error) {
	params := buildParams(modelName, req)

	message, err := p.client.Messages.New(ctx, params, p.requestOpts...)
	if err != nil {
		return nil, classify(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		text.WriteString(block.Text)
	}
	stopReason := strings.TrimSpace(string(message.StopReason))
	if stopReason == "refusal" {
		return nil, model.NewProviderError(ServiceName, model.ErrKindSafety, 0, "model refused the request", nil)
	}
	return &model.RawResponse{
		Raw:             text.String(),
		InputTokens:     int(message.Usage.InputTokens),
		OutputTokens:    int(message.Usage.OutputTokens),
		FinishReason:    stopReason,
		ProviderModelID: string(message.Model),
	}, nil
}

func buildParams(modelName string, req *model.Request) anthropicgo.MessageNewParams {
	params := anthropicgo.MessageNewParams{
		Model:     anthropicgo.Model(modelName),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropicgo.MessageParam{
			anthropicgo.NewUserMessage(anthropicgo.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropicgo.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Parameters.MaxTokens != nil {
		params.MaxTokens = int64(*req.Parameters.MaxTokens)
	}
	if req.Parameters.Temperature != nil {
		params.Temperature = anthropicgo.Float(*req.Parameters.Temperature)
	}
	if req.Parameters.TopP != nil {
		params.TopP = anthropicgo.Float(*req.Parameters.TopP)
	}
	return params
}

func classify(err error) error {
	var apierr *anthropicgo.Error
	if errors.As(err, &apierr) {
		return model.NewProviderError(ServiceName, model.ClassifyStatus(apierr.StatusCode),
			apierr.StatusCode, apierr.Error(), err)
	}
	return model.NewProviderError(ServiceName, model.ErrKindOther, 0, err.Error(), err)
}
