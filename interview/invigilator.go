//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package interview executes one survey for one (agent, scenario, model,
// iteration) combination: question turns run sequentially, each through the
// render, cache, bucket, call, validate, repair pipeline.
package interview

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/expectedparrot/edsl-go/agent"
	"github.com/expectedparrot/edsl-go/bucket"
	"github.com/expectedparrot/edsl-go/cache"
	"github.com/expectedparrot/edsl-go/log"
	"github.com/expectedparrot/edsl-go/model"
	"github.com/expectedparrot/edsl-go/prompt"
	"github.com/expectedparrot/edsl-go/question"
	"github.com/expectedparrot/edsl-go/scenario"
)

var tracer = otel.Tracer("github.com/expectedparrot/edsl-go/interview")

// freshProbeLimit bounds the search for a free iteration slot when fresh
// mode forces re-execution of an already-cached call.
const freshProbeLimit = 1000

// TurnRecord is everything recorded about one question turn.
type TurnRecord struct {
	QuestionName     string         `json:"question_name"`
	Answer           any            `json:"answer"`
	Comment          string         `json:"comment,omitempty"`
	GeneratedTokens  string         `json:"generated_tokens,omitempty"`
	RawModelResponse string         `json:"raw_model_response,omitempty"`
	Prompts          prompt.Prompts `json:"prompts"`
	CacheKey         string         `json:"cache_key,omitempty"`
	CacheHit         bool           `json:"cache_used"`
	Validated        bool           `json:"validated"`
	InputTokens      int            `json:"input_tokens"`
	OutputTokens     int            `json:"output_tokens"`
	Cost             float64        `json:"cost"`
	// Exception holds the turn's failure message, empty on success.
	Exception string `json:"exception,omitempty"`
}

// Invigilator orchestrates question turns. It is stateless and safe to
// share across interviews.
type Invigilator struct {
	adapter    *model.Adapter
	cache      *cache.Cache
	buckets    *bucket.Collection
	maxRecalls int
}

// InvigilatorOption configures an Invigilator.
type InvigilatorOption func(*Invigilator)

// WithMaxRecalls sets how many corrective model re-calls a turn may make
// after deterministic repair strategies are exhausted.
func WithMaxRecalls(n int) InvigilatorOption {
	return func(iv *Invigilator) { iv.maxRecalls = n }
}

// NewInvigilator constructs an Invigilator.
func NewInvigilator(adapter *model.Adapter, c *cache.Cache, buckets *bucket.Collection, opts ...InvigilatorOption) *Invigilator {
	iv := &Invigilator{
		adapter:    adapter,
		cache:      c,
		buckets:    buckets,
		maxRecalls: 1,
	}
	for _, opt := range opts {
		opt(iv)
	}
	return iv
}

// Run executes one question turn. The returned record is always non-nil;
// the error reports failures that must abort the whole interview (fatal
// provider errors, cancellation).
func (iv *Invigilator) Run(
	ctx context.Context,
	q *question.Question,
	ag *agent.Agent,
	sc scenario.Scenario,
	m *model.Model,
	memory []prompt.MemoryPair,
	priorAnswers map[string]any,
	iteration int,
) (*TurnRecord, error) {
	ctx, span := tracer.Start(ctx, "invigilator.turn")
	span.SetAttributes(
		attribute.String("question.name", q.Name),
		attribute.String("question.type", string(q.Type)),
		attribute.String("model.identity", m.Identity()),
	)
	defer span.End()

	record := &TurnRecord{QuestionName: q.Name}

	prompts, err := prompt.Render(q, ag, sc, priorAnswers, memory)
	if err != nil {
		record.Exception = err.Error()
		return record, nil
	}
	record.Prompts = prompts

	// Local turns never touch cache, buckets or the model.
	if fn, ok := ag.DirectAnswerer(q.Name); ok {
		iv.recordValidated(record, q, fn, sc, priorAnswers)
		return record, nil
	}
	if q.Type == question.TypeCompute {
		iv.recordCompute(record, q, priorAnswers)
		return record, nil
	}

	raw, err := iv.callModel(ctx, q, m, prompts, record, iteration)
	if err != nil {
		record.Exception = err.Error()
		if model.IsFatal(err) || ctx.Err() != nil {
			return record, err
		}
		return record, nil
	}
	record.RawModelResponse = raw

	decoded := question.DecodeResponse(q, raw)
	record.Comment = decoded.Comment
	record.GeneratedTokens = decoded.GeneratedTokens

	validated, verr := question.ValidateAnswer(q, decoded.Answer)
	for recall := 0; verr != nil && recall < iv.maxRecalls; recall++ {
		validated, verr = iv.correctiveRecall(ctx, q, m, prompts, record, iteration, verr)
		if ctx.Err() != nil {
			return record, ctx.Err()
		}
	}
	if verr != nil {
		record.Exception = verr.Error()
		log.Debugf("question %s failed validation after repairs: %v", q.Name, verr)
		return record, nil
	}
	record.Answer = validated
	record.Validated = true
	return record, nil
}

// recordValidated runs the agent's direct answerer and validates its value.
func (iv *Invigilator) recordValidated(record *TurnRecord, q *question.Question, fn agent.DirectAnswerer, sc scenario.Scenario, prior map[string]any) {
	value, err := fn(q, sc, prior)
	if err != nil {
		record.Exception = fmt.Sprintf("direct answer: %v", err)
		return
	}
	validated, verr := question.ValidateAnswer(q, value)
	if verr != nil {
		record.Exception = verr.Error()
		return
	}
	record.Answer = validated
	record.Validated = true
}

func (iv *Invigilator) recordCompute(record *TurnRecord, q *question.Question, prior map[string]any) {
	env := make(map[string]any, len(prior))
	for name, v := range prior {
		env[name] = map[string]any{"answer": v}
	}
	value, err := question.EvaluateCompute(q, env)
	if err != nil {
		record.Exception = err.Error()
		return
	}
	record.Answer = value
	record.Validated = true
}

// callModel performs one cached model call, acquiring request and token
// buckets concurrently before invoking the provider. Tokens, cost and cache
// fields accumulate on record.
func (iv *Invigilator) callModel(
	ctx context.Context,
	q *question.Question,
	m *model.Model,
	prompts prompt.Prompts,
	record *TurnRecord,
	iteration int,
) (string, error) {
	req := &model.Request{
		SystemPrompt: prompts.System,
		UserPrompt:   prompts.User,
	}
	if q.Type == question.TypePydanticSchema && len(q.Schema) > 0 {
		req.ResponseSchema = q.Schema
	}

	effIter, fingerprint := iv.freshSlot(ctx, m, req, iteration)
	record.CacheKey = fingerprint

	entry, hit, err := iv.cache.GetOrBuild(ctx, fingerprint, func(ctx context.Context) (*cache.Entry, error) {
		if err := iv.acquireBuckets(ctx, m, req); err != nil {
			return nil, err
		}
		resp, err := iv.adapter.Call(ctx, m, req)
		if err != nil {
			return nil, err
		}
		record.InputTokens += resp.InputTokens
		record.OutputTokens += resp.OutputTokens
		record.Cost += resp.TotalCost
		return cache.NewEntry(fingerprint, m, req, effIter, resp.Raw), nil
	})
	if err != nil {
		return "", err
	}
	record.CacheHit = hit
	return entry.Output, nil
}

// freshSlot returns the iteration and fingerprint to execute under. In
// fresh mode the iteration advances past occupied slots so the new entry
// coexists with earlier ones.
func (iv *Invigilator) freshSlot(ctx context.Context, m *model.Model, req *model.Request, iteration int) (int, string) {
	fingerprint := cache.Fingerprint(m, req, iteration)
	if !iv.cache.Fresh() {
		return iteration, fingerprint
	}
	for probe := 0; probe < freshProbeLimit; probe++ {
		_, ok, err := iv.cache.Lookup(ctx, fingerprint)
		if err != nil || !ok {
			break
		}
		iteration++
		fingerprint = cache.Fingerprint(m, req, iteration)
	}
	return iteration, fingerprint
}

// acquireBuckets holds both the request slot and the estimated tokens
// before the call. The two acquisitions run concurrently; both must
// succeed.
func (iv *Invigilator) acquireBuckets(ctx context.Context, m *model.Model, req *model.Request) error {
	pair := iv.buckets.Get(m.Identity())
	demand := float64(model.EstimateRequestTokens(m.Name, req))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pair.Requests.Acquire(gctx, 1) })
	g.Go(func() error { return pair.Tokens.Acquire(gctx, demand) })
	return g.Wait()
}

// correctiveRecall re-asks the model with the validation failure appended,
// then re-enters decode and validation.
func (iv *Invigilator) correctiveRecall(
	ctx context.Context,
	q *question.Question,
	m *model.Model,
	prompts prompt.Prompts,
	record *TurnRecord,
	iteration int,
	verr *question.ValidationError,
) (any, *question.ValidationError) {
	corrective := prompts
	corrective.User = fmt.Sprintf(
		"%s\n\nYour previous answer was rejected: %s\nAnswer again, following the required format exactly.",
		prompts.User, verr.Message)

	raw, err := iv.callModel(ctx, q, m, corrective, record, iteration)
	if err != nil {
		return nil, &question.ValidationError{Kind: question.ErrKindShape, Message: err.Error()}
	}
	record.RawModelResponse = raw

	decoded := question.DecodeResponse(q, raw)
	record.Comment = decoded.Comment
	record.GeneratedTokens = decoded.GeneratedTokens
	return question.ValidateAnswer(q, decoded.Answer)
}
