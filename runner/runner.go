//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package runner fans a survey out over a population: it enumerates the
// (agent, scenario, model, iteration) Cartesian product, runs interviews on
// a bounded worker pool and assembles results in canonical order.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/expectedparrot/edsl-go/agent"
	"github.com/expectedparrot/edsl-go/bucket"
	"github.com/expectedparrot/edsl-go/cache"
	"github.com/expectedparrot/edsl-go/interview"
	"github.com/expectedparrot/edsl-go/model"
	"github.com/expectedparrot/edsl-go/model/testmodel"
	"github.com/expectedparrot/edsl-go/scenario"
	"github.com/expectedparrot/edsl-go/survey"
)

// DefaultConcurrency bounds simultaneous interviews when not configured.
const DefaultConcurrency = 64

// Spec describes one job: a survey crossed with its population. Empty
// population dimensions default to a single neutral element; an empty model
// list defaults to the deterministic test model.
type Spec struct {
	Survey     *survey.Survey
	Agents     []*agent.Agent
	Scenarios  []scenario.Scenario
	Models     []*model.Model
	Iterations int
}

// normalize fills population defaults and validates the spec.
func (s *Spec) normalize() error {
	if s.Survey == nil {
		return errors.New("job spec has no survey")
	}
	if len(s.Survey.Questions()) == 0 {
		return errors.New("job spec survey has no questions")
	}
	if len(s.Agents) == 0 {
		s.Agents = []*agent.Agent{agent.New(nil)}
	}
	if len(s.Scenarios) == 0 {
		s.Scenarios = []scenario.Scenario{{}}
	}
	if len(s.Models) == 0 {
		s.Models = []*model.Model{model.New(testmodel.ServiceName, "canned", model.Parameters{})}
	}
	if s.Iterations <= 0 {
		s.Iterations = 1
	}
	return nil
}

// Total is the number of interviews the spec enumerates.
func (s *Spec) Total() int {
	return len(s.Agents) * len(s.Scenarios) * len(s.Models) * s.Iterations
}

// Runner executes job specs. It owns the shared cache, bucket collection
// and model adapter reused across jobs.
type Runner struct {
	concurrency int
	cache       *cache.Cache
	buckets     *bucket.Collection
	adapter     *model.Adapter
	invOpts     []interview.InvigilatorOption
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency bounds the number of simultaneous interviews.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithCache sets the shared response cache.
func WithCache(c *cache.Cache) Option {
	return func(r *Runner) { r.cache = c }
}

// WithBuckets sets the shared rate-limit buckets.
func WithBuckets(b *bucket.Collection) Option {
	return func(r *Runner) { r.buckets = b }
}

// WithAdapter sets the model adapter.
func WithAdapter(a *model.Adapter) Option {
	return func(r *Runner) { r.adapter = a }
}

// WithInvigilatorOptions forwards options to the per-turn invigilator.
func WithInvigilatorOptions(opts ...interview.InvigilatorOption) Option {
	return func(r *Runner) { r.invOpts = append(r.invOpts, opts...) }
}

// New constructs a Runner. Without options it uses an in-memory cache,
// default buckets and the default adapter.
func New(opts ...Option) *Runner {
	r := &Runner{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = cache.New(cache.NewMemoryStore())
	}
	if r.buckets == nil {
		r.buckets = bucket.NewCollection()
	}
	if r.adapter == nil {
		r.adapter = model.NewAdapter()
	}
	return r
}

// interviewParam carries one interview through the worker pool.
type interviewParam struct {
	ctx context.Context
	iv  *interview.Interview
	job *Job
	inv *interview.Invigilator
	wg  *sync.WaitGroup
}

func (p *interviewParam) reset() {
	p.ctx = nil
	p.iv = nil
	p.job = nil
	p.inv = nil
	p.wg = nil
}

var interviewParamPool = &sync.Pool{
	New: func() any { return new(interviewParam) },
}

// Run starts a job and returns its handle immediately. Interviews are
// enumerated agents-outer, scenarios, models, iterations-innermost, each
// tagged with its ordinal position.
func (r *Runner) Run(ctx context.Context, spec Spec) (*Job, error) {
	if err := spec.normalize(); err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job := newJob(spec, cancel)
	inv := interview.NewInvigilator(r.adapter, r.cache, r.buckets, r.invOpts...)

	pool, err := ants.NewPoolWithFunc(r.concurrency, func(args any) {
		param, ok := args.(*interviewParam)
		if !ok {
			panic("interview pool args type error")
		}
		wg := param.wg
		pctx, iv, j, pinv := param.ctx, param.iv, param.job, param.inv
		defer func() {
			wg.Done()
			param.reset()
			interviewParamPool.Put(param)
		}()
		j.runOne(pctx, pinv, iv)
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create interview pool: %w", err)
	}

	var wg sync.WaitGroup
	go func() {
		defer func() {
			wg.Wait()
			pool.Release()
			job.finish()
		}()
		order := 0
		for _, ag := range spec.Agents {
			for _, sc := range spec.Scenarios {
				for _, m := range spec.Models {
					for iter := 0; iter < spec.Iterations; iter++ {
						if jobCtx.Err() != nil {
							return
						}
						param := interviewParamPool.Get().(*interviewParam)
						param.ctx = jobCtx
						param.iv = interview.New(spec.Survey, ag, sc, m, iter, order)
						param.job = job
						param.inv = inv
						param.wg = &wg
						wg.Add(1)
						if err := pool.Invoke(param); err != nil {
							wg.Done()
							param.reset()
							interviewParamPool.Put(param)
							job.fail(fmt.Errorf("submit interview %d: %w", order, err))
							return
						}
						order++
					}
				}
			}
		}
	}()
	return job, nil
}
