//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package results holds the rows a job produces, one per interview, and the
// table operations over them: select, filter, sort, sample, group and
// aggregate.
package results

import (
	"strings"

	"github.com/expectedparrot/edsl-go/interview"
	"github.com/expectedparrot/edsl-go/survey"
)

// Result is one completed interview as a row of dotted-prefix columns.
// Rows are immutable once built; transforming operations copy.
type Result struct {
	Order       int    `json:"order"`
	Iteration   int    `json:"iteration"`
	InitialHash string `json:"initial_hash"`

	Agent    map[string]any `json:"agent"`
	Scenario map[string]any `json:"scenario"`
	Model    map[string]any `json:"model"`

	Answer           map[string]any      `json:"answer"`
	Comment          map[string]string   `json:"comment"`
	GeneratedTokens  map[string]string   `json:"generated_tokens"`
	RawModelResponse map[string]string   `json:"raw_model_response"`
	Prompt           map[string]string   `json:"prompt"`
	QuestionText     map[string]string   `json:"question_text"`
	QuestionType     map[string]string   `json:"question_type"`
	QuestionOptions  map[string][]string `json:"question_options"`
	CacheKeys        map[string]string   `json:"cache_keys"`
	CacheUsed        map[string]bool     `json:"cache_used"`
	Validated        map[string]bool     `json:"validated"`
	InputTokens      map[string]int      `json:"input_tokens"`
	OutputTokens     map[string]int      `json:"output_tokens"`
	Cost             map[string]float64  `json:"cost"`

	Exceptions []interview.Exception `json:"exceptions,omitempty"`

	// Extra holds caller-added columns, keyed by full column name.
	Extra map[string]any `json:"extra,omitempty"`

	dropped map[string]bool
}

// FromOutcome builds the row for one interview outcome.
func FromOutcome(s *survey.Survey, o *interview.Outcome) *Result {
	r := &Result{
		Order:       o.Order,
		Iteration:   o.Iteration,
		InitialHash: o.InitialHash,

		Agent:    map[string]any{},
		Scenario: map[string]any{},
		Model: map[string]any{
			"inference_service": o.Model.Service,
			"model_name":        o.Model.Name,
		},

		Answer:           map[string]any{},
		Comment:          map[string]string{},
		GeneratedTokens:  map[string]string{},
		RawModelResponse: map[string]string{},
		Prompt:           map[string]string{},
		QuestionText:     map[string]string{},
		QuestionType:     map[string]string{},
		QuestionOptions:  map[string][]string{},
		CacheKeys:        map[string]string{},
		CacheUsed:        map[string]bool{},
		Validated:        map[string]bool{},
		InputTokens:      map[string]int{},
		OutputTokens:     map[string]int{},
		Cost:             map[string]float64{},

		Exceptions: o.Exceptions,
	}
	if o.Agent != nil {
		for k, v := range o.Agent.Traits {
			r.Agent[k] = v
		}
		if o.Agent.Name != "" {
			r.Agent["agent_name"] = o.Agent.Name
		}
	}
	for k, v := range o.Scenario {
		r.Scenario[k] = v
	}

	for _, name := range o.Asked {
		rec := o.Records[name]
		if rec == nil {
			continue
		}
		r.Answer[name] = rec.Answer
		r.Comment[name] = rec.Comment
		r.GeneratedTokens[name] = rec.GeneratedTokens
		r.RawModelResponse[name] = rec.RawModelResponse
		r.Prompt[name+"_user_prompt"] = rec.Prompts.User
		r.Prompt[name+"_system_prompt"] = rec.Prompts.System
		r.CacheKeys[name] = rec.CacheKey
		r.CacheUsed[name] = rec.CacheHit
		r.Validated[name] = rec.Validated
		r.InputTokens[name] = rec.InputTokens
		r.OutputTokens[name] = rec.OutputTokens
		r.Cost[name] = rec.Cost

		if q, ok := s.Question(name); ok {
			r.QuestionText[name] = q.Text
			r.QuestionType[name] = string(q.Type)
			if len(q.Options) > 0 {
				r.QuestionOptions[name] = q.Options
			}
		}
	}
	return r
}

// columnGroups enumerates the dotted-prefix groups in a stable order.
func (r *Result) columnGroups() []struct {
	prefix string
	values map[string]any
} {
	groups := []struct {
		prefix string
		values map[string]any
	}{
		{"agent", r.Agent},
		{"scenario", r.Scenario},
		{"model", r.Model},
		{"answer", r.Answer},
		{"comment", anyMap(r.Comment)},
		{"generated_tokens", anyMap(r.GeneratedTokens)},
		{"raw_model_response", anyMap(r.RawModelResponse)},
		{"prompt", anyMap(r.Prompt)},
		{"question_text", anyMap(r.QuestionText)},
		{"question_type", anyMap(r.QuestionType)},
		{"question_options", anyMap(r.QuestionOptions)},
		{"cache_keys", anyMap(r.CacheKeys)},
		{"cache_used", anyMap(r.CacheUsed)},
		{"validated", anyMap(r.Validated)},
		{"input_tokens", anyMap(r.InputTokens)},
		{"output_tokens", anyMap(r.OutputTokens)},
		{"cost", anyMap(r.Cost)},
	}
	return groups
}

func anyMap[V any](m map[string]V) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Columns flattens the row into dotted column names.
func (r *Result) Columns() map[string]any {
	out := map[string]any{
		"iteration": r.Iteration,
		"order":     r.Order,
	}
	for _, g := range r.columnGroups() {
		for k, v := range g.values {
			out[g.prefix+"."+k] = v
		}
	}
	for k, v := range r.Extra {
		out[k] = v
	}
	for col := range r.dropped {
		delete(out, col)
	}
	return out
}

// Get returns one column value by dotted name.
func (r *Result) Get(column string) (any, bool) {
	v, ok := r.Columns()[column]
	return v, ok
}

// doc returns the nested form used by predicate evaluation: each prefix is
// a map, scalars sit at the top level.
func (r *Result) doc() map[string]any {
	out := map[string]any{
		"iteration": r.Iteration,
		"order":     r.Order,
	}
	for _, g := range r.columnGroups() {
		out[g.prefix] = g.values
	}
	for k, v := range r.Extra {
		out[k] = v
	}
	return out
}

// clone copies the row's mutable bookkeeping (extras and drops); the column
// maps themselves are shared since rows are immutable.
func (r *Result) clone() *Result {
	out := *r
	if len(r.Extra) > 0 {
		out.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}
	if len(r.dropped) > 0 {
		out.dropped = make(map[string]bool, len(r.dropped))
		for k, v := range r.dropped {
			out.dropped[k] = v
		}
	}
	return &out
}

// matchColumn reports whether a column name matches a selection pattern.
// A pattern is an exact name, a "prefix.*" wildcard, or a bare prefix.
func matchColumn(pattern, column string) bool {
	if pattern == column {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, ".*"); ok {
		return strings.HasPrefix(column, prefix+".")
	}
	return strings.HasPrefix(column, pattern+".")
}
