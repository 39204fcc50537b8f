//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package agent provides the Agent value: a persona with traits that answers
// survey questions, optionally short-circuiting the model with direct-answer
// functions.
package agent

import (
	"fmt"
	"sort"

	"github.com/expectedparrot/edsl-go/internal/canonicaljson"
	"github.com/expectedparrot/edsl-go/question"
	"github.com/expectedparrot/edsl-go/scenario"
)

// DefaultInstruction is the agent instruction used when an agent has no
// traits presentation template of its own.
const DefaultInstruction = "You are answering questions as if you were a human. " +
	"Do not break character. Your traits: {{ agent.traits }}"

// DirectAnswerer answers one question without a model call. It receives the
// question, the active scenario and the answers accumulated so far.
type DirectAnswerer func(q *question.Question, s scenario.Scenario, priorAnswers map[string]any) (any, error)

// Agent is an immutable persona. Construct with New; the zero value answers
// with no traits.
type Agent struct {
	// Name optionally identifies the agent.
	Name string `json:"name,omitempty"`
	// Traits maps trait name to value.
	Traits map[string]any `json:"traits"`
	// TraitsPresentationTemplate overrides how traits render into the
	// system prompt. Empty means DefaultInstruction.
	TraitsPresentationTemplate string `json:"traits_presentation_template,omitempty"`

	direct map[string]DirectAnswerer
}

// Option configures an Agent at construction.
type Option func(*Agent)

// WithName sets the agent name.
func WithName(name string) Option {
	return func(a *Agent) { a.Name = name }
}

// WithPresentation sets the traits presentation template.
func WithPresentation(tmpl string) Option {
	return func(a *Agent) { a.TraitsPresentationTemplate = tmpl }
}

// WithDirectAnswer registers a direct-answer function for a question name.
// When present, the invigilator calls it instead of the model; no cache or
// bucket interaction occurs.
func WithDirectAnswer(questionName string, fn DirectAnswerer) Option {
	return func(a *Agent) { a.direct[questionName] = fn }
}

// New constructs an Agent from traits.
func New(traits map[string]any, opts ...Option) *Agent {
	if traits == nil {
		traits = map[string]any{}
	}
	a := &Agent{Traits: traits, direct: make(map[string]DirectAnswerer)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DirectAnswerer returns the registered direct-answer function for a
// question name, if any.
func (a *Agent) DirectAnswerer(questionName string) (DirectAnswerer, bool) {
	fn, ok := a.direct[questionName]
	return fn, ok
}

// TraitKeys returns trait names in sorted order.
func (a *Agent) TraitKeys() []string {
	keys := make([]string, 0, len(a.Traits))
	for k := range a.Traits {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Instruction returns the agent's system-prompt template.
func (a *Agent) Instruction() string {
	if a.TraitsPresentationTemplate != "" {
		return a.TraitsPresentationTemplate
	}
	return DefaultInstruction
}

// Hash returns the agent's stable content hash. Direct-answer functions do
// not contribute; two agents with equal name and traits hash identically.
func (a *Agent) Hash() string {
	h, err := canonicaljson.Fingerprint(map[string]any{
		"name":   a.Name,
		"traits": a.Traits,
	})
	if err != nil {
		return canonicaljson.HashBytes([]byte(fmt.Sprintf("%s:%v", a.Name, a.Traits)))
	}
	return h
}

// List is an ordered sequence of Agents.
type List []*Agent

// FromTraits builds a List with one Agent per traits map.
func FromTraits(traitMaps ...map[string]any) List {
	out := make(List, 0, len(traitMaps))
	for _, tm := range traitMaps {
		out = append(out, New(tm))
	}
	return out
}
