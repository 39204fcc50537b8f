//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package survey provides the survey DAG: an ordered question list with skip
// and stop rules, a memory plan and question groups. The survey is a flat
// vector of questions plus index-based rules; questions never point at each
// other.
package survey

import (
	"fmt"
	"sort"

	"github.com/expectedparrot/edsl-go/internal/canonicaljson"
	"github.com/expectedparrot/edsl-go/question"
)

// End is the sentinel rule target terminating a survey walk.
const End = "END"

// ValidationError is raised only at survey construction and is fatal.
type ValidationError struct {
	Message string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return "survey validation: " + e.Message
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Rule routes the walk from one question to another (or End) when its
// predicate over prior answers holds. Rules added later win ties unless an
// explicit priority is set.
type Rule struct {
	// From is the question the rule fires after.
	From string `json:"from" yaml:"from"`
	// Expression is the compact text form of the predicate. Kept alongside
	// the compiled Predicate for serialization.
	Expression string `json:"predicate" yaml:"predicate"`
	// To is a question name or End.
	To string `json:"to" yaml:"to"`
	// Priority orders rule evaluation; higher fires first. Rules carry
	// their insertion index as a tiebreak, later insertions winning.
	Priority int `json:"priority" yaml:"priority"`

	compiled *Predicate
	index    int
}

// Survey is an immutable question DAG. Build with New and the With* options,
// or incrementally with the flow API (AddQuestion/AddRule/...) followed by
// Validate.
type Survey struct {
	questions []*question.Question
	rules     []*Rule
	// memory maps question name to the prior question names whose
	// (text, answer) pairs are visible when it renders.
	memory map[string][]string
	// groups are named contiguous spans of question indices.
	groups map[string][2]int
	index  map[string]int
}

// New constructs a validated Survey from questions.
func New(questions []*question.Question) (*Survey, error) {
	s := &Survey{
		memory: make(map[string][]string),
		groups: make(map[string][2]int),
		index:  make(map[string]int),
	}
	for _, q := range questions {
		if err := s.AddQuestion(q); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustNew is New, panicking on error.
func MustNew(questions ...*question.Question) *Survey {
	s, err := New(questions)
	if err != nil {
		panic(err)
	}
	return s
}

// AddQuestion appends a question. Names must be unique within the survey.
func (s *Survey) AddQuestion(q *question.Question) error {
	if q == nil {
		return validationErrorf("nil question")
	}
	if !question.ValidName(q.Name) {
		return validationErrorf("question name %q is not a valid identifier", q.Name)
	}
	if _, exists := s.index[q.Name]; exists {
		return validationErrorf("duplicate question name %q", q.Name)
	}
	s.index[q.Name] = len(s.questions)
	s.questions = append(s.questions, q)
	return nil
}

// AddRule adds a routing rule with the given priority. The expression is
// compiled immediately; a parse failure is a validation error.
func (s *Survey) AddRule(from, expression, to string, priority int) error {
	pred, err := ParsePredicate(expression)
	if err != nil {
		return validationErrorf("rule %q -> %q: %v", from, to, err)
	}
	if _, ok := s.index[from]; !ok {
		return validationErrorf("rule source %q is not a question", from)
	}
	if to != End {
		if _, ok := s.index[to]; !ok {
			return validationErrorf("rule target %q is not a question or END", to)
		}
	}
	s.rules = append(s.rules, &Rule{
		From:       from,
		Expression: expression,
		To:         to,
		Priority:   priority,
		compiled:   pred,
		index:      len(s.rules),
	})
	return nil
}

// AddStopRule ends the survey after question from when the expression holds.
func (s *Survey) AddStopRule(from, expression string) error {
	return s.AddRule(from, expression, End, 0)
}

// AddSkipRule jumps from from to to when the expression holds.
func (s *Survey) AddSkipRule(from, expression, to string) error {
	return s.AddRule(from, expression, to, 0)
}

// AddMemory declares that prior's (text, answer) pair is visible when
// focal renders. Memory references must point backward.
func (s *Survey) AddMemory(focal, prior string) error {
	fi, ok := s.index[focal]
	if !ok {
		return validationErrorf("memory focal question %q is unknown", focal)
	}
	pi, ok := s.index[prior]
	if !ok {
		return validationErrorf("memory prior question %q is unknown", prior)
	}
	if pi >= fi {
		return validationErrorf("memory for %q references non-prior question %q", focal, prior)
	}
	s.memory[focal] = append(s.memory[focal], prior)
	return nil
}

// SetFullMemory gives every question memory of all prior questions.
func (s *Survey) SetFullMemory() {
	for i, q := range s.questions {
		priors := make([]string, 0, i)
		for _, prior := range s.questions[:i] {
			priors = append(priors, prior.Name)
		}
		s.memory[q.Name] = priors
	}
}

// AddGroup names the contiguous span of questions [first, last].
func (s *Survey) AddGroup(name, first, last string) error {
	fi, ok := s.index[first]
	if !ok {
		return validationErrorf("group %q: unknown question %q", name, first)
	}
	li, ok := s.index[last]
	if !ok {
		return validationErrorf("group %q: unknown question %q", name, last)
	}
	if li < fi {
		return validationErrorf("group %q spans backward", name)
	}
	if _, exists := s.groups[name]; exists {
		return validationErrorf("duplicate group name %q", name)
	}
	s.groups[name] = [2]int{fi, li}
	return nil
}

// Validate checks the survey's construction invariants: at least one
// question, rule targets known, memory references backward.
func (s *Survey) Validate() error {
	if len(s.questions) == 0 {
		return validationErrorf("survey has no questions")
	}
	for _, r := range s.rules {
		if _, ok := s.index[r.From]; !ok {
			return validationErrorf("rule source %q is not a question", r.From)
		}
		if r.To != End {
			if _, ok := s.index[r.To]; !ok {
				return validationErrorf("rule target %q is not a question or END", r.To)
			}
		}
	}
	for focal, priors := range s.memory {
		fi, ok := s.index[focal]
		if !ok {
			return validationErrorf("memory focal question %q is unknown", focal)
		}
		for _, prior := range priors {
			pi, ok := s.index[prior]
			if !ok {
				return validationErrorf("memory prior question %q is unknown", prior)
			}
			if pi >= fi {
				return validationErrorf("memory for %q references non-prior question %q", focal, prior)
			}
		}
	}
	return nil
}

// Questions returns the ordered question list.
func (s *Survey) Questions() []*question.Question {
	return s.questions
}

// Question returns the named question.
func (s *Survey) Question(name string) (*question.Question, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.questions[i], true
}

// QuestionIndex returns the position of the named question.
func (s *Survey) QuestionIndex(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// First returns the first question, or nil for an empty survey.
func (s *Survey) First() *question.Question {
	if len(s.questions) == 0 {
		return nil
	}
	return s.questions[0]
}

// Group returns the questions in the named group.
func (s *Survey) Group(name string) ([]*question.Question, bool) {
	span, ok := s.groups[name]
	if !ok {
		return nil, false
	}
	return s.questions[span[0] : span[1]+1], true
}

// Rules returns the survey's rules in insertion order.
func (s *Survey) Rules() []*Rule {
	return s.rules
}

// Next returns the name of the question after current given the answers so
// far, or End. Rules whose From equals current are tested by priority
// (higher first; later insertion wins ties); absent a match, the next
// question in source order is chosen.
func (s *Survey) Next(current string, answers map[string]any) (string, error) {
	ci, ok := s.index[current]
	if !ok {
		return End, fmt.Errorf("unknown question %q", current)
	}
	var applicable []*Rule
	for _, r := range s.rules {
		if r.From == current {
			applicable = append(applicable, r)
		}
	}
	sort.SliceStable(applicable, func(a, b int) bool {
		if applicable[a].Priority != applicable[b].Priority {
			return applicable[a].Priority > applicable[b].Priority
		}
		return applicable[a].index > applicable[b].index
	})
	for _, r := range applicable {
		ok, err := r.compiled.Evaluate(answers)
		if err != nil {
			return End, fmt.Errorf("rule %q -> %q: %w", r.From, r.To, err)
		}
		if ok {
			return r.To, nil
		}
	}
	if ci+1 < len(s.questions) {
		return s.questions[ci+1].Name, nil
	}
	return End, nil
}

// MemoryFor returns the declared prior questions for focal, in survey order.
// Only declared memories are exposed; there is no implicit full history.
func (s *Survey) MemoryFor(focal string) []*question.Question {
	priors := s.memory[focal]
	out := make([]*question.Question, 0, len(priors))
	for _, name := range priors {
		if q, ok := s.Question(name); ok {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return s.index[out[a].Name] < s.index[out[b].Name]
	})
	return out
}

// Hash returns the survey's stable content hash.
func (s *Survey) Hash() string {
	doc := s.toDoc()
	h, err := canonicaljson.Fingerprint(doc)
	if err != nil {
		return canonicaljson.HashBytes([]byte(fmt.Sprintf("%v", doc)))
	}
	return h
}
