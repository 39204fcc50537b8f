//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package interview

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/expectedparrot/edsl-go/agent"
	"github.com/expectedparrot/edsl-go/internal/canonicaljson"
	"github.com/expectedparrot/edsl-go/model"
	"github.com/expectedparrot/edsl-go/prompt"
	"github.com/expectedparrot/edsl-go/scenario"
	"github.com/expectedparrot/edsl-go/survey"
)

// Exception is one recorded per-question failure.
type Exception struct {
	QuestionName string `json:"question_name"`
	Message      string `json:"message"`
}

// Status labels for the per-question task map.
const (
	StatusNotStarted = "not_started"
	StatusRunning    = "running"
	StatusDone       = "done"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
)

// Interview walks one survey for one (agent, scenario, model, iteration).
type Interview struct {
	Survey    *survey.Survey
	Agent     *agent.Agent
	Scenario  scenario.Scenario
	Model     *model.Model
	Iteration int
	// Order is the interview's position in the job's Cartesian enumeration.
	Order int

	answers    map[string]any
	records    map[string]*TurnRecord
	asked      []string
	exceptions []Exception
	status     map[string]string
}

// Outcome is the completed interview: per-question records in ask order
// plus collected exceptions.
type Outcome struct {
	Order       int
	Agent       *agent.Agent
	Scenario    scenario.Scenario
	Model       *model.Model
	Iteration   int
	InitialHash string
	// Asked lists question names in the order they were asked.
	Asked      []string
	Records    map[string]*TurnRecord
	Exceptions []Exception
	// Err is the fatal error that cut the interview short, if any.
	Err error
}

// New constructs an Interview.
func New(s *survey.Survey, ag *agent.Agent, sc scenario.Scenario, m *model.Model, iteration, order int) *Interview {
	iv := &Interview{
		Survey:    s,
		Agent:     ag,
		Scenario:  sc,
		Model:     m,
		Iteration: iteration,
		Order:     order,
		answers:   make(map[string]any),
		records:   make(map[string]*TurnRecord),
		status:    make(map[string]string),
	}
	for _, q := range s.Questions() {
		iv.status[q.Name] = StatusNotStarted
	}
	return iv
}

// InitialHash is the stable identity of this interview, covering survey,
// agent, scenario, model and iteration.
func (iv *Interview) InitialHash() string {
	h, err := canonicaljson.Fingerprint(map[string]any{
		"survey_hash":    iv.Survey.Hash(),
		"agent_hash":     iv.Agent.Hash(),
		"scenario_hash":  iv.Scenario.Hash(),
		"model_identity": iv.Model.Identity(),
		"iteration":      iv.Iteration,
	})
	if err != nil {
		return canonicaljson.HashBytes([]byte(fmt.Sprintf("%s|%d", iv.Model.Identity(), iv.Iteration)))
	}
	return h
}

// Status returns a copy of the per-question status map.
func (iv *Interview) Status() map[string]string {
	out := make(map[string]string, len(iv.status))
	for k, v := range iv.status {
		out[k] = v
	}
	return out
}

// Run executes the interview to completion. A non-nil Outcome.Err means the
// interview was cut short (fatal provider error or cancellation); the
// Outcome still carries everything completed so far.
func (iv *Interview) Run(ctx context.Context, inv *Invigilator) *Outcome {
	ctx, span := tracer.Start(ctx, "interview.run")
	span.SetAttributes(
		attribute.String("interview.hash", iv.InitialHash()),
		attribute.Int("interview.order", iv.Order),
	)
	defer span.End()

	outcome := &Outcome{
		Order:       iv.Order,
		Agent:       iv.Agent,
		Scenario:    iv.Scenario,
		Model:       iv.Model,
		Iteration:   iv.Iteration,
		InitialHash: iv.InitialHash(),
	}

	current := iv.Survey.First()
	for current != nil {
		if err := ctx.Err(); err != nil {
			outcome.Err = err
			break
		}
		iv.status[current.Name] = StatusRunning

		memory := iv.memoryFor(current.Name)
		record, err := inv.Run(ctx, current, iv.Agent, iv.Scenario, iv.Model, memory, iv.answers, iv.Iteration)
		iv.records[current.Name] = record
		iv.asked = append(iv.asked, current.Name)

		if record.Validated {
			iv.status[current.Name] = StatusDone
			iv.answers[current.Name] = record.Answer
		} else {
			iv.status[current.Name] = StatusFailed
			iv.exceptions = append(iv.exceptions, Exception{
				QuestionName: current.Name,
				Message:      record.Exception,
			})
		}
		if err != nil {
			outcome.Err = err
			break
		}

		nextName, err := iv.Survey.Next(current.Name, iv.answers)
		if err != nil {
			outcome.Err = err
			break
		}
		if nextName == survey.End {
			break
		}
		next, ok := iv.Survey.Question(nextName)
		if !ok {
			outcome.Err = fmt.Errorf("survey rule routed to unknown question %q", nextName)
			break
		}
		iv.markSkipped(current.Name, nextName)
		current = next
	}

	outcome.Asked = iv.asked
	outcome.Records = iv.records
	outcome.Exceptions = iv.exceptions
	// Release accumulators; the outcome owns the data now.
	iv.answers = nil
	iv.records = nil
	iv.exceptions = nil
	iv.asked = nil
	return outcome
}

// memoryFor assembles the prior (question, answer) pairs the memory plan
// exposes to focal. Unanswered priors are omitted.
func (iv *Interview) memoryFor(focal string) []prompt.MemoryPair {
	priors := iv.Survey.MemoryFor(focal)
	if len(priors) == 0 {
		return nil
	}
	pairs := make([]prompt.MemoryPair, 0, len(priors))
	for _, q := range priors {
		if answer, ok := iv.answers[q.Name]; ok {
			pairs = append(pairs, prompt.MemoryPair{Question: q, Answer: answer})
		}
	}
	return pairs
}

// markSkipped labels questions jumped over by a skip rule.
func (iv *Interview) markSkipped(from, to string) {
	fromIdx, ok1 := iv.Survey.QuestionIndex(from)
	toIdx, ok2 := iv.Survey.QuestionIndex(to)
	if !ok1 || !ok2 {
		return
	}
	questions := iv.Survey.Questions()
	for i := fromIdx + 1; i < toIdx; i++ {
		if iv.status[questions[i].Name] == StatusNotStarted {
			iv.status[questions[i].Name] = StatusSkipped
		}
	}
}
