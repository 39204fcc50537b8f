//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expectedparrot/edsl-go/agent"
	"github.com/expectedparrot/edsl-go/question"
	"github.com/expectedparrot/edsl-go/scenario"
)

// dropdownNarrowTo is how many options a dropdown question presents after
// BM25 narrowing.
const dropdownNarrowTo = 20

// Prompts is a rendered (system, user) prompt pair.
type Prompts struct {
	System string `json:"system_prompt"`
	User   string `json:"user_prompt"`
}

// MemoryPair is one prior (question, answer) made visible to a later
// question by the memory plan.
type MemoryPair struct {
	Question *question.Question
	Answer   any
}

// Render composes the prompts for one question turn. The environment exposes
// {{ scenario.field }}, {{ agent.trait }} and {{ prior.answer }} references;
// an unresolved reference or bad template yields a RenderError.
func Render(
	q *question.Question,
	ag *agent.Agent,
	sc scenario.Scenario,
	answers map[string]any,
	memory []MemoryPair,
) (Prompts, error) {
	env := buildEnv(ag, sc, answers)

	system, err := renderWith(ag.Instruction(), env)
	if err != nil {
		return Prompts{}, err
	}

	text, err := renderWith(q.Text, env)
	if err != nil {
		return Prompts{}, err
	}

	var b strings.Builder
	writeMemory(&b, memory)
	if q.PresentationTemplate != "" {
		presented, err := renderWith(q.PresentationTemplate, withQuestionText(env, text))
		if err != nil {
			return Prompts{}, err
		}
		b.WriteString(presented)
	} else {
		b.WriteString(text)
	}
	b.WriteString("\n")
	writeOptions(&b, q, text)
	writeInstructions(&b, q, env)

	return Prompts{System: system, User: strings.TrimRight(b.String(), "\n")}, nil
}

func renderWith(source string, env map[string]any) (string, error) {
	tmpl, err := CompileCached(source)
	if err != nil {
		return "", err
	}
	return tmpl.Render(env)
}

// buildEnv exposes prior answers under their question names, agent traits
// under "agent" and scenario fields under "scenario".
func buildEnv(ag *agent.Agent, sc scenario.Scenario, answers map[string]any) map[string]any {
	env := make(map[string]any, len(answers)+2)
	for name, answer := range answers {
		env[name] = map[string]any{"answer": answer}
	}

	agentEnv := make(map[string]any, len(ag.Traits)+2)
	for k, v := range ag.Traits {
		agentEnv[k] = v
	}
	agentEnv["name"] = ag.Name
	agentEnv["traits"] = formatTraits(ag)
	env["agent"] = agentEnv

	scenarioEnv := make(map[string]any, len(sc))
	for k, v := range sc {
		scenarioEnv[k] = v
	}
	env["scenario"] = scenarioEnv
	return env
}

func withQuestionText(env map[string]any, text string) map[string]any {
	out := make(map[string]any, len(env)+1)
	for k, v := range env {
		out[k] = v
	}
	out["question_text"] = text
	return out
}

func formatTraits(ag *agent.Agent) string {
	keys := ag.TraitKeys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, ag.Traits[k]))
	}
	return strings.Join(parts, "; ")
}

func writeMemory(b *strings.Builder, memory []MemoryPair) {
	if len(memory) == 0 {
		return
	}
	b.WriteString("Earlier in this survey:\n")
	for _, pair := range memory {
		fmt.Fprintf(b, "\tQ: %s\n\tA: %v\n", pair.Question.Text, pair.Answer)
	}
	b.WriteString("\n")
}

func writeOptions(b *strings.Builder, q *question.Question, renderedText string) {
	options := q.Options
	if q.Type == question.TypeDropdown {
		options = question.NarrowOptions(options, renderedText, dropdownNarrowTo)
	}
	if len(options) > 0 {
		b.WriteString("\nThe options are:\n")
		for i, o := range options {
			fmt.Fprintf(b, "%d: %s\n", i, o)
		}
	}
	if len(q.Rows) > 0 {
		b.WriteString("\nThe rows are:\n")
		for _, r := range q.Rows {
			fmt.Fprintf(b, "- %s\n", r)
		}
		b.WriteString("The columns are:\n")
		for _, c := range q.Columns {
			fmt.Fprintf(b, "- %s\n", c)
		}
	}
	if q.ScaleLo != nil && q.ScaleHi != nil {
		fmt.Fprintf(b, "\nThe scale runs from %d to %d.\n", *q.ScaleLo, *q.ScaleHi)
		if len(q.ScaleLabels) > 0 {
			values := make([]int, 0, len(q.ScaleLabels))
			for v := range q.ScaleLabels {
				values = append(values, v)
			}
			sort.Ints(values)
			for _, v := range values {
				fmt.Fprintf(b, "%d: %s\n", v, q.ScaleLabels[v])
			}
		}
	}
	if q.BudgetSum != nil {
		fmt.Fprintf(b, "\nAllocate exactly %v across the options.\n", *q.BudgetSum)
	}
}

func writeInstructions(b *strings.Builder, q *question.Question, env map[string]any) {
	instruction := q.InstructionTemplate
	if instruction == "" {
		if spec, ok := question.Lookup(q.Type); ok {
			instruction = spec.DefaultInstruction
		}
	}
	if instruction != "" {
		rendered, err := renderWith(instruction, env)
		if err == nil {
			b.WriteString("\n" + rendered + "\n")
		} else {
			// Instruction templates are registry-supplied; a render failure
			// here falls back to the raw text rather than failing the turn.
			b.WriteString("\n" + instruction + "\n")
		}
	}
	if q.IncludeComment {
		b.WriteString("After the answer, include a \"comment\" field with any explanation.\n")
	}
}
