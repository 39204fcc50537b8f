//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package question

import (
	"fmt"
	"sync"
)

// RepairStrategy attempts one deterministic transformation of a malformed
// answer into a valid one. It returns the repaired value and true when the
// transformation applies; validation runs again on the result.
type RepairStrategy func(q *Question, raw any) (any, bool)

// TypeSpec is the registered record for one question kind: structural schema,
// repair strategies, default templates and normalization.
type TypeSpec struct {
	// ID is the type tag.
	ID Type
	// AnswerShape documents the structural contract on the decoded answer.
	AnswerShape string
	// DefaultInstruction is the answering-instructions template appended to
	// the user prompt when the question does not override it.
	DefaultInstruction string
	// DefaultPresentation is the presentation template; empty means the
	// rendered question text stands alone.
	DefaultPresentation string
	// Check validates a Question's own configuration at construction time.
	Check func(q *Question) error
	// Validate checks a decoded answer against the schema. A nil return
	// means valid.
	Validate func(q *Question, answer any) *ValidationError
	// Repair holds the ordered deterministic repair strategies.
	Repair []RepairStrategy
	// Normalize converts a valid answer to canonical form. Must be
	// idempotent. A nil Normalize means identity.
	Normalize func(q *Question, answer any) any
}

var (
	registryMu sync.RWMutex
	registry   = make(map[Type]*TypeSpec)
)

// Register adds or replaces a TypeSpec. New question kinds register by
// providing the five fields of TypeSpec.
func Register(spec *TypeSpec) error {
	if spec == nil || spec.ID == "" {
		return fmt.Errorf("type spec requires an ID")
	}
	if spec.Validate == nil {
		return fmt.Errorf("type spec %q requires a Validate func", spec.ID)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[spec.ID] = spec
	return nil
}

// Lookup returns the TypeSpec for typ.
func Lookup(typ Type) (*TypeSpec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	spec, ok := registry[typ]
	return spec, ok
}

// Types returns the registered type tags.
func Types() []Type {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Type, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	return out
}

// ValidateAnswer runs the full validate → repair → re-validate → normalize
// pipeline for q. On success it returns the normalized answer; otherwise the
// final ValidationError, also appended to DefaultFailureLog.
func ValidateAnswer(q *Question, raw any) (any, *ValidationError) {
	spec, ok := Lookup(q.Type)
	if !ok {
		return nil, invalidf(ErrKindSchema, raw, "unknown question type %q", q.Type)
	}
	verr := spec.Validate(q, raw)
	if verr == nil {
		return normalize(spec, q, raw), nil
	}
	// Deterministic repair attempts, in registration order. Each strategy
	// that applies gets one re-validation.
	current := raw
	for _, repair := range spec.Repair {
		fixed, ok := repair(q, current)
		if !ok {
			continue
		}
		if rerr := spec.Validate(q, fixed); rerr == nil {
			return normalize(spec, q, fixed), nil
		}
		current = fixed
	}
	DefaultFailureLog.Append(q, verr)
	return nil, verr
}

func normalize(spec *TypeSpec, q *Question, answer any) any {
	if spec.Normalize == nil {
		return answer
	}
	return spec.Normalize(q, answer)
}

func requireOptions(q *Question) error {
	if len(q.Options) == 0 {
		return fmt.Errorf("%s question requires options", q.Type)
	}
	return nil
}

func init() {
	specs := []*TypeSpec{
		{
			ID:                 TypeFreeText,
			AnswerShape:        "string",
			DefaultInstruction: "Return your response as JSON: {\"answer\": \"<your answer>\"}.",
			Validate:           validateFreeText,
			Repair:             []RepairStrategy{repairJSONSubstring, repairStringify},
			Normalize:          normalizeTrim,
		},
		{
			ID:                 TypeMultipleChoice,
			AnswerShape:        "one value from question_options",
			DefaultInstruction: "Answer with exactly one of the listed options. Return JSON: {\"answer\": \"<option>\"}.",
			Check:              requireOptions,
			Validate:           validateMultipleChoice,
			Repair:             []RepairStrategy{repairJSONSubstring, repairMatchOption},
			Normalize:          normalizeOption,
		},
		{
			ID:                 TypeYesNo,
			AnswerShape:        "\"Yes\" or \"No\"",
			DefaultInstruction: "Answer Yes or No. Return JSON: {\"answer\": \"Yes\"} or {\"answer\": \"No\"}.",
			Validate:           validateMultipleChoice,
			Repair:             []RepairStrategy{repairJSONSubstring, repairMatchOption},
			Normalize:          normalizeOption,
		},
		{
			ID:                 TypeMultipleChoiceWithOther,
			AnswerShape:        "one value from question_options, or any string",
			DefaultInstruction: "Answer with one of the listed options, or provide your own answer. Return JSON: {\"answer\": \"<option or text>\"}.",
			Check:              requireOptions,
			Validate:           validateMultipleChoiceWithOther,
			Repair:             []RepairStrategy{repairJSONSubstring, repairMatchOption, repairStringify},
			Normalize:          normalizeOption,
		},
		{
			ID:                 TypeCheckBox,
			AnswerShape:        "subset of question_options",
			DefaultInstruction: "Select the applicable options. Return JSON: {\"answer\": [\"<option>\", ...]}.",
			Check:              requireOptions,
			Validate:           validateCheckBox,
			Repair:             []RepairStrategy{repairJSONSubstring, repairSplitDelimited, repairMatchOptionList},
			Normalize:          normalizeOptionList,
		},
		{
			ID:                 TypeTopK,
			AnswerShape:        "exactly k values from question_options",
			DefaultInstruction: "Select exactly the requested number of options. Return JSON: {\"answer\": [\"<option>\", ...]}.",
			Check:              checkTopK,
			Validate:           validateTopK,
			Repair:             []RepairStrategy{repairJSONSubstring, repairSplitDelimited, repairMatchOptionList},
			Normalize:          normalizeOptionList,
		},
		{
			ID:                 TypeNumerical,
			AnswerShape:        "integer or float within [min_value, max_value]",
			DefaultInstruction: "Answer with a single number. Return JSON: {\"answer\": <number>}.",
			Validate:           validateNumerical,
			Repair:             []RepairStrategy{repairJSONSubstring, repairFirstNumber},
			Normalize:          normalizeNumber,
		},
		{
			ID:                 TypeLinearScale,
			AnswerShape:        "integer in [lo, hi]",
			DefaultInstruction: "Answer with a single integer on the scale. Return JSON: {\"answer\": <integer>}.",
			Check:              checkLinearScale,
			Validate:           validateLinearScale,
			Repair:             []RepairStrategy{repairJSONSubstring, repairScaleLabel, repairFirstNumber},
			Normalize:          normalizeInteger,
		},
		{
			ID:                 TypeLikertFive,
			AnswerShape:        "one value from the five-point agreement scale",
			DefaultInstruction: "Answer with one of the agreement options. Return JSON: {\"answer\": \"<option>\"}.",
			Validate:           validateMultipleChoice,
			Repair:             []RepairStrategy{repairJSONSubstring, repairMatchOption},
			Normalize:          normalizeOption,
		},
		{
			ID:                 TypeList,
			AnswerShape:        "ordered sequence of strings",
			DefaultInstruction: "Answer with a list. Return JSON: {\"answer\": [\"<item>\", ...]}.",
			Validate:           validateList,
			Repair:             []RepairStrategy{repairJSONSubstring, repairSplitDelimited},
			Normalize:          normalizeStringList,
		},
		{
			ID:                 TypeDict,
			AnswerShape:        "mapping with the declared keys",
			DefaultInstruction: "Answer with an object holding the requested keys. Return JSON: {\"answer\": {...}}.",
			Check:              checkDict,
			Validate:           validateDict,
			Repair:             []RepairStrategy{repairJSONSubstring, repairStringToStructured},
			Normalize:          nil,
		},
		{
			ID:                 TypeMatrix,
			AnswerShape:        "mapping from row label to column label",
			DefaultInstruction: "For each row choose one column. Return JSON: {\"answer\": {\"<row>\": \"<column>\", ...}}.",
			Check:              checkMatrix,
			Validate:           validateMatrix,
			Repair:             []RepairStrategy{repairJSONSubstring, repairStringToStructured, repairMatrixCells},
			Normalize:          nil,
		},
		{
			ID:                 TypeRank,
			AnswerShape:        "permutation (or k-prefix) of question_options",
			DefaultInstruction: "Rank the options from best to worst. Return JSON: {\"answer\": [\"<option>\", ...]}.",
			Check:              requireOptions,
			Validate:           validateRank,
			Repair:             []RepairStrategy{repairJSONSubstring, repairSplitDelimited, repairMatchOptionList},
			Normalize:          normalizeOptionList,
		},
		{
			ID:                 TypeBudget,
			AnswerShape:        "non-negative allocation across question_options summing to the budget",
			DefaultInstruction: "Allocate the budget across the options. Return JSON: {\"answer\": {\"<option>\": <amount>, ...}}.",
			Check:              checkBudget,
			Validate:           validateBudget,
			Repair:             []RepairStrategy{repairJSONSubstring, repairStringToStructured},
			Normalize:          normalizeBudget,
		},
		{
			ID:                 TypeExtract,
			AnswerShape:        "mapping matching the declared field template",
			DefaultInstruction: "Extract the requested fields. Return JSON: {\"answer\": {...}} with exactly the requested keys.",
			Check:              checkDict,
			Validate:           validateDict,
			Repair:             []RepairStrategy{repairJSONSubstring, repairStringToStructured},
			Normalize:          nil,
		},
		{
			ID:                 TypeDropdown,
			AnswerShape:        "one value from a large option set",
			DefaultInstruction: "Answer with exactly one of the listed options. Return JSON: {\"answer\": \"<option>\"}.",
			Check:              requireOptions,
			Validate:           validateMultipleChoice,
			Repair:             []RepairStrategy{repairJSONSubstring, repairMatchOption},
			Normalize:          normalizeOption,
		},
		{
			ID:                 TypeMarkdown,
			AnswerShape:        "markdown string",
			DefaultInstruction: "Return your response as JSON: {\"answer\": \"<markdown>\"}.",
			Validate:           validateFreeText,
			Repair:             []RepairStrategy{repairJSONSubstring, repairStringify},
			Normalize:          nil,
		},
		{
			ID:                 TypeCompute,
			AnswerShape:        "result of a local arithmetic expression; no model call",
			DefaultInstruction: "",
			Check:              checkCompute,
			Validate:           validateCompute,
			Repair:             nil,
			Normalize:          normalizeNumber,
		},
		{
			ID:                 TypePydanticSchema,
			AnswerShape:        "value conforming to the caller-supplied JSON schema",
			DefaultInstruction: "Return JSON: {\"answer\": <value conforming to the provided schema>}.",
			Check:              checkSchema,
			Validate:           validateSchema,
			Repair:             []RepairStrategy{repairJSONSubstring, repairStringToStructured},
			Normalize:          nil,
		},
	}
	for _, spec := range specs {
		if err := Register(spec); err != nil {
			panic(err)
		}
	}
}
