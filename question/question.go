//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

// Package question defines the typed question catalog: each question kind is a
// tag plus a registered record of answer schema, repair strategies and default
// templates. Adding a kind means adding a tag and registering its TypeSpec.
package question

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/expectedparrot/edsl-go/internal/canonicaljson"
)

// Type tags the kind of a question. The set is closed per release but
// extensible through Register.
type Type string

// Built-in question types.
const (
	TypeFreeText                Type = "free_text"
	TypeMultipleChoice          Type = "multiple_choice"
	TypeYesNo                   Type = "yes_no"
	TypeMultipleChoiceWithOther Type = "multiple_choice_with_other"
	TypeCheckBox                Type = "checkbox"
	TypeTopK                    Type = "top_k"
	TypeNumerical               Type = "numerical"
	TypeLinearScale             Type = "linear_scale"
	TypeLikertFive              Type = "likert_five"
	TypeList                    Type = "list"
	TypeDict                    Type = "dict"
	TypeMatrix                  Type = "matrix"
	TypeRank                    Type = "rank"
	TypeBudget                  Type = "budget"
	TypeExtract                 Type = "extract"
	TypeDropdown                Type = "dropdown"
	TypeMarkdown                Type = "markdown"
	TypeCompute                 Type = "compute"
	TypePydanticSchema          Type = "pydantic_schema"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name is a valid question identifier.
func ValidName(name string) bool {
	return identifierRe.MatchString(name)
}

// Question is an immutable description of one survey question. Construct with
// New and the functional options; the zero value is not usable.
type Question struct {
	// Name uniquely identifies the question within a survey. Must match
	// identifier grammar [A-Za-z_][A-Za-z0-9_]*.
	Name string `json:"question_name"`
	// Type selects the registered TypeSpec.
	Type Type `json:"question_type"`
	// Text is the question text template. It may reference prior answers,
	// agent traits and scenario fields with {{ ... }} placeholders.
	Text string `json:"question_text"`
	// Options lists the choices for option-based types.
	Options []string `json:"question_options,omitempty"`

	// MinSelections and MaxSelections bound checkbox/top_k cardinality.
	MinSelections *int `json:"min_selections,omitempty"`
	MaxSelections *int `json:"max_selections,omitempty"`
	// MinValue and MaxValue bound numerical answers.
	MinValue *float64 `json:"min_value,omitempty"`
	MaxValue *float64 `json:"max_value,omitempty"`
	// MinListItems and MaxListItems bound list answers.
	MinListItems *int `json:"min_list_items,omitempty"`
	MaxListItems *int `json:"max_list_items,omitempty"`
	// NumSelections is the k for top_k and rank prefix lengths.
	NumSelections *int `json:"num_selections,omitempty"`

	// ScaleLo, ScaleHi and ScaleLabels configure linear_scale questions.
	ScaleLo     *int           `json:"scale_lo,omitempty"`
	ScaleHi     *int           `json:"scale_hi,omitempty"`
	ScaleLabels map[int]string `json:"scale_labels,omitempty"`

	// BudgetSum is the total a budget answer must allocate.
	BudgetSum *float64 `json:"budget_sum,omitempty"`

	// AnswerKeys and AnswerTypes declare dict/extract shapes. AnswerTypes
	// values are "string", "number", "boolean", "list" or "any".
	AnswerKeys  []string          `json:"answer_keys,omitempty"`
	AnswerTypes map[string]string `json:"answer_types,omitempty"`

	// Rows and Columns declare matrix shapes.
	Rows    []string `json:"question_rows,omitempty"`
	Columns []string `json:"question_columns,omitempty"`

	// Schema is a caller-supplied JSON schema for pydantic_schema questions.
	Schema json.RawMessage `json:"answer_schema,omitempty"`
	// Expression is the local computation for compute questions.
	Expression string `json:"expression,omitempty"`

	// Permissive relaxes cardinality/range enforcement. Structural
	// validation always applies.
	Permissive bool `json:"permissive,omitempty"`
	// IncludeComment asks the model for a free-form comment alongside the
	// structured answer.
	IncludeComment bool `json:"include_comment,omitempty"`

	// PresentationTemplate overrides the type's default presentation.
	PresentationTemplate string `json:"presentation_template,omitempty"`
	// InstructionTemplate overrides the type's answering instructions.
	InstructionTemplate string `json:"instruction_template,omitempty"`
}

// Option configures a Question at construction.
type Option func(*Question)

// WithOptions sets the choice list.
func WithOptions(options ...string) Option {
	return func(q *Question) { q.Options = options }
}

// WithSelectionBounds bounds checkbox/top_k cardinality.
func WithSelectionBounds(min, max int) Option {
	return func(q *Question) { q.MinSelections, q.MaxSelections = &min, &max }
}

// WithValueBounds bounds numerical answers.
func WithValueBounds(min, max float64) Option {
	return func(q *Question) { q.MinValue, q.MaxValue = &min, &max }
}

// WithListBounds bounds list answer lengths.
func WithListBounds(min, max int) Option {
	return func(q *Question) { q.MinListItems, q.MaxListItems = &min, &max }
}

// WithNumSelections sets k for top_k and rank questions.
func WithNumSelections(k int) Option {
	return func(q *Question) { q.NumSelections = &k }
}

// WithScale configures a linear scale range and optional labels.
func WithScale(lo, hi int, labels map[int]string) Option {
	return func(q *Question) { q.ScaleLo, q.ScaleHi, q.ScaleLabels = &lo, &hi, labels }
}

// WithBudget sets the budget total.
func WithBudget(sum float64) Option {
	return func(q *Question) { q.BudgetSum = &sum }
}

// WithAnswerKeys declares dict/extract keys and value types.
func WithAnswerKeys(keys []string, types map[string]string) Option {
	return func(q *Question) { q.AnswerKeys, q.AnswerTypes = keys, types }
}

// WithMatrix declares matrix rows and columns.
func WithMatrix(rows, columns []string) Option {
	return func(q *Question) { q.Rows, q.Columns = rows, columns }
}

// WithSchema attaches a JSON schema for pydantic_schema questions.
func WithSchema(schema json.RawMessage) Option {
	return func(q *Question) { q.Schema = schema }
}

// WithExpression sets the compute expression.
func WithExpression(expr string) Option {
	return func(q *Question) { q.Expression = expr }
}

// WithPermissive relaxes constraint enforcement.
func WithPermissive() Option {
	return func(q *Question) { q.Permissive = true }
}

// WithComment asks the model for a comment field.
func WithComment() Option {
	return func(q *Question) { q.IncludeComment = true }
}

// WithPresentation overrides the presentation template.
func WithPresentation(tmpl string) Option {
	return func(q *Question) { q.PresentationTemplate = tmpl }
}

// WithInstruction overrides the answering-instruction template.
func WithInstruction(tmpl string) Option {
	return func(q *Question) { q.InstructionTemplate = tmpl }
}

// New constructs a Question and checks its structural invariants against the
// registered TypeSpec.
func New(name string, typ Type, text string, opts ...Option) (*Question, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("question name %q is not a valid identifier", name)
	}
	spec, ok := Lookup(typ)
	if !ok {
		return nil, fmt.Errorf("unknown question type %q", typ)
	}
	q := &Question{Name: name, Type: typ, Text: text}
	for _, opt := range opts {
		opt(q)
	}
	if typ == TypeYesNo && len(q.Options) == 0 {
		q.Options = []string{"Yes", "No"}
	}
	if typ == TypeLikertFive && len(q.Options) == 0 {
		q.Options = []string{
			"Strongly disagree", "Disagree", "Neutral", "Agree", "Strongly agree",
		}
	}
	if spec.Check != nil {
		if err := spec.Check(q); err != nil {
			return nil, fmt.Errorf("question %q: %w", name, err)
		}
	}
	return q, nil
}

// MustNew is New, panicking on error. Intended for literals in tests and
// example code.
func MustNew(name string, typ Type, text string, opts ...Option) *Question {
	q, err := New(name, typ, text, opts...)
	if err != nil {
		panic(err)
	}
	return q
}

// Hash returns the question's stable content hash.
func (q *Question) Hash() string {
	h, err := canonicaljson.Fingerprint(q)
	if err != nil {
		return canonicaljson.HashBytes([]byte(q.Name + ":" + string(q.Type) + ":" + q.Text))
	}
	return h
}

// OptionIndex returns the index of option in q.Options, or -1.
func (q *Question) OptionIndex(option string) int {
	for i, o := range q.Options {
		if o == option {
			return i
		}
	}
	return -1
}
