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
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Answer is a validated, normalized response to one question.
type Answer struct {
	// Answer is the structured value conforming to the question's schema.
	Answer any `json:"answer"`
	// Comment is the optional free-form comment.
	Comment string `json:"comment,omitempty"`
	// GeneratedTokens is the raw textual completion the answer was decoded
	// from. Kept verbatim for audit and repair debugging.
	GeneratedTokens string `json:"generated_tokens,omitempty"`
}

// Error kinds for ValidationError.Kind.
const (
	ErrKindShape      = "shape"
	ErrKindRange      = "range"
	ErrKindCardinal   = "cardinality"
	ErrKindOption     = "option"
	ErrKindPermute    = "permutation"
	ErrKindSum        = "sum"
	ErrKindSchema     = "schema"
	ErrKindExpression = "expression"
)

// ValidationError reports a response that failed the question's schema after
// all repair attempts.
type ValidationError struct {
	// Kind classifies the failure (shape, range, cardinality, ...).
	Kind string
	// Message is a human-readable description.
	Message string
	// Data is the offending value.
	Data any
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Kind, e.Message)
}

func invalidf(kind string, data any, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...), Data: data}
}

// FailureRecord is one validation-failure log entry, emitted for offline
// analysis. Records are append-only and never loss-critical.
type FailureRecord struct {
	QuestionType Type      `json:"question_type"`
	QuestionName string    `json:"question_name"`
	ErrorKind    string    `json:"error_kind"`
	InvalidData  any       `json:"invalid_data"`
	Time         time.Time `json:"time"`
}

// FailureLog collects validation failures. Bounded: once full, the oldest
// record is dropped.
type FailureLog struct {
	mu    sync.Mutex
	limit int
	recs  []FailureRecord
}

// NewFailureLog returns a log holding at most limit records (default 4096
// when limit <= 0).
func NewFailureLog(limit int) *FailureLog {
	if limit <= 0 {
		limit = 4096
	}
	return &FailureLog{limit: limit}
}

// Append records one failure.
func (l *FailureLog) Append(q *Question, verr *ValidationError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.recs) >= l.limit {
		l.recs = l.recs[1:]
	}
	l.recs = append(l.recs, FailureRecord{
		QuestionType: q.Type,
		QuestionName: q.Name,
		ErrorKind:    verr.Kind,
		InvalidData:  verr.Data,
		Time:         time.Now(),
	})
}

// Dump writes the collected failures to w as JSON lines.
func (l *FailureLog) Dump(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, rec := range l.Records() {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// Records returns a snapshot of the collected failures.
func (l *FailureLog) Records() []FailureRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]FailureRecord, len(l.recs))
	copy(out, l.recs)
	return out
}

// DefaultFailureLog is the process-wide validation-failure log.
var DefaultFailureLog = NewFailureLog(0)
