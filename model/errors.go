//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies provider failures.
type ErrorKind string

// Provider error kinds. auth is fatal to the job; quota triggers backoff;
// safety is fatal to the turn; malformed enters repair; other retries then
// fails the turn.
const (
	ErrKindAuth      ErrorKind = "auth"
	ErrKindQuota     ErrorKind = "quota"
	ErrKindSafety    ErrorKind = "safety"
	ErrKindMalformed ErrorKind = "malformed"
	ErrKindOther     ErrorKind = "other"
)

// ProviderError is a classified failure from a model adapter.
type ProviderError struct {
	Kind       ErrorKind
	Service    string
	StatusCode int
	Message    string
	Err        error
}

// Error implements error.
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s (%s, status %d): %s", e.Service, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s (%s): %s", e.Service, e.Kind, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case ErrKindQuota:
		return true
	case ErrKindOther:
		return true
	default:
		return false
	}
}

// NewProviderError builds a classified provider error.
func NewProviderError(service string, kind ErrorKind, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{
		Kind:       kind,
		Service:    service,
		StatusCode: statusCode,
		Message:    message,
		Err:        cause,
	}
}

// ClassifyStatus maps an HTTP status code to an error kind.
func ClassifyStatus(statusCode int) ErrorKind {
	switch {
	case statusCode == 401 || statusCode == 403:
		return ErrKindAuth
	case statusCode == 429:
		return ErrKindQuota
	case statusCode == 400 || statusCode == 422:
		return ErrKindMalformed
	case statusCode >= 500:
		return ErrKindOther
	default:
		return ErrKindOther
	}
}

// IsRetryable reports whether err should be retried: a retryable
// ProviderError, or a transient network failure recognized by message
// pattern.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable()
	}
	return isRetryableMessage(err.Error())
}

// IsFatal reports whether err must abort the whole job (bad credentials).
func IsFatal(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind == ErrKindAuth
	}
	return false
}

// isRetryableMessage recognizes transient network failures by message.
// Precise patterns only, to avoid false positives.
func isRetryableMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"connection aborted",
		"i/o timeout",
		"read timeout",
		"write timeout",
		"dial timeout",
		"temporary failure",
	} {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	if lower == "eof" || strings.HasSuffix(lower, ": eof") {
		return true
	}
	for _, code := range []string{"429", "500", "502", "503", "504"} {
		if strings.Contains(lower, "status "+code) ||
			strings.Contains(lower, "status: "+code) ||
			strings.Contains(lower, "code "+code) ||
			strings.Contains(lower, "code: "+code) {
			return true
		}
	}
	return false
}
