//
// Expected Parrot is pleased to support the open source community by making edsl-go available.
//
// Copyright (C) 2026 Expected Parrot.  All rights reserved.
//
// edsl-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/expectedparrot/edsl-go/interview"
	"github.com/expectedparrot/edsl-go/log"
	"github.com/expectedparrot/edsl-go/model"
	"github.com/expectedparrot/edsl-go/results"
)

// Snapshot is a point-in-time view of job progress.
type Snapshot struct {
	Total   int `json:"total"`
	Queued  int `json:"queued"`
	Running int `json:"running"`
	Done    int `json:"done"`
	Failed  int `json:"failed"`
}

// Job is the handle to one running (or finished) job.
type Job struct {
	// ID identifies the job in logs and status calls.
	ID string

	spec   Spec
	cancel context.CancelFunc

	mu      sync.Mutex
	rows    results.Results
	queued  int
	running int
	done    int
	failed  int
	err     error

	finished chan struct{}
}

func newJob(spec Spec, cancel context.CancelFunc) *Job {
	return &Job{
		ID:       uuid.NewString(),
		spec:     spec,
		cancel:   cancel,
		queued:   spec.Total(),
		finished: make(chan struct{}),
	}
}

// runOne executes a single interview and records its outcome.
func (j *Job) runOne(ctx context.Context, inv *interview.Invigilator, iv *interview.Interview) {
	if ctx.Err() != nil {
		// Cancelled before starting; the interview stays queued, not failed.
		return
	}
	j.mu.Lock()
	j.queued--
	j.running++
	j.mu.Unlock()

	outcome := iv.Run(ctx, inv)
	row := results.FromOutcome(j.spec.Survey, outcome)

	j.mu.Lock()
	j.running--
	if outcome.Err != nil {
		j.failed++
		if j.err == nil && !errors.Is(outcome.Err, context.Canceled) {
			j.err = outcome.Err
		}
	} else {
		j.done++
	}
	j.rows.Insert(row)
	j.mu.Unlock()

	if outcome.Err != nil && model.IsFatal(outcome.Err) {
		log.Errorf("job %s: fatal provider error, cancelling remaining interviews: %v", j.ID, outcome.Err)
		j.cancel()
	}
}

// fail records a job-level error and cancels remaining work.
func (j *Job) fail(err error) {
	j.mu.Lock()
	if j.err == nil {
		j.err = err
	}
	j.mu.Unlock()
	j.cancel()
}

func (j *Job) finish() {
	j.cancel()
	close(j.finished)
}

// Status returns the current progress snapshot.
func (j *Job) Status() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		Total:   j.spec.Total(),
		Queued:  j.queued,
		Running: j.running,
		Done:    j.done,
		Failed:  j.failed,
	}
}

// Cancel stops the job cooperatively. In-flight interviews finish their
// current turn; results produced so far are retained.
func (j *Job) Cancel() {
	j.cancel()
}

// Wait blocks until the job finishes and returns its results in canonical
// order plus the first fatal error, if any.
func (j *Job) Wait() (results.Results, error) {
	<-j.finished
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rows, j.err
}

// Err returns the job's fatal error, if any, without waiting.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}
