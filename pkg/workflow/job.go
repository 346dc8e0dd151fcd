package workflow

import (
	"strings"
	"sync/atomic"
	"time"
)

// State is the lifecycle position of a Job handle.
type State int32

const (
	StateAwaitingSubmission State = iota
	StateSubmitted
	StatePolling
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateAwaitingSubmission:
		return "awaiting_submission"
	case StateSubmitted:
		return "submitted"
	case StatePolling:
		return "polling"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Job is the caller's handle on one remote generation task. A handle can be
// polled once; afterwards it stays terminal.
type Job struct {
	TaskID      string
	SubmittedAt time.Time

	state atomic.Int32
}

// Attach wraps a task id obtained elsewhere, e.g. from an earlier Submit
// relayed through the gateway, into a fresh pollable handle.
func Attach(taskID string) *Job {
	job := &Job{TaskID: strings.TrimSpace(taskID), SubmittedAt: time.Now().UTC()}
	if job.TaskID != "" {
		job.state.Store(int32(StateSubmitted))
	}
	return job
}

// State reports the current lifecycle position.
func (j *Job) State() State {
	return State(j.state.Load())
}

func (j *Job) begin() bool {
	return j.state.CompareAndSwap(int32(StateSubmitted), int32(StatePolling))
}

func (j *Job) finish() {
	j.state.Store(int32(StateTerminal))
}
