package core

import (
	"context"
	"sync"
	"time"

	"pkt.systems/redpen/schema"
)

// requestContext owns one proofreading invocation from activation to
// teardown. State only advances: idle, fetching-content, awaiting-completion,
// dispatching, terminated. Ownership passes along the pipeline with it; once
// done is set the context is dead and every later signal is discarded.
//
// The prompt list, API key, and model are snapshotted at activation, so
// reloads and model switches never touch a request already in flight.
type requestContext struct {
	id        schema.RequestID
	surface   schema.SurfaceID
	prompt    schema.Prompt
	prompts   schema.PromptList
	apiKey    string
	model     schema.ModelID
	mode      schema.ContentMode
	startedAt time.Time
	indicator *indicator
	cancel    context.CancelFunc

	mu       sync.Mutex
	state    schema.RequestState
	canceled bool
	done     bool
}

// advance moves the state machine forward. It returns false without
// transitioning when the context is already done.
func (rc *requestContext) advance(state schema.RequestState) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.done {
		return false
	}
	rc.state = state
	return true
}

// markCanceled flags the context so pending pipeline stages finish silently.
func (rc *requestContext) markCanceled() {
	rc.mu.Lock()
	rc.canceled = true
	rc.mu.Unlock()
}

// finish claims the terminal dispatch. Exactly one caller wins; the rest
// learn whether the loss was a benign cancel race or a duplicate terminal
// signal.
func (rc *requestContext) finish() (won bool, canceled bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.done || rc.state == schema.RequestDispatching {
		return false, rc.canceled
	}
	rc.state = schema.RequestDispatching
	return true, rc.canceled
}

// complete claims teardown. It returns false if teardown already ran.
func (rc *requestContext) complete() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.done {
		return false
	}
	rc.done = true
	rc.state = schema.RequestTerminated
	return true
}

func (rc *requestContext) snapshot() schema.RequestSnapshot {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return schema.RequestSnapshot{
		ID:        rc.id,
		Surface:   rc.surface,
		Prompt:    rc.prompt.ID,
		Model:     rc.model,
		State:     rc.state,
		StartedAt: rc.startedAt,
	}
}
