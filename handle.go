// Copyright 2024 cronwheel authors. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file in the root of the source
// tree.

package cronwheel

import (
	"context"
	"errors"
	"os"
	"sync"
)

// TaskContext is handed to a TaskBody on each run. It carries the run's
// identity and the capability to signal natural completion explicitly,
// instead of only by returning (a feature the original carried — see
// SPEC_FULL.md §10 — and that the executor's race in §4.E depends on).
type TaskContext struct {
	TaskID   uint32
	RecordID uint64

	// TraceID correlates log lines for this run; it has no scheduling
	// meaning and is never compared against RecordID.
	TraceID string

	ctx      context.Context
	once     sync.Once
	finishCh chan struct{}
}

func newTaskContext(ctx context.Context, taskID uint32, recordID uint64, traceID string) *TaskContext {
	return &TaskContext{
		TaskID:   taskID,
		RecordID: recordID,
		TraceID:  traceID,
		ctx:      ctx,
		finishCh: make(chan struct{}),
	}
}

// Context returns the run's context, cancelled when the run is aborted by
// timeout or Scheduler.CancelTask.
func (c *TaskContext) Context() context.Context {
	return c.ctx
}

// Finish signals that the body completed naturally. It is idempotent and
// safe to call more than once per run; calls after the first are no-ops.
func (c *TaskContext) Finish() {
	c.once.Do(func() { close(c.finishCh) })
}

// DelayTaskHandler is an opaque, owned value representing in-flight work.
// It exposes a single idempotent, non-blocking operation: Quit. The
// executor calls Quit whichever of natural completion, cancellation or
// timeout happens first.
type DelayTaskHandler interface {
	Quit() error
}

// NopHandle is the unit handle: a body that manages its own lifetime
// entirely through TaskContext.Finish() and has nothing for Quit to do.
type NopHandle struct{}

// Quit is a no-op.
func (NopHandle) Quit() error { return nil }

// ActivityHandle wraps a context.CancelFunc: quit aborts the cooperative
// activity. This is the handle a TaskBody returns when it runs its work
// under a derived, cancellable context.
type ActivityHandle struct {
	cancel context.CancelFunc
	once   sync.Once
}

// NewActivityHandle returns an ActivityHandle wrapping cancel.
func NewActivityHandle(cancel context.CancelFunc) *ActivityHandle {
	return &ActivityHandle{cancel: cancel}
}

// Quit calls the wrapped cancel function at most once.
func (h *ActivityHandle) Quit() error {
	h.once.Do(func() {
		if h.cancel != nil {
			h.cancel()
		}
	})
	return nil
}

// ProcessGroupHandle owns a list of spawned child processes; quit kills
// them all. Spawning the processes themselves (shell-command bodies) is
// out of scope for the core (§1) — this type only knows how to tear down
// processes it is handed.
type ProcessGroupHandle struct {
	mu    sync.Mutex
	procs []*os.Process
}

// NewProcessGroupHandle returns a ProcessGroupHandle owning procs.
func NewProcessGroupHandle(procs ...*os.Process) *ProcessGroupHandle {
	return &ProcessGroupHandle{procs: procs}
}

// Quit signals every owned process to terminate. It collects but does not
// stop on individual kill errors (a process that already exited is not a
// failure), returning the first error encountered, if any.
func (h *ProcessGroupHandle) Quit() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var firstErr error
	for _, p := range h.procs {
		if p == nil {
			continue
		}
		if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) && firstErr == nil {
			firstErr = err
		}
	}
	h.procs = nil
	return firstErr
}
