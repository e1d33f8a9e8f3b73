// Copyright 2024 cronwheel authors. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file in the root of the source
// tree.

package cronwheel

import (
	"sync/atomic"
	"testing"
	"time"
)

type fakeMetrics struct {
	fired, timedOut, cancelled int32
}

func (m *fakeMetrics) IncFired(uint32)       { atomic.AddInt32(&m.fired, 1) }
func (m *fakeMetrics) IncTimedOut(uint32)    { atomic.AddInt32(&m.timedOut, 1) }
func (m *fakeMetrics) IncCancelled(uint32)   { atomic.AddInt32(&m.cancelled, 1) }
func (m *fakeMetrics) ObserveWheelDepth(int) {}

type activityStub struct {
	quit chan struct{}
}

func (h activityStub) Quit() error {
	close(h.quit)
	return nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestExecutorRunsToNaturalCompletion(t *testing.T) {
	mt := newMarkTable()
	metrics := &fakeMetrics{}
	cfg := NewConfig(WithRunQueueWorkers(2), WithMetrics(metrics))
	exec := newExecutor(cfg, mt)
	exec.start()
	defer exec.stop()

	task := &Task{
		TaskID: 1,
		Body: func(tc *TaskContext) DelayTaskHandler {
			go tc.Finish()
			return NopHandle{}
		},
	}
	exec.fire(task, time.Now())

	waitFor(t, time.Second, func() bool { return len(task.History()) == 1 })
	if atomic.LoadInt32(&metrics.fired) != 1 {
		t.Fatalf("expected IncFired to be called once")
	}
	if atomic.LoadInt32(&metrics.timedOut) != 0 || atomic.LoadInt32(&metrics.cancelled) != 0 {
		t.Fatalf("a naturally completed run must not be counted as timed out or cancelled")
	}
}

func TestExecutorEnforcesMaxRunningTime(t *testing.T) {
	mt := newMarkTable()
	metrics := &fakeMetrics{}
	cfg := NewConfig(WithRunQueueWorkers(1), WithMetrics(metrics))
	exec := newExecutor(cfg, mt)
	exec.start()
	defer exec.stop()

	quit := make(chan struct{})
	task := &Task{
		TaskID:         2,
		MaxRunningTime: 20 * time.Millisecond,
		Body: func(tc *TaskContext) DelayTaskHandler {
			// never calls Finish: only the supervisor's timeout ends this run.
			return activityStub{quit: quit}
		},
	}
	exec.fire(task, time.Now())

	select {
	case <-quit:
	case <-time.After(time.Second):
		t.Fatalf("handle was never quit on timeout")
	}
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&metrics.timedOut) == 1 })
}

func TestExecutorUnboundedRunIsNeverForceQuit(t *testing.T) {
	mt := newMarkTable()
	metrics := &fakeMetrics{}
	cfg := NewConfig(WithRunQueueWorkers(1), WithMetrics(metrics))
	exec := newExecutor(cfg, mt)
	exec.start()
	defer exec.stop()

	quit := make(chan struct{})
	task := &Task{
		TaskID: 5,
		// MaxRunningTime left at its zero value: per task.go/spec.md §6
		// this run must be left running indefinitely, never aborted by a
		// supervisor deadline.
		Body: func(tc *TaskContext) DelayTaskHandler {
			return activityStub{quit: quit}
		},
	}
	exec.fire(task, time.Now())

	select {
	case <-quit:
		t.Fatalf("an unbounded run must not be quit by the supervisor")
	case <-time.After(200 * time.Millisecond):
	}
	if got := atomic.LoadInt32(&metrics.timedOut); got != 0 {
		t.Fatalf("expected no timeout on an unbounded run, got %d", got)
	}

	// clean up: cancel it so exec.stop() doesn't block on wg.Wait().
	if err := exec.cancel(task.TaskID, 1); err != nil {
		t.Fatalf("unexpected error cancelling: %s", err)
	}
	select {
	case <-quit:
	case <-time.After(time.Second):
		t.Fatalf("handle was never quit after explicit cancel")
	}
}

func TestExecutorCancelAbortsInFlightRun(t *testing.T) {
	mt := newMarkTable()
	metrics := &fakeMetrics{}
	cfg := NewConfig(WithRunQueueWorkers(1), WithMetrics(metrics))
	exec := newExecutor(cfg, mt)
	exec.start()
	defer exec.stop()

	quit := make(chan struct{})
	ready := make(chan struct{})
	task := &Task{
		// MaxRunningTime left unset (0): the run must never be aborted by
		// a deadline, only by the explicit cancel below.
		TaskID: 3,
		Body: func(tc *TaskContext) DelayTaskHandler {
			close(ready)
			return activityStub{quit: quit}
		},
	}
	recordID := exec.fire(task, time.Now())

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatalf("body was never invoked")
	}

	if err := exec.cancel(task.TaskID, recordID); err != nil {
		t.Fatalf("unexpected error cancelling: %s", err)
	}

	select {
	case <-quit:
	case <-time.After(time.Second):
		t.Fatalf("handle was never quit on cancellation")
	}
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&metrics.cancelled) == 1 })
}

func TestExecutorCancelUnknownRunIsNoop(t *testing.T) {
	mt := newMarkTable()
	exec := newExecutor(NewConfig(), mt)
	if err := exec.cancel(999, 1); err != nil {
		t.Fatalf("expected cancelling an unknown run to be a no-op, got %s", err)
	}
}

func TestExecutorRecoversFromPanickingBody(t *testing.T) {
	mt := newMarkTable()
	exec := newExecutor(NewConfig(WithRunQueueWorkers(1)), mt)
	exec.start()
	defer exec.stop()

	task := &Task{
		TaskID: 4,
		Body: func(tc *TaskContext) DelayTaskHandler {
			panic("boom")
		},
	}
	exec.fire(task, time.Now())

	waitFor(t, time.Second, func() bool { return len(task.History()) == 1 })
	hist := task.History()
	if hist[0].Err == nil {
		t.Fatalf("expected a panicking body to be recorded as a failure")
	}
}
