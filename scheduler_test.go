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

func TestSchedulerFiresCountDownExactlyN(t *testing.T) {
	s := New(NewConfig(WithCommandBuffer(4)))
	s.Start()
	defer s.Stop()

	var fires int32
	task, err := NewTaskBuilder().
		TaskID(1).
		CountDown(2, "@every 1s").
		Body(func(tc *TaskContext) DelayTaskHandler {
			atomic.AddInt32(&fires, 1)
			tc.Finish()
			return NopHandle{}
		}).
		Build()
	if err != nil {
		t.Fatalf("unexpected build error: %s", err)
	}
	if err := s.AddTask(task); err != nil {
		t.Fatalf("unexpected AddTask error: %s", err)
	}

	waitFor(t, 5*time.Second, func() bool { return atomic.LoadInt32(&fires) == 2 })

	// the task is dropped on the same tick as its second, exhausting fire
	waitFor(t, 3*time.Second, func() bool { return s.RemoveTask(1) == ErrNotFound })
}

// TestSchedulerHaltsOnMissingIterator exercises the §7 "internal
// invariant violation — fatal" path: a Frequency with no schedule
// iterator must never be consulted for a reschedule decision. It is
// corrupted directly (same-package access) since newRepeated/newCountDown
// never produce one in practice.
func TestSchedulerHaltsOnMissingIterator(t *testing.T) {
	s := New(NewConfig(WithCommandBuffer(4)))
	s.Start()
	defer s.Stop()

	task, err := NewTaskBuilder().
		TaskID(7).
		Repeated("@every 1s").
		Body(func(tc *TaskContext) DelayTaskHandler {
			tc.Finish()
			return NopHandle{}
		}).
		Build()
	if err != nil {
		t.Fatalf("unexpected build error: %s", err)
	}
	if err := s.AddTask(task); err != nil {
		t.Fatalf("unexpected AddTask error: %s", err)
	}

	task.frequency = &repeatedFrequency{iter: nil}

	waitFor(t, 5*time.Second, func() bool { return s.Err() == ErrIteratorMissing })

	// the loop has halted: a later command must see ErrStopped, not hang.
	waitFor(t, time.Second, func() bool {
		return s.RemoveTask(task.TaskID) == ErrStopped
	})
}

func TestSchedulerRejectsDuplicateTaskID(t *testing.T) {
	s := New(NewConfig())
	s.Start()
	defer s.Stop()

	build := func() *Task {
		task, err := NewTaskBuilder().TaskID(7).Repeated("@every 1s").Body(nopBody).Build()
		if err != nil {
			t.Fatalf("unexpected build error: %s", err)
		}
		return task
	}

	if err := s.AddTask(build()); err != nil {
		t.Fatalf("unexpected error on first AddTask: %s", err)
	}
	if err := s.AddTask(build()); err != ErrDuplicateTaskID {
		t.Fatalf("expected ErrDuplicateTaskID, got %v", err)
	}
}

func TestSchedulerRemoveUnknownTaskReturnsErrNotFound(t *testing.T) {
	s := New(NewConfig())
	s.Start()
	defer s.Stop()

	if err := s.RemoveTask(12345); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	s := New(NewConfig())
	s.Start()
	s.Stop()
	s.Stop() // must not panic or hang
}

func TestSchedulerFacadeReturnsErrStoppedAfterStop(t *testing.T) {
	s := New(NewConfig())
	s.Start()
	s.Stop()

	task, err := NewTaskBuilder().TaskID(1).Repeated("@every 1s").Body(nopBody).Build()
	if err != nil {
		t.Fatalf("unexpected build error: %s", err)
	}
	if err := s.AddTask(task); err != ErrStopped {
		t.Fatalf("expected ErrStopped after Stop, got %v", err)
	}
	if err := s.RemoveTask(1); err != ErrStopped {
		t.Fatalf("expected ErrStopped after Stop, got %v", err)
	}
	if err := s.CancelTask(1, 1); err != ErrStopped {
		t.Fatalf("expected ErrStopped after Stop, got %v", err)
	}
}

func TestSchedulerCancelRunningRecord(t *testing.T) {
	s := New(NewConfig())
	s.Start()
	defer s.Stop()

	quit := make(chan struct{})
	ready := make(chan struct{})
	task, err := NewTaskBuilder().
		TaskID(9).
		Once("@every 1s").
		Body(func(tc *TaskContext) DelayTaskHandler {
			close(ready)
			return activityStub{quit: quit}
		}).
		Build()
	if err != nil {
		t.Fatalf("unexpected build error: %s", err)
	}
	if err := s.AddTask(task); err != nil {
		t.Fatalf("unexpected AddTask error: %s", err)
	}

	select {
	case <-ready:
	case <-time.After(3 * time.Second):
		t.Fatalf("body was never invoked")
	}

	if err := s.CancelTask(9, 1); err != nil {
		t.Fatalf("unexpected CancelTask error: %s", err)
	}

	select {
	case <-quit:
	case <-time.After(time.Second):
		t.Fatalf("handle was never quit on cancellation")
	}
}
