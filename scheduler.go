// Copyright 2024 cronwheel authors. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file in the root of the source
// tree.

package cronwheel

import (
	"sync"
	"time"

	"github.com/intuitivelabs/timestamp"
)

// Scheduler is the façade over the tick loop: New builds one, Start
// launches its goroutines, and AddTask/RemoveTask/CancelTask/Stop are the
// only operations a caller ever needs (§4.D). All scheduling state (the
// wheel, the task table) is owned exclusively by the loop goroutine
// started in Start; every façade method only ever talks to it through
// cmdCh, never touching that state directly (§5).
type Scheduler struct {
	cfg Config

	wheel *wheel
	mt    *markTable
	exec  *executor

	cmdCh   chan command
	stopped chan struct{}
	stopOne sync.Once

	// tasks is read and written only inside loop(); it exists here rather
	// than as a local in loop() only so dropTask/handleAdd/handleRemove can
	// be plain methods.
	tasks map[uint32]*Task

	// lastTickT is the wall-clock reading at the previous tick, used only
	// to log when the host's clock jumps (§5 diagnostics; never consulted
	// for scheduling decisions, which stay on time.Time/time.Ticker).
	lastTickT timestamp.TS

	// fatalErr is set by haltFatal when an internal invariant is violated
	// (§7: slot/cursor mismatch, a frequency with no schedule iterator).
	// Once set, the loop goroutine stops and drains on its next check;
	// Err reports the reason afterwards.
	fatalErr error
}

// New builds a Scheduler. Call Start before issuing any façade calls.
func New(cfg Config) *Scheduler {
	mt := newMarkTable()
	return &Scheduler{
		cfg:     cfg,
		wheel:   newWheel(),
		mt:      mt,
		exec:    newExecutor(cfg, mt),
		cmdCh:   make(chan command, cfg.CommandBuffer),
		stopped: make(chan struct{}),
		tasks:   make(map[uint32]*Task),
	}
}

// Start launches the executor's run-queue workers and the tick loop. It
// must be called exactly once, before any other Scheduler method.
func (s *Scheduler) Start() {
	s.exec.start()
	go s.loop()
}

// AddTask registers t. Fails with ErrDuplicateTaskID if t.TaskID is
// already registered, ErrInvalidFrequency if t's frequency iterator is
// already exhausted, or ErrStopped once the scheduler has shut down.
func (s *Scheduler) AddTask(t *Task) error {
	reply := make(chan error, 1)
	return s.call(reply, addCmd{task: t, reply: reply})
}

// RemoveTask unregisters taskID, dropping it from the wheel regardless of
// which slot it currently occupies. Fails with ErrNotFound if taskID is
// unknown (including if it was already removed — removing a given task
// id is idempotent only in the sense that repeating it is safe, not that
// it silently succeeds twice).
func (s *Scheduler) RemoveTask(taskID uint32) error {
	reply := make(chan error, 1)
	return s.call(reply, removeCmd{taskID: taskID, reply: reply})
}

// CancelTask aborts one in-flight run identified by (taskID, recordID).
// It does not affect the task's future schedule. Cancelling a record
// that is not currently running is a no-op, not an error.
func (s *Scheduler) CancelTask(taskID uint32, recordID uint64) error {
	reply := make(chan error, 1)
	return s.call(reply, cancelCmd{taskID: taskID, recordID: recordID, reply: reply})
}

// Err reports the internal invariant violation that halted the scheduler,
// if any (§7). A nil result means the scheduler stopped cleanly (or is
// still running).
func (s *Scheduler) Err() error {
	return s.fatalErr
}

// haltFatal records the first internal invariant violation and logs it via
// BUG. The loop stops ticking and drains the executor on its next check
// (§7: "fatal; the scheduler stops and drains").
func (s *Scheduler) haltFatal(err error) {
	if s.fatalErr == nil {
		s.fatalErr = err
	}
	BUG("halting: %s\n", err)
}

// Stop halts the tick loop and the executor's run-queue workers, waiting
// for any run already in progress to reach its own natural end,
// cancellation, or timeout. It is idempotent: calling Stop twice is a
// no-op on the second call.
func (s *Scheduler) Stop() {
	s.stopOne.Do(func() {
		s.cmdCh <- stopCmd{}
		<-s.stopped
	})
}

// call delivers cmd to the loop goroutine and waits for its reply,
// unblocking early with ErrStopped if the loop has already shut down —
// mirroring the stop-channel-guarded send used throughout the pack's
// command-channel schedulers, so a send issued concurrently with Stop
// never blocks forever.
func (s *Scheduler) call(reply chan error, cmd command) error {
	select {
	case s.cmdCh <- cmd:
	case <-s.stopped:
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-s.stopped:
		return ErrStopped
	}
}

// loop is the single goroutine that owns the wheel and the task table. It
// ticks once a second: drain the command channel, walk the current slot,
// advance the cursor (§4.B).
func (s *Scheduler) loop() {
	defer close(s.stopped)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	s.lastTickT = timestamp.Now()

	for {
		now := <-ticker.C
		s.checkTickDrift()
		if s.drainCommands() {
			s.exec.stop()
			return
		}
		if s.fatalErr != nil {
			s.exec.stop()
			return
		}
		s.tick(now.UTC())
		if s.fatalErr != nil {
			s.exec.stop()
			return
		}
	}
}

// checkTickDrift logs (but never acts on) a host clock that jumped
// backward or a tick that arrived much later than the nominal one-second
// period, mirroring the teacher's own ticker() drift diagnostics.
func (s *Scheduler) checkTickDrift() {
	now := timestamp.Now()
	defer func() { s.lastTickT = now }()

	if now.Before(s.lastTickT) {
		if WARNon() {
			WARN("tick: clock went backward by %s\n", s.lastTickT.Sub(now))
		}
		return
	}
	if diff := now.Sub(s.lastTickT); diff > 3*time.Second/2 {
		if DBGon() {
			DBG("tick: arrived %s late\n", diff-time.Second)
		}
	}
}

// drainCommands applies every command currently queued, without blocking
// for more to arrive. It reports whether a stopCmd was seen, in which
// case the caller must stop ticking.
func (s *Scheduler) drainCommands() bool {
	for {
		select {
		case cmd := <-s.cmdCh:
			switch c := cmd.(type) {
			case addCmd:
				c.reply <- s.handleAdd(c.task)
			case removeCmd:
				c.reply <- s.handleRemove(c.taskID)
			case cancelCmd:
				c.reply <- s.exec.cancel(c.taskID, c.recordID)
			case stopCmd:
				return true
			}
		default:
			return false
		}
	}
}

func (s *Scheduler) handleAdd(t *Task) error {
	if _, exists := s.tasks[t.TaskID]; exists {
		return ErrDuplicateTaskID
	}
	if !t.frequency.ready() {
		s.haltFatal(ErrIteratorMissing)
		return ErrIteratorMissing
	}
	now := time.Now().UTC()
	fireAt, ok := t.frequency.nextAlarmTimestamp(now)
	if !ok {
		return ErrInvalidFrequency
	}
	idx := s.wheel.insert(t, fireAt, now)
	s.mt.set(t.TaskID, idx)
	s.tasks[t.TaskID] = t
	return nil
}

func (s *Scheduler) handleRemove(taskID uint32) error {
	t, ok := s.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	delete(s.tasks, taskID)
	if mark, found := s.mt.get(taskID); found {
		if !s.wheel.validSlot(mark.slot) {
			s.haltFatal(ErrSlotMismatch)
			return ErrSlotMismatch
		}
		s.wheel.removeFromSlot(mark.slot, t)
	}
	s.mt.remove(taskID)
	return nil
}

func (s *Scheduler) dropTask(t *Task) {
	delete(s.tasks, t.TaskID)
	s.mt.remove(t.TaskID)
}

// tick walks the slot at the current cursor: tasks whose cylinder line has
// reached zero fire and are rescheduled (or dropped, if their frequency is
// exhausted); tasks whose cylinder line is still positive are requeued in
// place for another revolution; tasks that are no longer valid, or whose
// countdown is already at zero, are dropped without firing. The slot is
// snapshotted and cleared before
// the walk so that a task rescheduled back into the very same slot (its
// next interval is a multiple of 60 seconds) is not processed twice in
// this tick.
func (s *Scheduler) tick(now time.Time) {
	slot := s.wheel.currentSlot()
	tasks := make([]*Task, len(slot))
	copy(tasks, slot)
	s.wheel.clearCurrentSlot()

	for _, t := range tasks {
		if !t.valid || t.frequency.isDownOver() {
			s.dropTask(t)
			continue
		}
		if !t.checkArrived() {
			s.wheel.requeueCurrent(t)
			continue
		}

		s.exec.fire(t, now)

		if !t.downCountAndSetValid() {
			s.dropTask(t)
			continue
		}
		if !t.frequency.ready() {
			s.haltFatal(ErrIteratorMissing)
			return
		}
		next, ok := t.frequency.nextAlarmTimestamp(now)
		if !ok {
			s.dropTask(t)
			continue
		}
		idx := s.wheel.insert(t, next, now)
		s.mt.set(t.TaskID, idx)
	}

	s.wheel.advance()
	s.cfg.Metrics.ObserveWheelDepth(s.wheel.depth())
}
