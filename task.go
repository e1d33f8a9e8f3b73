// Copyright 2024 cronwheel authors. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file in the root of the source
// tree.

package cronwheel

import "time"

// TaskBody is the user-supplied action. It receives a TaskContext carrying
// identity and a completion signal, and returns an owned DelayTaskHandler
// the executor will Quit() on timeout or cancellation.
type TaskBody func(ctx *TaskContext) DelayTaskHandler

// RunOutcome is a diagnostic record of one past run, kept only for
// introspection; the scheduler loop never reads it (same status as
// Frequency.residualTime — see §9's "open question" note).
type RunOutcome struct {
	RecordID uint64
	Started  time.Time
	Ended    time.Time
	Err      error
}

// maxHistory bounds the per-task run-outcome ring kept for diagnostics.
const maxHistory = 8

// Task holds one scheduled action. TaskID, Body and MaxRunningTime are
// immutable identity fields set at construction. frequency, cylinderLine
// and valid are mutable and owned exclusively by the scheduler loop: no
// other goroutine may touch them (see §5, Shared-resource discipline).
type Task struct {
	TaskID         uint32
	Body           TaskBody
	MaxRunningTime time.Duration // 0 means unbounded

	frequency    Frequency
	cylinderLine uint32
	valid        bool

	history []RunOutcome
}

// checkArrived reports whether the task should fire on the current tick:
// valid && cylinderLine == 0. When cylinderLine > 0 it decrements it and
// returns false, mirroring the wheel's per-tick walk of a slot (§4.B step 3).
func (t *Task) checkArrived() bool {
	// handleRemove takes the task out of its slot eagerly, so a task
	// already in the wheel is never marked invalid in place; this branch
	// is defense-in-depth against a future caller that invalidates a task
	// without also removing it from its slot.
	if !t.valid {
		return false
	}
	if t.cylinderLine == 0 {
		return true
	}
	t.cylinderLine--
	return false
}

// setCylinderLine is called by the wheel on (re-)insertion.
func (t *Task) setCylinderLine(n uint32) {
	t.cylinderLine = n
}

// downCountAndSetValid decrements the frequency counter and updates valid
// in one step, returning the new valid state.
//
// The original carried a recursive self-call here that would never
// terminate (down_count_and_set_vaild calling itself before checking
// is_valid). The fix, per §9, is: decrement once, then
// valid = !is_down_over().
func (t *Task) downCountAndSetValid() bool {
	t.frequency.downCount()
	t.valid = !t.frequency.isDownOver()
	return t.valid
}

// Valid reports whether the task is still eligible for future fires.
func (t *Task) Valid() bool {
	return t.valid
}

// ResidualTime is diagnostic only; see Frequency.residualTime.
func (t *Task) ResidualTime() float64 {
	return t.frequency.residualTime()
}

func (t *Task) recordOutcome(o RunOutcome) {
	t.history = append(t.history, o)
	if len(t.history) > maxHistory {
		t.history = t.history[len(t.history)-maxHistory:]
	}
}

// History returns a copy of the bounded run-outcome ring (diagnostic use
// only).
func (t *Task) History() []RunOutcome {
	out := make([]RunOutcome, len(t.history))
	copy(out, t.history)
	return out
}

// TaskBuilder configures a Task before it is handed to Scheduler.AddTask.
// This is the core builder surface from §6 — task_id, frequency,
// maximum_running_time, body — not the excluded "public builder sugar"
// (cron aliases are handled by the cron adapter itself; ergonomic macros
// and the CLI demo are out of scope per §1).
type TaskBuilder struct {
	taskID         uint32
	kind           frequencyKind
	cronExpr       string
	countDownN     uint32
	maxRunningTime time.Duration
	body           TaskBody
}

type frequencyKind int

const (
	freqUnset frequencyKind = iota
	freqOnce
	freqRepeated
	freqCountDown
)

// NewTaskBuilder returns an empty TaskBuilder.
func NewTaskBuilder() *TaskBuilder {
	return &TaskBuilder{}
}

// TaskID sets the caller-supplied, non-zero, unique task identifier.
func (b *TaskBuilder) TaskID(id uint32) *TaskBuilder {
	b.taskID = id
	return b
}

// Once configures the task to fire exactly once at the next instant the
// cron expression yields.
func (b *TaskBuilder) Once(cronExpr string) *TaskBuilder {
	b.kind = freqOnce
	b.cronExpr = cronExpr
	return b
}

// Repeated configures the task to fire indefinitely on the cron schedule.
func (b *TaskBuilder) Repeated(cronExpr string) *TaskBuilder {
	b.kind = freqRepeated
	b.cronExpr = cronExpr
	return b
}

// CountDown configures the task to fire n more times, then invalidate.
func (b *TaskBuilder) CountDown(n uint32, cronExpr string) *TaskBuilder {
	b.kind = freqCountDown
	b.countDownN = n
	b.cronExpr = cronExpr
	return b
}

// MaxRunningTime bounds a single run; when it elapses the executor invokes
// Quit() on the run's handle. Zero (the default) means unbounded.
func (b *TaskBuilder) MaxRunningTime(d time.Duration) *TaskBuilder {
	b.maxRunningTime = d
	return b
}

// Body sets the callable that produces a DelayTaskHandler for each run.
func (b *TaskBuilder) Body(fn TaskBody) *TaskBuilder {
	b.body = fn
	return b
}

// Build validates the builder's configuration and produces a *Task. It
// fails with ErrInvalidFrequency if no frequency was configured, and with
// ErrInvalidCron if the cron expression cannot be parsed.
func (b *TaskBuilder) Build() (*Task, error) {
	if b.taskID == 0 {
		return nil, ErrInvalidFrequency
	}
	if b.body == nil {
		return nil, ErrInvalidFrequency
	}
	if b.kind == freqUnset || b.cronExpr == "" {
		return nil, ErrInvalidFrequency
	}

	iter, err := ParseCron(b.cronExpr)
	if err != nil {
		return nil, err
	}

	var freq Frequency
	switch b.kind {
	case freqOnce:
		freq = newOnce(iter)
	case freqRepeated:
		freq = newRepeated(iter)
	case freqCountDown:
		freq = newCountDown(b.countDownN, iter)
	default:
		return nil, ErrInvalidFrequency
	}

	return &Task{
		TaskID:         b.taskID,
		Body:           b.body,
		MaxRunningTime: b.maxRunningTime,
		frequency:      freq,
		valid:          true,
	}, nil
}
