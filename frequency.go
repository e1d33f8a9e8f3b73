// Copyright 2024 cronwheel authors. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file in the root of the source
// tree.

package cronwheel

import (
	"math"
	"time"
)

// Frequency is a tagged variant describing how many more times a task
// should fire. It wraps a ScheduleIterator and is mutated only by the
// scheduler loop.
//
// Implementations: repeatedFrequency (fires indefinitely) and
// countDownFrequency (fires a fixed number of times, then invalidates).
// There is no separate Once type: Once(expr) is built as CountDown(1, expr), per the
// contract in §9 ("the source translates Once(expr) to CountDown(1, expr)").
type Frequency interface {
	// nextAlarmTimestamp advances the iterator and returns the next fire
	// time. ok is false if the iterator is exhausted.
	nextAlarmTimestamp(after time.Time) (t time.Time, ok bool)

	// downCount decrements the remaining-fire counter. No-op on Repeated.
	downCount()

	// isDownOver reports whether CountDown has reached 0.
	isDownOver() bool

	// residualTime is diagnostic only (never read by the scheduler loop):
	// remaining fires for CountDown, +Inf for Repeated.
	residualTime() float64

	// ready reports whether the frequency actually has a schedule
	// iterator to consult. It is always true for a Frequency built
	// through newRepeated/newCountDown/newOnce; the scheduler checks it
	// before trusting nextAlarmTimestamp anyway, since a false result
	// means the package's own invariant (every Frequency owns an
	// iterator) has been violated (§7: internal invariant violation,
	// fatal).
	ready() bool
}

type repeatedFrequency struct {
	iter ScheduleIterator
}

func (f *repeatedFrequency) nextAlarmTimestamp(after time.Time) (time.Time, bool) {
	return f.iter.Next(after)
}
func (f *repeatedFrequency) downCount()             {}
func (f *repeatedFrequency) isDownOver() bool       { return false }
func (f *repeatedFrequency) residualTime() float64  { return math.Inf(1) }
func (f *repeatedFrequency) ready() bool            { return f.iter != nil }

type countDownFrequency struct {
	iter      ScheduleIterator
	remaining uint32
}

func (f *countDownFrequency) nextAlarmTimestamp(after time.Time) (time.Time, bool) {
	return f.iter.Next(after)
}

func (f *countDownFrequency) downCount() {
	if f.remaining > 0 {
		f.remaining--
	}
}

func (f *countDownFrequency) isDownOver() bool {
	return f.remaining == 0
}

func (f *countDownFrequency) residualTime() float64 {
	return float64(f.remaining)
}

func (f *countDownFrequency) ready() bool {
	return f.iter != nil
}

// newRepeated builds a Frequency that fires indefinitely.
func newRepeated(iter ScheduleIterator) Frequency {
	return &repeatedFrequency{iter: iter}
}

// newCountDown builds a Frequency that fires exactly n more times. n == 0
// is equivalent to an already-invalidated task (see Task.Valid()).
func newCountDown(n uint32, iter ScheduleIterator) Frequency {
	return &countDownFrequency{iter: iter, remaining: n}
}

// newOnce builds a Frequency that fires exactly once: CountDown(1, iter).
func newOnce(iter ScheduleIterator) Frequency {
	return newCountDown(1, iter)
}
