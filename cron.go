// Copyright 2024 cronwheel authors. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file in the root of the source
// tree.

package cronwheel

import (
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleIterator is a lazy, infinite, non-restartable sequence of future
// UTC timestamps derived from a cron expression. It is the only interface
// the core depends on; parsing the expression itself is an external
// collaborator's job (see §1: cron expression parsing is out of scope for
// the core and consumed only as this iterator).
type ScheduleIterator interface {
	// Next returns the first activation time strictly after "after", in
	// UTC. ok is false once the schedule can never fire again (standard
	// cron expressions never return false; it exists for the interface's
	// sake and for custom, bounded schedules).
	Next(after time.Time) (t time.Time, ok bool)
}

// cronSchedule adapts a robfig/cron/v3 cron.Schedule into a
// ScheduleIterator.
type cronSchedule struct {
	sched cron.Schedule
}

func (c *cronSchedule) Next(after time.Time) (time.Time, bool) {
	return c.sched.Next(after).UTC(), true
}

// cronParser accepts the six cron fields (seconds through day-of-week) plus
// the standard @-aliases (@hourly, @daily, @weekly, @monthly, @yearly,
// @annually) and @every durations. The spec's seventh "year" field has no
// equivalent in robfig/cron and is not accepted; see DESIGN.md for the
// rationale.
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseCron builds a ScheduleIterator from a cron expression. It returns
// ErrInvalidCron if the expression cannot be parsed.
func ParseCron(expr string) (ScheduleIterator, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		if ERRon() {
			ERR("ParseCron: invalid expression %q: %s\n", expr, err)
		}
		return nil, ErrInvalidCron
	}
	return &cronSchedule{sched: sched}, nil
}
