// Copyright 2024 cronwheel authors. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file in the root of the source
// tree.

package cronwheel

import "errors"

// Configuration errors, surfaced synchronously from the façade; the
// scheduler loop is unaffected by them.
var (
	ErrDuplicateTaskID  = errors.New("cronwheel: task id already registered")
	ErrInvalidCron      = errors.New("cronwheel: invalid cron expression")
	ErrInvalidFrequency = errors.New("cronwheel: invalid frequency")
)

// Lifecycle errors, surfaced from façade calls after shutdown or against
// unknown task/record ids.
var (
	ErrStopped  = errors.New("cronwheel: scheduler is stopped")
	ErrNotFound = errors.New("cronwheel: task not found")
)

// Internal invariant violations. These should never happen; BUG() logs
// them and the scheduler treats them as fatal (see §7).
var (
	ErrSlotMismatch    = errors.New("cronwheel: wheel slot cursor mismatch")
	ErrIteratorMissing = errors.New("cronwheel: frequency has no schedule iterator")
)
