// Copyright 2024 cronwheel authors. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file in the root of the source
// tree.

// Package cronwheel implements a cron-driven delayed task scheduler built
// around a single-level hashed timing wheel, optimised for the common case
// of a few thousand concurrently pending tasks firing at second resolution.
//
// A Task is registered with a cron expression (through a Frequency) and a
// body callable. The scheduler places the task in one of 60 wheel slots
// according to its next fire second, advances the wheel once per second,
// and dispatches each arriving task to the executor, which runs the body
// on one of a fixed pool of worker goroutines (Config.RunQueueWorkers),
// enforces an optional maximum running time, and
// allows a specific in-flight run to be cancelled without touching the
// task's future schedule.
package cronwheel

const NAME = "cronwheel"
