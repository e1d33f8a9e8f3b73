// Copyright 2024 cronwheel authors. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file in the root of the source
// tree.

package cronwheel

import (
	"sync"
	"time"
)

// taskMark answers "which slot currently holds this task?" and "which run
// instance is currently executing?" for a given task id. It is the
// process-wide registry from §3 ("TaskMark (global registry)"), scoped to
// one Scheduler instance rather than a package-level global — see
// DESIGN.md for why a convenience package global was not kept.
type taskMark struct {
	slot           uint8
	latestRecordID uint64
	lastFire       time.Time
}

// markTable is the mutex-guarded task_id -> taskMark map. It is shared with
// the executor, whose fire() updates latestRecordID and lastFire through
// recordFire; fire() itself is called from the scheduler goroutine's tick.
type markTable struct {
	mu    sync.Mutex
	marks map[uint32]*taskMark
}

func newMarkTable() *markTable {
	return &markTable{marks: make(map[uint32]*taskMark)}
}

func (mt *markTable) set(taskID uint32, slot uint8) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	m, ok := mt.marks[taskID]
	if !ok {
		m = &taskMark{}
		mt.marks[taskID] = m
	}
	m.slot = slot
}

func (mt *markTable) recordFire(taskID uint32, recordID uint64, at time.Time) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	m, ok := mt.marks[taskID]
	if !ok {
		m = &taskMark{}
		mt.marks[taskID] = m
	}
	m.latestRecordID = recordID
	m.lastFire = at
}

func (mt *markTable) remove(taskID uint32) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	delete(mt.marks, taskID)
}

func (mt *markTable) get(taskID uint32) (taskMark, bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	m, ok := mt.marks[taskID]
	if !ok {
		return taskMark{}, false
	}
	return *m, true
}
