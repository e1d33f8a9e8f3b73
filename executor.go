// Copyright 2024 cronwheel authors. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file in the root of the source
// tree.

package cronwheel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// runKey addresses one run instance: (task_id, record_id).
type runKey struct {
	taskID   uint32
	recordID uint64
}

// run is the supervisor's bookkeeping entry for one in-flight record. cancel
// is the run's own context.CancelFunc: calling it is how CancelTask aborts a
// run, and the timeout is that same context's deadline — the two converge
// on the same context.Done() event, distinguished afterwards by ctx.Err().
type run struct {
	taskID   uint32
	recordID uint64
	started  time.Time
	cancel   context.CancelFunc
}

// fireJob is one dispatched fire event, queued for a run-queue worker.
type fireJob struct {
	task     *Task
	recordID uint64
	now      time.Time
}

// executor owns the asynchronous runtime capability: it queues each fire
// event for one of RunQueueWorkers worker goroutines, which supervises the
// run inline (one run per worker at a time), associates a record id
// with the run, and enforces maximum_running_time (§4.E). Its run queue
// follows the teacher's producer/consumer shape (wtimer's rQs/rQch/
// runqListen) collapsed from eight lock-striped queues to one, since here
// the bound on concurrent work is RunQueueWorkers tasks, not 100k+ timers.
type executor struct {
	cfg     Config
	metrics Metrics
	mt      *markTable

	seqMu sync.Mutex
	seq   map[uint32]uint64

	runsMu sync.Mutex
	runs   map[runKey]*run

	queueMu sync.Mutex
	queue   []fireJob
	sig     chan struct{}

	wg   sync.WaitGroup
	done chan struct{}
}

func newExecutor(cfg Config, mt *markTable) *executor {
	return &executor{
		cfg:     cfg,
		metrics: cfg.Metrics,
		mt:      mt,
		seq:     make(map[uint32]uint64),
		runs:    make(map[runKey]*run),
		sig:     make(chan struct{}, cfg.RunQueueWorkers*4),
		done:    make(chan struct{}),
	}
}

// start launches the run-queue workers. Must be called once before fire().
func (e *executor) start() {
	for i := 0; i < e.cfg.RunQueueWorkers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
}

// stop signals every worker to exit and waits for them. In-flight runs are
// not aborted; since each worker supervises its run inline, stop returns
// only after every run a worker has already picked up has ended.
func (e *executor) stop() {
	close(e.done)
	e.wg.Wait()
}

func (e *executor) nextRecordID(taskID uint32) uint64 {
	e.seqMu.Lock()
	defer e.seqMu.Unlock()
	e.seq[taskID]++
	return e.seq[taskID]
}

// fire enqueues a fire event and wakes a worker. It must never block the
// scheduler loop: the queue is unbounded and the wake signal is
// best-effort (a worker already awake will drain the queue anyway).
func (e *executor) fire(task *Task, now time.Time) uint64 {
	recordID := e.nextRecordID(task.TaskID)

	e.queueMu.Lock()
	e.queue = append(e.queue, fireJob{task: task, recordID: recordID, now: now})
	e.queueMu.Unlock()

	select {
	case e.sig <- struct{}{}:
	default:
	}

	e.metrics.IncFired(task.TaskID)
	e.mt.recordFire(task.TaskID, recordID, now)
	return recordID
}

func (e *executor) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case <-e.sig:
		}
	drain:
		for {
			e.queueMu.Lock()
			if len(e.queue) == 0 {
				e.queueMu.Unlock()
				break drain
			}
			job := e.queue[0]
			e.queue = e.queue[1:]
			e.queueMu.Unlock()
			e.runJob(job)
		}
	}
}

// runJob supervises exactly one record: it invokes the body, registers the
// returned handle's owning context, and races natural completion against
// cancellation/timeout (both of which cancel the same context).
func (e *executor) runJob(job fireJob) {
	task := job.task

	// MaxRunningTime <= 0 means unbounded (task.go, spec §6): race only
	// finish against cancellation, never a deadline.
	var ctx context.Context
	var cancel context.CancelFunc
	if task.MaxRunningTime > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), task.MaxRunningTime)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	defer cancel()

	key := runKey{taskID: task.TaskID, recordID: job.recordID}
	started := time.Now()
	e.runsMu.Lock()
	e.runs[key] = &run{taskID: task.TaskID, recordID: job.recordID, started: started, cancel: cancel}
	e.runsMu.Unlock()
	defer func() {
		e.runsMu.Lock()
		delete(e.runs, key)
		e.runsMu.Unlock()
	}()

	taskCtx := newTaskContext(ctx, task.TaskID, job.recordID, uuid.NewString())

	var handle DelayTaskHandler
	var bodyErr error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				bodyErr = fmt.Errorf("task %d record %d panicked: %v", task.TaskID, job.recordID, rec)
			}
		}()
		handle = task.Body(taskCtx)
	}()
	if handle == nil {
		handle = NopHandle{}
	}

	if bodyErr != nil {
		if ERRon() {
			ERR("runJob: %s\n", bodyErr)
		}
	} else {
		select {
		case <-taskCtx.finishCh:
			// natural completion
		case <-ctx.Done():
			switch ctx.Err() {
			case context.DeadlineExceeded:
				e.metrics.IncTimedOut(task.TaskID)
				if WARNon() {
					WARN("task %d record %d exceeded max running time %s\n",
						task.TaskID, job.recordID, task.MaxRunningTime)
				}
			case context.Canceled:
				e.metrics.IncCancelled(task.TaskID)
				if DBGon() {
					DBG("task %d record %d cancelled\n", task.TaskID, job.recordID)
				}
			}
		}
	}

	// quit is best-effort and idempotent; its errors are logged, never
	// propagated (§7: "Handle errors ... logged; do not propagate").
	if err := handle.Quit(); err != nil && ERRon() {
		ERR("task %d record %d: quit handle: %s\n", task.TaskID, job.recordID, err)
	}

	task.recordOutcome(RunOutcome{
		RecordID: job.recordID,
		Started:  started,
		Ended:    time.Now(),
		Err:      bodyErr,
	})
}

// cancel requests Quit() on the identified in-flight run. It is a no-op
// (not an error) if the run already finished.
func (e *executor) cancel(taskID uint32, recordID uint64) error {
	e.runsMu.Lock()
	r, ok := e.runs[runKey{taskID: taskID, recordID: recordID}]
	e.runsMu.Unlock()
	if !ok {
		return nil
	}
	r.cancel()
	return nil
}
