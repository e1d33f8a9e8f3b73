// Copyright 2024 cronwheel authors. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file in the root of the source
// tree.

package cronwheel

// command is the closed set of operations that cross the façade -> the
// scheduler-loop channel: Add, Remove, Cancel, Stop (§4.D). Each command
// except stopCmd carries its own reply channel so the façade call can block
// until the scheduler loop has drained and applied it, giving per-sender FIFO
// ordering the same shape as the pack's command-channel schedulers
// (DefaultScheduler's ChCreatedTimer/ChClosingTimer, TimingWheel's
// setChannel/moveChannel/removeChannel/stopChannel).
type command interface {
	isCommand()
}

type addCmd struct {
	task  *Task
	reply chan error
}

func (addCmd) isCommand() {}

type removeCmd struct {
	taskID uint32
	reply  chan error
}

func (removeCmd) isCommand() {}

type cancelCmd struct {
	taskID   uint32
	recordID uint64
	reply    chan error
}

func (cancelCmd) isCommand() {}

// stopCmd carries no reply: Stop() waits on the scheduler's own shutdown
// signal instead, which only fires once the executor has drained (see
// scheduler.go).
type stopCmd struct{}

func (stopCmd) isCommand() {}
