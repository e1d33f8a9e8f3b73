// Copyright 2024 cronwheel authors. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file in the root of the source
// tree.

package cronwheel

const (
	defaultCommandBuffer   = 64
	defaultRunQueueWorkers = 8
)

// Config holds the scheduler's tunables. Use NewConfig with Options to
// build one; the zero value is not valid (use NewConfig()).
type Config struct {
	// CommandBuffer is the buffer size of the façade -> scheduler-loop
	// command channel (§4.D).
	CommandBuffer int

	// RunQueueWorkers bounds how many runs may be supervised concurrently
	// across all tasks (§4.E; concurrent runs of the same task are always
	// allowed, this only bounds total in-flight supervision goroutines).
	RunQueueWorkers int

	Metrics Metrics
}

// Option configures a Config.
type Option func(*Config)

// WithCommandBuffer overrides the command channel buffer size.
func WithCommandBuffer(n int) Option {
	return func(c *Config) { c.CommandBuffer = n }
}

// WithRunQueueWorkers overrides the number of concurrent run-supervisor
// workers.
func WithRunQueueWorkers(n int) Option {
	return func(c *Config) { c.RunQueueWorkers = n }
}

// WithMetrics installs a Metrics sink. The default is NopMetrics.
func WithMetrics(m Metrics) Option {
	return func(c *Config) { c.Metrics = m }
}

// NewConfig builds a Config with sane defaults, applying opts in order.
func NewConfig(opts ...Option) Config {
	c := Config{
		CommandBuffer:   defaultCommandBuffer,
		RunQueueWorkers: defaultRunQueueWorkers,
		Metrics:         NopMetrics{},
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.CommandBuffer <= 0 {
		c.CommandBuffer = defaultCommandBuffer
	}
	if c.RunQueueWorkers <= 0 {
		c.RunQueueWorkers = defaultRunQueueWorkers
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
	return c
}
