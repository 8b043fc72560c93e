// Copyright 2024 The Rocket-IO Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rocket

import "github.com/hechaoli/rocket-io/internal/rlog"

// DefaultQueueDepth is the io_uring submission/completion queue depth
// ioengine.New uses when ioengine.Config.QueueDepth is left at zero.
const DefaultQueueDepth = 256

// ExecutorConfig tunes an Executor and the fibers it creates. It does not
// configure the Engine: an Executor is handed an already-constructed
// Engine, so the two can be built, logged, and torn down independently
// (spec.md §6).
type ExecutorConfig struct {
	// Logger receives the core's diagnostics (executor loop transitions,
	// engine drain errors). Nil means rlog.Discard: silent except for the
	// fatal completion-drain error, which always reaches stderr.
	Logger *rlog.Logger

	// PinOSThread is always true once withDefaults runs: Execute locks
	// its driving goroutine to one OS thread for the duration of the
	// scheduler loop (runtime.LockOSThread), matching spec.md §5's
	// one-OS-thread-per-executor model. The field is not a toggle — it
	// exists so a test can assert, after construction, that the pin the
	// core always applies is really there.
	PinOSThread bool
}

func (c ExecutorConfig) withDefaults() ExecutorConfig {
	if c.Logger == nil {
		c.Logger = rlog.Discard
	}
	c.PinOSThread = true
	return c
}
