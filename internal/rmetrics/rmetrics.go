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

// Package rmetrics is a small set of atomic counters an Executor and
// Engine update as they run, so the cmd/ tools have something to report.
// It is intentionally not a transport (no Prometheus endpoint, no
// registry) — the core has no business owning a network dependency it
// does not otherwise need.
package rmetrics

import "sync/atomic"

// Counters is a set of related counters, safe for concurrent use by the
// single OS thread that owns the Executor/Engine pair it is attached to
// plus any observer goroutine that only reads it.
type Counters struct {
	FibersCreated   atomic.Int64
	FibersCompleted atomic.Int64
	OpsSubmitted    atomic.Int64
	OpsCompleted    atomic.Int64
	OpsFailed       atomic.Int64
}

// Snapshot is a point-in-time copy of Counters' values.
type Snapshot struct {
	FibersCreated   int64
	FibersCompleted int64
	OpsSubmitted    int64
	OpsCompleted    int64
	OpsFailed       int64
}

// Snapshot reads every counter's current value.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		FibersCreated:   c.FibersCreated.Load(),
		FibersCompleted: c.FibersCompleted.Load(),
		OpsSubmitted:    c.OpsSubmitted.Load(),
		OpsCompleted:    c.OpsCompleted.Load(),
		OpsFailed:       c.OpsFailed.Load(),
	}
}

// InFlight reports the number of I/O operations submitted but not yet
// completed.
func (s Snapshot) InFlight() int64 {
	return s.OpsSubmitted - s.OpsCompleted
}

// LiveFibers reports the number of fibers created but not yet completed.
func (s Snapshot) LiveFibers() int64 {
	return s.FibersCreated - s.FibersCompleted
}
