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

import (
	"github.com/hechaoli/rocket-io/internal/dlist"
	"github.com/hechaoli/rocket-io/rerrno"
)

// Future is a one-shot handoff between an in-flight I/O operation and the
// fiber awaiting it. newFuture allocates it on the heap and the I/O
// wrapper that submits the request holds it until Await returns, so the
// engine's per-request user-data pointer (the address of this Future)
// stays valid and GC-visible between submission and completion.
type Future struct {
	completed bool
	// Error is spec's reserved field for timeout/cancellation semantics;
	// the core does not produce timeouts, so a successful or
	// kernel-failed I/O call both leave Error at rerrno.OK and convey
	// their outcome (including negative -errno) via Result — matching the
	// kernel-result convention (spec.md §9's resolved ambiguity).
	Error rerrno.Errno
	// Result carries bytes transferred, a new file descriptor, or a
	// negative -errno, depending on the operation.
	Result rerrno.Errno

	fiber *Fiber
	node  dlist.Node[*Future]
}

// newFuture returns a Future ready to be populated by an engine
// submission and awaited by fiber.
func newFuture(fiber *Fiber) *Future {
	f := &Future{
		completed: false,
		Error:     rerrno.OK,
		Result:    -1,
		fiber:     fiber,
	}
	f.node.Owner = f
	return f
}

// Await is the single synchronization primitive between fibers and the
// engine. The caller must be a fiber not currently on any queue.
func Await(f *Future) rerrno.Errno {
	fiber := getCurrentFiber()
	if fiber == nil {
		rerrno.Panic("Await: called with no current fiber")
	}
	if fiber.node.InList() {
		rerrno.Panic("Await: current fiber is already linked into a queue")
	}

	if f.completed {
		return f.Error
	}

	f.fiber = fiber
	fiber.state = StateBlocked
	fiber.executor.blocked.PushTail(&f.node)

	Yield()

	return f.Error
}
