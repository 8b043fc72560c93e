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
	"runtime"

	"github.com/hechaoli/rocket-io/internal/dlist"
	"github.com/hechaoli/rocket-io/internal/rmetrics"
	"github.com/hechaoli/rocket-io/ioengine"
	"github.com/hechaoli/rocket-io/rerrno"
)

// Executor is the single-threaded scheduler: one io_uring instance, one
// runnable queue, one blocked queue, driving exactly one OS thread for
// its entire Execute call (spec.md §4.5 / §5). Nothing about an Executor
// is safe for concurrent use from more than one goroutine; independence
// across executors comes from each one locking down its own OS thread,
// never from internal locking.
type Executor struct {
	cfg     ExecutorConfig
	engine  *ioengine.Engine
	metrics *rmetrics.Counters

	runnable dlist.List[*Fiber]
	blocked  dlist.List[*Future]
}

// NewExecutor binds an already-constructed Engine to a fresh Executor.
// The Engine and Executor have independent lifetimes: NewEngine/Close on
// the one side, NewExecutor/Destroy on the other (spec.md §6). The two
// share a single Counters — engine.Metrics(), the same instance
// ioengine.Config.Metrics was given when engine was built — so
// OpsSubmitted/OpsCompleted/OpsFailed and the fiber counters Executor
// itself maintains are all visible through one Metrics() call.
func NewExecutor(engine *ioengine.Engine, cfg ExecutorConfig) *Executor {
	cfg = cfg.withDefaults()
	e := &Executor{cfg: cfg, engine: engine, metrics: engine.Metrics()}
	e.runnable.Init()
	e.blocked.Init()
	return e
}

// NewEngine is a convenience constructor equivalent to ioengine.New,
// named to match the external-interface shape of spec.md §6: the I/O
// backend and the scheduler are constructed separately, then wired
// together by NewExecutor. Callers that want Executor.Metrics() to
// report the engine's submit/completion counts do not need to do
// anything extra: NewExecutor always adopts engine.Metrics() as its own.
func NewEngine(cfg ioengine.Config) (*ioengine.Engine, error) {
	return ioengine.New(cfg)
}

// Submit creates a fiber running fn(ctx) and enqueues it RUNNABLE. It may
// be called before Execute, or from within a running fiber on the same
// executor (spawning a sibling task); it must not be called from another
// OS thread concurrently with Execute.
func (e *Executor) Submit(fn TaskFunc, ctx any) error {
	f := newFiber(e, fn, ctx)
	e.metrics.FibersCreated.Add(1)
	e.runnable.PushTail(&f.node)
	return nil
}

// Execute drives the scheduler loop until both the runnable and blocked
// queues are empty, then returns. It locks the calling goroutine to its
// OS thread for the duration (runtime.LockOSThread), matching spec.md
// §5's one-OS-thread-per-executor model for the loop itself; the fibers
// it drives are separate goroutines (see fiber.go), woken one at a time
// by channel handoff, so only ever one of them is runnable at once —
// cooperative scheduling without hijacking anyone's stack pointer.
func (e *Executor) Execute() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		if !e.runnable.IsEmpty() {
			fiber, _ := e.runnable.PopHead()
			e.runLoopTurn(fiber)
			continue
		}

		if !e.blocked.IsEmpty() {
			if !e.awaitOneCompletion() {
				return
			}
			continue
		}

		return
	}
}

// runLoopTurn resumes fiber for exactly one turn and, once it yields or
// completes, dispatches on its state exactly as spec.md §4.5 describes.
func (e *Executor) runLoopTurn(fiber *Fiber) {
	fiber.resume <- struct{}{}
	<-fiber.yielded

	switch fiber.state {
	case StateCompleted:
		fiber.destroy()
		e.metrics.FibersCompleted.Add(1)
	case StateRunnable:
		e.runnable.PushTail(&fiber.node)
	case StateBlocked:
		// Already linked into e.blocked by Await; nothing to do here.
	default:
		rerrno.Panicf("Executor.Execute: fiber returned in state %s", fiber.state)
	}
}

// awaitOneCompletion blocks for exactly one engine completion, resolves
// it to the waiting Future, and moves that Future's fiber back onto the
// runnable queue. It returns false when the backend itself has failed
// irrecoverably — spec.md §7 treats that as fatal rather than
// per-operation, since it means the engine can no longer be trusted to
// deliver any outstanding completion.
func (e *Executor) awaitOneCompletion() bool {
	userData, result, ok := e.engine.AwaitNext()
	if !ok {
		e.cfg.Logger.Errorf("rocket: engine completion wait failed; abandoning %d blocked fiber(s)", e.blocked.Len())
		return false
	}

	fut := (*Future)(userData)
	fut.completed = true
	fut.Result = result
	fut.Error = rerrno.OK

	e.blocked.Remove(&fut.node)
	fut.fiber.state = StateRunnable
	e.runnable.PushTail(&fut.fiber.node)
	return true
}

// Metrics returns the Counters shared between this executor and its
// engine: fiber lifecycle counts (FibersCreated/FibersCompleted) and the
// engine's per-operation counts (OpsSubmitted/OpsCompleted/OpsFailed),
// suitable for cmd/rocket-bench and cmd/rocket-stress to report
// throughput without this package exposing a transport of its own
// (spec.md §4.8).
func (e *Executor) Metrics() *rmetrics.Counters {
	return e.metrics
}

// Destroy releases the executor. Both queues must be empty: a non-empty
// queue means fibers are still alive (spec.md §4.1's precondition on
// shutdown). It does not close the Engine; that is done separately with
// Engine.Close.
func (e *Executor) Destroy() error {
	if !e.runnable.IsEmpty() || !e.blocked.IsEmpty() {
		rerrno.Panic("Executor.Destroy: called with fibers still runnable or blocked")
	}
	return nil
}
