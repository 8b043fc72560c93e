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
	"bytes"
	"runtime"
	"strconv"
	"sync"

	"github.com/hechaoli/rocket-io/internal/dlist"
	"github.com/hechaoli/rocket-io/rerrno"
)

// State is a fiber's lifecycle state.
type State int32

const (
	// stateNone is the zero value. A fiber reaching the executor's
	// dispatch switch in this state is a programming error (spec.md §7);
	// every fiber is given StateRunnable at construction.
	stateNone State = iota
	StateRunnable
	StateBlocked
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateRunnable:
		return "RUNNABLE"
	case StateBlocked:
		return "BLOCKED"
	case StateCompleted:
		return "COMPLETED"
	default:
		return "NONE"
	}
}

// TaskFunc is the body of a fiber. It returns nothing: a fiber yields no
// result that a caller can join on.
type TaskFunc func(ctx any)

// Fiber is one cooperative task. Rather than hijacking a borrowed stack
// pointer (see DESIGN.md's "fiber execution model" entry for why that
// approach was scrapped), each Fiber owns a real goroutine that it parks
// on a channel between turns: resume wakes it to run one turn, yielded
// reports that the turn is over and why. Exactly one of an Executor's
// fibers is ever unblocked from its resume channel at a time, so from
// the scheduler's point of view a Fiber still behaves like spec.md's
// single-stack cooperative task — the goroutine is just how that's
// realized under a runtime that owns its own stacks.
type Fiber struct {
	state    State
	executor *Executor
	task     TaskFunc
	ctx      any
	resume   chan struct{}
	yielded  chan struct{}
	node     dlist.Node[*Fiber]
}

// newFiber starts the fiber's goroutine, parked waiting for its first
// resume, and returns it RUNNABLE and ready for the executor's runnable
// list.
func newFiber(executor *Executor, fn TaskFunc, ctx any) *Fiber {
	f := &Fiber{
		state:    StateRunnable,
		executor: executor,
		task:     fn,
		ctx:      ctx,
		resume:   make(chan struct{}),
		yielded:  make(chan struct{}),
	}
	f.node.Owner = f
	go f.run()
	return f
}

// run is the fiber's goroutine body. It blocks for its first resume,
// publishes itself as the current fiber for every goroutine-local lookup
// for the rest of its life (the goroutine never changes identity the way
// the old hijacked-stack design let an OS thread host a succession of
// fibers), runs the task to completion, and hands control back to the
// executor loop one last time with StateCompleted set.
func (f *Fiber) run() {
	<-f.resume
	gid := goroutineID()
	currentFiberByGoroutine.Store(gid, f)
	f.task(f.ctx)
	currentFiberByGoroutine.Delete(gid)
	f.state = StateCompleted
	f.yielded <- struct{}{}
}

// destroy is a bookkeeping no-op now that a fiber's only resource is a
// goroutine that has already returned from run; it exists to keep the
// COMPLETED/unlinked precondition spec.md §4.2 describes checked in one
// place.
func (f *Fiber) destroy() {
	if f.state != StateCompleted {
		rerrno.Panicf("fiber.destroy: fiber not COMPLETED (state=%s)", f.state)
	}
	if f.node.InList() {
		rerrno.Panic("fiber.destroy: fiber still linked into a queue")
	}
}

// Yield hands control from the current fiber back to its executor's
// scheduler loop. The caller must be running as a fiber, not the
// scheduler loop itself. State is unchanged by Yield: the executor reads
// the state field on its next turn and decides what to do. A fiber that
// yields while still RUNNABLE is re-enqueued at the tail of the runnable
// list — cooperative round robin.
func Yield() {
	f := getCurrentFiber()
	if f == nil {
		rerrno.Panic("Yield: called with no current fiber")
	}
	if f.node.InList() {
		rerrno.Panic("Yield: current fiber is already linked into a queue")
	}

	f.yielded <- struct{}{}
	<-f.resume
}

// currentFiberByGoroutine maps a goroutine ID to the Fiber running on it.
// Go offers no native goroutine-local storage, and a Fiber's identity can
// no longer be recovered from the OS thread the way the hijacked-stack
// design did (see DESIGN.md): each fiber now runs as its own goroutine,
// free to migrate OS threads like any other blocked-then-runnable
// goroutine, so the key has to be the goroutine itself. run is the only
// writer, and it writes exactly once per fiber — the mapping is stable
// for the fiber's entire lifetime, unlike the old per-switch callback.
var currentFiberByGoroutine sync.Map // map[uint64]*Fiber

// goroutineID parses the calling goroutine's ID out of runtime.Stack's
// header line ("goroutine 123 [running]:"). The runtime exposes no
// public accessor for it; this is the standard pure-Go workaround used
// by goroutine-local-storage shims when a value cannot be threaded
// through every call explicitly, traded off here against fabricating an
// unsafe, runtime-internal-dependent accessor of our own.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		rerrno.Panicf("goroutineID: could not parse %q: %v", buf[:n], err)
	}
	return id
}

func getCurrentFiber() *Fiber {
	v, ok := currentFiberByGoroutine.Load(goroutineID())
	if !ok {
		return nil
	}
	return v.(*Fiber)
}

// CurrentExecutor returns the Executor driving the calling fiber. It
// panics if called with no current fiber — the same rule as Yield and
// Await. Tasks use it to Submit sibling fibers without needing the
// Executor threaded through their ctx argument.
func CurrentExecutor() *Executor {
	f := getCurrentFiber()
	if f == nil {
		rerrno.Panic("CurrentExecutor: called with no current fiber")
	}
	return f.executor
}
