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

// Package ioengine is rocket-io's completion-based I/O backend adapter:
// it submits requests to a Linux io_uring instance and demultiplexes
// completions back to whichever caller owns the user-data pointer each
// request carried. The engine holds no per-operation state of its own
// beyond the ring itself (spec.md §4.4) — it is deliberately agnostic of
// what a "future" is; that correspondence lives entirely in the
// round-trip of the opaque UserData pointer each caller supplies.
package ioengine

import (
	"fmt"
	"unsafe"

	"github.com/pawelgaczynski/giouring"

	"github.com/hechaoli/rocket-io/internal/rlog"
	"github.com/hechaoli/rocket-io/internal/rmetrics"
	"github.com/hechaoli/rocket-io/rerrno"
)

// Opcode identifies which of the seven supported syscalls a Request is
// for.
type Opcode int

const (
	OpOpenAt Opcode = iota
	OpReadAt
	OpWriteAt
	OpClose
	OpAccept
	OpSend
	OpRecv
)

// Request is the argument bundle for one submission. Exactly the fields
// relevant to Op are read; the rest are ignored.
type Request struct {
	Op Opcode

	// OpenAt
	DirFD int
	Path  string
	Flags int
	Mode  uint32

	// FD: every op except OpenAt. Buf: ReadAt / WriteAt / Send / Recv
	FD  int
	Buf []byte

	// ReadAt / WriteAt
	Offset int64

	// Accept / Send / Recv
	SockFlags int
}

// Config tunes an Engine.
type Config struct {
	// QueueDepth is the io_uring submission/completion queue depth. Zero
	// means 256.
	QueueDepth uint32
	Logger     *rlog.Logger
	Metrics    *rmetrics.Counters
}

// Engine wraps one io_uring instance. It is not safe for concurrent use
// by more than one goroutine — like the rest of the core, an Engine
// belongs to exactly one Executor, on exactly one OS thread.
type Engine struct {
	ring    *giouring.Ring
	logger  *rlog.Logger
	metrics *rmetrics.Counters
}

// New creates an io_uring instance with the given queue depth.
func New(cfg Config) (*Engine, error) {
	depth := cfg.QueueDepth
	if depth == 0 {
		depth = 256
	}
	logger := cfg.Logger
	if logger == nil {
		logger = rlog.Discard
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &rmetrics.Counters{}
	}

	ring, err := giouring.CreateRing(depth)
	if err != nil {
		return nil, rerrno.NewConstructionError("ioengine.New: giouring.CreateRing", err)
	}

	return &Engine{ring: ring, logger: logger, metrics: metrics}, nil
}

// Close tears down the io_uring instance. It is the caller's
// responsibility to have drained every in-flight completion first.
func (e *Engine) Close() error {
	e.ring.QueueExit()
	return nil
}

// Metrics returns the Counters this Engine increments on every submit and
// completion — either the one Config.Metrics supplied, or one allocated
// privately when Config.Metrics was nil. rocket.NewExecutor adopts this
// Counters as its own rather than allocating a second, independent one,
// so an executor's fiber counts and its engine's op counts are always
// visible through a single instance (spec.md §4.8).
func (e *Engine) Metrics() *rmetrics.Counters {
	return e.metrics
}

// Submit acquires a submission queue entry, populates it for req, stashes
// userData as the request's user data, and submits it to the kernel.
// userData is returned unchanged by the matching AwaitNext call.
func (e *Engine) Submit(req Request, userData unsafe.Pointer) error {
	sqe := e.ring.GetSQE()
	if sqe == nil {
		return fmt.Errorf("ioengine: submission queue full (depth exhausted)")
	}

	switch req.Op {
	case OpOpenAt:
		sqe.PrepOpenat(int32(req.DirFD), req.Path, uint32(req.Flags), req.Mode)
	case OpReadAt:
		sqe.PrepRead(int32(req.FD), req.Buf, uint64(req.Offset))
	case OpWriteAt:
		sqe.PrepWrite(int32(req.FD), req.Buf, uint64(req.Offset))
	case OpClose:
		sqe.PrepClose(int32(req.FD))
	case OpAccept:
		// Peer address is not part of spec.md §6's seven-call surface; a
		// caller that needs it can getpeername(2) the returned fd itself.
		sqe.PrepAccept(int32(req.FD), 0, nil, uint32(req.SockFlags))
	case OpSend:
		sqe.PrepSend(int32(req.FD), req.Buf, uint32(req.SockFlags))
	case OpRecv:
		sqe.PrepRecv(int32(req.FD), req.Buf, uint32(req.SockFlags))
	default:
		return fmt.Errorf("ioengine: unknown opcode %d", req.Op)
	}

	sqe.SetUserData(uint64(uintptr(userData)))

	if _, err := e.ring.Submit(); err != nil {
		return fmt.Errorf("ioengine: submit: %w", err)
	}

	e.metrics.OpsSubmitted.Add(1)
	if e.logger.Enabled() {
		e.logger.Debugf("submitted op=%d fd=%d", req.Op, req.FD)
	}
	return nil
}

// AwaitNext blocks until the next completion is available, folds the
// kernel's result into an Errno, and returns the user-data pointer that
// request was submitted with. ok is false only on an unrecoverable
// backend wait error — the core treats that as fatal (spec.md §7).
func (e *Engine) AwaitNext() (userData unsafe.Pointer, result rerrno.Errno, ok bool) {
	cqe, err := e.ring.WaitCQE()
	if err != nil {
		e.logger.Errorf("ioengine: WaitCQE failed: %v", err)
		return nil, 0, false
	}

	userData = unsafe.Pointer(uintptr(cqe.UserData))
	result = rerrno.Errno(cqe.Res)
	e.ring.CQESeen(cqe)

	e.metrics.OpsCompleted.Add(1)
	if result.Failed() {
		e.metrics.OpsFailed.Add(1)
	}
	if e.logger.Enabled() {
		e.logger.Debugf("completion result=%d", cqe.Res)
	}
	return userData, result, true
}
