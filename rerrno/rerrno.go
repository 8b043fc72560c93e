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

// Package rerrno gives rocket-io's three error classes (construction,
// kernel, and programming-invariant failures) concrete Go shapes, so the
// core's I/O wrappers can hand callers kernel errno semantics one-for-one
// without wrapping them in the general error interface.
package rerrno

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Errno is a signed kernel result: zero or positive carries bytes
// transferred or a new file descriptor; negative is -errno, exactly as
// the kernel's completion-based backend reports it. The core never
// retries on a negative Errno.
type Errno int32

// OK is the zero-valued, successful Errno.
const OK Errno = 0

// Error renders a negative Errno via its POSIX errno string; a
// non-negative Errno renders as its numeric value, since it is a result
// (byte count or fd), not a failure.
func (e Errno) Error() string {
	if e >= 0 {
		return fmt.Sprintf("rerrno: non-error result %d", int32(e))
	}
	return unix.Errno(-e).Error()
}

// Failed reports whether e represents a kernel failure (negative).
func (e Errno) Failed() bool {
	return e < 0
}

// FromSyscallErr converts an error returned by a golang.org/x/sys/unix
// call into the kernel's own -errno convention.
func FromSyscallErr(err error) Errno {
	if err == nil {
		return OK
	}
	var errno unix.Errno
	if ok := asErrno(err, &errno); ok {
		return Errno(-int32(errno))
	}
	return Errno(-int32(unix.EIO))
}

func asErrno(err error, out *unix.Errno) bool {
	if e, ok := err.(unix.Errno); ok {
		*out = e
		return true
	}
	return false
}

// ConstructionError reports a failure to construct a core object (e.g.
// engine/backend initialization). No partial state survives a
// ConstructionError: the caller that receives one gets a nil object.
type ConstructionError struct {
	Op  string
	Err error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("rocket-io: %s: %v", e.Op, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// NewConstructionError wraps err with the operation that failed.
func NewConstructionError(op string, err error) *ConstructionError {
	return &ConstructionError{Op: op, Err: err}
}

// InvariantViolation marks a programming error inside the core: awaiting
// or yielding with no current fiber, a fiber reaching the executor's
// dispatch switch in a state other than RUNNABLE/BLOCKED/COMPLETED, or
// destroying a fiber still linked into a queue. These are always raised
// via panic (see Panic) — there is no recovery path, per the core's error
// taxonomy.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string {
	return "rocket-io: invariant violation: " + e.Msg
}

// Panic raises an InvariantViolation with the given message.
func Panic(msg string) {
	panic(&InvariantViolation{Msg: msg})
}

// Panicf raises an InvariantViolation with a formatted message.
func Panicf(format string, args ...any) {
	panic(&InvariantViolation{Msg: fmt.Sprintf(format, args...)})
}
