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
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/hechaoli/rocket-io/ioengine"
	"github.com/hechaoli/rocket-io/rerrno"
)

// submitAndAwait is the seven-step schema every blocking-style call below
// follows (spec.md §4.4): identify the calling fiber and its executor,
// build a Future, submit the request with the Future's address as user
// data, block the fiber, and return the kernel's result (a negative
// -errno on failure). It must be called from a fiber, never from the
// executor loop itself — that is how the current executor is found at
// all, matching the Go external-interface shape of spec.md §6, where
// OpenAt/ReadAt/etc. take no explicit executor argument.
func submitAndAwait(req ioengine.Request) rerrno.Errno {
	fiber := getCurrentFiber()
	if fiber == nil {
		rerrno.Panic("rocket: I/O call made with no current fiber")
	}

	fut := newFuture(fiber)
	if err := fiber.executor.engine.Submit(req, unsafe.Pointer(fut)); err != nil {
		return rerrno.FromSyscallErr(err)
	}

	Await(fut)
	return fut.Result
}

// OpenAt opens path relative to dirFD (use AtFDCWD for an absolute or
// cwd-relative path) and returns a new file descriptor, or a negative
// -errno on failure.
func OpenAt(dirFD int, path string, flags int, mode uint32) (fd int, errno rerrno.Errno) {
	result := submitAndAwait(ioengine.Request{
		Op:    ioengine.OpOpenAt,
		DirFD: dirFD,
		Path:  path,
		Flags: flags,
		Mode:  mode,
	})
	if result.Failed() {
		return -1, result
	}
	return int(result), rerrno.OK
}

// ReadAt reads into buf from fd at offset, returning the byte count or a
// negative -errno.
func ReadAt(fd int, buf []byte, offset int64) (n int, errno rerrno.Errno) {
	result := submitAndAwait(ioengine.Request{
		Op:     ioengine.OpReadAt,
		FD:     fd,
		Buf:    buf,
		Offset: offset,
	})
	if result.Failed() {
		return 0, result
	}
	return int(result), rerrno.OK
}

// WriteAt writes buf to fd at offset, returning the byte count or a
// negative -errno.
func WriteAt(fd int, buf []byte, offset int64) (n int, errno rerrno.Errno) {
	result := submitAndAwait(ioengine.Request{
		Op:     ioengine.OpWriteAt,
		FD:     fd,
		Buf:    buf,
		Offset: offset,
	})
	if result.Failed() {
		return 0, result
	}
	return int(result), rerrno.OK
}

// Close closes fd.
func Close(fd int) rerrno.Errno {
	return submitAndAwait(ioengine.Request{
		Op: ioengine.OpClose,
		FD: fd,
	})
}

// Accept waits for a connection on the listening socket fd and returns
// the accepted connection's descriptor, or a negative -errno.
func Accept(listenFD int, flags int) (connFD int, errno rerrno.Errno) {
	result := submitAndAwait(ioengine.Request{
		Op:        ioengine.OpAccept,
		FD:        listenFD,
		SockFlags: flags,
	})
	if result.Failed() {
		return -1, result
	}
	return int(result), rerrno.OK
}

// Send writes buf to the connected socket fd, returning the byte count
// or a negative -errno.
func Send(sockFD int, buf []byte, flags int) (n int, errno rerrno.Errno) {
	result := submitAndAwait(ioengine.Request{
		Op:        ioengine.OpSend,
		FD:        sockFD,
		Buf:       buf,
		SockFlags: flags,
	})
	if result.Failed() {
		return 0, result
	}
	return int(result), rerrno.OK
}

// Recv reads from the connected socket fd into buf, returning the byte
// count (0 meaning the peer closed its side) or a negative -errno.
func Recv(sockFD int, buf []byte, flags int) (n int, errno rerrno.Errno) {
	result := submitAndAwait(ioengine.Request{
		Op:        ioengine.OpRecv,
		FD:        sockFD,
		Buf:       buf,
		SockFlags: flags,
	})
	if result.Failed() {
		return 0, result
	}
	return int(result), rerrno.OK
}

// AtFDCWD is unix.AT_FDCWD, re-exported so callers of OpenAt need not
// import golang.org/x/sys/unix solely for that constant.
const AtFDCWD = unix.AT_FDCWD
