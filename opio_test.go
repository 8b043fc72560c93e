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
	"fmt"
	"net"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/stretchr/testify/require"

	"github.com/hechaoli/rocket-io/rerrno"
)

func TestOpenAtWriteAtReadAtCloseRoundTrip(t *testing.T) {
	e := newTestExecutor(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "rocket-io-opio.txt")

	var gotN int
	var gotData string
	var failed rerrno.Errno

	require.NoError(t, e.Submit(func(ctx any) {
		fd, errno := OpenAt(AtFDCWD, path, unix.O_RDWR|unix.O_CREAT, 0o600)
		if errno.Failed() {
			failed = errno
			return
		}

		n, errno := WriteAt(fd, []byte("hello rocket-io"), 0)
		if errno.Failed() {
			failed = errno
			return
		}
		gotN = n

		buf := make([]byte, 32)
		n, errno = ReadAt(fd, buf, 0)
		if errno.Failed() {
			failed = errno
			return
		}
		gotData = string(buf[:n])

		if errno := Close(fd); errno.Failed() {
			failed = errno
		}
	}, nil))

	e.Execute()

	require.False(t, failed.Failed(), "opio call failed: %v", failed)
	require.Equal(t, len("hello rocket-io"), gotN)
	require.Equal(t, "hello rocket-io", gotData)
}

// TestTwoFibersEachOpeningManyFilesInterleave drives two fibers, each
// opening, writing, reading, and closing 32 files of their own, yielding
// after every file so the two fibers' requests interleave through the
// same completion queue. Each fiber must see only its own data back.
func TestTwoFibersEachOpeningManyFilesInterleave(t *testing.T) {
	e := newTestExecutor(t)
	dir := t.TempDir()

	const filesPerFiber = 32
	results := make([][]string, 2)

	for i := range results {
		results[i] = make([]string, filesPerFiber)
	}

	for fiberIdx := 0; fiberIdx < 2; fiberIdx++ {
		idx := fiberIdx
		require.NoError(t, e.Submit(func(ctx any) {
			for i := 0; i < filesPerFiber; i++ {
				path := filepath.Join(dir, fmt.Sprintf("fiber-%d-file-%d", idx, i))
				payload := fmt.Sprintf("fiber=%d file=%d", idx, i)

				fd, errno := OpenAt(AtFDCWD, path, unix.O_RDWR|unix.O_CREAT, 0o600)
				require.False(t, errno.Failed(), "OpenAt failed: %v", errno)

				_, errno = WriteAt(fd, []byte(payload), 0)
				require.False(t, errno.Failed(), "WriteAt failed: %v", errno)

				buf := make([]byte, 64)
				n, errno := ReadAt(fd, buf, 0)
				require.False(t, errno.Failed(), "ReadAt failed: %v", errno)
				results[idx][i] = string(buf[:n])

				require.False(t, Close(fd).Failed())

				// Force the two fibers to interleave through the executor's
				// runnable queue and the engine's completion queue, rather
				// than one fiber running to completion before the other
				// starts.
				Yield()
			}
		}, nil))
	}

	e.Execute()

	for fiberIdx := 0; fiberIdx < 2; fiberIdx++ {
		for i := 0; i < filesPerFiber; i++ {
			want := fmt.Sprintf("fiber=%d file=%d", fiberIdx, i)
			require.Equal(t, want, results[fiberIdx][i])
		}
	}
}

func TestAcceptSendRecvRoundTrip(t *testing.T) {
	e := newTestExecutor(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	lf, err := ln.(*net.TCPListener).File()
	require.NoError(t, err)
	defer lf.Close()
	listenFD := int(lf.Fd())

	done := make(chan struct{})
	var serverMsg string

	require.NoError(t, e.Submit(func(ctx any) {
		connFD, errno := Accept(listenFD, 0)
		require.False(t, errno.Failed(), "Accept failed: %v", errno)
		defer Close(connFD)

		buf := make([]byte, 64)
		n, errno := Recv(connFD, buf, 0)
		require.False(t, errno.Failed(), "Recv failed: %v", errno)
		serverMsg = string(buf[:n])

		_, errno = Send(connFD, []byte("ack"), 0)
		require.False(t, errno.Failed(), "Send failed: %v", errno)

		close(done)
	}, nil))

	go func() {
		conn, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("ping"))
		reply := make([]byte, 16)
		conn.Read(reply)
	}()

	e.Execute()
	<-done
	require.Equal(t, "ping", serverMsg)
}
