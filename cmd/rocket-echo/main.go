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

// Command rocket-echo is a TCP echo server built on the rocket-io fiber
// runtime: one fiber accepts connections, spawning one handler fiber per
// accepted connection (spec.md §8 scenario 5).
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/hechaoli/rocket-io"
	"github.com/hechaoli/rocket-io/internal/rlog"
	"github.com/hechaoli/rocket-io/ioengine"
)

func main() {
	var (
		addr       string
		queueDepth uint32
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "rocket-echo",
		Short: "Run a rocket-io fiber-scheduled TCP echo server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := rlog.Discard
			if verbose {
				logger = rlog.NewStderr()
			}
			return runEcho(addr, queueDepth, logger, nil, nil)
		},
	}
	root.Flags().StringVar(&addr, "addr", "127.0.0.1:9090", "address to listen on")
	root.Flags().Uint32Var(&queueDepth, "queue-depth", rocket.DefaultQueueDepth, "io_uring queue depth")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runEcho runs the echo server until its listening socket is closed.
// ready, if non-nil, receives the bound port once the socket is
// listening — useful for tests that bind to port 0. stop, if non-nil, is
// watched on a separate goroutine; closing it (or sending) shuts down and
// closes the listening socket, which unblocks the in-flight Accept with a kernel
// error and lets the accept-loop fiber return, draining the executor.
func runEcho(addr string, queueDepth uint32, logger *rlog.Logger, ready chan<- int, stop <-chan struct{}) error {
	engine, err := rocket.NewEngine(ioengine.Config{QueueDepth: queueDepth, Logger: logger})
	if err != nil {
		return fmt.Errorf("rocket-echo: %w", err)
	}
	defer engine.Close()

	executor := rocket.NewExecutor(engine, rocket.ExecutorConfig{Logger: logger})
	defer executor.Destroy()

	listenFD, boundPort, err := listenTCP(addr)
	if err != nil {
		return fmt.Errorf("rocket-echo: %w", err)
	}
	defer unix.Close(listenFD)

	logger.Debugf("rocket-echo: listening on %s (port %d)", addr, boundPort)
	if ready != nil {
		ready <- boundPort
	}
	if stop != nil {
		go func() {
			<-stop
			// close(2) alone does not complete an io_uring accept that is
			// already in flight; shutdown(2) does, with an error.
			unix.Shutdown(listenFD, unix.SHUT_RDWR)
			unix.Close(listenFD)
		}()
	}

	if err := executor.Submit(acceptLoop(listenFD), nil); err != nil {
		return fmt.Errorf("rocket-echo: %w", err)
	}

	executor.Execute()
	return nil
}

// acceptLoop returns the fiber body that repeatedly accepts connections
// and spawns a handler fiber for each one. It returns when Accept fails,
// which is what happens once the listening socket is shut down.
func acceptLoop(listenFD int) rocket.TaskFunc {
	return func(ctx any) {
		executor := rocket.CurrentExecutor()
		for {
			connFD, errno := rocket.Accept(listenFD, 0)
			if errno.Failed() {
				return
			}
			_ = executor.Submit(echoHandler(connFD), nil)
		}
	}
}

// echoHandler returns the fiber body that echoes bytes back to one
// connected peer until it closes its side or a read/write fails.
func echoHandler(connFD int) rocket.TaskFunc {
	return func(ctx any) {
		defer rocket.Close(connFD)

		buf := make([]byte, 4096)
		for {
			n, errno := rocket.Recv(connFD, buf, 0)
			if errno.Failed() || n == 0 {
				return
			}
			if _, errno := rocket.Send(connFD, buf[:n], 0); errno.Failed() {
				return
			}
		}
	}
}

func listenTCP(addr string) (fd int, boundPort int, err error) {
	sa, err := resolveSockaddr(addr)
	if err != nil {
		return -1, 0, err
	}

	fd, err = unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, 0, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, 0, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, 0, err
	}
	if err := unix.Listen(fd, 128); err != nil {
		unix.Close(fd)
		return -1, 0, err
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return -1, 0, err
	}
	if in4, ok := bound.(*unix.SockaddrInet4); ok {
		boundPort = in4.Port
	}
	return fd, boundPort, nil
}

func resolveSockaddr(addr string) (unix.Sockaddr, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, err
	}
	sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
	copy(sa.Addr[:], tcpAddr.IP.To4())
	return sa, nil
}
