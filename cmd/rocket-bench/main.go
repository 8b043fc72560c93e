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

// Command rocket-bench opens, writes, reads, and closes N files spread
// across M fibers on a single rocket-io Executor, then reports
// throughput from internal/rmetrics. It plays the role of the file-I/O
// benchmark collaborator spec.md §1 names.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/hechaoli/rocket-io"
	"github.com/hechaoli/rocket-io/ioengine"
)

func main() {
	var (
		numFiles   int
		numFibers  int
		fileSize   int
		queueDepth uint32
	)

	root := &cobra.Command{
		Use:   "rocket-bench",
		Short: "Benchmark rocket-io file I/O throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(numFiles, numFibers, fileSize, queueDepth)
		},
	}
	root.Flags().IntVar(&numFiles, "files", 1000, "total number of files to open/write/read/close")
	root.Flags().IntVar(&numFibers, "fibers", 8, "number of concurrent fibers sharing the work")
	root.Flags().IntVar(&fileSize, "file-size", 4096, "bytes written to and read back from each file")
	root.Flags().Uint32Var(&queueDepth, "queue-depth", rocket.DefaultQueueDepth, "io_uring queue depth")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBench(numFiles, numFibers, fileSize int, queueDepth uint32) error {
	dir, err := os.MkdirTemp("", "rocket-bench-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	engine, err := rocket.NewEngine(ioengine.Config{QueueDepth: queueDepth})
	if err != nil {
		return fmt.Errorf("rocket-bench: %w", err)
	}
	defer engine.Close()

	executor := rocket.NewExecutor(engine, rocket.ExecutorConfig{})
	defer executor.Destroy()

	var next int64
	payload := make([]byte, fileSize)
	start := time.Now()

	for i := 0; i < numFibers; i++ {
		worker := i
		if err := executor.Submit(func(ctx any) {
			for {
				idx := atomic.AddInt64(&next, 1) - 1
				if int(idx) >= numFiles {
					return
				}
				path := filepath.Join(dir, fmt.Sprintf("file-%d-%d", worker, idx))
				benchOneFile(path, payload)
			}
		}, nil); err != nil {
			return fmt.Errorf("rocket-bench: %w", err)
		}
	}

	executor.Execute()
	elapsed := time.Since(start)

	snap := executor.Metrics().Snapshot()
	fmt.Printf("rocket-bench: %d files, %d fibers, %d bytes each, %s elapsed\n",
		numFiles, numFibers, fileSize, elapsed)
	fmt.Printf("rocket-bench: ops submitted=%d completed=%d failed=%d (%.0f ops/sec)\n",
		snap.OpsSubmitted, snap.OpsCompleted, snap.OpsFailed,
		float64(snap.OpsSubmitted)/elapsed.Seconds())
	return nil
}

func benchOneFile(path string, payload []byte) {
	fd, errno := rocket.OpenAt(rocket.AtFDCWD, path, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0o600)
	if errno.Failed() {
		return
	}
	defer rocket.Close(fd)

	if _, errno := rocket.WriteAt(fd, payload, 0); errno.Failed() {
		return
	}

	buf := make([]byte, len(payload))
	rocket.ReadAt(fd, buf, 0)
}
