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

// Command rocket-stress runs the round-robin counting scenario
// (spec.md §8 scenario 1) and the multi-thread independence scenario
// (scenario 6) as a standalone, runnable harness for manual soak
// testing, outside of `go test`.
package main

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/hechaoli/rocket-io"
	"github.com/hechaoli/rocket-io/ioengine"
)

func main() {
	var (
		fibers     int
		target     int
		executors  int
		queueDepth uint32
	)

	root := &cobra.Command{
		Use:   "rocket-stress",
		Short: "Run rocket-io scheduler stress scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(fibers, target, executors, queueDepth)
		},
	}
	root.Flags().IntVar(&fibers, "fibers", 5, "fibers per executor in the round-robin scenario")
	root.Flags().IntVar(&target, "target", 50, "counter target each round-robin fiber races toward")
	root.Flags().IntVar(&executors, "executors", runtime.GOMAXPROCS(0), "independent executors, one OS thread each")
	root.Flags().Uint32Var(&queueDepth, "queue-depth", rocket.DefaultQueueDepth, "io_uring queue depth")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runStress(fibers, target, executors int, queueDepth uint32) error {
	start := time.Now()

	var wg sync.WaitGroup
	errs := make(chan error, executors)

	for i := 0; i < executors; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := roundRobinRound(id, fibers, target, queueDepth); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		return err
	}

	fmt.Printf("rocket-stress: %d executors x %d fibers, target=%d, elapsed=%s\n",
		executors, fibers, target, time.Since(start))
	return nil
}

// roundRobinRound drives one executor through spec.md §8 scenario 1:
// `fibers` fibers each increment a shared counter and yield, racing to
// the same target in lockstep. Since the runtime is cooperative and
// single-threaded per executor, the shared counter needs no
// synchronization within the round — only across the independent
// executors running on separate goroutines/OS threads (scenario 6),
// which is why each gets its own counter.
func roundRobinRound(executorID, fibers, target int, queueDepth uint32) error {
	engine, err := rocket.NewEngine(ioengine.Config{QueueDepth: queueDepth})
	if err != nil {
		return fmt.Errorf("rocket-stress[%d]: %w", executorID, err)
	}
	defer engine.Close()

	executor := rocket.NewExecutor(engine, rocket.ExecutorConfig{})
	defer executor.Destroy()

	count := 0
	for i := 0; i < fibers; i++ {
		if err := executor.Submit(func(ctx any) {
			for count < target {
				count++
				snapshot := count
				rocket.Yield()
				expect := snapshot + (fibers - 1)
				if expect > target {
					expect = target
				}
				if count != expect {
					panic(fmt.Sprintf("rocket-stress[%d]: round-robin invariant broken: count=%d expect=%d", executorID, count, expect))
				}
			}
		}, nil); err != nil {
			return fmt.Errorf("rocket-stress[%d]: %w", executorID, err)
		}
	}

	executor.Execute()
	if count != target {
		return fmt.Errorf("rocket-stress[%d]: count=%d want=%d", executorID, count, target)
	}
	return nil
}
