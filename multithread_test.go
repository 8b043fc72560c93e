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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hechaoli/rocket-io/ioengine"
)

// TestTwoExecutorsOnSeparateThreadsAreIndependent drives two Executors
// concurrently from two goroutines, each locked to its own OS thread via
// Execute's runtime.LockOSThread. Each fiber is its own goroutine and
// getCurrentFiber is keyed by goroutine id (see fiber.go), so the two
// executors' fibers never collide even though both run at the same time.
func TestTwoExecutorsOnSeparateThreadsAreIndependent(t *testing.T) {
	const fibersPerExecutor = 20

	run := func(tag string) []string {
		engine, err := NewEngine(ioengine.Config{QueueDepth: 32})
		require.NoError(t, err)
		e := NewExecutor(engine, ExecutorConfig{})
		defer e.Destroy()

		var seen []string
		for i := 0; i < fibersPerExecutor; i++ {
			require.NoError(t, e.Submit(func(ctx any) {
				Yield()
				f := getCurrentFiber()
				require.NotNil(t, f)
				seen = append(seen, tag)
			}, nil))
		}
		e.Execute()
		return seen
	}

	var wg sync.WaitGroup
	results := make([][]string, 2)
	tags := []string{"a", "b"}

	for i := range tags {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = run(tags[i])
		}(i)
	}
	wg.Wait()

	require.Len(t, results[0], fibersPerExecutor)
	require.Len(t, results[1], fibersPerExecutor)
	for _, tag := range results[0] {
		require.Equal(t, "a", tag)
	}
	for _, tag := range results[1] {
		require.Equal(t, "b", tag)
	}
}
