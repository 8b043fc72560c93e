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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hechaoli/rocket-io/ioengine"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	engine, err := NewEngine(ioengine.Config{QueueDepth: 32})
	require.NoError(t, err)
	e := NewExecutor(engine, ExecutorConfig{})
	t.Cleanup(func() {
		require.NoError(t, e.Destroy())
	})
	return e
}

func TestExecuteRunsSingleFiberToCompletion(t *testing.T) {
	e := newTestExecutor(t)

	ran := false
	require.NoError(t, e.Submit(func(ctx any) {
		ran = true
	}, nil))

	e.Execute()
	require.True(t, ran)
}

func TestYieldRoundRobinsBetweenFibers(t *testing.T) {
	e := newTestExecutor(t)

	var order []int
	makeTask := func(id int, yields int) TaskFunc {
		return func(ctx any) {
			for i := 0; i < yields; i++ {
				order = append(order, id)
				Yield()
			}
			order = append(order, id)
		}
	}

	require.NoError(t, e.Submit(makeTask(1, 2), nil))
	require.NoError(t, e.Submit(makeTask(2, 2), nil))

	e.Execute()

	// Both fibers alternate: each appends once per turn, three turns each.
	require.Len(t, order, 6)
	require.Equal(t, []int{1, 2, 1, 2, 1, 2}, order)
}

func TestSubmitFromWithinRunningFiberSpawnsSibling(t *testing.T) {
	e := newTestExecutor(t)

	childRan := false
	require.NoError(t, e.Submit(func(ctx any) {
		require.NoError(t, e.Submit(func(ctx any) {
			childRan = true
		}, nil))
	}, nil))

	e.Execute()
	require.True(t, childRan)
}

func TestDestroyPanicsWithLiveFibers(t *testing.T) {
	engine, err := NewEngine(ioengine.Config{QueueDepth: 32})
	require.NoError(t, err)
	e := NewExecutor(engine, ExecutorConfig{})

	require.NoError(t, e.Submit(func(ctx any) {
		Yield()
	}, nil))

	// One turn leaves the fiber RUNNABLE (it yielded once, never completed)
	// and runLoopTurn re-enqueues it, so the runnable queue is non-empty.
	fiber, _ := e.runnable.PopHead()
	e.runLoopTurn(fiber)

	require.Panics(t, func() {
		_ = e.Destroy()
	})

	// Drain it properly: run the remaining turn to completion, then destroy.
	e.Execute()
	require.NoError(t, e.Destroy())
}

func TestFiberCarriesItsContextValue(t *testing.T) {
	e := newTestExecutor(t)

	var seen string
	require.NoError(t, e.Submit(func(ctx any) {
		seen = ctx.(string)
	}, "hello"))

	e.Execute()
	require.Equal(t, "hello", seen)
}
