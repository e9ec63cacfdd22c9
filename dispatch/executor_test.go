// Copyright 2026 Google Inc. All rights reserved.
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

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"android/resplit/testutil"
)

func TestExecutorKeepsSubmissionOrder(t *testing.T) {
	e := NewExecutor[int](context.Background(), 4)
	for i := 0; i < 10; i++ {
		i := i
		e.Submit(fmt.Sprintf("task%d", i), func(context.Context) (int, error) {
			// Later tasks finish first.
			time.Sleep(time.Duration(10-i) * time.Millisecond)
			if i == 3 {
				return 0, errors.New("boom")
			}
			return i * i, nil
		})
	}

	results, err := e.Wait(context.Background())
	testutil.FailIfErrored(t, "wait", err)
	testutil.AssertIntEquals(t, "results", 10, len(results))
	for i, r := range results {
		testutil.AssertStringEquals(t, "name", fmt.Sprintf("task%d", i), r.Name)
		if i == 3 {
			testutil.AssertErrorMessageContains(t, "failed task", "boom", r.Err)
			continue
		}
		testutil.FailIfErrored(t, r.Name, r.Err)
		testutil.AssertIntEquals(t, r.Name, i*i, r.Value)
	}
}

func TestExecutorBoundsWorkers(t *testing.T) {
	var active, maxActive atomic.Int32
	e := NewExecutor[struct{}](context.Background(), 2)
	for i := 0; i < 8; i++ {
		e.Submit("task", func(context.Context) (struct{}, error) {
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			return struct{}{}, nil
		})
	}
	_, err := e.Wait(context.Background())
	testutil.FailIfErrored(t, "wait", err)
	if maxActive.Load() > 2 {
		t.Errorf("expected at most 2 concurrent tasks, got %d", maxActive.Load())
	}
}

func TestExecutorInterrupted(t *testing.T) {
	release := make(chan struct{})
	var taskCtxErr atomic.Value
	finished := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	e := NewExecutor[int](ctx, 1)
	e.Submit("blocked", func(taskCtx context.Context) (int, error) {
		defer close(finished)
		<-release
		if err := taskCtx.Err(); err != nil {
			taskCtxErr.Store(err)
		}
		return 1, nil
	})

	cancel()
	_, err := e.Wait(ctx)
	testutil.AssertErrorIs(t, "wait", ErrInterrupted, err)

	close(release)
	<-finished
	if v := taskCtxErr.Load(); v != nil {
		t.Errorf("task context was cancelled: %v", v)
	}
}

func TestExecutorRecoversPanics(t *testing.T) {
	e := NewExecutor[int](context.Background(), 0)
	e.Submit("panics", func(context.Context) (int, error) {
		panic("oops")
	})
	e.Submit("ok", func(context.Context) (int, error) { return 7, nil })

	results, err := e.Wait(context.Background())
	testutil.FailIfErrored(t, "wait", err)
	testutil.AssertErrorMessageContains(t, "panic", "task panics panicked: oops", results[0].Err)
	testutil.AssertIntEquals(t, "ok", 7, results[1].Value)
}

func TestExecutorWaitWithoutTasks(t *testing.T) {
	results, err := NewExecutor[int](context.Background(), 1).Wait(context.Background())
	testutil.FailIfErrored(t, "wait", err)
	testutil.AssertIntEquals(t, "results", 0, len(results))
}
