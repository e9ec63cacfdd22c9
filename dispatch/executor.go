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
	"runtime"
	"runtime/debug"
	"sync"
)

// ErrInterrupted is returned when the caller stopped waiting for a batch. The batch is aborted;
// tasks still running finish on their own and their results are discarded.
var ErrInterrupted = errors.New("interrupted while waiting for tasks")

// TaskResult is the outcome of one submitted task.
type TaskResult[T any] struct {
	Name  string
	Value T
	Err   error
}

// Executor runs submitted tasks on at most maxWorkers goroutines at a time. Wait is the join
// barrier: it returns once every task finished, whatever their outcome.
type Executor[T any] struct {
	ctx context.Context
	sem chan struct{}
	wg  sync.WaitGroup

	mu sync.Mutex
	// One slot per submitted task, so each task writes its own index.
	results []TaskResult[T]
}

// NewExecutor returns an executor whose tasks run under a context derived from ctx that is never
// cancelled: a task is not interrupted when its submitter gives up. maxWorkers <= 0 uses the
// number of CPUs.
func NewExecutor[T any](ctx context.Context, maxWorkers int) *Executor[T] {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return &Executor[T]{
		ctx: context.WithoutCancel(ctx),
		sem: make(chan struct{}, maxWorkers),
	}
}

// Submit schedules fn. It never blocks; the task waits for a free worker in the background.
func (e *Executor[T]) Submit(name string, fn func(ctx context.Context) (T, error)) {
	e.mu.Lock()
	i := len(e.results)
	e.results = append(e.results, TaskResult[T]{Name: name})
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.sem <- struct{}{}
		defer func() { <-e.sem }()

		value, err := run(e.ctx, name, fn)

		e.mu.Lock()
		e.results[i].Value = value
		e.results[i].Err = err
		e.mu.Unlock()
	}()
}

func run[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v\n%s", name, r, debug.Stack())
		}
	}()
	return fn(ctx)
}

// Wait blocks until every submitted task finished and returns their results in submission
// order. If ctx is done first, Wait returns ErrInterrupted.
func (e *Executor[T]) Wait(ctx context.Context) ([]TaskResult[T], error) {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrInterrupted, context.Cause(ctx))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]TaskResult[T](nil), e.results...), nil
}
