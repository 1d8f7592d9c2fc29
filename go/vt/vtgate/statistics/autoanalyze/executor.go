/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package autoanalyze

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
	"google.golang.org/grpc/codes"

	"github.com/olapfe/planstate/go/vt/log"
	"github.com/olapfe/planstate/go/vt/vterrors"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics"
)

// ErrExecutorClosed is returned by the futures of tasks submitted after Close.
var ErrExecutorClosed = vterrors.New(codes.FailedPrecondition, "analysis task executor is closed")

// Analyzer computes the statistics of one task.
type Analyzer interface {
	Analyze(ctx context.Context, task *statistics.AnalysisTask) error
}

// Future is the pending result of a submitted task.
type Future struct {
	task *statistics.AnalysisTask
	done chan struct{}
	err  error
}

func newFuture(task *statistics.AnalysisTask) *Future {
	return &Future{task: task, done: make(chan struct{})}
}

func (f *Future) finish(err error) {
	f.err = err
	close(f.done)
}

// Wait blocks until the task completed or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the task completed.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

func (f *Future) Task() *statistics.AnalysisTask {
	return f.task
}

// TaskExecutor runs analysis tasks with bounded concurrency.
type TaskExecutor struct {
	analyzer Analyzer
	sem      *semaphore.Weighted

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewTaskExecutor returns an executor running at most maxConcurrent tasks.
func NewTaskExecutor(analyzer Analyzer, maxConcurrent int) *TaskExecutor {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &TaskExecutor{
		analyzer: analyzer,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Submit schedules task. The task waits for a free slot; if ctx is done
// first, the future fails with the context error.
func (e *TaskExecutor) Submit(ctx context.Context, task *statistics.AnalysisTask) *Future {
	f := newFuture(task)
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		f.finish(ErrExecutorClosed)
		return f
	}
	e.wg.Add(1)
	e.mu.Unlock()

	tasksSubmitted.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.sem.Acquire(ctx, 1); err != nil {
			f.finish(err)
			return
		}
		defer e.sem.Release(1)
		err := e.run(ctx, task)
		if err != nil {
			tasksFailed.Add(1)
		}
		f.finish(err)
	}()
	return f
}

func (e *TaskExecutor) run(ctx context.Context, task *statistics.AnalysisTask) (err error) {
	tasksRunning.Add(1)
	defer tasksRunning.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("analysis task %v panicked: %v", task, r)
			err = vterrors.Errorf(codes.Internal, "analysis task %v panicked: %v", task, r)
		}
	}()
	return e.analyzer.Analyze(ctx, task)
}

// Close refuses new tasks and waits for the submitted ones.
func (e *TaskExecutor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
}
