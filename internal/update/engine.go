// Copyright 2015 Google Inc. All Rights Reserved.
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

package update

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/zlomekfs/zlomekfs/common"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
)

// Work is one work item: an fh that may need an update and/or
// reintegrate pass. Work items carry only the fh, per §4.8's Retention
// note; the engine looks up everything else at processing time.
type Work struct {
	FH zfs.FileHandle
}

// Processor performs one fh's work; supplied by the caller (typically
// internal/dispatcher), which has access to the fh's metadata,
// interval trees and journal.
type Processor func(ctx context.Context, fh zfs.FileHandle) error

// Engine runs a bounded worker pool draining a FIFO queue of fhs,
// enforcing that at most one worker processes a given fh at a time
// (spec §4.8 Retention). Modeled on the teacher's pattern of a
// supervising goroutine plus a generic queue (common.Queue), adapted
// from a single-threaded consumer to a golang.org/x/sync/semaphore-
// bounded pool.
type Engine struct {
	mu        sync.Mutex
	queue     common.Queue[Work]
	notify    chan struct{}
	sem       *semaphore.Weighted
	group     singleflight.Group
	processor Processor
	running   bool

	// OnError, if set, is called with any error a processor invocation
	// returns; the engine itself never surfaces processor errors except
	// through this hook, since there is no caller left waiting on a
	// background work item.
	OnError func(fh zfs.FileHandle, err error)
}

// NewEngine returns an Engine that runs up to maxWorkers concurrent
// processor invocations.
func NewEngine(maxWorkers int64, processor Processor) *Engine {
	return &Engine{
		queue:     common.NewLinkedListQueue[Work](),
		notify:    make(chan struct{}, 1),
		sem:       semaphore.NewWeighted(maxWorkers),
		processor: processor,
		running:   true,
	}
}

// Enqueue adds fh to the work queue if the engine is still running.
func (e *Engine) Enqueue(fh zfs.FileHandle) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.queue.Push(Work{FH: fh})
	e.mu.Unlock()

	select {
	case e.notify <- struct{}{}:
	default:
	}
}

func (e *Engine) dequeue() (Work, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queue.IsEmpty() {
		return Work{}, false
	}
	return e.queue.Pop(), true
}

// Run drains the queue until ctx is canceled, dispatching each work
// item to the processor under the semaphore and singleflight
// constraints described on Engine. Shutdown does not make Run return.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.notify:
		}

		for {
			work, ok := e.dequeue()
			if !ok {
				break
			}
			if err := e.sem.Acquire(ctx, 1); err != nil {
				return err
			}

			go func(w Work) {
				defer e.sem.Release(1)
				key := w.FH.String()
				_, err, _ := e.group.Do(key, func() (any, error) {
					return nil, e.processor(ctx, w.FH)
				})
				if err != nil && e.OnError != nil {
					e.OnError(w.FH, err)
				}
			}(work)
		}
	}
}

// Shutdown stops accepting new work; in-flight processor calls are
// expected to observe ctx cancellation passed to Run and return.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
}
