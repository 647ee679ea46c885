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

package fhcache

import (
	"container/heap"

	"github.com/zlomekfs/zlomekfs/internal/clock"
)

// dentryHeap is a min-heap of dentries keyed by lastUse, the Go
// container/heap substitute for the teacher's fib-heap (spec §4.4).
// Amortized costs differ (O(log n) decrease-key vs. fib-heap's O(1))
// but container/heap is the only priority queue in the standard
// library or the retrieved example pack, so it is what this package
// uses; see DESIGN.md.
type dentryHeap []*Dentry

func (h dentryHeap) Len() int            { return len(h) }
func (h dentryHeap) Less(i, j int) bool  { return h[i].lastUse < h[j].lastUse }
func (h dentryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIdx = i
	h[j].heapIdx = j
}

func (h *dentryHeap) Push(x any) {
	d := x.(*Dentry)
	d.heapIdx = len(*h)
	*h = append(*h, d)
}

func (h *dentryHeap) Pop() any {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	d.heapIdx = -1
	*h = old[:n-1]
	return d
}

// evictor tracks every live dentry's last-use time in a heap so the
// sweeper can cheaply find the least-recently-used ones.
type evictor struct {
	clock clock.Clock
	h     dentryHeap
}

func newEvictor() *evictor {
	return &evictor{clock: clock.RealClock{}}
}

func (e *evictor) track(d *Dentry) {
	d.lastUse = e.clock.Now().UnixNano()
	heap.Push(&e.h, d)
}

func (e *evictor) touch(d *Dentry, now int64) {
	d.lastUse = now
	if d.heapIdx < 0 {
		// Dropped from the heap by a sweep while pinned: track it again
		// unless it has been destroyed.
		if !d.deleted {
			heap.Push(&e.h, d)
		}
		return
	}
	heap.Fix(&e.h, d.heapIdx)
}

func (e *evictor) remove(d *Dentry) {
	if d.heapIdx < 0 {
		return
	}
	heap.Remove(&e.h, d.heapIdx)
}

// peekExpired pops and returns the least-recently-used dentry if its
// lastUse is before threshold, without removing entries that are still
// in use. Returns nil once the heap's minimum is not yet expired.
func (e *evictor) peekExpired(threshold int64) *Dentry {
	if e.h.Len() == 0 {
		return nil
	}
	if e.h[0].lastUse >= threshold {
		return nil
	}
	return heap.Pop(&e.h).(*Dentry)
}
