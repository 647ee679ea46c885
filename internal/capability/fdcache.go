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

package capability

import (
	"container/list"
	"sync"

	"github.com/zlomekfs/zlomekfs/internal/zfs"
)

// Fd is a backing local file descriptor handed out by FdCache. The
// concrete open/close mechanics live outside this package (the VFS
// bridge, out of scope per spec §1); FdCache only tracks budget and
// recency.
type Fd struct {
	FH   zfs.FileHandle
	Size int64
}

// FdCache is a bounded, LRU-evicted cache of open local file
// descriptors, limited by total byte size rather than count. Modeled
// on the teacher's lease.FileLeaser: callers add/touch entries and the
// cache evicts the least-recently-used ones whenever the running total
// exceeds limitBytes, invoking a caller-supplied close callback.
type FdCache struct {
	mu         sync.Mutex
	limitBytes int64
	used       int64
	order      *list.List // back = most recently used
	byFH       map[zfs.FileHandle]*list.Element
	onEvict    func(Fd)
}

// NewFdCache returns an FdCache budgeted to limitBytes, calling
// onEvict whenever an entry is evicted to make room.
func NewFdCache(limitBytes int64, onEvict func(Fd)) *FdCache {
	return &FdCache{
		limitBytes: limitBytes,
		order:      list.New(),
		byFH:       make(map[zfs.FileHandle]*list.Element),
		onEvict:    onEvict,
	}
}

// Add inserts or touches fd as most-recently-used, evicting older
// entries until the cache is back under budget.
func (c *FdCache) Add(fd Fd) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.byFH[fd.FH]; ok {
		c.used -= el.Value.(Fd).Size
		c.order.Remove(el)
	}

	el := c.order.PushBack(fd)
	c.byFH[fd.FH] = el
	c.used += fd.Size

	c.evictLocked()
}

// Touch marks fh as most-recently-used without changing its size.
func (c *FdCache) Touch(fh zfs.FileHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.byFH[fh]
	if !ok {
		return
	}
	c.order.MoveToBack(el)
}

// Remove evicts fh unconditionally (e.g. because the capability
// referencing it was destroyed), without invoking onEvict.
func (c *FdCache) Remove(fh zfs.FileHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.byFH[fh]
	if !ok {
		return
	}
	c.used -= el.Value.(Fd).Size
	c.order.Remove(el)
	delete(c.byFH, fh)
}

func (c *FdCache) evictLocked() {
	for c.used > c.limitBytes {
		front := c.order.Front()
		if front == nil {
			return
		}
		fd := front.Value.(Fd)
		c.order.Remove(front)
		delete(c.byFH, fd.FH)
		c.used -= fd.Size
		if c.onEvict != nil {
			c.onEvict(fd)
		}
	}
}

// Used reports the current total size tracked by the cache.
func (c *FdCache) Used() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}
