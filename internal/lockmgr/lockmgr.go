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

// Package lockmgr implements the per-fh reader/writer lock manager of
// spec §4.6 (component C6): each fh has a (level, users) pair guarded
// by the manager's mutex, with FIFO fairness between waiting lockers;
// each waiter blocks on its own channel until it is granted.
package lockmgr

import "sync"

// Level is the lock state of one fh.
type Level int

const (
	Unlocked Level = iota
	ReadLocked
	WriteLocked
)

type waiter struct {
	write bool
	ready chan struct{}
}

// entry is the per-fh lock state. Grounded on the teacher's
// syncutil.InvariantMutex idiom: state is only ever touched while
// holding the manager's mutex, and Unlock wakes waiters in FIFO order
// by closing their ready channels rather than letting the runtime pick
// one.
type entry struct {
	level   Level
	users   int // number of current holders (>1 only when level == ReadLocked)
	waiters []*waiter
}

// Manager owns the lock state of every live fh. One Manager is shared
// process-wide; dispatcher.Dispatcher holds it in its Locks field.
type Manager struct {
	mu      sync.Mutex
	entries map[uint64]*entry // keyed by a caller-supplied fh identity (e.g. hash of zfs.FileHandle)
}

// New returns an empty lock manager.
func New() *Manager {
	return &Manager{entries: make(map[uint64]*entry)}
}

func (m *Manager) entryFor(id uint64) *entry {
	e, ok := m.entries[id]
	if !ok {
		e = &entry{}
		m.entries[id] = e
	}
	return e
}

// Lock acquires the lock on id in read or write mode, respecting FIFO
// order among waiters: a request is granted only once every
// earlier-queued request has been granted, matching
// §4.6's fairness requirement (no writer or reader starvation).
func (m *Manager) Lock(id uint64, write bool) {
	m.mu.Lock()
	e := m.entryFor(id)

	grantable := func() bool {
		if write {
			return e.level == Unlocked
		}
		return e.level != WriteLocked
	}

	if len(e.waiters) == 0 && grantable() {
		if write {
			e.level = WriteLocked
		} else {
			e.level = ReadLocked
		}
		e.users++
		m.mu.Unlock()
		return
	}

	w := &waiter{write: write, ready: make(chan struct{})}
	e.waiters = append(e.waiters, w)
	m.mu.Unlock()

	<-w.ready
}

// Unlock releases one hold of id. If users reaches zero, the next
// waiter(s) in FIFO order are granted: a leading run of readers is
// granted together, a leading writer is granted alone.
func (m *Manager) Unlock(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return
	}

	e.users--
	if e.users > 0 {
		return
	}
	e.level = Unlocked

	if len(e.waiters) == 0 {
		delete(m.entries, id)
		return
	}

	head := e.waiters[0]
	if head.write {
		e.level = WriteLocked
		e.users = 1
		e.waiters = e.waiters[1:]
		close(head.ready)
		return
	}

	var granted int
	for granted < len(e.waiters) && !e.waiters[granted].write {
		granted++
	}
	e.level = ReadLocked
	e.users = granted
	for _, w := range e.waiters[:granted] {
		close(w.ready)
	}
	e.waiters = e.waiters[granted:]
}

// TryLock attempts to acquire id without blocking, reporting success.
func (m *Manager) TryLock(id uint64, write bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entryFor(id)
	if len(e.waiters) > 0 {
		return false
	}
	if write {
		if e.level != Unlocked {
			return false
		}
		e.level = WriteLocked
	} else {
		if e.level == WriteLocked {
			return false
		}
		e.level = ReadLocked
	}
	e.users++
	return true
}
