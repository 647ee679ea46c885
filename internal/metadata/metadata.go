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

// Package metadata implements the per-volume metadata store of spec
// §4.3 (component C3): a record of every
// locally-known file, keyed on (dev, ino), with a reverse index keyed
// on the master's file handle for reintegration lookups.
package metadata

import (
	"errors"
	"sync"

	"github.com/zlomekfs/zlomekfs/internal/zfs"
)

// Flags on a Record.
type Flags uint32

const (
	// FlagModified marks a record with local changes not yet observed
	// by the master.
	FlagModified Flags = 1 << iota
)

// Key is the local (dev, ino) pair a Record is stored under.
type Key struct {
	Dev uint32
	Ino uint64
}

// Record is one metadata entry: (spec §3's "Metadata record").
type Record struct {
	Flags         Flags
	Dev           uint32
	Ino           uint64
	Gen           uint32
	MasterFH      zfs.FileHandle
	LocalVersion  uint64
	MasterVersion uint64
	ParentDev     uint32
	ParentIno     uint64
	Name          string
}

// ErrNotFound is returned by Lookup/Delete when no record exists for a
// key, and by GetLocalFHForMasterFH when the reverse index has no
// entry for a master fh.
var ErrNotFound = errors.New("metadata: record not found")

// Backend is the key-value interface a Store persists through. The
// on-disk hashed/open-addressed codec spec §3/§4.3 describes is out of
// scope (spec §1); Store keeps its records in this interface plus an
// in-memory reverse index, and does no hashing, probing or table
// rebuilding of its own, so a durable Backend can be substituted for
// the in-memory default without touching Store's logic.
type Backend interface {
	Get(key Key) (Record, bool, error)
	Put(key Key, rec Record) error
	Delete(key Key) error
	Len() (int, error)
	Range(func(Key, Record) bool) error
}

// MemBackend is an in-memory Backend, the shipped default per §4.3's
// scope carve-out.
type MemBackend struct {
	mu   sync.Mutex
	data map[Key]Record
}

// NewMemBackend returns an empty in-memory backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{data: make(map[Key]Record)}
}

func (b *MemBackend) Get(key Key) (Record, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.data[key]
	return rec, ok, nil
}

func (b *MemBackend) Put(key Key, rec Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = rec
	return nil
}

func (b *MemBackend) Delete(key Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

func (b *MemBackend) Len() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data), nil
}

func (b *MemBackend) Range(f func(Key, Record) bool) error {
	b.mu.Lock()
	snapshot := make(map[Key]Record, len(b.data))
	for k, v := range b.data {
		snapshot[k] = v
	}
	b.mu.Unlock()

	for k, v := range snapshot {
		if !f(k, v) {
			break
		}
	}
	return nil
}
