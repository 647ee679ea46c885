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

package metadata

import (
	"fmt"
	"sync"

	"github.com/zlomekfs/zlomekfs/internal/zfs"
)

// Store is the logical metadata store of spec §4.3: records keyed on
// (dev, ino), with a reverse fh-mapping index keyed on the master's
// file handle for reintegration's reverse lookup. Both indexes are
// kept in lockstep over an injected Backend.
//
// Safe for concurrent use; callers do not need to hold any other lock
// to call Store's methods, though the dispatcher typically also holds
// the owning fh's lock for the duration of a read-modify-write.
type Store struct {
	mu      sync.Mutex
	backend Backend
	byFH    map[zfs.FileHandle]Key
}

// Open wires a Store to backend. Per spec §4.3, a Backend that fails
// to open should be surfaced by the caller as zfs.MetadataError and
// the owning volume marked for deletion; Open itself cannot fail since
// MemBackend never does, but the signature mirrors what a durable
// Backend's Open would look like.
func Open(backend Backend) (*Store, error) {
	s := &Store{backend: backend, byFH: make(map[zfs.FileHandle]Key)}
	err := backend.Range(func(k Key, rec Record) bool {
		if rec.MasterFH.IsDefined() {
			s.byFH[rec.MasterFH] = k
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("metadata: rebuilding reverse index: %w: %w", zfs.MetadataError, err)
	}
	return s, nil
}

// Lookup finds the record for key. If create is true and no record
// exists, a zero Record is inserted and returned instead of
// ErrNotFound.
func (s *Store) Lookup(key Key, create bool) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok, err := s.backend.Get(key)
	if err != nil {
		return Record{}, fmt.Errorf("metadata: lookup: %w: %w", zfs.MetadataError, err)
	}
	if ok {
		return rec, nil
	}
	if !create {
		return Record{}, ErrNotFound
	}

	rec = Record{Dev: key.Dev, Ino: key.Ino}
	if err := s.backend.Put(key, rec); err != nil {
		return Record{}, fmt.Errorf("metadata: create on lookup: %w: %w", zfs.MetadataError, err)
	}
	return rec, nil
}

// Insert stores rec under key, updating the reverse fh-mapping index.
func (s *Store) Insert(key Key, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(key, rec)
}

func (s *Store) insertLocked(key Key, rec Record) error {
	if prev, ok, _ := s.backend.Get(key); ok && prev.MasterFH.IsDefined() {
		delete(s.byFH, prev.MasterFH)
	}
	if err := s.backend.Put(key, rec); err != nil {
		return fmt.Errorf("metadata: insert: %w: %w", zfs.MetadataError, err)
	}
	if rec.MasterFH.IsDefined() {
		s.byFH[rec.MasterFH] = key
	}
	return nil
}

// Delete removes the record for key and its reverse-index entry.
func (s *Store) Delete(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok, _ := s.backend.Get(key); ok && rec.MasterFH.IsDefined() {
		delete(s.byFH, rec.MasterFH)
	}
	if err := s.backend.Delete(key); err != nil {
		return fmt.Errorf("metadata: delete: %w: %w", zfs.MetadataError, err)
	}
	return nil
}

// GetLocalFHForMasterFH is the reintegration reverse lookup of spec
// §4.3: given a file handle known on the master, find the local
// (dev, ino) key it corresponds to.
func (s *Store) GetLocalFHForMasterFH(masterFH zfs.FileHandle) (Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byFH[masterFH]
	if !ok {
		return Key{}, ErrNotFound
	}
	return key, nil
}

// Len reports how many records the store holds.
func (s *Store) Len() (int, error) {
	return s.backend.Len()
}

// SetAttrVersion derives attr.Version the one way spec §4.3 allows:
// meta.LocalVersion, plus one if the record has unreintegrated local
// changes.
func SetAttrVersion(attr *zfs.Attributes, meta Record) {
	attr.Version = meta.LocalVersion
	if meta.Flags&FlagModified != 0 {
		attr.Version++
	}
}

// IncLocalVersion bumps key's local version and persists the change
// before returning, as required after every local mutation that
// reaches disk.
func (s *Store) IncLocalVersion(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok, err := s.backend.Get(key)
	if err != nil {
		return fmt.Errorf("metadata: inc_local_version: %w: %w", zfs.MetadataError, err)
	}
	if !ok {
		return ErrNotFound
	}

	rec.LocalVersion++
	rec.Flags |= FlagModified
	return s.insertLocked(key, rec)
}
