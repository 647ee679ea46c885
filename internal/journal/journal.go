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

// Package journal implements the per-directory hardlink set and
// reintegration journal of spec §4.2 (component C2).
package journal

import "github.com/zlomekfs/zlomekfs/internal/zfs"

// Hardlinks is the small ordered set of (parent fh, name) pairs naming
// every directory entry a file is linked from. Kept as a slice rather
// than a map: the set is almost always of size one, and a slice avoids
// map overhead for the common case while still being cheap to scan.
type Hardlinks struct {
	entries []HardlinkEntry
}

// HardlinkEntry is one directory entry linking to a file.
type HardlinkEntry struct {
	ParentFH zfs.FileHandle
	Name     string
}

// Add inserts an entry if not already present.
func (h *Hardlinks) Add(e HardlinkEntry) {
	for _, existing := range h.entries {
		if existing == e {
			return
		}
	}
	h.entries = append(h.entries, e)
}

// Del removes an entry, reporting whether it was present.
func (h *Hardlinks) Del(e HardlinkEntry) bool {
	for i, existing := range h.entries {
		if existing == e {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entries returns a defensive copy of the current link set.
func (h *Hardlinks) Entries() []HardlinkEntry {
	out := make([]HardlinkEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len reports how many directory entries link to the file. A length
// past one is the trigger spec §4.2 uses for treating the set as
// requiring the overflow-handling path during reintegration.
func (h *Hardlinks) Len() int {
	return len(h.entries)
}

// Op identifies the kind of local change a journal Entry records.
type Op int

const (
	OpCreate Op = iota
	OpUnlink
	OpRename
	OpLink
)

// Entry is one locally-made change awaiting reintegration with the
// master, per spec §4.2/§4.7.
type Entry struct {
	MasterFH      zfs.FileHandle
	LocalFH       zfs.FileHandle
	Name          string
	Op            Op
	MasterVersion uint64
}

// Journal is the append-ordered, per-directory list of pending local
// changes. Not safe for concurrent use; callers serialize access
// through the directory's own lock (internal/lockmgr).
type Journal struct {
	entries []Entry
}

// New returns an empty journal.
func New() *Journal {
	return &Journal{}
}

// Add appends e to the journal.
func (j *Journal) Add(e Entry) {
	j.entries = append(j.entries, e)
}

// Del removes the first entry matching name and op, reporting whether
// one was found.
func (j *Journal) Del(name string, op Op) bool {
	for i, e := range j.entries {
		if e.Name == name && e.Op == op {
			j.entries = append(j.entries[:i], j.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entries returns the journal's entries in the order they were added,
// which is also reintegration order.
func (j *Journal) Entries() []Entry {
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Drop clears the journal, called once every entry has been
// successfully reintegrated with the master.
func (j *Journal) Drop() {
	j.entries = nil
}

// Empty reports whether there are no pending local changes.
func (j *Journal) Empty() bool {
	return len(j.entries) == 0
}
