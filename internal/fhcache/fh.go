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

// Package fhcache implements the fh/dentry cache of spec §4.4
// (component C4): the hash tables mapping file handles and directory
// entries to their in-memory representations, plus LRU eviction of
// unused dentries. Modeled on the teacher's fileSystem struct in
// fs/fs.go (inode maps, lookUpOrCreateInodeIfNotStale) and
// fs/inode/lookup_count.go's reference-counted destroy idiom.
package fhcache

import (
	"github.com/jacobsa/syncutil"

	"github.com/zlomekfs/zlomekfs/internal/metadata"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
)

// InternalFH is the in-memory representation of a file handle, spec
// §3's "Internal file handle" entity: one per live (dev, ino, gen),
// shared by every dentry naming it.
type InternalFH struct {
	FH   zfs.FileHandle
	Kind zfs.Kind

	// GUARDED_BY(mu)
	Attr zfs.Attributes
	Meta metadata.Key

	mu    syncutil.InvariantMutex
	count lookupCount // number of live dentries referencing this fh; GUARDED_BY(Cache.mu)
}

// newInternalFH returns an fh with invariant checking wired up, the
// teacher's NewDirInode idiom of setting mu up only once the struct it
// guards is otherwise fully built.
func newInternalFH(fh zfs.FileHandle, kind zfs.Kind, meta metadata.Key) *InternalFH {
	f := &InternalFH{FH: fh, Kind: kind, Meta: meta}
	f.mu = syncutil.NewInvariantMutex(f.checkInvariants)
	return f
}

// checkInvariants panics (when invariant checking is compiled in)
// unless Kind is one this package actually mints fhs as.
func (f *InternalFH) checkInvariants() {
	switch f.Kind {
	case zfs.KindFile, zfs.KindDir, zfs.KindSymlink, zfs.KindConflictDir:
	default:
		zfs.Check(false, "fhcache: InternalFH has an unrecognized Kind")
	}
}

// Lock acquires the fh's own content mutex (the innermost lock in the
// ordering documented on Cache).
func (f *InternalFH) Lock() { f.mu.Lock() }

// Unlock releases the fh's own content mutex.
func (f *InternalFH) Unlock() { f.mu.Unlock() }

// lookupCount is the reference-counted destroy idiom of the teacher's
// fs/inode/lookup_count.go: N increments must be matched by N
// decrements before the owning object is eligible for destruction.
type lookupCount struct {
	n uint64
}

func (lc *lookupCount) inc() {
	lc.n++
}

// dec decrements the count and reports whether it reached zero.
func (lc *lookupCount) dec(n uint64) bool {
	zfs.Check(n <= lc.n, "fhcache: lookup count decremented below zero")
	lc.n -= n
	return lc.n == 0
}
