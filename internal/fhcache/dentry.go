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

import "github.com/zlomekfs/zlomekfs/internal/zfs"

// nameKey is the (parent, name) pair dentryTabByName is indexed on.
type nameKey struct {
	parent zfs.FileHandle
	name   string
}

// Dentry is a named reference to an InternalFH from a parent dentry,
// spec §3's "Internal dentry" entity. A file with multiple dentries
// models hardlinks.
type Dentry struct {
	FH      *InternalFH
	Parent  zfs.FileHandle
	Name    string
	lastUse int64 // unix nanos, heap key
	heapIdx int   // back-pointer maintained by container/heap
	deleted bool
	pinned  bool // capability, non-unlocked level, or active reintegration
}

// Deleted reports whether the dentry is a tombstone awaiting
// destruction once it has no active lockers.
func (d *Dentry) Deleted() bool { return d.deleted }

// Pin marks the dentry as ineligible for LRU eviction, matching §4's
// "pinned to ∞" rule for dentries with a live capability, non-unlocked
// lock level, or in-flight reintegration.
func (d *Dentry) Pin() { d.pinned = true }

// Unpin clears a previous Pin, making the dentry eligible for eviction
// again once touched.
func (d *Dentry) Unpin() { d.pinned = false }
