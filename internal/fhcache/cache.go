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
	"errors"
	"sync"

	"github.com/zlomekfs/zlomekfs/internal/metadata"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
)

// ErrStale is returned by operations that discover their fh no longer
// names a live object; the dispatcher is expected to refresh and
// retry once, per spec §4.7.
var ErrStale = errors.New("fhcache: stale file handle")

// Lock ordering, enforced by convention across this package and by
// internal/dispatcher: vd (if virtual) -> Cache.mu -> volume mutex ->
// InternalFH.mu. Acquire in this order; release in reverse. Matches
// the teacher's fileSystem struct doc comment in fs/fs.go.
//
// Cache owns the five hash tables of spec §4.4: fhTab, dentryTab,
// dentryTabByName, and the virtual-dir equivalents vdTab and
// vdTabByName. All access to the
// tables themselves is serialized through mu (the "fh_mutex" of the
// spec); per-fh content is separately guarded by InternalFH.mu.
type Cache struct {
	mu sync.Mutex

	fhTab           map[zfs.FileHandle]*InternalFH
	dentryTab       map[zfs.FileHandle]*Dentry // one representative dentry per fh
	dentryTabByName map[nameKey]*Dentry

	vdTab       map[zfs.FileHandle]*VirtualDir
	vdTabByName map[nameKey]*VirtualDir

	evictor *evictor
}

// New returns an empty cache. The MAX_UNUSED_TIME sweep threshold of
// spec §4.4 is not fixed here: it is passed to each Sweep call (see
// RunSweeper and MaxUnusedTime).
func New() *Cache {
	c := &Cache{
		fhTab:           make(map[zfs.FileHandle]*InternalFH),
		dentryTab:       make(map[zfs.FileHandle]*Dentry),
		dentryTabByName: make(map[nameKey]*Dentry),
		vdTab:           make(map[zfs.FileHandle]*VirtualDir),
		vdTabByName:     make(map[nameKey]*VirtualDir),
	}
	c.evictor = newEvictor()
	return c
}

// mintFH interns fh as a fresh InternalFH, or returns the existing one.
func (c *Cache) mintFH(fh zfs.FileHandle, kind zfs.Kind, meta metadata.Key) *InternalFH {
	if existing, ok := c.fhTab[fh]; ok {
		return existing
	}
	ifh := newInternalFH(fh, kind, meta)
	c.fhTab[fh] = ifh
	return ifh
}

// GetDentry implements spec §4.4's get_dentry: interns or rebinds the
// dentry for (parent, name). If an existing dentry under that name
// names a different fh, it is destroyed and recreated. The returned
// dentry is pinned (the caller is expected to lock it at the
// appropriate level and Unpin when done).
func (c *Cache) GetDentry(localFH zfs.FileHandle, parent zfs.FileHandle, name string, kind zfs.Kind, meta metadata.Key) *Dentry {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := nameKey{parent: parent, name: name}
	if existing, ok := c.dentryTabByName[key]; ok {
		if existing.FH.FH == localFH {
			c.touchLocked(existing)
			return existing
		}
		c.destroyLocked(existing)
	}

	ifh := c.mintFH(localFH, kind, meta)
	ifh.count.inc()

	d := &Dentry{FH: ifh, Parent: parent, Name: name, pinned: true}
	c.dentryTabByName[key] = d
	if _, ok := c.dentryTab[localFH]; !ok {
		c.dentryTab[localFH] = d
	}
	c.evictor.track(d)
	return d
}

// Move implements internal_dentry_move: relocates a dentry from
// (fromParent, fromName) to (toParent, toName), preserving fh
// identity. The kernel-side dentry cache invalidation for both names
// is the VFS bridge's responsibility (out of scope here).
func (c *Cache) Move(fromParent zfs.FileHandle, fromName string, toParent zfs.FileHandle, toName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fromKey := nameKey{parent: fromParent, name: fromName}
	d, ok := c.dentryTabByName[fromKey]
	if !ok {
		return ErrStale
	}

	toKey := nameKey{parent: toParent, name: toName}
	if displaced, ok := c.dentryTabByName[toKey]; ok {
		c.destroyLocked(displaced)
	}

	delete(c.dentryTabByName, fromKey)
	d.Parent = toParent
	d.Name = toName
	c.dentryTabByName[toKey] = d
	return nil
}

// Destroy implements internal_dentry_destroy: removes d from every
// table, destroying its fh if d was the fh's last dentry. The caller
// must already hold d's lock at level UNLOCKED with zero users (spec
// §4.4); this package does not itself track lock level, which is
// internal/lockmgr's concern — callers wire the two together.
func (c *Cache) Destroy(d *Dentry) (fhDestroyed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyLocked(d)
}

func (c *Cache) destroyLocked(d *Dentry) (fhDestroyed bool) {
	d.deleted = true
	c.evictor.remove(d)

	key := nameKey{parent: d.Parent, name: d.Name}
	if c.dentryTabByName[key] == d {
		delete(c.dentryTabByName, key)
	}
	if c.dentryTab[d.FH.FH] == d {
		delete(c.dentryTab, d.FH.FH)
	}

	if d.FH.count.dec(1) {
		delete(c.fhTab, d.FH.FH)
		return true
	}
	return false
}

// Lookup returns the fh interned for fh, if any.
func (c *Cache) Lookup(fh zfs.FileHandle) (*InternalFH, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ifh, ok := c.fhTab[fh]
	return ifh, ok
}

// LookupDentryByName returns the representative dentry for
// (parent, name), if any.
func (c *Cache) LookupDentryByName(parent zfs.FileHandle, name string) (*Dentry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.dentryTabByName[nameKey{parent: parent, name: name}]
	return d, ok
}

func (c *Cache) touchLocked(d *Dentry) {
	c.evictor.touch(d, c.evictor.clock.Now().UnixNano())
}

// Touch refreshes d's last-use time, exempting it from the next sweep.
func (c *Cache) Touch(d *Dentry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked(d)
}

// Sweep evicts every unpinned, non-deleted dentry whose last use is
// older than maxUnused, matching spec §4.4's sweeper thread. It is
// meant to be called periodically (see RunSweeper).
func (c *Cache) Sweep(maxUnusedNanos int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	threshold := c.evictor.clock.Now().UnixNano() - maxUnusedNanos
	for {
		d := c.evictor.peekExpired(threshold)
		if d == nil {
			return
		}
		// Re-check: the dentry may have been touched since it was queued
		// for eviction, matching the teacher's re-validation-after-wakeup
		// idiom in fs/fs.go's lookUpOrCreateInodeIfNotStale.
		if d.pinned || d.deleted {
			c.evictor.remove(d)
			continue
		}
		c.destroyLocked(d)
	}
}
