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

package dispatcher

import (
	"context"

	"github.com/zlomekfs/zlomekfs/internal/ivltree"
	"github.com/zlomekfs/zlomekfs/internal/metadata"
	"github.com/zlomekfs/zlomekfs/internal/update"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
	"github.com/zlomekfs/zlomekfs/internal/zfsrpc"
)

// localBackingStore adapts LocalOps to update.LocalBackingStore, so
// the engine's byte-range update/reintegrate steps can run against
// whatever local backend this dispatcher was given.
type localBackingStore struct{ local LocalOps }

func (l localBackingStore) ReadRange(fh zfs.FileHandle, start, end uint64) ([]byte, error) {
	return l.local.Read(fh, start, uint32(end-start))
}

func (l localBackingStore) WriteRange(fh zfs.FileHandle, start uint64, data []byte) error {
	_, err := l.local.Write(fh, start, data)
	return err
}

func (l localBackingStore) Truncate(fh zfs.FileHandle, size uint64) error {
	_, err := l.local.SetAttr(fh, zfs.Attributes{Size: size})
	return err
}

// stateFor returns fh's regular-file range-tracking state, minting an
// empty one on first use.
func (d *Dispatcher) stateFor(fh zfs.FileHandle) *update.RegularFileState {
	d.syncMu.Lock()
	defer d.syncMu.Unlock()
	if d.regularStates == nil {
		d.regularStates = make(map[zfs.FileHandle]*update.RegularFileState)
	}
	s, ok := d.regularStates[fh]
	if !ok {
		s = update.NewRegularFileState()
		d.regularStates[fh] = s
	}
	return s
}

// isCachedRegularFile reports whether fh is a regular file this
// dispatcher keeps a local copy of on behalf of some other master,
// i.e. the case spec §2's data-flow statement and §4.8 apply to.
func (d *Dispatcher) isCachedRegularFile(fh zfs.FileHandle, meta metadata.Record) bool {
	if !d.Volume.HasLocalPath() || d.Volume.IsMaster(d.SelfID) || !meta.MasterFH.IsDefined() {
		return false
	}
	ifh, ok := d.Cache.Lookup(fh)
	return !ok || ifh.Kind == zfs.KindFile
}

// syncRegularFile implements spec §2's headline data-flow statement
// ("if local copy incomplete for requested range, calls update
// engine...") and §4.8's decision predicate for a cached regular
// file: fetch master's current version, decide whether to pull fresh
// blocks, push pending local writes, or surface a conflict, and
// persist whatever metadata change results.
//
// A failure to reach master is not itself an error: the caller falls
// back to serving the existing local copy, matching this project's
// offline-capable design.
func (d *Dispatcher) syncRegularFile(ctx context.Context, fh zfs.FileHandle, key metadata.Key, meta metadata.Record, requested ivltree.Interval) error {
	if !d.isCachedRegularFile(fh, meta) {
		return nil
	}

	remote, err := d.Client.GetAttr(ctx, zfsrpc.GetAttrArgs{FH: meta.MasterFH})
	if err != nil {
		return nil
	}

	// A zero-length request (GetAttr has no byte range of its own) means
	// "whatever it takes to make attrs current": treat the whole file as
	// requested so a stale copy gets fully refreshed, not just resized.
	if requested.Start == requested.End {
		requested = ivltree.Interval{Start: 0, End: remote.Attr.Size}
	}

	state := d.stateFor(fh)
	incomplete := len(state.Updated.Complement(requested.Start, requested.End)) > 0

	switch update.Decide(meta, remote.Attr.Version, incomplete) {
	case update.Update:
		localAttr, err := d.Local.GetAttr(fh)
		if err != nil {
			return err
		}
		return update.UpdateRegularFile(ctx, d.Client, localBackingStore{d.Local}, fh, meta.MasterFH, state, requested, remote.Attr.Size, localAttr.Size)

	case update.Reintegrate:
		masterVersion, err := update.ReintegrateRegularFile(ctx, d.Client, localBackingStore{d.Local}, fh, meta.MasterFH, state, meta.LocalVersion)
		if err != nil {
			return err
		}
		if masterVersion == 0 {
			return nil
		}
		meta.MasterVersion = masterVersion
		meta.Flags &^= metadata.FlagModified
		return d.Volume.Store.Insert(key, meta)

	case update.Conflict:
		d.materializeConflict(fh, meta)
		return nil

	default:
		return nil
	}
}

// materializeConflict implements spec §4.4-I7's synthetic conflict
// directory: a two-child directory replacing the contested name's
// dentry, named after the colliding local and remote sides. The
// conflict fh reuses fh's (dev, ino, gen) under a nonzero vid so
// zfs.FileHandle.IsConflictDir recognizes it while still tracing back
// to the file it replaces.
func (d *Dispatcher) materializeConflict(fh zfs.FileHandle, meta metadata.Record) *update.ConflictDir {
	d.syncMu.Lock()
	defer d.syncMu.Unlock()
	if d.conflicts == nil {
		d.conflicts = make(map[zfs.FileHandle]*update.ConflictDir)
	}
	if c, ok := d.conflicts[fh]; ok {
		return c
	}

	conflictFH := zfs.FileHandle{VID: 1, Dev: fh.Dev, Ino: fh.Ino, Gen: fh.Gen}
	c := update.NewConflictDir(conflictFH, meta.Name, fh, meta.Name, meta.MasterFH)
	d.conflicts[fh] = c

	parent := zfs.FileHandle{Dev: meta.ParentDev, Ino: meta.ParentIno}
	d.Cache.GetDentry(conflictFH, parent, meta.Name, zfs.KindConflictDir, metaKeyFor(conflictFH))
	return c
}

// ConflictFor returns the conflict directory materialized for fh, if
// the update engine has ever observed one.
func (d *Dispatcher) ConflictFor(fh zfs.FileHandle) (*update.ConflictDir, bool) {
	d.syncMu.Lock()
	defer d.syncMu.Unlock()
	c, ok := d.conflicts[fh]
	return c, ok
}
