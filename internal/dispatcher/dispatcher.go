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

// Package dispatcher implements the VFS operation dispatcher of spec
// §4.7 (component C7): one method per operation, each following the
// lookup/lock/do/unlock/retry-on-Stale skeleton shown there for
// getattr. It is the glue between internal/fhcache, internal/lockmgr,
// internal/capability, internal/update and a volume's
// zfsrpc.MasterClient, mirroring fs/fs.go's fileSystem in the teacher.
package dispatcher

import (
	"context"
	"hash/fnv"
	"os"
	"sync"

	"github.com/jacobsa/fuse/fuseops"

	"github.com/zlomekfs/zlomekfs/internal/capability"
	"github.com/zlomekfs/zlomekfs/internal/fhcache"
	"github.com/zlomekfs/zlomekfs/internal/journal"
	"github.com/zlomekfs/zlomekfs/internal/lockmgr"
	"github.com/zlomekfs/zlomekfs/internal/metadata"
	"github.com/zlomekfs/zlomekfs/internal/update"
	"github.com/zlomekfs/zlomekfs/internal/volume"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
	"github.com/zlomekfs/zlomekfs/internal/zfsrpc"
)

// LocalOps is the local-disk half of every operation the dispatcher
// can't implement itself, since the on-disk layout is out of scope
// (spec §1). The teacher's analogue is inode.DirInode/inode.FileInode
// operating against a gcs.Bucket; here the real backing store is
// injected the same way.
type LocalOps interface {
	GetAttr(fh zfs.FileHandle) (zfs.Attributes, error)
	SetAttr(fh zfs.FileHandle, attr zfs.Attributes) (zfs.Attributes, error)
	Lookup(dir zfs.FileHandle, name string) (zfs.FileHandle, zfs.Kind, zfs.Attributes, bool)
	Create(dir zfs.FileHandle, name string, mode uint32) (zfs.FileHandle, zfs.Attributes, error)
	MkDir(dir zfs.FileHandle, name string, mode uint32) (zfs.FileHandle, zfs.Attributes, error)
	RmDir(dir zfs.FileHandle, name string) error
	Unlink(dir zfs.FileHandle, name string) error
	Rename(fromDir zfs.FileHandle, fromName string, toDir zfs.FileHandle, toName string) error
	Link(fh, dir zfs.FileHandle, name string) error
	ReadDir(fh zfs.FileHandle, cookie uint64) ([]zfsrpc.DirEntry, bool, error)
	Read(fh zfs.FileHandle, offset uint64, length uint32) ([]byte, error)
	Write(fh zfs.FileHandle, offset uint64, data []byte) (uint32, error)
	ReadLink(fh zfs.FileHandle) (string, error)
	Symlink(dir zfs.FileHandle, name, target string) (zfs.FileHandle, zfs.Attributes, error)
	MkNod(dir zfs.FileHandle, name string, mode, dev uint32) (zfs.FileHandle, zfs.Attributes, error)
}

// Dispatcher ties together the per-process fh/dentry cache, the lock
// manager, the capability table, the update engine and one volume's
// metadata store and remote client. One Dispatcher serves one volume;
// a server hosting several volumes runs one per volume, matching the
// teacher's one-fileSystem-per-mount model.
type Dispatcher struct {
	Volume *volume.Volume
	Cache  *fhcache.Cache
	Locks  *lockmgr.Manager
	Caps   *capability.Table
	Client zfsrpc.MasterClient
	Engine *update.Engine
	Local  LocalOps
	SelfID uint32

	// journals holds one in-memory reintegration journal per directory
	// fh this dispatcher has written to since startup. A durable
	// per-volume .zfs/ layout (spec §6) would load/persist these rather
	// than starting empty each run; that persistence is out of scope
	// (spec §1), so this is the in-memory stand-in internal/update's
	// ReintegrateDirectory replays against.
	journalsMu sync.Mutex
	journals   map[zfs.FileHandle]*journal.Journal

	// syncMu guards regularStates and conflicts, the per-fh state
	// internal/update needs to run spec §4.8's decision predicate from
	// a live request instead of only from a test harness.
	syncMu        sync.Mutex
	regularStates map[zfs.FileHandle]*update.RegularFileState
	conflicts     map[zfs.FileHandle]*update.ConflictDir
}

// New returns a Dispatcher for one volume.
func New(vol *volume.Volume, cache *fhcache.Cache, locks *lockmgr.Manager, caps *capability.Table, client zfsrpc.MasterClient, engine *update.Engine, local LocalOps, selfID uint32) *Dispatcher {
	return &Dispatcher{
		Volume: vol, Cache: cache, Locks: locks, Caps: caps,
		Client: client, Engine: engine, Local: local, SelfID: selfID,
	}
}

// Shutdown stops accepting new update-engine work and discards whatever
// in-memory journals were never reintegrated, so cmd/zfsd's
// SIGINT/SIGTERM/SIGQUIT handler has something concrete to call before
// exiting. Actually unmounting the volume is the out-of-scope VFS
// bridge's job (spec §1); this only releases this package's own state.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	if d.Engine != nil {
		d.Engine.Shutdown()
	}

	d.journalsMu.Lock()
	defer d.journalsMu.Unlock()
	d.journals = nil
	return nil
}

// lockID derives the lock manager's per-fh identity from a zfs.FileHandle.
func lockID(fh zfs.FileHandle) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fh.String()))
	return h.Sum64()
}

// refreshPath re-resolves fh after a Stale result, giving the retry
// pass in each operation's skeleton a chance to see a fresher dentry
// before giving up. Re-walking a path name by inode number is the
// out-of-scope VFS bridge's job (spec §1): it holds the parent/name the
// kernel last used to reach fh, which this layer never sees. This is a
// hook the bridge calls into once it has re-walked, not something the
// dispatcher can do on its own.
func (d *Dispatcher) refreshPath(fh zfs.FileHandle) {
	if dentry, ok := d.Cache.LookupDentryByName(fh, ""); ok {
		d.Cache.Touch(dentry)
	}
}

// metaKeyFor derives the metadata.Key the store indexes records under
// from a FileHandle, mirroring spec §4.3's (dev, ino) key.
func metaKeyFor(fh zfs.FileHandle) metadata.Key {
	return metadata.Key{Dev: fh.Dev, Ino: fh.Ino}
}

// bumpVersion implements spec §4.7's "call inc_local_version on the
// mutated fh(s)" write-side rule, lazily creating the record first
// (mirroring fh_lookup's own create-on-miss behavior) since a freshly
// minted fh has no metadata record yet.
func (d *Dispatcher) bumpVersion(key metadata.Key) {
	if _, err := d.Volume.Store.Lookup(key, true); err != nil {
		return
	}
	_ = d.Volume.Store.IncLocalVersion(key)
}

// inodeIDFor exposes an fh under the fuseops.InodeID space the
// out-of-scope VFS bridge consumes, reusing the teacher's own ID type
// rather than minting a parallel one (spec §1, §4.7).
func inodeIDFor(fh zfs.FileHandle) fuseops.InodeID {
	return fuseops.InodeID(fh.Ino)
}

func toFuseAttributes(attr zfs.Attributes) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  attr.Size,
		Nlink: attr.Nlink,
		Mode:  os.FileMode(attr.Mode),
	}
}
