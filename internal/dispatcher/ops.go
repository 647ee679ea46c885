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
	"errors"
	"syscall"

	"github.com/zlomekfs/zlomekfs/internal/capability"
	"github.com/zlomekfs/zlomekfs/internal/ivltree"
	"github.com/zlomekfs/zlomekfs/internal/journal"
	"github.com/zlomekfs/zlomekfs/internal/metadata"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
	"github.com/zlomekfs/zlomekfs/internal/zfsrpc"
)

// retryOnStale implements the skeleton of spec §4.7: run fn once under
// the fh's lock; if it reports Stale, refresh and try exactly once
// more before giving up.
func (d *Dispatcher) retryOnStale(fh zfs.FileHandle, write bool, fn func() error) error {
	id := lockID(fh)
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		d.Locks.Lock(id, write)
		err = fn()
		d.Locks.Unlock(id)

		if errors.Is(err, zfs.Stale) && attempt == 0 {
			d.refreshPath(fh)
			continue
		}
		return err
	}
	return err
}

// isHiddenName reports whether name is one of the reserved per-volume
// control names (spec §4.7: ".zfs"/".shadow" are never crossed by an
// ordinary lookup and are rejected with EACCES on write-side ops).
func isHiddenName(name string) bool {
	return name == ".zfs" || name == ".shadow"
}

// checkWritable validates a write-side operation's target directory
// against spec §4.7's write-side rules: virtual directories are
// read-only (EROFS), hidden control names are never writable (EACCES).
func checkWritable(dir zfs.FileHandle, name string) error {
	if dir.IsVirtual() {
		return syscall.EROFS
	}
	if isHiddenName(name) {
		return syscall.EACCES
	}
	return nil
}

// journalAdd appends an entry of kind op to dir's journal if this
// dispatcher is not the volume's master, per §4.7's write-side rule
// "append a journal entry if we are not the master". One journal per
// directory fh is kept in-memory here; the durable per-.zfs/ layout of
// §6 is internal/journal and internal/metadata's concern, out of scope
// for this package beyond calling into it.
func (d *Dispatcher) journalAdd(dir zfs.FileHandle, masterFH, localFH zfs.FileHandle, name string, op journal.Op, masterVersion uint64) {
	if d.Volume.IsMaster(d.SelfID) {
		return
	}
	j := d.journalFor(dir)
	j.Add(journal.Entry{MasterFH: masterFH, LocalFH: localFH, Name: name, Op: op, MasterVersion: masterVersion})
}

func (d *Dispatcher) journalFor(dir zfs.FileHandle) *journal.Journal {
	d.journalsMu.Lock()
	defer d.journalsMu.Unlock()
	if d.journals == nil {
		d.journals = make(map[zfs.FileHandle]*journal.Journal)
	}
	j, ok := d.journals[dir]
	if !ok {
		j = journal.New()
		d.journals[dir] = j
	}
	return j
}

// GetAttr implements spec §4.7's getattr skeleton. For a cached
// regular file it first runs spec §4.8's decision predicate against
// master's current version (§2's data-flow statement), since a stale
// local copy must not be reported as authoritative.
func (d *Dispatcher) GetAttr(ctx context.Context, args zfsrpc.GetAttrArgs) (zfsrpc.GetAttrReply, error) {
	var reply zfsrpc.GetAttrReply
	err := d.retryOnStale(args.FH, false, func() error {
		key := metaKeyFor(args.FH)
		meta, merr := d.Volume.Store.Lookup(key, true)
		if merr != nil {
			return merr
		}

		if err := d.syncRegularFile(ctx, args.FH, key, meta, ivltree.Interval{}); err != nil {
			return err
		}

		var attr zfs.Attributes
		var err error
		switch {
		case d.Volume.HasLocalPath():
			attr, err = d.Local.GetAttr(args.FH)
		case !d.Volume.IsMaster(d.SelfID):
			var r zfsrpc.GetAttrReply
			r, err = d.Client.GetAttr(ctx, zfsrpc.GetAttrArgs{FH: args.FH})
			attr = r.Attr
		}
		if err != nil {
			return err
		}

		meta, merr = d.Volume.Store.Lookup(key, false)
		if merr != nil {
			return merr
		}
		metadata.SetAttrVersion(&attr, meta)
		reply.Attr = attr
		return nil
	})
	return reply, err
}

// SetAttr implements spec §4.7's write-side skeleton for attribute changes.
func (d *Dispatcher) SetAttr(ctx context.Context, args zfsrpc.SetAttrArgs) (zfsrpc.SetAttrReply, error) {
	var reply zfsrpc.SetAttrReply
	err := d.retryOnStale(args.FH, true, func() error {
		if args.FH.IsVirtual() {
			return syscall.EROFS
		}

		var attr zfs.Attributes
		var err error
		if d.Volume.HasLocalPath() {
			attr, err = d.Local.SetAttr(args.FH, args.Attr)
		} else {
			var r zfsrpc.SetAttrReply
			r, err = d.Client.SetAttr(ctx, args)
			attr = r.Attr
		}
		if err != nil {
			return err
		}

		key := metaKeyFor(args.FH)
		if ierr := d.Volume.Store.IncLocalVersion(key); ierr != nil && !errors.Is(ierr, metadata.ErrNotFound) {
			return ierr
		}

		reply.Attr = attr
		return nil
	})
	return reply, err
}

// Lookup implements spec §4.7's lookup, interning the result dentry in
// the cache on success (§4.4's get_dentry).
func (d *Dispatcher) Lookup(ctx context.Context, args zfsrpc.LookupArgs) (zfsrpc.LookupReply, error) {
	var reply zfsrpc.LookupReply
	err := d.retryOnStale(args.Dir, false, func() error {
		if isHiddenName(args.Name) {
			return syscall.EACCES
		}

		var fh zfs.FileHandle
		var attr zfs.Attributes
		var err error
		if d.Volume.HasLocalPath() {
			var kind zfs.Kind
			var ok bool
			fh, kind, attr, ok = d.Local.Lookup(args.Dir, args.Name)
			if !ok {
				return syscall.ENOENT
			}
			d.Cache.GetDentry(fh, args.Dir, args.Name, kind, metaKeyFor(fh))
		} else if !d.Volume.IsMaster(d.SelfID) {
			var r zfsrpc.LookupReply
			r, err = d.Client.Lookup(ctx, args)
			fh, attr = r.FH, r.Attr
		}
		if err != nil {
			return err
		}

		reply.FH, reply.Attr = fh, attr
		return nil
	})
	return reply, err
}

// Create implements spec §4.7's write-side create.
func (d *Dispatcher) Create(ctx context.Context, args zfsrpc.CreateArgs) (zfsrpc.CreateReply, error) {
	var reply zfsrpc.CreateReply
	err := d.retryOnStale(args.Dir, true, func() error {
		if err := checkWritable(args.Dir, args.Name); err != nil {
			return err
		}

		var fh zfs.FileHandle
		var attr zfs.Attributes
		var err error
		if d.Volume.HasLocalPath() {
			fh, attr, err = d.Local.Create(args.Dir, args.Name, args.Mode)
		} else {
			var r zfsrpc.CreateReply
			r, err = d.Client.Create(ctx, args)
			fh, attr = r.FH, r.Attr
		}
		if err != nil {
			return err
		}

		d.Cache.GetDentry(fh, args.Dir, args.Name, zfs.KindFile, metaKeyFor(fh))
		d.bumpVersion(metaKeyFor(args.Dir))
		d.journalAdd(args.Dir, zfs.Undefined, fh, args.Name, journal.OpCreate, 0)

		reply.FH, reply.Attr = fh, attr
		return nil
	})
	return reply, err
}

// Open mints a capability for fh (spec §4.5 via §4.7's open path).
func (d *Dispatcher) Open(ctx context.Context, args zfsrpc.OpenArgs) (zfsrpc.OpenReply, error) {
	var reply zfsrpc.OpenReply
	err := d.retryOnStale(args.FH, false, func() error {
		cap, err := d.Caps.Get(args.FH, capability.AccessFlags(args.Flags))
		if err != nil {
			return err
		}
		reply.Verify = cap.Verify
		return nil
	})
	return reply, err
}

// Close takes and drops fh's read lock and returns. It does not release
// a capability and sends nothing to the master.
func (d *Dispatcher) Close(ctx context.Context, args zfsrpc.CloseArgs) (zfsrpc.CloseReply, error) {
	err := d.retryOnStale(args.FH, false, func() error {
		return nil
	})
	return zfsrpc.CloseReply{}, err
}

// ReadDir implements spec §4.7's readdir, paged via cookie.
func (d *Dispatcher) ReadDir(ctx context.Context, args zfsrpc.ReadDirArgs) (zfsrpc.ReadDirReply, error) {
	var reply zfsrpc.ReadDirReply
	err := d.retryOnStale(args.FH, false, func() error {
		var err error
		if d.Volume.HasLocalPath() {
			reply.Entries, reply.EOF, err = d.Local.ReadDir(args.FH, args.Cookie)
		} else if !d.Volume.IsMaster(d.SelfID) {
			var r zfsrpc.ReadDirReply
			r, err = d.Client.ReadDir(ctx, args)
			reply = r
		}
		return err
	})
	return reply, err
}

// MkDir implements spec §4.7's write-side mkdir.
func (d *Dispatcher) MkDir(ctx context.Context, args zfsrpc.MkDirArgs) (zfsrpc.MkDirReply, error) {
	var reply zfsrpc.MkDirReply
	err := d.retryOnStale(args.Dir, true, func() error {
		if err := checkWritable(args.Dir, args.Name); err != nil {
			return err
		}

		var fh zfs.FileHandle
		var attr zfs.Attributes
		var err error
		if d.Volume.HasLocalPath() {
			fh, attr, err = d.Local.MkDir(args.Dir, args.Name, args.Mode)
		} else {
			var r zfsrpc.MkDirReply
			r, err = d.Client.MkDir(ctx, args)
			fh, attr = r.FH, r.Attr
		}
		if err != nil {
			return err
		}

		d.Cache.GetDentry(fh, args.Dir, args.Name, zfs.KindDir, metaKeyFor(fh))
		d.bumpVersion(metaKeyFor(args.Dir))
		d.journalAdd(args.Dir, zfs.Undefined, fh, args.Name, journal.OpCreate, 0)

		reply.FH, reply.Attr = fh, attr
		return nil
	})
	return reply, err
}

// RmDir implements spec §4.7's write-side rmdir.
func (d *Dispatcher) RmDir(ctx context.Context, args zfsrpc.RmDirArgs) (zfsrpc.RmDirReply, error) {
	err := d.retryOnStale(args.Dir, true, func() error {
		if err := checkWritable(args.Dir, args.Name); err != nil {
			return err
		}

		var err error
		if d.Volume.HasLocalPath() {
			err = d.Local.RmDir(args.Dir, args.Name)
		} else {
			_, err = d.Client.RmDir(ctx, args)
		}
		if err != nil {
			return err
		}

		if dentry, ok := d.Cache.LookupDentryByName(args.Dir, args.Name); ok {
			d.Cache.Destroy(dentry)
		}
		d.bumpVersion(metaKeyFor(args.Dir))
		d.journalAdd(args.Dir, zfs.Undefined, zfs.Undefined, args.Name, journal.OpUnlink, 0)
		return nil
	})
	return zfsrpc.RmDirReply{}, err
}

// Rename implements spec §4.7's two-fh rename, enforcing same-device
// via (sid, vid, dev) equality.
func (d *Dispatcher) Rename(ctx context.Context, args zfsrpc.RenameArgs) (zfsrpc.RenameReply, error) {
	if args.FromDir.SID != args.ToDir.SID || args.FromDir.VID != args.ToDir.VID || args.FromDir.Dev != args.ToDir.Dev {
		return zfsrpc.RenameReply{}, syscall.EXDEV
	}

	first, second := args.FromDir, args.ToDir
	if lockID(second) < lockID(first) {
		first, second = second, first
	}

	firstID, secondID := lockID(first), lockID(second)
	d.Locks.Lock(firstID, true)
	defer d.Locks.Unlock(firstID)
	if secondID != firstID {
		d.Locks.Lock(secondID, true)
		defer d.Locks.Unlock(secondID)
	}

	if err := checkWritable(args.FromDir, args.FromName); err != nil {
		return zfsrpc.RenameReply{}, err
	}
	if err := checkWritable(args.ToDir, args.ToName); err != nil {
		return zfsrpc.RenameReply{}, err
	}

	var err error
	if d.Volume.HasLocalPath() {
		err = d.Local.Rename(args.FromDir, args.FromName, args.ToDir, args.ToName)
	} else {
		_, err = d.Client.Rename(ctx, args)
	}
	if err != nil {
		return zfsrpc.RenameReply{}, err
	}

	_ = d.Cache.Move(args.FromDir, args.FromName, args.ToDir, args.ToName)
	d.bumpVersion(metaKeyFor(args.FromDir))
	d.bumpVersion(metaKeyFor(args.ToDir))
	return zfsrpc.RenameReply{}, nil
}

// Link implements spec §4.7's write-side hardlink creation.
func (d *Dispatcher) Link(ctx context.Context, args zfsrpc.LinkArgs) (zfsrpc.LinkReply, error) {
	err := d.retryOnStale(args.Dir, true, func() error {
		if err := checkWritable(args.Dir, args.Name); err != nil {
			return err
		}
		if args.FH.SID != args.Dir.SID || args.FH.VID != args.Dir.VID || args.FH.Dev != args.Dir.Dev {
			return syscall.EXDEV
		}

		var err error
		if d.Volume.HasLocalPath() {
			err = d.Local.Link(args.FH, args.Dir, args.Name)
		} else {
			_, err = d.Client.Link(ctx, args)
		}
		if err != nil {
			return err
		}

		d.Cache.GetDentry(args.FH, args.Dir, args.Name, zfs.KindFile, metaKeyFor(args.FH))
		d.bumpVersion(metaKeyFor(args.Dir))
		d.journalAdd(args.Dir, zfs.Undefined, args.FH, args.Name, journal.OpLink, 0)
		return nil
	})
	return zfsrpc.LinkReply{}, err
}

// Unlink implements spec §4.7's write-side unlink.
func (d *Dispatcher) Unlink(ctx context.Context, args zfsrpc.UnlinkArgs) (zfsrpc.UnlinkReply, error) {
	err := d.retryOnStale(args.Dir, true, func() error {
		if err := checkWritable(args.Dir, args.Name); err != nil {
			return err
		}

		var err error
		if d.Volume.HasLocalPath() {
			err = d.Local.Unlink(args.Dir, args.Name)
		} else {
			_, err = d.Client.Unlink(ctx, args)
		}
		if err != nil {
			return err
		}

		if dentry, ok := d.Cache.LookupDentryByName(args.Dir, args.Name); ok {
			d.Cache.Destroy(dentry)
		}
		d.bumpVersion(metaKeyFor(args.Dir))
		d.journalAdd(args.Dir, zfs.Undefined, zfs.Undefined, args.Name, journal.OpUnlink, 0)
		return nil
	})
	return zfsrpc.UnlinkReply{}, err
}

// Read implements spec §4.7's read, pulling fresh remote data through
// the update engine (§4.8) before serving locally when the volume has
// a local path.
func (d *Dispatcher) Read(ctx context.Context, args zfsrpc.ReadArgs) (zfsrpc.ReadReply, error) {
	var reply zfsrpc.ReadReply
	err := d.retryOnStale(args.FH, false, func() error {
		key := metaKeyFor(args.FH)
		if meta, merr := d.Volume.Store.Lookup(key, false); merr == nil {
			requested := ivltree.Interval{Start: args.Offset, End: args.Offset + uint64(args.Length)}
			if err := d.syncRegularFile(ctx, args.FH, key, meta, requested); err != nil {
				return err
			}
		} else if !errors.Is(merr, metadata.ErrNotFound) {
			return merr
		}

		var err error
		if d.Volume.HasLocalPath() {
			reply.Data, err = d.Local.Read(args.FH, args.Offset, args.Length)
		} else if !d.Volume.IsMaster(d.SelfID) {
			var r zfsrpc.ReadReply
			r, err = d.Client.Read(ctx, args)
			reply = r
		}
		return err
	})
	return reply, err
}

// Write implements spec §4.7's write-side write. Once the written
// range is recorded as MODIFIED, it immediately attempts spec §4.8's
// reintegrate step for regular files cached from a master, rather than
// leaving the push until some later, unrelated operation happens to
// run the decision predicate.
func (d *Dispatcher) Write(ctx context.Context, args zfsrpc.WriteArgs) (zfsrpc.WriteReply, error) {
	var reply zfsrpc.WriteReply
	err := d.retryOnStale(args.FH, true, func() error {
		if args.FH.IsVirtual() {
			return syscall.EROFS
		}

		var err error
		if d.Volume.HasLocalPath() {
			reply.Written, err = d.Local.Write(args.FH, args.Offset, args.Data)
		} else {
			var r zfsrpc.WriteReply
			r, err = d.Client.Write(ctx, args)
			reply = r
		}
		if err != nil {
			return err
		}

		key := metaKeyFor(args.FH)
		d.bumpVersion(key)

		meta, merr := d.Volume.Store.Lookup(key, false)
		if merr != nil {
			if errors.Is(merr, metadata.ErrNotFound) {
				return nil
			}
			return merr
		}
		if !meta.MasterFH.IsDefined() {
			return nil
		}

		written := ivltree.Interval{Start: args.Offset, End: args.Offset + uint64(len(args.Data))}
		d.stateFor(args.FH).Modified.Insert(written.Start, written.End)
		return d.syncRegularFile(ctx, args.FH, key, meta, written)
	})
	return reply, err
}

// ReadLink implements spec §4.7's readlink.
func (d *Dispatcher) ReadLink(ctx context.Context, args zfsrpc.ReadLinkArgs) (zfsrpc.ReadLinkReply, error) {
	var reply zfsrpc.ReadLinkReply
	err := d.retryOnStale(args.FH, false, func() error {
		var err error
		if d.Volume.HasLocalPath() {
			reply.Target, err = d.Local.ReadLink(args.FH)
		} else if !d.Volume.IsMaster(d.SelfID) {
			var r zfsrpc.ReadLinkReply
			r, err = d.Client.ReadLink(ctx, args)
			reply = r
		}
		return err
	})
	return reply, err
}

// Symlink implements spec §4.7's write-side symlink creation.
func (d *Dispatcher) Symlink(ctx context.Context, args zfsrpc.SymlinkArgs) (zfsrpc.SymlinkReply, error) {
	var reply zfsrpc.SymlinkReply
	err := d.retryOnStale(args.Dir, true, func() error {
		if err := checkWritable(args.Dir, args.Name); err != nil {
			return err
		}

		var fh zfs.FileHandle
		var attr zfs.Attributes
		var err error
		if d.Volume.HasLocalPath() {
			fh, attr, err = d.Local.Symlink(args.Dir, args.Name, args.Target)
		} else {
			var r zfsrpc.SymlinkReply
			r, err = d.Client.Symlink(ctx, args)
			fh, attr = r.FH, r.Attr
		}
		if err != nil {
			return err
		}

		d.Cache.GetDentry(fh, args.Dir, args.Name, zfs.KindSymlink, metaKeyFor(fh))
		d.bumpVersion(metaKeyFor(args.Dir))
		d.journalAdd(args.Dir, zfs.Undefined, fh, args.Name, journal.OpCreate, 0)

		reply.FH, reply.Attr = fh, attr
		return nil
	})
	return reply, err
}

// MkNod implements spec §4.7's write-side device/special-file creation.
func (d *Dispatcher) MkNod(ctx context.Context, args zfsrpc.MkNodArgs) (zfsrpc.MkNodReply, error) {
	var reply zfsrpc.MkNodReply
	err := d.retryOnStale(args.Dir, true, func() error {
		if err := checkWritable(args.Dir, args.Name); err != nil {
			return err
		}

		var fh zfs.FileHandle
		var attr zfs.Attributes
		var err error
		if d.Volume.HasLocalPath() {
			fh, attr, err = d.Local.MkNod(args.Dir, args.Name, args.Mode, args.Dev)
		} else {
			var r zfsrpc.MkNodReply
			r, err = d.Client.MkNod(ctx, args)
			fh, attr = r.FH, r.Attr
		}
		if err != nil {
			return err
		}

		d.Cache.GetDentry(fh, args.Dir, args.Name, zfs.KindFile, metaKeyFor(fh))
		d.bumpVersion(metaKeyFor(args.Dir))
		d.journalAdd(args.Dir, zfs.Undefined, fh, args.Name, journal.OpCreate, 0)

		reply.FH, reply.Attr = fh, attr
		return nil
	})
	return reply, err
}
