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

package dispatcher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zlomekfs/zlomekfs/internal/capability"
	"github.com/zlomekfs/zlomekfs/internal/dispatcher"
	"github.com/zlomekfs/zlomekfs/internal/fhcache"
	"github.com/zlomekfs/zlomekfs/internal/lockmgr"
	"github.com/zlomekfs/zlomekfs/internal/metadata"
	"github.com/zlomekfs/zlomekfs/internal/randsrc"
	"github.com/zlomekfs/zlomekfs/internal/update"
	"github.com/zlomekfs/zlomekfs/internal/volume"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
	"github.com/zlomekfs/zlomekfs/internal/zfsrpc"
	"github.com/zlomekfs/zlomekfs/internal/zfsrpc/zfsrpctest"
)

// newCachedTestDispatcher returns a Dispatcher for a volume with a
// local on-disk replica whose master is a different server, the case
// spec §2's data-flow statement and §4.8 govern.
func newCachedTestDispatcher(t *testing.T) (*dispatcher.Dispatcher, *fakeLocal, *zfsrpctest.FakeMaster) {
	t.Helper()
	store, err := metadata.Open(metadata.NewMemBackend())
	require.NoError(t, err)

	vol := volume.New(1, store)
	vol.Flags |= volume.FlagLocal
	vol.Master = 2

	local := newFakeLocal()
	rnd := randsrc.New(randsrc.DefaultBatchSize)
	master := zfsrpctest.NewFakeMaster(zfs.FileHandle{})

	d := dispatcher.New(vol, fhcache.New(), lockmgr.New(), capability.NewTable(rnd), master, nil, local, 1)
	return d, local, master
}

func TestGetAttrPullsFreshDataWhenMasterAdvanced(t *testing.T) {
	d, local, master := newCachedTestDispatcher(t)
	ctx := context.Background()
	dir := zfs.FileHandle{Ino: 1}

	fh, _, err := local.Create(dir, "f", 0644)
	require.NoError(t, err)
	d.Cache.GetDentry(fh, dir, "f", zfs.KindFile, metadata.Key{Dev: fh.Dev, Ino: fh.Ino})

	masterFH := zfs.FileHandle{Ino: 500}
	master.SeedAttr(masterFH, zfs.Attributes{Size: 5, Version: 3})
	_, err = master.Write(ctx, zfsrpc.WriteArgs{FH: masterFH, Offset: 0, Data: []byte("fresh")})
	require.NoError(t, err)

	key := metadata.Key{Dev: fh.Dev, Ino: fh.Ino}
	require.NoError(t, d.Volume.Store.Insert(key, metadata.Record{Dev: fh.Dev, Ino: fh.Ino, MasterFH: masterFH}))

	_, err = d.GetAttr(ctx, zfsrpc.GetAttrArgs{FH: fh})
	require.NoError(t, err)

	got, err := local.Read(fh, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))
}

func TestWriteReintegratesPendingLocalChanges(t *testing.T) {
	d, _, master := newCachedTestDispatcher(t)
	ctx := context.Background()
	dir := zfs.FileHandle{Ino: 1}

	created, err := d.Create(ctx, zfsrpc.CreateArgs{Dir: dir, Name: "f", Mode: 0644})
	require.NoError(t, err)

	masterFH := zfs.FileHandle{Ino: 500}
	master.SeedAttr(masterFH, zfs.Attributes{})

	key := metadata.Key{Dev: created.FH.Dev, Ino: created.FH.Ino}
	rec, err := d.Volume.Store.Lookup(key, false)
	require.NoError(t, err)
	rec.MasterFH = masterFH
	require.NoError(t, d.Volume.Store.Insert(key, rec))

	_, err = d.Write(ctx, zfsrpc.WriteArgs{FH: created.FH, Offset: 0, Data: []byte("payload")})
	require.NoError(t, err)

	reply, err := master.Read(ctx, zfsrpc.ReadArgs{FH: masterFH, Offset: 0, Length: 7})
	require.NoError(t, err)
	assert.Equal(t, "payload", string(reply.Data))

	final, err := d.Volume.Store.Lookup(key, false)
	require.NoError(t, err)
	assert.Equal(t, final.LocalVersion, final.MasterVersion)
	assert.Zero(t, final.Flags&metadata.FlagModified)
}

func TestGetAttrMaterializesConflictDirectory(t *testing.T) {
	d, local, master := newCachedTestDispatcher(t)
	ctx := context.Background()
	dir := zfs.FileHandle{Ino: 1}

	fh, _, err := local.Create(dir, "f", 0644)
	require.NoError(t, err)
	d.Cache.GetDentry(fh, dir, "f", zfs.KindFile, metadata.Key{Dev: fh.Dev, Ino: fh.Ino})

	masterFH := zfs.FileHandle{Ino: 500}
	master.SeedAttr(masterFH, zfs.Attributes{Version: 9})

	key := metadata.Key{Dev: fh.Dev, Ino: fh.Ino}
	require.NoError(t, d.Volume.Store.Insert(key, metadata.Record{
		Dev: fh.Dev, Ino: fh.Ino, MasterFH: masterFH,
		LocalVersion: 5, MasterVersion: 4, Flags: metadata.FlagModified,
		ParentDev: dir.Dev, ParentIno: dir.Ino, Name: "f",
	}))

	_, err = d.GetAttr(ctx, zfsrpc.GetAttrArgs{FH: fh})
	require.NoError(t, err)

	conflict, ok := d.ConflictFor(fh)
	require.True(t, ok)
	assert.Equal(t, update.ResolutionRemainConflict, conflict.Resolve(zfs.FileHandle{}, false))

	dentry, ok := d.Cache.LookupDentryByName(dir, "f")
	require.True(t, ok)
	assert.True(t, dentry.FH.FH.IsConflictDir())
}
