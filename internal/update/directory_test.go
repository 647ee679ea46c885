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

package update_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zlomekfs/zlomekfs/internal/journal"
	"github.com/zlomekfs/zlomekfs/internal/metadata"
	"github.com/zlomekfs/zlomekfs/internal/update"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
	"github.com/zlomekfs/zlomekfs/internal/zfsrpc"
	"github.com/zlomekfs/zlomekfs/internal/zfsrpc/zfsrpctest"
)

// fakeDirLookup implements update.DirLookup over a fixed name->fh map,
// standing in for the dispatcher's real local directory listing.
type fakeDirLookup struct {
	children map[string]zfs.FileHandle
}

func (f fakeDirLookup) LocalLookup(dir zfs.FileHandle, name string) (zfs.FileHandle, bool) {
	fh, ok := f.children[name]
	return fh, ok
}

// TestReintegrateDirectoryReplaysJournal exercises spec §8's S5
// scenario end-to-end: a local mkdir recorded while the master was
// offline is reintegrated once it returns, the journal entry is
// dropped, and the directory's own master_version is brought in line.
func TestReintegrateDirectoryReplaysJournal(t *testing.T) {
	ctx := context.Background()
	store, err := metadata.Open(metadata.NewMemBackend())
	require.NoError(t, err)

	dir := zfs.FileHandle{Ino: 1}
	dirKey := metadata.Key{Dev: dir.Dev, Ino: dir.Ino}
	require.NoError(t, store.Insert(dirKey, metadata.Record{
		Dev: dir.Dev, Ino: dir.Ino, LocalVersion: 2, MasterVersion: 1, Flags: metadata.FlagModified,
	}))

	localSub := zfs.FileHandle{Ino: 42}
	local := fakeDirLookup{children: map[string]zfs.FileHandle{"d": localSub}}

	master := zfsrpctest.NewFakeMaster(zfs.FileHandle{})
	master.SeedAttr(dir, zfs.Attributes{Version: 1})

	j := journal.New()
	j.Add(journal.Entry{Name: "d", LocalFH: localSub, Op: journal.OpCreate})

	var createdMasterFH zfs.FileHandle
	mkRemote := func(ctx context.Context, name string, localFH zfs.FileHandle) (zfs.FileHandle, error) {
		createdMasterFH = zfs.FileHandle{Ino: 500}
		master.AddChild(dir, name, createdMasterFH)
		master.SeedAttr(createdMasterFH, zfs.Attributes{})
		return createdMasterFH, nil
	}

	err = update.ReintegrateDirectory(ctx, master, local, store, dir, dirKey, j, mkRemote)
	require.NoError(t, err)

	assert.True(t, j.Empty())

	lookup, err := master.Lookup(ctx, zfsrpc.LookupArgs{Dir: dir, Name: "d"})
	require.NoError(t, err)
	assert.Equal(t, createdMasterFH, lookup.FH)

	subKey := metadata.Key{Dev: localSub.Dev, Ino: localSub.Ino}
	subRec, err := store.Lookup(subKey, false)
	require.NoError(t, err)
	assert.Equal(t, createdMasterFH, subRec.MasterFH)

	dirRec, err := store.Lookup(dirKey, false)
	require.NoError(t, err)
	assert.Equal(t, dirRec.LocalVersion, dirRec.MasterVersion)
	assert.Zero(t, dirRec.Flags&metadata.FlagModified)
}

// TestReintegrateDirectoryDetectsNameConflict covers spec §8's S4
// shape on the directory-entry side: both local and master independently
// created an entry under the same name pointing at different master
// fhs, which ReintegrateDirectory must surface rather than silently
// picking a winner.
func TestReintegrateDirectoryDetectsNameConflict(t *testing.T) {
	ctx := context.Background()
	store, err := metadata.Open(metadata.NewMemBackend())
	require.NoError(t, err)

	dir := zfs.FileHandle{Ino: 1}
	dirKey := metadata.Key{Dev: dir.Dev, Ino: dir.Ino}
	require.NoError(t, store.Insert(dirKey, metadata.Record{Dev: dir.Dev, Ino: dir.Ino}))

	localSub := zfs.FileHandle{Ino: 42}
	local := fakeDirLookup{children: map[string]zfs.FileHandle{"f": localSub}}

	remoteSub := zfs.FileHandle{Ino: 99}
	master := zfsrpctest.NewFakeMaster(zfs.FileHandle{})
	master.AddChild(dir, "f", remoteSub)

	j := journal.New()
	j.Add(journal.Entry{Name: "f", LocalFH: localSub, Op: journal.OpCreate, MasterFH: zfs.FileHandle{Ino: 7}})

	err = update.ReintegrateDirectory(ctx, master, local, store, dir, dirKey, j, nil)
	assert.ErrorIs(t, err, update.ErrConflict)
}
