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

package update

import (
	"context"
	"fmt"

	"github.com/zlomekfs/zlomekfs/internal/journal"
	"github.com/zlomekfs/zlomekfs/internal/metadata"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
	"github.com/zlomekfs/zlomekfs/internal/zfsrpc"
)

// DirLookup abstracts the local and remote lookups directory
// reintegration needs; internal/dispatcher supplies the concrete local
// half, zfsrpc.MasterClient the remote half.
type DirLookup interface {
	LocalLookup(dir zfs.FileHandle, name string) (zfs.FileHandle, bool)
}

// ReintegrateDirectory implements spec §4.8's directory-reintegrate
// algorithm: replay j oldest-first against master, dropping each entry
// once handled, then align the directory's own metadata record with
// master's actual version once the journal is drained.
func ReintegrateDirectory(ctx context.Context, client zfsrpc.MasterClient, local DirLookup, store *metadata.Store, dir zfs.FileHandle, dirKey metadata.Key, j *journal.Journal, mkRemote func(ctx context.Context, name string, localFH zfs.FileHandle) (zfs.FileHandle, error)) error {
	for _, e := range j.Entries() {
		switch e.Op {
		case journal.OpCreate, journal.OpLink:
			if err := reintegrateAdd(ctx, client, local, store, dir, e, mkRemote); err != nil {
				return err
			}
		case journal.OpUnlink:
			if err := reintegrateDel(ctx, client, dir, e); err != nil {
				return err
			}
		}
		j.Del(e.Name, e.Op)
	}

	if !j.Empty() {
		return nil
	}
	return alignMasterVersion(ctx, client, store, dir, dirKey)
}

// alignMasterVersion implements spec §4.8's directory-reintegrate final
// step: once the journal is empty, bring meta.master_version in line
// with master's actual version, pushing it via remote_reintegrate_set
// only when the two disagree.
func alignMasterVersion(ctx context.Context, client zfsrpc.MasterClient, store *metadata.Store, dir zfs.FileHandle, dirKey metadata.Key) error {
	rec, err := store.Lookup(dirKey, false)
	if err != nil {
		return fmt.Errorf("update: reintegrate directory: loading metadata: %w", err)
	}

	remote, err := client.GetAttr(ctx, zfsrpc.GetAttrArgs{FH: dir})
	if err != nil {
		return fmt.Errorf("update: reintegrate directory: fetching master version: %w", err)
	}

	if remote.Attr.Version != rec.LocalVersion {
		if _, err := client.ReintegrateSet(ctx, zfsrpc.ReintegrateSetArgs{FH: dir, Attr: zfs.Attributes{Version: rec.LocalVersion}}); err != nil {
			return fmt.Errorf("update: reintegrate directory: reintegrate_set: %w", err)
		}
	}

	rec.MasterVersion = rec.LocalVersion
	rec.Flags &^= metadata.FlagModified
	if err := store.Insert(dirKey, rec); err != nil {
		return fmt.Errorf("update: reintegrate directory: saving metadata: %w", err)
	}
	return nil
}

func reintegrateAdd(ctx context.Context, client zfsrpc.MasterClient, local DirLookup, store *metadata.Store, dir zfs.FileHandle, e journal.Entry, mkRemote func(ctx context.Context, name string, localFH zfs.FileHandle) (zfs.FileHandle, error)) error {
	localFH, localOK := local.LocalLookup(dir, e.Name)
	if !localOK {
		// Local absent: spec §4.8 says drop the entry (the caller drops it).
		return nil
	}

	lookup, err := client.Lookup(ctx, zfsrpc.LookupArgs{Dir: dir, Name: e.Name})
	remoteExists := err == nil

	switch {
	case remoteExists && lookup.FH != e.MasterFH:
		// Both sides have this name but disagree: conflict handling (§4.4-I7)
		// is the dispatcher's responsibility once it observes this; the
		// engine surfaces it rather than guessing a resolution here.
		return fmt.Errorf("update: reintegrate add %q: %w", e.Name, ErrConflict)

	case remoteExists:
		return nil

	case !e.MasterFH.IsDefined():
		masterFH, err := mkRemote(ctx, e.Name, localFH)
		if err != nil {
			return fmt.Errorf("update: creating %q on master: %w", e.Name, err)
		}

		key := metadata.Key{Dev: localFH.Dev, Ino: localFH.Ino}
		rec, err := store.Lookup(key, true)
		if err != nil {
			return fmt.Errorf("update: persisting master fh for %q: %w", e.Name, err)
		}
		rec.MasterFH = masterFH
		if err := store.Insert(key, rec); err != nil {
			return fmt.Errorf("update: persisting master fh for %q: %w", e.Name, err)
		}
		return nil

	default:
		_, err := client.ReintegrateAdd(ctx, zfsrpc.ReintegrateAddArgs{Dir: dir, Name: e.Name, FH: e.MasterFH, MasterVersion: e.MasterVersion})
		if err != nil {
			return fmt.Errorf("update: reintegrate_add %q: %w", e.Name, err)
		}
		return nil
	}
}

func reintegrateDel(ctx context.Context, client zfsrpc.MasterClient, dir zfs.FileHandle, e journal.Entry) error {
	lookup, err := client.Lookup(ctx, zfsrpc.LookupArgs{Dir: dir, Name: e.Name})
	if err != nil {
		// Already gone remotely.
		return nil
	}
	if lookup.FH != e.MasterFH {
		return nil
	}
	_, err = client.ReintegrateDel(ctx, zfsrpc.ReintegrateDelArgs{Dir: dir, Name: e.Name, MasterVersion: e.MasterVersion})
	if err != nil {
		return fmt.Errorf("update: reintegrate_del %q: %w", e.Name, err)
	}
	return nil
}
