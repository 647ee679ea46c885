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
	"crypto/md5"
	"fmt"

	"github.com/zlomekfs/zlomekfs/internal/ivltree"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
	"github.com/zlomekfs/zlomekfs/internal/zfsrpc"
)

// LocalBackingStore is the byte-range read/write surface the engine
// needs over the local copy of a regular file. Its concrete backing
// (the out-of-scope on-disk layout) is supplied by the caller.
type LocalBackingStore interface {
	ReadRange(fh zfs.FileHandle, start, end uint64) ([]byte, error)
	WriteRange(fh zfs.FileHandle, start uint64, data []byte) error
	Truncate(fh zfs.FileHandle, size uint64) error
}

// RegularFileState is the mutable range-tracking state of one regular
// fh (spec §3's "UPDATED"/"MODIFIED" interval trees).
type RegularFileState struct {
	Updated  *ivltree.Tree
	Modified *ivltree.Tree
}

// NewRegularFileState returns empty UPDATED/MODIFIED trees.
func NewRegularFileState() *RegularFileState {
	return &RegularFileState{Updated: ivltree.New(), Modified: ivltree.New()}
}

// chunkRanges splits ranges into batches of at most maxChunks entries,
// matching spec §4.8 step 2's ZFS_MAX_MD5_CHUNKS limit.
func chunkRanges(ranges []ivltree.Interval, maxChunks int) [][]ivltree.Interval {
	var out [][]ivltree.Interval
	for len(ranges) > 0 {
		n := maxChunks
		if n > len(ranges) {
			n = len(ranges)
		}
		out = append(out, ranges[:n])
		ranges = ranges[n:]
	}
	return out
}

func localMD5(store LocalBackingStore, fh zfs.FileHandle, r ivltree.Interval) ([md5.Size]byte, error) {
	data, err := store.ReadRange(fh, r.Start, r.End)
	if err != nil {
		return [md5.Size]byte{}, err
	}
	return md5.Sum(data), nil
}

// UpdateRegularFile implements spec §4.8's regular-file update steps
// 1-7: it pulls only the byte ranges of `requested` not already known
// current, verifying via MD5 before falling back to a full read, and
// records newly-verified ranges into state.Updated.
func UpdateRegularFile(ctx context.Context, client zfsrpc.MasterClient, store LocalBackingStore, fh, masterFH zfs.FileHandle, state *RegularFileState, requested ivltree.Interval, remoteSize uint64, localSize uint64) error {
	if remoteSize < localSize {
		if err := store.Truncate(fh, remoteSize); err != nil {
			return fmt.Errorf("update: truncating %s: %w", fh, err)
		}
		state.Updated.Delete(remoteSize, localSize)
		state.Modified.Delete(remoteSize, localSize)
	}

	needed := state.Updated.Complement(requested.Start, requested.End)
	var stillModified []ivltree.Interval
	for _, r := range needed {
		stillModified = append(stillModified, state.Modified.Complement(r.Start, r.End)...)
	}

	for _, batch := range chunkRanges(stillModified, zfsrpc.MaxMD5Chunks) {
		ranges := make([]zfsrpc.MD5Range, len(batch))
		for i, r := range batch {
			ranges[i] = zfsrpc.MD5Range{Offset: r.Start, Length: r.End - r.Start}
		}

		reply, err := client.MD5Sum(ctx, zfsrpc.MD5SumArgs{FH: masterFH, Ranges: ranges})
		if err != nil {
			return fmt.Errorf("update: md5sum %s: %w", fh, err)
		}

		for i, r := range batch {
			localDigest, err := localMD5(store, fh, r)
			if err != nil {
				return fmt.Errorf("update: local md5 %s: %w", fh, err)
			}

			if i < len(reply.Digests) && reply.Digests[i] == localDigest {
				state.Updated.Insert(r.Start, r.End)
				state.Modified.Delete(r.Start, r.End)
				continue
			}

			read, err := client.Read(ctx, zfsrpc.ReadArgs{FH: masterFH, Offset: r.Start, Length: uint32(r.End - r.Start)})
			if err != nil {
				return fmt.Errorf("update: read %s: %w", fh, err)
			}
			if err := store.WriteRange(fh, r.Start, read.Data); err != nil {
				return fmt.Errorf("update: writing local %s: %w", fh, err)
			}
			state.Updated.Insert(r.Start, r.End)
		}
	}

	return nil
}

// ReintegrateRegularFile implements spec §4.8's regular-file
// reintegrate steps: push every MODIFIED range to master, then bump
// the master's version once MODIFIED is empty.
func ReintegrateRegularFile(ctx context.Context, client zfsrpc.MasterClient, store LocalBackingStore, fh, masterFH zfs.FileHandle, state *RegularFileState, localVersion uint64) (masterVersion uint64, err error) {
	for _, r := range state.Modified.Intervals() {
		data, err := store.ReadRange(fh, r.Start, r.End)
		if err != nil {
			return 0, fmt.Errorf("reintegrate: reading local %s: %w", fh, err)
		}
		if _, err := client.Write(ctx, zfsrpc.WriteArgs{FH: masterFH, Offset: r.Start, Data: data}); err != nil {
			return 0, fmt.Errorf("reintegrate: pushing %s: %w", fh, err)
		}
		state.Modified.Delete(r.Start, r.End)
		state.Updated.Insert(r.Start, r.End)
	}

	if !state.Modified.Empty() {
		return 0, nil
	}

	if _, err := client.ReintegrateSet(ctx, zfsrpc.ReintegrateSetArgs{FH: masterFH, Attr: zfs.Attributes{Version: localVersion}}); err != nil {
		return 0, fmt.Errorf("reintegrate: reintegrate_set %s: %w", fh, err)
	}
	return localVersion, nil
}
