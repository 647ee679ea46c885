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
	"errors"

	"github.com/zlomekfs/zlomekfs/internal/zfs"
)

// ErrConflict signals that an operation produced a conflict rather
// than a hard failure; the caller is expected to materialize a
// conflict directory instead of surfacing an error to the user.
var ErrConflict = errors.New("update: conflict between local and remote")

// ConflictDir is the synthetic directory of spec §4.4-I7: exactly two
// subdentries, one named after the local side and one after the
// remote side.
type ConflictDir struct {
	FH         zfs.FileHandle
	LocalName  string
	LocalFH    zfs.FileHandle
	RemoteName string
	RemoteFH   zfs.FileHandle
	hasLocal   bool
	hasRemote  bool
}

// NewConflictDir creates a conflict directory with both sides present.
func NewConflictDir(fh zfs.FileHandle, localName string, localFH zfs.FileHandle, remoteName string, remoteFH zfs.FileHandle) *ConflictDir {
	return &ConflictDir{
		FH: fh, LocalName: localName, LocalFH: localFH,
		RemoteName: remoteName, RemoteFH: remoteFH,
		hasLocal: true, hasRemote: true,
	}
}

// Resolution is the outcome of applying §4.8's conflict resolution
// policy to a ConflictDir's current children.
type Resolution int

const (
	// ResolutionRemainConflict means no rule applies yet.
	ResolutionRemainConflict Resolution = iota
	// ResolutionDestroy means zero children remain: drop the conflict,
	// restore a normal (now-empty) directory.
	ResolutionDestroy
	// ResolutionPromoteLocal means exactly one regular child remains and
	// it should be promoted into the parent's slot under its own name.
	ResolutionPromoteLocal
	ResolutionPromoteRemote
	// ResolutionKeepLocal means both children are regular, the local
	// side's master_fh equals the remote side's local_fh, and versions
	// haven't both advanced past master_version: keep local, drop remote.
	ResolutionKeepLocal
)

// DropLocal removes the local child, e.g. because it was deleted.
func (c *ConflictDir) DropLocal() { c.hasLocal = false }

// DropRemote removes the remote child.
func (c *ConflictDir) DropRemote() { c.hasRemote = false }

// Resolve applies spec §4.8's conflict resolution policy. localMasterFH
// is the local side's recorded master_fh (zero if none); the caller
// passes whether versions have both advanced past master_version.
func (c *ConflictDir) Resolve(localMasterFH zfs.FileHandle, bothAdvanced bool) Resolution {
	switch {
	case !c.hasLocal && !c.hasRemote:
		return ResolutionDestroy
	case c.hasLocal && !c.hasRemote:
		return ResolutionPromoteLocal
	case !c.hasLocal && c.hasRemote:
		return ResolutionPromoteRemote
	case localMasterFH == c.RemoteFH && !bothAdvanced:
		return ResolutionKeepLocal
	default:
		return ResolutionRemainConflict
	}
}
