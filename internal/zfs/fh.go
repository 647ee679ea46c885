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

// Package zfs holds the data model shared by every ZlomekFS component:
// file handles, attributes, volumes and the taxonomy of errors that
// cross component boundaries.
package zfs

import "fmt"

// NoneSID is the reserved "no server" value of a file handle's sid field.
const NoneSID uint32 = 0

// VirtualVID is the reserved volume id used for virtual mountpoint nodes.
const VirtualVID uint32 = 0

// FileHandle is the 5-tuple that uniquely identifies a file across the
// cluster: (sid, vid, dev, ino, gen). See spec §3.
type FileHandle struct {
	SID uint32
	VID uint32
	Dev uint32
	Ino uint64
	Gen uint32
}

func (fh FileHandle) String() string {
	return fmt.Sprintf("fh(%d,%d,%d,%d,%d)", fh.SID, fh.VID, fh.Dev, fh.Ino, fh.Gen)
}

// IsVirtual reports whether fh names a virtual mountpoint node.
func (fh FileHandle) IsVirtual() bool {
	return fh.VID == VirtualVID && fh.SID == NoneSID
}

// IsNonExistSymlink reports whether fh is a placeholder for a file that
// exists on only one side of a conflict.
func (fh FileHandle) IsNonExistSymlink() bool {
	return fh.VID == VirtualVID && fh.SID != NoneSID
}

// IsConflictDir reports whether fh names a synthetic conflict directory.
func (fh FileHandle) IsConflictDir() bool {
	return fh.SID == NoneSID && fh.VID != VirtualVID
}

// IsRegular reports whether fh names an ordinary, cluster-backed file.
func (fh FileHandle) IsRegular() bool {
	return !fh.IsVirtual() && !fh.IsConflictDir()
}

// Undefined is the zero FileHandle, used to mean "no master fh is known
// yet" per invariant I4.
var Undefined = FileHandle{}

// IsDefined reports whether fh is something other than the zero value.
func (fh FileHandle) IsDefined() bool {
	return fh != Undefined
}

// Attributes mirrors the subset of file attributes the dispatcher and
// update engine reason about. Version is the field invariant I5/I6 talk
// about: attr.Version >= meta.MasterVersion, and the two are equal iff
// there are no unreintegrated local changes.
type Attributes struct {
	Size    uint64
	Version uint64
	Mode    uint32
	Mtime   int64 // unix nanos
	Nlink   uint32
}

// Kind enumerates the file types the filesystem understands.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
	KindConflictDir
)
