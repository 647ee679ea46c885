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

package zfsrpc

import "github.com/zlomekfs/zlomekfs/internal/zfs"

// Args/Reply pairs for every RPC of spec §6. Fields carry only the
// name/shape information the logical interface needs; wire encoding is
// out of scope (spec §1).

type RootArgs struct{}
type RootReply struct{ FH zfs.FileHandle }

type VolumeRootArgs struct{ VID uint32 }
type VolumeRootReply struct{ FH zfs.FileHandle }

type GetAttrArgs struct{ FH zfs.FileHandle }
type GetAttrReply struct{ Attr zfs.Attributes }

type SetAttrArgs struct {
	FH   zfs.FileHandle
	Attr zfs.Attributes
}
type SetAttrReply struct{ Attr zfs.Attributes }

type LookupArgs struct {
	Dir  zfs.FileHandle
	Name string
}
type LookupReply struct {
	FH   zfs.FileHandle
	Attr zfs.Attributes
}

type CreateArgs struct {
	Dir   zfs.FileHandle
	Name  string
	Mode  uint32
	Flags uint32
}
type CreateReply struct {
	FH   zfs.FileHandle
	Attr zfs.Attributes
}

type OpenArgs struct {
	FH    zfs.FileHandle
	Flags uint32
}
type OpenReply struct{ Verify [VerifyLen]byte }

type CloseArgs struct{ FH zfs.FileHandle }
type CloseReply struct{}

type DirEntry struct {
	Name string
	FH   zfs.FileHandle
}

type ReadDirArgs struct {
	FH     zfs.FileHandle
	Cookie uint64
}
type ReadDirReply struct {
	Entries []DirEntry
	EOF     bool
}

type MkDirArgs struct {
	Dir  zfs.FileHandle
	Name string
	Mode uint32
}
type MkDirReply struct {
	FH   zfs.FileHandle
	Attr zfs.Attributes
}

type RmDirArgs struct {
	Dir  zfs.FileHandle
	Name string
}
type RmDirReply struct{}

type RenameArgs struct {
	FromDir  zfs.FileHandle
	FromName string
	ToDir    zfs.FileHandle
	ToName   string
}
type RenameReply struct{}

type LinkArgs struct {
	FH      zfs.FileHandle
	Dir     zfs.FileHandle
	Name    string
}
type LinkReply struct{}

type UnlinkArgs struct {
	Dir  zfs.FileHandle
	Name string
}
type UnlinkReply struct{}

type ReadArgs struct {
	FH     zfs.FileHandle
	Offset uint64
	Length uint32
}
type ReadReply struct {
	Data []byte
	EOF  bool
}

type WriteArgs struct {
	FH     zfs.FileHandle
	Offset uint64
	Data   []byte
}
type WriteReply struct{ Written uint32 }

type ReadLinkArgs struct{ FH zfs.FileHandle }
type ReadLinkReply struct{ Target string }

type SymlinkArgs struct {
	Dir    zfs.FileHandle
	Name   string
	Target string
}
type SymlinkReply struct {
	FH   zfs.FileHandle
	Attr zfs.Attributes
}

type MkNodArgs struct {
	Dir  zfs.FileHandle
	Name string
	Mode uint32
	Dev  uint32
}
type MkNodReply struct {
	FH   zfs.FileHandle
	Attr zfs.Attributes
}

type AuthStage1Args struct{ Principal string }
type AuthStage1Reply struct{ Challenge [VerifyLen]byte }

type AuthStage2Args struct{ Response [VerifyLen]byte }
type AuthStage2Reply struct{ OK bool }

type MD5Range struct {
	Offset uint64
	Length uint64
}

type MD5SumArgs struct {
	FH     zfs.FileHandle
	Ranges []MD5Range // len <= MaxMD5Chunks
}
type MD5SumReply struct {
	Digests [][MD5Size]byte
}

type PingArgs struct{}
type PingReply struct{}

type FileInfoArgs struct{ FH zfs.FileHandle }
type FileInfoReply struct {
	Attr       zfs.Attributes
	NLinks     uint32
}

type ReintegrateAddArgs struct {
	Dir           zfs.FileHandle
	Name          string
	FH            zfs.FileHandle
	MasterVersion uint64
}
type ReintegrateAddReply struct{}

type ReintegrateDelArgs struct {
	Dir           zfs.FileHandle
	Name          string
	MasterVersion uint64
}
type ReintegrateDelReply struct{}

type ReintegrateSetArgs struct {
	FH   zfs.FileHandle
	Attr zfs.Attributes
}
type ReintegrateSetReply struct{}

type ReintegrateArgs struct {
	FH   zfs.FileHandle
	Data []byte
}
type ReintegrateReply struct{}
