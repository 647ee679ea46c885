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

import "context"

// MasterClient is the RPC surface internal/update and
// internal/dispatcher call against when a volume's master is remote.
// No concrete transport is implemented here; production code is
// expected to supply an implementation wrapping whatever wire codec it
// chooses, and tests use zfsrpctest.FakeMaster instead.
type MasterClient interface {
	Root(ctx context.Context, args RootArgs) (RootReply, error)
	VolumeRoot(ctx context.Context, args VolumeRootArgs) (VolumeRootReply, error)
	GetAttr(ctx context.Context, args GetAttrArgs) (GetAttrReply, error)
	SetAttr(ctx context.Context, args SetAttrArgs) (SetAttrReply, error)
	Lookup(ctx context.Context, args LookupArgs) (LookupReply, error)
	Create(ctx context.Context, args CreateArgs) (CreateReply, error)
	Open(ctx context.Context, args OpenArgs) (OpenReply, error)
	Close(ctx context.Context, args CloseArgs) (CloseReply, error)
	ReadDir(ctx context.Context, args ReadDirArgs) (ReadDirReply, error)
	MkDir(ctx context.Context, args MkDirArgs) (MkDirReply, error)
	RmDir(ctx context.Context, args RmDirArgs) (RmDirReply, error)
	Rename(ctx context.Context, args RenameArgs) (RenameReply, error)
	Link(ctx context.Context, args LinkArgs) (LinkReply, error)
	Unlink(ctx context.Context, args UnlinkArgs) (UnlinkReply, error)
	Read(ctx context.Context, args ReadArgs) (ReadReply, error)
	Write(ctx context.Context, args WriteArgs) (WriteReply, error)
	ReadLink(ctx context.Context, args ReadLinkArgs) (ReadLinkReply, error)
	Symlink(ctx context.Context, args SymlinkArgs) (SymlinkReply, error)
	MkNod(ctx context.Context, args MkNodArgs) (MkNodReply, error)
	AuthStage1(ctx context.Context, args AuthStage1Args) (AuthStage1Reply, error)
	AuthStage2(ctx context.Context, args AuthStage2Args) (AuthStage2Reply, error)
	MD5Sum(ctx context.Context, args MD5SumArgs) (MD5SumReply, error)
	Ping(ctx context.Context, args PingArgs) (PingReply, error)
	FileInfo(ctx context.Context, args FileInfoArgs) (FileInfoReply, error)
	ReintegrateAdd(ctx context.Context, args ReintegrateAddArgs) (ReintegrateAddReply, error)
	ReintegrateDel(ctx context.Context, args ReintegrateDelArgs) (ReintegrateDelReply, error)
	ReintegrateSet(ctx context.Context, args ReintegrateSetArgs) (ReintegrateSetReply, error)
	Reintegrate(ctx context.Context, args ReintegrateArgs) (ReintegrateReply, error)
}
