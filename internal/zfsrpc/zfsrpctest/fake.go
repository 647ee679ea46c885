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

// Package zfsrpctest provides a test double for zfsrpc.MasterClient,
// in the teacher's style of hand-rolled fakes (gcsproxy/mock,
// clock.SimulatedClock) in place of network mocks or a real transport.
package zfsrpctest

import (
	"context"
	"sync"

	"github.com/zlomekfs/zlomekfs/internal/zfs"
	"github.com/zlomekfs/zlomekfs/internal/zfsrpc"
)

// FakeMaster is an in-memory implementation of zfsrpc.MasterClient
// backed by a map of attributes and directory entries, sufficient for
// exercising internal/update and internal/dispatcher without a real
// network transport.
type FakeMaster struct {
	mu       sync.Mutex
	attrs    map[zfs.FileHandle]zfs.Attributes
	children map[zfs.FileHandle]map[string]zfs.FileHandle
	root     zfs.FileHandle
	data     map[zfs.FileHandle][]byte
}

// NewFakeMaster returns an empty FakeMaster rooted at root.
func NewFakeMaster(root zfs.FileHandle) *FakeMaster {
	return &FakeMaster{
		attrs:    make(map[zfs.FileHandle]zfs.Attributes),
		children: make(map[zfs.FileHandle]map[string]zfs.FileHandle),
		root:     root,
		data:     make(map[zfs.FileHandle][]byte),
	}
}

// SeedAttr lets a test seed fh's attributes directly.
func (f *FakeMaster) SeedAttr(fh zfs.FileHandle, attr zfs.Attributes) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attrs[fh] = attr
}

// AddChild lets a test seed a directory entry directly.
func (f *FakeMaster) AddChild(dir zfs.FileHandle, name string, fh zfs.FileHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.children[dir] == nil {
		f.children[dir] = make(map[string]zfs.FileHandle)
	}
	f.children[dir][name] = fh
}

func (f *FakeMaster) Root(ctx context.Context, args zfsrpc.RootArgs) (zfsrpc.RootReply, error) {
	return zfsrpc.RootReply{FH: f.root}, nil
}

func (f *FakeMaster) VolumeRoot(ctx context.Context, args zfsrpc.VolumeRootArgs) (zfsrpc.VolumeRootReply, error) {
	return zfsrpc.VolumeRootReply{FH: f.root}, nil
}

func (f *FakeMaster) GetAttr(ctx context.Context, args zfsrpc.GetAttrArgs) (zfsrpc.GetAttrReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attr, ok := f.attrs[args.FH]
	if !ok {
		return zfsrpc.GetAttrReply{}, zfs.Stale
	}
	return zfsrpc.GetAttrReply{Attr: attr}, nil
}

func (f *FakeMaster) SetAttr(ctx context.Context, args zfsrpc.SetAttrArgs) (zfsrpc.SetAttrReply, error) {
	f.SeedAttr(args.FH, args.Attr)
	return zfsrpc.SetAttrReply{Attr: args.Attr}, nil
}

func (f *FakeMaster) Lookup(ctx context.Context, args zfsrpc.LookupArgs) (zfsrpc.LookupReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fh, ok := f.children[args.Dir][args.Name]
	if !ok {
		return zfsrpc.LookupReply{}, zfs.Stale
	}
	return zfsrpc.LookupReply{FH: fh, Attr: f.attrs[fh]}, nil
}

func (f *FakeMaster) Create(ctx context.Context, args zfsrpc.CreateArgs) (zfsrpc.CreateReply, error) {
	return zfsrpc.CreateReply{}, nil
}

func (f *FakeMaster) Open(ctx context.Context, args zfsrpc.OpenArgs) (zfsrpc.OpenReply, error) {
	return zfsrpc.OpenReply{}, nil
}

func (f *FakeMaster) Close(ctx context.Context, args zfsrpc.CloseArgs) (zfsrpc.CloseReply, error) {
	return zfsrpc.CloseReply{}, nil
}

func (f *FakeMaster) ReadDir(ctx context.Context, args zfsrpc.ReadDirArgs) (zfsrpc.ReadDirReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []zfsrpc.DirEntry
	for name, fh := range f.children[args.FH] {
		entries = append(entries, zfsrpc.DirEntry{Name: name, FH: fh})
	}
	return zfsrpc.ReadDirReply{Entries: entries, EOF: true}, nil
}

func (f *FakeMaster) MkDir(ctx context.Context, args zfsrpc.MkDirArgs) (zfsrpc.MkDirReply, error) {
	return zfsrpc.MkDirReply{}, nil
}

func (f *FakeMaster) RmDir(ctx context.Context, args zfsrpc.RmDirArgs) (zfsrpc.RmDirReply, error) {
	return zfsrpc.RmDirReply{}, nil
}

func (f *FakeMaster) Rename(ctx context.Context, args zfsrpc.RenameArgs) (zfsrpc.RenameReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fh, ok := f.children[args.FromDir][args.FromName]
	if !ok {
		return zfsrpc.RenameReply{}, zfs.Stale
	}
	delete(f.children[args.FromDir], args.FromName)
	if f.children[args.ToDir] == nil {
		f.children[args.ToDir] = make(map[string]zfs.FileHandle)
	}
	f.children[args.ToDir][args.ToName] = fh
	return zfsrpc.RenameReply{}, nil
}

func (f *FakeMaster) Link(ctx context.Context, args zfsrpc.LinkArgs) (zfsrpc.LinkReply, error) {
	f.AddChild(args.Dir, args.Name, args.FH)
	return zfsrpc.LinkReply{}, nil
}

func (f *FakeMaster) Unlink(ctx context.Context, args zfsrpc.UnlinkArgs) (zfsrpc.UnlinkReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.children[args.Dir], args.Name)
	return zfsrpc.UnlinkReply{}, nil
}

func (f *FakeMaster) Read(ctx context.Context, args zfsrpc.ReadArgs) (zfsrpc.ReadReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data := f.data[args.FH]
	end := args.Offset + uint64(args.Length)
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	if args.Offset > uint64(len(data)) {
		return zfsrpc.ReadReply{EOF: true}, nil
	}
	return zfsrpc.ReadReply{Data: data[args.Offset:end], EOF: end == uint64(len(data))}, nil
}

func (f *FakeMaster) Write(ctx context.Context, args zfsrpc.WriteArgs) (zfsrpc.WriteReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data := f.data[args.FH]
	end := args.Offset + uint64(len(args.Data))
	if end > uint64(len(data)) {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
	}
	copy(data[args.Offset:], args.Data)
	f.data[args.FH] = data
	return zfsrpc.WriteReply{Written: uint32(len(args.Data))}, nil
}

func (f *FakeMaster) ReadLink(ctx context.Context, args zfsrpc.ReadLinkArgs) (zfsrpc.ReadLinkReply, error) {
	return zfsrpc.ReadLinkReply{}, nil
}

func (f *FakeMaster) Symlink(ctx context.Context, args zfsrpc.SymlinkArgs) (zfsrpc.SymlinkReply, error) {
	return zfsrpc.SymlinkReply{}, nil
}

func (f *FakeMaster) MkNod(ctx context.Context, args zfsrpc.MkNodArgs) (zfsrpc.MkNodReply, error) {
	return zfsrpc.MkNodReply{}, nil
}

func (f *FakeMaster) AuthStage1(ctx context.Context, args zfsrpc.AuthStage1Args) (zfsrpc.AuthStage1Reply, error) {
	return zfsrpc.AuthStage1Reply{}, nil
}

func (f *FakeMaster) AuthStage2(ctx context.Context, args zfsrpc.AuthStage2Args) (zfsrpc.AuthStage2Reply, error) {
	return zfsrpc.AuthStage2Reply{OK: true}, nil
}

func (f *FakeMaster) MD5Sum(ctx context.Context, args zfsrpc.MD5SumArgs) (zfsrpc.MD5SumReply, error) {
	return zfsrpc.MD5SumReply{}, nil
}

func (f *FakeMaster) Ping(ctx context.Context, args zfsrpc.PingArgs) (zfsrpc.PingReply, error) {
	return zfsrpc.PingReply{}, nil
}

func (f *FakeMaster) FileInfo(ctx context.Context, args zfsrpc.FileInfoArgs) (zfsrpc.FileInfoReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return zfsrpc.FileInfoReply{Attr: f.attrs[args.FH]}, nil
}

func (f *FakeMaster) ReintegrateAdd(ctx context.Context, args zfsrpc.ReintegrateAddArgs) (zfsrpc.ReintegrateAddReply, error) {
	f.AddChild(args.Dir, args.Name, args.FH)
	return zfsrpc.ReintegrateAddReply{}, nil
}

func (f *FakeMaster) ReintegrateDel(ctx context.Context, args zfsrpc.ReintegrateDelArgs) (zfsrpc.ReintegrateDelReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.children[args.Dir], args.Name)
	return zfsrpc.ReintegrateDelReply{}, nil
}

func (f *FakeMaster) ReintegrateSet(ctx context.Context, args zfsrpc.ReintegrateSetArgs) (zfsrpc.ReintegrateSetReply, error) {
	f.SeedAttr(args.FH, args.Attr)
	return zfsrpc.ReintegrateSetReply{}, nil
}

func (f *FakeMaster) Reintegrate(ctx context.Context, args zfsrpc.ReintegrateArgs) (zfsrpc.ReintegrateReply, error) {
	return f.writeReintegrate(args)
}

func (f *FakeMaster) writeReintegrate(args zfsrpc.ReintegrateArgs) (zfsrpc.ReintegrateReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[args.FH] = append([]byte(nil), args.Data...)
	return zfsrpc.ReintegrateReply{}, nil
}

var _ zfsrpc.MasterClient = (*FakeMaster)(nil)
