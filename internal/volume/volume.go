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

// Package volume implements spec §3's Volume entity: the binding
// between a mountpoint, an optional local on-disk path, the volume's
// metadata store, and the master server that owns it.
package volume

import (
	"sync"
	"sync/atomic"

	"github.com/zlomekfs/zlomekfs/internal/metadata"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
)

// Flags on a Volume.
type Flags uint32

const (
	// FlagLocal marks a volume with a local on-disk path (the master
	// replica, or a fully cached replica).
	FlagLocal Flags = 1 << iota
)

// Volume is one mounted filesystem tree.
type Volume struct {
	ID          uint32
	Master      uint32 // server id; equals the local server id if this is the master
	Mountpoint  string
	LocalPath   string
	Flags       Flags
	RootFH      zfs.FileHandle
	RootVD      zfs.FileHandle
	Store       *metadata.Store
	nLockedFHs  int64
	mu          sync.Mutex
	deleteFlag  bool
}

// New returns a Volume backed by store, with no fhs locked yet.
func New(id uint32, store *metadata.Store) *Volume {
	return &Volume{ID: id, Store: store}
}

// HasLocalPath reports whether this volume has a local on-disk
// representation, i.e. is the master or a cached replica.
func (v *Volume) HasLocalPath() bool {
	return v.Flags&FlagLocal != 0
}

// IsMaster reports whether this server is the master of the volume.
func (v *Volume) IsMaster(selfServerID uint32) bool {
	return v.Master == selfServerID
}

// LockFH increments the count of fhs currently locked on this volume,
// a precondition the volume's deletion path checks.
func (v *Volume) LockFH() {
	atomic.AddInt64(&v.nLockedFHs, 1)
}

// UnlockFH decrements the count.
func (v *Volume) UnlockFH() {
	atomic.AddInt64(&v.nLockedFHs, -1)
}

// NLockedFHs reports the current count.
func (v *Volume) NLockedFHs() int64 {
	return atomic.LoadInt64(&v.nLockedFHs)
}

// MarkForDeletion sets the delete_p flag; the volume cannot actually
// be torn down (spec §3) while NLockedFHs() > 0.
func (v *Volume) MarkForDeletion() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deleteFlag = true
}

// MarkedForDeletion reports the delete_p flag.
func (v *Volume) MarkedForDeletion() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deleteFlag
}

// CanDestroy reports whether the volume is both marked for deletion
// and has no fhs locked on it.
func (v *Volume) CanDestroy() bool {
	return v.MarkedForDeletion() && v.NLockedFHs() == 0
}
