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

package fhcache

import "github.com/zlomekfs/zlomekfs/internal/zfs"

// VirtualDir is a node of the read-only mount tree overlaid on top of
// volumes, spec §3's "Virtual directory" entity.
type VirtualDir struct {
	FH       zfs.FileHandle
	Parent   zfs.FileHandle
	Name     string
	VolumeID uint32 // zero if no volume is attached at this node
	Children []zfs.FileHandle
}

// HasVolume reports whether a volume is mounted at this virtual
// directory.
func (v *VirtualDir) HasVolume() bool { return v.VolumeID != 0 }
