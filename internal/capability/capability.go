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

// Package capability implements the open-file capability subsystem of
// spec §4.5 (component C5): deduped, reference-counted tokens carrying
// a random verify value the client must echo back on every use.
package capability

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zlomekfs/zlomekfs/internal/randsrc"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
)

// AccessFlags mirrors the O_ACCMODE bits a capability is opened with.
type AccessFlags uint32

const (
	AccessRead AccessFlags = 1 << iota
	AccessWrite
)

// ErrBadFile is returned by Find when the caller-supplied verify bytes
// don't match the capability's.
var ErrBadFile = errors.New("capability: verify mismatch")

// dedupKey is the (fh, flags) pair capabilities are deduplicated on.
type dedupKey struct {
	fh    zfs.FileHandle
	flags AccessFlags
}

// Capability is one open-file token, spec §3's "Capability" entity.
type Capability struct {
	FH            zfs.FileHandle
	Flags         AccessFlags
	Verify        [randsrc.VerifyLen]byte
	busy          int
	masterBusy    int
	masterCapSet  bool
	masterClose   bool // master_close_p: close the remote cap lazily
}

// Busy reports the capability's local reference count.
func (c *Capability) Busy() int { return c.busy }

// MasterClosePending reports whether a remote master cap is held but
// only slated for lazy closing, per §4.5's put_capability note.
func (c *Capability) MasterClosePending() bool { return c.masterClose }

// Table owns every live capability, deduplicated by (fh, flags).
// Safe for concurrent use.
type Table struct {
	mu    sync.Mutex // guards byKey and every capability's busy count
	rnd   *randsrc.Source
	byKey map[dedupKey]*Capability
}

// NewTable returns an empty capability table drawing verify tokens
// from rnd.
func NewTable(rnd *randsrc.Source) *Table {
	return &Table{rnd: rnd, byKey: make(map[dedupKey]*Capability)}
}

// Get implements get_capability's dedup step (§4.5 step 4-5): find an
// existing capability for (fh, flags) and bump its busy count, or mint
// a fresh one with a new random verify value.
func (t *Table) Get(fh zfs.FileHandle, flags AccessFlags) (*Capability, error) {
	if flags&^(AccessRead|AccessWrite) != 0 {
		return nil, fmt.Errorf("capability: invalid access flags %v", flags)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := dedupKey{fh: fh, flags: flags}
	if cap, ok := t.byKey[key]; ok {
		cap.busy++
		return cap, nil
	}

	verify, err := t.rnd.Verify()
	if err != nil {
		return nil, fmt.Errorf("capability: minting verify token: %w", err)
	}
	cap := &Capability{FH: fh, Flags: flags, Verify: verify, busy: 1}
	t.byKey[key] = cap
	return cap, nil
}

// Find looks up the capability for (fh, flags) and checks that verify
// matches, returning ErrBadFile on mismatch.
func (t *Table) Find(fh zfs.FileHandle, flags AccessFlags, verify [randsrc.VerifyLen]byte) (*Capability, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cap, ok := t.byKey[dedupKey{fh: fh, flags: flags}]
	if !ok || cap.Verify != verify {
		return nil, ErrBadFile
	}
	return cap, nil
}

// Put decrements cap's busy count. Once it reaches zero the caller
// (with no remaining dentry users) should call Destroy; Put itself
// does not destroy so the dispatcher can interleave closing the
// backing local fd under its own lock ordering.
func (t *Table) Put(cap *Capability) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cap.busy > 0 {
		cap.busy--
	}
}

// Destroy removes cap from the table. Per §4.5, if a remote master cap
// was held it should be closed lazily rather than eagerly here; the
// caller arranges that via DeferMasterClose before calling
// Destroy when busy has reached zero but the master cap is still live.
func (t *Table) Destroy(cap *Capability) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byKey, dedupKey{fh: cap.FH, flags: cap.Flags})
}

// SetMasterCap records that cap has a remote master capability
// associated with it.
func (c *Capability) SetMasterCap(held bool) {
	c.masterCapSet = held
}

// HasMasterCap reports whether a remote master capability is
// currently associated with c.
func (c *Capability) HasMasterCap() bool { return c.masterCapSet }

// DeferMasterClose marks the remote master cap for lazy closing rather
// than closing it immediately, allowing it to be reused by a
// subsequent Get on the same (fh, flags) before it actually closes.
func (c *Capability) DeferMasterClose() {
	c.masterClose = true
}
