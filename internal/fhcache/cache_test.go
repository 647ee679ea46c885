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

package fhcache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zlomekfs/zlomekfs/internal/fhcache"
	"github.com/zlomekfs/zlomekfs/internal/metadata"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
)

func TestGetDentryInternsAndReturnsSameOnRepeat(t *testing.T) {
	c := fhcache.New()
	parent := zfs.FileHandle{Ino: 1}
	fh := zfs.FileHandle{Ino: 2}

	d1 := c.GetDentry(fh, parent, "a", zfs.KindFile, metadata.Key{Ino: 2})
	d2 := c.GetDentry(fh, parent, "a", zfs.KindFile, metadata.Key{Ino: 2})
	assert.Same(t, d1, d2)
}

func TestGetDentryRecreatesOnFHMismatch(t *testing.T) {
	c := fhcache.New()
	parent := zfs.FileHandle{Ino: 1}

	d1 := c.GetDentry(zfs.FileHandle{Ino: 2}, parent, "a", zfs.KindFile, metadata.Key{Ino: 2})
	d2 := c.GetDentry(zfs.FileHandle{Ino: 3}, parent, "a", zfs.KindFile, metadata.Key{Ino: 3})

	assert.NotSame(t, d1, d2)
	assert.True(t, d1.Deleted())
}

func TestMovePreservesFHIdentity(t *testing.T) {
	c := fhcache.New()
	parent := zfs.FileHandle{Ino: 1}
	newParent := zfs.FileHandle{Ino: 9}
	fh := zfs.FileHandle{Ino: 2}

	d := c.GetDentry(fh, parent, "a", zfs.KindFile, metadata.Key{Ino: 2})
	require_NoError := c.Move(parent, "a", newParent, "b")
	assert.NoError(t, require_NoError)

	got, ok := c.LookupDentryByName(newParent, "b")
	assert.True(t, ok)
	assert.Same(t, d, got)

	_, ok = c.LookupDentryByName(parent, "a")
	assert.False(t, ok)
}

func TestDestroyRemovesFHWhenLastDentry(t *testing.T) {
	c := fhcache.New()
	parent := zfs.FileHandle{Ino: 1}
	fh := zfs.FileHandle{Ino: 2}

	d := c.GetDentry(fh, parent, "a", zfs.KindFile, metadata.Key{Ino: 2})
	destroyed := c.Destroy(d)
	assert.True(t, destroyed)

	_, ok := c.Lookup(fh)
	assert.False(t, ok)
}

func TestSweepEvictsOnlyExpiredUnpinned(t *testing.T) {
	c := fhcache.New()
	parent := zfs.FileHandle{Ino: 1}

	d := c.GetDentry(zfs.FileHandle{Ino: 2}, parent, "a", zfs.KindFile, metadata.Key{Ino: 2})
	d.Unpin()

	c.Sweep(-1) // everything already "expired" relative to a negative threshold shift
	_, ok := c.LookupDentryByName(parent, "a")
	assert.False(t, ok)
}
