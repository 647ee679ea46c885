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

package capability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zlomekfs/zlomekfs/internal/capability"
	"github.com/zlomekfs/zlomekfs/internal/randsrc"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
)

func TestGetDedupes(t *testing.T) {
	table := capability.NewTable(randsrc.New(0))
	fh := zfs.FileHandle{Ino: 1}

	a, err := table.Get(fh, capability.AccessRead)
	require.NoError(t, err)
	b, err := table.Get(fh, capability.AccessRead)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 2, a.Busy())
}

func TestGetDistinctFlagsDontDedupe(t *testing.T) {
	table := capability.NewTable(randsrc.New(0))
	fh := zfs.FileHandle{Ino: 1}

	a, err := table.Get(fh, capability.AccessRead)
	require.NoError(t, err)
	b, err := table.Get(fh, capability.AccessWrite)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
}

func TestFindVerifiesToken(t *testing.T) {
	table := capability.NewTable(randsrc.New(0))
	fh := zfs.FileHandle{Ino: 1}

	cap, err := table.Get(fh, capability.AccessRead)
	require.NoError(t, err)

	got, err := table.Find(fh, capability.AccessRead, cap.Verify)
	require.NoError(t, err)
	assert.Same(t, cap, got)

	var wrong [randsrc.VerifyLen]byte
	_, err = table.Find(fh, capability.AccessRead, wrong)
	assert.ErrorIs(t, err, capability.ErrBadFile)
}

func TestFdCacheEvictsLRUUnderBudget(t *testing.T) {
	var evicted []zfs.FileHandle
	cache := capability.NewFdCache(10, func(fd capability.Fd) {
		evicted = append(evicted, fd.FH)
	})

	cache.Add(capability.Fd{FH: zfs.FileHandle{Ino: 1}, Size: 5})
	cache.Add(capability.Fd{FH: zfs.FileHandle{Ino: 2}, Size: 5})
	assert.Equal(t, int64(10), cache.Used())

	cache.Add(capability.Fd{FH: zfs.FileHandle{Ino: 3}, Size: 5})
	assert.Equal(t, int64(10), cache.Used())
	assert.Equal(t, []zfs.FileHandle{{Ino: 1}}, evicted)
}
