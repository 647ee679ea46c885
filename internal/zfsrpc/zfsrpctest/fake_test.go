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

package zfsrpctest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zlomekfs/zlomekfs/internal/zfs"
	"github.com/zlomekfs/zlomekfs/internal/zfsrpc"
	"github.com/zlomekfs/zlomekfs/internal/zfsrpc/zfsrpctest"
)

func TestLookupAndReadWrite(t *testing.T) {
	root := zfs.FileHandle{Ino: 1}
	m := zfsrpctest.NewFakeMaster(root)

	childFH := zfs.FileHandle{Ino: 2}
	m.AddChild(root, "a.txt", childFH)
	m.SeedAttr(childFH, zfs.Attributes{Size: 0})

	ctx := context.Background()
	lookup, err := m.Lookup(ctx, zfsrpc.LookupArgs{Dir: root, Name: "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, childFH, lookup.FH)

	_, err = m.Write(ctx, zfsrpc.WriteArgs{FH: childFH, Offset: 0, Data: []byte("hello")})
	require.NoError(t, err)

	read, err := m.Read(ctx, zfsrpc.ReadArgs{FH: childFH, Offset: 0, Length: 5})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(read.Data))
}

func TestLookupMissingIsStale(t *testing.T) {
	m := zfsrpctest.NewFakeMaster(zfs.FileHandle{Ino: 1})
	_, err := m.Lookup(context.Background(), zfsrpc.LookupArgs{Dir: zfs.FileHandle{Ino: 1}, Name: "missing"})
	assert.ErrorIs(t, err, zfs.Stale)
}
