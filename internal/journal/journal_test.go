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

package journal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zlomekfs/zlomekfs/internal/journal"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
)

func TestHardlinksAddDedupes(t *testing.T) {
	var h journal.Hardlinks
	e := journal.HardlinkEntry{ParentFH: zfs.FileHandle{Ino: 1}, Name: "a"}
	h.Add(e)
	h.Add(e)
	assert.Equal(t, 1, h.Len())
}

func TestHardlinksDel(t *testing.T) {
	var h journal.Hardlinks
	e := journal.HardlinkEntry{ParentFH: zfs.FileHandle{Ino: 1}, Name: "a"}
	h.Add(e)
	assert.True(t, h.Del(e))
	assert.Equal(t, 0, h.Len())
	assert.False(t, h.Del(e))
}

func TestJournalOrderPreserved(t *testing.T) {
	j := journal.New()
	j.Add(journal.Entry{Name: "a", Op: journal.OpCreate})
	j.Add(journal.Entry{Name: "b", Op: journal.OpUnlink})

	entries := j.Entries()
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "b", entries[1].Name)
}

func TestJournalDelAndDrop(t *testing.T) {
	j := journal.New()
	j.Add(journal.Entry{Name: "a", Op: journal.OpCreate})
	assert.True(t, j.Del("a", journal.OpCreate))
	assert.True(t, j.Empty())

	j.Add(journal.Entry{Name: "b", Op: journal.OpRename})
	j.Drop()
	assert.True(t, j.Empty())
}
