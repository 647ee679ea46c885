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

package ivltree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zlomekfs/zlomekfs/internal/ivltree"
)

func TestInsertCoalescesAdjacentAndOverlapping(t *testing.T) {
	tr := ivltree.New()
	tr.Insert(0, 10)
	tr.Insert(10, 20) // adjacent, must coalesce
	tr.Insert(25, 30)
	tr.Insert(18, 26) // overlaps both neighbors, must merge all three

	tr.CheckInvariants()
	assert.Equal(t, []ivltree.Interval{{Start: 0, End: 30}}, tr.Intervals())
}

func TestInsertDisjoint(t *testing.T) {
	tr := ivltree.New()
	tr.Insert(0, 5)
	tr.Insert(10, 15)
	tr.CheckInvariants()

	assert.Equal(t, []ivltree.Interval{{Start: 0, End: 5}, {Start: 10, End: 15}}, tr.Intervals())
}

func TestDeleteSplits(t *testing.T) {
	tr := ivltree.New()
	tr.Insert(0, 20)
	tr.Delete(8, 12)
	tr.CheckInvariants()

	assert.Equal(t, []ivltree.Interval{{Start: 0, End: 8}, {Start: 12, End: 20}}, tr.Intervals())
}

func TestDeleteWholeInterval(t *testing.T) {
	tr := ivltree.New()
	tr.Insert(0, 10)
	tr.Delete(0, 10)
	assert.True(t, tr.Empty())
}

func TestIntersect(t *testing.T) {
	tr := ivltree.New()
	tr.Insert(0, 10)
	tr.Insert(20, 30)

	got := tr.Intersect(5, 25)
	assert.Equal(t, []ivltree.Interval{{Start: 5, End: 10}, {Start: 20, End: 25}}, got)
}

func TestComplement(t *testing.T) {
	tr := ivltree.New()
	tr.Insert(5, 10)
	tr.Insert(15, 20)

	got := tr.Complement(0, 25)
	assert.Equal(t, []ivltree.Interval{{Start: 0, End: 5}, {Start: 10, End: 15}, {Start: 20, End: 25}}, got)
}

func TestComplementVarray(t *testing.T) {
	tr := ivltree.New()
	tr.Insert(5, 10)

	got := tr.ComplementVarray([]ivltree.Interval{{Start: 0, End: 8}, {Start: 9, End: 15}})
	assert.Equal(t, []ivltree.Interval{{Start: 0, End: 5}, {Start: 10, End: 15}}, got)
}

func TestLogReplay(t *testing.T) {
	log := ivltree.NewMemLog()
	lt := ivltree.NewLogged(log)
	lt.Insert(0, 10)
	lt.Insert(20, 30)
	lt.Delete(5, 8)

	replayed, err := ivltree.Replay(log)
	require.NoError(t, err)
	assert.Equal(t, lt.Intervals(), replayed.Intervals())
}
