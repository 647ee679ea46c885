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

package ivltree

// Op is one mutation recorded to a Log, enough to replay a tree's
// history after a crash.
type Op struct {
	Insert bool // false means Delete
	Start  uint64
	End    uint64
}

// Log is the append-only mirror spec §4.1 requires each tree be backed
// by, so an interrupted daemon can rebuild its dirty-range set on
// restart instead of conservatively treating the whole file as dirty.
// The wire/on-disk encoding of a Log entry is out of scope (spec §1);
// this package only defines the interface the tree writes through and
// an in-memory implementation for tests and for callers that don't yet
// need durability.
type Log interface {
	Append(op Op) error
	Entries() ([]Op, error)
}

// MemLog is an in-memory Log, useful in tests and as the default until
// a durable backend is wired in.
type MemLog struct {
	ops []Op
}

// NewMemLog returns an empty in-memory log.
func NewMemLog() *MemLog {
	return &MemLog{}
}

func (l *MemLog) Append(op Op) error {
	l.ops = append(l.ops, op)
	return nil
}

func (l *MemLog) Entries() ([]Op, error) {
	out := make([]Op, len(l.ops))
	copy(out, l.ops)
	return out, nil
}

// Logged wraps a Tree so every Insert/Delete is also appended to log.
// Replay reconstructs a Tree's state from a Log's recorded history.
type Logged struct {
	Tree
	log Log
}

// NewLogged returns a Tree that mirrors every mutation to log.
func NewLogged(log Log) *Logged {
	return &Logged{log: log}
}

func (t *Logged) Insert(s, e uint64) {
	t.Tree.Insert(s, e)
	t.log.Append(Op{Insert: true, Start: s, End: e})
}

func (t *Logged) Delete(s, e uint64) {
	t.Tree.Delete(s, e)
	t.log.Append(Op{Insert: false, Start: s, End: e})
}

// Replay rebuilds a Tree by replaying every entry of log in order.
func Replay(log Log) (*Tree, error) {
	ops, err := log.Entries()
	if err != nil {
		return nil, err
	}
	t := New()
	for _, op := range ops {
		if op.Insert {
			t.Insert(op.Start, op.End)
		} else {
			t.Delete(op.Start, op.End)
		}
	}
	return t, nil
}
