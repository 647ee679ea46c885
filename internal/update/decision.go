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

// Package update implements the update/reintegrate engine of spec
// §4.8 (component C8): deciding when to pull fresh remote blocks or
// push local changes, and replaying per-directory journals against the
// master.
package update

import "github.com/zlomekfs/zlomekfs/internal/metadata"

// Action is the outcome of the decision predicate.
type Action int

const (
	// NoAction means the file is already in sync both ways.
	NoAction Action = iota
	Update
	Reintegrate
	// Conflict means both an update and a reintegrate are needed
	// simultaneously: master advanced and local has pending mutations.
	Conflict
)

// Decide implements spec §4.8's decision predicate given the local
// metadata record and the master's freshly-fetched version.
func Decide(meta metadata.Record, remoteVersion uint64, incomplete bool) Action {
	attrVersion := meta.LocalVersion
	if meta.Flags&metadata.FlagModified != 0 {
		attrVersion++
	}

	masterAdvanced := remoteVersion > meta.MasterVersion
	localPending := attrVersion > meta.MasterVersion

	switch {
	case localPending && masterAdvanced:
		return Conflict
	case localPending:
		return Reintegrate
	case masterAdvanced, incomplete:
		return Update
	default:
		return NoAction
	}
}
