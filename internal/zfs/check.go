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

package zfs

// ExitOnInvariantViolation mirrors cfg.DebugConfig.ExitOnInvariantViolation:
// when true, Check panics on a broken invariant the way the teacher's
// ENABLE_CHECKING builds abort(); when false (the default, matching a
// release build), Check is a no-op and callers are expected to have
// already turned the violation into a returned error instead.
var ExitOnInvariantViolation = false

// Check panics with msg if cond is false and invariant checking is
// enabled. Call sites document which spec invariant (I1-I8) they guard.
func Check(cond bool, msg string) {
	if !cond && ExitOnInvariantViolation {
		panic(msg)
	}
}
