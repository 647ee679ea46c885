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

package fhcache

import (
	"context"
	"time"
)

// MaxUnusedTime is the default sweep threshold of spec §4.4: dentries
// unused for longer than this become eligible for eviction.
const MaxUnusedTime = 60 * time.Second

// RunSweeper runs the dentry-eviction sweep every interval until ctx is
// canceled, in the teacher's singleton-cleanup-goroutine idiom
// (fs/garbage_collect.go). Call it once per Cache, in its own
// goroutine.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration, maxUnused time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(maxUnused.Nanoseconds())
		}
	}
}
