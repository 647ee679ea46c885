// Copyright 2024 Google Inc. All Rights Reserved.
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

package cfg

// Rationalize derives field values from other already-set fields, the
// way the teacher's Rationalize fills in EnableEmptyManagedFolders from
// EnableHns. Call after parsing and before Validate.
func Rationalize(c *Config) error {
	if c.Cache.MetadataTTLSecs == 0 {
		c.Cache.MetadataTTLSecs = DefaultMetadataCacheTTLSecs
	}
	if c.Cache.FHCacheMaxEntries == 0 {
		c.Cache.FHCacheMaxEntries = DefaultFHCacheMaxEntries
	}
	if c.Cache.CapabilityTableSize == 0 {
		c.Cache.CapabilityTableSize = DefaultCapabilityTableSize
	}

	for i := range c.Volumes {
		if c.Volumes[i].IsMaster {
			c.Volumes[i].MasterAddr = ""
		}
	}

	return nil
}
