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

import "fmt"

const (
	MetadataTTLSecsInvalidValueError = "the value of metadata-ttl-secs can't be less than -1"
	DuplicateVolumeIDError            = "duplicate volume id"
	MasterAddrRequiredError           = "master-addr is required for a non-master volume"
)

func isValidLogRotateConfig(c *LogRotateConfig) error {
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("log-rotate.max-file-size-mb should be at least 1")
	}
	if c.BackupFileCount < 0 {
		return fmt.Errorf("log-rotate.backup-file-count should be 0 (retain all) or positive")
	}
	return nil
}

func isValidCacheConfig(c *CacheConfig) error {
	if c.MetadataTTLSecs < -1 {
		return fmt.Errorf(MetadataTTLSecsInvalidValueError)
	}
	return nil
}

func isValidVolumes(volumes []VolumeConfig) error {
	seen := make(map[uint32]bool, len(volumes))
	for _, v := range volumes {
		if seen[v.ID] {
			return fmt.Errorf("%s: %d", DuplicateVolumeIDError, v.ID)
		}
		seen[v.ID] = true
		if !v.IsMaster && v.MasterAddr == "" {
			return fmt.Errorf("%s: volume %d", MasterAddrRequiredError, v.ID)
		}
	}
	return nil
}

// Validate checks a fully rationalized Config for internally-consistent
// values, following the teacher's pattern of one isValidX helper per
// subsection composed in a single entry point.
func Validate(c *Config) error {
	if err := isValidLogRotateConfig(&c.Logging.LogRotate); err != nil {
		return err
	}
	if err := isValidCacheConfig(&c.Cache); err != nil {
		return err
	}
	return isValidVolumes(c.Volumes)
}
