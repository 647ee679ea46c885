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

// GetDefaultLoggingConfig returns the logging configuration used before a
// config file or flags have been parsed, e.g. for early startup errors.
func GetDefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Severity: InfoLogSeverity,
		Format:   TextLogFormat,
		LogRotate: LogRotateConfig{
			MaxFileSizeMB:   512,
			BackupFileCount: 10,
			Compress:        true,
		},
	}
}

// GetDefaultCacheConfig returns the cache bounds used when a config file
// doesn't set them explicitly.
func GetDefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MetadataTTLSecs:     DefaultMetadataCacheTTLSecs,
		FHCacheMaxEntries:   DefaultFHCacheMaxEntries,
		CapabilityTableSize: DefaultCapabilityTableSize,
	}
}
