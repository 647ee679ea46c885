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

// Package cfg holds zfsd's configuration surface: the yaml-tagged Config
// tree, its pflag/viper bindings, defaults, rationalization and
// validation, mirroring the teacher's cfg package.
package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root of zfsd's configuration, populated from a config
// file, environment variables and flags (in that precedence order, as
// wired by viper in BindFlags).
type Config struct {
	Volumes []VolumeConfig `yaml:"volumes"`

	Network NetworkConfig `yaml:"network"`

	Logging LoggingConfig `yaml:"logging"`

	Cache CacheConfig `yaml:"cache"`

	Debug DebugConfig `yaml:"debug"`
}

// VolumeConfig describes one locally-served ZFS volume.
type VolumeConfig struct {
	ID uint32 `yaml:"id"`

	LocalPath ResolvedPath `yaml:"local-path"`

	MasterAddr string `yaml:"master-addr"`

	IsMaster bool `yaml:"is-master"`
}

// NetworkConfig describes how this node reaches the volumes' masters.
// No concrete transport is mandated (spec Non-goals); these fields only
// parameterize whatever zfsrpc.MasterClient implementation is wired in.
type NetworkConfig struct {
	ListenAddr string `yaml:"listen-addr"`

	DialTimeoutSecs int `yaml:"dial-timeout-secs"`
}

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Severity LogSeverity `yaml:"severity"`

	Format LogFormat `yaml:"format"`

	FilePath ResolvedPath `yaml:"file-path"`

	LogRotate LogRotateConfig `yaml:"log-rotate"`
}

// LogRotateConfig configures the lumberjack.Logger backing file rotation.
type LogRotateConfig struct {
	MaxFileSizeMB int `yaml:"max-file-size-mb"`

	BackupFileCount int `yaml:"backup-file-count"`

	Compress bool `yaml:"compress"`
}

// CacheConfig configures internal/metadata, internal/fhcache and
// internal/capability's bounds.
type CacheConfig struct {
	MetadataTTLSecs int64 `yaml:"metadata-ttl-secs"`

	FHCacheMaxEntries int `yaml:"fh-cache-max-entries"`

	CapabilityTableSize int `yaml:"capability-table-size"`
}

// DebugConfig controls internal invariant checking, mirroring the
// teacher's debug.exit-on-invariant-violation / debug.log-mutex knobs.
type DebugConfig struct {
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation"`

	LogMutex bool `yaml:"log-mutex"`
}

// BindFlags registers zfsd's flags on flagSet and binds each one through
// viper, following the teacher's one-flag-one-BindPFlag-call idiom.
func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("log-severity", "", INFO, "Logging severity: TRACE, DEBUG, INFO, WARNING, ERROR or OFF.")
	if err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-format", "", string(TextLogFormat), "Log record format: text or json.")
	if err = viper.BindPFlag("logging.format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Path to the log file. Empty means log to stderr.")
	if err = viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file")); err != nil {
		return err
	}

	flagSet.IntP("log-max-size-mb", "", 512, "Maximum size in MB of a log file before it gets rotated.")
	if err = viper.BindPFlag("logging.log-rotate.max-file-size-mb", flagSet.Lookup("log-max-size-mb")); err != nil {
		return err
	}

	flagSet.IntP("log-backup-count", "", 10, "Number of rotated log files to keep. 0 retains all.")
	if err = viper.BindPFlag("logging.log-rotate.backup-file-count", flagSet.Lookup("log-backup-count")); err != nil {
		return err
	}

	flagSet.BoolP("log-compress", "", true, "Compress rotated log files.")
	if err = viper.BindPFlag("logging.log-rotate.compress", flagSet.Lookup("log-compress")); err != nil {
		return err
	}

	flagSet.StringP("listen-addr", "", "", "Address this node's zfsrpc server listens on.")
	if err = viper.BindPFlag("network.listen-addr", flagSet.Lookup("listen-addr")); err != nil {
		return err
	}

	flagSet.IntP("dial-timeout-secs", "", 30, "Timeout in seconds for dialing a volume's master.")
	if err = viper.BindPFlag("network.dial-timeout-secs", flagSet.Lookup("dial-timeout-secs")); err != nil {
		return err
	}

	flagSet.Int64P("metadata-ttl-secs", "", DefaultMetadataCacheTTLSecs, "Seconds a cached metadata record is trusted without revalidation. -1 means never expire.")
	if err = viper.BindPFlag("cache.metadata-ttl-secs", flagSet.Lookup("metadata-ttl-secs")); err != nil {
		return err
	}

	flagSet.IntP("fh-cache-max-entries", "", DefaultFHCacheMaxEntries, "Maximum number of file handles kept resident in the fh cache.")
	if err = viper.BindPFlag("cache.fh-cache-max-entries", flagSet.Lookup("fh-cache-max-entries")); err != nil {
		return err
	}

	flagSet.IntP("capability-table-size", "", DefaultCapabilityTableSize, "Initial bucket count for the capability table.")
	if err = viper.BindPFlag("cache.capability-table-size", flagSet.Lookup("capability-table-size")); err != nil {
		return err
	}

	flagSet.BoolP("debug-invariants", "", false, "Exit the process when an internal invariant is violated.")
	if err = viper.BindPFlag("debug.exit-on-invariant-violation", flagSet.Lookup("debug-invariants")); err != nil {
		return err
	}

	flagSet.BoolP("debug-mutex", "", false, "Log a warning when a mutex is held longer than expected.")
	if err = viper.BindPFlag("debug.log-mutex", flagSet.Lookup("debug-mutex")); err != nil {
		return err
	}

	return nil
}
