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

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jacobsa/daemonize"
	"github.com/kardianos/osext"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zlomekfs/zlomekfs/cfg"
	"github.com/zlomekfs/zlomekfs/internal/logger"
	"github.com/zlomekfs/zlomekfs/internal/zfs"
)

// zfsdInBackgroundMode marks a re-exec'd daemon child, the way the
// teacher's GCSFuseInBackgroundMode env var does.
const zfsdInBackgroundMode = "ZFSD_IN_BACKGROUND_MODE"

const successfulStartupMessage = "zfsd started successfully."

var (
	cfgFile       string
	foreground    bool
	verboseCount  int
	quietCount    int
	bindErr       error
	configFileErr error
	unmarshalErr  error

	globalConfig cfg.Config
)

var rootCmd = &cobra.Command{
	Use:     "zfsd",
	Short:   "zfsd is the ZlomekFS node daemon",
	Long:    "zfsd brings up the local half of a cache-coherent distributed filesystem: the metadata store, fh cache, lock manager and capability table for every configured volume.",
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}

		applyVerbosity(&globalConfig)

		if err := cfg.Rationalize(&globalConfig); err != nil {
			return fmt.Errorf("rationalize config: %w", err)
		}
		if err := cfg.Validate(&globalConfig); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		zfs.ExitOnInvariantViolation = globalConfig.Debug.ExitOnInvariantViolation

		if globalConfig.Logging.Format != "" {
			logger.SetLogFormat(string(globalConfig.Logging.Format))
		}
		if err := logger.InitLogFile(globalConfig.Logging); err != nil {
			return fmt.Errorf("init log file: %w", err)
		}
		defer logger.Close()

		if !foreground && os.Getenv(zfsdInBackgroundMode) == "" {
			return runAsDaemon()
		}

		err := runServer(&globalConfig)
		if os.Getenv(zfsdInBackgroundMode) != "" {
			if err2 := daemonize.SignalOutcome(err); err2 != nil {
				logger.Errorf("failed to signal outcome to parent process: %v", err2)
			}
		}
		return err
	},
}

// applyVerbosity lets repeated -v/-q flags nudge the configured log
// severity up or down one step per occurrence, the way a CLI's
// verbosity flags conventionally layer over a config file's default.
func applyVerbosity(c *cfg.Config) {
	if c.Logging.Severity == "" {
		c.Logging.Severity = cfg.InfoLogSeverity
	}
	rank := c.Logging.Severity.Rank() - verboseCount + quietCount
	for _, s := range []cfg.LogSeverity{
		cfg.TraceLogSeverity, cfg.DebugLogSeverity, cfg.InfoLogSeverity,
		cfg.WarningLogSeverity, cfg.ErrorLogSeverity, cfg.OffLogSeverity,
	} {
		if s.Rank() == rank {
			c.Logging.Severity = s
			return
		}
	}
	if rank < cfg.TraceLogSeverity.Rank() {
		c.Logging.Severity = cfg.TraceLogSeverity
	} else {
		c.Logging.Severity = cfg.OffLogSeverity
	}
}

// runAsDaemon re-execs the current binary in the background with
// --foreground set, and waits for it to either signal a successful
// startup or fail, mirroring the teacher's own daemonize.Run usage in
// its legacy entry point.
func runAsDaemon() error {
	path, err := osext.Executable()
	if err != nil {
		return fmt.Errorf("osext.Executable: %w", err)
	}

	args := append([]string{"--foreground"}, os.Args[1:]...)
	env := []string{
		fmt.Sprintf("PATH=%s", os.Getenv("PATH")),
		fmt.Sprintf("%s=true", zfsdInBackgroundMode),
	}
	if wd, err := os.Getwd(); err == nil {
		env = append(env, fmt.Sprintf("ZFSD_PARENT_PROCESS_DIR=%s", wd))
	}

	if err := daemonize.Run(path, args, env, os.Stdout); err != nil {
		return fmt.Errorf("daemonize.Run: %w", err)
	}
	logger.Infof(successfulStartupMessage)
	return nil
}

// Execute runs the root command, exiting 1 on any error the way the
// teacher's own Execute does.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "f", "", "Path to the YAML config file.")
	rootCmd.PersistentFlags().CountVarP(&verboseCount, "verbose", "v", "Increase log verbosity. Repeatable.")
	rootCmd.PersistentFlags().CountVarP(&quietCount, "quiet", "q", "Decrease log verbosity. Repeatable.")
	rootCmd.PersistentFlags().BoolVar(&foreground, "foreground", false, "Run in the foreground instead of daemonizing.")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile == "" {
		unmarshalErr = viper.Unmarshal(&globalConfig, viper.DecodeHook(cfg.DecodeHook()), func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" })
		return
	}

	resolved, err := filepath.Abs(cfgFile)
	if err != nil {
		configFileErr = fmt.Errorf("resolving config file path: %w", err)
		return
	}
	viper.SetConfigFile(resolved)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("reading config file: %w", err)
		return
	}
	unmarshalErr = viper.Unmarshal(&globalConfig, viper.DecodeHook(cfg.DecodeHook()), func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" })
}
