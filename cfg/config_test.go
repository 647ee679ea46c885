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

package cfg_test

import (
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zlomekfs/zlomekfs/cfg"
)

func TestBindFlagsThenUnmarshal(t *testing.T) {
	viper.Reset()
	flagSet := pflag.NewFlagSet("zfsd", pflag.ContinueOnError)
	require.NoError(t, cfg.BindFlags(flagSet))
	require.NoError(t, flagSet.Parse([]string{"--log-severity=DEBUG", "--metadata-ttl-secs=120"}))

	var c cfg.Config
	require.NoError(t, viper.Unmarshal(&c, viper.DecodeHook(cfg.DecodeHook()), func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }))

	assert.EqualValues(t, cfg.DebugLogSeverity, c.Logging.Severity)
	assert.EqualValues(t, 120, c.Cache.MetadataTTLSecs)
}

func TestBindFlagsDefaults(t *testing.T) {
	viper.Reset()
	flagSet := pflag.NewFlagSet("zfsd", pflag.ContinueOnError)
	require.NoError(t, cfg.BindFlags(flagSet))
	require.NoError(t, flagSet.Parse(nil))

	var c cfg.Config
	require.NoError(t, viper.Unmarshal(&c, viper.DecodeHook(cfg.DecodeHook()), func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }))

	assert.EqualValues(t, cfg.InfoLogSeverity, c.Logging.Severity)
	assert.EqualValues(t, cfg.TextLogFormat, c.Logging.Format)
	assert.EqualValues(t, 10, c.Logging.LogRotate.BackupFileCount)
}
