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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zlomekfs/zlomekfs/cfg"
)

func TestDecodeHookConvertsLogSeverityString(t *testing.T) {
	var c cfg.LoggingConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: cfg.DecodeHook(),
		Result:     &c,
	})
	require.NoError(t, err)
	require.NoError(t, decoder.Decode(map[string]interface{}{"severity": "debug"}))

	assert.Equal(t, cfg.DebugLogSeverity, c.Severity)
}

func TestDecodeHookRejectsInvalidFormat(t *testing.T) {
	var c cfg.LoggingConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: cfg.DecodeHook(),
		Result:     &c,
	})
	require.NoError(t, err)
	assert.Error(t, decoder.Decode(map[string]interface{}{"format": "xml"}))
}
