// Copyright 2024 Google LLC
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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zlomekfs/zlomekfs/cfg"
)

func TestLogSeverityUnmarshalRejectsUnknown(t *testing.T) {
	var s cfg.LogSeverity
	assert.Error(t, s.UnmarshalText([]byte("LOUD")))
}

func TestLogSeverityRankOrdering(t *testing.T) {
	assert.Less(t, cfg.TraceLogSeverity.Rank(), cfg.DebugLogSeverity.Rank())
	assert.Less(t, cfg.ErrorLogSeverity.Rank(), cfg.OffLogSeverity.Rank())
}

func TestResolvedPathMakesAbsolute(t *testing.T) {
	var p cfg.ResolvedPath
	require.NoError(t, p.UnmarshalText([]byte("relative/log.txt")))
	assert.True(t, filepath.IsAbs(string(p)))
}

func TestLogFormatUnmarshalCaseInsensitive(t *testing.T) {
	var f cfg.LogFormat
	require.NoError(t, f.UnmarshalText([]byte("JSON")))
	assert.Equal(t, cfg.JSONLogFormat, f)
}
