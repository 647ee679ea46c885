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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zlomekfs/zlomekfs/cfg"
)

func TestApplyVerbosityDefaultsToInfo(t *testing.T) {
	verboseCount, quietCount = 0, 0
	c := &cfg.Config{}

	applyVerbosity(c)

	assert.Equal(t, cfg.InfoLogSeverity, c.Logging.Severity)
}

func TestApplyVerbosityIncreasesWithV(t *testing.T) {
	verboseCount, quietCount = 2, 0
	defer func() { verboseCount = 0 }()
	c := &cfg.Config{}

	applyVerbosity(c)

	assert.Equal(t, cfg.TraceLogSeverity, c.Logging.Severity)
}

func TestApplyVerbosityDecreasesWithQ(t *testing.T) {
	verboseCount, quietCount = 0, 1
	defer func() { quietCount = 0 }()
	c := &cfg.Config{Logging: cfg.LoggingConfig{Severity: cfg.InfoLogSeverity}}

	applyVerbosity(c)

	assert.Equal(t, cfg.WarningLogSeverity, c.Logging.Severity)
}

func TestApplyVerbosityClampsAtOff(t *testing.T) {
	verboseCount, quietCount = 0, 10
	defer func() { quietCount = 0 }()
	c := &cfg.Config{}

	applyVerbosity(c)

	assert.Equal(t, cfg.OffLogSeverity, c.Logging.Severity)
}
