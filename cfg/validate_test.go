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

	"github.com/stretchr/testify/assert"

	"github.com/zlomekfs/zlomekfs/cfg"
)

func validConfig() cfg.Config {
	c := cfg.Config{}
	c.Logging = cfg.GetDefaultLoggingConfig()
	c.Cache = cfg.GetDefaultCacheConfig()
	c.Volumes = []cfg.VolumeConfig{{ID: 1, IsMaster: true}}
	return c
}

func TestValidateAcceptsDefaults(t *testing.T) {
	c := validConfig()
	assert.NoError(t, cfg.Validate(&c))
}

func TestValidateRejectsBadLogRotate(t *testing.T) {
	c := validConfig()
	c.Logging.LogRotate.MaxFileSizeMB = 0
	assert.Error(t, cfg.Validate(&c))
}

func TestValidateRejectsTTLBelowNegativeOne(t *testing.T) {
	c := validConfig()
	c.Cache.MetadataTTLSecs = -2
	assert.Error(t, cfg.Validate(&c))
}

func TestValidateRejectsDuplicateVolumeIDs(t *testing.T) {
	c := validConfig()
	c.Volumes = append(c.Volumes, cfg.VolumeConfig{ID: 1, IsMaster: true})
	assert.Error(t, cfg.Validate(&c))
}

func TestValidateRejectsMissingMasterAddr(t *testing.T) {
	c := validConfig()
	c.Volumes = []cfg.VolumeConfig{{ID: 2, IsMaster: false}}
	assert.Error(t, cfg.Validate(&c))
}
