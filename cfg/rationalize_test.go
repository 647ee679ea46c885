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
	"github.com/stretchr/testify/require"

	"github.com/zlomekfs/zlomekfs/cfg"
)

func TestRationalizeFillsZeroCacheDefaults(t *testing.T) {
	c := cfg.Config{}
	require.NoError(t, cfg.Rationalize(&c))

	assert.EqualValues(t, cfg.DefaultMetadataCacheTTLSecs, c.Cache.MetadataTTLSecs)
	assert.EqualValues(t, cfg.DefaultFHCacheMaxEntries, c.Cache.FHCacheMaxEntries)
	assert.EqualValues(t, cfg.DefaultCapabilityTableSize, c.Cache.CapabilityTableSize)
}

func TestRationalizeClearsMasterAddrForMasterVolumes(t *testing.T) {
	c := cfg.Config{Volumes: []cfg.VolumeConfig{{ID: 1, IsMaster: true, MasterAddr: "stale:1234"}}}
	require.NoError(t, cfg.Rationalize(&c))

	assert.Empty(t, c.Volumes[0].MasterAddr)
}
