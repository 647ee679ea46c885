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

package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zlomekfs/zlomekfs/internal/metrics"
)

func TestMustRegisterRegistersEveryCollectorOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewRegistry()

	assert.NotPanics(t, func() { m.MustRegister(reg) })
}

func TestCountersStartAtZero(t *testing.T) {
	m := metrics.NewRegistry()

	var out dto.Metric
	require.NoError(t, m.UpdatesStarted.Write(&out))
	assert.Zero(t, out.GetCounter().GetValue())
}

func TestUpdatesStartedIncrements(t *testing.T) {
	m := metrics.NewRegistry()

	m.UpdatesStarted.Inc()
	m.UpdatesStarted.Inc()

	var out dto.Metric
	require.NoError(t, m.UpdatesStarted.Write(&out))
	assert.EqualValues(t, 2, out.GetCounter().GetValue())
}
