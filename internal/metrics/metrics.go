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

// Package metrics exposes prometheus counters and gauges for the update
// engine and lock manager, the two components whose steady-state
// behavior (queue depth, conflict rate, contention) an operator needs
// visibility into. The teacher's own metrics/telemetry layer is
// OpenTelemetry-based and GCS-request-shaped; this package instead
// follows the client_golang idiom directly, since the Prometheus client
// is itself one of the teacher's real dependencies (pulled in through
// its OTel-Prometheus exporter) and there is no GCS request path here
// for an OTel pipeline to describe.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every collector zfsd registers, so a caller can wire
// them all into one prometheus.Registerer with a single call.
type Registry struct {
	UpdatesStarted          prometheus.Counter
	UpdatesSucceeded        prometheus.Counter
	UpdatesFailed           prometheus.Counter
	ReintegrationsSucceeded prometheus.Counter
	ConflictsDetected       prometheus.Counter
	EngineQueueDepth        prometheus.Gauge
	EngineWorkersActive     prometheus.Gauge

	LockWaitSeconds   prometheus.Histogram
	LocksHeld         prometheus.Gauge
	StaleRetries      prometheus.Counter

	CapabilityTableSize prometheus.Gauge
	FHCacheEntries      prometheus.Gauge
	FHCacheEvictions    prometheus.Counter
}

// NewRegistry constructs every collector with a "zfsd" namespace, the
// way the teacher's own metric constructors fix a "gcsfuse" namespace.
func NewRegistry() *Registry {
	const namespace = "zfsd"

	return &Registry{
		UpdatesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "update", Name: "started_total",
			Help: "Number of update/reintegrate jobs the engine has started.",
		}),
		UpdatesSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "update", Name: "succeeded_total",
			Help: "Number of update/reintegrate jobs that completed without error.",
		}),
		UpdatesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "update", Name: "failed_total",
			Help: "Number of update/reintegrate jobs that returned an error.",
		}),
		ReintegrationsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "update", Name: "reintegrations_succeeded_total",
			Help: "Number of directory journals successfully replayed against a master.",
		}),
		ConflictsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "update", Name: "conflicts_detected_total",
			Help: "Number of times Decide returned a conflict verdict.",
		}),
		EngineQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "update", Name: "queue_depth",
			Help: "Current number of pending work items in the update engine's queue.",
		}),
		EngineWorkersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "update", Name: "workers_active",
			Help: "Current number of update-engine workers executing a job.",
		}),
		LockWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "lockmgr", Name: "wait_seconds",
			Help:    "Time spent waiting to acquire a per-fh lock.",
			Buckets: prometheus.DefBuckets,
		}),
		LocksHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "lockmgr", Name: "locks_held",
			Help: "Current number of per-fh locks held.",
		}),
		StaleRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "dispatcher", Name: "stale_retries_total",
			Help: "Number of times an operation retried once after a Stale result.",
		}),
		CapabilityTableSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "capability", Name: "table_size",
			Help: "Current number of live capabilities.",
		}),
		FHCacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "fhcache", Name: "entries",
			Help: "Current number of fh/dentry pairs resident in the cache.",
		}),
		FHCacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "fhcache", Name: "evictions_total",
			Help: "Number of entries the sweeper has evicted.",
		}),
	}
}

// MustRegister registers every collector on reg, panicking on a
// duplicate-registration error the way the teacher's own metrics init
// does at startup.
func (r *Registry) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		r.UpdatesStarted, r.UpdatesSucceeded, r.UpdatesFailed,
		r.ReintegrationsSucceeded, r.ConflictsDetected,
		r.EngineQueueDepth, r.EngineWorkersActive,
		r.LockWaitSeconds, r.LocksHeld, r.StaleRetries,
		r.CapabilityTableSize, r.FHCacheEntries, r.FHCacheEvictions,
	)
}
