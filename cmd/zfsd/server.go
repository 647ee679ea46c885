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
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zlomekfs/zlomekfs/cfg"
	"github.com/zlomekfs/zlomekfs/internal/capability"
	"github.com/zlomekfs/zlomekfs/internal/dispatcher"
	"github.com/zlomekfs/zlomekfs/internal/fhcache"
	"github.com/zlomekfs/zlomekfs/internal/lockmgr"
	"github.com/zlomekfs/zlomekfs/internal/logger"
	"github.com/zlomekfs/zlomekfs/internal/metadata"
	"github.com/zlomekfs/zlomekfs/internal/metrics"
	"github.com/zlomekfs/zlomekfs/internal/randsrc"
	"github.com/zlomekfs/zlomekfs/internal/volume"
)

// runningVolume bundles one configured volume's in-memory state: the
// metadata store, fh cache, lock manager and capability table the
// dispatcher for that volume is built from once a MasterClient and
// LocalOps implementation are wired in by the (out-of-scope) transport
// and VFS bridge layers.
type runningVolume struct {
	cfg   cfg.VolumeConfig
	vol   *volume.Volume
	cache *fhcache.Cache
	locks *lockmgr.Manager
	caps  *capability.Table

	// dispatcher is left nil here: attaching one requires a
	// zfsrpc.MasterClient and a dispatcher.LocalOps implementation,
	// both supplied by the out-of-scope transport and VFS bridge
	// layers (spec §1). A process that embeds this package alongside
	// such an implementation sets this field before calling runServer.
	dispatcher *dispatcher.Dispatcher
}

// runServer brings up every configured volume's in-memory state,
// exposes metrics, and blocks until SIGINT, SIGTERM or SIGQUIT. It is
// the foreground body both the daemonized child and a --foreground run
// execute.
func runServer(c *cfg.Config) error {
	reg := metrics.NewRegistry()
	promReg := prometheus.NewRegistry()
	reg.MustRegister(promReg)

	volumes := make([]*runningVolume, 0, len(c.Volumes))
	for _, vc := range c.Volumes {
		rv, err := bringUpVolume(vc)
		if err != nil {
			return fmt.Errorf("bring up volume %d: %w", vc.ID, err)
		}
		volumes = append(volumes, rv)
		logger.Infof("volume %d ready (local-path=%q, is-master=%v)", vc.ID, string(vc.LocalPath), vc.IsMaster)
	}

	var metricsServer *http.Server
	if c.Network.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: c.Network.ListenAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("metrics server: %v", err)
			}
		}()
		logger.Infof("metrics listening on %s", c.Network.ListenAddr)
	}

	logger.Infof(successfulStartupMessage)

	// SIGUSR1 is reserved (spec §6) to interrupt a blocking syscall in
	// the VFS bridge; there is no such blocking layer in this process,
	// so it is intentionally left unregistered here.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-sigCh
	logger.Infof("received %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	shutdownVolumes(ctx, volumes)

	if metricsServer != nil {
		_ = metricsServer.Shutdown(ctx)
	}
	return nil
}

// bringUpVolume constructs one volume's in-memory state: a metadata
// store, fh cache, lock manager and capability table.
func bringUpVolume(vc cfg.VolumeConfig) (*runningVolume, error) {
	store, err := metadata.Open(metadata.NewMemBackend())
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	vol := volume.New(vc.ID, store)
	if string(vc.LocalPath) != "" {
		vol.LocalPath = string(vc.LocalPath)
		vol.Flags |= volume.FlagLocal
	}
	if vc.IsMaster {
		vol.Master = vc.ID
	}

	rnd := randsrc.New(64)

	return &runningVolume{
		cfg:   vc,
		vol:   vol,
		cache: fhcache.New(),
		locks: lockmgr.New(),
		caps:  capability.NewTable(rnd),
	}, nil
}

// shutdownVolumes drains every in-memory dispatcher this volume has
// created, if any were ever attached. In this process no dispatcher is
// attached (no MasterClient/LocalOps implementation is wired in; see
// runningVolume.dispatcher), but a transport layer that does attach one
// would register it here so it is released on the same signal path.
func shutdownVolumes(ctx context.Context, volumes []*runningVolume) {
	for _, rv := range volumes {
		if rv.dispatcher != nil {
			if err := rv.dispatcher.Shutdown(ctx); err != nil {
				logger.Errorf("volume %d shutdown: %v", rv.cfg.ID, err)
			}
		}
	}
}
