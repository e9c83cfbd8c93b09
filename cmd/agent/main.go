// Copyright 2026 Confidential VM Agent Contributors
//
// Licensed under the Functional Source License, Version 1.1,
// ALv2 Future License, the terms and conditions of which are
// set forth in the "LICENSE" file included in the root directory
// of this code repository (the "License"); you may not use this
// file except in compliance with the License. You may obtain
// a copy of the License at
//
// https://fsl.software/FSL-1.1-ALv2.template.md
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cvmagent/agent/agentconfig"
	"github.com/cvmagent/agent/attestation"
	"github.com/cvmagent/agent/debug"
	"github.com/cvmagent/agent/endpoints"
	"github.com/cvmagent/agent/ima"
	"github.com/cvmagent/agent/profiling"
	"github.com/cvmagent/agent/provision"
	"github.com/cvmagent/agent/snapshot"
	"github.com/cvmagent/agent/tlsgate"
)

const (
	serviceName          = "agent"
	snapshotTickInterval = 30 * time.Second
	defaultConfigPath    = "/etc/cvmagent/config.yaml"
)

func main() {
	os.Exit(run())
}

func run() int {
	profiling.Agent.InitProfilerIfEnabled()
	debug.SetupLog(serviceName)

	configPath := defaultConfigPath
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := agentconfig.Load(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Error("failed to load configuration", "error", err)
			return 1
		}
		slog.Warn("no configuration file found, using defaults", "path", configPath)
		cfg = agentconfig.DefaultConfig()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tpmDevice attestation.TPMDevice
	if cfg.TPMDevice != "" {
		tpmDevice = attestation.NewRealTPMDevice(cfg.TPMDevice)
	}

	provisionCfg := provision.Config{
		DataStorageRoot: cfg.DataStorageRoot,
		Volume:          provision.VolumeConfig{Root: cfg.DataStorageRoot},
		TLS: provision.TLSConfig{
			KeyPath:    cfg.KeyPath(),
			CertPath:   cfg.CertPath(),
			CommonName: "cvmagent",
			ListenHost: cfg.ListenHost,
		},
	}
	if tpmDevice != nil {
		provisionCfg.TPM = &provision.TPMConfig{Device: tpmDevice}
	}
	if err := provision.Provision(ctx, provisionCfg); err != nil {
		slog.Error("provisioning failed", "error", err)
		return 1
	}

	identity, err := tlsgate.LoadIdentity(cfg.CertPath(), cfg.KeyPath())
	if err != nil {
		slog.Error("failed to load tls identity", "error", err)
		return 1
	}

	vendor, quoteProvider, err := attestation.DetectTeeProvider()
	if err != nil {
		slog.Error("failed to detect tee provider", "error", err)
		return 1
	}
	teeFacade := attestation.NewTeeFacade(vendor, quoteProvider)

	var tpmFacade *attestation.TPMFacade
	if tpmDevice != nil {
		tpmFacade = attestation.NewTPMFacade(tpmDevice, attestation.DefaultAttestationKeyHandle)
	}

	versionGate, err := tlsgate.NewVersionGate(cfg.MinClientVersion)
	if err != nil {
		slog.Error("failed to build version gate", "error", err)
		return 1
	}

	deps := snapshot.Dependencies{
		FilesystemRoot: snapshot.DefaultFilesystemRoot,
		TEE:            teeFacade,
		ReadIMA:        ima.ReadAsciiLog,
	}
	if tpmFacade != nil {
		deps.TPM = tpmFacade
	}
	worker := snapshot.New(deps)
	go worker.Run(ctx, snapshotTickInterval)

	server := endpoints.New(endpoints.Dependencies{
		Config:      cfg,
		Snapshot:    worker,
		Identity:    identity,
		VersionGate: versionGate,
		TEE:         teeFacade,
		TPM:         tpmFacade,
	})

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress(),
		Handler:      server.Handler(),
		TLSConfig:    identity.ServerTLSConfig(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "address", cfg.ListenAddress())
		errCh <- httpServer.ListenAndServeTLS("", "")
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
			return 1
		}
		return 0
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", "error", err)
			return 1
		}
		return 0
	}
}
