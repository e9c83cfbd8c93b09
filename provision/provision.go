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

// Package provision runs the agent's idempotent first-boot setup: TPM
// endorsement/attestation key creation, the encrypted data volume, and
// the agent's self-signed TLS identity.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const markerFileName = ".provisioned"

// Config names every path and option the provisioner's four steps need.
type Config struct {
	DataStorageRoot string

	// TPM is nil when the agent has no TPM device configured; step 1
	// is skipped entirely in that case.
	TPM *TPMConfig

	Volume VolumeConfig
	TLS    TLSConfig
}

// Provision runs each setup step in order unless the marker file in
// DataStorageRoot already exists, in which case it is a no-op.
func Provision(ctx context.Context, cfg Config) error {
	marker := filepath.Join(cfg.DataStorageRoot, markerFileName)
	if _, err := os.Stat(marker); err == nil {
		slog.Debug("provision: marker present, skipping", "marker", marker)
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("provision: stat marker: %w", err)
	}

	if cfg.TPM != nil {
		if err := ensureAttestationKey(*cfg.TPM); err != nil {
			return fmt.Errorf("provision: tpm: %w", err)
		}
	}

	if err := ensureEncryptedVolume(ctx, cfg.Volume); err != nil {
		return fmt.Errorf("provision: encrypted volume: %w", err)
	}

	if err := ensureTLSIdentity(cfg.TLS); err != nil {
		return fmt.Errorf("provision: tls identity: %w", err)
	}

	if err := os.WriteFile(marker, []byte{}, 0o600); err != nil {
		return fmt.Errorf("provision: write marker: %w", err)
	}
	return nil
}
