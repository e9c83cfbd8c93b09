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

package provision

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultFstoolPath        = "/usr/sbin/agent_fstool"
	fstoolPathEnvVar         = "AGENT_FSTOOL_PATH"
	defaultContainerSize     = "500MB"
	defaultContainerFile     = "container"
	defaultContainerMount    = "data"
	defaultContainerName     = "agent_container"
	defaultContainerPassword = 32
	fstoolMaxRetries         = 2
	fstoolRetryInterval      = 200 * time.Millisecond

	passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// VolumeConfig names where the encrypted data container is created.
type VolumeConfig struct {
	// Root is the directory the container file and its mountpoint are
	// created under.
	Root string
}

// ensureEncryptedVolume implements first-boot provisioner step 2: skip
// if the container file already exists, otherwise invoke the external
// filesystem helper with a freshly generated password. The helper
// binary's path defaults to /usr/sbin/agent_fstool and can be
// overridden with the AGENT_FSTOOL_PATH environment variable.
func ensureEncryptedVolume(ctx context.Context, cfg VolumeConfig) error {
	containerPath := filepath.Join(cfg.Root, defaultContainerFile)
	mountPath := filepath.Join(cfg.Root, defaultContainerMount)

	if _, err := os.Stat(containerPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat container: %w", err)
	}

	password, err := randomAlphanumeric(defaultContainerPassword)
	if err != nil {
		return fmt.Errorf("generate container password: %w", err)
	}

	fstool := os.Getenv(fstoolPathEnvVar)
	if fstool == "" {
		fstool = defaultFstoolPath
	}

	slog.Info("provision: generating encrypted data container", "container", containerPath, "mountpoint", mountPath)

	// A fresh guest's block device may not have settled yet on first
	// boot, so a transient fstool failure is retried a few times
	// before being treated as fatal.
	backoffCfg := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(fstoolRetryInterval), fstoolMaxRetries), ctx)
	var lastOutput []byte
	err = backoff.Retry(func() error {
		cmd := exec.CommandContext(ctx, fstool,
			"--size", defaultContainerSize,
			"--location", containerPath,
			"--name", defaultContainerName,
			"--password", password,
			"--mountpoint", mountPath,
		)
		out, runErr := cmd.CombinedOutput()
		lastOutput = out
		return runErr
	}, backoffCfg)
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", fstool, err, lastOutput)
	}

	return nil
}

// randomAlphanumeric returns an n-character CSPRNG-sourced password
// drawn uniformly from passwordAlphabet.
func randomAlphanumeric(n int) (string, error) {
	out := make([]byte, n)
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	for i, b := range raw {
		out[i] = passwordAlphabet[int(b)%len(passwordAlphabet)]
	}
	return string(out), nil
}
