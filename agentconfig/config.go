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

// Package agentconfig holds the agent's on-disk YAML configuration
// and the path-resolution rule shared by every configurable path.
package agentconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cvmagent/agent/lifecycle"
)

const (
	defaultListenHost = "0.0.0.0"
	defaultListenPort = 5355
	defaultTPMDevice  = "/dev/tpmrm0"

	defaultCertFile = "cert.pem"
	defaultKeyFile  = "key.pem"
)

// Config is the agent's top-level configuration, loaded once at
// startup from a YAML file.
type Config struct {
	// DataStorageRoot is the directory every relative path in this
	// configuration is resolved against.
	DataStorageRoot string `yaml:"data_storage_root"`

	// ListenHost and ListenPort are where the attestation and
	// snapshot HTTP surface is served.
	ListenHost string `yaml:"listen_host"`
	ListenPort int    `yaml:"listen_port"`

	// TLSCertPath and TLSKeyPath locate the agent's provisioned TLS
	// identity. Resolved against DataStorageRoot per ResolvePath.
	TLSCertPath string `yaml:"tls_cert_path"`
	TLSKeyPath  string `yaml:"tls_key_path"`

	// TPMDevice is the filesystem device the TPM facade opens. Empty
	// means no physical TPM is present and TPM operations are
	// unavailable.
	TPMDevice string `yaml:"tpm_device,omitempty"`

	// MinClientVersion is the minimum verifier CLI version accepted
	// by the version gate.
	MinClientVersion string `yaml:"min_client_version"`

	// App is the optional supervised application's own configuration.
	// Nil when the agent runs with no managed application.
	App *AppConfig `yaml:"app,omitempty"`
}

// AppConfig describes the application the agent provisions and
// supervises alongside itself.
type AppConfig struct {
	// Backend selects how the application is started, stopped, and
	// restarted.
	Backend lifecycle.Backend `yaml:"backend"`
	// Name identifies the application to its lifecycle backend (a
	// systemd unit name, a supervisor program name, or a process
	// name to match against /proc).
	Name string `yaml:"name"`
	// StoragePath is the application's own data directory. Resolved
	// against DataStorageRoot per ResolvePath.
	StoragePath string `yaml:"storage_path,omitempty"`
}

// DefaultConfig returns the configuration used when no file is
// present, suitable for local development against a TPM simulator.
func DefaultConfig() *Config {
	return &Config{
		DataStorageRoot:  "/var/lib/cvmagent",
		ListenHost:       defaultListenHost,
		ListenPort:       defaultListenPort,
		TLSCertPath:      defaultCertFile,
		TLSKeyPath:       defaultKeyFile,
		TPMDevice:        defaultTPMDevice,
		MinClientVersion: "0.0.0",
	}
}

// Load reads and parses a YAML configuration file, filling in
// defaults for any field the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agentconfig: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("agentconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ResolvePath applies the configuration's path resolution rule: an
// absolute path is used verbatim, a relative path is joined with
// root.
func ResolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// CertPath returns the fully resolved TLS certificate path.
func (c *Config) CertPath() string {
	return ResolvePath(c.DataStorageRoot, c.TLSCertPath)
}

// KeyPath returns the fully resolved TLS key path.
func (c *Config) KeyPath() string {
	return ResolvePath(c.DataStorageRoot, c.TLSKeyPath)
}

// AppStoragePath returns the fully resolved application storage
// path, or the empty string if no application is configured.
func (c *Config) AppStoragePath() string {
	if c.App == nil || c.App.StoragePath == "" {
		return ""
	}
	return ResolvePath(c.DataStorageRoot, c.App.StoragePath)
}

// AppSpec returns the lifecycle.Spec for the configured application,
// or the zero Spec if no application is configured.
func (c *Config) AppSpec() lifecycle.Spec {
	if c.App == nil {
		return lifecycle.Spec{}
	}
	return lifecycle.Spec{Backend: c.App.Backend, Name: c.App.Name}
}

// ListenAddress returns the host:port pair the HTTP surface binds.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.ListenPort)
}
