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

// Package lifecycle starts, stops, and restarts a managed guest payload
// through one of three backends: a supervisor-style daemon, the system
// service manager, or a bare standalone process.
package lifecycle

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Backend selects how a Spec's start/stop/restart verbs are carried out.
type Backend int

const (
	Supervisor Backend = iota
	Systemd
	Standalone
)

func (b Backend) String() string {
	switch b {
	case Supervisor:
		return "Supervisor"
	case Systemd:
		return "Systemd"
	case Standalone:
		return "Standalone"
	default:
		return "Unknown"
	}
}

func (b Backend) MarshalYAML() (any, error) {
	return b.String(), nil
}

func (b *Backend) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "Supervisor":
		*b = Supervisor
	case "Systemd":
		*b = Systemd
	case "Standalone":
		*b = Standalone
	default:
		return fmt.Errorf("lifecycle: unknown backend %q", s)
	}
	return nil
}

// Spec names a managed payload and the backend used to control it.
type Spec struct {
	Backend Backend `yaml:"backend"`
	Name    string  `yaml:"name"`
}

// Adapter is the {start, stop, restart} contract every backend implements.
type Adapter interface {
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
}

// For selects the Adapter implementation for a backend.
func For(backend Backend) (Adapter, error) {
	switch backend {
	case Supervisor:
		return supervisorAdapter{}, nil
	case Systemd:
		return systemdAdapter{}, nil
	case Standalone:
		return standaloneAdapter{}, nil
	default:
		return nil, fmt.Errorf("lifecycle: unsupported backend %v", backend)
	}
}

// Start starts spec's payload through its configured backend.
func Start(ctx context.Context, spec Spec) error {
	adapter, err := For(spec.Backend)
	if err != nil {
		return err
	}
	return adapter.Start(ctx, spec.Name)
}

// Stop stops spec's payload through its configured backend.
func Stop(ctx context.Context, spec Spec) error {
	adapter, err := For(spec.Backend)
	if err != nil {
		return err
	}
	return adapter.Stop(ctx, spec.Name)
}

// Restart restarts spec's payload through its configured backend.
func Restart(ctx context.Context, spec Spec) error {
	adapter, err := For(spec.Backend)
	if err != nil {
		return err
	}
	return adapter.Restart(ctx, spec.Name)
}
