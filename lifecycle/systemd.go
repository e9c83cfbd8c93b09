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

package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"
)

// unitName appends the ".service" suffix systemd unit files use unless
// the caller already supplied one.
func unitName(name string) string {
	if strings.HasSuffix(name, ".service") {
		return name
	}
	return name + ".service"
}

// systemdAdapter drives the system service manager over D-Bus rather
// than shelling out to a CLI, the same approach the agent's router_com
// sibling uses to watch unit state.
type systemdAdapter struct{}

func (systemdAdapter) Start(ctx context.Context, name string) error {
	return systemdJob(ctx, name, func(conn *dbus.Conn, unit string, ch chan<- string) (int, error) {
		return conn.StartUnitContext(ctx, unit, "replace", ch)
	})
}

func (systemdAdapter) Stop(ctx context.Context, name string) error {
	return systemdJob(ctx, name, func(conn *dbus.Conn, unit string, ch chan<- string) (int, error) {
		return conn.StopUnitContext(ctx, unit, "replace", ch)
	})
}

func (systemdAdapter) Restart(ctx context.Context, name string) error {
	return systemdJob(ctx, name, func(conn *dbus.Conn, unit string, ch chan<- string) (int, error) {
		return conn.RestartUnitContext(ctx, unit, "replace", ch)
	})
}

func systemdJob(ctx context.Context, name string, submit func(*dbus.Conn, string, chan<- string) (int, error)) error {
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("lifecycle: connect to systemd: %w", err)
	}
	defer conn.Close()

	if name == "" {
		return fmt.Errorf("lifecycle: empty systemd unit name")
	}
	unit := unitName(name)

	result := make(chan string, 1)
	if _, err := submit(conn, unit, result); err != nil {
		return fmt.Errorf("lifecycle: submit job for %s: %w", unit, err)
	}

	select {
	case status := <-result:
		if status != "done" {
			return fmt.Errorf("lifecycle: systemd job for %s finished with status %q", unit, status)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
