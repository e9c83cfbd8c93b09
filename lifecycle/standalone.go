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
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// standaloneAdapter spawns name as a detached process and, for stop,
// enumerates every running process whose /proc/<pid>/comm matches name
// and signals each directly: there is no supervisor or service manager
// tracking this kind of payload.
type standaloneAdapter struct{}

func (standaloneAdapter) Start(_ context.Context, name string) error {
	cmd := exec.Command(name)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("lifecycle: spawn %s: %w", name, err)
	}
	return nil
}

func (standaloneAdapter) Stop(_ context.Context, name string) error {
	pids, err := pidsByComm(name)
	if err != nil {
		return fmt.Errorf("lifecycle: enumerate processes named %s: %w", name, err)
	}
	var firstErr error
	for _, pid := range pids {
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("lifecycle: terminate pid %d (%s): %w", pid, name, err)
		}
	}
	return firstErr
}

func (a standaloneAdapter) Restart(ctx context.Context, name string) error {
	if err := a.Stop(ctx, name); err != nil {
		return err
	}
	return a.Start(ctx, name)
}

// pidsByComm scans /proc for processes whose comm file matches name
// exactly, the same match semantics the kernel applies to
// /proc/<pid>/comm (truncated to 15 bytes, no arguments).
func pidsByComm(name string) ([]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}

	var pids []int
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) == name {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}
