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
	"os/exec"
)

// supervisorControlBinary is the supervisor-style control CLI this
// backend shells out to (e.g. s6-style "ctl start <name>").
const supervisorControlBinary = "ctl"

type supervisorAdapter struct{}

func (supervisorAdapter) Start(ctx context.Context, name string) error {
	return runCtl(ctx, "start", name)
}

func (supervisorAdapter) Stop(ctx context.Context, name string) error {
	return runCtl(ctx, "stop", name)
}

func (supervisorAdapter) Restart(ctx context.Context, name string) error {
	return runCtl(ctx, "restart", name)
}

func runCtl(ctx context.Context, verb, name string) error {
	cmd := exec.CommandContext(ctx, supervisorControlBinary, verb, name)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("lifecycle: %s %s %s: %w (%s)", supervisorControlBinary, verb, name, err, out)
	}
	return nil
}
