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

package attestation

import (
	"testing"

	"github.com/cvmagent/agent/ima"
	"github.com/stretchr/testify/require"
)

func TestResolvePCRSlot_EmptyLineFallsBackToDefault(t *testing.T) {
	require.Equal(t, ima.DefaultPCR, ResolvePCRSlot(""))
}

func TestResolvePCRSlot_UnparsableLineFallsBackToDefault(t *testing.T) {
	require.Equal(t, ima.DefaultPCR, ResolvePCRSlot("not a valid ima line"))
}

func TestResolvePCRSlot_ReadsPCRFieldFromFirstLine(t *testing.T) {
	line := "11 " +
		"0000000000000000000000000000000000000000 " +
		"ima-ng " +
		"sha256:0000000000000000000000000000000000000000000000000000000000000000 " +
		"boot_aggregate"
	require.Equal(t, uint32(11), ResolvePCRSlot(line))
}
