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
	"testing"

	"github.com/cvmagent/agent/attestation"
	"github.com/google/go-tpm/tpm2"
	"github.com/stretchr/testify/require"
)

func TestEnsureAttestationKey_CreatesAndPersistsAK(t *testing.T) {
	device := attestation.NewSimulatedTPMDevice()
	defer device.Close()

	require.NoError(t, ensureAttestationKey(TPMConfig{Device: device}))

	tpm, err := device.Open()
	require.NoError(t, err)
	_, err = (tpm2.ReadPublic{ObjectHandle: attestation.DefaultAttestationKeyHandle}).Execute(tpm)
	require.NoError(t, err, "expected AK to be readable at the persistent handle after provisioning")
}

func TestEnsureAttestationKey_IsIdempotent(t *testing.T) {
	device := attestation.NewSimulatedTPMDevice()
	defer device.Close()

	require.NoError(t, ensureAttestationKey(TPMConfig{Device: device}))
	require.NoError(t, ensureAttestationKey(TPMConfig{Device: device}))
}
