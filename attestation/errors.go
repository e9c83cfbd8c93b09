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

import "fmt"

// TeeError wraps a failure surfaced by a TEE quote provider. Callers
// classify it as a TeeAttestation-kind error regardless of vendor.
type TeeError struct {
	Vendor Vendor
	Err    error
}

func (e *TeeError) Error() string {
	return fmt.Sprintf("attestation: %s quote: %v", e.Vendor, e.Err)
}

func (e *TeeError) Unwrap() error { return e.Err }

// TpmError wraps a failure surfaced by the TPM quote path.
type TpmError struct {
	Err error
}

func (e *TpmError) Error() string { return fmt.Sprintf("attestation: tpm quote: %v", e.Err) }

func (e *TpmError) Unwrap() error { return e.Err }
